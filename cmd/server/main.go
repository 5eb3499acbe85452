package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mikeboe/devtools-research/pkg/clients"
	"github.com/mikeboe/devtools-research/pkg/config"
	"github.com/mikeboe/devtools-research/pkg/database"
	"github.com/mikeboe/devtools-research/pkg/server"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))
	ctx := context.Background()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// Database Connection
	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.InitSchema(ctx); err != nil {
		slog.Error("Failed to initialize schema", "error", err)
		os.Exit(1)
	}

	llm, err := clients.NewChatModel(clients.LLMConfig{
		ApiKey:  cfg.LLMApiKey,
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
	})
	if err != nil {
		slog.Error("Failed to init chat model", "error", err)
		os.Exit(1)
	}

	// Knowledge base is optional
	var kb *server.KnowledgeBase
	if cfg.Knowledge.Enabled() {
		kb, err = server.NewKnowledgeBase(ctx, db, cfg.Knowledge)
		if err != nil {
			slog.Error("Failed to init knowledge base", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("GOOGLE_API_KEY not set, knowledge base disabled")
	}

	svc := server.NewService(db, cfg, llm, kb)
	handler := server.NewHandler(svc, nil)
	if kb != nil {
		handler.Knowledge = kb
	}

	// Web Server Setup
	r := gin.Default()

	// CORS Setup
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
	}))

	handler.RegisterRoutes(r)

	slog.Info("Server starting", "port", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		slog.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
}
