package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mikeboe/devtools-research/pkg/clients"
	"github.com/mikeboe/devtools-research/pkg/config"
	"github.com/mikeboe/devtools-research/pkg/firecrawl"
	"github.com/mikeboe/devtools-research/pkg/research"
)

var query string

func main() {
	// Setup structured logging
	handler := slog.NewTextHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(handler))

	rootCmd := &cobra.Command{
		Use:   "devtools-research",
		Short: "Research and compare developer tools from the terminal",
		Long:  `devtools-research finds tools matching a query, researches each one from its own website and recommends the best fit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if err := cfg.Validate(); err != nil {
				return err
			}

			engine, err := newEngine(cfg)
			if err != nil {
				return fmt.Errorf("error initializing engine: %w", err)
			}

			if cmd.Flags().Changed("query") {
				if strings.TrimSpace(query) == "" {
					return fmt.Errorf("--query flag provided but empty")
				}
				return runQuery(cmd.Context(), engine, query)
			}

			// Interactive Mode
			reader := bufio.NewReader(os.Stdin)
			for {
				fmt.Print("\nDeveloper Tools Query: ")
				input, err := reader.ReadString('\n')
				input = strings.TrimSpace(input)
				if isQuit(input) {
					return nil
				}
				if input != "" {
					if err := runQuery(cmd.Context(), engine, input); err != nil {
						slog.Error("Error running research", "error", err)
					}
				}
				if err != nil {
					// EOF
					return nil
				}
			}
		},
	}

	rootCmd.Flags().StringVarP(&query, "query", "q", "", "Run a single query and exit")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

func newEngine(cfg *config.Config) (*research.ResearchEngine, error) {
	searcher, err := firecrawl.NewClient(cfg.FirecrawlApiKey, firecrawl.WithBaseURL(cfg.FirecrawlBaseURL))
	if err != nil {
		return nil, err
	}

	llm, err := clients.NewChatModel(clients.LLMConfig{
		ApiKey:  cfg.LLMApiKey,
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
	})
	if err != nil {
		return nil, err
	}

	return research.NewEngine(research.Config{Temperature: cfg.Temperature}, searcher, llm)
}

func runQuery(ctx context.Context, engine *research.ResearchEngine, q string) error {
	slog.Info("Starting research", "query", q)
	state, err := engine.Run(ctx, q)
	if err != nil {
		return err
	}
	printResults(os.Stdout, state)
	return nil
}

func isQuit(input string) bool {
	switch strings.ToLower(input) {
	case "quit", "exit":
		return true
	}
	return false
}
