package clients

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms/openai"

	"github.com/mikeboe/devtools-research/pkg/config"
)

// LLMConfig selects an OpenAI-compatible chat completion endpoint.
type LLMConfig struct {
	ApiKey  string
	BaseURL string
	Model   string
}

// NewChatModel creates a chat model for any OpenAI-compatible API (OpenRouter by default).
func NewChatModel(cfg LLMConfig) (*openai.LLM, error) {
	if strings.TrimSpace(cfg.ApiKey) == "" {
		return nil, errors.New("OPENROUTER_API_KEY is missing")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultLLMBaseURL
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = config.DefaultLLMModel
	}

	llm, err := openai.New(
		openai.WithToken(cfg.ApiKey),
		openai.WithBaseURL(baseURL),
		openai.WithModel(modelName),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model %s: %w", modelName, err)
	}

	return llm, nil
}
