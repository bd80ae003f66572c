package models

import (
	"context"
	"fmt"
	"strings"

	"github.com/medkitlab/medirag/src/config"
)

// NewProvider returns the concrete Agent selected by the config.
// Credentials were validated at startup; an empty key here means the
// caller skipped config.Load and gets the provider's own error.
func NewProvider(ctx context.Context, cfg *config.Config) (Agent, error) {
	switch strings.ToLower(cfg.Provider) {
	case "groq":
		return NewGroqLLM(cfg.GroqAPIKey, cfg.Model, cfg.Temperature, cfg.MaxTokens), nil
	case "openai":
		return NewOpenAILLM(cfg.OpenAIAPIKey, cfg.Model, cfg.Temperature, cfg.MaxTokens), nil
	case "ollama":
		return NewOllamaLLM(cfg.OllamaHost, cfg.Model, cfg.Temperature, cfg.MaxTokens)
	case "anthropic", "claude":
		return NewAnthropicLLM(cfg.AnthropicAPIKey, cfg.Model, cfg.Temperature, cfg.MaxTokens), nil
	case "gemini", "google":
		return NewGeminiLLM(ctx, cfg.GeminiAPIKey, cfg.Model, cfg.Temperature, cfg.MaxTokens)
	case "dummy":
		return NewDummyLLM(""), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}
