// Package resolve builds the relay's upstream medcopy.Provider from
// provider-agnostic configuration.
package resolve

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nevindra/medcopy"
	"github.com/nevindra/medcopy/provider/openaicompat"
)

// Config holds provider-agnostic configuration for creating a chat Provider.
type Config struct {
	Provider string // "openai", "azure", "groq", "deepseek", "together", "mistral", "openrouter", "ollama"
	APIKey   string
	Model    string
	BaseURL  string // auto-filled for known providers

	// Request defaults sent on every call; nil or 0 leaves the field unset.
	// Temperature is not here: the relay sends one with every request.
	TopP      *float64
	MaxTokens int
	Seed      *int

	// Timeout bounds each upstream call; 0 means no limit.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Provider creates a medcopy.Provider from cfg. It returns (nil, nil) when
// the provider needs an API key and none is set: the relay then answers
// "not configured" per request instead of failing at startup.
func Provider(cfg Config) (medcopy.Provider, error) {
	if cfg.Provider == "" {
		cfg.Provider = "openai"
	}
	if !known(cfg.Provider) {
		return nil, fmt.Errorf("resolve: unknown provider %q", cfg.Provider)
	}
	if cfg.APIKey == "" && RequiresKey(cfg.Provider) {
		return nil, nil
	}
	return openaiCompatProvider(cfg), nil
}

// RequiresKey reports whether provider needs an API key.
func RequiresKey(provider string) bool {
	return provider != "ollama"
}

func known(provider string) bool {
	switch provider {
	case "openai", "azure", "groq", "deepseek", "together", "mistral", "openrouter", "ollama":
		return true
	}
	return false
}

func openaiCompatProvider(cfg Config) *openaicompat.Provider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL(cfg.Provider)
	}
	provOpts := []openaicompat.ProviderOption{
		openaicompat.WithName(cfg.Provider),
		openaicompat.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.Logger != nil {
		provOpts = append(provOpts, openaicompat.WithLogger(cfg.Logger))
	}

	var reqOpts []openaicompat.Option
	if cfg.TopP != nil {
		reqOpts = append(reqOpts, openaicompat.WithTopP(*cfg.TopP))
	}
	if cfg.MaxTokens > 0 {
		reqOpts = append(reqOpts, openaicompat.WithMaxTokens(cfg.MaxTokens))
	}
	if cfg.Seed != nil {
		reqOpts = append(reqOpts, openaicompat.WithSeed(*cfg.Seed))
	}
	if len(reqOpts) > 0 {
		provOpts = append(provOpts, openaicompat.WithOptions(reqOpts...))
	}
	return openaicompat.NewProvider(cfg.APIKey, cfg.Model, baseURL, provOpts...)
}

func defaultBaseURL(provider string) string {
	switch provider {
	case "openai":
		return "https://api.openai.com/v1"
	case "groq":
		return "https://api.groq.com/openai/v1"
	case "deepseek":
		return "https://api.deepseek.com/v1"
	case "together":
		return "https://api.together.xyz/v1"
	case "mistral":
		return "https://api.mistral.ai/v1"
	case "openrouter":
		return "https://openrouter.ai/api/v1"
	case "ollama":
		return "http://localhost:11434/v1"
	default:
		return ""
	}
}
