package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Client defines the interface for LLM providers. Implementations send a
// prompt and return the raw model output; parsing happens in one place so
// every provider shares the same recovery path.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Suggestion is a parsed classification suggestion from a model.
type Suggestion struct {
	AccountCode string
	Reason      string
	Confidence  float64
}

// Config holds configuration for the LLM stage.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	MaxRetries  int
	RetryDelay  time.Duration
	CacheTTL    time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
}

// NewClient creates an LLM client based on the provided configuration.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return newOpenAIClient(cfg)
	case "anthropic":
		return newAnthropicClient(cfg)
	case "gemini":
		return newGeminiClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
