package llm

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"
)

// geminiClient implements the Client interface for the Gemini API.
type geminiClient struct {
	client *genai.Client
	once   sync.Once
	err    error
	apiKey string
	model  string
}

// newGeminiClient creates a new Gemini API client. The underlying SDK client
// is created lazily because its constructor needs a context.
func newGeminiClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	return &geminiClient{
		apiKey: cfg.APIKey,
		model:  model,
	}, nil
}

func (c *geminiClient) init(ctx context.Context) error {
	c.once.Do(func() {
		c.client, c.err = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:      c.apiKey,
			HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
		})
	})
	return c.err
}

// Complete sends a classification request to Gemini and returns the raw text
// output.
func (c *geminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.init(ctx); err != nil {
		return "", fmt.Errorf("failed to create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}

	return text, nil
}
