package llmservice

import (
	"context"
	"fmt"
	"strings"

	"multimodal-rag/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// Client wraps a langchaingo model for text, vision, and structured-output
// generation. One client per configured endpoint; the citation path uses
// JSON mode at zero temperature.
type Client struct {
	model llms.Model
}

func NewClient(cfg *config.LLMConfig) (*Client, error) {
	model, err := newModel(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{model: model}, nil
}

func newModel(cfg *config.LLMConfig) (llms.Model, error) {
	switch strings.ToLower(cfg.Provider) {
	case "ollama":
		return ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
	case "openai", "":
		return openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}

// GenerateText sends a plain text prompt and returns the first choice.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	messages := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		},
	}
	return c.generate(ctx, messages, llms.WithTemperature(0.1))
}

// GenerateVision sends a prompt together with image bytes to a multimodal
// model. Used for image and formula summaries and query-image analysis.
func (c *Client) GenerateVision(ctx context.Context, prompt string, image []byte) (string, error) {
	messages := []llms.MessageContent{
		{
			Role: schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(prompt),
				llms.BinaryPart("image/jpeg", image),
			},
		},
	}
	return c.generate(ctx, messages, llms.WithTemperature(0.0))
}

// GenerateJSON sends a prompt in deterministic structured-output mode. The
// caller is responsible for parsing the returned string.
func (c *Client) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	messages := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		},
	}
	return c.generate(ctx, messages, llms.WithTemperature(0.0), llms.WithJSONMode())
}

func (c *Client) generate(ctx context.Context, messages []llms.MessageContent, opts ...llms.CallOption) (string, error) {
	res, err := c.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("llm generation failed: %w", err)
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}
	content := res.Choices[0].Content
	log.Debug().Int("length", len(content)).Msg("Generated content")
	return content, nil
}
