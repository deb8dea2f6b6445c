// Package genai provides generative-language clients for ReelBites.
//
// The default backend is Google Gemini; an OpenAI-backed client is
// available for deployments that prefer it. All collaborators (classifier,
// location resolver, style generator) talk to ClientInterface and never to
// a vendor SDK directly.
package genai

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	gemini "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is the model used when none is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// ClientInterface is the minimal generation surface the collaborators
// need: a single prompt in, trimmed text out.
type ClientInterface interface {
	// GenerateText sends one prompt and returns the model's text reply.
	GenerateText(ctx context.Context, prompt string) (string, error)
	// GenerateWithSystem sends a system instruction plus a user prompt.
	GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Opts holds configuration applied by Option functions.
type Opts struct {
	APIKey string
	Model  string
}

// Option configures a genai client.
type Option func(*Opts)

// WithAPIKey sets the API key explicitly, overriding the environment.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the default model identifier.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// generativeModel is the seam between Client and the Gemini SDK, kept
// narrow so tests can stub the call.
type generativeModel interface {
	GenerateContent(ctx context.Context, parts ...gemini.Part) (*gemini.GenerateContentResponse, error)
}

// Client wraps the Gemini SDK for single-turn text generation.
type Client struct {
	client  *gemini.Client
	modelID string

	// newModel builds the model for one call; replaced in tests.
	newModel func(systemPrompt string) generativeModel
}

// NewClient initializes a Gemini client. The API key is taken from the
// options or the GEMINI_API_KEY environment variable.
func NewClient(ctx context.Context, opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}

	cli, err := gemini.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	c := &Client{client: cli, modelID: cfg.Model}
	c.newModel = func(systemPrompt string) generativeModel {
		m := cli.GenerativeModel(c.modelID)
		if systemPrompt != "" {
			m.SystemInstruction = gemini.NewUserContent(gemini.Text(systemPrompt))
		}
		return m
	}
	slog.Debug("genai.NewClient: gemini client created", "model", cfg.Model)
	return c, nil
}

// Close releases the underlying SDK connection.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// GenerateText sends one prompt and returns the trimmed reply text.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, "", prompt)
}

// GenerateWithSystem sends a system instruction plus a user prompt.
func (c *Client) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.generate(ctx, systemPrompt, userPrompt)
}

func (c *Client) generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	model := c.newModel(systemPrompt)
	resp, err := model.GenerateContent(ctx, gemini.Text(userPrompt))
	if err != nil {
		slog.Error("genai.Client.generate: gemini call failed", "error", err, "model", c.modelID)
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	text, err := extractText(resp)
	if err != nil {
		slog.Error("genai.Client.generate: empty gemini response", "error", err, "model", c.modelID)
		return "", err
	}
	slog.Debug("genai.Client.generate: succeeded", "model", c.modelID, "reply_length", len(text))
	return text, nil
}

// extractText concatenates the text parts of the first candidate.
func extractText(resp *gemini.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", fmt.Errorf("candidate has no content")
	}
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(gemini.Text); ok {
			b.WriteString(string(t))
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", fmt.Errorf("candidate has no text parts")
	}
	return out, nil
}
