package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrNoChoicesReturned indicates the completion API returned an empty
// choice list.
var ErrNoChoicesReturned = errors.New("no choices returned")

// chatService defines the minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// openaiChat adapts the SDK's completion service to chatService.
type openaiChat struct {
	svc openai.ChatCompletionService
}

func (c openaiChat) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := c.svc.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// OpenAIClient implements ClientInterface on the OpenAI chat completion
// API. It exists for deployments without Gemini access.
type OpenAIClient struct {
	chat  chatService
	model openai.ChatModel
}

// NewOpenAIClient initializes an OpenAI-backed client. The API key is
// taken from the options or the OPENAI_API_KEY environment variable.
func NewOpenAIClient(opts ...Option) (*OpenAIClient, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	model := openai.ChatModelGPT4oMini
	if cfg.Model != "" {
		model = openai.ChatModel(cfg.Model)
	}

	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	slog.Debug("genai.NewOpenAIClient: client created", "model", model)
	return &OpenAIClient{chat: openaiChat{svc: cli.Chat.Completions}, model: model}, nil
}

// GenerateText sends one prompt and returns the trimmed reply text.
func (c *OpenAIClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	return c.GenerateWithSystem(ctx, "", prompt)
}

// GenerateWithSystem sends a system instruction plus a user prompt.
func (c *OpenAIClient) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(userPrompt))

	resp, err := c.chat.Create(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		slog.Error("genai.OpenAIClient: completion failed", "error", err, "model", c.model)
		return "", fmt.Errorf("openai generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoicesReturned
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
