package genai

import (
	"context"
	"errors"
	"strings"
	"testing"

	gemini "github.com/google/generative-ai-go/genai"
	"github.com/openai/openai-go"
)

// mockModel implements generativeModel for testing.
type mockModel struct {
	resp *gemini.GenerateContentResponse
	err  error
}

func (m *mockModel) GenerateContent(ctx context.Context, parts ...gemini.Part) (*gemini.GenerateContentResponse, error) {
	return m.resp, m.err
}

func textResponse(text string) *gemini.GenerateContentResponse {
	return &gemini.GenerateContentResponse{
		Candidates: []*gemini.Candidate{
			{Content: &gemini.Content{Parts: []gemini.Part{gemini.Text(text)}}},
		},
	}
}

func newTestClient(m generativeModel) *Client {
	c := &Client{modelID: DefaultGeminiModel}
	c.newModel = func(systemPrompt string) generativeModel { return m }
	return c
}

func TestGenerateText_Success(t *testing.T) {
	c := newTestClient(&mockModel{resp: textResponse("  Hello World \n")})
	out, err := c.GenerateText(context.Background(), "hi")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "Hello World" {
		t.Errorf("expected trimmed 'Hello World', got %q", out)
	}
}

func TestGenerateText_ServiceError(t *testing.T) {
	c := newTestClient(&mockModel{err: errors.New("service failure")})
	_, err := c.GenerateText(context.Background(), "hi")
	if err == nil || !strings.Contains(err.Error(), "service failure") {
		t.Errorf("expected service failure error, got %v", err)
	}
}

func TestGenerateText_NoCandidates(t *testing.T) {
	c := newTestClient(&mockModel{resp: &gemini.GenerateContentResponse{}})
	if _, err := c.GenerateText(context.Background(), "hi"); err == nil {
		t.Error("expected error for empty candidate list")
	}
}

func TestGenerateText_NoTextParts(t *testing.T) {
	resp := &gemini.GenerateContentResponse{
		Candidates: []*gemini.Candidate{{Content: &gemini.Content{Parts: []gemini.Part{}}}},
	}
	c := newTestClient(&mockModel{resp: resp})
	if _, err := c.GenerateText(context.Background(), "hi"); err == nil {
		t.Error("expected error for candidate without text parts")
	}
}

func TestNewClient_NoKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	if _, err := NewClient(context.Background()); err == nil {
		t.Error("expected error when API key not provided, got nil")
	}
}

// mockChatService implements chatService for testing the OpenAI client.
type mockChatService struct {
	resp openai.ChatCompletion
	err  error
}

func (m *mockChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	return m.resp, m.err
}

func TestOpenAIGenerate_Success(t *testing.T) {
	mockResp := openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: "Styled text"}},
		},
	}
	c := &OpenAIClient{chat: &mockChatService{resp: mockResp}, model: openai.ChatModelGPT4oMini}
	out, err := c.GenerateWithSystem(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "Styled text" {
		t.Errorf("expected 'Styled text', got %q", out)
	}
}

func TestOpenAIGenerate_NoChoices(t *testing.T) {
	c := &OpenAIClient{chat: &mockChatService{resp: openai.ChatCompletion{}}, model: openai.ChatModelGPT4oMini}
	if _, err := c.GenerateText(context.Background(), "hi"); err != ErrNoChoicesReturned {
		t.Errorf("expected ErrNoChoicesReturned, got %v", err)
	}
}

func TestNewOpenAIClient_NoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewOpenAIClient(); err == nil {
		t.Error("expected error when API key not provided, got nil")
	}
}
