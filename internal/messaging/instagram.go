package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ReelBites/ReelBites/internal/models"
)

const (
	defaultGraphAPIBase = "https://graph.facebook.com/v21.0"
	defaultHTTPTimeout  = 30 * time.Second

	// MaxMessageLength is the transport cap on outbound text. Longer
	// bodies are truncated with truncationMarker appended.
	MaxMessageLength = 1900
	truncationMarker = "...（訊息過長已截斷）"
)

// InstagramService sends messages through the Meta Graph API.
type InstagramService struct {
	accessToken  string
	graphAPIBase string
	httpClient   *http.Client
}

// Option configures an InstagramService.
type Option func(*InstagramService)

// WithAccessToken sets the page access token.
func WithAccessToken(token string) Option {
	return func(s *InstagramService) { s.accessToken = token }
}

// WithGraphAPIBase overrides the Graph API base URL (used in tests).
func WithGraphAPIBase(base string) Option {
	return func(s *InstagramService) { s.graphAPIBase = base }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *InstagramService) { s.httpClient = c }
}

// NewInstagramService creates a Graph API sender.
func NewInstagramService(opts ...Option) (*InstagramService, error) {
	s := &InstagramService{
		graphAPIBase: defaultGraphAPIBase,
		httpClient:   &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.accessToken == "" {
		return nil, fmt.Errorf("page access token not set")
	}
	return s, nil
}

// sendRequest is the Graph API me/messages payload.
type sendRequest struct {
	Recipient     sendRecipient `json:"recipient"`
	Message       sendMessage   `json:"message"`
	MessagingType string        `json:"messaging_type"`
}

type sendRecipient struct {
	ID string `json:"id"`
}

type sendMessage struct {
	Text         string             `json:"text"`
	QuickReplies []quickReplyButton `json:"quick_replies,omitempty"`
}

type quickReplyButton struct {
	ContentType string `json:"content_type"`
	Title       string `json:"title"`
	Payload     string `json:"payload"`
}

// sendError is the error object Meta returns on failed sends.
type sendError struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	FBTraceID string `json:"fbtrace_id"`
}

type sendResponse struct {
	RecipientID string     `json:"recipient_id"`
	MessageID   string     `json:"message_id"`
	Error       *sendError `json:"error,omitempty"`
}

// SendMessage sends a plain text message.
func (s *InstagramService) SendMessage(ctx context.Context, to, body string) error {
	req := sendRequest{
		Recipient:     sendRecipient{ID: to},
		Message:       sendMessage{Text: Truncate(body)},
		MessagingType: "UPDATE",
	}
	return s.send(ctx, req)
}

// SendQuickReplies sends a text message with quick-reply buttons.
func (s *InstagramService) SendQuickReplies(ctx context.Context, to, body string, options []models.QuickReply) error {
	buttons := make([]quickReplyButton, 0, len(options))
	for _, opt := range options {
		buttons = append(buttons, quickReplyButton{
			ContentType: "text",
			Title:       opt.Title,
			Payload:     opt.Payload,
		})
	}
	req := sendRequest{
		Recipient:     sendRecipient{ID: to},
		Message:       sendMessage{Text: Truncate(body), QuickReplies: buttons},
		MessagingType: "RESPONSE",
	}
	return s.send(ctx, req)
}

func (s *InstagramService) send(ctx context.Context, req sendRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal send request: %w", err)
	}

	url := fmt.Sprintf("%s/me/messages?access_token=%s", s.graphAPIBase, s.accessToken)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create send request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read send response: %w", err)
	}

	var sendResp sendResponse
	if err := json.Unmarshal(respBody, &sendResp); err != nil {
		return fmt.Errorf("failed to parse send response: %w", err)
	}
	if sendResp.Error != nil {
		slog.Error("InstagramService.send: API error", "code", sendResp.Error.Code, "message", sendResp.Error.Message, "to", req.Recipient.ID)
		return fmt.Errorf("graph API error %d: %s", sendResp.Error.Code, sendResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from graph API", resp.StatusCode)
	}

	slog.Debug("InstagramService.send: message sent", "to", req.Recipient.ID, "message_id", sendResp.MessageID)
	return nil
}

// Truncate caps text at MaxMessageLength characters, appending the
// truncation marker when it cuts. Counting is rune-based so multibyte
// captions are not split mid-character.
func Truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxMessageLength {
		return text
	}
	return string(runes[:MaxMessageLength]) + truncationMarker
}
