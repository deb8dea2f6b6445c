package messaging

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ReelBites/ReelBites/internal/models"
)

// DefaultCaption replaces an empty or missing reel caption so the
// classifier always has something to look at.
const DefaultCaption = "(沒有標題)"

// WebhookEvent is the top-level payload Meta POSTs to the webhook.
type WebhookEvent struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry groups messaging events for one page.
type Entry struct {
	ID        string      `json:"id"`
	Time      int64       `json:"time"`
	Messaging []Messaging `json:"messaging"`
}

// Messaging is a single sender-to-page event.
type Messaging struct {
	Sender    Participant `json:"sender"`
	Recipient Participant `json:"recipient"`
	Timestamp int64       `json:"timestamp"`
	Message   *Message    `json:"message,omitempty"`
}

// Participant identifies a messaging endpoint.
type Participant struct {
	ID string `json:"id"`
}

// Message is the message body of a Messaging event.
type Message struct {
	MID         string       `json:"mid"`
	Text        string       `json:"text,omitempty"`
	IsEcho      bool         `json:"is_echo,omitempty"`
	QuickReply  *QuickReply  `json:"quick_reply,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// QuickReply carries the payload of a tapped quick-reply button.
type QuickReply struct {
	Payload string `json:"payload"`
}

// Attachment is a media attachment on an inbound message.
type Attachment struct {
	Type    string            `json:"type"`
	Payload AttachmentPayload `json:"payload"`
}

// AttachmentPayload holds attachment details. For shared reels the
// Title field carries the reel caption.
type AttachmentPayload struct {
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
}

// ParseWebhookEvent decodes a raw webhook body.
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("failed to parse webhook payload: %w", err)
	}
	return &event, nil
}

// Events flattens a webhook payload into inbound events, skipping
// echoes of the page's own outbound messages.
func (e *WebhookEvent) Events() []models.InboundEvent {
	var events []models.InboundEvent
	for _, entry := range e.Entry {
		for _, msg := range entry.Messaging {
			if msg.Message == nil || msg.Message.IsEcho {
				continue
			}
			events = append(events, classify(msg))
		}
	}
	return events
}

func classify(msg Messaging) models.InboundEvent {
	event := models.InboundEvent{
		SenderID:  msg.Sender.ID,
		Timestamp: msg.Timestamp,
	}

	m := msg.Message
	switch {
	case m.QuickReply != nil:
		event.Kind = models.EventQuickReply
		event.Payload = m.QuickReply.Payload
	case len(m.Attachments) > 0:
		att := m.Attachments[0]
		if att.Type == "ig_reel" {
			event.Kind = models.EventReel
			event.Caption = strings.TrimSpace(att.Payload.Title)
			if event.Caption == "" {
				event.Caption = DefaultCaption
			}
		} else {
			event.Kind = models.EventAttachment
		}
	case m.Text != "":
		event.Kind = models.EventText
		event.Text = m.Text
	default:
		event.Kind = models.EventUnknown
		slog.Debug("WebhookEvent.Events: unrecognized message shape", "sender", msg.Sender.ID, "mid", m.MID)
	}
	return event
}

// VerifySignature checks the X-Hub-Signature-256 header against the
// request body using the app secret. An empty secret disables
// verification.
func VerifySignature(appSecret string, body []byte, signatureHeader string) bool {
	if appSecret == "" {
		return true
	}
	const prefix = "sha256="
	if !strings.HasPrefix(signatureHeader, prefix) {
		return false
	}
	expected, err := hex.DecodeString(strings.TrimPrefix(signatureHeader, prefix))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}
