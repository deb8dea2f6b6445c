// Package messaging handles both directions of the Instagram DM channel:
// sending messages through the Meta Graph API and parsing inbound webhook
// payloads into flow events.
package messaging

import (
	"context"

	"github.com/ReelBites/ReelBites/internal/models"
)

// Sender is the outbound message delivery abstraction the flow engine
// depends on.
type Sender interface {
	// SendMessage sends a plain text message to a recipient.
	SendMessage(ctx context.Context, to, body string) error

	// SendQuickReplies sends a text message with an ordered list of
	// quick-reply buttons.
	SendQuickReplies(ctx context.Context, to, body string, options []models.QuickReply) error
}
