// Package models defines the core data structures for ReelBites.
//
// It includes the per-user session record, inbound webhook events, the
// quick-reply token vocabulary, and the typed location-resolution result,
// which are shared across modules.
package models

import (
	"errors"
	"fmt"
	"time"
)

// Quick-reply payload tokens. These form a closed vocabulary: the webhook
// only ever echoes back tokens that we previously attached to a message.
const (
	PayloadYes         = "YES"
	PayloadNo          = "NO"
	PayloadEndDialog   = "WANT_TO_END_DIALOG"
	PayloadChangeTone  = "WANT_TO_CHANGE_TONE"
	PayloadForceFood   = "FORCE_TREAT_AS_FOOD"
	PayloadTryLocation = "TRY_AGAIN_LOCATION"
)

// Retry limits for the location sub-flow.
const (
	// MaxLocationRetries saturates the explicit try-again loop: once the
	// counter reaches this value the sub-flow terminates instead of
	// issuing another resolver call.
	MaxLocationRetries = 2
	// MaxConfirmRetries bounds the NO/re-resolve loop that runs inside the
	// readiness check after a store was proposed.
	MaxConfirmRetries = 3
)

// Error variables shared across modules.
var (
	ErrEmptyUserID    = errors.New("user id cannot be empty")
	ErrSessionMissing = errors.New("no session for user")
)

// Session is the per-user conversation state. It is owned exclusively by
// the flow engine and mutated only while the user's lock is held.
type Session struct {
	UserID             string    `json:"user_id"`
	ReelsContent       string    `json:"reels_content"`
	StoreName          string    `json:"store_name"`
	Tone               string    `json:"tone"`
	LocationRetryCount int       `json:"location_retry_count"`
	IsToneSelected     bool      `json:"is_tone_selected"`
	HasReel            bool      `json:"has_reel"`
	IsStoreConfirmed   bool      `json:"is_store_confirmed"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// NewSession creates a session for a user whose first inbound event is a
// Reel. Sessions are only ever created on reel receipt, so HasReel starts
// true.
func NewSession(userID, caption string) Session {
	now := time.Now()
	return Session{
		UserID:       userID,
		ReelsContent: caption,
		HasReel:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ApplyReel overwrites the session with a fresh Reel. A new Reel restarts
// the whole analysis workflow, but the tone choice survives: the user
// changes it deliberately or not at all.
func (s *Session) ApplyReel(caption string) {
	s.ReelsContent = caption
	s.StoreName = ""
	s.LocationRetryCount = 0
	s.HasReel = true
	s.IsStoreConfirmed = false
	s.UpdatedAt = time.Now()
}

// SoftReset clears the conversation content while keeping the record and
// the tone choice. This is what "end conversation" does.
func (s *Session) SoftReset() {
	s.ReelsContent = ""
	s.StoreName = ""
	s.LocationRetryCount = 0
	s.HasReel = false
	s.IsStoreConfirmed = false
	s.UpdatedAt = time.Now()
}

// ReadyToGenerate reports whether final style generation may be triggered.
func (s *Session) ReadyToGenerate() bool {
	return s.HasReel && s.IsToneSelected && s.IsStoreConfirmed
}

// Validate checks the session invariants. It is used by the stores before
// persisting and by tests.
func (s *Session) Validate() error {
	if s.UserID == "" {
		return ErrEmptyUserID
	}
	if !s.HasReel && (s.ReelsContent != "" || s.StoreName != "" || s.IsStoreConfirmed) {
		return fmt.Errorf("session %s: content fields set without an active reel", s.UserID)
	}
	if s.LocationRetryCount < 0 {
		return fmt.Errorf("session %s: negative retry count", s.UserID)
	}
	return nil
}

// StateType names a reachable position in the conversation workflow. The
// state is derived from the session record rather than stored, so it can
// never disagree with the flags that drive the transitions.
type StateType string

const (
	// StateIdle means no active Reel; the next reel starts a new cycle.
	StateIdle StateType = "IDLE"
	// StateAwaitingLocation means a Reel is held but no store has been
	// proposed yet (includes the not-food override wait).
	StateAwaitingLocation StateType = "AWAITING_LOCATION"
	// StateAwaitingConfirmation means a store was proposed and the user
	// has not confirmed it.
	StateAwaitingConfirmation StateType = "AWAITING_LOCATION_CONFIRMATION"
	// StateAwaitingTone means a Reel is held but the tone choice is still
	// pending.
	StateAwaitingTone StateType = "AWAITING_TONE"
	// StateReadyToGenerate means all three generation conditions hold
	// simultaneously.
	StateReadyToGenerate StateType = "READY_TO_GENERATE"
)

// State derives the current workflow state from the session flags.
func (s *Session) State() StateType {
	switch {
	case !s.HasReel:
		return StateIdle
	case s.ReadyToGenerate():
		return StateReadyToGenerate
	case !s.IsToneSelected:
		return StateAwaitingTone
	case s.StoreName == "":
		return StateAwaitingLocation
	default:
		return StateAwaitingConfirmation
	}
}

// EventKind classifies an inbound webhook delivery.
type EventKind string

const (
	// EventReel is an ig_reel attachment with its caption text.
	EventReel EventKind = "reel"
	// EventAttachment is any non-reel attachment (posts, images, ...).
	EventAttachment EventKind = "attachment"
	// EventQuickReply is a tapped quick-reply button echoing its payload.
	EventQuickReply EventKind = "quick_reply"
	// EventText is plain text typed by the user.
	EventText EventKind = "text"
	// EventUnknown is any message shape we do not recognize.
	EventUnknown EventKind = "unknown"
)

// InboundEvent is one parsed messaging event, ready for the flow engine.
type InboundEvent struct {
	SenderID  string
	Kind      EventKind
	Caption   string // reel caption, set for EventReel
	Payload   string // quick-reply token, set for EventQuickReply
	Text      string // message text, set for EventText
	Timestamp int64
}

// LocationResult is the typed outcome of a location resolution. The
// ad-hoc text parsing stays inside the resolver; the engine only ever
// sees this struct.
type LocationResult struct {
	Found     bool
	StoreName string
	Address   string
}

// ConfirmationMessage renders the user-facing confirmation question for a
// found location.
func (r LocationResult) ConfirmationMessage() string {
	addr := r.Address
	if addr == "" {
		addr = "未提供詳細地址"
	}
	return fmt.Sprintf("📍 Name: %s\n🗺️ Address: %s\n\nIs this the location you were looking for?", r.StoreName, addr)
}

// QuickReply is one button attached to an outbound message: a display
// label and the opaque payload echoed back on selection.
type QuickReply struct {
	Title   string `json:"title"`
	Payload string `json:"payload"`
}
