// Package flow implements the per-user conversation state machine.
//
// The engine consumes one inbound event at a time, consults and updates
// that user's session under a per-user lock, and emits the outbound
// messages for the transition. All external calls (classifier, resolver,
// generator) are synchronous and awaited before the reply is sent.
//
// The flow is reentrant per step: every branch that needs both the tone
// and a confirmed location re-checks both after any relevant update, so
// whichever piece arrives last triggers generation. There is no separate
// "waiting for the other one" state.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ReelBites/ReelBites/internal/messaging"
	"github.com/ReelBites/ReelBites/internal/models"
	"github.com/ReelBites/ReelBites/internal/replies"
	"github.com/ReelBites/ReelBites/internal/store"
	"github.com/ReelBites/ReelBites/internal/styler"
)

// User-facing message copy. Kept as constants so tests can assert on the
// exact text the engine emits.
const (
	msgPlainText    = "Sorry, I only accept Reels content and quick-reply buttons!"
	msgNotReel      = "⚠️Sorry, I’m currently unable to process IG posts or any content that isn’t a Reels～ Please try sending me another piece of content, and I’ll do my best to look it up for you! 📹💬"
	msgUnrecognized = "⚠️ Unrecognized message type"
	msgNoSession    = "Please send me the Reels you want to check so we can start the conversation~"
	msgFarewell     = "Thank you for using this service! Feel free to send me Reels anytime! 🌟"

	msgNotFood = "Sorry 😅！\n\nBased on my initial judgment, this Reels doesn’t seem to be food-related 🍽️, so I’m unable to retrieve store information.\n\nIf this is actually a food-related Reels, please click the button 【This is a food Reels】 and I’ll immediately help you find the store information! 🏃‍♂️💨"

	msgLocationNotFound = "Sorry, I couldn’t find any clear store information😢 If you’d like, I can try analyzing it again."
	msgRetryNotFound    = "Sorry, I couldn’t find any clear store information😢 Do you want me to try analyzing it again?"
	msgConfirmNotFound  = "Sorry, I couldn’t find any clear store information😢\n\nDo you want me to try analyzing it again?"
	msgRetryExhausted   = "Sorry, I still couldn’t extract the location😣\n\nPlease try re-uploading or provide a Reels with clearer details. Thank you!"
	msgConfirmExhausted = "Sorry, I couldn’t extract the location. Please try re-uploading or provide a Reels with more detailed information. Thank you!"
	msgGenerateFailed   = "Sorry, something went wrong while generating the introduction😢 Please try again later!"

	msgToneMenuPrefix = "Which tone would you like me to use in future replies 🤖? \n\nPlease choose:"
	msgToneHintFmt    = "📢 If you want to adjust the tone, please click 【%s】! 😊"
	msgEndHintFmt     = "⚠️ If you want to end the conversation, you can click 【%s】"
)

// FoodClassifier labels a caption as food-related or not. Failures
// degrade inside the implementation; the engine only sees the boolean.
type FoodClassifier interface {
	IsFoodRelated(ctx context.Context, caption string) bool
}

// LocationResolver turns a caption into a typed location result.
type LocationResolver interface {
	Resolve(ctx context.Context, caption string) models.LocationResult
}

// StyleGenerator produces the final stylized introduction.
type StyleGenerator interface {
	Generate(ctx context.Context, storeName, caption, tone string) (string, error)
}

// Engine is the conversation state machine. One Engine serves all users;
// per-user mutual exclusion is internal.
type Engine struct {
	store      store.Store
	sender     messaging.Sender
	classifier FoodClassifier
	resolver   LocationResolver
	generator  StyleGenerator
	catalog    *replies.Catalog
	locks      *userLocks
}

// NewEngine wires the state machine to its collaborators.
func NewEngine(st store.Store, sender messaging.Sender, classifier FoodClassifier, resolver LocationResolver, generator StyleGenerator, catalog *replies.Catalog) *Engine {
	return &Engine{
		store:      st,
		sender:     sender,
		classifier: classifier,
		resolver:   resolver,
		generator:  generator,
		catalog:    catalog,
		locks:      newUserLocks(),
	}
}

// HandleEvent applies one inbound event to the sender's session and emits
// the resulting outbound messages. Events for the same user are
// serialized; events for different users proceed in parallel.
func (e *Engine) HandleEvent(ctx context.Context, event models.InboundEvent) error {
	if event.SenderID == "" {
		return models.ErrEmptyUserID
	}
	unlock := e.locks.Acquire(event.SenderID)
	defer unlock()

	slog.Debug("Engine.HandleEvent: dispatching", "user", event.SenderID, "kind", event.Kind)

	switch event.Kind {
	case models.EventReel:
		return e.handleReel(ctx, event.SenderID, event.Caption)
	case models.EventQuickReply:
		return e.handleQuickReply(ctx, event.SenderID, event.Payload)
	case models.EventAttachment:
		return e.sender.SendMessage(ctx, event.SenderID, msgNotReel)
	case models.EventText:
		return e.sender.SendMessage(ctx, event.SenderID, msgPlainText)
	default:
		return e.sender.SendMessage(ctx, event.SenderID, msgUnrecognized)
	}
}

// handleReel runs the reel-received transition: create or reset the
// session, classify the caption, then either ask for the tone, propose a
// location, or offer the not-food override.
func (e *Engine) handleReel(ctx context.Context, userID, caption string) error {
	sess, err := e.loadOrCreate(userID, caption)
	if err != nil {
		return err
	}

	if !e.classifier.IsFoodRelated(ctx, caption) {
		slog.Info("Engine.handleReel: caption classified as not food", "user", userID)
		if err := e.store.SaveSession(*sess); err != nil {
			return fmt.Errorf("failed to save session for %s: %w", userID, err)
		}
		return e.sender.SendQuickReplies(ctx, userID, msgNotFood,
			e.quickReplies(models.PayloadForceFood, models.PayloadEndDialog))
	}

	if err := e.store.SaveSession(*sess); err != nil {
		return fmt.Errorf("failed to save session for %s: %w", userID, err)
	}

	// Tone selection takes priority: a user who never picked a tone gets
	// the menu before any location work. The tone survives previous
	// reels, so returning users go straight to the location proposal.
	if !sess.IsToneSelected {
		return e.sendToneMenu(ctx, sess)
	}
	return e.resolveAndPropose(ctx, sess, msgLocationNotFound)
}

// handleQuickReply dispatches a quick-reply payload from the closed
// vocabulary and then runs the readiness check for the payloads that can
// complete the tone/confirmation pair.
func (e *Engine) handleQuickReply(ctx context.Context, userID, payload string) error {
	sess, err := e.store.GetSession(userID)
	if err != nil {
		return fmt.Errorf("failed to load session for %s: %w", userID, err)
	}
	if sess == nil {
		return e.sender.SendMessage(ctx, userID, msgNoSession)
	}

	switch {
	case payload == models.PayloadEndDialog:
		sess.SoftReset()
		if err := e.store.SaveSession(*sess); err != nil {
			return fmt.Errorf("failed to save session for %s: %w", userID, err)
		}
		return e.sender.SendMessage(ctx, userID, msgFarewell)

	case payload == models.PayloadForceFood:
		return e.resolveAndPropose(ctx, sess, msgLocationNotFound)

	case payload == models.PayloadTryLocation:
		return e.retryLocation(ctx, sess)

	case e.catalog.IsValidTone(payload):
		sess.Tone = payload
		sess.IsToneSelected = true
		slog.Info("Engine.handleQuickReply: tone selected", "user", userID, "tone", payload)

	case payload == models.PayloadChangeTone || !sess.IsToneSelected:
		return e.sendToneMenu(ctx, sess)

	case payload == models.PayloadYes:
		sess.IsStoreConfirmed = true

	case payload == models.PayloadNo:
		sess.IsStoreConfirmed = false
		sess.LocationRetryCount++

	default:
		slog.Warn("Engine.handleQuickReply: unknown payload", "user", userID, "payload", payload)
	}

	return e.checkReadiness(ctx, sess)
}

// retryLocation runs the explicit try-again sub-flow. The counter
// saturates at the configured maximum: the saturating attempt terminates
// the sub-flow instead of issuing another resolver call.
func (e *Engine) retryLocation(ctx context.Context, sess *models.Session) error {
	sess.LocationRetryCount++
	if sess.LocationRetryCount >= models.MaxLocationRetries {
		sess.LocationRetryCount = 0
		if err := e.store.SaveSession(*sess); err != nil {
			return fmt.Errorf("failed to save session for %s: %w", sess.UserID, err)
		}
		slog.Info("Engine.retryLocation: retries exhausted", "user", sess.UserID)
		return e.sender.SendQuickReplies(ctx, sess.UserID, msgRetryExhausted,
			e.quickReplies(models.PayloadEndDialog))
	}
	return e.resolveAndPropose(ctx, sess, msgRetryNotFound)
}

// checkReadiness runs after any update that can complete the tone or the
// confirmation. If both halves hold it triggers generation; if the store
// is still unconfirmed it re-resolves, bounded by the confirm retry cap.
func (e *Engine) checkReadiness(ctx context.Context, sess *models.Session) error {
	if !sess.IsToneSelected || !sess.HasReel {
		if err := e.store.SaveSession(*sess); err != nil {
			return fmt.Errorf("failed to save session for %s: %w", sess.UserID, err)
		}
		return nil
	}

	if sess.IsStoreConfirmed {
		return e.generate(ctx, sess)
	}

	if sess.LocationRetryCount >= models.MaxConfirmRetries {
		sess.LocationRetryCount = 0
		if err := e.store.SaveSession(*sess); err != nil {
			return fmt.Errorf("failed to save session for %s: %w", sess.UserID, err)
		}
		slog.Info("Engine.checkReadiness: confirmation retries exhausted", "user", sess.UserID)
		return e.sender.SendQuickReplies(ctx, sess.UserID, msgConfirmExhausted,
			e.quickReplies(models.PayloadEndDialog))
	}
	return e.resolveAndPropose(ctx, sess, msgConfirmNotFound)
}

// generate invokes the style generator and sends the result plus the two
// follow-up hints. Quota notices from the service are forwarded verbatim
// without the follow-ups.
func (e *Engine) generate(ctx context.Context, sess *models.Session) error {
	styled, err := e.generator.Generate(ctx, sess.StoreName, sess.ReelsContent, sess.Tone)
	if err != nil {
		slog.Error("Engine.generate: generation failed", "error", err, "user", sess.UserID, "store", sess.StoreName)
		if saveErr := e.store.SaveSession(*sess); saveErr != nil {
			return fmt.Errorf("failed to save session for %s: %w", sess.UserID, saveErr)
		}
		return e.sender.SendMessage(ctx, sess.UserID, msgGenerateFailed)
	}

	if styler.IsQuotaExceeded(styled) {
		if err := e.store.SaveSession(*sess); err != nil {
			return fmt.Errorf("failed to save session for %s: %w", sess.UserID, err)
		}
		return e.sender.SendMessage(ctx, sess.UserID, styled)
	}

	sess.LocationRetryCount = 0
	if err := e.store.SaveSession(*sess); err != nil {
		return fmt.Errorf("failed to save session for %s: %w", sess.UserID, err)
	}

	if err := e.sender.SendMessage(ctx, sess.UserID, styled); err != nil {
		return err
	}
	toneHint := fmt.Sprintf(msgToneHintFmt, e.catalog.Label(models.PayloadChangeTone))
	if err := e.sender.SendMessage(ctx, sess.UserID, toneHint); err != nil {
		return err
	}
	endHint := fmt.Sprintf(msgEndHintFmt, e.catalog.Label(models.PayloadEndDialog))
	return e.sender.SendQuickReplies(ctx, sess.UserID, endHint,
		e.quickReplies(models.PayloadChangeTone, models.PayloadEndDialog))
}

// resolveAndPropose runs the location resolver on the stored caption and
// either proposes the found store for confirmation or offers the retry
// menu with notFoundText.
func (e *Engine) resolveAndPropose(ctx context.Context, sess *models.Session, notFoundText string) error {
	result := e.resolver.Resolve(ctx, sess.ReelsContent)
	if !result.Found {
		if err := e.store.SaveSession(*sess); err != nil {
			return fmt.Errorf("failed to save session for %s: %w", sess.UserID, err)
		}
		return e.sender.SendQuickReplies(ctx, sess.UserID, notFoundText,
			e.quickReplies(models.PayloadTryLocation, models.PayloadEndDialog))
	}

	sess.StoreName = result.StoreName
	sess.IsStoreConfirmed = false
	if err := e.store.SaveSession(*sess); err != nil {
		return fmt.Errorf("failed to save session for %s: %w", sess.UserID, err)
	}
	slog.Info("Engine.resolveAndPropose: store proposed", "user", sess.UserID, "store", result.StoreName)
	return e.sender.SendQuickReplies(ctx, sess.UserID, result.ConfirmationMessage(),
		e.quickReplies(models.PayloadYes, models.PayloadNo, models.PayloadEndDialog))
}

// sendToneMenu presents the tone-selection menu. It clears the selected
// flag first so the readiness check cannot fire mid-selection; sending
// the menu twice in a row is safe and changes nothing else.
func (e *Engine) sendToneMenu(ctx context.Context, sess *models.Session) error {
	sess.IsToneSelected = false
	if err := e.store.SaveSession(*sess); err != nil {
		return fmt.Errorf("failed to save session for %s: %w", sess.UserID, err)
	}

	tones := e.catalog.ToneTokens()
	labels := make([]string, 0, len(tones))
	for _, t := range tones {
		labels = append(labels, e.catalog.Label(t))
	}
	menu := msgToneMenuPrefix + strings.Join(labels, "、")
	return e.sender.SendQuickReplies(ctx, sess.UserID, menu,
		e.quickReplies(append(tones, models.PayloadEndDialog)...))
}

// loadOrCreate fetches the user's session and applies the new reel, or
// creates a fresh session when the user is unseen. A new reel restarts
// the analysis workflow but keeps the tone choice.
func (e *Engine) loadOrCreate(userID, caption string) (*models.Session, error) {
	sess, err := e.store.GetSession(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session for %s: %w", userID, err)
	}
	if sess == nil {
		created := models.NewSession(userID, caption)
		slog.Info("Engine.loadOrCreate: new user", "user", userID)
		return &created, nil
	}
	sess.ApplyReel(caption)
	slog.Info("Engine.loadOrCreate: reel replaced", "user", userID)
	return sess, nil
}

// quickReplies builds the button list for a token sequence, looking up
// display labels from the catalog.
func (e *Engine) quickReplies(tokens ...string) []models.QuickReply {
	buttons := make([]models.QuickReply, 0, len(tokens))
	for _, t := range tokens {
		buttons = append(buttons, models.QuickReply{Title: e.catalog.Label(t), Payload: t})
	}
	return buttons
}
