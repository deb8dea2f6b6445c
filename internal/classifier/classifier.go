// Package classifier decides whether a Reel caption is food-related.
//
// It wraps a single generative-language call behind a boolean answer. The
// prompt deliberately favors recall toward "food" when store-identifying
// signals are present (shop names, hours, phone numbers), even if the
// initial judgment leaned "not food".
package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ReelBites/ReelBites/internal/genai"
)

const foodPrompt = `You are a classifier specialized in detecting whether a text is related to food-related content.

Please determine whether the following text is NOT related to “food recommendations or introductions.”

If you detect that more than 70%% of the content is not related to food recommendations or introductions, reply “No.”

Your task is to judge whether this text was written by a food blogger sharing or introducing food.

If the content includes phrases about DIY tutorials or how to make something, reply “No.”

If the content includes memes, entertainment, or similar elements, reply “No.”

If the content includes store names, phone numbers, business hours, or phrases like “XX shop,”
and if your initial judgment was “No,” change your answer to “Yes.”

Please reply with only “Yes” or “No,” without adding any additional text.

Below is the text:
%s`

// Classifier labels captions as food-related or not.
type Classifier struct {
	client genai.ClientInterface
}

// New creates a Classifier on the given generative client.
func New(client genai.ClientInterface) *Classifier {
	return &Classifier{client: client}
}

// IsFoodRelated reports whether the caption reads like a food share.
// Any model failure degrades to "not food": the user keeps the
// FORCE_TREAT_AS_FOOD override, while a false positive would spend a
// resolver call on garbage.
func (c *Classifier) IsFoodRelated(ctx context.Context, caption string) bool {
	slog.Debug("Classifier.IsFoodRelated: calling model", "caption_length", len(caption))
	reply, err := c.client.GenerateText(ctx, fmt.Sprintf(foodPrompt, caption))
	if err != nil {
		slog.Warn("Classifier.IsFoodRelated: model call failed, treating as not food", "error", err)
		return false
	}
	verdict := strings.TrimSpace(strings.ReplaceAll(reply, "。", ""))
	slog.Debug("Classifier.IsFoodRelated: verdict", "verdict", verdict)
	return verdict == "Yes"
}
