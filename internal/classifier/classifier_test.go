package classifier

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// stubClient implements genai.ClientInterface with canned replies.
type stubClient struct {
	reply string
	err   error
	last  string
}

func (s *stubClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	s.last = prompt
	return s.reply, s.err
}

func (s *stubClient) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return s.GenerateText(ctx, userPrompt)
}

func TestIsFoodRelatedYes(t *testing.T) {
	c := New(&stubClient{reply: "Yes"})
	if !c.IsFoodRelated(context.Background(), "鼎泰豐 101店 好吃") {
		t.Error("expected Yes verdict to classify as food")
	}
}

func TestIsFoodRelatedNo(t *testing.T) {
	c := New(&stubClient{reply: "No"})
	if c.IsFoodRelated(context.Background(), "how to fix a bike") {
		t.Error("expected No verdict to classify as not food")
	}
}

func TestIsFoodRelatedStripsFullwidthPeriod(t *testing.T) {
	c := New(&stubClient{reply: "Yes。"})
	if !c.IsFoodRelated(context.Background(), "caption") {
		t.Error("expected trailing 。 to be stripped before comparison")
	}
}

func TestIsFoodRelatedErrorDegradesToNotFood(t *testing.T) {
	c := New(&stubClient{err: errors.New("quota exhausted")})
	if c.IsFoodRelated(context.Background(), "caption") {
		t.Error("expected model failure to degrade to not-food")
	}
}

func TestPromptContainsCaption(t *testing.T) {
	stub := &stubClient{reply: "No"}
	c := New(stub)
	c.IsFoodRelated(context.Background(), "CAPTION_MARKER")
	if !strings.Contains(stub.last, "CAPTION_MARKER") {
		t.Error("expected caption to be embedded in the prompt")
	}
	if !strings.Contains(stub.last, "store names, phone numbers, business hours") {
		t.Error("expected the recall-override rule to stay in the prompt")
	}
}
