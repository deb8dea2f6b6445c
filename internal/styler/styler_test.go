package styler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ReelBites/ReelBites/internal/replies"
	"github.com/ReelBites/ReelBites/internal/reviews"
)

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

type fixedReviews struct{ text string }

func (f fixedReviews) FindComments(ctx context.Context, storeName string) string { return f.text }

func catalog(t *testing.T) *replies.Catalog {
	t.Helper()
	c, err := replies.Load("")
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestGenerateSuccess(t *testing.T) {
	stub := &stubClient{reply: "a meme-styled intro"}
	g := New(stub, catalog(t), fixedReviews{text: "queue is long but worth it"})

	out, err := g.Generate(context.Background(), "鼎泰豐", "xiaolongbao heaven", "meme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "a meme-styled intro" {
		t.Errorf("unexpected output %q", out)
	}
	for _, want := range []string{"xiaolongbao heaven", "queue is long but worth it", "General rules"} {
		if !strings.Contains(stub.last, want) {
			t.Errorf("expected prompt to contain %q", want)
		}
	}
}

func TestGenerateUnknownToneRejected(t *testing.T) {
	stub := &stubClient{reply: "should not be called"}
	g := New(stub, catalog(t), reviews.Disabled{})

	out, err := g.Generate(context.Background(), "store", "caption", "operatic")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "'operatic'") {
		t.Errorf("expected user-facing rejection naming the tone, got %q", out)
	}
	if stub.last != "" {
		t.Error("model must not be called for an unknown tone")
	}
}

func TestGenerateModelErrorSurfaces(t *testing.T) {
	g := New(&stubClient{err: errors.New("deadline")}, catalog(t), reviews.Disabled{})
	if _, err := g.Generate(context.Background(), "store", "caption", "basic"); err == nil {
		t.Error("expected model failure to surface as error")
	}
}

func TestPromptDirOverride(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "meme.txt"), []byte("OVERRIDE TEMPLATE"), 0644); err != nil {
		t.Fatal(err)
	}
	stub := &stubClient{reply: "ok"}
	g := New(stub, catalog(t), reviews.Disabled{}, WithPromptDir(dir))

	if _, err := g.Generate(context.Background(), "store", "caption", "meme"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stub.last, "OVERRIDE TEMPLATE") {
		t.Error("expected override template to be used")
	}
	// Tones without an override fall back to the embedded copy.
	if _, err := g.Generate(context.Background(), "store", "caption", "short"); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(stub.last, "OVERRIDE TEMPLATE") {
		t.Error("expected embedded template for tones without override")
	}
}

func TestIsQuotaExceeded(t *testing.T) {
	if !IsQuotaExceeded("抱歉，請求次數已超過今日上限") {
		t.Error("expected quota phrase to be detected")
	}
	if IsQuotaExceeded("normal styled reply") {
		t.Error("expected normal reply not to match")
	}
}

func TestAllCatalogTonesHaveTemplates(t *testing.T) {
	g := New(&stubClient{reply: "ok"}, catalog(t), reviews.Disabled{})
	for _, tone := range catalog(t).ToneTokens() {
		if _, err := g.loadPrompt(tone); err != nil {
			t.Errorf("tone %q has no prompt template: %v", tone, err)
		}
	}
}
