// Package styler generates the final stylized restaurant introduction.
//
// Each tone token selects a prompt template; the chosen template is
// combined with the Reel caption and a best-effort review lookup, then
// sent through the generative client. The tone set is closed: an unknown
// token yields a user-facing explanation, never a silent failure.
package styler

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ReelBites/ReelBites/internal/genai"
	"github.com/ReelBites/ReelBites/internal/replies"
	"github.com/ReelBites/ReelBites/internal/reviews"
)

// QuotaExceededPhrase marks a generation reply that is actually a
// rate-limit notice from the service. Such replies are forwarded to the
// user verbatim instead of being retried.
const QuotaExceededPhrase = "請求次數已超過"

// commonPromptName is the template appended to every tone prompt.
const commonPromptName = "COMMON_PROMPT"

//go:embed prompts/*.txt
var promptFS embed.FS

// Generator produces stylized introductions.
type Generator struct {
	client  genai.ClientInterface
	catalog *replies.Catalog
	reviews reviews.Source
	// promptDir optionally overrides the embedded templates.
	promptDir string
}

// Option configures a Generator.
type Option func(*Generator)

// WithPromptDir makes the generator read tone templates from dir instead
// of the embedded defaults. Missing files fall back to the embedded copy.
func WithPromptDir(dir string) Option {
	return func(g *Generator) { g.promptDir = dir }
}

// New creates a Generator. The catalog supplies the closed tone set; the
// review source may be reviews.Disabled{}.
func New(client genai.ClientInterface, catalog *replies.Catalog, src reviews.Source, opts ...Option) *Generator {
	g := &Generator{client: client, catalog: catalog, reviews: src}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// IsQuotaExceeded reports whether a generated reply is a rate-limit
// notice that should be forwarded without the usual follow-ups.
func IsQuotaExceeded(reply string) bool {
	return strings.Contains(reply, QuotaExceededPhrase)
}

// Generate produces the introduction for a confirmed store in the chosen
// tone. An unknown tone returns a user-facing rejection string with a nil
// error; only transport/model failures surface as errors.
func (g *Generator) Generate(ctx context.Context, storeName, caption, tone string) (string, error) {
	if !g.catalog.IsValidTone(tone) {
		slog.Warn("Generator.Generate: unknown tone requested", "tone", tone)
		return fmt.Sprintf("⚠️ Unable to find the prompt for '%s' style. Please choose another tone.", tone), nil
	}

	tonePrompt, err := g.loadPrompt(tone)
	if err != nil {
		slog.Error("Generator.Generate: tone template missing", "error", err, "tone", tone)
		return fmt.Sprintf("⚠️ Unable to find the prompt for '%s' style. Please choose another tone.", tone), nil
	}
	commonPrompt, err := g.loadPrompt(commonPromptName)
	if err != nil {
		slog.Warn("Generator.Generate: common template missing", "error", err)
		commonPrompt = ""
	}

	comments := g.reviews.FindComments(ctx, storeName)
	prompt := fmt.Sprintf("%s\n\nIntroduce this restaurant: %s\nHere are some reviews found online that you may refer to: %s%s",
		tonePrompt, caption, comments, commonPrompt)

	slog.Debug("Generator.Generate: calling model", "store", storeName, "tone", tone, "has_reviews", comments != "")
	styled, err := g.client.GenerateText(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("style generation for %s failed: %w", storeName, err)
	}
	slog.Info("Generator.Generate: styled introduction produced", "store", storeName, "tone", tone, "length", len(styled))
	return styled, nil
}

// loadPrompt reads a template by name, preferring the override directory.
func (g *Generator) loadPrompt(name string) (string, error) {
	if g.promptDir != "" {
		path := filepath.Join(g.promptDir, name+".txt")
		if b, err := os.ReadFile(path); err == nil {
			return string(b), nil
		}
	}
	b, err := promptFS.ReadFile("prompts/" + name + ".txt")
	if err != nil {
		return "", fmt.Errorf("prompt template %s not found: %w", name, err)
	}
	return string(b), nil
}
