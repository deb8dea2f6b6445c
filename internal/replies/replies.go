// Package replies provides the reply catalog: the mapping from symbolic
// tokens to user-facing display labels, split into valid tone choices and
// valid quick-action choices.
//
// The catalog is external data loaded once at startup. A default catalog
// is embedded so the service starts without any file on disk.
package replies

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"

	_ "embed"
)

// PlaceholderLabel is substituted when a token has no catalog entry.
// An unknown token is an operator error (a payload we attached without a
// label), so the lookup logs it instead of failing the send.
const PlaceholderLabel = "❓ Unknown message type."

//go:embed replies.json
var defaultCatalog []byte

// Catalog maps tokens to display labels. The two sub-maps are disjoint by
// construction of the catalog file.
type Catalog struct {
	tones    map[string]string
	responds map[string]string
}

type catalogFile struct {
	ValidTones    map[string]string `json:"VALID_TONES"`
	ValidResponds map[string]string `json:"VALID_RESPONDS"`
}

// Load reads the catalog from path. An empty path loads the embedded
// default catalog.
func Load(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read reply catalog %s: %w", path, err)
		}
		data = b
	}

	var f catalogFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse reply catalog: %w", err)
	}
	if len(f.ValidTones) == 0 {
		return nil, fmt.Errorf("reply catalog has no tone entries")
	}

	slog.Debug("Catalog loaded", "tones", len(f.ValidTones), "responds", len(f.ValidResponds), "path", path)
	return &Catalog{tones: f.ValidTones, responds: f.ValidResponds}, nil
}

// Label returns the display label for a token from either sub-map.
// Unknown tokens are logged and replaced by PlaceholderLabel.
func (c *Catalog) Label(token string) string {
	if label, ok := c.tones[token]; ok {
		return label
	}
	if label, ok := c.responds[token]; ok {
		return label
	}
	slog.Error("Catalog token not found", "token", token)
	return PlaceholderLabel
}

// IsValidTone reports whether token is a recognized tone choice.
func (c *Catalog) IsValidTone(token string) bool {
	_, ok := c.tones[token]
	return ok
}

// IsValidRespond reports whether token is a recognized quick-action.
func (c *Catalog) IsValidRespond(token string) bool {
	_, ok := c.responds[token]
	return ok
}

// ToneTokens returns the tone tokens in a stable order, for building the
// tone-selection menu deterministically.
func (c *Catalog) ToneTokens() []string {
	tokens := make([]string, 0, len(c.tones))
	for t := range c.tones {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return tokens
}
