// Package reviews looks up online review snippets for a store name.
//
// The lookup is a black-box collaborator: the style generator only needs
// some text to enrich its prompt, and an empty string is always an
// acceptable answer. Failures are logged and swallowed here.
package reviews

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	// maxSnippetLength caps how much review text is fed into the prompt.
	maxSnippetLength = 4000
)

// Source supplies review text for a store, or "" when nothing is known.
type Source interface {
	FindComments(ctx context.Context, storeName string) string
}

// HTTPSource queries a review endpoint with the store name and returns
// the response body as prompt material.
type HTTPSource struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPSource creates a review source for the given endpoint. The store
// name is passed as the "store" query parameter.
func NewHTTPSource(endpoint string) *HTTPSource {
	return &HTTPSource{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// FindComments fetches review text for the store. Any failure returns "".
func (s *HTTPSource) FindComments(ctx context.Context, storeName string) string {
	u := fmt.Sprintf("%s?store=%s", s.endpoint, url.QueryEscape(storeName))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		slog.Warn("HTTPSource.FindComments: building request failed", "error", err, "store", storeName)
		return ""
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Warn("HTTPSource.FindComments: request failed", "error", err, "store", storeName)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("HTTPSource.FindComments: unexpected status", "status", resp.StatusCode, "store", storeName)
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSnippetLength))
	if err != nil {
		slog.Warn("HTTPSource.FindComments: reading body failed", "error", err, "store", storeName)
		return ""
	}

	text := strings.TrimSpace(string(body))
	slog.Debug("HTTPSource.FindComments: fetched reviews", "store", storeName, "length", len(text))
	return text
}

// Disabled is a Source that never finds anything, used when no review
// endpoint is configured.
type Disabled struct{}

// FindComments always returns "".
func (Disabled) FindComments(ctx context.Context, storeName string) string { return "" }
