package reviews

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFindCommentsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("store"); got != "鼎泰豐" {
			t.Errorf("expected store query param, got %q", got)
		}
		w.Write([]byte("  great dumplings, long queue  "))
	}))
	defer srv.Close()

	s := NewHTTPSource(srv.URL)
	got := s.FindComments(context.Background(), "鼎泰豐")
	if got != "great dumplings, long queue" {
		t.Errorf("unexpected review text %q", got)
	}
}

func TestFindCommentsNon200ReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewHTTPSource(srv.URL)
	if got := s.FindComments(context.Background(), "store"); got != "" {
		t.Errorf("expected empty on non-200, got %q", got)
	}
}

func TestFindCommentsConnectionErrorReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // deliberately closed

	s := NewHTTPSource(srv.URL)
	if got := s.FindComments(context.Background(), "store"); got != "" {
		t.Errorf("expected empty on connection error, got %q", got)
	}
}

func TestDisabledSource(t *testing.T) {
	var s Source = Disabled{}
	if got := s.FindComments(context.Background(), "anything"); got != "" {
		t.Errorf("expected disabled source to return empty, got %q", got)
	}
}
