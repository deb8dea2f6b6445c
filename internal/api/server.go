// Package api provides the HTTP surface of ReelBites.
//
// It exposes the Meta webhook endpoints: GET for the subscription
// verification handshake and POST for inbound messaging events. Inbound
// events are handed to the conversation engine synchronously; the
// handler acknowledges with 200 once every event in the delivery has
// been processed.
package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ReelBites/ReelBites/internal/messaging"
	"github.com/ReelBites/ReelBites/internal/models"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// maxWebhookBody caps the inbound request body size.
const maxWebhookBody = 1 << 20

// EventHandler processes one parsed inbound event.
type EventHandler interface {
	HandleEvent(ctx context.Context, event models.InboundEvent) error
}

// Opts holds configuration for the API server.
type Opts struct {
	// Addr is the listen address.
	Addr string
	// VerifyToken is matched against hub.verify_token on the handshake.
	VerifyToken string
	// AppSecret signs webhook payloads. Empty disables signature checks.
	AppSecret string
	// GenAIBackend selects the generative backend ("gemini" or "openai").
	GenAIBackend string
	// RepliesPath is the reply catalog file. Empty uses the embedded one.
	RepliesPath string
	// ReviewEndpoint is the optional review-lookup service URL.
	ReviewEndpoint string
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the server listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithVerifyToken sets the webhook verification token.
func WithVerifyToken(token string) Option {
	return func(o *Opts) { o.VerifyToken = token }
}

// WithAppSecret sets the app secret for payload signature checks.
func WithAppSecret(secret string) Option {
	return func(o *Opts) { o.AppSecret = secret }
}

// WithGenAIBackend selects the generative backend.
func WithGenAIBackend(backend string) Option {
	return func(o *Opts) { o.GenAIBackend = backend }
}

// WithRepliesPath sets the reply catalog file path.
func WithRepliesPath(path string) Option {
	return func(o *Opts) { o.RepliesPath = path }
}

// WithReviewEndpoint enables the HTTP review lookup.
func WithReviewEndpoint(url string) Option {
	return func(o *Opts) { o.ReviewEndpoint = url }
}

// Server handles webhook traffic and forwards events to the engine.
type Server struct {
	engine      EventHandler
	verifyToken string
	appSecret   string
	router      chi.Router
}

// NewServer creates the webhook server around an event handler.
func NewServer(engine EventHandler, opts ...Option) *Server {
	var o Opts
	for _, opt := range opts {
		opt(&o)
	}
	s := &Server{
		engine:      engine,
		verifyToken: o.VerifyToken,
		appSecret:   o.AppSecret,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/", s.verifyHandler)
	r.Post("/", s.inboundHandler)
	r.Get("/webhook", s.verifyHandler)
	r.Post("/webhook", s.inboundHandler)
	r.Get("/health", s.healthHandler)
	s.router = r
	return s
}

// Router exposes the HTTP handler, for mounting and tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// verifyHandler answers the Meta subscription handshake: echo the
// challenge on a token match, reject otherwise.
func (s *Server) verifyHandler(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == s.verifyToken {
		slog.Info("Server.verifyHandler: webhook verified")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, challenge)
		return
	}
	slog.Warn("Server.verifyHandler: verification failed", "mode", mode)
	http.Error(w, "Forbidden", http.StatusForbidden)
}

// inboundHandler processes one webhook delivery. Every failure after the
// signature check still acknowledges with 200 so Meta does not redeliver
// an event we cannot handle any better the second time.
func (s *Server) inboundHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		slog.Error("Server.inboundHandler: failed to read body", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if !messaging.VerifySignature(s.appSecret, body, r.Header.Get("X-Hub-Signature-256")) {
		slog.Warn("Server.inboundHandler: signature mismatch")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	event, err := messaging.ParseWebhookEvent(body)
	if err != nil {
		slog.Error("Server.inboundHandler: unparsable payload", "error", err)
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
		return
	}

	for _, ev := range event.Events() {
		if err := s.engine.HandleEvent(r.Context(), ev); err != nil {
			slog.Error("Server.inboundHandler: event handling failed", "error", err, "user", ev.SenderID, "kind", ev.Kind)
		}
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}
