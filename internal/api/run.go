package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ReelBites/ReelBites/internal/classifier"
	"github.com/ReelBites/ReelBites/internal/flow"
	"github.com/ReelBites/ReelBites/internal/genai"
	"github.com/ReelBites/ReelBites/internal/lockfile"
	"github.com/ReelBites/ReelBites/internal/locator"
	"github.com/ReelBites/ReelBites/internal/messaging"
	"github.com/ReelBites/ReelBites/internal/replies"
	"github.com/ReelBites/ReelBites/internal/reviews"
	"github.com/ReelBites/ReelBites/internal/store"
	"github.com/ReelBites/ReelBites/internal/styler"
)

// shutdownTimeout bounds graceful server shutdown.
const shutdownTimeout = 10 * time.Second

// Run wires the modules together and serves the webhook until SIGINT or
// SIGTERM. It owns the lifecycle of the store, the generative client and
// the HTTP listener.
func Run(storeOpts []store.Option, genaiOpts []genai.Option, msgOpts []messaging.Option, apiOpts []Option) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var o Opts
	for _, opt := range apiOpts {
		opt(&o)
	}
	if o.Addr == "" {
		o.Addr = DefaultAddr
	}

	st, lock, err := buildStore(ctx, storeOpts)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("Run: store close failed", "error", err)
		}
		if lock != nil {
			lock.Release()
		}
	}()

	client, err := buildGenAIClient(ctx, o.GenAIBackend, genaiOpts)
	if err != nil {
		return err
	}

	catalog, err := replies.Load(o.RepliesPath)
	if err != nil {
		return fmt.Errorf("failed to load reply catalog: %w", err)
	}

	var reviewSrc reviews.Source = reviews.Disabled{}
	if o.ReviewEndpoint != "" {
		reviewSrc = reviews.NewHTTPSource(o.ReviewEndpoint)
	}

	sender, err := messaging.NewInstagramService(msgOpts...)
	if err != nil {
		return fmt.Errorf("failed to create messaging service: %w", err)
	}

	engine := flow.NewEngine(st, sender,
		classifier.New(client),
		locator.New(client),
		styler.New(client, catalog, reviewSrc),
		catalog)
	server := NewServer(engine, apiOpts...)

	httpServer := &http.Server{
		Addr:              o.Addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Run: webhook server listening", "addr", o.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		slog.Info("Run: shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// buildStore selects the session backend from the configured options:
// a JSON file (with periodic flush and a state-directory lock), a
// database by DSN, or in-memory when nothing is configured.
func buildStore(ctx context.Context, storeOpts []store.Option) (store.Store, *lockfile.Lock, error) {
	var so store.Opts
	for _, opt := range storeOpts {
		opt(&so)
	}

	switch {
	case so.FilePath != "":
		lock, err := lockfile.AcquireLock(filepath.Dir(so.FilePath))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to lock state directory: %w", err)
		}
		fs, err := store.NewFileStore(storeOpts...)
		if err != nil {
			lock.Release()
			return nil, nil, fmt.Errorf("failed to open session file: %w", err)
		}
		fs.StartAutoFlush(ctx)
		slog.Info("Run: using JSON file store", "path", so.FilePath)
		return fs, lock, nil

	case so.DSN != "":
		if store.DetectDSNType(so.DSN) == "postgres" {
			ps, err := store.NewPostgresStore(storeOpts...)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to open postgres store: %w", err)
			}
			slog.Info("Run: using PostgreSQL store")
			return ps, nil, nil
		}
		ss, err := store.NewSQLiteStore(storeOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		slog.Info("Run: using SQLite store", "path", so.DSN)
		return ss, nil, nil

	default:
		slog.Warn("Run: no persistence configured, sessions are in-memory only")
		return store.NewInMemoryStore(), nil, nil
	}
}

// buildGenAIClient creates the generative backend. Gemini is the default;
// "openai" selects the chat-completions backend instead.
func buildGenAIClient(ctx context.Context, backend string, genaiOpts []genai.Option) (genai.ClientInterface, error) {
	if backend == "openai" {
		client, err := genai.NewOpenAIClient(genaiOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		return client, nil
	}
	client, err := genai.NewClient(ctx, genaiOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return client, nil
}
