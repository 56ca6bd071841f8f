// Package webhook serves the Discord interactions endpoint.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sekia-ai/sekia-discord/internal/config"
	"github.com/sekia-ai/sekia-discord/pkg/interactions"
)

const (
	maxBodySize     = 1 << 20 // 1 MB
	shutdownTimeout = 5 * time.Second

	// authFailureMessage is the only detail a rejected caller gets.
	authFailureMessage = "invalid request signature"
)

// Server receives signed interaction webhooks over HTTP.
type Server struct {
	listenAddr string
	path       string
	verifier   *interactions.Verifier
	httpServer *http.Server
	listener   net.Listener
	logger     zerolog.Logger
	stopCh     chan struct{}
	stopOnce   sync.Once
	readyCh    chan struct{}
}

// NewServer creates an interactions server. If the public key is missing or
// malformed the server still starts but rejects every request.
func NewServer(cfg config.Config, logger zerolog.Logger) *Server {
	logger = logger.With().Str("component", "webhook").Logger()

	verifier, err := interactions.NewVerifier(cfg.Discord.PublicKey)
	if err != nil {
		logger.Warn().Err(err).Msg("signature verification unavailable; all interactions will be rejected")
	}

	path := cfg.Webhook.Path
	if path == "" {
		path = "/"
	}

	s := &Server{
		listenAddr: cfg.Webhook.Listen,
		path:       path,
		verifier:   verifier,
		logger:     logger,
		stopCh:     make(chan struct{}),
		readyCh:    make(chan struct{}),
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP routes served by the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST "+s.path, s.handleInteraction)
	return mux
}

// Listen binds the TCP socket. Call Serve afterwards to accept connections.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return err
	}
	s.listener = ln
	return nil
}

// Serve accepts connections on the listener created by Listen. Blocks until shut down.
func (s *Server) Serve() error {
	s.logger.Info().
		Str("addr", s.listener.Addr().String()).
		Str("path", s.path).
		Msg("interactions endpoint listening")
	return s.httpServer.Serve(s.listener)
}

// Addr returns the listener address. Only valid after Listen.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Run binds, serves, and blocks until SIGINT/SIGTERM or Stop, then shuts
// down gracefully.
func (s *Server) Run() error {
	if err := s.Listen(); err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	close(s.readyCh)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		s.logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case <-s.stopCh:
		s.logger.Info().Msg("stop requested, shutting down")
	case err := <-errCh:
		s.logger.Error().Err(err).Msg("interactions server error")
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// Ready is closed once Run has bound the listener.
func (s *Server) Ready() <-chan struct{} { return s.readyCh }

// Stop signals Run to shut down. Safe to call more than once and from
// other goroutines.
func (s *Server) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInteraction(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.With().Str("request_id", uuid.NewString()).Logger()

	// The signature covers the exact bytes received, so nothing may touch
	// the body before verification.
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if s.verifier == nil {
		logger.Warn().Msg("public key not configured; rejecting interaction")
		http.Error(w, authFailureMessage, http.StatusUnauthorized)
		return
	}
	sig := r.Header.Get(interactions.HeaderSignature)
	ts := r.Header.Get(interactions.HeaderTimestamp)
	if !s.verifier.Verify(body, ts, sig) {
		logger.Debug().
			Bool("has_signature", sig != "").
			Bool("has_timestamp", ts != "").
			Int("body_len", len(body)).
			Msg("signature verification failed")
		http.Error(w, authFailureMessage, http.StatusUnauthorized)
		return
	}

	var in interactions.Interaction
	if err := json.Unmarshal(body, &in); err != nil {
		logger.Debug().Err(err).Msg("invalid interaction json")
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	resp := interactions.Dispatch(in)

	status := http.StatusOK
	if !in.Supported() {
		status = http.StatusBadRequest
		logger.Warn().
			Int("interaction_type", in.Type).
			Msg("unsupported interaction type")
	}

	logger.Info().
		Str("interaction_id", in.ID).
		Int("interaction_type", in.Type).
		Str("command", in.Data.Name).
		Int("response_type", int(resp.Type)).
		Int("status", status).
		Msg("interaction handled")

	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
