// Package server exposes a store.Repository over the invoice HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/marshallshelly/pebble-invoice/pkg/render"
	"github.com/marshallshelly/pebble-invoice/pkg/store"
)

// Server handles /api/invoices.
type Server struct {
	repo   store.Repository
	log    logrus.FieldLogger
	render render.Options
	router *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for access logs and failures.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithRenderOptions sets the letterhead of generated PDFs.
func WithRenderOptions(opts render.Options) Option {
	return func(s *Server) {
		s.render = opts
	}
}

// New builds the router for repo.
func New(repo store.Repository, opts ...Option) *Server {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	s := &Server{
		repo:   repo,
		log:    discard,
		render: render.DefaultOptions(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.accessLog, cors)

	for _, prefix := range []string{"/api/invoices/", "/api/invoices"} {
		r.HandleFunc(prefix, s.handleList).Methods(http.MethodGet)
		r.HandleFunc(prefix, s.handleCreate).Methods(http.MethodPost)
	}
	r.HandleFunc("/api/invoices/generate-pdf/{id}", s.handlePDF).Methods(http.MethodGet)
	r.HandleFunc("/api/invoices/{id}", s.handleGet).Methods(http.MethodGet)
	r.Methods(http.MethodOptions).HandlerFunc(preflight)

	r.NotFoundHandler = s.accessLog(cors(http.HandlerFunc(welcome)))
	r.MethodNotAllowedHandler = s.accessLog(cors(http.HandlerFunc(methodNotAllowed)))
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then drains
// in-flight requests for up to five seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()
	s.log.WithField("addr", ln.Addr().String()).Info("invoice service listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info("invoice service stopped")
	return nil
}
