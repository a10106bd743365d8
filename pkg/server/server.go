package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/sauldoescode/saul.app/internal/config"
	"github.com/sauldoescode/saul.app/pkg/auth"
	"github.com/sauldoescode/saul.app/pkg/live"
	"github.com/sauldoescode/saul.app/pkg/middleware"
	"github.com/sauldoescode/saul.app/pkg/ratelimit"
	"github.com/sauldoescode/saul.app/pkg/render"
	"github.com/sauldoescode/saul.app/pkg/upload"
	"github.com/sauldoescode/saul.app/pkg/writ"
)

// notifyTimeout bounds the subscriber mail sent for a published writ.
const notifyTimeout = 30 * time.Second

// Deps are the stores a Server serves.
type Deps struct {
	Writs   *writ.Store
	Auth    *auth.Service
	Uploads upload.Store
}

// Server is the blog's HTTP server: the shell page, the live endpoint and
// the JSON API.
type Server struct {
	cfg     *config.Config
	writs   *writ.Store
	auth    *auth.Service
	uploads upload.Store

	hub      *live.Hub
	metrics  *middleware.Metrics
	limiter  *ratelimit.Keyed
	trusted  *middleware.TrustedProxies
	renderer *render.Renderer
	router   chi.Router

	httpServer *http.Server
	logger     *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics replaces the metrics collector, e.g. to use a test registry.
func WithMetrics(m *middleware.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New creates a Server and wires writ publication to live sessions,
// subscriber mail and metrics.
func New(cfg *config.Config, deps Deps, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		writs:    deps.Writs,
		auth:     deps.Auth,
		uploads:  deps.Uploads,
		renderer: render.NewRenderer(render.RendererConfig{Pretty: cfg.DevMode}),
		logger:   slog.Default().With("component", "server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil && !cfg.Metrics.Disabled {
		s.metrics = middleware.NewMetrics()
	}

	s.hub = live.NewHub(s.metrics, s.logger.With("component", "live"))
	s.limiter = ratelimit.New(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst)
	s.trusted = middleware.NewTrustedProxies(cfg.Server.TrustedProxies, s.logger)
	s.router = s.routes()

	s.writs.Events().On(writ.EventPublished, s.published)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Hub returns the live session hub.
func (s *Server) Hub() *live.Hub { return s.hub }

// Metrics returns the metrics collector, or nil when disabled.
func (s *Server) Metrics() *middleware.Metrics { return s.metrics }

// published fans a newly public writ out to open sessions and subscribers.
func (s *Server) published(w *writ.Writ) {
	s.metrics.RecordPublished()
	pub := *w
	s.hub.PublishWrit(&pub)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		err := s.auth.NotifySubscribers(ctx, pub.Title, pub.Slug)
		s.metrics.RecordMail("subscribers", err)
		if err != nil {
			s.logger.Error("notifying subscribers", "slug", pub.Slug, "error", err)
		}
	}()
}

// Run serves until ctx is cancelled or the process receives SIGINT or
// SIGTERM, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.httpServer = &http.Server{
		Addr:              s.cfg.Address(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	janitor := s.limiter.Janitor(ctx, time.Minute, 10*time.Minute)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.httpServer.Addr, "url", s.cfg.BaseURL())
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		stop()
		<-janitor
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		err := s.Shutdown(context.Background())
		<-janitor
		return err
	}
}

// Shutdown closes live sessions, then drains HTTP requests within the
// configured shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout())
	defer cancel()

	s.hub.Close()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}
