package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sauldoescode/saul.app/pkg/auth"
	"github.com/sauldoescode/saul.app/pkg/live"
	"github.com/sauldoescode/saul.app/pkg/middleware"
	"github.com/sauldoescode/saul.app/pkg/upload"
)

// LivePath is the websocket endpoint of live sessions.
const LivePath = "/live"

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(chimw.Recoverer)
	if len(s.cfg.Server.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.Server.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(s.metrics.Instrument)
	r.Use(middleware.OpenTelemetry(middleware.WithTracerName("saulapp")))
	if s.cfg.Server.RateLimit > 0 {
		r.Use(middleware.RateLimit(s.limiter, s.trusted, s.metrics))
	}
	r.Use(s.auth.Middleware(s.cookieOptions()))

	// Live sessions outlive the request timeout.
	r.Handle(LivePath, live.NewHandler(s.hub, live.HandlerConfig{
		Options:     s.siteOptions,
		MaxSessions: s.cfg.Server.MaxSessions,
		CheckOrigin: s.checkOrigin,
	}))

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(s.cfg.RequestTimeout()))

		r.Get("/", s.handleIndex)
		r.Get("/writ/{slug}", s.handleWritPage)
		r.Get(live.ClientPath, live.ClientHandler().ServeHTTP)

		r.Post("/auth", s.handleAuth)
		r.Get("/auth/logout", s.handleLogout)
		r.Post("/auth/logout", s.handleLogout)
		r.Get("/auth/{verifier}", s.handleVerify)
		r.Get("/check-username/{name}", s.handleCheckUsername)
		r.With(auth.RequireUser).Get("/subscribe-toggle", s.handleSubscribeToggle)
		r.With(auth.RequireUser).Post("/subscribe-toggle", s.handleSubscribeToggle)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(auth.Admin))
			r.Post("/writ", s.handleSaveWrit)
			r.Post("/writ/query", s.handleQueryWrits)
			r.Post("/upload", upload.Handler(s.uploads, &upload.Config{
				MaxFileSize: s.cfg.Uploads.MaxFileSize,
			}, s.logger.With("component", "upload")).ServeHTTP)
		})

		r.Get(strings.TrimRight(s.cfg.Uploads.URLPrefix, "/")+"/*", s.handleUploadFile)

		if s.metrics != nil {
			r.Handle(s.cfg.Metrics.Path, s.metrics.Handler())
		}

		prefix := s.cfg.Static.Prefix
		r.Handle(strings.TrimRight(prefix, "/")+"/*",
			http.StripPrefix(prefix, http.FileServer(http.Dir(s.cfg.StaticPath()))))
	})

	return r
}

func (s *Server) cookieOptions() auth.CookieOptions {
	return auth.CookieOptions{Domain: s.cfg.Domain, Secure: !s.cfg.DevMode}
}

// checkOrigin accepts same-origin upgrades and the configured CORS origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	if live.SameOriginCheck(r) {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range s.cfg.Server.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// requestLogger logs one line per request with slog.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimw.GetReqID(r.Context()),
			)
		})
	}
}
