// Package middleware provides the HTTP middleware used by the saulapp server.
//
// This package includes:
//   - OpenTelemetry request tracing
//   - Prometheus collectors for HTTP, live sessions, routing and mail
//   - Per-IP rate limiting with trusted proxy handling
//
// # OpenTelemetry
//
//	r := chi.NewRouter()
//	r.Use(middleware.OpenTelemetry(middleware.WithTracerName("saulapp")))
//
// Spans are named after the chi route pattern once routing is done.
//
// # Prometheus
//
//	m := middleware.NewMetrics()
//	r.Use(m.Instrument)
//	r.Handle("/metrics", m.Handler())
//
// Metrics collected:
//   - saulapp_http_requests_total: requests by method, route and status
//   - saulapp_http_request_duration_seconds: request duration by route
//   - saulapp_rate_limited_total: requests rejected by RateLimit
//   - saulapp_live_sessions: open live sessions
//   - saulapp_live_events_total: client events by type
//   - saulapp_patches_sent_total: node patches sent
//   - saulapp_route_transitions_total: hash route activations
//   - saulapp_writs_published_total: writs that went public
//   - saulapp_mails_sent_total: mails by kind and result
//   - saulapp_websocket_errors_total: websocket errors by type
//
// # Rate limiting
//
//	limiter := ratelimit.New(20, 40)
//	r.Use(middleware.RateLimit(limiter, middleware.NewTrustedProxies(cfg.Server.TrustedProxies, nil), m))
package middleware
