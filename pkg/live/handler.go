package live

import (
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"

	apperrors "github.com/sauldoescode/saul.app/internal/errors"
	"github.com/sauldoescode/saul.app/pkg/site"
)

// OptionsFunc builds the site options of a new session from its upgrade
// request, typically loading writs and the signed-in user.
type OptionsFunc func(r *http.Request) (site.Options, error)

// HandlerConfig configures the websocket endpoint.
type HandlerConfig struct {
	Session Config

	// Options is required.
	Options OptionsFunc

	// MaxSessions caps open sessions. Zero means no limit.
	MaxSessions int

	// CheckOrigin defaults to SameOriginCheck.
	CheckOrigin func(r *http.Request) bool
}

// Handler upgrades requests to live sessions. The initial hash is read
// from the "hash" query parameter.
type Handler struct {
	hub      *Hub
	config   HandlerConfig
	upgrader websocket.Upgrader
}

// NewHandler creates the websocket endpoint for hub.
func NewHandler(hub *Hub, config HandlerConfig) *Handler {
	if config.CheckOrigin == nil {
		config.CheckOrigin = SameOriginCheck
	}
	return &Handler{
		hub:    hub,
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     config.CheckOrigin,
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.config.MaxSessions > 0 && h.hub.Len() >= h.config.MaxSessions {
		err := apperrors.New("E043")
		h.hub.logger.Warn("session limit reached", "limit", h.config.MaxSessions, "error", err)
		http.Error(w, err.Message, err.Status)
		return
	}

	opts, err := h.config.Options(r)
	if err != nil {
		h.hub.logger.Error("session options", "error", err)
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the response.
		h.hub.logger.Debug("upgrade failed", "error", apperrors.New("E040").Wrap(err))
		h.hub.metrics.RecordWebSocketError("upgrade")
		return
	}

	s := newSession(conn, h.config.Session, opts, r.URL.Query().Get("hash"), h.hub.metrics, h.hub.logger)
	h.hub.add(s)
	s.logger.Info("session opened", "remote", r.RemoteAddr, "hash", s.doc.Location().Hash())
	s.Start()
}

// SameOriginCheck accepts requests without an Origin header and requests
// whose Origin host matches the request host.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return r.Host != "" && u.Host == r.Host
}
