package live

import (
	"log/slog"
	"sync"

	"github.com/sauldoescode/saul.app/pkg/middleware"
	"github.com/sauldoescode/saul.app/pkg/writ"
)

// Hub tracks the live sessions of a server.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	metrics *middleware.Metrics
	logger  *slog.Logger
}

// NewHub creates an empty hub. metrics may be nil.
func NewHub(metrics *middleware.Metrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default().With("component", "live")
	}
	return &Hub{
		sessions: make(map[string]*Session),
		metrics:  metrics,
		logger:   logger,
	}
}

func (h *Hub) add(s *Session) {
	s.onClose = h.remove
	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()
}

func (h *Hub) remove(s *Session) {
	h.mu.Lock()
	delete(h.sessions, s.id)
	h.mu.Unlock()
}

// Len returns the number of open sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Get returns the session with the given id.
func (h *Hub) Get(id string) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[id]
	return s, ok
}

func (h *Hub) snapshot() []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		out = append(out, s)
	}
	return out
}

// Broadcast queues fn on every session's event loop without waiting, so it
// may be called from inside a session's own loop.
func (h *Hub) Broadcast(fn func(*Session)) {
	for _, s := range h.snapshot() {
		go s.Dispatch(func() { fn(s) })
	}
}

// PublishWrit routes a newly published writ in every open session. Sessions
// whose user may not read it ignore it.
func (h *Hub) PublishWrit(w *writ.Writ) {
	h.logger.Info("broadcasting writ", "slug", w.Slug, "sessions", h.Len())
	h.Broadcast(func(s *Session) { s.Site().AddWrit(w) })
}

// Close ends every session.
func (h *Hub) Close() {
	for _, s := range h.snapshot() {
		s.Close()
	}
}
