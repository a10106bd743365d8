package live

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sauldoescode/saul.app/pkg/dom"
	"github.com/sauldoescode/saul.app/pkg/hashroute"
	"github.com/sauldoescode/saul.app/pkg/middleware"
	"github.com/sauldoescode/saul.app/pkg/render"
	"github.com/sauldoescode/saul.app/pkg/site"
)

// Session errors.
var (
	ErrSessionClosed  = errors.New("live: session closed")
	ErrEventQueueFull = errors.New("live: event queue full")
)

// Config tunes session timeouts and queue sizes.
type Config struct {
	// ReadTimeout is how long the client may stay silent, pongs included.
	ReadTimeout time.Duration

	WriteTimeout time.Duration

	// HeartbeatInterval must be shorter than ReadTimeout.
	HeartbeatInterval time.Duration

	// MaxMessageSize bounds inbound frames in bytes.
	MaxMessageSize int64

	EventQueueSize int
}

// DefaultConfig returns the session defaults.
func DefaultConfig() Config {
	return Config{
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		MaxMessageSize:    64 * 1024,
		EventQueueSize:    64,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.HeartbeatInterval <= 0 || c.HeartbeatInterval >= c.ReadTimeout {
		c.HeartbeatInterval = c.ReadTimeout / 2
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.EventQueueSize <= 0 {
		c.EventQueueSize = d.EventQueueSize
	}
	return c
}

// Session is one connected browser tab. It owns a document, its router and
// the mounted site. The document is only touched from EventLoop.
type Session struct {
	id     string
	conn   *websocket.Conn
	config Config

	doc    *dom.Document
	router *hashroute.Router
	site   *site.Site
	html   *render.Renderer

	ctx    context.Context
	cancel context.CancelFunc

	events     chan Message
	dispatchCh chan func()
	done       chan struct{}
	closed     atomic.Bool
	onClose    func(*Session)

	// mu serializes writes to conn.
	mu sync.Mutex

	dirty    []*dom.Node
	lastHash string

	eventCount atomic.Int64
	patchCount atomic.Int64

	metrics *middleware.Metrics
	logger  *slog.Logger
}

func newSession(conn *websocket.Conn, config Config, opts site.Options, hash string, metrics *middleware.Metrics, logger *slog.Logger) *Session {
	config = config.withDefaults()
	id := uuid.NewString()
	logger = logger.With("session", id)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:         id,
		conn:       conn,
		config:     config,
		html:       render.NewRenderer(render.RendererConfig{}),
		ctx:        ctx,
		cancel:     cancel,
		events:     make(chan Message, config.EventQueueSize),
		dispatchCh: make(chan func(), config.EventQueueSize),
		done:       make(chan struct{}),
		metrics:    metrics,
		logger:     logger,
	}

	s.doc = dom.NewDocument(dom.WithHash(hash), dom.WithLogger(logger))
	s.router = hashroute.Install(s.doc,
		hashroute.WithLogger(logger),
		hashroute.WithObserver(metrics.RecordTransition),
	)
	opts.Context = ctx
	opts.Logger = logger
	s.site = site.Mount(s.doc, s.router, opts)
	s.doc.Flush()

	s.doc.Observe(func(n *dom.Node) { s.dirty = append(s.dirty, n) })
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Site returns the mounted site. Use it only from Dispatch callbacks.
func (s *Session) Site() *site.Site { return s.site }

// Document returns the session document. Use it only from Dispatch callbacks.
func (s *Session) Document() *dom.Document { return s.doc }

// Start sends the initial body and starts the session loops.
func (s *Session) Start() {
	s.metrics.RecordSessionOpen()
	if err := s.sendBody(); err != nil {
		s.logger.Warn("initial body not sent", "error", err)
		s.Close()
		return
	}
	go s.ReadLoop()
	go s.WriteLoop()
	go s.EventLoop()
}

// ReadLoop decodes client messages and queues them for EventLoop. It blocks
// until the connection fails or the session closes.
func (s *Session) ReadLoop() {
	defer s.Close()

	s.conn.SetReadLimit(s.config.MaxMessageSize)
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	})

	for {
		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		var msg Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			var closeErr *websocket.CloseError
			switch {
			case errors.As(err, &closeErr):
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseGoingAway,
					websocket.CloseNormalClosure) {
					s.logger.Warn("unexpected close", "error", err)
					s.metrics.RecordWebSocketError("close")
				}
				return
			case s.closed.Load():
				return
			case isDecodeError(err):
				s.logger.Warn("message decode error", "error", err)
				s.metrics.RecordWebSocketError("decode")
				s.sendError("E041", "malformed message")
				continue
			default:
				s.logger.Debug("read error", "error", err)
				s.metrics.RecordWebSocketError("read")
				return
			}
		}

		if err := s.QueueEvent(msg); err != nil {
			s.sendError("", "event queue full")
		}
	}
}

// EventLoop is the session's UI thread: client messages and dispatched
// callbacks run here one at a time, each followed by a flush of the
// document's task queue and the resulting patches.
func (s *Session) EventLoop() {
	for {
		select {
		case msg := <-s.events:
			s.run(func() { s.handleMessage(msg) })
		case fn := <-s.dispatchCh:
			s.run(fn)
		case <-s.done:
			return
		}
	}
}

// WriteLoop sends heartbeats until the session closes.
func (s *Session) WriteLoop() {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.sendPing(); err != nil {
				s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Session) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("session loop panic", "panic", r, "stack", string(debug.Stack()))
			s.dirty = nil
		}
	}()
	fn()
	s.doc.Flush()
	if err := s.sendUpdates(); err != nil && !errors.Is(err, ErrSessionClosed) {
		s.logger.Warn("update not sent", "error", err)
	}
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

func (s *Session) handleMessage(msg Message) {
	s.eventCount.Add(1)
	s.metrics.RecordEvent(msg.Type)

	switch msg.Type {
	case MsgClick:
		if n := s.node(msg.ID); n != nil {
			n.Click()
		}
	case MsgInput:
		if n := s.node(msg.ID); n != nil {
			n.SetValue(msg.Value)
			n.Dispatch(&dom.Event{Type: "input", Value: msg.Value})
		}
	case MsgHash:
		s.doc.Location().SetHash(msg.Hash)
		s.lastHash = s.doc.Location().Hash()
	default:
		s.logger.Warn("unknown message type", "type", msg.Type)
		s.sendError("E041", "unknown message type "+msg.Type)
	}
}

func (s *Session) node(id string) *dom.Node {
	n := s.doc.NodeByID(id)
	if n == nil {
		s.logger.Debug("stale node id", "id", id)
		s.sendError("E042", "unknown node "+id)
	}
	return n
}

// QueueEvent queues msg for EventLoop without blocking.
func (s *Session) QueueEvent(msg Message) error {
	select {
	case s.events <- msg:
		return nil
	default:
		s.logger.Warn("event queue full, dropping message", "type", msg.Type)
		return ErrEventQueueFull
	}
}

// Dispatch runs fn on the session's event loop. It is safe to call from any
// goroutine; changes fn makes to the document are sent as patches.
func (s *Session) Dispatch(fn func()) {
	if s.closed.Load() {
		return
	}
	select {
	case s.dispatchCh <- fn:
	case <-s.done:
	}
}

// Patches

// collect turns the observed nodes into patches. Text nodes are patched
// through their parent element, and a node inside another patched node is
// skipped. A dirty body means a full body resend.
func (s *Session) collect() (patches []Patch, fullBody bool, err error) {
	dirty := s.dirty
	s.dirty = nil
	if len(dirty) == 0 {
		return nil, false, nil
	}

	set := make(map[*dom.Node]bool, len(dirty))
	var order []*dom.Node
	for _, n := range dirty {
		if n.Kind() != dom.ElementNode {
			n = n.Parent()
		}
		if n == nil || !n.IsConnected() || set[n] {
			continue
		}
		if n == s.doc.Body() {
			return nil, true, nil
		}
		set[n] = true
		order = append(order, n)
	}

	for _, n := range order {
		if hasDirtyAncestor(n, set) {
			continue
		}
		html, err := s.html.RenderToString(n.LiveSnapshot())
		if err != nil {
			return nil, false, err
		}
		patches = append(patches, Patch{ID: n.ID(), HTML: html})
	}
	return patches, false, nil
}

func hasDirtyAncestor(n *dom.Node, set map[*dom.Node]bool) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if set[p] {
			return true
		}
	}
	return false
}

func (s *Session) sendUpdates() error {
	patches, fullBody, err := s.collect()
	if err != nil {
		return err
	}
	if fullBody {
		if err := s.sendBody(); err != nil {
			return err
		}
	} else if len(patches) > 0 {
		if err := s.write(Message{Type: MsgPatch, Patches: patches}); err != nil {
			return err
		}
		s.patchCount.Add(int64(len(patches)))
		s.metrics.RecordPatches(len(patches))
	}

	if hash := s.doc.Location().Hash(); hash != s.lastHash {
		s.lastHash = hash
		return s.write(Message{Type: MsgHash, Hash: hash})
	}
	return nil
}

// sendBody sends the whole body with node ids, followed by the hash.
func (s *Session) sendBody() error {
	s.dirty = nil
	html, err := s.html.RenderToString(s.doc.Body().LiveSnapshot().Children...)
	if err != nil {
		return err
	}
	if err := s.write(Message{Type: MsgBody, HTML: html}); err != nil {
		return err
	}
	s.lastHash = s.doc.Location().Hash()
	return s.write(Message{Type: MsgHash, Hash: s.lastHash})
}

func (s *Session) sendError(code, text string) {
	if err := s.write(Message{Type: MsgError, Error: text, Code: code}); err != nil {
		s.logger.Debug("error message not sent", "error", err)
	}
}

func (s *Session) write(msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return ErrSessionClosed
	}
	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteJSON(msg); err != nil {
		s.metrics.RecordWebSocketError("write")
		return err
	}
	return nil
}

func (s *Session) sendPing() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return ErrSessionClosed
	}
	deadline := time.Now().Add(s.config.WriteTimeout)
	if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
		s.logger.Debug("ping error", "error", err)
		return err
	}
	return nil
}

// Close ends the session. It is safe to call more than once.
func (s *Session) Close() {
	if s.closed.Swap(true) {
		return
	}
	close(s.done)
	s.cancel()

	s.mu.Lock()
	s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	s.conn.Close()
	s.mu.Unlock()

	if s.onClose != nil {
		s.onClose(s)
	}
	s.metrics.RecordSessionClose()
	s.logger.Info("session closed",
		"events", s.eventCount.Load(),
		"patches", s.patchCount.Load())
}

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} { return s.done }

// IsClosed reports whether Close has been called.
func (s *Session) IsClosed() bool { return s.closed.Load() }
