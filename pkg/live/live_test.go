package live

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sauldoescode/saul.app/pkg/dom"
	"github.com/sauldoescode/saul.app/pkg/site"
	"github.com/sauldoescode/saul.app/pkg/writ"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func testWrits() []*writ.Writ {
	return []*writ.Writ{
		{Key: "k1", Title: "Hello World", Slug: "hello-world", Author: "saul",
			Content: "<p>hello</p>", Tags: []string{"status"}, Created: 1551441600, Public: true},
	}
}

func testOptions(*http.Request) (site.Options, error) {
	return site.Options{AppName: "Live Blog", Writs: testWrits()}, nil
}

func startServer(t *testing.T, config HandlerConfig) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(nil, quiet)
	if config.Options == nil {
		config.Options = testOptions
	}
	srv := httptest.NewServer(NewHandler(hub, config))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, hash string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/live?hash=" + strings.ReplaceAll(hash, "#", "%23")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads messages until match accepts one, failing after a timeout.
func readUntil(t *testing.T, conn *websocket.Conn, match func(Message) bool) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func isType(typ string) func(Message) bool {
	return func(m Message) bool { return m.Type == typ }
}

func patchContaining(s string) func(Message) bool {
	return func(m Message) bool {
		if m.Type != MsgPatch {
			return false
		}
		for _, p := range m.Patches {
			if strings.Contains(p.HTML, s) {
				return true
			}
		}
		return false
	}
}

func nodeID(t *testing.T, html, attrs string) string {
	t.Helper()
	re := regexp.MustCompile(`data-nid="(n\d+)"[^>]*` + regexp.QuoteMeta(attrs))
	m := re.FindStringSubmatch(html)
	if m == nil {
		t.Fatalf("no node with %s in %s", attrs, html)
	}
	return m[1]
}

func TestSessionInitialBody(t *testing.T) {
	_, srv := startServer(t, HandlerConfig{})
	conn := dial(t, srv, "#writ-hello-world")

	body := readUntil(t, conn, isType(MsgBody))
	for _, want := range []string{"<side-bar", "Live Blog", `data-nid="`, "<p>hello</p>"} {
		if !strings.Contains(body.HTML, want) {
			t.Errorf("body missing %q", want)
		}
	}
	hash := readUntil(t, conn, isType(MsgHash))
	if hash.Hash != "#writ-hello-world" {
		t.Errorf("hash = %q", hash.Hash)
	}
}

func TestSessionClickNavigates(t *testing.T) {
	_, srv := startServer(t, HandlerConfig{})
	conn := dial(t, srv, "")

	body := readUntil(t, conn, isType(MsgBody))
	if hash := readUntil(t, conn, isType(MsgHash)); hash.Hash != "#home" {
		t.Fatalf("initial hash = %q, want #home", hash.Hash)
	}

	id := nodeID(t, body.HTML, `route-link="#about"`)
	if err := conn.WriteJSON(Message{Type: MsgClick, ID: id}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, conn, patchContaining("small place for writing"))
	if hash := readUntil(t, conn, isType(MsgHash)); hash.Hash != "#about" {
		t.Errorf("hash = %q, want #about", hash.Hash)
	}
}

func TestSessionHashMessage(t *testing.T) {
	_, srv := startServer(t, HandlerConfig{})
	conn := dial(t, srv, "#home")
	readUntil(t, conn, isType(MsgHash))

	if err := conn.WriteJSON(Message{Type: MsgHash, Hash: "#writs"}); err != nil {
		t.Fatal(err)
	}
	msg := readUntil(t, conn, patchContaining("writ-card"))
	for _, p := range msg.Patches {
		if !strings.HasPrefix(p.HTML, "<") {
			t.Errorf("patch %s is not an element: %q", p.ID, p.HTML)
		}
	}
}

func TestSessionErrors(t *testing.T) {
	_, srv := startServer(t, HandlerConfig{})
	conn := dial(t, srv, "#home")
	readUntil(t, conn, isType(MsgHash))

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatal(err)
	}
	if msg := readUntil(t, conn, isType(MsgError)); msg.Error != "malformed message" || msg.Code != "E041" {
		t.Errorf("error = %q (%s)", msg.Error, msg.Code)
	}

	conn.WriteJSON(Message{Type: MsgClick, ID: "n999999"})
	if msg := readUntil(t, conn, isType(MsgError)); !strings.Contains(msg.Error, "n999999") {
		t.Errorf("error = %q", msg.Error)
	}

	conn.WriteJSON(Message{Type: "scroll"})
	if msg := readUntil(t, conn, isType(MsgError)); !strings.Contains(msg.Error, "scroll") {
		t.Errorf("error = %q", msg.Error)
	}
}

func TestHubPublishWrit(t *testing.T) {
	hub, srv := startServer(t, HandlerConfig{})
	conns := []*websocket.Conn{dial(t, srv, "#home"), dial(t, srv, "#about")}
	for _, c := range conns {
		readUntil(t, c, isType(MsgHash))
	}
	if hub.Len() != 2 {
		t.Fatalf("Len = %d, want 2", hub.Len())
	}

	hub.PublishWrit(&writ.Writ{Key: "k9", Title: "Fresh Ink", Slug: "fresh-ink",
		Content: "<p>fresh</p>", Tags: []string{"new"}, Created: 1551441700, Public: true})

	for i, c := range conns {
		msg := readUntil(t, c, patchContaining("Fresh Ink"))
		if len(msg.Patches) == 0 {
			t.Errorf("conn %d: empty patch", i)
		}
	}
}

func TestHubRemovesClosedSessions(t *testing.T) {
	hub, srv := startServer(t, HandlerConfig{})
	conn := dial(t, srv, "#home")
	readUntil(t, conn, isType(MsgHash))

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for hub.Len() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("session still tracked")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHandlerLimits(t *testing.T) {
	t.Run("max sessions", func(t *testing.T) {
		_, srv := startServer(t, HandlerConfig{MaxSessions: 1})
		readUntil(t, dial(t, srv, "#home"), isType(MsgHash))

		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/live"
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		if !errors.Is(err, websocket.ErrBadHandshake) {
			t.Fatalf("err = %v, want bad handshake", err)
		}
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("status = %d", resp.StatusCode)
		}
	})

	t.Run("options error", func(t *testing.T) {
		_, srv := startServer(t, HandlerConfig{Options: func(*http.Request) (site.Options, error) {
			return site.Options{}, errors.New("db down")
		}})
		resp, err := http.Get(srv.URL + "/live")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusInternalServerError {
			t.Errorf("status = %d", resp.StatusCode)
		}
	})

	t.Run("cross origin", func(t *testing.T) {
		_, srv := startServer(t, HandlerConfig{})
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/live"
		_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
		if err == nil {
			t.Fatal("cross-origin upgrade succeeded")
		}
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("status = %d", resp.StatusCode)
		}
	})
}

func TestCollectSkipsNestedNodes(t *testing.T) {
	s := newSession(nil, Config{}, site.Options{Writs: testWrits()}, "#home", nil, quiet)
	s.Site().Router().Activate("#writs")
	s.doc.Flush()

	patches, full, err := s.collect()
	if err != nil {
		t.Fatal(err)
	}
	if full {
		t.Fatal("unexpected full body resend")
	}
	if len(patches) == 0 {
		t.Fatal("no patches")
	}

	patched := make(map[*dom.Node]bool)
	for _, p := range patches {
		n := s.doc.NodeByID(p.ID)
		if n == nil {
			t.Fatalf("patch for unknown node %s", p.ID)
		}
		patched[n] = true
	}
	for n := range patched {
		if hasDirtyAncestor(n, patched) {
			t.Errorf("node %s is patched along with an ancestor", n.ID())
		}
	}

	if again, _, _ := s.collect(); len(again) != 0 {
		t.Errorf("collect did not reset: %d patches", len(again))
	}
}

func TestClientHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	ClientHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, ClientPath, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/javascript") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "new WebSocket") {
		t.Error("client script not served")
	}
}

func TestSameOriginCheck(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://example.com", true},
		{"https://example.com", true},
		{"http://evil.com", false},
		{"://bad", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "http://example.com/live", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := SameOriginCheck(r); got != tt.want {
			t.Errorf("SameOriginCheck(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}
