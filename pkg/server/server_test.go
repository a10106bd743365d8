package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sauldoescode/saul.app/internal/config"
	"github.com/sauldoescode/saul.app/internal/db"
	apperrors "github.com/sauldoescode/saul.app/internal/errors"
	"github.com/sauldoescode/saul.app/pkg/auth"
	"github.com/sauldoescode/saul.app/pkg/live"
	"github.com/sauldoescode/saul.app/pkg/upload"
	"github.com/sauldoescode/saul.app/pkg/writ"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type captureMailer struct {
	mu   sync.Mutex
	sent []auth.Mail
}

func (c *captureMailer) Send(_ context.Context, m auth.Mail) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, m)
	return nil
}

func (c *captureMailer) all() []auth.Mail {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]auth.Mail(nil), c.sent...)
}

type fixture struct {
	srv    *Server
	cfg    *config.Config
	auth   *auth.Service
	writs  *writ.Store
	mailer *captureMailer

	admin, reader *auth.User
}

func newFixture(t *testing.T, tweak ...func(*config.Config)) *fixture {
	t.Helper()
	d, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	cfg := config.New()
	cfg.AppName = "Test Blog"
	cfg.DevMode = true
	cfg.Static.Dir = t.TempDir()
	cfg.Uploads.Dir = t.TempDir()
	for _, fn := range tweak {
		fn(cfg)
	}

	users := auth.NewStore(d)
	mailer := &captureMailer{}
	svc := auth.NewService(users, auth.NewTokens([]byte("test-secret"), 24*time.Hour), mailer,
		auth.Config{AppName: cfg.AppName, BaseURL: "http://localhost:2443"}, auth.WithLogger(quiet))
	writs := writ.NewStore(d, users, writ.WithLogger(quiet))
	uploads, err := upload.NewDiskStore(cfg.UploadsPath(), cfg.Uploads.URLPrefix)
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}

	f := &fixture{cfg: cfg, auth: svc, writs: writs, mailer: mailer}
	f.srv = New(cfg, Deps{Writs: writs, Auth: svc, Uploads: uploads}, WithLogger(quiet))
	t.Cleanup(f.srv.Hub().Close)

	ctx := context.Background()
	if f.admin, err = users.Create(ctx, "saul@saul.app", "saul", auth.Admin); err != nil {
		t.Fatalf("creating admin: %v", err)
	}
	if f.reader, err = users.Create(ctx, "reader@saul.app", "reader", auth.VerifiedUser); err != nil {
		t.Fatalf("creating reader: %v", err)
	}

	f.save(t, &writ.Writ{Title: "Hello World", Markdown: "# hi\n\nhello there", Tags: []string{"status"},
		Author: "saul", Description: "first", Public: true})
	f.save(t, &writ.Writ{Title: "Members Club", Markdown: "secret", Tags: []string{"club"},
		Author: "saul", Public: true, MembersOnly: true})
	return f
}

func (f *fixture) save(t *testing.T, w *writ.Writ) {
	t.Helper()
	if err := f.writs.Save(context.Background(), w); err != nil {
		t.Fatalf("saving %q: %v", w.Title, err)
	}
}

func (f *fixture) cookie(t *testing.T, u *auth.User) *http.Cookie {
	t.Helper()
	token, err := f.auth.IssueToken(context.Background(), u, true)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return &http.Cookie{Name: auth.CookieName, Value: token}
}

func (f *fixture) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target string, v any) *http.Request {
	body, _ := json.Marshal(v)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body %q: %v", rec.Body.String(), err)
	}
	return body.Code
}

func TestIndexPage(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/", nil), nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"<title>Test Blog</title>",
		"<side-bar",
		"Hello World",
		`data-live="/live"`,
		`src="/live/client.js"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(body, "Members Club") {
		t.Error("members-only writ listed for a guest")
	}

	rec = f.do(httptest.NewRequest(http.MethodGet, "/", nil), f.cookie(t, f.reader))
	if !strings.Contains(rec.Body.String(), "Members Club") {
		t.Error("members-only writ missing for a verified reader")
	}

	rec = f.do(httptest.NewRequest(http.MethodGet, "/", nil), f.cookie(t, f.admin))
	if !strings.Contains(rec.Body.String(), `class="admin"`) {
		t.Error("editor missing for admin")
	}
}

func TestWritPage(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/writ/hello-world", nil), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{"<title>Hello World</title>", `content="first"`, "hello there"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	w, err := f.writs.BySlug(context.Background(), "hello-world")
	if err != nil {
		t.Fatal(err)
	}
	if w.Views != 1 {
		t.Errorf("views = %d, want 1", w.Views)
	}

	tests := []struct {
		name   string
		path   string
		cookie *http.Cookie
		status int
		code   string
	}{
		{"unknown", "/writ/nope", nil, http.StatusNotFound, "E081"},
		{"members only guest", "/writ/members-club", nil, http.StatusUnauthorized, "E100"},
		{"members only reader", "/writ/members-club", f.cookie(t, f.reader), http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(httptest.NewRequest(http.MethodGet, tt.path, nil), tt.cookie)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.code != "" {
				if got := errorCode(t, rec); got != tt.code {
					t.Errorf("code = %q, want %q", got, tt.code)
				}
			}
		})
	}
}

func TestAuthFlow(t *testing.T) {
	f := newFixture(t)

	rec := f.do(jsonRequest(http.MethodPost, "/auth", authRequest{Email: "new@saul.app", Username: "newbie"}), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	mails := f.mailer.all()
	if len(mails) != 1 {
		t.Fatalf("sent %d mails, want 1", len(mails))
	}
	i := strings.Index(mails[0].Text, "/auth/")
	if i < 0 {
		t.Fatalf("no magic link in %q", mails[0].Text)
	}
	verifier := strings.TrimSpace(mails[0].Text[i+len("/auth/"):])

	rec = f.do(httptest.NewRequest(http.MethodGet, "/auth/"+verifier, nil), nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("verify status = %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want /", loc)
	}
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value == "" {
		t.Fatal("no auth cookie set")
	}

	rec = f.do(httptest.NewRequest(http.MethodGet, "/auth/"+verifier, nil), nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("reused verifier status = %d", rec.Code)
	}

	rec = f.do(httptest.NewRequest(http.MethodGet, "/auth/logout", nil), cookie)
	if rec.Code != http.StatusSeeOther {
		t.Errorf("logout status = %d", rec.Code)
	}
}

func TestAdminVerifyRedirectsToEditor(t *testing.T) {
	f := newFixture(t)
	verifier, err := f.auth.Store().SetVerifier(context.Background(), f.admin)
	if err != nil {
		t.Fatal(err)
	}
	rec := f.do(httptest.NewRequest(http.MethodGet, "/auth/"+verifier, nil), nil)
	if loc := rec.Header().Get("Location"); loc != "/#editor" {
		t.Errorf("Location = %q, want /#editor", loc)
	}
}

func TestAuthErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		req    *http.Request
		status int
		code   string
	}{
		{"invalid username", jsonRequest(http.MethodPost, "/auth", authRequest{Email: "a@b.co", Username: "x"}),
			http.StatusBadRequest, "E103"},
		{"bad json", httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader("{")),
			http.StatusBadRequest, "E105"},
		{"unknown verifier", httptest.NewRequest(http.MethodGet, "/auth/nope", nil),
			http.StatusUnauthorized, "E100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(tt.req, nil)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
			if got := errorCode(t, rec); got != tt.code {
				t.Errorf("code = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestCheckUsername(t *testing.T) {
	f := newFixture(t)
	for name, want := range map[string]bool{"saul": false, "fresh-name": true} {
		rec := f.do(httptest.NewRequest(http.MethodGet, "/check-username/"+name, nil), nil)
		var body map[string]bool
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if body["available"] != want {
			t.Errorf("available(%s) = %v, want %v", name, body["available"], want)
		}
	}
}

func TestSubscribeToggle(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodPost, "/subscribe-toggle", nil), nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("guest status = %d", rec.Code)
	}

	cookie := f.cookie(t, f.reader)
	for _, want := range []bool{true, false} {
		rec := f.do(httptest.NewRequest(http.MethodPost, "/subscribe-toggle", nil), cookie)
		var body map[string]bool
		json.Unmarshal(rec.Body.Bytes(), &body)
		if body["subscriber"] != want {
			t.Errorf("subscriber = %v, want %v", body["subscriber"], want)
		}
	}
}

func TestSaveAndQueryWrits(t *testing.T) {
	f := newFixture(t)
	admin := f.cookie(t, f.admin)

	draft := writ.Writ{Title: "Draft Idea", Markdown: "*soon*", Tags: []string{"wip"}}
	for _, tt := range []struct {
		name   string
		cookie *http.Cookie
		status int
	}{
		{"guest", nil, http.StatusUnauthorized},
		{"reader", f.cookie(t, f.reader), http.StatusForbidden},
	} {
		rec := f.do(jsonRequest(http.MethodPost, "/writ", draft), tt.cookie)
		if rec.Code != tt.status {
			t.Errorf("%s: status = %d, want %d", tt.name, rec.Code, tt.status)
		}
	}

	rec := f.do(jsonRequest(http.MethodPost, "/writ", draft), admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d: %s", rec.Code, rec.Body.String())
	}
	var saved writ.Writ
	json.Unmarshal(rec.Body.Bytes(), &saved)
	if saved.Key == "" || saved.Slug != "draft-idea" || saved.Author != "saul" {
		t.Errorf("saved = %+v", saved)
	}

	rec = f.do(jsonRequest(http.MethodPost, "/writ", writ.Writ{Title: "No Tags", Markdown: "x"}), admin)
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "E082" {
		t.Errorf("untagged save: status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = f.do(jsonRequest(http.MethodPost, "/writ/query", writ.Query{Tags: []string{"wip"}}), admin)
	var found []*writ.Writ
	if err := json.Unmarshal(rec.Body.Bytes(), &found); err != nil {
		t.Fatalf("query body %q: %v", rec.Body.String(), err)
	}
	if len(found) != 1 || found[0].Title != "Draft Idea" {
		t.Errorf("query found %d writs", len(found))
	}

	rec = f.do(jsonRequest(http.MethodPost, "/writ/query", writ.Query{One: true, Slug: "missing"}), admin)
	if rec.Code != http.StatusNotFound {
		t.Errorf("one missing: status = %d", rec.Code)
	}
}

func TestPublishNotifiesSubscribers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.auth.ToggleSubscriber(ctx, f.reader); err != nil {
		t.Fatal(err)
	}

	f.save(t, &writ.Writ{Title: "Big News", Markdown: "news", Tags: []string{"news"}, Author: "saul", Public: true})

	deadline := time.Now().Add(5 * time.Second)
	for {
		var found bool
		for _, m := range f.mailer.all() {
			if strings.Contains(m.Text, "Big News") && len(m.Bcc) == 1 && m.Bcc[0] == f.reader.Email {
				found = true
			}
		}
		if found {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("subscriber was not mailed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	rec := f.do(httptest.NewRequest(http.MethodGet, f.cfg.Metrics.Path, nil), nil)
	if !strings.Contains(rec.Body.String(), "saulapp_writs_published_total 3") {
		t.Error("published writs not counted")
	}
}

func TestUploads(t *testing.T) {
	f := newFixture(t)

	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "pic.png")
	part.Write(png)
	mw.Close()

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader(buf.Bytes()))
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req
	}

	if rec := f.do(newReq(), f.cookie(t, f.reader)); rec.Code != http.StatusForbidden {
		t.Errorf("reader upload status = %d", rec.Code)
	}

	rec := f.do(newReq(), f.cookie(t, f.admin))
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body.String())
	}
	var file upload.File
	json.Unmarshal(rec.Body.Bytes(), &file)

	rec = f.do(httptest.NewRequest(http.MethodGet, file.URL, nil), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET %s status = %d", file.URL, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.Equal(rec.Body.Bytes(), png) {
		t.Error("served file differs from upload")
	}
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Server.RateLimit = 1
		c.Server.RateBurst = 1
	})
	if rec := f.do(httptest.NewRequest(http.MethodGet, "/check-username/abc", nil), nil); rec.Code != http.StatusOK {
		t.Fatalf("first status = %d", rec.Code)
	}
	rec := f.do(httptest.NewRequest(http.MethodGet, "/check-username/abc", nil), nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
}

func TestStaticFiles(t *testing.T) {
	f := newFixture(t)
	if err := os.WriteFile(filepath.Join(f.cfg.StaticPath(), "style.css"), []byte("body{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec := f.do(httptest.NewRequest(http.MethodGet, "/static/style.css", nil), nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "body{}" {
		t.Errorf("status = %d body = %q", rec.Code, rec.Body.String())
	}

	rec = f.do(httptest.NewRequest(http.MethodGet, live.ClientPath, nil), nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "WebSocket") {
		t.Errorf("client script status = %d", rec.Code)
	}
}

func TestLiveSessionReceivesPublishedWrit(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.srv.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + LivePath + "?hash=%23writs"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func(match func(live.Message) bool) live.Message {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		for {
			var msg live.Message
			if err := conn.ReadJSON(&msg); err != nil {
				t.Fatalf("read: %v", err)
			}
			if match(msg) {
				return msg
			}
		}
	}

	body := read(func(m live.Message) bool { return m.Type == live.MsgBody })
	if !strings.Contains(body.HTML, "Hello World") {
		t.Fatalf("body lacks writ list")
	}
	read(func(m live.Message) bool { return m.Type == live.MsgHash })

	f.save(t, &writ.Writ{Title: "Fresh Ink", Markdown: "fresh", Tags: []string{"new"}, Author: "saul", Public: true})

	read(func(m live.Message) bool {
		for _, p := range m.Patches {
			if strings.Contains(p.HTML, "Fresh Ink") {
				return true
			}
		}
		return false
	})
	if n := f.srv.Hub().Len(); n != 1 {
		t.Errorf("hub has %d sessions", n)
	}
}

func TestAppError(t *testing.T) {
	tests := []struct {
		err    error
		code   string
		status int
	}{
		{writ.ErrNotFound, "E081", http.StatusNotFound},
		{fmt.Errorf("saving: %w", writ.ErrMissingTags), "E082", http.StatusBadRequest},
		{auth.ErrForbidden, "E101", http.StatusForbidden},
		{auth.ErrEmailRateLimit, "E102", http.StatusTooManyRequests},
		{auth.ErrUsernameTaken, "E104", http.StatusConflict},
		{upload.ErrNotFound, "E084", http.StatusNotFound},
		{errors.Join(ErrBadRequest, io.ErrUnexpectedEOF), "E105", http.StatusBadRequest},
		{apperrors.New("E043"), "E043", http.StatusServiceUnavailable},
		{errors.New("disk on fire"), "", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		ae := appError(tt.err)
		if ae.Code != tt.code {
			t.Errorf("appError(%v).Code = %q, want %q", tt.err, ae.Code, tt.code)
		}
		if got := apperrors.HTTPStatus(ae); got != tt.status {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.status)
		}
	}
}

func TestOpenDeps(t *testing.T) {
	cfg := config.New()
	cfg.Database = filepath.Join(t.TempDir(), "saulapp.db")
	cfg.Uploads.Dir = t.TempDir()

	_, _, err := OpenDeps(cfg, quiet)
	var ae *apperrors.AppError
	if !errors.As(err, &ae) || ae.Code != "E121" {
		t.Fatalf("err = %v, want E121 for a missing token secret", err)
	}

	cfg.Auth.TokenSecret = "s3cret"
	deps, closer, err := OpenDeps(cfg, quiet)
	if err != nil {
		t.Fatalf("OpenDeps: %v", err)
	}
	defer closer.Close()
	if deps.Writs == nil || deps.Auth == nil || deps.Uploads == nil {
		t.Fatalf("deps = %+v", deps)
	}
	if _, ok := deps.Uploads.(*upload.DiskStore); !ok {
		t.Errorf("uploads = %T, want disk store", deps.Uploads)
	}
}
