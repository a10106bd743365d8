package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"github.com/sauldoescode/saul.app/pkg/auth"
	"github.com/sauldoescode/saul.app/pkg/live"
	"github.com/sauldoescode/saul.app/pkg/render"
	"github.com/sauldoescode/saul.app/pkg/site"
	"github.com/sauldoescode/saul.app/pkg/writ"
)

// siteOptions loads what a rendered or live site shows to the requesting
// user. It is also the live handler's OptionsFunc.
func (s *Server) siteOptions(r *http.Request) (site.Options, error) {
	writs, err := s.writs.Query(r.Context(), writ.Query{Public: true})
	if err != nil {
		return site.Options{}, err
	}
	opts := site.Options{
		AppName: s.cfg.AppName,
		Writs:   writs,
		Logger:  s.logger.With("component", "site"),
	}
	if u, ok := auth.UserFromContext(r.Context()); ok {
		opts.User = u
		if u.IsAdmin() {
			opts.Editor = editorBackend{writs: s.writs, author: u.Username}
		}
	}
	return opts, nil
}

// page writes a full HTML document for the site rendered at hash.
func (s *Server) page(w http.ResponseWriter, opts site.Options, hash, title, description string) {
	if title == "" {
		title = opts.AppName
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := s.renderer.RenderPage(w, render.PageData{
		Body:         site.Render(opts, hash),
		Title:        title,
		Description:  description,
		StyleSheets:  []string{s.cfg.Static.Prefix + "style.css"},
		LivePath:     LivePath,
		ClientScript: live.ClientPath,
	})
	if err != nil {
		s.logger.Error("rendering page", "hash", hash, "error", err)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	opts, err := s.siteOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.page(w, opts, "", "", "writs, ideas and perspectives")
}

// handleWritPage renders the site with the writ's route active and counts
// the view. Members-only writs need a verified user.
func (s *Server) handleWritPage(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	wr, err := s.writs.QueryOne(r.Context(), writ.Query{Public: true, Slug: slug})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	u, _ := auth.UserFromContext(r.Context())
	if wr.MembersOnly && (u == nil || !u.Verified()) {
		s.writeError(w, r, auth.ErrUnauthorized)
		return
	}
	if err := s.writs.IncrementViewsBySlug(r.Context(), wr.Slug); err != nil {
		s.logger.Warn("counting view", "slug", slug, "error", err)
	}

	opts, err := s.siteOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.page(w, opts, wr.Route(), wr.Title, wr.Description)
}

type authRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	_, err := s.auth.Authenticate(r.Context(), req.Email, req.Username)
	switch {
	case errors.Is(err, auth.ErrInvalidUsernameOrEmail), errors.Is(err, auth.ErrEmailRateLimit):
	default:
		s.metrics.RecordMail("auth", err)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":  true,
		"msg": "check your email for a login link",
	})
}

// handleVerify consumes a magic link and sets the session cookie. Admins
// land in the editor.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	u, token, err := s.auth.Verify(r.Context(), chi.URLParam(r, "verifier"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	auth.SetCookie(w, token, s.auth.Tokens().TTL(), s.cookieOptions())

	target := "/"
	if u.IsAdmin() {
		target = "/" + site.RouteEditor
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleCheckUsername(w http.ResponseWriter, r *http.Request) {
	ok, err := s.auth.UsernameAvailable(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": ok})
}

func (s *Server) handleSubscribeToggle(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFromContext(r.Context())
	if err := s.auth.ToggleSubscriber(r.Context(), u); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"subscriber": u.Subscriber})
}

// handleSaveWrit creates or updates a writ. The author defaults to the
// signed-in admin.
func (s *Server) handleSaveWrit(w http.ResponseWriter, r *http.Request) {
	var wr writ.Writ
	if err := decodeJSON(w, r, &wr); err != nil {
		s.writeError(w, r, err)
		return
	}
	if wr.Author == "" {
		u, _ := auth.UserFromContext(r.Context())
		wr.Author = u.Username
	}
	if err := s.writs.Save(r.Context(), &wr); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &wr)
}

func (s *Server) handleQueryWrits(w http.ResponseWriter, r *http.Request) {
	var q writ.Query
	if err := decodeJSON(w, r, &q); err != nil {
		s.writeError(w, r, err)
		return
	}
	if q.One {
		wr, err := s.writs.QueryOne(r.Context(), q)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, wr)
		return
	}
	writs, err := s.writs.Query(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if writs == nil {
		writs = []*writ.Writ{}
	}
	writeJSON(w, http.StatusOK, writs)
}

// handleUploadFile streams a stored upload. Stores that serve themselves,
// like the disk store, handle the request directly.
func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	if h, ok := s.uploads.(http.Handler); ok {
		h.ServeHTTP(w, r)
		return
	}

	f, err := s.uploads.Open(r.Context(), path.Base(r.URL.Path))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if _, err := io.Copy(w, f.Reader); err != nil {
		s.logger.Warn("streaming upload", "key", f.Key, "error", err)
	}
}

// editorBackend serves the live editor from the writ store.
type editorBackend struct {
	writs  *writ.Store
	author string
}

func (b editorBackend) Writs(ctx context.Context) ([]*writ.Writ, error) {
	return b.writs.Query(ctx, writ.Query{EditorMode: true})
}

func (b editorBackend) Save(ctx context.Context, w *writ.Writ) error {
	if w.Author == "" {
		w.Author = b.author
	}
	return b.writs.Save(ctx, w)
}
