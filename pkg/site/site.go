package site

import (
	"context"
	"log/slog"
	"slices"

	"github.com/sauldoescode/saul.app/pkg/auth"
	"github.com/sauldoescode/saul.app/pkg/dom"
	"github.com/sauldoescode/saul.app/pkg/hashroute"
	"github.com/sauldoescode/saul.app/pkg/ui"
	"github.com/sauldoescode/saul.app/pkg/writ"
)

// Options configures a mounted site.
type Options struct {
	// AppName is shown in the sidebar and hero.
	AppName string

	// Writs are routed as #writ-<slug>, newest first.
	Writs []*writ.Writ

	// User is the signed-in user, or nil.
	User *auth.User

	// Editor backs the #editor area. It is only mounted for admins.
	Editor EditorBackend

	// Context bounds editor backend calls.
	Context context.Context

	Logger *slog.Logger
}

func (o Options) appName() string {
	if o.AppName == "" {
		return "saul.app"
	}
	return o.AppName
}

func (o Options) admin() bool {
	return o.User != nil && o.User.IsAdmin() && o.Editor != nil
}

// Site is the mounted blog UI of one document.
type Site struct {
	doc     *dom.Document
	router  *hashroute.Router
	sidebar *ui.SideBar
	main    *dom.Node
	opts    Options
	writs   []*writ.Writ
	editor  *Editor
	logger  *slog.Logger
}

// Mount builds the layout into doc's body. router must have been created by
// hashroute.Install on doc so that the route directives are live. An empty
// location hash is replaced with #home.
func Mount(doc *dom.Document, router *hashroute.Router, opts Options) *Site {
	if opts.Logger == nil {
		opts.Logger = slog.Default().With("component", "site")
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	opts.Writs = Visible(opts.Writs, opts.User)

	s := &Site{
		doc:    doc,
		router: router,
		opts:   opts,
		writs:  slices.Clone(opts.Writs),
		logger: opts.Logger,
	}

	body := doc.Body()
	body.Append(doc.Build(Layout(opts)...)...)
	s.main = body.Find(dom.ByTag("main"))
	s.sidebar = ui.NewSideBar(body.Find(dom.ByTag(ui.TagSideBar)))

	if opts.admin() {
		s.editor = newEditor(s, opts.Editor)
		body.Append(s.editor.el)
		router.Register(RouteEditor, hashroute.ConsumerOf(s.editor))
	}

	if doc.Location().Hash() == "" {
		doc.Location().Replace(RouteHome)
	}
	return s
}

// Visible filters writs down to the ones user may read: public writs, and
// members-only writs for verified users.
func Visible(writs []*writ.Writ, user *auth.User) []*writ.Writ {
	member := user != nil && user.Verified()
	out := make([]*writ.Writ, 0, len(writs))
	for _, w := range writs {
		if !w.Public {
			continue
		}
		if w.MembersOnly && !member {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Router returns the site's router.
func (s *Site) Router() *hashroute.Router { return s.router }

// SideBar returns the sidebar behaviour.
func (s *Site) SideBar() *ui.SideBar { return s.sidebar }

// Editor returns the editor, or nil for non-admin sessions.
func (s *Site) Editor() *Editor { return s.editor }

// Writs returns the routed writs.
func (s *Site) Writs() []*writ.Writ { return slices.Clone(s.writs) }

// AddWrit routes w as #writ-<slug> and lists it. A writ already routed
// under the same slug is replaced. Writs the user may not read are ignored.
// Activation converges asynchronously, so a deep link to the new writ
// resolves once the document's task queue runs.
func (s *Site) AddWrit(w *writ.Writ) bool {
	if len(Visible([]*writ.Writ{w}, s.opts.User)) == 0 {
		return false
	}
	if i := s.index(w.Slug); i >= 0 {
		s.writs[i] = w
	} else {
		s.writs = slices.Insert(s.writs, 0, w)
	}

	s.router.Register(w.Route(), hashroute.ViewOf(s.doc.Build(WritView(w))...))
	s.refreshLists()
	s.logger.Debug("writ routed", "route", w.Route())
	return true
}

// RemoveWrit revokes the writ's route and unlists it.
func (s *Site) RemoveWrit(slug string) bool {
	i := s.index(slug)
	if i < 0 {
		return false
	}
	w := s.writs[i]
	s.writs = slices.Delete(s.writs, i, i+1)
	wasActive := s.router.Active() == w.Route()
	s.router.Revoke(w.Route())
	s.refreshLists()
	if wasActive {
		s.main.Clear()
		s.router.Activate(RouteHome)
	}
	return true
}

func (s *Site) index(slug string) int {
	return slices.IndexFunc(s.writs, func(w *writ.Writ) bool { return w.Slug == slug })
}

// refreshLists rebuilds the views and sidebar entries that list writs.
func (s *Site) refreshLists() {
	opts := s.opts
	opts.Writs = s.writs

	s.router.Register(RouteHome, hashroute.ViewOf(s.doc.Build(HomeView(opts))...))
	s.router.Register(RouteWrits, hashroute.ViewOf(s.doc.Build(WritsView(s.writs))...))

	if menu := s.doc.Body().Find(dom.ByClass("sb-writs")); menu != nil {
		for _, item := range menu.FindAll(dom.ByTag(ui.TagItem)) {
			item.Remove()
		}
		menu.Append(s.doc.Build(writItems(limit(s.writs, recentWrits))...)...)
	}
}
