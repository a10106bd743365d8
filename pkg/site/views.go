package site

import (
	"strings"

	"github.com/sauldoescode/saul.app/pkg/ui"
	"github.com/sauldoescode/saul.app/pkg/vdom"
	"github.com/sauldoescode/saul.app/pkg/writ"
)

// Route names of the static views.
const (
	RouteHome   = "#home"
	RouteWrits  = "#writs"
	RouteAbout  = "#about"
	RouteEditor = "#editor"
)

// recentWrits is how many writs the home view links to.
const recentWrits = 5

const dateLayout = "2 Jan 2006"

// Layout builds the page body: the sidebar, the route-active main host and
// one template per static view and per writ.
func Layout(opts Options) []*vdom.VNode {
	nodes := []*vdom.VNode{
		SideBar(opts),
		vdom.Main(vdom.RouteActive()),
		vdom.Template(vdom.Route(strings.TrimPrefix(RouteHome, "#")), HomeView(opts)),
		vdom.Template(vdom.Route(strings.TrimPrefix(RouteWrits, "#")), WritsView(opts.Writs)),
		vdom.Template(vdom.Route(strings.TrimPrefix(RouteAbout, "#")), AboutView(opts)),
	}
	for _, w := range opts.Writs {
		nodes = append(nodes, vdom.Template(vdom.Route(strings.TrimPrefix(w.Route(), "#")), WritView(w)))
	}
	return nodes
}

// SideBar builds the navigation column.
func SideBar(opts Options) *vdom.VNode {
	return vdom.CustomElement(ui.TagSideBar, vdom.Open(),
		vdom.Div(vdom.Class("toggler"), vdom.AriaLabel("toggle navigation")),
		vdom.Header(vdom.Class("sb-brand"), opts.appName()),
		navItem(RouteHome, "home"),
		navItem(RouteWrits, "writs"),
		vdom.CustomElement(ui.TagMenu, vdom.Class("sb-writs"),
			vdom.CustomElement(ui.TagMenuTitle, "recent"),
			writItems(limit(opts.Writs, recentWrits)),
		),
		navItem(RouteAbout, "about"),
		vdom.If(opts.admin(), navItem(RouteEditor, "editor")),
		vdom.When(opts.User != nil, func() *vdom.VNode {
			return vdom.Footer(vdom.Class("sb-user"), "hi ", vdom.Strong(opts.User.Username))
		}),
	)
}

func navItem(route, label string) *vdom.VNode {
	return vdom.CustomElement(ui.TagItem, vdom.RouteLink(route), label)
}

func writItems(writs []*writ.Writ) []*vdom.VNode {
	return vdom.Range(writs, func(w *writ.Writ, _ int) *vdom.VNode {
		return vdom.CustomElement(ui.TagItem, vdom.RouteLink(w.Route()), vdom.Data("slug", w.Slug), w.Title)
	})
}

// HomeView is the landing page.
func HomeView(opts Options) *vdom.VNode {
	links := vdom.Range(limit(opts.Writs, recentWrits), func(w *writ.Writ, _ int) *vdom.VNode {
		return writLink(w)
	})
	return vdom.Fragment(
		vdom.Header(vdom.Class("hero"),
			vdom.H1(opts.appName()),
			vdom.P(vdom.Class("tagline"), "writs, ideas and perspectives"),
		),
		vdom.IfElse(len(links) > 0,
			ui.LinkList("recent writs", links...),
			vdom.P(vdom.Class("empty"), "nothing published yet"),
		),
	)
}

// WritsView lists every routed writ, newest first as given.
func WritsView(writs []*writ.Writ) *vdom.VNode {
	return vdom.Section(vdom.Class("writs"),
		vdom.H2("writs"),
		vdom.IfElse(len(writs) > 0,
			vdom.Div(vdom.Class("writ-list"), vdom.Range(writs, func(w *writ.Writ, _ int) *vdom.VNode {
				return writCard(w)
			})),
			vdom.P(vdom.Class("empty"), "nothing published yet"),
		),
	)
}

func writCard(w *writ.Writ) *vdom.VNode {
	return vdom.Article(vdom.Class("writ-card"), vdom.Data("slug", w.Slug),
		vdom.H3(writLink(w)),
		vdom.If(w.Description != "", vdom.P(w.Description)),
		writMeta(w),
	)
}

func writLink(w *writ.Writ) *vdom.VNode {
	return vdom.A(vdom.Href(w.Route()), vdom.RouteLink(w.Route()), w.Title)
}

func writMeta(w *writ.Writ) *vdom.VNode {
	created := w.CreatedAt()
	return vdom.Div(vdom.Class("writ-meta"),
		vdom.If(w.Author != "", vdom.Span(vdom.Class("author"), w.Author)),
		vdom.Time(vdom.DateTime(created.UTC().Format("2006-01-02")), created.UTC().Format(dateLayout)),
		vdom.If(w.MembersOnly, vdom.Span(vdom.Class("members-only"), "members")),
		vdom.If(len(w.Tags) > 0, vdom.Ul(vdom.Class("tags"), vdom.Range(w.Tags, func(tag string, _ int) *vdom.VNode {
			return vdom.Li(tag)
		}))),
	)
}

// WritView renders one writ with its stored HTML content.
func WritView(w *writ.Writ) *vdom.VNode {
	mod, edited := w.ModifiedAt()
	return vdom.Article(vdom.Class("writ"), vdom.Data("slug", w.Slug),
		vdom.Header(
			vdom.H1(w.Title),
			writMeta(w),
			vdom.If(edited, vdom.Small(vdom.Class("edited"), "edited "+mod.UTC().Format(dateLayout))),
		),
		vdom.Section(vdom.Class("content"), vdom.Raw(w.Content)),
		vdom.If(w.Injection != "", vdom.Raw(w.Injection)),
	)
}

// AboutView describes the site.
func AboutView(opts Options) *vdom.VNode {
	return vdom.Section(vdom.Class("about"),
		vdom.H2("about"),
		vdom.P(opts.appName()+" is a small place for writing things down."),
		ui.LinkList("elsewhere",
			vdom.A(vdom.Href("https://github.com/sauldoescode"), "github"),
		),
	)
}

func limit(writs []*writ.Writ, n int) []*writ.Writ {
	if len(writs) > n {
		return writs[:n]
	}
	return writs
}
