package hashroute

import (
	"github.com/sauldoescode/saul.app/pkg/dom"
)

// Directive attribute names.
const (
	AttrRoute       = "route"
	AttrRouteActive = "route-active"
	AttrRouteLink   = "route-link"
)

type bindKey struct {
	el   *dom.Node
	attr string
}

type directives struct {
	router   *Router
	doc      *dom.Document
	bindings map[bindKey]*Binding
	links    map[*dom.Node]*dom.Listener
}

// Install creates a Router on doc's location and task queue, follows the
// document's hashchange events and registers the route, route-active and
// route-link directives. Elements already in the document are initialised
// immediately. Router.Close undoes all of it.
func Install(doc *dom.Document, opts ...Option) *Router {
	r := New(doc.Location(), doc, opts...)
	d := &directives{
		router:   r,
		doc:      doc,
		bindings: make(map[bindKey]*Binding),
		links:    make(map[*dom.Node]*dom.Listener),
	}

	hashchange := doc.On("hashchange", func(*dom.Event) { r.HashChanged() })
	r.closers = append(r.closers,
		hashchange.Off,
		doc.RegisterDirective(AttrRoute, dom.DirectiveFuncs{
			InitFunc:   d.routeInit,
			UpdateFunc: d.routeUpdate,
			RemoveFunc: func(el *dom.Node, _ string) { d.unbind(el, AttrRoute) },
		}),
		doc.RegisterDirective(AttrRouteActive, dom.DirectiveFuncs{
			InitFunc:   func(el *dom.Node, _ string) { d.bind(el, AttrRouteActive, "") },
			RemoveFunc: func(el *dom.Node, _ string) { d.unbind(el, AttrRouteActive) },
		}),
		doc.RegisterDirective(AttrRouteLink, dom.DirectiveFuncs{
			InitFunc:   d.linkInit,
			UpdateFunc: func(el *dom.Node, _, _ string) { d.selfClick(el) },
			RemoveFunc: d.linkRemove,
		}),
	)
	return r
}

func (d *directives) routeInit(el *dom.Node, name string) {
	if el.IsTemplate() {
		d.router.Register(name, TemplateView(el))
		return
	}
	d.bind(el, AttrRoute, name)
}

func (d *directives) routeUpdate(el *dom.Node, name, _ string) {
	d.unbind(el, AttrRoute)
	d.routeInit(el, name)
}

func (d *directives) bind(el *dom.Node, attr, name string) {
	if b := d.router.Bind(name, el); b != nil {
		d.bindings[bindKey{el, attr}] = b
	}
}

func (d *directives) unbind(el *dom.Node, attr string) {
	key := bindKey{el, attr}
	if b, ok := d.bindings[key]; ok {
		b.Revoke()
		delete(d.bindings, key)
	}
}

func (d *directives) linkInit(el *dom.Node, _ string) {
	d.links[el] = el.On("click", func(e *dom.Event) {
		target, _ := el.Attr(AttrRouteLink)
		e.PreventDefault()
		d.router.Activate(target)
	})
	d.selfClick(el)
}

// selfClick clicks a link whose target is already the current hash, once
// the current task finishes, so click side effects (such as sidebar
// selection) reflect a deep link.
func (d *directives) selfClick(el *dom.Node) {
	d.doc.RunAsync(func() {
		target, ok := el.Attr(AttrRouteLink)
		if !ok || !el.IsConnected() {
			return
		}
		current := d.doc.Location().Hash()
		if current == "" {
			current = "#"
		}
		if current == Normalize(target) {
			el.Click()
		}
	})
}

func (d *directives) linkRemove(el *dom.Node, _ string) {
	if l, ok := d.links[el]; ok {
		l.Off()
		delete(d.links, el)
	}
}
