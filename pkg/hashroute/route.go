package hashroute

import (
	"slices"

	"github.com/sauldoescode/saul.app/pkg/dom"
	"github.com/sauldoescode/saul.app/pkg/vdom"
)

// Consumer is notified when its route is activated or deactivated.
type Consumer interface {
	Consume(route *Route, active bool, name string)
}

// ConsumerFunc adapts a function to Consumer.
type ConsumerFunc func(route *Route, active bool, name string)

func (f ConsumerFunc) Consume(route *Route, active bool, name string) { f(route, active, name) }

// Revoker is implemented by consumers that hold resources which must be
// released when their route is revoked.
type Revoker interface {
	Revoke()
}

// Route is a named entry in the route table.
type Route struct {
	name      string
	view      []*dom.Node
	hasView   bool
	consumers []*consumerEntry
}

type consumerEntry struct {
	c Consumer
}

// Name returns the '#'-prefixed route name.
func (r *Route) Name() string { return r.name }

// View returns the route's view nodes and whether a view is registered.
func (r *Route) View() ([]*dom.Node, bool) { return r.view, r.hasView }

// ConsumerCount returns the number of registered consumers.
func (r *Route) ConsumerCount() int { return len(r.consumers) }

func (r *Route) removeEntry(e *consumerEntry) bool {
	i := slices.Index(r.consumers, e)
	if i < 0 {
		return false
	}
	r.consumers = slices.Delete(r.consumers, i, i+1)
	return true
}

// snapshot returns the consumers in registration order, safe to iterate
// while consumers register or cancel.
func (r *Route) snapshot() []Consumer {
	out := make([]Consumer, len(r.consumers))
	for i, e := range r.consumers {
		out[i] = e.c
	}
	return out
}

type targetKind uint8

const (
	targetNone targetKind = iota
	targetView
	targetTemplate
	targetConsumer
)

// Target is what Register attaches to a route: a view or a consumer.
type Target struct {
	kind     targetKind
	view     []*dom.Node
	template *dom.Node
	consumer Consumer
}

// ViewOf is a static view made of live nodes.
func ViewOf(nodes ...*dom.Node) Target {
	return Target{kind: targetView, view: nodes}
}

// ViewOfVNodes builds vdom nodes in doc and uses them as a static view.
func ViewOfVNodes(doc *dom.Document, vnodes ...*vdom.VNode) Target {
	return ViewOf(doc.Build(vnodes...)...)
}

// TemplateView uses a <template> element's content as the view. The
// template is removed from its parent when registered.
func TemplateView(tpl *dom.Node) Target {
	return Target{kind: targetTemplate, template: tpl}
}

// ConsumerOf registers c as a consumer.
func ConsumerOf(c Consumer) Target {
	if c == nil {
		return Target{}
	}
	return Target{kind: targetConsumer, consumer: c}
}

// Subscription is returned for consumer registrations.
type Subscription struct {
	router *Router
	route  string
	entry  *consumerEntry
	done   bool
}

// Cancel removes the consumer from its route. Safe on a nil Subscription
// and safe to call more than once.
func (s *Subscription) Cancel() {
	if s == nil || s.done {
		return
	}
	s.done = true
	if route, ok := s.router.routes[s.route]; ok {
		route.removeEntry(s.entry)
	}
}

// Route returns the name of the route the subscription belongs to.
func (s *Subscription) Route() string { return s.route }

// Normalize returns name with a leading '#'. The empty name becomes "#".
func Normalize(name string) string {
	if name == "" || name[0] != '#' {
		return "#" + name
	}
	return name
}
