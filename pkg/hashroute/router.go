package hashroute

import (
	"log/slog"
	"slices"
	"sort"

	apperrors "github.com/sauldoescode/saul.app/internal/errors"
	"github.com/sauldoescode/saul.app/pkg/dom"
)

// Location is the URL fragment source.
type Location interface {
	Hash() string
	SetHash(hash string)
}

// Scheduler runs functions at the next task boundary of the owning thread.
type Scheduler interface {
	RunAsync(fn func())
}

// Host is an element that can display a view. *dom.Node satisfies it.
type Host interface {
	Clear()
	Mount(nodes ...*dom.Node)
	IsTemplate() bool
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the router's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithObserver registers a transition hook at construction time.
func WithObserver(fn func(from, to string)) Option {
	return func(r *Router) { r.Observe(fn) }
}

// Router is a hash route table with a single active route.
type Router struct {
	loc   Location
	sched Scheduler

	routes  map[string]*Route
	active  string
	named   []*Binding
	unnamed []*Binding

	observers []func(from, to string)
	closers   []func()
	logger    *slog.Logger
}

// New creates a Router reading and writing loc and deferring work to sched.
func New(loc Location, sched Scheduler, opts ...Option) *Router {
	r := &Router{
		loc:    loc,
		sched:  sched,
		routes: make(map[string]*Route),
		logger: slog.Default().With("component", "hashroute"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register attaches target to the named route, creating the route if it
// does not exist. A view replaces any previous view. A consumer is appended
// to the route's consumers and the returned Subscription removes it again;
// view registrations return nil. Either way an activation from the current
// location is scheduled, so a route registered for the current hash
// becomes active once the caller yields. A view registered for the active
// route is mounted into its bound hosts at once, since activation would be
// a no-op.
func (r *Router) Register(name string, target Target) *Subscription {
	name = Normalize(name)

	var sub *Subscription
	switch target.kind {
	case targetView, targetTemplate:
		view := target.view
		if target.kind == targetTemplate {
			view = target.template.Content()
			target.template.Remove()
		}
		route := r.ensure(name)
		route.view = view
		route.hasView = true
		if name == r.active {
			r.remount(route)
		}
	case targetConsumer:
		route := r.ensure(name)
		entry := &consumerEntry{c: target.consumer}
		route.consumers = append(route.consumers, entry)
		sub = &Subscription{router: r, route: name, entry: entry}
	default:
		r.logger.Warn("register called with an empty target", "route", name)
		return nil
	}

	r.sched.RunAsync(func() { r.Activate("") })
	return sub
}

// remount re-renders every binding currently showing route.
func (r *Router) remount(route *Route) {
	for _, b := range slices.Clone(r.named) {
		if b.name == route.name {
			b.Consume(route, true, route.name)
		}
	}
	for _, b := range slices.Clone(r.unnamed) {
		b.Consume(route, true, route.name)
	}
}

func (r *Router) ensure(name string) *Route {
	route, ok := r.routes[name]
	if !ok {
		route = &Route{name: name}
		r.routes[name] = route
	}
	return route
}

// Bind makes host display the named route's view while that route is
// active. An empty name binds host to whichever route is active. Template
// hosts cannot display views and yield a nil Binding.
//
// If the route (or, for an empty name, any route) is already active the
// host is rendered immediately.
func (r *Router) Bind(name string, host Host) *Binding {
	if host == nil {
		return nil
	}
	if host.IsTemplate() {
		r.logger.Warn("bind rejected", "route", name, "error", apperrors.New("E002"))
		return nil
	}
	b := &Binding{router: r, host: host}
	if name != "" {
		b.name = Normalize(name)
		b.sub = r.Register(b.name, ConsumerOf(b))
		r.named = append(r.named, b)
	} else {
		r.unnamed = append(r.unnamed, b)
	}

	if r.Activate("") {
		return b
	}
	if b.name == "" && r.active != "" {
		if route, ok := r.routes[r.active]; ok {
			b.Consume(route, true, r.active)
		}
	} else if b.name != "" && b.name == r.active {
		b.Consume(r.routes[r.active], true, r.active)
	}
	return b
}

// Activate makes the named route active. An empty name means the current
// location hash, or "#" when the hash is empty. It reports whether a
// transition happened; unknown routes and the already active route are
// ignored.
func (r *Router) Activate(name string) bool {
	current := r.loc.Hash()
	if current == "" {
		current = "#"
	}
	if name == "" {
		name = current
	}
	name = Normalize(name)

	route, ok := r.routes[name]
	if !ok {
		r.logger.Debug("activate ignored", "route", name, "error", apperrors.New("E001"))
		return false
	}
	if name == r.active {
		return false
	}

	if name != current {
		r.loc.SetHash(name)
	}

	for _, c := range route.snapshot() {
		c.Consume(route, true, name)
	}
	for _, b := range slices.Clone(r.unnamed) {
		b.Consume(route, true, name)
	}
	prevName := r.active
	if prev, ok := r.routes[prevName]; ok && prevName != "" {
		for _, c := range prev.snapshot() {
			c.Consume(prev, false, prevName)
		}
	}
	r.active = name

	for _, fn := range r.observers {
		fn(prevName, name)
	}
	return true
}

// HashChanged re-derives the active route from the location. It is the
// body of the document's hashchange listener.
func (r *Router) HashChanged() {
	r.Activate("")
}

// Revoke deletes the named route. Consumers implementing Revoker are
// revoked first. Revoking the active route leaves no route active.
func (r *Router) Revoke(name string) {
	name = Normalize(name)
	route, ok := r.routes[name]
	if !ok {
		return
	}
	for _, c := range route.snapshot() {
		if rv, ok := c.(Revoker); ok {
			rv.Revoke()
		}
	}
	route.consumers = nil
	delete(r.routes, name)
	if r.active == name {
		r.active = ""
	}
}

// Active returns the active route name, or "" if none.
func (r *Router) Active() string { return r.active }

// Route looks up a route by name.
func (r *Router) Route(name string) (*Route, bool) {
	route, ok := r.routes[Normalize(name)]
	return route, ok
}

// Routes returns the registered route names, sorted.
func (r *Router) Routes() []string {
	names := make([]string, 0, len(r.routes))
	for name := range r.routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bindings returns the number of named and unnamed host bindings.
func (r *Router) Bindings() (named, unnamed int) {
	return len(r.named), len(r.unnamed)
}

// Observe registers fn to be called after every transition. from is "" on
// the first activation.
func (r *Router) Observe(fn func(from, to string)) {
	if fn != nil {
		r.observers = append(r.observers, fn)
	}
}

// Close releases listeners and directives installed with the router.
func (r *Router) Close() {
	closers := r.closers
	r.closers = nil
	for _, c := range closers {
		c()
	}
}
