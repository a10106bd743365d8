package hashroute

import "slices"

// Binding keeps a host element in sync with a route.
type Binding struct {
	router  *Router
	host    Host
	name    string
	sub     *Subscription
	revoked bool
}

// Consume clears the host and, when the route is active and has a view,
// mounts the view into it.
func (b *Binding) Consume(route *Route, active bool, _ string) {
	if b.revoked {
		return
	}
	b.host.Clear()
	if active && route.hasView {
		b.host.Mount(route.view...)
	}
}

// Revoke detaches the binding from its route. The host keeps whatever it
// currently displays. Safe to call more than once.
func (b *Binding) Revoke() {
	if b == nil || b.revoked {
		return
	}
	b.revoked = true
	r := b.router
	if b.name != "" {
		b.sub.Cancel()
		r.named = slices.DeleteFunc(r.named, func(x *Binding) bool { return x == b })
		return
	}
	r.unnamed = slices.DeleteFunc(r.unnamed, func(x *Binding) bool { return x == b })
}

// Name returns the bound route name, or "" for an unnamed binding.
func (b *Binding) Name() string { return b.name }

// Host returns the bound host.
func (b *Binding) Host() Host { return b.host }
