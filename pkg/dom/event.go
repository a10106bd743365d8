package dom

import "slices"

// Event is dispatched to nodes and bubbles up to the document.
type Event struct {
	Type          string
	Target        *Node
	CurrentTarget *Node

	// Detail carries custom event data.
	Detail any

	// Value is the form value reported with input and change events.
	Value string

	stopped   bool
	prevented bool
}

// StopPropagation stops the event from reaching further ancestors.
func (e *Event) StopPropagation() { e.stopped = true }

// PreventDefault marks the event as handled.
func (e *Event) PreventDefault() { e.prevented = true }

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool { return e.prevented }

// Listener is a registered event callback.
type Listener struct {
	typ  string
	fn   func(*Event)
	node *Node
	doc  *Document
	off  bool
}

// Off detaches the listener. It is safe to call more than once.
func (l *Listener) Off() {
	if l == nil || l.off {
		return
	}
	l.off = true
	if l.node != nil {
		l.node.listeners[l.typ] = slices.DeleteFunc(l.node.listeners[l.typ], func(x *Listener) bool { return x == l })
		return
	}
	l.doc.listeners[l.typ] = slices.DeleteFunc(l.doc.listeners[l.typ], func(x *Listener) bool { return x == l })
}

// On registers fn for events of type typ on n.
func (n *Node) On(typ string, fn func(*Event)) *Listener {
	l := &Listener{typ: typ, fn: fn, node: n, doc: n.doc}
	if n.listeners == nil {
		n.listeners = make(map[string][]*Listener)
	}
	n.listeners[typ] = append(n.listeners[typ], l)
	return l
}

// ListenerTypes returns the event types n listens for.
func (n *Node) ListenerTypes() []string {
	var types []string
	for typ, ls := range n.listeners {
		if len(ls) > 0 {
			types = append(types, typ)
		}
	}
	slices.Sort(types)
	return types
}

// Dispatch sends e to n and its ancestors, then to document listeners when
// n is connected. It returns false if a listener called PreventDefault.
func (n *Node) Dispatch(e *Event) bool {
	e.Target = n
	var path []*Node
	for p := n; p != nil; p = p.parent {
		path = append(path, p)
	}
	for _, p := range path {
		if e.stopped {
			break
		}
		e.CurrentTarget = p
		n.doc.invoke(p.listeners[e.Type], e)
	}
	if !e.stopped && n.IsConnected() {
		e.CurrentTarget = nil
		n.doc.invoke(n.doc.listeners[e.Type], e)
	}
	return !e.prevented
}

// Click dispatches a click event on n.
func (n *Node) Click() bool {
	return n.Dispatch(&Event{Type: "click"})
}

// Emit dispatches a custom event carrying detail.
func (n *Node) Emit(typ string, detail any) bool {
	return n.Dispatch(&Event{Type: typ, Detail: detail})
}

// On registers fn for events of type typ on the document itself. Events
// dispatched on connected nodes bubble here last.
func (d *Document) On(typ string, fn func(*Event)) *Listener {
	l := &Listener{typ: typ, fn: fn, doc: d}
	d.listeners[typ] = append(d.listeners[typ], l)
	return l
}

// Dispatch sends e to document listeners only.
func (d *Document) Dispatch(e *Event) bool {
	d.invoke(d.listeners[e.Type], e)
	return !e.prevented
}

func (d *Document) invoke(ls []*Listener, e *Event) {
	for _, l := range slices.Clone(ls) {
		if l.off {
			continue
		}
		d.call(l, e)
	}
}

func (d *Document) call(l *Listener, e *Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event listener panicked", "event", e.Type, "panic", r)
		}
	}()
	l.fn(e)
}
