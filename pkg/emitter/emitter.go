// Package emitter is a typed publish/subscribe hub keyed by event name.
//
// Listeners are identified by the Handle returned when they subscribe, so
// they can be detached and re-armed without comparing functions:
//
//	e := emitter.New[*writ.Writ](nil)
//	h := e.On("edit", func(w *writ.Writ) { ... })
//	h.Off()
//	h.Once() // listen again, for one event only
//
// An Emitter is safe for concurrent use. Handlers run outside its lock and
// may subscribe, unsubscribe or emit.
package emitter

import (
	"slices"
	"sort"
	"sync"
)

// Scheduler defers work, typically onto a UI task queue.
type Scheduler interface {
	RunAsync(fn func())
}

// Handler receives an event payload.
type Handler[T any] func(T)

// Emitter dispatches payloads of type T to listeners by event name.
type Emitter[T any] struct {
	mu        sync.Mutex
	listeners map[string][]*Handle[T]
	sched     Scheduler
}

// New creates an Emitter. sched is used by EmitAsync; when nil, EmitAsync
// runs handlers on new goroutines.
func New[T any](sched Scheduler) *Emitter[T] {
	return &Emitter[T]{
		listeners: make(map[string][]*Handle[T]),
		sched:     sched,
	}
}

// Handle is a subscription.
type Handle[T any] struct {
	e      *Emitter[T]
	event  string
	fn     Handler[T]
	once   bool
	active bool
}

// On subscribes fn to event.
func (e *Emitter[T]) On(event string, fn Handler[T]) *Handle[T] {
	h := &Handle[T]{e: e, event: event, fn: fn}
	e.attach(h, false)
	return h
}

// Once subscribes fn to the next emission of event only.
func (e *Emitter[T]) Once(event string, fn Handler[T]) *Handle[T] {
	h := &Handle[T]{e: e, event: event, fn: fn}
	e.attach(h, true)
	return h
}

func (e *Emitter[T]) attach(h *Handle[T], once bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.detachLocked(h)
	h.once = once
	h.active = true
	e.listeners[h.event] = append(e.listeners[h.event], h)
}

func (e *Emitter[T]) detachLocked(h *Handle[T]) {
	if !h.active {
		return
	}
	h.active = false
	ls := slices.DeleteFunc(e.listeners[h.event], func(x *Handle[T]) bool { return x == h })
	if len(ls) == 0 {
		delete(e.listeners, h.event)
		return
	}
	e.listeners[h.event] = ls
}

// Off removes every listener of event.
func (e *Emitter[T]) Off(event string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, h := range e.listeners[event] {
		h.active = false
	}
	delete(e.listeners, event)
}

// take returns the handlers to call for event and disarms once-handlers.
func (e *Emitter[T]) take(event string) []Handler[T] {
	e.mu.Lock()
	defer e.mu.Unlock()
	ls := e.listeners[event]
	fns := make([]Handler[T], 0, len(ls))
	for _, h := range slices.Clone(ls) {
		fns = append(fns, h.fn)
		if h.once {
			e.detachLocked(h)
		}
	}
	return fns
}

// Emit calls every listener of event synchronously, in subscription order,
// and returns how many were called.
func (e *Emitter[T]) Emit(event string, v T) int {
	fns := e.take(event)
	for _, fn := range fns {
		fn(v)
	}
	return len(fns)
}

// EmitAsync delivers v to the listeners subscribed at call time, each in
// its own deferred task.
func (e *Emitter[T]) EmitAsync(event string, v T) {
	for _, fn := range e.take(event) {
		if e.sched != nil {
			e.sched.RunAsync(func() { fn(v) })
		} else {
			go fn(v)
		}
	}
}

// Listeners returns the number of listeners of event.
func (e *Emitter[T]) Listeners(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[event])
}

// Events returns the names of events that have listeners, sorted.
func (e *Emitter[T]) Events() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.listeners))
	for name := range e.listeners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Off detaches the handle. Safe to call more than once.
func (h *Handle[T]) Off() {
	h.e.mu.Lock()
	defer h.e.mu.Unlock()
	h.e.detachLocked(h)
}

// On re-subscribes the handle as a persistent listener.
func (h *Handle[T]) On() *Handle[T] {
	h.e.attach(h, false)
	return h
}

// Once re-subscribes the handle for a single emission.
func (h *Handle[T]) Once() *Handle[T] {
	h.e.attach(h, true)
	return h
}

// Active reports whether the handle is subscribed.
func (h *Handle[T]) Active() bool {
	h.e.mu.Lock()
	defer h.e.mu.Unlock()
	return h.active
}
