package dom

import (
	"log/slog"
	"slices"
	"strconv"
)

// maxFlushTasks bounds a single Flush so a task that keeps rescheduling
// itself cannot wedge the owning event loop.
const maxFlushTasks = 10000

// Document is a live node tree with a location, a task queue and directives.
type Document struct {
	body     *Node
	location *Location
	seq      uint64

	tasks      []func()
	directives []*registeredDirective
	listeners  map[string][]*Listener
	observers  []*observer

	logger *slog.Logger
}

// Option configures a Document.
type Option func(*Document)

// WithLogger sets the logger used for directive and task failures.
func WithLogger(l *slog.Logger) Option {
	return func(d *Document) { d.logger = l }
}

// WithHash sets the initial location hash.
func WithHash(hash string) Option {
	return func(d *Document) { d.location.hash = normalizeHash(hash) }
}

// NewDocument creates an empty document with a <body> root.
func NewDocument(opts ...Option) *Document {
	d := &Document{
		listeners: make(map[string][]*Listener),
		logger:    slog.Default().With("component", "dom"),
	}
	d.location = &Location{doc: d}
	for _, opt := range opts {
		opt(d)
	}
	d.location.history = []string{d.location.hash}
	d.body = d.newNode(ElementNode, "body")
	return d
}

// Body returns the root element.
func (d *Document) Body() *Node { return d.body }

// Location returns the document location.
func (d *Document) Location() *Location { return d.location }

// CreateElement returns a detached element.
func (d *Document) CreateElement(tag string) *Node { return d.newNode(ElementNode, tag) }

// CreateText returns a detached text node.
func (d *Document) CreateText(s string) *Node {
	n := d.newNode(TextNode, "")
	n.text = s
	return n
}

// CreateRaw returns a detached raw HTML node.
func (d *Document) CreateRaw(html string) *Node {
	n := d.newNode(RawNode, "")
	n.text = html
	return n
}

func (d *Document) newNode(kind NodeKind, tag string) *Node {
	d.seq++
	return &Node{kind: kind, tag: tag, id: "n" + strconv.FormatUint(d.seq, 10), doc: d}
}

// NodeByID finds a connected node by its node id.
func (d *Document) NodeByID(id string) *Node {
	if d.body.id == id {
		return d.body
	}
	return d.body.Find(func(n *Node) bool { return n.id == id })
}

// Task queue

// RunAsync schedules fn to run at the next task boundary.
func (d *Document) RunAsync(fn func()) {
	if fn != nil {
		d.tasks = append(d.tasks, fn)
	}
}

// Pending returns the number of queued tasks.
func (d *Document) Pending() int { return len(d.tasks) }

// Flush runs queued tasks, including tasks queued while flushing, until the
// queue is empty. It returns the number of tasks run.
func (d *Document) Flush() int {
	ran := 0
	for len(d.tasks) > 0 {
		if ran >= maxFlushTasks {
			d.logger.Error("task queue did not drain", "dropped", len(d.tasks))
			d.tasks = nil
			break
		}
		task := d.tasks[0]
		d.tasks = d.tasks[1:]
		d.runTask(task)
		ran++
	}
	return ran
}

func (d *Document) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("task panicked", "panic", r)
		}
	}()
	task()
}

// Mutation observation

// Observe registers fn to be called with every connected node whose
// attributes or children change. The returned func unregisters it.
func (d *Document) Observe(fn func(*Node)) func() {
	o := &observer{fn: fn}
	d.observers = append(d.observers, o)
	return func() {
		if i := slices.Index(d.observers, o); i >= 0 {
			d.observers = slices.Delete(d.observers, i, i+1)
		}
	}
}

type observer struct {
	fn func(*Node)
}

func (d *Document) notify(n *Node) {
	for _, o := range d.observers {
		o.fn(n)
	}
}
