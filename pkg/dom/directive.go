package dom

import "slices"

// Directive reacts to an attribute on connected elements.
type Directive interface {
	// Init runs when an element carrying the attribute is connected, or
	// when the attribute is added to a connected element.
	Init(el *Node, value string)
	// Update runs when the attribute value changes on a connected element.
	Update(el *Node, value, old string)
	// Remove runs when the attribute is removed or the element disconnected.
	Remove(el *Node, value string)
}

// DirectiveFuncs adapts plain functions to Directive. Nil funcs are skipped.
type DirectiveFuncs struct {
	InitFunc   func(el *Node, value string)
	UpdateFunc func(el *Node, value, old string)
	RemoveFunc func(el *Node, value string)
}

func (f DirectiveFuncs) Init(el *Node, value string) {
	if f.InitFunc != nil {
		f.InitFunc(el, value)
	}
}

func (f DirectiveFuncs) Update(el *Node, value, old string) {
	if f.UpdateFunc != nil {
		f.UpdateFunc(el, value, old)
	}
}

func (f DirectiveFuncs) Remove(el *Node, value string) {
	if f.RemoveFunc != nil {
		f.RemoveFunc(el, value)
	}
}

type registeredDirective struct {
	name string
	d    Directive
}

// RegisterDirective registers d for the attribute name and initialises it
// on every connected element that already carries the attribute. The
// returned func unregisters the directive, running Remove on each element
// it was initialised on.
func (d *Document) RegisterDirective(name string, dir Directive) func() {
	rd := &registeredDirective{name: name, d: dir}
	d.directives = append(d.directives, rd)
	d.body.walk(func(n *Node) {
		d.initDirective(n, rd)
	})
	return func() {
		i := slices.Index(d.directives, rd)
		if i < 0 {
			return
		}
		d.directives = slices.Delete(d.directives, i, i+1)
		d.body.walk(func(n *Node) {
			d.removeDirective(n, rd)
		})
	}
}

func (d *Document) directive(name string) *registeredDirective {
	for _, rd := range d.directives {
		if rd.name == name {
			return rd
		}
	}
	return nil
}

func (d *Document) initDirective(n *Node, rd *registeredDirective) {
	if n.kind != ElementNode || !n.IsConnected() {
		return
	}
	if _, done := n.inited[rd.name]; done {
		return
	}
	value, ok := n.Attr(rd.name)
	if !ok {
		return
	}
	d.guard(rd.name, "init", func() { rd.d.Init(n, value) })
	// An element that detached itself during Init never gets a Remove.
	if n.IsConnected() && n.HasAttr(rd.name) {
		if n.inited == nil {
			n.inited = make(map[string]string)
		}
		n.inited[rd.name] = value
	}
}

func (d *Document) removeDirective(n *Node, rd *registeredDirective) {
	value, ok := n.inited[rd.name]
	if !ok {
		return
	}
	delete(n.inited, rd.name)
	d.guard(rd.name, "remove", func() { rd.d.Remove(n, value) })
}

func (d *Document) guard(name, phase string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("directive panicked", "directive", name, "phase", phase, "panic", r)
		}
	}()
	fn()
}

// connected initialises directives on n and its descendants.
func (d *Document) connected(n *Node) {
	if len(d.directives) == 0 {
		return
	}
	n.walk(func(c *Node) {
		for _, rd := range slices.Clone(d.directives) {
			d.initDirective(c, rd)
		}
	})
}

// disconnected tears down directives on n and its descendants.
func (d *Document) disconnected(n *Node) {
	n.walk(func(c *Node) {
		for _, rd := range slices.Clone(d.directives) {
			d.removeDirective(c, rd)
		}
	})
}

func (d *Document) attrChanged(n *Node, name, value, old string, existed bool) {
	if !n.IsConnected() {
		return
	}
	rd := d.directive(name)
	if rd == nil {
		return
	}
	prev, inited := n.inited[name]
	if !inited {
		d.initDirective(n, rd)
		return
	}
	if existed && prev == value {
		return
	}
	n.inited[name] = value
	d.guard(name, "update", func() { rd.d.Update(n, value, prev) })
}

func (d *Document) attrRemoved(n *Node, name, _ string) {
	if !n.IsConnected() {
		return
	}
	if rd := d.directive(name); rd != nil {
		d.removeDirective(n, rd)
	}
}
