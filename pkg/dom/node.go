package dom

import (
	"slices"
	"strings"
)

// NodeKind discriminates node types.
type NodeKind uint8

const (
	ElementNode NodeKind = iota
	TextNode
	RawNode // trusted HTML
)

type attribute struct {
	name  string
	value string
}

// Node is an element, a text node or a raw HTML node.
type Node struct {
	kind     NodeKind
	id       string
	tag      string
	text     string
	value    string
	attrs    []attribute
	parent   *Node
	children []*Node
	content  []*Node // <template> content, never connected

	listeners map[string][]*Listener
	inited    map[string]string // directive name -> value at init
	doc       *Document
}

// Kind returns the node kind.
func (n *Node) Kind() NodeKind { return n.kind }

// ID returns the document-unique node id ("n<seq>").
func (n *Node) ID() string { return n.id }

// Tag returns the lower-case tag name of an element.
func (n *Node) Tag() string { return n.tag }

// Document returns the owner document.
func (n *Node) Document() *Document { return n.doc }

// Parent returns the parent node or nil.
func (n *Node) Parent() *Node { return n.parent }

// Children returns a copy of the child list.
func (n *Node) Children() []*Node { return slices.Clone(n.children) }

// Content returns the template content of a <template> element.
func (n *Node) Content() []*Node { return slices.Clone(n.content) }

// IsTemplate reports whether n is a <template> element.
func (n *Node) IsTemplate() bool { return n.kind == ElementNode && n.tag == "template" }

// IsConnected reports whether n is attached to its document's body.
func (n *Node) IsConnected() bool {
	if n.doc == nil {
		return false
	}
	for p := n; p != nil; p = p.parent {
		if p == n.doc.body {
			return true
		}
	}
	return false
}

// Attributes

// Attr returns the attribute value and whether it is present.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.attrs {
		if a.name == name {
			return a.value, true
		}
	}
	return "", false
}

// HasAttr reports whether the attribute is present.
func (n *Node) HasAttr(name string) bool {
	_, ok := n.Attr(name)
	return ok
}

// AttrNames returns attribute names in insertion order.
func (n *Node) AttrNames() []string {
	names := make([]string, len(n.attrs))
	for i, a := range n.attrs {
		names[i] = a.name
	}
	return names
}

// SetAttr sets an attribute. Setting the current value is a no-op.
func (n *Node) SetAttr(name, value string) {
	if n.kind != ElementNode {
		return
	}
	for i, a := range n.attrs {
		if a.name == name {
			if a.value == value {
				return
			}
			n.attrs[i].value = value
			n.changed(n)
			n.doc.attrChanged(n, name, value, a.value, true)
			return
		}
	}
	n.attrs = append(n.attrs, attribute{name: name, value: value})
	n.changed(n)
	n.doc.attrChanged(n, name, value, "", false)
}

// RemoveAttr removes an attribute if present.
func (n *Node) RemoveAttr(name string) {
	for i, a := range n.attrs {
		if a.name == name {
			n.attrs = slices.Delete(n.attrs, i, i+1)
			n.changed(n)
			n.doc.attrRemoved(n, name, a.value)
			return
		}
	}
}

// ToggleAttr flips a boolean attribute and returns whether it is now set.
func (n *Node) ToggleAttr(name string) bool {
	if n.HasAttr(name) {
		n.RemoveAttr(name)
		return false
	}
	n.SetAttr(name, "")
	return true
}

// Classes

// HasClass reports whether the class list contains class.
func (n *Node) HasClass(class string) bool {
	v, _ := n.Attr("class")
	return slices.Contains(strings.Fields(v), class)
}

// AddClass adds class if missing.
func (n *Node) AddClass(class string) {
	if !n.HasClass(class) {
		v, _ := n.Attr("class")
		n.SetAttr("class", strings.TrimSpace(v+" "+class))
	}
}

// RemoveClass removes class if present.
func (n *Node) RemoveClass(class string) {
	v, ok := n.Attr("class")
	if !ok {
		return
	}
	fields := slices.DeleteFunc(strings.Fields(v), func(c string) bool { return c == class })
	n.SetAttr("class", strings.Join(fields, " "))
}

// ToggleClass flips class and returns whether it is now present.
func (n *Node) ToggleClass(class string) bool {
	if n.HasClass(class) {
		n.RemoveClass(class)
		return false
	}
	n.AddClass(class)
	return true
}

// Text and values

// TextContent concatenates the text of n and its descendants.
func (n *Node) TextContent() string {
	if n.kind != ElementNode {
		return n.text
	}
	var sb strings.Builder
	for _, c := range n.children {
		sb.WriteString(c.TextContent())
	}
	return sb.String()
}

// SetText replaces the children of an element with a single text node,
// or changes the text of a text node.
func (n *Node) SetText(s string) {
	if n.kind != ElementNode {
		if n.text != s {
			n.text = s
			if n.parent != nil {
				n.changed(n.parent)
			}
		}
		return
	}
	n.Clear()
	if s != "" {
		n.Append(n.doc.CreateText(s))
	}
}

// Value returns the form value last reported for an input or textarea.
func (n *Node) Value() string { return n.value }

// SetValue records the form value. It does not mark the node dirty because
// the value already lives in the client.
func (n *Node) SetValue(v string) { n.value = v }

// Tree

// Append attaches children to n, detaching them from any previous parent.
func (n *Node) Append(children ...*Node) {
	for _, c := range children {
		if c == nil || c == n {
			continue
		}
		if c.parent != nil {
			c.Remove()
		}
		c.parent = n
		n.children = append(n.children, c)
		n.changed(n)
		if n.IsConnected() {
			n.doc.connected(c)
		}
	}
}

// Remove detaches n from its parent.
func (n *Node) Remove() {
	p := n.parent
	if p == nil {
		return
	}
	wasConnected := p.IsConnected()
	if i := slices.Index(p.children, n); i >= 0 {
		p.children = slices.Delete(p.children, i, i+1)
	}
	n.parent = nil
	p.changed(p)
	if wasConnected {
		n.doc.disconnected(n)
	}
}

// Clear removes every child of n.
func (n *Node) Clear() {
	for len(n.children) > 0 {
		n.children[len(n.children)-1].Remove()
	}
}

// Mount appends deep clones of nodes so one view can be shown by several
// hosts at once.
func (n *Node) Mount(nodes ...*Node) {
	for _, v := range nodes {
		if v != nil {
			n.Append(v.Clone())
		}
	}
}

// Clone returns a detached deep copy including listeners and template content.
func (n *Node) Clone() *Node {
	c := n.doc.newNode(n.kind, n.tag)
	c.text = n.text
	c.value = n.value
	c.attrs = slices.Clone(n.attrs)
	for typ, ls := range n.listeners {
		for _, l := range ls {
			c.On(typ, l.fn)
		}
	}
	for _, child := range n.children {
		cc := child.Clone()
		cc.parent = c
		c.children = append(c.children, cc)
	}
	for _, child := range n.content {
		c.content = append(c.content, child.Clone())
	}
	return c
}

// Find returns the first descendant (pre-order) matching pred.
func (n *Node) Find(pred func(*Node) bool) *Node {
	for _, c := range n.children {
		if pred(c) {
			return c
		}
		if found := c.Find(pred); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every descendant matching pred, in document order.
func (n *Node) FindAll(pred func(*Node) bool) []*Node {
	var out []*Node
	n.walk(func(c *Node) {
		if c != n && pred(c) {
			out = append(out, c)
		}
	})
	return out
}

// Closest returns n or its nearest ancestor matching pred.
func (n *Node) Closest(pred func(*Node) bool) *Node {
	for p := n; p != nil; p = p.parent {
		if pred(p) {
			return p
		}
	}
	return nil
}

// walk visits n and its descendants in pre-order over a snapshot of the
// tree, so fn may mutate it.
func (n *Node) walk(fn func(*Node)) {
	fn(n)
	for _, c := range slices.Clone(n.children) {
		c.walk(fn)
	}
}

func (n *Node) changed(target *Node) {
	if n.doc != nil && target.IsConnected() {
		n.doc.notify(target)
	}
}

// Predicates for Find and friends.

// ByTag matches elements with the given tag.
func ByTag(tag string) func(*Node) bool {
	return func(n *Node) bool { return n.kind == ElementNode && n.tag == tag }
}

// ByAttr matches elements carrying the attribute, whatever its value.
func ByAttr(name string) func(*Node) bool {
	return func(n *Node) bool { return n.HasAttr(name) }
}

// ByClass matches elements whose class list contains class.
func ByClass(class string) func(*Node) bool {
	return func(n *Node) bool { return n.HasClass(class) }
}

// ByElementID matches the element whose id attribute equals id.
func ByElementID(id string) func(*Node) bool {
	return func(n *Node) bool {
		v, ok := n.Attr("id")
		return ok && v == id
	}
}
