package dom

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sauldoescode/saul.app/pkg/vdom"
)

// NodeIDAttr is the attribute carrying node ids in live snapshots.
const NodeIDAttr = "data-nid"

// Build converts vdom trees into detached live nodes. Fragments are
// flattened, the children of a <template> become its content, and event
// props become listeners.
func (d *Document) Build(vnodes ...*vdom.VNode) []*Node {
	var out []*Node
	for _, v := range vnodes {
		out = append(out, d.build(v)...)
	}
	return out
}

func (d *Document) build(v *vdom.VNode) []*Node {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case vdom.KindText:
		return []*Node{d.CreateText(v.Text)}
	case vdom.KindRaw:
		return []*Node{d.CreateRaw(v.Text)}
	case vdom.KindFragment:
		return d.Build(v.Children...)
	}

	n := d.CreateElement(v.Tag)
	keys := make([]string, 0, len(v.Props))
	for k := range v.Props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		value := v.Props[k]
		if strings.HasPrefix(k, "on") {
			if fn, ok := listenerFunc(value); ok {
				n.On(k[2:], fn)
				continue
			}
		}
		if s, ok := attrString(value); ok {
			n.attrs = append(n.attrs, attribute{name: k, value: s})
		}
	}

	children := d.Build(v.Children...)
	if n.IsTemplate() {
		n.content = children
		return []*Node{n}
	}
	for _, c := range children {
		c.parent = n
	}
	n.children = children
	return []*Node{n}
}

// listenerFunc adapts the handler shapes accepted by vdom event helpers.
func listenerFunc(h any) (func(*Event), bool) {
	switch fn := h.(type) {
	case func(*Event):
		return fn, true
	case func():
		return func(*Event) { fn() }, true
	case func(string):
		return func(e *Event) { fn(e.Value) }, true
	default:
		return nil, false
	}
}

// attrString converts a prop value to its attribute form. False booleans
// are omitted.
func attrString(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case bool:
		return "", val
	default:
		return fmt.Sprint(val), true
	}
}

// Snapshot converts n back into a vdom tree for rendering. Listeners are
// carried as event props so the renderer can mark interactive elements.
func (n *Node) Snapshot() *vdom.VNode {
	return n.snapshot(false)
}

// LiveSnapshot is Snapshot with each element's node id in NodeIDAttr, used
// by live sessions to address patches.
func (n *Node) LiveSnapshot() *vdom.VNode {
	return n.snapshot(true)
}

func (n *Node) snapshot(ids bool) *vdom.VNode {
	switch n.kind {
	case TextNode:
		return vdom.Text(n.text)
	case RawNode:
		return vdom.Raw(n.text)
	}
	v := &vdom.VNode{Kind: vdom.KindElement, Tag: n.tag, Props: make(vdom.Props, len(n.attrs))}
	for _, a := range n.attrs {
		v.Props[a.name] = a.value
	}
	if ids {
		v.Props[NodeIDAttr] = n.id
	}
	for _, typ := range n.ListenerTypes() {
		v.Props["on"+typ] = n.listeners[typ][0].fn
	}
	src := n.children
	if n.IsTemplate() {
		src = n.content
	}
	for _, c := range src {
		v.Children = append(v.Children, c.snapshot(ids))
	}
	return v
}
