// Package ui holds the small interactive components of the site layout.
package ui

import (
	"github.com/sauldoescode/saul.app/pkg/dom"
	"github.com/sauldoescode/saul.app/pkg/vdom"
)

// ToggleDetail is the Detail of a "toggle" event.
type ToggleDetail struct {
	Open bool
}

// Toggle flips the open attribute of an element when its toggler is clicked.
type Toggle struct {
	el       *dom.Node
	toggler  *dom.Node
	listener *dom.Listener
}

// Toggleable makes el open and close when toggler is clicked. A nil toggler
// is replaced by a new <div class="toggler"> appended to el.
func Toggleable(el, toggler *dom.Node) *Toggle {
	if toggler == nil {
		toggler = el.Document().CreateElement("div")
		toggler.AddClass("toggler")
		el.Append(toggler)
	}
	t := &Toggle{el: el, toggler: toggler}
	t.listener = toggler.On("click", func(e *dom.Event) {
		t.Toggle()
	})
	return t
}

// Open reports whether the element carries the open attribute.
func (t *Toggle) Open() bool { return t.el.HasAttr("open") }

// SetOpen sets the open state and dispatches a "toggle" event on the element.
func (t *Toggle) SetOpen(open bool) {
	if open {
		t.el.SetAttr("open", "")
	} else {
		t.el.RemoveAttr("open")
	}
	t.el.Emit("toggle", ToggleDetail{Open: open})
}

// Toggle flips the open state.
func (t *Toggle) Toggle() { t.SetOpen(!t.Open()) }

// Toggler returns the toggling element.
func (t *Toggle) Toggler() *dom.Node { return t.toggler }

// Release detaches the click listener.
func (t *Toggle) Release() { t.listener.Off() }

// LinkList renders a titled list of links. Each link is titled with its own
// href so the destination shows on hover.
func LinkList(title string, links ...*vdom.VNode) *vdom.VNode {
	items := make([]*vdom.VNode, 0, len(links))
	for _, link := range links {
		if link == nil {
			continue
		}
		if href, ok := link.Props["href"].(string); ok && href != "" {
			link.Props["title"] = href
		}
		items = append(items, vdom.Li(link))
	}
	return vdom.CustomElement("link-list",
		vdom.If(title != "", vdom.Header(vdom.TitleAttr(title), vdom.Text(title))),
		vdom.Ul(items),
	)
}
