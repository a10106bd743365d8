package ui

import (
	"github.com/sauldoescode/saul.app/pkg/dom"
)

// Element names understood by SideBar.
const (
	TagSideBar     = "side-bar"
	TagItem        = "sb-item"
	TagMenu        = "sb-menu"
	TagMenuTitle   = "sb-menu-title"
	ClassSelected  = "selected"
	ClassSidebarOn = "sidebar-open"
)

// SelectDetail is the Detail of a side-bar "select" event.
type SelectDetail struct {
	Selected *dom.Node
	Last     *dom.Node
}

// SideBar is a collapsible navigation column. Clicking one of its sb-item
// descendants selects it; sb-menu groups fold open and closed through their
// sb-menu-title.
type SideBar struct {
	*Toggle
	el       *dom.Node
	selected *dom.Node
	last     *dom.Node
	menus    []*Toggle
	listener *dom.Listener
}

// NewSideBar attaches side-bar behaviour to el. An existing child with class
// "toggler" is used as the toggler.
func NewSideBar(el *dom.Node) *SideBar {
	toggler := el.Find(dom.ByClass("toggler"))
	sb := &SideBar{Toggle: Toggleable(el, toggler), el: el}

	for _, menu := range el.FindAll(dom.ByTag(TagMenu)) {
		sb.menus = append(sb.menus, Toggleable(menu, menu.Find(dom.ByTag(TagMenuTitle))))
	}

	sb.listener = el.On("click", func(e *dom.Event) {
		if e.Target == el {
			return
		}
		item := e.Target.Closest(dom.ByTag(TagItem))
		if item != nil && !item.HasClass(ClassSelected) {
			sb.Select(item)
		}
	})
	return sb
}

// Selected returns the selected item, falling back to an item already
// marked selected in markup.
func (sb *SideBar) Selected() *dom.Node {
	if sb.selected != nil {
		return sb.selected
	}
	return sb.el.Find(func(n *dom.Node) bool {
		return n.Tag() == TagItem && n.HasClass(ClassSelected)
	})
}

// Last returns the previously selected item.
func (sb *SideBar) Last() *dom.Node { return sb.last }

// Select marks item selected, unmarks the previous selection and
// dispatches "select".
func (sb *SideBar) Select(item *dom.Node) {
	if item == nil || item.HasClass(ClassSelected) {
		return
	}
	prev := sb.Selected()
	item.AddClass(ClassSelected)
	if prev != nil {
		prev.RemoveClass(ClassSelected)
		sb.last = prev
	}
	sb.selected = item
	sb.el.Emit("select", SelectDetail{Selected: item, Last: sb.last})
}

// Menus returns the toggles of the sb-menu groups.
func (sb *SideBar) Menus() []*Toggle { return sb.menus }

// Release detaches every listener installed by NewSideBar.
func (sb *SideBar) Release() {
	sb.listener.Off()
	sb.Toggle.Release()
	for _, m := range sb.menus {
		m.Release()
	}
}
