package ui

import (
	"testing"

	"github.com/sauldoescode/saul.app/pkg/dom"
	"github.com/sauldoescode/saul.app/pkg/render"
	"github.com/sauldoescode/saul.app/pkg/vdom"
)

func TestToggleable(t *testing.T) {
	doc := dom.NewDocument()
	el := doc.CreateElement("section")
	doc.Body().Append(el)
	tg := Toggleable(el, nil)

	var events []bool
	el.On("toggle", func(e *dom.Event) { events = append(events, e.Detail.(ToggleDetail).Open) })

	if !tg.Toggler().HasClass("toggler") || tg.Toggler().Parent() != el {
		t.Fatal("default toggler not created inside the element")
	}
	tg.Toggler().Click()
	if !tg.Open() || !el.HasAttr("open") {
		t.Error("first click should open")
	}
	tg.Toggler().Click()
	if tg.Open() {
		t.Error("second click should close")
	}
	if len(events) != 2 || events[0] != true || events[1] != false {
		t.Errorf("toggle events = %v", events)
	}

	tg.Release()
	tg.Toggler().Click()
	if tg.Open() {
		t.Error("released toggle still reacts to clicks")
	}
}

func buildSideBar(doc *dom.Document) *dom.Node {
	el := doc.Build(vdom.CustomElement(TagSideBar,
		vdom.Div(vdom.Class("toggler")),
		vdom.CustomElement(TagItem, vdom.ID("home"), vdom.Class(ClassSelected), "home"),
		vdom.CustomElement(TagItem, vdom.ID("writs"), vdom.Span("writs")),
		vdom.CustomElement(TagMenu,
			vdom.CustomElement(TagMenuTitle, "more"),
			vdom.CustomElement(TagItem, vdom.ID("about"), "about"),
		),
	))[0]
	doc.Body().Append(el)
	return el
}

func TestSideBarSelect(t *testing.T) {
	doc := dom.NewDocument()
	el := buildSideBar(doc)
	sb := NewSideBar(el)
	defer sb.Release()

	home := el.Find(dom.ByElementID("home"))
	writs := el.Find(dom.ByElementID("writs"))
	if sb.Selected() != home {
		t.Fatal("markup selection not picked up")
	}

	var got []SelectDetail
	el.On("select", func(e *dom.Event) { got = append(got, e.Detail.(SelectDetail)) })

	// Click on a descendant of the item.
	writs.Find(dom.ByTag("span")).Click()
	if sb.Selected() != writs || !writs.HasClass(ClassSelected) || home.HasClass(ClassSelected) {
		t.Error("selection did not move to writs")
	}
	if len(got) != 1 || got[0].Selected != writs || got[0].Last != home {
		t.Errorf("select events = %+v", got)
	}

	writs.Click()
	if len(got) != 1 {
		t.Error("clicking the selected item fired select again")
	}
	if sb.Last() != home {
		t.Error("Last() should be home")
	}
}

func TestSideBarMenusAndToggle(t *testing.T) {
	doc := dom.NewDocument()
	el := buildSideBar(doc)
	sb := NewSideBar(el)

	if len(sb.Menus()) != 1 {
		t.Fatalf("menus = %d, want 1", len(sb.Menus()))
	}
	menu := el.Find(dom.ByTag(TagMenu))
	menu.Find(dom.ByTag(TagMenuTitle)).Click()
	if !menu.HasAttr("open") {
		t.Error("menu title click should open the menu")
	}
	if el.HasAttr("open") {
		t.Error("menu toggle leaked to the side-bar")
	}

	el.Find(dom.ByClass("toggler")).Click()
	if !sb.Open() {
		t.Error("side-bar toggler did not open")
	}
	if len(el.FindAll(dom.ByClass("toggler"))) != 1 {
		t.Error("existing toggler was not reused")
	}
}

func TestLinkList(t *testing.T) {
	node := LinkList("elsewhere",
		vdom.A(vdom.Href("https://github.com/SaulDoesCode"), "github"),
		nil,
		vdom.A("no href"),
	)
	html, err := render.NewRenderer(render.RendererConfig{}).RenderToString(node)
	if err != nil {
		t.Fatal(err)
	}
	want := `<link-list><header title="elsewhere">elsewhere</header><ul>` +
		`<li><a href="https://github.com/SaulDoesCode" title="https://github.com/SaulDoesCode">github</a></li>` +
		`<li><a>no href</a></li></ul></link-list>`
	if html != want {
		t.Errorf("got  %s\nwant %s", html, want)
	}
}
