package dom

import (
	"slices"
	"testing"

	"github.com/sauldoescode/saul.app/pkg/vdom"
)

func TestBuildAndSnapshot(t *testing.T) {
	doc := NewDocument()
	clicked := 0
	nodes := doc.Build(
		vdom.Div(vdom.ID("a"), vdom.Class("x"), vdom.OnClick(func() { clicked++ }),
			vdom.P("hi"),
			vdom.Fragment(vdom.Span(), vdom.Span()),
		),
		vdom.Template(vdom.Route("home"), vdom.H1("Home")),
	)
	if len(nodes) != 2 {
		t.Fatalf("len(nodes) = %d, want 2", len(nodes))
	}
	div := nodes[0]
	if got := len(div.Children()); got != 3 {
		t.Errorf("div children = %d, want 3", got)
	}
	if v, _ := div.Attr("id"); v != "a" {
		t.Errorf("id = %q, want a", v)
	}
	div.Click()
	if clicked != 1 {
		t.Errorf("clicked = %d, want 1", clicked)
	}

	tpl := nodes[1]
	if len(tpl.Children()) != 0 || len(tpl.Content()) != 1 {
		t.Errorf("template children=%d content=%d", len(tpl.Children()), len(tpl.Content()))
	}

	snap := div.Snapshot()
	if snap.Props["id"] != "a" {
		t.Errorf("snapshot id = %v", snap.Props["id"])
	}
	if _, ok := snap.Props["onclick"]; !ok {
		t.Error("snapshot lost click listener marker")
	}
	if _, ok := snap.Props[NodeIDAttr]; ok {
		t.Error("plain snapshot carries node id")
	}
	if live := div.LiveSnapshot(); live.Props[NodeIDAttr] != div.ID() {
		t.Errorf("live snapshot id = %v, want %s", live.Props[NodeIDAttr], div.ID())
	}
	if got := tpl.Snapshot().Children; len(got) != 1 || got[0].Tag != "h1" {
		t.Errorf("template snapshot children = %+v", got)
	}
}

func TestBooleanPropsBuild(t *testing.T) {
	doc := NewDocument()
	n := doc.Build(vdom.Main(vdom.RouteActive(), vdom.AttrOf("hidden", false)))[0]
	if v, ok := n.Attr("route-active"); !ok || v != "" {
		t.Errorf("route-active = %q, %v", v, ok)
	}
	if n.HasAttr("hidden") {
		t.Error("false boolean prop became an attribute")
	}
}

func TestTreeOperations(t *testing.T) {
	doc := NewDocument()
	a := doc.CreateElement("div")
	b := doc.CreateElement("span")
	c := doc.CreateElement("em")

	doc.Body().Append(a)
	a.Append(b)
	if !b.IsConnected() {
		t.Error("b should be connected")
	}
	c.Append(b)
	if len(a.Children()) != 0 || b.Parent() != c {
		t.Error("Append should move b out of a")
	}
	if b.IsConnected() {
		t.Error("b should be disconnected once moved under a detached node")
	}

	a.SetText("hello")
	if a.TextContent() != "hello" {
		t.Errorf("TextContent = %q", a.TextContent())
	}
	a.Clear()
	if len(a.Children()) != 0 {
		t.Error("Clear left children")
	}

	if doc.NodeByID(a.ID()) != a {
		t.Error("NodeByID did not find a")
	}
	if doc.NodeByID(c.ID()) != nil {
		t.Error("NodeByID found a detached node")
	}
}

func TestMountClones(t *testing.T) {
	doc := NewDocument()
	view := doc.Build(vdom.P(vdom.OnClick(func() {}), "v"))
	h1 := doc.CreateElement("main")
	h2 := doc.CreateElement("aside")
	h1.Mount(view...)
	h2.Mount(view...)

	if h1.Children()[0] == h2.Children()[0] {
		t.Fatal("Mount shared nodes between hosts")
	}
	if h1.Children()[0] == view[0] {
		t.Fatal("Mount did not clone")
	}
	if h2.TextContent() != "v" {
		t.Errorf("TextContent = %q", h2.TextContent())
	}
	if !slices.Equal(h1.Children()[0].ListenerTypes(), []string{"click"}) {
		t.Error("clone lost listeners")
	}
}

func TestClasses(t *testing.T) {
	doc := NewDocument()
	n := doc.CreateElement("li")
	n.AddClass("sb-item")
	if !n.ToggleClass("selected") {
		t.Error("ToggleClass should add")
	}
	if v, _ := n.Attr("class"); v != "sb-item selected" {
		t.Errorf("class = %q", v)
	}
	if n.ToggleClass("selected") {
		t.Error("ToggleClass should remove")
	}
	if n.HasClass("selected") || !n.HasClass("sb-item") {
		t.Error("class list wrong after toggling")
	}
	if !n.ToggleAttr("open") || !n.HasAttr("open") {
		t.Error("ToggleAttr should set open")
	}
	if n.ToggleAttr("open") || n.HasAttr("open") {
		t.Error("ToggleAttr should clear open")
	}
}

func TestEventBubbling(t *testing.T) {
	doc := NewDocument()
	outer := doc.CreateElement("div")
	inner := doc.CreateElement("button")
	outer.Append(inner)
	doc.Body().Append(outer)

	var order []string
	inner.On("click", func(e *Event) { order = append(order, "inner") })
	outer.On("click", func(e *Event) {
		if e.Target != inner || e.CurrentTarget != outer {
			t.Error("wrong target/currentTarget")
		}
		order = append(order, "outer")
	})
	doc.On("click", func(e *Event) { order = append(order, "document") })

	inner.Click()
	if !slices.Equal(order, []string{"inner", "outer", "document"}) {
		t.Errorf("order = %v", order)
	}

	order = nil
	l := inner.On("click", func(e *Event) { e.StopPropagation() })
	inner.Click()
	if !slices.Equal(order, []string{"inner"}) {
		t.Errorf("order after stop = %v", order)
	}
	l.Off()
	l.Off()

	order = nil
	inner.Click()
	if len(order) != 3 {
		t.Errorf("order after Off = %v", order)
	}
}

func TestListenerPanicRecovered(t *testing.T) {
	doc := NewDocument()
	n := doc.CreateElement("div")
	ran := false
	n.On("click", func(*Event) { panic("boom") })
	n.On("click", func(*Event) { ran = true })
	n.Click()
	if !ran {
		t.Error("second listener did not run after a panic")
	}
}

func TestLocation(t *testing.T) {
	doc := NewDocument()
	loc := doc.Location()
	var changes []HashChange
	doc.On("hashchange", func(e *Event) { changes = append(changes, e.Detail.(HashChange)) })

	loc.SetHash("about")
	if loc.Hash() != "#about" {
		t.Errorf("Hash = %q, want #about", loc.Hash())
	}
	if len(changes) != 0 {
		t.Error("hashchange fired synchronously")
	}
	doc.Flush()
	if len(changes) != 1 || changes[0] != (HashChange{OldHash: "", NewHash: "#about"}) {
		t.Errorf("changes = %+v", changes)
	}

	loc.SetHash("#about")
	doc.Flush()
	if len(changes) != 1 {
		t.Error("setting the same hash fired hashchange")
	}

	loc.SetHash("#writs")
	if !loc.Back() || loc.Hash() != "#about" {
		t.Errorf("Back: hash = %q", loc.Hash())
	}
	if !loc.Forward() || loc.Hash() != "#writs" {
		t.Errorf("Forward: hash = %q", loc.Hash())
	}
	if loc.Forward() {
		t.Error("Forward past the end")
	}
	doc.Flush()
	if len(changes) != 4 {
		t.Errorf("changes = %d, want 4", len(changes))
	}

	loc.SetHash("#")
	if loc.Hash() != "" {
		t.Errorf("bare # should read as empty, got %q", loc.Hash())
	}

	loc.Replace("#home")
	h, i := loc.History()
	if h[i] != "#home" || len(h) != 4 {
		t.Errorf("history = %v at %d", h, i)
	}
}

func TestWithHash(t *testing.T) {
	doc := NewDocument(WithHash("writs"))
	if doc.Location().Hash() != "#writs" {
		t.Errorf("Hash = %q", doc.Location().Hash())
	}
	if doc.Location().Back() {
		t.Error("Back on fresh history")
	}
}

func TestFlush(t *testing.T) {
	doc := NewDocument()
	var order []int
	doc.RunAsync(func() {
		order = append(order, 1)
		doc.RunAsync(func() { order = append(order, 3) })
	})
	doc.RunAsync(func() { panic("boom") })
	doc.RunAsync(func() { order = append(order, 2) })
	if doc.Pending() != 3 {
		t.Errorf("Pending = %d", doc.Pending())
	}
	if ran := doc.Flush(); ran != 4 {
		t.Errorf("Flush ran %d, want 4", ran)
	}
	if !slices.Equal(order, []int{1, 2, 3}) {
		t.Errorf("order = %v", order)
	}
}

func TestFlushBounded(t *testing.T) {
	doc := NewDocument()
	var loop func()
	loop = func() { doc.RunAsync(loop) }
	doc.RunAsync(loop)
	if ran := doc.Flush(); ran != maxFlushTasks {
		t.Errorf("Flush ran %d, want %d", ran, maxFlushTasks)
	}
	if doc.Pending() != 0 {
		t.Error("queue not dropped")
	}
}

func TestObserve(t *testing.T) {
	doc := NewDocument()
	var seen []*Node
	stop := doc.Observe(func(n *Node) { seen = append(seen, n) })

	detached := doc.CreateElement("div")
	detached.SetAttr("class", "x")
	if len(seen) != 0 {
		t.Error("observed a detached node")
	}

	doc.Body().Append(detached)
	detached.SetAttr("class", "y")
	if len(seen) != 2 || seen[0] != doc.Body() || seen[1] != detached {
		t.Errorf("seen = %v", seen)
	}

	stop()
	detached.SetAttr("class", "z")
	if len(seen) != 2 {
		t.Error("observer called after stop")
	}
}
