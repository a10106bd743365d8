package hashroute

import (
	"fmt"
	"slices"
	"testing"

	"github.com/sauldoescode/saul.app/pkg/dom"
	"github.com/sauldoescode/saul.app/pkg/vdom"
)

type fakeLocation struct {
	hash string
	sets []string
}

func (l *fakeLocation) Hash() string { return l.hash }

func (l *fakeLocation) SetHash(h string) {
	l.hash = h
	l.sets = append(l.sets, h)
}

type fakeScheduler struct {
	queue []func()
}

func (s *fakeScheduler) RunAsync(fn func()) { s.queue = append(s.queue, fn) }

func (s *fakeScheduler) flush() {
	for len(s.queue) > 0 {
		fn := s.queue[0]
		s.queue = s.queue[1:]
		fn()
	}
}

// fakeHost records Clear and Mount calls.
type fakeHost struct {
	template bool
	shown    []*dom.Node
	mounts   int
	clears   int
}

func (h *fakeHost) Clear()                   { h.shown = nil; h.clears++ }
func (h *fakeHost) Mount(nodes ...*dom.Node) { h.shown = append(h.shown, nodes...); h.mounts++ }
func (h *fakeHost) IsTemplate() bool         { return h.template }

// loggingHost appends host operations to a shared log.
type loggingHost struct {
	log *[]string
}

func (h *loggingHost) Clear()                   { *h.log = append(*h.log, "unnamed:clear") }
func (h *loggingHost) Mount(nodes ...*dom.Node) { *h.log = append(*h.log, "unnamed:mount") }
func (h *loggingHost) IsTemplate() bool         { return false }

func newTestRouter() (*Router, *fakeLocation, *fakeScheduler) {
	loc := &fakeLocation{}
	sched := &fakeScheduler{}
	return New(loc, sched), loc, sched
}

func view(doc *dom.Document, text string) []*dom.Node {
	return doc.Build(vdom.P(text))
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"":        "#",
		"#":       "#",
		"home":    "#home",
		"#home":   "#home",
		"a#b":     "#a#b",
		"##twice": "##twice",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRegisterActivateRendersView(t *testing.T) {
	doc := dom.NewDocument()
	r, loc, _ := newTestRouter()
	v1 := view(doc, "V1")
	r.Register("home", ViewOf(v1...))
	host := &fakeHost{}
	r.Bind("", host)

	if !r.Activate("home") {
		t.Fatal("Activate(home) = false")
	}
	if loc.hash != "#home" {
		t.Errorf("hash = %q, want #home", loc.hash)
	}
	if !slices.Equal(host.shown, v1) {
		t.Errorf("host shows %v, want V1", host.shown)
	}
	if host.mounts != 1 {
		t.Errorf("mounts = %d, want exactly 1", host.mounts)
	}
	if r.Active() != "#home" {
		t.Errorf("Active() = %q", r.Active())
	}
}

func TestActivateTwiceIsNoop(t *testing.T) {
	r, loc, _ := newTestRouter()
	calls := 0
	r.Register("#home", ConsumerOf(ConsumerFunc(func(*Route, bool, string) { calls++ })))

	r.Activate("home")
	if r.Activate("#home") {
		t.Error("second Activate reported a transition")
	}
	if calls != 1 {
		t.Errorf("consumer calls = %d, want 1", calls)
	}
	if len(loc.sets) != 1 {
		t.Errorf("SetHash calls = %d, want 1", len(loc.sets))
	}
}

func TestActivationOrdering(t *testing.T) {
	r, _, _ := newTestRouter()
	var log []string
	record := func(tag string) Target {
		return ConsumerOf(ConsumerFunc(func(route *Route, active bool, name string) {
			log = append(log, fmt.Sprintf("%s:%s:%v:%s", tag, route.Name(), active, name))
		}))
	}
	r.Register("a", record("a1"))
	r.Register("a", record("a2"))
	r.Register("b", record("b1"))
	r.Bind("", &loggingHost{log: &log})

	r.Activate("a")
	log = nil
	r.Activate("b")

	want := []string{
		"b1:#b:true:#b",
		"unnamed:clear",
		"a1:#a:false:#a",
		"a2:#a:false:#a",
	}
	if !slices.Equal(log, want) {
		t.Errorf("log = %v\nwant %v", log, want)
	}
}

func TestActiveSwitchScenario(t *testing.T) {
	doc := dom.NewDocument()
	r, _, _ := newTestRouter()
	v1, v2 := view(doc, "V1"), view(doc, "V2")
	r.Register("home", ViewOf(v1...))
	r.Register("about", ViewOf(v2...))

	var deactivated []string
	r.Register("home", ConsumerOf(ConsumerFunc(func(_ *Route, active bool, name string) {
		if !active {
			deactivated = append(deactivated, name)
		}
	})))

	host := &fakeHost{}
	r.Bind("", host)
	r.Activate("#home")
	r.Activate("#about")

	if !slices.Equal(host.shown, v2) {
		t.Errorf("host shows %v, want V2", host.shown)
	}
	if !slices.Equal(deactivated, []string{"#home"}) {
		t.Errorf("deactivated = %v", deactivated)
	}
}

func TestUnnamedBindBeforeActivation(t *testing.T) {
	doc := dom.NewDocument()
	r, _, _ := newTestRouter()
	host := &fakeHost{}
	if b := r.Bind("", host); b == nil {
		t.Fatal("Bind returned nil")
	}
	if host.mounts != 0 {
		t.Error("host rendered before any route existed")
	}
	vx := view(doc, "X")
	r.Register("x", ViewOf(vx...))
	r.Activate("x")
	if !slices.Equal(host.shown, vx) {
		t.Errorf("host shows %v, want X", host.shown)
	}
}

func TestNamedBinding(t *testing.T) {
	doc := dom.NewDocument()
	r, _, _ := newTestRouter()
	va := view(doc, "A")
	r.Register("a", ViewOf(va...))
	r.Register("b", ViewOf(view(doc, "B")...))

	host := &fakeHost{}
	b := r.Bind("a", host)
	if b.Name() != "#a" {
		t.Errorf("Name() = %q", b.Name())
	}
	r.Activate("a")
	if !slices.Equal(host.shown, va) {
		t.Fatalf("host shows %v, want A", host.shown)
	}
	r.Activate("b")
	if len(host.shown) != 0 {
		t.Errorf("host should be cleared on deactivation, shows %v", host.shown)
	}
	if named, unnamed := r.Bindings(); named != 1 || unnamed != 0 {
		t.Errorf("Bindings() = %d, %d", named, unnamed)
	}

	b.Revoke()
	b.Revoke()
	r.Activate("a")
	if len(host.shown) != 0 {
		t.Error("revoked binding rendered")
	}
	if named, _ := r.Bindings(); named != 0 {
		t.Errorf("named bindings = %d after revoke", named)
	}
	if route, _ := r.Route("a"); route.ConsumerCount() != 0 {
		t.Errorf("route a still has %d consumers", route.ConsumerCount())
	}
}

func TestBindRendersAlreadyActiveRoute(t *testing.T) {
	doc := dom.NewDocument()
	r, _, _ := newTestRouter()
	va := view(doc, "A")
	r.Register("a", ViewOf(va...))
	r.Activate("a")

	named := &fakeHost{}
	unnamed := &fakeHost{}
	other := &fakeHost{}
	r.Bind("a", named)
	r.Bind("", unnamed)
	r.Bind("zzz", other)

	if !slices.Equal(named.shown, va) || !slices.Equal(unnamed.shown, va) {
		t.Errorf("late hosts not rendered: named=%v unnamed=%v", named.shown, unnamed.shown)
	}
	if other.mounts != 0 {
		t.Error("host for an inactive route was rendered")
	}
}

func TestRegisterViewForActiveRoute(t *testing.T) {
	doc := dom.NewDocument()
	r, _, _ := newTestRouter()
	r.Register("a", ViewOf(view(doc, "A")...))
	r.Activate("a")

	calls := 0
	r.Register("a", ConsumerOf(ConsumerFunc(func(*Route, bool, string) { calls++ })))
	named := &fakeHost{}
	unnamed := &fakeHost{}
	other := &fakeHost{}
	r.Bind("a", named)
	r.Bind("", unnamed)
	r.Bind("b", other)

	vb := view(doc, "B")
	r.Register("a", ViewOf(vb...))
	if !slices.Equal(named.shown, vb) || !slices.Equal(unnamed.shown, vb) {
		t.Errorf("hosts not refreshed: named=%v unnamed=%v", named.shown, unnamed.shown)
	}
	if other.mounts != 0 {
		t.Error("host for an inactive route was rendered")
	}
	if calls != 0 {
		t.Errorf("plain consumer invoked %d times by a view change", calls)
	}

	r.Register("b", ViewOf(view(doc, "other")...))
	if !slices.Equal(named.shown, vb) || other.mounts != 0 {
		t.Error("view for an inactive route reached bound hosts")
	}
}

func TestBindRejectsTemplates(t *testing.T) {
	r, _, _ := newTestRouter()
	if b := r.Bind("a", &fakeHost{template: true}); b != nil {
		t.Error("Bind accepted a template host")
	}
	if _, ok := r.Route("a"); ok {
		t.Error("rejected bind created a route")
	}
}

func TestBindTriggersActivationFromHash(t *testing.T) {
	doc := dom.NewDocument()
	r, loc, _ := newTestRouter()
	loc.hash = "#about"
	va := view(doc, "about")
	r.Register("about", ViewOf(va...))
	host := &fakeHost{}
	r.Bind("about", host)
	if r.Active() != "#about" {
		t.Errorf("Active() = %q, want #about", r.Active())
	}
	if !slices.Equal(host.shown, va) {
		t.Errorf("host shows %v", host.shown)
	}
	if len(loc.sets) != 0 {
		t.Errorf("hash rewritten to the same value: %v", loc.sets)
	}
}

func TestRegisterSchedulesActivation(t *testing.T) {
	r, loc, sched := newTestRouter()
	loc.hash = "#late"
	active := false
	r.Register("late", ConsumerOf(ConsumerFunc(func(_ *Route, a bool, _ string) { active = a })))
	if active {
		t.Fatal("Register activated synchronously")
	}
	if len(sched.queue) != 1 {
		t.Fatalf("queued tasks = %d, want 1", len(sched.queue))
	}
	sched.flush()
	if !active || r.Active() != "#late" {
		t.Errorf("late registration did not converge: active=%v Active()=%q", active, r.Active())
	}
}

func TestEmptyHashActivatesRoot(t *testing.T) {
	r, loc, sched := newTestRouter()
	hit := false
	r.Register("", ConsumerOf(ConsumerFunc(func(*Route, bool, string) { hit = true })))
	sched.flush()
	if !hit || r.Active() != "#" {
		t.Errorf("root route not activated: hit=%v active=%q", hit, r.Active())
	}
	if len(loc.sets) != 0 {
		t.Errorf("empty hash should compare equal to #, got sets %v", loc.sets)
	}
}

func TestPlaceholderRoute(t *testing.T) {
	r, _, _ := newTestRouter()
	r.Register("empty", ViewOf())
	host := &fakeHost{}
	r.Bind("", host)
	if !r.Activate("empty") {
		t.Fatal("placeholder route not activated")
	}
	if len(host.shown) != 0 || host.clears != 1 {
		t.Errorf("host shown=%v clears=%d", host.shown, host.clears)
	}
}

func TestUnknownRoute(t *testing.T) {
	r, loc, _ := newTestRouter()
	if r.Activate("nope") {
		t.Error("Activate(unknown) = true")
	}
	if len(loc.sets) != 0 || r.Active() != "" {
		t.Error("unknown activation changed state")
	}
	r.Revoke("nope")
}

type revokingConsumer struct {
	revoked int
	calls   int
}

func (c *revokingConsumer) Consume(*Route, bool, string) { c.calls++ }
func (c *revokingConsumer) Revoke()                      { c.revoked++ }

func TestRevoke(t *testing.T) {
	doc := dom.NewDocument()
	r, _, _ := newTestRouter()
	r.Register("a", ViewOf(view(doc, "A")...))
	rc := &revokingConsumer{}
	r.Register("a", ConsumerOf(rc))
	host := &fakeHost{}
	b := r.Bind("a", host)

	r.Activate("a")
	r.Revoke("#a")

	if rc.revoked != 1 {
		t.Errorf("revoke hook calls = %d, want 1", rc.revoked)
	}
	if _, ok := r.Route("a"); ok {
		t.Error("route still registered")
	}
	if r.Active() != "" {
		t.Errorf("Active() = %q after revoking the active route", r.Active())
	}
	if named, _ := r.Bindings(); named != 0 {
		t.Errorf("binding not revoked, named = %d", named)
	}
	b.Revoke()

	mounts := host.mounts
	if r.Activate("a") {
		t.Error("revoked route activated")
	}
	if host.mounts != mounts || rc.calls != 1 {
		t.Error("revoked route rendered or notified")
	}
}

func TestSubscriptionCancel(t *testing.T) {
	r, _, _ := newTestRouter()
	calls := 0
	sub := r.Register("a", ConsumerOf(ConsumerFunc(func(*Route, bool, string) { calls++ })))
	if sub.Route() != "#a" {
		t.Errorf("Route() = %q", sub.Route())
	}
	sub.Cancel()
	sub.Cancel()
	var nilSub *Subscription
	nilSub.Cancel()

	r.Activate("a")
	if calls != 0 {
		t.Errorf("cancelled consumer called %d times", calls)
	}
	if r.Register("a", ViewOf()) != nil {
		t.Error("view registration returned a subscription")
	}
	if r.Register("a", Target{}) != nil {
		t.Error("empty target returned a subscription")
	}
}

func TestViewOverwrite(t *testing.T) {
	doc := dom.NewDocument()
	r, _, _ := newTestRouter()
	v1, v2 := view(doc, "1"), view(doc, "2")
	r.Register("a", ViewOf(v1...))
	r.Register("a", ViewOf(v2...))
	route, _ := r.Route("a")
	got, ok := route.View()
	if !ok || !slices.Equal(got, v2) {
		t.Errorf("View() = %v, %v", got, ok)
	}
}

func TestTemplateView(t *testing.T) {
	doc := dom.NewDocument()
	tpl := doc.Build(vdom.Template(vdom.H1("T"), vdom.P("body")))[0]
	doc.Body().Append(tpl)

	r, _, _ := newTestRouter()
	r.Register("t", TemplateView(tpl))
	if tpl.Parent() != nil {
		t.Error("template not removed from its parent")
	}
	route, _ := r.Route("t")
	nodes, _ := route.View()
	if len(nodes) != 2 || nodes[0].Tag() != "h1" {
		t.Errorf("template view = %v", nodes)
	}
}

func TestViewOfVNodesAndRealHosts(t *testing.T) {
	doc := dom.NewDocument()
	r, _, _ := newTestRouter()
	r.Register("a", ViewOfVNodes(doc, vdom.H1("A")))
	main := doc.CreateElement("main")
	aside := doc.CreateElement("aside")
	r.Bind("", main)
	r.Bind("a", aside)
	r.Activate("a")
	if main.TextContent() != "A" || aside.TextContent() != "A" {
		t.Errorf("main=%q aside=%q", main.TextContent(), aside.TextContent())
	}
	if main.Children()[0] == aside.Children()[0] {
		t.Error("hosts share view nodes")
	}
}

func TestObserve(t *testing.T) {
	var transitions []string
	loc := &fakeLocation{}
	r := New(loc, &fakeScheduler{}, WithObserver(func(from, to string) {
		transitions = append(transitions, from+">"+to)
	}))
	r.Register("a", ViewOf())
	r.Register("b", ViewOf())
	r.Activate("a")
	r.Activate("b")
	r.Activate("b")
	if !slices.Equal(transitions, []string{">#a", "#a>#b"}) {
		t.Errorf("transitions = %v", transitions)
	}
	if !slices.Equal(r.Routes(), []string{"#a", "#b"}) {
		t.Errorf("Routes() = %v", r.Routes())
	}
}

func TestHashChanged(t *testing.T) {
	r, loc, _ := newTestRouter()
	r.Register("a", ViewOf())
	r.Register("b", ViewOf())
	loc.hash = "#b"
	r.HashChanged()
	if r.Active() != "#b" {
		t.Errorf("Active() = %q", r.Active())
	}
}
