package dom

import (
	"fmt"
	"slices"
	"testing"
)

type recorder struct {
	calls []string
}

func (r *recorder) directive() DirectiveFuncs {
	return DirectiveFuncs{
		InitFunc:   func(el *Node, v string) { r.calls = append(r.calls, fmt.Sprintf("init %s=%s", el.Tag(), v)) },
		UpdateFunc: func(el *Node, v, old string) { r.calls = append(r.calls, fmt.Sprintf("update %s %s->%s", el.Tag(), old, v)) },
		RemoveFunc: func(el *Node, v string) { r.calls = append(r.calls, fmt.Sprintf("remove %s=%s", el.Tag(), v)) },
	}
}

func TestDirectiveLifecycle(t *testing.T) {
	doc := NewDocument()
	rec := &recorder{}
	doc.RegisterDirective("route", rec.directive())

	el := doc.CreateElement("section")
	el.SetAttr("route", "home")
	if len(rec.calls) != 0 {
		t.Fatal("directive ran on a detached element")
	}

	doc.Body().Append(el)
	el.SetAttr("route", "about")
	el.SetAttr("route", "about")
	el.RemoveAttr("route")
	el.SetAttr("route", "writs")
	el.Remove()

	want := []string{
		"init section=home",
		"update section home->about",
		"remove section=about",
		"init section=writs",
		"remove section=writs",
	}
	if !slices.Equal(rec.calls, want) {
		t.Errorf("calls = %v\nwant %v", rec.calls, want)
	}
}

func TestDirectiveSubtreeAndTemplates(t *testing.T) {
	doc := NewDocument()
	rec := &recorder{}
	doc.RegisterDirective("route", rec.directive())

	wrap := doc.CreateElement("div")
	inner := doc.CreateElement("main")
	inner.SetAttr("route", "a")
	tpl := doc.CreateElement("template")
	tpl.SetAttr("route", "b")
	hidden := doc.CreateElement("p")
	hidden.SetAttr("route", "c")
	tpl.content = append(tpl.content, hidden)
	wrap.Append(inner, tpl)

	doc.Body().Append(wrap)
	if !slices.Equal(rec.calls, []string{"init main=a", "init template=b"}) {
		t.Errorf("calls = %v", rec.calls)
	}

	rec.calls = nil
	doc.Body().Clear()
	if !slices.Equal(rec.calls, []string{"remove main=a", "remove template=b"}) {
		t.Errorf("calls = %v", rec.calls)
	}
}

func TestDirectiveRegisteredLate(t *testing.T) {
	doc := NewDocument()
	el := doc.CreateElement("a")
	el.SetAttr("route-link", "about")
	doc.Body().Append(el)

	rec := &recorder{}
	unregister := doc.RegisterDirective("route-link", rec.directive())
	unregister()
	unregister()
	if !slices.Equal(rec.calls, []string{"init a=about", "remove a=about"}) {
		t.Errorf("calls = %v", rec.calls)
	}
}

func TestDirectiveSelfDetach(t *testing.T) {
	doc := NewDocument()
	removed := 0
	doc.RegisterDirective("route", DirectiveFuncs{
		InitFunc:   func(el *Node, _ string) { el.Remove() },
		RemoveFunc: func(*Node, string) { removed++ },
	})
	tpl := doc.CreateElement("template")
	tpl.SetAttr("route", "x")
	sibling := doc.CreateElement("p")
	doc.Body().Append(tpl, sibling)
	if tpl.Parent() != nil {
		t.Error("template still attached")
	}
	if removed != 0 {
		t.Errorf("Remove ran %d times for a self-detached element", removed)
	}
}

func TestDirectivePanicRecovered(t *testing.T) {
	doc := NewDocument()
	doc.RegisterDirective("boom", DirectiveFuncs{InitFunc: func(*Node, string) { panic("x") }})
	el := doc.CreateElement("div")
	el.SetAttr("boom", "")
	doc.Body().Append(el)
	if !el.IsConnected() {
		t.Error("append aborted by a panicking directive")
	}
}
