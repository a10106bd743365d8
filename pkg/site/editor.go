package site

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sauldoescode/saul.app/pkg/dom"
	"github.com/sauldoescode/saul.app/pkg/emitter"
	"github.com/sauldoescode/saul.app/pkg/hashroute"
	"github.com/sauldoescode/saul.app/pkg/vdom"
	"github.com/sauldoescode/saul.app/pkg/writ"
)

// EditorBackend loads and saves writs for the editor.
type EditorBackend interface {
	Writs(ctx context.Context) ([]*writ.Writ, error)
	Save(ctx context.Context, w *writ.Writ) error
}

// Editor event names.
const (
	EventAreaChange = "areaChange"
	EventWritEdit   = "writEdit"
	EventPreview    = "preview"
	EventSaved      = "saved"
	EventWritsReady = "writsReady"
)

// Editor areas.
const (
	AreaEditor = "editor"
	AreaStats  = "stats"
)

const backendTimeout = 10 * time.Second

// EditorEvent is the payload of every editor event.
type EditorEvent struct {
	Area    string
	Writ    *writ.Writ
	Writs   []*writ.Writ
	Preview bool
	Err     error
}

// Editor is the admin writing area shown on #editor. Its widgets talk to
// each other through an emitter, one event per state change.
type Editor struct {
	site    *Site
	backend EditorBackend
	events  *emitter.Emitter[EditorEvent]

	el          *dom.Node
	title       *dom.Node
	tags        *dom.Node
	description *dom.Node
	public      *dom.Node
	markdown    *dom.Node
	preview     *dom.Node
	selector    *dom.Node
	status      *dom.Node
	stats       *dom.Node
	writing     *dom.Node

	writs     []*writ.Writ
	current   *writ.Writ
	area      string
	previewOn bool
}

var _ hashroute.Consumer = (*Editor)(nil)

func newEditor(s *Site, backend EditorBackend) *Editor {
	ed := &Editor{
		site:    s,
		backend: backend,
		events:  emitter.New[EditorEvent](s.doc),
	}
	ed.el = s.doc.Build(ed.view())[0]
	find := func(class string) *dom.Node { return ed.el.Find(dom.ByClass(class)) }
	ed.title = find("writ-title")
	ed.tags = find("writ-tags")
	ed.description = find("writ-description")
	ed.public = find("toggle-public")
	ed.markdown = find("markdown")
	ed.preview = find("view")
	ed.selector = find("writ-selector")
	ed.status = find("status")
	ed.stats = find("stats")
	ed.writing = find("editor")

	ed.events.On(EventAreaChange, ed.onAreaChange)
	ed.events.On(EventWritEdit, ed.onWritEdit)
	ed.events.On(EventPreview, ed.onPreview)
	ed.events.On(EventWritsReady, ed.onWritsReady)
	ed.events.On(EventSaved, ed.onSaved)

	ed.SetArea(AreaEditor)
	ed.Load()
	return ed
}

func (ed *Editor) view() *vdom.VNode {
	return vdom.Section(vdom.Class("admin"), vdom.Hidden(),
		vdom.Nav(vdom.Class("areas"),
			vdom.OnClick(func(e *dom.Event) {
				if area, ok := e.Target.Attr("data-area"); ok {
					ed.SetArea(area)
				}
			}),
			vdom.Div(vdom.Class("area"), vdom.Data("area", AreaEditor), AreaEditor),
			vdom.Div(vdom.Class("area"), vdom.Data("area", AreaStats), AreaStats),
		),
		vdom.Section(vdom.Class("editor"),
			vdom.Header(
				vdom.Input(vdom.Class("writ-title"), vdom.Type("text"), vdom.Placeholder("title"),
					vdom.OnInput(func(v string) { ed.edit(func(w *writ.Writ) { w.Title = v }) })),
				vdom.Input(vdom.Class("writ-tags"), vdom.Type("text"), vdom.Placeholder("tags, comma separated"),
					vdom.OnInput(func(v string) { ed.edit(func(w *writ.Writ) { w.Tags = splitTags(v) }) })),
				vdom.Input(vdom.Class("writ-description"), vdom.Type("text"), vdom.Placeholder("description"),
					vdom.OnInput(func(v string) { ed.edit(func(w *writ.Writ) { w.Description = v }) })),
				vdom.Button(vdom.Class("toggle-public"), vdom.OnClick(ed.TogglePublic), "private"),
				vdom.Button(vdom.Class("toggle-preview"), vdom.OnClick(func() { ed.SetPreview(!ed.previewOn) }), "preview"),
				vdom.Button(vdom.Class("new-writ"), vdom.OnClick(ed.New), "new"),
				vdom.Button(vdom.Class("save-writ"), vdom.OnClick(func() { _ = ed.Save() }), "save"),
			),
			vdom.Section(vdom.Class("writers-block"),
				vdom.Textarea(vdom.Class("markdown"), vdom.Rows(24),
					vdom.OnInput(func(v string) {
						ed.edit(func(w *writ.Writ) { w.Markdown = v })
						ed.renderPreview()
					})),
				vdom.Div(vdom.Class("view")),
			),
			vdom.Aside(vdom.Class("writ-selector"),
				vdom.OnClick(func(e *dom.Event) {
					if opt := e.Target.Closest(dom.ByClass("writ-option")); opt != nil {
						key, _ := opt.Attr("data-key")
						ed.Select(key)
					}
				}),
			),
			vdom.P(vdom.Class("status")),
		),
		vdom.Section(vdom.Class("stats"), vdom.Hidden()),
	)
}

// Consume shows the editor while #editor is active.
func (ed *Editor) Consume(_ *hashroute.Route, active bool, _ string) {
	if active {
		ed.el.RemoveAttr("hidden")
		return
	}
	ed.el.SetAttr("hidden", "")
}

// Events returns the editor's emitter.
func (ed *Editor) Events() *emitter.Emitter[EditorEvent] { return ed.events }

// Current returns the writ being edited.
func (ed *Editor) Current() *writ.Writ { return ed.current }

// Area returns the visible area.
func (ed *Editor) Area() string { return ed.area }

// SetArea switches between the editor and stats areas.
func (ed *Editor) SetArea(area string) {
	if area == ed.area || (area != AreaEditor && area != AreaStats) {
		return
	}
	ed.area = area
	ed.events.Emit(EventAreaChange, EditorEvent{Area: area})
}

// Load fetches the writs from the backend and selects the first one when
// nothing is being edited yet.
func (ed *Editor) Load() {
	ctx, cancel := context.WithTimeout(ed.site.opts.Context, backendTimeout)
	defer cancel()
	writs, err := ed.backend.Writs(ctx)
	if err != nil {
		ed.site.logger.Error("editor failed to load writs", "error", err)
		ed.status.SetText("could not load writs: " + err.Error())
		return
	}
	ed.writs = writs
	ed.events.Emit(EventWritsReady, EditorEvent{Writs: writs})
	if ed.current == nil && len(writs) > 0 {
		ed.Select(writs[0].Key)
	}
}

// Select starts editing the loaded writ with key.
func (ed *Editor) Select(key string) {
	for _, w := range ed.writs {
		if w.Key == key {
			ed.current = w
			ed.events.Emit(EventWritEdit, EditorEvent{Writ: w})
			return
		}
	}
}

// New starts a fresh writ authored by the signed-in admin.
func (ed *Editor) New() {
	w := &writ.Writ{}
	if u := ed.site.opts.User; u != nil {
		w.Author = u.Username
	}
	ed.current = w
	ed.events.Emit(EventWritEdit, EditorEvent{Writ: w})
}

// TogglePublic flips the current writ between public and private.
func (ed *Editor) TogglePublic() {
	ed.edit(func(w *writ.Writ) { w.Public = !w.Public })
	ed.syncPublic()
}

// SetPreview switches the rendered preview on or off.
func (ed *Editor) SetPreview(on bool) {
	if on == ed.previewOn {
		return
	}
	ed.previewOn = on
	ed.events.Emit(EventPreview, EditorEvent{Preview: on})
}

// Save stores the current writ and reloads the list.
func (ed *Editor) Save() error {
	w := ed.current
	if w == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ed.site.opts.Context, backendTimeout)
	defer cancel()
	err := ed.backend.Save(ctx, w)
	if err == nil {
		key, title := w.Key, w.Title
		ed.current = nil
		ed.Load()
		if ed.current == nil || ed.current.Key != key {
			ed.selectTitle(key, title)
		}
	}
	ed.events.Emit(EventSaved, EditorEvent{Writ: ed.current, Err: err})
	return err
}

func (ed *Editor) selectTitle(key, title string) {
	for _, w := range ed.writs {
		if (key != "" && w.Key == key) || w.Title == title {
			ed.Select(w.Key)
			return
		}
	}
}

func (ed *Editor) edit(fn func(*writ.Writ)) {
	if ed.current != nil {
		fn(ed.current)
	}
}

func (ed *Editor) onAreaChange(e EditorEvent) {
	for _, tab := range ed.el.FindAll(dom.ByClass("area")) {
		area, _ := tab.Attr("data-area")
		if (area == e.Area) != tab.HasClass("active") {
			tab.ToggleClass("active")
		}
	}
	if e.Area == AreaStats {
		ed.writing.SetAttr("hidden", "")
		ed.stats.RemoveAttr("hidden")
		ed.renderStats()
		return
	}
	ed.stats.SetAttr("hidden", "")
	ed.writing.RemoveAttr("hidden")
}

func (ed *Editor) onWritEdit(e EditorEvent) {
	w := e.Writ
	setInput(ed.title, w.Title)
	setInput(ed.tags, strings.Join(w.Tags, ", "))
	setInput(ed.description, w.Description)
	ed.markdown.SetValue(w.Markdown)
	ed.markdown.SetText(w.Markdown)
	ed.syncPublic()
	ed.renderPreview()
	for _, opt := range ed.selector.FindAll(dom.ByClass("writ-option")) {
		key, _ := opt.Attr("data-key")
		if (key == w.Key && w.Key != "") != opt.HasClass("selected") {
			opt.ToggleClass("selected")
		}
	}
}

func (ed *Editor) onPreview(e EditorEvent) {
	if e.Preview != ed.writing.HasClass("preview") {
		ed.writing.ToggleClass("preview")
	}
	btn := ed.el.Find(dom.ByClass("toggle-preview"))
	if e.Preview {
		btn.SetText("edit")
	} else {
		btn.SetText("preview")
	}
	ed.renderPreview()
}

func (ed *Editor) onWritsReady(e EditorEvent) {
	ed.selector.Clear()
	ed.selector.Append(ed.site.doc.Build(vdom.Range(e.Writs, func(w *writ.Writ, _ int) *vdom.VNode {
		return vdom.Div(vdom.Class("writ-option"), vdom.Data("key", w.Key),
			vdom.ClassIf(ed.current != nil && ed.current.Key == w.Key, "selected"),
			vdom.ClassIf(!w.Public, "draft"),
			w.Title)
	})...)...)
	if ed.area == AreaStats {
		ed.renderStats()
	}
}

func (ed *Editor) onSaved(e EditorEvent) {
	if e.Err != nil {
		ed.status.SetText("not saved: " + e.Err.Error())
		return
	}
	title := ""
	if e.Writ != nil {
		title = e.Writ.Title
	}
	ed.status.SetText("saved " + title)
}

func (ed *Editor) syncPublic() {
	label := "private"
	if ed.current != nil && ed.current.Public {
		label = "public"
	}
	ed.public.SetText(label)
}

func (ed *Editor) renderPreview() {
	ed.preview.Clear()
	if !ed.previewOn || ed.current == nil {
		return
	}
	html, err := writ.RenderMarkdown(ed.current.Markdown)
	if err != nil {
		ed.preview.SetText("preview failed: " + err.Error())
		return
	}
	ed.preview.Append(ed.site.doc.CreateRaw(html))
}

func (ed *Editor) renderStats() {
	var public, members, views int64
	for _, w := range ed.writs {
		if w.Public {
			public++
		}
		if w.MembersOnly {
			members++
		}
		views += w.Views
	}
	row := func(label string, n int64) *vdom.VNode {
		return vdom.Li(vdom.Span(vdom.Class("label"), label), vdom.Strong(fmt.Sprint(n)))
	}
	ed.stats.Clear()
	ed.stats.Append(ed.site.doc.Build(vdom.Ul(
		row("writs", int64(len(ed.writs))),
		row("public", public),
		row("drafts", int64(len(ed.writs))-public),
		row("members only", members),
		row("views", views),
	))...)
}

// setInput sets both the live value and the value attribute, so the input
// renders with the value and a client patch carries it.
func setInput(n *dom.Node, v string) {
	n.SetValue(v)
	n.SetAttr("value", v)
}

func splitTags(v string) []string {
	var tags []string
	for _, t := range strings.Split(v, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
