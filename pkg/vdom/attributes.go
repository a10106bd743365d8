package vdom

import "strings"

// attr creates an Attr with the given key and value.
func attr(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

// Identity attributes

// ID sets the id attribute.
func ID(id string) Attr { return attr("id", id) }

// Class sets the class attribute. Multiple Class args on one element accumulate.
func Class(classes ...string) Attr { return attr("class", strings.Join(classes, " ")) }

// StyleAttr sets the inline style attribute.
func StyleAttr(style string) Attr { return attr("style", style) }

// Data sets a data-* attribute.
func Data(key, value string) Attr { return attr("data-"+key, value) }

// AttrOf sets an arbitrary attribute.
func AttrOf(key string, value any) Attr { return attr(key, value) }

// Role sets the ARIA role.
func Role(role string) Attr { return attr("role", role) }

// AriaLabel sets aria-label.
func AriaLabel(label string) Attr { return attr("aria-label", label) }

// TitleAttr sets the title attribute.
func TitleAttr(title string) Attr { return attr("title", title) }

// Hidden sets the hidden attribute.
func Hidden() Attr { return attr("hidden", true) }

// Lang sets the lang attribute.
func Lang(lang string) Attr { return attr("lang", lang) }

// Links

func Href(url string) Attr      { return attr("href", url) }
func Target(target string) Attr { return attr("target", target) }
func Rel(rel string) Attr       { return attr("rel", rel) }

// Forms

func Name(name string) Attr        { return attr("name", name) }
func Value(value string) Attr      { return attr("value", value) }
func Type(t string) Attr           { return attr("type", t) }
func Placeholder(text string) Attr { return attr("placeholder", text) }
func Disabled() Attr               { return attr("disabled", true) }
func Required() Attr               { return attr("required", true) }
func Checked() Attr                { return attr("checked", true) }
func Selected() Attr               { return attr("selected", true) }
func Autocomplete(v string) Attr   { return attr("autocomplete", v) }
func Accept(types string) Attr     { return attr("accept", types) }
func Rows(n int) Attr              { return attr("rows", n) }
func Action(url string) Attr       { return attr("action", url) }
func Method(method string) Attr    { return attr("method", method) }
func For(id string) Attr           { return attr("for", id) }

// Media and document metadata

func Src(url string) Attr         { return attr("src", url) }
func Alt(text string) Attr        { return attr("alt", text) }
func Charset(charset string) Attr { return attr("charset", charset) }
func Content(content string) Attr { return attr("content", content) }
func Defer() Attr                 { return attr("defer", true) }

// Open sets the open attribute (for details and toggleable elements).
func Open() Attr { return attr("open", true) }

// DateTime sets the datetime attribute of a <time> element.
func DateTime(value string) Attr { return attr("datetime", value) }

// Conditional attributes

// ClassIf adds a class conditionally.
func ClassIf(condition bool, class string) Attr {
	if condition {
		return attr("class", class)
	}
	return Attr{}
}

// AttrIf adds any attribute conditionally.
func AttrIf(condition bool, a Attr) Attr {
	if condition {
		return a
	}
	return Attr{}
}

// Routing attributes

// Route marks an element as bound to the named route. On a <template> the
// content becomes the route's view; on any other element the element hosts
// the route's view while it is active.
func Route(name string) Attr { return attr("route", name) }

// RouteActive marks an element as the host for whichever route is active.
func RouteActive() Attr { return attr("route-active", true) }

// RouteLink makes clicking the element activate the named route.
func RouteLink(name string) Attr { return attr("route-link", name) }
