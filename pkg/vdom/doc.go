// Package vdom describes UI as plain Go values.
//
// A VNode tree is an inert description of markup: elements, text, raw HTML
// and fragments. Views for the hash router are usually written with the
// element helpers in this package and turned into live nodes with dom.Build,
// or rendered straight to HTML with the render package.
//
// # Element API
//
// Elements are created using variadic factory functions:
//
//	Section(Class("writ"),
//	    H1(Text("Title")),
//	    A(RouteLink("about"), Text("about me")),
//	    OnClick(handler),
//	)
//
// Arguments may be attributes, event handlers, child nodes, slices of
// child nodes, strings (text shorthand) or nil, which is ignored so that
// conditional attributes read naturally.
//
// # Routing attributes
//
// Route, RouteActive and RouteLink produce the declarative attributes the
// hashroute directives react to once the markup is attached to a document.
package vdom
