// Package dom is a small server-side document model.
//
// A Document owns a tree of Nodes rooted at its body, a Location with
// hash history, a queue of deferred tasks and a registry of attribute
// directives. It is not safe for concurrent use: every call must happen on
// the goroutine that owns the document (a live session's event loop, or a
// test).
//
// # Directives
//
// A directive is keyed by an attribute name. When an element carrying the
// attribute becomes connected to the document, the directive's Init runs;
// changing the attribute value on a connected element runs Update; removing
// the attribute or disconnecting the element runs Remove. Elements inside
// <template> content are never connected and never initialised.
//
// # Tasks
//
// RunAsync queues work for the next task boundary. Location changes fire
// "hashchange" through the same queue. Flush drains it.
package dom
