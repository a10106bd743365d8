// Package render turns vdom trees into HTML.
//
// It is used in two places: the server renders the full page shell for the
// first request (and for crawlers that never open a live session), and live
// sessions render single subtrees when the document changes.
//
// # Basic Usage
//
//	renderer := render.NewRenderer(render.RendererConfig{})
//	html, err := renderer.RenderToString(node)
//
// # Full Page Rendering
//
//	err := renderer.RenderPage(w, render.PageData{
//	    Title:     "saul.app",
//	    Body:      body,
//	    LivePath:  "/live",
//	})
//
// # Event markers
//
// Elements with event handlers get a data-on-<event> marker so the thin
// client knows which interactions to forward over the live connection.
// Handlers themselves never leave the server.
package render
