package render

import (
	"fmt"
	"io"

	"github.com/sauldoescode/saul.app/pkg/vdom"
)

// PageData contains all data needed to render a complete HTML page.
type PageData struct {
	// Body is the content placed inside <body>.
	Body *vdom.VNode

	// Title is the page title.
	Title string

	// Description fills the description meta tag when set.
	Description string

	// StyleSheets contains paths to external stylesheets.
	StyleSheets []string

	// LivePath is the websocket endpoint the client connects to.
	// Empty disables the live client entirely (static render).
	LivePath string

	// ClientScript is the path to the thin client JavaScript.
	// Defaults to "/static/client.js".
	ClientScript string

	// Lang is the language attribute for the html element.
	// Defaults to "en".
	Lang string
}

// RenderPage renders a complete HTML document to the given writer.
func (r *Renderer) RenderPage(w io.Writer, page PageData) error {
	lang := page.Lang
	if lang == "" {
		lang = "en"
	}

	if _, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html lang=\"%s\">\n<head>\n", escapeAttr(lang)); err != nil {
		return err
	}
	if _, err := io.WriteString(w, `  <meta charset="utf-8">`+"\n"+
		`  <meta name="viewport" content="width=device-width, initial-scale=1">`+"\n"); err != nil {
		return err
	}
	if page.Title != "" {
		if _, err := fmt.Fprintf(w, "  <title>%s</title>\n", escapeHTML(page.Title)); err != nil {
			return err
		}
	}
	if page.Description != "" {
		if _, err := fmt.Fprintf(w, `  <meta name="description" content="%s">`+"\n", escapeAttr(page.Description)); err != nil {
			return err
		}
	}
	for _, href := range page.StyleSheets {
		if _, err := fmt.Fprintf(w, `  <link rel="stylesheet" href="%s">`+"\n", escapeAttr(href)); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "</head>\n<body>\n"); err != nil {
		return err
	}

	if err := r.renderBodyContent(w, page.Body); err != nil {
		return err
	}

	if page.LivePath != "" {
		clientPath := page.ClientScript
		if clientPath == "" {
			clientPath = "/static/client.js"
		}
		if _, err := fmt.Fprintf(w, `  <script src="%s" data-live="%s" defer></script>`+"\n",
			escapeAttr(clientPath), escapeAttr(page.LivePath)); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, "</body>\n</html>\n")
	return err
}

// renderBodyContent renders the page body. A <body> root is unwrapped so its
// children are not nested in a second body element.
func (r *Renderer) renderBodyContent(w io.Writer, body *vdom.VNode) error {
	if body == nil {
		return nil
	}
	if body.Kind == vdom.KindElement && body.Tag == "body" {
		for _, child := range body.Children {
			if err := r.RenderToWriter(w, child); err != nil {
				return err
			}
		}
	} else if err := r.RenderToWriter(w, body); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
