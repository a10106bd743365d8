package site

import (
	"github.com/sauldoescode/saul.app/pkg/dom"
	"github.com/sauldoescode/saul.app/pkg/hashroute"
	"github.com/sauldoescode/saul.app/pkg/vdom"
)

// Render mounts the site into a throwaway document at hash, settles its
// routing and returns the body's children for server-side rendering.
func Render(opts Options, hash string) *vdom.VNode {
	docOpts := []dom.Option{dom.WithHash(hash)}
	if opts.Logger != nil {
		docOpts = append(docOpts, dom.WithLogger(opts.Logger))
	}
	doc := dom.NewDocument(docOpts...)
	router := hashroute.Install(doc)
	defer router.Close()
	Mount(doc, router, opts)
	doc.Flush()

	body := doc.Body().Snapshot()
	return vdom.Fragment(body.Children)
}
