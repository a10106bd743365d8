// Package site builds the blog UI on top of a live document.
//
// Mount lays out the sidebar, the route-active main host and one template
// per view. The templates carry route attributes, so the hashroute
// directives turn them into #home, #writs, #about and #writ-<slug> routes.
// Admin sessions also get the #editor area, whose widgets coordinate
// through an emitter.Emitter.
//
//	doc := dom.NewDocument()
//	router := hashroute.Install(doc)
//	s := site.Mount(doc, router, site.Options{Writs: writs, User: user})
//	s.AddWrit(published)
package site
