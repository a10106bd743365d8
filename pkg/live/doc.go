// Package live keeps a server-side document per browser tab and mirrors it
// to the browser over a websocket.
//
// Each Session owns a dom.Document with a hash router and a mounted site.
// Three goroutines serve it:
//
//   - ReadLoop decodes JSON messages from the client and queues them.
//   - EventLoop applies them to the document one at a time, flushes the
//     document's task queue and sends the changed elements as patches.
//   - WriteLoop sends heartbeat pings.
//
// The client speaks a small JSON protocol (see Message):
//
//	-> {"type":"click","id":"n12"}
//	-> {"type":"input","id":"n40","value":"draft title"}
//	-> {"type":"hash","hash":"#writs"}
//	<- {"type":"body","html":"<side-bar data-nid=\"n2\" ..."}
//	<- {"type":"patch","patches":[{"id":"n7","html":"<main ...>"}]}
//	<- {"type":"hash","hash":"#about"}
//
// Elements are addressed by their data-nid attribute. A Hub tracks open
// sessions and fans server-side events, such as a newly published writ, out
// to every session through Session.Dispatch.
package live
