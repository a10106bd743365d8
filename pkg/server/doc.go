// Package server is the blog's HTTP surface on a chi router.
//
// A Server serves three things:
//
//   - the shell page at / and /writ/{slug}, rendered on the server with the
//     writ's hash route already active;
//   - the live endpoint at /live, where each websocket connection gets its
//     own document and router (see package live);
//   - a small JSON API for magic-link auth, writ editing and uploads.
//
// Publishing a writ, from the API or a live editor, fans out to every open
// session and mails subscribers:
//
//	deps, closer, err := server.OpenDeps(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	defer closer.Close()
//	return server.New(cfg, deps).Run(ctx)
//
// Errors are answered as JSON with the registry code:
//
//	{"code":"E081","error":"Writ not found"}
package server
