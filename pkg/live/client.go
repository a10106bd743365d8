package live

import (
	"bytes"
	_ "embed"
	"net/http"
	"time"
)

// ClientPath is where ClientHandler is usually mounted.
const ClientPath = "/live/client.js"

//go:embed client.js
var clientScript []byte

var clientModTime = time.Now()

// ClientScript returns the embedded browser client.
func ClientScript() []byte { return clientScript }

// ClientHandler serves the embedded browser client.
func ClientHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeContent(w, r, "client.js", clientModTime, bytes.NewReader(clientScript))
	})
}
