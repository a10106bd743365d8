package live

// Message types exchanged over the live websocket.
const (
	// Client to server.
	MsgClick = "click"
	MsgInput = "input"
	MsgHash  = "hash"

	// Server to client.
	MsgBody  = "body"
	MsgPatch = "patch"
	MsgError = "error"
)

// Message is the JSON envelope of every websocket frame. MsgHash travels
// both ways: the client reports browser navigation and the server reports
// location changes made by the document.
type Message struct {
	Type string `json:"type"`

	// ID addresses a node by its data-nid attribute.
	ID string `json:"id,omitempty"`

	Value string `json:"value,omitempty"`
	Hash  string `json:"hash,omitempty"`

	// HTML is the body markup of a MsgBody message.
	HTML string `json:"html,omitempty"`

	Patches []Patch `json:"patches,omitempty"`

	// Error and Code describe a rejected client message.
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// Patch replaces the element carrying data-nid ID with HTML.
type Patch struct {
	ID   string `json:"id"`
	HTML string `json:"html"`
}
