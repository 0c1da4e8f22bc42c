package ws

const (
	// client - server
	MsgPing = "ping"

	// server - client
	MsgReady        = "ready"
	MsgPong         = "pong"
	MsgNotification = "notification"
	MsgError        = "error"
)

// Envelope is every frame the server writes.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type inbound struct {
	Type string `json:"type"`
}
