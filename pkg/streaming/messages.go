// Package streaming defines the frames exchanged with renderer clients over
// the snapshot websocket.
package streaming

// Message type constants for the renderer protocol.
const (
	TypeHello    = "hello"
	TypeSnapshot = "snapshot"
	TypeCommand  = "command"
	TypeAck      = "ack"
	TypeError    = "error"
)

// Envelope wraps every frame. Outbound frames are encoded with the hub's
// codec; inbound frames may be JSON text or msgpack binary.
type Envelope struct {
	Type    string `json:"type" msgpack:"type"`
	Payload any    `json:"payload,omitempty" msgpack:"payload,omitempty"`
}

// HelloPayload is sent once when a client connects.
type HelloPayload struct {
	Encoding       string `json:"encoding" msgpack:"encoding"`
	TickIntervalMs int64  `json:"tickIntervalMs" msgpack:"tickIntervalMs"`
}

// AckMessage acknowledges a command frame with its queue sequence number.
type AckMessage struct {
	Type string `json:"type" msgpack:"type"` // always "ack"
	For  string `json:"for" msgpack:"for"`   // the message type being acknowledged
	Seq  uint64 `json:"seq" msgpack:"seq"`
}

// ErrorMessage reports a frame the server could not accept.
type ErrorMessage struct {
	Type    string `json:"type" msgpack:"type"` // always "error"
	Message string `json:"message" msgpack:"message"`
}
