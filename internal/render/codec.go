package render

import (
	"encoding/json"
	"fmt"

	ws "github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// Supported stream encodings.
const (
	EncodingJSON    = "json"
	EncodingMsgpack = "msgpack"
)

type codec struct {
	name        string
	messageType int
	marshal     func(any) ([]byte, error)
}

func codecFor(encoding string) (codec, error) {
	switch encoding {
	case "", EncodingJSON:
		return codec{name: EncodingJSON, messageType: ws.TextMessage, marshal: json.Marshal}, nil
	case EncodingMsgpack:
		return codec{name: EncodingMsgpack, messageType: ws.BinaryMessage, marshal: msgpack.Marshal}, nil
	default:
		return codec{}, fmt.Errorf("unknown render encoding: %s", encoding)
	}
}

// decodeFrame reads an inbound frame in whichever encoding the client chose.
func decodeFrame(messageType int, data []byte, v any) error {
	if messageType == ws.BinaryMessage {
		return msgpack.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}
