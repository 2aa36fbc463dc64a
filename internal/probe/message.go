package probe

import "github.com/vmihailenco/msgpack/v5"

// Data channel message types.
const (
	TypePing = "ping"
	TypePong = "pong"
)

// Message represents all probe data channel messages
type Message struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// PingPayload is echoed back unchanged in the pong.
type PingPayload struct {
	Seq    uint32 `msgpack:"seq"`
	SentAt int64  `msgpack:"sentAt"` // unix nanoseconds on the sender's clock
}

// DecodePayload decodes the message payload into the provided struct
func (m Message) DecodePayload(v any) error {
	return msgpack.Unmarshal(m.Payload, v)
}

// Encode builds a Message with the given type and payload and serializes it.
func Encode(t string, payload any) ([]byte, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(Message{Type: t, Payload: b})
}

// Decode parses a data channel frame.
func Decode(data []byte) (Message, error) {
	var msg Message
	err := msgpack.Unmarshal(data, &msg)
	return msg, err
}
