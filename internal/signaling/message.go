package signaling

import (
	"encoding/json"
	"fmt"
)

// Message defines the structure for all C2S (Client to Server)
// and S2C (Server to Client) websocket messages.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound event types.
const (
	EventJoin         = "join"
	EventOffer        = "offer"
	EventAnswer       = "answer"
	EventICECandidate = "ice_candidate"
)

// Outbound event types. Relayed events reuse the inbound names.
const (
	EventRoomStatus    = "room_status"
	EventRoomFull      = "room_full"
	EventRoomClosed    = "room_closed"
	EventRoomAvailable = "room_available"
)

// SessionDescriptionPayload is the inbound shape of offer and answer events.
type SessionDescriptionPayload struct {
	RoomID string `json:"roomId"`
	SDP    string `json:"sdp"`
	Type   string `json:"type"`
}

// ICECandidatePayload is the inbound shape of ice_candidate events.
type ICECandidatePayload struct {
	RoomID    string          `json:"roomId"`
	Candidate json.RawMessage `json:"candidate"`
}

// RelayedDescription is what the other member receives for offer and answer.
type RelayedDescription struct {
	SDP  string `json:"sdp"`
	Type string `json:"type"`
}

// RelayedCandidate is what the other member receives for ice_candidate.
type RelayedCandidate struct {
	Candidate json.RawMessage `json:"candidate"`
}

// RoomStatusPayload is sent to every member whenever membership changes.
type RoomStatusPayload struct {
	Size       int  `json:"size"`
	IsRoomFull bool `json:"isRoomFull"`
}

// RoomRefPayload carries just a room id (room_full, room_closed, room_available).
type RoomRefPayload struct {
	RoomID string `json:"roomId"`
}

// NewMessage marshals payload into a Message of the given type.
func NewMessage(t string, payload any) (*Message, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return &Message{Type: t, Payload: b}, nil
}

// mustMessage is for payload types defined in this file, which always marshal.
func mustMessage(t string, payload any) *Message {
	msg, err := NewMessage(t, payload)
	if err != nil {
		panic(err)
	}
	return msg
}

// DecodePayload decodes the message payload into v.
func (m *Message) DecodePayload(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%w: %s has no payload", ErrMalformed, m.Type)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, m.Type, err)
	}
	return nil
}

// joinRoomID extracts the room id of a join event. The payload must be a
// non-empty JSON string.
func joinRoomID(m *Message) (string, error) {
	var roomID string
	if err := m.DecodePayload(&roomID); err != nil {
		return "", err
	}
	if roomID == "" {
		return "", fmt.Errorf("%w: empty room id", ErrMalformed)
	}
	return roomID, nil
}

// relayTarget decodes a relay event, returning the room it names and the
// payload to forward with the room id stripped.
func relayTarget(m *Message) (string, *Message, error) {
	switch m.Type {
	case EventOffer, EventAnswer:
		var p SessionDescriptionPayload
		if err := m.DecodePayload(&p); err != nil {
			return "", nil, err
		}
		return p.RoomID, mustMessage(m.Type, RelayedDescription{SDP: p.SDP, Type: p.Type}), nil
	case EventICECandidate:
		var p ICECandidatePayload
		if err := m.DecodePayload(&p); err != nil {
			return "", nil, err
		}
		return p.RoomID, mustMessage(m.Type, RelayedCandidate{Candidate: p.Candidate}), nil
	default:
		return "", nil, fmt.Errorf("%w: unknown event %q", ErrMalformed, m.Type)
	}
}
