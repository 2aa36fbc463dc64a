package client

import (
	"encoding/json"
	"log/slog"

	"github.com/BioHazard786/roomrelay/internal/signaling"
)

// Event is a decoded relay notification.
type Event struct {
	// Type is the relay event name (room_status, offer, ...).
	Type string

	// RoomID is set for room_full, room_closed and room_available.
	RoomID string

	// Status is set for room_status.
	Status signaling.RoomStatusPayload

	// Description is set for offer and answer.
	Description signaling.RelayedDescription

	// Candidate is set for ice_candidate.
	Candidate json.RawMessage
}

// Handler decodes incoming relay messages into Events.
type Handler struct {
	client *Client
	log    *slog.Logger
	events chan Event
}

// NewHandler creates a new message handler.
func NewHandler(client *Client, log *slog.Logger) *Handler {
	return &Handler{
		client: client,
		log:    log,
		events: make(chan Event, 64),
	}
}

// Events returns the decoded events. It is closed once the connection ends.
func (h *Handler) Events() <-chan Event {
	return h.events
}

// Start begins listening to incoming messages and decoding them. It returns
// when the connection ends or the client is closed.
func (h *Handler) Start() {
	defer close(h.events)
	for msg := range h.client.Incoming() {
		ev, err := Decode(msg)
		if err != nil {
			h.log.Debug("ignoring relay message", "type", msg.Type, "error", err)
			continue
		}
		select {
		case h.events <- ev:
		case <-h.client.Done():
			return
		}
	}
}

// Decode turns one relay message into an Event.
func Decode(msg *signaling.Message) (Event, error) {
	ev := Event{Type: msg.Type}
	var err error

	switch msg.Type {
	case signaling.EventRoomStatus:
		err = msg.DecodePayload(&ev.Status)

	case signaling.EventRoomFull, signaling.EventRoomClosed, signaling.EventRoomAvailable:
		var ref signaling.RoomRefPayload
		err = msg.DecodePayload(&ref)
		ev.RoomID = ref.RoomID

	case signaling.EventOffer, signaling.EventAnswer:
		err = msg.DecodePayload(&ev.Description)

	case signaling.EventICECandidate:
		var c signaling.RelayedCandidate
		err = msg.DecodePayload(&c)
		ev.Candidate = c.Candidate

	default:
		return ev, WrapError("decode event", ErrUnexpectedSignal, msg.Type)
	}
	if err != nil {
		return ev, NewError("decode "+msg.Type, err)
	}
	return ev, nil
}
