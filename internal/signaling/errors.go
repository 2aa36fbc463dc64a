package signaling

import "errors"

var (
	// ErrRoomFull is returned when joining a room that is already at capacity.
	// It is the only error reported back to the participant (as room_full).
	ErrRoomFull = errors.New("room is full")

	// ErrNotAMember is returned when a relay event names a room the sender is
	// not in. Such events are dropped without a reply.
	ErrNotAMember = errors.New("sender is not a member of the room")

	// ErrMalformed covers frames that cannot be decoded into a known event.
	ErrMalformed = errors.New("malformed message")

	// ErrHubStopped is returned by Hub entry points once Run has returned.
	ErrHubStopped = errors.New("hub stopped")
)
