package signaling

import (
	"context"
	"errors"
	"log/slog"

	"github.com/BioHazard786/roomrelay/internal/metrics"
)

type eventKind int

const (
	eventRegister eventKind = iota
	eventUnregister
	eventMessage
	eventSnapshot
)

// event is one unit of work for the hub loop. A single channel carries every
// kind so that the hub sees them in the order the transport produced them.
type event struct {
	kind  eventKind
	peer  Peer
	from  ParticipantID
	msg   *Message
	reply chan []RoomInfo
}

// closer is implemented by peers that own an outbound queue the hub must
// release once the participant is gone.
type closer interface {
	Close()
}

// Hub is the central brain of the signaling server.
// It owns the registry and the room table; Run is the only goroutine that
// reads or writes them, which makes every join and leave atomic with respect
// to all other events.
type Hub struct {
	registry *Registry
	table    *Table
	router   *Router
	log      *slog.Logger

	events chan event
	done   chan struct{}
}

// NewHub creates a Hub with two-party rooms.
func NewHub(log *slog.Logger) *Hub {
	registry := NewRegistry()
	table := NewTable(Capacity)
	return &Hub{
		registry: registry,
		table:    table,
		router:   NewRouter(registry, table),
		log:      log,
		events:   make(chan event, 256),
		done:     make(chan struct{}),
	}
}

// Run processes events until ctx is cancelled. On return every remaining
// peer is closed and further calls to Register, Unregister, Dispatch and
// Snapshot fail with ErrHubStopped.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.drain()
			h.shutdown()
			return
		case ev := <-h.events:
			h.process(ev)
		}
	}
}

// Register announces a new connection.
func (h *Hub) Register(p Peer) error {
	return h.submit(event{kind: eventRegister, peer: p})
}

// Unregister announces that a connection is gone.
func (h *Hub) Unregister(p Peer) error {
	return h.submit(event{kind: eventUnregister, from: p.ID()})
}

// Dispatch hands an inbound message from a participant to the hub.
func (h *Hub) Dispatch(from ParticipantID, msg *Message) error {
	return h.submit(event{kind: eventMessage, from: from, msg: msg})
}

// Snapshot returns the current rooms, as seen by the hub loop.
func (h *Hub) Snapshot(ctx context.Context) ([]RoomInfo, error) {
	reply := make(chan []RoomInfo, 1)
	if err := h.submit(event{kind: eventSnapshot, reply: reply}); err != nil {
		return nil, err
	}
	select {
	case rooms := <-reply:
		return rooms, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return nil, ErrHubStopped
	}
}

func (h *Hub) submit(ev event) error {
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}
	select {
	case h.events <- ev:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

func (h *Hub) process(ev event) {
	switch ev.kind {
	case eventRegister:
		h.connect(ev.peer)
	case eventUnregister:
		h.disconnect(ev.from)
	case eventMessage:
		h.handle(ev.from, ev.msg)
	case eventSnapshot:
		ev.reply <- h.table.Snapshot()
	}
	metrics.ParticipantsConnected.Set(float64(h.registry.Len()))
	metrics.RoomsActive.Set(float64(h.table.Len()))
}

func (h *Hub) connect(p Peer) {
	h.registry.Add(p)
	h.log.Info("participant connected", "participant", p.ID())
}

func (h *Hub) disconnect(id ParticipantID) {
	p, ok := h.registry.Remove(id)
	if !ok {
		return
	}
	h.log.Info("participant disconnected", "participant", id)

	for _, d := range h.table.Leave(id) {
		if d.Closed {
			h.log.Info("room removed", "room", d.RoomID)
			h.router.BroadcastAll(mustMessage(EventRoomAvailable, RoomRefPayload{RoomID: d.RoomID}))
			continue
		}
		h.log.Info("peer left room", "room", d.RoomID, "size", d.Size)
		h.router.NotifySession(d.RoomID, mustMessage(EventRoomStatus, RoomStatusPayload{
			Size:       d.Size,
			IsRoomFull: d.Size >= h.table.Capacity(),
		}))
	}

	if c, ok := p.(closer); ok {
		c.Close()
	}
}

func (h *Hub) handle(from ParticipantID, msg *Message) {
	if !h.registry.Live(from) {
		h.log.Debug("message from unknown participant", "participant", from, "event", msg.Type)
		return
	}

	switch msg.Type {
	case EventJoin:
		roomID, err := joinRoomID(msg)
		if err != nil {
			h.drop(from, msg, err)
			return
		}
		h.join(from, roomID)

	case EventOffer, EventAnswer, EventICECandidate:
		h.relay(from, msg)

	default:
		h.drop(from, msg, ErrMalformed)
	}
}

func (h *Hub) join(from ParticipantID, roomID string) {
	size, err := h.table.Join(roomID, from)
	if errors.Is(err, ErrRoomFull) {
		metrics.Joins.WithLabelValues(metrics.JoinFull).Inc()
		h.log.Info("room join rejected", "participant", from, "room", roomID, "reason", err)
		if h.router.SendTo(from, mustMessage(EventRoomFull, RoomRefPayload{RoomID: roomID})) {
			metrics.Notifications.WithLabelValues(EventRoomFull).Inc()
		}
		return
	}
	metrics.Joins.WithLabelValues(metrics.JoinJoined).Inc()
	h.log.Info("participant joined room", "participant", from, "room", roomID, "size", size)

	full := size >= h.table.Capacity()
	h.router.NotifySession(roomID, mustMessage(EventRoomStatus, RoomStatusPayload{
		Size:       size,
		IsRoomFull: full,
	}))
	if full {
		h.router.BroadcastAll(mustMessage(EventRoomClosed, RoomRefPayload{RoomID: roomID}))
	}
}

func (h *Hub) relay(from ParticipantID, msg *Message) {
	roomID, out, err := relayTarget(msg)
	if err != nil {
		h.drop(from, msg, err)
		return
	}
	n, err := h.router.RouteToOthers(roomID, from, out)
	if err != nil {
		h.log.Debug("relay dropped", "participant", from, "room", roomID, "event", msg.Type, "reason", err)
		return
	}
	h.log.Debug("relayed", "participant", from, "room", roomID, "event", msg.Type, "delivered", n)
}

func (h *Hub) drop(from ParticipantID, msg *Message, err error) {
	metrics.Dropped.WithLabelValues(metrics.DropMalformed).Inc()
	h.log.Debug("message dropped", "participant", from, "event", msg.Type, "reason", err)
}

// drain registers connections still queued when the hub stops so that
// shutdown closes them too. Other queued events are discarded.
func (h *Hub) drain() {
	for {
		select {
		case ev := <-h.events:
			if ev.kind == eventRegister {
				h.registry.Add(ev.peer)
			}
		default:
			return
		}
	}
}

func (h *Hub) shutdown() {
	for _, p := range h.registry.All() {
		h.registry.Remove(p.ID())
		h.table.Leave(p.ID())
		if c, ok := p.(closer); ok {
			c.Close()
		}
	}
	h.log.Info("hub stopped")
}
