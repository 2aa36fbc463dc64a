package signaling

import (
	"github.com/BioHazard786/roomrelay/internal/metrics"
)

// Router delivers messages to participants. It reads the Table but never
// mutates it. Delivery is fire-and-forget: a peer that cannot accept a
// message is skipped and the rest still receive it.
type Router struct {
	registry *Registry
	table    *Table
}

// NewRouter creates a Router over the given registry and table.
func NewRouter(registry *Registry, table *Table) *Router {
	return &Router{registry: registry, table: table}
}

// RouteToOthers delivers msg to every member of roomID except sender and
// returns how many deliveries succeeded. A sender outside the room gets
// ErrNotAMember and nothing is delivered.
func (r *Router) RouteToOthers(roomID string, sender ParticipantID, msg *Message) (int, error) {
	if !r.table.IsMember(roomID, sender) {
		metrics.Dropped.WithLabelValues(metrics.DropNotMember).Inc()
		return 0, ErrNotAMember
	}
	delivered := 0
	for _, id := range r.table.Members(roomID) {
		if id == sender {
			continue
		}
		if r.SendTo(id, msg) {
			delivered++
		}
	}
	metrics.Relayed.WithLabelValues(msg.Type).Add(float64(delivered))
	return delivered, nil
}

// NotifySession delivers msg to every member of roomID, including the one
// whose action triggered it.
func (r *Router) NotifySession(roomID string, msg *Message) int {
	delivered := 0
	for _, id := range r.table.Members(roomID) {
		if r.SendTo(id, msg) {
			delivered++
		}
	}
	metrics.Notifications.WithLabelValues(msg.Type).Add(float64(delivered))
	return delivered
}

// BroadcastAll delivers msg to every connected participant, in a room or not.
// It backs the lobby-wide room_closed and room_available announcements.
func (r *Router) BroadcastAll(msg *Message) int {
	delivered := 0
	for _, p := range r.registry.All() {
		if r.deliver(p, msg) {
			delivered++
		}
	}
	metrics.Notifications.WithLabelValues(msg.Type).Add(float64(delivered))
	return delivered
}

// SendTo delivers msg to a single participant.
func (r *Router) SendTo(id ParticipantID, msg *Message) bool {
	p, ok := r.registry.Get(id)
	if !ok {
		metrics.Dropped.WithLabelValues(metrics.DropSendFailed).Inc()
		return false
	}
	return r.deliver(p, msg)
}

func (r *Router) deliver(p Peer, msg *Message) bool {
	if !p.Send(msg) {
		metrics.Dropped.WithLabelValues(metrics.DropSendFailed).Inc()
		return false
	}
	return true
}
