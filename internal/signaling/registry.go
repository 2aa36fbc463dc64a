package signaling

// ParticipantID identifies one live connection. It is opaque to the core.
type ParticipantID string

//go:generate mockgen -source=registry.go -destination=mock_peer_test.go -package=signaling

// Peer is the outbound side of a participant's connection.
type Peer interface {
	ID() ParticipantID

	// Send queues msg for delivery without blocking. It reports false when
	// the message could not be queued; callers ignore the failure.
	Send(msg *Message) bool
}

// Registry tracks the participants that are currently connected.
// It is owned by the Hub goroutine and is not safe for concurrent use.
type Registry struct {
	peers map[ParticipantID]Peer
	// order keeps broadcast delivery in connect order.
	order []ParticipantID
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{peers: make(map[ParticipantID]Peer)}
}

// Add records p as live. Adding an id twice replaces the previous peer.
func (r *Registry) Add(p Peer) {
	if _, ok := r.peers[p.ID()]; !ok {
		r.order = append(r.order, p.ID())
	}
	r.peers[p.ID()] = p
}

// Remove forgets id and returns the peer it denoted, if any.
func (r *Registry) Remove(id ParticipantID) (Peer, bool) {
	p, ok := r.peers[id]
	if !ok {
		return nil, false
	}
	delete(r.peers, id)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return p, true
}

// Get returns the live peer for id.
func (r *Registry) Get(id ParticipantID) (Peer, bool) {
	p, ok := r.peers[id]
	return p, ok
}

// Live reports whether id currently denotes a live connection.
func (r *Registry) Live(id ParticipantID) bool {
	_, ok := r.peers[id]
	return ok
}

// All returns every live peer in connect order.
func (r *Registry) All() []Peer {
	out := make([]Peer, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.peers[id])
	}
	return out
}

// Len returns the number of live peers.
func (r *Registry) Len() int {
	return len(r.peers)
}
