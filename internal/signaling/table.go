package signaling

import (
	"sort"

	"github.com/samber/lo"
)

// Capacity is the number of participants a room holds.
const Capacity = 2

// room is one entry of the Table. members keeps join order.
type room struct {
	id      string
	members []ParticipantID
}

func (r *room) has(id ParticipantID) bool {
	return lo.Contains(r.members, id)
}

// Departure describes what happened to one room when a participant left it.
type Departure struct {
	RoomID string
	// Size is the member count after removal.
	Size int
	// Closed is set when the room became empty and was removed.
	Closed bool
}

// RoomInfo is a point-in-time view of one room.
type RoomInfo struct {
	RoomID     string `json:"roomId"`
	Size       int    `json:"size"`
	IsRoomFull bool   `json:"isRoomFull"`
}

// Table maps room ids to their members and enforces capacity.
//
// Every mutation keeps two invariants: a room holds between 1 and capacity
// members, and a room with no members is not in the table. The reverse index
// (participant -> rooms) is updated in the same call as the forward map.
//
// Table is owned by the Hub goroutine and is not safe for concurrent use.
type Table struct {
	capacity int
	rooms    map[string]*room
	// joined lists, per participant, the rooms it is in, in join order.
	joined map[ParticipantID][]string
}

// NewTable returns an empty table. A capacity below one falls back to Capacity.
func NewTable(capacity int) *Table {
	if capacity < 1 {
		capacity = Capacity
	}
	return &Table{
		capacity: capacity,
		rooms:    make(map[string]*room),
		joined:   make(map[ParticipantID][]string),
	}
}

// Join adds id to roomID, creating the room if needed, and returns the new
// member count. A room at capacity is left untouched and ErrRoomFull is
// returned. Joining a room id is already in changes nothing and returns the
// current size.
func (t *Table) Join(roomID string, id ParticipantID) (int, error) {
	r, ok := t.rooms[roomID]
	if !ok {
		r = &room{id: roomID}
		t.rooms[roomID] = r
	}
	if r.has(id) {
		return len(r.members), nil
	}
	if len(r.members) >= t.capacity {
		return len(r.members), ErrRoomFull
	}
	r.members = append(r.members, id)
	t.joined[id] = append(t.joined[id], roomID)
	return len(r.members), nil
}

// Leave removes id from every room it is in.
func (t *Table) Leave(id ParticipantID) []Departure {
	roomIDs, ok := t.joined[id]
	if !ok {
		return nil
	}
	delete(t.joined, id)

	departures := make([]Departure, 0, len(roomIDs))
	for _, roomID := range roomIDs {
		r, ok := t.rooms[roomID]
		if !ok {
			continue
		}
		r.members = lo.Without(r.members, id)
		d := Departure{RoomID: roomID, Size: len(r.members)}
		if d.Size == 0 {
			delete(t.rooms, roomID)
			d.Closed = true
		}
		departures = append(departures, d)
	}
	return departures
}

// SizeOf returns the member count of roomID, or 0 if it does not exist.
func (t *Table) SizeOf(roomID string) int {
	if r, ok := t.rooms[roomID]; ok {
		return len(r.members)
	}
	return 0
}

// Members returns a copy of the members of roomID in join order.
func (t *Table) Members(roomID string) []ParticipantID {
	r, ok := t.rooms[roomID]
	if !ok {
		return nil
	}
	return append([]ParticipantID(nil), r.members...)
}

// IsMember reports whether id is in roomID.
func (t *Table) IsMember(roomID string, id ParticipantID) bool {
	r, ok := t.rooms[roomID]
	return ok && r.has(id)
}

// RoomsOf returns the rooms id is in, in join order.
func (t *Table) RoomsOf(id ParticipantID) []string {
	return append([]string(nil), t.joined[id]...)
}

// Len returns the number of rooms.
func (t *Table) Len() int {
	return len(t.rooms)
}

// Capacity returns the configured room capacity.
func (t *Table) Capacity() int {
	return t.capacity
}

// Snapshot lists every room sorted by id.
func (t *Table) Snapshot() []RoomInfo {
	infos := lo.MapToSlice(t.rooms, func(id string, r *room) RoomInfo {
		return RoomInfo{
			RoomID:     id,
			Size:       len(r.members),
			IsRoomFull: len(r.members) >= t.capacity,
		}
	})
	sort.Slice(infos, func(i, j int) bool { return infos[i].RoomID < infos[j].RoomID })
	return infos
}
