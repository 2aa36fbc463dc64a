package signaling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableJoinUpToCapacity(t *testing.T) {
	tbl := NewTable(Capacity)

	size, err := tbl.Join("room1", "x")
	require.NoError(t, err)
	assert.Equal(t, 1, size)

	size, err = tbl.Join("room1", "y")
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	size, err = tbl.Join("room1", "z")
	assert.ErrorIs(t, err, ErrRoomFull)
	assert.Equal(t, 2, size)
	assert.Equal(t, []ParticipantID{"x", "y"}, tbl.Members("room1"))
	assert.Empty(t, tbl.RoomsOf("z"))
}

func TestTableJoinTwiceIsIdempotent(t *testing.T) {
	tbl := NewTable(Capacity)
	_, err := tbl.Join("room1", "x")
	require.NoError(t, err)

	size, err := tbl.Join("room1", "x")
	require.NoError(t, err)
	assert.Equal(t, 1, size)
	assert.Equal(t, []string{"room1"}, tbl.RoomsOf("x"))

	_, err = tbl.Join("room1", "y")
	require.NoError(t, err)
	size, err = tbl.Join("room1", "y")
	require.NoError(t, err, "a member re-joining a full room is not rejected")
	assert.Equal(t, 2, size)
}

func TestTableLeave(t *testing.T) {
	tbl := NewTable(Capacity)
	_, _ = tbl.Join("room1", "x")
	_, _ = tbl.Join("room1", "y")

	deps := tbl.Leave("y")
	require.Len(t, deps, 1)
	assert.Equal(t, Departure{RoomID: "room1", Size: 1}, deps[0])
	assert.Equal(t, 1, tbl.SizeOf("room1"))

	deps = tbl.Leave("x")
	require.Len(t, deps, 1)
	assert.Equal(t, Departure{RoomID: "room1", Size: 0, Closed: true}, deps[0])
	assert.Zero(t, tbl.Len(), "empty rooms are removed, never kept empty")
	assert.Nil(t, tbl.Members("room1"))

	size, err := tbl.Join("room1", "z")
	require.NoError(t, err)
	assert.Equal(t, 1, size, "a freed id starts over")
}

func TestTableLeaveWithoutRoomsIsNoop(t *testing.T) {
	tbl := NewTable(Capacity)
	_, _ = tbl.Join("room1", "x")

	assert.Nil(t, tbl.Leave("nobody"))
	assert.Equal(t, 1, tbl.SizeOf("room1"))
}

func TestTableMultipleRooms(t *testing.T) {
	tbl := NewTable(Capacity)
	_, _ = tbl.Join("b", "x")
	_, _ = tbl.Join("a", "x")
	_, _ = tbl.Join("a", "y")

	assert.Equal(t, []string{"b", "a"}, tbl.RoomsOf("x"))

	deps := tbl.Leave("x")
	assert.Equal(t, []Departure{
		{RoomID: "b", Size: 0, Closed: true},
		{RoomID: "a", Size: 1},
	}, deps)
	assert.True(t, tbl.IsMember("a", "y"))
	assert.False(t, tbl.IsMember("a", "x"))
}

func TestTableSnapshot(t *testing.T) {
	tbl := NewTable(Capacity)
	_, _ = tbl.Join("zeta", "x")
	_, _ = tbl.Join("alpha", "y")
	_, _ = tbl.Join("alpha", "z")

	assert.Equal(t, []RoomInfo{
		{RoomID: "alpha", Size: 2, IsRoomFull: true},
		{RoomID: "zeta", Size: 1, IsRoomFull: false},
	}, tbl.Snapshot())
}

func TestNewTableCapacityFallback(t *testing.T) {
	assert.Equal(t, Capacity, NewTable(0).Capacity())
	assert.Equal(t, 3, NewTable(3).Capacity())
}

// Random joins and leaves never leave a room outside 1..capacity members.
func TestTableMembershipBounds(t *testing.T) {
	tbl := NewTable(Capacity)
	ids := []ParticipantID{"a", "b", "c", "d", "e"}
	rooms := []string{"r1", "r2", "r3"}

	for step := 0; step < 500; step++ {
		id := ids[(step*7)%len(ids)]
		if step%3 == 2 {
			tbl.Leave(id)
		} else {
			_, _ = tbl.Join(rooms[(step*5)%len(rooms)], id)
		}

		for _, info := range tbl.Snapshot() {
			require.GreaterOrEqual(t, info.Size, 1, "step %d room %s", step, info.RoomID)
			require.LessOrEqual(t, info.Size, Capacity, "step %d room %s", step, info.RoomID)
		}
		for _, pid := range ids {
			for _, r := range tbl.RoomsOf(pid) {
				require.True(t, tbl.IsMember(r, pid), "reverse index out of sync at step %d", step)
			}
		}
	}
}
