package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/roomrelay/internal/client"
	"github.com/BioHazard786/roomrelay/internal/signaling"
)

func staticRooms(rooms ...signaling.RoomInfo) RoomsFetcher {
	return func(context.Context) ([]signaling.RoomInfo, error) { return rooms, nil }
}

func TestLobbyAppliesBroadcasts(t *testing.T) {
	m := NewLobbyModel(staticRooms(), nil, 0)
	m.Seed([]signaling.RoomInfo{
		{RoomID: "b", Size: 1},
		{RoomID: "a", Size: 1},
	})

	m.Apply(client.Event{Type: signaling.EventRoomClosed, RoomID: "a"})
	m.Apply(client.Event{Type: signaling.EventRoomAvailable, RoomID: "b"})
	m.Apply(client.Event{Type: signaling.EventRoomStatus, Status: signaling.RoomStatusPayload{Size: 1}})

	assert.Equal(t, []signaling.RoomInfo{{RoomID: "a", Size: 2, IsRoomFull: true}}, m.Rooms())
}

func TestLobbyUpdate(t *testing.T) {
	events := make(chan client.Event, 1)
	m := NewLobbyModel(staticRooms(signaling.RoomInfo{RoomID: "room1", Size: 1}), events, time.Minute)

	_, cmd := m.Update(roomsMsg{rooms: []signaling.RoomInfo{{RoomID: "room1", Size: 1}}})
	assert.NotNil(t, cmd, "a refresh is scheduled after each load")
	assert.Len(t, m.Rooms(), 1)

	_, cmd = m.Update(lobbyEventMsg(client.Event{Type: signaling.EventRoomAvailable, RoomID: "room1"}))
	require.NotNil(t, cmd, "the model keeps listening for events")
	assert.Empty(t, m.Rooms())

	close(events)
	msg := m.waitForEvent()()
	_, _ = m.Update(msg)
	assert.Contains(t, m.View(), "polling")

	_, _ = m.Update(roomsMsg{err: errors.New("relay down")})
	assert.Contains(t, m.View(), "relay down")
}

func TestLobbyLoad(t *testing.T) {
	m := NewLobbyModel(staticRooms(signaling.RoomInfo{RoomID: "room1", Size: 2, IsRoomFull: true}), nil, 0)
	msg := m.load()()

	_, _ = m.Update(msg)
	view := m.View()
	assert.Contains(t, view, "room1")
	assert.Contains(t, view, "full")
}

func TestLobbyQuit(t *testing.T) {
	m := NewLobbyModel(staticRooms(), nil, 0)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestRoomsViewEmpty(t *testing.T) {
	assert.True(t, strings.Contains(RoomsView(nil), "No active rooms"))
}

func TestProbeSummaryView(t *testing.T) {
	view := ProbeSummaryView(ProbeSummary{
		RoomID:           "amber-heron-lagoon",
		Role:             "offerer",
		ConnectTime:      120 * time.Millisecond,
		RoundTrip:        3 * time.Millisecond,
		LocalCandidates:  2,
		RemoteCandidates: 3,
	})
	assert.Contains(t, view, "amber-heron-lagoon")
	assert.Contains(t, view, "offerer")
	assert.Contains(t, view, "3ms")
}
