package ui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/BioHazard786/roomrelay/internal/client"
	"github.com/BioHazard786/roomrelay/internal/signaling"
)

// RoomsFetcher loads the relay's current room snapshot.
type RoomsFetcher func(ctx context.Context) ([]signaling.RoomInfo, error)

type (
	roomsMsg struct {
		rooms []signaling.RoomInfo
		err   error
	}
	lobbyEventMsg  client.Event
	eventsEndedMsg struct{}
	refreshMsg     time.Time
)

// LobbyModel watches room availability. It is seeded from the snapshot,
// kept current by room_closed and room_available broadcasts, and re-seeded
// every refresh interval.
type LobbyModel struct {
	fetch   RoomsFetcher
	events  <-chan client.Event
	refresh time.Duration

	rooms   map[string]signaling.RoomInfo
	spinner spinner.Model
	loaded  bool
	live    bool
	updated time.Time
	err     error
}

// NewLobbyModel creates the lobby view. events may be nil, in which case
// only the periodic refresh updates the list.
func NewLobbyModel(fetch RoomsFetcher, events <-chan client.Event, refresh time.Duration) *LobbyModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &LobbyModel{
		fetch:   fetch,
		events:  events,
		refresh: refresh,
		rooms:   make(map[string]signaling.RoomInfo),
		spinner: s,
		live:    events != nil,
	}
}

func (m *LobbyModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load(), m.waitForEvent())
}

func (m *LobbyModel) load() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rooms, err := m.fetch(ctx)
		return roomsMsg{rooms: rooms, err: err}
	}
}

func (m *LobbyModel) waitForEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return eventsEndedMsg{}
		}
		return lobbyEventMsg(ev)
	}
}

func (m *LobbyModel) scheduleRefresh() tea.Cmd {
	if m.refresh <= 0 {
		return nil
	}
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m *LobbyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			cmds = append(cmds, m.load())
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case roomsMsg:
		m.err = msg.err
		if msg.err == nil {
			m.Seed(msg.rooms)
		}
		cmds = append(cmds, m.scheduleRefresh())

	case refreshMsg:
		cmds = append(cmds, m.load())

	case lobbyEventMsg:
		m.Apply(client.Event(msg))
		cmds = append(cmds, m.waitForEvent())

	case eventsEndedMsg:
		m.live = false
	}

	return m, tea.Batch(cmds...)
}

// Seed replaces the room list with a snapshot.
func (m *LobbyModel) Seed(rooms []signaling.RoomInfo) {
	m.rooms = make(map[string]signaling.RoomInfo, len(rooms))
	for _, r := range rooms {
		m.rooms[r.RoomID] = r
	}
	m.loaded = true
	m.updated = time.Now()
}

// Apply folds one broadcast into the room list. Other events are ignored.
func (m *LobbyModel) Apply(ev client.Event) {
	switch ev.Type {
	case signaling.EventRoomClosed:
		m.rooms[ev.RoomID] = signaling.RoomInfo{RoomID: ev.RoomID, Size: signaling.Capacity, IsRoomFull: true}
	case signaling.EventRoomAvailable:
		delete(m.rooms, ev.RoomID)
	default:
		return
	}
	m.updated = time.Now()
}

// Rooms returns the current list ordered by room id.
func (m *LobbyModel) Rooms() []signaling.RoomInfo {
	out := make([]signaling.RoomInfo, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out
}

func (m *LobbyModel) View() string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render(IconRoom+" roomrelay lobby") + "\n\n")

	switch {
	case !m.loaded && m.err == nil:
		b.WriteString(fmt.Sprintf("%s Loading rooms...", m.spinner.View()))
	default:
		b.WriteString(RoomsView(m.Rooms()))
	}

	if m.err != nil {
		b.WriteString("\n" + ErrorStyle.Render(fmt.Sprintf("%s %v", IconError, m.err)))
	}

	status := "polling"
	if m.live {
		status = "live"
	}
	footer := fmt.Sprintf("%s · updated %s · r refresh · q quit", status, m.updated.Format("15:04:05"))
	if m.updated.IsZero() {
		footer = fmt.Sprintf("%s · r refresh · q quit", status)
	}
	b.WriteString("\n" + FooterStyle.Render(footer))

	return ContainerStyle.Render(b.String())
}

// RunLobby runs the lobby until the user quits or ctx ends.
func RunLobby(ctx context.Context, m *LobbyModel) error {
	_, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
