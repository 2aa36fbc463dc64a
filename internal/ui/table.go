package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	pretty "github.com/jedib0t/go-pretty/v6/table"

	"github.com/BioHazard786/roomrelay/internal/signaling"
)

func styleRow(row, _ int) lipgloss.Style {
	switch {
	case row == table.HeaderRow:
		return TableHeaderStyle
	case row%2 == 0:
		return TableRowStyle
	default:
		return TableRowAltStyle
	}
}

// RoomsView renders the relay's room snapshot.
func RoomsView(rooms []signaling.RoomInfo) string {
	if len(rooms) == 0 {
		return MutedStyle.Render("No active rooms")
	}

	rows := make([][]string, 0, len(rooms))
	for _, r := range rooms {
		state := IconOpen + " open"
		if r.IsRoomFull {
			state = IconLock + " full"
		}
		rows = append(rows, []string{r.RoomID, fmt.Sprintf("%d/%d", r.Size, signaling.Capacity), state})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("Room", "Members", "State").
		Rows(rows...).
		StyleFunc(styleRow).
		Render()
}

// RoomBox announces the room a participant is waiting in.
func RoomBox(roomID, serverURL string) string {
	content := fmt.Sprintf("%s Joined room\n\n%s Room ID:  %s\n%s Relay:    %s",
		IconRoom,
		IconPeer, BoldStyle.Foreground(Primary).Render(roomID),
		IconConnect, MutedStyle.Render(serverURL),
	)
	return RoomBoxStyle.Render(content)
}

// EventLine formats one relay event for the join transcript.
func EventLine(at time.Time, event, detail string) string {
	return fmt.Sprintf("%s %s %s",
		MutedStyle.Render(at.Format("15:04:05.000")),
		EventStyle.Render(fmt.Sprintf("%-14s", event)),
		detail,
	)
}

// ProbeSummary describes a finished connectivity probe.
type ProbeSummary struct {
	RoomID           string
	Role             string
	ConnectTime      time.Duration
	RoundTrip        time.Duration
	LocalCandidates  int
	RemoteCandidates int
}

// ProbeSummaryView renders the probe result as a two column table.
func ProbeSummaryView(s ProbeSummary) string {
	t := pretty.NewWriter()
	t.SetTitle("Probe Summary")
	t.SetStyle(pretty.StyleRounded)
	t.AppendHeader(pretty.Row{"Metric", "Value"})
	t.AppendRows([]pretty.Row{
		{"Room", s.RoomID},
		{"Role", s.Role},
		{"Data channel open after", s.ConnectTime.Round(time.Millisecond)},
		{"Ping round trip", s.RoundTrip.Round(time.Microsecond)},
		{"Local candidates", s.LocalCandidates},
		{"Remote candidates", s.RemoteCandidates},
	})
	return t.Render()
}

func RenderProbeSummary(s ProbeSummary) {
	fmt.Println(ProbeSummaryView(s))
}
