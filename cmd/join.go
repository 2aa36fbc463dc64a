package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/roomrelay/internal/client"
	"github.com/BioHazard786/roomrelay/internal/config"
	"github.com/BioHazard786/roomrelay/internal/probe"
	"github.com/BioHazard786/roomrelay/internal/roomid"
	"github.com/BioHazard786/roomrelay/internal/signaling"
	"github.com/BioHazard786/roomrelay/internal/ui"
)

var flagProbe bool

var joinCmd = &cobra.Command{
	Use:   "join [room-id]",
	Short: "Join a room and print the relay's events",
	Long: `Join a room and print every event the relay sends until interrupted.

Without a room id a memorable one is generated. With --probe, once the room is
full both participants negotiate a WebRTC data channel through the relay,
exchange a ping and print a summary.

Examples:
  roomrelay join
  roomrelay join amber-heron-lagoon --probe
  roomrelay join my-room --server-url wss://relay.example.com/ws`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadClientConfig(cmd)
		if err != nil {
			return err
		}

		var roomID string
		if len(args) == 1 {
			roomID = args[0]
		} else {
			roomID = generateRoomID(cmd.Context(), cfg)
		}
		return joinRoom(cmd.Context(), cfg, roomID, slog.Default())
	},
}

// generateRoomID picks an id no current room uses. When the snapshot cannot
// be read any generated id is accepted.
func generateRoomID(ctx context.Context, cfg *config.ClientConfig) string {
	taken := map[string]bool{}
	if roomsURL, err := cfg.RoomsURL(); err == nil {
		fetchCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if rooms, err := client.FetchRooms(fetchCtx, roomsURL); err == nil {
			for _, r := range rooms {
				taken[r.RoomID] = true
			}
		}
	}
	return roomid.GenerateUnused(func(id string) bool { return taken[id] })
}

// connect dials the relay and starts decoding its messages.
func connect(ctx context.Context, cfg *config.ClientConfig, log *slog.Logger) (*client.Client, *client.Handler, error) {
	sp := ui.NewConnectionSpinner("Connecting to relay...")
	sp.Start()

	dialCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	c := client.NewClient(cfg.ServerURL, log)
	if err := c.Connect(dialCtx); err != nil {
		sp.Error("Could not reach the relay")
		return nil, nil, err
	}
	sp.Success("Connected to " + cfg.ServerURL)

	h := client.NewHandler(c, log)
	go h.Start()
	return c, h, nil
}

// joiner follows one room from the joining participant's point of view.
type joiner struct {
	cfg    *config.ClientConfig
	roomID string
	log    *slog.Logger
	client *client.Client

	probe     bool
	role      probe.Role
	session   *probe.Session
	probeDone chan probeOutcome
}

type probeOutcome struct {
	result *probe.Result
	err    error
}

func joinRoom(ctx context.Context, cfg *config.ClientConfig, roomID string, log *slog.Logger) error {
	c, h, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Join(roomID); err != nil {
		return client.NewError("join", err)
	}
	fmt.Println()
	fmt.Println(ui.RoomBox(roomID, cfg.ServerURL))
	fmt.Println()

	j := &joiner{
		cfg:       cfg,
		roomID:    roomID,
		log:       log.With("room", roomID),
		client:    c,
		probe:     flagProbe,
		probeDone: make(chan probeOutcome, 1),
	}
	defer j.close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case out := <-j.probeDone:
			if out.err != nil {
				return out.err
			}
			fmt.Println()
			ui.RenderProbeSummary(ui.ProbeSummary{
				RoomID:           out.result.RoomID,
				Role:             string(out.result.Role),
				ConnectTime:      out.result.ConnectTime,
				RoundTrip:        out.result.RoundTrip,
				LocalCandidates:  out.result.LocalCandidates,
				RemoteCandidates: out.result.RemoteCandidates,
			})
			return nil

		case ev, ok := <-h.Events():
			if !ok {
				return client.ErrServerClosed
			}
			fmt.Println(ui.EventLine(time.Now(), ev.Type, describe(ev)))
			if err := j.handle(ctx, ev); err != nil {
				return err
			}
		}
	}
}

func (j *joiner) handle(ctx context.Context, ev client.Event) error {
	switch ev.Type {
	case signaling.EventRoomFull:
		if ev.RoomID == j.roomID {
			return client.WrapError("join", client.ErrRoomFull, j.roomID)
		}

	case signaling.EventRoomStatus:
		// The first status tells us whether we were first in the room.
		if j.role == "" {
			j.role = probe.RoleAnswerer
			if ev.Status.Size == 1 {
				j.role = probe.RoleOfferer
			}
		}
		if !j.probe {
			return nil
		}
		if j.session != nil && ev.Status.Size < signaling.Capacity {
			return client.WrapError("probe", client.ErrServerClosed, "peer left the room")
		}
		if j.session == nil && ev.Status.IsRoomFull {
			return j.startProbe(ctx)
		}

	case signaling.EventOffer, signaling.EventAnswer:
		if j.session == nil {
			j.log.Debug("description without a probe", "event", ev.Type)
			return nil
		}
		return j.session.HandleDescription(ev.Description)

	case signaling.EventICECandidate:
		if j.session == nil {
			return nil
		}
		return j.session.HandleCandidate(ev.Candidate)
	}
	return nil
}

func (j *joiner) startProbe(ctx context.Context) error {
	s, err := probe.NewSession(j.cfg, j.roomID, j.role, j.client, j.log)
	if err != nil {
		return err
	}
	j.session = s
	if err := s.Start(); err != nil {
		return err
	}

	go func() {
		waitCtx, cancel := context.WithTimeout(ctx, j.cfg.Timeout)
		defer cancel()
		res, err := s.Wait(waitCtx)
		j.probeDone <- probeOutcome{result: res, err: err}
	}()
	return nil
}

func (j *joiner) close() {
	if j.session != nil {
		if err := j.session.Close(); err != nil {
			j.log.Debug("closing probe", "error", err)
		}
	}
}

func describe(ev client.Event) string {
	switch ev.Type {
	case signaling.EventRoomStatus:
		state := "waiting for a peer"
		if ev.Status.IsRoomFull {
			state = "full"
		}
		return fmt.Sprintf("size=%d %s", ev.Status.Size, ui.MutedStyle.Render(state))
	case signaling.EventRoomFull, signaling.EventRoomClosed, signaling.EventRoomAvailable:
		return ev.RoomID
	case signaling.EventOffer, signaling.EventAnswer:
		return ui.MutedStyle.Render(fmt.Sprintf("%s sdp, %d bytes", ev.Description.Type, len(ev.Description.SDP)))
	case signaling.EventICECandidate:
		var c struct {
			Candidate string `json:"candidate"`
		}
		if err := json.Unmarshal(ev.Candidate, &c); err == nil && c.Candidate != "" {
			return ui.MutedStyle.Render(truncate(c.Candidate, 60))
		}
		return ui.MutedStyle.Render(truncate(string(ev.Candidate), 60))
	default:
		return ""
	}
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func loadClientConfig(cmd *cobra.Command) (*config.ClientConfig, error) {
	cfg, err := config.LoadClient(config.Options{ConfigFile: flagConfig, Flags: cmd.Flags()})
	if err != nil {
		return nil, client.NewError("load config", err)
	}
	return cfg, nil
}

func addClientFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("server-url", "s", config.DefaultServerURL, "Relay WebSocket URL")
	f.String("stun-server", config.DefaultSTUN, "STUN server for the probe")
	f.String("turn-server", "", "TURN server for the probe")
	f.String("turn-user", "", "TURN username")
	f.String("turn-pass", "", "TURN password")
	f.Bool("force-relay", false, "Only use TURN relay candidates for the probe")
	f.Duration("timeout", config.DefaultTimeout, "Timeout for connecting and for the probe")
}

func init() {
	rootCmd.AddCommand(joinCmd)

	addClientFlags(joinCmd)
	joinCmd.Flags().BoolVarP(&flagProbe, "probe", "p", false, "Negotiate a WebRTC data channel once the room is full")
}
