package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/roomrelay/internal/client"
	"github.com/BioHazard786/roomrelay/internal/signaling"
	"github.com/BioHazard786/roomrelay/internal/ui"
)

var (
	flagRefresh time.Duration
	flagOnce    bool
)

var lobbyCmd = &cobra.Command{
	Use:   "lobby",
	Short: "Watch which rooms are open or full",
	Long: `Show the relay's rooms and keep the list current.

The lobby loads the room list from the relay, then listens for room_closed and
room_available broadcasts. Rooms that merely shrink are not broadcast, so the
list is also reloaded every --refresh interval.

Examples:
  roomrelay lobby
  roomrelay lobby --once
  roomrelay lobby --refresh 10s --server-url wss://relay.example.com/ws`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadClientConfig(cmd)
		if err != nil {
			return err
		}
		roomsURL, err := cfg.RoomsURL()
		if err != nil {
			return client.NewError("rooms URL", err)
		}
		fetch := func(ctx context.Context) ([]signaling.RoomInfo, error) {
			return client.FetchRooms(ctx, roomsURL)
		}

		ctx := cmd.Context()
		if flagOnce {
			fetchCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
			defer cancel()
			rooms, err := fetch(fetchCtx)
			if err != nil {
				return err
			}
			fmt.Println(ui.RoomsView(rooms))
			return nil
		}

		log := slog.Default()
		var events <-chan client.Event
		dialCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		c := client.NewClient(cfg.ServerURL, log)
		if err := c.Connect(dialCtx); err != nil {
			log.Warn("live updates unavailable, polling only", "error", err)
		} else {
			defer c.Close()
			h := client.NewHandler(c, log)
			go h.Start()
			events = h.Events()
		}

		return ui.RunLobby(ctx, ui.NewLobbyModel(fetch, events, flagRefresh))
	},
}

func init() {
	rootCmd.AddCommand(lobbyCmd)

	addClientFlags(lobbyCmd)
	lobbyCmd.Flags().DurationVar(&flagRefresh, "refresh", 5*time.Second, "Reload interval for the room list")
	lobbyCmd.Flags().BoolVar(&flagOnce, "once", false, "Print the room list once and exit")
}
