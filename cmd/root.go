package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/roomrelay/internal/client"
	"github.com/BioHazard786/roomrelay/internal/logging"
	"github.com/BioHazard786/roomrelay/internal/ui"
	"github.com/BioHazard786/roomrelay/internal/version"
)

var (
	flagConfig   string
	flagLogLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "roomrelay",
	Short: "Two-party WebRTC signaling relay",
	Long: `roomrelay pairs exactly two participants in a named room and relays their
WebRTC offers, answers and ICE candidates. Every connected participant is told
when a room fills up or frees again, so lobbies can show which rooms are open.

Run "roomrelay serve" for the relay, "roomrelay join" to take part in a room and
"roomrelay lobby" to watch room availability.`,
	Version: version.Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(flagLogLevel, "text")
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		ui.PrintError(err.Error())
		if errors.Is(err, client.ErrRoomFull) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Config file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (default $LOG_LEVEL or info)")
}
