package cmd

import (
	"github.com/spf13/cobra"

	"github.com/BioHazard786/roomrelay/internal/config"
	"github.com/BioHazard786/roomrelay/internal/logging"
	"github.com/BioHazard786/roomrelay/internal/server"
	"github.com/BioHazard786/roomrelay/internal/signaling"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the signaling relay",
	Long: `Run the signaling relay. Participants connect over WebSocket at /ws; the
current rooms are listed at /rooms and Prometheus metrics at /metrics.

Every flag can also be set as ROOMRELAY_<FLAG> (dashes become underscores) or
in the --config file. PORT is honoured when no listen address is given.

Examples:
  roomrelay serve
  PORT=8080 roomrelay serve
  roomrelay serve --listen-addr 127.0.0.1:4000 --allowed-origins https://app.example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.Options{ConfigFile: flagConfig, Flags: cmd.Flags()})
		if err != nil {
			return err
		}

		log := logging.Init(cfg.LogLevel, cfg.LogFormat)
		hub := signaling.NewHub(log)
		return server.New(cfg, hub, log).Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := serveCmd.Flags()
	f.StringP("listen-addr", "l", "", "Address to listen on (default :$PORT or "+config.DefaultListenAddr+")")
	f.StringSlice("allowed-origins", nil, "WebSocket origins to accept, * for any")
	f.Int("send-buffer", config.DefaultSendBuffer, "Outbound messages buffered per participant")
	f.Int64("max-message-bytes", config.DefaultMaxMessageBytes, "Largest inbound frame accepted")
	f.Float64("max-messages-per-second", 0, "Inbound messages per participant per second, 0 for no limit")
	f.Bool("metrics-enabled", true, "Serve Prometheus metrics")
	f.String("metrics-path", config.DefaultMetricsPath, "Metrics endpoint path")
	f.Duration("shutdown-timeout", config.DefaultShutdownTimeout, "Grace period for in-flight requests on shutdown")
	f.String("log-format", config.DefaultLogFormat, "Log format: text or json")
}
