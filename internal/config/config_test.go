package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.True(t, cfg.AllowsAnyOrigin())
	assert.Equal(t, DefaultSendBuffer, cfg.SendBuffer)
	assert.EqualValues(t, DefaultMaxMessageBytes, cfg.MaxMessageBytes)
	assert.Zero(t, cfg.MaxMessagesPerSecond)
	assert.True(t, cfg.MetricsEnabled)
	assert.Equal(t, DefaultMetricsPath, cfg.MetricsPath)
	assert.Equal(t, DefaultShutdownTimeout, cfg.ShutdownTimeout)
	assert.Equal(t, DefaultLogFormat, cfg.LogFormat)
}

func TestLoadPort(t *testing.T) {
	t.Setenv("PORT", "8080")

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("ROOMRELAY_LISTEN_ADDR", "127.0.0.1:9000")
	t.Setenv("ROOMRELAY_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("ROOMRELAY_MAX_MESSAGES_PER_SECOND", "20")
	t.Setenv("ROOMRELAY_SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("ROOMRELAY_LOG_FORMAT", "json")

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr, "listen_addr wins over PORT")
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.False(t, cfg.AllowsAnyOrigin())
	assert.Equal(t, 20.0, cfg.MaxMessagesPerSecond)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("ROOMRELAY_LISTEN_ADDR", "127.0.0.1:9000")
	t.Setenv("ROOMRELAY_SEND_BUFFER", "32")

	flags := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	flags.String("listen-addr", "", "")
	flags.Int("send-buffer", DefaultSendBuffer, "")
	require.NoError(t, flags.Parse([]string{"--listen-addr", ":7000"}))

	cfg, err := Load(Options{Flags: flags})
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.ListenAddr)
	assert.Equal(t, 32, cfg.SendBuffer, "an unset flag does not hide the environment")
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("PORT", "")
	path := filepath.Join(t.TempDir(), "roomrelay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: \":5000\"\nmetrics_enabled: false\n"), 0o600))

	cfg, err := Load(Options{ConfigFile: path})
	require.NoError(t, err)
	assert.Equal(t, ":5000", cfg.ListenAddr)
	assert.False(t, cfg.MetricsEnabled)

	_, err = Load(Options{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			ListenAddr:      ":4000",
			AllowedOrigins:  []string{"*"},
			SendBuffer:      1,
			MaxMessageBytes: 4096,
			MetricsEnabled:  true,
			MetricsPath:     "/metrics",
			ShutdownTimeout: time.Second,
			LogFormat:       "text",
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad listen addr", func(c *Config) { c.ListenAddr = "4000" }},
		{"no origins", func(c *Config) { c.AllowedOrigins = nil }},
		{"zero send buffer", func(c *Config) { c.SendBuffer = 0 }},
		{"tiny max message", func(c *Config) { c.MaxMessageBytes = 10 }},
		{"negative rate", func(c *Config) { c.MaxMessagesPerSecond = -1 }},
		{"relative metrics path", func(c *Config) { c.MetricsPath = "metrics" }},
		{"zero shutdown timeout", func(c *Config) { c.ShutdownTimeout = 0 }},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }},
	}

	base := valid()
	require.NoError(t, base.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadClient(t *testing.T) {
	cfg, err := LoadClient(Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultServerURL, cfg.ServerURL)
	assert.Equal(t, []string{DefaultSTUN}, cfg.GetSTUNServers())
	assert.Nil(t, cfg.GetTURNServers())
	assert.Equal(t, DefaultTimeout, cfg.Timeout)

	t.Setenv("ROOMRELAY_SERVER_URL", "http://relay.example.com/ws")
	_, err = LoadClient(Options{})
	assert.Error(t, err, "only ws and wss are accepted")
}

func TestClientTURN(t *testing.T) {
	cfg := &ClientConfig{TURNServer: "turn:turn.example.com", TURNUser: "u", TURNPass: "p"}
	assert.Equal(t, []string{
		"turn:turn.example.com:3478?transport=udp",
		"turn:turn.example.com:3478?transport=tcp",
	}, cfg.GetTURNServers())
	user, pass := cfg.GetTURNCredentials()
	assert.Equal(t, "u", user)
	assert.Equal(t, "p", pass)
}

func TestRoomsURL(t *testing.T) {
	tests := []struct {
		server string
		want   string
	}{
		{"ws://localhost:4000/ws", "http://localhost:4000/rooms"},
		{"wss://relay.example.com/ws", "https://relay.example.com/rooms"},
		{"wss://relay.example.com/signal/ws/?token=x", "https://relay.example.com/signal/rooms"},
		{"ws://localhost:4000", "http://localhost:4000/rooms"},
	}
	for _, tt := range tests {
		t.Run(tt.server, func(t *testing.T) {
			got, err := (&ClientConfig{ServerURL: tt.server}).RoomsURL()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
