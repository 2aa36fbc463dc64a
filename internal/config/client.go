package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default client configuration values
const (
	DefaultServerURL = "ws://localhost:4000/ws"
	DefaultSTUN      = "stun:stun.l.google.com:19302"
	DefaultTimeout   = 30 * time.Second
)

// ClientConfig holds configuration for the join and lobby commands.
type ClientConfig struct {
	// ServerURL is the relay websocket endpoint.
	ServerURL string `mapstructure:"server_url"`

	// ICE servers for the WebRTC probe
	STUNServer string `mapstructure:"stun_server"`
	TURNServer string `mapstructure:"turn_server"`
	TURNUser   string `mapstructure:"turn_user"`
	TURNPass   string `mapstructure:"turn_pass"`

	// ForceRelay restricts the probe to TURN relay candidates.
	ForceRelay bool `mapstructure:"force_relay"`

	// Timeout bounds connecting and the probe negotiation.
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoadClient reads client configuration with the same priority as Load.
func LoadClient(opts Options) (*ClientConfig, error) {
	v := viper.New()
	v.SetDefault("server_url", DefaultServerURL)
	v.SetDefault("stun_server", DefaultSTUN)
	v.SetDefault("timeout", DefaultTimeout)
	keys := []string{"server_url", "stun_server", "turn_server", "turn_user", "turn_pass", "force_relay", "timeout"}
	if err := prepare(v, opts.ConfigFile, opts.Flags, keys); err != nil {
		return nil, err
	}

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// RoomsURL returns the HTTP endpoint that lists rooms, derived from the
// websocket URL (ws://host/ws -> http://host/rooms).
func (c *ClientConfig) RoomsURL() (string, error) {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "wss":
		u.Scheme = "https"
	default:
		u.Scheme = "http"
	}
	u.Path = strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), "/ws") + "/rooms"
	u.RawQuery = ""
	return u.String(), nil
}

// GetSTUNServers returns STUN server URLs as strings
func (c *ClientConfig) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *ClientConfig) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *ClientConfig) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
