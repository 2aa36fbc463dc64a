package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

func (c *Config) Validate() error {
	if _, port, err := net.SplitHostPort(c.ListenAddr); err != nil || port == "" {
		return fmt.Errorf("invalid listen address %q", c.ListenAddr)
	}
	if len(c.AllowedOrigins) == 0 {
		return errors.New("allowed origins must not be empty; use * to accept any origin")
	}
	if c.SendBuffer < 1 {
		return errors.New("send buffer must be positive")
	}
	if c.MaxMessageBytes < 1024 {
		return errors.New("max message bytes must be at least 1024")
	}
	if c.MaxMessagesPerSecond < 0 {
		return errors.New("max messages per second must not be negative")
	}
	if c.MetricsEnabled && !strings.HasPrefix(c.MetricsPath, "/") {
		return fmt.Errorf("metrics path %q must start with /", c.MetricsPath)
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s. Must be 'text' or 'json'", c.LogFormat)
	}
	return nil
}

func (c *ClientConfig) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("server URL %q must use ws or wss", c.ServerURL)
	}
	if u.Host == "" {
		return fmt.Errorf("server URL %q has no host", c.ServerURL)
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.ForceRelay && c.TURNServer == "" {
		return errors.New("cannot force relay mode without TURN server configured")
	}
	return nil
}
