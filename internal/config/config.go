package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment key, e.g. ROOMRELAY_LISTEN_ADDR.
const EnvPrefix = "ROOMRELAY"

// Default configuration values
const (
	DefaultListenAddr      = ":4000"
	DefaultMetricsPath     = "/metrics"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultSendBuffer      = 256
	DefaultMaxMessageBytes = 64 * 1024
	DefaultLogFormat       = "text"
)

// Config holds the relay server configuration.
type Config struct {
	// ListenAddr is the host:port the HTTP server binds.
	ListenAddr string `mapstructure:"listen_addr"`

	// AllowedOrigins lists websocket origins to accept. "*" accepts all.
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	SendBuffer           int     `mapstructure:"send_buffer"`
	MaxMessageBytes      int64   `mapstructure:"max_message_bytes"`
	MaxMessagesPerSecond float64 `mapstructure:"max_messages_per_second"`

	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	MetricsPath    string `mapstructure:"metrics_path"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// LogLevel left empty defers to LOG_LEVEL, then info.
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// Options for loading config with CLI flag overrides
type Options struct {
	// ConfigFile is an optional yaml, json or toml file.
	ConfigFile string

	// Flags holds command flags. Flags named like a key with dashes instead
	// of underscores (listen-addr, log-level, ...) override every other source
	// when set on the command line.
	Flags *pflag.FlagSet
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables (ROOMRELAY_*, plus PORT for the listen port)
// 3. Config file
// 4. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	v := viper.New()
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("send_buffer", DefaultSendBuffer)
	v.SetDefault("max_message_bytes", DefaultMaxMessageBytes)
	v.SetDefault("max_messages_per_second", 0)
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("metrics_path", DefaultMetricsPath)
	v.SetDefault("shutdown_timeout", DefaultShutdownTimeout)
	v.SetDefault("log_format", DefaultLogFormat)

	keys := []string{
		"listen_addr", "allowed_origins", "send_buffer", "max_message_bytes",
		"max_messages_per_second", "metrics_enabled", "metrics_path",
		"shutdown_timeout", "log_level", "log_format",
	}
	if err := prepare(v, opts.ConfigFile, opts.Flags, keys); err != nil {
		return nil, err
	}
	if err := v.BindEnv("port", "PORT"); err != nil {
		return nil, fmt.Errorf("bind PORT: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	// listen_addr > PORT > default, like the "PORT || 4000" convention.
	if cfg.ListenAddr == "" {
		if port := v.GetString("port"); port != "" {
			cfg.ListenAddr = ":" + port
		} else {
			cfg.ListenAddr = DefaultListenAddr
		}
	}
	cfg.AllowedOrigins = splitList(cfg.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// AllowsAnyOrigin reports whether the origin list contains "*".
func (c *Config) AllowsAnyOrigin() bool {
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

// prepare wires the config file, the environment and the flags into v.
func prepare(v *viper.Viper, file string, flags *pflag.FlagSet, keys []string) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	// Unmarshal only sees keys viper knows about, so bind each one.
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config file error: %w", err)
		}
	}

	if flags == nil {
		return nil
	}
	for _, key := range keys {
		f := flags.Lookup(strings.ReplaceAll(key, "_", "-"))
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", f.Name, err)
		}
	}
	return nil
}

// splitList accepts both repeated values and a single comma separated value,
// which is how lists arrive from the environment.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
