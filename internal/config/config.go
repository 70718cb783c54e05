// Package config manages dpsession daemon configuration using koanf/v2.
//
// Supports YAML files and environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kestrelnet/dpsession/internal/wire"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete dpsession daemon configuration.
type Config struct {
	Transport TransportConfig `koanf:"transport"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Log       LogConfig       `koanf:"log"`
	Session   SessionConfig   `koanf:"session"`
}

// TransportConfig holds the socket bind configuration.
type TransportConfig struct {
	// BindAddr is the TCP/UDP listen address for peer traffic (e.g., ":6073").
	BindAddr string `koanf:"bind_addr"`
	// DiscoveryPort is the UDP port used for broadcast host enumeration.
	DiscoveryPort int `koanf:"discovery_port"`
	// BindDevice optionally binds all sockets to a specific interface
	// (SO_BINDTODEVICE).
	BindDevice string `koanf:"bind_device"`
	// BroadcastAddr is the destination used when enumerating hosts
	// (e.g., "255.255.255.255:6072").
	BroadcastAddr string `koanf:"broadcast_addr"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9110").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// SessionConfig describes the application-level session identity and
// policy this daemon instance hosts or joins.
type SessionConfig struct {
	// ApplicationGUID identifies the application protocol, hex-encoded
	// (32 hex characters, no dashes).
	ApplicationGUID string `koanf:"application_guid"`
	// Name is the human-readable session name advertised to enumerators.
	Name string `koanf:"name"`
	// Password optionally gates CONNECT_HOST admission.
	Password string `koanf:"password"`
	// MaxPlayers caps the session's player count; 0 means unbounded.
	MaxPlayers uint32 `koanf:"max_players"`
	// PlayerName is the local player's display name.
	PlayerName string `koanf:"player_name"`
	// Workers sets the handler worker pool size (clamped to >= 2).
	Workers int `koanf:"workers"`
}

// ApplicationGUIDValue parses ApplicationGUID as a wire.GUID.
func (sc SessionConfig) ApplicationGUIDValue() (wire.GUID, error) {
	return parseGUID(sc.ApplicationGUID)
}

func parseGUID(s string) (wire.GUID, error) {
	var g wire.GUID
	if s == "" {
		return g, nil
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return g, fmt.Errorf("parse guid %q: %w", s, err)
	}
	if len(raw) != len(g) {
		return g, fmt.Errorf("guid %q: %w", s, ErrInvalidGUIDLength)
	}
	copy(g[:], raw)
	return g, nil
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Transport: TransportConfig{
			BindAddr:      ":6073",
			DiscoveryPort: 6072,
			BroadcastAddr: "255.255.255.255:6072",
		},
		Metrics: MetricsConfig{
			Addr: ":9110",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Session: SessionConfig{
			MaxPlayers: 0,
			Workers:    4,
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for dpsession configuration.
// Variables are named DPSESSION_<section>_<key>, e.g., DPSESSION_TRANSPORT_BIND_ADDR.
const envPrefix = "DPSESSION_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (DPSESSION_ prefix), and merges on top of
// DefaultConfig(). Missing fields inherit defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config from %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms DPSESSION_TRANSPORT_BIND_ADDR -> transport.bind_addr:
// the first underscore separates the section from the key, and any further
// underscores stay part of the key name.
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.Replace(s, "_", ".", 1)
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"transport.bind_addr":      defaults.Transport.BindAddr,
		"transport.discovery_port": defaults.Transport.DiscoveryPort,
		"transport.bind_device":    defaults.Transport.BindDevice,
		"transport.broadcast_addr": defaults.Transport.BroadcastAddr,
		"metrics.addr":             defaults.Metrics.Addr,
		"metrics.path":             defaults.Metrics.Path,
		"log.level":                defaults.Log.Level,
		"log.format":               defaults.Log.Format,
		"session.max_players":      defaults.Session.MaxPlayers,
		"session.workers":          defaults.Session.Workers,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	ErrEmptyBindAddr        = errors.New("transport.bind_addr must not be empty")
	ErrInvalidDiscoveryPort = errors.New("transport.discovery_port must be between 1 and 65535")
	ErrInvalidGUIDLength    = errors.New("guid must decode to 16 bytes")
	ErrEmptySessionName     = errors.New("session.name must not be empty when hosting")
	ErrInvalidWorkerCount   = errors.New("session.workers must be >= 0")
)

// Validate checks the configuration for logical errors common to both
// hosting and joining.
func Validate(cfg *Config) error {
	if cfg.Transport.BindAddr == "" {
		return ErrEmptyBindAddr
	}
	if cfg.Transport.DiscoveryPort < 1 || cfg.Transport.DiscoveryPort > 65535 {
		return ErrInvalidDiscoveryPort
	}
	if cfg.Session.Workers < 0 {
		return ErrInvalidWorkerCount
	}
	if _, err := cfg.Session.ApplicationGUIDValue(); err != nil {
		return fmt.Errorf("session.application_guid: %w", err)
	}
	return nil
}

// ValidateForHosting runs Validate and additionally requires a
// non-empty session name, since a hosted session always advertises one
// to enumerators.
func ValidateForHosting(cfg *Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	if cfg.Session.Name == "" {
		return ErrEmptySessionName
	}
	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
