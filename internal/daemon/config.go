// Package daemon manages the swarmpay node lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/tutu-network/swarmpay/internal/app/verify"
)

// Verifier modes.
const (
	VerifierQuorum = "quorum"
	VerifierAccept = "accept"
)

// Config holds all daemon configuration.
type Config struct {
	API       APIConfig       `toml:"api"`
	Store     StoreConfig     `toml:"store"`
	Verifier  VerifierConfig  `toml:"verifier"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Health    HealthConfig    `toml:"health"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host              string   `toml:"host"`
	Port              int      `toml:"port"`
	CORSOrigins       []string `toml:"cors_origins"`
	RateLimit         float64  `toml:"rate_limit"`
	RateBurst         int      `toml:"rate_burst"`
	RequireSignatures bool     `toml:"require_signatures"`
	Faucet            bool     `toml:"faucet"`
}

// StoreConfig controls where state is kept.
type StoreConfig struct {
	Dir string `toml:"dir"`
}

// VerifierConfig selects how completions are verified.
type VerifierConfig struct {
	Mode      string `toml:"mode"`       // quorum or accept
	QuorumPct uint64 `toml:"quorum_pct"` // share of members that must sign
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level    string `toml:"level"`
	Encoding string `toml:"encoding"`
	File     string `toml:"file"`
}

// TelemetryConfig controls metrics export.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// HealthConfig controls the background health checker.
type HealthConfig struct {
	Interval string `toml:"interval"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	homeDir := swarmpayHome()
	return Config{
		API: APIConfig{
			Host:              "127.0.0.1",
			Port:              7420,
			CORSOrigins:       []string{"*"},
			RateLimit:         20,
			RateBurst:         40,
			RequireSignatures: true,
		},
		Store: StoreConfig{
			Dir: homeDir,
		},
		Verifier: VerifierConfig{
			Mode:      VerifierQuorum,
			QuorumPct: verify.DefaultQuorumPct,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
			File:     filepath.Join(homeDir, "swarmpay.log"),
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
		Health: HealthConfig{
			Interval: "60s",
		},
	}
}

// Validate rejects configurations the daemon cannot run with.
func (c Config) Validate() error {
	switch c.Verifier.Mode {
	case VerifierQuorum, VerifierAccept:
	default:
		return fmt.Errorf("verifier.mode %q: want %q or %q", c.Verifier.Mode, VerifierQuorum, VerifierAccept)
	}
	if c.Verifier.QuorumPct > 100 {
		return fmt.Errorf("verifier.quorum_pct %d exceeds 100", c.Verifier.QuorumPct)
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit must not be negative")
	}
	if c.Health.Interval != "" {
		if _, err := time.ParseDuration(c.Health.Interval); err != nil {
			return fmt.Errorf("health.interval: %w", err)
		}
	}
	return nil
}

// LoadConfig reads config from ~/.swarmpay/config.toml, falling back to defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := ConfigPath()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // No config file yet, use defaults
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Store.Dir == "" {
		cfg.Store.Dir = swarmpayHome()
	}
	return cfg, cfg.Validate()
}

// SaveConfig writes the config to ~/.swarmpay/config.toml.
func SaveConfig(cfg Config) error {
	path := ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// ConfigPath is the location of the config file.
func ConfigPath() string {
	return filepath.Join(swarmpayHome(), "config.toml")
}

// swarmpayHome returns the swarmpay data directory.
func swarmpayHome() string {
	if env := os.Getenv("SWARMPAY_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".swarmpay")
}

// Home is exported for use by other packages.
func Home() string {
	return swarmpayHome()
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
