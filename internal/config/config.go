// Package config handles configuration loading from TOML files and environment variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/xonecas/relic-console/internal/constants"
)

// Config is the root configuration structure.
type Config struct {
	Gateway   GatewayConfig   `toml:"gateway"`
	View      ViewConfig      `toml:"view"`
	Metrics   MetricsConfig   `toml:"metrics"`
	Assistant AssistantConfig `toml:"assistant"`
}

// GatewayConfig holds connection settings for the node-simulation gateway.
type GatewayConfig struct {
	Endpoint         string   `toml:"endpoint"`
	HandshakeTimeout Duration `toml:"handshake_timeout"`
	SendQueue        int      `toml:"send_queue"`
	EventBuffer      int      `toml:"event_buffer"`
	Reconnect        bool     `toml:"reconnect"`
	BackoffInitial   Duration `toml:"backoff_initial"`
	BackoffMax       Duration `toml:"backoff_max"`
	MaxAttempts      int      `toml:"max_attempts"`
	BreakerFailures  int      `toml:"breaker_failures"`
	BreakerTimeout   Duration `toml:"breaker_timeout"`
}

// ViewConfig holds the bounds of the in-memory logs.
type ViewConfig struct {
	GossipCapacity int `toml:"gossip_capacity"`
	EventCapacity  int `toml:"event_capacity"`
}

// MetricsConfig holds the Prometheus endpoint settings. Empty Listen disables it.
type MetricsConfig struct {
	Listen string `toml:"listen"`
}

// AssistantConfig holds settings for the update-rule assistant.
type AssistantConfig struct {
	Provider    string  `toml:"provider"`
	Endpoint    string  `toml:"endpoint"`
	Model       string  `toml:"model"`
	Temperature float64 `toml:"temperature"`
	RateLimit   float64 `toml:"rate_limit"`
	RateBurst   int     `toml:"rate_burst"`
}

// Enabled reports whether an assistant provider is configured.
func (a AssistantConfig) Enabled() bool {
	return a.Provider != "" && a.Endpoint != "" && a.Model != ""
}

// Duration wraps time.Duration so TOML can carry values like "500ms".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText renders the duration in Go syntax.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Endpoint:         constants.DefaultGatewayEndpoint,
			HandshakeTimeout: Duration{constants.HandshakeTimeout},
			SendQueue:        constants.DefaultSendQueueSize,
			EventBuffer:      constants.DefaultEventBufferSize,
			Reconnect:        true,
			BackoffInitial:   Duration{constants.BackoffInitial},
			BackoffMax:       Duration{constants.BackoffMax},
			MaxAttempts:      0,
			BreakerFailures:  constants.BreakerConsecutiveFailures,
			BreakerTimeout:   Duration{constants.BreakerOpenTimeout},
		},
		View: ViewConfig{
			GossipCapacity: constants.GossipLogCapacity,
			EventCapacity:  constants.EventLogCapacity,
		},
		Assistant: AssistantConfig{
			Provider:    "ollama",
			Endpoint:    "http://localhost:11434",
			Model:       "llama3",
			Temperature: 0.2,
			RateLimit:   0.5,
			RateBurst:   1,
		},
	}
}

// Load reads configuration from a TOML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Load from file if it exists
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, err
			}
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RELIC_GATEWAY_ENDPOINT"); v != "" {
		cfg.Gateway.Endpoint = v
	}

	if v := os.Getenv("RELIC_RECONNECT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Gateway.Reconnect = b
		}
	}

	if v := os.Getenv("RELIC_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.MaxAttempts = n
		}
	}

	if v := os.Getenv("RELIC_BACKOFF_MAX"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Gateway.BackoffMax = Duration{d}
		}
	}

	if v := os.Getenv("RELIC_GOSSIP_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.View.GossipCapacity = n
		}
	}

	if v := os.Getenv("RELIC_EVENT_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.View.EventCapacity = n
		}
	}

	if v := os.Getenv("RELIC_METRICS_LISTEN"); v != "" {
		cfg.Metrics.Listen = v
	}

	if v := os.Getenv("RELIC_ASSISTANT_PROVIDER"); v != "" {
		cfg.Assistant.Provider = v
	}

	if v := os.Getenv("RELIC_ASSISTANT_ENDPOINT"); v != "" {
		cfg.Assistant.Endpoint = v
	}

	if v := os.Getenv("RELIC_ASSISTANT_MODEL"); v != "" {
		cfg.Assistant.Model = v
	}

	if v := os.Getenv("RELIC_ASSISTANT_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Assistant.Temperature = f
		}
	}

	if v := os.Getenv("RELIC_ASSISTANT_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Assistant.RateLimit = f
		}
	}

	if v := os.Getenv("RELIC_ASSISTANT_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Assistant.RateBurst = n
		}
	}
}

// DataDir returns the path to the console data directory (~/.relic-console).
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".relic-console"), nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
