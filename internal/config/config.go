// Package config loads the gamestore configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/playhouse-bot/go-storage/internal/logger"
	"github.com/playhouse-bot/go-storage/internal/telemetry"
)

// Backend names.
const (
	BackendMemory    = "memory"
	BackendEtcd      = "etcd"
	BackendRedis     = "redis"
	BackendTarantool = "tarantool"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds the application configuration.
type Config struct {
	Storage     StorageConfig     `yaml:"storage"`
	Lobby       LobbyConfig       `yaml:"lobby"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Logger      logger.Config     `yaml:"logger"`
	Metrics     telemetry.Config  `yaml:"metrics"`
}

// StorageConfig selects and configures the backend.
type StorageConfig struct {
	Backend   string        `yaml:"backend"`
	Endpoints []string      `yaml:"endpoints"`
	Username  string        `yaml:"username"`
	Password  string        `yaml:"password"`
	Namespace string        `yaml:"namespace"` // redis key namespace
	Timeout   time.Duration `yaml:"timeout"`
}

// LobbyConfig configures game records and watched transactions.
type LobbyConfig struct {
	Prefix string `yaml:"prefix"`
	Codec  string `yaml:"codec"` // yaml or msgpack
	// MaxAttempts bounds watched transaction retries. Zero means unbounded.
	MaxAttempts int `yaml:"max_attempts"`
	// RetryRate limits retries per second across the process. Zero disables it.
	RetryRate float64 `yaml:"retry_rate"`
}

// MaintenanceConfig configures the idle game sweep.
type MaintenanceConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
	MaxIdle       time.Duration `yaml:"max_idle"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			Backend:   BackendMemory,
			Endpoints: nil,
			Namespace: "gamestore:",
			Timeout:   5 * time.Second,
		},
		Lobby: LobbyConfig{
			Prefix:      "/games/",
			Codec:       "yaml",
			MaxAttempts: 0,
			RetryRate:   0,
		},
		Maintenance: MaintenanceConfig{
			SweepInterval: 15 * time.Minute,
			MaxIdle:       time.Hour,
		},
		Logger: logger.Config{
			Level:      "info",
			Format:     "console",
			OutputFile: "stderr",
		},
		Metrics: telemetry.Config{
			Enabled: false,
			Addr:    ":9464",
		},
	}
}

// Load reads configuration from path. An empty or missing path yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			data, err := os.ReadFile(path) //nolint:gosec
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Storage.Backend == "" {
		c.Storage.Backend = defaults.Storage.Backend
	}

	if c.Storage.Timeout == 0 {
		c.Storage.Timeout = defaults.Storage.Timeout
	}

	if c.Lobby.Prefix == "" {
		c.Lobby.Prefix = defaults.Lobby.Prefix
	}

	if c.Lobby.Codec == "" {
		c.Lobby.Codec = defaults.Lobby.Codec
	}

	if c.Maintenance.SweepInterval == 0 {
		c.Maintenance.SweepInterval = defaults.Maintenance.SweepInterval
	}

	if c.Maintenance.MaxIdle == 0 {
		c.Maintenance.MaxIdle = defaults.Maintenance.MaxIdle
	}

	if c.Metrics.Addr == "" {
		c.Metrics.Addr = defaults.Metrics.Addr
	}
}

// Validate checks the configuration for values no component accepts.
func (c *Config) Validate() error {
	backends := []string{BackendMemory, BackendEtcd, BackendRedis, BackendTarantool}

	switch {
	case !slices.Contains(backends, c.Storage.Backend):
		return fmt.Errorf("%w: unknown backend %q, want one of %s",
			ErrInvalid, c.Storage.Backend, strings.Join(backends, ", "))
	case c.Storage.Backend != BackendMemory && len(c.Storage.Endpoints) == 0:
		return fmt.Errorf("%w: backend %s needs at least one endpoint", ErrInvalid, c.Storage.Backend)
	case c.Storage.Timeout < 0:
		return fmt.Errorf("%w: negative storage timeout", ErrInvalid)
	case !strings.HasSuffix(c.Lobby.Prefix, "/"):
		return fmt.Errorf("%w: lobby prefix %q must end with /", ErrInvalid, c.Lobby.Prefix)
	case c.Lobby.Codec != "yaml" && c.Lobby.Codec != "msgpack":
		return fmt.Errorf("%w: unknown codec %q", ErrInvalid, c.Lobby.Codec)
	case c.Lobby.MaxAttempts < 0:
		return fmt.Errorf("%w: negative max attempts", ErrInvalid)
	case c.Lobby.RetryRate < 0:
		return fmt.Errorf("%w: negative retry rate", ErrInvalid)
	case c.Maintenance.SweepInterval < 0 || c.Maintenance.MaxIdle < 0:
		return fmt.Errorf("%w: negative maintenance duration", ErrInvalid)
	}

	return nil
}
