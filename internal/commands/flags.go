package commands

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/playhouse-bot/go-storage"
	"github.com/playhouse-bot/go-storage/internal/config"
	"github.com/playhouse-bot/go-storage/internal/telemetry"
	"github.com/playhouse-bot/go-storage/lobby"
)

// Flags carries global flag values and the services built from them.
type Flags struct {
	LogLevel   string
	ConfigPath string
	Backend    string

	// Set up in the Before hook and available to all commands.
	Config    *config.Config
	Logger    *zap.Logger
	Telemetry *telemetry.Telemetry
	Storage   storage.Storage
	Registry  *lobby.Registry

	closers []func() error
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}

	return filepath.Join(configHome, "gamestore", "config.yaml")
}
