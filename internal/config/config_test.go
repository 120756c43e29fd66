package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playhouse-bot/go-storage/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), *cfg)

	cfg, err = config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.BackendMemory, cfg.Storage.Backend)
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
storage:
  backend: redis
  endpoints: [localhost:6379]
  namespace: "test:"
lobby:
  codec: msgpack
  max_attempts: 50
  retry_rate: 20
maintenance:
  sweep_interval: 1m
logger:
  level: debug
metrics:
  enabled: true
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, config.BackendRedis, cfg.Storage.Backend)
	assert.Equal(t, []string{"localhost:6379"}, cfg.Storage.Endpoints)
	assert.Equal(t, "test:", cfg.Storage.Namespace)
	assert.Equal(t, 5*time.Second, cfg.Storage.Timeout)
	assert.Equal(t, "/games/", cfg.Lobby.Prefix)
	assert.Equal(t, "msgpack", cfg.Lobby.Codec)
	assert.Equal(t, 50, cfg.Lobby.MaxAttempts)
	assert.InDelta(t, 20.0, cfg.Lobby.RetryRate, 0)
	assert.Equal(t, time.Minute, cfg.Maintenance.SweepInterval)
	assert.Equal(t, time.Hour, cfg.Maintenance.MaxIdle)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9464", cfg.Metrics.Addr)
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "unknown backend", body: "storage: {backend: mongo}"},
		{name: "missing endpoints", body: "storage: {backend: etcd}"},
		{name: "bad prefix", body: "lobby: {prefix: /games}"},
		{name: "bad codec", body: "lobby: {codec: json}"},
		{name: "negative attempts", body: "lobby: {max_attempts: -1}"},
		{name: "negative rate", body: "lobby: {retry_rate: -1}"},
		{name: "negative idle", body: "maintenance: {max_idle: -1m}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.Load(writeConfig(t, tt.body))
			require.ErrorIs(t, err, config.ErrInvalid)
		})
	}
}

func TestLoad_Malformed(t *testing.T) {
	t.Parallel()

	_, err := config.Load(writeConfig(t, "storage: ["))
	require.Error(t, err)
	assert.NotErrorIs(t, err, config.ErrInvalid)
}
