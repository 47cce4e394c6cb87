package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TRACKER_AUTH_SECRET", "s3cret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, ":8080", cfg.GetServerAddr())
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "inmemory", cfg.Repository.Type)
	assert.Equal(t, 10, cfg.Database.MaxConnections)
	assert.Equal(t, 5*time.Minute, cfg.Database.IdleTimeout)
	assert.Equal(t, "memory", cfg.RateLimit.Backend)
	assert.Equal(t, 100, cfg.RateLimit.RPM)
	assert.Equal(t, time.Hour, cfg.Auth.TTL)
	assert.Equal(t, "s3cret", cfg.Auth.Secret)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	content := `
server:
  host: 127.0.0.1
  port: "9090"
  request_timeout: 5s
repository:
  type: sqlite
sqlite:
  path: /tmp/tasks.db
logging:
  development: true
auth:
  secret: from-file
  ttl: 30m
rate_limit:
  backend: redis
  rpm: 10
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("TRACKER_SERVER_PORT", "7070")
	t.Setenv("TRACKER_RATE_LIMIT_RPM", "42")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7070", cfg.GetServerAddr())
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "sqlite", cfg.Repository.Type)
	assert.Equal(t, "/tmp/tasks.db", cfg.SQLite.Path)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, "from-file", cfg.Auth.Secret)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TTL)
	assert.Equal(t, "redis", cfg.RateLimit.Backend)
	assert.Equal(t, 42, cfg.RateLimit.RPM)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
		assert.Error(t, err)
	})

	t.Run("unknown rate limit backend", func(t *testing.T) {
		t.Setenv("TRACKER_RATE_LIMIT_BACKEND", "memcached")
		_, err := Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "memcached")
	})

	t.Run("unknown repository", func(t *testing.T) {
		t.Setenv("TRACKER_AUTH_SECRET", "x")
		t.Setenv("TRACKER_REPOSITORY_TYPE", "mongo")
		_, err := Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mongo")
	})
}
