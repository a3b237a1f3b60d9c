package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/trivia-director/internal/config"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	c := config.New()

	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, 30*time.Minute, c.GetSessionTTL())
	require.Equal(t, time.Minute, c.GetRateLimitWindow())
	require.Equal(t, 5, c.GetRateLimitMaxAttempts())
	require.Equal(t, 3, c.GetRequestLimitPerDevice())
	require.Equal(t, 24*time.Hour, c.GetRequestLimitWindow())
	require.Equal(t, 100, c.GetAuditLogCap())
	require.Equal(t, "trivia-game-sync", c.GetSyncChannelPrefix())
	require.Equal(t, 32, c.GetTokenLength())
	require.Equal(t, 16, c.GetSaltLength())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(path, []byte(`
server:
  port: 9090
  env: prod
security:
  session_ttl: 10m
  rate_limit_max: 7
storage:
  driver: memory
cors:
  allowed_origins: "https://show.example.com, https://popout.example.com"
`), 0o600)
	require.NoError(t, err)

	c, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", c.GetPort())
	require.Equal(t, "PROD", c.GetEnv())
	require.Equal(t, 10*time.Minute, c.GetSessionTTL())
	require.Equal(t, 7, c.GetRateLimitMaxAttempts())
	require.Equal(t, config.StorageDriverMemory, c.GetStorageDriver())
	require.True(t, c.GetAllowedOrigins().IsAllowedOrigin("https://popout.example.com"))

	t.Setenv("PORT", "7070")
	t.Setenv("SESSION_TTL", "not-a-duration")
	require.Equal(t, ":7070", c.GetPort())
	require.Equal(t, 30*time.Minute, c.GetSessionTTL(), "invalid values fall back to the default")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
