package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, ":7272", cfg.ListenAddr)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, 5*time.Minute, cfg.ShowCacheTTL)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("WATCHPARTY_LISTEN_ADDR", ":9000")
	t.Setenv("WATCHPARTY_USER_DIRECTORY_URL", "https://auth.example.com")

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "https://auth.example.com", cfg.UserDirectoryURL)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchparty.yaml")
	body := "listen_addr: \":8100\"\nadmin_username: ops\nshow_cache_ttl: 30s\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, ":8100", cfg.ListenAddr)
	assert.Equal(t, "ops", cfg.AdminUsername)
	assert.Equal(t, 30*time.Second, cfg.ShowCacheTTL)
}

func TestMissingConfigFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
