package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Notifications.DedupWindow)
	assert.True(t, cfg.Notifications.Retention.Enabled)
	assert.Equal(t, "@daily", cfg.Notifications.Retention.Schedule)
	assert.Equal(t, 30*24*time.Hour, cfg.Notifications.Retention.MaxAge)
	assert.Equal(t, 15*time.Minute, cfg.Auth.JWT.TTL)
	assert.Equal(t, "waveline", cfg.Auth.JWT.Issuer)
	assert.False(t, cfg.Cache.Redis.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Cache.Redis.TTL)
	assert.True(t, cfg.Monitoring.Prometheus.Enabled)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("WAVELINE_SERVER_PORT", "9100")
	t.Setenv("WAVELINE_DATABASE_DRIVER", "postgres")
	t.Setenv("WAVELINE_NOTIFICATIONS_DEDUP_WINDOW", "1h")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, time.Hour, cfg.Notifications.DedupWindow)
}

func TestDatabaseSettings(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{
			Driver: "postgres",
			Postgres: DBAuthConfig{
				Host:     "db.internal",
				Port:     5432,
				Database: "waveline",
				Username: "waveline",
				Password: "secret",
			},
		},
	}

	settings := cfg.DatabaseSettings()
	assert.Equal(t, "postgres", settings.Driver)
	assert.Equal(t, "db.internal", settings.Host)
	assert.Equal(t, 5432, settings.Port)
	assert.Equal(t, "waveline", settings.Name)

	sqlite := &Config{Database: DatabaseConfig{Driver: "sqlite", Path: "/tmp/w.sqlite"}}
	assert.Equal(t, "/tmp/w.sqlite", sqlite.DatabaseSettings().Path)
}
