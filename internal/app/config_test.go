package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, 2, cfg.Log.MaxBackups)
	require.Equal(t, 100, cfg.Log.MaxSizeMB)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Host)
	require.Equal(t, 5433, cfg.Database.Port)
	require.Equal(t, "opsapi", cfg.Database.Name)
	require.Equal(t, "require", cfg.Database.Options["sslmode"])
	require.Equal(t, 20, cfg.Database.MaxOpenConns)
	require.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)

	require.Equal(t, 14, cfg.Invitations.DefaultExpiryDays)
	require.Equal(t, 60, cfg.Invitations.MaxExpiryDays)

	require.True(t, cfg.Maintenance.Enabled)
	require.Equal(t, "@every 10m", cfg.Maintenance.InvitationSweepSchedule)
	require.Equal(t, "@daily", cfg.Maintenance.AuditSchedule)
	require.Equal(t, 30, cfg.Maintenance.AuditRetentionDays)

	require.True(t, cfg.Redis.Enabled)
	require.Equal(t, "redis.example.com:6380", cfg.Redis.Address)
	require.Equal(t, 2, cfg.Redis.DB)
	require.Equal(t, 2*time.Minute, cfg.Redis.LockTTL)
	require.Equal(t, 5*time.Second, cfg.Redis.Timeout)
}

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "./data/opsapi.sqlite", cfg.Database.Path)
	require.Equal(t, 7, cfg.Invitations.DefaultExpiryDays)
	require.Equal(t, 365, cfg.Invitations.MaxExpiryDays)
	require.Equal(t, "@every 5m", cfg.Maintenance.InvitationSweepSchedule)
	require.Equal(t, 90, cfg.Maintenance.AuditRetentionDays)
	require.False(t, cfg.Redis.Enabled)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("OPSAPI_DATABASE_DRIVER", "mysql")
	t.Setenv("OPSAPI_INVITATIONS_DEFAULT_EXPIRY_DAYS", "3")
	t.Setenv("OPSAPI_REDIS_LOCK_TTL", "90s")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, "mysql", cfg.Database.Driver)
	require.Equal(t, 3, cfg.Invitations.DefaultExpiryDays)
	require.Equal(t, 90*time.Second, cfg.Redis.LockTTL)
}

func TestDatabaseConfigConnection(t *testing.T) {
	section := DatabaseConfig{
		Driver:   "postgres",
		Host:     "localhost",
		Port:     5432,
		Name:     "opsapi",
		User:     "opsapi",
		Password: "pw",
		Options:  map[string]string{"sslmode": "disable"},
		LogLevel: "error",
	}

	conn := section.Connection()
	require.Equal(t, "postgres", conn.Driver)
	require.Equal(t, "localhost", conn.Host)
	require.Equal(t, 5432, conn.Port)
	require.Equal(t, "opsapi", conn.Name)
	require.Equal(t, "disable", conn.Options["sslmode"])
	require.Equal(t, "error", conn.LogLevel)
}
