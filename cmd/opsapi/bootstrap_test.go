package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/opsapi/internal/app"
	"github.com/charlesng35/opsapi/internal/database"
	"github.com/charlesng35/opsapi/internal/models"
	"github.com/charlesng35/opsapi/pkg/logger"
)

func writeConfig(t *testing.T, dir, dbPath string) {
	t.Helper()
	content := strings.Join([]string{
		"log:",
		"  level: error",
		"database:",
		"  driver: sqlite",
		"  path: " + dbPath,
		"maintenance:",
		"  audit_retention_days: 30",
		"",
	}, "\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))
}

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() { logger.Replace(nil) })

	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLoadApplicationConfigPaths(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, filepath.Join(dir, "opsapi.sqlite"))

	cfg, err := loadApplicationConfig(dir)
	require.NoError(t, err)
	require.Equal(t, "error", cfg.Log.Level)

	cfg, err = loadApplicationConfig(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	require.Equal(t, 30, cfg.Maintenance.AuditRetentionDays)

	_, err = loadApplicationConfig(filepath.Join(dir, "missing"))
	require.Error(t, err)
}

func TestMigrateAndSweepCommands(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "data", "opsapi.sqlite")
	writeConfig(t, dir, dbPath)

	out, err := executeRoot(t, "--config", dir, "--env-file", "", "migrate")
	require.NoError(t, err)
	require.Contains(t, out, "schema up to date")
	require.FileExists(t, dbPath)

	db, err := database.Open(database.Config{Driver: "sqlite", Path: dbPath})
	require.NoError(t, err)
	ns := &models.Namespace{Name: "Acme", Slug: "acme"}
	require.NoError(t, db.Create(ns).Error)
	owner := &models.User{Email: "owner@example.com", IsActive: true}
	require.NoError(t, db.Create(owner).Error)
	require.NoError(t, db.Create(&models.Invitation{
		NamespaceID: ns.ID,
		Email:       "late@example.com",
		Token:       strings.Repeat("x", 64),
		Status:      models.InvitationStatusPending,
		InvitedBy:   owner.ID,
		ExpiresAt:   time.Now().UTC().Add(-time.Hour),
		PendingKey:  models.PendingKeyFor(ns.ID, "late@example.com"),
	}).Error)
	require.NoError(t, database.Close(db))

	out, err = executeRoot(t, "--config", dir, "--env-file", "", "sweep")
	require.NoError(t, err)
	require.Contains(t, out, "expired 1 invitation(s)")

	out, err = executeRoot(t, "--config", dir, "--env-file", "", "sweep")
	require.NoError(t, err)
	require.Contains(t, out, "expired 0 invitation(s)")
}

func TestEnvFileOverridesConfiguration(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, filepath.Join(dir, "opsapi.sqlite"))

	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("OPSAPI_INVITATIONS_DEFAULT_EXPIRY_DAYS=400\n"), 0o600))
	t.Setenv("OPSAPI_INVITATIONS_DEFAULT_EXPIRY_DAYS", "")
	require.NoError(t, os.Unsetenv("OPSAPI_INVITATIONS_DEFAULT_EXPIRY_DAYS"))

	_, err := executeRoot(t, "--config", dir, "--env-file", envFile, "migrate")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid configuration")
}

func TestBootstrapRuntimeWithoutRedis(t *testing.T) {
	dir := t.TempDir()
	cfg := &app.Config{
		Database:    app.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(dir, "opsapi.sqlite")},
		Invitations: app.InvitationConfig{DefaultExpiryDays: 7, MaxExpiryDays: 30},
		Maintenance: app.MaintenanceConfig{InvitationSweepSchedule: "@every 1m", AuditSchedule: "@daily", AuditRetentionDays: 30},
	}

	log := logger.WithModule("test")
	stack, err := bootstrapRuntime(context.Background(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(log) })

	require.NotNil(t, stack.Invitations)
	require.NotNil(t, stack.Audit)
	require.NotNil(t, stack.Cleaner)
	require.Nil(t, stack.Redis)

	require.NoError(t, stack.Cleaner.RunOnce(context.Background()))
}
