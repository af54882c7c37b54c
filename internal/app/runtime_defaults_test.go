package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyRuntimeDefaultsFillsZeroValues(t *testing.T) {
	cfg := &Config{}

	defaulted, err := ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)
	require.True(t, defaulted["invitations.default_expiry_days"])
	require.True(t, defaulted["invitations.max_expiry_days"])
	require.True(t, defaulted["maintenance.audit_retention_days"])
	require.Equal(t, 7, cfg.Invitations.DefaultExpiryDays)
	require.Equal(t, 365, cfg.Invitations.MaxExpiryDays)
	require.Equal(t, 90, cfg.Maintenance.AuditRetentionDays)
}

func TestApplyRuntimeDefaultsKeepsConfiguredValues(t *testing.T) {
	cfg := &Config{
		Invitations: InvitationConfig{DefaultExpiryDays: 3, MaxExpiryDays: 30},
		Maintenance: MaintenanceConfig{Enabled: true, InvitationSweepSchedule: "*/5 * * * *", AuditSchedule: "@daily", AuditRetentionDays: 10},
	}

	defaulted, err := ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)
	require.Empty(t, defaulted)
	require.Equal(t, 3, cfg.Invitations.DefaultExpiryDays)
}

func TestApplyRuntimeDefaultsRejectsInvalidSettings(t *testing.T) {
	_, err := ApplyRuntimeDefaults(nil)
	require.Error(t, err)

	_, err = ApplyRuntimeDefaults(&Config{Invitations: InvitationConfig{DefaultExpiryDays: 90, MaxExpiryDays: 30}})
	require.Error(t, err)

	_, err = ApplyRuntimeDefaults(&Config{Maintenance: MaintenanceConfig{Enabled: true, InvitationSweepSchedule: "every now and then"}})
	require.Error(t, err)
}
