package app

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

const (
	fallbackExpiryDays    = 7
	fallbackMaxExpiryDays = 365
	fallbackRetentionDays = 90
)

// ApplyRuntimeDefaults repairs values that environment overrides may have zeroed and rejects
// settings that cannot work together. It returns the keys that were defaulted so callers can
// log the event.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	defaulted := make(map[string]bool)

	if cfg.Invitations.MaxExpiryDays <= 0 {
		cfg.Invitations.MaxExpiryDays = fallbackMaxExpiryDays
		defaulted["invitations.max_expiry_days"] = true
	}
	if cfg.Invitations.DefaultExpiryDays <= 0 {
		cfg.Invitations.DefaultExpiryDays = fallbackExpiryDays
		defaulted["invitations.default_expiry_days"] = true
	}
	if cfg.Invitations.DefaultExpiryDays > cfg.Invitations.MaxExpiryDays {
		return nil, fmt.Errorf("invitations.default_expiry_days (%d) exceeds invitations.max_expiry_days (%d)",
			cfg.Invitations.DefaultExpiryDays, cfg.Invitations.MaxExpiryDays)
	}

	if cfg.Maintenance.AuditRetentionDays <= 0 {
		cfg.Maintenance.AuditRetentionDays = fallbackRetentionDays
		defaulted["maintenance.audit_retention_days"] = true
	}

	if cfg.Maintenance.Enabled {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		for key, spec := range map[string]string{
			"maintenance.invitation_sweep_schedule": cfg.Maintenance.InvitationSweepSchedule,
			"maintenance.audit_schedule":            cfg.Maintenance.AuditSchedule,
		} {
			if strings.TrimSpace(spec) == "" {
				continue
			}
			if _, err := parser.Parse(spec); err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
		}
	}

	return defaulted, nil
}
