package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/opsapi/pkg/logger"
	"github.com/charlesng35/opsapi/pkg/metrics"
)

const (
	defaultAuditRetentionDays = 90
	defaultSweepSpec          = "@every 5m"
	defaultAuditSpec          = "@daily"
	defaultLockTTL            = 4 * time.Minute

	sweepJob = "invitation_sweep"
	auditJob = "audit_prune"

	sweepLockKey = "opsapi:maintenance:invitation-sweep"
	auditLockKey = "opsapi:maintenance:audit-prune"
)

// InvitationSweeper expires pending invitations past their deadline.
type InvitationSweeper interface {
	ExpireOverdue(ctx context.Context) (int64, error)
}

// AuditPruner removes audit entries older than a retention window.
type AuditPruner interface {
	CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error)
}

// Cleaner coordinates background maintenance: sweeping overdue invitations and pruning stale
// audit logs. With a Locker configured only one replica runs each job at a time.
type Cleaner struct {
	invitations InvitationSweeper
	audit       AuditPruner
	locker      Locker
	lockTTL     time.Duration
	cron        *cron.Cron
	log         *zap.Logger
	retention   int

	sweepSchedule string
	auditSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained before cleanup.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithSweepSchedule overrides the cron specification for the invitation sweep.
func WithSweepSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.sweepSchedule = spec
		}
	}
}

// WithAuditSchedule overrides the cron specification for audit retention enforcement.
func WithAuditSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.auditSchedule = spec
		}
	}
}

// WithLocker serialises jobs across replicas. A non-positive ttl keeps the default.
func WithLocker(locker Locker, ttl time.Duration) Option {
	return func(cleaner *Cleaner) {
		cleaner.locker = locker
		if ttl > 0 {
			cleaner.lockTTL = ttl
		}
	}
}

// NewCleaner constructs a Cleaner. A nil dependency skips the corresponding job.
func NewCleaner(invitations InvitationSweeper, audit AuditPruner, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		invitations:   invitations,
		audit:         audit,
		lockTTL:       defaultLockTTL,
		retention:     defaultAuditRetentionDays,
		sweepSchedule: defaultSweepSpec,
		auditSchedule: defaultAuditSpec,
		log:           logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the jobs with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.invitations == nil && c.audit == nil {
		return nil
	}

	if c.invitations != nil {
		if _, err := c.cron.AddFunc(c.sweepSchedule, func() {
			if _, err := c.SweepInvitations(context.Background()); err != nil {
				c.log.Warn("invitation sweep failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.audit != nil {
		if _, err := c.cron.AddFunc(c.auditSchedule, func() {
			if _, err := c.PruneAudit(context.Background()); err != nil {
				c.log.Warn("audit cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	c.log.Info("maintenance scheduler started",
		zap.String("sweep_schedule", c.sweepSchedule),
		zap.String("audit_schedule", c.auditSchedule),
	)
	return nil
}

// Stop halts the underlying scheduler. The returned context is done once running jobs finish.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every configured job sequentially.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.invitations != nil {
		if _, err := c.SweepInvitations(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.audit != nil {
		if _, err := c.PruneAudit(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// SweepInvitations expires overdue invitations. It returns zero without running when another
// replica holds the lock.
func (c *Cleaner) SweepInvitations(ctx context.Context) (int64, error) {
	if c.invitations == nil {
		return 0, nil
	}

	var expired int64
	err := c.run(ctx, sweepJob, sweepLockKey, func(ctx context.Context) error {
		count, err := c.invitations.ExpireOverdue(ctx)
		expired = count
		return err
	})
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		c.log.Debug("invitation sweep complete", zap.Int64("expired", expired))
	}
	return expired, nil
}

// PruneAudit removes audit entries older than the retention window.
func (c *Cleaner) PruneAudit(ctx context.Context) (int64, error) {
	if c.audit == nil || c.retention <= 0 {
		return 0, nil
	}

	var removed int64
	err := c.run(ctx, auditJob, auditLockKey, func(ctx context.Context) error {
		count, err := c.audit.CleanupOlderThan(ctx, c.retention)
		removed = count
		return err
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		c.log.Info("pruned audit logs", zap.Int64("removed", removed), zap.Int("retention_days", c.retention))
	}
	return removed, nil
}

// run executes fn under the job's lock and records the outcome.
func (c *Cleaner) run(ctx context.Context, job, key string, fn func(context.Context) error) error {
	started := time.Now()

	if c.locker != nil {
		release, acquired, err := c.locker.TryLock(ctx, key, c.lockTTL)
		if err != nil {
			metrics.RecordMaintenanceRun(job, "failure", time.Since(started))
			return err
		}
		if !acquired {
			c.log.Debug("maintenance lock held elsewhere; skipping", zap.String("job", job))
			metrics.RecordMaintenanceRun(job, "skipped", 0)
			return nil
		}
		defer func() {
			if err := release(context.Background()); err != nil {
				c.log.Warn("release maintenance lock", zap.String("key", key), zap.Error(err))
			}
		}()
	}

	if err := fn(ctx); err != nil {
		metrics.RecordMaintenanceRun(job, "failure", time.Since(started))
		return err
	}
	metrics.RecordMaintenanceRun(job, "success", time.Since(started))
	return nil
}
