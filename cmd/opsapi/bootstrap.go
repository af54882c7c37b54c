package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/opsapi/internal/app"
	"github.com/charlesng35/opsapi/internal/app/maintenance"
	"github.com/charlesng35/opsapi/internal/database"
	"github.com/charlesng35/opsapi/internal/services"
	"github.com/charlesng35/opsapi/pkg/logger"
)

// runtimeStack bundles the long-lived services used by the commands.
type runtimeStack struct {
	DB          *gorm.DB
	Redis       *redis.Client
	Audit       *services.AuditService
	Invitations *services.InvitationService
	Cleaner     *maintenance.Cleaner
}

// bootstrapRuntime opens the database, connects redis when enabled, and wires the services.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(log)
		}
	}()

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	stack.Audit, err = services.NewAuditService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise audit service: %w", err)
	}

	stack.Invitations, err = services.NewInvitationService(stack.DB,
		services.WithInvitationAudit(stack.Audit),
		services.WithDefaultExpiryDays(cfg.Invitations.DefaultExpiryDays),
		services.WithMaxExpiryDays(cfg.Invitations.MaxExpiryDays),
	)
	if err != nil {
		return nil, fmt.Errorf("initialise invitation service: %w", err)
	}

	cleanerOpts := []maintenance.Option{
		maintenance.WithSweepSchedule(cfg.Maintenance.InvitationSweepSchedule),
		maintenance.WithAuditSchedule(cfg.Maintenance.AuditSchedule),
		maintenance.WithAuditRetentionDays(cfg.Maintenance.AuditRetentionDays),
	}

	if cfg.Redis.Enabled {
		client, redisErr := maintenance.NewRedisClient(ctx, maintenance.RedisOptions{
			Address:  cfg.Redis.Address,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Timeout:  cfg.Redis.Timeout,
		})
		if redisErr != nil {
			log.Warn("redis unavailable; maintenance jobs run without a distributed lock", zap.Error(redisErr))
		} else {
			stack.Redis = client
			locker, lockErr := maintenance.NewRedisLocker(client)
			if lockErr != nil {
				return nil, lockErr
			}
			cleanerOpts = append(cleanerOpts, maintenance.WithLocker(locker, cfg.Redis.LockTTL))
			log.Info("redis connected", zap.String("addr", cfg.Redis.Address))
		}
	}

	stack.Cleaner = maintenance.NewCleaner(stack.Invitations, stack.Audit, cleanerOpts...)

	success = true
	return stack, nil
}

// Shutdown releases every resource held by the stack.
func (s *runtimeStack) Shutdown(log *zap.Logger) {
	if s == nil {
		return
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("failed to close redis client", zap.Error(err))
		}
	}
	closeDatabase(s.DB, log)
}

func loadApplicationConfig(path string) (*app.Config, error) {
	if strings.TrimSpace(path) == "" {
		return app.LoadConfig()
	}

	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return app.LoadConfig(path)
		}
		return app.LoadConfig(filepath.Dir(path))
	}
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config path %q does not exist", path)
	}
	return nil, fmt.Errorf("stat config path: %w", err)
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.Connection()
	if dbCfg.Driver == "sqlite" && dbCfg.Path != "" && dbCfg.DSN == "" {
		if err := os.MkdirAll(filepath.Dir(dbCfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	logger.WithModule("database").Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))
	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}
	if err := database.Close(db); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
