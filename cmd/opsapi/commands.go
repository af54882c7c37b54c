package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/charlesng35/opsapi/pkg/logger"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.WithModule("migrate")
			db, err := initialiseDatabase(rootOpts.config)
			if err != nil {
				return err
			}
			closeDatabase(db, log)
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire overdue invitations and prune old audit logs once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.WithModule("sweep")
			stack, err := bootstrapRuntime(cmd.Context(), rootOpts.config, log)
			if err != nil {
				return err
			}
			defer stack.Shutdown(log)

			expired, err := stack.Cleaner.SweepInvitations(cmd.Context())
			if err != nil {
				return fmt.Errorf("sweep invitations: %w", err)
			}
			pruned, err := stack.Cleaner.PruneAudit(cmd.Context())
			if err != nil {
				return fmt.Errorf("prune audit logs: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "expired %d invitation(s), pruned %d audit log(s)\n", expired, pruned)
			return nil
		},
	}
}

// NewScheduleCommand creates the schedule command.
func NewScheduleCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run maintenance jobs on their cron schedules until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.WithModule("schedule")
			if !rootOpts.config.Maintenance.Enabled {
				log.Info("maintenance disabled; nothing to schedule")
				return nil
			}

			stack, err := bootstrapRuntime(cmd.Context(), rootOpts.config, log)
			if err != nil {
				return err
			}
			defer stack.Shutdown(log)

			if err := stack.Cleaner.Start(); err != nil {
				return fmt.Errorf("start maintenance jobs: %w", err)
			}

			<-cmd.Context().Done()
			log.Info("shutdown signal received")

			<-stack.Cleaner.Stop().Done()
			log.Info("maintenance scheduler stopped", zap.String("reason", cmd.Context().Err().Error()))
			return nil
		},
	}
}
