package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/charlesng35/opsapi/internal/app"
	"github.com/charlesng35/opsapi/pkg/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	EnvFile    string

	config *app.Config
}

// NewRootCommand creates the opsapi command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "opsapi",
		Short:         "Namespace invitation maintenance",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.prepare()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to configuration directory or file")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before configuration (ignored when missing)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSweepCommand(opts))
	cmd.AddCommand(NewScheduleCommand(opts))

	return cmd
}

// prepare loads the environment file and configuration, then installs the global logger.
func (o *RootOptions) prepare() error {
	if file := strings.TrimSpace(o.EnvFile); file != "" {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load env file %q: %w", file, err)
		}
	}

	cfg, err := loadApplicationConfig(o.ConfigPath)
	if err != nil {
		return err
	}

	defaulted, err := app.ApplyRuntimeDefaults(cfg)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := app.ConfigureLogging(cfg.Log); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	log := logger.WithModule("bootstrap")
	for key := range defaulted {
		log.Info("applied runtime default", zap.String("key", key))
	}

	o.config = cfg
	return nil
}
