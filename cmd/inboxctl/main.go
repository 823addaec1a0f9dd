// Command inboxctl runs maintenance tasks against the inbox stores.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/guest-inbox/internal/app"
	"github.com/spec-kit/guest-inbox/internal/config"
	"github.com/spec-kit/guest-inbox/internal/observability"
)

// buildFunc opens the wired application for one command run.
type buildFunc func(ctx context.Context) (*app.Container, error)

type cli struct {
	out      io.Writer
	logLevel string
	cfg      *config.Config
	logger   *zap.Logger
	build    buildFunc
}

func main() {
	if err := newRootCmd(os.Stdout, nil).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd assembles the command tree. A nil build loads configuration
// from the environment.
func newRootCmd(out io.Writer, build buildFunc) *cobra.Command {
	c := &cli{out: out, build: build}

	root := &cobra.Command{
		Use:           "inboxctl",
		Short:         "Maintenance commands for the guest inbox",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = c.logger.Sync()
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "Log level written to stderr")

	root.AddCommand(
		c.migrateCmd(),
		c.seedCmd(),
		c.analyticsCmd(),
		c.rulesCmd(),
	)
	return root
}

func (c *cli) init() error {
	if c.build != nil {
		c.logger = zap.NewNop()
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Logger.Level = c.logLevel
	cfg.Logger.Output = "stderr"

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	c.cfg = cfg
	c.logger = logger
	c.build = func(ctx context.Context) (*app.Container, error) {
		return app.Build(ctx, cfg, logger)
	}
	return nil
}
