package main

import (
	"context"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"roster/internal/app"
	"roster/internal/platform/config"
	"roster/internal/platform/logger"
)

// NewRootCommand builds the rosterctl command tree. Configuration comes from
// the same environment variables as the server.
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	rc := &cobra.Command{
		Use:           "rosterctl",
		Short:         "rosterctl runs and inspects user reconciliation passes.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rc.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error); defaults to LOG_LEVEL")

	rc.AddCommand(newRunCommand(stdout, stderr))
	rc.AddCommand(newValidateCommand(stdout))
	rc.AddCommand(newUsersCommand(stdout, stderr))
	rc.AddCommand(newStatusCommand(stdout, stderr))
	rc.AddCommand(newEventsCommand(stdout, stderr))

	rc.SetIn(stdin)
	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// env loads configuration and a logger writing to stderr, so stdout carries only results.
func env(cmd *cobra.Command, stderr io.Writer) (config.Config, *slog.Logger, error) {
	cfg := config.FromEnv()
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}
	return cfg, logger.NewWithWriter(stderr, cfg.LogLevel), nil
}

// withApp builds the application for the duration of fn.
func withApp(cmd *cobra.Command, stderr io.Writer, fn func(ctx context.Context, a *app.App) error, opts ...app.Option) error {
	cfg, log, err := env(cmd, stderr)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log, opts...)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck // best-effort cleanup on exit
	return fn(ctx, a)
}
