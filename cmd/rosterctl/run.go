package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"roster/internal/app"
	"roster/internal/users/models"
	"roster/internal/users/pipeline"
)

func newRunCommand(stdout, stderr io.Writer) *cobra.Command {
	var detail bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one reconciliation pass and print the summary.",
		Long: `
Runs a single pass against the configured buckets and database, waiting for any
pass already running in this process. With --detail every file is reported as
it is reconciled.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []app.Option
			if detail {
				opts = append(opts, app.WithPipelineOptions(pipeline.WithFileObserver(func(r pipeline.FileReport) {
					fmt.Fprintln(stdout, describe(r))
				})))
			}
			return withApp(cmd, stderr, func(ctx context.Context, a *app.App) error {
				res, err := a.Pipeline.RunPass(ctx, models.TriggerCLI)
				fmt.Fprintln(stdout, res.Message())
				return err
			}, opts...)
		},
	}
	cmd.Flags().BoolVarP(&detail, "detail", "d", false, "print the outcome of every file")
	return cmd
}

func describe(r pipeline.FileReport) string {
	switch {
	case r.Failure != nil:
		return fmt.Sprintf("%s: %s", r.Object, r.Failure.Message)
	case r.MissingImage:
		return fmt.Sprintf("%s (Could not find an image for the user with id %s.)", r.Outcome.Message(), r.Outcome.User.UserID)
	default:
		return r.Outcome.Message()
	}
}
