package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"roster/internal/app"
)

func newStatusCommand(stdout, stderr io.Writer) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print recent pass results, newest first.",
		Long: `
Reads pass results from the status store. Results survive the process only when
REDIS_URL is set.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, stderr, func(ctx context.Context, a *app.App) error {
				results, err := a.Status.History(ctx, limit)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 1, "number of results to print")
	return cmd
}
