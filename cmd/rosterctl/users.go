package main

import (
	"context"
	"encoding/json"
	"io"
	"net/url"

	"github.com/spf13/cobra"

	"roster/internal/app"
	"roster/internal/users/service"
)

func newUsersCommand(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Print reconciled users as JSON keyed by user_id.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := service.ParseFilter(filterValues(cmd))
			if err != nil {
				return err
			}
			return withApp(cmd, stderr, func(ctx context.Context, a *app.App) error {
				users, err := a.Service.Query(ctx, filter)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(users)
			})
		},
	}
	cmd.Flags().String(service.ParamImageExists, "", "True or False")
	cmd.Flags().String(service.ParamMinAge, "", "minimum age in years")
	cmd.Flags().String(service.ParamMaxAge, "", "maximum age in years")
	return cmd
}

// filterValues maps explicitly set flags onto query parameters.
func filterValues(cmd *cobra.Command) url.Values {
	q := url.Values{}
	for _, name := range []string{service.ParamImageExists, service.ParamMinAge, service.ParamMaxAge} {
		if cmd.Flags().Changed(name) {
			v, _ := cmd.Flags().GetString(name)
			q.Set(name, v)
		}
	}
	return q
}
