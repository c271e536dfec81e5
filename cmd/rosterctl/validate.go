package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"roster/internal/platform/objectstore"
	"roster/internal/users/validation"
	dErrors "roster/pkg/domain-errors"
)

func newValidateCommand(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file> [file2]...",
		Short: "Check local user files against the source schema.",
		Long: `
Applies the same checks a pass applies to each source file, without touching
the buckets or the database. Exits non-zero when any file is invalid.
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			invalid := 0
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				userID := objectstore.Stem(filepath.Base(path))
				rec, err := validation.Validate(data)
				if err != nil {
					invalid++
					fmt.Fprintf(stdout, "%s: %s: %s\n", path, dErrors.CodeOf(err), err)
					continue
				}
				fmt.Fprintf(stdout, "%s: ok user_id=%s first_name=%s last_name=%s birthts=%s\n",
					path, userID, rec.FirstName, rec.LastName, rec.BirthTS)
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d files are invalid", invalid, len(args))
			}
			return nil
		},
	}
}
