package cli

import (
	"github.com/spf13/cobra"

	"stackd.dev/stackd/internal/actions"
	"stackd.dev/stackd/internal/runtime"
)

// newDoctorCmd creates the doctor command
func newDoctorCmd() *cobra.Command {
	var opts actions.DoctorOptions

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the branch store for inconsistencies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := runtime.GetContext(cmd.Context())
			if err != nil {
				return err
			}
			defer ctx.Close()

			return actions.DoctorAction(ctx, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Fix, "fix", false, "Repair the issues found")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Emit a machine-readable summary")

	return cmd
}
