package cli

import (
	"github.com/spf13/cobra"

	"stackd.dev/stackd/internal/actions"
	"stackd.dev/stackd/internal/runtime"
)

// newSyncCmd creates the sync command
func newSyncCmd() *cobra.Command {
	var opts actions.SyncOptions

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Restack the forest after upstream movement",
		Long: `Sync fetches the base remote, finds branches whose parents merged or
moved, and restacks their descendants in dependency order.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := runtime.GetContext(cmd.Context())
			if err != nil {
				return err
			}
			defer ctx.Close()

			return actions.SyncAction(ctx, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print the plan without executing it")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Emit a machine-readable summary")

	return cmd
}
