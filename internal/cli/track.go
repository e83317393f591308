package cli

import (
	"github.com/spf13/cobra"

	"stackd.dev/stackd/internal/actions"
	"stackd.dev/stackd/internal/runtime"
)

// newTrackCmd creates the track command
func newTrackCmd() *cobra.Command {
	var opts actions.TrackOptions

	cmd := &cobra.Command{
		Use:   "track [branch]",
		Short: "Track a branch's parent in the stack",
		Long: `Track records which branch a feature branch depends on. Without --parent
the parent is inferred from the pull request base or git ancestry, walking
down the chain until the trunk is reached.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := runtime.GetContext(cmd.Context())
			if err != nil {
				return err
			}
			defer ctx.Close()

			if len(args) > 0 {
				opts.Branch = args[0]
			}
			return actions.TrackAction(ctx, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.All, "all", "a", false, "Track every local branch")
	cmd.Flags().StringVarP(&opts.Parent, "parent", "p", "", "Explicit parent branch")
	cmd.Flags().BoolVar(&opts.InferOnly, "infer", false, "Only report the inferred parents, change nothing")
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "Replace differing stored parents without prompting")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Show what would be tracked without applying")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Emit a machine-readable summary")

	return cmd
}
