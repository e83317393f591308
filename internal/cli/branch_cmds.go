package cli

import (
	"github.com/spf13/cobra"

	"stackd.dev/stackd/internal/actions"
	"stackd.dev/stackd/internal/runtime"
)

// newInitCmd creates the init command
func newInitCmd() *cobra.Command {
	var opts actions.InitOptions

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize stackd in this repository",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := runtime.GetContextForInit(cmd.Context())
			if err != nil {
				return err
			}
			defer ctx.Close()

			return actions.InitAction(ctx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Trunk, "trunk", "", "Base branch of the stack (defaults to the current branch)")
	cmd.Flags().StringVar(&opts.Remote, "remote", "", "Remote to sync against (defaults to origin)")

	return cmd
}

// newUntrackCmd creates the untrack command
func newUntrackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "untrack <branch>",
		Short: "Stop tracking a branch, splicing its children onto its parent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := runtime.GetContext(cmd.Context())
			if err != nil {
				return err
			}
			defer ctx.Close()

			return actions.UntrackAction(ctx, args[0])
		},
	}
}

// newDeleteCmd creates the delete command
func newDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <branch>",
		Short: "Delete a branch and splice its children onto its parent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := runtime.GetContext(cmd.Context())
			if err != nil {
				return err
			}
			defer ctx.Close()

			return actions.DeleteAction(ctx, actions.DeleteOptions{Branch: args[0], Force: force})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Delete even if the branch is not merged into trunk")

	return cmd
}

// newLogCmd creates the log command
func newLogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "log",
		Short: "Show the tracked branch forest",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := runtime.GetContext(cmd.Context())
			if err != nil {
				return err
			}
			defer ctx.Close()

			return actions.LogAction(ctx)
		},
	}
}
