// Package cli defines the cobra command surface. Commands stay thin and
// delegate to internal/actions.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root cobra command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "stackd",
		Short:         "stackd manages a stack of dependent feature branches",
		Long:          "stackd tracks the parent relationships between your feature branches and keeps the whole stack rebased as upstream branches move or merge.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newTrackCmd())
	rootCmd.AddCommand(newUntrackCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newDoctorCmd())
	rootCmd.AddCommand(newLogCmd())

	return rootCmd
}
