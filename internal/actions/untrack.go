package actions

import (
	"fmt"

	stackderrors "stackd.dev/stackd/internal/errors"
	"stackd.dev/stackd/internal/output"
	"stackd.dev/stackd/internal/runtime"
)

// UntrackAction removes a branch from the store, splicing its children
// onto its former parent. The git branch itself is untouched.
func UntrackAction(ctx *runtime.Context, branchName string) error {
	if branchName == ctx.Trunk {
		return fmt.Errorf("%w: cannot untrack the trunk branch", stackderrors.ErrInvalidOperation)
	}
	if err := ctx.Store.SpliceOut(branchName); err != nil {
		return err
	}
	ctx.Splog.Info("Untracked %s.", output.ColorBranchName(branchName, false))
	return nil
}
