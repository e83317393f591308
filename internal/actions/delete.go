package actions

import (
	"errors"
	"fmt"

	stackderrors "stackd.dev/stackd/internal/errors"
	"stackd.dev/stackd/internal/output"
	"stackd.dev/stackd/internal/runtime"
)

// DeleteOptions contains options for the delete command
type DeleteOptions struct {
	Branch string
	Force  bool
}

// DeleteAction deletes a branch from git and the store. When the git
// branch still exists its record is spliced out (children re-linked to
// its former parent); when the branch is already gone the record is
// deleted outright and children become roots.
func DeleteAction(ctx *runtime.Context, opts DeleteOptions) error {
	branchName := opts.Branch
	if branchName == ctx.Trunk {
		return fmt.Errorf("%w: cannot delete the trunk branch", stackderrors.ErrInvalidOperation)
	}

	if ctx.Git.RefExists(branchName) {
		if !opts.Force {
			merged, err := ctx.Git.IsAncestor(branchName, ctx.Trunk)
			if err != nil {
				return err
			}
			if !merged {
				return fmt.Errorf("%w: %s is not merged into %s (use --force to delete anyway)",
					stackderrors.ErrInvalidOperation, branchName, ctx.Trunk)
			}
		}

		current, err := ctx.Git.CurrentBranch()
		if err == nil && current == branchName {
			return fmt.Errorf("%w: cannot delete the checked-out branch", stackderrors.ErrInvalidOperation)
		}

		if err := ctx.Git.DeleteBranch(ctx.Context, branchName); err != nil {
			return err
		}
		if err := ctx.Store.SpliceOut(branchName); err != nil && !errors.Is(err, stackderrors.ErrNotFound) {
			return err
		}
		ctx.Splog.Info("Deleted %s.", output.ColorBranchName(branchName, false))
		return nil
	}

	// Ref already gone: remove the stale record without splicing.
	if err := ctx.Store.DeleteBranch(branchName); err != nil {
		return err
	}
	ctx.Splog.Info("Removed stale record for %s.", output.ColorBranchName(branchName, false))
	return nil
}
