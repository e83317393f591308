package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"stackd.dev/stackd/internal/git"
	"stackd.dev/stackd/internal/output"
	"stackd.dev/stackd/internal/store"
)

const stashLabel = "stackd: auto-stash before sync"

// Executor applies a plan against the live working copy. This is not a
// database transaction: the first failure aborts the remaining steps,
// the stash is restored best-effort, and the run record is finalized
// either way.
type Executor struct {
	Store     *store.Store
	Git       git.Runner
	Splog     *output.Splog
	UseReplay bool
}

// runError is the JSON failure summary persisted on a failed run.
type runError struct {
	Message string `json:"message"`
	Op      string `json:"op,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

// Execute runs the plan. A dirty working tree is stashed first and the
// stash restored afterward regardless of outcome; restoration failure is
// reported as a warning, never escalated.
func (e *Executor) Execute(ctx context.Context, plan *Plan) error {
	dirty, err := e.Git.IsDirty()
	if err != nil {
		return err
	}
	if dirty {
		if err := e.Git.StashPush(ctx, stashLabel); err != nil {
			return fmt.Errorf("stashing working tree: %w", err)
		}
		defer func() {
			if popErr := e.Git.StashPop(ctx); popErr != nil {
				e.Splog.Warn("could not restore stashed changes, run 'git stash pop' manually: %v", popErr)
			}
		}()
	}

	runID, err := e.Store.StartSyncRun()
	if err != nil {
		return err
	}

	failedOp, err := e.run(ctx, plan)
	if err != nil {
		summary, _ := json.Marshal(runError{
			Message: err.Error(),
			Op:      failedOp.Kind.String(),
			Branch:  failedOp.Branch,
		})
		text := string(summary)
		if finErr := e.Store.FinishSyncRun(runID, store.SyncRunFailed, &text); finErr != nil {
			e.Splog.Warn("could not finalize sync run record: %v", finErr)
		}
		return err
	}

	return e.Store.FinishSyncRun(runID, store.SyncRunSuccess, nil)
}

func (e *Executor) run(ctx context.Context, plan *Plan) (Op, error) {
	for _, op := range plan.Ops {
		var err error
		switch op.Kind {
		case OpFetch:
			err = e.Git.Fetch(ctx, op.Remote)
		case OpUpdateSha:
			err = e.Store.SetSyncedSHA(op.Branch, op.SHA)
		case OpRestack:
			err = e.restack(ctx, op)
		}
		if err != nil {
			return op, err
		}
	}
	return Op{}, nil
}

// restack moves one branch onto its target: replay when the toolchain
// supports it, plain rebase otherwise or when replay fails. On success
// the branch's new head is persisted.
func (e *Executor) restack(ctx context.Context, op Op) error {
	target := op.OntoSHA
	if target == "" {
		resolved, err := e.Git.Resolve(op.OntoRef)
		if err != nil {
			return err
		}
		target = resolved
	}

	// The prior merge-base bounds the commits that belong to this branch.
	mergeBase, err := e.Git.MergeBase(op.Branch, target)
	if err != nil {
		return err
	}
	// When the merge-base already is the target the branch sits on it
	// and there are no commits to replay; only the head record needs
	// refreshing.
	if mergeBase != target {
		replayed := false
		if e.UseReplay && e.Git.ReplaySupported() {
			if err := e.Git.Replay(ctx, op.Branch, target, mergeBase); err == nil {
				replayed = true
			} else {
				e.Splog.Debug("replay failed for %s, falling back to rebase", op.Branch)
			}
		}
		if !replayed {
			if err := e.Git.Rebase(ctx, op.Branch, target, mergeBase); err != nil {
				return err
			}
		}
	}

	return e.recordHead(op.Branch)
}

func (e *Executor) recordHead(branch string) error {
	head, err := e.Git.Resolve(branch)
	if err != nil {
		return err
	}
	return e.Store.SetSyncedSHA(branch, head)
}
