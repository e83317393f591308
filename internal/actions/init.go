package actions

import (
	"stackd.dev/stackd/internal/config"
	"stackd.dev/stackd/internal/output"
	"stackd.dev/stackd/internal/runtime"
)

// InitOptions contains options for the init command
type InitOptions struct {
	Trunk  string
	Remote string
}

// InitAction records the base branch and writes the repo config. Safe to
// re-run; it updates the stored trunk in place.
func InitAction(ctx *runtime.Context, opts InitOptions) error {
	trunk := opts.Trunk
	if trunk == "" {
		current, err := ctx.Git.CurrentBranch()
		if err != nil {
			return err
		}
		trunk = current
	}

	if err := ctx.Store.SetTrunk(trunk); err != nil {
		return err
	}
	if _, err := ctx.Store.UpsertBranch(trunk); err != nil {
		return err
	}

	cfg := ctx.Config
	cfg.Trunk = trunk
	if opts.Remote != "" {
		cfg.Remote = opts.Remote
	}
	if err := config.Save(ctx.RepoRoot, cfg); err != nil {
		return err
	}

	ctx.Splog.Info("Initialized stackd with trunk %s.", output.ColorTrunkName(trunk))
	return nil
}
