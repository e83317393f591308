package actions

import (
	"encoding/json"

	"stackd.dev/stackd/internal/runtime"
	stacksync "stackd.dev/stackd/internal/sync"
)

// SyncOptions contains options for the sync command
type SyncOptions struct {
	DryRun bool
	JSON   bool
}

type syncResult struct {
	DryRun    bool     `json:"dry_run,omitempty"`
	Plan      []string `json:"plan"`
	Restacked []string `json:"restacked,omitempty"`
	Status    string   `json:"status,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// SyncAction plans and (unless dry-run) executes a stack sync.
func SyncAction(ctx *runtime.Context, opts SyncOptions) error {
	if opts.JSON {
		ctx.Splog.SetQuiet(true)
	}

	planner := &stacksync.Planner{
		Store:  ctx.Store,
		Git:    ctx.Git,
		Forge:  ctx.Forge,
		Splog:  ctx.Splog,
		Trunk:  ctx.Trunk,
		Remote: ctx.Config.Remote,
	}
	plan, err := planner.Plan(ctx.Context)
	if err != nil {
		return err
	}

	result := syncResult{Plan: plan.Describe()}
	for _, op := range plan.Restacks() {
		result.Restacked = append(result.Restacked, op.Branch)
	}

	if opts.DryRun {
		result.DryRun = true
		result.Status = "planned"
		if opts.JSON {
			return emitSync(ctx, result)
		}
		for _, line := range result.Plan {
			ctx.Splog.Info("%s", line)
		}
		return nil
	}

	executor := &stacksync.Executor{
		Store:     ctx.Store,
		Git:       ctx.Git,
		Splog:     ctx.Splog,
		UseReplay: ctx.Config.UseReplay,
	}
	if err := executor.Execute(ctx.Context, plan); err != nil {
		result.Status = "failed"
		result.Error = err.Error()
		if opts.JSON {
			_ = emitSync(ctx, result)
		}
		return err
	}

	result.Status = "success"
	if opts.JSON {
		return emitSync(ctx, result)
	}
	if len(result.Restacked) == 0 {
		ctx.Splog.Info("Everything is up to date.")
	} else {
		ctx.Splog.Info("Restacked %d branch(es).", len(result.Restacked))
	}
	return nil
}

func emitSync(ctx *runtime.Context, result syncResult) error {
	doc, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	ctx.Splog.Page(string(doc) + "\n")
	return nil
}
