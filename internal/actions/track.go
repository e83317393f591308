// Package actions implements the command bodies behind the stackd CLI.
package actions

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	stackderrors "stackd.dev/stackd/internal/errors"
	"stackd.dev/stackd/internal/graph"
	"stackd.dev/stackd/internal/infer"
	"stackd.dev/stackd/internal/output"
	"stackd.dev/stackd/internal/runtime"
)

// TrackOptions contains options for the track command
type TrackOptions struct {
	Branch    string
	All       bool
	Parent    string
	InferOnly bool
	Force     bool
	DryRun    bool
	JSON      bool
}

type trackedChange struct {
	Branch     string `json:"branch"`
	Parent     string `json:"parent"`
	Source     string `json:"source"`
	Confidence string `json:"confidence"`
}

type trackResult struct {
	Tracked    []trackedChange `json:"tracked"`
	Skipped    []string        `json:"skipped,omitempty"`
	Unresolved []string        `json:"unresolved,omitempty"`
	DryRun     bool            `json:"dry_run,omitempty"`
	Cancelled  bool            `json:"cancelled,omitempty"`
}

// TrackAction infers and records parent relationships for one branch,
// or for every local branch with --all.
func TrackAction(ctx *runtime.Context, opts TrackOptions) error {
	if opts.JSON {
		ctx.Splog.SetQuiet(true)
	}

	targets, err := trackTargets(ctx, opts)
	if err != nil {
		return err
	}
	if opts.Parent != "" && !ctx.Git.RefExists(opts.Parent) {
		return fmt.Errorf("%w: parent branch %s does not exist", stackderrors.ErrNotFound, opts.Parent)
	}

	engine := &infer.Engine{
		Store: ctx.Store,
		Git:   ctx.Git,
		Forge: ctx.Forge,
		Splog: ctx.Splog,
		Trunk: ctx.Trunk,
	}

	primary := ""
	if !opts.All && len(targets) == 1 {
		primary = targets[0]
	}

	// One chain per target; chains may overlap, first proposal per
	// branch wins.
	var proposals []infer.Proposal
	proposed := make(map[string]bool)
	var unresolved []string
	for _, target := range targets {
		explicit := ""
		if target == primary {
			explicit = opts.Parent
		}
		chain, err := engine.InferChain(ctx.Context, target, explicit)
		if err != nil {
			return err
		}
		found := false
		for _, p := range chain {
			if p.Branch == target {
				found = true
			}
			if !proposed[p.Branch] {
				proposed[p.Branch] = true
				proposals = append(proposals, p)
			}
		}
		if !found && target != ctx.Trunk {
			unresolved = append(unresolved, target)
		}
	}
	sort.Strings(unresolved)

	// Branches no evidence source could place fall back to a manual pick.
	interactive := !opts.Force && !opts.InferOnly && !opts.DryRun && !opts.JSON
	if interactive && len(unresolved) > 0 {
		candidates, err := parentCandidates(ctx)
		if err != nil {
			return err
		}
		var remaining []string
		for _, name := range unresolved {
			options := make([]string, 0, len(candidates))
			for _, c := range candidates {
				if c != name {
					options = append(options, c)
				}
			}
			parent, err := infer.PromptParent(name, options)
			if err != nil {
				if errors.Is(err, stackderrors.ErrUserCancelled) {
					ctx.Splog.Info("Aborted. No changes were applied.")
					return reportTrack(ctx, opts, trackResult{Cancelled: true})
				}
				return err
			}
			if parent == "" {
				remaining = append(remaining, name)
				continue
			}
			proposals = append(proposals, infer.Proposal{
				Branch:     name,
				Parent:     parent,
				Source:     infer.SourceExplicit,
				Confidence: infer.ConfidenceHigh,
			})
		}
		unresolved = remaining
	}

	result := trackResult{Unresolved: unresolved}
	for _, p := range proposals {
		result.Tracked = append(result.Tracked, trackedChange{
			Branch:     p.Branch,
			Parent:     p.Parent,
			Source:     p.Source.String(),
			Confidence: p.Confidence.String(),
		})
	}

	if opts.InferOnly || opts.DryRun {
		result.DryRun = true
		return reportTrack(ctx, opts, result)
	}

	var resolver infer.Resolver = infer.PromptResolver{}
	if opts.Force {
		resolver = infer.ForceResolver{}
	}

	updates, skipped, err := infer.ResolveProposals(ctx.Store, resolver, proposals)
	if err != nil {
		if errors.Is(err, stackderrors.ErrUserCancelled) {
			// Non-error early exit: the whole batch is discarded.
			result = trackResult{Cancelled: true}
			ctx.Splog.Info("Aborted. No changes were applied.")
			return reportTrack(ctx, opts, result)
		}
		return err
	}
	result.Skipped = skipped

	// Drop skipped branches from the report before committing.
	if len(skipped) > 0 {
		kept := result.Tracked[:0]
		skippedSet := make(map[string]bool, len(skipped))
		for _, name := range skipped {
			skippedSet[name] = true
		}
		for _, t := range result.Tracked {
			if !skippedSet[t.Branch] {
				kept = append(kept, t)
			}
		}
		result.Tracked = kept
	}

	if err := ctx.Store.SetParentsBatch(updates); err != nil {
		return err
	}

	for _, t := range result.Tracked {
		ctx.Splog.Info("Tracked %s with parent %s (%s, %s confidence).",
			output.ColorBranchName(t.Branch, false),
			output.ColorBranchName(t.Parent, false),
			t.Source, t.Confidence)
	}
	return reportTrack(ctx, opts, result)
}

// parentCandidates ranks parent options for the manual pick: the
// checked-out branch first, then tracked branches, then other locals.
func parentCandidates(ctx *runtime.Context) ([]string, error) {
	current, err := ctx.Git.CurrentBranch()
	if err != nil {
		return nil, err
	}
	branches, err := ctx.Store.ListBranches()
	if err != nil {
		return nil, err
	}
	tracked := make([]string, 0, len(branches))
	for _, b := range branches {
		tracked = append(tracked, b.Name)
	}
	locals, err := ctx.Git.LocalBranches()
	if err != nil {
		return nil, err
	}
	return graph.RankParentCandidates(current, tracked, locals), nil
}

func trackTargets(ctx *runtime.Context, opts TrackOptions) ([]string, error) {
	if opts.All {
		locals, err := ctx.Git.LocalBranches()
		if err != nil {
			return nil, err
		}
		sort.Strings(locals)
		var targets []string
		for _, name := range locals {
			if name != ctx.Trunk {
				targets = append(targets, name)
			}
		}
		return targets, nil
	}

	branch := opts.Branch
	if branch == "" {
		current, err := ctx.Git.CurrentBranch()
		if err != nil {
			return nil, err
		}
		if current == "" {
			return nil, fmt.Errorf("not on a branch; name one explicitly")
		}
		branch = current
	}
	if !ctx.Git.RefExists(branch) {
		return nil, fmt.Errorf("%w: branch %s does not exist", stackderrors.ErrNotFound, branch)
	}
	return []string{branch}, nil
}

func reportTrack(ctx *runtime.Context, opts TrackOptions, result trackResult) error {
	if opts.JSON {
		doc, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		ctx.Splog.Page(string(doc) + "\n")
		return nil
	}

	if result.DryRun {
		for _, t := range result.Tracked {
			ctx.Splog.Info("Would track %s with parent %s (%s, %s confidence).",
				output.ColorBranchName(t.Branch, false),
				output.ColorBranchName(t.Parent, false),
				t.Source, t.Confidence)
		}
	}
	for _, name := range result.Skipped {
		ctx.Splog.Info("Skipped %s.", output.ColorBranchName(name, false))
	}
	for _, name := range result.Unresolved {
		ctx.Splog.Warn("no parent could be inferred for %s", name)
	}
	return nil
}
