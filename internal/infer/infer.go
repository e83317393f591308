// Package infer decides a branch's parent from ranked evidence sources
// and drives conflict resolution against the stored graph.
package infer

import (
	"context"
	"fmt"

	"stackd.dev/stackd/internal/forge"
	"stackd.dev/stackd/internal/git"
	"stackd.dev/stackd/internal/output"
	"stackd.dev/stackd/internal/store"
)

// Source identifies the evidence behind an inferred parent. The set is
// closed; switches over it must be exhaustive.
type Source int

const (
	// SourceExplicit is a parent the operator named directly
	SourceExplicit Source = iota
	// SourcePRBase is the base branch reported by the PR provider
	SourcePRBase
	// SourceGitAncestry is the nearest local ancestor by commit distance
	SourceGitAncestry
)

func (s Source) String() string {
	switch s {
	case SourceExplicit:
		return "explicit"
	case SourcePRBase:
		return "pr_base"
	case SourceGitAncestry:
		return "git_ancestry"
	}
	return fmt.Sprintf("Source(%d)", int(s))
}

// Confidence is a coarse strength label on an inferred relationship.
type Confidence int

const (
	// ConfidenceMedium backs heuristic evidence
	ConfidenceMedium Confidence = iota
	// ConfidenceHigh backs operator intent, provider data, or trunk
	ConfidenceHigh
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceMedium:
		return "medium"
	case ConfidenceHigh:
		return "high"
	}
	return fmt.Sprintf("Confidence(%d)", int(c))
}

// Proposal is one proposed parent relationship.
type Proposal struct {
	Branch     string
	Parent     string
	Source     Source
	Confidence Confidence
}

// Engine infers parents from the store, the toolchain and the provider.
// Forge may be nil, in which case the PR-base source is skipped.
type Engine struct {
	Store *store.Store
	Git   git.Runner
	Forge forge.Client
	Splog *output.Splog
	Trunk string
}

// InferParent decides a parent for branch. Evidence sources in priority
// order: an explicit operator choice, the provider-reported PR base, and
// git ancestry. Returns nil when no source yields a parent.
func (e *Engine) InferParent(ctx context.Context, branch, explicit string) (*Proposal, error) {
	if explicit != "" {
		return &Proposal{
			Branch:     branch,
			Parent:     explicit,
			Source:     SourceExplicit,
			Confidence: ConfidenceHigh,
		}, nil
	}

	if p := e.inferFromPRBase(ctx, branch); p != nil {
		return p, nil
	}

	return e.inferFromAncestry(branch)
}

// inferFromPRBase consults the provider. Failures downgrade to a warning
// and fall through to the next source.
func (e *Engine) inferFromPRBase(ctx context.Context, branch string) *Proposal {
	if e.Forge == nil {
		return nil
	}

	var cachedNumber *int64
	if b, err := e.Store.GetBranch(branch); err == nil {
		cachedNumber = b.PRNumber
	}

	pr, err := e.Forge.ResolvePRByHead(ctx, branch, cachedNumber)
	if err != nil {
		e.Splog.Warn("%v; falling back to git ancestry", err)
		return nil
	}
	if pr == nil || pr.Base == "" || pr.Base == branch || !e.Git.RefExists(pr.Base) {
		return nil
	}

	return &Proposal{
		Branch:     branch,
		Parent:     pr.Base,
		Source:     SourcePRBase,
		Confidence: ConfidenceHigh,
	}
}

// inferFromAncestry picks, among other local branches that are ancestors
// of branch, the one with the smallest commit distance. An exact tie
// yields no inference rather than an arbitrary pick.
func (e *Engine) inferFromAncestry(branch string) (*Proposal, error) {
	locals, err := e.Git.LocalBranches()
	if err != nil {
		return nil, err
	}

	best := ""
	bestDistance := -1
	tied := false
	for _, candidate := range locals {
		if candidate == branch {
			continue
		}
		isAncestor, err := e.Git.IsAncestor(candidate, branch)
		if err != nil || !isAncestor {
			continue
		}
		distance, err := e.Git.CommitDistance(candidate, branch)
		if err != nil {
			continue
		}
		switch {
		case bestDistance < 0 || distance < bestDistance:
			best = candidate
			bestDistance = distance
			tied = false
		case distance == bestDistance:
			tied = true
		}
	}

	if best == "" || tied {
		return nil, nil
	}
	return &Proposal{
		Branch:     branch,
		Parent:     best,
		Source:     SourceGitAncestry,
		Confidence: ConfidenceMedium,
	}, nil
}

// InferChain repeatedly infers a parent starting at branch until the
// cursor reaches trunk, revisits a branch, or no inference is possible.
// The explicit parent applies to the first hop only. A hop landing on
// trunk is upgraded to high confidence.
func (e *Engine) InferChain(ctx context.Context, branch, explicit string) ([]Proposal, error) {
	var proposals []Proposal
	visited := map[string]bool{branch: true}

	cursor := branch
	hopExplicit := explicit
	for cursor != e.Trunk {
		p, err := e.InferParent(ctx, cursor, hopExplicit)
		if err != nil {
			return proposals, err
		}
		hopExplicit = ""
		if p == nil {
			break
		}
		if p.Parent == e.Trunk {
			p.Confidence = ConfidenceHigh
		}
		// A hop landing on a visited branch would close a cycle; stop
		// without proposing it so the rest of the chain stays valid.
		if visited[p.Parent] {
			break
		}
		proposals = append(proposals, *p)
		visited[p.Parent] = true
		cursor = p.Parent
	}

	return proposals, nil
}
