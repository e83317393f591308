package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// IsAncestor reports whether ancestor is reachable from descendant.
func (g *Git) IsAncestor(ancestor, descendant string) (bool, error) {
	_, err := g.runner.Run(context.Background(), "merge-base", "--is-ancestor", ancestor, descendant)
	if err == nil {
		return true, nil
	}
	if exitCode(err) == 1 {
		return false, nil
	}
	return false, err
}

// CommitDistance counts the commits on descendant that are not reachable
// from ancestor.
func (g *Git) CommitDistance(ancestor, descendant string) (int, error) {
	out, err := g.runner.Run(context.Background(), "rev-list", "--count", ancestor+".."+descendant)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(out)
	if err != nil {
		return 0, fmt.Errorf("parsing commit count %q: %w", out, err)
	}
	return n, nil
}

// MergeBase returns the best common ancestor of two refs.
func (g *Git) MergeBase(a, b string) (string, error) {
	return g.runner.Run(context.Background(), "merge-base", a, b)
}

// Fetch fetches a named remote.
func (g *Git) Fetch(ctx context.Context, remote string) error {
	_, err := g.runner.Run(ctx, "fetch", remote)
	return err
}

// Push pushes a branch to a remote, optionally with --force-with-lease.
func (g *Git) Push(ctx context.Context, branch, remote string, forceWithLease bool) error {
	args := []string{"push"}
	if forceWithLease {
		args = append(args, "--force-with-lease")
	}
	args = append(args, remote, branch)
	_, err := g.runner.Run(ctx, args...)
	return err
}

// DeleteBranch force-deletes a local branch ref.
func (g *Git) DeleteBranch(ctx context.Context, branch string) error {
	_, err := g.runner.Run(ctx, "branch", "-D", branch)
	return err
}

// RemoteURL returns the fetch URL of a named remote.
func (g *Git) RemoteURL(ctx context.Context, remote string) (string, error) {
	return g.runner.Run(ctx, "remote", "get-url", remote)
}

// IsDirty reports whether the working tree has uncommitted changes,
// staged or not.
func (g *Git) IsDirty() (bool, error) {
	out, err := g.runner.Run(context.Background(), "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// StashPush saves the working tree under a labeled stash entry.
func (g *Git) StashPush(ctx context.Context, message string) error {
	_, err := g.runner.Run(ctx, "stash", "push", "--include-untracked", "-m", message)
	return err
}

// StashPop restores the most recent stash entry.
func (g *Git) StashPop(ctx context.Context) error {
	_, err := g.runner.Run(ctx, "stash", "pop")
	return err
}
