package git

import (
	"context"
	"fmt"
	"strings"

	stackderrors "stackd.dev/stackd/internal/errors"
)

// Rebase moves branch onto the commit named by onto, replaying only the
// commits since from (the old parent revision or merge-base):
// git rebase --onto <onto> <from> <branch>.
// A failed rebase is aborted and reported as a short normalized error,
// never raw tool output.
func (g *Git) Rebase(ctx context.Context, branch, onto, from string) error {
	_, err := g.runner.Run(ctx, "rebase", "--onto", onto, from, branch)
	if err == nil {
		return nil
	}

	reason := normalizeRebaseFailure(stderrOf(err))
	if g.isRebaseInProgress(ctx) {
		_, _ = g.runner.Run(ctx, "rebase", "--abort")
	}
	return fmt.Errorf("%w: rebase of %s onto %s failed: %s", stackderrors.ErrExternalTool, branch, onto, reason)
}

// Replay rewrites branch onto the commit named by onto without touching
// the working tree, using git replay (git >= 2.44). The produced ref
// updates are applied through update-ref --stdin.
func (g *Git) Replay(ctx context.Context, branch, onto, from string) error {
	updates, err := g.runner.Run(ctx, "replay", "--onto", onto, from+".."+branch)
	if err != nil {
		return fmt.Errorf("%w: replay of %s onto %s failed: %s",
			stackderrors.ErrExternalTool, branch, onto, normalizeRebaseFailure(stderrOf(err)))
	}
	if updates == "" {
		return nil
	}
	if _, err := g.runner.RunWithInput(ctx, updates+"\n", "update-ref", "--stdin"); err != nil {
		return fmt.Errorf("%w: applying replayed refs for %s: %s",
			stackderrors.ErrExternalTool, branch, normalizeRebaseFailure(stderrOf(err)))
	}
	return nil
}

// ReplaySupported probes once whether the toolchain ships git replay.
func (g *Git) ReplaySupported() bool {
	if g.replayProbed {
		return g.replaySupported
	}
	g.replayProbed = true

	_, err := g.runner.Run(context.Background(), "replay", "-h")
	if err != nil && strings.Contains(stderrOf(err), "is not a git command") {
		g.replaySupported = false
		return false
	}
	// Usage output exits non-zero on every git version; only the unknown
	// subcommand message means the capability is missing.
	g.replaySupported = true
	return true
}

func (g *Git) isRebaseInProgress(ctx context.Context) bool {
	out, err := g.runner.Run(ctx, "rev-parse", "--verify", "--quiet", "REBASE_HEAD")
	return err == nil && out != ""
}

// normalizeRebaseFailure reduces raw git output to a short human reason.
func normalizeRebaseFailure(stderr string) string {
	switch {
	case strings.Contains(stderr, "CONFLICT"), strings.Contains(stderr, "could not apply"):
		return "merge conflict"
	case strings.Contains(stderr, "unstaged changes"), strings.Contains(stderr, "uncommitted changes"):
		return "working tree has uncommitted changes"
	case strings.Contains(stderr, "unknown revision"), strings.Contains(stderr, "bad revision"):
		return "revision not found"
	case stderr == "":
		return "git exited with an error"
	default:
		line := strings.SplitN(strings.TrimSpace(stderr), "\n", 2)[0]
		return strings.TrimPrefix(line, "fatal: ")
	}
}
