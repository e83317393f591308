package git

import (
	"context"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
)

// Runner is the toolchain surface the core depends on. It allows the
// planner, executor, inference engine and doctor to run against fakes.
type Runner interface {
	// Read side
	RefExists(name string) bool
	CurrentBranch() (string, error)
	LocalBranches() ([]string, error)
	Resolve(ref string) (string, error)
	IsAncestor(ancestor, descendant string) (bool, error)
	CommitDistance(ancestor, descendant string) (int, error)
	MergeBase(a, b string) (string, error)
	IsDirty() (bool, error)
	ReplaySupported() bool
	RemoteURL(ctx context.Context, remote string) (string, error)

	// Write side
	Fetch(ctx context.Context, remote string) error
	Rebase(ctx context.Context, branch, onto, from string) error
	Replay(ctx context.Context, branch, onto, from string) error
	Push(ctx context.Context, branch, remote string, forceWithLease bool) error
	DeleteBranch(ctx context.Context, branch string) error
	StashPush(ctx context.Context, message string) error
	StashPop(ctx context.Context) error
}

// Git implements Runner against a real repository.
type Git struct {
	runner *CommandRunner
	repo   *gogit.Repository

	replayProbed    bool
	replaySupported bool
}

// Open opens the repository containing dir.
func Open(dir string) (*Git, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}
	return &Git{
		runner: NewCommandRunner(dir),
		repo:   repo,
	}, nil
}

// RepoRoot returns the absolute path of the repository's working tree.
func (g *Git) RepoRoot(ctx context.Context) (string, error) {
	return g.runner.Run(ctx, "rev-parse", "--show-toplevel")
}
