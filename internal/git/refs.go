package git

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
)

// RefExists reports whether a local branch ref exists.
func (g *Git) RefExists(name string) bool {
	_, err := g.repo.Reference(plumbing.NewBranchReferenceName(name), true)
	return err == nil
}

// CurrentBranch returns the short name of the checked-out branch, or ""
// when HEAD is detached.
func (g *Git) CurrentBranch() (string, error) {
	head, err := g.repo.Head()
	if err != nil {
		return "", fmt.Errorf("reading HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", nil
	}
	return head.Name().Short(), nil
}

// LocalBranches enumerates all local branch names.
func (g *Git) LocalBranches() ([]string, error) {
	iter, err := g.repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("listing branches: %w", err)
	}
	defer iter.Close()

	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterating branches: %w", err)
	}
	return names, nil
}

// Resolve resolves any ref expression (branch, remote ref, sha) to a
// commit id. Arbitrary revisions go through rev-parse rather than go-git
// so remote-tracking refs and suffix syntax behave exactly like the
// toolchain.
func (g *Git) Resolve(ref string) (string, error) {
	return g.runner.Run(context.Background(), "rev-parse", "--verify", ref+"^{commit}")
}
