// Package gittest provides a configurable in-memory Runner for tests.
package gittest

import (
	"context"
	"fmt"

	"stackd.dev/stackd/internal/git"
)

// FakeRunner implements git.Runner against fixture maps. Keys for pair
// lookups are "a->b".
type FakeRunner struct {
	Branches []string
	Current  string
	Refs     map[string]string // ref -> commit id; also drives RefExists
	Ancestry map[string]bool   // "ancestor->descendant"
	Distance map[string]int    // "ancestor->descendant"
	Bases    map[string]string // "a->b" merge-base; falls back to "base"
	Remotes  map[string]string // remote name -> URL
	Dirty    bool

	SupportsReplay bool

	FailRebase map[string]bool // branch -> rebase fails
	FailReplay map[string]bool // branch -> replay fails
	PopErr     error           // StashPop failure

	Calls []string // ordered record of write-side operations
}

var _ git.Runner = (*FakeRunner)(nil)

// NewFakeRunner returns an empty fake with initialized maps.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		Refs:       map[string]string{},
		Ancestry:   map[string]bool{},
		Distance:   map[string]int{},
		Bases:      map[string]string{},
		Remotes:    map[string]string{},
		FailRebase: map[string]bool{},
		FailReplay: map[string]bool{},
	}
}

func key(a, b string) string { return a + "->" + b }

func (f *FakeRunner) record(format string, args ...interface{}) {
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
}

func (f *FakeRunner) RefExists(name string) bool {
	_, ok := f.Refs[name]
	return ok
}

func (f *FakeRunner) CurrentBranch() (string, error) { return f.Current, nil }

func (f *FakeRunner) LocalBranches() ([]string, error) { return f.Branches, nil }

func (f *FakeRunner) Resolve(ref string) (string, error) {
	if sha, ok := f.Refs[ref]; ok {
		return sha, nil
	}
	return "", fmt.Errorf("unknown ref %s", ref)
}

func (f *FakeRunner) IsAncestor(ancestor, descendant string) (bool, error) {
	return f.Ancestry[key(ancestor, descendant)], nil
}

func (f *FakeRunner) CommitDistance(ancestor, descendant string) (int, error) {
	return f.Distance[key(ancestor, descendant)], nil
}

func (f *FakeRunner) MergeBase(a, b string) (string, error) {
	if base, ok := f.Bases[key(a, b)]; ok {
		return base, nil
	}
	if base, ok := f.Bases[key(b, a)]; ok {
		return base, nil
	}
	return "base", nil
}

func (f *FakeRunner) IsDirty() (bool, error) { return f.Dirty, nil }

func (f *FakeRunner) ReplaySupported() bool { return f.SupportsReplay }

func (f *FakeRunner) RemoteURL(_ context.Context, remote string) (string, error) {
	if url, ok := f.Remotes[remote]; ok {
		return url, nil
	}
	return "", fmt.Errorf("no such remote %s", remote)
}

func (f *FakeRunner) Fetch(_ context.Context, remote string) error {
	f.record("fetch %s", remote)
	return nil
}

func (f *FakeRunner) Rebase(_ context.Context, branch, onto, from string) error {
	f.record("rebase %s onto %s from %s", branch, onto, from)
	if f.FailRebase[branch] {
		return fmt.Errorf("rebase of %s onto %s failed: merge conflict", branch, onto)
	}
	f.Refs[branch] = "rebased-" + branch
	return nil
}

func (f *FakeRunner) Replay(_ context.Context, branch, onto, from string) error {
	f.record("replay %s onto %s from %s", branch, onto, from)
	if f.FailReplay[branch] {
		return fmt.Errorf("replay of %s onto %s failed", branch, onto)
	}
	f.Refs[branch] = "replayed-" + branch
	return nil
}

func (f *FakeRunner) Push(_ context.Context, branch, remote string, forceWithLease bool) error {
	f.record("push %s %s lease=%v", branch, remote, forceWithLease)
	return nil
}

func (f *FakeRunner) DeleteBranch(_ context.Context, branch string) error {
	f.record("delete %s", branch)
	delete(f.Refs, branch)
	return nil
}

func (f *FakeRunner) StashPush(_ context.Context, message string) error {
	f.record("stash push %q", message)
	f.Dirty = false
	return nil
}

func (f *FakeRunner) StashPop(_ context.Context) error {
	f.record("stash pop")
	if f.PopErr != nil {
		return f.PopErr
	}
	f.Dirty = true
	return nil
}
