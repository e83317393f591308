package actions_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"stackd.dev/stackd/internal/actions"
	stackderrors "stackd.dev/stackd/internal/errors"
	"stackd.dev/stackd/internal/git/gittest"
	"stackd.dev/stackd/internal/output"
	"stackd.dev/stackd/internal/runtime"
	"stackd.dev/stackd/internal/store"
)

// newTrackContext builds a command context over a real store and the
// fake toolchain, with main as the initialized trunk.
func newTrackContext(t *testing.T) (*runtime.Context, *gittest.FakeRunner, *store.Store) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "stackd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.SetTrunk("main"))
	_, err = st.UpsertBranch("main")
	require.NoError(t, err)

	g := gittest.NewFakeRunner()
	g.Branches = []string{"main"}
	g.Refs["main"] = "sha-main"
	g.Current = "main"

	ctx := &runtime.Context{
		Context: context.Background(),
		Store:   st,
		Git:     g,
		Splog:   output.NewSplog(),
		Trunk:   "main",
	}
	return ctx, g, st
}

func addLocalBranch(g *gittest.FakeRunner, name string) {
	g.Branches = append(g.Branches, name)
	g.Refs[name] = "sha-" + name
}

func storedParentOf(t *testing.T, st *store.Store, name string) string {
	t.Helper()

	b, err := st.GetBranch(name)
	require.NoError(t, err)
	if b.ParentID == nil {
		return ""
	}
	branches, err := st.ListBranches()
	require.NoError(t, err)
	for _, other := range branches {
		if other.ID == *b.ParentID {
			return other.Name
		}
	}
	t.Fatalf("parent id %d of %s has no record", *b.ParentID, name)
	return ""
}

func TestTrackAction(t *testing.T) {
	t.Run("tracks a named branch up to trunk", func(t *testing.T) {
		ctx, g, st := newTrackContext(t)
		addLocalBranch(g, "a")
		g.Ancestry["main->a"] = true
		g.Distance["main->a"] = 2

		err := actions.TrackAction(ctx, actions.TrackOptions{Branch: "a", Force: true})
		require.NoError(t, err)
		require.Equal(t, "main", storedParentOf(t, st, "a"))
	})

	t.Run("explicit parent applies to the named branch only", func(t *testing.T) {
		ctx, g, st := newTrackContext(t)
		addLocalBranch(g, "mid")
		addLocalBranch(g, "b")
		g.Ancestry["main->mid"] = true
		g.Distance["main->mid"] = 1

		err := actions.TrackAction(ctx, actions.TrackOptions{Branch: "b", Parent: "mid", Force: true})
		require.NoError(t, err)
		require.Equal(t, "mid", storedParentOf(t, st, "b"))
		require.Equal(t, "main", storedParentOf(t, st, "mid"))
	})

	t.Run("all dedups overlapping chains", func(t *testing.T) {
		// a's chain is a subset of b's; the shared hop must be proposed
		// and committed exactly once.
		ctx, g, st := newTrackContext(t)
		addLocalBranch(g, "a")
		addLocalBranch(g, "b")
		g.Ancestry["main->a"] = true
		g.Ancestry["main->b"] = true
		g.Ancestry["a->b"] = true
		g.Distance["main->a"] = 1
		g.Distance["main->b"] = 3
		g.Distance["a->b"] = 2

		err := actions.TrackAction(ctx, actions.TrackOptions{All: true, Force: true})
		require.NoError(t, err)

		require.Equal(t, "main", storedParentOf(t, st, "a"))
		require.Equal(t, "a", storedParentOf(t, st, "b"))
		require.Equal(t, "", storedParentOf(t, st, "main"))

		branches, err := st.ListBranches()
		require.NoError(t, err)
		require.Len(t, branches, 3)
	})

	t.Run("unresolved branches stay untracked", func(t *testing.T) {
		ctx, g, st := newTrackContext(t)
		addLocalBranch(g, "a")
		addLocalBranch(g, "orphan")
		g.Ancestry["main->a"] = true
		g.Distance["main->a"] = 1

		err := actions.TrackAction(ctx, actions.TrackOptions{All: true, Force: true})
		require.NoError(t, err)

		require.Equal(t, "main", storedParentOf(t, st, "a"))
		_, err = st.GetBranch("orphan")
		require.ErrorIs(t, err, stackderrors.ErrNotFound)
	})

	t.Run("infer-only changes nothing", func(t *testing.T) {
		ctx, g, st := newTrackContext(t)
		addLocalBranch(g, "a")
		g.Ancestry["main->a"] = true
		g.Distance["main->a"] = 1

		err := actions.TrackAction(ctx, actions.TrackOptions{Branch: "a", InferOnly: true})
		require.NoError(t, err)
		_, err = st.GetBranch("a")
		require.ErrorIs(t, err, stackderrors.ErrNotFound)
	})

	t.Run("unknown branch errors", func(t *testing.T) {
		ctx, _, _ := newTrackContext(t)

		err := actions.TrackAction(ctx, actions.TrackOptions{Branch: "ghost"})
		require.ErrorIs(t, err, stackderrors.ErrNotFound)
	})

	t.Run("missing explicit parent errors", func(t *testing.T) {
		ctx, g, _ := newTrackContext(t)
		addLocalBranch(g, "a")

		err := actions.TrackAction(ctx, actions.TrackOptions{Branch: "a", Parent: "gone"})
		require.ErrorIs(t, err, stackderrors.ErrNotFound)
	})
}
