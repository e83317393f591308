package sync_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"stackd.dev/stackd/internal/git/gittest"
	"stackd.dev/stackd/internal/output"
	"stackd.dev/stackd/internal/store"
	"stackd.dev/stackd/internal/sync"
)

func newExecutor(st *store.Store, g *gittest.FakeRunner, useReplay bool) *sync.Executor {
	return &sync.Executor{
		Store:     st,
		Git:       g,
		Splog:     output.NewSplog(),
		UseReplay: useReplay,
	}
}

func restackPlan(branch, ontoRef string) *sync.Plan {
	return &sync.Plan{Ops: []sync.Op{
		{Kind: sync.OpFetch, Remote: "origin"},
		{Kind: sync.OpRestack, Branch: branch, OntoRef: ontoRef},
	}}
}

func TestExecutorExecute(t *testing.T) {
	t.Run("runs the plan and finalizes a success record", func(t *testing.T) {
		st, g := seedForest(t)
		g.Refs["main"] = "sha-main-moved"

		err := newExecutor(st, g, false).Execute(context.Background(), restackPlan("a", "main"))
		require.NoError(t, err)

		require.Equal(t, []string{
			"fetch origin",
			"rebase a onto sha-main-moved from base",
		}, g.Calls)

		// The restacked head is persisted.
		b, err := st.GetBranch("a")
		require.NoError(t, err)
		require.Equal(t, "rebased-a", *b.SyncedSHA)

		run, err := st.LatestSyncRun()
		require.NoError(t, err)
		require.Equal(t, store.SyncRunSuccess, run.Status)
		require.NotNil(t, run.FinishedAt)
	})

	t.Run("update-sha ops persist heads", func(t *testing.T) {
		st, g := seedForest(t)

		plan := &sync.Plan{Ops: []sync.Op{
			{Kind: sync.OpUpdateSha, Branch: "a", SHA: "sha-a-new"},
		}}
		require.NoError(t, newExecutor(st, g, false).Execute(context.Background(), plan))

		b, err := st.GetBranch("a")
		require.NoError(t, err)
		require.Equal(t, "sha-a-new", *b.SyncedSHA)
	})

	t.Run("skips the rebase when already based on the target", func(t *testing.T) {
		st, g := seedForest(t)
		g.Bases["a->sha-main"] = "sha-main"

		err := newExecutor(st, g, false).Execute(context.Background(), restackPlan("a", "main"))
		require.NoError(t, err)
		require.Equal(t, []string{"fetch origin"}, g.Calls)
	})

	t.Run("dirty tree is stashed and restored", func(t *testing.T) {
		st, g := seedForest(t)
		g.Dirty = true

		plan := &sync.Plan{Ops: []sync.Op{{Kind: sync.OpFetch, Remote: "origin"}}}
		require.NoError(t, newExecutor(st, g, false).Execute(context.Background(), plan))

		require.Equal(t, []string{
			`stash push "stackd: auto-stash before sync"`,
			"fetch origin",
			"stash pop",
		}, g.Calls)
	})

	t.Run("clean tree is never stashed", func(t *testing.T) {
		st, g := seedForest(t)

		plan := &sync.Plan{Ops: []sync.Op{{Kind: sync.OpFetch, Remote: "origin"}}}
		require.NoError(t, newExecutor(st, g, false).Execute(context.Background(), plan))
		require.Equal(t, []string{"fetch origin"}, g.Calls)
	})

	t.Run("stash restore failure is not escalated", func(t *testing.T) {
		st, g := seedForest(t)
		g.Dirty = true
		g.PopErr = errors.New("stash pop conflicts")

		plan := &sync.Plan{Ops: []sync.Op{{Kind: sync.OpFetch, Remote: "origin"}}}
		require.NoError(t, newExecutor(st, g, false).Execute(context.Background(), plan))

		run, err := st.LatestSyncRun()
		require.NoError(t, err)
		require.Equal(t, store.SyncRunSuccess, run.Status)
	})

	t.Run("failure aborts remaining ops and records a failed run", func(t *testing.T) {
		st, g := seedForest(t)
		g.Dirty = true
		g.FailRebase["a"] = true

		plan := &sync.Plan{Ops: []sync.Op{
			{Kind: sync.OpRestack, Branch: "a", OntoRef: "main"},
			{Kind: sync.OpRestack, Branch: "b", OntoRef: "a"},
		}}
		err := newExecutor(st, g, false).Execute(context.Background(), plan)
		require.Error(t, err)

		// The second restack never ran; the stash was still restored.
		require.Equal(t, []string{
			`stash push "stackd: auto-stash before sync"`,
			"rebase a onto sha-main from base",
			"stash pop",
		}, g.Calls)

		run, runErr := st.LatestSyncRun()
		require.NoError(t, runErr)
		require.Equal(t, store.SyncRunFailed, run.Status)
		require.NotNil(t, run.ErrorJSON)
		require.Contains(t, *run.ErrorJSON, `"op":"restack"`)
		require.Contains(t, *run.ErrorJSON, `"branch":"a"`)
	})

	t.Run("replay is preferred when supported", func(t *testing.T) {
		st, g := seedForest(t)
		g.SupportsReplay = true
		g.Refs["main"] = "sha-main-moved"

		err := newExecutor(st, g, true).Execute(context.Background(), restackPlan("a", "main"))
		require.NoError(t, err)
		require.Contains(t, g.Calls, "replay a onto sha-main-moved from base")
		for _, call := range g.Calls {
			require.NotContains(t, call, "rebase")
		}

		b, err := st.GetBranch("a")
		require.NoError(t, err)
		require.Equal(t, "replayed-a", *b.SyncedSHA)
	})

	t.Run("replay disabled by config uses rebase", func(t *testing.T) {
		st, g := seedForest(t)
		g.SupportsReplay = true
		g.Refs["main"] = "sha-main-moved"

		err := newExecutor(st, g, false).Execute(context.Background(), restackPlan("a", "main"))
		require.NoError(t, err)
		require.Contains(t, g.Calls, "rebase a onto sha-main-moved from base")
	})

	t.Run("replay failure falls back to rebase", func(t *testing.T) {
		st, g := seedForest(t)
		g.SupportsReplay = true
		g.FailReplay["a"] = true
		g.Refs["main"] = "sha-main-moved"

		err := newExecutor(st, g, true).Execute(context.Background(), restackPlan("a", "main"))
		require.NoError(t, err)
		require.Equal(t, []string{
			"fetch origin",
			"replay a onto sha-main-moved from base",
			"rebase a onto sha-main-moved from base",
		}, g.Calls)

		b, err := st.GetBranch("a")
		require.NoError(t, err)
		require.Equal(t, "rebased-a", *b.SyncedSHA)
	})

	t.Run("restack resolves an explicit target commit", func(t *testing.T) {
		st, g := seedForest(t)

		plan := &sync.Plan{Ops: []sync.Op{
			{Kind: sync.OpRestack, Branch: "b", OntoSHA: "sha-merge"},
		}}
		require.NoError(t, newExecutor(st, g, false).Execute(context.Background(), plan))
		require.Equal(t, []string{"rebase b onto sha-merge from base"}, g.Calls)
	})
}
