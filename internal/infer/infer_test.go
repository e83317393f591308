package infer_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	stackderrors "stackd.dev/stackd/internal/errors"
	"stackd.dev/stackd/internal/forge"
	"stackd.dev/stackd/internal/git/gittest"
	"stackd.dev/stackd/internal/infer"
	"stackd.dev/stackd/internal/output"
	"stackd.dev/stackd/internal/store"
)

type fakeForge struct {
	prs map[string]*forge.PR
	err error
}

func (f *fakeForge) ResolvePRByHead(_ context.Context, branch string, _ *int64) (*forge.PR, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.prs[branch], nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "stackd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newEngine(t *testing.T, g *gittest.FakeRunner, f forge.Client) *infer.Engine {
	t.Helper()

	return &infer.Engine{
		Store: newTestStore(t),
		Git:   g,
		Forge: f,
		Splog: output.NewSplog(),
		Trunk: "main",
	}
}

func TestInferParent(t *testing.T) {
	t.Run("explicit parent wins outright", func(t *testing.T) {
		g := gittest.NewFakeRunner()
		e := newEngine(t, g, &fakeForge{prs: map[string]*forge.PR{
			"feature": {Number: 7, Base: "other", State: forge.PRStateOpen},
		}})

		p, err := e.InferParent(context.Background(), "feature", "chosen")
		require.NoError(t, err)
		require.NotNil(t, p)
		require.Equal(t, "chosen", p.Parent)
		require.Equal(t, infer.SourceExplicit, p.Source)
		require.Equal(t, infer.ConfidenceHigh, p.Confidence)
	})

	t.Run("pr base when the provider knows the branch", func(t *testing.T) {
		g := gittest.NewFakeRunner()
		g.Refs["develop"] = "sha-develop"
		e := newEngine(t, g, &fakeForge{prs: map[string]*forge.PR{
			"feature": {Number: 7, Base: "develop", State: forge.PRStateOpen},
		}})

		p, err := e.InferParent(context.Background(), "feature", "")
		require.NoError(t, err)
		require.NotNil(t, p)
		require.Equal(t, "develop", p.Parent)
		require.Equal(t, infer.SourcePRBase, p.Source)
		require.Equal(t, infer.ConfidenceHigh, p.Confidence)
	})

	t.Run("pr base must exist locally", func(t *testing.T) {
		g := gittest.NewFakeRunner()
		e := newEngine(t, g, &fakeForge{prs: map[string]*forge.PR{
			"feature": {Number: 7, Base: "gone", State: forge.PRStateOpen},
		}})

		p, err := e.InferParent(context.Background(), "feature", "")
		require.NoError(t, err)
		require.Nil(t, p)
	})

	t.Run("pr base equal to the branch is ignored", func(t *testing.T) {
		g := gittest.NewFakeRunner()
		g.Refs["feature"] = "sha-feature"
		e := newEngine(t, g, &fakeForge{prs: map[string]*forge.PR{
			"feature": {Number: 7, Base: "feature", State: forge.PRStateOpen},
		}})

		p, err := e.InferParent(context.Background(), "feature", "")
		require.NoError(t, err)
		require.Nil(t, p)
	})

	t.Run("provider failure falls back to ancestry", func(t *testing.T) {
		g := gittest.NewFakeRunner()
		g.Branches = []string{"main", "feature"}
		g.Ancestry["main->feature"] = true
		g.Distance["main->feature"] = 2
		e := newEngine(t, g, &fakeForge{err: stackderrors.NewProviderError("feature", errors.New("rate limited"))})

		p, err := e.InferParent(context.Background(), "feature", "")
		require.NoError(t, err)
		require.NotNil(t, p)
		require.Equal(t, "main", p.Parent)
		require.Equal(t, infer.SourceGitAncestry, p.Source)
		require.Equal(t, infer.ConfidenceMedium, p.Confidence)
	})

	t.Run("nearest ancestor by commit distance", func(t *testing.T) {
		g := gittest.NewFakeRunner()
		g.Branches = []string{"main", "mid", "feature"}
		g.Ancestry["main->feature"] = true
		g.Ancestry["mid->feature"] = true
		g.Distance["main->feature"] = 5
		g.Distance["mid->feature"] = 1
		e := newEngine(t, g, nil)

		p, err := e.InferParent(context.Background(), "feature", "")
		require.NoError(t, err)
		require.NotNil(t, p)
		require.Equal(t, "mid", p.Parent)
	})

	t.Run("a distance tie yields no inference", func(t *testing.T) {
		g := gittest.NewFakeRunner()
		g.Branches = []string{"left", "right", "feature"}
		g.Ancestry["left->feature"] = true
		g.Ancestry["right->feature"] = true
		g.Distance["left->feature"] = 3
		g.Distance["right->feature"] = 3
		e := newEngine(t, g, nil)

		p, err := e.InferParent(context.Background(), "feature", "")
		require.NoError(t, err)
		require.Nil(t, p)
	})

	t.Run("no ancestor means no inference", func(t *testing.T) {
		g := gittest.NewFakeRunner()
		g.Branches = []string{"main", "feature"}
		e := newEngine(t, g, nil)

		p, err := e.InferParent(context.Background(), "feature", "")
		require.NoError(t, err)
		require.Nil(t, p)
	})
}

func TestInferChain(t *testing.T) {
	t.Run("walks up to trunk", func(t *testing.T) {
		g := gittest.NewFakeRunner()
		g.Branches = []string{"main", "a", "b"}
		g.Ancestry["a->b"] = true
		g.Ancestry["main->b"] = true
		g.Ancestry["main->a"] = true
		g.Distance["a->b"] = 1
		g.Distance["main->b"] = 4
		g.Distance["main->a"] = 3
		e := newEngine(t, g, nil)

		proposals, err := e.InferChain(context.Background(), "b", "")
		require.NoError(t, err)
		require.Len(t, proposals, 2)
		require.Equal(t, "b", proposals[0].Branch)
		require.Equal(t, "a", proposals[0].Parent)
		require.Equal(t, "a", proposals[1].Branch)
		require.Equal(t, "main", proposals[1].Parent)
	})

	t.Run("landing on trunk upgrades to high confidence", func(t *testing.T) {
		g := gittest.NewFakeRunner()
		g.Branches = []string{"main", "a"}
		g.Ancestry["main->a"] = true
		g.Distance["main->a"] = 2
		e := newEngine(t, g, nil)

		proposals, err := e.InferChain(context.Background(), "a", "")
		require.NoError(t, err)
		require.Len(t, proposals, 1)
		require.Equal(t, infer.SourceGitAncestry, proposals[0].Source)
		require.Equal(t, infer.ConfidenceHigh, proposals[0].Confidence)
	})

	t.Run("explicit parent applies to the first hop only", func(t *testing.T) {
		g := gittest.NewFakeRunner()
		g.Branches = []string{"main", "mid", "b"}
		g.Ancestry["main->mid"] = true
		g.Distance["main->mid"] = 1
		e := newEngine(t, g, nil)

		proposals, err := e.InferChain(context.Background(), "b", "mid")
		require.NoError(t, err)
		require.Len(t, proposals, 2)
		require.Equal(t, infer.SourceExplicit, proposals[0].Source)
		require.Equal(t, "mid", proposals[0].Parent)
		require.Equal(t, infer.SourceGitAncestry, proposals[1].Source)
		require.Equal(t, "main", proposals[1].Parent)
	})

	t.Run("a revisited branch stops the walk without proposing the loop", func(t *testing.T) {
		// Ancestry fixtures that would bounce between a and b forever.
		g := gittest.NewFakeRunner()
		g.Branches = []string{"a", "b"}
		g.Ancestry["a->b"] = true
		g.Ancestry["b->a"] = true
		g.Distance["a->b"] = 1
		g.Distance["b->a"] = 1
		e := newEngine(t, g, nil)

		proposals, err := e.InferChain(context.Background(), "b", "")
		require.NoError(t, err)
		require.Len(t, proposals, 1)
		require.Equal(t, "b", proposals[0].Branch)
		require.Equal(t, "a", proposals[0].Parent)
	})

	t.Run("fresh branch on the same commit as its parent tracks cleanly", func(t *testing.T) {
		// A branch just created from its parent shares its head, so the
		// two are mutual ancestors at distance zero. The walk must keep
		// the forward hop and drop the one that would loop back.
		g := gittest.NewFakeRunner()
		g.Branches = []string{"main", "a", "b"}
		g.Ancestry["a->b"] = true
		g.Ancestry["b->a"] = true
		g.Ancestry["main->a"] = true
		g.Ancestry["main->b"] = true
		g.Distance["a->b"] = 0
		g.Distance["b->a"] = 0
		g.Distance["main->a"] = 2
		g.Distance["main->b"] = 2
		e := newEngine(t, g, nil)

		proposals, err := e.InferChain(context.Background(), "b", "")
		require.NoError(t, err)
		require.Len(t, proposals, 1)
		require.Equal(t, "b", proposals[0].Branch)
		require.Equal(t, "a", proposals[0].Parent)

		// The resulting batch must commit without a cycle conflict.
		require.NoError(t, e.Store.SetTrunk("main"))
		updates, skipped, err := infer.ResolveProposals(e.Store, infer.ForceResolver{}, proposals)
		require.NoError(t, err)
		require.Empty(t, skipped)
		require.NoError(t, e.Store.SetParentsBatch(updates))
	})

	t.Run("stops when no source yields a parent", func(t *testing.T) {
		g := gittest.NewFakeRunner()
		g.Branches = []string{"main", "orphan"}
		e := newEngine(t, g, nil)

		proposals, err := e.InferChain(context.Background(), "orphan", "")
		require.NoError(t, err)
		require.Empty(t, proposals)
	})
}

type scriptedResolver struct {
	decisions []infer.Decision
	calls     int
}

func (r *scriptedResolver) Resolve(_, _, _ string) (infer.Decision, error) {
	d := r.decisions[r.calls]
	r.calls++
	return d, nil
}

func TestResolveProposals(t *testing.T) {
	strPtr := func(s string) *string { return &s }

	seed := func(t *testing.T) *store.Store {
		t.Helper()
		st := newTestStore(t)
		require.NoError(t, st.SetTrunk("main"))
		for _, name := range []string{"main", "a", "b"} {
			_, err := st.UpsertBranch(name)
			require.NoError(t, err)
		}
		require.NoError(t, st.SetParent("b", strPtr("a")))
		return st
	}

	t.Run("untracked and matching parents need no resolution", func(t *testing.T) {
		st := seed(t)
		resolver := &scriptedResolver{}

		updates, skipped, err := infer.ResolveProposals(st, resolver, []infer.Proposal{
			{Branch: "new", Parent: "main"},
			{Branch: "b", Parent: "a"},
		})
		require.NoError(t, err)
		require.Zero(t, resolver.calls)
		require.Empty(t, skipped)
		require.Len(t, updates, 2)
	})

	t.Run("replace adopts the proposed parent", func(t *testing.T) {
		st := seed(t)
		resolver := &scriptedResolver{decisions: []infer.Decision{infer.DecisionReplace}}

		updates, skipped, err := infer.ResolveProposals(st, resolver, []infer.Proposal{
			{Branch: "b", Parent: "main"},
		})
		require.NoError(t, err)
		require.Empty(t, skipped)
		require.Len(t, updates, 1)
		require.Equal(t, "b", updates[0].Name)
		require.Equal(t, "main", *updates[0].Parent)
	})

	t.Run("skip keeps the stored parent", func(t *testing.T) {
		st := seed(t)
		resolver := &scriptedResolver{decisions: []infer.Decision{infer.DecisionSkip}}

		updates, skipped, err := infer.ResolveProposals(st, resolver, []infer.Proposal{
			{Branch: "b", Parent: "main"},
		})
		require.NoError(t, err)
		require.Empty(t, updates)
		require.Equal(t, []string{"b"}, skipped)
	})

	t.Run("abort discards decisions already made", func(t *testing.T) {
		st := seed(t)
		resolver := &scriptedResolver{decisions: []infer.Decision{infer.DecisionReplace, infer.DecisionAbort}}
		require.NoError(t, st.SetParent("a", strPtr("main")))

		updates, skipped, err := infer.ResolveProposals(st, resolver, []infer.Proposal{
			{Branch: "b", Parent: "main"},
			{Branch: "a", Parent: "b"},
		})
		require.ErrorIs(t, err, stackderrors.ErrUserCancelled)
		require.Nil(t, updates)
		require.Nil(t, skipped)
	})

	t.Run("force resolver always replaces", func(t *testing.T) {
		st := seed(t)

		updates, skipped, err := infer.ResolveProposals(st, infer.ForceResolver{}, []infer.Proposal{
			{Branch: "b", Parent: "main"},
		})
		require.NoError(t, err)
		require.Empty(t, skipped)
		require.Len(t, updates, 1)
	})
}
