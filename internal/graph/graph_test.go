package graph_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"stackd.dev/stackd/internal/graph"
)

func TestRankParentCandidates(t *testing.T) {
	t.Run("current branch ranks first", func(t *testing.T) {
		ranked := graph.RankParentCandidates("feature-b", []string{"main", "feature-a"}, []string{"scratch"})
		require.Equal(t, []string{"feature-b", "main", "feature-a", "scratch"}, ranked)
	})

	t.Run("first occurrence wins on duplicates", func(t *testing.T) {
		ranked := graph.RankParentCandidates("main", []string{"main", "feature-a"}, []string{"feature-a", "main", "scratch"})
		require.Equal(t, []string{"main", "feature-a", "scratch"}, ranked)
	})

	t.Run("empty current is skipped", func(t *testing.T) {
		ranked := graph.RankParentCandidates("", []string{"main"}, nil)
		require.Equal(t, []string{"main"}, ranked)
	})

	t.Run("tracked order is preserved", func(t *testing.T) {
		tracked := []string{"zeta", "alpha", "mid"}
		ranked := graph.RankParentCandidates("cur", tracked, nil)
		require.Equal(t, append([]string{"cur"}, tracked...), ranked)
	})

	t.Run("no inputs yields empty", func(t *testing.T) {
		require.Empty(t, graph.RankParentCandidates("", nil, nil))
	})
}

func TestFindCycleStarts(t *testing.T) {
	ptr := func(n int64) *int64 { return &n }

	t.Run("forest has no cycles", func(t *testing.T) {
		parents := map[int64]*int64{
			1: nil,
			2: ptr(1),
			3: ptr(1),
			4: ptr(2),
		}
		require.Empty(t, graph.FindCycleStarts(parents))
	})

	t.Run("self loop", func(t *testing.T) {
		parents := map[int64]*int64{1: ptr(1)}
		require.Equal(t, []int64{1}, graph.FindCycleStarts(parents))
	})

	t.Run("two-node cycle reports both members", func(t *testing.T) {
		parents := map[int64]*int64{
			1: ptr(2),
			2: ptr(1),
			3: nil,
		}
		starts := graph.FindCycleStarts(parents)
		require.ElementsMatch(t, []int64{1, 2}, starts)
	})

	t.Run("tail into a cycle is reported too", func(t *testing.T) {
		// 4 hangs off the 1<->2 cycle; its chain revisits a node as well.
		parents := map[int64]*int64{
			1: ptr(2),
			2: ptr(1),
			4: ptr(1),
		}
		starts := graph.FindCycleStarts(parents)
		require.ElementsMatch(t, []int64{1, 2, 4}, starts)
	})
}
