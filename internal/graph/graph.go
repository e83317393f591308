// Package graph holds pure query functions over an in-memory snapshot of
// the branch forest. Nothing here performs I/O.
package graph

// RankParentCandidates returns an ordered, de-duplicated list of parent
// candidates: the current branch first, then every tracked branch in
// store order, then every other local branch. First occurrence wins on
// duplicates.
func RankParentCandidates(current string, tracked, local []string) []string {
	seen := make(map[string]bool)
	var ranked []string

	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		ranked = append(ranked, name)
	}

	add(current)
	for _, name := range tracked {
		add(name)
	}
	for _, name := range local {
		add(name)
	}
	return ranked
}

// FindCycleStarts walks every branch's parent chain with a visited-id set
// and reports each branch whose chain revisits a node. A branch on a cycle
// is reported once; not every node of the cycle is necessarily reported.
func FindCycleStarts(parents map[int64]*int64) []int64 {
	var starts []int64
	for id := range parents {
		visited := map[int64]bool{id: true}
		cur := parents[id]
		for cur != nil {
			if visited[*cur] {
				starts = append(starts, id)
				break
			}
			visited[*cur] = true
			cur = parents[*cur]
		}
	}
	return starts
}
