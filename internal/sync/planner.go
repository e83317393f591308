package sync

import (
	"context"

	"stackd.dev/stackd/internal/forge"
	"stackd.dev/stackd/internal/git"
	"stackd.dev/stackd/internal/output"
	"stackd.dev/stackd/internal/store"
)

// Planner computes a read-only sync plan from a store snapshot. It never
// mutates the store or the working copy.
type Planner struct {
	Store  *store.Store
	Git    git.Runner
	Forge  forge.Client // nil disables the merged-PR source
	Splog  *output.Splog
	Trunk  string
	Remote string
}

type restackTarget struct {
	branch  string
	ontoSHA string
	ontoRef string
}

// Plan scans every stored branch whose ref still exists, in name order:
// a merged PR or a moved head enqueues the branch's children for
// restacking, and the current head is recorded regardless. The
// propagation queue then drains breadth-first; each branch restacks at
// most once (first discovery wins, e.g. under diamond dependencies), and
// restacking a branch enqueues its own children onto it.
func (p *Planner) Plan(ctx context.Context) (*Plan, error) {
	plan := &Plan{Ops: []Op{{Kind: OpFetch, Remote: p.Remote}}}

	branches, err := p.Store.ListBranches()
	if err != nil {
		return nil, err
	}

	childrenOf := make(map[int64][]string)
	for _, b := range branches {
		if b.ParentID != nil {
			childrenOf[*b.ParentID] = append(childrenOf[*b.ParentID], b.Name)
		}
	}
	idByName := make(map[string]int64, len(branches))
	for _, b := range branches {
		idByName[b.Name] = b.ID
	}

	var queue []restackTarget
	seen := make(map[string]bool)
	enqueueChildren := func(parentID int64, ontoSHA, ontoRef string) {
		for _, child := range childrenOf[parentID] {
			if seen[child] {
				continue
			}
			seen[child] = true
			queue = append(queue, restackTarget{branch: child, ontoSHA: ontoSHA, ontoRef: ontoRef})
		}
	}

	for _, b := range branches {
		if !p.Git.RefExists(b.Name) {
			continue
		}

		if pr := p.lookupPR(ctx, b); pr != nil && pr.State == forge.PRStateMerged {
			ontoSHA := pr.MergeCommitSHA
			ontoRef := ""
			if ontoSHA == "" {
				ontoRef = p.Remote + "/" + p.Trunk
			}
			enqueueChildren(b.ID, ontoSHA, ontoRef)
		}

		head, err := p.Git.Resolve(b.Name)
		if err != nil {
			return nil, err
		}
		if b.SyncedSHA == nil || *b.SyncedSHA != head {
			enqueueChildren(b.ID, "", b.Name)
		}

		plan.Ops = append(plan.Ops, Op{Kind: OpUpdateSha, Branch: b.Name, SHA: head})
	}

	// Breadth-first drain; each restacked branch cascades to its own
	// children.
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		plan.Ops = append(plan.Ops, Op{
			Kind:    OpRestack,
			Branch:  item.branch,
			OntoSHA: item.ontoSHA,
			OntoRef: item.ontoRef,
		})
		if id, ok := idByName[item.branch]; ok {
			enqueueChildren(id, "", item.branch)
		}
	}

	return plan, nil
}

// lookupPR queries the provider for a branch's PR. Provider errors are
// warnings; planning proceeds without PR information.
func (p *Planner) lookupPR(ctx context.Context, b *store.Branch) *forge.PR {
	if p.Forge == nil {
		return nil
	}
	pr, err := p.Forge.ResolvePRByHead(ctx, b.Name, b.PRNumber)
	if err != nil {
		p.Splog.Warn("%v", err)
		return nil
	}
	return pr
}
