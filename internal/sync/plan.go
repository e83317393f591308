// Package sync computes and applies the plan that reconciles the stored
// stack with upstream movement: merged PRs and moved branch heads cascade
// restacks down the forest.
package sync

import "fmt"

// OpKind discriminates plan operations.
type OpKind int

const (
	// OpFetch fetches the base remote; always the first op
	OpFetch OpKind = iota
	// OpUpdateSha records a branch's current head in the store
	OpUpdateSha
	// OpRestack rebases or replays a branch onto a new target
	OpRestack
)

func (k OpKind) String() string {
	switch k {
	case OpFetch:
		return "fetch"
	case OpUpdateSha:
		return "update-sha"
	case OpRestack:
		return "restack"
	}
	return fmt.Sprintf("OpKind(%d)", int(k))
}

// Op is one step of a sync plan.
type Op struct {
	Kind   OpKind
	Remote string // OpFetch
	Branch string // OpUpdateSha, OpRestack
	SHA    string // OpUpdateSha: the head to record
	// Restack target: OntoSHA is an explicit commit (a merge commit)
	// when known, otherwise OntoRef names the ref to rebase onto.
	OntoSHA string
	OntoRef string
}

// Plan is a read-only ordered list of operations.
type Plan struct {
	Ops []Op
}

// Restacks returns the restack ops in plan order.
func (p *Plan) Restacks() []Op {
	var ops []Op
	for _, op := range p.Ops {
		if op.Kind == OpRestack {
			ops = append(ops, op)
		}
	}
	return ops
}

// Describe renders one human line per op, for dry runs.
func (p *Plan) Describe() []string {
	lines := make([]string, 0, len(p.Ops))
	for _, op := range p.Ops {
		switch op.Kind {
		case OpFetch:
			lines = append(lines, fmt.Sprintf("fetch %s", op.Remote))
		case OpUpdateSha:
			lines = append(lines, fmt.Sprintf("record head of %s (%.8s)", op.Branch, op.SHA))
		case OpRestack:
			target := op.OntoRef
			if op.OntoSHA != "" {
				target = fmt.Sprintf("%.8s", op.OntoSHA)
			}
			lines = append(lines, fmt.Sprintf("restack %s onto %s", op.Branch, target))
		}
	}
	return lines
}
