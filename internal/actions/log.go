package actions

import (
	"fmt"
	"sort"
	"strings"

	"stackd.dev/stackd/internal/output"
	"stackd.dev/stackd/internal/runtime"
	"stackd.dev/stackd/internal/store"
)

// LogAction prints the stored branch forest as a tree, trunk first, with
// the checked-out branch highlighted.
func LogAction(ctx *runtime.Context) error {
	branches, err := ctx.Store.ListBranches()
	if err != nil {
		return err
	}
	if len(branches) == 0 {
		ctx.Splog.Info("No branches tracked yet. Run 'stackd track' to get started.")
		return nil
	}

	childrenOf := make(map[int64][]*store.Branch)
	var roots []*store.Branch
	for _, b := range branches {
		if b.ParentID == nil {
			roots = append(roots, b)
		} else {
			childrenOf[*b.ParentID] = append(childrenOf[*b.ParentID], b)
		}
	}

	// Trunk renders first among roots.
	sort.Slice(roots, func(i, j int) bool {
		if roots[i].Name == ctx.Trunk {
			return true
		}
		if roots[j].Name == ctx.Trunk {
			return false
		}
		return roots[i].Name < roots[j].Name
	})

	current, _ := ctx.Git.CurrentBranch()
	for _, root := range roots {
		renderTree(ctx, root, childrenOf, current, "")
	}
	return nil
}

func renderTree(ctx *runtime.Context, b *store.Branch, childrenOf map[int64][]*store.Branch, current, prefix string) {
	ctx.Splog.Info("%s%s", prefix, describeBranch(ctx, b, current))
	renderSubtree(ctx, b, childrenOf, current, prefix)
}

func renderSubtree(ctx *runtime.Context, b *store.Branch, childrenOf map[int64][]*store.Branch, current, prefix string) {
	children := childrenOf[b.ID]
	for i, child := range children {
		childPrefix := prefix + "├─"
		nextPrefix := prefix + "│ "
		if i == len(children)-1 {
			childPrefix = prefix + "└─"
			nextPrefix = prefix + "  "
		}
		ctx.Splog.Info("%s%s", childPrefix, describeBranch(ctx, child, current))
		renderSubtree(ctx, child, childrenOf, current, nextPrefix)
	}
}

func describeBranch(ctx *runtime.Context, b *store.Branch, current string) string {
	marker := "◯"
	if b.Name == current {
		marker = "◉"
	}

	name := output.ColorBranchName(b.Name, b.Name == current)
	if b.Name == ctx.Trunk {
		name = output.ColorTrunkName(b.Name) + output.Dim(" (trunk)")
	}

	var notes []string
	if b.PRNumber != nil && b.PRState != nil {
		notes = append(notes, fmt.Sprintf("#%d %s", *b.PRNumber, *b.PRState))
	}
	if b.SyncedSHA != nil {
		notes = append(notes, fmt.Sprintf("%.8s", *b.SyncedSHA))
	}
	line := marker + " " + name
	if len(notes) > 0 {
		line += " " + output.Dim("("+strings.Join(notes, ", ")+")")
	}
	return line
}
