package infer

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	stackderrors "stackd.dev/stackd/internal/errors"
	"stackd.dev/stackd/internal/output"
	"stackd.dev/stackd/internal/store"
)

// Decision is the operator's answer to a parent conflict.
type Decision int

const (
	// DecisionReplace applies the proposed parent
	DecisionReplace Decision = iota
	// DecisionSkip keeps the stored parent
	DecisionSkip
	// DecisionAbort discards the entire pending batch
	DecisionAbort
)

// Resolver mediates between a proposed parent and a differing stored one.
type Resolver interface {
	Resolve(branch, storedParent, proposedParent string) (Decision, error)
}

// ForceResolver always replaces; used by the non-interactive
// confirm-all mode.
type ForceResolver struct{}

func (ForceResolver) Resolve(string, string, string) (Decision, error) {
	return DecisionReplace, nil
}

// PromptResolver asks the operator Replace/Skip/Abort. An interrupt maps
// to the cancellation outcome, same as choosing Abort.
type PromptResolver struct{}

func (PromptResolver) Resolve(branch, storedParent, proposedParent string) (Decision, error) {
	var answer string
	prompt := &survey.Select{
		Message: fmt.Sprintf("%s is tracked under %s but %s was inferred. What now?",
			output.ColorBranchName(branch, false),
			output.ColorBranchName(storedParent, false),
			output.ColorBranchName(proposedParent, false)),
		Options: []string{"Replace", "Skip", "Abort"},
	}
	if err := survey.AskOne(prompt, &answer); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return DecisionAbort, stackderrors.ErrUserCancelled
		}
		return DecisionAbort, err
	}

	switch answer {
	case "Replace":
		return DecisionReplace, nil
	case "Skip":
		return DecisionSkip, nil
	default:
		return DecisionAbort, stackderrors.ErrUserCancelled
	}
}

// PromptParent asks the operator to pick a parent for a branch no
// evidence source could resolve. An empty return means leave untracked.
func PromptParent(branch string, candidates []string) (string, error) {
	const skip = "(leave untracked)"
	var answer string
	prompt := &survey.Select{
		Message: fmt.Sprintf("No parent could be inferred for %s. Pick one:",
			output.ColorBranchName(branch, false)),
		Options: append(append([]string{}, candidates...), skip),
	}
	if err := survey.AskOne(prompt, &answer); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return "", stackderrors.ErrUserCancelled
		}
		return "", err
	}
	if answer == skip {
		return "", nil
	}
	return answer, nil
}

// ResolveProposals turns inference proposals into a parent-update batch.
// A proposal differing from the stored parent goes through the resolver;
// an abort discards every pending update, including ones already decided
// in this invocation. Returns the batch and the names that were skipped.
func ResolveProposals(st *store.Store, resolver Resolver, proposals []Proposal) ([]store.ParentUpdate, []string, error) {
	var updates []store.ParentUpdate
	var skipped []string

	for _, p := range proposals {
		stored := storedParentName(st, p.Branch)
		if stored == "" || stored == p.Parent {
			parent := p.Parent
			updates = append(updates, store.ParentUpdate{Name: p.Branch, Parent: &parent})
			continue
		}

		decision, err := resolver.Resolve(p.Branch, stored, p.Parent)
		if err != nil {
			return nil, nil, err
		}
		switch decision {
		case DecisionReplace:
			parent := p.Parent
			updates = append(updates, store.ParentUpdate{Name: p.Branch, Parent: &parent})
		case DecisionSkip:
			skipped = append(skipped, p.Branch)
		case DecisionAbort:
			return nil, nil, stackderrors.ErrUserCancelled
		}
	}

	return updates, skipped, nil
}

// storedParentName returns the branch's stored parent name, or "" when
// the branch is untracked or a root.
func storedParentName(st *store.Store, branch string) string {
	b, err := st.GetBranch(branch)
	if err != nil || b.ParentID == nil {
		return ""
	}
	branches, err := st.ListBranches()
	if err != nil {
		return ""
	}
	for _, candidate := range branches {
		if candidate.ID == *b.ParentID {
			return candidate.Name
		}
	}
	return ""
}
