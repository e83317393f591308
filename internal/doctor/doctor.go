// Package doctor scans the branch store for invariant violations and
// optionally repairs them.
package doctor

import (
	"fmt"
	"sort"

	"stackd.dev/stackd/internal/git"
	"stackd.dev/stackd/internal/graph"
	"stackd.dev/stackd/internal/store"
)

// Issue severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Stable machine codes, one per check.
const (
	CodeMissingGitBranch    = "missing_git_branch"
	CodeMissingParentRecord = "missing_parent_record"
	CodeBaseHasParent       = "base_has_parent"
	CodeIncompletePRCache   = "incomplete_pr_cache"
	CodeCycle               = "cycle"
)

// Issue is one detected violation. A branch may trigger several.
type Issue struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Branch   string `json:"branch"`
}

// Doctor runs the consistency checks.
type Doctor struct {
	Store *store.Store
	Git   git.Runner
	Trunk string
}

// Check scans one store snapshot and reports all violations, ordered by
// branch name within each check.
func (d *Doctor) Check() ([]Issue, error) {
	branches, err := d.Store.ListBranches()
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*store.Branch, len(branches))
	parents := make(map[int64]*int64, len(branches))
	for _, b := range branches {
		byID[b.ID] = b
		parents[b.ID] = b.ParentID
	}

	var issues []Issue

	for _, b := range branches {
		if !d.Git.RefExists(b.Name) {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Code:     CodeMissingGitBranch,
				Message:  fmt.Sprintf("tracked branch %s no longer exists in git", b.Name),
				Branch:   b.Name,
			})
		}
	}

	for _, b := range branches {
		if b.ParentID != nil && byID[*b.ParentID] == nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Code:     CodeMissingParentRecord,
				Message:  fmt.Sprintf("parent record of %s does not exist", b.Name),
				Branch:   b.Name,
			})
		}
	}

	for _, b := range branches {
		if b.Name == d.Trunk && b.ParentID != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Code:     CodeBaseHasParent,
				Message:  fmt.Sprintf("base branch %s must not have a parent", b.Name),
				Branch:   b.Name,
			})
		}
	}

	for _, b := range branches {
		if (b.PRNumber == nil) != (b.PRState == nil) {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Code:     CodeIncompletePRCache,
				Message:  fmt.Sprintf("branch %s has a partial PR cache", b.Name),
				Branch:   b.Name,
			})
		}
	}

	starts := graph.FindCycleStarts(parents)
	var cycleNames []string
	for _, id := range starts {
		if b := byID[id]; b != nil {
			cycleNames = append(cycleNames, b.Name)
		}
	}
	sort.Strings(cycleNames)
	for _, name := range cycleNames {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Code:     CodeCycle,
			Message:  fmt.Sprintf("parent chain of %s loops back on itself", name),
			Branch:   name,
		})
	}

	return issues, nil
}

// Repair applies the fix for each issue and returns the issues fixed.
// missing_git_branch fixes run first and delete the record outright —
// children are detached, not re-spliced, unlike the manual untrack path;
// the asymmetry is deliberate and kept. The snapshot is re-fetched once
// afterward, since those deletions change the id space the remaining
// fixes depend on.
func (d *Doctor) Repair(issues []Issue) ([]Issue, error) {
	var fixed []Issue

	for _, issue := range issues {
		if issue.Code != CodeMissingGitBranch {
			continue
		}
		if err := d.Store.DeleteBranch(issue.Branch); err != nil {
			return fixed, fmt.Errorf("deleting %s: %w", issue.Branch, err)
		}
		fixed = append(fixed, issue)
	}

	branches, err := d.Store.ListBranches()
	if err != nil {
		return fixed, err
	}
	existing := make(map[string]bool, len(branches))
	for _, b := range branches {
		existing[b.Name] = true
	}

	for _, issue := range issues {
		if issue.Code == CodeMissingGitBranch || !existing[issue.Branch] {
			continue
		}

		switch issue.Code {
		case CodeMissingParentRecord, CodeBaseHasParent, CodeCycle:
			if err := d.Store.SetParent(issue.Branch, nil); err != nil {
				return fixed, fmt.Errorf("clearing parent of %s: %w", issue.Branch, err)
			}
		case CodeIncompletePRCache:
			if err := d.Store.SetPRCache(issue.Branch, nil, nil); err != nil {
				return fixed, fmt.Errorf("clearing PR cache of %s: %w", issue.Branch, err)
			}
		default:
			continue
		}
		fixed = append(fixed, issue)
	}

	return fixed, nil
}
