package actions

import (
	"encoding/json"
	"fmt"

	"stackd.dev/stackd/internal/doctor"
	"stackd.dev/stackd/internal/runtime"
)

// DoctorOptions contains options for the doctor command
type DoctorOptions struct {
	Fix  bool
	JSON bool
}

type doctorResult struct {
	Issues []doctor.Issue `json:"issues"`
	Fixed  []doctor.Issue `json:"fixed,omitempty"`
}

// DoctorAction scans the store for invariant violations and repairs them
// under --fix.
func DoctorAction(ctx *runtime.Context, opts DoctorOptions) error {
	if opts.JSON {
		ctx.Splog.SetQuiet(true)
	}

	doc := &doctor.Doctor{Store: ctx.Store, Git: ctx.Git, Trunk: ctx.Trunk}

	issues, err := doc.Check()
	if err != nil {
		return err
	}

	result := doctorResult{Issues: issues}
	if opts.Fix && len(issues) > 0 {
		fixed, err := doc.Repair(issues)
		result.Fixed = fixed
		if err != nil {
			return err
		}
	}

	if opts.JSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		ctx.Splog.Page(string(out) + "\n")
		return nil
	}

	if len(issues) == 0 {
		ctx.Splog.Info("✅ All checks passed. Your stack is healthy.")
		return nil
	}

	errorCount := 0
	for _, issue := range issues {
		if issue.Severity == doctor.SeverityError {
			errorCount++
			ctx.Splog.Error("[%s] %s", issue.Code, issue.Message)
		} else {
			ctx.Splog.Warn("[%s] %s", issue.Code, issue.Message)
		}
	}

	if opts.Fix {
		ctx.Splog.Info("Fixed %d of %d issue(s).", len(result.Fixed), len(issues))
		return nil
	}

	ctx.Splog.Info("Found %d issue(s). Run 'stackd doctor --fix' to repair.", len(issues))
	if errorCount > 0 {
		return fmt.Errorf("doctor found %d error(s)", errorCount)
	}
	return nil
}
