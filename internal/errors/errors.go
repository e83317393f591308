// Package errors provides sentinel errors and custom error types for the stackd application.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the error taxonomy
var (
	// ErrConflict indicates a uniqueness or cycle violation in the branch store
	ErrConflict = errors.New("conflict")

	// ErrNotFound indicates a referenced branch or parent does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidOperation indicates a disallowed transition, such as reparenting the trunk
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrProvider indicates the external PR provider failed; recoverable where a fallback exists
	ErrProvider = errors.New("provider error")

	// ErrExternalTool indicates a git subprocess failed; generally fatal for the current command
	ErrExternalTool = errors.New("external tool error")

	// ErrUserCancelled indicates the operator aborted an interactive prompt
	ErrUserCancelled = errors.New("cancelled")
)

// BranchNotFoundError represents an error when a branch is not found in the store
type BranchNotFoundError struct {
	BranchName string
}

func (e *BranchNotFoundError) Error() string {
	return fmt.Sprintf("branch %s is not tracked", e.BranchName)
}

// Is returns true if the target error is ErrNotFound
func (e *BranchNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewBranchNotFoundError creates a new BranchNotFoundError
func NewBranchNotFoundError(branchName string) *BranchNotFoundError {
	return &BranchNotFoundError{BranchName: branchName}
}

// CycleError represents an error when a parent change would create a cycle
type CycleError struct {
	BranchName string
	ParentName string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("setting parent of %s to %s would create a cycle", e.BranchName, e.ParentName)
}

// Is returns true if the target error is ErrConflict
func (e *CycleError) Is(target error) bool {
	return target == ErrConflict
}

// NewCycleError creates a new CycleError
func NewCycleError(branchName, parentName string) *CycleError {
	return &CycleError{BranchName: branchName, ParentName: parentName}
}

// GitCommandError represents an error from a git command execution
type GitCommandError struct {
	Command string
	Args    []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *GitCommandError) Error() string {
	msg := fmt.Sprintf("git command failed: %s", e.Command)
	if len(e.Args) > 0 {
		msg += fmt.Sprintf(" %v", e.Args)
	}
	if e.Stderr != "" {
		msg += fmt.Sprintf("\nstderr: %s", e.Stderr)
	}
	if e.Stdout != "" {
		msg += fmt.Sprintf("\nstdout: %s", e.Stdout)
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

func (e *GitCommandError) Unwrap() error {
	return e.Err
}

// Is returns true if the target error is ErrExternalTool
func (e *GitCommandError) Is(target error) bool {
	return target == ErrExternalTool
}

// NewGitCommandError creates a new GitCommandError
func NewGitCommandError(command string, args []string, stdout, stderr string, err error) *GitCommandError {
	return &GitCommandError{
		Command: command,
		Args:    args,
		Stdout:  stdout,
		Stderr:  stderr,
		Err:     err,
	}
}

// ProviderError wraps a failure from the PR provider. Callers treat it as
// a warning wherever an alternative inference source exists.
type ProviderError struct {
	BranchName string
	Err        error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("PR lookup failed for %s: %v", e.BranchName, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is returns true if the target error is ErrProvider
func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

// NewProviderError creates a new ProviderError
func NewProviderError(branchName string, err error) *ProviderError {
	return &ProviderError{BranchName: branchName, Err: err}
}
