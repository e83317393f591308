// Package forge provides the pull-request metadata provider. The core
// depends only on the Client interface; the GitHub implementation lives
// alongside it.
package forge

import "context"

// PRState is the provider-reported lifecycle state of a pull request.
type PRState string

const (
	PRStateOpen    PRState = "open"
	PRStateMerged  PRState = "merged"
	PRStateClosed  PRState = "closed"
	PRStateUnknown PRState = "unknown"
)

// PR is the provider's view of one pull request.
// This is a simplified struct to avoid coupling to the go-github library.
type PR struct {
	Number         int64
	State          PRState
	Base           string
	MergeCommitSHA string
}

// Client is the PR provider surface the core depends on.
type Client interface {
	// ResolvePRByHead finds the PR whose head is the given branch.
	// A cached number performs a direct fetch; otherwise the provider
	// searches by head branch and returns the highest-numbered match.
	// Returns (nil, nil) when no PR exists.
	ResolvePRByHead(ctx context.Context, branch string, cachedNumber *int64) (*PR, error)
}
