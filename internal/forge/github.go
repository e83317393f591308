package forge

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	stackderrors "stackd.dev/stackd/internal/errors"
)

// GitHubClient implements Client using the GitHub API.
type GitHubClient struct {
	client *github.Client
	owner  string
	repo   string
}

// NewGitHubClient creates a client for one repository. The token comes
// from GITHUB_TOKEN or GH_TOKEN.
func NewGitHubClient(ctx context.Context, owner, repo string) (*GitHubClient, error) {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		token = os.Getenv("GH_TOKEN")
	}
	if token == "" {
		return nil, fmt.Errorf("no GitHub token found (set GITHUB_TOKEN or GH_TOKEN)")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := github.NewClient(oauth2.NewClient(ctx, ts))

	return &GitHubClient{client: client, owner: owner, repo: repo}, nil
}

var remoteURLPattern = regexp.MustCompile(`[:/]([^/:]+)/([^/]+?)(\.git)?$`)

// ParseRemoteURL extracts owner and repo from an https or ssh remote URL.
func ParseRemoteURL(url string) (owner, repo string, err error) {
	m := remoteURLPattern.FindStringSubmatch(url)
	if m == nil {
		return "", "", fmt.Errorf("cannot parse remote URL %q", url)
	}
	return m[1], m[2], nil
}

// ResolvePRByHead finds the PR for a head branch. Provider failures are
// wrapped as ProviderError so callers can fall back.
func (c *GitHubClient) ResolvePRByHead(ctx context.Context, branch string, cachedNumber *int64) (*PR, error) {
	if cachedNumber != nil {
		pr, _, err := c.client.PullRequests.Get(ctx, c.owner, c.repo, int(*cachedNumber))
		if err != nil {
			return nil, stackderrors.NewProviderError(branch, err)
		}
		return toPR(pr), nil
	}

	prs, _, err := c.client.PullRequests.List(ctx, c.owner, c.repo, &github.PullRequestListOptions{
		Head:  fmt.Sprintf("%s:%s", c.owner, branch),
		State: "all",
		ListOptions: github.ListOptions{
			PerPage: 50,
		},
	})
	if err != nil {
		return nil, stackderrors.NewProviderError(branch, err)
	}
	if len(prs) == 0 {
		return nil, nil
	}

	// Several PRs can share a head over time; the highest number is the
	// most recent.
	best := prs[0]
	for _, pr := range prs[1:] {
		if pr.GetNumber() > best.GetNumber() {
			best = pr
		}
	}
	return toPR(best), nil
}

func toPR(pr *github.PullRequest) *PR {
	if pr == nil {
		return nil
	}
	out := &PR{
		Number: int64(pr.GetNumber()),
		Base:   pr.GetBase().GetRef(),
	}
	switch {
	case pr.GetMerged() || pr.MergedAt != nil:
		out.State = PRStateMerged
		out.MergeCommitSHA = pr.GetMergeCommitSHA()
	case pr.GetState() == "open":
		out.State = PRStateOpen
	case pr.GetState() == "closed":
		out.State = PRStateClosed
	default:
		out.State = PRStateUnknown
	}
	return out
}
