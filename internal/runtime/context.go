// Package runtime provides the context type that bundles the store, the
// git runner, the PR provider and the logger for command actions. The
// store is owned here and passed explicitly into every core operation;
// there is no global state.
package runtime

import (
	"context"
	"fmt"
	"path/filepath"

	"stackd.dev/stackd/internal/config"
	"stackd.dev/stackd/internal/forge"
	"stackd.dev/stackd/internal/git"
	"stackd.dev/stackd/internal/output"
	"stackd.dev/stackd/internal/store"
)

// Context provides access to the collaborators for one command
// invocation.
type Context struct {
	Context  context.Context
	Store    *store.Store
	Git      git.Runner
	Forge    forge.Client
	Splog    *output.Splog
	Config   config.Config
	RepoRoot string
	Trunk    string
}

// Close releases the store and logger.
func (c *Context) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Splog != nil {
		_ = c.Splog.Close()
	}
}

// GetContext opens the repository, its store and the provider. Fails if
// stackd has not been initialized; init uses GetContextForInit instead.
func GetContext(ctx context.Context) (*Context, error) {
	rc, err := GetContextForInit(ctx)
	if err != nil {
		return nil, err
	}

	if !config.IsInitialized(rc.RepoRoot) {
		rc.Close()
		return nil, fmt.Errorf("stackd not initialized, run 'stackd init' first")
	}

	cfg, err := config.Load(rc.RepoRoot)
	if err != nil {
		rc.Close()
		return nil, err
	}
	rc.Config = cfg

	trunk, err := rc.Store.Trunk()
	if err != nil {
		rc.Close()
		return nil, err
	}
	if trunk == "" {
		trunk = cfg.Trunk
	}
	rc.Trunk = trunk

	// The provider is optional: no token or no parsable remote just means
	// PR-dependent logic falls back.
	if url, err := rc.Git.RemoteURL(ctx, cfg.Remote); err == nil {
		if owner, repo, err := forge.ParseRemoteURL(url); err == nil {
			if client, err := forge.NewGitHubClient(ctx, owner, repo); err == nil {
				rc.Forge = client
			}
		}
	}

	return rc, nil
}

// GetContextForInit opens the repository and the store without requiring
// prior initialization.
func GetContextForInit(ctx context.Context) (*Context, error) {
	g, err := git.Open(".")
	if err != nil {
		return nil, err
	}
	repoRoot, err := g.RepoRoot(ctx)
	if err != nil {
		return nil, err
	}

	splog, err := output.NewSplogWithConfig(filepath.Join(repoRoot, ".git", "stackd", "stackd.log"))
	if err != nil {
		return nil, err
	}

	st, err := store.Open(store.DefaultPath(repoRoot))
	if err != nil {
		_ = splog.Close()
		return nil, err
	}

	return &Context{
		Context:  ctx,
		Store:    st,
		Git:      g,
		Splog:    splog,
		Config:   config.Defaults(),
		RepoRoot: repoRoot,
	}, nil
}
