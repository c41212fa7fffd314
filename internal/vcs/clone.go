package vcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
)

// CloneOptions configures Clone.
type CloneOptions struct {
	// Branch limits the clone to a single branch when set.
	Branch string
	// Progress receives remote progress messages when non-nil.
	Progress io.Writer
}

// Clone clones url into dir and opens the result. url may also be a local
// repository path, which is how independent per-worker copies are made.
func Clone(ctx context.Context, url, dir string, opts CloneOptions) (Repository, error) {
	co := &git.CloneOptions{URL: url}
	if opts.Branch != "" {
		co.ReferenceName = plumbing.NewBranchReferenceName(opts.Branch)
		co.SingleBranch = true
	}
	if opts.Progress != nil {
		co.Progress = opts.Progress
	}

	if _, err := git.PlainCloneContext(ctx, dir, false, co); err != nil {
		return nil, fmt.Errorf("failed to clone %s: %w", url, err)
	}
	return NewGitOpener().Open(dir)
}

// Mirror creates an independent working copy of the local repository at src
// in dir. Unlike Clone it also fetches src's remote-tracking branches, so
// every commit reachable from a ref of src can be checked out in dir.
func Mirror(ctx context.Context, src, dir string) (Repository, error) {
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		return nil, fmt.Errorf("failed to init mirror %s: %w", dir, err)
	}
	_, err = repo.CreateRemote(&config.RemoteConfig{
		Name: "source",
		URLs: []string{src},
		Fetch: []config.RefSpec{
			"+refs/heads/*:refs/remotes/source/*",
			"+refs/remotes/*:refs/remotes/source-remotes/*",
			"+refs/tags/*:refs/tags/*",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure mirror: %w", err)
	}
	err = repo.FetchContext(ctx, &git.FetchOptions{RemoteName: "source"})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil, fmt.Errorf("failed to fetch into mirror: %w", err)
	}
	return NewGitOpener().Open(dir)
}
