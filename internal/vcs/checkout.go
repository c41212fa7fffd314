package vcs

import (
	"errors"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ErrDirtyWorkingDir is returned when the working directory has uncommitted changes.
var ErrDirtyWorkingDir = errors.New("working directory has uncommitted changes")

// IsDirty returns true if there are uncommitted changes in the working directory.
// Untracked files are not considered dirty.
func (r *gitRepository) IsDirty() (bool, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return false, err
	}

	status, err := wt.Status()
	if err != nil {
		return false, err
	}

	for _, s := range status {
		if s.Staging == git.Untracked && s.Worktree == git.Untracked {
			continue
		}
		if s.Staging != git.Unmodified || s.Worktree != git.Unmodified {
			return true, nil
		}
	}

	return false, nil
}

func (r *gitRepository) CurrentRef() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", err
	}

	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}

	return head.Hash().String(), nil
}

func (r *gitRepository) Checkout(ref string) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return err
	}

	// Try to resolve as a branch first
	branchRef := plumbing.NewBranchReferenceName(ref)
	if _, err := r.repo.Reference(branchRef, true); err == nil {
		return wt.Checkout(&git.CheckoutOptions{
			Branch: branchRef,
		})
	}

	hash, err := r.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return err
	}

	return wt.Checkout(&git.CheckoutOptions{
		Hash: *hash,
	})
}
