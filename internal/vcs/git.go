package vcs

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrBranchNotFound is returned when a requested branch does not exist.
var ErrBranchNotFound = errors.New("branch not found")

// RevisionLayout formats the date and time part of a revision line.
const RevisionLayout = "2006-01-02 15:04:05"

// GitOpener opens git repositories using go-git.
type GitOpener struct{}

// NewGitOpener creates a new GitOpener.
func NewGitOpener() *GitOpener {
	return &GitOpener{}
}

// Open implements Opener.
func (o *GitOpener) Open(path string) (Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository %s: %w", path, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	return &gitRepository{repo: repo, root: wt.Filesystem.Root()}, nil
}

// gitRepository wraps go-git Repository.
type gitRepository struct {
	repo *git.Repository
	root string
}

func (r *gitRepository) Root() string {
	return r.root
}

func (r *gitRepository) Resolve(branch string) (string, error) {
	if branch == "" {
		head, err := r.repo.Head()
		if err != nil {
			return "", fmt.Errorf("failed to resolve HEAD: %w", err)
		}
		return head.Hash().String(), nil
	}

	candidates := []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(branch),
		plumbing.NewRemoteReferenceName("origin", branch),
	}
	for _, name := range candidates {
		if ref, err := r.repo.Reference(name, true); err == nil {
			return ref.Hash().String(), nil
		}
	}

	// Tags and raw hashes.
	hash, err := r.repo.ResolveRevision(plumbing.Revision(branch))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrBranchNotFound, branch)
	}
	return hash.String(), nil
}

func (r *gitRepository) RevisionLines(from string) ([]string, error) {
	iter, err := r.repo.Log(&git.LogOptions{
		From:  plumbing.NewHash(from),
		Order: git.LogOrderCommitterTime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	defer iter.Close()

	var lines []string
	err = iter.ForEach(func(c *object.Commit) error {
		lines = append(lines, c.Hash.String()+" "+c.Author.When.Format(RevisionLayout))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate log: %w", err)
	}
	return lines, nil
}

// Default opener singleton
var defaultOpener Opener = NewGitOpener()

// DefaultOpener returns the default git opener.
func DefaultOpener() Opener {
	return defaultOpener
}

// SetDefaultOpener replaces the default opener and returns the previous one.
func SetDefaultOpener(o Opener) Opener {
	prev := defaultOpener
	defaultOpener = o
	return prev
}
