// Package vcs provides the git operations needed to walk a repository's history.
package vcs

// Repository is a git working copy whose revisions can be enumerated and checked out.
type Repository interface {
	// Root returns the working tree directory.
	Root() string
	// Resolve returns the commit hash of a branch, or of HEAD when branch is empty.
	Resolve(branch string) (string, error)
	// RevisionLines lists the commits reachable from a hash, newest first, as
	// "<hash> <YYYY-MM-DD> <HH:MM:SS>" lines using the author date.
	RevisionLines(from string) ([]string, error)
	// IsDirty reports uncommitted changes to tracked files.
	IsDirty() (bool, error)
	// CurrentRef returns the checked-out branch name, or the HEAD hash when detached.
	CurrentRef() (string, error)
	// Checkout switches the working tree to a branch or commit.
	Checkout(ref string) error
}

// Opener opens git repositories.
type Opener interface {
	// Open opens the repository containing path, searching parent directories.
	Open(path string) (Repository, error)
}
