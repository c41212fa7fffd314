// Package testutil builds throwaway git repositories for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// WriteFile writes content to a file in the real filesystem.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll(%s) error: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile(%s) error: %v", path, err)
	}
}

// CreateFileTree creates multiple files from a map of path -> content.
func CreateFileTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		WriteFile(t, filepath.Join(root, name), content)
	}
}

// Day returns the given hour UTC of a day in January 2023.
func Day(day, hour int) time.Time {
	return time.Date(2023, 1, day, hour, 0, 0, 0, time.UTC)
}

// GitRepo is a repository in a temporary directory.
type GitRepo struct {
	Dir    string
	Repo   *git.Repository
	Hashes []plumbing.Hash // commits, oldest first
	t      *testing.T
}

// NewGitRepo initializes an empty repository that is removed when the test ends.
func NewGitRepo(t *testing.T) *GitRepo {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit(%s) error: %v", dir, err)
	}
	return &GitRepo{Dir: dir, Repo: repo, t: t}
}

// Commit writes files and commits them with the given author time.
func (g *GitRepo) Commit(when time.Time, files map[string]string) plumbing.Hash {
	g.t.Helper()
	wt, err := g.Repo.Worktree()
	if err != nil {
		g.t.Fatalf("Worktree() error: %v", err)
	}

	CreateFileTree(g.t, g.Dir, files)
	for name := range files {
		if _, err := wt.Add(name); err != nil {
			g.t.Fatalf("Add(%s) error: %v", name, err)
		}
	}

	hash, err := wt.Commit("update", &git.CommitOptions{
		Author: &object.Signature{Name: "Test Author", Email: "test@example.com", When: when},
	})
	if err != nil {
		g.t.Fatalf("Commit() error: %v", err)
	}
	g.Hashes = append(g.Hashes, hash)
	return hash
}
