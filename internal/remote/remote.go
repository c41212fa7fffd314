// Package remote resolves repository arguments that name a remote repository.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/panbanda/locplot/internal/vcs"
)

// ErrNoWorkingCopy is returned in offline mode when the working directory holds no repository.
var ErrNoWorkingCopy = errors.New("no repository in working directory")

// Source represents a remote repository to analyze.
type Source struct {
	URL      string // normalized git URL
	Ref      string // branch, tag, or SHA (empty = default branch)
	CloneDir string // working copy directory after Acquire
}

var schemes = []string{"https://", "http://", "ssh://", "git://", "file://"}

// Parse detects if a path is a remote reference.
// Returns nil if path exists on filesystem (local path takes precedence).
func Parse(path string) (*Source, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, nil
	}

	path, ref := splitRef(path)
	if path == "" {
		return nil, fmt.Errorf("empty repository reference")
	}

	for _, scheme := range schemes {
		if strings.HasPrefix(path, scheme) {
			return &Source{URL: path, Ref: ref}, nil
		}
	}

	// scp-like ssh syntax: user@host:path
	if at, colon := strings.Index(path, "@"), strings.Index(path, ":"); at > 0 && colon > at {
		return &Source{URL: path, Ref: ref}, nil
	}

	if isGitHubShorthand(path) {
		return &Source{
			URL: "https://github.com/" + path,
			Ref: ref,
		}, nil
	}

	// host/owner/repo without scheme
	if slash := strings.Index(path, "/"); slash > 0 && isHostname(path[:slash]) {
		return &Source{URL: "https://" + path, Ref: ref}, nil
	}

	return nil, nil
}

// splitRef separates a trailing @ref. An @ before the last slash belongs to the URL.
func splitRef(path string) (string, string) {
	at := strings.LastIndex(path, "@")
	if at == -1 || at < strings.LastIndex(path, "/") {
		return path, ""
	}
	return path[:at], path[at+1:]
}

func isHostname(s string) bool {
	return strings.Contains(s, ".") && !strings.HasPrefix(s, ".")
}

// isGitHubShorthand returns true if path matches owner/repo pattern.
func isGitHubShorthand(path string) bool {
	slashIdx := strings.Index(path, "/")
	if slashIdx == -1 {
		return false
	}
	if strings.Count(path, "/") != 1 {
		return false
	}
	// No dots before the slash (would indicate a domain)
	if strings.Contains(path[:slashIdx], ".") {
		return false
	}
	return slashIdx > 0 && slashIdx < len(path)-1
}

// Acquire makes the repository available in dir. Unless offline, any existing
// directory is replaced by a fresh clone. Offline mode reuses what is there.
func (s *Source) Acquire(ctx context.Context, dir string, offline bool, progress io.Writer) (vcs.Repository, error) {
	s.CloneDir = dir

	if offline {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrNoWorkingCopy, dir)
		}
		repo, err := vcs.DefaultOpener().Open(dir)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoWorkingCopy, err)
		}
		return repo, nil
	}

	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("failed to clear %s: %w", dir, err)
	}
	return vcs.Clone(ctx, s.URL, dir, vcs.CloneOptions{Progress: progress})
}

// Cleanup removes the working copy.
func (s *Source) Cleanup() error {
	if s.CloneDir == "" {
		return nil
	}
	return os.RemoveAll(s.CloneDir)
}
