// Package gitinfo provides read-only repository metadata for build logs and
// notification summaries.
package gitinfo

import (
	"fmt"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
)

// RepoInfo summarizes the checked-out state of a repository.
type RepoInfo struct {
	Branch    string
	ShortHash string
	Dirty     bool
}

// IsRepo reports whether dir contains a version-control marker. The marker
// is a plain file rather than a directory in worktree and submodule
// checkouts, so only existence is checked.
func IsRepo(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// Info opens the repository at dir and reads its current branch, HEAD
// commit and worktree cleanliness.
func Info(dir string) (*RepoInfo, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("opening repository %s: %w", dir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("reading HEAD: %w", err)
	}

	info := &RepoInfo{
		ShortHash: head.Hash().String()[:8],
	}
	if head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	}

	// Worktree status is best-effort; a failure leaves Dirty false.
	if wt, err := repo.Worktree(); err == nil {
		if status, err := wt.Status(); err == nil {
			info.Dirty = !status.IsClean()
		}
	}

	return info, nil
}

// Summary renders the info as a short human-readable fragment.
func (i *RepoInfo) Summary() string {
	branch := i.Branch
	if branch == "" {
		branch = "detached"
	}
	if i.Dirty {
		return fmt.Sprintf("%s@%s (dirty)", branch, i.ShortHash)
	}
	return fmt.Sprintf("%s@%s", branch, i.ShortHash)
}
