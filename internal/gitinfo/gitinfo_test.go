package gitinfo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hi"), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	return dir
}

func TestIsRepo(t *testing.T) {
	assert.True(t, IsRepo(initRepo(t)))
	assert.False(t, IsRepo(t.TempDir()))
}

func TestIsRepoWorktreeCheckout(t *testing.T) {
	dir := t.TempDir()
	marker := []byte("gitdir: /somewhere/.git/worktrees/app\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git"), marker, 0o644))

	assert.True(t, IsRepo(dir))
}

func TestInfoReadsHead(t *testing.T) {
	dir := initRepo(t)

	info, err := Info(dir)
	require.NoError(t, err)
	assert.Len(t, info.ShortHash, 8)
	assert.NotEmpty(t, info.Branch)
	assert.False(t, info.Dirty)
	assert.Contains(t, info.Summary(), info.ShortHash)
}

func TestInfoDirtyWorktree(t *testing.T) {
	dir := initRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extra.txt"), []byte("x"), 0o644))

	info, err := Info(dir)
	require.NoError(t, err)
	assert.True(t, info.Dirty)
	assert.Contains(t, info.Summary(), "(dirty)")
}

func TestInfoNotARepo(t *testing.T) {
	_, err := Info(t.TempDir())
	assert.Error(t, err)
}
