package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCopyTreePreservesStructure(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "nested", "dest")

	writeFile(t, filepath.Join(src, "a.txt"), "alpha")
	writeFile(t, filepath.Join(src, "sub", "b.txt"), "beta")
	writeFile(t, filepath.Join(src, "sub", "deep", "c.txt"), "gamma")

	result, err := CopyTree(src, dst)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Files)

	got, err := os.ReadFile(filepath.Join(dst, "sub", "deep", "c.txt"))
	require.NoError(t, err)
	assert.Equal(t, "gamma", string(got))
}

func TestCopyTreeSingleFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "app.apk")
	writeFile(t, src, "binary")
	dst := filepath.Join(t.TempDir(), "out", "app.apk")

	result, err := CopyTree(src, dst)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Files)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "binary", string(got))
}

func TestCopyTreeSourceMissing(t *testing.T) {
	_, err := CopyTree(filepath.Join(t.TempDir(), "absent"), t.TempDir())
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestLocateReleasePrefersFirstExistingRoot(t *testing.T) {
	android := t.TempDir()
	// Both layouts present; build/app/outputs wins.
	writeFile(t, filepath.Join(android, "build", "app", "outputs", "apk", "jc", "release", "new.apk"), "x")
	writeFile(t, filepath.Join(android, "app", "build", "outputs", "apk", "jc", "release", "old.apk"), "x")

	located := LocateRelease(android, KindAPK, ".apk")
	require.Len(t, located, 1)
	assert.Equal(t, "jc", located[0].Variant)
	require.Len(t, located[0].Files, 1)
	assert.Equal(t, "new.apk", filepath.Base(located[0].Files[0]))
}

func TestLocateReleaseFallbackRootAndVariants(t *testing.T) {
	android := t.TempDir()
	writeFile(t, filepath.Join(android, "app", "build", "outputs", "bundle", "jc", "release", "app.aab"), "x")
	writeFile(t, filepath.Join(android, "app", "build", "outputs", "bundle", "play", "release", "app.aab"), "x")
	// A variant without a release dir is skipped.
	require.NoError(t, os.MkdirAll(filepath.Join(android, "app", "build", "outputs", "bundle", "debugonly"), 0o755))

	located := LocateRelease(android, KindBundle, ".aab")
	require.Len(t, located, 2)

	variants := []string{located[0].Variant, located[1].Variant}
	assert.ElementsMatch(t, []string{"jc", "play"}, variants)
}

func TestLocateReleaseNoRoots(t *testing.T) {
	assert.Nil(t, LocateRelease(t.TempDir(), KindAPK, ".apk"))
}

func TestFindByExtRecursive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "top.ipa"), "x")
	writeFile(t, filepath.Join(dir, "a", "b", "nested.ipa"), "x")
	writeFile(t, filepath.Join(dir, "a", "noise.txt"), "x")

	found := FindByExt(dir, ".ipa")
	require.Len(t, found, 2)
	assert.Equal(t, "nested.ipa", filepath.Base(found[0]))
	assert.Equal(t, "top.ipa", filepath.Base(found[1]))
}

func TestGroupByDir(t *testing.T) {
	groups := GroupByDir([]string{
		"/x/a/one.ipa",
		"/x/a/two.ipa",
		"/x/b/three.ipa",
	})
	require.Len(t, groups, 2)
	assert.Len(t, groups["/x/a"], 2)
	assert.Len(t, groups["/x/b"], 1)
}
