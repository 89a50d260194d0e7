package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestGit skips when git is unavailable on the host.
func newTestGit(t *testing.T) *Git {
	t.Helper()
	g, err := New(context.Background())
	if err != nil {
		t.Skipf("git not available: %v", err)
	}
	return g
}

// initRepo creates a git repo with one commit and returns its path.
func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	run := func(args ...string) {
		cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com")
		require.NoError(t, cmd.Run(), "git %v", args)
	}

	run("init", "-q")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a\n"), 0644))
	run("add", "a.txt")
	run("commit", "-q", "-m", "initial")
	return dir
}

func TestMetaOnRepo(t *testing.T) {
	g := newTestGit(t)
	dir := initRepo(t)

	meta, err := g.Meta(context.Background(), dir)
	require.NoError(t, err)

	assert.Len(t, meta.Commit, 40)
	assert.NotEmpty(t, meta.Branch)
	assert.False(t, meta.Dirty)

	// Touch a file: the repo becomes dirty.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b\n"), 0644))
	meta, err = g.Meta(context.Background(), dir)
	require.NoError(t, err)
	assert.True(t, meta.Dirty)
}

func TestMetaOnNonRepo(t *testing.T) {
	g := newTestGit(t)

	meta, err := g.Meta(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, meta.Commit)
	assert.Empty(t, meta.Branch)
	assert.False(t, meta.Dirty)
}
