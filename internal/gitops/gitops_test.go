package gitops

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available, skipping")
	}
}

func gitLog(t *testing.T, dir string) string {
	t.Helper()
	cmd := exec.Command("git", "log", "--format=%an|%s")
	cmd.Dir = dir
	out, err := cmd.Output()
	require.NoError(t, err)
	return strings.TrimSpace(string(out))
}

func TestInitAndOpen(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()

	_, ok := Open(dir, "releve", "releve@localhost")
	assert.False(t, ok, "empty dir should not be a repo")

	_, err := Init(context.Background(), dir, "releve", "releve@localhost")
	require.NoError(t, err)

	_, ok = Open(dir, "releve", "releve@localhost")
	assert.True(t, ok, "initialized dir should be a repo")
}

func TestCommit(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	dir := t.TempDir()
	repo, err := Init(ctx, dir, "Jeanne Martin", "jeanne@example.com")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "releve.yaml"), []byte("log:\n  level: info\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scratch.txt"), []byte("not tracked"), 0o644))

	hash, err := repo.Commit(ctx, "init: releve project", "releve.yaml")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.Equal(t, "Jeanne Martin|init: releve project", gitLog(t, dir))

	status := exec.Command("git", "status", "--porcelain")
	status.Dir = dir
	out, err := status.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "?? scratch.txt", "only the given paths are staged")
}

func TestCommit_NothingChanged(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	dir := t.TempDir()
	repo, err := Init(ctx, dir, "releve", "releve@localhost")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "releve.yaml"), []byte("a: 1\n"), 0o644))
	_, err = repo.Commit(ctx, "first", "releve.yaml")
	require.NoError(t, err)

	hash, err := repo.Commit(ctx, "second", "releve.yaml")
	require.NoError(t, err)
	assert.Empty(t, hash)
	assert.Equal(t, "releve|first", gitLog(t, dir))
}

func TestCommit_MissingPath(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	repo, err := Init(ctx, t.TempDir(), "releve", "releve@localhost")
	require.NoError(t, err)

	_, err = repo.Commit(ctx, "nothing", "missing.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "git add")
}

func TestCommit_DefaultAuthor(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	dir := t.TempDir()
	repo, err := Init(ctx, dir, "", "")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "releve.yaml"), []byte("a: 1\n"), 0o644))
	_, err = repo.Commit(ctx, "first", "releve.yaml")
	require.NoError(t, err)
	assert.Equal(t, "releve|first", gitLog(t, dir))
}
