// Package gitops versions a project's tracked files (configuration and
// import log) when the project directory is a git repository. The
// database itself stays out of git.
package gitops

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Repo is a git working tree rooted at a project directory.
type Repo struct {
	dir    string
	author string
}

func author(name, email string) string {
	if name == "" {
		name = "releve"
	}
	if email == "" {
		email = "releve@localhost"
	}
	return fmt.Sprintf("%s <%s>", name, email)
}

// Init initializes a new git repository at dir.
func Init(ctx context.Context, dir, authorName, authorEmail string) (*Repo, error) {
	r := &Repo{dir: dir, author: author(authorName, authorEmail)}
	if _, err := r.git(ctx, "init", "--quiet"); err != nil {
		return nil, err
	}
	return r, nil
}

// Open returns the repository at dir, or false when dir is not one.
func Open(dir, authorName, authorEmail string) (*Repo, bool) {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
		return nil, false
	}
	return &Repo{dir: dir, author: author(authorName, authorEmail)}, true
}

func (r *Repo) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %s: %w", args[0], strings.TrimSpace(stderr.String()), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Commit stages paths, relative to the project root, and commits them.
// It returns the short hash, or "" when nothing changed.
func (r *Repo) Commit(ctx context.Context, message string, paths ...string) (string, error) {
	args := append([]string{"add", "--"}, paths...)
	if _, err := r.git(ctx, args...); err != nil {
		return "", err
	}

	// Exit status 1 means staged changes exist.
	diff := exec.CommandContext(ctx, "git", "diff", "--cached", "--quiet")
	diff.Dir = r.dir
	err := diff.Run()
	if err == nil {
		return "", nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
		return "", fmt.Errorf("git diff: %w", err)
	}

	if _, err := r.git(ctx, "-c", "user.name=releve", "-c", "user.email=releve@localhost",
		"commit", "--quiet", "-m", message, "--author", r.author); err != nil {
		return "", err
	}
	return r.git(ctx, "rev-parse", "--short", "HEAD")
}
