// Package git collects version-control metadata for generated docs using
// the git CLI. Everything here degrades gracefully: a missing git binary
// or a non-repo path yields empty metadata, never a failed run.
package git

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sunprojectca/DocGen/internal/types"
)

// Git runs git commands against a repository.
type Git struct {
	gitPath string
}

// New creates a Git instance. It verifies that git is available.
func New(ctx context.Context) (*Git, error) {
	gitPath, err := exec.LookPath("git")
	if err != nil {
		return nil, fmt.Errorf("git not found in PATH: %w", err)
	}

	cmd := exec.CommandContext(ctx, gitPath, "version")
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git command failed: %w", err)
	}

	return &Git{gitPath: gitPath}, nil
}

// Meta returns version-control metadata for repoPath. A path that is not
// a git repository returns zero-valued metadata and no error.
func (g *Git) Meta(ctx context.Context, repoPath string) (types.RepoMeta, error) {
	var meta types.RepoMeta

	if !g.isRepo(ctx, repoPath) {
		return meta, nil
	}

	if out, err := g.run(ctx, repoPath, "rev-parse", "HEAD"); err == nil {
		meta.Commit = out
	}
	if out, err := g.run(ctx, repoPath, "rev-parse", "--abbrev-ref", "HEAD"); err == nil {
		meta.Branch = out
	}
	if out, err := g.run(ctx, repoPath, "remote", "get-url", "origin"); err == nil {
		meta.Remote = out
	}

	dirty, err := g.hasUncommittedChanges(ctx, repoPath)
	if err != nil {
		return meta, err
	}
	meta.Dirty = dirty

	return meta, nil
}

// isRepo reports whether repoPath is inside a git work tree.
func (g *Git) isRepo(ctx context.Context, repoPath string) bool {
	out, err := g.run(ctx, repoPath, "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// hasUncommittedChanges checks `git status --porcelain` for any output.
func (g *Git) hasUncommittedChanges(ctx context.Context, repoPath string) (bool, error) {
	cmd := exec.CommandContext(ctx, g.gitPath, "-C", repoPath, "status", "--porcelain")
	output, err := cmd.Output()
	if err != nil {
		return false, fmt.Errorf("git status failed in %s: %w", repoPath, err)
	}
	return len(strings.TrimSpace(string(output))) > 0, nil
}

// run executes a git subcommand in repoPath and returns trimmed stdout.
func (g *Git) run(ctx context.Context, repoPath string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", repoPath}, args...)
	cmd := exec.CommandContext(ctx, g.gitPath, fullArgs...)
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s failed in %s: %w", strings.Join(args, " "), repoPath, err)
	}
	return strings.TrimSpace(string(output)), nil
}
