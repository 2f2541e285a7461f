package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/YoshitsuguKoike/deetdd/internal/application/port/output"
)

// GitOptions configures a GitGateway
type GitOptions struct {
	AuthorName  string
	AuthorEmail string
	// Exclude lists doublestar patterns hidden from the file list
	Exclude []string
	// Protect lists work-dir relative paths that are never staged or cleaned (state dir, .env)
	Protect []string
}

// GitGateway implements RepositoryGateway with the git command line
type GitGateway struct {
	dir  string
	opts GitOptions
}

var _ output.RepositoryGateway = (*GitGateway)(nil)

// NewGitGateway creates a gateway for the work tree at dir
func NewGitGateway(dir string, opts GitOptions) *GitGateway {
	return &GitGateway{dir: dir, opts: opts}
}

// run executes git in the work tree and returns stdout
func (g *GitGateway) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("git %s: %w", args[0], ctx.Err())
		}
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// InitIfNeeded runs git init when the work tree has no .git
func (g *GitGateway) InitIfNeeded(ctx context.Context) error {
	if _, err := os.Stat(filepath.Join(g.dir, ".git")); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat .git: %w", err)
	}
	_, err := g.run(ctx, "init", "-q")
	return err
}

// HasHead reports whether the repository has at least one commit
func (g *GitGateway) HasHead(ctx context.Context) (bool, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--verify", "-q", "HEAD")
	cmd.Dir = g.dir
	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	return false, fmt.Errorf("git rev-parse: %w", err)
}

// ReadState returns the last commit message and patch plus the visible file list.
// A repository without commits has an empty message and diff.
func (g *GitGateway) ReadState(ctx context.Context) (output.RepoState, error) {
	var state output.RepoState

	hasHead, err := g.HasHead(ctx)
	if err != nil {
		return state, err
	}
	if hasHead {
		msg, err := g.run(ctx, "log", "-1", "--format=%B")
		if err != nil {
			return state, err
		}
		state.LastCommitMessage = strings.TrimRight(msg, "\n")

		diff, err := g.run(ctx, "show", "--format=", "--patch", "--no-color", "--no-ext-diff", "HEAD")
		if err != nil {
			return state, err
		}
		state.LastDiff = strings.TrimLeft(diff, "\n")
	}

	files, err := g.ListFiles(ctx)
	if err != nil {
		return state, err
	}
	state.Files = files
	return state, nil
}

// ListFiles returns tracked and untracked, non-ignored files that exist on disk, minus Exclude patterns
func (g *GitGateway) ListFiles(ctx context.Context) ([]string, error) {
	out, err := g.run(ctx, "ls-files", "-z", "--cached", "--others", "--exclude-standard")
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	files := []string{}
	for _, f := range strings.Split(out, "\x00") {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		if g.excluded(f) {
			continue
		}
		if _, err := os.Lstat(filepath.Join(g.dir, filepath.FromSlash(f))); err != nil {
			continue
		}
		files = append(files, f)
	}
	sort.Strings(files)
	return files, nil
}

func (g *GitGateway) excluded(path string) bool {
	for _, pattern := range g.opts.Exclude {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

// StageAll stages every change in the work tree except protected paths
func (g *GitGateway) StageAll(ctx context.Context) error {
	if err := g.ensureProtected(ctx); err != nil {
		return err
	}
	_, err := g.run(ctx, "add", "-A", "--", ".")
	return err
}

// ensureProtected lists the protected paths in the repository's info/exclude file.
// Ignored paths are skipped by add, status and clean alike, whether or not
// .gitignore already names them.
func (g *GitGateway) ensureProtected(ctx context.Context) error {
	if len(g.opts.Protect) == 0 {
		return nil
	}
	out, err := g.run(ctx, "rev-parse", "--git-path", "info/exclude")
	if err != nil {
		return err
	}
	path := strings.TrimSpace(out)
	if !filepath.IsAbs(path) {
		path = filepath.Join(g.dir, path)
	}

	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read %s: %w", path, err)
	}
	have := map[string]bool{}
	for _, line := range strings.Split(string(existing), "\n") {
		have[strings.TrimSpace(line)] = true
	}

	var missing []string
	for _, p := range g.opts.Protect {
		pattern := "/" + strings.TrimPrefix(filepath.ToSlash(p), "/")
		if !have[pattern] {
			missing = append(missing, pattern)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	content := string(existing)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += strings.Join(missing, "\n") + "\n"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Commit records the index and returns the new commit id.
// Empty commits are allowed so every successful step leaves exactly one commit.
func (g *GitGateway) Commit(ctx context.Context, message string) (string, error) {
	_, err := g.run(ctx,
		"-c", "user.name="+g.opts.AuthorName,
		"-c", "user.email="+g.opts.AuthorEmail,
		"-c", "commit.gpgsign=false",
		"commit", "-q", "--no-verify", "--allow-empty", "-m", message)
	if err != nil {
		return "", err
	}

	id, err := g.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(id), nil
}

// DiscardWorkingChanges restores the work tree to HEAD and removes untracked files.
// Ignored and protected paths survive.
func (g *GitGateway) DiscardWorkingChanges(ctx context.Context) error {
	if err := g.ensureProtected(ctx); err != nil {
		return err
	}
	hasHead, err := g.HasHead(ctx)
	if err != nil {
		return err
	}
	if hasHead {
		if _, err := g.run(ctx, "reset", "-q", "--hard", "HEAD"); err != nil {
			return err
		}
	}

	_, err = g.run(ctx, "clean", "-q", "-f", "-d")
	return err
}

// IsDirty reports whether the work tree has uncommitted changes outside protected paths
func (g *GitGateway) IsDirty(ctx context.Context) (bool, error) {
	if err := g.ensureProtected(ctx); err != nil {
		return false, err
	}
	out, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}
