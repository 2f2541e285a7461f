package vcs

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newRepo(t *testing.T) (*GitGateway, string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	g := NewGitGateway(dir, GitOptions{
		AuthorName:  "TDD Machine",
		AuthorEmail: "tdd@local",
		Exclude:     []string{".git/**", ".tdd/**", "target/**"},
		Protect:     []string{".tdd", ".env"},
	})
	require.NoError(t, g.InitIfNeeded(context.Background()))
	return g, dir
}

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func read(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
	require.NoError(t, err)
	return string(data)
}

func commitAll(t *testing.T, g *GitGateway, msg string) string {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, g.StageAll(ctx))
	id, err := g.Commit(ctx, msg)
	require.NoError(t, err)
	return id
}

func TestGitGateway_InitIfNeededIsIdempotent(t *testing.T) {
	g, dir := newRepo(t)
	assert.DirExists(t, filepath.Join(dir, ".git"))
	require.NoError(t, g.InitIfNeeded(context.Background()))
}

func TestGitGateway_ReadStateEmptyRepo(t *testing.T) {
	g, _ := newRepo(t)

	state, err := g.ReadState(context.Background())
	require.NoError(t, err)
	assert.Empty(t, state.LastCommitMessage)
	assert.Empty(t, state.LastDiff)
	assert.Empty(t, state.Files)
}

func TestGitGateway_CommitAndReadState(t *testing.T) {
	g, dir := newRepo(t)
	ctx := context.Background()

	write(t, dir, ".gitignore", "/target\n")
	write(t, dir, "src/lib.rs", "pub fn add() {}\n")
	write(t, dir, "target/debug/out", "binary")
	write(t, dir, ".tdd/plan/step-1-tester.md", "plan")
	id := commitAll(t, g, "test: first\n\nContext:\n- Role: tester")
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{40,64}$`), id)

	state, err := g.ReadState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "test: first\n\nContext:\n- Role: tester", state.LastCommitMessage)
	assert.Contains(t, state.LastDiff, "+++ b/src/lib.rs")
	assert.Contains(t, state.LastDiff, "+pub fn add() {}")
	assert.NotContains(t, state.LastDiff, ".tdd/plan", "the state dir is never committed")
	assert.Equal(t, []string{".gitignore", "src/lib.rs"}, state.Files)

	write(t, dir, "src/new.rs", "// untracked")
	state, err = g.ReadState(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{".gitignore", "src/lib.rs", "src/new.rs"}, state.Files)
}

func TestGitGateway_EmptyCommitAllowed(t *testing.T) {
	g, dir := newRepo(t)
	write(t, dir, "a.txt", "a")
	first := commitAll(t, g, "one")
	second := commitAll(t, g, "refactor: nothing to change")
	assert.NotEqual(t, first, second)
}

func TestGitGateway_DiscardWorkingChanges(t *testing.T) {
	g, dir := newRepo(t)
	ctx := context.Background()

	write(t, dir, ".gitignore", "/target\n")
	write(t, dir, "src/lib.rs", "original")
	commitAll(t, g, "initial")

	write(t, dir, "src/lib.rs", "modified")
	write(t, dir, "src/extra/new.rs", "untracked")
	write(t, dir, "target/cache", "ignored")
	write(t, dir, ".tdd/plan/step-2-implementor.md", "plan")
	write(t, dir, ".env", "OPENAI_API_KEY=x")
	require.NoError(t, g.StageAll(ctx))

	dirty, err := g.IsDirty(ctx)
	require.NoError(t, err)
	assert.True(t, dirty)

	require.NoError(t, g.DiscardWorkingChanges(ctx))

	assert.Equal(t, "original", read(t, dir, "src/lib.rs"))
	assert.NoDirExists(t, filepath.Join(dir, "src/extra"))
	assert.Equal(t, "ignored", read(t, dir, "target/cache"))
	assert.Equal(t, "plan", read(t, dir, ".tdd/plan/step-2-implementor.md"))
	assert.Equal(t, "OPENAI_API_KEY=x", read(t, dir, ".env"))

	dirty, err = g.IsDirty(ctx)
	require.NoError(t, err)
	assert.False(t, dirty)
}

func TestGitGateway_DiscardWithoutHead(t *testing.T) {
	g, dir := newRepo(t)
	ctx := context.Background()

	write(t, dir, "scratch.txt", "x")
	write(t, dir, ".tdd/plan/step-1-tester.md", "plan")

	require.NoError(t, g.DiscardWorkingChanges(ctx))
	assert.NoFileExists(t, filepath.Join(dir, "scratch.txt"))
	assert.FileExists(t, filepath.Join(dir, ".tdd/plan/step-1-tester.md"))
}

func TestGitGateway_HasHead(t *testing.T) {
	g, dir := newRepo(t)
	ctx := context.Background()

	has, err := g.HasHead(ctx)
	require.NoError(t, err)
	assert.False(t, has)

	write(t, dir, "a", "a")
	commitAll(t, g, "first")
	has, err = g.HasHead(ctx)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestGitGateway_Excluded(t *testing.T) {
	g := NewGitGateway(".", GitOptions{Exclude: []string{"target/**", "**/*.lock"}})
	assert.True(t, g.excluded("target/debug/x"))
	assert.True(t, g.excluded("Cargo.lock"))
	assert.True(t, g.excluded("sub/yarn.lock"))
	assert.False(t, g.excluded("src/lib.rs"))
}

func TestGitGateway_StageAllWithIgnoredStateDir(t *testing.T) {
	g, dir := newRepo(t)
	ctx := context.Background()

	write(t, dir, ".gitignore", "/target\n/.tdd\n.env\n")
	write(t, dir, ".tdd/plan/step-1-tester.md", "plan")
	write(t, dir, ".env", "OPENAI_API_KEY=x")
	write(t, dir, "src/lib.rs", "fn main() {}")

	require.NoError(t, g.StageAll(ctx))
	_, err := g.Commit(ctx, "initial")
	require.NoError(t, err)

	tracked := gitOut(t, dir, "ls-files")
	assert.Contains(t, tracked, "src/lib.rs")
	assert.NotContains(t, tracked, ".tdd")
	assert.NotContains(t, tracked, ".env")

	dirty, err := g.IsDirty(ctx)
	require.NoError(t, err)
	assert.False(t, dirty)
}

func TestGitGateway_ProtectedPathsWrittenOnce(t *testing.T) {
	g, dir := newRepo(t)
	ctx := context.Background()

	write(t, dir, "a.txt", "a")
	require.NoError(t, g.StageAll(ctx))
	require.NoError(t, g.StageAll(ctx))
	_, err := g.IsDirty(ctx)
	require.NoError(t, err)

	exclude := read(t, dir, ".git/info/exclude")
	assert.Equal(t, 1, strings.Count(exclude, "/.tdd\n"))
	assert.Equal(t, 1, strings.Count(exclude, "/.env\n"))
}

func gitOut(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
	return string(out)
}
