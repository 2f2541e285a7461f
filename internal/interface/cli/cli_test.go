package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/deetdd/internal/app"
	"github.com/YoshitsuguKoike/deetdd/internal/app/config"
	"github.com/YoshitsuguKoike/deetdd/internal/application/usecase/run"
	"github.com/YoshitsuguKoike/deetdd/internal/domain/tdd"
	"github.com/YoshitsuguKoike/deetdd/internal/testutil"
)

// execute runs the root command with args and returns stdout
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRoot()
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.Execute()
	return stdout.String(), err
}

func TestRootRegistersCommands(t *testing.T) {
	root := NewRoot()
	for _, name := range []string{"init", "run", "step", "status", "doctor", "version"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
		assert.NotNil(t, cmd.RunE, name)
	}

	runCmd, _, err := root.Find([]string{"run"})
	require.NoError(t, err)
	assert.NotNil(t, runCmd.Flags().Lookup("steps"))
	resume := runCmd.Flags().Lookup("resume")
	require.NotNil(t, resume)
	assert.Equal(t, "true", resume.DefValue)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "deetdd dev"), out)
}

func TestCommandsRequireConfig(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"run", "step", "status", "doctor"} {
		_, err := execute(t, "-C", dir, name)
		require.Error(t, err, name)
		assert.Contains(t, err.Error(), "deetdd init", name)
	}
}

func TestInit_ScaffoldsAndCommits(t *testing.T) {
	testutil.RequireGit(t)
	dir := t.TempDir()

	out, err := execute(t, "-C", dir, "init", "--language", "go")
	require.NoError(t, err)
	assert.Contains(t, out, "WROTE")
	assert.Contains(t, out, "Initial kata scaffold")

	for _, f := range []string{"tdd.yaml", "kata.md", ".gitignore", "go.mod", "kata.go"} {
		testutil.AssertFileExists(t, filepath.Join(dir, f))
	}
	testutil.AssertFileExists(t, filepath.Join(dir, ".tdd", "plan"))
	testutil.AssertFileExists(t, filepath.Join(dir, ".tdd", "logs"))

	assert.Equal(t, "Initial kata scaffold", testutil.Git(t, dir, "log", "-1", "--format=%s"))
	tracked := testutil.Git(t, dir, "ls-files")
	assert.Contains(t, tracked, "kata.go")
	assert.NotContains(t, tracked, ".tdd")

	// A second init keeps existing files and does not commit again
	out, err = execute(t, "-C", dir, "init", "--language", "go")
	require.NoError(t, err)
	assert.Contains(t, out, "SKIP")
	assert.NotContains(t, out, "committed")
	assert.Equal(t, "1", testutil.Git(t, dir, "rev-list", "--count", "HEAD"))
}

func TestInit_UnknownLanguage(t *testing.T) {
	_, err := execute(t, "-C", t.TempDir(), "init", "--language", "cobol")
	assert.ErrorContains(t, err, "cobol")
}

func TestStatus_FreshKata(t *testing.T) {
	testutil.RequireGit(t)
	dir := t.TempDir()
	_, err := execute(t, "-C", dir, "init")
	require.NoError(t, err)

	out, err := execute(t, "-C", dir, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Committed steps: 0")
	assert.Contains(t, out, "step 1 (tester, red)")

	out, err = execute(t, "-C", dir, "status", "--json")
	require.NoError(t, err)
	var status run.StatusOutput
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, 1, status.NextStep)
	assert.Equal(t, tdd.RoleTester, status.NextRole)
}

func TestDoctor_ReportsMissingBinaries(t *testing.T) {
	dir := t.TempDir()
	cfg := strings.Replace(config.DefaultYAML("rust"), `backend: "openai"`, `backend: "claude-code-cli"
  claude_bin: "definitely-not-a-claude-binary"`, 1)
	cfg = strings.Replace(cfg, `["cargo", "test", "--all"]`, `["definitely-not-a-test-runner"]`, 1)
	testutil.WriteFile(t, dir, "tdd.yaml", cfg)
	testutil.WriteFile(t, dir, "kata.md", "# Bowling\n")

	out, err := execute(t, "-C", dir, "doctor", "--json")
	require.Error(t, err)

	var report DoctorJSON
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "claude-code-cli", report.Backend)
	assert.GreaterOrEqual(t, report.Errors, 2)

	failed := map[string]bool{}
	for _, c := range report.Checks {
		if !c.OK {
			failed[c.Name] = true
		}
	}
	assert.True(t, failed["claude"])
	assert.True(t, failed["verifier definitely-not-a-test-runner"])
	assert.False(t, failed["kata"])
}

func TestWorkspaceKata(t *testing.T) {
	dir := t.TempDir()
	ws := &workspace{fs: afero.NewOsFs(), paths: app.ResolvePaths(dir), cfg: &config.Config{}}

	testutil.WriteFile(t, dir, "kata.md", "  # FizzBuzz\n\n")
	ws.cfg.KataDescription = "kata.md"
	kata, err := ws.kata()
	require.NoError(t, err)
	assert.Equal(t, "# FizzBuzz", kata)

	ws.cfg.KataDescription = "missing.md"
	_, err = ws.kata()
	assert.ErrorContains(t, err, "not found")

	ws.cfg.KataDescription = "Implement a stack with push and pop"
	kata, err = ws.kata()
	require.NoError(t, err)
	assert.Equal(t, "Implement a stack with push and pop", kata)

	testutil.WriteFile(t, dir, "empty.md", "\n")
	ws.cfg.KataDescription = "empty.md"
	_, err = ws.kata()
	assert.ErrorContains(t, err, "empty")
}

// fakeClaudeKata initializes a kata whose backend is a fake claude printing plan.
// Format and static checks always pass; testCmd decides the test verdict.
func fakeClaudeKata(t *testing.T, plan map[string]any, testCmd string) string {
	t.Helper()
	testutil.RequireGit(t)
	testutil.RequireShell(t)

	dir := t.TempDir()
	planJSON, err := json.Marshal(plan)
	require.NoError(t, err)
	wrapped, err := json.Marshal(map[string]any{"type": "result", "is_error": false, "result": string(planJSON)})
	require.NoError(t, err)

	binDir := t.TempDir()
	respFile := testutil.WriteFile(t, binDir, "response.json", string(wrapped))
	claude := testutil.FakeBinary(t, binDir, "claude", "cat "+respFile)

	cfg := config.DefaultYAML("go")
	cfg = strings.Replace(cfg, `backend: "openai"`, `backend: "claude-code-cli"
  claude_bin: "`+claude+`"`, 1)
	cfg = strings.Replace(cfg, `["go", "test", "./..."]`, testCmd, 1)
	cfg = strings.Replace(cfg, `["go", "vet", "./..."]`, `["true"]`, 1)
	cfg = strings.Replace(cfg, `["gofmt", "-l", "-w", "."]`, `["true"]`, 1)
	cfg = strings.Replace(cfg, "max_attempts_per_agent: 5", "max_attempts_per_agent: 2", 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tdd.yaml"), []byte(cfg), 0o644))
	testutil.WriteFile(t, dir, "kata.md", "# Adder\nAdd two numbers.\n")

	// init keeps the files above and commits them with the scaffold
	_, err = execute(t, "-C", dir, "init", "--language", "go")
	require.NoError(t, err)
	return dir
}

func TestStep_TesterCommitsFailingTest(t *testing.T) {
	dir := fakeClaudeKata(t, map[string]any{
		"edits": []map[string]string{{
			"path":    "kata_test.go",
			"action":  "upsert",
			"content": "package kata\n",
		}},
		"commit_message": "test: add adder test",
		"notes":          "adder must add",
	}, `["false"]`)

	out, err := execute(t, "-C", dir, "step", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "step 1 tester")
	assert.Contains(t, out, "next: step 2 (implementor)")

	assert.Equal(t, "test: add adder test", testutil.Git(t, dir, "log", "-1", "--format=%s"))
	assert.Contains(t, testutil.Git(t, dir, "show", "--name-only", "--format=", "HEAD"), "kata_test.go")
	testutil.AssertFileExists(t, filepath.Join(dir, ".tdd", "plan", "step-1-tester.md"))
	testutil.AssertFileExists(t, filepath.Join(dir, ".tdd", "logs", "step-1-tester.json"))
	testutil.AssertFileExists(t, filepath.Join(dir, ".tdd", "health.json"))
	testutil.AssertFileNotExists(t, filepath.Join(dir, ".tdd", "run.lock"))

	out, err = execute(t, "-C", dir, "status", "--json")
	require.NoError(t, err)
	var status run.StatusOutput
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, 1, status.CommittedSteps)
	assert.Equal(t, tdd.RoleImplementor, status.NextRole)
	assert.False(t, status.Stalled)
}

func TestRun_ImplementorExhaustsAndRollsBack(t *testing.T) {
	dir := fakeClaudeKata(t, map[string]any{
		"edits": []map[string]string{{
			"path":    "kata_test.go",
			"action":  "upsert",
			"content": "package kata\n",
		}},
		"commit_message": "step",
		"notes":          "n",
	}, `["false"]`)

	// Tester succeeds with a failing test; the implementor can never make it pass
	_, err := execute(t, "-C", dir, "run", "--steps", "2", "--log-level", "error")
	require.Error(t, err)
	assert.True(t, tdd.IsAttemptsExhausted(err), err.Error())

	assert.Equal(t, "2", testutil.Git(t, dir, "rev-list", "--count", "HEAD"))
	assert.Empty(t, testutil.Git(t, dir, "status", "--porcelain"))

	out, err := execute(t, "-C", dir, "status", "--json")
	require.NoError(t, err)
	var status run.StatusOutput
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, 1, status.CommittedSteps)
	assert.Equal(t, 2, status.NextStep)
	assert.True(t, status.Stalled)
	require.NotNil(t, status.LastAttempt)
	assert.Equal(t, 2, status.LastAttempt.Attempt)
}

func adderPlan() map[string]any {
	return map[string]any{
		"edits": []map[string]string{{
			"path":    "kata_test.go",
			"action":  "upsert",
			"content": "package kata\n",
		}},
		"commit_message": "test: add adder test",
		"notes":          "adder must add",
	}
}

// redAfterScaffold fails on the scaffold commit alone so the tester's step is red,
// and passes once that step is committed
const redAfterScaffold = `["sh", "-c", "test $(git rev-list --count HEAD) -ge 2"]`

func TestStep_RefusesUncommittedUserEdits(t *testing.T) {
	dir := fakeClaudeKata(t, adderPlan(), `["false"]`)
	edited := "# Adder\nAdd two numbers.\nNegative numbers are rejected.\n"
	testutil.WriteFile(t, dir, "kata.md", edited)

	_, err := execute(t, "-C", dir, "step", "--log-level", "error")
	require.ErrorIs(t, err, app.ErrUncommittedChanges)

	data, err := os.ReadFile(filepath.Join(dir, "kata.md"))
	require.NoError(t, err)
	assert.Equal(t, edited, string(data))
	assert.Equal(t, "1", testutil.Git(t, dir, "rev-list", "--count", "HEAD"))
}

func TestStep_DiscardsInterruptedStepResidue(t *testing.T) {
	dir := fakeClaudeKata(t, adderPlan(), redAfterScaffold)
	_, err := execute(t, "-C", dir, "step", "--log-level", "error")
	require.NoError(t, err)

	// step 2 saved its plan and edited the tree, then the process died
	testutil.WriteFile(t, filepath.Join(dir, ".tdd", "plan"), "step-2-implementor.md", "{}")
	testutil.WriteFile(t, dir, "half_done.go", "package kata\n")

	out, err := execute(t, "-C", dir, "step", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "step 2 implementor")
	testutil.AssertFileNotExists(t, filepath.Join(dir, "half_done.go"))
	assert.Empty(t, testutil.Git(t, dir, "status", "--porcelain"))
}

func TestStep_CommitWithoutRecordIsNotReplayed(t *testing.T) {
	dir := fakeClaudeKata(t, adderPlan(), redAfterScaffold)
	_, err := execute(t, "-C", dir, "step", "--log-level", "error")
	require.NoError(t, err)

	// the commit landed but the audit record write failed
	require.NoError(t, os.Remove(filepath.Join(dir, ".tdd", "logs", "step-1-tester.json")))

	out, err := execute(t, "-C", dir, "step", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "step 2 implementor")
	assert.Equal(t, "3", testutil.Git(t, dir, "rev-list", "--count", "HEAD"))
	assert.Contains(t, testutil.Git(t, dir, "log", "-1", "--format=%B"), "- Step: 2")
}
