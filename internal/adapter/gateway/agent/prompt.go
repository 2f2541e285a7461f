package agent

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/sourcegraph/go-diff/diff"

	"github.com/YoshitsuguKoike/deetdd/internal/domain/tdd"
	"github.com/YoshitsuguKoike/deetdd/internal/embed"
)

// languageProfile fills the language specific parts of the role prompts
type languageProfile struct {
	Language     string
	LanguageName string
	TestLocation string
	StaticCheck  string
	ExamplePath  string
}

var languageProfiles = map[string]languageProfile{
	"rust": {
		Language:     "rust",
		LanguageName: "Rust",
		TestLocation: "in #[cfg(test)] mod tests or #[test] functions",
		StaticCheck:  "cargo clippy",
		ExamplePath:  "src/lib.rs",
	},
	"go": {
		Language:     "go",
		LanguageName: "Go",
		TestLocation: "in _test.go files",
		StaticCheck:  "go vet",
		ExamplePath:  "kata_test.go",
	},
}

var commitPrefixes = map[tdd.Role]string{
	tdd.RoleTester:      "test",
	tdd.RoleImplementor: "feat",
	tdd.RoleRefactorer:  "refactor",
}

// FileContent is one listed file shown to the producer
type FileContent struct {
	Path    string
	Content string
}

type systemPromptData struct {
	languageProfile
	CommitPrefix string
}

type userPromptData struct {
	Step        int
	Role        string
	Kata        string
	LastCommit  string
	DiffSummary string
	LastDiff    string
	Files       []FileContent
}

// PromptRenderer renders the embedded role prompts for one kata language
type PromptRenderer struct {
	tmpl    *template.Template
	profile languageProfile
}

// NewPromptRenderer parses the embedded templates for language
func NewPromptRenderer(language string) (*PromptRenderer, error) {
	profile, ok := languageProfiles[language]
	if !ok {
		return nil, fmt.Errorf("unsupported kata language: %q", language)
	}

	tmpl, err := template.New("prompts").Funcs(sprig.TxtFuncMap()).ParseFS(embed.PromptFS(), "*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse prompt templates: %w", err)
	}
	return &PromptRenderer{tmpl: tmpl, profile: profile}, nil
}

// SystemPrompt renders the instructions for role
func (r *PromptRenderer) SystemPrompt(role tdd.Role) (string, error) {
	if !role.IsValid() {
		return "", fmt.Errorf("invalid role: %q", role)
	}
	data := systemPromptData{languageProfile: r.profile, CommitPrefix: commitPrefixes[role]}
	return r.execute(role.String()+".md.tmpl", data)
}

// UserPrompt renders the step context and the current file contents
func (r *PromptRenderer) UserPrompt(stepCtx tdd.StepContext, files []FileContent) (string, error) {
	data := userPromptData{
		Step:        stepCtx.StepIndex,
		Role:        stepCtx.Role.String(),
		Kata:        stepCtx.KataDescription,
		LastCommit:  stepCtx.LastCommitMessage,
		DiffSummary: SummarizeDiff(stepCtx.LastDiff),
		LastDiff:    stepCtx.LastDiff,
		Files:       files,
	}
	return r.execute("user.md.tmpl", data)
}

func (r *PromptRenderer) execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()) + "\n", nil
}

// SummarizeDiff lists each file touched by a unified diff with its added and removed line counts.
// An empty or unparsable diff yields "".
func SummarizeDiff(patch string) string {
	if strings.TrimSpace(patch) == "" {
		return ""
	}
	fileDiffs, err := diff.NewMultiFileDiffReader(strings.NewReader(patch)).ReadAllFiles()
	if err != nil || len(fileDiffs) == 0 {
		return ""
	}

	var b strings.Builder
	for _, fd := range fileDiffs {
		name := strings.TrimPrefix(fd.NewName, "b/")
		status := "modified"
		switch {
		case fd.OrigName == "/dev/null":
			status = "added"
		case fd.NewName == "/dev/null":
			status = "deleted"
			name = strings.TrimPrefix(fd.OrigName, "a/")
		}
		if name == "" {
			name = fileNameFromExtended(fd.Extended)
		}

		added, removed := 0, 0
		for _, hunk := range fd.Hunks {
			for _, line := range strings.Split(string(hunk.Body), "\n") {
				switch {
				case strings.HasPrefix(line, "+"):
					added++
				case strings.HasPrefix(line, "-"):
					removed++
				}
			}
		}
		fmt.Fprintf(&b, "- %s (%s, +%d -%d)\n", name, status, added, removed)
	}
	return strings.TrimRight(b.String(), "\n")
}

// fileNameFromExtended recovers the path of a hunkless entry from its "diff --git a/x b/x" header
func fileNameFromExtended(extended []string) string {
	for _, line := range extended {
		if rest, ok := strings.CutPrefix(line, "diff --git "); ok {
			if i := strings.LastIndex(rest, " b/"); i >= 0 {
				return rest[i+3:]
			}
		}
	}
	return "(unknown)"
}
