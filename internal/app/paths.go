package app

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultHome is the state directory created inside the kata workspace
const DefaultHome = ".tdd"

// Paths holds all resolved paths for the .tdd structure
type Paths struct {
	Root  string // kata workspace (git work tree)
	Home  string // .tdd directory
	Plans string // .tdd/plan
	Logs  string // .tdd/logs

	// Key files
	Journal string // .tdd/journal.ndjson
	Health  string // .tdd/health.json
	Lock    string // .tdd/run.lock
	Config  string // tdd.yaml
	Kata    string // kata.md (default; config may point elsewhere)
	Env     string // .env
}

// ResolvePaths returns all paths for the workspace rooted at root.
// TDD_HOME overrides the state directory; a relative value is taken relative to root.
func ResolvePaths(root string) Paths {
	home := os.Getenv("TDD_HOME")
	if home == "" {
		home = DefaultHome
	}
	if !filepath.IsAbs(home) {
		home = filepath.Join(root, home)
	}

	return Paths{
		Root:    root,
		Home:    home,
		Plans:   filepath.Join(home, "plan"),
		Logs:    filepath.Join(home, "logs"),
		Journal: filepath.Join(home, "journal.ndjson"),
		Health:  filepath.Join(home, "health.json"),
		Lock:    filepath.Join(home, "run.lock"),
		Config:  filepath.Join(root, "tdd.yaml"),
		Kata:    filepath.Join(root, "kata.md"),
		Env:     filepath.Join(root, ".env"),
	}
}

// ProtectedPaths returns the work-dir relative paths that git must never stage or clean:
// the state directory when it lives inside the work tree, and the .env file
func (p Paths) ProtectedPaths() []string {
	var protected []string
	if rel, err := filepath.Rel(p.Root, p.Home); err == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		protected = append(protected, filepath.ToSlash(rel))
	}
	if rel, err := filepath.Rel(p.Root, p.Env); err == nil {
		protected = append(protected, filepath.ToSlash(rel))
	}
	return protected
}
