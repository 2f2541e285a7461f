package embed

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/deetdd/internal/infra/persistence/file"
)

//go:embed templates/prompts/*.tmpl templates/scaffold
var templatesFS embed.FS

// Template represents a file written by init
type Template struct {
	Path    string
	Content []byte
	Mode    os.FileMode
}

// PromptFS returns the role prompt templates rooted at their directory
func PromptFS() fs.FS {
	sub, err := fs.Sub(templatesFS, "templates/prompts")
	if err != nil {
		panic(err)
	}
	return sub
}

// ScaffoldTemplates returns the files init writes for a kata in language.
// Files shared by every language come first.
func ScaffoldTemplates(language string) ([]Template, error) {
	if _, err := fs.Stat(templatesFS, path.Join("templates/scaffold", language)); err != nil {
		return nil, fmt.Errorf("no scaffold for language %q", language)
	}

	var templates []Template
	for _, dir := range []string{"common", language} {
		root := path.Join("templates/scaffold", dir)
		err := fs.WalkDir(templatesFS, root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}

			content, err := templatesFS.ReadFile(p)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", p, err)
			}

			templates = append(templates, Template{
				Path:    destPath(strings.TrimPrefix(p, root+"/")),
				Content: content,
				Mode:    0o644,
			})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return templates, nil
}

// destPath maps an embedded name to its workspace name:
// ".tmpl" is dropped and a "dot_" prefix becomes a leading dot.
func destPath(name string) string {
	name = strings.TrimSuffix(name, ".tmpl")
	dir, base := path.Split(name)
	if strings.HasPrefix(base, "dot_") {
		base = "." + strings.TrimPrefix(base, "dot_")
	}
	return filepath.FromSlash(dir + base)
}

// WriteTemplateResult represents the result of writing a template
type WriteTemplateResult struct {
	Path   string
	Action string // "WROTE", "SKIP", "WROTE (force)"
}

// WriteTemplate writes a template file atomically and returns the action taken
func WriteTemplate(fsys afero.Fs, baseDir string, tmpl Template, force bool) (*WriteTemplateResult, error) {
	fullPath := filepath.Join(baseDir, tmpl.Path)
	result := &WriteTemplateResult{Path: tmpl.Path}

	exists, err := afero.Exists(fsys, fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", fullPath, err)
	}
	if exists && !force {
		result.Action = "SKIP"
		return result, nil
	}

	if err := file.WriteFileAtomic(fsys, fullPath, tmpl.Content, tmpl.Mode); err != nil {
		return nil, err
	}

	if exists {
		result.Action = "WROTE (force)"
	} else {
		result.Action = "WROTE"
	}
	return result, nil
}
