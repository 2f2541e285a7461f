package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/deetdd/internal/app"
	"github.com/YoshitsuguKoike/deetdd/internal/application/port/output"
	"github.com/YoshitsuguKoike/deetdd/internal/domain/tdd"
)

// maxFileBytes bounds the size of a single file shown to the model
const maxFileBytes = 256 * 1024

// ProducerConfig configures one role's LLMChangeProducer
type ProducerConfig struct {
	Role        tdd.Role
	Model       string
	Temperature float32
	Timeout     time.Duration
	WorkDir     string
	// Protected lists slash-separated paths relative to WorkDir that edits may not touch
	Protected []string
}

// LLMChangeProducer implements ChangeProducer with a completion backend.
// Plan asks the model for an edit plan; Edit applies the plan persisted for the same step.
type LLMChangeProducer struct {
	cfg      ProducerConfig
	gateway  output.AgentGateway
	renderer *PromptRenderer
	plans    output.AuditStore
	fs       afero.Fs
	logger   app.Logger
}

var _ output.ChangeProducer = (*LLMChangeProducer)(nil)

// NewLLMChangeProducer wires a producer for cfg.Role
func NewLLMChangeProducer(cfg ProducerConfig, gateway output.AgentGateway, renderer *PromptRenderer, plans output.AuditStore, fs afero.Fs, logger app.Logger) (*LLMChangeProducer, error) {
	if !cfg.Role.IsValid() {
		return nil, fmt.Errorf("invalid role: %q", cfg.Role)
	}
	if gateway == nil || renderer == nil || plans == nil || fs == nil {
		return nil, errors.New("producer: gateway, renderer, plan store and filesystem are required")
	}
	if logger == nil {
		logger = app.GetLogger()
	}
	return &LLMChangeProducer{cfg: cfg, gateway: gateway, renderer: renderer, plans: plans, fs: fs, logger: logger}, nil
}

// Plan renders the prompts for stepCtx and returns the model's answer without code fences
func (p *LLMChangeProducer) Plan(ctx context.Context, stepCtx tdd.StepContext) (string, error) {
	system, err := p.renderer.SystemPrompt(p.cfg.Role)
	if err != nil {
		return "", err
	}
	user, err := p.renderer.UserPrompt(stepCtx, p.readFiles(stepCtx.FileList))
	if err != nil {
		return "", err
	}
	p.logger.Debug("prompt for step %d (%s): %d bytes", stepCtx.StepIndex, p.cfg.Role, len(system)+len(user))

	resp, err := p.gateway.Execute(ctx, output.AgentRequest{
		SystemPrompt: system,
		Prompt:       user,
		Model:        p.cfg.Model,
		Temperature:  p.cfg.Temperature,
		Timeout:      p.cfg.Timeout,
	})
	if err != nil {
		return "", fmt.Errorf("%s plan: %w", p.cfg.Role, err)
	}
	p.logger.Debug("%s answered in %s", resp.AgentType, resp.Duration.Round(time.Millisecond))

	return StripCodeFences(resp.Output), nil
}

// Edit applies the persisted plan for (step, role) to the work dir
func (p *LLMChangeProducer) Edit(ctx context.Context, stepCtx tdd.StepContext) (*tdd.StepResult, error) {
	text, err := p.plans.LoadPlan(ctx, stepCtx.StepIndex, p.cfg.Role)
	if err != nil {
		return nil, err
	}
	plan, err := ParseEditPlan(text)
	if err != nil {
		return nil, err
	}

	for _, e := range plan.Edits {
		if p.isProtected(e.Path) {
			return nil, fmt.Errorf("%w: path %q is reserved for the engine", ErrInvalidEditPlan, e.Path)
		}
	}

	var changed []string
	seen := make(map[string]bool, len(plan.Edits))
	for _, e := range plan.Edits {
		full := filepath.Join(p.cfg.WorkDir, filepath.FromSlash(e.Path))
		if err := p.fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return nil, fmt.Errorf("create parent of %s: %w", e.Path, err)
		}
		if err := afero.WriteFile(p.fs, full, []byte(e.Content), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", e.Path, err)
		}
		if !seen[e.Path] {
			seen[e.Path] = true
			changed = append(changed, e.Path)
		}
	}

	return &tdd.StepResult{
		FilesChanged:  changed,
		CommitMessage: plan.CommitMessage,
		Notes:         plan.Notes,
	}, nil
}

// isProtected reports whether rel equals or lies under a protected path
func (p *LLMChangeProducer) isProtected(rel string) bool {
	for _, prot := range p.cfg.Protected {
		prot = strings.TrimSuffix(path.Clean(prot), "/")
		if strings.EqualFold(rel, prot) || (len(rel) > len(prot) && strings.EqualFold(rel[:len(prot)+1], prot+"/")) {
			return true
		}
	}
	return false
}

// readFiles loads listed files that still exist, skipping large and non UTF-8 ones
func (p *LLMChangeProducer) readFiles(paths []string) []FileContent {
	var files []FileContent
	for _, rel := range paths {
		full := filepath.Join(p.cfg.WorkDir, filepath.FromSlash(rel))
		info, err := p.fs.Stat(full)
		if err != nil || info.IsDir() {
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				p.logger.Warn("skip %s: %v", rel, err)
			}
			continue
		}
		if info.Size() > maxFileBytes {
			files = append(files, FileContent{Path: rel, Content: fmt.Sprintf("(omitted: %d bytes)", info.Size())})
			continue
		}
		data, err := afero.ReadFile(p.fs, full)
		if err != nil {
			p.logger.Warn("skip %s: %v", rel, err)
			continue
		}
		if !utf8.Valid(data) {
			files = append(files, FileContent{Path: rel, Content: "(omitted: binary)"})
			continue
		}
		files = append(files, FileContent{Path: rel, Content: string(data)})
	}
	return files
}
