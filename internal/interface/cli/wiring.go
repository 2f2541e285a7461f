package cli

import (
	"fmt"
	"os"

	"github.com/YoshitsuguKoike/deetdd/internal/adapter/gateway/agent"
	"github.com/YoshitsuguKoike/deetdd/internal/adapter/gateway/storage"
	"github.com/YoshitsuguKoike/deetdd/internal/adapter/gateway/vcs"
	"github.com/YoshitsuguKoike/deetdd/internal/adapter/gateway/verifier"
	"github.com/YoshitsuguKoike/deetdd/internal/app"
	"github.com/YoshitsuguKoike/deetdd/internal/application/port/output"
	"github.com/YoshitsuguKoike/deetdd/internal/application/service"
	"github.com/YoshitsuguKoike/deetdd/internal/domain/tdd"
)

func (w *workspace) gitGateway() *vcs.GitGateway {
	return vcs.NewGitGateway(w.paths.Root, vcs.GitOptions{
		AuthorName:  w.cfg.Commit.AuthorName,
		AuthorEmail: w.cfg.Commit.AuthorEmail,
		Exclude:     w.cfg.Context.Exclude,
		Protect:     w.paths.ProtectedPaths(),
	})
}

func (w *workspace) auditStore() *storage.FileAuditStore {
	return storage.NewFileAuditStore(w.fs, w.paths.Plans, w.paths.Logs)
}

func (w *workspace) journal() *app.JournalWriter {
	return app.NewJournalWriter(w.fs, w.paths.Journal)
}

func (w *workspace) verifierCommands() verifier.Commands {
	return verifier.Commands{
		Format: w.cfg.CI.FmtCmd,
		Static: w.cfg.CI.CheckCmd,
		Test:   w.cfg.CI.TestCmd,
	}
}

func (w *workspace) gatewayConfig() agent.GatewayConfig {
	llm := w.cfg.LLM
	return agent.GatewayConfig{
		Backend:   llm.Backend,
		BaseURL:   llm.BaseURL,
		APIKey:    os.Getenv(llm.APIKeyEnv),
		APIKeyEnv: llm.APIKeyEnv,
		ClaudeBin: llm.ClaudeBin,
		WorkDir:   w.paths.Root,
		Timeout:   llm.Timeout(),
	}
}

// engineParts are the collaborators of one engine, kept for the commands that
// need them beyond Advance
type engineParts struct {
	engine  *service.StepEngine
	git     *vcs.GitGateway
	store   *storage.FileAuditStore
	journal *app.JournalWriter
}

// buildEngine wires one producer per role, the process verifier, the git
// gateway and file persistence into a StepEngine positioned at step/role
func (w *workspace) buildEngine(step int, role tdd.Role) (*engineParts, error) {
	kata, err := w.kata()
	if err != nil {
		return nil, err
	}

	gateway, err := agent.NewAgentGateway(w.gatewayConfig())
	if err != nil {
		return nil, err
	}
	renderer, err := agent.NewPromptRenderer(w.cfg.Language)
	if err != nil {
		return nil, err
	}
	policy, err := tdd.PolicyForGate(w.cfg.Verification.FormatGate)
	if err != nil {
		return nil, err
	}

	store := w.auditStore()
	producers := make(map[tdd.Role]output.ChangeProducer, len(tdd.Roles()))
	for _, r := range tdd.Roles() {
		settings, err := w.cfg.Roles.ForRole(r)
		if err != nil {
			return nil, err
		}
		p, err := agent.NewLLMChangeProducer(agent.ProducerConfig{
			Role:        r,
			Model:       settings.Model,
			Temperature: settings.Temperature,
			Timeout:     w.cfg.LLM.Timeout(),
			WorkDir:     w.paths.Root,
			Protected:   w.paths.ProtectedPaths(),
		}, gateway, renderer, store, w.fs, w.logger)
		if err != nil {
			return nil, fmt.Errorf("producer for %s: %w", r, err)
		}
		producers[r] = p
	}

	git := w.gitGateway()
	journal := w.journal()
	engine, err := service.NewStepEngine(service.EngineDeps{
		Producers: producers,
		Verifier:  verifier.NewProcessVerifier(w.verifierCommands(), w.paths.Root),
		Gateway:   git,
		Store:     store,
	}, kata, w.cfg.MaxAttemptsPerAgent,
		service.WithPolicy(policy),
		service.WithJournal(journal),
		service.WithLogger(w.logger),
		service.WithStartPosition(step, role),
	)
	if err != nil {
		return nil, err
	}

	return &engineParts{engine: engine, git: git, store: store, journal: journal}, nil
}
