package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/YoshitsuguKoike/deetdd/internal/app"
	"github.com/YoshitsuguKoike/deetdd/internal/application/port/output"
	"github.com/YoshitsuguKoike/deetdd/internal/domain/tdd"
)

// EngineDeps are the collaborators a StepEngine drives
type EngineDeps struct {
	Producers map[tdd.Role]output.ChangeProducer
	Verifier  output.Verifier
	Gateway   output.RepositoryGateway
	Store     output.AuditStore
}

// EngineOption customizes a StepEngine
type EngineOption func(*StepEngine)

// WithPolicy replaces the default lenient judgment policy
func WithPolicy(policy tdd.JudgmentPolicy) EngineOption {
	return func(e *StepEngine) {
		if policy != nil {
			e.policy = policy
		}
	}
}

// WithJournal records every attempt in j
func WithJournal(j output.Journal) EngineOption {
	return func(e *StepEngine) {
		e.journal = j
	}
}

// WithLogger sets the engine logger
func WithLogger(l app.Logger) EngineOption {
	return func(e *StepEngine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithStartPosition starts the cycle at step/role instead of 1/tester
func WithStartPosition(step int, role tdd.Role) EngineOption {
	return func(e *StepEngine) {
		e.currentStep = step
		e.currentRole = role
	}
}

// WithRunID overrides the generated run id
func WithRunID(id string) EngineOption {
	return func(e *StepEngine) {
		if id != "" {
			e.runID = id
		}
	}
}

// StepEngine rotates tester, implementor and refactorer across steps.
// Each Advance call performs one plan -> edit -> verify -> judge -> commit-or-rollback cycle.
// The step and role counters belong to the engine instance and change only on success.
type StepEngine struct {
	producers   map[tdd.Role]output.ChangeProducer
	verifier    output.Verifier
	gateway     output.RepositoryGateway
	store       output.AuditStore
	journal     output.Journal
	policy      tdd.JudgmentPolicy
	logger      app.Logger
	kata        string
	maxAttempts int
	runID       string
	now         func() time.Time

	running atomic.Bool

	mu          sync.RWMutex
	currentStep int
	currentRole tdd.Role
}

// NewStepEngine creates a step engine positioned at step 1 with the tester role
func NewStepEngine(deps EngineDeps, kata string, maxAttempts int, opts ...EngineOption) (*StepEngine, error) {
	if deps.Verifier == nil {
		return nil, errors.New("step engine: verifier is required")
	}
	if deps.Gateway == nil {
		return nil, errors.New("step engine: repository gateway is required")
	}
	if deps.Store == nil {
		return nil, errors.New("step engine: audit store is required")
	}
	if maxAttempts < 1 {
		return nil, fmt.Errorf("step engine: max attempts must be >= 1, got %d", maxAttempts)
	}

	producers := make(map[tdd.Role]output.ChangeProducer, len(tdd.Roles()))
	for _, role := range tdd.Roles() {
		p, ok := deps.Producers[role]
		if !ok || p == nil {
			return nil, fmt.Errorf("step engine: no change producer for role %s", role)
		}
		producers[role] = p
	}

	e := &StepEngine{
		producers:   producers,
		verifier:    deps.Verifier,
		gateway:     deps.Gateway,
		store:       deps.Store,
		policy:      tdd.LenientFormatPolicy{},
		logger:      app.GetLogger(),
		kata:        kata,
		maxAttempts: maxAttempts,
		now:         time.Now,
		currentStep: 1,
		currentRole: tdd.RoleTester,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.currentStep < 1 {
		return nil, fmt.Errorf("step engine: start step must be >= 1, got %d", e.currentStep)
	}
	if !e.currentRole.IsValid() {
		return nil, fmt.Errorf("step engine: invalid start role %q", e.currentRole)
	}
	if e.runID == "" {
		e.runID = tdd.NewRunID(e.now())
	}

	return e, nil
}

// CurrentStep returns the step the next Advance will run
func (e *StepEngine) CurrentStep() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.currentStep
}

// CurrentRole returns the role the next Advance will run
func (e *StepEngine) CurrentRole() tdd.Role {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.currentRole
}

// RunID returns the identifier stamped on records and journal entries
func (e *StepEngine) RunID() string {
	return e.runID
}

// MaxAttempts returns the attempt bound per step
func (e *StepEngine) MaxAttempts() int {
	return e.maxAttempts
}

// Advance performs exactly one step.
// On success it returns the persisted audit record after one commit and one rotation.
// A step that exhausts its attempts returns an error matching tdd.ErrAttemptsExhausted
// and leaves the counters untouched. Any collaborator error aborts immediately.
func (e *StepEngine) Advance(ctx context.Context) (*tdd.AuditRecord, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, tdd.ErrEngineBusy
	}
	defer e.running.Store(false)

	e.mu.RLock()
	step, role := e.currentStep, e.currentRole
	e.mu.RUnlock()

	producer := e.producers[role]

	state, err := e.gateway.ReadState(ctx)
	if err != nil {
		return nil, tdd.NewCollaboratorError(step, role, "read repository state", err)
	}
	stepCtx := BuildStepContext(state, role, step, e.kata)

	e.logger.Info("Planning step %d as %s...", step, role)
	plan, err := producer.Plan(ctx, stepCtx)
	if err != nil {
		return nil, tdd.NewCollaboratorError(step, role, "plan", err)
	}
	if err := e.store.SavePlan(ctx, step, role, plan); err != nil {
		return nil, tdd.NewCollaboratorError(step, role, "save plan", err)
	}

	for attempt := 1; ; attempt++ {
		started := e.now()
		e.logger.Info("Attempt %d/%d...", attempt, e.maxAttempts)

		result, err := producer.Edit(ctx, stepCtx)
		if err != nil {
			e.record(step, role, attempt, started, output.DecisionError, tdd.Checks{}, err)
			return nil, tdd.NewCollaboratorError(step, role, "edit", err)
		}

		e.logger.Info("Verifying...")
		checks, err := e.verify(ctx)
		if err != nil {
			e.record(step, role, attempt, started, output.DecisionError, checks, err)
			return nil, tdd.NewCollaboratorError(step, role, "verify", err)
		}
		if !checks.Format.OK {
			e.logger.Warn("Format check failed: %s", summarizeOutput(checks.Format.Stderr, 20))
		}

		if e.policy.Judge(role, checks) {
			record, err := e.commit(ctx, step, role, plan, attempt, result, checks)
			if err != nil {
				e.record(step, role, attempt, started, output.DecisionError, checks, err)
				return nil, err
			}
			e.record(step, role, attempt, started, output.DecisionPass, checks, nil)
			e.rotate()
			e.logger.Info("Success! step %d committed as %s", step, shortID(record.CommitID))
			return record, nil
		}

		e.logFailure(role, checks)
		if err := e.gateway.DiscardWorkingChanges(ctx); err != nil {
			e.record(step, role, attempt, started, output.DecisionError, checks, err)
			return nil, tdd.NewCollaboratorError(step, role, "discard working changes", err)
		}

		if attempt >= e.maxAttempts {
			exhausted := tdd.NewAttemptsExhaustedError(step, role, attempt)
			e.record(step, role, attempt, started, output.DecisionExhausted, checks, exhausted)
			return nil, exhausted
		}
		e.record(step, role, attempt, started, output.DecisionRetry, checks, nil)
	}
}

// verify runs all three checks in order; a failing check never skips the next one
func (e *StepEngine) verify(ctx context.Context) (tdd.Checks, error) {
	var checks tdd.Checks
	var err error

	if checks.Format, err = e.verifier.Format(ctx); err != nil {
		return checks, fmt.Errorf("format: %w", err)
	}
	if checks.Static, err = e.verifier.StaticCheck(ctx); err != nil {
		return checks, fmt.Errorf("static check: %w", err)
	}
	if checks.Test, err = e.verifier.Test(ctx); err != nil {
		return checks, fmt.Errorf("test: %w", err)
	}
	return checks, nil
}

func (e *StepEngine) commit(ctx context.Context, step int, role tdd.Role, plan string, attempt int, result *tdd.StepResult, checks tdd.Checks) (*tdd.AuditRecord, error) {
	if err := e.gateway.StageAll(ctx); err != nil {
		return nil, tdd.NewCollaboratorError(step, role, "stage", err)
	}

	message := ComposeCommitMessage(role, step, result, checks)
	commitID, err := e.gateway.Commit(ctx, message)
	if err != nil {
		return nil, tdd.NewCollaboratorError(step, role, "commit", err)
	}

	files := make([]string, len(result.FilesChanged))
	copy(files, result.FilesChanged)

	record := &tdd.AuditRecord{
		RunID:         e.runID,
		Step:          step,
		Role:          role,
		Plan:          plan,
		Attempts:      attempt,
		CommitID:      commitID,
		CommitMessage: message,
		FilesChanged:  files,
		FormatOutcome: checks.Format,
		CheckOutcome:  checks.Static,
		TestOutcome:   checks.Test,
		CompletedAt:   e.now().UTC(),
	}
	if err := e.store.SaveRecord(ctx, record); err != nil {
		return nil, tdd.NewCollaboratorError(step, role, "save audit record", err)
	}
	return record, nil
}

func (e *StepEngine) rotate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.currentRole = e.currentRole.Next()
	e.currentStep++
}

func (e *StepEngine) logFailure(role tdd.Role, checks tdd.Checks) {
	switch {
	case !checks.Static.OK:
		e.logger.Warn("Verification failed: static check did not pass\n%s", summarizeOutput(checks.Static.Stderr+checks.Static.Stdout, 20))
	case role == tdd.RoleTester && checks.Test.OK:
		e.logger.Warn("Verification failed: tests pass but the tester must leave a failing test")
	case role.ExpectsGreen() && !checks.Test.OK:
		e.logger.Warn("Verification failed: tests do not pass\n%s", summarizeOutput(checks.Test.Stdout+checks.Test.Stderr, 20))
	default:
		e.logger.Warn("Verification failed.")
	}
}

// record appends a journal entry; journal problems never change the step outcome
func (e *StepEngine) record(step int, role tdd.Role, attempt int, started time.Time, decision string, checks tdd.Checks, cause error) {
	if e.journal == nil {
		return
	}
	entry := &output.JournalEntry{
		TS:        output.NowTS(e.now()),
		RunID:     e.runID,
		Step:      step,
		Role:      role.String(),
		Attempt:   attempt,
		Decision:  decision,
		ElapsedMs: e.now().Sub(started).Milliseconds(),
		FormatOK:  checks.Format.OK,
		CheckOK:   checks.Static.OK,
		TestOK:    checks.Test.OK,
	}
	if cause != nil {
		entry.Error = cause.Error()
	}
	if err := e.journal.Append(entry); err != nil {
		e.logger.Warn("failed to append journal entry: %v", err)
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
