package tdd

import (
	"errors"
	"fmt"
)

// Error codes carried by StepError
const (
	CodeAttemptsExhausted = "STEP_ATTEMPTS_EXHAUSTED"
	CodeCollaborator      = "STEP_COLLABORATOR"
	CodeEngineBusy        = "STEP_ENGINE_BUSY"
)

// StepError represents a step that did not complete
type StepError struct {
	Code    string
	Message string
	Step    int
	Role    Role
	Err     error
}

// Error implements the error interface
func (e *StepError) Error() string {
	msg := fmt.Sprintf("[%s] step %d (%s): %s", e.Code, e.Step, e.Role, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying collaborator error, if any
func (e *StepError) Unwrap() error {
	return e.Err
}

// Is matches sentinel StepErrors by code
func (e *StepError) Is(target error) bool {
	t, ok := target.(*StepError)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Step == 0
}

// Sentinels for errors.Is. They match any StepError with the same code.
var (
	ErrAttemptsExhausted = &StepError{Code: CodeAttemptsExhausted, Message: "maximum attempts reached"}
	ErrEngineBusy        = &StepError{Code: CodeEngineBusy, Message: "another step is already running"}
	ErrCollaborator      = &StepError{Code: CodeCollaborator, Message: "collaborator failure"}
)

// NewAttemptsExhaustedError names the step that ran out of attempts
func NewAttemptsExhaustedError(step int, role Role, attempts int) *StepError {
	return &StepError{
		Code:    CodeAttemptsExhausted,
		Message: fmt.Sprintf("maximum attempts reached (%d)", attempts),
		Step:    step,
		Role:    role,
	}
}

// NewCollaboratorError wraps an unexpected failure from producer, verifier, gateway or store
func NewCollaboratorError(step int, role Role, op string, err error) *StepError {
	return &StepError{
		Code:    CodeCollaborator,
		Message: op + " failed",
		Step:    step,
		Role:    role,
		Err:     err,
	}
}

// IsAttemptsExhausted checks if the error is an attempts-exhausted error
func IsAttemptsExhausted(err error) bool {
	return errors.Is(err, ErrAttemptsExhausted)
}

// IsCollaboratorFailure checks if the error came from a collaborator
func IsCollaboratorFailure(err error) bool {
	return errors.Is(err, ErrCollaborator)
}

// IsEngineBusy checks if the error was caused by a concurrent Advance call
func IsEngineBusy(err error) bool {
	return errors.Is(err, ErrEngineBusy)
}
