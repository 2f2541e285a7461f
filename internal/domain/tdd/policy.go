package tdd

import "fmt"

// FormatGate selects how format check failures are treated
type FormatGate string

const (
	FormatGateLenient FormatGate = "lenient" // format is observed but never gates success
	FormatGateStrict  FormatGate = "strict"  // format failure fails the attempt
)

// JudgmentPolicy decides whether an attempt satisfied the role's contract.
// Implementations must be free of side effects.
type JudgmentPolicy interface {
	Judge(role Role, checks Checks) bool
}

// JudgmentPolicyFunc adapts a plain function to JudgmentPolicy
type JudgmentPolicyFunc func(role Role, checks Checks) bool

// Judge calls f(role, checks)
func (f JudgmentPolicyFunc) Judge(role Role, checks Checks) bool {
	return f(role, checks)
}

// LenientFormatPolicy implements the red/green predicate table:
//
//	tester:               static ok && test failed
//	implementor/refactor: static ok && test passed
//
// The format outcome is recorded but ignored.
type LenientFormatPolicy struct{}

// Judge applies the predicate table
func (LenientFormatPolicy) Judge(role Role, checks Checks) bool {
	if !checks.Static.OK {
		return false
	}
	switch role {
	case RoleTester:
		return !checks.Test.OK
	case RoleImplementor, RoleRefactorer:
		return checks.Test.OK
	default:
		return false
	}
}

// StrictFormatPolicy is LenientFormatPolicy that also requires a clean format check
type StrictFormatPolicy struct{}

// Judge applies the predicate table and the format gate
func (StrictFormatPolicy) Judge(role Role, checks Checks) bool {
	return checks.Format.OK && LenientFormatPolicy{}.Judge(role, checks)
}

// PolicyForGate returns the policy matching a configured format gate.
// An empty gate selects the lenient policy.
func PolicyForGate(gate FormatGate) (JudgmentPolicy, error) {
	switch gate {
	case "", FormatGateLenient:
		return LenientFormatPolicy{}, nil
	case FormatGateStrict:
		return StrictFormatPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown format gate: %q (supported: lenient, strict)", gate)
	}
}
