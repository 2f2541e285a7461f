package tdd

import (
	"fmt"
	"strings"
)

// Role represents one of the three personas that take turns in the cycle
type Role string

const (
	RoleTester      Role = "tester"      // Red: writes a failing test
	RoleImplementor Role = "implementor" // Green: makes the test pass
	RoleRefactorer  Role = "refactorer"  // Refactor: improves structure
)

// Roles returns all roles in cycle order
func Roles() []Role {
	return []Role{RoleTester, RoleImplementor, RoleRefactorer}
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsValid returns true if the role is one of the known roles
func (r Role) IsValid() bool {
	switch r {
	case RoleTester, RoleImplementor, RoleRefactorer:
		return true
	default:
		return false
	}
}

// Next returns the role that follows r in the cycle
// Tester -> Implementor -> Refactorer -> Tester
func (r Role) Next() Role {
	switch r {
	case RoleTester:
		return RoleImplementor
	case RoleImplementor:
		return RoleRefactorer
	case RoleRefactorer:
		return RoleTester
	default:
		return RoleTester
	}
}

// Phase returns the TDD phase owned by the role
func (r Role) Phase() string {
	switch r {
	case RoleTester:
		return "red"
	case RoleImplementor:
		return "green"
	case RoleRefactorer:
		return "refactor"
	default:
		return "unknown"
	}
}

// ExpectsGreen reports whether the role must leave the test suite passing
func (r Role) ExpectsGreen() bool {
	return r == RoleImplementor || r == RoleRefactorer
}

// ParseRole converts a string to a Role (case-insensitive)
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	if !role.IsValid() {
		return "", fmt.Errorf("unknown role: %q (supported: tester, implementor, refactorer)", s)
	}
	return role, nil
}
