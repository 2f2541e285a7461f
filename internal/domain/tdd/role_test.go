package tdd

import "testing"

func TestRole_Next(t *testing.T) {
	tests := []struct {
		role Role
		want Role
	}{
		{RoleTester, RoleImplementor},
		{RoleImplementor, RoleRefactorer},
		{RoleRefactorer, RoleTester},
	}

	for _, tt := range tests {
		t.Run(tt.role.String(), func(t *testing.T) {
			if got := tt.role.Next(); got != tt.want {
				t.Errorf("Next() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRole_FullCycleReturnsToStart(t *testing.T) {
	for _, start := range Roles() {
		r := start
		for i := 0; i < 3; i++ {
			r = r.Next()
		}
		if r != start {
			t.Errorf("three rotations from %s ended at %s", start, r)
		}
	}
}

func TestRole_IsValid(t *testing.T) {
	tests := []struct {
		role Role
		want bool
	}{
		{RoleTester, true},
		{RoleImplementor, true},
		{RoleRefactorer, true},
		{Role("reviewer"), false},
		{Role(""), false},
	}

	for _, tt := range tests {
		if got := tt.role.IsValid(); got != tt.want {
			t.Errorf("Role(%q).IsValid() = %v, want %v", tt.role, got, tt.want)
		}
	}
}

func TestRole_Phase(t *testing.T) {
	if RoleTester.Phase() != "red" || RoleImplementor.Phase() != "green" || RoleRefactorer.Phase() != "refactor" {
		t.Error("unexpected phase mapping")
	}
	if RoleTester.ExpectsGreen() {
		t.Error("tester must not expect green")
	}
	if !RoleImplementor.ExpectsGreen() || !RoleRefactorer.ExpectsGreen() {
		t.Error("implementor and refactorer must expect green")
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		input   string
		want    Role
		wantErr bool
	}{
		{"tester", RoleTester, false},
		{"  Implementor ", RoleImplementor, false},
		{"REFACTORER", RoleRefactorer, false},
		{"reviewer", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRole(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRole(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseRole(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestAuditRecord_NextPosition(t *testing.T) {
	rec := AuditRecord{Step: 4, Role: RoleRefactorer}
	step, role := rec.NextPosition()
	if step != 5 || role != RoleTester {
		t.Errorf("NextPosition() = (%d, %s), want (5, tester)", step, role)
	}
}
