package tdd

import "testing"

func outcome(ok bool) CheckOutcome {
	return CheckOutcome{OK: ok}
}

func TestLenientFormatPolicy_Judge(t *testing.T) {
	tests := []struct {
		name   string
		role   Role
		format bool
		static bool
		test   bool
		want   bool
	}{
		{"tester red", RoleTester, true, true, false, true},
		{"tester test passes", RoleTester, true, true, true, false},
		{"tester static fails", RoleTester, true, false, false, false},
		{"tester format fails is ignored", RoleTester, false, true, false, true},
		{"implementor green", RoleImplementor, true, true, true, true},
		{"implementor red", RoleImplementor, true, true, false, false},
		{"implementor static fails", RoleImplementor, true, false, true, false},
		{"implementor format fails is ignored", RoleImplementor, false, true, true, true},
		{"refactorer green", RoleRefactorer, true, true, true, true},
		{"refactorer static fails", RoleRefactorer, true, false, true, false},
		{"refactorer static and test fail", RoleRefactorer, true, false, false, false},
		{"unknown role", Role("reviewer"), true, true, true, false},
	}

	policy := LenientFormatPolicy{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checks := Checks{Format: outcome(tt.format), Static: outcome(tt.static), Test: outcome(tt.test)}
			if got := policy.Judge(tt.role, checks); got != tt.want {
				t.Errorf("Judge() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStrictFormatPolicy_Judge(t *testing.T) {
	policy := StrictFormatPolicy{}

	green := Checks{Format: outcome(true), Static: outcome(true), Test: outcome(true)}
	if !policy.Judge(RoleImplementor, green) {
		t.Error("expected clean green attempt to pass")
	}

	unformatted := Checks{Format: outcome(false), Static: outcome(true), Test: outcome(true)}
	if policy.Judge(RoleImplementor, unformatted) {
		t.Error("expected format failure to fail the attempt")
	}

	red := Checks{Format: outcome(false), Static: outcome(true), Test: outcome(false)}
	if policy.Judge(RoleTester, red) {
		t.Error("expected format failure to fail the tester attempt")
	}
}

func TestPolicyForGate(t *testing.T) {
	p, err := PolicyForGate("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(LenientFormatPolicy); !ok {
		t.Errorf("empty gate = %T, want LenientFormatPolicy", p)
	}

	p, err = PolicyForGate(FormatGateStrict)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(StrictFormatPolicy); !ok {
		t.Errorf("strict gate = %T, want StrictFormatPolicy", p)
	}

	if _, err := PolicyForGate("fatal"); err == nil {
		t.Error("expected error for unknown gate")
	}
}

func TestJudgmentPolicyFunc(t *testing.T) {
	called := false
	var p JudgmentPolicy = JudgmentPolicyFunc(func(role Role, checks Checks) bool {
		called = true
		return role == RoleTester
	})
	if !p.Judge(RoleTester, Checks{}) || !called {
		t.Error("expected func policy to be invoked")
	}
}

func TestChecks_TestVerdict(t *testing.T) {
	if (Checks{Test: outcome(true)}).TestVerdict() != "PASS" {
		t.Error("expected PASS")
	}
	if (Checks{Test: outcome(false)}).TestVerdict() != "FAIL" {
		t.Error("expected FAIL")
	}
}
