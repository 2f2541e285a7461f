package config

import (
	"fmt"
	"time"

	"github.com/YoshitsuguKoike/deetdd/internal/domain/tdd"
)

// Config is the contents of tdd.yaml
type Config struct {
	KataDescription     string       `yaml:"kata_description" validate:"required"`
	Language            string       `yaml:"language" validate:"required,oneof=rust go"`
	Steps               int          `yaml:"steps" validate:"gte=1"`
	MaxAttemptsPerAgent int          `yaml:"max_attempts_per_agent" validate:"gte=1"`
	Roles               Roles        `yaml:"roles"`
	LLM                 LLM          `yaml:"llm"`
	CI                  CI           `yaml:"ci"`
	Commit              Commit       `yaml:"commit"`
	Verification        Verification `yaml:"verification"`
	Context             Context      `yaml:"context"`
	Logging             Logging      `yaml:"logging"`
}

// Roles holds one RoleSettings per role
type Roles struct {
	Tester      RoleSettings `yaml:"tester"`
	Implementor RoleSettings `yaml:"implementor"`
	Refactorer  RoleSettings `yaml:"refactorer"`
}

// RoleSettings configures the model used by one role
type RoleSettings struct {
	Model       string  `yaml:"model" validate:"required"`
	Temperature float32 `yaml:"temperature" validate:"gte=0,lte=2"`
}

// LLM configures the completion backend
type LLM struct {
	Backend    string `yaml:"backend" validate:"oneof=openai claude-code-cli"`
	BaseURL    string `yaml:"base_url" validate:"omitempty,url"`
	APIKeyEnv  string `yaml:"api_key_env"`
	ClaudeBin  string `yaml:"claude_bin"`
	TimeoutSec int    `yaml:"timeout_sec" validate:"gte=0"`
}

// CI holds the verification commands as argv lists
type CI struct {
	FmtCmd   []string `yaml:"fmt_cmd"`
	CheckCmd []string `yaml:"check_cmd"`
	TestCmd  []string `yaml:"test_cmd"`
}

// Commit configures the commit author
type Commit struct {
	AuthorName  string `yaml:"author_name" validate:"required"`
	AuthorEmail string `yaml:"author_email" validate:"required"`
}

// Verification configures how attempts are judged
type Verification struct {
	FormatGate tdd.FormatGate `yaml:"format_gate" validate:"omitempty,oneof=lenient strict"`
}

// Context configures what the producer sees of the repository
type Context struct {
	Exclude []string `yaml:"exclude"`
}

// Logging configures the stderr logger
type Logging struct {
	Format string `yaml:"format" validate:"omitempty,oneof=tint text json"`
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// ForRole returns the settings for role
func (r Roles) ForRole(role tdd.Role) (RoleSettings, error) {
	switch role {
	case tdd.RoleTester:
		return r.Tester, nil
	case tdd.RoleImplementor:
		return r.Implementor, nil
	case tdd.RoleRefactorer:
		return r.Refactorer, nil
	default:
		return RoleSettings{}, fmt.Errorf("no settings for role %q", role)
	}
}

// Timeout returns the completion timeout, zero meaning no limit
func (l LLM) Timeout() time.Duration {
	return time.Duration(l.TimeoutSec) * time.Second
}
