package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/YoshitsuguKoike/deetdd/internal/app/config"
)

// Load reads, defaults and validates tdd.yaml
func Load(fs afero.Fs, path string) (*config.Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes tdd.yaml content with strict field checking
func Parse(data []byte) (*config.Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Fail on unknown fields

	var cfg config.Config
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("config: parse: empty document")
		}
		return nil, fmt.Errorf("config: parse: %w", err)
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct constraints and reports every failing field
func Validate(cfg *config.Config) error {
	v := validator.New()
	err := v.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config: validate: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("config: invalid: %s", strings.Join(msgs, "; "))
}

func applyDefaults(cfg *config.Config) {
	if cfg.Steps == 0 {
		cfg.Steps = config.DefaultSteps
	}
	if cfg.MaxAttemptsPerAgent == 0 {
		cfg.MaxAttemptsPerAgent = config.DefaultMaxAttempts
	}
	if cfg.LLM.Backend == "" {
		cfg.LLM.Backend = config.DefaultBackend
	}
	if cfg.LLM.Backend == "openai" {
		if cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = config.DefaultBaseURL
		}
		if cfg.LLM.APIKeyEnv == "" {
			cfg.LLM.APIKeyEnv = config.DefaultAPIKeyEnv
		}
	}
	if cfg.LLM.ClaudeBin == "" {
		cfg.LLM.ClaudeBin = config.DefaultClaudeBin
	}
	if cfg.LLM.TimeoutSec == 0 {
		cfg.LLM.TimeoutSec = config.DefaultTimeoutSec
	}
	if len(cfg.Context.Exclude) == 0 {
		cfg.Context.Exclude = append([]string(nil), config.DefaultExcludes...)
	}
}
