package config

// Default values applied when tdd.yaml leaves a field empty
const (
	DefaultSteps       = 20
	DefaultMaxAttempts = 5
	DefaultBackend     = "openai"
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultAPIKeyEnv   = "OPENAI_API_KEY"
	DefaultClaudeBin   = "claude"
	DefaultTimeoutSec  = 120
)

// DefaultExcludes are never shown to the producer
var DefaultExcludes = []string{".git/**", ".tdd/**", "target/**"}

// DefaultYAML returns the tdd.yaml written by init for the given language
func DefaultYAML(language string) string {
	ci := `ci:
  test_cmd: ["cargo", "test", "--all"]
  check_cmd: ["cargo", "clippy", "--all", "--", "-D", "warnings"]
  fmt_cmd: ["cargo", "fmt"]
`
	if language == "go" {
		ci = `ci:
  test_cmd: ["go", "test", "./..."]
  check_cmd: ["go", "vet", "./..."]
  fmt_cmd: ["gofmt", "-l", "-w", "."]
`
	} else {
		language = "rust"
	}

	return `kata_description: "kata.md"
language: "` + language + `"
steps: 20
max_attempts_per_agent: 5
roles:
  tester:
    model: "gpt-4o"
    temperature: 0.4
  implementor:
    model: "gpt-4o"
    temperature: 0.2
  refactorer:
    model: "gpt-4o"
    temperature: 0.3
llm:
  backend: "openai"
  base_url: "https://api.openai.com/v1"
  api_key_env: "OPENAI_API_KEY"
  timeout_sec: 120
` + ci + `commit:
  author_name: "TDD Machine"
  author_email: "tdd@local"
verification:
  format_gate: "lenient"
context:
  exclude: [".git/**", ".tdd/**", "target/**"]
logging:
  format: "tint"
  level: "info"
`
}
