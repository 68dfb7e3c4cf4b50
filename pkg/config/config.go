package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultOllamaURL is where a stock local Ollama install listens.
	DefaultOllamaURL = "http://localhost:11434"

	// DefaultModel is the coder model used when none is configured.
	DefaultModel = "qwen2.5-coder:14b"
)

// Config drives a repair run. It is stored as JSON at .swarm/config.json in
// the working directory and created with defaults on first use.
type Config struct {
	Model           string `json:"model"`
	OllamaServerURL string `json:"ollama_server_url"`

	// External tool commands, executed without a shell. The analysis command
	// runs during Audit, the test command during Judge.
	AnalyzeCommand []string `json:"analyze_command"`
	TestCommand    []string `json:"test_command"`

	// Extensions of files offered to the auditor.
	SourceExtensions []string `json:"source_extensions"`

	AnalyzeTimeoutSecs int `json:"analyze_timeout_secs"`
	TestTimeoutSecs    int `json:"test_timeout_secs"`
	BrainTimeoutSecs   int `json:"brain_timeout_secs"`

	TelemetryFile string `json:"telemetry_file"`

	// Internal use, not saved to config
	DryRun  bool `json:"-"`
	Verbose bool `json:"-"`
}

// DefaultConfig returns the configuration used when no file exists. The tool
// defaults target Python projects, matching the pylint/pytest pipeline this
// workflow was built around; both commands are configurable.
func DefaultConfig() *Config {
	return &Config{
		Model:              DefaultModel,
		OllamaServerURL:    DefaultOllamaURL,
		AnalyzeCommand:     []string{"python3", "-m", "pylint", "--recursive=y", "--output-format=text", "."},
		TestCommand:        []string{"python3", "-m", "pytest", "-v", "--tb=short", "-q", "."},
		SourceExtensions:   []string{".py"},
		AnalyzeTimeoutSecs: 60,
		TestTimeoutSecs:    120,
		BrainTimeoutSecs:   300,
		TelemetryFile:      filepath.Join(".swarm", "experiment_data.json"),
	}
}

// LoadOrInitConfig loads .swarm/config.json, writing a default one when the
// file does not exist yet.
func LoadOrInitConfig() (*Config, error) {
	path := filepath.Join(".swarm", "config.json")

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := DefaultConfig()
		if saveErr := cfg.Save(path); saveErr != nil {
			// A read-only working directory is fine; run on defaults
			return cfg, nil
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the given path.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks the fields a run cannot proceed without.
func (c *Config) Validate() error {
	if len(c.AnalyzeCommand) == 0 {
		return fmt.Errorf("config: analyze_command must not be empty")
	}
	if len(c.TestCommand) == 0 {
		return fmt.Errorf("config: test_command must not be empty")
	}
	if c.AnalyzeTimeoutSecs <= 0 || c.TestTimeoutSecs <= 0 {
		return fmt.Errorf("config: tool timeouts must be positive")
	}
	if c.Model == "" {
		return fmt.Errorf("config: model must not be empty")
	}
	return nil
}
