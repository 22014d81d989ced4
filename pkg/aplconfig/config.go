// Package aplconfig implements the optional on-disk configuration layer
// for the one-shot CLI driver (spec.md's ambient configuration concern):
// a YAML document describing registered providers/models and tool
// post-prompt wiring, loaded by cmd/aplrun and translated into
// aplrun.Options before a run starts.
//
// Grounded on pkg/config/config.go in the teacher repository: a
// gopkg.in/yaml.v3-backed AppConfig tree with ${VAR} environment
// expansion and typed sub-configs per concern. Start(source, Options)
// itself never requires a config file — this package is purely the
// ambient on-disk convenience layer the teacher always ships alongside
// the programmatic API.
package aplconfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root document loaded from config.yaml (spec.md §A.2).
type Config struct {
	Models ModelsConfig          `yaml:"models"`
	Tools  map[string]ToolConfig `yaml:"tools"`
	App    AppConfig             `yaml:"app"`
}

// ModelsConfig lists the named model/provider bindings available to a
// run (spec §6.2 "a default provider is used when no registration
// matches model").
type ModelsConfig struct {
	Default     string              `yaml:"default"`
	Definitions map[string]ModelDef `yaml:"definitions"`
}

// ModelDef is one named provider binding.
type ModelDef struct {
	Provider          string        `yaml:"provider"` // currently only "openai" is recognized
	ModelName         string        `yaml:"model_name"`
	APIKey            string        `yaml:"api_key"` // supports ${VAR}
	BaseURL           string        `yaml:"base_url"`
	Timeout           time.Duration `yaml:"timeout"`
	Temperature       float64       `yaml:"temperature"`
	RequestsPerMinute int           `yaml:"requests_per_minute,omitempty"`
	Burst             int           `yaml:"burst,omitempty"`
}

// ToolConfig configures a single `with_tools` registration's ambient
// wiring: whether it's enabled and the path to a post-prompt file, whose
// text Config.PostPromptText returns. Neither field is applied by
// cmd/aplrun or the runtime: nothing appends the post-prompt to a tool's
// dispatch result.
type ToolConfig struct {
	Enabled    bool   `yaml:"enabled"`
	PostPrompt string `yaml:"post_prompt,omitempty"`
}

// AppConfig holds run-wide tunables that mirror aplrun.Options.
type AppConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	MaxRuns int           `yaml:"max_runs"`
	Relaxed *bool         `yaml:"relaxed"`
	Debug   bool          `yaml:"debug"`
}

// Load reads path, expands ${VAR} environment references, and parses the
// result as a Config (spec §A.2, mirroring the teacher's Load).
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found at: %s", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(raw))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Models.Default != "" {
		if _, ok := c.Models.Definitions[c.Models.Default]; !ok {
			return fmt.Errorf("models.default %q is not defined in models.definitions", c.Models.Default)
		}
	}
	return nil
}

// PostPromptText returns the post-prompt text configured for tool name,
// reading it from disk on each call (spec §4.6 "with_tools entries may
// carry a post_prompt"). Returns "" if unset.
func (c *Config) PostPromptText(toolName string) (string, error) {
	tc, ok := c.Tools[toolName]
	if !ok || tc.PostPrompt == "" {
		return "", nil
	}
	b, err := os.ReadFile(tc.PostPrompt)
	if err != nil {
		return "", fmt.Errorf("failed to read post_prompt for tool %q: %w", toolName, err)
	}
	return string(b), nil
}
