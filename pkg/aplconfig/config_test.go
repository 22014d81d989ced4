package aplconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadParsesModelsAndTools(t *testing.T) {
	path := writeTempConfig(t, `
models:
  default: gpt4
  definitions:
    gpt4:
      provider: openai
      model_name: gpt-4o
      base_url: https://api.openai.com/v1
tools:
  search:
    enabled: true
app:
  max_runs: 50
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Models.Default != "gpt4" {
		t.Errorf("got %q", cfg.Models.Default)
	}
	if cfg.Models.Definitions["gpt4"].ModelName != "gpt-4o" {
		t.Errorf("unexpected model def: %+v", cfg.Models.Definitions["gpt4"])
	}
	if !cfg.Tools["search"].Enabled {
		t.Errorf("expected search tool enabled")
	}
	if cfg.App.MaxRuns != 50 {
		t.Errorf("got %d", cfg.App.MaxRuns)
	}
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("APL_TEST_KEY", "secret-value")
	path := writeTempConfig(t, `
models:
  definitions:
    gpt4:
      api_key: ${APL_TEST_KEY}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Models.Definitions["gpt4"].APIKey != "secret-value" {
		t.Errorf("got %q", cfg.Models.Definitions["gpt4"].APIKey)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadUndefinedDefaultModelFails(t *testing.T) {
	path := writeTempConfig(t, `
models:
  default: missing
  definitions:
    gpt4:
      provider: openai
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error for undefined default model")
	}
}

func TestPostPromptTextReadsFile(t *testing.T) {
	dir := t.TempDir()
	promptPath := filepath.Join(dir, "post.txt")
	if err := os.WriteFile(promptPath, []byte("remember to cite sources"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfgPath := writeTempConfig(t, "tools:\n  search:\n    enabled: true\n    post_prompt: "+promptPath+"\n")
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	text, err := cfg.PostPromptText("search")
	if err != nil {
		t.Fatal(err)
	}
	if text != "remember to cite sources" {
		t.Errorf("got %q", text)
	}
}

func TestPostPromptTextEmptyWhenUnset(t *testing.T) {
	cfg := &Config{}
	text, err := cfg.PostPromptText("missing")
	if err != nil {
		t.Fatal(err)
	}
	if text != "" {
		t.Errorf("expected empty string, got %q", text)
	}
}
