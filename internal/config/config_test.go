package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if cfg.Server.Addr != ":3000" {
		t.Errorf("expected :3000, got %s", cfg.Server.Addr)
	}
	if cfg.LLM.Model != "o3" || cfg.LLM.Temperature != 0.7 {
		t.Errorf("unexpected llm defaults: %+v", cfg.LLM)
	}
	if cfg.Batch.Model != "gpt-3.5-turbo" {
		t.Errorf("expected gpt-3.5-turbo, got %s", cfg.Batch.Model)
	}
	if cfg.Batch.Concurrency != 0 {
		t.Errorf("expected unbounded concurrency, got %d", cfg.Batch.Concurrency)
	}
	if cfg.LLM.Timeout != 120*time.Second {
		t.Errorf("expected 120s timeout, got %s", cfg.LLM.Timeout)
	}
	if cfg.HasCredential() {
		t.Error("default config should have no credential")
	}
	if cfg.Server.MaxUploadBytes != 32<<20 {
		t.Errorf("expected 32MB upload limit, got %d", cfg.Server.MaxUploadBytes)
	}
}

func TestLoadFromTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.toml")
	os.WriteFile(path, []byte(`
[server]
addr = ":8080"

[llm]
model = "gpt-4o"
timeout = "30s"
top_p = 0.9
max_tokens = 1200
seed = 7

[batch]
concurrency = 8

[observer]
enabled = true

[observer.pricing.custom]
input = 1.5
output = 3.0
`), 0644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.Server.Addr)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("expected gpt-4o, got %s", cfg.LLM.Model)
	}
	if cfg.LLM.Timeout != 30*time.Second {
		t.Errorf("expected 30s, got %s", cfg.LLM.Timeout)
	}
	if cfg.LLM.TopP == nil || *cfg.LLM.TopP != 0.9 {
		t.Errorf("top_p = %v", cfg.LLM.TopP)
	}
	if cfg.LLM.MaxTokens != 1200 || cfg.LLM.Seed == nil || *cfg.LLM.Seed != 7 {
		t.Errorf("max_tokens = %d, seed = %v", cfg.LLM.MaxTokens, cfg.LLM.Seed)
	}
	if cfg.Batch.Concurrency != 8 {
		t.Errorf("expected 8, got %d", cfg.Batch.Concurrency)
	}
	if !cfg.Observer.Enabled || cfg.Observer.Pricing["custom"].Output != 3.0 {
		t.Errorf("observer not loaded: %+v", cfg.Observer)
	}
	// Defaults preserved
	if cfg.Batch.Model != "gpt-3.5-turbo" {
		t.Errorf("default should be preserved, got %s", cfg.Batch.Model)
	}
	if cfg.LLM.Temperature != 0.7 {
		t.Errorf("default should be preserved, got %v", cfg.LLM.Temperature)
	}
}

func TestLoadMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	os.WriteFile(path, []byte("[server\naddr = "), 0644)
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed TOML")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("MEDCOPY_ADDR", ":9999")
	t.Setenv("MEDCOPY_RELAY_URL", "http://relay.internal/api/openai")
	t.Setenv("MEDCOPY_LLM_BASE_URL", "http://localhost:11434/v1")
	t.Setenv("MEDCOPY_BATCH_CONCURRENCY", "4")
	t.Setenv("MEDCOPY_OBSERVER_ENABLED", "TRUE")

	cfg, err := Load("/nonexistent/path.toml")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.APIKey != "sk-env" || !cfg.HasCredential() {
		t.Errorf("expected sk-env, got %s", cfg.LLM.APIKey)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("expected :9999, got %s", cfg.Server.Addr)
	}
	if cfg.Relay.URL != "http://relay.internal/api/openai" {
		t.Errorf("unexpected relay url %s", cfg.Relay.URL)
	}
	if cfg.LLM.BaseURL != "http://localhost:11434/v1" {
		t.Errorf("unexpected base url %s", cfg.LLM.BaseURL)
	}
	if cfg.Batch.Concurrency != 4 {
		t.Errorf("expected 4, got %d", cfg.Batch.Concurrency)
	}
	if !cfg.Observer.Enabled {
		t.Error("observer should be enabled")
	}
}

func TestEnvWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medcopy.toml")
	os.WriteFile(path, []byte("[llm]\napi_key = \"sk-file\"\n"), 0644)
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.APIKey != "sk-env" {
		t.Errorf("env should win, got %s", cfg.LLM.APIKey)
	}
}

func TestConfigPathFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.toml")
	os.WriteFile(path, []byte("[server]\naddr = \":7000\"\n"), 0644)
	t.Setenv("MEDCOPY_CONFIG", path)

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("expected :7000, got %s", cfg.Server.Addr)
	}
}

func TestInvalidConcurrencyIgnored(t *testing.T) {
	t.Setenv("MEDCOPY_BATCH_CONCURRENCY", "-3")
	cfg, err := Load("/nonexistent/path.toml")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Batch.Concurrency != 0 {
		t.Errorf("expected 0, got %d", cfg.Batch.Concurrency)
	}
}

func TestDotenvFiles(t *testing.T) {
	for _, k := range []string{"OPENAI_API_KEY", "MEDCOPY_ADDR", "MEDCOPY_RELAY_URL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Setenv("MEDCOPY_RELAY_URL", "http://from-process/api/openai")
	dir := t.TempDir()
	t.Chdir(dir)
	os.WriteFile(filepath.Join(dir, ".env.local"), []byte("OPENAI_API_KEY=sk-local\n"), 0644)
	os.WriteFile(filepath.Join(dir, ".env"), []byte("OPENAI_API_KEY=sk-dotenv\nMEDCOPY_ADDR=:4000\nMEDCOPY_RELAY_URL=http://from-file/api/openai\n"), 0644)

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.APIKey != "sk-local" {
		t.Errorf(".env.local should win over .env, got %s", cfg.LLM.APIKey)
	}
	if cfg.Server.Addr != ":4000" {
		t.Errorf("expected :4000 from .env, got %s", cfg.Server.Addr)
	}
	if cfg.Relay.URL != "http://from-process/api/openai" {
		t.Errorf("process env should win over .env, got %s", cfg.Relay.URL)
	}
}

func TestDotenvMalformed(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	os.WriteFile(filepath.Join(dir, ".env"), []byte("OPENAI_API_KEY='unterminated\n"), 0644)

	if _, err := Load(""); err == nil {
		t.Error("expected error for malformed .env")
	}
}
