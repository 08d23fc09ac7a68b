package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// DefaultPath is read when Load is given an empty path and MEDCOPY_CONFIG is unset.
const DefaultPath = "medcopy.toml"

// DotenvFiles are read from the working directory, first match wins per
// variable. Variables already in the process environment are never replaced.
var DotenvFiles = []string{".env.local", ".env"}

type Config struct {
	Server   ServerConfig   `toml:"server"`
	LLM      LLMConfig      `toml:"llm"`
	Relay    RelayConfig    `toml:"relay"`
	Batch    BatchConfig    `toml:"batch"`
	Observer ObserverConfig `toml:"observer"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
	// MaxUploadBytes bounds a spreadsheet upload on the web page.
	MaxUploadBytes int64 `toml:"max_upload_bytes"`
}

// LLMConfig is the upstream used by the relay endpoint.
type LLMConfig struct {
	Provider    string        `toml:"provider"`
	BaseURL     string        `toml:"base_url"`
	Model       string        `toml:"model"`
	Temperature float64       `toml:"temperature"`
	APIKey      string        `toml:"api_key"`
	Timeout     time.Duration `toml:"timeout"`

	// Sent upstream on every relay call when set.
	TopP      *float64 `toml:"top_p"`
	MaxTokens int      `toml:"max_tokens"`
	Seed      *int     `toml:"seed"`
}

// RelayConfig points batch runs at a relay endpoint. An empty URL means the
// relay mounted on this server.
type RelayConfig struct {
	URL string `toml:"url"`
}

type BatchConfig struct {
	Model       string  `toml:"model"`
	Temperature float64 `toml:"temperature"`
	// Concurrency caps in-flight completions per batch; 0 means unbounded.
	Concurrency int `toml:"concurrency"`
	// MaxRuns is how many finished runs the web server keeps in memory.
	MaxRuns int `toml:"max_runs"`
}

type ObserverConfig struct {
	Enabled bool                       `toml:"enabled"`
	Pricing map[string]ObserverPricing `toml:"pricing"`
}

type ObserverPricing struct {
	Input  float64 `toml:"input"`
	Output float64 `toml:"output"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":3000", MaxUploadBytes: 32 << 20},
		LLM: LLMConfig{
			Provider:    "openai",
			BaseURL:     "https://api.openai.com/v1",
			Model:       "o3",
			Temperature: 0.7,
			Timeout:     120 * time.Second,
		},
		Batch: BatchConfig{
			Model:       "gpt-3.5-turbo",
			Temperature: 0.7,
			MaxRuns:     16,
		},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins). Dotenv
// files feed the env step.
// A missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("MEDCOPY_CONFIG")
	}
	if path == "" {
		path = DefaultPath
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := loadDotenv(DotenvFiles...); err != nil {
		return cfg, err
	}

	// Env overrides
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("MEDCOPY_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("MEDCOPY_RELAY_URL"); v != "" {
		cfg.Relay.URL = v
	}
	if v := os.Getenv("MEDCOPY_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("MEDCOPY_BATCH_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Batch.Concurrency = n
		}
	}
	if v := strings.ToLower(os.Getenv("MEDCOPY_OBSERVER_ENABLED")); v == "true" || v == "1" {
		cfg.Observer.Enabled = true
	}

	// Fallbacks
	if cfg.Server.MaxUploadBytes <= 0 {
		cfg.Server.MaxUploadBytes = Default().Server.MaxUploadBytes
	}
	if cfg.Batch.MaxRuns <= 0 {
		cfg.Batch.MaxRuns = Default().Batch.MaxRuns
	}
	if cfg.Batch.Concurrency < 0 {
		cfg.Batch.Concurrency = 0
	}
	if cfg.LLM.MaxTokens < 0 {
		cfg.LLM.MaxTokens = 0
	}

	return cfg, nil
}

func loadDotenv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// HasCredential reports whether an upstream API key is configured.
func (c Config) HasCredential() bool { return c.LLM.APIKey != "" }
