package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom("")
	require.NoError(t, err)
	require.Equal(t, BackendHybrid, cfg.Interpreter.Backend)
	require.Equal(t, "fail", cfg.Interpreter.AmbiguityPolicy)
	require.Equal(t, "reject", cfg.Interpreter.DeltaPolicy)
	require.Equal(t, 80.0, cfg.Judge.PassThreshold)
	require.Equal(t, 1.0, cfg.Judge.Weights.Accuracy)
}

func TestLoadFromFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
interpreter:
  backend: rules
  ambiguityPolicy: most_recent
judge:
  passThreshold: 75
  weights:
    completeness: 2
cache:
  valkey:
    enabled: true
    addr: localhost:6379
`), 0o600))
	t.Setenv("INTERPRETER_DELTA_POLICY", "scale")
	t.Setenv("JUDGE_CACHE_TTL", "10m")
	t.Setenv("HTTP_CORS_ORIGINS", "https://a.test, https://b.test")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	require.Equal(t, BackendRules, cfg.Interpreter.Backend)
	require.Equal(t, "most_recent", cfg.Interpreter.AmbiguityPolicy)
	require.Equal(t, "scale", cfg.Interpreter.DeltaPolicy)
	require.Equal(t, 75.0, cfg.Judge.PassThreshold)
	require.Equal(t, 2.0, cfg.Judge.Weights.Completeness)
	require.Equal(t, 1.0, cfg.Judge.Weights.Accuracy)
	require.Equal(t, 10*time.Minute, cfg.Judge.CacheTTL)
	require.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.HTTP.CORSOrigins)
	require.True(t, cfg.Cache.Valkey.Enabled)
}

func TestValidateRejectsBadPolicies(t *testing.T) {
	tests := map[string]func(*Config){
		"backend":         func(c *Config) { c.Interpreter.Backend = "magic" },
		"llm without key": func(c *Config) { c.Interpreter.Backend = BackendLLM },
		"ambiguity":       func(c *Config) { c.Interpreter.AmbiguityPolicy = "first" },
		"delta":           func(c *Config) { c.Interpreter.DeltaPolicy = "guess" },
		"delta factor":    func(c *Config) { c.Interpreter.DeltaFactor = 1.5 },
		"threshold":       func(c *Config) { c.Judge.PassThreshold = 120 },
		"weights":         func(c *Config) { c.Judge.Weights.Accuracy = -1 },
		"bucket":          func(c *Config) { c.Storage.Objects.Endpoint = "https://r2.test" },
		"valkey":          func(c *Config) { c.Cache.Valkey.Enabled = true },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := defaultConfig()
			mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
