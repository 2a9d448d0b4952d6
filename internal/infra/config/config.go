package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when CONFIG_PATH is unset and the file exists.
const DefaultPath = "configs/config.yaml"

// Interpreter backends.
const (
	BackendRules  = "rules"
	BackendLLM    = "llm"
	BackendHybrid = "hybrid"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	LLM         LLMConfig         `yaml:"llm"`
	Interpreter InterpreterConfig `yaml:"interpreter"`
	Judge       JudgeConfig       `yaml:"judge"`
	Extraction  ExtractionConfig  `yaml:"extraction"`
	Storage     StorageConfig     `yaml:"storage"`
	Cache       CacheConfig       `yaml:"cache"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address      string          `yaml:"address"`
	ReadTimeout  time.Duration   `yaml:"readTimeout"`
	WriteTimeout time.Duration   `yaml:"writeTimeout"`
	RateLimit    RateLimitConfig `yaml:"rateLimit"`
	Retry        RetryConfig     `yaml:"retry"`
	CORSOrigins  []string        `yaml:"corsOrigins"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures best-effort retries of POST requests that fail with 5xx.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Exclude     []string      `yaml:"exclude"`
}

// LLMConfig contains OpenAI-compatible backend settings. An empty APIKey
// disables every model-backed path.
type LLMConfig struct {
	APIKey             string  `yaml:"apiKey"`
	BaseURL            string  `yaml:"baseUrl"`
	Model              string  `yaml:"model"`
	Temperature        float32 `yaml:"temperature"`
	TranscriptionModel string  `yaml:"transcriptionModel"`
	TranscriptionLang  string  `yaml:"transcriptionLanguage"`
	TokenEncoding      string  `yaml:"tokenEncoding"`
}

// InterpreterConfig selects the interpretation backend and its policies.
type InterpreterConfig struct {
	Backend         string        `yaml:"backend"`
	AmbiguityPolicy string        `yaml:"ambiguityPolicy"`
	DeltaPolicy     string        `yaml:"deltaPolicy"`
	DeltaFactor     float64       `yaml:"deltaFactor"`
	MaxUpdateTokens int           `yaml:"maxUpdateTokens"`
	Timeout         time.Duration `yaml:"timeout"`
	Prompt          string        `yaml:"prompt"`
}

// JudgeConfig controls scoring.
type JudgeConfig struct {
	Prompt        string        `yaml:"prompt"`
	PassThreshold float64       `yaml:"passThreshold"`
	Timeout       time.Duration `yaml:"timeout"`
	CacheTTL      time.Duration `yaml:"cacheTtl"`
	Weights       JudgeWeights  `yaml:"weights"`
}

// JudgeWeights mirrors judge.Weights.
type JudgeWeights struct {
	Completeness   float64 `yaml:"completeness"`
	Accuracy       float64 `yaml:"accuracy"`
	Preservation   float64 `yaml:"preservation"`
	SchemaValidity float64 `yaml:"schemaValidity"`
}

// ExtractionConfig controls first-pass extraction and transcription.
type ExtractionConfig struct {
	Prompt            string        `yaml:"prompt"`
	Timeout           time.Duration `yaml:"timeout"`
	TranscribeTimeout time.Duration `yaml:"transcribeTimeout"`
	MaxAudioBytes     int64         `yaml:"maxAudioBytes"`
}

// StorageConfig groups persistence backends.
type StorageConfig struct {
	Postgres PostgresConfig `yaml:"postgres"`
	Objects  ObjectsConfig  `yaml:"objects"`
}

// PostgresConfig contains DSN and pooling settings. An empty DSN selects the
// in-memory repository.
type PostgresConfig struct {
	DSN         string `yaml:"dsn"`
	MaxConns    int32  `yaml:"maxConns"`
	MinConns    int32  `yaml:"minConns"`
	AutoMigrate bool   `yaml:"autoMigrate"`
}

// ObjectsConfig describes the S3-compatible bucket for recorded clips. An
// empty Endpoint selects in-memory storage.
type ObjectsConfig struct {
	Endpoint      string        `yaml:"endpoint"`
	AccessKey     string        `yaml:"accessKey"`
	SecretKey     string        `yaml:"secretKey"`
	Bucket        string        `yaml:"bucket"`
	Region        string        `yaml:"region"`
	PublicBaseURL string        `yaml:"publicBaseUrl"`
	PresignTTL    time.Duration `yaml:"presignTtl"`
	Prefix        string        `yaml:"prefix"`
}

// CacheConfig groups cache backends.
type CacheConfig struct {
	Valkey ValkeyConfig `yaml:"valkey"`
}

// ValkeyConfig contains connection information for the verdict cache.
type ValkeyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	URL     string `yaml:"url"`
	Prefix  string `yaml:"prefix"`
}

// Load reads configuration from CONFIG_PATH (or DefaultPath when present)
// and environment variables.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}
	return LoadFrom(path)
}

// LoadFrom reads the YAML file at path (skipped when empty), applies
// environment overrides and validates the result.
func LoadFrom(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			*dst = v == "1" || strings.EqualFold(v, "true")
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				*dst = parsed
			}
		}
	}
	setFloat := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = parsed
			}
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			if parsed, err := time.ParseDuration(v); err == nil {
				*dst = parsed
			}
		}
	}

	setString("HTTP_ADDRESS", &cfg.HTTP.Address)
	setBool("HTTP_RATE_LIMIT_ENABLED", &cfg.HTTP.RateLimit.Enabled)
	setInt("HTTP_RATE_LIMIT_RPM", &cfg.HTTP.RateLimit.RequestsPerMinute)
	setInt("HTTP_RATE_LIMIT_BURST", &cfg.HTTP.RateLimit.Burst)
	setBool("HTTP_RETRY_ENABLED", &cfg.HTTP.Retry.Enabled)
	setInt("HTTP_RETRY_MAX_ATTEMPTS", &cfg.HTTP.Retry.MaxAttempts)
	setDuration("HTTP_RETRY_BASE_BACKOFF", &cfg.HTTP.Retry.BaseBackoff)
	if v := os.Getenv("HTTP_CORS_ORIGINS"); v != "" {
		cfg.HTTP.CORSOrigins = splitList(v)
	}

	setString("LLM_API_KEY", &cfg.LLM.APIKey)
	setString("LLM_BASE_URL", &cfg.LLM.BaseURL)
	setString("LLM_MODEL", &cfg.LLM.Model)
	setString("LLM_TRANSCRIPTION_MODEL", &cfg.LLM.TranscriptionModel)
	setString("LLM_TOKEN_ENCODING", &cfg.LLM.TokenEncoding)
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}

	setString("INTERPRETER_BACKEND", &cfg.Interpreter.Backend)
	setString("INTERPRETER_AMBIGUITY_POLICY", &cfg.Interpreter.AmbiguityPolicy)
	setString("INTERPRETER_DELTA_POLICY", &cfg.Interpreter.DeltaPolicy)
	setFloat("INTERPRETER_DELTA_FACTOR", &cfg.Interpreter.DeltaFactor)
	setInt("INTERPRETER_MAX_UPDATE_TOKENS", &cfg.Interpreter.MaxUpdateTokens)
	setDuration("INTERPRETER_TIMEOUT", &cfg.Interpreter.Timeout)

	setFloat("JUDGE_PASS_THRESHOLD", &cfg.Judge.PassThreshold)
	setDuration("JUDGE_TIMEOUT", &cfg.Judge.Timeout)
	setDuration("JUDGE_CACHE_TTL", &cfg.Judge.CacheTTL)

	setString("POSTGRES_DSN", &cfg.Storage.Postgres.DSN)
	setBool("POSTGRES_AUTO_MIGRATE", &cfg.Storage.Postgres.AutoMigrate)
	if v := os.Getenv("POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Storage.Postgres.MaxConns = int32(parsed)
		}
	}
	setString("OBJECTS_ENDPOINT", &cfg.Storage.Objects.Endpoint)
	setString("OBJECTS_ACCESS_KEY", &cfg.Storage.Objects.AccessKey)
	setString("OBJECTS_SECRET_KEY", &cfg.Storage.Objects.SecretKey)
	setString("OBJECTS_BUCKET", &cfg.Storage.Objects.Bucket)
	setString("OBJECTS_REGION", &cfg.Storage.Objects.Region)
	setString("OBJECTS_PUBLIC_BASE_URL", &cfg.Storage.Objects.PublicBaseURL)

	setBool("VALKEY_ENABLED", &cfg.Cache.Valkey.Enabled)
	setString("VALKEY_ADDR", &cfg.Cache.Valkey.Addr)
	setString("VALKEY_URL", &cfg.Cache.Valkey.URL)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 90 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
			Retry: RetryConfig{
				Enabled:     true,
				MaxAttempts: 2,
				BaseBackoff: 150 * time.Millisecond,
				Exclude:     []string{"/api/transcribe"},
			},
			CORSOrigins: []string{"*"},
		},
		LLM: LLMConfig{
			Model:              "gpt-4o-mini",
			Temperature:        0.1,
			TranscriptionModel: "whisper-1",
			TokenEncoding:      "cl100k_base",
		},
		Interpreter: InterpreterConfig{
			Backend:         BackendHybrid,
			AmbiguityPolicy: "fail",
			DeltaPolicy:     "reject",
			DeltaFactor:     0.2,
			MaxUpdateTokens: 512,
			Timeout:         20 * time.Second,
		},
		Judge: JudgeConfig{
			PassThreshold: 80,
			Timeout:       30 * time.Second,
			CacheTTL:      6 * time.Hour,
			Weights: JudgeWeights{
				Completeness:   1,
				Accuracy:       1,
				Preservation:   1,
				SchemaValidity: 1,
			},
		},
		Extraction: ExtractionConfig{
			Timeout:           30 * time.Second,
			TranscribeTimeout: 60 * time.Second,
			MaxAudioBytes:     25 << 20,
		},
		Storage: StorageConfig{
			Postgres: PostgresConfig{MaxConns: 4},
			Objects: ObjectsConfig{
				Region:     "auto",
				PresignTTL: 24 * time.Hour,
				Prefix:     "audio",
			},
		},
		Cache: CacheConfig{
			Valkey: ValkeyConfig{Prefix: "health-journal"},
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	switch c.Interpreter.Backend {
	case BackendRules, BackendLLM, BackendHybrid:
	default:
		return fmt.Errorf("interpreter.backend must be one of rules, llm, hybrid; got %q", c.Interpreter.Backend)
	}
	if c.Interpreter.Backend == BackendLLM && strings.TrimSpace(c.LLM.APIKey) == "" {
		return errors.New("llm.apiKey is required when interpreter.backend is llm")
	}
	switch c.Interpreter.AmbiguityPolicy {
	case "fail", "most_recent":
	default:
		return fmt.Errorf("interpreter.ambiguityPolicy must be fail or most_recent; got %q", c.Interpreter.AmbiguityPolicy)
	}
	switch c.Interpreter.DeltaPolicy {
	case "reject", "scale":
	default:
		return fmt.Errorf("interpreter.deltaPolicy must be reject or scale; got %q", c.Interpreter.DeltaPolicy)
	}
	if c.Interpreter.DeltaFactor <= 0 || c.Interpreter.DeltaFactor >= 1 {
		return errors.New("interpreter.deltaFactor must be between 0 and 1")
	}
	if c.Interpreter.MaxUpdateTokens < 0 {
		return errors.New("interpreter.maxUpdateTokens cannot be negative")
	}
	if c.Judge.PassThreshold <= 0 || c.Judge.PassThreshold > 100 {
		return errors.New("judge.passThreshold must be in (0, 100]")
	}
	w := c.Judge.Weights
	if w.Completeness < 0 || w.Accuracy < 0 || w.Preservation < 0 || w.SchemaValidity < 0 {
		return errors.New("judge.weights cannot be negative")
	}
	if c.Judge.CacheTTL < 0 {
		return errors.New("judge.cacheTtl cannot be negative")
	}
	if c.Extraction.MaxAudioBytes <= 0 {
		return errors.New("extraction.maxAudioBytes must be positive")
	}
	if c.Storage.Objects.Endpoint != "" && strings.TrimSpace(c.Storage.Objects.Bucket) == "" {
		return errors.New("storage.objects.bucket cannot be empty when an endpoint is set")
	}
	if c.Cache.Valkey.Enabled && strings.TrimSpace(c.Cache.Valkey.Addr) == "" && strings.TrimSpace(c.Cache.Valkey.URL) == "" {
		return errors.New("cache.valkey.addr or cache.valkey.url is required when valkey is enabled")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
	}
	return nil
}
