package bootstrap

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/health-journal/internal/domain/interpreter"
	"github.com/yanqian/health-journal/internal/domain/judge"
	"github.com/yanqian/health-journal/internal/infra/config"
	"github.com/yanqian/health-journal/internal/infra/llm/chatgpt"
	"github.com/yanqian/health-journal/internal/infra/llm/tokens"
	"github.com/yanqian/health-journal/internal/infra/verdictcache"
)

// Interpreters carries the configured interpreter and the deterministic one
// extraction always falls back to.
type Interpreters struct {
	Active interpreter.Interpreter
	Rules  interpreter.Interpreter
}

// ProvideChatClient returns nil when no API key is configured; every
// model-backed path then degrades to its deterministic fallback.
func ProvideChatClient(cfg *config.Config, logger *slog.Logger) (*chatgpt.Client, error) {
	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		logger.Info("llm api key not set, model-backed features disabled")
		return nil, nil
	}
	return chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL)
}

// ProvideTokenCounter builds the pre-flight token counter.
func ProvideTokenCounter(cfg *config.Config, logger *slog.Logger) *tokens.Counter {
	return tokens.NewCounter(cfg.LLM.TokenEncoding, logger)
}

// ProvideInterpreterConfig maps configuration onto interpreter knobs.
func ProvideInterpreterConfig(cfg *config.Config) interpreter.Config {
	return interpreter.Config{
		AmbiguityPolicy: interpreter.AmbiguityPolicy(cfg.Interpreter.AmbiguityPolicy),
		DeltaPolicy:     interpreter.DeltaPolicy(cfg.Interpreter.DeltaPolicy),
		DeltaFactor:     cfg.Interpreter.DeltaFactor,
		MaxUpdateTokens: cfg.Interpreter.MaxUpdateTokens,
		Model:           cfg.LLM.Model,
		Temperature:     cfg.LLM.Temperature,
		Prompt:          cfg.Interpreter.Prompt,
		Timeout:         cfg.Interpreter.Timeout,
	}
}

// ProvideInterpreters selects the backend named by interpreter.backend.
func ProvideInterpreters(cfg *config.Config, icfg interpreter.Config, client *chatgpt.Client, counter *tokens.Counter, logger *slog.Logger) Interpreters {
	var tc interpreter.TokenCounter
	if counter != nil {
		tc = counter
	}
	rules := interpreter.NewRuleInterpreter(icfg, tc, logger)
	out := Interpreters{Active: rules, Rules: rules}
	if client == nil {
		if cfg.Interpreter.Backend != config.BackendRules {
			logger.Warn("no llm client configured, using rule interpreter", "backend", cfg.Interpreter.Backend)
		}
		return out
	}
	llm := interpreter.NewLLMInterpreter(icfg, client, tc, logger)
	switch cfg.Interpreter.Backend {
	case config.BackendLLM:
		out.Active = llm
	case config.BackendHybrid:
		out.Active = interpreter.NewHybridInterpreter(llm, rules, logger)
	}
	logger.Info("interpreter configured", "backend", cfg.Interpreter.Backend)
	return out
}

// ProvideVerdictCache prefers Valkey and falls back to process memory when it
// is disabled or unreachable.
func ProvideVerdictCache(cfg *config.Config, logger *slog.Logger) judge.VerdictCache {
	valkeyCfg := cfg.Cache.Valkey
	if !valkeyCfg.Enabled {
		return verdictcache.NewMemoryStore()
	}
	opt, err := buildValkeyOptions(valkeyCfg)
	if err != nil {
		logger.Error("invalid valkey configuration, falling back to memory cache", "error", err)
		return verdictcache.NewMemoryStore()
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, falling back to memory cache", "error", err)
		return verdictcache.NewMemoryStore()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, falling back to memory cache", "error", err)
		client.Close()
		return verdictcache.NewMemoryStore()
	}
	logger.Info("valkey verdict cache enabled")
	return verdictcache.NewValkeyStore(client, valkeyCfg.Prefix)
}

func buildValkeyOptions(cfg config.ValkeyConfig) (valkey.ClientOption, error) {
	if url := strings.TrimSpace(cfg.URL); url != "" {
		return valkey.ParseURL(url)
	}
	if strings.Contains(cfg.Addr, "://") {
		return valkey.ParseURL(cfg.Addr)
	}
	return valkey.ClientOption{InitAddress: []string{cfg.Addr}}, nil
}

// ProvideJudgeService builds the scorer.
func ProvideJudgeService(cfg *config.Config, client *chatgpt.Client, cache judge.VerdictCache, logger *slog.Logger) judge.Service {
	var chat judge.ChatClient
	if client != nil {
		chat = client
	}
	return judge.NewService(judge.Config{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Prompt:      cfg.Judge.Prompt,
		Weights: judge.Weights{
			Completeness:   cfg.Judge.Weights.Completeness,
			Accuracy:       cfg.Judge.Weights.Accuracy,
			Preservation:   cfg.Judge.Weights.Preservation,
			SchemaValidity: cfg.Judge.Weights.SchemaValidity,
		},
		PassThreshold: cfg.Judge.PassThreshold,
		Timeout:       cfg.Judge.Timeout,
		CacheTTL:      cfg.Judge.CacheTTL,
	}, chat, cache, logger)
}
