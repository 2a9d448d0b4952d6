package judge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/yanqian/health-journal/internal/domain/healthrecord"
	"github.com/yanqian/health-journal/internal/infra/llm/chatgpt"
)

const (
	defaultPassThreshold = 80
	basicScoreCap        = 60
	basicSchemaWeight    = 0.4
	basicChangeWeight    = 0.6
)

// Service scores merge results. Evaluate never fails: backend problems
// degrade to the basic structural check.
type Service interface {
	Evaluate(ctx context.Context, req Request) Verdict
}

// ChatClient is the subset of the chat completion client the judge needs.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error)
}

type service struct {
	cfg    Config
	client ChatClient
	cache  VerdictCache
	logger *slog.Logger
}

// NewService wires the judge. client and cache may be nil; without a client
// every verdict comes from the basic check.
func NewService(cfg Config, client ChatClient, cache VerdictCache, logger *slog.Logger) Service {
	if cfg.PassThreshold <= 0 {
		cfg.PassThreshold = defaultPassThreshold
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.Weights = normalizeWeights(cfg.Weights)
	return &service{
		cfg:    cfg,
		client: client,
		cache:  cache,
		logger: logger.With("component", "judge.service"),
	}
}

func (s *service) Evaluate(ctx context.Context, req Request) Verdict {
	key := cacheKey(req)
	if s.cache != nil && key != "" {
		if cached, ok, err := s.cache.GetVerdict(ctx, key); err != nil {
			s.logger.Warn("verdict cache lookup failed", "error", err)
		} else if ok {
			return cached
		}
	}

	verdict := s.evaluate(ctx, req)

	// basic fallbacks are not cached so a recovered backend gets to score the request
	if s.cache != nil && key != "" && verdict.Method == MethodLLM {
		if err := s.cache.SaveVerdict(ctx, key, verdict, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("verdict cache save failed", "error", err)
		}
	}
	return verdict
}

func (s *service) evaluate(ctx context.Context, req Request) Verdict {
	if s.client == nil {
		return BasicVerdict(req)
	}
	verdict, err := s.llmVerdict(ctx, req)
	if err != nil {
		s.logger.Warn("judge backend failed, using basic check", "error", err)
		return BasicVerdict(req)
	}
	return verdict
}

func (s *service) llmVerdict(ctx context.Context, req Request) (Verdict, error) {
	original, err := healthrecord.Encode(req.OriginalData)
	if err != nil {
		return Verdict{}, err
	}
	result, err := healthrecord.Encode(req.ResultData)
	if err != nil {
		return Verdict{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	completion, err := s.client.CreateChatCompletion(callCtx, chatgpt.ChatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []chatgpt.Message{
			{Role: "system", Content: s.buildSystemPrompt()},
			{Role: "user", Content: fmt.Sprintf("Original record: %s\nUpdate: %s\nResult record: %s", original, req.UpdateTranscript, result)},
		},
		Temperature:    s.cfg.Temperature,
		ResponseFormat: &chatgpt.ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("chatgpt request failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return Verdict{}, errors.New("chatgpt returned no choices")
	}

	var wire struct {
		Completeness   *float64 `json:"completeness"`
		Accuracy       *float64 `json:"accuracy"`
		Preservation   *float64 `json:"preservation"`
		SchemaValidity *float64 `json:"schemaValidity"`
		Issues         []string `json:"issues"`
		Reasoning      string   `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(chatgpt.ExtractJSON(completion.Choices[0].Message.Content)), &wire); err != nil {
		return Verdict{}, fmt.Errorf("chatgpt response malformed: %w", err)
	}
	if wire.Completeness == nil || wire.Accuracy == nil || wire.Preservation == nil || wire.SchemaValidity == nil {
		return Verdict{}, errors.New("chatgpt response missing scores")
	}

	scores := Scores{
		Completeness:   clampScore(*wire.Completeness),
		Accuracy:       clampScore(*wire.Accuracy),
		Preservation:   clampScore(*wire.Preservation),
		SchemaValidity: clampScore(*wire.SchemaValidity),
	}
	issues := cleanIssues(wire.Issues)
	for _, issue := range healthrecord.Validate(req.ResultData) {
		issues = append(issues, issue.String())
	}
	overall := s.weighted(scores)
	return Verdict{
		Scores:    scores,
		Overall:   overall,
		Passed:    overall >= s.cfg.PassThreshold,
		Issues:    issues,
		Method:    MethodLLM,
		Reasoning: strings.TrimSpace(wire.Reasoning),
	}, nil
}

func (s *service) weighted(sc Scores) float64 {
	w := s.cfg.Weights
	total := sc.Completeness*w.Completeness + sc.Accuracy*w.Accuracy +
		sc.Preservation*w.Preservation + sc.SchemaValidity*w.SchemaValidity
	return round1(total)
}

func (s *service) buildSystemPrompt() string {
	base := strings.TrimSpace(s.cfg.Prompt)
	if base == "" {
		base = "You review edits to a structured daily health record made from a spoken update."
	}
	enforcer := ` Score the result from 0 to 100 on completeness (every requested change is present), accuracy (values and operations match the update), preservation (fields the update did not mention are unchanged) and schemaValidity (the record keeps the expected shape and ranges).` +
		` Respond ONLY with minified JSON of shape {"completeness":number,"accuracy":number,"preservation":number,"schemaValidity":number,"issues":string[],"reasoning":string}.`
	return base + enforcer
}

// BasicVerdict is the structural fallback: schema validity weighted 40% and
// "did anything change when an update was supplied" weighted 60%, capped at
// 60 so it never passes on its own.
func BasicVerdict(req Request) Verdict {
	var issues []string
	schemaIssues := healthrecord.Validate(req.ResultData)
	for _, issue := range schemaIssues {
		issues = append(issues, issue.String())
	}
	schema := math.Max(0, 100-25*float64(len(schemaIssues)))

	changed := len(healthrecord.Diff(req.OriginalData, req.ResultData)) > 0
	hasUpdate := strings.TrimSpace(req.UpdateTranscript) != ""
	change := 0.0
	switch {
	case hasUpdate && changed:
		change = 100
	case hasUpdate:
		issues = append(issues, "no fields changed although an update was supplied")
	case !changed:
		change = 100
	default:
		issues = append(issues, "fields changed without an update")
	}

	overall := math.Min(basicScoreCap, round1(basicSchemaWeight*schema+basicChangeWeight*change))
	issues = append(issues, "accuracy and preservation were not independently evaluated")
	return Verdict{
		Scores: Scores{
			Completeness:   math.Min(basicScoreCap, change),
			Accuracy:       overall,
			Preservation:   overall,
			SchemaValidity: schema,
		},
		Overall: overall,
		Passed:  false,
		Issues:  issues,
		Method:  MethodBasic,
	}
}

func normalizeWeights(w Weights) Weights {
	parts := []*float64{&w.Completeness, &w.Accuracy, &w.Preservation, &w.SchemaValidity}
	sum := 0.0
	for _, p := range parts {
		if *p < 0 {
			*p = 0
		}
		sum += *p
	}
	if sum == 0 {
		return Weights{Completeness: 0.25, Accuracy: 0.25, Preservation: 0.25, SchemaValidity: 0.25}
	}
	for _, p := range parts {
		*p /= sum
	}
	return w
}

func cacheKey(req Request) string {
	payload, err := json.Marshal(req)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func cleanIssues(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if clean := strings.TrimSpace(item); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}
