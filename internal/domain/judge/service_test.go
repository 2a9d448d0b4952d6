package judge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/health-journal/internal/domain/healthrecord"
	"github.com/yanqian/health-journal/internal/infra/llm/chatgpt"
)

type stubChatClient struct {
	content string
	err     error
	calls   int
}

func (s *stubChatClient) CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error) {
	s.calls++
	if s.err != nil {
		return chatgpt.ChatCompletionResponse{}, s.err
	}
	return chatgpt.ChatCompletionResponse{
		Choices: []struct {
			Message chatgpt.Message `json:"message"`
		}{{Message: chatgpt.Message{Role: "assistant", Content: s.content}}},
	}, nil
}

type memoryCache struct {
	items map[string]Verdict
	err   error
}

func (m *memoryCache) GetVerdict(ctx context.Context, key string) (Verdict, bool, error) {
	if m.err != nil {
		return Verdict{}, false, m.err
	}
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *memoryCache) SaveVerdict(ctx context.Context, key string, verdict Verdict, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	if m.items == nil {
		m.items = map[string]Verdict{}
	}
	m.items[key] = verdict
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleRequest() Request {
	original := healthrecord.Record{Date: "2024-03-01", Sleep: healthrecord.Sleep{Hours: healthrecord.Float(7)}}
	result := original.Clone()
	result.Sleep.Hours = healthrecord.Float(8)
	return Request{OriginalData: original, UpdateTranscript: "actually slept 8 hours", ResultData: result}
}

func TestEvaluateWithLLMScores(t *testing.T) {
	client := &stubChatClient{content: "```json\n{\"completeness\":100,\"accuracy\":90,\"preservation\":100,\"schemaValidity\":130,\"issues\":[\" \",\"minor\"],\"reasoning\":\"looks right\"}\n```"}
	svc := NewService(Config{}, client, nil, discardLogger())

	verdict := svc.Evaluate(context.Background(), sampleRequest())
	require.Equal(t, MethodLLM, verdict.Method)
	require.Equal(t, 100.0, verdict.Scores.SchemaValidity)
	require.Equal(t, 97.5, verdict.Overall)
	require.True(t, verdict.Passed)
	require.Equal(t, []string{"minor"}, verdict.Issues)
	require.Equal(t, "looks right", verdict.Reasoning)
}

func TestEvaluateAppliesWeightsAndThreshold(t *testing.T) {
	client := &stubChatClient{content: `{"completeness":50,"accuracy":100,"preservation":100,"schemaValidity":100}`}
	svc := NewService(Config{
		Weights:       Weights{Completeness: 2, Accuracy: 1, Preservation: 1},
		PassThreshold: 70,
	}, client, nil, discardLogger())

	verdict := svc.Evaluate(context.Background(), sampleRequest())
	require.Equal(t, 75.0, verdict.Overall)
	require.True(t, verdict.Passed)
}

func TestEvaluateFallsBackToBasic(t *testing.T) {
	cases := []struct {
		name   string
		client ChatClient
	}{
		{name: "no client"},
		{name: "backend error", client: &stubChatClient{err: errors.New("boom")}},
		{name: "malformed", client: &stubChatClient{content: "not json"}},
		{name: "missing scores", client: &stubChatClient{content: `{"completeness":90}`}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(Config{}, tc.client, nil, discardLogger())
			verdict := svc.Evaluate(context.Background(), sampleRequest())
			require.Equal(t, MethodBasic, verdict.Method)
			require.Equal(t, 60.0, verdict.Overall)
			require.False(t, verdict.Passed)
			require.Contains(t, verdict.Issues, "accuracy and preservation were not independently evaluated")
		})
	}
}

func TestBasicVerdictNoChangeWithUpdate(t *testing.T) {
	req := sampleRequest()
	req.ResultData = req.OriginalData.Clone()

	verdict := BasicVerdict(req)
	require.Equal(t, 40.0, verdict.Overall)
	require.Equal(t, 0.0, verdict.Scores.Completeness)
	require.Equal(t, 40.0, verdict.Scores.Accuracy)
	require.Contains(t, verdict.Issues, "no fields changed although an update was supplied")
}

func TestBasicVerdictSchemaIssues(t *testing.T) {
	req := sampleRequest()
	req.ResultData.EnergyLevel = healthrecord.Int(14)

	verdict := BasicVerdict(req)
	require.Equal(t, 75.0, verdict.Scores.SchemaValidity)
	require.Equal(t, 60.0, verdict.Overall)
	require.GreaterOrEqual(t, len(verdict.Issues), 2)
}

func TestEvaluateUsesCache(t *testing.T) {
	client := &stubChatClient{content: `{"completeness":100,"accuracy":100,"preservation":100,"schemaValidity":100}`}
	cache := &memoryCache{}
	svc := NewService(Config{}, client, cache, discardLogger())

	first := svc.Evaluate(context.Background(), sampleRequest())
	second := svc.Evaluate(context.Background(), sampleRequest())
	require.Equal(t, first, second)
	require.Equal(t, 1, client.calls)
	require.Len(t, cache.items, 1)
}

func TestEvaluateIgnoresCacheErrors(t *testing.T) {
	cache := &memoryCache{err: errors.New("valkey down")}
	svc := NewService(Config{}, nil, cache, discardLogger())

	verdict := svc.Evaluate(context.Background(), sampleRequest())
	require.Equal(t, MethodBasic, verdict.Method)
}

func TestEvaluateDoesNotCacheBasicFallback(t *testing.T) {
	client := &stubChatClient{err: errors.New("boom"), content: `{"completeness":95,"accuracy":95,"preservation":95,"schemaValidity":95}`}
	cache := &memoryCache{}
	svc := NewService(Config{}, client, cache, discardLogger())

	first := svc.Evaluate(context.Background(), sampleRequest())
	require.Equal(t, MethodBasic, first.Method)
	require.Empty(t, cache.items)

	client.err = nil
	second := svc.Evaluate(context.Background(), sampleRequest())
	require.Equal(t, MethodLLM, second.Method)
	require.Equal(t, 95.0, second.Overall)
	require.Equal(t, 2, client.calls)
	require.Len(t, cache.items, 1)
}
