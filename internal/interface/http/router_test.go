package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/health-journal/internal/domain/healthrecord"
	"github.com/yanqian/health-journal/internal/domain/interpreter"
	"github.com/yanqian/health-journal/internal/domain/journal"
	"github.com/yanqian/health-journal/internal/domain/judge"
	"github.com/yanqian/health-journal/internal/domain/merge"
	"github.com/yanqian/health-journal/internal/infra/config"
	"github.com/yanqian/health-journal/internal/infra/logrepo"
	apperrors "github.com/yanqian/health-journal/pkg/errors"
)

func TestRouter_UpdateHealthDataAdditive(t *testing.T) {
	server := newRouterUnderTest(t, newJournalService(), config.HTTPConfig{})

	recorder := performRequest(server, http.MethodPost, "/api/update-health-data",
		`{"originalData":{"date":"2024-05-01","meals":[{"type":"Breakfast","notes":"toast"}]},"updateTranscript":"also had coffee"}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	var got journal.UpdateResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.True(t, got.Success)
	require.Equal(t, []healthrecord.Meal{
		{Type: healthrecord.MealBreakfast, Notes: "toast"},
		{Type: healthrecord.MealCoffee, Notes: "coffee"},
	}, got.Data.Meals)
}

func TestRouter_UpdateHealthDataErrors(t *testing.T) {
	server := newRouterUnderTest(t, newJournalService(), config.HTTPConfig{})

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{name: "malformed json", body: `{"updateTranscript":5}`, status: http.StatusBadRequest, code: "invalid_request"},
		{name: "empty update", body: `{"originalData":{"date":"2024-05-01"},"updateTranscript":"  "}`, status: http.StatusBadRequest, code: journal.CodeEmptyUpdate},
		{name: "unparseable", body: `{"originalData":{"date":"2024-05-01"},"updateTranscript":"hello there"}`, status: http.StatusUnprocessableEntity, code: journal.CodeUnparseableUpdate},
		{
			name:   "ambiguous",
			body:   `{"originalData":{"date":"2024-05-01","meals":[{"type":"Lunch","notes":"salad"},{"type":"Dinner","notes":"pasta"}]},"updateTranscript":"it had cheese too"}`,
			status: http.StatusConflict,
			code:   journal.CodeAmbiguousReference,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := performRequest(server, http.MethodPost, "/api/update-health-data", tc.body)
			require.Equal(t, tc.status, recorder.Code)
			body := decodeErrorBody(t, recorder.Body.Bytes())
			require.Equal(t, false, body["success"])
			errObj := body["error"].(map[string]any)
			require.Equal(t, tc.code, errObj["code"])
			require.NotEmpty(t, errObj["message"])
		})
	}
}

func TestRouter_AmbiguousDetailsListCandidates(t *testing.T) {
	server := newRouterUnderTest(t, newJournalService(), config.HTTPConfig{})

	recorder := performRequest(server, http.MethodPost, "/api/update-health-data",
		`{"originalData":{"date":"2024-05-01","meals":[{"type":"Lunch","notes":"salad"},{"type":"Dinner","notes":"pasta"}]},"updateTranscript":"it had cheese too"}`)
	body := decodeErrorBody(t, recorder.Body.Bytes())
	details := body["error"].(map[string]any)["details"].(map[string]any)
	require.Equal(t, []any{"Lunch", "Dinner"}, details["candidates"])
}

func TestRouter_JudgeHealthData(t *testing.T) {
	server := newRouterUnderTest(t, newJournalService(), config.HTTPConfig{})

	recorder := performRequest(server, http.MethodPost, "/api/judge-health-data",
		`{"originalData":{"date":"2024-05-01"},"updateTranscript":"energy was 7","resultData":{"date":"2024-05-01","energyLevel":7}}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	var got journal.JudgeResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, judge.MethodBasic, got.Judge.Method)
	require.Equal(t, 60.0, got.Judge.Overall)
}

func TestRouter_LogLifecycle(t *testing.T) {
	server := newRouterUnderTest(t, newJournalService(), config.HTTPConfig{})

	recorder := performRequest(server, http.MethodPost, "/api/logs", `{"date":"2024-05-01","transcript":"slept 7 hours"}`)
	require.Equal(t, http.StatusCreated, recorder.Code)
	var created journal.Entry
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &created))
	require.Equal(t, 1, created.Version)

	recorder = performRequest(server, http.MethodPost, "/api/logs/"+created.ID.String()+"/updates",
		`{"updateTranscript":"actually slept 8 hours","expectedVersion":1}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = performRequest(server, http.MethodPost, "/api/logs/"+created.ID.String()+"/updates",
		`{"updateTranscript":"energy was 5","expectedVersion":1}`)
	require.Equal(t, http.StatusConflict, recorder.Code)

	recorder = performRequest(server, http.MethodGet, "/api/logs?from=2024-05-01&to=2024-05-31", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	var list struct {
		Logs []journal.Entry `json:"logs"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &list))
	require.Len(t, list.Logs, 1)
	require.Equal(t, 2, list.Logs[0].Version)
	require.Equal(t, healthrecord.Float(8), list.Logs[0].Record.Sleep.Hours)

	recorder = performRequest(server, http.MethodDelete, "/api/logs/"+created.ID.String(), "")
	require.Equal(t, http.StatusNoContent, recorder.Code)

	recorder = performRequest(server, http.MethodGet, "/api/logs/"+created.ID.String(), "")
	require.Equal(t, http.StatusNotFound, recorder.Code)

	recorder = performRequest(server, http.MethodGet, "/api/logs/not-a-uuid", "")
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRouter_TranscribeRequiresAudio(t *testing.T) {
	server := newRouterUnderTest(t, newJournalService(), config.HTTPConfig{})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("note", "no file"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	recorder := httptest.NewRecorder()
	server.Handler.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRouter_TranscribeWithoutBackend(t *testing.T) {
	server := newRouterUnderTest(t, newJournalService(), config.HTTPConfig{})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio", "clip.webm")
	require.NoError(t, err)
	_, _ = part.Write([]byte("RIFF"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	recorder := httptest.NewRecorder()
	server.Handler.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusBadGateway, recorder.Code)
	errObj := decodeErrorBody(t, recorder.Body.Bytes())["error"].(map[string]any)
	require.Equal(t, journal.CodeTranscriptionError, errObj["code"])
}

func TestRouter_RetriesServerErrors(t *testing.T) {
	svc := &flakyService{failures: 1}
	server := newRouterUnderTest(t, svc, config.HTTPConfig{
		Retry: config.RetryConfig{Enabled: true, MaxAttempts: 3, BaseBackoff: time.Millisecond},
	})

	recorder := performRequest(server, http.MethodPost, "/api/update-health-data", `{"originalData":{"date":"2024-05-01"},"updateTranscript":"slept 8 hours"}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, 2, svc.calls)
	require.Equal(t, "2", recorder.Header().Get("X-Attempts"))
}

func TestRouter_DoesNotRetryClientErrors(t *testing.T) {
	svc := &flakyService{err: apperrors.Wrap(journal.CodeUnparseableUpdate, "could not interpret update", nil)}
	server := newRouterUnderTest(t, svc, config.HTTPConfig{
		Retry: config.RetryConfig{Enabled: true, MaxAttempts: 3, BaseBackoff: time.Millisecond},
	})

	recorder := performRequest(server, http.MethodPost, "/api/update-health-data", `{"updateTranscript":"hmm"}`)
	require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	require.Equal(t, 1, svc.calls)
}

func TestRouter_RateLimit(t *testing.T) {
	server := newRouterUnderTest(t, newJournalService(), config.HTTPConfig{
		RateLimit: config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1},
	})

	require.Equal(t, http.StatusOK, performRequest(server, http.MethodGet, "/healthz", "").Code)
	recorder := performRequest(server, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusTooManyRequests, recorder.Code)
}

func TestRateLimiterRefills(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	limiter := newIPRateLimiter(config.RateLimitConfig{RequestsPerMinute: 60, Burst: 1}, func() time.Time { return now })

	require.True(t, limiter.allow("1.2.3.4"))
	require.False(t, limiter.allow("1.2.3.4"))
	require.True(t, limiter.allow("5.6.7.8"))

	now = now.Add(time.Second)
	require.True(t, limiter.allow("1.2.3.4"))
}

func TestFromDomainErrorHidesServerDetails(t *testing.T) {
	httpErr := fromDomainError(apperrors.Wrap(journal.CodeLLMError, "could not interpret update", fmt.Errorf("dial tcp: secret-host")))
	require.Equal(t, http.StatusBadGateway, httpErr.Status)
	require.Equal(t, "could not interpret update", httpErr.Message)

	httpErr = fromDomainError(fmt.Errorf("plain"))
	require.Equal(t, http.StatusInternalServerError, httpErr.Status)
	require.Equal(t, "internal_error", httpErr.Code)
}

func performRequest(server *http.Server, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func newJournalService() journal.Service {
	logger := newTestLogger()
	rules := interpreter.NewRuleInterpreter(interpreter.Config{}, nil, logger)
	return journal.NewService(
		journal.Config{},
		rules,
		rules,
		merge.NewEngine(logger),
		judge.NewService(judge.Config{}, nil, nil, logger),
		logrepo.NewMemoryRepository(),
		nil,
		nil,
		logger,
	)
}

func newRouterUnderTest(t *testing.T, svc journal.Service, httpCfg config.HTTPConfig) *http.Server {
	t.Helper()
	httpCfg.Address = ":0"
	httpCfg.ReadTimeout = time.Second
	httpCfg.WriteTimeout = time.Second
	return NewRouter(&config.Config{HTTP: httpCfg}, NewHandler(svc, newTestLogger()))
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

// flakyService fails UpdateHealthData with a 5xx for the first failures calls,
// or always with err when set.
type flakyService struct {
	journal.Service
	failures int
	err      error
	calls    int
}

func (s *flakyService) UpdateHealthData(ctx context.Context, req journal.UpdateRequest) (journal.UpdateResponse, error) {
	s.calls++
	if s.err != nil {
		return journal.UpdateResponse{}, s.err
	}
	if s.calls <= s.failures {
		return journal.UpdateResponse{}, apperrors.Wrap(journal.CodeInterpretationTimeout, "interpretation timed out", context.DeadlineExceeded)
	}
	return journal.UpdateResponse{Success: true, Data: req.OriginalData}, nil
}

func TestRouter_CORS(t *testing.T) {
	server := newRouterUnderTest(t, newJournalService(), config.HTTPConfig{CORSOrigins: []string{"https://journal.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/logs", nil)
	req.Header.Set("Origin", "https://journal.example")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://journal.example", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
