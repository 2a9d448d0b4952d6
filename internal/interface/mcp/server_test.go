package mcp

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	hr "github.com/yanqian/health-journal/internal/domain/healthrecord"
	"github.com/yanqian/health-journal/internal/domain/interpreter"
	"github.com/yanqian/health-journal/internal/domain/journal"
	"github.com/yanqian/health-journal/internal/domain/judge"
	"github.com/yanqian/health-journal/internal/domain/merge"
	"github.com/yanqian/health-journal/internal/infra/logrepo"
	apperrors "github.com/yanqian/health-journal/pkg/errors"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rules := interpreter.NewRuleInterpreter(interpreter.Config{}, nil, logger)
	svc := journal.NewService(journal.Config{}, rules, rules, merge.NewEngine(logger),
		judge.NewService(judge.Config{}, nil, nil, logger), logrepo.NewMemoryRepository(), nil, nil, logger)
	return NewServer(svc, logger)
}

func TestNewServer(t *testing.T) {
	server := newTestServer(t)
	require.NotNil(t, server.mcpServer)
	require.NotNil(t, server.svc)
}

func TestHandleUpdateHealthData(t *testing.T) {
	server := newTestServer(t)

	_, out, err := server.handleUpdateHealthData(context.Background(), &mcp.CallToolRequest{}, updateInput{
		OriginalData:     hr.Record{Date: "2024-05-01", Sleep: hr.Sleep{Hours: hr.Float(7)}},
		UpdateTranscript: "actually slept 8 hours",
	})
	require.NoError(t, err)
	require.True(t, out.Success)
	require.Equal(t, hr.Float(8), out.Data.Sleep.Hours)
}

func TestHandleUpdateHealthDataSurfacesCodedErrors(t *testing.T) {
	server := newTestServer(t)

	_, _, err := server.handleUpdateHealthData(context.Background(), &mcp.CallToolRequest{}, updateInput{
		OriginalData:     hr.Record{Date: "2024-05-01"},
		UpdateTranscript: "hello there",
	})
	require.True(t, apperrors.IsCode(err, journal.CodeUnparseableUpdate))
}

func TestHandleInterpretUpdateDoesNotApply(t *testing.T) {
	server := newTestServer(t)
	original := hr.Record{Date: "2024-05-01", EnergyLevel: hr.Int(4)}

	_, out, err := server.handleInterpretUpdate(context.Background(), &mcp.CallToolRequest{}, updateInput{
		OriginalData:     original,
		UpdateTranscript: "energy was 7",
	})
	require.NoError(t, err)
	require.Len(t, out.Changes, 1)
	require.Equal(t, hr.PathEnergyLevel, out.Changes[0].FieldPath)
	require.Equal(t, hr.Int(4), original.EnergyLevel)
}

func TestHandleJudgeHealthData(t *testing.T) {
	server := newTestServer(t)
	original := hr.Record{Date: "2024-05-01"}

	_, out, err := server.handleJudgeHealthData(context.Background(), &mcp.CallToolRequest{}, judgeInput{
		OriginalData:     original,
		UpdateTranscript: "energy was 7",
		ResultData:       hr.Record{Date: "2024-05-01", EnergyLevel: hr.Int(7)},
	})
	require.NoError(t, err)
	require.Equal(t, judge.MethodBasic, out.Judge.Method)
	require.False(t, out.Judge.Passed)
}
