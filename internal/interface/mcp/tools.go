package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/yanqian/health-journal/internal/domain/healthrecord"
	"github.com/yanqian/health-journal/internal/domain/journal"
	"github.com/yanqian/health-journal/internal/domain/judge"
)

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "update_health_data",
		Description: "Merge a spoken or typed update into a day's health record and return the new record",
	}, s.handleUpdateHealthData)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "interpret_update",
		Description: "Turn an update into change directives without applying them",
	}, s.handleInterpretUpdate)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "judge_health_data",
		Description: "Score a merged record for completeness, accuracy, preservation and schema compliance",
	}, s.handleJudgeHealthData)
}

type updateInput struct {
	OriginalData     healthrecord.Record `json:"originalData" jsonschema:"the current day record"`
	UpdateTranscript string              `json:"updateTranscript" jsonschema:"free-form update text such as 'actually slept 8 hours'"`
}

type interpretOutput struct {
	Changes []healthrecord.Change `json:"changes"`
}

type judgeInput struct {
	OriginalData     healthrecord.Record `json:"originalData" jsonschema:"the record before the update"`
	UpdateTranscript string              `json:"updateTranscript" jsonschema:"the update that was applied"`
	ResultData       healthrecord.Record `json:"resultData" jsonschema:"the record after the update"`
}

type judgeOutput struct {
	Judge judge.Verdict `json:"judge"`
}

func (s *Server) handleUpdateHealthData(ctx context.Context, _ *mcp.CallToolRequest, input updateInput) (*mcp.CallToolResult, journal.UpdateResponse, error) {
	resp, err := s.svc.UpdateHealthData(ctx, journal.UpdateRequest{
		OriginalData:     input.OriginalData,
		UpdateTranscript: input.UpdateTranscript,
	})
	if err != nil {
		s.logger.Warn("update tool failed", "error", err)
		return nil, journal.UpdateResponse{}, err
	}
	return nil, resp, nil
}

func (s *Server) handleInterpretUpdate(ctx context.Context, _ *mcp.CallToolRequest, input updateInput) (*mcp.CallToolResult, interpretOutput, error) {
	changes, err := s.svc.InterpretUpdate(ctx, journal.UpdateRequest{
		OriginalData:     input.OriginalData,
		UpdateTranscript: input.UpdateTranscript,
	})
	if err != nil {
		s.logger.Warn("interpret tool failed", "error", err)
		return nil, interpretOutput{}, err
	}
	if changes == nil {
		changes = []healthrecord.Change{}
	}
	return nil, interpretOutput{Changes: changes}, nil
}

func (s *Server) handleJudgeHealthData(ctx context.Context, _ *mcp.CallToolRequest, input judgeInput) (*mcp.CallToolResult, judgeOutput, error) {
	resp := s.svc.JudgeHealthData(ctx, journal.JudgeRequest{
		OriginalData:     input.OriginalData,
		UpdateTranscript: input.UpdateTranscript,
		ResultData:       input.ResultData,
	})
	return nil, judgeOutput{Judge: resp.Judge}, nil
}
