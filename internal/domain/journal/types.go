package journal

import (
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/health-journal/internal/domain/healthrecord"
	"github.com/yanqian/health-journal/internal/domain/judge"
	"github.com/yanqian/health-journal/internal/domain/merge"
	"github.com/yanqian/health-journal/pkg/metrics"
)

// Entry is one persisted day log.
type Entry struct {
	ID         uuid.UUID           `json:"id"`
	Date       string              `json:"date"`
	Transcript string              `json:"transcript"`
	AudioURL   string              `json:"audioUrl,omitempty"`
	Record     healthrecord.Record `json:"record"`
	Version    int                 `json:"version"`
	CreatedAt  time.Time           `json:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`
}

// UpdateRequest merges a free-text update into a record supplied by the caller.
type UpdateRequest struct {
	OriginalData     healthrecord.Record `json:"originalData"`
	UpdateTranscript string              `json:"updateTranscript"`
}

// UpdateResponse reports the merged record together with every directive the
// engine applied or skipped.
type UpdateResponse struct {
	Success  bool                           `json:"success"`
	Data     healthrecord.Record            `json:"data"`
	Changes  []healthrecord.Change          `json:"changes"`
	Skipped  []*merge.InvalidDirectiveError `json:"skipped,omitempty"`
	Warnings []string                       `json:"warnings,omitempty"`
}

// JudgeRequest is the triple the judge scores.
type JudgeRequest = judge.Request

// JudgeResponse wraps a verdict.
type JudgeResponse struct {
	Judge judge.Verdict `json:"judge"`
}

// ExtractRequest turns a raw transcript into a first-pass record.
type ExtractRequest struct {
	Transcript string `json:"transcript"`
	Date       string `json:"date"`
}

// ExtractResponse carries the extracted record and how it was produced.
type ExtractResponse struct {
	Data     healthrecord.Record `json:"data"`
	Method   string              `json:"method"`
	Warnings []string            `json:"warnings,omitempty"`
	Usage    metrics.TokenUsage  `json:"usage"`
}

// Extraction methods.
const (
	ExtractMethodLLM   = "llm"
	ExtractMethodRules = "rules"
)

// TranscribeRequest carries a recorded clip.
type TranscribeRequest struct {
	Filename string
	MimeType string
	Audio    []byte
}

// TranscribeResponse is the transcript plus where the clip was stored.
type TranscribeResponse struct {
	Transcript string `json:"transcript"`
	AudioURL   string `json:"audioUrl,omitempty"`
}

// CreateEntryRequest stores a new day log. When Record is nil the transcript
// is run through extraction first.
type CreateEntryRequest struct {
	Date       string               `json:"date"`
	Transcript string               `json:"transcript"`
	AudioURL   string               `json:"audioUrl"`
	Record     *healthrecord.Record `json:"record"`
}

// ListFilter bounds ListEntries by inclusive YYYY-MM-DD dates; empty means open.
type ListFilter struct {
	From string
	To   string
}

// ApplyUpdateRequest merges an update into a stored entry.
type ApplyUpdateRequest struct {
	ID               uuid.UUID `json:"-"`
	UpdateTranscript string    `json:"updateTranscript"`
	ExpectedVersion  int       `json:"expectedVersion"`
}

// ApplyUpdateResponse is the saved entry and the merge report.
type ApplyUpdateResponse struct {
	Entry    Entry                          `json:"entry"`
	Changes  []healthrecord.Change          `json:"changes"`
	Skipped  []*merge.InvalidDirectiveError `json:"skipped,omitempty"`
	Warnings []string                       `json:"warnings,omitempty"`
}

// Error codes surfaced through pkg/errors.AppError.
const (
	CodeInvalidInput          = "invalid_input"
	CodeEmptyUpdate           = "empty_update"
	CodeUnparseableUpdate     = "unparseable_update"
	CodeAmbiguousReference    = "ambiguous_reference"
	CodeUnderspecifiedUpdate  = "underspecified_update"
	CodeInterpretationTimeout = "interpretation_timeout"
	CodeLLMError              = "llm_error"
	CodeTranscriptionError    = "transcription_error"
	CodeStorageError          = "storage_error"
	CodeNotFound              = "not_found"
	CodeVersionConflict       = "version_conflict"
)
