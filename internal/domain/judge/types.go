package judge

import (
	"context"
	"time"

	"github.com/yanqian/health-journal/internal/domain/healthrecord"
)

// Evaluation methods reported on a Verdict.
const (
	MethodLLM   = "llm"
	MethodBasic = "basic"
)

// Request is the triple a verdict is computed from.
type Request struct {
	OriginalData     healthrecord.Record `json:"originalData"`
	UpdateTranscript string              `json:"updateTranscript"`
	ResultData       healthrecord.Record `json:"resultData"`
}

// Scores are each in [0,100].
type Scores struct {
	Completeness   float64 `json:"completeness"`
	Accuracy       float64 `json:"accuracy"`
	Preservation   float64 `json:"preservation"`
	SchemaValidity float64 `json:"schemaValidity"`
}

// Verdict is the judge's assessment of one merge.
type Verdict struct {
	Scores    Scores   `json:"scores"`
	Overall   float64  `json:"overall"`
	Passed    bool     `json:"passed"`
	Issues    []string `json:"issues"`
	Method    string   `json:"method"`
	Reasoning string   `json:"reasoning,omitempty"`
}

// Weights control how the four axes combine into Overall.
type Weights struct {
	Completeness   float64 `yaml:"completeness"`
	Accuracy       float64 `yaml:"accuracy"`
	Preservation   float64 `yaml:"preservation"`
	SchemaValidity float64 `yaml:"schemaValidity"`
}

// Config holds runtime knobs for the judge.
type Config struct {
	Model         string
	Temperature   float32
	Prompt        string
	Weights       Weights
	PassThreshold float64
	Timeout       time.Duration
	CacheTTL      time.Duration
}

// VerdictCache stores verdicts keyed by a content hash of the request.
type VerdictCache interface {
	GetVerdict(ctx context.Context, key string) (Verdict, bool, error)
	SaveVerdict(ctx context.Context, key string, verdict Verdict, ttl time.Duration) error
}
