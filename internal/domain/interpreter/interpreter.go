package interpreter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yanqian/health-journal/internal/domain/healthrecord"
)

// Interpreter turns a free-text update into ordered Change directives against
// the current record. Implementations are pure with respect to their inputs.
type Interpreter interface {
	Interpret(ctx context.Context, record healthrecord.Record, updateText string) ([]healthrecord.Change, error)
}

// AmbiguityPolicy decides what happens when a vague reference matches several entries.
type AmbiguityPolicy string

const (
	// AmbiguityFail reports an AmbiguousReferenceError listing the candidates.
	AmbiguityFail AmbiguityPolicy = "fail"
	// AmbiguityMostRecent picks the last entry in list order.
	AmbiguityMostRecent AmbiguityPolicy = "most_recent"
)

// DeltaPolicy decides how magnitude-less corrections ("it was longer") are handled.
type DeltaPolicy string

const (
	// DeltaReject reports an UnderspecifiedUpdateError.
	DeltaReject DeltaPolicy = "reject"
	// DeltaScale moves the current value by Config.DeltaFactor.
	DeltaScale DeltaPolicy = "scale"
)

// Config holds runtime knobs for interpretation.
type Config struct {
	AmbiguityPolicy AmbiguityPolicy
	DeltaPolicy     DeltaPolicy
	DeltaFactor     float64
	MaxUpdateTokens int

	Model       string
	Temperature float32
	Prompt      string
	Timeout     time.Duration
}

// DefaultConfig returns the documented policy defaults.
func DefaultConfig() Config {
	return Config{
		AmbiguityPolicy: AmbiguityFail,
		DeltaPolicy:     DeltaReject,
		DeltaFactor:     0.2,
		MaxUpdateTokens: 512,
		Timeout:         20 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.AmbiguityPolicy == "" {
		c.AmbiguityPolicy = def.AmbiguityPolicy
	}
	if c.DeltaPolicy == "" {
		c.DeltaPolicy = def.DeltaPolicy
	}
	if c.DeltaFactor <= 0 {
		c.DeltaFactor = def.DeltaFactor
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	return c
}

var (
	// ErrEmptyUpdate is returned when the update text is blank after trimming.
	ErrEmptyUpdate = errors.New("update text is empty")
	// ErrUnparseableUpdate is returned when the utterance carries no actionable health information.
	ErrUnparseableUpdate = errors.New("update carries no actionable health information")
	// ErrInterpretationTimeout is returned when the backend call exceeds its deadline.
	ErrInterpretationTimeout = errors.New("interpretation timed out")
	// ErrUpdateTooLong is returned when the update exceeds the configured token budget.
	ErrUpdateTooLong = errors.New("update text is too long")
	// ErrBackend marks failures of the remote interpretation backend.
	ErrBackend = errors.New("interpretation backend failed")
)

// AmbiguousReferenceError names the entries a vague reference could mean.
type AmbiguousReferenceError struct {
	Reference  string   `json:"reference"`
	Category   string   `json:"category"`
	Candidates []string `json:"candidates"`
}

func (e *AmbiguousReferenceError) Error() string {
	return fmt.Sprintf("%q could refer to any of %s: %s", e.Reference, e.Category, strings.Join(e.Candidates, ", "))
}

// UnderspecifiedUpdateError reports a relative correction without a magnitude.
type UnderspecifiedUpdateError struct {
	Field  string `json:"field"`
	Phrase string `json:"phrase"`
}

func (e *UnderspecifiedUpdateError) Error() string {
	return fmt.Sprintf("%q changes %s without saying by how much", e.Phrase, e.Field)
}

// TokenCounter estimates prompt tokens for the pre-flight length guard.
type TokenCounter interface {
	Count(text string) int
}

// prepare trims the update and enforces the emptiness and length checks shared
// by every interpreter.
func prepare(updateText string, counter TokenCounter, maxTokens int) (string, error) {
	text := strings.TrimSpace(updateText)
	if text == "" {
		return "", ErrEmptyUpdate
	}
	if maxTokens > 0 && counter != nil && counter.Count(text) > maxTokens {
		return "", ErrUpdateTooLong
	}
	return text, nil
}
