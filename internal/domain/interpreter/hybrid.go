package interpreter

import (
	"context"
	"errors"
	"log/slog"

	"github.com/yanqian/health-journal/internal/domain/healthrecord"
)

// HybridInterpreter prefers the model and falls back to rules when the
// backend is unavailable, slow, or returns malformed output. Semantic
// failures (ambiguity, missing magnitude) are returned as-is.
type HybridInterpreter struct {
	primary  Interpreter
	fallback Interpreter
	logger   *slog.Logger
}

// NewHybridInterpreter composes a primary and fallback interpreter.
func NewHybridInterpreter(primary, fallback Interpreter, logger *slog.Logger) *HybridInterpreter {
	return &HybridInterpreter{
		primary:  primary,
		fallback: fallback,
		logger:   logger.With("component", "interpreter.hybrid"),
	}
}

// Interpret implements Interpreter.
func (h *HybridInterpreter) Interpret(ctx context.Context, record healthrecord.Record, updateText string) ([]healthrecord.Change, error) {
	changes, err := h.primary.Interpret(ctx, record, updateText)
	if err == nil {
		return changes, nil
	}
	if !errors.Is(err, ErrBackend) && !errors.Is(err, ErrInterpretationTimeout) {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, err
	}
	h.logger.Warn("model interpretation failed, using rules", "error", err)
	return h.fallback.Interpret(ctx, record, updateText)
}
