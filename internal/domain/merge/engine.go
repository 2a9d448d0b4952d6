package merge

import (
	"fmt"
	"log/slog"

	"github.com/yanqian/health-journal/internal/domain/healthrecord"
)

// InvalidDirectiveError reports a directive the engine could not apply. It is
// fatal to that directive only.
type InvalidDirectiveError struct {
	Change healthrecord.Change `json:"change"`
	Reason string              `json:"reason"`
}

func (e *InvalidDirectiveError) Error() string {
	return fmt.Sprintf("invalid directive %s: %s", e.Change.Key(), e.Reason)
}

// Result is the outcome of applying a directive list.
type Result struct {
	Record   healthrecord.Record      `json:"record"`
	Applied  []healthrecord.Change    `json:"applied"`
	Skipped  []*InvalidDirectiveError `json:"skipped,omitempty"`
	Warnings []string                 `json:"warnings,omitempty"`
}

// Engine applies Change directives to records. It holds no per-call state and
// is safe for concurrent use.
type Engine struct {
	logger *slog.Logger
}

// NewEngine constructs the merge engine.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger.With("component", "merge.engine")}
}

// Apply returns a new record with changes applied in order. The input record
// is never modified; fields no directive addresses are carried over untouched.
// Directives that cannot be applied are skipped and reported in the result.
func (e *Engine) Apply(record healthrecord.Record, changes []healthrecord.Change) Result {
	out := record.Clone()
	res := Result{Applied: make([]healthrecord.Change, 0, len(changes))}

	for _, ch := range changes {
		path, ok := healthrecord.CanonicalPath(ch.FieldPath)
		if !ok {
			e.skip(&res, ch, "unknown field path")
			continue
		}
		ch.FieldPath = path
		op, ok := healthrecord.ParseOperation(string(ch.Operation))
		if !ok {
			e.skip(&res, ch, fmt.Sprintf("unknown operation %q", ch.Operation))
			continue
		}
		ch.Operation = op

		a := &applier{
			rec: &out,
			warn: func(format string, args ...any) {
				msg := fmt.Sprintf(format, args...)
				e.logger.Warn("merge directive adjusted", "field", ch.Key(), "detail", msg)
				res.Warnings = append(res.Warnings, msg)
			},
		}
		if err := a.apply(ch); err != nil {
			e.skip(&res, ch, err.Error())
			continue
		}
		res.Applied = append(res.Applied, ch)
	}

	res.Record = out
	return res
}

func (e *Engine) skip(res *Result, ch healthrecord.Change, reason string) {
	e.logger.Warn("merge directive skipped", "field", ch.Key(), "operation", ch.Operation, "reason", reason)
	res.Skipped = append(res.Skipped, &InvalidDirectiveError{Change: ch, Reason: reason})
}
