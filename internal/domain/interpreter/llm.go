package interpreter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yanqian/health-journal/internal/domain/healthrecord"
	"github.com/yanqian/health-journal/internal/infra/llm/chatgpt"
)

// ChatClient is the subset of the chat completion client the interpreter needs.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error)
}

// LLMInterpreter asks a chat model to emit change directives as JSON.
type LLMInterpreter struct {
	cfg     Config
	client  ChatClient
	counter TokenCounter
	logger  *slog.Logger
}

// NewLLMInterpreter wires the model-backed interpreter. counter may be nil.
func NewLLMInterpreter(cfg Config, client ChatClient, counter TokenCounter, logger *slog.Logger) *LLMInterpreter {
	return &LLMInterpreter{
		cfg:     cfg.withDefaults(),
		client:  client,
		counter: counter,
		logger:  logger.With("component", "interpreter.llm"),
	}
}

// Interpret implements Interpreter.
func (l *LLMInterpreter) Interpret(ctx context.Context, record healthrecord.Record, updateText string) ([]healthrecord.Change, error) {
	text, err := prepare(updateText, l.counter, l.cfg.MaxUpdateTokens)
	if err != nil {
		return nil, err
	}
	current, err := healthrecord.Encode(record)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	completion, err := l.client.CreateChatCompletion(callCtx, chatgpt.ChatCompletionRequest{
		Model: l.cfg.Model,
		Messages: []chatgpt.Message{
			{Role: "system", Content: l.buildSystemPrompt()},
			{Role: "user", Content: fmt.Sprintf("Current record: %s\nUpdate: %s", current, text)},
		},
		Temperature:    l.cfg.Temperature,
		ResponseFormat: &chatgpt.ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, ErrInterpretationTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", ErrBackend)
	}
	l.logger.Debug("interpretation completion received",
		"promptTokens", completion.Usage.PromptTokens,
		"completionTokens", completion.Usage.CompletionTokens,
	)

	changes, err := l.parseDirectives(completion.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	return Consolidate(changes), nil
}

type directiveWire struct {
	Changes []struct {
		FieldPath  string                 `json:"fieldPath"`
		Operation  string                 `json:"operation"`
		Target     *healthrecord.Selector `json:"target"`
		Value      json.RawMessage        `json:"value"`
		Correction bool                   `json:"correction"`
	} `json:"changes"`
	Ambiguous *struct {
		Reference  string   `json:"reference"`
		Category   string   `json:"category"`
		Candidates []string `json:"candidates"`
	} `json:"ambiguous"`
	Underspecified *struct {
		Field  string `json:"field"`
		Phrase string `json:"phrase"`
	} `json:"underspecified"`
}

func (l *LLMInterpreter) parseDirectives(raw string) ([]healthrecord.Change, error) {
	var wire directiveWire
	if err := json.Unmarshal([]byte(chatgpt.ExtractJSON(raw)), &wire); err != nil {
		return nil, fmt.Errorf("%w: malformed directives: %v", ErrBackend, err)
	}
	if a := wire.Ambiguous; a != nil && len(a.Candidates) > 1 {
		return nil, &AmbiguousReferenceError{Reference: a.Reference, Category: a.Category, Candidates: a.Candidates}
	}
	if u := wire.Underspecified; u != nil && u.Field != "" {
		return nil, &UnderspecifiedUpdateError{Field: u.Field, Phrase: u.Phrase}
	}

	changes := make([]healthrecord.Change, 0, len(wire.Changes))
	for _, c := range wire.Changes {
		op, ok := healthrecord.ParseOperation(c.Operation)
		if !ok {
			op = healthrecord.Operation(strings.ToUpper(strings.TrimSpace(c.Operation)))
		}
		path := strings.TrimSpace(c.FieldPath)
		if canonical, ok := healthrecord.CanonicalPath(path); ok {
			path = canonical
		} else {
			// left in place so the merge engine reports it as skipped
			l.logger.Warn("model emitted unknown field path", "fieldPath", path)
		}
		ch := healthrecord.Change{
			FieldPath:  path,
			Operation:  op,
			Target:     c.Target,
			Correction: c.Correction,
		}
		if len(c.Value) > 0 && string(c.Value) != "null" {
			var v any
			if err := json.Unmarshal(c.Value, &v); err != nil {
				return nil, fmt.Errorf("%w: malformed value for %s: %v", ErrBackend, ch.FieldPath, err)
			}
			ch.Value = v
		}
		changes = append(changes, ch)
	}
	if len(changes) == 0 {
		return nil, ErrUnparseableUpdate
	}
	return changes, nil
}

func (l *LLMInterpreter) buildSystemPrompt() string {
	base := strings.TrimSpace(l.cfg.Prompt)
	if base == "" {
		base = "You convert a person's short spoken update about their day into edits of a structured health record."
	}
	policy := "If a vague reference (it, that) could mean several entries, report it under \"ambiguous\" with the candidate names."
	if l.cfg.AmbiguityPolicy == AmbiguityMostRecent {
		policy = "If a vague reference (it, that) could mean several entries, pick the last one in list order."
	}
	delta := "If the person says a value was longer, shorter, more or less without a number, report it under \"underspecified\" with the field path and phrase."
	if l.cfg.DeltaPolicy == DeltaScale {
		delta = fmt.Sprintf("If the person says a value was longer, shorter, more or less without a number, REPLACE it with the current value scaled by %.0f%% in that direction.", l.cfg.DeltaFactor*100)
	}
	rules := ` Respond ONLY with minified JSON of shape {"changes":[{"fieldPath":string,"operation":"ADD"|"REPLACE"|"REMOVE","target":{"index":number,"mealType":string,"workoutType":string}?,"value":any?,"correction":boolean?}],"ambiguous":{"reference":string,"category":string,"candidates":string[]}?,"underspecified":{"field":string,"phrase":string}?}.` +
		` Field paths: date, screenTimeHours, waterIntakeLiters, energyLevel, weightKg, otherActivities, notes, sleep.hours, sleep.quality, mood.rating, mood.notes, painDiscomfort, painDiscomfort.location, painDiscomfort.intensity, painDiscomfort.notes, workouts, workouts.type, workouts.durationMinutes, workouts.distanceKm, workouts.intensity, workouts.notes, meals, meals.notes.` +
		` Cues such as "also", "forgot to mention" and "and" mean ADD. Cues such as "actually", "change to", "not X but Y" mean REPLACE. Cues such as "didn't", "no longer", "remove" mean REMOVE.` +
		` Meal types are ` + healthrecord.MealTypeNames() + `; a meal ADD value is {"type","notes"}. A workout ADD value is {"type","durationMinutes","distanceKm"?,"intensity"?}. Use minutes, kilometres, litres, hours and kilograms. Ratings are integers 1 to 10.` +
		` Only emit changes the update asks for; never restate unchanged fields. ` + policy + " " + delta
	return base + rules
}
