package interpreter

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/yanqian/health-journal/internal/domain/healthrecord"
)

// RuleInterpreter classifies updates with keyword cues and pattern matching.
// It needs no network access and backs the LLM interpreter when that fails.
type RuleInterpreter struct {
	cfg     Config
	counter TokenCounter
	logger  *slog.Logger
}

// NewRuleInterpreter builds a deterministic interpreter. counter may be nil.
func NewRuleInterpreter(cfg Config, counter TokenCounter, logger *slog.Logger) *RuleInterpreter {
	return &RuleInterpreter{
		cfg:     cfg.withDefaults(),
		counter: counter,
		logger:  logger.With("component", "interpreter.rules"),
	}
}

// Interpret implements Interpreter. A fragment that names a health field but
// yields no directive fails the update with ErrUnparseableUpdate rather than
// being dropped.
func (r *RuleInterpreter) Interpret(ctx context.Context, record healthrecord.Record, updateText string) ([]healthrecord.Change, error) {
	changes, unread, err := r.InterpretPartial(ctx, record, updateText)
	if err != nil {
		return nil, err
	}
	if len(unread) > 0 {
		r.logger.Debug("rule interpretation left fragments unread", "fragments", unread)
		return nil, fmt.Errorf("%w: could not read %q", ErrUnparseableUpdate, unread[0])
	}
	return changes, nil
}

// InterpretPartial is Interpret for first-pass extraction over long
// transcripts: fragments that named a field but produced nothing are returned
// next to the directives instead of failing the call.
func (r *RuleInterpreter) InterpretPartial(_ context.Context, record healthrecord.Record, updateText string) ([]healthrecord.Change, []string, error) {
	text, err := prepare(updateText, r.counter, r.cfg.MaxUpdateTokens)
	if err != nil {
		return nil, nil, err
	}
	p := &parser{cfg: r.cfg, record: record}
	var unread []string
	for _, g := range splitGroups(normalizeText(text)) {
		before := len(p.changes)
		p.acknowledged = false
		if err := p.handle(g); err != nil {
			r.logger.Debug("rule interpretation stopped", "group", g.text, "error", err)
			return nil, nil, err
		}
		if len(p.changes) == before && !p.acknowledged && len(categoriesIn(g.text)) > 0 {
			unread = append(unread, g.text)
		}
	}
	changes := Consolidate(p.result())
	if len(changes) == 0 {
		return nil, nil, ErrUnparseableUpdate
	}
	r.logger.Debug("rule interpretation complete", "changes", len(changes), "unread", len(unread))
	return changes, unread, nil
}

// workoutRef points either at an existing workout or at a workout ADD emitted
// earlier in the same utterance.
type workoutRef struct {
	index   int
	pending int
}

func (w workoutRef) isPending() bool { return w.pending >= 0 }

type parser struct {
	cfg    Config
	record healthrecord.Record

	changes     []healthrecord.Change
	dropped     map[int]bool
	lastMeal    healthrecord.MealType
	lastWorkout *workoutRef
	lastField   string

	// acknowledged marks a group that was understood but needs no directive.
	acknowledged bool
}

func (p *parser) result() []healthrecord.Change {
	out := make([]healthrecord.Change, 0, len(p.changes))
	for i, ch := range p.changes {
		if p.dropped[i] {
			continue
		}
		out = append(out, ch)
	}
	return out
}

func (p *parser) emit(ch healthrecord.Change) {
	p.changes = append(p.changes, ch)
	switch ch.FieldPath {
	case healthrecord.PathMoodRating, healthrecord.PathEnergyLevel, healthrecord.PathSleepHours,
		healthrecord.PathSleepQuality, healthrecord.PathWaterIntakeLiters, healthrecord.PathScreenTimeHours,
		healthrecord.PathWeightKg, healthrecord.PathPainIntensity:
		p.lastField = ch.FieldPath
	}
}

// handle routes a group to every extractor whose category it mentions.
func (p *parser) handle(g group) error {
	cats := categoriesIn(g.text)
	if len(cats) == 0 {
		return p.uncategorised(g)
	}
	has := make(map[category]bool, len(cats))
	for _, c := range cats {
		has[c] = true
	}
	for _, c := range cats {
		var err error
		switch c {
		case catPain:
			err = p.pain(g)
		case catWorkout:
			err = p.workout(g)
		case catMeal:
			err = p.meal(g)
		case catSleep:
			err = p.sleep(g)
		case catWater:
			err = p.water(g)
		case catWeight:
			err = p.weight(g)
		case catScreen:
			err = p.screen(g)
		case catMood:
			err = p.mood(g, has[catPain] || has[catWorkout] || has[catSleep])
		case catEnergy:
			err = p.energy(g)
		case catNotes:
			err = p.notes(g)
		case catOther:
			if !has[catWorkout] {
				err = p.other(g)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// uncategorised handles fragments that name no field: meal follow-ups such as
// "it had cheese too", workout follow-ups such as "it was 45 minutes", and
// bare corrections such as "make it 8".
func (p *parser) uncategorised(g group) error {
	if handled, err := p.vagueMeal(g); handled || err != nil {
		return err
	}
	_, hasDur := parseDuration(g.text)
	_, hasDist := parseDistance(g.text)
	dir, _ := deltaDirection(g.text)
	if (hasDur || hasDist || dir != 0) && p.hasWorkoutCandidates() {
		return p.workout(g)
	}
	if g.replace && p.lastField != "" {
		if m := numberRe.FindString(g.text); m != "" {
			p.emit(healthrecord.Change{
				FieldPath:  p.lastField,
				Operation:  healthrecord.OpReplace,
				Value:      parseFloat(m),
				Correction: true,
			})
		}
	}
	return nil
}

func (p *parser) mealCandidates() []healthrecord.Meal {
	out := make([]healthrecord.Meal, 0, len(p.record.Meals)+2)
	seen := map[healthrecord.MealType]int{}
	for _, m := range p.record.Meals {
		if t, ok := healthrecord.ParseMealType(string(m.Type)); ok {
			m.Type = t
		}
		seen[m.Type] = len(out)
		out = append(out, m)
	}
	for i, ch := range p.changes {
		if p.dropped[i] || ch.FieldPath != healthrecord.PathMeals || ch.Operation == healthrecord.OpRemove {
			continue
		}
		if m, ok := ch.Value.(healthrecord.Meal); ok {
			if pos, exists := seen[m.Type]; exists {
				out[pos].Notes = healthrecord.JoinNotes(out[pos].Notes, m.Notes)
				continue
			}
			seen[m.Type] = len(out)
			out = append(out, m)
		}
	}
	return out
}

// resolveMeal picks the meal a vague reference means. Resolution order: a noun
// hint matching existing notes, the meal last mentioned in this utterance, a
// single candidate, then the ambiguity policy. ok is false when there are no
// meals at all.
func (p *parser) resolveMeal(reference, hint string) (healthrecord.MealType, bool, error) {
	candidates := p.mealCandidates()
	if hint != "" {
		var matched []healthrecord.MealType
		for _, m := range candidates {
			if strings.Contains(strings.ToLower(m.Notes), hint) || strings.EqualFold(string(m.Type), hint) {
				matched = append(matched, m.Type)
			}
		}
		if len(matched) == 1 {
			return matched[0], true, nil
		}
	}
	if p.lastMeal != "" {
		return p.lastMeal, true, nil
	}
	switch len(candidates) {
	case 0:
		return "", false, nil
	case 1:
		return candidates[0].Type, true, nil
	}
	if p.cfg.AmbiguityPolicy == AmbiguityMostRecent {
		return candidates[len(candidates)-1].Type, true, nil
	}
	names := make([]string, 0, len(candidates))
	for _, m := range candidates {
		names = append(names, string(m.Type))
	}
	return "", false, &AmbiguousReferenceError{Reference: reference, Category: "meals", Candidates: names}
}

type workoutCandidate struct {
	ref  workoutRef
	kind string
}

func (p *parser) workoutCandidates() []workoutCandidate {
	out := make([]workoutCandidate, 0, len(p.record.Workouts))
	for i, w := range p.record.Workouts {
		out = append(out, workoutCandidate{ref: workoutRef{index: i, pending: -1}, kind: w.Type})
	}
	for i, ch := range p.changes {
		if p.dropped[i] || ch.FieldPath != healthrecord.PathWorkouts || ch.Operation != healthrecord.OpAdd {
			continue
		}
		if w, ok := ch.Value.(healthrecord.Workout); ok {
			out = append(out, workoutCandidate{ref: workoutRef{index: -1, pending: i}, kind: w.Type})
		}
	}
	return out
}

func (p *parser) hasWorkoutCandidates() bool {
	return p.lastWorkout != nil || len(p.workoutCandidates()) > 0
}

// resolveWorkout picks the workout a reference means: by activity type when
// one is named, else the workout last mentioned, else the only workout, else
// the ambiguity policy.
func (p *parser) resolveWorkout(reference, kind string) (workoutRef, bool, error) {
	all := p.workoutCandidates()
	candidates := all
	if kind != "" {
		candidates = candidates[:0:0]
		for _, c := range all {
			if strings.EqualFold(c.kind, kind) {
				candidates = append(candidates, c)
			}
		}
	} else if p.lastWorkout != nil {
		return *p.lastWorkout, true, nil
	}
	switch len(candidates) {
	case 0:
		return workoutRef{}, false, nil
	case 1:
		return candidates[0].ref, true, nil
	}
	if kind != "" && p.lastWorkout != nil {
		for _, c := range candidates {
			if c.ref == *p.lastWorkout {
				return c.ref, true, nil
			}
		}
	}
	if p.cfg.AmbiguityPolicy == AmbiguityMostRecent {
		return candidates[len(candidates)-1].ref, true, nil
	}
	names := make([]string, 0, len(candidates))
	for i, c := range candidates {
		names = append(names, fmt.Sprintf("%s #%d", c.kind, i+1))
	}
	return workoutRef{}, false, &AmbiguousReferenceError{Reference: reference, Category: "workouts", Candidates: names}
}

// workoutValue returns the current state of the referenced workout.
func (p *parser) workoutValue(ref workoutRef) healthrecord.Workout {
	if ref.isPending() {
		w, _ := p.changes[ref.pending].Value.(healthrecord.Workout)
		return w
	}
	return p.record.Workouts[ref.index]
}

// setWorkoutField edits a pending ADD in place or emits a REPLACE against an
// existing workout.
func (p *parser) setWorkoutField(ref workoutRef, path string, value any, correction bool) {
	if ref.isPending() {
		w, _ := p.changes[ref.pending].Value.(healthrecord.Workout)
		w = w.Clone()
		switch path {
		case healthrecord.PathWorkoutType:
			w.Type, _ = value.(string)
		case healthrecord.PathWorkoutDuration:
			w.DurationMinutes, _ = value.(float64)
		case healthrecord.PathWorkoutDistance:
			if v, ok := value.(float64); ok {
				w.DistanceKm = healthrecord.Float(v)
			}
		case healthrecord.PathWorkoutIntensity:
			if v, ok := value.(float64); ok {
				w.Intensity = healthrecord.Int(int(math.Round(v)))
			}
		}
		p.changes[ref.pending].Value = w
		return
	}
	p.emit(healthrecord.Change{
		FieldPath:  path,
		Operation:  healthrecord.OpReplace,
		Target:     healthrecord.IndexSelector(ref.index),
		Value:      value,
		Correction: correction,
	})
}

func (p *parser) removeWorkout(ref workoutRef) {
	if ref.isPending() {
		if p.dropped == nil {
			p.dropped = map[int]bool{}
		}
		p.dropped[ref.pending] = true
		p.lastWorkout = nil
		return
	}
	p.emit(healthrecord.Change{
		FieldPath: healthrecord.PathWorkouts,
		Operation: healthrecord.OpRemove,
		Target:    healthrecord.IndexSelector(ref.index),
	})
	p.lastWorkout = nil
}

// scaled applies the delta policy to a magnitude-less comparative.
func (p *parser) scaled(field, phrase string, current *float64, direction int) (float64, error) {
	if p.cfg.DeltaPolicy != DeltaScale || current == nil {
		return 0, &UnderspecifiedUpdateError{Field: field, Phrase: phrase}
	}
	factor := 1 + p.cfg.DeltaFactor
	if direction < 0 {
		factor = 1 - p.cfg.DeltaFactor
	}
	return round2(*current * factor), nil
}

func intPtrAsFloat(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}
