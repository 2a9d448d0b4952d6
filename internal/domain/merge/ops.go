package merge

import (
	"errors"
	"fmt"

	"github.com/yanqian/health-journal/internal/domain/healthrecord"
)

// applier mutates rec for a single directive. Every operation validates and
// coerces its value before touching rec so a rejected directive leaves no trace.
type applier struct {
	rec  *healthrecord.Record
	warn func(format string, args ...any)
}

func (a *applier) apply(ch healthrecord.Change) error {
	r := a.rec
	switch ch.FieldPath {
	case healthrecord.PathDate:
		return a.date(ch)
	case healthrecord.PathScreenTimeHours:
		return a.quantity(&r.ScreenTimeHours, ch)
	case healthrecord.PathWaterIntakeLiters:
		return a.quantity(&r.WaterIntakeLiters, ch)
	case healthrecord.PathSleepHours:
		return a.quantity(&r.Sleep.Hours, ch)
	case healthrecord.PathEnergyLevel:
		return a.rating(&r.EnergyLevel, ch)
	case healthrecord.PathSleepQuality:
		return a.rating(&r.Sleep.Quality, ch)
	case healthrecord.PathMoodRating:
		return a.rating(&r.Mood.Rating, ch)
	case healthrecord.PathWeightKg:
		return a.weight(ch)
	case healthrecord.PathOtherActivities:
		return a.text(&r.OtherActivities, ch)
	case healthrecord.PathNotes:
		return a.text(&r.Notes, ch)
	case healthrecord.PathMoodNotes:
		return a.text(&r.Mood.Notes, ch)
	case healthrecord.PathPain:
		return a.pain(ch)
	case healthrecord.PathPainLocation:
		return a.painField(ch, func(p *healthrecord.Pain) error { return a.text(&p.Location, ch) })
	case healthrecord.PathPainIntensity:
		return a.painField(ch, func(p *healthrecord.Pain) error { return a.rating(&p.Intensity, ch) })
	case healthrecord.PathPainNotes:
		return a.painField(ch, func(p *healthrecord.Pain) error { return a.text(&p.Notes, ch) })
	case healthrecord.PathWorkouts:
		return a.workouts(ch)
	case healthrecord.PathWorkoutType, healthrecord.PathWorkoutDuration, healthrecord.PathWorkoutDistance,
		healthrecord.PathWorkoutIntensity, healthrecord.PathWorkoutNotes:
		return a.workoutField(ch)
	case healthrecord.PathMeals:
		return a.meals(ch)
	case healthrecord.PathMealNotes:
		return a.mealNotes(ch)
	}
	return fmt.Errorf("field path %q is not supported", ch.FieldPath)
}

func (a *applier) date(ch healthrecord.Change) error {
	if ch.Operation != healthrecord.OpReplace {
		return errors.New("date only supports REPLACE")
	}
	raw, err := asString(ch.Value)
	if err != nil {
		return err
	}
	date, err := healthrecord.ParseDate(raw)
	if err != nil {
		return err
	}
	a.rec.Date = date
	return nil
}

// quantity handles non-negative reals: ADD sums onto the current value.
func (a *applier) quantity(field **float64, ch healthrecord.Change) error {
	if ch.Operation == healthrecord.OpRemove {
		*field = nil
		return nil
	}
	v, err := asFloat(ch.Value)
	if err != nil {
		return err
	}
	if c, adjusted := healthrecord.ClampNonNegative(v); adjusted {
		a.warn("%s %v clamped to %v", ch.FieldPath, v, c)
		v = c
	}
	if ch.Operation == healthrecord.OpAdd && *field != nil {
		v += **field
	}
	*field = healthrecord.Float(v)
	return nil
}

// rating handles 1-10 integers; out-of-range values are clamped, never rejected.
func (a *applier) rating(field **int, ch healthrecord.Change) error {
	if ch.Operation == healthrecord.OpRemove {
		*field = nil
		return nil
	}
	v, err := asFloat(ch.Value)
	if err != nil {
		return err
	}
	r, adjusted := healthrecord.ClampRating(v)
	if adjusted {
		a.warn("%s %v clamped to %d", ch.FieldPath, v, r)
	}
	if ch.Operation == healthrecord.OpAdd {
		a.warn("%s is a rating; ADD applied as REPLACE", ch.FieldPath)
	}
	*field = healthrecord.Int(r)
	return nil
}

func (a *applier) weight(ch healthrecord.Change) error {
	if ch.Operation == healthrecord.OpRemove {
		a.rec.WeightKg = nil
		return nil
	}
	v, err := asFloat(ch.Value)
	if err != nil {
		return err
	}
	if v <= 0 {
		return fmt.Errorf("weightKg must be positive, got %v", v)
	}
	a.rec.WeightKg = healthrecord.Float(v)
	return nil
}

// text handles free text: ADD appends, REPLACE with an empty string clears.
func (a *applier) text(field **string, ch healthrecord.Change) error {
	if ch.Operation == healthrecord.OpRemove {
		*field = nil
		return nil
	}
	s, err := asString(ch.Value)
	if err != nil {
		return err
	}
	if ch.Operation == healthrecord.OpAdd {
		if s == "" {
			return errors.New("nothing to add")
		}
		current := ""
		if *field != nil {
			current = **field
		}
		*field = healthrecord.String(healthrecord.JoinNotes(current, s))
		return nil
	}
	if s == "" {
		*field = nil
		return nil
	}
	*field = healthrecord.String(s)
	return nil
}

func (a *applier) pain(ch healthrecord.Change) error {
	if ch.Operation == healthrecord.OpRemove {
		a.rec.PainDiscomfort = nil
		return nil
	}
	incoming, err := asPain(ch.Value)
	if err != nil {
		return err
	}
	if incoming.Intensity != nil {
		if r, adjusted := healthrecord.ClampRating(float64(*incoming.Intensity)); adjusted {
			a.warn("%s %d clamped to %d", healthrecord.PathPainIntensity, *incoming.Intensity, r)
			incoming.Intensity = healthrecord.Int(r)
		}
	}
	if ch.Operation == healthrecord.OpReplace || a.rec.PainDiscomfort == nil {
		a.rec.PainDiscomfort = &incoming
		return nil
	}
	merged := a.rec.PainDiscomfort.Clone()
	merged.Location = joinOptional(merged.Location, incoming.Location)
	merged.Notes = joinOptional(merged.Notes, incoming.Notes)
	if incoming.Intensity != nil {
		merged.Intensity = incoming.Intensity
	}
	a.rec.PainDiscomfort = &merged
	return nil
}

func (a *applier) painField(ch healthrecord.Change, fn func(p *healthrecord.Pain) error) error {
	if a.rec.PainDiscomfort == nil && ch.Operation == healthrecord.OpRemove {
		return nil
	}
	var working healthrecord.Pain
	if a.rec.PainDiscomfort != nil {
		working = a.rec.PainDiscomfort.Clone()
	}
	if err := fn(&working); err != nil {
		return err
	}
	if working.IsEmpty() {
		a.rec.PainDiscomfort = nil
		return nil
	}
	a.rec.PainDiscomfort = &working
	return nil
}

// workouts handles whole list elements. ADD always appends a new occurrence
// unless the directive is flagged as a correction of an existing index.
func (a *applier) workouts(ch healthrecord.Change) error {
	switch ch.Operation {
	case healthrecord.OpRemove:
		idx, err := a.workoutIndex(ch.Target)
		if err != nil {
			return err
		}
		list := make([]healthrecord.Workout, 0, len(a.rec.Workouts)-1)
		list = append(list, a.rec.Workouts[:idx]...)
		list = append(list, a.rec.Workouts[idx+1:]...)
		a.rec.Workouts = list
		return nil
	case healthrecord.OpReplace:
		idx, err := a.workoutIndex(ch.Target)
		if err != nil {
			return err
		}
		w, err := asWorkout(ch.Value)
		if err != nil {
			return err
		}
		a.rec.Workouts[idx] = a.clampWorkout(w)
		return nil
	default:
		w, err := asWorkout(ch.Value)
		if err != nil {
			return err
		}
		w = a.clampWorkout(w)
		if ch.Correction && ch.Target != nil {
			idx, err := a.workoutIndex(ch.Target)
			if err != nil {
				return err
			}
			a.rec.Workouts[idx] = w
			return nil
		}
		a.rec.Workouts = append(a.rec.Workouts, w)
		return nil
	}
}

func (a *applier) clampWorkout(w healthrecord.Workout) healthrecord.Workout {
	if c, adjusted := healthrecord.ClampNonNegative(w.DurationMinutes); adjusted {
		a.warn("%s %v clamped to %v", healthrecord.PathWorkoutDuration, w.DurationMinutes, c)
		w.DurationMinutes = c
	}
	if w.DistanceKm != nil {
		if c, adjusted := healthrecord.ClampNonNegative(*w.DistanceKm); adjusted {
			a.warn("%s %v clamped to %v", healthrecord.PathWorkoutDistance, *w.DistanceKm, c)
			w.DistanceKm = healthrecord.Float(c)
		}
	}
	if w.Intensity != nil {
		if r, adjusted := healthrecord.ClampRating(float64(*w.Intensity)); adjusted {
			a.warn("%s %d clamped to %d", healthrecord.PathWorkoutIntensity, *w.Intensity, r)
			w.Intensity = healthrecord.Int(r)
		}
	}
	return w
}

func (a *applier) workoutField(ch healthrecord.Change) error {
	idx, err := a.workoutIndex(ch.Target)
	if err != nil {
		return err
	}
	w := a.rec.Workouts[idx].Clone()
	switch ch.FieldPath {
	case healthrecord.PathWorkoutType:
		if ch.Operation == healthrecord.OpRemove {
			return errors.New("workout type cannot be removed")
		}
		s, err := asString(ch.Value)
		if err != nil {
			return err
		}
		if s == "" {
			return errors.New("workout type cannot be empty")
		}
		w.Type = s
	case healthrecord.PathWorkoutDuration:
		duration := healthrecord.Float(w.DurationMinutes)
		if err := a.quantity(&duration, ch); err != nil {
			return err
		}
		w.DurationMinutes = 0
		if duration != nil {
			w.DurationMinutes = *duration
		}
	case healthrecord.PathWorkoutDistance:
		if err := a.quantity(&w.DistanceKm, ch); err != nil {
			return err
		}
	case healthrecord.PathWorkoutIntensity:
		if err := a.rating(&w.Intensity, ch); err != nil {
			return err
		}
	case healthrecord.PathWorkoutNotes:
		if err := a.text(&w.Notes, ch); err != nil {
			return err
		}
	}
	a.rec.Workouts[idx] = w
	return nil
}

// workoutIndex resolves a selector: explicit index, else the most recent
// workout of the named type, else the only workout when exactly one exists.
func (a *applier) workoutIndex(sel *healthrecord.Selector) (int, error) {
	n := len(a.rec.Workouts)
	if n == 0 {
		return 0, errors.New("record has no workouts")
	}
	if sel != nil && sel.Index != nil {
		if *sel.Index < 0 || *sel.Index >= n {
			return 0, fmt.Errorf("workout index %d out of range", *sel.Index)
		}
		return *sel.Index, nil
	}
	if sel != nil && sel.WorkoutType != "" {
		matches := a.rec.WorkoutIndexes(sel.WorkoutType)
		if len(matches) == 0 {
			return 0, fmt.Errorf("no %s workout recorded", sel.WorkoutType)
		}
		return matches[len(matches)-1], nil
	}
	if n == 1 {
		return 0, nil
	}
	return 0, errors.New("target workout is required when several workouts exist")
}

// meals keeps at most one entry per type: ADD to an existing type extends its notes.
func (a *applier) meals(ch healthrecord.Change) error {
	switch ch.Operation {
	case healthrecord.OpRemove:
		t, err := mealType(ch)
		if err != nil {
			return err
		}
		idx := a.rec.MealIndex(t)
		if idx < 0 {
			return fmt.Errorf("no %s entry recorded", t)
		}
		list := make([]healthrecord.Meal, 0, len(a.rec.Meals)-1)
		list = append(list, a.rec.Meals[:idx]...)
		list = append(list, a.rec.Meals[idx+1:]...)
		a.rec.Meals = list
		return nil
	case healthrecord.OpReplace:
		m, err := asMeal(ch.Value)
		if err != nil {
			return err
		}
		target := m.Type
		if ch.Target != nil && ch.Target.MealType != "" {
			if t, ok := healthrecord.ParseMealType(string(ch.Target.MealType)); ok {
				target = t
			}
		}
		if idx := a.rec.MealIndex(target); idx >= 0 {
			a.rec.Meals[idx] = m
			a.foldMeal(idx)
			return nil
		}
		if idx := a.rec.MealIndex(m.Type); idx >= 0 {
			a.rec.Meals[idx] = m
			return nil
		}
		a.rec.Meals = append(a.rec.Meals, m)
		return nil
	default:
		m, err := asMeal(ch.Value)
		if err != nil {
			return err
		}
		if idx := a.rec.MealIndex(m.Type); idx >= 0 {
			a.rec.Meals[idx].Type = m.Type
			a.rec.Meals[idx].Notes = healthrecord.JoinNotes(a.rec.Meals[idx].Notes, m.Notes)
			return nil
		}
		a.rec.Meals = append(a.rec.Meals, m)
		return nil
	}
}

// foldMeal merges any other entry sharing the type of the meal at idx into it,
// which happens when a REPLACE retypes a meal onto one already recorded.
func (a *applier) foldMeal(idx int) {
	kept := a.rec.Meals[idx]
	list := make([]healthrecord.Meal, 0, len(a.rec.Meals))
	at := -1
	for i, m := range a.rec.Meals {
		if i == idx {
			at = len(list)
			list = append(list, kept)
			continue
		}
		if canonical, ok := healthrecord.ParseMealType(string(m.Type)); ok && canonical == kept.Type {
			kept.Notes = healthrecord.JoinNotes(kept.Notes, m.Notes)
			a.warn("duplicate %s entry merged", kept.Type)
			continue
		}
		list = append(list, m)
	}
	list[at] = kept
	a.rec.Meals = list
}

func (a *applier) mealNotes(ch healthrecord.Change) error {
	t, err := mealType(ch)
	if err != nil {
		return err
	}
	idx := a.rec.MealIndex(t)
	if ch.Operation == healthrecord.OpRemove {
		if idx < 0 {
			return fmt.Errorf("no %s entry recorded", t)
		}
		a.rec.Meals[idx] = healthrecord.Meal{Type: t}
		return nil
	}
	s, err := asString(ch.Value)
	if err != nil {
		return err
	}
	if idx < 0 {
		a.rec.Meals = append(a.rec.Meals, healthrecord.Meal{Type: t, Notes: s})
		return nil
	}
	a.rec.Meals[idx].Type = t
	if ch.Operation == healthrecord.OpAdd {
		a.rec.Meals[idx].Notes = healthrecord.JoinNotes(a.rec.Meals[idx].Notes, s)
		return nil
	}
	a.rec.Meals[idx].Notes = s
	return nil
}

// mealType takes the type from the selector, falling back to the value's type.
func mealType(ch healthrecord.Change) (healthrecord.MealType, error) {
	if ch.Target != nil && ch.Target.MealType != "" {
		t, ok := healthrecord.ParseMealType(string(ch.Target.MealType))
		if !ok {
			return "", fmt.Errorf("meal type %q is not valid", ch.Target.MealType)
		}
		return t, nil
	}
	if ch.Value != nil {
		if m, err := asMeal(ch.Value); err == nil {
			return m.Type, nil
		}
	}
	return "", errors.New("target meal type is required")
}

func joinOptional(existing, addition *string) *string {
	switch {
	case addition == nil:
		return existing
	case existing == nil:
		return addition
	default:
		return healthrecord.String(healthrecord.JoinNotes(*existing, *addition))
	}
}
