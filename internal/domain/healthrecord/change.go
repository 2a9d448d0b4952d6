package healthrecord

import (
	"fmt"
	"strings"
)

// Operation classifies how a Change affects its field.
type Operation string

const (
	OpAdd     Operation = "ADD"
	OpReplace Operation = "REPLACE"
	OpRemove  Operation = "REMOVE"
)

// ParseOperation accepts any casing.
func ParseOperation(raw string) (Operation, bool) {
	switch Operation(strings.ToUpper(strings.TrimSpace(raw))) {
	case OpAdd:
		return OpAdd, true
	case OpReplace:
		return OpReplace, true
	case OpRemove:
		return OpRemove, true
	}
	return "", false
}

// Canonical field paths understood by the merge engine.
const (
	PathDate              = "date"
	PathScreenTimeHours   = "screenTimeHours"
	PathWaterIntakeLiters = "waterIntakeLiters"
	PathEnergyLevel       = "energyLevel"
	PathWeightKg          = "weightKg"
	PathOtherActivities   = "otherActivities"
	PathNotes             = "notes"
	PathSleepHours        = "sleep.hours"
	PathSleepQuality      = "sleep.quality"
	PathMoodRating        = "mood.rating"
	PathMoodNotes         = "mood.notes"
	PathPain              = "painDiscomfort"
	PathPainLocation      = "painDiscomfort.location"
	PathPainIntensity     = "painDiscomfort.intensity"
	PathPainNotes         = "painDiscomfort.notes"
	PathWorkouts          = "workouts"
	PathWorkoutType       = "workouts.type"
	PathWorkoutDuration   = "workouts.durationMinutes"
	PathWorkoutDistance   = "workouts.distanceKm"
	PathWorkoutIntensity  = "workouts.intensity"
	PathWorkoutNotes      = "workouts.notes"
	PathMeals             = "meals"
	PathMealNotes         = "meals.notes"
)

var knownPaths = map[string]struct{}{
	PathDate: {}, PathScreenTimeHours: {}, PathWaterIntakeLiters: {}, PathEnergyLevel: {},
	PathWeightKg: {}, PathOtherActivities: {}, PathNotes: {}, PathSleepHours: {},
	PathSleepQuality: {}, PathMoodRating: {}, PathMoodNotes: {}, PathPain: {},
	PathPainLocation: {}, PathPainIntensity: {}, PathPainNotes: {}, PathWorkouts: {},
	PathWorkoutType: {}, PathWorkoutDuration: {}, PathWorkoutDistance: {},
	PathWorkoutIntensity: {}, PathWorkoutNotes: {}, PathMeals: {}, PathMealNotes: {},
}

// pathAliases maps common spellings (snake_case, legacy names) onto canonical paths.
var pathAliases = map[string]string{
	"screen_time_hours":   PathScreenTimeHours,
	"screentime":          PathScreenTimeHours,
	"water_intake_liters": PathWaterIntakeLiters,
	"water":               PathWaterIntakeLiters,
	"energy_level":        PathEnergyLevel,
	"energy":              PathEnergyLevel,
	"weight_kg":           PathWeightKg,
	"weight":              PathWeightKg,
	"other_activities":    PathOtherActivities,
	"sleep.duration":      PathSleepHours,
	"mood":                PathMoodRating,
	"pain":                PathPain,
	"pain_discomfort":     PathPain,
	"workout":             PathWorkouts,
	"meal":                PathMeals,
}

// CanonicalPath resolves aliases and reports whether the path is known.
func CanonicalPath(raw string) (string, bool) {
	p := strings.TrimSpace(raw)
	if _, ok := knownPaths[p]; ok {
		return p, true
	}
	if alias, ok := pathAliases[strings.ToLower(p)]; ok {
		return alias, true
	}
	for known := range knownPaths {
		if strings.EqualFold(known, p) {
			return known, true
		}
	}
	return p, false
}

// Selector picks the list element a Change targets.
type Selector struct {
	Index       *int     `json:"index,omitempty"`
	MealType    MealType `json:"mealType,omitempty"`
	WorkoutType string   `json:"workoutType,omitempty"`
}

// Change is a single directive produced by the interpreter and consumed by the merge engine.
//
// Value carries a type appropriate to FieldPath: a number for numeric fields, a
// string for text fields, a Workout/Meal/Pain (or an equivalent JSON object)
// for whole list elements and the pain object, and nil for REMOVE.
type Change struct {
	FieldPath  string    `json:"fieldPath"`
	Operation  Operation `json:"operation"`
	Target     *Selector `json:"target,omitempty"`
	Value      any       `json:"value,omitempty"`
	Correction bool      `json:"correction,omitempty"`
}

// Key identifies the field or element a change addresses. Changes with equal
// keys within a single utterance are consolidated.
func (c Change) Key() string {
	var b strings.Builder
	b.WriteString(c.FieldPath)
	if c.Target != nil {
		if c.Target.Index != nil {
			fmt.Fprintf(&b, "[%d]", *c.Target.Index)
		}
		if c.Target.MealType != "" {
			fmt.Fprintf(&b, "[%s]", c.Target.MealType)
		}
		if c.Target.WorkoutType != "" {
			fmt.Fprintf(&b, "[%s]", strings.ToLower(c.Target.WorkoutType))
		}
	}
	return b.String()
}

// String renders a compact human readable form used in logs and CLI output.
func (c Change) String() string {
	if c.Operation == OpRemove {
		return fmt.Sprintf("%s %s", c.Operation, c.Key())
	}
	return fmt.Sprintf("%s %s = %v", c.Operation, c.Key(), describeValue(c.Value))
}

func describeValue(v any) any {
	switch t := v.(type) {
	case Workout:
		return fmt.Sprintf("{%s %.0fmin}", t.Type, t.DurationMinutes)
	case Meal:
		return fmt.Sprintf("{%s: %s}", t.Type, t.Notes)
	case Pain:
		if t.Location != nil {
			return fmt.Sprintf("{pain %s}", *t.Location)
		}
		return "{pain}"
	default:
		return v
	}
}

// IndexSelector builds a selector for a list position.
func IndexSelector(i int) *Selector {
	return &Selector{Index: Int(i)}
}

// MealSelector builds a selector for a meal type.
func MealSelector(t MealType) *Selector {
	return &Selector{MealType: t}
}
