package healthrecord

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// DateLayout is the canonical calendar date format.
const DateLayout = "2006-01-02"

// Rating bounds shared by intensity, mood, energy and sleep quality.
const (
	MinRating = 1
	MaxRating = 10
)

var dateLayouts = []string{DateLayout, time.RFC3339, "2006/01/02", "2006-1-2", "01/02/2006"}

// ParseDate accepts the layouts clients commonly send and returns YYYY-MM-DD.
func ParseDate(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, trimmed); err == nil {
			return ts.Format(DateLayout), nil
		}
	}
	return "", fmt.Errorf("unrecognised date %q", raw)
}

// ClampRating rounds v to an integer in [1,10]. adjusted is true when the
// stored value differs from the input.
func ClampRating(v float64) (int, bool) {
	if math.IsNaN(v) {
		return MinRating, true
	}
	rounded := math.Round(v)
	clamped := math.Max(MinRating, math.Min(MaxRating, rounded))
	return int(clamped), clamped != v
}

// ClampNonNegative floors v at zero.
func ClampNonNegative(v float64) (float64, bool) {
	if v < 0 || math.IsNaN(v) {
		return 0, true
	}
	return v, false
}

// Normalize returns a canonical copy of r: date in YYYY-MM-DD, meal types
// spelled canonically with duplicates collapsed, ratings in range and
// non-negative quantities floored at zero. Each adjustment is described in
// the returned warnings.
func Normalize(r Record) (Record, []string) {
	out := r.Clone()
	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(out.Date) != "" {
		if date, err := ParseDate(out.Date); err == nil {
			out.Date = date
		} else {
			warn("date %q is not a calendar date", out.Date)
		}
	}

	clampFloat := func(name string, v *float64) {
		if v == nil {
			return
		}
		if c, adjusted := ClampNonNegative(*v); adjusted {
			warn("%s %v clamped to %v", name, *v, c)
			*v = c
		}
	}
	clampInt := func(name string, v *int) {
		if v == nil {
			return
		}
		if c, adjusted := ClampRating(float64(*v)); adjusted {
			warn("%s %d clamped to %d", name, *v, c)
			*v = c
		}
	}

	clampFloat(PathScreenTimeHours, out.ScreenTimeHours)
	clampFloat(PathWaterIntakeLiters, out.WaterIntakeLiters)
	clampFloat(PathSleepHours, out.Sleep.Hours)
	clampInt(PathSleepQuality, out.Sleep.Quality)
	clampInt(PathEnergyLevel, out.EnergyLevel)
	clampInt(PathMoodRating, out.Mood.Rating)
	if out.WeightKg != nil && *out.WeightKg <= 0 {
		warn("weightKg %v is not positive and was dropped", *out.WeightKg)
		out.WeightKg = nil
	}
	if out.PainDiscomfort != nil {
		clampInt(PathPainIntensity, out.PainDiscomfort.Intensity)
	}

	for i := range out.Workouts {
		w := &out.Workouts[i]
		name := fmt.Sprintf("workouts[%d]", i)
		if c, adjusted := ClampNonNegative(w.DurationMinutes); adjusted {
			warn("%s.durationMinutes %v clamped to %v", name, w.DurationMinutes, c)
			w.DurationMinutes = c
		}
		clampFloat(name+".distanceKm", w.DistanceKm)
		clampInt(name+".intensity", w.Intensity)
	}

	meals, mealWarnings := CollapseMeals(out.Meals)
	out.Meals = meals
	warnings = append(warnings, mealWarnings...)

	return out, warnings
}

// CollapseMeals canonicalises meal type spelling and merges entries sharing a
// type into the first occurrence, joining notes. Order of first appearance is kept.
func CollapseMeals(meals []Meal) ([]Meal, []string) {
	if meals == nil {
		return nil, nil
	}
	var warnings []string
	out := make([]Meal, 0, len(meals))
	index := make(map[MealType]int, len(meals))
	for _, m := range meals {
		if t, ok := ParseMealType(string(m.Type)); ok {
			m.Type = t
		}
		if pos, seen := index[m.Type]; seen {
			out[pos].Notes = JoinNotes(out[pos].Notes, m.Notes)
			warnings = append(warnings, fmt.Sprintf("duplicate %s entry merged", m.Type))
			continue
		}
		index[m.Type] = len(out)
		out = append(out, m)
	}
	return out, warnings
}

var noteItemSep = regexp.MustCompile(`(?i)\s*,\s*|\s+and\s+`)

// noteItems splits free-text notes into lower-cased items on commas and "and".
func noteItems(s string) []string {
	parts := noteItemSep.Split(s, -1)
	out := parts[:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// JoinNotes appends addition to existing with ", ". Items already present as
// whole items in existing are not repeated; "tea" is not a duplicate of "steak".
func JoinNotes(existing, addition string) string {
	existing = strings.TrimSpace(existing)
	addition = strings.TrimSpace(addition)
	switch {
	case addition == "":
		return existing
	case existing == "":
		return addition
	}
	have := make(map[string]bool)
	for _, item := range noteItems(existing) {
		have[strings.ToLower(item)] = true
	}
	items := noteItems(addition)
	missing := make([]string, 0, len(items))
	for _, item := range items {
		key := strings.ToLower(item)
		if have[key] {
			continue
		}
		have[key] = true
		missing = append(missing, item)
	}
	switch {
	case len(missing) == 0:
		return existing
	case len(missing) == len(items):
		return existing + ", " + addition
	default:
		return existing + ", " + strings.Join(missing, ", ")
	}
}
