package healthrecord

import (
	"fmt"
	"strings"
)

// Issue is a single schema violation.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return i.Path + ": " + i.Message
}

// Validate checks r against the record schema without modifying it.
func Validate(r Record) []Issue {
	var issues []Issue
	add := func(path, format string, args ...any) {
		issues = append(issues, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(r.Date) == "" {
		add(PathDate, "is required")
	} else if _, err := ParseDate(r.Date); err != nil {
		add(PathDate, "must be YYYY-MM-DD")
	}

	nonNegative := func(path string, v *float64) {
		if v != nil && *v < 0 {
			add(path, "must be non-negative, got %v", *v)
		}
	}
	rating := func(path string, v *int) {
		if v != nil && (*v < MinRating || *v > MaxRating) {
			add(path, "must be between %d and %d, got %d", MinRating, MaxRating, *v)
		}
	}

	nonNegative(PathScreenTimeHours, r.ScreenTimeHours)
	nonNegative(PathWaterIntakeLiters, r.WaterIntakeLiters)
	nonNegative(PathSleepHours, r.Sleep.Hours)
	rating(PathSleepQuality, r.Sleep.Quality)
	rating(PathEnergyLevel, r.EnergyLevel)
	rating(PathMoodRating, r.Mood.Rating)
	if r.WeightKg != nil && *r.WeightKg <= 0 {
		add(PathWeightKg, "must be positive, got %v", *r.WeightKg)
	}
	if r.PainDiscomfort != nil {
		rating(PathPainIntensity, r.PainDiscomfort.Intensity)
	}

	for i, w := range r.Workouts {
		base := fmt.Sprintf("workouts[%d]", i)
		if strings.TrimSpace(w.Type) == "" {
			add(base+".type", "is required")
		}
		if w.DurationMinutes < 0 {
			add(base+".durationMinutes", "must be non-negative, got %v", w.DurationMinutes)
		}
		nonNegative(base+".distanceKm", w.DistanceKm)
		rating(base+".intensity", w.Intensity)
	}

	seen := make(map[MealType]bool, len(r.Meals))
	for i, m := range r.Meals {
		base := fmt.Sprintf("meals[%d]", i)
		t, ok := ParseMealType(string(m.Type))
		if !ok || t != m.Type {
			add(base+".type", "must be one of %s, got %q", MealTypeNames(), m.Type)
			continue
		}
		if seen[t] {
			add(base+".type", "duplicate %s entry", t)
		}
		seen[t] = true
	}
	return issues
}
