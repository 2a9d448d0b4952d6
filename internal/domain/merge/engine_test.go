package merge

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	hr "github.com/yanqian/health-journal/internal/domain/healthrecord"
)

func newTestEngine() *Engine {
	return NewEngine(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func baseRecord() hr.Record {
	return hr.Record{
		Date:              "2024-05-03",
		ScreenTimeHours:   hr.Float(2),
		Workouts:          []hr.Workout{{Type: "Running", DurationMinutes: 30, DistanceKm: hr.Float(5)}},
		Meals:             []hr.Meal{{Type: hr.MealBreakfast, Notes: "toast"}},
		WaterIntakeLiters: hr.Float(1.5),
		Sleep:             hr.Sleep{Hours: hr.Float(7), Quality: hr.Int(6)},
		EnergyLevel:       hr.Int(5),
		Mood:              hr.Mood{Rating: hr.Int(6), Notes: hr.String("ok")},
		Notes:             hr.String("first note"),
	}
}

func TestApplyNoChangesIsIdentity(t *testing.T) {
	rec := baseRecord()
	res := newTestEngine().Apply(rec, nil)
	require.Equal(t, rec, res.Record)
	require.Empty(t, res.Skipped)
	require.Empty(t, res.Warnings)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	rec := baseRecord()
	before, err := json.Marshal(rec)
	require.NoError(t, err)

	newTestEngine().Apply(rec, []hr.Change{
		{FieldPath: hr.PathMoodRating, Operation: hr.OpReplace, Value: 9},
		{FieldPath: hr.PathMeals, Operation: hr.OpAdd, Value: hr.Meal{Type: hr.MealBreakfast, Notes: "eggs"}},
		{FieldPath: hr.PathWorkoutDuration, Operation: hr.OpAdd, Value: 10},
	})

	after, err := json.Marshal(rec)
	require.NoError(t, err)
	require.True(t, bytes.Equal(before, after))
}

func TestApplyPreservesUntouchedFields(t *testing.T) {
	rec := baseRecord()
	res := newTestEngine().Apply(rec, []hr.Change{
		{FieldPath: hr.PathMoodRating, Operation: hr.OpReplace, Value: 8},
	})

	require.Equal(t, []string{"mood.rating"}, hr.Diff(rec, res.Record))
	require.Equal(t, "ok", *res.Record.Mood.Notes)
}

func TestApplyAdditiveCoffee(t *testing.T) {
	rec := hr.Record{Date: "2024-05-03", Meals: []hr.Meal{{Type: hr.MealBreakfast, Notes: "toast"}}}
	res := newTestEngine().Apply(rec, []hr.Change{
		{FieldPath: hr.PathMeals, Operation: hr.OpAdd, Value: hr.Meal{Type: hr.MealCoffee, Notes: "coffee"}},
	})

	require.Equal(t, []hr.Meal{
		{Type: hr.MealBreakfast, Notes: "toast"},
		{Type: hr.MealCoffee, Notes: "coffee"},
	}, res.Record.Meals)
}

func TestApplyMealUniqueness(t *testing.T) {
	rec := baseRecord()
	changes := []hr.Change{
		{FieldPath: hr.PathMeals, Operation: hr.OpAdd, Value: hr.Meal{Type: hr.MealBreakfast, Notes: "eggs"}},
		{FieldPath: hr.PathMeals, Operation: hr.OpAdd, Value: map[string]any{"type": "breakfast", "notes": "juice"}},
		{FieldPath: hr.PathMeals, Operation: hr.OpAdd, Value: hr.Meal{Type: hr.MealLunch, Notes: "soup"}},
		{FieldPath: hr.PathMeals, Operation: hr.OpAdd, Value: hr.Meal{Type: hr.MealLunch, Notes: "bread"}},
		{FieldPath: hr.PathMealNotes, Operation: hr.OpAdd, Target: hr.MealSelector(hr.MealLunch), Value: "cheese"},
	}
	res := newTestEngine().Apply(rec, changes)

	require.Empty(t, res.Skipped)
	require.Equal(t, []hr.Meal{
		{Type: hr.MealBreakfast, Notes: "toast, eggs, juice"},
		{Type: hr.MealLunch, Notes: "soup, bread, cheese"},
	}, res.Record.Meals)
}

func TestApplyRangeClamping(t *testing.T) {
	rec := baseRecord()
	rec.Workouts[0].Intensity = hr.Int(5)
	res := newTestEngine().Apply(rec, []hr.Change{
		{FieldPath: hr.PathWorkoutIntensity, Operation: hr.OpReplace, Target: hr.IndexSelector(0), Value: 15},
		{FieldPath: hr.PathMoodRating, Operation: hr.OpReplace, Value: -2},
	})

	require.Empty(t, res.Skipped)
	require.Equal(t, 10, *res.Record.Workouts[0].Intensity)
	require.Equal(t, 1, *res.Record.Mood.Rating)
	require.Len(t, res.Warnings, 2)
	require.Contains(t, res.Warnings[0], "clamped to 10")
	require.Contains(t, res.Warnings[1], "clamped to 1")
}

func TestApplyScalarOperations(t *testing.T) {
	tests := []struct {
		name   string
		change hr.Change
		check  func(t *testing.T, rec hr.Record)
	}{
		{
			name:   "add water sums",
			change: hr.Change{FieldPath: hr.PathWaterIntakeLiters, Operation: hr.OpAdd, Value: 0.5},
			check:  func(t *testing.T, rec hr.Record) { require.Equal(t, 2.0, *rec.WaterIntakeLiters) },
		},
		{
			name:   "replace screen time",
			change: hr.Change{FieldPath: hr.PathScreenTimeHours, Operation: hr.OpReplace, Value: "4.5"},
			check:  func(t *testing.T, rec hr.Record) { require.Equal(t, 4.5, *rec.ScreenTimeHours) },
		},
		{
			name:   "remove sleep hours",
			change: hr.Change{FieldPath: hr.PathSleepHours, Operation: hr.OpRemove},
			check: func(t *testing.T, rec hr.Record) {
				require.Nil(t, rec.Sleep.Hours)
				require.Equal(t, 6, *rec.Sleep.Quality)
			},
		},
		{
			name:   "append notes",
			change: hr.Change{FieldPath: hr.PathNotes, Operation: hr.OpAdd, Value: "call mom"},
			check:  func(t *testing.T, rec hr.Record) { require.Equal(t, "first note, call mom", *rec.Notes) },
		},
		{
			name:   "replace empty text clears",
			change: hr.Change{FieldPath: hr.PathMoodNotes, Operation: hr.OpReplace, Value: ""},
			check:  func(t *testing.T, rec hr.Record) { require.Nil(t, rec.Mood.Notes) },
		},
		{
			name:   "replace date normalises",
			change: hr.Change{FieldPath: hr.PathDate, Operation: hr.OpReplace, Value: "2024/05/04"},
			check:  func(t *testing.T, rec hr.Record) { require.Equal(t, "2024-05-04", rec.Date) },
		},
		{
			name:   "weight alias",
			change: hr.Change{FieldPath: "weight", Operation: hr.OpReplace, Value: 70.2},
			check:  func(t *testing.T, rec hr.Record) { require.Equal(t, 70.2, *rec.WeightKg) },
		},
		{
			name:   "pain created from field",
			change: hr.Change{FieldPath: hr.PathPainLocation, Operation: hr.OpReplace, Value: "lower back"},
			check: func(t *testing.T, rec hr.Record) {
				require.NotNil(t, rec.PainDiscomfort)
				require.Equal(t, "lower back", *rec.PainDiscomfort.Location)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newTestEngine().Apply(baseRecord(), []hr.Change{tt.change})
			require.Empty(t, res.Skipped)
			require.Len(t, res.Applied, 1)
			tt.check(t, res.Record)
		})
	}
}

func TestApplyPainLifecycle(t *testing.T) {
	engine := newTestEngine()
	rec := baseRecord()

	res := engine.Apply(rec, []hr.Change{
		{FieldPath: hr.PathPain, Operation: hr.OpAdd, Value: hr.Pain{Location: hr.String("knee"), Intensity: hr.Int(12)}},
	})
	require.Equal(t, "knee", *res.Record.PainDiscomfort.Location)
	require.Equal(t, 10, *res.Record.PainDiscomfort.Intensity)

	res = engine.Apply(res.Record, []hr.Change{
		{FieldPath: hr.PathPain, Operation: hr.OpAdd, Value: map[string]any{"location": "ankle", "notes": "after run"}},
	})
	require.Equal(t, "knee, ankle", *res.Record.PainDiscomfort.Location)
	require.Equal(t, "after run", *res.Record.PainDiscomfort.Notes)

	res = engine.Apply(res.Record, []hr.Change{{FieldPath: hr.PathPain, Operation: hr.OpRemove}})
	require.Nil(t, res.Record.PainDiscomfort)
}

func TestApplyWorkoutOperations(t *testing.T) {
	engine := newTestEngine()
	rec := baseRecord()

	res := engine.Apply(rec, []hr.Change{
		{FieldPath: hr.PathWorkouts, Operation: hr.OpAdd, Value: hr.Workout{Type: "Running", DurationMinutes: 20}},
	})
	require.Len(t, res.Record.Workouts, 2, "ADD appends a new occurrence")

	res = engine.Apply(res.Record, []hr.Change{
		{FieldPath: hr.PathWorkoutDuration, Operation: hr.OpReplace, Target: &hr.Selector{WorkoutType: "running"}, Value: 25},
	})
	require.Equal(t, 30.0, res.Record.Workouts[0].DurationMinutes)
	require.Equal(t, 25.0, res.Record.Workouts[1].DurationMinutes, "type selector picks the most recent match")

	res = engine.Apply(res.Record, []hr.Change{
		{FieldPath: hr.PathWorkouts, Operation: hr.OpAdd, Correction: true, Target: hr.IndexSelector(0), Value: hr.Workout{Type: "Cycling", DurationMinutes: 45}},
	})
	require.Len(t, res.Record.Workouts, 2)
	require.Equal(t, "Cycling", res.Record.Workouts[0].Type)

	res = engine.Apply(res.Record, []hr.Change{
		{FieldPath: hr.PathWorkouts, Operation: hr.OpRemove, Target: hr.IndexSelector(1)},
	})
	require.Equal(t, []hr.Workout{{Type: "Cycling", DurationMinutes: 45}}, res.Record.Workouts)
}

func TestApplyMealReplaceAndRemove(t *testing.T) {
	rec := hr.Record{Date: "2024-05-03", Meals: []hr.Meal{{Type: hr.MealLunch, Notes: "pizza"}, {Type: hr.MealDinner, Notes: "pasta"}}}
	res := newTestEngine().Apply(rec, []hr.Change{
		{FieldPath: hr.PathMealNotes, Operation: hr.OpReplace, Target: hr.MealSelector(hr.MealLunch), Value: "salad"},
		{FieldPath: hr.PathMeals, Operation: hr.OpRemove, Target: hr.MealSelector(hr.MealDinner)},
	})
	require.Equal(t, []hr.Meal{{Type: hr.MealLunch, Notes: "salad"}}, res.Record.Meals)
}

func TestApplyReportsInvalidDirectivesAndContinues(t *testing.T) {
	rec := baseRecord()
	rec.Workouts = append(rec.Workouts, hr.Workout{Type: "Yoga", DurationMinutes: 60})
	res := newTestEngine().Apply(rec, []hr.Change{
		{FieldPath: "blood.pressure", Operation: hr.OpReplace, Value: 120},
		{FieldPath: hr.PathMoodRating, Operation: hr.OpReplace, Value: 8},
		{FieldPath: hr.PathWeightKg, Operation: hr.OpReplace, Value: -3},
		{FieldPath: hr.PathWorkoutDuration, Operation: hr.OpReplace, Value: 10},
		{FieldPath: hr.PathMeals, Operation: hr.OpRemove, Target: hr.MealSelector(hr.MealDinner)},
		{FieldPath: hr.PathEnergyLevel, Operation: "UPSERT", Value: 3},
		{FieldPath: hr.PathMeals, Operation: hr.OpAdd, Value: map[string]any{"type": "Elevenses"}},
	})

	require.Len(t, res.Applied, 1)
	require.Equal(t, 8, *res.Record.Mood.Rating)
	require.Len(t, res.Skipped, 6)
	require.Equal(t, "unknown field path", res.Skipped[0].Reason)
	require.Contains(t, res.Skipped[2].Reason, "target workout is required")
	require.Equal(t, rec.Workouts, res.Record.Workouts)
	require.Nil(t, res.Record.WeightKg)
}

func TestApplySkipsNonFiniteNumbers(t *testing.T) {
	rec := baseRecord()
	res := newTestEngine().Apply(rec, []hr.Change{
		{FieldPath: hr.PathMoodRating, Operation: hr.OpReplace, Value: "NaN"},
		{FieldPath: hr.PathWaterIntakeLiters, Operation: hr.OpReplace, Value: "Inf"},
	})

	require.Empty(t, res.Applied)
	require.Len(t, res.Skipped, 2)
	require.Contains(t, res.Skipped[0].Reason, "not a finite number")
	require.Contains(t, res.Skipped[1].Reason, "not a finite number")
	require.Equal(t, rec, res.Record)
}

func TestApplyAddedFoodIsNotMistakenForDuplicate(t *testing.T) {
	rec := hr.Record{Date: "2024-05-03", Meals: []hr.Meal{{Type: hr.MealDinner, Notes: "steak"}}}
	res := newTestEngine().Apply(rec, []hr.Change{
		{FieldPath: hr.PathMeals, Operation: hr.OpAdd, Value: hr.Meal{Type: hr.MealDinner, Notes: "tea"}},
		{FieldPath: hr.PathMealNotes, Operation: hr.OpAdd, Target: hr.MealSelector(hr.MealDinner), Value: "steak"},
	})

	require.Empty(t, res.Skipped)
	require.Equal(t, []hr.Meal{{Type: hr.MealDinner, Notes: "steak, tea"}}, res.Record.Meals)
}

func TestApplyLeavesUntouchedMealSpellingAlone(t *testing.T) {
	rec := hr.Record{Date: "2024-05-03", Meals: []hr.Meal{{Type: "lunch", Notes: "sandwich"}, {Type: "snack", Notes: "apple"}}}

	res := newTestEngine().Apply(rec, []hr.Change{
		{FieldPath: hr.PathMeals, Operation: hr.OpAdd, Value: hr.Meal{Type: hr.MealDinner, Notes: "pasta"}},
	})
	require.Equal(t, []hr.Meal{
		{Type: "lunch", Notes: "sandwich"},
		{Type: "snack", Notes: "apple"},
		{Type: hr.MealDinner, Notes: "pasta"},
	}, res.Record.Meals)
	require.Equal(t, []string{"meals"}, hr.Diff(rec, res.Record))

	res = newTestEngine().Apply(rec, []hr.Change{
		{FieldPath: hr.PathMeals, Operation: hr.OpAdd, Value: hr.Meal{Type: hr.MealLunch, Notes: "cheese"}},
	})
	require.Equal(t, []hr.Meal{
		{Type: hr.MealLunch, Notes: "sandwich, cheese"},
		{Type: "snack", Notes: "apple"},
	}, res.Record.Meals)
}

func TestApplyRetypedMealFoldsIntoExisting(t *testing.T) {
	rec := hr.Record{Date: "2024-05-03", Meals: []hr.Meal{{Type: hr.MealLunch, Notes: "soup"}, {Type: hr.MealDinner, Notes: "pasta"}}}

	res := newTestEngine().Apply(rec, []hr.Change{
		{FieldPath: hr.PathMeals, Operation: hr.OpReplace, Target: hr.MealSelector(hr.MealLunch), Value: hr.Meal{Type: hr.MealDinner, Notes: "salad"}},
	})
	require.Empty(t, res.Skipped)
	require.Equal(t, []hr.Meal{{Type: hr.MealDinner, Notes: "salad, pasta"}}, res.Record.Meals)
	require.Equal(t, []string{"duplicate Dinner entry merged"}, res.Warnings)
}
