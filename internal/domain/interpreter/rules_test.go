package interpreter

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	hr "github.com/yanqian/health-journal/internal/domain/healthrecord"
	"github.com/yanqian/health-journal/internal/domain/merge"
)

func newRules(cfg Config) *RuleInterpreter {
	return NewRuleInterpreter(cfg, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func interpret(t *testing.T, cfg Config, record hr.Record, text string) []hr.Change {
	t.Helper()
	changes, err := newRules(cfg).Interpret(context.Background(), record, text)
	require.NoError(t, err)
	return changes
}

func TestRulesAdditiveCoffee(t *testing.T) {
	record := hr.Record{Date: "2024-05-01", Meals: []hr.Meal{{Type: hr.MealBreakfast, Notes: "toast"}}}

	changes := interpret(t, Config{}, record, "also had coffee")

	require.Equal(t, []hr.Change{{
		FieldPath: hr.PathMeals,
		Operation: hr.OpAdd,
		Value:     hr.Meal{Type: hr.MealCoffee, Notes: "coffee"},
	}}, changes)
}

func TestRulesCorrectionReplacesRatingOnly(t *testing.T) {
	record := hr.Record{Mood: hr.Mood{Rating: hr.Int(6), Notes: hr.String("ok")}}

	changes := interpret(t, Config{}, record, "actually mood was 8")

	require.Len(t, changes, 1)
	require.Equal(t, hr.PathMoodRating, changes[0].FieldPath)
	require.Equal(t, hr.OpReplace, changes[0].Operation)
	require.Equal(t, 8.0, changes[0].Value)
}

func TestRulesAmbiguousMealReference(t *testing.T) {
	record := hr.Record{Meals: []hr.Meal{
		{Type: hr.MealLunch, Notes: "sandwich"},
		{Type: hr.MealDinner, Notes: "pasta"},
	}}

	t.Run("fail policy reports candidates", func(t *testing.T) {
		_, err := newRules(Config{}).Interpret(context.Background(), record, "it had cheese too")
		var ambiguous *AmbiguousReferenceError
		require.ErrorAs(t, err, &ambiguous)
		require.Equal(t, "meals", ambiguous.Category)
		require.Equal(t, []string{"Lunch", "Dinner"}, ambiguous.Candidates)
	})

	t.Run("most recent policy picks the last meal", func(t *testing.T) {
		changes := interpret(t, Config{AmbiguityPolicy: AmbiguityMostRecent}, record, "it had cheese too")
		require.Equal(t, []hr.Change{{
			FieldPath: hr.PathMealNotes,
			Operation: hr.OpAdd,
			Target:    hr.MealSelector(hr.MealDinner),
			Value:     "cheese",
		}}, changes)
	})

	t.Run("noun hint disambiguates", func(t *testing.T) {
		changes := interpret(t, Config{}, record, "the sandwich had cheese")
		require.Len(t, changes, 1)
		require.Equal(t, hr.MealSelector(hr.MealLunch), changes[0].Target)
	})
}

func TestRulesInputErrors(t *testing.T) {
	_, err := newRules(Config{}).Interpret(context.Background(), hr.Record{}, "   ")
	require.ErrorIs(t, err, ErrEmptyUpdate)

	_, err = newRules(Config{}).Interpret(context.Background(), hr.Record{}, "hello there")
	require.ErrorIs(t, err, ErrUnparseableUpdate)

	counter := wordCounter{}
	rules := NewRuleInterpreter(Config{MaxUpdateTokens: 3}, counter, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err = rules.Interpret(context.Background(), hr.Record{}, "i slept eight hours last night")
	require.ErrorIs(t, err, ErrUpdateTooLong)
}

type wordCounter struct{}

func (wordCounter) Count(text string) int { return len(strings.Fields(text)) }

func TestRulesNewWorkoutWithUnits(t *testing.T) {
	changes := interpret(t, Config{}, hr.Record{}, "ran 5k in 30 minutes")

	require.Equal(t, []hr.Change{{
		FieldPath: hr.PathWorkouts,
		Operation: hr.OpAdd,
		Value:     hr.Workout{Type: "Running", DurationMinutes: 30, DistanceKm: hr.Float(5)},
	}}, changes)
}

func TestRulesPronounFollowsWorkoutInSameUtterance(t *testing.T) {
	changes := interpret(t, Config{}, hr.Record{}, "Went for a walk. It was forty minutes")

	require.Len(t, changes, 1)
	require.Equal(t, hr.Workout{Type: "Walking", DurationMinutes: 40}, changes[0].Value)
}

func TestRulesWorkoutCorrection(t *testing.T) {
	record := hr.Record{Workouts: []hr.Workout{{Type: "Running", DurationMinutes: 30}}}

	changes := interpret(t, Config{}, record, "actually the run was 45 minutes")

	require.Equal(t, []hr.Change{{
		FieldPath:  hr.PathWorkoutDuration,
		Operation:  hr.OpReplace,
		Target:     hr.IndexSelector(0),
		Value:      45.0,
		Correction: true,
	}}, changes)
}

func TestRulesAmbiguousWorkout(t *testing.T) {
	record := hr.Record{Workouts: []hr.Workout{
		{Type: "Running", DurationMinutes: 30},
		{Type: "Running", DurationMinutes: 20},
	}}

	_, err := newRules(Config{}).Interpret(context.Background(), record, "the run was 45 minutes")
	var ambiguous *AmbiguousReferenceError
	require.ErrorAs(t, err, &ambiguous)
	require.Equal(t, "workouts", ambiguous.Category)
	require.Len(t, ambiguous.Candidates, 2)

	changes := interpret(t, Config{AmbiguityPolicy: AmbiguityMostRecent}, record, "the run was 45 minutes")
	require.Equal(t, hr.IndexSelector(1), changes[0].Target)
}

func TestRulesMagnitudelessDelta(t *testing.T) {
	record := hr.Record{Workouts: []hr.Workout{{Type: "Running", DurationMinutes: 30}}}

	_, err := newRules(Config{}).Interpret(context.Background(), record, "it was longer")
	var under *UnderspecifiedUpdateError
	require.ErrorAs(t, err, &under)
	require.Equal(t, hr.PathWorkoutDuration, under.Field)

	changes := interpret(t, Config{DeltaPolicy: DeltaScale}, record, "it was longer")
	require.Len(t, changes, 1)
	require.Equal(t, hr.PathWorkoutDuration, changes[0].FieldPath)
	require.InDelta(t, 36.0, changes[0].Value, 0.001)
}

func TestRulesRemoval(t *testing.T) {
	record := hr.Record{
		Meals:          []hr.Meal{{Type: hr.MealBreakfast, Notes: "toast"}},
		PainDiscomfort: &hr.Pain{Location: hr.String("knee")},
	}

	changes := interpret(t, Config{}, record, "skipped breakfast")
	require.Equal(t, []hr.Change{{FieldPath: hr.PathMeals, Operation: hr.OpRemove, Target: hr.MealSelector(hr.MealBreakfast)}}, changes)

	changes = interpret(t, Config{}, record, "no more pain")
	require.Equal(t, []hr.Change{{FieldPath: hr.PathPain, Operation: hr.OpRemove}}, changes)
}

func TestRulesScalarsAndUnits(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		path  string
		op    hr.Operation
		value float64
	}{
		{name: "water in ml", text: "drank 500 ml of water", path: hr.PathWaterIntakeLiters, op: hr.OpReplace, value: 0.5},
		{name: "another glass", text: "another glass of water", path: hr.PathWaterIntakeLiters, op: hr.OpAdd, value: 0.25},
		{name: "sleep number words", text: "slept seven and a half hours", path: hr.PathSleepHours, op: hr.OpReplace, value: 7.5},
		{name: "weight in pounds", text: "weighed 165 lbs this morning", path: hr.PathWeightKg, op: hr.OpReplace, value: 74.84},
		{name: "energy", text: "energy was 4", path: hr.PathEnergyLevel, op: hr.OpReplace, value: 4},
		{name: "not but", text: "mood was not 6 but 8", path: hr.PathMoodRating, op: hr.OpReplace, value: 8},
		{name: "screen time", text: "3 hours of screen time", path: hr.PathScreenTimeHours, op: hr.OpReplace, value: 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			changes := interpret(t, Config{}, hr.Record{}, tc.text)
			require.Len(t, changes, 1)
			require.Equal(t, tc.path, changes[0].FieldPath)
			require.Equal(t, tc.op, changes[0].Operation)
			require.InDelta(t, tc.value, changes[0].Value, 0.001)
		})
	}
}

func TestRulesPainWithLocationAndIntensity(t *testing.T) {
	changes := interpret(t, Config{}, hr.Record{}, "my knee hurts, about 6 out of 10")

	require.Equal(t, []hr.Change{{
		FieldPath: hr.PathPain,
		Operation: hr.OpAdd,
		Value:     hr.Pain{Location: hr.String("knee"), Intensity: hr.Int(6)},
	}}, changes)
}

func TestRulesMultipleClauses(t *testing.T) {
	changes := interpret(t, Config{}, hr.Record{}, "slept 8 hours and my mood was 7 and drank 2 liters of water")

	require.Len(t, changes, 3)
	require.Equal(t, hr.PathSleepHours, changes[0].FieldPath)
	require.Equal(t, hr.PathMoodRating, changes[1].FieldPath)
	require.Equal(t, hr.PathWaterIntakeLiters, changes[2].FieldPath)
	require.Equal(t, hr.OpReplace, changes[2].Operation)
}

func TestRulesTypedMeal(t *testing.T) {
	changes := interpret(t, Config{}, hr.Record{}, "had eggs and toast for breakfast")

	require.Equal(t, []hr.Change{{
		FieldPath: hr.PathMeals,
		Operation: hr.OpAdd,
		Value:     hr.Meal{Type: hr.MealBreakfast, Notes: "eggs and toast"},
	}}, changes)
}

func TestRulesAddedFoodJoinsExistingMeal(t *testing.T) {
	record := hr.Record{Date: "2024-05-01", Meals: []hr.Meal{{Type: hr.MealDinner, Notes: "steak"}}}

	changes := interpret(t, Config{}, record, "I also had tea with dinner")
	require.Equal(t, []hr.Change{{
		FieldPath: hr.PathMeals,
		Operation: hr.OpAdd,
		Value:     hr.Meal{Type: hr.MealDinner, Notes: "tea"},
	}}, changes)

	res := merge.NewEngine(discardLogger()).Apply(record, changes)
	require.Empty(t, res.Skipped)
	require.Equal(t, []hr.Meal{{Type: hr.MealDinner, Notes: "steak, tea"}}, res.Record.Meals)
}

func TestRulesMealClauses(t *testing.T) {
	t.Run("verbless second meal", func(t *testing.T) {
		changes := interpret(t, Config{}, hr.Record{}, "I also had pasta for lunch and cake for dinner")
		require.Equal(t, []hr.Change{
			{FieldPath: hr.PathMeals, Operation: hr.OpAdd, Value: hr.Meal{Type: hr.MealLunch, Notes: "pasta"}},
			{FieldPath: hr.PathMeals, Operation: hr.OpAdd, Value: hr.Meal{Type: hr.MealDinner, Notes: "cake"}},
		}, changes)
	})

	t.Run("coffee inside a typed meal", func(t *testing.T) {
		changes := interpret(t, Config{}, hr.Record{}, "I had coffee and a croissant for breakfast")
		require.Equal(t, []hr.Change{{
			FieldPath: hr.PathMeals,
			Operation: hr.OpAdd,
			Value:     hr.Meal{Type: hr.MealBreakfast, Notes: "coffee and a croissant"},
		}}, changes)
	})

	t.Run("correction by pronoun", func(t *testing.T) {
		changes := interpret(t, Config{}, hr.Record{}, "I had a salad for lunch. Actually it was soup")
		require.Equal(t, []hr.Change{
			{FieldPath: hr.PathMeals, Operation: hr.OpAdd, Value: hr.Meal{Type: hr.MealLunch, Notes: "salad"}},
			{FieldPath: hr.PathMealNotes, Operation: hr.OpReplace, Target: hr.MealSelector(hr.MealLunch), Value: "soup", Correction: true},
		}, changes)

		res := merge.NewEngine(discardLogger()).Apply(hr.Record{}, changes)
		require.Equal(t, []hr.Meal{{Type: hr.MealLunch, Notes: "soup"}}, res.Record.Meals)
	})

	t.Run("correction by noun", func(t *testing.T) {
		record := hr.Record{Meals: []hr.Meal{{Type: hr.MealLunch, Notes: "salad"}, {Type: hr.MealDinner, Notes: "pasta"}}}
		changes := interpret(t, Config{}, record, "actually the salad was soup")
		require.Equal(t, []hr.Change{
			{FieldPath: hr.PathMealNotes, Operation: hr.OpReplace, Target: hr.MealSelector(hr.MealLunch), Value: "soup", Correction: true},
		}, changes)
	})
}

func TestRulesUnreadFragment(t *testing.T) {
	_, err := newRules(Config{}).Interpret(context.Background(), hr.Record{}, "slept 8 hours and weighed myself")
	require.ErrorIs(t, err, ErrUnparseableUpdate)
	require.Contains(t, err.Error(), "weighed myself")

	changes, unread, err := newRules(Config{}).InterpretPartial(context.Background(), hr.Record{}, "slept 8 hours and weighed myself")
	require.NoError(t, err)
	require.Equal(t, []string{"weighed myself"}, unread)
	require.Len(t, changes, 1)
	require.Equal(t, hr.PathSleepHours, changes[0].FieldPath)
}

func TestNormalizeText(t *testing.T) {
	require.Equal(t, "walked for 30 minutes", normalizeText("Walked for half an hour"))
	require.Equal(t, "ran 25 minutes and 1 hour of yoga", normalizeText("ran twenty-five minutes and an hour of yoga"))
	require.Equal(t, "cycled 10 km", normalizeText("cycled 10k"))
}
