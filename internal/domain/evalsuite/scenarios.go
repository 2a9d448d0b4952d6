package evalsuite

import (
	hr "github.com/yanqian/health-journal/internal/domain/healthrecord"
)

// Category groups scenarios by the merge behaviour they exercise.
type Category string

const (
	CategoryAdditive     Category = "additive"
	CategoryCorrection   Category = "correction"
	CategoryRemoval      Category = "removal"
	CategoryAmbiguity    Category = "ambiguity"
	CategoryUnits        Category = "units"
	CategoryClamping     Category = "clamping"
	CategoryPreservation Category = "preservation"
)

// Scenario is one update applied to a fixed starting record. Either Want is
// the expected merged record or ExpectAmbiguous is set.
type Scenario struct {
	Name            string
	Category        Category
	Original        hr.Record
	Update          string
	Want            hr.Record
	ExpectAmbiguous bool
	// ExpectWarning, when non-empty, must appear in one merge warning.
	ExpectWarning string
}

const scenarioDate = "2024-05-01"

// DefaultScenarios returns the built-in suite.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{
			Name:     "coffee is a new meal",
			Category: CategoryAdditive,
			Original: hr.Record{Date: scenarioDate, Meals: []hr.Meal{{Type: hr.MealBreakfast, Notes: "toast"}}},
			Update:   "also had coffee",
			Want: hr.Record{Date: scenarioDate, Meals: []hr.Meal{
				{Type: hr.MealBreakfast, Notes: "toast"},
				{Type: hr.MealCoffee, Notes: "coffee"},
			}},
		},
		{
			Name:     "mood correction keeps notes",
			Category: CategoryCorrection,
			Original: hr.Record{Date: scenarioDate, Mood: hr.Mood{Rating: hr.Int(6), Notes: hr.String("ok")}},
			Update:   "actually mood was 8",
			Want:     hr.Record{Date: scenarioDate, Mood: hr.Mood{Rating: hr.Int(8), Notes: hr.String("ok")}},
		},
		{
			Name:     "skipped meal is removed",
			Category: CategoryRemoval,
			Original: hr.Record{Date: scenarioDate, Meals: []hr.Meal{
				{Type: hr.MealBreakfast, Notes: "toast"},
				{Type: hr.MealLunch, Notes: "salad"},
			}},
			Update: "skipped breakfast",
			Want:   hr.Record{Date: scenarioDate, Meals: []hr.Meal{{Type: hr.MealLunch, Notes: "salad"}}},
		},
		{
			Name:     "pronoun with two candidate meals",
			Category: CategoryAmbiguity,
			Original: hr.Record{Date: scenarioDate, Meals: []hr.Meal{
				{Type: hr.MealLunch, Notes: "salad"},
				{Type: hr.MealDinner, Notes: "pasta"},
			}},
			Update:          "it had cheese too",
			ExpectAmbiguous: true,
		},
		{
			Name:     "millilitres become litres",
			Category: CategoryUnits,
			Original: hr.Record{Date: scenarioDate},
			Update:   "drank 500 ml of water",
			Want:     hr.Record{Date: scenarioDate, WaterIntakeLiters: hr.Float(0.5)},
		},
		{
			Name:          "energy above scale is clamped",
			Category:      CategoryClamping,
			Original:      hr.Record{Date: scenarioDate, EnergyLevel: hr.Int(5)},
			Update:        "energy was 14",
			Want:          hr.Record{Date: scenarioDate, EnergyLevel: hr.Int(10)},
			ExpectWarning: "clamped to 10",
		},
		{
			Name:     "unrelated fields survive",
			Category: CategoryPreservation,
			Original: hr.Record{
				Date:              scenarioDate,
				Sleep:             hr.Sleep{Hours: hr.Float(7), Quality: hr.Int(6)},
				Mood:              hr.Mood{Rating: hr.Int(6)},
				WaterIntakeLiters: hr.Float(1.5),
				Notes:             hr.String("busy day"),
			},
			Update: "actually slept 8 hours",
			Want: hr.Record{
				Date:              scenarioDate,
				Sleep:             hr.Sleep{Hours: hr.Float(8), Quality: hr.Int(6)},
				Mood:              hr.Mood{Rating: hr.Int(6)},
				WaterIntakeLiters: hr.Float(1.5),
				Notes:             hr.String("busy day"),
			},
		},
	}
}
