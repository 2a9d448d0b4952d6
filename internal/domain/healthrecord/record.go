package healthrecord

import (
	"encoding/json"
	"strings"
)

// MealType enumerates the meal slots a day can hold. At most one meal per type.
type MealType string

const (
	MealBreakfast MealType = "Breakfast"
	MealLunch     MealType = "Lunch"
	MealDinner    MealType = "Dinner"
	MealSnacks    MealType = "Snacks"
	MealCoffee    MealType = "Coffee"
)

// MealTypes lists the valid meal types in day order.
var MealTypes = []MealType{MealBreakfast, MealLunch, MealDinner, MealSnacks, MealCoffee}

// MealTypeNames renders MealTypes as "Breakfast, Lunch, ..." for messages and prompts.
func MealTypeNames() string {
	names := make([]string, len(MealTypes))
	for i, t := range MealTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// ParseMealType accepts any casing plus a few common aliases ("snack", "supper").
func ParseMealType(raw string) (MealType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "breakfast", "brunch":
		return MealBreakfast, true
	case "lunch":
		return MealLunch, true
	case "dinner", "supper":
		return MealDinner, true
	case "snack", "snacks":
		return MealSnacks, true
	case "coffee":
		return MealCoffee, true
	}
	return "", false
}

// Record is one calendar day of structured health facts.
type Record struct {
	Date              string    `json:"date"`
	ScreenTimeHours   *float64  `json:"screenTimeHours,omitempty"`
	Workouts          []Workout `json:"workouts"`
	Meals             []Meal    `json:"meals"`
	WaterIntakeLiters *float64  `json:"waterIntakeLiters,omitempty"`
	PainDiscomfort    *Pain     `json:"painDiscomfort,omitempty"`
	Sleep             Sleep     `json:"sleep"`
	EnergyLevel       *int      `json:"energyLevel,omitempty"`
	Mood              Mood      `json:"mood"`
	WeightKg          *float64  `json:"weightKg,omitempty"`
	OtherActivities   *string   `json:"otherActivities,omitempty"`
	Notes             *string   `json:"notes,omitempty"`
}

// Workout is a single exercise occurrence. Repeated types are distinct occurrences.
type Workout struct {
	Type            string   `json:"type"`
	DurationMinutes float64  `json:"durationMinutes"`
	DistanceKm      *float64 `json:"distanceKm,omitempty"`
	Intensity       *int     `json:"intensity,omitempty"`
	Notes           *string  `json:"notes,omitempty"`
}

// Meal groups everything eaten in one meal slot.
type Meal struct {
	Type  MealType `json:"type"`
	Notes string   `json:"notes"`
}

// Pain describes reported discomfort; absent when none is reported.
type Pain struct {
	Location  *string `json:"location,omitempty"`
	Intensity *int    `json:"intensity,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

// Sleep is always present on a record, possibly empty.
type Sleep struct {
	Hours   *float64 `json:"hours,omitempty"`
	Quality *int     `json:"quality,omitempty"`
}

// Mood is always present on a record, possibly empty.
type Mood struct {
	Rating *int    `json:"rating,omitempty"`
	Notes  *string `json:"notes,omitempty"`
}

// Clone returns a deep copy; the merge engine never mutates its input.
func (r Record) Clone() Record {
	out := r
	out.ScreenTimeHours = cloneFloat(r.ScreenTimeHours)
	out.WaterIntakeLiters = cloneFloat(r.WaterIntakeLiters)
	out.EnergyLevel = cloneInt(r.EnergyLevel)
	out.WeightKg = cloneFloat(r.WeightKg)
	out.OtherActivities = cloneString(r.OtherActivities)
	out.Notes = cloneString(r.Notes)
	out.Sleep = Sleep{Hours: cloneFloat(r.Sleep.Hours), Quality: cloneInt(r.Sleep.Quality)}
	out.Mood = Mood{Rating: cloneInt(r.Mood.Rating), Notes: cloneString(r.Mood.Notes)}
	if r.PainDiscomfort != nil {
		pain := r.PainDiscomfort.Clone()
		out.PainDiscomfort = &pain
	}
	if r.Workouts != nil {
		out.Workouts = make([]Workout, len(r.Workouts))
		for i, w := range r.Workouts {
			out.Workouts[i] = w.Clone()
		}
	}
	if r.Meals != nil {
		out.Meals = make([]Meal, len(r.Meals))
		copy(out.Meals, r.Meals)
	}
	return out
}

// Clone returns a deep copy of the workout.
func (w Workout) Clone() Workout {
	out := w
	out.DistanceKm = cloneFloat(w.DistanceKm)
	out.Intensity = cloneInt(w.Intensity)
	out.Notes = cloneString(w.Notes)
	return out
}

// Clone returns a deep copy of the pain entry.
func (p Pain) Clone() Pain {
	return Pain{
		Location:  cloneString(p.Location),
		Intensity: cloneInt(p.Intensity),
		Notes:     cloneString(p.Notes),
	}
}

// IsEmpty reports whether no pain attribute is set.
func (p Pain) IsEmpty() bool {
	return p.Location == nil && p.Intensity == nil && p.Notes == nil
}

// MealIndex returns the position of the meal with the given type, or -1.
// Stored spelling variants such as "lunch" match their canonical type.
func (r Record) MealIndex(t MealType) int {
	for i, m := range r.Meals {
		if m.Type == t {
			return i
		}
		if canonical, ok := ParseMealType(string(m.Type)); ok && canonical == t {
			return i
		}
	}
	return -1
}

// WorkoutIndexes returns the positions of workouts whose type matches
// case-insensitively, in list order.
func (r Record) WorkoutIndexes(workoutType string) []int {
	var out []int
	for i, w := range r.Workouts {
		if strings.EqualFold(strings.TrimSpace(w.Type), strings.TrimSpace(workoutType)) {
			out = append(out, i)
		}
	}
	return out
}

// Encode serialises the record in its canonical JSON shape.
func Encode(r Record) ([]byte, error) {
	return json.Marshal(r)
}

// Decode parses a record; callers normally pass the result through Normalize.
func Decode(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
