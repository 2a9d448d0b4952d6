package interpreter

import (
	"math"
	"regexp"
	"strings"

	"github.com/yanqian/health-journal/internal/domain/healthrecord"
)

// Meals.

const mealTypeWord = `(breakfast|brunch|lunch|dinner|supper|snacks?)`

var (
	mealFoodForRe   = regexp.MustCompile(`\b(?:had|ate|eaten|eat|having|got|grabbed|made|cooked|drank)\s+(.+?)\s+(?:for|at|with|during)\s+(?:my\s+|a\s+|the\s+)?` + mealTypeWord + `\b`)
	mealTypeFirstRe = regexp.MustCompile(`\b(?:for|at)\s+(?:my\s+)?` + mealTypeWord + `\s*,?\s*(?:i\s+)?(?:also\s+)?(?:had|ate|was|were|got)\s+(.+)$`)
	mealIsRe        = regexp.MustCompile(`\b` + mealTypeWord + `\s+(?:was|were|is|included|had|consisted of|to|with)\s+(.+)$`)
	snackedRe       = regexp.MustCompile(`\bsnacked on\s+(.+)$`)
	mealTypeRe      = regexp.MustCompile(`\b` + mealTypeWord + `\b`)
	coffeeRe        = regexp.MustCompile(`\b(?:\d+\s+)?(?:cups?\s+of\s+)?(?:(?:iced|hot|black|oat|oat milk|decaf|double|large|small)\s+)*(?:coffees?|lattes?|espressos?|cappuccinos?|americanos?|flat whites?|cold brews?)\b`)

	// "cake for dinner" after a conjunction carries no verb of its own.
	mealFragmentRe = regexp.MustCompile(`^(.+?)\s+(?:for|at|with|during)\s+(?:my\s+|a\s+|the\s+)?` + mealTypeWord + `$`)
	nonFoodLeadRe  = regexp.MustCompile(`^(?:went|go|going|goes|headed|came|come|met|meet|left|stayed|out|skipped|missed|was|were|is|it|that|this|we|they|he|she)\b`)

	vagueMealRe = regexp.MustCompile(`^(it|that|this|the meal|the (\w+))\s+(?:also\s+)?(?:had|came with|included|contained|was served with)\s+(.+)$`)
	mealWasRe   = regexp.MustCompile(`^(it|that|this|the meal|the (\w+))\s+(?:was|were)\s+(?:actually\s+|really\s+)?(.+)$`)
	looseFoodRe = regexp.MustCompile(`^(?:had|ate|eaten|grabbed|snacked on)\s+(.+)$`)
)

func matchTypedMeal(text string) (healthrecord.MealType, string) {
	if m := mealFoodForRe.FindStringSubmatch(text); m != nil {
		t, _ := healthrecord.ParseMealType(m[2])
		return t, cleanFood(m[1])
	}
	if m := mealTypeFirstRe.FindStringSubmatch(text); m != nil {
		t, _ := healthrecord.ParseMealType(m[1])
		return t, cleanFood(m[2])
	}
	if m := mealIsRe.FindStringSubmatch(text); m != nil {
		t, _ := healthrecord.ParseMealType(m[1])
		return t, cleanFood(m[2])
	}
	if m := snackedRe.FindStringSubmatch(text); m != nil {
		return healthrecord.MealSnacks, cleanFood(m[1])
	}
	if m := mealFragmentRe.FindStringSubmatch(cleanPhrase(text)); m != nil && !nonFoodLeadRe.MatchString(m[1]) {
		t, _ := healthrecord.ParseMealType(m[2])
		return t, cleanFood(m[1])
	}
	return "", ""
}

// bareCoffee reports whether text mentions coffee and nothing else a meal
// extractor could use, as in the "i had coffee" of "i had coffee and a
// croissant for breakfast".
func bareCoffee(text string) bool {
	cats := categoriesIn(text)
	return len(cats) == 1 && cats[0] == catMeal && coffeeRe.MatchString(text) && !mealTypeRe.MatchString(text)
}

// typedMealFragment reports whether text is a verbless "<food> for <meal>" fragment.
func typedMealFragment(text string) bool {
	m := mealFragmentRe.FindStringSubmatch(cleanPhrase(text))
	return m != nil && !nonFoodLeadRe.MatchString(m[1])
}

func (p *parser) meal(g group) error {
	mealType, food := matchTypedMeal(g.text)
	if mealType == "" {
		if c := coffeeRe.FindString(g.text); c != "" {
			mealType, food = healthrecord.MealCoffee, strings.TrimSpace(c)
		} else if m := mealTypeRe.FindStringSubmatch(g.text); m != nil {
			mealType, _ = healthrecord.ParseMealType(m[1])
		}
	}
	if mealType == "" {
		return nil
	}
	p.lastMeal = mealType

	switch {
	case g.remove:
		p.emit(healthrecord.Change{
			FieldPath: healthrecord.PathMeals,
			Operation: healthrecord.OpRemove,
			Target:    healthrecord.MealSelector(mealType),
		})
	case g.replace && food != "":
		p.emit(healthrecord.Change{
			FieldPath:  healthrecord.PathMealNotes,
			Operation:  healthrecord.OpReplace,
			Target:     healthrecord.MealSelector(mealType),
			Value:      food,
			Correction: true,
		})
	case food == "" && p.hasMeal(mealType):
		// a bare mention of a meal already on record adds nothing
		p.acknowledged = true
	default:
		p.emit(healthrecord.Change{
			FieldPath: healthrecord.PathMeals,
			Operation: healthrecord.OpAdd,
			Value:     healthrecord.Meal{Type: mealType, Notes: food},
		})
	}
	return nil
}

func (p *parser) hasMeal(t healthrecord.MealType) bool {
	for _, m := range p.mealCandidates() {
		if m.Type == t {
			return true
		}
	}
	return false
}

// vagueMeal handles food added without naming the meal. Pronoun references
// go through meal resolution; loose mentions join the meal last spoken about
// or land in Snacks.
func (p *parser) vagueMeal(g group) (bool, error) {
	text := cleanPhrase(g.text)
	op := healthrecord.OpAdd
	if g.replace {
		op = healthrecord.OpReplace
	}
	if m := vagueMealRe.FindStringSubmatch(text); m != nil {
		food := cleanFood(m[3])
		if food == "" {
			return false, nil
		}
		hint := m[2]
		if hint == "meal" {
			hint = ""
		}
		mealType, ok, err := p.resolveMeal(m[1], hint)
		if err != nil {
			return true, err
		}
		if !ok {
			p.addMeal(healthrecord.MealSnacks, food)
			return true, nil
		}
		p.lastMeal = mealType
		p.emit(healthrecord.Change{
			FieldPath:  healthrecord.PathMealNotes,
			Operation:  op,
			Target:     healthrecord.MealSelector(mealType),
			Value:      food,
			Correction: g.replace,
		})
		return true, nil
	}
	if g.replace {
		if handled := p.correctMeal(text); handled {
			return true, nil
		}
	}
	if g.remove {
		return false, nil
	}
	if m := looseFoodRe.FindStringSubmatch(text); m != nil {
		food := cleanFood(m[1])
		if food == "" || numberRe.MatchString(food) && len(strings.Fields(food)) == 1 {
			return false, nil
		}
		if p.lastMeal == "" {
			p.addMeal(healthrecord.MealSnacks, food)
			return true, nil
		}
		p.emit(healthrecord.Change{
			FieldPath: healthrecord.PathMealNotes,
			Operation: healthrecord.OpAdd,
			Target:    healthrecord.MealSelector(p.lastMeal),
			Value:     food,
		})
		return true, nil
	}
	return false, nil
}

// correctMeal handles "actually it was soup": under a correction cue, a
// pronoun or noun naming a meal mentioned earlier has its notes replaced.
// Numeric corrections are left to the workout and scalar handlers.
func (p *parser) correctMeal(text string) bool {
	m := mealWasRe.FindStringSubmatch(text)
	if m == nil || numberRe.MatchString(m[3]) {
		return false
	}
	if dir, _ := deltaDirection(m[3]); dir != 0 {
		return false
	}
	food := cleanFood(m[3])
	if food == "" {
		return false
	}
	mealType := p.lastMeal
	if hint := m[2]; hint != "" && hint != "meal" {
		mealType = ""
		for _, c := range p.mealCandidates() {
			if strings.EqualFold(string(c.Type), hint) || containsItem(c.Notes, hint) {
				mealType = c.Type
				break
			}
		}
	}
	if mealType == "" {
		return false
	}
	p.lastMeal = mealType
	p.emit(healthrecord.Change{
		FieldPath:  healthrecord.PathMealNotes,
		Operation:  healthrecord.OpReplace,
		Target:     healthrecord.MealSelector(mealType),
		Value:      food,
		Correction: true,
	})
	return true
}

// containsItem reports whether word appears as a whole word in notes.
func containsItem(notes, word string) bool {
	for _, f := range strings.FieldsFunc(strings.ToLower(notes), func(r rune) bool {
		return r == ',' || r == ' '
	}) {
		if f == word {
			return true
		}
	}
	return false
}

func (p *parser) addMeal(t healthrecord.MealType, food string) {
	p.lastMeal = t
	p.emit(healthrecord.Change{
		FieldPath: healthrecord.PathMeals,
		Operation: healthrecord.OpAdd,
		Value:     healthrecord.Meal{Type: t, Notes: food},
	})
}

// Workouts.

var (
	definiteWorkoutRe = regexp.MustCompile(`\b(?:the|my|that|this)\s+(?:\w+\s+)?(?:run|jog|walk|hike|ride|bike ride|swim|yoga|session|workout|class|lift|row|game|climb)\b`)
	pronounRe         = regexp.MustCompile(`^(?:it|that|this)\b|\b(?:it|that) (?:was|took|lasted)\b`)
	workoutEffortRe   = []struct {
		re    *regexp.Regexp
		value int
	}{
		{regexp.MustCompile(`\b(?:easy|light|gentle)\b`), 3},
		{regexp.MustCompile(`\bmoderate\b`), 5},
		{regexp.MustCompile(`\b(?:hard|intense|tough|brutal)\b`), 8},
	}
)

func parseWorkoutIntensity(text string) (float64, bool) {
	if m := intensityRe.FindStringSubmatch(text); m != nil {
		return parseFloat(m[1]), true
	}
	return parseOutOfTen(text)
}

func (p *parser) workout(g group) error {
	text := g.text
	kind, keyword, specific := workoutTypeIn(text)
	minutes, hasDur := parseDuration(text)
	km, hasDist := parseDistance(text)
	intensity, hasInt := parseWorkoutIntensity(text)

	reference := keyword
	if ref := definiteWorkoutRe.FindString(text); ref != "" {
		reference = ref
	} else if reference == "" {
		reference = "it"
	}
	lookupKind := ""
	if specific {
		lookupKind = kind
	}

	if g.remove {
		ref, ok, err := p.resolveWorkout(reference, lookupKind)
		if err != nil || !ok {
			return err
		}
		p.removeWorkout(ref)
		return nil
	}

	dir, word := 0, ""
	if !hasDur && !hasDist && !hasInt {
		dir, word = deltaDirection(text)
	}
	definite := kind == "" || definiteWorkoutRe.MatchString(text) || pronounRe.MatchString(text)
	if !g.replace && !definite && dir == 0 {
		p.addWorkout(kind, text, minutes, hasDur, km, hasDist, intensity, hasInt)
		return nil
	}

	ref, ok, err := p.resolveWorkout(reference, lookupKind)
	if err != nil {
		return err
	}
	if !ok && lookupKind != "" && g.replace {
		// "actually it was a swim": retarget the workout being corrected.
		ref, ok, err = p.resolveWorkout("it", "")
		if err != nil {
			return err
		}
		if ok {
			p.setWorkoutField(ref, healthrecord.PathWorkoutType, kind, true)
		}
	}
	if !ok {
		if kind == "" || dir != 0 {
			return nil
		}
		p.addWorkout(kind, text, minutes, hasDur, km, hasDist, intensity, hasInt)
		return nil
	}

	p.lastWorkout = &ref
	if hasDur {
		p.setWorkoutField(ref, healthrecord.PathWorkoutDuration, minutes, g.replace)
	}
	if hasDist {
		p.setWorkoutField(ref, healthrecord.PathWorkoutDistance, km, g.replace)
	}
	if hasInt {
		p.setWorkoutField(ref, healthrecord.PathWorkoutIntensity, intensity, g.replace)
	}
	if dir != 0 {
		current := p.workoutValue(ref)
		path, value := healthrecord.PathWorkoutDuration, &current.DurationMinutes
		switch word {
		case "further", "farther":
			path, value = healthrecord.PathWorkoutDistance, current.DistanceKm
		case "harder", "easier":
			path, value = healthrecord.PathWorkoutIntensity, intPtrAsFloat(current.Intensity)
		}
		if path == healthrecord.PathWorkoutDuration && current.DurationMinutes == 0 {
			value = nil
		}
		scaled, err := p.scaled(path, cleanPhrase(text), value, dir)
		if err != nil {
			return err
		}
		if path == healthrecord.PathWorkoutIntensity {
			scaled = math.Round(scaled)
		}
		p.setWorkoutField(ref, path, scaled, true)
	}
	return nil
}

func (p *parser) addWorkout(kind, text string, minutes float64, hasDur bool, km float64, hasDist bool, intensity float64, hasInt bool) {
	if kind == "" {
		kind = genericWorkoutType
	}
	w := healthrecord.Workout{Type: kind}
	if hasDur {
		w.DurationMinutes = minutes
	}
	if hasDist {
		w.DistanceKm = healthrecord.Float(km)
	}
	if hasInt {
		w.Intensity = healthrecord.Int(int(math.Round(intensity)))
	} else {
		for _, e := range workoutEffortRe {
			if e.re.MatchString(text) {
				w.Intensity = healthrecord.Int(e.value)
				break
			}
		}
	}
	p.emit(healthrecord.Change{
		FieldPath: healthrecord.PathWorkouts,
		Operation: healthrecord.OpAdd,
		Value:     w,
	})
	p.lastWorkout = &workoutRef{index: -1, pending: len(p.changes) - 1}
}

// Pain.

var (
	painGoneRe      = regexp.MustCompile(`\bno (?:more )?(?:pain|discomfort)\b|\b(?:gone|went away|is over|cleared up|stopped hurting|doesn't hurt|does not hurt|no longer hurts?)\b`)
	painInRe        = regexp.MustCompile(`\b(?:pain|ache|discomfort|soreness) in (?:my |the )?(?:(lower|upper|left|right)\s+)?([a-z]+)`)
	painBeforeRe    = regexp.MustCompile(`\b(?:(lower|upper|left|right)\s+)?([a-z]+)\s+(?:hurts|hurt|hurting|ached|aches|aching|is sore|was sore|felt sore|is painful|was painful|pain|ache|soreness)\b`)
	soreRe          = regexp.MustCompile(`\bsore\s+(?:(lower|upper|left|right)\s+)?([a-z]+)`)
	painIntensityRe = regexp.MustCompile(`\b(?:pain|hurts?|ache|intensity|discomfort)\b[^\d-]{0,25}(-?\d+(?:\.\d+)?)`)
	painWordRe      = regexp.MustCompile(`\b(?:headache|migraine|backache|stomachache|toothache|cramps?)\b`)
	painSeverity    = []struct {
		re    *regexp.Regexp
		value int
	}{
		{regexp.MustCompile(`\b(?:mild|slight|minor|little)\b`), 3},
		{regexp.MustCompile(`\bmoderate\b`), 5},
		{regexp.MustCompile(`\b(?:severe|terrible|awful|intense)\b`), 8},
	}
)

var compoundPain = map[string]string{
	"headache": "head", "migraine": "head", "backache": "back", "stomachache": "stomach", "toothache": "tooth",
}

var nonBodyWords = map[string]struct{}{
	"no": {}, "some": {}, "a": {}, "the": {}, "much": {}, "bad": {}, "sharp": {}, "mild": {}, "severe": {},
	"slight": {}, "little": {}, "of": {}, "i": {}, "it": {}, "had": {}, "have": {}, "has": {}, "felt": {},
	"feel": {}, "any": {}, "more": {}, "less": {}, "still": {}, "was": {}, "is": {}, "my": {}, "and": {},
	"dull": {}, "minor": {}, "moderate": {}, "terrible": {}, "awful": {}, "that": {}, "this": {}, "really": {},
	"everything": {}, "nothing": {}, "what": {}, "which": {}, "also": {}, "too": {}, "with": {}, "in": {},
}

func painLocation(text string) string {
	for word, location := range compoundPain {
		if strings.Contains(text, word) {
			return location
		}
	}
	for _, re := range []*regexp.Regexp{painInRe, painBeforeRe, soreRe} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if _, skip := nonBodyWords[m[2]]; skip {
				continue
			}
			if m[1] != "" {
				return m[1] + " " + m[2]
			}
			return m[2]
		}
	}
	return ""
}

func (p *parser) pain(g group) error {
	text := g.text
	if g.remove || painGoneRe.MatchString(text) {
		p.emit(healthrecord.Change{FieldPath: healthrecord.PathPain, Operation: healthrecord.OpRemove})
		return nil
	}
	location := painLocation(text)
	var intensity *int
	if m := painIntensityRe.FindStringSubmatch(text); m != nil {
		intensity = healthrecord.Int(int(math.Round(parseFloat(m[1]))))
	} else if v, ok := parseOutOfTen(text); ok {
		intensity = healthrecord.Int(int(math.Round(v)))
	} else {
		for _, s := range painSeverity {
			if s.re.MatchString(text) {
				intensity = healthrecord.Int(s.value)
				break
			}
		}
	}

	if g.replace && p.record.PainDiscomfort != nil {
		if location != "" {
			p.emit(healthrecord.Change{FieldPath: healthrecord.PathPainLocation, Operation: healthrecord.OpReplace, Value: location, Correction: true})
		}
		if intensity != nil {
			p.emit(healthrecord.Change{FieldPath: healthrecord.PathPainIntensity, Operation: healthrecord.OpReplace, Value: float64(*intensity), Correction: true})
		}
		return nil
	}

	pain := healthrecord.Pain{Intensity: intensity}
	if location != "" {
		pain.Location = healthrecord.String(location)
	} else if intensity == nil {
		note := painWordRe.FindString(text)
		if note == "" {
			note = "pain"
		}
		pain.Notes = healthrecord.String(note)
	}
	p.emit(healthrecord.Change{FieldPath: healthrecord.PathPain, Operation: healthrecord.OpAdd, Value: pain})
	return nil
}

// Sleep.

var (
	napRe          = regexp.MustCompile(`\b(?:nap|napped|napping)\b`)
	qualityRe      = regexp.MustCompile(`\bquality\b`)
	sleepPoorlyRe  = regexp.MustCompile(`\b(?:didn't|didnt|did not|not|couldn't|could not|barely)\s+sleep(?:\s+(?:well|much|great|good))?\b`)
	explicitDropRe = regexp.MustCompile(`\b(?:remove|delete|clear|drop)\b`)
	qualityDeltaRe = regexp.MustCompile(`\b(?:better|worse)\b`)
)

func (p *parser) sleep(g group) error {
	text := g.text
	if g.remove && explicitDropRe.MatchString(text) {
		p.emit(healthrecord.Change{FieldPath: healthrecord.PathSleepHours, Operation: healthrecord.OpRemove})
		return nil
	}
	minutes, hasHours := parseDuration(text)
	if hasHours {
		op := healthrecord.OpReplace
		if quantityOp(g) == healthrecord.OpAdd || napRe.MatchString(text) {
			op = healthrecord.OpAdd
		}
		p.emit(healthrecord.Change{FieldPath: healthrecord.PathSleepHours, Operation: op, Value: round2(minutes / 60), Correction: g.replace})
	}
	quality, hasQuality := ratingAfter(text, qualityRe)
	if !hasQuality {
		quality, hasQuality = parseOutOfTen(text)
	}
	if hasQuality {
		p.emit(healthrecord.Change{FieldPath: healthrecord.PathSleepQuality, Operation: healthrecord.OpReplace, Value: quality, Correction: g.replace})
	}
	if hasHours || hasQuality {
		return nil
	}

	if sleepPoorlyRe.MatchString(text) {
		p.emit(healthrecord.Change{FieldPath: healthrecord.PathSleepQuality, Operation: healthrecord.OpReplace, Value: float64(3)})
		return nil
	}
	if dir, word := deltaDirection(text); dir != 0 {
		path, current := healthrecord.PathSleepHours, p.record.Sleep.Hours
		if qualityDeltaRe.MatchString(word) {
			path, current = healthrecord.PathSleepQuality, intPtrAsFloat(p.record.Sleep.Quality)
		}
		v, err := p.scaled(path, cleanPhrase(text), current, dir)
		if err != nil {
			return err
		}
		p.emit(healthrecord.Change{FieldPath: path, Operation: healthrecord.OpReplace, Value: v, Correction: true})
		return nil
	}
	if v, ok := ratingFromWords(text); ok {
		p.emit(healthrecord.Change{FieldPath: healthrecord.PathSleepQuality, Operation: healthrecord.OpReplace, Value: float64(v)})
	}
	return nil
}

// Water, weight and screen time.

var (
	screenAfterRe  = regexp.MustCompile(`\b(?:screen|phone)\s*time\b[^\d]{0,20}(\d+(?:\.\d+)?)\s*(hours?|hrs?|h|minutes?|mins?|min)?`)
	screenBeforeRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(hours?|hrs?|h|minutes?|mins?|min)\s+(?:of\s+)?(?:screen|phone|on my phone|on screens?)`)
)

var incrementRe = regexp.MustCompile(`\b(?:another|more|extra|additional|again|plus|on top)\b`)

// quantityOp sums only when the phrasing says the amount is on top of what
// was logged ("another glass of water"); a stated amount otherwise replaces.
func quantityOp(g group) healthrecord.Operation {
	if !g.replace && incrementRe.MatchString(g.text) {
		return healthrecord.OpAdd
	}
	return healthrecord.OpReplace
}

func (p *parser) quantityDelta(g group, path string, current *float64) error {
	dir, _ := deltaDirection(g.text)
	if dir == 0 {
		return nil
	}
	v, err := p.scaled(path, cleanPhrase(g.text), current, dir)
	if err != nil {
		return err
	}
	p.emit(healthrecord.Change{FieldPath: path, Operation: healthrecord.OpReplace, Value: v, Correction: true})
	return nil
}

func (p *parser) water(g group) error {
	if g.remove {
		p.emit(healthrecord.Change{FieldPath: healthrecord.PathWaterIntakeLiters, Operation: healthrecord.OpRemove})
		return nil
	}
	liters, ok := parseVolume(g.text)
	if !ok {
		return p.quantityDelta(g, healthrecord.PathWaterIntakeLiters, p.record.WaterIntakeLiters)
	}
	p.emit(healthrecord.Change{FieldPath: healthrecord.PathWaterIntakeLiters, Operation: quantityOp(g), Value: liters, Correction: g.replace})
	return nil
}

func (p *parser) weight(g group) error {
	if g.remove {
		p.emit(healthrecord.Change{FieldPath: healthrecord.PathWeightKg, Operation: healthrecord.OpRemove})
		return nil
	}
	kg, ok := parseMass(g.text)
	if !ok {
		return nil
	}
	p.emit(healthrecord.Change{FieldPath: healthrecord.PathWeightKg, Operation: healthrecord.OpReplace, Value: kg, Correction: g.replace})
	return nil
}

func (p *parser) screen(g group) error {
	if g.remove {
		p.emit(healthrecord.Change{FieldPath: healthrecord.PathScreenTimeHours, Operation: healthrecord.OpRemove})
		return nil
	}
	var value, unit string
	if m := screenBeforeRe.FindStringSubmatch(g.text); m != nil {
		value, unit = m[1], m[2]
	} else if m := screenAfterRe.FindStringSubmatch(g.text); m != nil {
		value, unit = m[1], m[2]
	}
	if value == "" {
		return p.quantityDelta(g, healthrecord.PathScreenTimeHours, p.record.ScreenTimeHours)
	}
	if unit == "" {
		unit = "hours"
	}
	hours, ok := healthrecord.ToHours(parseFloat(value), unit)
	if !ok {
		return nil
	}
	p.emit(healthrecord.Change{FieldPath: healthrecord.PathScreenTimeHours, Operation: quantityOp(g), Value: round2(hours), Correction: g.replace})
	return nil
}

// Mood and energy.

var (
	moodRe      = regexp.MustCompile(`\bmood\b`)
	energyRe    = regexp.MustCompile(`\benergy\b|\benergetic\b`)
	moodNotesRe = regexp.MustCompile(`\bmood\s+(?:was|is|has been|felt|seemed|is now)\s+(?:really\s+|very\s+|pretty\s+|quite\s+|a bit\s+|kind of\s+)?([a-z][a-z' ]*)$`)
	feltRe      = regexp.MustCompile(`\b(?:felt|feel|feeling)\s+(?:really\s+|very\s+|pretty\s+|quite\s+|a bit\s+|so\s+|kind of\s+)?([a-z]+(?:\s+and\s+[a-z]+)?)`)
)

var feltStopWords = map[string]struct{}{
	"like": {}, "that": {}, "the": {}, "a": {}, "it": {}, "as": {}, "if": {}, "to": {}, "my": {},
}

func (p *parser) mood(g group, busy bool) error {
	text := g.text
	if moodRe.MatchString(text) {
		if v, ok := ratingAfter(text, moodRe); ok {
			op := healthrecord.OpReplace
			if g.remove {
				op = healthrecord.OpRemove
			}
			p.emit(healthrecord.Change{FieldPath: healthrecord.PathMoodRating, Operation: op, Value: ratingValue(op, v), Correction: g.replace})
			return nil
		}
		if g.remove {
			p.emit(healthrecord.Change{FieldPath: healthrecord.PathMoodRating, Operation: healthrecord.OpRemove})
			return nil
		}
		if dir, _ := deltaDirection(text); dir != 0 {
			v, err := p.scaled(healthrecord.PathMoodRating, cleanPhrase(text), intPtrAsFloat(p.record.Mood.Rating), dir)
			if err != nil {
				return err
			}
			p.emit(healthrecord.Change{FieldPath: healthrecord.PathMoodRating, Operation: healthrecord.OpReplace, Value: math.Round(v), Correction: true})
			return nil
		}
		if m := moodNotesRe.FindStringSubmatch(text); m != nil {
			p.moodNote(g, strings.TrimSpace(m[1]))
		}
		return nil
	}
	if busy || g.remove {
		return nil
	}
	if m := feltRe.FindStringSubmatch(text); m != nil {
		first := strings.Fields(m[1])[0]
		if _, stop := feltStopWords[first]; !stop {
			p.moodNote(g, m[1])
		}
	}
	return nil
}

func ratingValue(op healthrecord.Operation, v float64) any {
	if op == healthrecord.OpRemove {
		return nil
	}
	return v
}

func (p *parser) moodNote(g group, note string) {
	if note == "" {
		return
	}
	op := healthrecord.OpAdd
	if g.replace {
		op = healthrecord.OpReplace
	}
	p.emit(healthrecord.Change{FieldPath: healthrecord.PathMoodNotes, Operation: op, Value: note, Correction: g.replace})
}

func (p *parser) energy(g group) error {
	text := g.text
	if g.remove {
		p.emit(healthrecord.Change{FieldPath: healthrecord.PathEnergyLevel, Operation: healthrecord.OpRemove})
		return nil
	}
	if v, ok := ratingAfter(text, energyRe); ok {
		p.emit(healthrecord.Change{FieldPath: healthrecord.PathEnergyLevel, Operation: healthrecord.OpReplace, Value: v, Correction: g.replace})
		return nil
	}
	if v, ok := parseOutOfTen(text); ok {
		p.emit(healthrecord.Change{FieldPath: healthrecord.PathEnergyLevel, Operation: healthrecord.OpReplace, Value: v, Correction: g.replace})
		return nil
	}
	if dir, _ := deltaDirection(text); dir != 0 {
		v, err := p.scaled(healthrecord.PathEnergyLevel, cleanPhrase(text), intPtrAsFloat(p.record.EnergyLevel), dir)
		if err != nil {
			return err
		}
		p.emit(healthrecord.Change{FieldPath: healthrecord.PathEnergyLevel, Operation: healthrecord.OpReplace, Value: math.Round(v), Correction: true})
		return nil
	}
	if v, ok := ratingFromWords(text); ok {
		p.emit(healthrecord.Change{FieldPath: healthrecord.PathEnergyLevel, Operation: healthrecord.OpReplace, Value: float64(v)})
	}
	return nil
}

// Free text.

var notesRe = regexp.MustCompile(`\b(?:note|notes|remember|reminder)\b(?:\s+(?:that|to))?\s*:?\s*(.+)$`)

func (p *parser) notes(g group) error {
	if g.remove && explicitDropRe.MatchString(g.text) {
		p.emit(healthrecord.Change{FieldPath: healthrecord.PathNotes, Operation: healthrecord.OpRemove})
		return nil
	}
	m := notesRe.FindStringSubmatch(g.text)
	if m == nil {
		return nil
	}
	note := cleanPhrase(m[1])
	if note == "" {
		return nil
	}
	op := healthrecord.OpAdd
	if g.replace {
		op = healthrecord.OpReplace
	}
	p.emit(healthrecord.Change{FieldPath: healthrecord.PathNotes, Operation: op, Value: note, Correction: g.replace})
	return nil
}

func (p *parser) other(g group) error {
	if g.remove {
		if explicitDropRe.MatchString(g.text) {
			p.emit(healthrecord.Change{FieldPath: healthrecord.PathOtherActivities, Operation: healthrecord.OpRemove})
		}
		return nil
	}
	activity := cleanPhrase(g.text)
	if activity == "" {
		return nil
	}
	op := healthrecord.OpAdd
	if g.replace {
		op = healthrecord.OpReplace
	}
	p.emit(healthrecord.Change{FieldPath: healthrecord.PathOtherActivities, Operation: op, Value: activity, Correction: g.replace})
	return nil
}
