package interpreter

import (
	"regexp"
	"sort"
)

type category int

const (
	catPain category = iota
	catWorkout
	catMeal
	catSleep
	catWater
	catWeight
	catScreen
	catMood
	catEnergy
	catNotes
	catOther
)

var categoryRes = map[category]*regexp.Regexp{
	catPain:    regexp.MustCompile(`\b(?:pain|painful|hurt|hurts|hurting|ache|aches|ached|aching|sore|soreness|headache|migraine|cramps?|discomfort|backache|stomachache|toothache)\b`),
	catWorkout: regexp.MustCompile(`\b(?:ran|run|runs|running|jog|jogged|jogging|walk|walked|walking|hike|hiked|hiking|bike|biked|biking|cycle|cycled|cycling|spin class|swim|swam|swimming|yoga|pilates|lift|lifted|lifting|weights|weightlifting|strength|gym|row|rowed|rowing|hiit|crossfit|tennis|basketball|soccer|football|climb|climbed|climbing|bouldering|dance|danced|dancing|workout|worked out|work out|exercise|exercised|training|trained)\b`),
	catMeal:    regexp.MustCompile(`\b(?:breakfast|brunch|lunch|dinner|supper|snacks?|snacked|coffees?|lattes?|espressos?|cappuccinos?|americanos?|flat whites?|cold brews?)\b`),
	catSleep:   regexp.MustCompile(`\b(?:sleep|slept|sleeping|nap|napped|napping)\b`),
	catWater:   regexp.MustCompile(`\b(?:water|hydrated|hydration)\b`),
	catWeight:  regexp.MustCompile(`\b(?:weigh|weighed|weighing|weighs|weight)\b`),
	catScreen:  regexp.MustCompile(`\b(?:screen|screens|screen time|phone time)\b`),
	catMood:    regexp.MustCompile(`\b(?:mood|felt|feel|feeling)\b`),
	catEnergy:  regexp.MustCompile(`\b(?:energy|energetic)\b`),
	catNotes:   regexp.MustCompile(`\b(?:note|notes|remember|reminder)\b`),
	catOther:   regexp.MustCompile(`\b(?:meditated|meditating|meditation|read|reading|studied|studying|cleaned|cleaning|gardened|gardening|shopping|shopped|cooked|cooking|stretched|stretching|sauna|massage|volunteered|volunteering|painted|painting)\b`),
}

// categoriesIn lists the health categories a fragment mentions, in extraction order.
func categoriesIn(text string) []category {
	var out []category
	for cat, re := range categoryRes {
		if re.MatchString(text) {
			out = append(out, cat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var workoutTypes = []struct {
	re   *regexp.Regexp
	name string
}{
	{regexp.MustCompile(`\b(?:ran|run|runs|running|jog|jogged|jogging)\b`), "Running"},
	{regexp.MustCompile(`\b(?:walk|walked|walking)\b`), "Walking"},
	{regexp.MustCompile(`\b(?:hike|hiked|hiking)\b`), "Hiking"},
	{regexp.MustCompile(`\b(?:bike|biked|biking|cycle|cycled|cycling|spin class)\b`), "Cycling"},
	{regexp.MustCompile(`\b(?:swim|swam|swimming)\b`), "Swimming"},
	{regexp.MustCompile(`\byoga\b`), "Yoga"},
	{regexp.MustCompile(`\bpilates\b`), "Pilates"},
	{regexp.MustCompile(`\b(?:lift|lifted|lifting|weights|weightlifting|strength|gym)\b`), "Strength Training"},
	{regexp.MustCompile(`\b(?:row|rowed|rowing)\b`), "Rowing"},
	{regexp.MustCompile(`\b(?:hiit|crossfit)\b`), "HIIT"},
	{regexp.MustCompile(`\btennis\b`), "Tennis"},
	{regexp.MustCompile(`\bbasketball\b`), "Basketball"},
	{regexp.MustCompile(`\b(?:soccer|football)\b`), "Soccer"},
	{regexp.MustCompile(`\b(?:climb|climbed|climbing|bouldering)\b`), "Climbing"},
	{regexp.MustCompile(`\b(?:dance|danced|dancing)\b`), "Dancing"},
}

var genericWorkoutRe = regexp.MustCompile(`\b(?:workout|worked out|work out|exercise|exercised|training|trained)\b`)

// genericWorkoutType is stored when the utterance names no specific activity.
const genericWorkoutType = "Workout"

// workoutTypeIn returns the activity mentioned earliest in text, the matched
// keyword, and false when only a generic word (or nothing) was found.
func workoutTypeIn(text string) (string, string, bool) {
	best, keyword := "", ""
	bestPos := -1
	for _, wt := range workoutTypes {
		loc := wt.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if bestPos == -1 || loc[0] < bestPos {
			best, keyword, bestPos = wt.name, text[loc[0]:loc[1]], loc[0]
		}
	}
	if best != "" {
		return best, keyword, true
	}
	if loc := genericWorkoutRe.FindStringIndex(text); loc != nil {
		return genericWorkoutType, text[loc[0]:loc[1]], false
	}
	return "", "", false
}
