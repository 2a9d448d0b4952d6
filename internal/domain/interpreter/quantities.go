package interpreter

import (
	"math"
	"regexp"
	"strconv"

	"github.com/yanqian/health-journal/internal/domain/healthrecord"
)

var (
	durationRe  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(hours?|hrs?|h|minutes?|mins?|min)\b(?:\s*(?:and\s+)?(\d+(?:\.\d+)?)\s*(minutes?|mins?|min)\b)?`)
	distanceRe  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(km|kms|kilometers?|kilometres?|miles?|mi|meters?|metres?)\b`)
	outOfTenRe  = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*(?:/|out of)\s*10\b`)
	intensityRe = regexp.MustCompile(`\bintensity\b[^\d-]{0,20}(-?\d+(?:\.\d+)?)`)
	numberRe    = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	volumeRe    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(l|liters?|litres?|ml|milliliters?|millilitres?|cups?|glasses?|bottles?|oz|ounces?)\b`)
	massRe      = regexp.MustCompile(`\b(?:weigh|weighed|weighing|weighs|weight)\b[^\d]{0,25}(\d+(?:\.\d+)?)\s*(kg|kgs|kilos?|kilograms?|lbs?|pounds?|st|stones?)?\b`)

	deltaUpRe   = regexp.MustCompile(`\b(?:longer|further|farther|more|harder|better|higher)\b`)
	deltaDownRe = regexp.MustCompile(`\b(?:shorter|less|fewer|easier|worse|lower)\b`)
)

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// parseDuration reads "1 hour 30 minutes", "45 min" or "2.5 hours" as minutes.
func parseDuration(text string) (float64, bool) {
	m := durationRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	minutes, ok := healthrecord.ToMinutes(parseFloat(m[1]), m[2])
	if !ok {
		return 0, false
	}
	if m[3] != "" {
		extra, _ := healthrecord.ToMinutes(parseFloat(m[3]), m[4])
		minutes += extra
	}
	return round2(minutes), true
}

func parseDistance(text string) (float64, bool) {
	m := distanceRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	km, ok := healthrecord.ToKilometers(parseFloat(m[1]), m[2])
	return round2(km), ok
}

func parseVolume(text string) (float64, bool) {
	m := volumeRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	liters, ok := healthrecord.ToLiters(parseFloat(m[1]), m[2])
	return round2(liters), ok
}

func parseMass(text string) (float64, bool) {
	m := massRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	unit := m[2]
	if unit == "" {
		unit = "kg"
	}
	kg, ok := healthrecord.ToKilograms(parseFloat(m[1]), unit)
	return round2(kg), ok
}

// ratingAfter finds the first number within a short window after the keyword.
func ratingAfter(text string, keyword *regexp.Regexp) (float64, bool) {
	loc := keyword.FindStringIndex(text)
	if loc == nil {
		return 0, false
	}
	rest := text[loc[1]:]
	if len(rest) > 40 {
		rest = rest[:40]
	}
	m := numberRe.FindString(rest)
	if m == "" {
		return 0, false
	}
	return parseFloat(m), true
}

func parseOutOfTen(text string) (float64, bool) {
	m := outOfTenRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	return parseFloat(m[1]), true
}

// deltaDirection reports a magnitude-less comparative: +1 for "longer",
// -1 for "shorter", 0 when none is present.
func deltaDirection(text string) (int, string) {
	if m := deltaUpRe.FindString(text); m != "" {
		return 1, m
	}
	if m := deltaDownRe.FindString(text); m != "" {
		return -1, m
	}
	return 0, ""
}

var wordRatings = []struct {
	re    *regexp.Regexp
	value int
}{
	{regexp.MustCompile(`\b(?:terrible|terribly|awful|awfully|exhausted|drained)\b`), 2},
	{regexp.MustCompile(`\b(?:low|bad|badly|poor|poorly|tired|rough)\b`), 3},
	{regexp.MustCompile(`\b(?:ok|okay|fine|average|moderate|so-so)\b`), 5},
	{regexp.MustCompile(`\b(?:good|well|decent)\b`), 7},
	{regexp.MustCompile(`\b(?:great|high|excellent|amazing|fantastic)\b`), 8},
}

// ratingFromWords maps a qualitative description to a 1-10 rating.
func ratingFromWords(text string) (int, bool) {
	for _, wr := range wordRatings {
		if wr.re.MatchString(text) {
			return wr.value, true
		}
	}
	return 0, false
}
