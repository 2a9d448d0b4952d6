package interpreter

import (
	"regexp"
	"strconv"
	"strings"
)

var numberWords = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6, "seven": 7,
	"eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14,
	"fifteen": 15, "sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50, "sixty": 60, "seventy": 70,
	"eighty": 80, "ninety": 90,
}

var (
	tensWordRe    = regexp.MustCompile(`\b(twenty|thirty|forty|fifty|sixty|seventy|eighty|ninety)(?:[- ](one|two|three|four|five|six|seven|eight|nine))?\b`)
	unitWordRe    = regexp.MustCompile(`\b(zero|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|thirteen|fourteen|fifteen|sixteen|seventeen|eighteen|nineteen)\b`)
	coupleRe      = regexp.MustCompile(`\ba couple(?: of)?\b`)
	hourHalfRe    = regexp.MustCompile(`\b(?:an|a|1) hour and a half\b`)
	unitHalfRe    = regexp.MustCompile(`\b(\d+) (hours?|miles?|liters?|litres?|kilometers?|kilometres?|km) and a half\b`)
	andHalfRe     = regexp.MustCompile(`\b(\d+) and a half\b`)
	halfHourRe    = regexp.MustCompile(`\b(?:half an hour|a half hour|half hour|half-hour)\b`)
	articleUnitRe = regexp.MustCompile(`\b(?:an|a)\s+(hour|liter|litre|mile|kilometer|kilometre|glass|cup|bottle|pound)\b`)
	anotherUnitRe = regexp.MustCompile(`\banother\s+(hour|liter|litre|mile|kilometer|kilometre|glass|cup|bottle|pound)\b`)
	kShortRe      = regexp.MustCompile(`\b(\d+(?:\.\d+)?)k\b`)
	spaceRe       = regexp.MustCompile(`\s+`)

	sentenceRe = regexp.MustCompile(`[;!?\n]+|\.(?:\s+|$)`)
	splitRe    = regexp.MustCompile(`(?:,\s*|\s+)(and|but|then|plus)\s+|,\s+`)
	notButRe   = regexp.MustCompile(`\bnot\s+[^,]+?,?\s+but\s+`)
	insteadRe  = regexp.MustCompile(`\s*\binstead of\s+[^,]+`)

	leadCueRe = regexp.MustCompile(`^(?:(?:oh|oops|wait|sorry|ok|okay|so),?\s+)*(?:i\s+)?(actually|correction|forgot to mention|forgot to add|also)\b`)

	addCueRe     = regexp.MustCompile(`\b(?:also|forgot to mention|forgot to add|additionally|plus|another|too|as well|more|extra|again)\b`)
	replaceCueRe = regexp.MustCompile(`\b(?:actually|change|changed|correct|correction|corrected|instead|should be|should have been|meant|i mean|update|make it|make that|set it|turns out|wrong)\b`)
	removeCueRe  = regexp.MustCompile(`\b(?:didn't|didnt|did not|no longer|remove|delete|skip|skipped|never had|never did|cancel|cancelled|forget about|scratch|don't count|do not count)\b`)
)

var negationAuxiliaries = map[string]struct{}{
	"did": {}, "do": {}, "does": {}, "was": {}, "were": {}, "is": {}, "are": {}, "am": {},
	"have": {}, "has": {}, "had": {}, "could": {}, "can": {}, "would": {}, "will": {},
	"should": {}, "i'm": {}, "im": {}, "it's": {}, "its": {}, "i": {}, "why": {},
}

// normalizeText lowercases the utterance and rewrites spelled-out quantities
// into digits so extractors only deal with numerals.
func normalizeText(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("’", "'", "‘", "'", "“", `"`, "”", `"`).Replace(s)
	s = coupleRe.ReplaceAllString(s, "2")
	s = tensWordRe.ReplaceAllStringFunc(s, func(m string) string {
		parts := tensWordRe.FindStringSubmatch(m)
		n := numberWords[parts[1]]
		if parts[2] != "" {
			n += numberWords[parts[2]]
		}
		return strconv.Itoa(n)
	})
	s = unitWordRe.ReplaceAllStringFunc(s, func(m string) string {
		return strconv.Itoa(numberWords[m])
	})
	s = hourHalfRe.ReplaceAllString(s, "90 minutes")
	s = unitHalfRe.ReplaceAllString(s, "$1.5 $2")
	s = andHalfRe.ReplaceAllString(s, "$1.5")
	s = halfHourRe.ReplaceAllString(s, "30 minutes")
	s = articleUnitRe.ReplaceAllString(s, "1 $1")
	s = anotherUnitRe.ReplaceAllString(s, "another 1 $1")
	s = kShortRe.ReplaceAllString(s, "$1 km")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// group is a run of text that speaks about one thing, together with the
// operation cues found in or around it.
type group struct {
	text    string
	add     bool
	replace bool
	remove  bool
}

// splitGroups breaks a normalized utterance into sentences, then into
// fragments on commas and conjunctions. Fragments that mention no health
// category are glued to a neighbour so "had eggs and toast for breakfast"
// stays whole, and so does "had coffee and a croissant for breakfast".
func splitGroups(text string) []group {
	var out []group
	for _, sentence := range sentenceRe.Split(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		out = append(out, splitSentence(sentence)...)
	}
	return out
}

func splitSentence(sentence string) []group {
	var sentenceAdd, sentenceReplace bool
	if m := leadCueRe.FindStringSubmatch(sentence); m != nil {
		if m[1] == "also" || strings.HasPrefix(m[1], "forgot") {
			sentenceAdd = true
		} else {
			sentenceReplace = true
		}
	}
	if notButRe.MatchString(sentence) {
		sentence = notButRe.ReplaceAllString(sentence, "")
		sentenceReplace = true
	}
	if insteadRe.MatchString(sentence) {
		sentence = insteadRe.ReplaceAllString(sentence, "")
		sentenceReplace = true
	}
	if stripped, ok := stripTrailingNot(sentence); ok {
		sentence = stripped
		sentenceReplace = true
	}

	type fragment struct {
		connector string
		text      string
	}
	var frags []fragment
	connector := ""
	last := 0
	for _, loc := range splitRe.FindAllStringSubmatchIndex(sentence, -1) {
		frags = append(frags, fragment{connector: connector, text: sentence[last:loc[0]]})
		connector = ","
		if loc[2] >= 0 {
			connector = sentence[loc[2]:loc[3]]
		}
		last = loc[1]
	}
	frags = append(frags, fragment{connector: connector, text: sentence[last:]})

	joinText := func(a, connector, b string) string {
		if a == "" {
			return b
		}
		if connector == "," {
			return a + ", " + b
		}
		return a + " " + connector + " " + b
	}

	var groups []group
	pending := ""
	for _, f := range frags {
		text := strings.TrimSpace(f.text)
		if text == "" {
			continue
		}
		if len(categoriesIn(text)) == 0 {
			if len(groups) == 0 {
				pending = joinText(pending, f.connector, text)
				continue
			}
			groups[len(groups)-1].text = joinText(groups[len(groups)-1].text, f.connector, text)
			continue
		}
		if n := len(groups); n > 0 && f.connector == "and" && bareCoffee(groups[n-1].text) && typedMealFragment(text) {
			groups[n-1].text = joinText(groups[n-1].text, f.connector, text)
			continue
		}
		g := group{text: text}
		if pending != "" {
			g.text = joinText(pending, f.connector, text)
			pending = ""
		} else if f.connector == "and" || f.connector == "plus" {
			g.add = true
		}
		groups = append(groups, g)
	}
	if pending != "" {
		groups = append(groups, group{text: pending})
	}

	for i := range groups {
		g := &groups[i]
		g.add = g.add || sentenceAdd || addCueRe.MatchString(g.text)
		g.replace = g.replace || sentenceReplace || replaceCueRe.MatchString(g.text)
		g.remove = removeCueRe.MatchString(g.text)
	}
	return groups
}

// stripTrailingNot drops a trailing contrast like ", not dinner" or "not 5"
// but leaves plain negation ("did not run") alone.
func stripTrailingNot(sentence string) (string, bool) {
	idx := strings.LastIndex(sentence, " not ")
	if idx <= 0 {
		return sentence, false
	}
	before := strings.TrimSpace(sentence[:idx])
	after := strings.TrimSpace(sentence[idx+len(" not "):])
	if after == "" || len(strings.Fields(after)) > 3 {
		return sentence, false
	}
	comma := strings.HasSuffix(before, ",")
	before = strings.TrimSuffix(before, ",")
	words := strings.Fields(before)
	if len(words) == 0 {
		return sentence, false
	}
	if _, aux := negationAuxiliaries[words[len(words)-1]]; aux && !comma {
		return sentence, false
	}
	return before, true
}

var (
	leadingFillerRe  = regexp.MustCompile(`^(?:(?:oh|oops|wait|sorry|ok|okay|so|and|then|plus|also|actually|correction|i|i've|ive|just|forgot to (?:mention|add)(?: that)?)[,:]?\s+)+`)
	trailingFillerRe = regexp.MustCompile(`(?:\s+(?:too|also|as well|today|earlier|this morning|this afternoon|this evening|tonight|in it|on it|with it))+$`)
	articleRe        = regexp.MustCompile(`^(?:a|an|the|some|my)\s+`)
)

// cleanPhrase strips conversational filler so the remainder can be stored as a note.
func cleanPhrase(s string) string {
	s = strings.TrimSpace(strings.Trim(s, " ,.;:!"))
	for {
		next := leadingFillerRe.ReplaceAllString(s, "")
		next = trailingFillerRe.ReplaceAllString(next, "")
		next = strings.TrimSpace(next)
		if next == s {
			break
		}
		s = next
	}
	return s
}

// cleanFood is cleanPhrase plus dropping a leading article.
func cleanFood(s string) string {
	s = cleanPhrase(s)
	return strings.TrimSpace(articleRe.ReplaceAllString(s, ""))
}
