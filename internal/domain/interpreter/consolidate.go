package interpreter

import (
	"encoding/json"
	"fmt"

	"github.com/yanqian/health-journal/internal/domain/healthrecord"
)

// Consolidate merges directives that address the same field or element so the
// merge engine sees one intent per target. REPLACE and REMOVE are
// last-writer-wins; an ADD following a non-REMOVE folds its value into the
// earlier directive. Workout ADDs are never merged since each is a separate
// session. The position of the first directive for a key is kept.
func Consolidate(changes []healthrecord.Change) []healthrecord.Change {
	out := make([]healthrecord.Change, 0, len(changes))
	index := make(map[string]int, len(changes))
	for _, ch := range changes {
		if ch.FieldPath == healthrecord.PathWorkouts && ch.Operation == healthrecord.OpAdd && ch.Target == nil {
			out = append(out, ch)
			continue
		}
		key := consolidationKey(ch)
		pos, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, ch)
			continue
		}
		out[pos] = combine(out[pos], ch)
	}
	return out
}

func consolidationKey(ch healthrecord.Change) string {
	key := ch.Key()
	if ch.FieldPath == healthrecord.PathMeals && (ch.Target == nil || ch.Target.MealType == "") {
		switch v := ch.Value.(type) {
		case healthrecord.Meal:
			key += fmt.Sprintf("[%s]", v.Type)
		case map[string]any:
			if t, ok := healthrecord.ParseMealType(fmt.Sprint(v["type"])); ok {
				key += fmt.Sprintf("[%s]", t)
			}
		}
	}
	return key
}

func combine(prev, next healthrecord.Change) healthrecord.Change {
	if next.Operation != healthrecord.OpAdd || prev.Operation == healthrecord.OpRemove {
		return next
	}
	switch next.FieldPath {
	case healthrecord.PathMeals:
		m, okPrev := decodeValue[healthrecord.Meal](prev.Value)
		v, okNext := decodeValue[healthrecord.Meal](next.Value)
		if okPrev && okNext {
			if t, ok := healthrecord.ParseMealType(string(m.Type)); ok {
				m.Type = t
			}
			m.Notes = healthrecord.JoinNotes(m.Notes, v.Notes)
			prev.Value = m
			return prev
		}
	case healthrecord.PathPain:
		p, okPrev := decodeValue[healthrecord.Pain](prev.Value)
		v, okNext := decodeValue[healthrecord.Pain](next.Value)
		if okPrev && okNext {
			merged := p.Clone()
			if v.Location != nil {
				merged.Location = healthrecord.String(healthrecord.JoinNotes(deref(merged.Location), *v.Location))
			}
			if v.Intensity != nil {
				merged.Intensity = healthrecord.Int(*v.Intensity)
			}
			if v.Notes != nil {
				merged.Notes = healthrecord.String(healthrecord.JoinNotes(deref(merged.Notes), *v.Notes))
			}
			prev.Value = merged
			return prev
		}
	}
	switch v := next.Value.(type) {
	case string:
		if s, ok := prev.Value.(string); ok {
			prev.Value = healthrecord.JoinNotes(s, v)
			return prev
		}
	case float64:
		if f, ok := prev.Value.(float64); ok {
			prev.Value = round2(f + v)
			return prev
		}
	}
	return next
}

// decodeValue reads a directive value as T. Model output arrives as generic
// JSON maps, so anything that is not already a T goes through a JSON round trip.
func decodeValue[T any](v any) (T, bool) {
	var out T
	switch t := v.(type) {
	case nil:
		return out, false
	case T:
		return t, true
	case *T:
		if t == nil {
			return out, false
		}
		return *t, true
	}
	data, err := json.Marshal(v)
	if err != nil {
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, false
	}
	return out, true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
