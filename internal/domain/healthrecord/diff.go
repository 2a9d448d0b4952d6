package healthrecord

import (
	"encoding/json"
	"reflect"
	"sort"
)

// Diff lists the field paths whose values differ between a and b. Nested
// objects (sleep, mood, painDiscomfort) are compared per attribute; lists are
// reported as a whole.
func Diff(a, b Record) []string {
	left := toMap(a)
	right := toMap(b)
	var out []string
	diffMaps("", left, right, &out)
	sort.Strings(out)
	return out
}

func diffMaps(prefix string, left, right map[string]any, out *[]string) {
	keys := make(map[string]struct{}, len(left)+len(right))
	for k := range left {
		keys[k] = struct{}{}
	}
	for k := range right {
		keys[k] = struct{}{}
	}
	for k := range keys {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		lv, rv := left[k], right[k]
		lm, lok := lv.(map[string]any)
		rm, rok := rv.(map[string]any)
		if lok && rok {
			diffMaps(path, lm, rm, out)
			continue
		}
		if isEmptyValue(lv) && isEmptyValue(rv) {
			continue
		}
		if !reflect.DeepEqual(lv, rv) {
			*out = append(*out, path)
		}
	}
}

// isEmptyValue treats null, absent, [] and {} as the same "nothing recorded".
func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

func toMap(r Record) map[string]any {
	data, err := json.Marshal(r)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{}
	}
	return out
}
