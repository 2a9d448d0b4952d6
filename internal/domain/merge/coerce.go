package merge

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/yanqian/health-journal/internal/domain/healthrecord"
)

var errMissingValue = errors.New("value is required")

// asFloat reads a numeric directive value. NaN and infinities are rejected.
func asFloat(v any) (float64, error) {
	f, err := rawFloat(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("value %v is not a finite number", f)
	}
	return f, nil
}

func rawFloat(v any) (float64, error) {
	switch t := v.(type) {
	case nil:
		return 0, errMissingValue
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case *float64:
		if t == nil {
			return 0, errMissingValue
		}
		return *t, nil
	case *int:
		if t == nil {
			return 0, errMissingValue
		}
		return float64(*t), nil
	case json.Number:
		return t.Float64()
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not a number", t)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("value of type %T is not a number", v)
	}
}

func asString(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", errMissingValue
	case string:
		return strings.TrimSpace(t), nil
	case *string:
		if t == nil {
			return "", errMissingValue
		}
		return strings.TrimSpace(*t), nil
	default:
		return "", fmt.Errorf("value of type %T is not text", v)
	}
}

// decodeInto accepts T, *T, or any JSON-shaped value (map, raw message) that
// decodes into T.
func decodeInto[T any](v any) (T, error) {
	var zero T
	switch t := v.(type) {
	case nil:
		return zero, errMissingValue
	case T:
		return t, nil
	case *T:
		if t == nil {
			return zero, errMissingValue
		}
		return *t, nil
	case json.RawMessage:
		var out T
		if err := json.Unmarshal(t, &out); err != nil {
			return zero, fmt.Errorf("decode value: %w", err)
		}
		return out, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return zero, fmt.Errorf("encode value: %w", err)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, fmt.Errorf("decode value: %w", err)
	}
	return out, nil
}

func asWorkout(v any) (healthrecord.Workout, error) {
	w, err := decodeInto[healthrecord.Workout](v)
	if err != nil {
		return healthrecord.Workout{}, err
	}
	w.Type = strings.TrimSpace(w.Type)
	if w.Type == "" {
		return healthrecord.Workout{}, errors.New("workout type is required")
	}
	return w.Clone(), nil
}

func asMeal(v any) (healthrecord.Meal, error) {
	m, err := decodeInto[healthrecord.Meal](v)
	if err != nil {
		return healthrecord.Meal{}, err
	}
	t, ok := healthrecord.ParseMealType(string(m.Type))
	if !ok {
		return healthrecord.Meal{}, fmt.Errorf("meal type %q is not one of %s", m.Type, healthrecord.MealTypeNames())
	}
	m.Type = t
	m.Notes = strings.TrimSpace(m.Notes)
	return m, nil
}

func asPain(v any) (healthrecord.Pain, error) {
	p, err := decodeInto[healthrecord.Pain](v)
	if err != nil {
		return healthrecord.Pain{}, err
	}
	return p.Clone(), nil
}
