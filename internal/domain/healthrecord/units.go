package healthrecord

import "strings"

// Conversion factors to the canonical storage units (km, minutes, liters, kg).
const (
	kmPerMile      = 1.609344
	litersPerCup   = 0.24
	litersPerGlass = 0.25
	litersPerOz    = 0.0295735
	kgPerPound     = 0.45359237
	kgPerStone     = 6.35029318
)

// ToKilometers converts a distance; ok is false for unknown units.
func ToKilometers(value float64, unit string) (float64, bool) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "km", "kms", "k", "kilometer", "kilometers", "kilometre", "kilometres":
		return value, true
	case "mi", "mile", "miles":
		return value * kmPerMile, true
	case "m", "meter", "meters", "metre", "metres":
		return value / 1000, true
	}
	return 0, false
}

// ToMinutes converts a duration; ok is false for unknown units.
func ToMinutes(value float64, unit string) (float64, bool) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "min", "mins", "minute", "minutes", "m":
		return value, true
	case "h", "hr", "hrs", "hour", "hours":
		return value * 60, true
	case "s", "sec", "secs", "second", "seconds":
		return value / 60, true
	}
	return 0, false
}

// ToHours converts a duration to hours (sleep and screen time are stored in hours).
func ToHours(value float64, unit string) (float64, bool) {
	minutes, ok := ToMinutes(value, unit)
	if !ok {
		return 0, false
	}
	return minutes / 60, true
}

// ToLiters converts a liquid volume; ok is false for unknown units.
func ToLiters(value float64, unit string) (float64, bool) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "l", "liter", "liters", "litre", "litres":
		return value, true
	case "ml", "milliliter", "milliliters", "millilitre", "millilitres":
		return value / 1000, true
	case "cup", "cups":
		return value * litersPerCup, true
	case "glass", "glasses", "bottle", "bottles":
		return value * litersPerGlass, true
	case "oz", "ounce", "ounces", "fl oz":
		return value * litersPerOz, true
	}
	return 0, false
}

// ToKilograms converts a body mass; ok is false for unknown units.
func ToKilograms(value float64, unit string) (float64, bool) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "kg", "kgs", "kilo", "kilos", "kilogram", "kilograms":
		return value, true
	case "lb", "lbs", "pound", "pounds":
		return value * kgPerPound, true
	case "st", "stone", "stones":
		return value * kgPerStone, true
	}
	return 0, false
}
