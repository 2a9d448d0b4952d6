package util

import "time"

// DateLayout is the canonical calendar date format for health records.
const DateLayout = "2006-01-02"

// NowUTC exposes time.Now for deterministic testing.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// TodayUTC returns the current UTC calendar date as YYYY-MM-DD.
func TodayUTC() string {
	return NowUTC().Format(DateLayout)
}
