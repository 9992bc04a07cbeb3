package model

import (
	"math"
	"time"
)

const (
	DayMillis  = int64(24 * time.Hour / time.Millisecond)
	YearMillis = 365.25 * float64(DayMillis)
)

// ToYears converts a duration in milliseconds to years, floored to one decimal.
func ToYears(ms int64) float64 {
	return math.Floor(float64(ms+DayMillis)/YearMillis*10) / 10
}
