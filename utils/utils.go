package utils

import "math"

func Ptr[T any](v T) *T {
	return &v
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// MinutesToHours converts minutes to hours rounded to two decimals.
func MinutesToHours(minutes int) float64 {
	return Round2(float64(minutes) / 60)
}
