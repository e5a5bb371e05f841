package utils

import (
	"math"
	"time"
)

// Round rounds a float64 value to 2 decimal places, half away from zero
func Round(val float64) float64 {
	return math.Round(val*100) / 100
}

// Seconds converts d to seconds rounded to 2 decimal places
func Seconds(d time.Duration) float64 {
	return Round(d.Seconds())
}

// MB converts a byte count to mebibytes rounded to 2 decimal places
func MB(bytes uint64) float64 {
	return Round(float64(bytes) / 1024 / 1024)
}

// GB converts a byte count to gibibytes rounded to 2 decimal places
func GB(bytes uint64) float64 {
	return Round(float64(bytes) / 1024 / 1024 / 1024)
}
