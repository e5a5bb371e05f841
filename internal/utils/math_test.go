package utils

import (
	"math"
	"testing"
	"time"
)

// TestRound tests the floating-point rounding function
func TestRound(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  float64
	}{
		{name: "round down", input: 1.234, want: 1.23},
		{name: "round up", input: 1.236, want: 1.24},
		{name: "exact two decimals", input: 1.23, want: 1.23},
		{name: "zero", input: 0.0, want: 0.0},
		{name: "negative round up", input: -1.236, want: -1.24},
		{name: "very small positive", input: 0.001, want: 0.0},
		{name: "boundary .5", input: 1.235, want: 1.24},
		{name: "boundary .5 negative", input: -1.235, want: -1.24},
		{name: "response time", input: 0.456789, want: 0.46},
		{name: "just under 100", input: 99.999, want: 100.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Round(tt.input)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Round(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// TestSeconds tests duration conversion for response times
func TestSeconds(t *testing.T) {
	tests := []struct {
		input time.Duration
		want  float64
	}{
		{input: 0, want: 0},
		{input: 1234 * time.Millisecond, want: 1.23},
		{input: 5 * time.Millisecond, want: 0.01},
		{input: 2 * time.Minute, want: 120},
	}

	for _, tt := range tests {
		t.Run(tt.input.String(), func(t *testing.T) {
			if got := Seconds(tt.input); math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Seconds(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// TestByteUnits tests byte count conversion
func TestByteUnits(t *testing.T) {
	if got := MB(3 * 1024 * 1024 / 2); got != 1.5 {
		t.Errorf("MB() = %v, want 1.5", got)
	}
	if got := GB(16 * 1024 * 1024 * 1024); got != 16 {
		t.Errorf("GB() = %v, want 16", got)
	}
	if got := GB(1024 * 1024); got != 0 {
		t.Errorf("GB(1MiB) = %v, want 0", got)
	}
}

// TestRoundStable tests that rounding twice changes nothing
func TestRoundStable(t *testing.T) {
	for _, input := range []float64{1.23456789, 99.999999, 0.001, 1234567.89123, -45.678901} {
		result := Round(input)
		if again := Round(result); again != result {
			t.Errorf("Round(Round(%v)) = %v, want %v", input, again, result)
		}
	}
}
