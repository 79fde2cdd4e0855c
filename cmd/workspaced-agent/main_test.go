package main

import (
	"testing"
	"time"
)

func TestClampJitterRatio(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{-2, 0},
		{0, 0},
		{0.45, 0.45},
		{1, 1},
		{3.2, 1},
	}
	for _, tc := range cases {
		if got := clampJitterRatio(tc.in); got != tc.want {
			t.Fatalf("clampJitterRatio(%f) = %f, want %f", tc.in, got, tc.want)
		}
	}
}

func TestJitteredIntervalSpread(t *testing.T) {
	base := 30 * time.Second

	if got := jitteredIntervalWithSample(base, 0, 0.1); got != base {
		t.Fatalf("zero jitter must return the base interval, got %s", got)
	}
	if got := jitteredIntervalWithSample(base, 0.5, 0); got != 15*time.Second {
		t.Fatalf("expected lower bound 15s, got %s", got)
	}
	if got := jitteredIntervalWithSample(base, 0.5, 1); got != 45*time.Second {
		t.Fatalf("expected upper bound 45s, got %s", got)
	}
	if got := jitteredIntervalWithSample(-time.Second, 0.5, 0.7); got != 0 {
		t.Fatalf("expected 0 for negative base, got %s", got)
	}
}

func TestJitteredIntervalClampsSample(t *testing.T) {
	base := 30 * time.Second

	// Out-of-range samples collapse to the nearest bound rather than
	// extrapolating past the jitter window.
	if got := jitteredIntervalWithSample(base, 0.5, -3); got != jitteredIntervalWithSample(base, 0.5, 0) {
		t.Fatalf("negative sample should clamp to the lower bound, got %s", got)
	}
	if got := jitteredIntervalWithSample(base, 0.5, 9); got != jitteredIntervalWithSample(base, 0.5, 1) {
		t.Fatalf("oversized sample should clamp to the upper bound, got %s", got)
	}
}

func TestJitteredIntervalFloor(t *testing.T) {
	// Full downward jitter on a tiny base bottoms out at the millisecond
	// floor instead of returning a zero delay.
	if got := jitteredIntervalWithSample(500*time.Microsecond, 1, 0); got != time.Millisecond {
		t.Fatalf("expected 1ms floor, got %s", got)
	}
}
