package server

import (
	"math"
	"testing"
)

func TestNormalizeVector(t *testing.T) {
	cases := []struct {
		name  string
		x     float64
		y     float64
		wantX float64
		wantY float64
		ok    bool
	}{
		{name: "diagonal", x: 3, y: 4, wantX: 0.6, wantY: 0.8, ok: true},
		{name: "already unit", x: 0, y: -1, wantX: 0, wantY: -1, ok: true},
		{name: "zero", x: 0, y: 0, ok: false},
		{name: "below epsilon", x: 1e-12, y: -1e-12, ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotX, gotY, ok := normalizeVector(tc.x, tc.y)
			if ok != tc.ok {
				t.Fatalf("normalizeVector(%v, %v) ok = %v, want %v", tc.x, tc.y, ok, tc.ok)
			}
			if !ok {
				return
			}
			if math.Abs(gotX-tc.wantX) > 1e-9 || math.Abs(gotY-tc.wantY) > 1e-9 {
				t.Fatalf("normalizeVector(%v, %v) = (%v, %v), want (%v, %v)", tc.x, tc.y, gotX, gotY, tc.wantX, tc.wantY)
			}
			if length := math.Hypot(gotX, gotY); math.Abs(length-1) > 1e-9 {
				t.Fatalf("normalized length = %v, want 1", length)
			}
		})
	}
}

func TestCircleContains(t *testing.T) {
	cases := []struct {
		name   string
		radius float64
		px     float64
		py     float64
		want   bool
	}{
		{name: "center", radius: 2, px: 0, py: 0, want: true},
		{name: "interior", radius: 2, px: 1, py: 1, want: true},
		{name: "on rim", radius: 2, px: 2, py: 0, want: true},
		{name: "outside", radius: 2, px: 2.01, py: 0, want: false},
		{name: "negative radius", radius: -1, px: 0, py: 0, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := circleContains(0, 0, tc.radius, tc.px, tc.py); got != tc.want {
				t.Fatalf("circleContains(0, 0, %v, %v, %v) = %v, want %v", tc.radius, tc.px, tc.py, got, tc.want)
			}
		})
	}
}

func TestCirclesOverlap(t *testing.T) {
	if !circlesOverlap(0, 0, 1, 2, 0, 1) {
		t.Fatal("expected touching circles to overlap")
	}
	if circlesOverlap(0, 0, 1, 2.5, 0, 1) {
		t.Fatal("expected separated circles to not overlap")
	}
}

func TestSegmentDistanceSquared(t *testing.T) {
	cases := []struct {
		name string
		px   float64
		py   float64
		want float64
	}{
		{name: "on segment", px: 1, py: 0, want: 0},
		{name: "perpendicular", px: 1, py: 2, want: 4},
		{name: "before start", px: -3, py: 0, want: 9},
		{name: "past end", px: 6, py: 0, want: 16},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := segmentDistanceSquared(0, 0, 2, 0, tc.px, tc.py)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("segmentDistanceSquared = %v, want %v", got, tc.want)
			}
		})
	}

	degenerate := segmentDistanceSquared(1, 1, 1, 1, 4, 5)
	if math.Abs(degenerate-25) > 1e-9 {
		t.Fatalf("degenerate segment distance = %v, want 25", degenerate)
	}
}

func TestClamp(t *testing.T) {
	if got := clamp(5, 0, 3); got != 3 {
		t.Fatalf("clamp(5, 0, 3) = %v, want 3", got)
	}
	if got := clamp(-1, 0, 3); got != 0 {
		t.Fatalf("clamp(-1, 0, 3) = %v, want 0", got)
	}
	if got := clamp(2, 0, 3); got != 2 {
		t.Fatalf("clamp(2, 0, 3) = %v, want 2", got)
	}
}
