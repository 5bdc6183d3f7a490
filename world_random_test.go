package server

import (
	"math"
	"testing"
)

func TestDeterministicRNGRepeatsPerSeed(t *testing.T) {
	first := newDeterministicRNG("arena", "world")
	second := newDeterministicRNG("arena", "world")

	for i := 0; i < 16; i++ {
		a, b := first.Float64(), second.Float64()
		if a != b {
			t.Fatalf("draw %d diverged: %v vs %v", i, a, b)
		}
	}
}

func TestDeterministicRNGStreamsAreIndependent(t *testing.T) {
	world := newDeterministicRNG("arena", "world")
	waves := newDeterministicRNG("arena", "waves")

	same := true
	for i := 0; i < 8; i++ {
		if world.Float64() != waves.Float64() {
			same = false
		}
	}
	if same {
		t.Fatalf("expected distinct labels to produce distinct sequences")
	}
}

func TestDeterministicRNGSeedsAreIndependent(t *testing.T) {
	arena := newDeterministicRNG("arena", "world")
	nova := newDeterministicRNG("nova", "world")

	same := true
	for i := 0; i < 8; i++ {
		if arena.Float64() != nova.Float64() {
			same = false
		}
	}
	if same {
		t.Fatalf("expected distinct seeds to produce distinct sequences")
	}
}

func TestDeterministicSeedValueNeverZero(t *testing.T) {
	if deterministicSeedValue("", "") == 0 {
		t.Fatalf("expected a non-zero source value for empty inputs")
	}
}

func TestRandomDistanceBounds(t *testing.T) {
	w := newTestWorld(t)

	if got := w.randomDistance(5, 5); got != 5 {
		t.Fatalf("collapsed range = %v, want the minimum", got)
	}
	if got := w.randomDistance(7, 3); got != 7 {
		t.Fatalf("inverted range = %v, want the minimum", got)
	}
	for i := 0; i < 32; i++ {
		got := w.randomDistance(2, 6)
		if got < 2 || got >= 6 {
			t.Fatalf("draw %d = %v, want within [2, 6)", i, got)
		}
	}
}

func TestRandomAngleBounds(t *testing.T) {
	w := newTestWorld(t)

	for i := 0; i < 32; i++ {
		got := w.randomAngle()
		if got < 0 || got >= 2*math.Pi {
			t.Fatalf("draw %d = %v, want within [0, 2pi)", i, got)
		}
	}
}
