package server

import (
	"hash/fnv"
	"math"
	"math/rand"
)

// deterministicSeedValue folds a root seed and a stream label into a non-zero
// source value so distinct subsystems draw independent sequences.
func deterministicSeedValue(rootSeed, label string) int64 {
	h := fnv.New64a()
	h.Write([]byte(rootSeed))
	h.Write([]byte{0})
	h.Write([]byte(label))
	seed := h.Sum64()
	if seed == 0 {
		seed = 1
	}
	return int64(seed)
}

func newDeterministicRNG(rootSeed, label string) *rand.Rand {
	return rand.New(rand.NewSource(deterministicSeedValue(rootSeed, label)))
}

// randomFloat draws from the world's seeded stream, or the shared source for
// worlds built without one.
func (w *World) randomFloat() float64 {
	if w == nil || w.rng == nil {
		return rand.Float64()
	}
	return w.rng.Float64()
}

// randomAngle draws a heading in radians.
func (w *World) randomAngle() float64 {
	return w.randomFloat() * 2 * math.Pi
}

// randomDistance draws uniformly from [min, max), collapsing inverted or
// empty ranges to min.
func (w *World) randomDistance(min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + w.randomFloat()*(max-min)
}
