package server

import (
	"hash/fnv"
	"math/rand"
)

// deterministicSeedValue derives a stable 64-bit seed from a root seed string
// and a subsystem label, so distinct subsystems draw from independent streams.
func deterministicSeedValue(rootSeed, label string) int64 {
	hasher := fnv.New64a()
	hasher.Write([]byte(rootSeed))
	hasher.Write([]byte{0})
	hasher.Write([]byte(label))
	sum := hasher.Sum64()
	if sum == 0 {
		sum = 1
	}
	return int64(sum)
}

// newDeterministicRNG builds a seeded RNG for a subsystem label.
func newDeterministicRNG(rootSeed, label string) *rand.Rand {
	return rand.New(rand.NewSource(deterministicSeedValue(rootSeed, label)))
}

func (w *World) subsystemRNG(label string) *rand.Rand {
	seed := defaultWorldSeed
	if w != nil && w.seed != "" {
		seed = w.seed
	}
	if w != nil && w.rngFactory != nil {
		return w.rngFactory(seed, label)
	}
	return newDeterministicRNG(seed, label)
}

func randomBetween(rng *rand.Rand, min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + rng.Float64()*(max-min)
}
