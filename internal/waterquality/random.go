package waterquality

import (
	"math/rand/v2"
	"sync"
)

// RandSource supplies uniform draws in [0, 1).
// *rand.Rand from math/rand/v2 satisfies it.
type RandSource interface {
	Float64() float64
}

// globalRand draws from the math/rand/v2 top-level generator, which is safe
// for concurrent use.
type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// LockedRand is a seeded RandSource safe for concurrent use.
type LockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewLockedRand creates a seeded, goroutine-safe RandSource.
func NewLockedRand(seed uint64) *LockedRand {
	return &LockedRand{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Float64 returns the next draw.
func (r *LockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

// noise returns (U-0.5)*scale for a single draw.
func noise(rng RandSource, scale float64) float64 {
	return (rng.Float64() - 0.5) * scale
}
