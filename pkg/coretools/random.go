package coretools

import (
	"math/rand"
	"sync"
)

// RandSource is the random source the random-number tool draws from.
type RandSource interface {
	Int63n(n int64) int64
}

// LockedRand is a seeded math/rand source safe for concurrent use.
type LockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewLockedRand creates a LockedRand seeded with seed.
func NewLockedRand(seed int64) *LockedRand {
	return &LockedRand{rnd: rand.New(rand.NewSource(seed))}
}

// Int63n returns a uniform value in [0, n). It panics if n <= 0.
func (r *LockedRand) Int63n(n int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Int63n(n)
}

// Intn returns a uniform value in [0, n). It panics if n <= 0.
func (r *LockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}
