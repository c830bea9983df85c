package domain

import "math/rand/v2"

// RandomSource abstracts the RNG so spawn decisions and economy draws are
// replayable in tests with a seeded source.
type RandomSource interface {
	Float64() float64 // [0, 1)
}

type defaultRNG struct{}

func (defaultRNG) Float64() float64 { return rand.Float64() }

// DefaultRNG returns the process-wide math/rand/v2 source.
func DefaultRNG() RandomSource { return defaultRNG{} }

type seededRNG struct{ r *rand.Rand }

// NewSeededRNG returns a replicable source for tests and simulations.
func NewSeededRNG(seed uint64) RandomSource {
	return &seededRNG{r: rand.New(rand.NewPCG(seed, 0))}
}

func (s *seededRNG) Float64() float64 { return s.r.Float64() }
