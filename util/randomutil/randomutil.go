package randomutil

import (
	"math/rand"
)

// RandomGenerator picks the dispatch order of bid delegates when randomized requests are on.
type RandomGenerator interface {
	Shuffle(n int, swap func(i, j int))
}

type RandomNumberGenerator struct{}

func (RandomNumberGenerator) Shuffle(n int, swap func(i, j int)) {
	rand.Shuffle(n, swap)
}

// Sampler draws the numbers event sampling decisions are made with, in [0, 1).
type Sampler interface {
	GenerateFloat64() float64
}

func (RandomNumberGenerator) GenerateFloat64() float64 {
	return rand.Float64()
}
