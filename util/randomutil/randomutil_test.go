package randomutil

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShuffleKeepsElements(t *testing.T) {
	names := []string{"p1", "p2", "p3", "p4", "p5"}

	RandomNumberGenerator{}.Shuffle(len(names), func(i, j int) {
		names[i], names[j] = names[j], names[i]
	})

	sort.Strings(names)
	assert.Equal(t, []string{"p1", "p2", "p3", "p4", "p5"}, names)
}

func TestGenerateFloat64IsInRange(t *testing.T) {
	for i := 0; i < 100; i++ {
		f := RandomNumberGenerator{}.GenerateFloat64()
		assert.True(t, f >= 0 && f < 1)
	}
}
