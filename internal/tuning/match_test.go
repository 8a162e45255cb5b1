package tuning

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchFrequencyStandardGuitar(t *testing.T) {
	m := MatchFrequency(82.41, Standard, 0)
	assert.Equal(t, 0, m.Index)
	assert.InDelta(t, 0.0, m.Cents, 1e-9)
	assert.True(t, m.Good)

	m = MatchFrequency(85.0, Standard, 0)
	assert.Equal(t, 0, m.Index)
	assert.InDelta(t, 53.5, m.Cents, 0.1)
	assert.False(t, m.Good)

	m = MatchFrequency(109.0, Standard, 0)
	assert.Equal(t, 1, m.Index)
	assert.Negative(t, m.Cents)
}

func TestMatchFrequencyNoPitch(t *testing.T) {
	for _, prev := range []int{0, 3, 5} {
		m := MatchFrequency(0, Standard, prev)
		assert.False(t, m.Good)
		assert.Equal(t, prev, m.Index)
		assert.Zero(t, m.Cents)
	}

	// Previous index from a longer tuning does not carry over
	bass, _ := Lookup("bass")
	m := MatchFrequency(0, bass, 5)
	assert.Equal(t, 0, m.Index)

	for _, f := range []float64{math.NaN(), math.Inf(1), -10} {
		m := MatchFrequency(f, Standard, 2)
		assert.False(t, m.Good, "freq %v", f)
		assert.False(t, math.IsNaN(m.Cents), "freq %v", f)
	}
}

func TestCentsMonotonic(t *testing.T) {
	prev := math.Inf(-1)
	for f := 80.0; f < 85; f += 0.1 {
		m := MatchFrequency(f, Standard, 0)
		assert.Equal(t, 0, m.Index)
		assert.Greater(t, m.Cents, prev)
		prev = m.Cents
	}
}

func TestIsGoodBoundary(t *testing.T) {
	assert.True(t, IsGood(0))
	assert.True(t, IsGood(4.999))
	assert.True(t, IsGood(-4.999))
	assert.False(t, IsGood(5.0))
	assert.False(t, IsGood(-5.0))
	assert.False(t, IsGood(5.001))
}
