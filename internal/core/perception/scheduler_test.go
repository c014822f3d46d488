package perception

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchedulerRejectsBadFrequency(t *testing.T) {
	for _, hz := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := NewScheduler(hz)
		assert.ErrorIs(t, err, ErrInvalidConfig, "hz=%v", hz)
	}
}

func TestSchedulerFirstPositiveTickScans(t *testing.T) {
	s, err := NewScheduler(4)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Advance(0))
	assert.Equal(t, 1, s.Advance(0.0625))
	assert.Equal(t, 0.1875, s.Remaining())
}

// Tick sizes are multiples of 1/64 s so every sum is exact.
func TestSchedulerLongRunRate(t *testing.T) {
	patterns := [][]int{
		{1, 1, 1, 1},
		{3, 7, 1, 20, 2, 5},
		{16, 16, 16},
		{40, 1, 1, 1, 90, 3},
		{5, 11, 13, 2, 64, 4, 9},
	}
	for _, pattern := range patterns {
		s, err := NewScheduler(4) // 16 units per interval
		require.NoError(t, err)

		units, scans := 0, 0
		for round := 0; round < 10; round++ {
			for _, u := range pattern {
				scans += s.Advance(float64(u) / 64)
				units += u
			}
		}
		if rest := units % 16; rest != 0 {
			scans += s.Advance(float64(16-rest) / 64)
			units += 16 - rest
		}
		assert.Equal(t, units/16, scans, "pattern %v", pattern)
		assert.Zero(t, s.Remaining())
	}
}

func TestSchedulerCountdownStaysInRange(t *testing.T) {
	s, err := NewScheduler(30)
	require.NoError(t, err)
	for _, dt := range []float64{0.001, 0.5, 0.017, 0.2, 1e-6, 0.033} {
		s.Advance(dt)
		assert.GreaterOrEqual(t, s.Remaining(), 0.0)
		assert.Less(t, s.Remaining(), s.Interval())
	}
}

func TestSchedulerIgnoresInvalidDelta(t *testing.T) {
	s, err := NewScheduler(4)
	require.NoError(t, err)
	s.Advance(0.125)
	before := s.Remaining()
	for _, dt := range []float64{-1, math.NaN(), math.Inf(1), math.Inf(-1), 0} {
		assert.Zero(t, s.Advance(dt))
	}
	assert.Equal(t, before, s.Remaining())
}

func TestSchedulerLongTick(t *testing.T) {
	s, err := NewScheduler(4)
	require.NoError(t, err)
	assert.Equal(t, 4000, s.Advance(1000))
	assert.Zero(t, s.Remaining())
	assert.Equal(t, 1, s.Advance(0.0625))
}

func TestSchedulerReset(t *testing.T) {
	s, err := NewScheduler(4)
	require.NoError(t, err)
	s.Advance(0.0625)
	s.Reset()
	assert.Equal(t, 1, s.Advance(0.0625))
}
