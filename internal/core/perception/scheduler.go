package perception

import (
	"fmt"
	"math"
)

const maxStepwiseCatchUp = 64

// Scheduler throttles scans to a fixed frequency independent of the tick rate.
// The countdown is re-armed by adding the interval, so overshoot carries over
// and the long-run scan rate matches the configured frequency.
type Scheduler struct {
	interval  float64
	remaining float64
}

func NewScheduler(hz float64) (*Scheduler, error) {
	if !finite(hz) || hz <= 0 {
		return nil, fmt.Errorf("%w: scan frequency must be > 0, got %v", ErrInvalidConfig, hz)
	}
	return &Scheduler{interval: 1 / hz}, nil
}

// Advance consumes dt seconds and returns how many scans came due. After it
// returns the countdown lies in [0, interval). Non-positive or non-finite dt
// is ignored.
func (s *Scheduler) Advance(dt float64) int {
	if !finite(dt) || dt <= 0 {
		return 0
	}
	s.remaining -= dt
	due := 0
	if behind := -s.remaining / s.interval; behind > maxStepwiseCatchUp {
		// jump most of the way for very long ticks
		skip := math.Floor(behind)
		s.remaining += skip * s.interval
		due = int(skip)
	}
	for s.remaining < 0 {
		s.remaining += s.interval
		due++
	}
	return due
}

// Reset makes the next positive tick trigger a scan.
func (s *Scheduler) Reset() { s.remaining = 0 }

func (s *Scheduler) Interval() float64 { return s.interval }

// Remaining is the time left until the next scan.
func (s *Scheduler) Remaining() float64 { return s.remaining }
