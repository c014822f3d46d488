package perception

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/zeusync/perception/internal/core/observability/log"
	"golang.org/x/sync/errgroup"
)

// System ticks many sensors in parallel. Each sensor is still ticked by a
// single goroutine at a time; the spatial query providers they share must
// allow concurrent reads.
type System struct {
	mu      sync.RWMutex
	sensors map[string]*Sensor
	workers int
	logger  log.Log
}

type SystemOption func(*System)

// WithWorkers bounds how many sensors tick concurrently.
func WithWorkers(n int) SystemOption {
	return func(s *System) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithSystemLogger(l log.Log) SystemOption {
	return func(s *System) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewSystem(opts ...SystemOption) *System {
	s := &System{
		sensors: make(map[string]*Sensor),
		workers: runtime.GOMAXPROCS(0),
		logger:  log.Provide(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *System) Add(sensor *Sensor) error {
	if sensor == nil {
		return fmt.Errorf("%w: sensor is nil", ErrNilDependency)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sensors[sensor.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateSensor, sensor.ID())
	}
	s.sensors[sensor.ID()] = sensor
	s.logger.Debug("sensor added", log.String("sensor", sensor.ID()))
	return nil
}

func (s *System) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sensors[id]; !ok {
		return false
	}
	delete(s.sensors, id)
	return true
}

func (s *System) Get(id string) (*Sensor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sensor, ok := s.sensors[id]
	return sensor, ok
}

func (s *System) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sensors)
}

// Sensors returns the registered sensors ordered by ID.
func (s *System) Sensors() []*Sensor {
	s.mu.RLock()
	out := make([]*Sensor, 0, len(s.sensors))
	for _, sensor := range s.sensors {
		out = append(out, sensor)
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b *Sensor) int { return strings.Compare(a.ID(), b.ID()) })
	return out
}

// Tick advances every sensor by dt and returns how many of them scanned.
// Sensors not yet started when ctx is cancelled are skipped.
func (s *System) Tick(ctx context.Context, dt float64) (int, error) {
	sensors := s.Sensors()
	scanned := make([]bool, len(sensors))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, sensor := range sensors {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scanned[i] = sensor.Tick(dt)
			return nil
		})
	}
	err := g.Wait()

	n := 0
	for _, ok := range scanned {
		if ok {
			n++
		}
	}
	if err != nil {
		return n, fmt.Errorf("perception tick: %w", err)
	}
	return n, nil
}
