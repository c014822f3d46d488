package perception

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/zeusync/perception/internal/core/events/bus"
	"github.com/zeusync/perception/internal/core/observability/log"
	"github.com/zeusync/perception/internal/core/systems/physics"
)

// State is the sensor lifecycle state. Scanning only ever lasts for the
// duration of one synchronous scan inside Tick.
type State uint32

const (
	StateIdle State = iota
	StateScanning
)

func (s State) String() string {
	if s == StateScanning {
		return "scanning"
	}
	return "idle"
}

// maxScansPerTick bounds the catch-up work of one Tick. Due scans beyond it
// stay in the backlog and run on later ticks.
const maxScansPerTick = 4

// Stats are cumulative diagnostics for one sensor.
type Stats struct {
	Scans uint64
	// Backlog is the number of due scans not run yet.
	Backlog      uint64
	Truncations  uint64
	IgnoredTicks uint64

	LastOverlapping int
	LastInSight     int
	LastInRange     int
}

// Sensor is a periodic vision sensor: a broad-phase sphere query narrowed by a
// vertical band, a horizontal field of view and an occlusion linecast.
//
// Tick, Scan and Reconfigure are meant to be driven from one goroutine. The
// query surface (Snapshot, InSight, InRangeOnly, Filter, ...) reads an
// immutable snapshot and is safe from any goroutine.
type Sensor struct {
	id     string
	logger log.Log
	events bus.EventBus

	query physics.SpatialQuery
	host  physics.Transform

	self    physics.BodyID
	hasSelf bool

	mu         sync.Mutex
	cfg        Config
	sched      *Scheduler
	scratch    []physics.Body
	seq        uint64
	lastDigest uint64
	stats      Stats

	state    atomic.Uint32
	snapshot atomic.Pointer[Snapshot]
}

type Option func(*Sensor)

func WithID(id string) Option {
	return func(s *Sensor) {
		if id != "" {
			s.id = id
		}
	}
}

func WithLogger(l log.Log) Option {
	return func(s *Sensor) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSelf excludes the host's own body from every scan.
func WithSelf(id physics.BodyID) Option {
	return func(s *Sensor) {
		s.self = id
		s.hasSelf = true
	}
}

// WithEventBus publishes scan events to b.
func WithEventBus(b bus.EventBus) Option {
	return func(s *Sensor) { s.events = b }
}

// New validates cfg and builds an idle sensor with an empty snapshot. The
// first tick with a positive delta triggers a scan.
func New(cfg Config, query physics.SpatialQuery, host physics.Transform, opts ...Option) (*Sensor, error) {
	if query == nil {
		return nil, fmt.Errorf("%w: spatial query provider is nil", ErrNilDependency)
	}
	if host == nil {
		return nil, fmt.Errorf("%w: host transform is nil", ErrNilDependency)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sched, err := NewScheduler(cfg.ScanFrequency)
	if err != nil {
		return nil, err
	}

	s := &Sensor{
		id:         uuid.NewString(),
		logger:     log.Provide(),
		query:      query,
		host:       host,
		cfg:        cfg,
		sched:      sched,
		lastDigest: emptyDigest,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(log.String("sensor", s.id))
	s.scratch = make([]physics.Body, s.scratchSize(cfg))
	s.snapshot.Store(emptySnapshot(0))

	s.logger.Debug("sensor created",
		log.Float64("radius", cfg.Radius),
		log.Float64("fov", cfg.FieldOfView),
		log.Float64("scan_frequency", cfg.ScanFrequency),
		log.Int("max_candidates", cfg.MaxCandidates),
	)
	return s, nil
}

func (s *Sensor) ID() string { return s.id }

func (s *Sensor) State() State { return State(s.state.Load()) }

func (s *Sensor) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *Sensor) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Host returns the transform the sensor looks from.
func (s *Sensor) Host() physics.Transform { return s.host }

// Tick advances the scan countdown by dt seconds and runs every scan that
// came due, up to maxScansPerTick. It reports whether a scan ran.
func (s *Sensor) Tick(dt float64) bool {
	if !finite(dt) || dt < 0 {
		s.mu.Lock()
		s.stats.IgnoredTicks++
		s.mu.Unlock()
		s.logger.Debug("ignoring tick", log.Float64("dt", dt))
		return false
	}

	s.mu.Lock()
	s.stats.Backlog += uint64(s.sched.Advance(dt))
	n := min(s.stats.Backlog, maxScansPerTick)
	s.stats.Backlog -= n
	s.mu.Unlock()

	for range n {
		s.mu.Lock()
		snap, changed := s.scanLocked()
		s.mu.Unlock()
		s.publish(snap, changed)
	}
	return n > 0
}

// Scan runs a scan immediately without touching the countdown.
func (s *Sensor) Scan() *Snapshot {
	s.mu.Lock()
	snap, changed := s.scanLocked()
	s.mu.Unlock()

	s.publish(snap, changed)
	return snap
}

// Reconfigure swaps the configuration and invalidates the current snapshot.
// An invalid config is rejected and leaves the sensor untouched.
func (s *Sensor) Reconfigure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	sched, err := NewScheduler(cfg.ScanFrequency)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cfg = cfg
	s.sched = sched
	s.stats.Backlog = 0
	if size := s.scratchSize(cfg); size != len(s.scratch) {
		s.scratch = make([]physics.Body, size)
	}
	s.seq++
	snap := emptySnapshot(s.seq)
	changed := s.lastDigest != emptyDigest
	s.lastDigest = emptyDigest
	s.snapshot.Store(snap)
	s.mu.Unlock()

	s.logger.Info("sensor reconfigured",
		log.Float64("radius", cfg.Radius),
		log.Float64("fov", cfg.FieldOfView),
		log.Float64("scan_frequency", cfg.ScanFrequency),
	)
	if changed && s.events != nil {
		s.emit(EventSightChanged, snap)
	}
	return nil
}

// Snapshot returns the latest published scan result. Never nil.
func (s *Sensor) Snapshot() *Snapshot { return s.snapshot.Load() }

// InSight returns the live bodies of the latest in-sight set.
func (s *Sensor) InSight() []physics.Body {
	return liveCopy(s.snapshot.Load().InSight)
}

// InRangeOnly returns the live bodies of the latest in-range-but-not-in-sight set.
func (s *Sensor) InRangeOnly() []physics.Body {
	return liveCopy(s.snapshot.Load().InRangeOnly)
}

func liveCopy(bodies []physics.Body) []physics.Body {
	out := make([]physics.Body, 0, len(bodies))
	for _, b := range bodies {
		if b.Alive() {
			out = append(out, b)
		}
	}
	return out
}

func (s *Sensor) scratchSize(cfg Config) int {
	if s.hasSelf {
		// one extra slot so the host's own body never costs a candidate
		return cfg.MaxCandidates + 1
	}
	return cfg.MaxCandidates
}

func (s *Sensor) scanLocked() (*Snapshot, bool) {
	s.state.Store(uint32(StateScanning))
	defer s.state.Store(uint32(StateIdle))

	cfg := s.cfg
	origin := s.host.Position()
	forward := s.host.Forward()

	written, total := s.query.OverlapSphere(origin, cfg.Radius, cfg.DetectionMask, cfg.IncludeTriggers, s.scratch)

	s.seq++
	snap := &Snapshot{
		Seq:         s.seq,
		Origin:      origin,
		Forward:     forward,
		InSight:     make([]physics.Body, 0, min(written, cfg.MaxCandidates)),
		InRangeOnly: make([]physics.Body, 0, min(written, cfg.MaxCandidates)),
	}

	kept := 0
	for i := 0; i < written; i++ {
		b := s.scratch[i]
		s.scratch[i] = nil
		if b == nil {
			continue
		}
		if s.hasSelf && b.ID() == s.self {
			total--
			continue
		}
		if kept == cfg.MaxCandidates {
			continue
		}
		kept++

		v := Classify(origin, forward, b.Position(), cfg, s.query)
		snap.Verdicts[v]++
		if v == VerdictInSight {
			snap.InSight = append(snap.InSight, b)
		} else {
			snap.InRangeOnly = append(snap.InRangeOnly, b)
		}
	}

	snap.Overlapping = total
	snap.Truncated = total > kept
	snap.Digest = digestOf(snap.InSight)

	s.stats.Scans++
	s.stats.LastOverlapping = total
	s.stats.LastInSight = len(snap.InSight)
	s.stats.LastInRange = len(snap.InRangeOnly)
	if snap.Truncated {
		s.stats.Truncations++
		s.logger.Debug("broad phase truncated",
			log.Int("overlapping", total),
			log.Int("kept", kept),
			log.Int("max_candidates", cfg.MaxCandidates),
		)
	}

	changed := snap.Digest != s.lastDigest
	s.lastDigest = snap.Digest
	s.snapshot.Store(snap)
	return snap, changed
}
