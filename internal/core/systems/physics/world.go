package physics

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/zeusync/perception/pkg/generic"
)

const (
	defaultCellSize = 4.0

	// maxCellCoord keeps grid coordinates well inside int range.
	maxCellCoord = 1 << 30
	// bodies covering more cells than this are not put in the grid.
	maxIndexedCells = 512
)

var (
	ErrUnknownBody = errors.New("unknown body")
	ErrInvalidBody = errors.New("invalid body")
)

var _ SpatialQuery = (*World)(nil)

// queryScratch is the per-query working set, pooled so steady-state scans
// do not allocate inside the world.
type queryScratch struct {
	hits []*WorldBody
	seen map[BodyID]struct{}
}

var scratchPool = generic.NewResetPool(
	func() *queryScratch {
		return &queryScratch{hits: make([]*WorldBody, 0, 64), seen: make(map[BodyID]struct{}, 64)}
	},
	func(s *queryScratch) *queryScratch {
		clear(s.hits)
		s.hits = s.hits[:0]
		clear(s.seen)
		return s
	},
)

// BodySpec describes a sphere body to spawn into a World.
type BodySpec struct {
	Name     string  `json:"name,omitempty" yaml:"name,omitempty"`
	Layer    Layer   `json:"layer" yaml:"layer"`
	Position Vec3    `json:"position" yaml:"position"`
	Radius   float64 `json:"radius,omitempty" yaml:"radius,omitempty"`
	Trigger  bool    `json:"trigger,omitempty" yaml:"trigger,omitempty"`
}

// Obstacle is a static box collider. Obstacles only take part in Linecast.
type Obstacle struct {
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Layer Layer  `json:"layer" yaml:"layer"`
	Box   AABB   `json:"box" yaml:"box"`
}

// WorldBody is the Body handle handed out by World.
type WorldBody struct {
	id      BodyID
	name    string
	layer   Layer
	radius  float64
	trigger bool
	alive   atomic.Bool

	world     *World
	pos       Vec3 // guarded by world.mu
	cells     []cell
	oversized bool
}

func (b *WorldBody) ID() BodyID      { return b.id }
func (b *WorldBody) Name() string    { return b.name }
func (b *WorldBody) Layer() Layer    { return b.layer }
func (b *WorldBody) Radius() float64 { return b.radius }
func (b *WorldBody) IsTrigger() bool { return b.trigger }
func (b *WorldBody) Alive() bool     { return b.alive.Load() }
func (b *WorldBody) String() string  { return fmt.Sprintf("body#%d(%s)", b.id, b.name) }

func (b *WorldBody) Position() Vec3 {
	b.world.mu.RLock()
	defer b.world.mu.RUnlock()
	return b.pos
}

type cell struct{ x, y, z int }

// World is a thread-safe in-memory SpatialQuery backed by a uniform grid.
// Reads (OverlapSphere, Linecast) may run concurrently; mutations take the
// write lock.
type World struct {
	mu        sync.RWMutex
	cellSize  float64
	nextID    BodyID
	bodies    map[BodyID]*WorldBody
	grid      map[cell][]*WorldBody
	oversized map[BodyID]*WorldBody
	obstacles []Obstacle
}

type WorldOption func(*World)

// WithCellSize sets the broad-phase grid cell edge length.
func WithCellSize(size float64) WorldOption {
	return func(w *World) {
		if size > 0 && !math.IsInf(size, 0) {
			w.cellSize = size
		}
	}
}

func NewWorld(opts ...WorldOption) *World {
	w := &World{
		cellSize:  defaultCellSize,
		bodies:    make(map[BodyID]*WorldBody),
		grid:      make(map[cell][]*WorldBody),
		oversized: make(map[BodyID]*WorldBody),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Spawn adds a body and returns its handle.
func (w *World) Spawn(spec BodySpec) (*WorldBody, error) {
	if !spec.Position.IsFinite() {
		return nil, fmt.Errorf("%w: non-finite position %v", ErrInvalidBody, spec.Position)
	}
	if spec.Radius < 0 || math.IsNaN(spec.Radius) || math.IsInf(spec.Radius, 0) {
		return nil, fmt.Errorf("%w: radius %v", ErrInvalidBody, spec.Radius)
	}
	if !spec.Layer.Valid() {
		return nil, fmt.Errorf("%w: layer %d: %w", ErrInvalidBody, spec.Layer, ErrLayerOutOfRange)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	b := &WorldBody{
		id:      w.nextID,
		name:    spec.Name,
		layer:   spec.Layer,
		radius:  spec.Radius,
		trigger: spec.Trigger,
		world:   w,
		pos:     spec.Position,
	}
	b.alive.Store(true)
	w.bodies[b.id] = b
	w.indexLocked(b)
	return b, nil
}

// Move relocates a body.
func (w *World) Move(id BodyID, pos Vec3) error {
	if !pos.IsFinite() {
		return fmt.Errorf("%w: non-finite position %v", ErrInvalidBody, pos)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.bodies[id]
	if !ok {
		return fmt.Errorf("move %d: %w", id, ErrUnknownBody)
	}
	w.unindexLocked(b)
	b.pos = pos
	w.indexLocked(b)
	return nil
}

// Remove deletes a body. Outstanding handles report Alive() == false afterwards.
func (w *World) Remove(id BodyID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.bodies[id]
	if !ok {
		return false
	}
	w.unindexLocked(b)
	delete(w.bodies, id)
	b.alive.Store(false)
	return true
}

func (w *World) Get(id BodyID) (*WorldBody, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	b, ok := w.bodies[id]
	return b, ok
}

func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.bodies)
}

// Bodies returns all live bodies ordered by ID.
func (w *World) Bodies() []*WorldBody {
	w.mu.RLock()
	out := make([]*WorldBody, 0, len(w.bodies))
	for _, b := range w.bodies {
		out = append(out, b)
	}
	w.mu.RUnlock()
	slices.SortFunc(out, func(a, b *WorldBody) int { return compareID(a.id, b.id) })
	return out
}

// AddObstacle registers a static box collider.
func (w *World) AddObstacle(o Obstacle) error {
	if !o.Box.Min.IsFinite() || !o.Box.Max.IsFinite() {
		return fmt.Errorf("%w: obstacle %q has non-finite bounds", ErrInvalidBody, o.Name)
	}
	if !o.Layer.Valid() {
		return fmt.Errorf("%w: obstacle %q layer %d: %w", ErrInvalidBody, o.Name, o.Layer, ErrLayerOutOfRange)
	}
	o.Box = Box(o.Box.Min, o.Box.Max)
	w.mu.Lock()
	w.obstacles = append(w.obstacles, o)
	w.mu.Unlock()
	return nil
}

func (w *World) Obstacles() []Obstacle {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.obstacles)
}

func (w *World) OverlapSphere(center Vec3, radius float64, mask LayerMask, includeTriggers bool, out []Body) (int, int) {
	if radius < 0 || mask.Empty() {
		return 0, 0
	}
	sc := scratchPool.Get()
	defer scratchPool.Put(sc)

	w.mu.RLock()
	w.visitLocked(center.Sub(V3(radius, radius, radius)), center.Add(V3(radius, radius, radius)), sc.seen, func(b *WorldBody) {
		if !mask.Contains(b.layer) || (b.trigger && !includeTriggers) {
			return
		}
		reach := radius + b.radius
		if b.pos.Sub(center).LenSq() <= reach*reach {
			sc.hits = append(sc.hits, b)
		}
	})
	w.mu.RUnlock()

	slices.SortFunc(sc.hits, func(a, b *WorldBody) int { return compareID(a.id, b.id) })
	n := 0
	for _, b := range sc.hits {
		if n == len(out) {
			break
		}
		out[n] = b
		n++
	}
	return n, len(sc.hits)
}

func (w *World) Linecast(from, to Vec3, mask LayerMask) bool {
	if mask.Empty() {
		return false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, o := range w.obstacles {
		if !mask.Contains(o.Layer) {
			continue
		}
		if _, hit := SegmentHitsAABB(from, to, o.Box); hit {
			return true
		}
	}
	sc := scratchPool.Get()
	defer scratchPool.Put(sc)

	bounds := Box(from, to)
	blocked := false
	w.visitLocked(bounds.Min, bounds.Max, sc.seen, func(b *WorldBody) {
		if blocked || b.trigger || !mask.Contains(b.layer) {
			return
		}
		if SegmentHitsSphere(from, to, b.pos, b.radius) {
			blocked = true
		}
	})
	return blocked
}

// visitLocked calls fn once for every body whose grid cells intersect the
// box [lo, hi]. Falls back to a linear pass when the box covers more cells
// than there are bodies. seen must be empty.
func (w *World) visitLocked(lo, hi Vec3, seen map[BodyID]struct{}, fn func(*WorldBody)) {
	cLo, cHi := w.cellOf(lo), w.cellOf(hi)
	if cellSpan(cLo, cHi) > float64(len(w.bodies)) {
		for _, b := range w.bodies {
			fn(b)
		}
		return
	}
	for _, b := range w.oversized {
		seen[b.id] = struct{}{}
		fn(b)
	}
	for x := cLo.x; x <= cHi.x; x++ {
		for y := cLo.y; y <= cHi.y; y++ {
			for z := cLo.z; z <= cHi.z; z++ {
				for _, b := range w.grid[cell{x, y, z}] {
					if _, dup := seen[b.id]; dup {
						continue
					}
					seen[b.id] = struct{}{}
					fn(b)
				}
			}
		}
	}
}

func cellSpan(lo, hi cell) float64 {
	return float64(hi.x-lo.x+1) * float64(hi.y-lo.y+1) * float64(hi.z-lo.z+1)
}

func (w *World) cellOf(p Vec3) cell {
	return cell{
		x: cellCoord(p.X / w.cellSize),
		y: cellCoord(p.Y / w.cellSize),
		z: cellCoord(p.Z / w.cellSize),
	}
}

func cellCoord(f float64) int {
	f = math.Floor(f)
	switch {
	case math.IsNaN(f):
		return 0
	case f > maxCellCoord:
		return maxCellCoord
	case f < -maxCellCoord:
		return -maxCellCoord
	}
	return int(f)
}

func (w *World) indexLocked(b *WorldBody) {
	r := V3(b.radius, b.radius, b.radius)
	lo, hi := w.cellOf(b.pos.Sub(r)), w.cellOf(b.pos.Add(r))
	b.cells = b.cells[:0]
	if cellSpan(lo, hi) > maxIndexedCells {
		b.oversized = true
		w.oversized[b.id] = b
		return
	}
	for x := lo.x; x <= hi.x; x++ {
		for y := lo.y; y <= hi.y; y++ {
			for z := lo.z; z <= hi.z; z++ {
				c := cell{x, y, z}
				w.grid[c] = append(w.grid[c], b)
				b.cells = append(b.cells, c)
			}
		}
	}
}

func (w *World) unindexLocked(b *WorldBody) {
	if b.oversized {
		delete(w.oversized, b.id)
		b.oversized = false
		return
	}
	for _, c := range b.cells {
		list := w.grid[c]
		if i := slices.Index(list, b); i >= 0 {
			list = slices.Delete(list, i, i+1)
		}
		if len(list) == 0 {
			delete(w.grid, c)
		} else {
			w.grid[c] = list
		}
	}
	b.cells = b.cells[:0]
}

func compareID(a, b BodyID) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
