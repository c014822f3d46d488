package physics

// Spatial abstractions consumed by perception. A host engine implements
// SpatialQuery over its own colliders; World is the in-process reference
// implementation.

// BodyID identifies a body inside one SpatialQuery provider.
type BodyID uint64

// Body is an opaque handle to a world body. Handles stay valid after the body
// is removed from its world but then report Alive() == false.
type Body interface {
	ID() BodyID
	Position() Vec3
	Layer() Layer
	IsTrigger() bool
	Alive() bool
}

// Transform provides the pose of a sensor host.
type Transform interface {
	Position() Vec3
	// Forward is the facing direction. It need not be normalized.
	Forward() Vec3
}

// SpatialQuery is the narrow provider interface perception is written against.
type SpatialQuery interface {
	// OverlapSphere writes bodies on mask whose volume intersects the sphere into
	// out and returns how many were written and how many overlapped in total.
	// Bodies beyond len(out) are dropped. Trigger volumes are skipped unless
	// includeTriggers is set.
	OverlapSphere(center Vec3, radius float64, mask LayerMask, includeTriggers bool, out []Body) (written, total int)

	// Linecast reports whether anything on mask intersects the segment from -> to.
	Linecast(from, to Vec3, mask LayerMask) bool
}

// Pose is a plain Transform value.
type Pose struct {
	Pos Vec3 `json:"position" yaml:"position"`
	Fwd Vec3 `json:"forward" yaml:"forward"`
}

func (p Pose) Position() Vec3 { return p.Pos }
func (p Pose) Forward() Vec3  { return p.Fwd }
