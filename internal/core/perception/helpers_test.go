package perception

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zeusync/perception/internal/core/systems/physics"
)

const (
	layerDefault physics.Layer = 0
	layerWall    physics.Layer = 1
	layerEnemy   physics.Layer = 2
	layerPickup  physics.Layer = 3
)

type fakeBody struct {
	id      physics.BodyID
	pos     physics.Vec3
	layer   physics.Layer
	trigger bool
	dead    bool
}

func (b *fakeBody) ID() physics.BodyID     { return b.id }
func (b *fakeBody) Position() physics.Vec3 { return b.pos }
func (b *fakeBody) Layer() physics.Layer   { return b.layer }
func (b *fakeBody) IsTrigger() bool        { return b.trigger }
func (b *fakeBody) Alive() bool            { return !b.dead }

// fakeQuery returns its bodies verbatim from OverlapSphere and blocks every
// linecast while blocked is set.
type fakeQuery struct {
	bodies    []physics.Body
	blocked   bool
	overlaps  int
	linecasts int
}

func (q *fakeQuery) OverlapSphere(_ physics.Vec3, _ float64, _ physics.LayerMask, _ bool, out []physics.Body) (int, int) {
	q.overlaps++
	n := copy(out, q.bodies)
	return n, len(q.bodies)
}

func (q *fakeQuery) Linecast(_, _ physics.Vec3, _ physics.LayerMask) bool {
	q.linecasts++
	return q.blocked
}

func guardPose() physics.Pose {
	return physics.Pose{Pos: physics.Zero, Fwd: physics.Forward}
}

func newWorldSensor(t *testing.T, cfg Config, opts ...Option) (*Sensor, *physics.World) {
	t.Helper()
	w := physics.NewWorld()
	s, err := New(cfg, w, guardPose(), opts...)
	require.NoError(t, err)
	return s, w
}

func spawn(t *testing.T, w *physics.World, layer physics.Layer, pos physics.Vec3) *physics.WorldBody {
	t.Helper()
	b, err := w.Spawn(physics.BodySpec{Layer: layer, Position: pos})
	require.NoError(t, err)
	return b
}

func ids(bodies []physics.Body) []physics.BodyID {
	out := make([]physics.BodyID, len(bodies))
	for i, b := range bodies {
		out[i] = b.ID()
	}
	return out
}
