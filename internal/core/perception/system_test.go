package perception

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/perception/internal/core/systems/physics"
)

func newSystemFixture(t *testing.T, n int) (*System, *physics.World) {
	t.Helper()
	w := physics.NewWorld()
	sys := NewSystem(WithWorkers(2))
	cfg := DefaultConfig()
	cfg.ScanFrequency = 4
	for i := 0; i < n; i++ {
		pose := physics.Pose{Pos: physics.V3(float64(i)*3, 0, 0), Fwd: physics.Forward}
		s, err := New(cfg, w, pose, WithID(fmt.Sprintf("guard-%02d", i)))
		require.NoError(t, err)
		require.NoError(t, sys.Add(s))
	}
	return sys, w
}

func TestSystemTicksEverySensor(t *testing.T) {
	sys, w := newSystemFixture(t, 5)
	spawn(t, w, layerEnemy, physics.V3(6, 0, 4))

	n, err := sys.Tick(context.Background(), 0.0625)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = sys.Tick(context.Background(), 0.0625)
	require.NoError(t, err)
	assert.Zero(t, n)

	for _, s := range sys.Sensors() {
		assert.EqualValues(t, 1, s.Stats().Scans, s.ID())
	}
	g, ok := sys.Get("guard-02")
	require.True(t, ok)
	assert.Len(t, g.InSight(), 1)
}

func TestSystemRegistry(t *testing.T) {
	sys, w := newSystemFixture(t, 3)
	assert.Equal(t, 3, sys.Len())

	ids := make([]string, 0, 3)
	for _, s := range sys.Sensors() {
		ids = append(ids, s.ID())
	}
	assert.Equal(t, []string{"guard-00", "guard-01", "guard-02"}, ids)

	dup, err := New(DefaultConfig(), w, guardPose(), WithID("guard-01"))
	require.NoError(t, err)
	assert.ErrorIs(t, sys.Add(dup), ErrDuplicateSensor)
	assert.ErrorIs(t, sys.Add(nil), ErrNilDependency)

	assert.True(t, sys.Remove("guard-01"))
	assert.False(t, sys.Remove("guard-01"))
	_, ok := sys.Get("guard-01")
	assert.False(t, ok)
	assert.Equal(t, 2, sys.Len())
}

func TestSystemTickHonoursCancellation(t *testing.T) {
	sys, _ := newSystemFixture(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := sys.Tick(ctx, 0.0625)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
}
