package npc

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/perception/internal/core/perception"
	"github.com/zeusync/perception/internal/core/systems/physics"
)

const guardTree = `
root: Guard
nodes:
  Guard:
    type: selector
    children: [Track, Engage, Patrol]
  Track:
    type: sequence
    children: [Visible, Alert]
  Visible:
    type: condition
    condition: TargetVisible
  Alert:
    type: action
    action: SetBool
    params: {key: alert, value: true}
  Engage:
    type: sequence
    children: [Spotted, Acquire]
  Spotted:
    type: condition
    condition: CanSee
    params: {layer: 2}
  Acquire:
    type: action
    action: AcquireTarget
    params: {layer: 2}
  Patrol:
    type: sequence
    children: [Forget, Calm]
  Forget:
    type: action
    action: ForgetTarget
  Calm:
    type: action
    action: SetBool
    params: {key: alert, value: false}
sensors:
  - name: eyes
    type: VisionSensor
`

func newGuard(t *testing.T) (Agent, *physics.World) {
	t.Helper()
	w := physics.NewWorld()
	cfg := perception.DefaultConfig()
	cfg.ScanFrequency = 8
	s, err := perception.New(cfg, w, physics.Pose{Pos: physics.Zero, Fwd: physics.Forward})
	require.NoError(t, err)

	r := NewRegistry()
	RegisterBuiltins(r)
	RegisterVision(r, s)

	tree, err := LoadYAML(strings.NewReader(guardTree))
	require.NoError(t, err)
	a, err := BuildAgent("guard", tree, r)
	require.NoError(t, err)
	return a, w
}

func TestVisionSensorWritesBlackboard(t *testing.T) {
	a, w := newGuard(t)
	enemy, err := w.Spawn(physics.BodySpec{Layer: 2, Position: physics.V3(0, 0, 5)})
	require.NoError(t, err)
	side, err := w.Spawn(physics.BodySpec{Layer: 2, Position: physics.V3(8, 0, 5)})
	require.NoError(t, err)

	_, err = a.Step(context.Background(), 0.125)
	require.NoError(t, err)

	bb := a.Blackboard()
	inSight, _ := bb.Get(KeyInSight)
	inRange, _ := bb.Get(KeyInRange)
	seq, _ := bb.Get(KeySeq)
	assert.Equal(t, []physics.BodyID{enemy.ID()}, inSight)
	assert.Equal(t, []physics.BodyID{side.ID()}, inRange)
	assert.EqualValues(t, 1, seq)
}

func TestAcquireThenTrackTarget(t *testing.T) {
	a, w := newGuard(t)
	ctx := context.Background()

	// nothing around: patrol
	st, err := a.Step(ctx, 0.125)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, st)
	alert, _ := a.Blackboard().Get("alert")
	assert.Equal(t, false, alert)

	enemy, err := w.Spawn(physics.BodySpec{Layer: 2, Position: physics.V3(1, 0, 6)})
	require.NoError(t, err)
	_, err = a.Step(ctx, 0.125)
	require.NoError(t, err)
	target, ok := a.Blackboard().Get(KeyTarget)
	require.True(t, ok)
	assert.Equal(t, enemy.ID(), target)

	_, err = a.Step(ctx, 0.125)
	require.NoError(t, err)
	alert, _ = a.Blackboard().Get("alert")
	assert.Equal(t, true, alert)

	// target walks behind the guard: forgotten on the next scan
	require.NoError(t, w.Move(enemy.ID(), physics.V3(0, 0, -4)))
	_, err = a.Step(ctx, 0.125)
	require.NoError(t, err)
	_, ok = a.Blackboard().Get(KeyTarget)
	assert.False(t, ok)
	alert, _ = a.Blackboard().Get("alert")
	assert.Equal(t, false, alert)
}

func TestAcquirePicksNearest(t *testing.T) {
	a, w := newGuard(t)
	_, err := w.Spawn(physics.BodySpec{Layer: 2, Position: physics.V3(0, 0, 9)})
	require.NoError(t, err)
	near, err := w.Spawn(physics.BodySpec{Layer: 2, Position: physics.V3(0.5, 0, 3)})
	require.NoError(t, err)
	_, err = w.Spawn(physics.BodySpec{Layer: 3, Position: physics.V3(0, 0, 1)})
	require.NoError(t, err)

	_, err = a.Step(context.Background(), 0.125)
	require.NoError(t, err)
	target, _ := a.Blackboard().Get(KeyTarget)
	assert.Equal(t, near.ID(), target)
}

func TestVisionParamsValidated(t *testing.T) {
	s, err := perception.New(perception.DefaultConfig(), physics.NewWorld(), physics.Pose{Fwd: physics.Forward})
	require.NoError(t, err)
	r := NewRegistry()
	RegisterVision(r, s)

	_, err = r.NewCondition("CanSee", map[string]any{})
	assert.ErrorIs(t, err, ErrInvalidParams)
	_, err = r.NewAction("AcquireTarget", map[string]any{"layer": 40})
	assert.ErrorIs(t, err, physics.ErrLayerOutOfRange)
	_, err = r.NewAction("AcquireTarget", map[string]any{"layer": 2.0})
	assert.NoError(t, err)
}
