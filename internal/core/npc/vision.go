package npc

import (
	"context"
	"fmt"

	"github.com/zeusync/perception/internal/core/perception"
	"github.com/zeusync/perception/internal/core/systems/physics"
)

// Blackboard keys written by VisionSensor.
const (
	KeyInSight = "vision.in_sight"
	KeyInRange = "vision.in_range"
	KeySeq     = "vision.seq"
	KeyTarget  = "target"
)

// VisionSensor ticks a perception sensor with the agent step delta and mirrors
// the latest snapshot into the blackboard as body ID lists.
type VisionSensor struct {
	sensor *perception.Sensor
}

func NewVisionSensor(s *perception.Sensor) *VisionSensor { return &VisionSensor{sensor: s} }

func (v *VisionSensor) Name() string { return "VisionSensor" }

func (v *VisionSensor) Update(_ context.Context, dt float64, bb Blackboard) error {
	if !v.sensor.Tick(dt) {
		if _, ok := bb.Get(KeySeq); ok {
			return nil
		}
	}
	snap := v.sensor.Snapshot()
	bb.Set(KeyInSight, snap.IDs(true))
	bb.Set(KeyInRange, snap.IDs(false))
	bb.Set(KeySeq, snap.Seq)
	return nil
}

// RegisterVision binds the vision sensor, conditions and actions of one
// perception sensor into r. Each agent gets its own registry.
func RegisterVision(r Registry, s *perception.Sensor) {
	r.RegisterSensor("VisionSensor", func(map[string]any) (Sensor, error) {
		return NewVisionSensor(s), nil
	})

	r.RegisterCondition("CanSee", func(params map[string]any) (Condition, error) {
		layer, err := paramLayer(params, "layer")
		if err != nil {
			return nil, fmt.Errorf("CanSee: %w", err)
		}
		inSight := paramBool(params, "in_sight", true)
		return NewConditionFunc(fmt.Sprintf("CanSee(%d)", layer), func(TickContext) (bool, error) {
			var buf [1]physics.Body
			return s.Filter(buf[:], layer, inSight) > 0, nil
		}), nil
	})

	r.RegisterAction("AcquireTarget", func(params map[string]any) (Action, error) {
		layer, err := paramLayer(params, "layer")
		if err != nil {
			return nil, fmt.Errorf("AcquireTarget: %w", err)
		}
		key := paramString(params, "key", KeyTarget)
		inSight := paramBool(params, "in_sight", true)
		return NewActionFunc("AcquireTarget("+key+")", func(t TickContext) (Status, error) {
			b, ok := s.Nearest(layer, inSight)
			if !ok {
				return StatusFailure, nil
			}
			t.BB.Set(key, b.ID())
			return StatusSuccess, nil
		}), nil
	})

	r.RegisterCondition("TargetVisible", func(params map[string]any) (Condition, error) {
		key := paramString(params, "key", KeyTarget)
		return NewConditionFunc("TargetVisible("+key+")", func(t TickContext) (bool, error) {
			id, ok := BlackboardInt(t.BB, key)
			if !ok {
				return false, nil
			}
			return s.Contains(physics.BodyID(id), true), nil
		}), nil
	})

	r.RegisterAction("ForgetTarget", func(params map[string]any) (Action, error) {
		key := paramString(params, "key", KeyTarget)
		return NewActionFunc("ForgetTarget("+key+")", func(t TickContext) (Status, error) {
			t.BB.Delete(key)
			return StatusSuccess, nil
		}), nil
	})
}
