package debugviz

import (
	"github.com/zeusync/perception/internal/core/events/bus"
	"github.com/zeusync/perception/internal/core/perception"
	"github.com/zeusync/perception/internal/core/systems/physics"
)

// Frame is the per-scan message sent to viewers.
type Frame struct {
	Sensor    string           `json:"sensor"`
	Seq       uint64           `json:"seq"`
	Position  physics.Vec3     `json:"position"`
	Forward   physics.Vec3     `json:"forward"`
	InSight   []physics.BodyID `json:"in_sight"`
	InRange   []physics.BodyID `json:"in_range"`
	Truncated bool             `json:"truncated,omitempty"`
}

func FrameOf(sensor string, snap *perception.Snapshot) Frame {
	return Frame{
		Sensor:    sensor,
		Seq:       snap.Seq,
		Position:  snap.Origin,
		Forward:   snap.Forward,
		InSight:   snap.IDs(true),
		InRange:   snap.IDs(false),
		Truncated: snap.Truncated,
	}
}

// Attach broadcasts a Frame to feed for every scan published on eb.
func Attach(eb bus.EventBus, feed *Feed) (bus.Subscription, error) {
	return eb.Subscribe(perception.EventScanned, func(e bus.Event) error {
		snap, ok := e.Data().(*perception.Snapshot)
		if !ok {
			return nil
		}
		feed.Broadcast(MessageFrame, FrameOf(e.Source(), snap))
		return nil
	})
}
