package perception

import (
	"github.com/zeusync/perception/internal/core/events/bus"
	"github.com/zeusync/perception/internal/core/observability/log"
)

// Event types published by a Sensor. Data is the *Snapshot of the scan.
const (
	EventScanned      = "perception.scanned"
	EventSightChanged = "perception.sight_changed"
)

// publish runs outside the sensor lock so handlers may query the sensor.
func (s *Sensor) publish(snap *Snapshot, changed bool) {
	if s.events == nil {
		return
	}
	if s.events.HasSubscribers(EventScanned) {
		s.emit(EventScanned, snap)
	}
	if changed {
		s.emit(EventSightChanged, snap)
	}
}

func (s *Sensor) emit(typ string, snap *Snapshot) {
	meta := map[string]any{
		"seq":       snap.Seq,
		"in_sight":  len(snap.InSight),
		"in_range":  len(snap.InRangeOnly),
		"truncated": snap.Truncated,
	}
	if err := s.events.Publish(bus.NewEvent(typ, s.id, snap, meta)); err != nil {
		s.logger.Warn("event handler failed",
			log.String("event", typ),
			log.Uint64("seq", snap.Seq),
			log.Error(err),
		)
	}
}
