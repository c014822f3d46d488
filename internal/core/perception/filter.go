package perception

import "github.com/zeusync/perception/internal/core/systems/physics"

// Filter writes bodies of the chosen set whose layer matches into buf, in scan
// order, and returns how many were written. It never writes past len(buf).
// Bodies removed from the world since the scan are skipped.
func (s *Sensor) Filter(buf []physics.Body, layer physics.Layer, wantInSight bool) int {
	return s.FilterMask(buf, layer.Mask(), wantInSight)
}

// FilterMask is Filter over any layer in mask.
func (s *Sensor) FilterMask(buf []physics.Body, mask physics.LayerMask, wantInSight bool) int {
	if len(buf) == 0 {
		return 0
	}
	n := 0
	for _, b := range s.snapshot.Load().Set(wantInSight) {
		if !b.Alive() || !mask.Contains(b.Layer()) {
			continue
		}
		buf[n] = b
		n++
		if n == len(buf) {
			break
		}
	}
	return n
}

// Contains reports whether id is in the chosen set and still alive.
func (s *Sensor) Contains(id physics.BodyID, wantInSight bool) bool {
	for _, b := range s.snapshot.Load().Set(wantInSight) {
		if b.ID() == id {
			return b.Alive()
		}
	}
	return false
}

// Nearest returns the live body on layer closest to the scan origin.
func (s *Sensor) Nearest(layer physics.Layer, wantInSight bool) (physics.Body, bool) {
	snap := s.snapshot.Load()
	var (
		best   physics.Body
		bestSq float64
	)
	for _, b := range snap.Set(wantInSight) {
		if b.Layer() != layer || !b.Alive() {
			continue
		}
		d := b.Position().Sub(snap.Origin).LenSq()
		if best == nil || d < bestSq {
			best, bestSq = b, d
		}
	}
	return best, best != nil
}
