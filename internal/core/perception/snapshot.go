package perception

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/zeusync/perception/internal/core/systems/physics"
)

// Snapshot is the immutable result of one scan. A new snapshot replaces the
// previous one wholesale; readers holding an older snapshot keep a consistent
// view. Callers must not modify the slices.
type Snapshot struct {
	Seq     uint64
	Origin  physics.Vec3
	Forward physics.Vec3

	InSight     []physics.Body
	InRangeOnly []physics.Body

	// Overlapping is how many bodies the broad phase reported, before truncation.
	Overlapping int
	Truncated   bool
	Verdicts    [verdictCount]int

	// Digest fingerprints the ordered in-sight IDs.
	Digest uint64
}

var emptyDigest = digestOf(nil)

func emptySnapshot(seq uint64) *Snapshot {
	return &Snapshot{Seq: seq, Digest: emptyDigest}
}

// Candidates is the number of classified bodies.
func (s *Snapshot) Candidates() int { return len(s.InSight) + len(s.InRangeOnly) }

// Set returns InSight or InRangeOnly.
func (s *Snapshot) Set(wantInSight bool) []physics.Body {
	if wantInSight {
		return s.InSight
	}
	return s.InRangeOnly
}

// IDs returns the body IDs of the chosen set in scan order.
func (s *Snapshot) IDs(wantInSight bool) []physics.BodyID {
	set := s.Set(wantInSight)
	ids := make([]physics.BodyID, len(set))
	for i, b := range set {
		ids[i] = b.ID()
	}
	return ids
}

func digestOf(bodies []physics.Body) uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, b := range bodies {
		binary.LittleEndian.PutUint64(buf[:], uint64(b.ID()))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}
