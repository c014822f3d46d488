package physics

import "math"

// AABB is an axis-aligned box.
type AABB struct {
	Min Vec3 `json:"min" yaml:"min"`
	Max Vec3 `json:"max" yaml:"max"`
}

// Box returns the AABB spanning two arbitrary corners.
func Box(a, b Vec3) AABB {
	return AABB{
		Min: Vec3{math.Min(a.X, b.X), math.Min(a.Y, b.Y), math.Min(a.Z, b.Z)},
		Max: Vec3{math.Max(a.X, b.X), math.Max(a.Y, b.Y), math.Max(a.Z, b.Z)},
	}
}

func (b AABB) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// SegmentHitsAABB runs a slab test of the segment a -> b against box and
// returns the entry fraction along the segment when it hits.
func SegmentHitsAABB(a, b Vec3, box AABB) (float64, bool) {
	d := b.Sub(a)
	tMin, tMax := 0.0, 1.0
	origin := [3]float64{a.X, a.Y, a.Z}
	dir := [3]float64{d.X, d.Y, d.Z}
	lo := [3]float64{box.Min.X, box.Min.Y, box.Min.Z}
	hi := [3]float64{box.Max.X, box.Max.Y, box.Max.Z}

	for i := 0; i < 3; i++ {
		if math.Abs(dir[i]) < 1e-12 {
			// parallel to this slab: must already be inside it
			if origin[i] < lo[i] || origin[i] > hi[i] {
				return 0, false
			}
			continue
		}
		inv := 1 / dir[i]
		t1 := (lo[i] - origin[i]) * inv
		t2 := (hi[i] - origin[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tMin {
			tMin = t1
		}
		if t2 < tMax {
			tMax = t2
		}
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}

// SegmentHitsSphere reports whether the segment a -> b passes within radius of center.
func SegmentHitsSphere(a, b, center Vec3, radius float64) bool {
	return ClosestPointOnSegment(a, b, center).Sub(center).LenSq() <= radius*radius
}

// ClosestPointOnSegment projects p onto the segment a -> b.
func ClosestPointOnSegment(a, b, p Vec3) Vec3 {
	d := b.Sub(a)
	l := d.LenSq()
	if l == 0 {
		return a
	}
	t := p.Sub(a).Dot(d) / l
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return a.Add(d.Scale(t))
}
