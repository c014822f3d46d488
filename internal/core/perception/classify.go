package perception

import "github.com/zeusync/perception/internal/core/systems/physics"

// Verdict is the narrow-phase outcome for one candidate.
type Verdict uint8

const (
	VerdictInSight Verdict = iota
	VerdictOutOfBand
	VerdictOutsideFOV
	VerdictOccluded

	verdictCount
)

func (v Verdict) String() string {
	switch v {
	case VerdictInSight:
		return "in_sight"
	case VerdictOutOfBand:
		return "out_of_band"
	case VerdictOutsideFOV:
		return "outside_fov"
	case VerdictOccluded:
		return "occluded"
	default:
		return "unknown"
	}
}

// Classify runs the narrow-phase tests in order of cost: vertical band, then
// horizontal angle, then the occlusion linecast. A candidate exactly on the
// field-of-view edge is rejected.
func Classify(origin, forward, target physics.Vec3, cfg Config, query physics.SpatialQuery) Verdict {
	rel := target.Sub(origin)
	if rel.Y < 0 || rel.Y > cfg.VerticalBand {
		return VerdictOutOfBand
	}

	if physics.AngleDeg(rel.Flatten(), forward.Flatten()) >= cfg.FieldOfView {
		return VerdictOutsideFOV
	}

	if cfg.OcclusionMask.Empty() || query == nil {
		return VerdictInSight
	}
	from := origin.Add(physics.Up.Scale(cfg.EyeHeight))
	to := target.WithY(from.Y)
	if query.Linecast(from, to, cfg.OcclusionMask) {
		return VerdictOccluded
	}
	return VerdictInSight
}
