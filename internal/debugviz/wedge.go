// Package debugviz renders sensor state for external viewers: a wedge mesh of
// the field of view and a websocket feed of per-scan frames.
package debugviz

import (
	"github.com/zeusync/perception/internal/core/perception"
	"github.com/zeusync/perception/internal/core/systems/physics"
)

// DefaultSegments is the number of arc segments used by the viewer.
const DefaultSegments = 10

// Mesh is an unindexed triangle soup: every three consecutive vertices form
// one triangle and Triangles is simply 0..len(Vertices)-1.
type Mesh struct {
	Vertices  []physics.Vec3 `json:"vertices"`
	Triangles []int          `json:"triangles"`
}

// Wedge builds the field-of-view volume of cfg in sensor-local space, facing
// +Z with Y up: two side walls, and per arc segment a far wall quad plus a top
// and a bottom slice.
func Wedge(cfg perception.Config, segments int) Mesh {
	if segments < 1 {
		segments = 1
	}
	tris := 4 + 4*segments
	m := Mesh{
		Vertices:  make([]physics.Vec3, 0, tris*3),
		Triangles: make([]int, tris*3),
	}
	for i := range m.Triangles {
		m.Triangles[i] = i
	}

	reach := physics.Forward.Scale(cfg.Radius)
	up := physics.Up.Scale(cfg.VerticalBand)

	bottomCenter := physics.Zero
	bottomLeft := reach.RotateY(-cfg.FieldOfView)
	bottomRight := reach.RotateY(cfg.FieldOfView)
	topCenter := bottomCenter.Add(up)
	topLeft := bottomLeft.Add(up)
	topRight := bottomRight.Add(up)

	tri := func(a, b, c physics.Vec3) { m.Vertices = append(m.Vertices, a, b, c) }

	// left side
	tri(bottomCenter, topCenter, topLeft)
	tri(topLeft, bottomLeft, bottomCenter)
	// right side
	tri(bottomCenter, bottomRight, topRight)
	tri(topRight, topCenter, bottomCenter)

	angle := -cfg.FieldOfView
	step := 2 * cfg.FieldOfView / float64(segments)
	for i := 0; i < segments; i++ {
		bl := reach.RotateY(angle)
		br := reach.RotateY(angle + step)
		tl, tr := bl.Add(up), br.Add(up)

		// far side
		tri(bl, br, tr)
		tri(tr, tl, bl)
		// top
		tri(topCenter, tl, tr)
		// bottom
		tri(bottomCenter, br, bl)

		angle += step
	}
	return m
}
