// Package collision adapts a heightfield's finest level to an
// external physics engine without duplicating memory: the adapter
// holds a non-owning reference to level-0 samples and exposes
// "process triangles in AABB" / "process triangles along ray"
// callbacks, re-expressed as Go interfaces in place of the source's
// virtual-callback integration with a C++ physics library.
package collision

import (
	"github.com/vterrain/clipmap/heightfield"
	"github.com/vterrain/clipmap/linear"
)

// TriangleVisitor receives triangles discovered by a query. It
// returns false to stop the traversal early.
type TriangleVisitor func(v0, v1, v2 linear.V3) bool

// Surface wraps the finest pyramid level of a heightfield as a
// collision shape. Rebuilding the wrapped heightfield invalidates the
// surface: the host must rebuild any physics broadphase entry that
// referenced it when the heightfield's OnModified fires.
type Surface struct {
	h        *heightfield.Heightfield
	yOffset  float32
	edge     int
	resolved bool
}

// New builds a Surface over h's level-0 grid. Its local origin is at
// (0, (minHeight+maxHeight)/2, 0); callers must add yOffset back when
// interpreting hit results against h's own coordinate space.
func New(h *heightfield.Heightfield) *Surface {
	return &Surface{
		h:       h,
		yOffset: (h.MinHeight() + h.MaxHeight()) / 2,
		edge:    h.Resolution(),
	}
}

// YOffset returns the surface's local Y-offset.
func (s *Surface) YOffset() float32 { return s.yOffset }

// EdgeFlipped is always false: the adapter does not flip quad
// diagonals relative to the heightfield's own triangulation.
func (s *Surface) EdgeFlipped() bool { return false }

func (s *Surface) at(x, z int) float32 {
	return s.h.Level0()[z*s.edge+x] - s.yOffset
}

// ProcessTrianglesInAABB visits every level-0 triangle overlapping
// box, in the adapter's local (Y-offset) frame.
func (s *Surface) ProcessTrianglesInAABB(box linear.Box3, visit TriangleVisitor) {
	half := s.edge / 2
	x0 := clampInt(int(box.Min[0])+half, 0, s.edge-2)
	x1 := clampInt(int(box.Max[0])+half+1, 0, s.edge-2)
	z0 := clampInt(int(box.Min[2])+half, 0, s.edge-2)
	z1 := clampInt(int(box.Max[2])+half+1, 0, s.edge-2)

	for z := z0; z <= z1; z++ {
		wz := float32(z - half)
		for x := x0; x <= x1; x++ {
			wx := float32(x - half)
			if !s.emitQuad(wx, wz, x, z, visit) {
				return
			}
		}
	}
}

// ProcessTrianglesAlongRay visits every level-0 triangle inside the
// axis-aligned bounding box of the segment from orig to
// orig+dir*maxDist, by handing that box to ProcessTrianglesInAABB. It
// does not step along the ray, so a diagonal ray also visits triangles
// of the box that the ray never crosses.
func (s *Surface) ProcessTrianglesAlongRay(orig, dir linear.V3, maxDist float32, visit TriangleVisitor) {
	var end linear.V3
	var scaled linear.V3
	scaled.Scale(maxDist, &dir)
	end.Add(&orig, &scaled)

	box := linear.Box3{Min: orig, Max: orig}
	for i := range box.Min {
		if end[i] < box.Min[i] {
			box.Min[i] = end[i]
		}
		if end[i] > box.Max[i] {
			box.Max[i] = end[i]
		}
	}
	s.ProcessTrianglesInAABB(box, visit)
}

func (s *Surface) emitQuad(wx, wz float32, x, z int, visit TriangleVisitor) bool {
	h00 := s.at(x, z)
	h10 := s.at(x+1, z)
	h01 := s.at(x, z+1)
	h11 := s.at(x+1, z+1)

	p00 := linear.V3{wx, h00, wz}
	p10 := linear.V3{wx + 1, h10, wz}
	p01 := linear.V3{wx, h01, wz + 1}
	p11 := linear.V3{wx + 1, h11, wz + 1}

	if !visit(p00, p10, p01) {
		return false
	}
	return visit(p11, p01, p10)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
