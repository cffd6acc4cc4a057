package clipmap

import "github.com/vterrain/clipmap/linear"

// DebugLine is one segment of a debug wireframe, in world space.
type DebugLine struct {
	A, B linear.V3
}

// collectDebugBoxes gathers one bounding box per active ring (the
// ring's texture window, starting at its world-space corner) as a flat
// list, ready to be turned into wireframe segments by DebugLines.
func (v *View) collectDebugBoxes() []linear.Box3 {
	boxes := v.debugBoxes[:0]
	for lod := v.minViewLod; lod <= v.maxViewLod; lod++ {
		info := &v.lods[lod]
		ts := float32(v.textureSize) * float32(info.gridScale)
		ox := float32(info.offset[0])
		oz := float32(info.offset[1])
		boxes = append(boxes, linear.Box3{
			Min: linear.V3{ox, info.minH, oz},
			Max: linear.V3{ox + ts, info.maxH, oz + ts},
		})
	}
	return boxes
}

// DebugLines returns the wireframe edges of every active ring's
// bounding box that is at least partially inside frustum. Only AABBs
// are produced: no per-patch grids, no draw-call visualization, no
// on-screen text.
func (v *View) DebugLines(frustum linear.Frustum) []DebugLine {
	var lines []DebugLine
	for _, b := range v.debugBoxes {
		if !frustum.IntersectsBox(&b) {
			continue
		}
		lines = append(lines, boxLines(b)...)
	}
	return lines
}

func boxLines(b linear.Box3) []DebugLine {
	c := [8]linear.V3{
		{b.Min[0], b.Min[1], b.Min[2]},
		{b.Max[0], b.Min[1], b.Min[2]},
		{b.Max[0], b.Min[1], b.Max[2]},
		{b.Min[0], b.Min[1], b.Max[2]},
		{b.Min[0], b.Max[1], b.Min[2]},
		{b.Max[0], b.Max[1], b.Min[2]},
		{b.Max[0], b.Max[1], b.Max[2]},
		{b.Min[0], b.Max[1], b.Max[2]},
	}
	edges := [12][2]int{
		{0, 1}, {1, 2}, {2, 3}, {3, 0},
		{4, 5}, {5, 6}, {6, 7}, {7, 4},
		{0, 4}, {1, 5}, {2, 6}, {3, 7},
	}
	lines := make([]DebugLine, len(edges))
	for i, e := range edges {
		lines[i] = DebugLine{A: c[e[0]], B: c[e[1]]}
	}
	return lines
}
