package clipmap

import (
	"github.com/vterrain/clipmap/linear"
	"github.com/vterrain/clipmap/patchmesh"
)

// selectPatches rebuilds the instance and indirect-draw streams for
// the current ring layout against frustum: every candidate patch is
// AABB- and frustum-culled before being appended to its kind's
// instance run, and runs are only turned into an IndirectDraw when
// non-empty.
func (v *View) selectPatches(frustum linear.Frustum) {
	// nine kinds, indexed directly by Kind.
	var groups [9][]PatchInstance

	emit := func(k patchmesh.Kind, lod int, gx, gz int32) {
		info := &v.lods[lod]
		box := v.patchBox(info, k, gx, gz)
		if !v.cull(&box, &frustum) {
			return
		}
		groups[k] = append(groups[k], PatchInstance{
			VertexScale:     [2]int32{info.gridScale, int32(lod)},
			VertexTranslate: [2]int32{gx, gz},
			TexcoordOffset:  [2]int32{int32(info.texOffset[0]), int32(info.texOffset[1])},
			QuadColor:       debugColor(lod),
		})
	}

	bw := int32(v.catalog.BlockWidth)
	gw := int32(v.catalog.GapWidth)

	for lod := v.minViewLod; lod <= v.maxViewLod; lod++ {
		info := &v.lods[lod]
		gridScale := info.gridScale
		ox := int32(info.offset[0])
		oz := int32(info.offset[1])

		skipX, skipZ := trimCell(info.trim)

		for bz := int32(-2); bz <= 1; bz++ {
			inSkipZ := bz == skipZ-1 || bz == skipZ
			for bx := int32(-2); bx <= 1; bx++ {
				if inSkipZ && (bx == skipX-1 || bx == skipX) {
					continue
				}
				emit(patchmesh.Block, lod, ox+bx*bw*gridScale, oz+bz*bw*gridScale)
			}
		}

		// Vertical and horizontal gap fillers, two per axis, at the
		// ring's fixed seams between block columns/rows.
		emit(patchmesh.VGap, lod, ox+bw*2*gridScale, oz)
		emit(patchmesh.VGap, lod, ox+bw*2*gridScale, oz+(bw*3+gw)*gridScale)
		emit(patchmesh.HGap, lod, ox, oz+bw*2*gridScale)
		emit(patchmesh.HGap, lod, ox+(bw*3+gw)*gridScale, oz+bw*2*gridScale)

		trimKind, tdx, tdz := trimPatch(info.trim)
		emit(trimKind, lod, ox+tdx*bw*gridScale, oz+tdz*bw*gridScale)

		if lod == v.minViewLod {
			cox := ox + (skipX-1)*bw*gridScale
			coz := oz + (skipZ-1)*bw*gridScale
			emit(patchmesh.Block, lod, cox, coz)
			emit(patchmesh.Block, lod, cox+bw*gridScale, coz)
			emit(patchmesh.Block, lod, cox, coz+bw*gridScale)
			emit(patchmesh.Block, lod, cox+bw*gridScale, coz+bw*gridScale)
			emit(patchmesh.InteriorFinest, lod, cox, coz)
		}

		if lod < v.maxViewLod {
			v.emitCrack(emit, lod)
		}
	}

	v.instances = v.instances[:0]
	v.indirect = v.indirect[:0]
	for k := patchmesh.Block; int(k) < 9; k++ {
		run := groups[k]
		if len(run) == 0 {
			continue
		}
		p := v.catalog.Patches[k]
		v.indirect = append(v.indirect, IndirectDraw{
			IndexCountPerInstance: p.IndexCount,
			InstanceCount:         len(run),
			StartIndex:            p.StartIndex,
			BaseVertex:            p.BaseVertex,
			StartInstanceLocation: len(v.instances),
		})
		v.instances = append(v.instances, run...)
	}
}

func (v *View) emitCrack(emit func(patchmesh.Kind, int, int32, int32), lod int) {
	info := &v.lods[lod]
	gridScale := info.gridScale
	ox := int32(info.offset[0])
	oz := int32(info.offset[1])
	bw := int32(v.catalog.BlockWidth)
	gw := int32(v.catalog.GapWidth)
	span := bw*4 + gw
	emit(patchmesh.Crack, lod, ox-span/2*gridScale, oz-span/2*gridScale)
}

// trimCell returns the block-grid index pair (in the {-2,-1,0,1}
// block range) that locates the 2x2 block region left open for the
// finer ring, per the quadrant the viewer is standing in: the region
// covers block columns x-1 and x and block rows z-1 and z.
func trimCell(t trim) (x, z int32) {
	switch t {
	case trimTopLeft:
		return 0, 0
	case trimTopRight:
		return -1, 0
	case trimBottomLeft:
		return 0, -1
	default:
		return -1, -1
	}
}

// trimPatch returns the interior-trim patch kind matching t and its
// block-unit offset from the ring origin.
func trimPatch(t trim) (k patchmesh.Kind, dx, dz int32) {
	x, z := trimCell(t)
	switch t {
	case trimTopLeft:
		return patchmesh.InteriorTL, x, z
	case trimTopRight:
		return patchmesh.InteriorTR, x, z
	case trimBottomLeft:
		return patchmesh.InteriorBL, x, z
	default:
		return patchmesh.InteriorBR, x, z
	}
}

// patchBox returns the conservative world-space AABB of a patch of
// kind k placed at grid offset (gx, gz) within info's ring, using the
// ring's rescanned min/max height.
func (v *View) patchBox(info *lodInfo, k patchmesh.Kind, gx, gz int32) linear.Box3 {
	bw := float32(v.catalog.BlockWidth)
	gw := float32(v.catalog.GapWidth)
	extent := bw*2 + gw
	switch k {
	case patchmesh.InteriorTL, patchmesh.InteriorTR, patchmesh.InteriorBL, patchmesh.InteriorBR:
		extent = bw*3 + gw
	case patchmesh.Crack:
		extent = bw*4 + gw
	}
	span := extent * float32(info.gridScale)
	x := float32(gx)
	z := float32(gz)
	return linear.Box3{
		Min: linear.V3{x, info.minH, z},
		Max: linear.V3{x + span, info.maxH, z + span},
	}
}

func (v *View) cull(box *linear.Box3, frustum *linear.Frustum) bool {
	hb := v.hf.BoundingBox()
	if !box.Intersects(&hb) {
		return false
	}
	return frustum.IntersectsBox(box)
}

// debugColor assigns each lod a fixed, distinguishable tint for debug
// rendering; the host may ignore it entirely.
func debugColor(lod int) [4]float32 {
	palette := [maxLods][4]float32{
		{1, 0, 0, 1}, {1, 0.5, 0, 1}, {1, 1, 0, 1}, {0.5, 1, 0, 1}, {0, 1, 0, 1},
		{0, 1, 0.5, 1}, {0, 1, 1, 1}, {0, 0.5, 1, 1}, {0, 0, 1, 1}, {0.5, 0, 1, 1},
	}
	return palette[lod%maxLods]
}
