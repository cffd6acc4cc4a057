package clipmap

import (
	"github.com/vterrain/clipmap/config"
	"github.com/vterrain/clipmap/linear"
)

// makeView recomputes the ring layout for the viewer at pos: the
// configured [minLod, maxLod] range, the elide-finest-ring adjustment
// for a viewer high above the terrain, and each surviving ring's
// snapped world offset, toroidal texture offset and interior trim
// quadrant.
func (v *View) makeView(pos linear.V3, cfg config.Terrain) {
	terrainH := v.hf.SampleLod(pos[0], pos[2], 0)
	v.viewHeight = maxF(pos[1]-terrainH, 0)

	configMin := maxI(cfg.MinLod, 0)
	configMax := minI(cfg.MaxLod, maxLods-1)
	if configMax < configMin {
		configMax = configMin
	}

	minLod := configMin
	maxLod := configMax

	for l := configMin; l <= configMax; l++ {
		gridScale := int32(1) << uint(l)
		gridExtent := gridScale * lodGridSize(v.textureSize)

		// A ring this close to the finest lod contributes no visible
		// detail once the viewer is far enough above the terrain
		// relative to its own extent: elide it and promote the next
		// lod to be the new finest ring.
		if minLod < maxLod && float32(gridExtent) < v.viewHeight*2.5 {
			minLod++
			continue
		}
		v.computeLodOffset(l, gridScale, pos)
	}

	if maxLod-minLod > 5 {
		maxLod = minLod + 5
	}
	v.minViewLod = minLod
	v.maxViewLod = maxLod
}

// computeLodOffset snaps pos to lod l's grid, derives its world-space
// ring origin and toroidal texture-space offset, and picks the
// quadrant the viewer currently occupies within the ring (which
// determines which interior-trim patch closes the gap at the center
// of the ring).
func (v *View) computeLodOffset(l int, gridScale int32, pos linear.V3) {
	info := &v.lods[l]
	info.lod = l
	info.gridScale = gridScale

	snapSize := gridScale * 2
	// snapPos centers the ring on a snapSize-aligned cell around pos:
	// floor(pos/snapSize)*snapSize is the cell's low corner, plus the
	// half-cell (== gridScale) to reach its center.
	snapX := floorMultiple(pos[0], snapSize) + gridScale
	snapZ := floorMultiple(pos[2], snapSize) + gridScale

	half := halfGridSize(v.textureSize) * gridScale
	info.offset = linear.IV2{int(snapX - half), int(snapZ - half)}

	info.prevWorldTexel = info.worldTexel
	info.worldTexel = linear.IV2{int(snapX / gridScale), int(snapZ / gridScale)}

	ts := int32(v.textureSize)
	info.texOffset = linear.IV2{
		int(wrap(int32(info.worldTexel[0]), ts)),
		int(wrap(int32(info.worldTexel[1]), ts)),
	}

	dx := pos[0] - float32(snapX)
	dz := pos[2] - float32(snapZ)
	switch {
	case dx > 0 && dz > 0:
		info.trim = trimTopLeft
	case dx > 0 && dz <= 0:
		info.trim = trimBottomLeft
	case dx <= 0 && dz > 0:
		info.trim = trimTopRight
	default:
		info.trim = trimBottomRight
	}
}
