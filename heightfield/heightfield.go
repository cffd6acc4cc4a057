// Package heightfield implements the terrain core's authoritative
// elevation source: an owned mip pyramid of samples with explicit
// min/max height and world-space bounding box, plus the sampling and
// ray-query API consumed by the clipmap view and the collision
// surface adapter.
package heightfield

import (
	"encoding/binary"
	"io"

	"github.com/google/uuid"

	"github.com/vterrain/clipmap/linear"
	"github.com/vterrain/clipmap/terrain"
	"github.com/vterrain/clipmap/tlog"
)

var log = tlog.New("heightfield")

// Listener is notified when a Heightfield's samples change.
type Listener interface {
	OnModified(h *Heightfield)
}

// Heightfield is a mip pyramid of elevation samples at power-of-two
// resolutions.
type Heightfield struct {
	id uuid.UUID

	resolution int
	lodCount   int
	samples    [][]float32 // samples[lod], row-major, edge(lod)^2

	minHeight, maxHeight float32
	clipMin, clipMax     linear.IV2
	boundingBox          linear.Box3

	listeners []Listener
}

// ID uniquely identifies this heightfield for log correlation.
func (h *Heightfield) ID() uuid.UUID { return h.id }

// edge returns the edge length in samples of the given lod.
func (h *Heightfield) edge(lod int) int {
	return (h.resolution-1)>>lod + 1
}

// Resolution returns the level-0 edge length.
func (h *Heightfield) Resolution() int { return h.resolution }

// LodCount returns the number of pyramid levels.
func (h *Heightfield) LodCount() int { return h.lodCount }

// MinHeight returns the minimum sample value over level 0.
func (h *Heightfield) MinHeight() float32 { return h.minHeight }

// MaxHeight returns the maximum sample value over level 0.
func (h *Heightfield) MaxHeight() float32 { return h.maxHeight }

// BoundingBox returns the world-space bounding box.
func (h *Heightfield) BoundingBox() linear.Box3 { return h.boundingBox }

// Level0 returns the level-0 sample array by reference. Callers (the
// collision surface adapter) must not retain it past the heightfield's
// lifetime or mutate it.
func (h *Heightfield) Level0() []float32 { return h.samples[0] }

// AddListener registers l to be notified of future modifications.
func (h *Heightfield) AddListener(l Listener) {
	h.listeners = append(h.listeners, l)
}

// RemoveListener deregisters l.
func (h *Heightfield) RemoveListener(l Listener) {
	for i, x := range h.listeners {
		if x == l {
			h.listeners = append(h.listeners[:i], h.listeners[i+1:]...)
			return
		}
	}
}

// isPowerOfTwoPlusOne reports whether n == 2^k+1 for some k >= 0, and
// returns k.
func isPowerOfTwoPlusOne(n int) (k int, ok bool) {
	if n < 2 {
		return 0, false
	}
	m := n - 1
	if m&(m-1) != 0 {
		return 0, false
	}
	for (1 << k) != m {
		k++
	}
	return k, true
}

// Load builds a Heightfield from a dense row-major level-0 sample
// array. It fails with BadResolution when resolution does not satisfy
// 2^k+1.
func Load(samples0 []float32, resolution int) (*Heightfield, error) {
	k, ok := isPowerOfTwoPlusOne(resolution)
	if !ok {
		return nil, terrain.New(terrain.BadResolution, "resolution is not 2^k+1")
	}
	if len(samples0) != resolution*resolution {
		return nil, terrain.New(terrain.BadResolution, "sample count does not match resolution")
	}

	h := &Heightfield{
		id:         uuid.New(),
		resolution: resolution,
		lodCount:   k + 1,
	}
	h.samples = make([][]float32, h.lodCount)
	h.samples[0] = append([]float32(nil), samples0...)
	for lod := 1; lod < h.lodCount; lod++ {
		h.samples[lod] = downsample(h.samples[lod-1], h.edge(lod-1))
	}
	h.recompute()

	log.Debug("loaded heightfield", "id", h.id, "resolution", resolution, "lods", h.lodCount)
	return h, nil
}

// downsample box-filters a fine level of the given edge length into
// the next coarser level, handling the degenerate trailing row/column
// and corner left over by power-of-two-plus-one sizing.
func downsample(fine []float32, fineEdge int) []float32 {
	coarseEdge := (fineEdge-1)/2 + 1
	coarse := make([]float32, coarseEdge*coarseEdge)
	for cy := 0; cy < coarseEdge; cy++ {
		fy := cy * 2
		hasY := fy+1 < fineEdge
		for cx := 0; cx < coarseEdge; cx++ {
			fx := cx * 2
			hasX := fx+1 < fineEdge
			h1 := fine[fy*fineEdge+fx]
			var sum float32 = h1
			var n float32 = 1
			if hasX {
				sum += fine[fy*fineEdge+fx+1]
				n++
			}
			if hasY {
				sum += fine[(fy+1)*fineEdge+fx]
				n++
			}
			if hasX && hasY {
				sum += fine[(fy+1)*fineEdge+fx+1]
				n++
			}
			coarse[cy*coarseEdge+cx] = sum / n
		}
	}
	return coarse
}

// recompute updates minHeight, maxHeight, clipMin, clipMax and
// boundingBox from the level-0 samples.
func (h *Heightfield) recompute() {
	s := h.samples[0]
	h.minHeight, h.maxHeight = s[0], s[0]
	for _, v := range s[1:] {
		if v < h.minHeight {
			h.minHeight = v
		}
		if v > h.maxHeight {
			h.maxHeight = v
		}
	}
	half := h.resolution / 2
	h.clipMin = linear.IV2{half, half}
	h.clipMax = linear.IV2{half, half}
	h.boundingBox = linear.Box3{
		Min: linear.V3{float32(-h.clipMin[0]), h.minHeight, float32(-h.clipMin[1])},
		Max: linear.V3{float32(h.clipMax[0]), h.maxHeight, float32(h.clipMax[1])},
	}
}

// Reload replaces the level-0 samples, recomputes every coarser level,
// and notifies registered listeners. resolution must match the
// original.
func (h *Heightfield) Reload(samples0 []float32) error {
	if len(samples0) != h.resolution*h.resolution {
		return terrain.New(terrain.BadResolution, "sample count does not match resolution")
	}
	h.samples[0] = append(h.samples[0][:0], samples0...)
	for lod := 1; lod < h.lodCount; lod++ {
		h.samples[lod] = downsample(h.samples[lod-1], h.edge(lod-1))
	}
	h.recompute()
	for _, l := range h.listeners {
		l.OnModified(h)
	}
	return nil
}

// LoadAsset reads a heightfield asset per the layout: a little-endian
// u32 resolution followed by resolution*resolution little-endian
// IEEE-754 float32 samples. Unrecognized leading bytes before a valid
// sample block are not supported by this reader; callers needing the
// extended form must pre-seek r.
func LoadAsset(r io.Reader) (*Heightfield, error) {
	var resolution uint32
	if err := binary.Read(r, binary.LittleEndian, &resolution); err != nil {
		return nil, terrain.New(terrain.IoTruncated, "could not read resolution header")
	}
	n := int(resolution) * int(resolution)
	samples := make([]float32, n)
	if err := binary.Read(r, binary.LittleEndian, samples); err != nil {
		return nil, terrain.New(terrain.IoTruncated, "sample block truncated")
	}
	return Load(samples, int(resolution))
}

// sampleIndex centers and clamps a world coordinate to a valid sample
// index for the given lod's edge length.
func (h *Heightfield) sampleIndex(w float32, edge int) int {
	i := int(w) + edge/2
	if i < 0 {
		return 0
	}
	if i > edge-1 {
		return edge - 1
	}
	return i
}

// SampleLod returns the nearest-neighbor height at the given lod.
// Defined for every finite (x, z); never fails.
func (h *Heightfield) SampleLod(x, z float32, lod int) float32 {
	edge := h.edge(lod)
	ix := h.sampleIndex(x, edge)
	iz := h.sampleIndex(z, edge)
	return h.samples[lod][iz*edge+ix]
}

// quad locates the level-0 quad containing world (x, z) and returns
// its four corner indices plus the fractional offset within the quad.
// ok is false when (x, z) is outside the bounding box's XZ extent.
func (h *Heightfield) quad(x, z float32) (x0, z0 int, fx, fz float32, ok bool) {
	if x < h.boundingBox.Min[0] || x > h.boundingBox.Max[0] ||
		z < h.boundingBox.Min[2] || z > h.boundingBox.Max[2] {
		return
	}
	edge := h.resolution
	gx := x + float32(h.clipMin[0])
	gz := z + float32(h.clipMin[1])
	x0 = int(gx)
	z0 = int(gz)
	if x0 > edge-2 {
		x0 = edge - 2
	}
	if x0 < 0 {
		x0 = 0
	}
	if z0 > edge-2 {
		z0 = edge - 2
	}
	if z0 < 0 {
		z0 = 0
	}
	fx = gx - float32(x0)
	fz = gz - float32(z0)
	ok = true
	return
}

func (h *Heightfield) at(x, z int) float32 {
	return h.samples[0][z*h.resolution+x]
}

// SampleHeightBilinear maps world (x, z) to the level-0 quad
// containing it and returns the barycentric interpolation of the
// diagonal-split triangle's three vertices; 0 when outside the box.
func (h *Heightfield) SampleHeightBilinear(x, z float32) float32 {
	v, _, _, _, ok := h.triangle(x, z)
	if !ok {
		return 0
	}
	return v
}

// triangle computes the diagonal-split triangle containing (x, z) and
// returns the interpolated height, its three world-space vertices and
// whether the point lies within the box.
func (h *Heightfield) triangle(x, z float32) (height float32, v0, v1, v2 linear.V3, ok bool) {
	x0, z0, fx, fz, inside := h.quad(x, z)
	if !inside {
		return
	}
	h00 := h.at(x0, z0)
	h10 := h.at(x0+1, z0)
	h01 := h.at(x0, z0+1)
	h11 := h.at(x0+1, z0+1)

	wx0 := float32(x0 - h.clipMin[0])
	wz0 := float32(z0 - h.clipMin[1])

	p00 := linear.V3{wx0, h00, wz0}
	p10 := linear.V3{wx0 + 1, h10, wz0}
	p01 := linear.V3{wx0, h01, wz0 + 1}
	p11 := linear.V3{wx0 + 1, h11, wz0 + 1}

	if fx >= 1-fz {
		v0, v1, v2 = p11, p01, p10
		height = h11 + (h10-h11)*(1-fz) + (h01-h11)*(1-fx)
	} else {
		v0, v1, v2 = p00, p10, p01
		height = h00 + (h10-h00)*fx + (h01-h00)*fz
	}
	ok = true
	return
}

// Triangle is a world-space triangle with its normal and the UV of
// the query point within the heightfield extent.
type Triangle struct {
	V0, V1, V2 linear.V3
	Normal     linear.V3
	UV         [2]float32
}

// TriangleAt returns the world-space triangle containing (x, z), its
// normalized surface normal, and UV; ok is false outside the box.
func (h *Heightfield) TriangleAt(x, z float32) (Triangle, bool) {
	_, v0, v1, v2, ok := h.triangle(x, z)
	if !ok {
		return Triangle{}, false
	}
	var a, b linear.V3
	a.Sub(&v1, &v0)
	b.Sub(&v2, &v0)
	var normal linear.V3
	normal.Cross(&a, &b)
	normal.Norm(&normal)

	u := clamp(x/float32(h.resolution-1)+0.5, 0, 1)
	v := clamp(z/float32(h.resolution-1)+0.5, 0, 1)

	return Triangle{V0: v0, V1: v1, V2: v2, Normal: normal, UV: [2]float32{u, v}}, true
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// NormalAt returns the normalized cross product of two edges of the
// triangle containing (x, z).
func (h *Heightfield) NormalAt(x, z float32) (linear.V3, bool) {
	t, ok := h.TriangleAt(x, z)
	if !ok {
		return linear.V3{}, false
	}
	return t.Normal, true
}

// Hit is a single ray/triangle intersection result.
type Hit struct {
	Position linear.V3
	Normal   linear.V3
	U, V     float32
	Distance float32
}

// RayCast intersects the ray against the world-space bounding box
// first; if that fails, or its entry distance exceeds maxDist, it
// returns no hits. Otherwise every triangle of the level-0 grid is
// tested with Möller–Trumbore, respecting cullBackFace. Hit order is
// unspecified.
func (h *Heightfield) RayCast(start, dir linear.V3, maxDist float32, cullBackFace bool) []Hit {
	box := h.boundingBox
	tmin, ok := box.RayIntersect(&start, &dir, maxDist)
	if !ok || tmin > maxDist {
		return nil
	}
	var hits []Hit
	h.walkTriangles(start, dir, maxDist, cullBackFace, func(hit Hit) bool {
		hits = append(hits, hit)
		return true
	})
	return hits
}

// RayCastClosest is RayCast but keeps only the smallest distance <
// maxDist encountered ("keep minimum": this module does not assume
// any particular front-to-back traversal order from its triangle
// walk).
func (h *Heightfield) RayCastClosest(start, dir linear.V3, maxDist float32, cullBackFace bool) (Hit, bool) {
	box := h.boundingBox
	tmin, ok := box.RayIntersect(&start, &dir, maxDist)
	if !ok || tmin > maxDist {
		return Hit{}, false
	}
	var best Hit
	found := false
	h.walkTriangles(start, dir, maxDist, cullBackFace, func(hit Hit) bool {
		if !found || hit.Distance < best.Distance {
			best, found = hit, true
		}
		return true
	})
	return best, found
}

// walkTriangles visits every triangle of the level-0 grid, reporting
// hits to visit until visit returns false.
func (h *Heightfield) walkTriangles(start, dir linear.V3, maxDist float32, cullBackFace bool, visit func(Hit) bool) {
	edge := h.resolution
	ray := linear.Ray{Orig: start, Dir: dir}
	for z := 0; z < edge-1; z++ {
		wz0 := float32(z - h.clipMin[1])
		for x := 0; x < edge-1; x++ {
			wx0 := float32(x - h.clipMin[0])
			h00 := h.at(x, z)
			h10 := h.at(x+1, z)
			h01 := h.at(x, z+1)
			h11 := h.at(x+1, z+1)

			p00 := linear.V3{wx0, h00, wz0}
			p10 := linear.V3{wx0 + 1, h10, wz0}
			p01 := linear.V3{wx0, h01, wz0 + 1}
			p11 := linear.V3{wx0 + 1, h11, wz0 + 1}

			for _, tri := range [2][3]linear.V3{{p00, p10, p01}, {p11, p01, p10}} {
				v0, v1, v2 := tri[0], tri[1], tri[2]
				t, u, v, ok := ray.IntersectTriangle(&v0, &v1, &v2, cullBackFace)
				if !ok || t > maxDist {
					continue
				}
				var e1, e2, n linear.V3
				e1.Sub(&v1, &v0)
				e2.Sub(&v2, &v0)
				n.Cross(&e1, &e2)
				n.Norm(&n)
				var pos linear.V3
				var scaled linear.V3
				scaled.Scale(t, &dir)
				pos.Add(&start, &scaled)
				if !visit(Hit{Position: pos, Normal: n, U: u, V: v, Distance: t}) {
					return
				}
			}
		}
	}
}
