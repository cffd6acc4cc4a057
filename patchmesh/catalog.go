// Package patchmesh builds the terrain core's fixed vocabulary of
// nine triangle-strip mesh patches once, at startup, and exposes them
// as a single immutable GPU-resident vertex/index buffer pair.
package patchmesh

import (
	"github.com/vterrain/clipmap/driver"
	"github.com/vterrain/clipmap/internal/bitm"
	"github.com/vterrain/clipmap/tlog"
)

var log = tlog.New("patchmesh")

// resetIndex is the triangle-strip reset sentinel.
const resetIndex = 0xffff

// Vertex is a patch-local lattice position.
type Vertex struct {
	X, Y int16
}

// Kind identifies one of the catalog's nine patches.
type Kind int

const (
	Block Kind = iota
	HGap
	VGap
	InteriorTL
	InteriorTR
	InteriorBL
	InteriorBR
	InteriorFinest
	Crack
	kindCount
)

func (k Kind) String() string {
	return [kindCount]string{
		"block", "hgap", "vgap",
		"interior-tl", "interior-tr", "interior-bl", "interior-br",
		"interior-finest", "crack",
	}[k]
}

// Patch addresses one mesh within the catalog's shared buffers.
type Patch struct {
	BaseVertex int
	StartIndex int
	IndexCount int
}

// Catalog is the immutable set of nine patches sharing one vertex
// buffer and one 16-bit index buffer.
type Catalog struct {
	TextureSize    int
	BlockWidth     int
	GapWidth       int
	LodGridSize    int
	HalfGridSize   int
	CrackTriangles int

	Vertices []Vertex
	Indices  []uint16
	Patches  [kindCount]Patch

	VertexBuf driver.Buffer
	IndexBuf  driver.Buffer
}

// gridStrip builds a numQuadsX x numQuadsY grid of quads as
// numQuadsY horizontal triangle strips separated by the reset index.
func gridStrip(numQuadsX, numQuadsY int) ([]Vertex, []uint16) {
	vertsX := numQuadsX + 1
	vertsY := numQuadsY + 1

	verts := make([]Vertex, vertsX*vertsY)
	for y := 0; y < vertsY; y++ {
		for x := 0; x < vertsX; x++ {
			verts[y*vertsX+x] = Vertex{int16(x), int16(y)}
		}
	}

	var indices []uint16
	for y := 0; y < numQuadsY; y++ {
		for x := 0; x < numQuadsX+1; x++ {
			indices = append(indices, uint16(x+y*vertsX))
			indices = append(indices, uint16(x+(y+1)*vertsX))
		}
		indices = append(indices, resetIndex)
	}
	return verts, indices
}

// interiorL builds the four quadrant-keyed L-shapes, returning them in
// Kind order InteriorTL, InteriorTR, InteriorBL, InteriorBR. All four
// share vertex count and topology up to reflection; they are built
// together because later rows reference indices accumulated from the
// side strip shared by the pair.
func interiorL(blockWidth, gapWidth int) (tl, tr, bl, br []Vertex, tli, tri, bli, bri []uint16) {
	span := blockWidth*2 + gapWidth

	i := 0
	for q := 0; q <= span; q++ {
		tl = append(tl, Vertex{int16(q), 0}, Vertex{int16(q), 1})
		tr = append(tr, Vertex{int16(q), 0}, Vertex{int16(q), 1})
		bl = append(bl, Vertex{int16(q), int16(span - 1)}, Vertex{int16(q), int16(span)})
		br = append(br, Vertex{int16(q), int16(span - 1)}, Vertex{int16(q), int16(span)})

		tli = append(tli, uint16(i), uint16(i+1))
		tri = append(tri, uint16(i), uint16(i+1))
		bli = append(bli, uint16(i), uint16(i+1))
		bri = append(bri, uint16(i), uint16(i+1))
		i += 2
	}
	tli = append(tli, resetIndex)
	tri = append(tri, resetIndex)
	bli = append(bli, resetIndex)
	bri = append(bri, resetIndex)

	prevATL, prevBTL := 1, 1+2
	prevATR, prevBTR := (span+1)*2-3, (span+1)*2-3+2

	var q int
	for q = 0; q < span-1; q++ {
		tli = append(tli, uint16(prevATL), uint16(i), uint16(prevBTL), uint16(i+1))
		tri = append(tri, uint16(prevATR), uint16(i), uint16(prevBTR), uint16(i+1))
		prevATL, prevBTL = i, i+1
		prevATR, prevBTR = i, i+1

		if q < span-2 {
			tli = append(tli, resetIndex)
			tri = append(tri, resetIndex)

			bli = append(bli, uint16(i), uint16(i+2), uint16(i+1), uint16(i+3), resetIndex)
			bri = append(bri, uint16(i), uint16(i+2), uint16(i+1), uint16(i+3), resetIndex)
			i += 2
		}

		tl = append(tl, Vertex{0, int16(q + 2)}, Vertex{1, int16(q + 2)})
		tr = append(tr, Vertex{int16(span - 1), int16(q + 2)}, Vertex{int16(span), int16(q + 2)})
		bl = append(bl, Vertex{0, int16(q)}, Vertex{1, int16(q)})
		br = append(br, Vertex{int16(span - 1), int16(q)}, Vertex{int16(span), int16(q)})
	}

	bli = append(bli, uint16(i), 0, uint16(i+1), 2)
	bri = append(bri, uint16(i), uint16((span+1)*2-4), uint16(i+1), uint16((span+1)*2-2))

	for k := range tl {
		tl[k].X += int16(blockWidth)
		tl[k].Y += int16(blockWidth)
	}
	for k := range tr {
		tr[k].X += int16(blockWidth)
		tr[k].Y += int16(blockWidth)
	}
	for k := range bl {
		bl[k].X += int16(blockWidth)
		bl[k].Y += int16(blockWidth)
	}
	for k := range br {
		br[k].X += int16(blockWidth)
		br[k].Y += int16(blockWidth)
	}
	return
}

// interiorFinestL builds the larger L used only at the finest lod to
// close the full square: one long horizontal strip followed by one
// long vertical strip stitched with shared vertices at the elbow.
func interiorFinestL(blockWidth int) ([]Vertex, []uint16) {
	var verts []Vertex
	var indices []uint16

	i := 0
	y := blockWidth * 2
	for x := 0; x < blockWidth*2+2; x++ {
		indices = append(indices, uint16(i), uint16(i+1))
		i += 2
		verts = append(verts, Vertex{int16(x), int16(y)}, Vertex{int16(x), int16(y + 1)})
	}
	indices = append(indices, resetIndex)

	x := blockWidth * 2
	for y = 0; y < blockWidth*2; y++ {
		indices = append(indices, uint16(i), uint16(i+2), uint16(i+1), uint16(i+3), resetIndex)
		verts = append(verts, Vertex{int16(x), int16(y)}, Vertex{int16(x + 1), int16(y)})
		i += 2
	}
	verts = append(verts, Vertex{int16(x), int16(y)}, Vertex{int16(x + 1), int16(y)})

	return verts, indices
}

// crackStrip builds the one-dimensional strip of crackTriangles
// triangles per side, repeated for the four sides of a ring, then
// reverses both vertices and indices so winding points outward.
func crackStrip(crackTriangles int) ([]Vertex, []uint16) {
	var verts []Vertex
	var indices []uint16

	j := 0
	for i := 0; i < crackTriangles; i++ {
		indices = append(indices, uint16(i*2), uint16(i*2), uint16(i*2+1), uint16(i*2+2))
		verts = append(verts, Vertex{int16(i * 2), int16(j)}, Vertex{int16(i*2 + 1), int16(j)})
	}

	j = crackTriangles * 2
	vertOfs := len(verts)
	for i := 0; i < crackTriangles; i++ {
		indices = append(indices, uint16(vertOfs+i*2), uint16(vertOfs+i*2), uint16(vertOfs+i*2+1), uint16(vertOfs+i*2+2))
		verts = append(verts, Vertex{int16(j), int16(i * 2)}, Vertex{int16(j), int16(i*2 + 1)})
	}

	j = crackTriangles * 2
	vertOfs = len(verts)
	for i := 0; i < crackTriangles; i++ {
		indices = append(indices, uint16(vertOfs+i*2), uint16(vertOfs+i*2), uint16(vertOfs+i*2+1), uint16(vertOfs+i*2+2))
		verts = append(verts, Vertex{int16(j - i*2), int16(j)}, Vertex{int16(j - i*2 - 1), int16(j)})
	}

	j = crackTriangles * 2
	vertOfs = len(verts)
	for i := 0; i < crackTriangles; i++ {
		indices = append(indices, uint16(vertOfs+i*2), uint16(vertOfs+i*2), uint16(vertOfs+i*2+1), uint16(vertOfs+i*2+2))
		verts = append(verts, Vertex{0, int16(j - i*2)}, Vertex{0, int16(j - i*2 - 1)})
	}
	verts = append(verts, Vertex{0, 0})

	reverseVerts(verts)
	reverseIndices(indices)
	return verts, indices
}

func reverseVerts(v []Vertex) {
	for i, j := 0, len(v)-1; i < j; i, j = i+1, j-1 {
		v[i], v[j] = v[j], v[i]
	}
}

func reverseIndices(v []uint16) {
	for i, j := 0, len(v)-1; i < j; i, j = i+1, j-1 {
		v[i], v[j] = v[j], v[i]
	}
}

// Build constructs the nine canonical patches for the given texture
// size and uploads the shared vertex/index buffers through gpu. T
// must be a power of two no smaller than 16.
func Build(gpu driver.GPU, textureSize int) (*Catalog, error) {
	blockWidth := textureSize/4 - 1
	gapWidth := 2
	lodGridSize := textureSize - 2
	halfGridSize := lodGridSize / 2
	crackTriangles := (blockWidth*4 + gapWidth) / 2

	blockV, blockI := gridStrip(blockWidth, blockWidth)
	hgapV, hgapI := gridStrip(blockWidth, gapWidth)
	vgapV, vgapI := gridStrip(gapWidth, blockWidth)
	tlV, trV, blV, brV, tlI, trI, blI, brI := interiorL(blockWidth, gapWidth)
	finestV, finestI := interiorFinestL(blockWidth)
	crackV, crackI := crackStrip(crackTriangles)

	c := &Catalog{
		TextureSize:    textureSize,
		BlockWidth:     blockWidth,
		GapWidth:       gapWidth,
		LodGridSize:    lodGridSize,
		HalfGridSize:   halfGridSize,
		CrackTriangles: crackTriangles,
	}

	// vspan/ispan is a growable bitmap tracking the extent of the
	// shared vertex/index buffers as each patch is appended; the same
	// span-allocation idiom the engine uses for its general mesh
	// storage. Each patch reserves a 32-aligned bit range, and its
	// vertex/index slices are padded out to match, so a patch's
	// BaseVertex/StartIndex always come directly from the bitmap
	// rather than from the buffers' independently tracked lengths.
	// This keeps the layout ready for a patch to be regrown in place
	// later without having to shift every patch after it.
	var vspan, ispan bitm.Bitm[uint32]

	add := func(k Kind, verts []Vertex, indices []uint16) {
		vn := (len(verts) + 31) / 32 * 32
		in := (len(indices) + 31) / 32 * 32
		vbase := vspan.Grow((len(verts) + 31) / 32)
		ibase := ispan.Grow((len(indices) + 31) / 32)
		c.Patches[k] = Patch{
			BaseVertex: vbase,
			StartIndex: ibase,
			IndexCount: len(indices),
		}
		c.Vertices = append(c.Vertices, verts...)
		c.Vertices = append(c.Vertices, make([]Vertex, vn-len(verts))...)
		c.Indices = append(c.Indices, indices...)
		c.Indices = append(c.Indices, make([]uint16, in-len(indices))...)
	}

	add(Block, blockV, blockI)
	add(HGap, hgapV, hgapI)
	add(VGap, vgapV, vgapI)
	add(InteriorTL, tlV, tlI)
	add(InteriorTR, trV, trI)
	add(InteriorBL, blV, blI)
	add(InteriorBR, brV, brI)
	add(InteriorFinest, finestV, finestI)
	add(Crack, crackV, crackI)

	log.Debug("built patch catalog", "vertices", len(c.Vertices), "indices", len(c.Indices))

	vbuf, err := gpu.NewBuffer(int64(len(c.Vertices))*4, true, driver.UVertexData)
	if err != nil {
		return nil, err
	}
	copyVertices(vbuf.Bytes(), c.Vertices)

	ibuf, err := gpu.NewBuffer(int64(len(c.Indices))*2, true, driver.UIndexData)
	if err != nil {
		vbuf.Destroy()
		return nil, err
	}
	copyIndices(ibuf.Bytes(), c.Indices)

	c.VertexBuf = vbuf
	c.IndexBuf = ibuf
	return c, nil
}

func copyVertices(dst []byte, verts []Vertex) {
	for i, v := range verts {
		o := i * 4
		dst[o] = byte(v.X)
		dst[o+1] = byte(v.X >> 8)
		dst[o+2] = byte(v.Y)
		dst[o+3] = byte(v.Y >> 8)
	}
}

func copyIndices(dst []byte, indices []uint16) {
	for i, x := range indices {
		o := i * 2
		dst[o] = byte(x)
		dst[o+1] = byte(x >> 8)
	}
}
