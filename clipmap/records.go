// Package clipmap maintains, per camera, a set of concentric
// toroidally-addressed texture rings of decreasing resolution centered
// on the viewer, streams their elevation/normal data incrementally as
// the viewer moves, and emits the draw-instance stream the host
// renderer needs to render the current frame.
package clipmap

import "github.com/vterrain/clipmap/tlog"

var log = tlog.New("clipmap")

// maxLods bounds the number of concentric rings a View may hold.
const maxLods = 10

// PatchInstance is one instance of a patch-mesh kind, carrying the
// per-instance transform the vertex shader applies to the patch's
// unit lattice coordinates.
type PatchInstance struct {
	// VertexScale holds (gridScale, lodIndex): gridScale is the
	// world-space spacing between adjacent lattice vertices at this
	// instance's lod, and lodIndex selects the clipmap texture array
	// layer to sample.
	VertexScale [2]int32
	// VertexTranslate is the world-space XZ origin of the patch.
	VertexTranslate [2]int32
	// TexcoordOffset is the toroidal texture-space origin to add to
	// the patch's lattice coordinates before sampling the clipmap
	// array.
	TexcoordOffset [2]int32
	// QuadColor is a fixed debug tint per patch kind; the host may
	// ignore it outside of debug rendering.
	QuadColor [4]float32
}

// IndirectDraw describes one indexed, instanced draw call over a
// contiguous run of a single patch kind's instances.
type IndirectDraw struct {
	IndexCountPerInstance int
	InstanceCount         int
	StartIndex            int
	BaseVertex            int
	StartInstanceLocation int
}
