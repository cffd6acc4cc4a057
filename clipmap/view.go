package clipmap

import (
	"github.com/google/uuid"

	"github.com/vterrain/clipmap/config"
	"github.com/vterrain/clipmap/driver"
	"github.com/vterrain/clipmap/frame"
	"github.com/vterrain/clipmap/heightfield"
	"github.com/vterrain/clipmap/linear"
	"github.com/vterrain/clipmap/patchmesh"
)

// trim identifies which quadrant of a ring the finer, interior patch
// occupies; it follows the viewer as it moves within the ring.
type trim int

const (
	trimTopLeft trim = iota
	trimTopRight
	trimBottomLeft
	trimBottomRight
)

// lodInfo is the per-level state of one concentric ring.
type lodInfo struct {
	lod       int
	gridScale int32

	offset linear.IV2 // world-space, snapped ring origin

	// worldTexel is the unwrapped texel coordinate at which the ring's
	// corner (offset) is stored: the snapped viewer position divided
	// by gridScale. Unlike texOffset it never wraps, so a
	// plain subtraction against its previous value gives the exact
	// signed texel delta the viewer moved this update.
	worldTexel     linear.IV2
	prevWorldTexel linear.IV2

	// texOffset is worldTexel wrapped into [0, textureSize): the
	// toroidal address the shader adds to a patch's lattice
	// coordinates to sample this ring's texture array layer.
	texOffset linear.IV2

	trim       trim
	minH, maxH float32

	heightMap []float32 // textureSize*textureSize*2: (height, coarser height)
	normalMap []byte    // textureSize*textureSize*4: (nx, nz, coarser nx, coarser nz)

	forceUpdate bool
}

// View holds one camera's clipmap state: up to maxLods concentric
// rings of elevation/normal data, toroidally addressed, plus the
// per-frame patch-instance stream derived from them.
type View struct {
	id          uuid.UUID
	gpu         driver.GPU
	textureSize int
	catalog     *patchmesh.Catalog

	hf *heightfield.Heightfield

	lods                    [maxLods]lodInfo
	minViewLod, maxViewLod  int
	viewHeight              float32

	clipmapArray   driver.Image
	normalMapArray driver.Image

	instances []PatchInstance
	indirect  []IndirectDraw

	debugBoxes []linear.Box3
}

// New creates a View backed by catalog's patch meshes. The view's
// texture size is taken from catalog.TextureSize.
func New(gpu driver.GPU, catalog *patchmesh.Catalog) (*View, error) {
	ts := catalog.TextureSize

	clipArr, err := gpu.NewImage(driver.RG32f, driver.Dim3D{Width: ts, Height: ts, Depth: 1}, maxLods, 1, 1, driver.UShaderSample)
	if err != nil {
		return nil, err
	}
	normArr, err := gpu.NewImage(driver.RGBA8un, driver.Dim3D{Width: ts, Height: ts, Depth: 1}, maxLods, 1, 1, driver.UShaderSample)
	if err != nil {
		clipArr.Destroy()
		return nil, err
	}

	v := &View{
		id:             uuid.New(),
		gpu:            gpu,
		textureSize:    ts,
		catalog:        catalog,
		clipmapArray:   clipArr,
		normalMapArray: normArr,
	}
	for i := range v.lods {
		v.lods[i] = lodInfo{
			lod:         i,
			heightMap:   make([]float32, ts*ts*2),
			normalMap:   make([]byte, ts*ts*4),
			forceUpdate: true,
		}
	}
	log.Debug("created view", "id", v.id, "textureSize", ts)
	return v, nil
}

// SetHeightfield binds h as the elevation source. Rebinding to a
// different heightfield forces every ring to be rewritten on the next
// Update.
func (v *View) SetHeightfield(h *heightfield.Heightfield) {
	if v.hf == h {
		return
	}
	if v.hf != nil {
		v.hf.RemoveListener(v)
	}
	v.hf = h
	if h != nil {
		h.AddListener(v)
	}
	v.forceAll()
}

// OnModified implements heightfield.Listener: any change to the bound
// heightfield's samples invalidates every ring, since coarser levels
// mixed into finer rings via the cross-level lookup may have changed
// anywhere.
func (v *View) OnModified(h *heightfield.Heightfield) {
	v.forceAll()
}

func (v *View) forceAll() {
	for i := range v.lods {
		v.lods[i].forceUpdate = true
	}
}

// Instances returns the patch instances emitted by the most recent
// Update, grouped by IndirectDraw batch.
func (v *View) Instances() []PatchInstance { return v.instances }

// IndirectDraws returns the draw batches emitted by the most recent
// Update, one per non-empty patch kind.
func (v *View) IndirectDraws() []IndirectDraw { return v.indirect }

// Update recomputes the ring layout for the viewer at pos, streams any
// dirty texture regions to the GPU, culls and re-emits the patch
// instance stream against frustum, and uploads the instance/indirect
// buffers through alloc. cfg supplies the configured lod range and the
// memory-usage logging toggle.
func (v *View) Update(pos linear.V3, frustum linear.Frustum, alloc frame.Allocator, cfg config.Config) error {
	if v.hf == nil {
		v.instances = v.instances[:0]
		v.indirect = v.indirect[:0]
		return nil
	}
	box := v.hf.BoundingBox()
	if !frustum.IntersectsBox(&box) {
		v.instances = v.instances[:0]
		v.indirect = v.indirect[:0]
		return nil
	}

	v.makeView(pos, cfg.Terrain)

	cmd, err := v.gpu.NewCmdBuffer()
	if err != nil {
		return err
	}
	defer cmd.Destroy()
	if err := cmd.Begin(); err != nil {
		return err
	}
	cmd.BeginBlit(true)
	staging, err := v.streamTextures(cmd)
	if err != nil {
		return err
	}
	cmd.EndBlit()
	if err := cmd.End(); err != nil {
		return err
	}
	done := make(chan error, 1)
	v.gpu.Commit([]driver.CmdBuffer{cmd}, done)
	err = <-done
	for _, s := range staging {
		s.Destroy()
	}
	if err != nil {
		return err
	}

	v.selectPatches(frustum)
	v.debugBoxes = v.collectDebugBoxes()

	if err := v.upload(alloc); err != nil {
		return err
	}

	if cfg.Terrain.ShowMemoryUsage {
		v.logMemoryUsage()
	}
	return nil
}

func (v *View) upload(alloc frame.Allocator) error {
	if len(v.instances) == 0 {
		return nil
	}
	buf := packInstances(v.instances)
	if _, err := alloc.AllocateVertex(int64(len(buf)), buf); err != nil {
		return err
	}
	ind := packIndirect(v.indirect)
	if _, err := alloc.AllocateIndirect(int64(len(ind)), ind); err != nil {
		return err
	}
	return nil
}

func (v *View) logMemoryUsage() {
	ts := int64(v.textureSize)
	perLevel := ts * ts * (2*4 + 4)
	total := perLevel * int64(v.maxViewLod-v.minViewLod+1)
	log.Info("clipmap memory", "view", v.id, "bytesPerLevel", perLevel, "totalBytes", total,
		"instances", len(v.instances), "instanceBytes", len(packInstances(v.instances)),
		"draws", len(v.indirect), "indirectBytes", len(packIndirect(v.indirect)))
}

func packInstances(in []PatchInstance) []byte {
	const stride = 4*2 + 4*2 + 4*2 + 4*4
	out := make([]byte, len(in)*stride)
	for i, p := range in {
		o := i * stride
		putI32(out[o:], p.VertexScale[0])
		putI32(out[o+4:], p.VertexScale[1])
		putI32(out[o+8:], p.VertexTranslate[0])
		putI32(out[o+12:], p.VertexTranslate[1])
		putI32(out[o+16:], p.TexcoordOffset[0])
		putI32(out[o+20:], p.TexcoordOffset[1])
		for c := 0; c < 4; c++ {
			putF32(out[o+24+c*4:], p.QuadColor[c])
		}
	}
	return out
}

func packIndirect(in []IndirectDraw) []byte {
	const stride = 4 * 5
	out := make([]byte, len(in)*stride)
	for i, d := range in {
		o := i * stride
		putI32(out[o:], int32(d.IndexCountPerInstance))
		putI32(out[o+4:], int32(d.InstanceCount))
		putI32(out[o+8:], int32(d.StartIndex))
		putI32(out[o+12:], int32(d.BaseVertex))
		putI32(out[o+16:], int32(d.StartInstanceLocation))
	}
	return out
}

func putI32(b []byte, v int32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func putF32(b []byte, v float32) {
	bits := f32bits(v)
	b[0] = byte(bits)
	b[1] = byte(bits >> 8)
	b[2] = byte(bits >> 16)
	b[3] = byte(bits >> 24)
}
