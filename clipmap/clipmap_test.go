package clipmap

import (
	"testing"

	"github.com/vterrain/clipmap/config"
	"github.com/vterrain/clipmap/driver"
	"github.com/vterrain/clipmap/frame"
	"github.com/vterrain/clipmap/heightfield"
	"github.com/vterrain/clipmap/linear"
	"github.com/vterrain/clipmap/patchmesh"
)

type fakeBuffer struct {
	data []byte
}

func (b *fakeBuffer) Destroy()      {}
func (b *fakeBuffer) Visible() bool { return true }
func (b *fakeBuffer) Bytes() []byte { return b.data }
func (b *fakeBuffer) Cap() int64    { return int64(len(b.data)) }

type fakeImage struct{}

func (fakeImage) Destroy() {}
func (fakeImage) NewView(typ driver.ViewType, layer, layers, level, levels int) (driver.ImageView, error) {
	return nil, nil
}

type fakeCmd struct{}

func (fakeCmd) Destroy()                                {}
func (fakeCmd) Begin() error                             { return nil }
func (fakeCmd) BeginBlit(wait bool)                      {}
func (fakeCmd) EndBlit()                                 {}
func (fakeCmd) CopyBuffer(param *driver.BufferCopy)      {}
func (fakeCmd) CopyImage(param *driver.ImageCopy)        {}
func (fakeCmd) CopyBufToImg(param *driver.BufImgCopy)    {}
func (fakeCmd) CopyImgToBuf(param *driver.BufImgCopy)    {}
func (fakeCmd) Fill(buf driver.Buffer, off int64, value byte, size int64) {}
func (fakeCmd) Barrier(b []driver.Barrier)               {}
func (fakeCmd) Transition(t []driver.Transition)         {}
func (fakeCmd) End() error                               { return nil }
func (fakeCmd) Reset() error                             { return nil }

type fakeGPU struct{}

func (fakeGPU) Driver() driver.Driver { return nil }
func (fakeGPU) Commit(cb []driver.CmdBuffer, ch chan<- error) {
	ch <- nil
}
func (fakeGPU) NewCmdBuffer() (driver.CmdBuffer, error) { return fakeCmd{}, nil }
func (fakeGPU) NewBuffer(size int64, visible bool, usg driver.Usage) (driver.Buffer, error) {
	return &fakeBuffer{data: make([]byte, size)}, nil
}
func (fakeGPU) NewImage(pf driver.PixelFmt, size driver.Dim3D, layers, levels, samples int, usg driver.Usage) (driver.Image, error) {
	return fakeImage{}, nil
}
func (fakeGPU) Limits() driver.Limits { return driver.Limits{MaxImage2D: 16384, MaxLayers: 16} }

// acceptAllFrustum is the zero-value Frustum: every plane has a zero
// normal and zero distance, so IntersectsBox always reports true. It
// stands in for "camera sees everything" in tests that don't exercise
// culling itself.
var acceptAllFrustum linear.Frustum

func flatHeightfield(t *testing.T, resolution int, height float32) *heightfield.Heightfield {
	t.Helper()
	s := make([]float32, resolution*resolution)
	for i := range s {
		s[i] = height
	}
	h, err := heightfield.Load(s, resolution)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func newTestView(t *testing.T) (*View, *heightfield.Heightfield) {
	t.Helper()
	cat, err := patchmesh.Build(fakeGPU{}, 64)
	if err != nil {
		t.Fatal(err)
	}
	v, err := New(fakeGPU{}, cat)
	if err != nil {
		t.Fatal(err)
	}
	h := flatHeightfield(t, 17, 0)
	v.SetHeightfield(h)
	return v, h
}

func TestUpdateEmitsInstances(t *testing.T) {
	v, _ := newTestView(t)
	ring, err := frame.NewRing(fakeGPU{}, 1<<20)
	if err != nil {
		t.Fatal(err)
	}

	err = v.Update(linear.V3{0, 5, 0}, acceptAllFrustum, ring, config.Default())
	if err != nil {
		t.Fatal(err)
	}
	if len(v.Instances()) == 0 {
		t.Fatal("expected at least one patch instance")
	}
	if len(v.IndirectDraws()) == 0 {
		t.Fatal("expected at least one indirect draw batch")
	}
}

func TestUpdateOutsideFrustumEmitsNothing(t *testing.T) {
	v, _ := newTestView(t)
	ring, err := frame.NewRing(fakeGPU{}, 1<<20)
	if err != nil {
		t.Fatal(err)
	}

	// A frustum whose every plane rejects everything (normal (0,1,0),
	// d very negative) never intersects the terrain's bounding box.
	reject := linear.Frustum{}
	for i := range reject.Planes {
		reject.Planes[i] = linear.Plane{Normal: linear.V3{0, 1, 0}, D: -1e9}
	}

	if err := v.Update(linear.V3{0, 5, 0}, reject, ring, config.Default()); err != nil {
		t.Fatal(err)
	}
	if len(v.Instances()) != 0 {
		t.Fatalf("got %d instances, want 0 when frustum rejects the whole terrain", len(v.Instances()))
	}
}

func TestUpdateWithoutHeightfieldIsANoop(t *testing.T) {
	cat, err := patchmesh.Build(fakeGPU{}, 64)
	if err != nil {
		t.Fatal(err)
	}
	v, err := New(fakeGPU{}, cat)
	if err != nil {
		t.Fatal(err)
	}
	ring, err := frame.NewRing(fakeGPU{}, 1<<20)
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Update(linear.V3{0, 5, 0}, acceptAllFrustum, ring, config.Default()); err != nil {
		t.Fatal(err)
	}
	if len(v.Instances()) != 0 {
		t.Fatal("expected no instances without a bound heightfield")
	}
}

func TestMakeViewCapsLodSpan(t *testing.T) {
	v, _ := newTestView(t)
	cfg := config.Terrain{MinLod: 0, MaxLod: 9}
	// A viewer at terrain height never triggers the elide-finest-ring
	// rule, so the full configured span reaches the cap unmodified.
	v.makeView(linear.V3{0, 0, 0}, cfg)
	if got := v.maxViewLod - v.minViewLod; got != 5 {
		t.Fatalf("maxViewLod-minViewLod = %d, want exactly 5", got)
	}
}

func TestMakeViewElidesFinestRingWhenHigh(t *testing.T) {
	v, _ := newTestView(t)
	cfg := config.Terrain{MinLod: 0, MaxLod: 4}
	v.makeView(linear.V3{0, 100000, 0}, cfg)
	if v.minViewLod == 0 {
		t.Fatal("expected the finest ring to be elided for a very high viewer")
	}
}

func TestOnModifiedForcesFullRewrite(t *testing.T) {
	v, h := newTestView(t)
	for i := range v.lods {
		v.lods[i].forceUpdate = false
	}
	h.Reload(make([]float32, h.Resolution()*h.Resolution()))
	for i, l := range v.lods {
		if !l.forceUpdate {
			t.Fatalf("lod %d: forceUpdate = false after heightfield reload", i)
		}
	}
}

// rampHeightfield builds a heightfield whose elevation rises linearly
// along x and is constant along z, so a sampled texel's height pins
// down exactly which world x it was reconstructed from.
func rampHeightfield(t *testing.T, resolution int) *heightfield.Heightfield {
	t.Helper()
	s := make([]float32, resolution*resolution)
	for i := range s {
		s[i] = float32(i % resolution)
	}
	h, err := heightfield.Load(s, resolution)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

// TestUpdateRectWorldPositionMatchesOffset exercises Testable Property
// #2: a ring's stored elevation at its unwrapped origin texel must
// equal the heightfield sampled at that ring's reconstructed
// world-space corner, (snapPos - halfGridSize*gridScale), not at the
// bare snapped center. A flat heightfield can't catch a center-vs-
// corner mixup since every texel reads the same elevation regardless
// of which world x/z it names; rampHeightfield makes elevation a
// direct function of world x so the two disagree unless the offset is
// exactly right.
func TestUpdateRectWorldPositionMatchesOffset(t *testing.T) {
	cat, err := patchmesh.Build(fakeGPU{}, 64)
	if err != nil {
		t.Fatal(err)
	}
	v, err := New(fakeGPU{}, cat)
	if err != nil {
		t.Fatal(err)
	}
	h := rampHeightfield(t, 17)
	v.SetHeightfield(h)

	ring, err := frame.NewRing(fakeGPU{}, 1<<20)
	if err != nil {
		t.Fatal(err)
	}

	// MinLod == MaxLod pins the view to a single lod 0 ring and never
	// triggers the elide-finest-ring rule (which only fires when
	// minLod < maxLod), isolating computeLodOffset's corner-shift math.
	cfg := config.Config{Terrain: config.Terrain{MinLod: 0, MaxLod: 0}}
	pos := linear.V3{0, 5, 0}
	if err := v.Update(pos, acceptAllFrustum, ring, cfg); err != nil {
		t.Fatal(err)
	}

	const gridScale = int32(1)
	const snapSize = gridScale * 2
	wantHalf := halfGridSize(v.textureSize) * gridScale
	wantSnapX := floorMultiple(pos[0], snapSize) + gridScale
	wantSnapZ := floorMultiple(pos[2], snapSize) + gridScale
	wantOffset := linear.IV2{int(wantSnapX - wantHalf), int(wantSnapZ - wantHalf)}

	info := &v.lods[0]
	if info.offset != wantOffset {
		t.Fatalf("lod 0 offset = %v, want %v (snapPos - halfGridSize*gridScale)", info.offset, wantOffset)
	}

	ts := v.textureSize
	wx := wrap(int32(info.worldTexel[0]), int32(ts))
	wz := wrap(int32(info.worldTexel[1]), int32(ts))
	got := info.heightMap[(int(wz)*ts+int(wx))*2]
	want := h.SampleLod(float32(info.offset[0]), float32(info.offset[1]), 0)
	if got != want {
		t.Fatalf("corner texel elevation = %v, want %v (heightfield sampled at the reconstructed world corner)", got, want)
	}
}

func TestDebugLinesFollowActiveRings(t *testing.T) {
	v, _ := newTestView(t)
	ring, err := frame.NewRing(fakeGPU{}, 1<<20)
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Update(linear.V3{0, 5, 0}, acceptAllFrustum, ring, config.Default()); err != nil {
		t.Fatal(err)
	}
	lines := v.DebugLines(acceptAllFrustum)
	wantLines := 12 * (v.maxViewLod - v.minViewLod + 1)
	if len(lines) != wantLines {
		t.Fatalf("len(DebugLines()) = %d, want %d (12 edges per active ring)", len(lines), wantLines)
	}
}
