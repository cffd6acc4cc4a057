package patchmesh

import (
	"testing"

	"github.com/vterrain/clipmap/driver"
)

// fakeBuffer is a minimal in-memory driver.Buffer for testing Build
// without a real driver.GPU.
type fakeBuffer struct {
	data      []byte
	destroyed bool
}

func (b *fakeBuffer) Destroy()        { b.destroyed = true }
func (b *fakeBuffer) Visible() bool   { return true }
func (b *fakeBuffer) Bytes() []byte   { return b.data }
func (b *fakeBuffer) Cap() int64      { return int64(len(b.data)) }

type fakeGPU struct{}

func (fakeGPU) Driver() driver.Driver { return nil }
func (fakeGPU) Commit(cb []driver.CmdBuffer, ch chan<- error) {
	ch <- nil
}
func (fakeGPU) NewCmdBuffer() (driver.CmdBuffer, error) { return nil, nil }
func (fakeGPU) NewBuffer(size int64, visible bool, usg driver.Usage) (driver.Buffer, error) {
	return &fakeBuffer{data: make([]byte, size)}, nil
}
func (fakeGPU) NewImage(pf driver.PixelFmt, size driver.Dim3D, layers, levels, samples int, usg driver.Usage) (driver.Image, error) {
	return nil, nil
}
func (fakeGPU) Limits() driver.Limits { return driver.Limits{MaxImage2D: 16384, MaxLayers: 16} }

func TestGridStripTopology(t *testing.T) {
	verts, indices := gridStrip(4, 4)
	if len(verts) != 5*5 {
		t.Fatalf("len(verts) = %d, want 25", len(verts))
	}
	// One reset index terminates each of the 4 strip rows.
	resets := 0
	for _, idx := range indices {
		if idx == resetIndex {
			resets++
		}
	}
	if resets != 4 {
		t.Fatalf("resets = %d, want 4", resets)
	}
}

func TestBuildProducesNinePatches(t *testing.T) {
	cat, err := Build(fakeGPU{}, 64)
	if err != nil {
		t.Fatal(err)
	}
	for k := Block; k <= Crack; k++ {
		p := cat.Patches[k]
		if p.IndexCount == 0 {
			t.Errorf("patch %s has zero indices", k)
		}
	}
	if len(cat.Vertices) == 0 || len(cat.Indices) == 0 {
		t.Fatal("catalog buffers are empty")
	}
}

func TestBuildDerivedConstants(t *testing.T) {
	cat, err := Build(fakeGPU{}, 64)
	if err != nil {
		t.Fatal(err)
	}
	if cat.BlockWidth != 64/4-1 {
		t.Errorf("BlockWidth = %d, want %d", cat.BlockWidth, 64/4-1)
	}
	if cat.GapWidth != 2 {
		t.Errorf("GapWidth = %d, want 2", cat.GapWidth)
	}
}

func TestKindStringCoversAllValues(t *testing.T) {
	for k := Block; k <= Crack; k++ {
		if k.String() == "" {
			t.Errorf("Kind(%d).String() is empty", int(k))
		}
	}
}
