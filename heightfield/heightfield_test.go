package heightfield

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/vterrain/clipmap/linear"
	"github.com/vterrain/clipmap/terrain"
)

// flatSamples builds a resolution x resolution grid where every
// sample equals height, i.e. a flat plane.
func flatSamples(resolution int, height float32) []float32 {
	s := make([]float32, resolution*resolution)
	for i := range s {
		s[i] = height
	}
	return s
}

// rampSamples builds a resolution x resolution grid with height
// increasing linearly along x.
func rampSamples(resolution int) []float32 {
	s := make([]float32, resolution*resolution)
	for z := 0; z < resolution; z++ {
		for x := 0; x < resolution; x++ {
			s[z*resolution+x] = float32(x)
		}
	}
	return s
}

func TestLoadRejectsBadResolution(t *testing.T) {
	cases := []int{0, 1, 4, 8, 6, 10}
	for _, r := range cases {
		_, err := Load(flatSamples(maxI(r, 0), 0), r)
		if !errors.Is(err, terrain.New(terrain.BadResolution, "")) {
			t.Errorf("resolution %d: got err %v, want BadResolution", r, err)
		}
	}
}

func maxI(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func TestLoadBuildsPyramid(t *testing.T) {
	// 9 = 2^3 + 1, so the pyramid has 4 levels with edges 9, 5, 3
	// and 2.
	h, err := Load(flatSamples(9, 3), 9)
	if err != nil {
		t.Fatal(err)
	}
	if h.LodCount() != 4 {
		t.Fatalf("LodCount() = %d, want 4", h.LodCount())
	}
	if h.MinHeight() != 3 || h.MaxHeight() != 3 {
		t.Fatalf("min/max = %v/%v, want 3/3", h.MinHeight(), h.MaxHeight())
	}
}

func TestDownsamplePreservesConstantPlane(t *testing.T) {
	h, err := Load(flatSamples(17, 5), 17)
	if err != nil {
		t.Fatal(err)
	}
	for lod := 0; lod < h.LodCount(); lod++ {
		for _, v := range h.samples[lod] {
			if v != 5 {
				t.Fatalf("lod %d: sample = %v, want 5", lod, v)
			}
		}
	}
}

func TestSampleHeightBilinearOutsideBoxIsZero(t *testing.T) {
	h, err := Load(flatSamples(5, 9), 5)
	if err != nil {
		t.Fatal(err)
	}
	if got := h.SampleHeightBilinear(1000, 1000); got != 0 {
		t.Fatalf("outside sample = %v, want 0", got)
	}
}

func TestSampleHeightBilinearOnFlatPlane(t *testing.T) {
	h, err := Load(flatSamples(9, 4), 9)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range [][2]float32{{0, 0}, {1.5, -2.25}, {-3, 3}} {
		if got := h.SampleHeightBilinear(p[0], p[1]); got != 4 {
			t.Errorf("SampleHeightBilinear(%v) = %v, want 4", p, got)
		}
	}
}

func TestSampleHeightBilinearOnRamp(t *testing.T) {
	h, err := Load(rampSamples(9), 9)
	if err != nil {
		t.Fatal(err)
	}
	// At the grid center (world (0,0) maps to sample (4,4) = height 4).
	if got := h.SampleHeightBilinear(0, 0); got != 4 {
		t.Fatalf("center height = %v, want 4", got)
	}
}

func TestTriangleAtNormalIsVertical(t *testing.T) {
	h, err := Load(flatSamples(9, 0), 9)
	if err != nil {
		t.Fatal(err)
	}
	tri, ok := h.TriangleAt(0, 0)
	if !ok {
		t.Fatal("expected a triangle at the origin")
	}
	if tri.Normal[0] > 1e-6 || tri.Normal[2] > 1e-6 {
		t.Fatalf("normal = %v, want zero XZ component for a flat plane", tri.Normal)
	}
	if tri.Normal[1] > -0.99 && tri.Normal[1] < 0.99 {
		t.Fatalf("normal = %v, want |Y| ~ 1 for a flat plane", tri.Normal)
	}
}

func TestReloadNotifiesListeners(t *testing.T) {
	h, err := Load(flatSamples(5, 0), 5)
	if err != nil {
		t.Fatal(err)
	}
	notified := 0
	l := listenerFunc(func(*Heightfield) { notified++ })
	h.AddListener(&l)

	if err := h.Reload(flatSamples(5, 10)); err != nil {
		t.Fatal(err)
	}
	if notified != 1 {
		t.Fatalf("notified = %d, want 1", notified)
	}
	if h.MaxHeight() != 10 {
		t.Fatalf("MaxHeight() = %v, want 10 after reload", h.MaxHeight())
	}

	h.RemoveListener(&l)
	if err := h.Reload(flatSamples(5, 20)); err != nil {
		t.Fatal(err)
	}
	if notified != 1 {
		t.Fatalf("notified = %d after removal, want still 1", notified)
	}
}

func TestReloadRejectsMismatchedSampleCount(t *testing.T) {
	h, err := Load(flatSamples(5, 0), 5)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Reload(flatSamples(9, 0)); !errors.Is(err, terrain.New(terrain.BadResolution, "")) {
		t.Fatalf("got %v, want BadResolution", err)
	}
}

func TestLoadAssetRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	samples := rampSamples(5)
	binary.Write(&buf, binary.LittleEndian, uint32(5))
	binary.Write(&buf, binary.LittleEndian, samples)

	h, err := LoadAsset(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if h.Resolution() != 5 {
		t.Fatalf("Resolution() = %d, want 5", h.Resolution())
	}
	for i, v := range h.Level0() {
		if v != samples[i] {
			t.Fatalf("Level0()[%d] = %v, want %v", i, v, samples[i])
		}
	}
}

func TestLoadAssetTruncated(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(5))
	buf.Write([]byte{1, 2, 3}) // far short of 25 float32s

	_, err := LoadAsset(&buf)
	if !errors.Is(err, terrain.New(terrain.IoTruncated, "")) {
		t.Fatalf("got %v, want IoTruncated", err)
	}
}

func TestRayCastClosestKeepsMinimum(t *testing.T) {
	h, err := Load(flatSamples(9, 0), 9)
	if err != nil {
		t.Fatal(err)
	}
	start := linear.V3{0, 10, 0}
	dir := linear.V3{0, -1, 0}
	hit, ok := h.RayCastClosest(start, dir, 100, false)
	if !ok {
		t.Fatal("expected a hit straight down onto a flat plane")
	}
	if hit.Distance < 9.99 || hit.Distance > 10.01 {
		t.Fatalf("Distance = %v, want ~10", hit.Distance)
	}
}

func TestRayCastMisses(t *testing.T) {
	h, err := Load(flatSamples(9, 0), 9)
	if err != nil {
		t.Fatal(err)
	}
	start := linear.V3{0, 10, 0}
	dir := linear.V3{0, 1, 0} // pointing away from the plane
	if hits := h.RayCast(start, dir, 100, false); len(hits) != 0 {
		t.Fatalf("got %d hits, want 0", len(hits))
	}
}

type listenerFunc func(*Heightfield)

// OnModified has a pointer receiver so listeners are registered as
// pointers, which RemoveListener can compare (func values cannot be).
func (f *listenerFunc) OnModified(h *Heightfield) { (*f)(h) }
