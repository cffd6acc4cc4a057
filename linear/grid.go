// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package linear

// IV2 is a 2-component vector of int.
// It is used for grid-space and texture-space coordinates,
// which are always integral.
type IV2 [2]int

// Add sets v to contain l + r.
func (v *IV2) Add(l, r *IV2) {
	for i := range v {
		v[i] = l[i] + r[i]
	}
}

// Sub sets v to contain l - r.
func (v *IV2) Sub(l, r *IV2) {
	for i := range v {
		v[i] = l[i] - r[i]
	}
}

// Scale sets v to contain s * w.
func (v *IV2) Scale(s int, w *IV2) {
	for i := range v {
		v[i] = s * w[i]
	}
}

// Mod sets v to contain w wrapped to [0, n) on both axes.
// n must be a power of two.
func (v *IV2) Mod(w *IV2, n int) {
	mask := n - 1
	for i := range v {
		v[i] = w[i] & mask
	}
}

// V2 is a 2-component vector of float32.
type V2 [2]float32

// Sub sets v to contain l - r.
func (v *V2) Sub(l, r *V2) {
	for i := range v {
		v[i] = l[i] - r[i]
	}
}

// Floor sets v to contain the component-wise floor of w.
func (v *V2) Floor(w *V2) {
	for i := range v {
		v[i] = float32(int(w[i]) - b2i(w[i] < float32(int(w[i]))))
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
