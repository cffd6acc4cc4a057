// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package linear

// Box3 is an axis-aligned bounding box in world space.
type Box3 struct {
	Min, Max V3
}

// Union sets b to contain the smallest box enclosing l and r.
func (b *Box3) Union(l, r *Box3) {
	for i := range b.Min {
		if l.Min[i] < r.Min[i] {
			b.Min[i] = l.Min[i]
		} else {
			b.Min[i] = r.Min[i]
		}
		if l.Max[i] > r.Max[i] {
			b.Max[i] = l.Max[i]
		} else {
			b.Max[i] = r.Max[i]
		}
	}
}

// Intersects reports whether b and o overlap (touching counts as
// overlapping).
func (b *Box3) Intersects(o *Box3) bool {
	for i := range b.Min {
		if b.Min[i] > o.Max[i] || b.Max[i] < o.Min[i] {
			return false
		}
	}
	return true
}

// Contains reports whether p lies within b.
func (b *Box3) Contains(p *V3) bool {
	for i := range b.Min {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// RayIntersect returns the entry distance of ray (orig, dir) against b
// and whether it intersects within [0, maxDist]. dir need not be
// normalized; tmin is expressed in units of dir.
func (b *Box3) RayIntersect(orig, dir *V3, maxDist float32) (tmin float32, ok bool) {
	var tMin, tMax float32 = 0, maxDist
	for i := 0; i < 3; i++ {
		if dir[i] == 0 {
			if orig[i] < b.Min[i] || orig[i] > b.Max[i] {
				return 0, false
			}
			continue
		}
		inv := 1 / dir[i]
		t0 := (b.Min[i] - orig[i]) * inv
		t1 := (b.Max[i] - orig[i]) * inv
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tMin {
			tMin = t0
		}
		if t1 < tMax {
			tMax = t1
		}
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}

// Plane is a half-space boundary nx*x + ny*y + nz*z + d = 0, with the
// normal (nx, ny, nz) pointing into the accepted half-space.
type Plane struct {
	Normal V3
	D      float32
}

// Dist returns the signed distance from p to the plane.
func (p *Plane) Dist(v *V3) float32 { return p.Normal.Dot(v) + p.D }

// Frustum is a set of inward-facing planes bounding a camera's view
// volume (left, right, bottom, top, near, far).
type Frustum struct {
	Planes [6]Plane
}

// IntersectsBox reports whether b is at least partially inside the
// frustum. It is a conservative test: a box may be reported as
// intersecting when it is in fact just outside a corner.
func (f *Frustum) IntersectsBox(b *Box3) bool {
	for i := range f.Planes {
		p := &f.Planes[i]
		var pos V3
		for a := 0; a < 3; a++ {
			if p.Normal[a] >= 0 {
				pos[a] = b.Max[a]
			} else {
				pos[a] = b.Min[a]
			}
		}
		if p.Dist(&pos) < 0 {
			return false
		}
	}
	return true
}

// FrustumFromViewProj extracts the six frustum planes from a
// column-major view-projection matrix using the Gribb–Hartmann
// method, each normalized so Dist reports true world-space distance.
func FrustumFromViewProj(vp *M4) Frustum {
	row := func(i int) V4 {
		return V4{vp[0][i], vp[1][i], vp[2][i], vp[3][i]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	combine := func(a, b *V4, sign float32) Plane {
		var v V4
		for i := range v {
			v[i] = a[i] + sign*b[i]
		}
		p := Plane{Normal: V3{v[0], v[1], v[2]}, D: v[3]}
		l := p.Normal.Len()
		if l != 0 {
			p.Normal.Scale(1/l, &p.Normal)
			p.D /= l
		}
		return p
	}

	return Frustum{Planes: [6]Plane{
		combine(&r3, &r0, 1),  // left
		combine(&r3, &r0, -1), // right
		combine(&r3, &r1, 1),  // bottom
		combine(&r3, &r1, -1), // top
		combine(&r3, &r2, 1),  // near
		combine(&r3, &r2, -1), // far
	}}
}

// Ray is a parametric line orig + t*dir, t >= 0.
type Ray struct {
	Orig, Dir V3
}

// IntersectTriangle applies the Möller–Trumbore algorithm. If
// cullBackFace is set, triangles facing away from the ray are
// rejected. On a hit, t is the ray distance and u, v are the
// barycentric coordinates of the hit point with respect to v1 and v2.
func (r *Ray) IntersectTriangle(v0, v1, v2 *V3, cullBackFace bool) (t, u, v float32, ok bool) {
	const epsilon = 1e-7

	var e1, e2 V3
	e1.Sub(v1, v0)
	e2.Sub(v2, v0)

	var pvec V3
	pvec.Cross(&r.Dir, &e2)
	det := e1.Dot(&pvec)

	if cullBackFace {
		if det < epsilon {
			return
		}
	} else if det > -epsilon && det < epsilon {
		return
	}
	invDet := 1 / det

	var tvec V3
	tvec.Sub(&r.Orig, v0)
	u = tvec.Dot(&pvec) * invDet
	if u < 0 || u > 1 {
		return 0, 0, 0, false
	}

	var qvec V3
	qvec.Cross(&tvec, &e1)
	v = r.Dir.Dot(&qvec) * invDet
	if v < 0 || u+v > 1 {
		return 0, 0, 0, false
	}

	t = e2.Dot(&qvec) * invDet
	ok = t > epsilon
	return
}
