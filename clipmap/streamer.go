package clipmap

import (
	"math"

	"github.com/vterrain/clipmap/driver"
)

// streamTextures rewrites every active ring's dirty texels, coarsest
// to finest, and uploads the result into the clipmap/normal texture
// arrays through cmd. It returns the staging buffers it allocated;
// the caller must not destroy them until cmd has finished executing.
func (v *View) streamTextures(cmd driver.CmdBuffer) ([]driver.Buffer, error) {
	var staging []driver.Buffer
	ts := v.textureSize

	for lod := v.maxViewLod; lod >= v.minViewLod; lod-- {
		info := &v.lods[lod]
		var coarser *lodInfo
		if lod < v.maxViewLod {
			coarser = &v.lods[lod+1]
		} else {
			// The coarsest active ring has no coarser neighbor to
			// blend with; it references itself, so the lookup in
			// updateRect lands exactly on the texel being written
			// (fx = fz = 0) and this ring's coarser channel is a copy
			// of its own value.
			coarser = info
		}

		dx := int(info.worldTexel[0]) - int(info.prevWorldTexel[0])
		dz := int(info.worldTexel[1]) - int(info.prevWorldTexel[1])

		full := info.forceUpdate || dx >= ts || dx <= -ts || dz >= ts || dz <= -ts
		updated := false

		if full {
			x0 := int(info.worldTexel[0])
			z0 := int(info.worldTexel[1])
			v.updateRect(info, coarser, x0, x0+ts, z0, z0+ts)
			info.forceUpdate = false
			updated = true
		} else {
			if dz != 0 {
				z0, z1 := dirtyRange(int(info.prevWorldTexel[1]), int(info.worldTexel[1]), ts)
				x0 := int(info.worldTexel[0])
				v.updateRect(info, coarser, x0, x0+ts, z0, z1)
				updated = true
			}
			if dx != 0 {
				x0, x1 := dirtyRange(int(info.prevWorldTexel[0]), int(info.worldTexel[0]), ts)
				z0 := int(info.worldTexel[1])
				v.updateRect(info, coarser, x0, x1, z0, z0+ts)
				updated = true
			}
		}

		if !updated {
			continue
		}

		v.rescanHeightRange(info)

		buf, err := v.uploadLevel(cmd, info)
		if err != nil {
			return staging, err
		}
		staging = append(staging, buf)
	}
	return staging, nil
}

// dirtyRange returns the world-texel range newly exposed when a
// ring's origin moves from prev to next along one axis, clipped to at
// most a full window width.
func dirtyRange(prev, next, width int) (lo, hi int) {
	d := next - prev
	if d > 0 {
		lo = prev + width
		hi = next + width
		if hi-lo > width {
			lo = hi - width
		}
	} else {
		lo = next
		hi = prev
		if hi-lo > width {
			hi = lo + width
		}
	}
	return
}

// updateRect reconstructs every texel in the world-texel range
// [minX,maxX) x [minZ,maxZ) of info's ring: this ring's own elevation
// and central-difference normal, plus the coarser ring's bilinearly
// interpolated elevation and normal for the cross-level blend used
// when a patch crosses into the next-coarser ring.
func (v *View) updateRect(info, coarser *lodInfo, minX, maxX, minZ, maxZ int) {
	ts := int32(v.textureSize)
	gridScale := float32(info.gridScale)
	cGridScale := float32(coarser.gridScale)
	ofsX := float32(info.offset[0])
	ofsZ := float32(info.offset[1])
	wtX := info.worldTexel[0]
	wtZ := info.worldTexel[1]
	cOfsX := float32(coarser.offset[0])
	cOfsZ := float32(coarser.offset[1])
	cWtX := int32(coarser.worldTexel[0])
	cWtZ := int32(coarser.worldTexel[1])

	for z := minZ; z < maxZ; z++ {
		wz := wrap(int32(z), ts)
		// From texture space to world space: a texel this many steps
		// past the ring's unwrapped origin sits this far past its
		// world-space corner.
		worldZ := float32(z-wtZ)*gridScale + ofsZ
		for x := minX; x < maxX; x++ {
			wx := wrap(int32(x), ts)
			worldX := float32(x-wtX)*gridScale + ofsX

			height := v.hf.SampleLod(worldX, worldZ, info.lod)

			step := gridScale
			h0 := v.hf.SampleLod(worldX, worldZ-step, info.lod)
			h1 := v.hf.SampleLod(worldX-step, worldZ, info.lod)
			h2 := v.hf.SampleLod(worldX+step, worldZ, info.lod)
			h3 := v.hf.SampleLod(worldX, worldZ+step, info.lod)
			nx := h1 - h2
			ny := 2 * step
			nz := h0 - h3
			inv := invLen3(nx, ny, nz)
			nxN := nx * inv
			nzN := nz * inv

			// This ring's own channels are written before the coarser
			// lookup, so a ring that is its own coarser neighbor reads
			// back the values just computed.
			hi := (int(wz)*v.textureSize + int(wx)) * 2
			ni := (int(wz)*v.textureSize + int(wx)) * 4
			info.heightMap[hi] = height
			info.normalMap[ni] = byteClamp(nxN*127.5 + 127.5)
			info.normalMap[ni+1] = byteClamp(nzN*127.5 + 127.5)

			// From world space to the coarser ring's texture space.
			cRelX := (worldX - cOfsX) / cGridScale
			cRelZ := (worldZ - cOfsZ) / cGridScale
			cRelX0 := float32(math.Floor(float64(cRelX)))
			cRelZ0 := float32(math.Floor(float64(cRelZ)))
			fx := cRelX - cRelX0
			fz := cRelZ - cRelZ0
			cx0 := int32(cRelX0) + cWtX
			cz0 := int32(cRelZ0) + cWtZ

			cwx0 := wrap(cx0, ts)
			cwx1 := wrap(cx0+1, ts)
			cwz0 := wrap(cz0, ts)
			cwz1 := wrap(cz0+1, ts)

			hTL := coarser.heightAt(cwx0, cwz0, ts)
			hTR := coarser.heightAt(cwx1, cwz0, ts)
			hBL := coarser.heightAt(cwx0, cwz1, ts)
			hBR := coarser.heightAt(cwx1, cwz1, ts)
			// Corners go into bilerp in its parameter order: TL, TR, BL, BR.
			coarserHeight := bilerp(hTL, hTR, hBL, hBR, fx, fz)

			nTLx, nTLz := coarser.normalAt(cwx0, cwz0, ts)
			nTRx, nTRz := coarser.normalAt(cwx1, cwz0, ts)
			nBLx, nBLz := coarser.normalAt(cwx0, cwz1, ts)
			nBRx, nBRz := coarser.normalAt(cwx1, cwz1, ts)
			coarserNx := bilerp(float32(nTLx), float32(nTRx), float32(nBLx), float32(nBRx), fx, fz)
			coarserNz := bilerp(float32(nTLz), float32(nTRz), float32(nBLz), float32(nBRz), fx, fz)

			info.heightMap[hi+1] = coarserHeight
			info.normalMap[ni+2] = byteClamp(coarserNx*127.5 + 127.5)
			info.normalMap[ni+3] = byteClamp(coarserNz*127.5 + 127.5)
		}
	}
}

func (l *lodInfo) heightAt(wx, wz, ts int32) float32 {
	return l.heightMap[(int(wz)*int(ts)+int(wx))*2]
}

func (l *lodInfo) normalAt(wx, wz, ts int32) (nx, nz byte) {
	i := (int(wz)*int(ts) + int(wx)) * 4
	return l.normalMap[i], l.normalMap[i+1]
}

// bilerp is the standard four-corner bilinear interpolation: tl/tr
// across fx, bl/br across fx, then the two across fz.
func bilerp(tl, tr, bl, br, fx, fz float32) float32 {
	top := tl + (tr-tl)*fx
	bottom := bl + (br-bl)*fx
	return top + (bottom-top)*fz
}

func invLen3(x, y, z float32) float32 {
	l := float32(math.Sqrt(float64(x*x + y*y + z*z)))
	if l == 0 {
		return 0
	}
	return 1 / l
}

func byteClamp(v float32) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

// rescanHeightRange rescans info's whole elevation channel, sampling
// every third texel as a cheap approximation, and widens the result
// by a fixed margin to stay conservative for culling.
func (v *View) rescanHeightRange(info *lodInfo) {
	const margin = 2
	const stride = 3

	min := info.heightMap[0]
	max := min
	for i := 0; i < len(info.heightMap); i += stride * 2 {
		h := info.heightMap[i]
		if h < min {
			min = h
		}
		if h > max {
			max = h
		}
	}
	info.minH = min - margin
	info.maxH = max + margin
}

// uploadLevel packs info's elevation/normal buffers into a staging
// buffer and records the copy into cmd's recording.
func (v *View) uploadLevel(cmd driver.CmdBuffer, info *lodInfo) (driver.Buffer, error) {
	ts := v.textureSize
	elevBytes := ts * ts * 2 * 4
	normBytes := ts * ts * 4
	buf, err := v.gpu.NewBuffer(int64(elevBytes+normBytes), true, driver.UGeneric)
	if err != nil {
		return nil, err
	}
	b := buf.Bytes()
	for i, h := range info.heightMap {
		putF32(b[i*4:], h)
	}
	copy(b[elevBytes:], info.normalMap)

	cmd.CopyBufToImg(&driver.BufImgCopy{
		Buf:    buf,
		BufOff: 0,
		Stride: [2]int64{int64(ts), int64(ts)},
		Img:    v.clipmapArray,
		ImgOff: driver.Off3D{},
		Layer:  info.lod,
		Level:  0,
		Size:   driver.Dim3D{Width: ts, Height: ts, Depth: 1},
	})
	cmd.CopyBufToImg(&driver.BufImgCopy{
		Buf:    buf,
		BufOff: int64(elevBytes),
		Stride: [2]int64{int64(ts), int64(ts)},
		Img:    v.normalMapArray,
		ImgOff: driver.Off3D{},
		Layer:  info.lod,
		Level:  0,
		Size:   driver.Dim3D{Width: ts, Height: ts, Depth: 1},
	})
	return buf, nil
}
