package tilecache

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"tilenav/common"
)

// markCylinderArea stamps areaId over the layer cells inside the
// cylinder footprint and height range.
func markCylinderArea(layer *Layer, orig []float32, cs, ch float32, pos []float32, radius, height float32, areaId uint8) {
	bmin := []float32{pos[0] - radius, pos[1], pos[2] - radius}
	bmax := []float32{pos[0] + radius, pos[1] + height, pos[2] + radius}
	r2 := common.Sqr(radius/cs + 0.5)

	w := int32(layer.Header.Width)
	h := int32(layer.Header.Height)
	ics := 1 / cs
	ich := 1 / ch

	px := (pos[0] - orig[0]) * ics
	pz := (pos[2] - orig[2]) * ics

	minx := int32(math.Floor(float64((bmin[0] - orig[0]) * ics)))
	miny := int32(math.Floor(float64((bmin[1] - orig[1]) * ich)))
	minz := int32(math.Floor(float64((bmin[2] - orig[2]) * ics)))
	maxx := int32(math.Floor(float64((bmax[0] - orig[0]) * ics)))
	maxy := int32(math.Floor(float64((bmax[1] - orig[1]) * ich)))
	maxz := int32(math.Floor(float64((bmax[2] - orig[2]) * ics)))

	if maxx < 0 || minx >= w || maxz < 0 || minz >= h {
		return
	}
	minx = max(minx, 0)
	maxx = min(maxx, w-1)
	minz = max(minz, 0)
	maxz = min(maxz, h-1)

	for z := minz; z <= maxz; z++ {
		for x := minx; x <= maxx; x++ {
			dx := float32(x) + 0.5 - px
			dz := float32(z) + 0.5 - pz
			if dx*dx+dz*dz > r2 {
				continue
			}
			y := int32(layer.Heights[x+z*w])
			if y < miny || y > maxy {
				continue
			}
			layer.Areas[x+z*w] = areaId
		}
	}
}

// markBoxArea stamps areaId over the cells inside an axis-aligned box.
func markBoxArea(layer *Layer, orig []float32, cs, ch float32, bmin, bmax []float32, areaId uint8) {
	w := int32(layer.Header.Width)
	h := int32(layer.Header.Height)
	ics := 1 / cs
	ich := 1 / ch

	minx := int32(math.Floor(float64((bmin[0] - orig[0]) * ics)))
	miny := int32(math.Floor(float64((bmin[1] - orig[1]) * ich)))
	minz := int32(math.Floor(float64((bmin[2] - orig[2]) * ics)))
	maxx := int32(math.Floor(float64((bmax[0] - orig[0]) * ics)))
	maxy := int32(math.Floor(float64((bmax[1] - orig[1]) * ich)))
	maxz := int32(math.Floor(float64((bmax[2] - orig[2]) * ics)))

	if maxx < 0 || minx >= w || maxz < 0 || minz >= h {
		return
	}
	minx = max(minx, 0)
	maxx = min(maxx, w-1)
	minz = max(minz, 0)
	maxz = min(maxz, h-1)

	for z := minz; z <= maxz; z++ {
		for x := minx; x <= maxx; x++ {
			y := int32(layer.Heights[x+z*w])
			if y < miny || y > maxy {
				continue
			}
			layer.Areas[x+z*w] = areaId
		}
	}
}

// markOrientedBoxArea stamps areaId over the cells inside a box rotated
// about the y-axis. rotAux is the doubled half-angle form computed when
// the obstacle was added; each cell offset is rotated into box space
// before the half-extent test.
func markOrientedBoxArea(layer *Layer, orig []float32, cs, ch float32, center, halfExtents []float32, rotAux []float32, areaId uint8) {
	w := int32(layer.Header.Width)
	h := int32(layer.Header.Height)
	ics := 1 / cs
	ich := 1 / ch

	cx := (center[0] - orig[0]) * ics
	cz := (center[2] - orig[2]) * ics

	maxr := 1.41 * max(halfExtents[0], halfExtents[2])
	minx := int32(math.Floor(float64(cx - maxr*ics)))
	maxx := int32(math.Floor(float64(cx + maxr*ics)))
	minz := int32(math.Floor(float64(cz - maxr*ics)))
	maxz := int32(math.Floor(float64(cz + maxr*ics)))
	miny := int32(math.Floor(float64((center[1] - halfExtents[1] - orig[1]) * ich)))
	maxy := int32(math.Floor(float64((center[1] + halfExtents[1] - orig[1]) * ich)))

	if maxx < 0 || minx >= w || maxz < 0 || minz >= h {
		return
	}
	minx = max(minx, 0)
	maxx = min(maxx, w-1)
	minz = max(minz, 0)
	maxz = min(maxz, h-1)

	xhalf := halfExtents[0]*ics + 0.5
	zhalf := halfExtents[2]*ics + 0.5

	xrotAxis := mgl32.Vec2{rotAux[1], rotAux[0]}
	zrotAxis := mgl32.Vec2{-rotAux[0], rotAux[1]}

	for z := minz; z <= maxz; z++ {
		for x := minx; x <= maxx; x++ {
			cell := mgl32.Vec2{2 * (float32(x) - cx), 2 * (float32(z) - cz)}
			if xrot := xrotAxis.Dot(cell); xrot > xhalf || xrot < -xhalf {
				continue
			}
			if zrot := zrotAxis.Dot(cell); zrot > zhalf || zrot < -zhalf {
				continue
			}
			y := int32(layer.Heights[x+z*w])
			if y < miny || y > maxy {
				continue
			}
			layer.Areas[x+z*w] = areaId
		}
	}
}
