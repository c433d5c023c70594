package common

import (
	"cmp"
	"math"
)

// Numeric constrains the scalar types used by the mesh payloads.
type Numeric interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Index constrains the integer types used to index packed vertex arrays.
type Index interface {
	~int | ~int8 | ~int16 | ~int32 | ~uint | ~uint8 | ~uint16 | ~uint32
}

// Vert3 returns the i-th (x, y, z) triple of a packed vertex array.
func Vert3[T Numeric, I Index](verts []T, i I) []T {
	return verts[i*3 : i*3+3]
}

// Vert4 returns the i-th 4-component tuple of a packed array.
func Vert4[T Numeric, I Index](verts []T, i I) []T {
	return verts[i*4 : i*4+4]
}

// Sqr returns the square of the value.
func Sqr[T Numeric](a T) T { return a * a }

// Abs returns the absolute value.
func Abs[T Numeric](a T) T {
	if a < 0 {
		return -a
	}
	return a
}

// Clamp limits value to the inclusive range [lo, hi].
func Clamp[T cmp.Ordered](value, lo, hi T) T {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// Vadd stores v1 + v2 in dest. [(x, y, z)]
func Vadd(dest, v1, v2 []float32) {
	dest[0] = v1[0] + v2[0]
	dest[1] = v1[1] + v2[1]
	dest[2] = v1[2] + v2[2]
}

// Vsub stores v1 - v2 in dest. [(x, y, z)]
func Vsub(dest, v1, v2 []float32) {
	dest[0] = v1[0] - v2[0]
	dest[1] = v1[1] - v2[1]
	dest[2] = v1[2] - v2[2]
}

// Vmin lowers each component of mn to the matching component of v.
func Vmin(mn, v []float32) {
	mn[0] = min(mn[0], v[0])
	mn[1] = min(mn[1], v[1])
	mn[2] = min(mn[2], v[2])
}

// Vmax raises each component of mx to the matching component of v.
func Vmax(mx, v []float32) {
	mx[0] = max(mx[0], v[0])
	mx[1] = max(mx[1], v[1])
	mx[2] = max(mx[2], v[2])
}

// Vcopy copies src into dest. [(x, y, z)]
func Vcopy(dest, src []float32) {
	dest[0] = src[0]
	dest[1] = src[1]
	dest[2] = src[2]
}

// Vdot returns the dot product of two vectors.
func Vdot(v1, v2 []float32) float32 {
	return v1[0]*v2[0] + v1[1]*v2[1] + v1[2]*v2[2]
}

// Vlerp interpolates dest between v1 and v2 by t in [0, 1].
func Vlerp(dest, v1, v2 []float32, t float32) {
	dest[0] = v1[0] + (v2[0]-v1[0])*t
	dest[1] = v1[1] + (v2[1]-v1[1])*t
	dest[2] = v1[2] + (v2[2]-v1[2])*t
}

// VlenSqr returns the squared scalar length of the vector.
func VlenSqr(v []float32) float32 {
	return v[0]*v[0] + v[1]*v[1] + v[2]*v[2]
}

// VdistSqr returns the squared distance between two points.
func VdistSqr(v1, v2 []float32) float32 {
	dx := v2[0] - v1[0]
	dy := v2[1] - v1[1]
	dz := v2[2] - v1[2]
	return dx*dx + dy*dy + dz*dz
}

// Vdist returns the distance between two points.
func Vdist(v1, v2 []float32) float32 {
	return float32(math.Sqrt(float64(VdistSqr(v1, v2))))
}

// Vdist2DSqr returns the squared distance between two points on the
// xz-plane; the y-values are ignored.
func Vdist2DSqr(v1, v2 []float32) float32 {
	dx := v2[0] - v1[0]
	dz := v2[2] - v1[2]
	return dx*dx + dz*dz
}

// TriArea2D derives the signed xz-plane area of the triangle abc, or the
// relationship of line ab to point c.
func TriArea2D(a, b, c []float32) float32 {
	abx := b[0] - a[0]
	abz := b[2] - a[2]
	acx := c[0] - a[0]
	acz := c[2] - a[2]
	return acx*abz - abx*acz
}

// OverlapBounds reports whether two axis-aligned bounding boxes overlap.
func OverlapBounds(amin, amax, bmin, bmax []float32) bool {
	if amin[0] > bmax[0] || amax[0] < bmin[0] {
		return false
	}
	if amin[1] > bmax[1] || amax[1] < bmin[1] {
		return false
	}
	if amin[2] > bmax[2] || amax[2] < bmin[2] {
		return false
	}
	return true
}

// NextPow2 rounds v up to the next power of two.
func NextPow2(v uint32) uint32 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}

// Ilog2 returns the integer base-2 logarithm of v.
func Ilog2(v uint32) uint32 {
	b2i := func(b bool) uint32 {
		if b {
			return 1
		}
		return 0
	}
	var r, shift uint32
	r = b2i(v > 0xffff) << 4
	v >>= r
	shift = b2i(v > 0xff) << 3
	v >>= shift
	r |= shift
	shift = b2i(v > 0xf) << 2
	v >>= shift
	r |= shift
	shift = b2i(v > 0x3) << 1
	v >>= shift
	r |= shift
	r |= v >> 1
	return r
}

// Align4 rounds x up to the next multiple of four.
func Align4(x int) int { return (x + 3) &^ 3 }
