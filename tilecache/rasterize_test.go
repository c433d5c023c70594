package tilecache

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

func flatLayer(w, h uint8) *Layer {
	gridSize := int(w) * int(h)
	layer := &Layer{
		Header: &LayerHeader{
			Magic:   LayerMagic,
			Version: LayerVersion,
			Bmax:    [3]float32{float32(w), 1, float32(h)},
			HMax:    1,
			Width:   w,
			Height:  h,
			MaxX:    w - 1,
			MaxY:    h - 1,
		},
		Heights: make([]uint8, gridSize),
		Areas:   make([]uint8, gridSize),
		Cons:    make([]uint8, gridSize),
		Regs:    make([]uint8, gridSize),
	}
	for i := range layer.Areas {
		layer.Areas[i] = WalkableArea
	}
	return layer
}

func clearedCells(layer *Layer) int {
	n := 0
	for _, a := range layer.Areas {
		if a == NullArea {
			n++
		}
	}
	return n
}

func TestMarkCylinderArea(t *testing.T) {
	layer := flatLayer(8, 8)
	orig := []float32{0, 0, 0}

	markCylinderArea(layer, orig, 1, 1, []float32{4, -0.5, 4}, 1.2, 2, NullArea)

	// The four cells around the centre fall inside the radius.
	for _, c := range [][2]int32{{3, 3}, {4, 3}, {3, 4}, {4, 4}} {
		require.Equal(t, uint8(NullArea), layer.Areas[c[0]+c[1]*8], "cell %v", c)
	}
	require.Equal(t, uint8(WalkableArea), layer.Areas[0])
	require.Equal(t, uint8(WalkableArea), layer.Areas[1+1*8])
}

func TestMarkCylinderAreaRespectsHeight(t *testing.T) {
	layer := flatLayer(8, 8)
	orig := []float32{0, 0, 0}

	// The cylinder floats above the surface cells.
	markCylinderArea(layer, orig, 1, 1, []float32{4, 5, 4}, 2, 2, NullArea)
	require.Zero(t, clearedCells(layer))
}

func TestMarkBoxArea(t *testing.T) {
	layer := flatLayer(8, 8)
	orig := []float32{0, 0, 0}

	markBoxArea(layer, orig, 1, 1, []float32{1, -0.5, 1}, []float32{3, 1, 3}, NullArea)

	for z := int32(1); z <= 3; z++ {
		for x := int32(1); x <= 3; x++ {
			require.Equal(t, uint8(NullArea), layer.Areas[x+z*8])
		}
	}
	require.Equal(t, uint8(WalkableArea), layer.Areas[0])
	require.Equal(t, uint8(WalkableArea), layer.Areas[4+4*8])
}

func TestMarkBoxAreaOutsideLayer(t *testing.T) {
	layer := flatLayer(8, 8)
	orig := []float32{0, 0, 0}

	markBoxArea(layer, orig, 1, 1, []float32{20, -1, 20}, []float32{30, 1, 30}, NullArea)
	require.Zero(t, clearedCells(layer))
}

func TestMarkOrientedBoxMatchesUnrotatedAtZeroAngle(t *testing.T) {
	aabb := flatLayer(8, 8)
	obb := flatLayer(8, 8)
	orig := []float32{0, 0, 0}

	markBoxArea(aabb, orig, 1, 1, []float32{2, -0.5, 2}, []float32{6, 1, 5}, NullArea)

	// Zero rotation: rotAux = {0, 0.5}, the identity of the doubled
	// half-angle form.
	center := []float32{4, 0.25, 3.5}
	halfExtents := []float32{2, 1, 1.5}
	markOrientedBoxArea(obb, orig, 1, 1, center, halfExtents, []float32{0, 0.5}, NullArea)

	require.Equal(t, aabb.Areas, obb.Areas)
}

// rotAuxFor mirrors the auxiliary computation done when an oriented box
// obstacle is added.
func rotAuxFor(yRadians float32) []float32 {
	coshalf := float32(math.Cos(0.5 * float64(yRadians)))
	sinhalf := float32(math.Sin(-0.5 * float64(yRadians)))
	return []float32{coshalf * sinhalf, coshalf*coshalf - 0.5}
}

func TestMarkOrientedBoxRotated(t *testing.T) {
	layer := flatLayer(16, 16)
	orig := []float32{0, 0, 0}

	// A long thin box rotated 90 degrees covers cells along z instead
	// of x.
	rotAux := rotAuxFor(mgl32.DegToRad(90))
	markOrientedBoxArea(layer, orig, 1, 1, []float32{8, -0.5, 8}, []float32{4, 1, 0.8}, rotAux, NullArea)

	require.Equal(t, uint8(NullArea), layer.Areas[8+11*16], "along the rotated long axis")
	require.Equal(t, uint8(NullArea), layer.Areas[8+5*16])
	require.Equal(t, uint8(WalkableArea), layer.Areas[12+8*16], "original long axis is clear")
	require.Equal(t, uint8(WalkableArea), layer.Areas[3+8*16])
}
