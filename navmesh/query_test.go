package navmesh

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// gridTileParams builds a 10x10 tile cut into four 5x5 quads.
func gridTileParams(buildBvTree bool) *CreateParams {
	params := &CreateParams{
		Verts: []uint16{
			0, 0, 0, 5, 0, 0, 10, 0, 0,
			0, 0, 5, 5, 0, 5, 10, 0, 5,
			0, 0, 10, 5, 0, 10, 10, 0, 10,
		},
		VertCount: 9,
		Polys: []uint16{
			// Quads in reading order; inner edges name their neighbour.
			0, 1, 4, 3, nullIdx, nullIdx,
			0x800f, 1, 2, 0x800f, 0, 0,
			1, 2, 5, 4, nullIdx, nullIdx,
			0x800f, 0x800f, 3, 0, 0, 0,
			3, 4, 7, 6, nullIdx, nullIdx,
			0, 3, 0x800f, 0x800f, 0, 0,
			4, 5, 8, 7, nullIdx, nullIdx,
			1, 0x800f, 0x800f, 2, 0, 0,
		},
		PolyFlags:      []uint16{1, 1, 1, 1},
		PolyAreas:      []uint8{1, 1, 1, 1},
		PolyCount:      4,
		Nvp:            VertsPerPolygon,
		Bmin:           [3]float32{0, 0, 0},
		Bmax:           [3]float32{10, 2, 10},
		WalkableHeight: 2,
		WalkableRadius: 0.5,
		WalkableClimb:  0.9,
		Cs:             1,
		Ch:             1,
		BuildBvTree:    buildBvTree,
	}
	return params
}

func queryPolySet(t *testing.T, withBvTree bool, qmin, qmax []float32) map[uint32]bool {
	t.Helper()
	data := buildTileData(t, gridTileParams(withBvTree))
	if withBvTree {
		require.NotZero(t, data.Header.BvNodeCount)
	}
	m, ref, status := NewSolo(data, TileFreeData, nil)
	require.True(t, status.Succeed())
	tile := m.TileByRef(ref)

	polys := make([]PolyRef, 32)
	n := m.QueryPolygonsInTile(tile, qmin, qmax, polys, 32)
	set := make(map[uint32]bool)
	for i := int32(0); i < n; i++ {
		set[m.DecodePolyIDPoly(polys[i])] = true
	}
	return set
}

func TestQueryPolygonsBVHAndLinearParity(t *testing.T) {
	cases := []struct {
		name       string
		qmin, qmax []float32
	}{
		{"all", []float32{-1, -1, -1}, []float32{11, 1, 11}},
		{"west strip", []float32{0, -1, 0}, []float32{2, 1, 10}},
		{"north-east corner", []float32{6.5, -1, 6.5}, []float32{9, 1, 9}},
		{"center point", []float32{4.9, -1, 4.9}, []float32{5.1, 1, 5.1}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			withTree := queryPolySet(t, true, c.qmin, c.qmax)
			linear := queryPolySet(t, false, c.qmin, c.qmax)
			require.Equal(t, linear, withTree, "BVH and linear query must agree")
		})
	}
}

func TestQueryPolygonsTruncatesToMax(t *testing.T) {
	data := buildTileData(t, gridTileParams(false))
	m, ref, status := NewSolo(data, TileFreeData, nil)
	require.True(t, status.Succeed())
	tile := m.TileByRef(ref)

	polys := make([]PolyRef, 2)
	n := m.QueryPolygonsInTile(tile, []float32{-1, -1, -1}, []float32{11, 1, 11}, polys, 2)
	require.Equal(t, int32(2), n)
}

func TestClosestPointOnPoly(t *testing.T) {
	data := buildTileData(t, twoPolySquareParams())
	m, ref, status := NewSolo(data, TileFreeData, nil)
	require.True(t, status.Succeed())
	base := m.PolyRefBase(m.TileByRef(ref))

	closest := make([]float32, 3)

	// Inside the triangle: height lands on the detail surface.
	over := m.ClosestPointOnPoly(base|0, []float32{6, 0.5, 3}, closest)
	require.True(t, over)
	require.InDelta(t, 6, closest[0], 1e-5)
	require.InDelta(t, 0, closest[1], 1e-5)
	require.InDelta(t, 3, closest[2], 1e-5)

	// Outside the footprint: projected onto the nearest boundary edge.
	over = m.ClosestPointOnPoly(base|0, []float32{6, 0, -2}, closest)
	require.False(t, over)
	require.InDelta(t, 6, closest[0], 1e-5)
	require.InDelta(t, 0, closest[2], 1e-5)
}

func TestPolyHeightOutsideFootprint(t *testing.T) {
	data := buildTileData(t, twoPolySquareParams())
	m, ref, status := NewSolo(data, TileFreeData, nil)
	require.True(t, status.Succeed())
	tile := m.TileByRef(ref)

	_, ok := m.PolyHeight(tile, &tile.Polys[0], []float32{2, 0, 8})
	require.False(t, ok, "point over the other triangle")
	h, ok := m.PolyHeight(tile, &tile.Polys[1], []float32{2, 5, 8})
	require.True(t, ok)
	require.InDelta(t, 0, h, 1e-5)
}

func TestFindNearestFavoursPolyUnderfoot(t *testing.T) {
	data := buildTileData(t, twoPolySquareParams())
	m, ref, status := NewSolo(data, TileFreeData, nil)
	require.True(t, status.Succeed())
	tile := m.TileByRef(ref)
	base := m.PolyRefBase(tile)

	// Hovering within climb height directly over triangle 0: it wins
	// even though the query box also clips triangle 1.
	nearestPt := make([]float32, 3)
	got := m.FindNearestPolyInTile(tile, []float32{6.5, 0.5, 3.2}, []float32{2, 2, 2}, nearestPt)
	require.Equal(t, base|0, got)
	require.InDelta(t, 0, nearestPt[1], 1e-5)
}
