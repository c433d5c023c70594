package navmesh

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const nullIdx = MeshNullIdx

// twoPolySquareParams builds a 10x10 tile split along the diagonal into
// two triangles sharing the 0-2 edge.
func twoPolySquareParams() *CreateParams {
	return &CreateParams{
		Verts: []uint16{
			0, 0, 0,
			10, 0, 0,
			10, 0, 10,
			0, 0, 10,
		},
		VertCount: 4,
		Polys: []uint16{
			// Triangle 0-1-2, inner edge 2-0 borders polygon 1.
			0, 1, 2, nullIdx, nullIdx, nullIdx,
			0x800f, 0x800f, 1, 0, 0, 0,
			// Triangle 0-2-3, inner edge 0-2 borders polygon 0.
			0, 2, 3, nullIdx, nullIdx, nullIdx,
			0, 0x800f, 0x800f, 0, 0, 0,
		},
		PolyFlags:      []uint16{1, 1},
		PolyAreas:      []uint8{1, 1},
		PolyCount:      2,
		Nvp:            VertsPerPolygon,
		TileX:          0,
		TileY:          0,
		Bmin:           [3]float32{0, 0, 0},
		Bmax:           [3]float32{10, 2, 10},
		WalkableHeight: 2,
		WalkableRadius: 0.5,
		WalkableClimb:  0.9,
		Cs:             1,
		Ch:             1,
	}
}

// quadTileParams builds a one-polygon 10x10 tile at grid (tx, ty).
// Portal edges are requested per compass side (0 = x+, 4 = x-).
func quadTileParams(tx, ty int32, eastPortal, westPortal bool) *CreateParams {
	// Edge 1 runs along x+ at local x=10; edge 3 along x- at local x=0.
	eastNei := uint16(0x800f)
	if eastPortal {
		eastNei = 0x8000 | 2
	}
	westNei := uint16(0x800f)
	if westPortal {
		westNei = 0x8000 | 0
	}
	bmin := [3]float32{float32(tx) * 10, 0, float32(ty) * 10}
	return &CreateParams{
		Verts: []uint16{
			0, 0, 0,
			10, 0, 0,
			10, 0, 10,
			0, 0, 10,
		},
		VertCount: 4,
		Polys: []uint16{
			0, 1, 2, 3, nullIdx, nullIdx,
			0x800f, eastNei, 0x800f, westNei, 0, 0,
		},
		PolyFlags:      []uint16{1},
		PolyAreas:      []uint8{1},
		PolyCount:      1,
		Nvp:            VertsPerPolygon,
		TileX:          tx,
		TileY:          ty,
		Bmin:           bmin,
		Bmax:           [3]float32{bmin[0] + 10, 2, bmin[2] + 10},
		WalkableHeight: 2,
		WalkableRadius: 0.5,
		WalkableClimb:  0.9,
		Cs:             1,
		Ch:             1,
	}
}

func buildTileData(t *testing.T, params *CreateParams) *TileData {
	t.Helper()
	data, ok := CreateTileData(params)
	require.True(t, ok, "CreateTileData")
	return data
}

// linkChain walks a polygon's link chain into a slice.
func linkChain(tile *MeshTile, poly *Poly) []Link {
	var out []Link
	for i := poly.FirstLink; i != NullLink; i = tile.Links[i].Next {
		out = append(out, tile.Links[i])
	}
	return out
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m, status := New(&NavMeshParams{MaxTiles: 16, MaxPolys: 256, TileWidth: 10, TileHeight: 10}, nil)
	require.True(t, status.Succeed())

	cases := []struct{ salt, it, ip uint32 }{
		{1, 0, 0},
		{1, 15, 255},
		{123, 7, 31},
		{1<<20 - 1, 3, 3},
	}
	for _, c := range cases {
		ref := m.EncodePolyID(c.salt, c.it, c.ip)
		salt, it, ip := m.DecodePolyID(ref)
		require.Equal(t, c.salt, salt)
		require.Equal(t, c.it, it)
		require.Equal(t, c.ip, ip)
		require.Equal(t, c.salt, m.DecodePolyIDSalt(ref))
		require.Equal(t, c.it, m.DecodePolyIDTile(ref))
		require.Equal(t, c.ip, m.DecodePolyIDPoly(ref))
	}
}

func TestInitRejectsTooFewSaltBits(t *testing.T) {
	_, status := New(&NavMeshParams{MaxTiles: 1 << 14, MaxPolys: 1 << 14, TileWidth: 10, TileHeight: 10}, nil)
	require.True(t, status.Failed())
	require.True(t, status.Detail(InvalidParam))
}

func TestSoloTileInternalLinks(t *testing.T) {
	data := buildTileData(t, twoPolySquareParams())
	m, ref, status := NewSolo(data, TileFreeData, nil)
	require.True(t, status.Succeed())
	require.NotZero(t, ref)

	tile := m.TileByRef(ref)
	require.NotNil(t, tile)

	base := m.PolyRefBase(tile)
	_, _, ip := m.DecodePolyID(base)
	require.Zero(t, ip)

	// The shared diagonal produces one link on each side, at the edge
	// index the diagonal has in each triangle.
	linksA := linkChain(tile, &tile.Polys[0])
	require.Len(t, linksA, 1)
	require.Equal(t, base|1, linksA[0].Ref)
	require.Equal(t, uint8(2), linksA[0].Edge)
	require.Equal(t, uint8(0xff), linksA[0].Side)

	linksB := linkChain(tile, &tile.Polys[1])
	require.Len(t, linksB, 1)
	require.Equal(t, base|0, linksB[0].Ref)
	require.Equal(t, uint8(0), linksB[0].Edge)

	// Centroid queries land in the enclosing triangle.
	nearestPt := make([]float32, 3)
	got := m.FindNearestPolyInTile(tile, []float32{6.5, 0, 3.2}, []float32{0.5, 1, 0.5}, nearestPt)
	require.Equal(t, base|0, got)
	got = m.FindNearestPolyInTile(tile, []float32{3.2, 0, 6.5}, []float32{0.5, 1, 0.5}, nearestPt)
	require.Equal(t, base|1, got)
}

func addStitchedPair(t *testing.T) (*NavMesh, TileRef, TileRef) {
	t.Helper()
	m, status := New(&NavMeshParams{MaxTiles: 4, MaxPolys: 8, TileWidth: 10, TileHeight: 10}, nil)
	require.True(t, status.Succeed())

	refA, status := m.AddTile(buildTileData(t, quadTileParams(0, 0, true, false)), 0, 0)
	require.True(t, status.Succeed())
	refB, status := m.AddTile(buildTileData(t, quadTileParams(1, 0, false, true)), 0, 0)
	require.True(t, status.Succeed())
	return m, refA, refB
}

func TestTwoTileStitching(t *testing.T) {
	m, refA, refB := addStitchedPair(t)

	tileA := m.TileByRef(refA)
	tileB := m.TileByRef(refB)
	baseA := m.PolyRefBase(tileA)
	baseB := m.PolyRefBase(tileB)

	linksA := linkChain(tileA, &tileA.Polys[0])
	require.Len(t, linksA, 1)
	require.Equal(t, baseB|0, linksA[0].Ref)
	require.Equal(t, uint8(1), linksA[0].Edge)
	require.Equal(t, uint8(0), linksA[0].Side)
	require.Equal(t, uint8(0), linksA[0].Bmin)
	require.Equal(t, uint8(255), linksA[0].Bmax)

	linksB := linkChain(tileB, &tileB.Polys[0])
	require.Len(t, linksB, 1)
	require.Equal(t, baseA|0, linksB[0].Ref)
	require.Equal(t, uint8(3), linksB[0].Edge)
	require.Equal(t, uint8(4), linksB[0].Side)
	require.Equal(t, uint8(0), linksB[0].Bmin)
	require.Equal(t, uint8(255), linksB[0].Bmax)
}

func TestRemoveAndRestoreTile(t *testing.T) {
	m, refA, refB := addStitchedPair(t)
	tileB := m.TileByRef(refB)
	polyA := m.PolyRefBase(m.TileByRef(refA))

	data, status := m.RemoveTile(refA)
	require.True(t, status.Succeed())
	require.NotNil(t, data, "payload comes back when the mesh does not own it")

	// No link anywhere may still target the removed tile.
	require.Equal(t, NullLink, tileB.Polys[0].FirstLink)
	require.False(t, m.IsValidPolyRef(polyA))

	// Re-adding with the prior reference restores salt, slot and refs.
	refA2, status := m.AddTile(data, 0, refA)
	require.True(t, status.Succeed())
	require.Equal(t, refA, refA2)
	require.True(t, m.IsValidPolyRef(polyA))

	tile, poly, status := m.TileAndPolyByRef(polyA)
	require.True(t, status.Succeed())
	require.Equal(t, m.TileByRef(refA), tile)
	require.Equal(t, &tile.Polys[0], poly)

	// Stitching is rebuilt in both directions.
	require.Len(t, linkChain(tileB, &tileB.Polys[0]), 1)
}

func TestRestoreIntoWrongSlotFails(t *testing.T) {
	m, refA, refB := addStitchedPair(t)
	data, status := m.RemoveTile(refA)
	require.True(t, status.Succeed())

	// A reference naming a live slot cannot be restored onto.
	_, status = m.AddTile(data, 0, refB)
	require.True(t, status.Failed())
	require.True(t, status.Detail(OutOfMemory))
}

func TestSaltBumpsOnRemove(t *testing.T) {
	m, status := New(&NavMeshParams{MaxTiles: 2, MaxPolys: 8, TileWidth: 10, TileHeight: 10}, nil)
	require.True(t, status.Succeed())

	prevSalt := uint32(0)
	for i := 0; i < 4; i++ {
		ref, status := m.AddTile(buildTileData(t, quadTileParams(0, 0, false, false)), 0, 0)
		require.True(t, status.Succeed())
		tile := m.TileByRef(ref)
		require.NotZero(t, tile.Salt())
		if i > 0 {
			require.NotEqual(t, prevSalt, tile.Salt())
		}
		prevSalt = tile.Salt()
		_, status = m.RemoveTile(ref)
		require.True(t, status.Succeed())
		require.Nil(t, m.TileByRef(ref), "stale reference must not resolve")
	}
}

func TestAddTileRejectsOversizedPayload(t *testing.T) {
	m, status := New(&NavMeshParams{MaxTiles: 4, MaxPolys: 2, TileWidth: 10, TileHeight: 10}, nil)
	require.True(t, status.Succeed())

	// Four polygons cannot be indexed with a one-bit poly field.
	params := twoPolySquareParams()
	params.Polys = append(params.Polys,
		0, 1, 2, nullIdx, nullIdx, nullIdx,
		0x800f, 0x800f, 0x800f, 0, 0, 0,
		0, 2, 3, nullIdx, nullIdx, nullIdx,
		0x800f, 0x800f, 0x800f, 0, 0, 0,
	)
	params.PolyFlags = []uint16{1, 1, 1, 1}
	params.PolyAreas = []uint8{1, 1, 1, 1}
	params.PolyCount = 4

	_, status = m.AddTile(buildTileData(t, params), 0, 0)
	require.True(t, status.Failed())
	require.True(t, status.Detail(InvalidParam))
}

func TestAddTileWrongMagicAndVersion(t *testing.T) {
	m, status := New(&NavMeshParams{MaxTiles: 4, MaxPolys: 8, TileWidth: 10, TileHeight: 10}, nil)
	require.True(t, status.Succeed())

	data := buildTileData(t, quadTileParams(0, 0, false, false))
	data.Header.Magic = 0x12345678
	_, status = m.AddTile(data, 0, 0)
	require.True(t, status.Detail(WrongMagic))

	data.Header.Magic = Magic
	data.Header.Version = Version + 1
	_, status = m.AddTile(data, 0, 0)
	require.True(t, status.Detail(WrongVersion))
}

func TestAddTileAlreadyOccupied(t *testing.T) {
	m, status := New(&NavMeshParams{MaxTiles: 4, MaxPolys: 8, TileWidth: 10, TileHeight: 10}, nil)
	require.True(t, status.Succeed())

	_, status = m.AddTile(buildTileData(t, quadTileParams(0, 0, false, false)), 0, 0)
	require.True(t, status.Succeed())
	_, status = m.AddTile(buildTileData(t, quadTileParams(0, 0, false, false)), 0, 0)
	require.True(t, status.Failed())
	require.True(t, status.Detail(AlreadyOccupied))
}

func TestLinkPoolExhaustionOmitsLinks(t *testing.T) {
	// A hand-built payload with room for a single link: the second
	// internal edge goes without one, and nothing corrupts.
	data := buildTileData(t, twoPolySquareParams())
	data.Header.MaxLinkCount = 1
	data.Links = data.Links[:1]

	m, ref, status := NewSolo(data, 0, nil)
	require.True(t, status.Succeed())
	tile := m.TileByRef(ref)

	require.Len(t, linkChain(tile, &tile.Polys[0]), 1)
	require.Equal(t, NullLink, tile.Polys[1].FirstLink)
}

func TestTileStoreLookups(t *testing.T) {
	m, refA, refB := addStitchedPair(t)

	require.Equal(t, refA, m.TileRefAt(0, 0, 0))
	require.Equal(t, refB, m.TileRefAt(1, 0, 0))
	require.Zero(t, m.TileRefAt(2, 2, 0))

	require.NotNil(t, m.TileAt(0, 0, 0))
	require.Nil(t, m.TileAt(0, 0, 1))

	var tiles [4]*MeshTile
	require.Equal(t, int32(1), m.TilesAt(1, 0, tiles[:]))

	tx, ty := m.CalcTileLoc([]float32{15, 0, 3})
	require.Equal(t, int32(1), tx)
	require.Equal(t, int32(0), ty)
}

func TestPolyFlagsAndAreaAccessors(t *testing.T) {
	data := buildTileData(t, twoPolySquareParams())
	m, ref, status := NewSolo(data, TileFreeData, nil)
	require.True(t, status.Succeed())

	base := m.PolyRefBase(m.TileByRef(ref))
	require.True(t, m.SetPolyFlags(base|1, 0x0042).Succeed())
	flags, status := m.PolyFlags(base | 1)
	require.True(t, status.Succeed())
	require.Equal(t, uint16(0x0042), flags)

	require.True(t, m.SetPolyArea(base|1, 7).Succeed())
	area, status := m.PolyArea(base | 1)
	require.True(t, status.Succeed())
	require.Equal(t, uint8(7), area)

	// Stale and null references are rejected.
	stale := m.EncodePolyID(m.DecodePolyIDSalt(base)+1, 0, 1)
	require.True(t, m.SetPolyFlags(stale, 1).Failed())
	require.True(t, m.SetPolyFlags(0, 1).Failed())
}
