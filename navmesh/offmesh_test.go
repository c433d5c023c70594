package navmesh

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// offMeshQuadParams is a one-polygon tile carrying one off-mesh
// connection with both endpoints inside the polygon.
func offMeshQuadParams(bidir uint8) *CreateParams {
	params := quadTileParams(0, 0, false, false)
	params.OffMeshConVerts = []float32{2, 0, 2, 7, 0, 7}
	params.OffMeshConRad = []float32{1}
	params.OffMeshConFlags = []uint16{1}
	params.OffMeshConAreas = []uint8{1}
	params.OffMeshConDir = []uint8{bidir}
	params.OffMeshConUserID = []uint32{77}
	params.OffMeshConCount = 1
	return params
}

func TestOffMeshBidirectionalLinks(t *testing.T) {
	data := buildTileData(t, offMeshQuadParams(1))
	require.Equal(t, int32(2), data.Header.PolyCount)
	require.Equal(t, int32(1), data.Header.OffMeshConCount)
	require.Equal(t, int32(1), data.Header.OffMeshBase)

	m, ref, status := NewSolo(data, TileFreeData, nil)
	require.True(t, status.Succeed())
	tile := m.TileByRef(ref)
	base := m.PolyRefBase(tile)

	conPoly := &tile.Polys[1]
	require.Equal(t, uint8(PolyTypeOffMeshConnection), conPoly.Type())

	// The connection polygon links out from both endpoints: the start
	// bind at edge 0 and the landing bind at edge 1.
	conLinks := linkChain(tile, conPoly)
	require.Len(t, conLinks, 2)
	for _, l := range conLinks {
		require.Equal(t, base|0, l.Ref)
		require.Equal(t, uint8(0xff), l.Side)
	}
	require.ElementsMatch(t, []uint8{0, 1}, []uint8{conLinks[0].Edge, conLinks[1].Edge})

	// The ground polygon points back from both binds, with the off-mesh
	// edge marker.
	groundLinks := linkChain(tile, &tile.Polys[0])
	require.Len(t, groundLinks, 2)
	for _, l := range groundLinks {
		require.Equal(t, base|1, l.Ref)
		require.Equal(t, uint8(0xff), l.Edge)
		require.Equal(t, uint8(0xff), l.Side)
	}
}

func TestOffMeshOneWayOmitsReturnLink(t *testing.T) {
	data := buildTileData(t, offMeshQuadParams(0))
	m, ref, status := NewSolo(data, TileFreeData, nil)
	require.True(t, status.Succeed())
	tile := m.TileByRef(ref)
	base := m.PolyRefBase(tile)

	// One-way: the landing polygon only carries the start-side return.
	groundLinks := linkChain(tile, &tile.Polys[0])
	require.Len(t, groundLinks, 1)
	require.Equal(t, base|1, groundLinks[0].Ref)

	require.Len(t, linkChain(tile, &tile.Polys[1]), 2)
}

func TestOffMeshSnapRejectsFarEndpoint(t *testing.T) {
	params := offMeshQuadParams(1)
	// Shrink the walkable polygon to the 4x4 corner of the tile and move
	// the start endpoint far away from it, still inside the tile: the
	// connection is stored but the start bind must not happen.
	params.Verts = []uint16{
		0, 0, 0,
		4, 0, 0,
		4, 0, 4,
		0, 0, 4,
	}
	params.OffMeshConVerts = []float32{8, 0, 8, 2, 0, 2}
	data := buildTileData(t, params)

	m, ref, status := NewSolo(data, TileFreeData, nil)
	require.True(t, status.Succeed())
	tile := m.TileByRef(ref)

	// Neither side links: the start bind failed and the landing pass
	// skips connections with an unbound start.
	require.Equal(t, NullLink, tile.Polys[1].FirstLink)
	require.Equal(t, NullLink, tile.Polys[0].FirstLink)
}

func TestOffMeshLinkPoolExhaustion(t *testing.T) {
	// One link slot: the forward bind takes it and the back-link attempt
	// comes up empty without skipping or corrupting anything.
	data := buildTileData(t, offMeshQuadParams(1))
	data.Header.MaxLinkCount = 1
	data.Links = data.Links[:1]

	m, ref, status := NewSolo(data, TileFreeData, nil)
	require.True(t, status.Succeed())
	tile := m.TileByRef(ref)
	base := m.PolyRefBase(tile)

	conLinks := linkChain(tile, &tile.Polys[1])
	require.Len(t, conLinks, 1)
	require.Equal(t, uint8(0), conLinks[0].Edge)
	require.Equal(t, base|0, conLinks[0].Ref)
	require.Equal(t, NullLink, tile.Polys[0].FirstLink)

	// No link slots at all: both allocations are attempted and omitted.
	data = buildTileData(t, offMeshQuadParams(1))
	data.Header.MaxLinkCount = 0
	data.Links = nil

	m, ref, status = NewSolo(data, TileFreeData, nil)
	require.True(t, status.Succeed())
	tile = m.TileByRef(ref)
	require.Equal(t, NullLink, tile.Polys[0].FirstLink)
	require.Equal(t, NullLink, tile.Polys[1].FirstLink)
}

func TestOffMeshEndPointsAndDescriptor(t *testing.T) {
	data := buildTileData(t, offMeshQuadParams(1))
	m, ref, status := NewSolo(data, TileFreeData, nil)
	require.True(t, status.Succeed())
	tile := m.TileByRef(ref)
	base := m.PolyRefBase(tile)

	con := m.OffMeshConnectionByRef(base | 1)
	require.NotNil(t, con)
	require.Equal(t, uint32(77), con.UserID)
	require.Nil(t, m.OffMeshConnectionByRef(base|0), "ground polygon is not a connection")

	startPos := make([]float32, 3)
	endPos := make([]float32, 3)
	status = m.OffMeshConnectionPolyEndPoints(base|0, base|1, startPos, endPos)
	require.True(t, status.Succeed())
	require.InDelta(t, 2, startPos[0], 0.01)
	require.InDelta(t, 7, endPos[0], 0.01)
}
