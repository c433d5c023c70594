package navmesh

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTileDataMarshalRoundTrip(t *testing.T) {
	src := buildTileData(t, offMeshQuadParams(1))
	blob := src.Marshal()
	require.Zero(t, len(blob)%4, "payload sections stay 4-byte aligned")

	got, status := UnmarshalTileData(blob)
	require.True(t, status.Succeed())
	require.Equal(t, *src.Header, *got.Header)
	require.Equal(t, src.Verts, got.Verts)
	require.Equal(t, src.Polys, got.Polys)
	require.Equal(t, src.DetailMeshes, got.DetailMeshes)
	require.Equal(t, src.DetailTris, got.DetailTris)
	require.Equal(t, src.OffMeshCons, got.OffMeshCons)
	require.Len(t, got.Links, int(src.Header.MaxLinkCount))

	// A round-tripped payload is usable as-is.
	m, ref, st := NewSolo(got, TileFreeData, nil)
	require.True(t, st.Succeed())
	require.NotNil(t, m.TileByRef(ref))
}

func TestTileDataMarshalWithBvTree(t *testing.T) {
	src := buildTileData(t, gridTileParams(true))
	require.NotEmpty(t, src.BvTree)

	got, status := UnmarshalTileData(src.Marshal())
	require.True(t, status.Succeed())
	require.Equal(t, src.BvTree, got.BvTree)
}

func TestUnmarshalRejectsBadPayloads(t *testing.T) {
	blob := buildTileData(t, twoPolySquareParams()).Marshal()

	_, status := UnmarshalTileData(blob[:16])
	require.True(t, status.Detail(InvalidParam))

	bad := append([]byte(nil), blob...)
	bad[0] ^= 0xff
	_, status = UnmarshalTileData(bad)
	require.True(t, status.Detail(WrongMagic))

	bad = append([]byte(nil), blob...)
	bad[4] ^= 0xff
	_, status = UnmarshalTileData(bad)
	require.True(t, status.Detail(WrongVersion))

	// Truncated body with an intact header.
	_, status = UnmarshalTileData(blob[:len(blob)-8])
	require.True(t, status.Detail(InvalidParam))
}
