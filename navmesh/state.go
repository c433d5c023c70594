package navmesh

import (
	"tilenav/common"
	"tilenav/common/rw"
)

const (
	tileStateWireSize = 12 // magic, version, ref
	polyStateWireSize = 3  // flags u16, area u8
)

// TileStateSize returns the buffer size StoreTileState produces for the
// tile.
func (m *NavMesh) TileStateSize(tile *MeshTile) int {
	if tile == nil || tile.Header == nil {
		return 0
	}
	return common.Align4(tileStateWireSize) +
		common.Align4(polyStateWireSize*int(tile.Header.PolyCount))
}

// StoreTileState snapshots the tile's non-structural data: per-polygon
// flags and area ids. The blob is keyed to the tile's current reference;
// it does not affect any PolyRef or TileRef.
func (m *NavMesh) StoreTileState(tile *MeshTile) ([]byte, Status) {
	if tile == nil || tile.Header == nil {
		return nil, Failure | InvalidParam
	}
	w := rw.NewWriter()
	w.WriteInt32(StateMagic)
	w.WriteInt32(StateVersion)
	w.WriteUint32(uint32(m.TileRefFor(tile)))
	w.PadZero(pad(tileStateWireSize))

	for i := int32(0); i < tile.Header.PolyCount; i++ {
		p := &tile.Polys[i]
		w.WriteUint16(p.Flags)
		w.WriteUint8(p.Area())
	}
	w.PadZero(pad(polyStateWireSize * int(tile.Header.PolyCount)))
	return w.Bytes(), Success
}

// RestoreTileState applies a snapshot taken by StoreTileState. Restore
// fails with InvalidParam when the tile's reference has changed since the
// snapshot was taken.
func (m *NavMesh) RestoreTileState(tile *MeshTile, data []byte) Status {
	if tile == nil || tile.Header == nil {
		return Failure | InvalidParam
	}
	if len(data) < m.TileStateSize(tile) {
		return Failure | InvalidParam
	}

	r := rw.NewReader(data)
	magic := r.ReadInt32()
	version := r.ReadInt32()
	ref := TileRef(r.ReadUint32())
	if magic != StateMagic {
		return Failure | WrongMagic
	}
	if version != StateVersion {
		return Failure | WrongVersion
	}
	if ref != m.TileRefFor(tile) {
		return Failure | InvalidParam
	}
	r.Skip(pad(tileStateWireSize))

	for i := int32(0); i < tile.Header.PolyCount; i++ {
		p := &tile.Polys[i]
		p.Flags = r.ReadUint16()
		p.SetArea(r.ReadUint8())
	}
	return Success
}
