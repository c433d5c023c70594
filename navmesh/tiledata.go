package navmesh

import (
	"tilenav/common"
	"tilenav/common/rw"
)

// Serialized section record sizes, kept in sync with the toBin methods.
const (
	headerWireSize     = 100
	polyWireSize       = 32
	linkWireSize       = 12
	polyDetailWireSize = 10
	bvNodeWireSize     = 16
	offMeshConWireSize = 36
)

// TileData is a tile payload with typed views carved from the serialized
// buffer. The views never outlive the payload; AddTile shares them with
// the live tile slot. Links content is ignored on load and rebuilt; the
// section only reserves space for MaxLinkCount records.
type TileData struct {
	Header       *MeshHeader
	Verts        []float32
	Polys        []Poly
	Links        []Link
	DetailMeshes []PolyDetail
	DetailVerts  []float32
	DetailTris   []uint8
	BvTree       []BVNode
	OffMeshCons  []OffMeshConnection
}

func (h *MeshHeader) toBin(w *rw.ReaderWriter) {
	w.WriteInt32(h.Magic)
	w.WriteInt32(h.Version)
	w.WriteInt32(h.X)
	w.WriteInt32(h.Y)
	w.WriteInt32(h.Layer)
	w.WriteUint32(h.UserID)
	w.WriteInt32(h.PolyCount)
	w.WriteInt32(h.VertCount)
	w.WriteInt32(h.MaxLinkCount)
	w.WriteInt32(h.DetailMeshCount)
	w.WriteInt32(h.DetailVertCount)
	w.WriteInt32(h.DetailTriCount)
	w.WriteInt32(h.BvNodeCount)
	w.WriteInt32(h.OffMeshConCount)
	w.WriteInt32(h.OffMeshBase)
	w.WriteFloat32(h.WalkableHeight)
	w.WriteFloat32(h.WalkableRadius)
	w.WriteFloat32(h.WalkableClimb)
	w.WriteFloat32s(h.Bmin[:])
	w.WriteFloat32s(h.Bmax[:])
	w.WriteFloat32(h.BvQuantFactor)
}

func (h *MeshHeader) fromBin(r *rw.ReaderWriter) {
	h.Magic = r.ReadInt32()
	h.Version = r.ReadInt32()
	h.X = r.ReadInt32()
	h.Y = r.ReadInt32()
	h.Layer = r.ReadInt32()
	h.UserID = r.ReadUint32()
	h.PolyCount = r.ReadInt32()
	h.VertCount = r.ReadInt32()
	h.MaxLinkCount = r.ReadInt32()
	h.DetailMeshCount = r.ReadInt32()
	h.DetailVertCount = r.ReadInt32()
	h.DetailTriCount = r.ReadInt32()
	h.BvNodeCount = r.ReadInt32()
	h.OffMeshConCount = r.ReadInt32()
	h.OffMeshBase = r.ReadInt32()
	h.WalkableHeight = r.ReadFloat32()
	h.WalkableRadius = r.ReadFloat32()
	h.WalkableClimb = r.ReadFloat32()
	r.ReadFloat32s(h.Bmin[:])
	r.ReadFloat32s(h.Bmax[:])
	h.BvQuantFactor = r.ReadFloat32()
}

func (p *Poly) toBin(w *rw.ReaderWriter) {
	w.WriteUint32(p.FirstLink)
	w.WriteUint16s(p.Verts[:])
	w.WriteUint16s(p.Neis[:])
	w.WriteUint16(p.Flags)
	w.WriteUint8(p.VertCount)
	w.WriteUint8(p.areaAndType)
}

func (p *Poly) fromBin(r *rw.ReaderWriter) {
	p.FirstLink = r.ReadUint32()
	r.ReadUint16s(p.Verts[:])
	r.ReadUint16s(p.Neis[:])
	p.Flags = r.ReadUint16()
	p.VertCount = r.ReadUint8()
	p.areaAndType = r.ReadUint8()
}

func (l *Link) toBin(w *rw.ReaderWriter) {
	w.WriteUint32(uint32(l.Ref))
	w.WriteUint32(l.Next)
	w.WriteUint8(l.Edge)
	w.WriteUint8(l.Side)
	w.WriteUint8(l.Bmin)
	w.WriteUint8(l.Bmax)
}

func (l *Link) fromBin(r *rw.ReaderWriter) {
	l.Ref = PolyRef(r.ReadUint32())
	l.Next = r.ReadUint32()
	l.Edge = r.ReadUint8()
	l.Side = r.ReadUint8()
	l.Bmin = r.ReadUint8()
	l.Bmax = r.ReadUint8()
}

func (d *PolyDetail) toBin(w *rw.ReaderWriter) {
	w.WriteUint32(d.VertBase)
	w.WriteUint32(d.TriBase)
	w.WriteUint8(d.VertCount)
	w.WriteUint8(d.TriCount)
}

func (d *PolyDetail) fromBin(r *rw.ReaderWriter) {
	d.VertBase = r.ReadUint32()
	d.TriBase = r.ReadUint32()
	d.VertCount = r.ReadUint8()
	d.TriCount = r.ReadUint8()
}

func (n *BVNode) toBin(w *rw.ReaderWriter) {
	w.WriteUint16s(n.Bmin[:])
	w.WriteUint16s(n.Bmax[:])
	w.WriteInt32(n.I)
}

func (n *BVNode) fromBin(r *rw.ReaderWriter) {
	r.ReadUint16s(n.Bmin[:])
	r.ReadUint16s(n.Bmax[:])
	n.I = r.ReadInt32()
}

func (c *OffMeshConnection) toBin(w *rw.ReaderWriter) {
	w.WriteFloat32s(c.Pos[:])
	w.WriteFloat32(c.Rad)
	w.WriteUint16(c.Poly)
	w.WriteUint8(c.Flags)
	w.WriteUint8(c.Side)
	w.WriteUint32(c.UserID)
}

func (c *OffMeshConnection) fromBin(r *rw.ReaderWriter) {
	r.ReadFloat32s(c.Pos[:])
	c.Rad = r.ReadFloat32()
	c.Poly = r.ReadUint16()
	c.Flags = r.ReadUint8()
	c.Side = r.ReadUint8()
	c.UserID = r.ReadUint32()
}

func pad(n int) int { return common.Align4(n) - n }

// Marshal serializes the payload: header first, then each section padded
// to 4-byte alignment.
func (d *TileData) Marshal() []byte {
	w := rw.NewWriter()
	d.Header.toBin(w)
	w.PadZero(pad(headerWireSize))
	w.WriteFloat32s(d.Verts)
	w.PadZero(pad(4 * len(d.Verts)))
	for i := range d.Polys {
		d.Polys[i].toBin(w)
	}
	w.PadZero(pad(polyWireSize * len(d.Polys)))
	for i := range d.Links {
		d.Links[i].toBin(w)
	}
	w.PadZero(pad(linkWireSize * len(d.Links)))
	for i := range d.DetailMeshes {
		d.DetailMeshes[i].toBin(w)
	}
	w.PadZero(pad(polyDetailWireSize * len(d.DetailMeshes)))
	w.WriteFloat32s(d.DetailVerts)
	w.PadZero(pad(4 * len(d.DetailVerts)))
	w.WriteUint8s(d.DetailTris)
	w.PadZero(pad(len(d.DetailTris)))
	for i := range d.BvTree {
		d.BvTree[i].toBin(w)
	}
	w.PadZero(pad(bvNodeWireSize * len(d.BvTree)))
	for i := range d.OffMeshCons {
		d.OffMeshCons[i].toBin(w)
	}
	w.PadZero(pad(offMeshConWireSize * len(d.OffMeshCons)))
	return w.Bytes()
}

// UnmarshalTileData parses a payload back into typed views. The magic and
// version fields gate the rest of the read.
func UnmarshalTileData(data []byte) (*TileData, Status) {
	if len(data) < headerWireSize {
		return nil, Failure | InvalidParam
	}
	r := rw.NewReader(data)
	d := &TileData{Header: &MeshHeader{}}
	d.Header.fromBin(r)
	if d.Header.Magic != Magic {
		return nil, Failure | WrongMagic
	}
	if d.Header.Version != Version {
		return nil, Failure | WrongVersion
	}
	h := d.Header
	want := common.Align4(int(h.VertCount)*12) +
		common.Align4(polyWireSize*int(h.PolyCount)) +
		common.Align4(linkWireSize*int(h.MaxLinkCount)) +
		common.Align4(polyDetailWireSize*int(h.DetailMeshCount)) +
		common.Align4(int(h.DetailVertCount)*12) +
		common.Align4(int(h.DetailTriCount)*4) +
		common.Align4(bvNodeWireSize*int(h.BvNodeCount)) +
		common.Align4(offMeshConWireSize*int(h.OffMeshConCount))
	if r.Remaining() < want {
		return nil, Failure | InvalidParam
	}
	r.Skip(pad(headerWireSize))

	d.Verts = make([]float32, 3*h.VertCount)
	r.ReadFloat32s(d.Verts)
	r.Skip(pad(4 * len(d.Verts)))
	d.Polys = make([]Poly, h.PolyCount)
	for i := range d.Polys {
		d.Polys[i].fromBin(r)
	}
	r.Skip(pad(polyWireSize * len(d.Polys)))
	d.Links = make([]Link, h.MaxLinkCount)
	for i := range d.Links {
		d.Links[i].fromBin(r)
	}
	r.Skip(pad(linkWireSize * len(d.Links)))
	d.DetailMeshes = make([]PolyDetail, h.DetailMeshCount)
	for i := range d.DetailMeshes {
		d.DetailMeshes[i].fromBin(r)
	}
	r.Skip(pad(polyDetailWireSize * len(d.DetailMeshes)))
	d.DetailVerts = make([]float32, 3*h.DetailVertCount)
	r.ReadFloat32s(d.DetailVerts)
	r.Skip(pad(4 * len(d.DetailVerts)))
	d.DetailTris = make([]uint8, 4*h.DetailTriCount)
	r.ReadUint8s(d.DetailTris)
	r.Skip(pad(len(d.DetailTris)))
	d.BvTree = make([]BVNode, h.BvNodeCount)
	for i := range d.BvTree {
		d.BvTree[i].fromBin(r)
	}
	r.Skip(pad(bvNodeWireSize * len(d.BvTree)))
	d.OffMeshCons = make([]OffMeshConnection, h.OffMeshConCount)
	for i := range d.OffMeshCons {
		d.OffMeshCons[i].fromBin(r)
	}
	r.Skip(pad(offMeshConWireSize * len(d.OffMeshCons)))
	return d, Success
}
