package tilecache

import (
	"tilenav/common"
	"tilenav/common/rw"
	"tilenav/navmesh"
)

const layerHeaderWireSize = 54

func (h *LayerHeader) toBin(w *rw.ReaderWriter) {
	w.WriteInt32(h.Magic)
	w.WriteInt32(h.Version)
	w.WriteInt32(h.TX)
	w.WriteInt32(h.TY)
	w.WriteInt32(h.TLayer)
	w.WriteFloat32s(h.Bmin[:])
	w.WriteFloat32s(h.Bmax[:])
	w.WriteUint16(h.HMin)
	w.WriteUint16(h.HMax)
	w.WriteUint8(h.Width)
	w.WriteUint8(h.Height)
	w.WriteUint8(h.MinX)
	w.WriteUint8(h.MaxX)
	w.WriteUint8(h.MinY)
	w.WriteUint8(h.MaxY)
}

func (h *LayerHeader) fromBin(r *rw.ReaderWriter) {
	h.Magic = r.ReadInt32()
	h.Version = r.ReadInt32()
	h.TX = r.ReadInt32()
	h.TY = r.ReadInt32()
	h.TLayer = r.ReadInt32()
	r.ReadFloat32s(h.Bmin[:])
	r.ReadFloat32s(h.Bmax[:])
	h.HMin = r.ReadUint16()
	h.HMax = r.ReadUint16()
	h.Width = r.ReadUint8()
	h.Height = r.ReadUint8()
	h.MinX = r.ReadUint8()
	h.MaxX = r.ReadUint8()
	h.MinY = r.ReadUint8()
	h.MaxY = r.ReadUint8()
}

func pad(n int) int { return common.Align4(n) - n }

// BuildLayerData serializes a layer into a cache tile payload: the
// header followed by the compressed concatenation of the height, area
// and connectivity grids.
func BuildLayerData(header *LayerHeader, heights, areas, cons []uint8, comp Compressor) ([]byte, navmesh.Status) {
	gridSize := int(header.Width) * int(header.Height)
	if len(heights) != gridSize || len(areas) != gridSize || len(cons) != gridSize {
		return nil, navmesh.Failure | navmesh.InvalidParam
	}

	w := rw.NewWriter()
	header.toBin(w)
	w.PadZero(pad(layerHeaderWireSize))

	buffer := make([]byte, 0, gridSize*3)
	buffer = append(buffer, heights...)
	buffer = append(buffer, areas...)
	buffer = append(buffer, cons...)

	compressed, status := comp.Compress(make([]byte, 0, comp.MaxCompressedSize(len(buffer))), buffer)
	if status.Failed() {
		return nil, status
	}
	w.WriteUint8s(compressed)
	return w.Bytes(), navmesh.Success
}

// parseLayerHeader carves the header and the compressed region out of a
// payload without touching the grids.
func parseLayerHeader(data []byte) (*LayerHeader, []byte, navmesh.Status) {
	if len(data) < common.Align4(layerHeaderWireSize) {
		return nil, nil, navmesh.Failure | navmesh.InvalidParam
	}
	r := rw.NewReader(data)
	header := &LayerHeader{}
	header.fromBin(r)
	if header.Magic != LayerMagic {
		return nil, nil, navmesh.Failure | navmesh.WrongMagic
	}
	if header.Version != LayerVersion {
		return nil, nil, navmesh.Failure | navmesh.WrongVersion
	}
	return header, data[common.Align4(layerHeaderWireSize):], navmesh.Success
}

// decompressLayer expands a tile's grids into a Layer backed by scratch
// memory. The region grid starts zeroed for the builder to fill.
func decompressLayer(tile *CompressedTile, comp Compressor, alloc ScratchAllocator) (*Layer, navmesh.Status) {
	gridSize := int(tile.Header.Width) * int(tile.Header.Height)
	buffer, status := comp.Decompress(alloc.Alloc(gridSize*3), tile.Compressed)
	if status.Failed() {
		return nil, status
	}
	if len(buffer) != gridSize*3 {
		return nil, navmesh.Failure | navmesh.InvalidParam
	}

	layer := &Layer{
		Header:  tile.Header,
		Heights: buffer[:gridSize],
		Areas:   buffer[gridSize : gridSize*2],
		Cons:    buffer[gridSize*2:],
		Regs:    alloc.Alloc(gridSize),
	}
	for i := range layer.Regs {
		layer.Regs[i] = 0
	}
	return layer, navmesh.Success
}
