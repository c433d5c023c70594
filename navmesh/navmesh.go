// Package navmesh implements a tiled navigation mesh: rectangular tiles
// of convex polygons stitched into one logical graph with stable opaque
// references and incremental add/remove of tiles.
//
// The mesh is single-writer. Mutating calls (AddTile, RemoveTile, the
// flag and area setters) must not run concurrently with anything else;
// read-only queries may run concurrently with each other.
package navmesh

import (
	"math"

	"go.uber.org/zap"

	"tilenav/common"
)

const maxNeighbourTiles = 32

// NavMesh is a tiled navigation mesh assembled from tile payloads.
type NavMesh struct {
	params      NavMeshParams
	orig        [3]float32
	tileWidth   float32
	tileHeight  float32
	maxTiles    int32
	tileLutMask int32

	posLookup []*MeshTile // Position hash on (x, y), chained via Next.
	nextFree  *MeshTile   // Free tile slots, chained via Next.
	tiles     []MeshTile

	saltBits uint32
	tileBits uint32
	polyBits uint32

	log *zap.Logger
}

// New initializes a navigation mesh for tiled use. The reference bit
// widths are fixed here from MaxTiles and MaxPolys; init fails with
// InvalidParam when fewer than 10 salt bits remain.
func New(params *NavMeshParams, log *zap.Logger) (*NavMesh, Status) {
	if log == nil {
		log = zap.NewNop()
	}
	m := &NavMesh{
		params:     *params,
		orig:       params.Orig,
		tileWidth:  params.TileWidth,
		tileHeight: params.TileHeight,
		maxTiles:   params.MaxTiles,
		log:        log,
	}

	lutSize := int32(common.NextPow2(uint32(params.MaxTiles) / 4))
	if lutSize == 0 {
		lutSize = 1
	}
	m.tileLutMask = lutSize - 1
	m.posLookup = make([]*MeshTile, lutSize)

	// Slot 0 comes off the free list first.
	m.tiles = make([]MeshTile, m.maxTiles)
	for i := m.maxTiles - 1; i >= 0; i-- {
		m.tiles[i].salt = 1
		m.tiles[i].index = i
		m.tiles[i].Next = m.nextFree
		m.nextFree = &m.tiles[i]
	}

	m.tileBits = common.Ilog2(common.NextPow2(uint32(params.MaxTiles)))
	m.polyBits = common.Ilog2(common.NextPow2(uint32(params.MaxPolys)))
	// Only allow 31 salt bits; the salt mask is computed in 32-bit space.
	saltBits := min(int32(31), 32-int32(m.tileBits)-int32(m.polyBits))
	if saltBits < 10 {
		return nil, Failure | InvalidParam
	}
	m.saltBits = uint32(saltBits)

	return m, Success
}

// NewSolo initializes a single-tile mesh, deriving the parameters from
// the payload header, and adds the tile.
func NewSolo(data *TileData, flags int32, log *zap.Logger) (*NavMesh, TileRef, Status) {
	header := data.Header
	if header.Magic != Magic {
		return nil, 0, Failure | WrongMagic
	}
	if header.Version != Version {
		return nil, 0, Failure | WrongVersion
	}

	params := &NavMeshParams{
		Orig:       header.Bmin,
		TileWidth:  header.Bmax[0] - header.Bmin[0],
		TileHeight: header.Bmax[2] - header.Bmin[2],
		MaxTiles:   1,
		MaxPolys:   header.PolyCount,
	}
	m, status := New(params, log)
	if status.Failed() {
		return nil, 0, status
	}
	ref, status := m.AddTile(data, flags, 0)
	return m, ref, status
}

// Params returns the init-time configuration.
func (m *NavMesh) Params() *NavMeshParams { return &m.params }

// MaxTiles returns the number of tile slots.
func (m *NavMesh) MaxTiles() int32 { return m.maxTiles }

// Tile returns the slot at index i. [Limit: 0 <= i < MaxTiles()]
func (m *NavMesh) Tile(i int32) *MeshTile { return &m.tiles[i] }

// EncodePolyID packs a polygon reference from its three fields.
func (m *NavMesh) EncodePolyID(salt, it, ip uint32) PolyRef {
	return PolyRef(salt<<(m.polyBits+m.tileBits) | it<<m.polyBits | ip)
}

// DecodePolyID unpacks a polygon reference.
func (m *NavMesh) DecodePolyID(ref PolyRef) (salt, it, ip uint32) {
	saltMask := uint32(1)<<m.saltBits - 1
	tileMask := uint32(1)<<m.tileBits - 1
	polyMask := uint32(1)<<m.polyBits - 1
	salt = uint32(ref) >> (m.polyBits + m.tileBits) & saltMask
	it = uint32(ref) >> m.polyBits & tileMask
	ip = uint32(ref) & polyMask
	return
}

// DecodePolyIDSalt extracts the salt field of a polygon reference.
func (m *NavMesh) DecodePolyIDSalt(ref PolyRef) uint32 {
	saltMask := uint32(1)<<m.saltBits - 1
	return uint32(ref) >> (m.polyBits + m.tileBits) & saltMask
}

// DecodePolyIDTile extracts the tile index of a polygon reference.
func (m *NavMesh) DecodePolyIDTile(ref PolyRef) uint32 {
	tileMask := uint32(1)<<m.tileBits - 1
	return uint32(ref) >> m.polyBits & tileMask
}

// DecodePolyIDPoly extracts the polygon index of a polygon reference.
func (m *NavMesh) DecodePolyIDPoly(ref PolyRef) uint32 {
	polyMask := uint32(1)<<m.polyBits - 1
	return uint32(ref) & polyMask
}

// PolyRefBase returns the reference of the tile's polygon 0; references
// of the other polygons are formed by or-ing in the polygon index.
func (m *NavMesh) PolyRefBase(tile *MeshTile) PolyRef {
	if tile == nil {
		return 0
	}
	return m.EncodePolyID(tile.salt, uint32(tile.index), 0)
}

// TileRefFor returns the reference of a tile slot.
func (m *NavMesh) TileRefFor(tile *MeshTile) TileRef {
	if tile == nil {
		return 0
	}
	return TileRef(m.EncodePolyID(tile.salt, uint32(tile.index), 0))
}

// CalcTileLoc returns the tile grid location containing a world position.
func (m *NavMesh) CalcTileLoc(pos []float32) (tx, ty int32) {
	tx = int32(math.Floor(float64((pos[0] - m.orig[0]) / m.tileWidth)))
	ty = int32(math.Floor(float64((pos[2] - m.orig[2]) / m.tileHeight)))
	return
}

// TileAt returns the tile at the grid location, or nil.
func (m *NavMesh) TileAt(x, y, layer int32) *MeshTile {
	h := common.ComputeTileHash(x, y, m.tileLutMask)
	for tile := m.posLookup[h]; tile != nil; tile = tile.Next {
		if tile.Header != nil &&
			tile.Header.X == x && tile.Header.Y == y && tile.Header.Layer == layer {
			return tile
		}
	}
	return nil
}

// TilesAt collects every layer of the (x, y) column into tiles, returning
// the count; extra layers beyond len(tiles) are dropped.
func (m *NavMesh) TilesAt(x, y int32, tiles []*MeshTile) int32 {
	n := int32(0)
	h := common.ComputeTileHash(x, y, m.tileLutMask)
	for tile := m.posLookup[h]; tile != nil; tile = tile.Next {
		if tile.Header != nil && tile.Header.X == x && tile.Header.Y == y {
			if int(n) < len(tiles) {
				tiles[n] = tile
				n++
			}
		}
	}
	return n
}

// TileRefAt returns the reference of the tile at the grid location, or 0.
func (m *NavMesh) TileRefAt(x, y, layer int32) TileRef {
	return m.TileRefFor(m.TileAt(x, y, layer))
}

// TileByRef resolves a tile reference, or nil when stale or invalid.
func (m *NavMesh) TileByRef(ref TileRef) *MeshTile {
	if ref == 0 {
		return nil
	}
	it := m.DecodePolyIDTile(PolyRef(ref))
	salt := m.DecodePolyIDSalt(PolyRef(ref))
	if it >= uint32(m.maxTiles) {
		return nil
	}
	tile := &m.tiles[it]
	if tile.salt != salt {
		return nil
	}
	return tile
}

// neighbourTilesAt collects the tiles one step from (x, y) along a
// compass direction 0..7.
func (m *NavMesh) neighbourTilesAt(x, y, side int32, tiles []*MeshTile) int32 {
	nx, ny := x, y
	switch side {
	case 0:
		nx++
	case 1:
		nx++
		ny++
	case 2:
		ny++
	case 3:
		nx--
		ny++
	case 4:
		nx--
	case 5:
		nx--
		ny--
	case 6:
		ny--
	case 7:
		nx++
		ny--
	}
	return m.TilesAt(nx, ny, tiles)
}

// AddTile adds a tile payload to the mesh and stitches it to its
// neighbours. A non-zero lastRef re-instates the tile in the exact slot
// and salt it previously occupied so stale references resolve again.
//
// The mesh assumes exclusive access to the payload: link storage and
// snapped off-mesh vertices are written in place. Do not share the
// payload with another mesh until it is removed here.
func (m *NavMesh) AddTile(data *TileData, flags int32, lastRef TileRef) (TileRef, Status) {
	header := data.Header
	if header.Magic != Magic {
		return 0, Failure | WrongMagic
	}
	if header.Version != Version {
		return 0, Failure | WrongVersion
	}

	// The polygon indices of this payload must fit the poly field.
	if m.polyBits < common.Ilog2(common.NextPow2(uint32(header.PolyCount))) {
		return 0, Failure | InvalidParam
	}

	if m.TileAt(header.X, header.Y, header.Layer) != nil {
		return 0, Failure | AlreadyOccupied
	}

	var tile *MeshTile
	if lastRef == 0 {
		if m.nextFree != nil {
			tile = m.nextFree
			m.nextFree = tile.Next
			tile.Next = nil
		}
	} else {
		// Relocate the tile to the slot the old reference names.
		tileIndex := m.DecodePolyIDTile(PolyRef(lastRef))
		if tileIndex >= uint32(m.maxTiles) {
			return 0, Failure | OutOfMemory
		}
		target := &m.tiles[tileIndex]
		var prev *MeshTile
		tile = m.nextFree
		for tile != nil && tile != target {
			prev = tile
			tile = tile.Next
		}
		if tile != target {
			// The slot is occupied or the index is bad.
			return 0, Failure | OutOfMemory
		}
		if prev == nil {
			m.nextFree = tile.Next
		} else {
			prev.Next = tile.Next
		}
		tile.Next = nil

		// Restore salt so the old references stay valid.
		tile.salt = m.DecodePolyIDSalt(PolyRef(lastRef))
	}

	if tile == nil {
		return 0, Failure | OutOfMemory
	}

	// Insert into the position hash.
	h := common.ComputeTileHash(header.X, header.Y, m.tileLutMask)
	tile.Next = m.posLookup[h]
	m.posLookup[h] = tile

	// Patch the payload views into the slot.
	tile.Verts = data.Verts
	tile.Polys = data.Polys
	tile.Links = data.Links
	tile.DetailMeshes = data.DetailMeshes
	tile.DetailVerts = data.DetailVerts
	tile.DetailTris = data.DetailTris
	tile.BvTree = data.BvTree
	if len(tile.BvTree) == 0 {
		tile.BvTree = nil
	}
	tile.OffMeshCons = data.OffMeshCons

	// Lace the whole link pool back into the free list.
	if header.MaxLinkCount > 0 {
		tile.linksFreeList = 0
		tile.Links[header.MaxLinkCount-1].Next = NullLink
		for i := int32(0); i < header.MaxLinkCount-1; i++ {
			tile.Links[i].Next = uint32(i) + 1
		}
	} else {
		tile.linksFreeList = NullLink
	}

	tile.Header = header
	tile.Data = data
	tile.Flags = flags

	m.connectIntLinks(tile)

	// Base off-mesh connections to their start polygons, then connect the
	// ones that stay inside this tile.
	m.baseOffMeshLinks(tile)
	m.connectExtOffMeshLinks(tile, tile, -1)

	var neis [maxNeighbourTiles]*MeshTile

	// Connect with the other layers in this column.
	nneis := m.TilesAt(header.X, header.Y, neis[:])
	for j := int32(0); j < nneis; j++ {
		if neis[j] == tile {
			continue
		}
		m.connectExtLinks(tile, neis[j], -1)
		m.connectExtLinks(neis[j], tile, -1)
		m.connectExtOffMeshLinks(tile, neis[j], -1)
		m.connectExtOffMeshLinks(neis[j], tile, -1)
	}

	// Connect with the eight compass neighbours, both directions.
	for i := int32(0); i < 8; i++ {
		nneis = m.neighbourTilesAt(header.X, header.Y, i, neis[:])
		for j := int32(0); j < nneis; j++ {
			m.connectExtLinks(tile, neis[j], i)
			m.connectExtLinks(neis[j], tile, OppositeTile(i))
			m.connectExtOffMeshLinks(tile, neis[j], i)
			m.connectExtOffMeshLinks(neis[j], tile, OppositeTile(i))
		}
	}

	ref := m.TileRefFor(tile)
	m.log.Debug("tile added",
		zap.Int32("x", header.X), zap.Int32("y", header.Y),
		zap.Int32("layer", header.Layer), zap.Uint32("ref", uint32(ref)))
	return ref, Success
}

// RemoveTile removes the referenced tile and unstitches it from every
// neighbour. When the mesh does not own the payload it is returned so
// the caller can re-add it later.
func (m *NavMesh) RemoveTile(ref TileRef) (*TileData, Status) {
	if ref == 0 {
		return nil, Failure | InvalidParam
	}
	tileIndex := m.DecodePolyIDTile(PolyRef(ref))
	tileSalt := m.DecodePolyIDSalt(PolyRef(ref))
	if tileIndex >= uint32(m.maxTiles) {
		return nil, Failure | InvalidParam
	}
	tile := &m.tiles[tileIndex]
	if tile.salt != tileSalt || tile.Header == nil {
		return nil, Failure | InvalidParam
	}

	// Remove from the position hash bucket.
	h := common.ComputeTileHash(tile.Header.X, tile.Header.Y, m.tileLutMask)
	var prev *MeshTile
	for cur := m.posLookup[h]; cur != nil; cur = cur.Next {
		if cur == tile {
			if prev != nil {
				prev.Next = cur.Next
			} else {
				m.posLookup[h] = cur.Next
			}
			break
		}
		prev = cur
	}

	var neis [maxNeighbourTiles]*MeshTile

	// Disconnect the other layers in this column.
	nneis := m.TilesAt(tile.Header.X, tile.Header.Y, neis[:])
	for j := int32(0); j < nneis; j++ {
		if neis[j] == tile {
			continue
		}
		m.unconnectLinks(neis[j], tile)
	}

	// Disconnect the compass neighbours.
	for i := int32(0); i < 8; i++ {
		nneis = m.neighbourTilesAt(tile.Header.X, tile.Header.Y, i, neis[:])
		for j := int32(0); j < nneis; j++ {
			m.unconnectLinks(neis[j], tile)
		}
	}

	var data *TileData
	if tile.Flags&TileFreeData != 0 {
		tile.Data = nil
	} else {
		data = tile.Data
	}

	m.log.Debug("tile removed",
		zap.Int32("x", tile.Header.X), zap.Int32("y", tile.Header.Y),
		zap.Int32("layer", tile.Header.Layer))

	tile.Header = nil
	tile.Data = nil
	tile.Flags = 0
	tile.linksFreeList = 0
	tile.Polys = nil
	tile.Verts = nil
	tile.Links = nil
	tile.DetailMeshes = nil
	tile.DetailVerts = nil
	tile.DetailTris = nil
	tile.BvTree = nil
	tile.OffMeshCons = nil

	// Bump salt; zero would alias the next occupant with stale refs.
	tile.salt = (tile.salt + 1) & (1<<m.saltBits - 1)
	if tile.salt == 0 {
		tile.salt++
	}

	tile.Next = m.nextFree
	m.nextFree = tile

	return data, Success
}

// IsValidPolyRef reports whether a reference resolves to a live polygon.
func (m *NavMesh) IsValidPolyRef(ref PolyRef) bool {
	if ref == 0 {
		return false
	}
	salt, it, ip := m.DecodePolyID(ref)
	if it >= uint32(m.maxTiles) {
		return false
	}
	if m.tiles[it].salt != salt || m.tiles[it].Header == nil {
		return false
	}
	return ip < uint32(m.tiles[it].Header.PolyCount)
}

// TileAndPolyByRef resolves a polygon reference with full validation.
func (m *NavMesh) TileAndPolyByRef(ref PolyRef) (*MeshTile, *Poly, Status) {
	if ref == 0 {
		return nil, nil, Failure
	}
	salt, it, ip := m.DecodePolyID(ref)
	if it >= uint32(m.maxTiles) {
		return nil, nil, Failure | InvalidParam
	}
	tile := &m.tiles[it]
	if tile.salt != salt || tile.Header == nil {
		return nil, nil, Failure | InvalidParam
	}
	if ip >= uint32(tile.Header.PolyCount) {
		return nil, nil, Failure | InvalidParam
	}
	return tile, &tile.Polys[ip], Success
}

// TileAndPolyByRefUnsafe resolves a known-valid reference without
// validation. Faster than TileAndPolyByRef; only use when the reference
// is guaranteed live.
func (m *NavMesh) TileAndPolyByRefUnsafe(ref PolyRef) (*MeshTile, *Poly) {
	_, it, ip := m.DecodePolyID(ref)
	return &m.tiles[it], &m.tiles[it].Polys[ip]
}

// SetPolyFlags replaces the user flags of a polygon.
func (m *NavMesh) SetPolyFlags(ref PolyRef, flags uint16) Status {
	_, poly, status := m.TileAndPolyByRef(ref)
	if status.Failed() {
		return status
	}
	poly.Flags = flags
	return Success
}

// PolyFlags returns the user flags of a polygon.
func (m *NavMesh) PolyFlags(ref PolyRef) (uint16, Status) {
	_, poly, status := m.TileAndPolyByRef(ref)
	if status.Failed() {
		return 0, status
	}
	return poly.Flags, Success
}

// SetPolyArea replaces the area id of a polygon. [Limit: < MaxAreas]
func (m *NavMesh) SetPolyArea(ref PolyRef, area uint8) Status {
	_, poly, status := m.TileAndPolyByRef(ref)
	if status.Failed() {
		return status
	}
	poly.SetArea(area)
	return Success
}

// PolyArea returns the area id of a polygon.
func (m *NavMesh) PolyArea(ref PolyRef) (uint8, Status) {
	_, poly, status := m.TileAndPolyByRef(ref)
	if status.Failed() {
		return 0, status
	}
	return poly.Area(), Success
}

// OffMeshConnectionPolyEndPoints returns an off-mesh connection's
// endpoints ordered by direction of travel: prevRef names the polygon
// the agent is entering from.
func (m *NavMesh) OffMeshConnectionPolyEndPoints(prevRef, polyRef PolyRef, startPos, endPos []float32) Status {
	if polyRef == 0 {
		return Failure
	}
	tile, poly, status := m.TileAndPolyByRef(polyRef)
	if status.Failed() {
		return Failure | InvalidParam
	}
	if poly.Type() != PolyTypeOffMeshConnection {
		return Failure
	}

	idx0, idx1 := 0, 1
	// The link with edge 0 leads back to the entry side.
	for i := poly.FirstLink; i != NullLink; i = tile.Links[i].Next {
		if tile.Links[i].Edge == 0 {
			if tile.Links[i].Ref != prevRef {
				idx0, idx1 = 1, 0
			}
			break
		}
	}

	common.Vcopy(startPos, common.Vert3(tile.Verts, poly.Verts[idx0]))
	common.Vcopy(endPos, common.Vert3(tile.Verts, poly.Verts[idx1]))
	return Success
}

// OffMeshConnectionByRef returns the descriptor of an off-mesh
// connection polygon, or nil when the reference is not one.
func (m *NavMesh) OffMeshConnectionByRef(ref PolyRef) *OffMeshConnection {
	tile, poly, status := m.TileAndPolyByRef(ref)
	if status.Failed() {
		return nil
	}
	if poly.Type() != PolyTypeOffMeshConnection {
		return nil
	}
	ip := m.DecodePolyIDPoly(ref)
	idx := int32(ip) - tile.Header.OffMeshBase
	if idx < 0 || idx >= tile.Header.OffMeshConCount {
		return nil
	}
	return &tile.OffMeshCons[idx]
}
