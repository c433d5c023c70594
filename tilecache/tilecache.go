package tilecache

import (
	"math"

	"go.uber.org/zap"

	"tilenav/common"
	"tilenav/navmesh"
)

const obstacleSaltBits = 16

// TileCache owns the compressed tile slots and the obstacle set, and
// rebuilds affected navmesh tiles when obstacles change.
type TileCache struct {
	params Params

	tileLutMask int32
	posLookup   []*CompressedTile
	nextFree    *CompressedTile
	tiles       []CompressedTile

	saltBits uint32
	tileBits uint32

	comp    Compressor
	proc    MeshProcess
	builder LayerMeshBuilder
	alloc   ScratchAllocator

	obstacles        []Obstacle
	nextFreeObstacle *Obstacle

	reqs  [maxRequests]obstacleRequest
	nreqs int32

	update  [maxUpdate]CompressedTileRef
	nupdate int32

	log *zap.Logger
}

// New initializes a tile cache. comp and builder are required
// collaborators; proc may be nil, and a nil alloc gets a scratch arena
// sized for one layer.
func New(params *Params, comp Compressor, builder LayerMeshBuilder, proc MeshProcess, alloc ScratchAllocator, log *zap.Logger) (*TileCache, navmesh.Status) {
	if params == nil || comp == nil || builder == nil {
		return nil, navmesh.Failure | navmesh.InvalidParam
	}
	if log == nil {
		log = zap.NewNop()
	}
	if alloc == nil {
		alloc = NewScratchArena(int(params.Width) * int(params.Height) * 4)
	}
	c := &TileCache{
		params:  *params,
		comp:    comp,
		proc:    proc,
		builder: builder,
		alloc:   alloc,
		log:     log,
	}

	// Obstacle slots, newest free at head.
	c.obstacles = make([]Obstacle, params.MaxObstacles)
	for i := params.MaxObstacles - 1; i >= 0; i-- {
		c.obstacles[i].salt = 1
		c.obstacles[i].index = i
		c.obstacles[i].next = c.nextFreeObstacle
		c.nextFreeObstacle = &c.obstacles[i]
	}

	// Tile slots and the position lookup.
	lutSize := int32(common.NextPow2(uint32(params.MaxTiles) / 4))
	if lutSize == 0 {
		lutSize = 1
	}
	c.tileLutMask = lutSize - 1
	c.posLookup = make([]*CompressedTile, lutSize)
	c.tiles = make([]CompressedTile, params.MaxTiles)
	for i := params.MaxTiles - 1; i >= 0; i-- {
		c.tiles[i].salt = 1
		c.tiles[i].index = i
		c.tiles[i].next = c.nextFree
		c.nextFree = &c.tiles[i]
	}

	c.tileBits = common.Ilog2(common.NextPow2(uint32(params.MaxTiles)))
	// Only allow 31 salt bits; the mask is computed in 32-bit space.
	saltBits := min(int32(31), 32-int32(c.tileBits))
	if saltBits < 10 {
		return nil, navmesh.Failure | navmesh.InvalidParam
	}
	c.saltBits = uint32(saltBits)

	return c, navmesh.Success
}

// Params returns the init-time configuration.
func (c *TileCache) Params() *Params { return &c.params }

// TileCount returns the number of tile slots.
func (c *TileCache) TileCount() int32 { return c.params.MaxTiles }

// Tile returns the slot at index i.
func (c *TileCache) Tile(i int32) *CompressedTile { return &c.tiles[i] }

// ObstacleCount returns the number of obstacle slots.
func (c *TileCache) ObstacleCount() int32 { return c.params.MaxObstacles }

// ObstacleAt returns the obstacle slot at index i.
func (c *TileCache) ObstacleAt(i int32) *Obstacle { return &c.obstacles[i] }

// EncodeTileID packs a compressed tile reference.
func (c *TileCache) EncodeTileID(salt uint32, it int32) CompressedTileRef {
	return CompressedTileRef(salt<<c.tileBits | uint32(it))
}

// DecodeTileIDSalt extracts the salt of a compressed tile reference.
func (c *TileCache) DecodeTileIDSalt(ref CompressedTileRef) uint32 {
	saltMask := uint32(1)<<c.saltBits - 1
	return uint32(ref) >> c.tileBits & saltMask
}

// DecodeTileIDTile extracts the slot index of a compressed tile reference.
func (c *TileCache) DecodeTileIDTile(ref CompressedTileRef) uint32 {
	tileMask := uint32(1)<<c.tileBits - 1
	return uint32(ref) & tileMask
}

// EncodeObstacleID packs an obstacle reference.
func (c *TileCache) EncodeObstacleID(salt uint32, it int32) ObstacleRef {
	return ObstacleRef(salt<<obstacleSaltBits | uint32(it))
}

// DecodeObstacleIDSalt extracts the salt of an obstacle reference.
func (c *TileCache) DecodeObstacleIDSalt(ref ObstacleRef) uint32 {
	return uint32(ref) >> obstacleSaltBits & (1<<obstacleSaltBits - 1)
}

// DecodeObstacleIDObstacle extracts the slot index of an obstacle
// reference.
func (c *TileCache) DecodeObstacleIDObstacle(ref ObstacleRef) uint32 {
	return uint32(ref) & (1<<obstacleSaltBits - 1)
}

// TileRefFor returns the reference of a tile slot.
func (c *TileCache) TileRefFor(tile *CompressedTile) CompressedTileRef {
	if tile == nil {
		return 0
	}
	return c.EncodeTileID(tile.salt, tile.index)
}

// TileByRef resolves a compressed tile reference, or nil when stale.
func (c *TileCache) TileByRef(ref CompressedTileRef) *CompressedTile {
	if ref == 0 {
		return nil
	}
	it := c.DecodeTileIDTile(ref)
	if it >= uint32(c.params.MaxTiles) {
		return nil
	}
	tile := &c.tiles[it]
	if tile.salt != c.DecodeTileIDSalt(ref) {
		return nil
	}
	return tile
}

// ObstacleRefFor returns the reference of an obstacle slot.
func (c *TileCache) ObstacleRefFor(ob *Obstacle) ObstacleRef {
	if ob == nil {
		return 0
	}
	return c.EncodeObstacleID(ob.salt, ob.index)
}

// ObstacleByRef resolves an obstacle reference, or nil when stale.
func (c *TileCache) ObstacleByRef(ref ObstacleRef) *Obstacle {
	if ref == 0 {
		return nil
	}
	idx := c.DecodeObstacleIDObstacle(ref)
	if idx >= uint32(c.params.MaxObstacles) {
		return nil
	}
	ob := &c.obstacles[idx]
	if ob.salt != c.DecodeObstacleIDSalt(ref) {
		return nil
	}
	return ob
}

// TileAt returns the tile at the layer grid location, or nil.
func (c *TileCache) TileAt(tx, ty, tlayer int32) *CompressedTile {
	h := common.ComputeTileHash(tx, ty, c.tileLutMask)
	for tile := c.posLookup[h]; tile != nil; tile = tile.next {
		if tile.Header != nil &&
			tile.Header.TX == tx && tile.Header.TY == ty && tile.Header.TLayer == tlayer {
			return tile
		}
	}
	return nil
}

// TilesAt collects the references of every layer in the (tx, ty) column.
func (c *TileCache) TilesAt(tx, ty int32, tiles []CompressedTileRef) int32 {
	n := int32(0)
	h := common.ComputeTileHash(tx, ty, c.tileLutMask)
	for tile := c.posLookup[h]; tile != nil; tile = tile.next {
		if tile.Header != nil && tile.Header.TX == tx && tile.Header.TY == ty {
			if int(n) < len(tiles) {
				tiles[n] = c.TileRefFor(tile)
				n++
			}
		}
	}
	return n
}

// AddTile inserts a compressed layer payload into the cache.
func (c *TileCache) AddTile(data []byte, flags int32) (CompressedTileRef, navmesh.Status) {
	header, compressed, status := parseLayerHeader(data)
	if status.Failed() {
		return 0, status
	}

	if c.TileAt(header.TX, header.TY, header.TLayer) != nil {
		return 0, navmesh.Failure | navmesh.AlreadyOccupied
	}

	var tile *CompressedTile
	if c.nextFree != nil {
		tile = c.nextFree
		c.nextFree = tile.next
		tile.next = nil
	}
	if tile == nil {
		return 0, navmesh.Failure | navmesh.OutOfMemory
	}

	h := common.ComputeTileHash(header.TX, header.TY, c.tileLutMask)
	tile.next = c.posLookup[h]
	c.posLookup[h] = tile

	tile.Header = header
	tile.Compressed = compressed
	tile.Data = data
	tile.flags = flags

	return c.TileRefFor(tile), navmesh.Success
}

// RemoveTile removes a tile from the cache, returning the payload when
// the cache does not own it.
func (c *TileCache) RemoveTile(ref CompressedTileRef) ([]byte, navmesh.Status) {
	if ref == 0 {
		return nil, navmesh.Failure | navmesh.InvalidParam
	}
	it := c.DecodeTileIDTile(ref)
	if it >= uint32(c.params.MaxTiles) {
		return nil, navmesh.Failure | navmesh.InvalidParam
	}
	tile := &c.tiles[it]
	if tile.salt != c.DecodeTileIDSalt(ref) || tile.Header == nil {
		return nil, navmesh.Failure | navmesh.InvalidParam
	}

	// Remove from the position hash bucket.
	h := common.ComputeTileHash(tile.Header.TX, tile.Header.TY, c.tileLutMask)
	var prev *CompressedTile
	for cur := c.posLookup[h]; cur != nil; cur = cur.next {
		if cur == tile {
			if prev != nil {
				prev.next = cur.next
			} else {
				c.posLookup[h] = cur.next
			}
			break
		}
		prev = cur
	}

	var data []byte
	if tile.flags&CompressedTileFreeData == 0 {
		data = tile.Data
	}

	tile.Header = nil
	tile.Compressed = nil
	tile.Data = nil
	tile.flags = 0

	// Bump salt; never zero.
	tile.salt = (tile.salt + 1) & (1<<c.saltBits - 1)
	if tile.salt == 0 {
		tile.salt++
	}

	tile.next = c.nextFree
	c.nextFree = tile

	return data, navmesh.Success
}

// allocObstacle pulls a fresh obstacle slot, clearing everything but the
// slot identity.
func (c *TileCache) allocObstacle() *Obstacle {
	ob := c.nextFreeObstacle
	if ob == nil {
		return nil
	}
	c.nextFreeObstacle = ob.next
	ob.next = nil

	salt, index := ob.salt, ob.index
	*ob = Obstacle{salt: salt, index: index}
	return ob
}

// AddObstacle requests a cylindrical obstacle. The obstacle enters
// PROCESSING and takes effect over the following Update calls.
func (c *TileCache) AddObstacle(pos []float32, radius, height float32) (ObstacleRef, navmesh.Status) {
	if c.nreqs >= maxRequests {
		return 0, navmesh.Failure | navmesh.BufferTooSmall
	}
	ob := c.allocObstacle()
	if ob == nil {
		return 0, navmesh.Failure | navmesh.OutOfMemory
	}
	ob.state = ObstacleProcessing
	ob.kind = ObstacleCylinder
	copy(ob.cylinder.pos[:], pos)
	ob.cylinder.radius = radius
	ob.cylinder.height = height

	ref := c.ObstacleRefFor(ob)
	c.reqs[c.nreqs] = obstacleRequest{action: requestAdd, ref: ref}
	c.nreqs++
	return ref, navmesh.Success
}

// AddBoxObstacle requests an axis-aligned box obstacle.
func (c *TileCache) AddBoxObstacle(bmin, bmax []float32) (ObstacleRef, navmesh.Status) {
	if c.nreqs >= maxRequests {
		return 0, navmesh.Failure | navmesh.BufferTooSmall
	}
	ob := c.allocObstacle()
	if ob == nil {
		return 0, navmesh.Failure | navmesh.OutOfMemory
	}
	ob.state = ObstacleProcessing
	ob.kind = ObstacleBox
	copy(ob.box.bmin[:], bmin)
	copy(ob.box.bmax[:], bmax)

	ref := c.ObstacleRefFor(ob)
	c.reqs[c.nreqs] = obstacleRequest{action: requestAdd, ref: ref}
	c.nreqs++
	return ref, navmesh.Success
}

// AddBoxObstacleRotY requests a box obstacle rotated about the y-axis.
// The rotation auxiliaries consumed by the rasteriser are precomputed
// here from the half-angle.
func (c *TileCache) AddBoxObstacleRotY(center, halfExtents []float32, yRadians float32) (ObstacleRef, navmesh.Status) {
	if c.nreqs >= maxRequests {
		return 0, navmesh.Failure | navmesh.BufferTooSmall
	}
	ob := c.allocObstacle()
	if ob == nil {
		return 0, navmesh.Failure | navmesh.OutOfMemory
	}
	ob.state = ObstacleProcessing
	ob.kind = ObstacleOrientedBox
	copy(ob.orientedBox.center[:], center)
	copy(ob.orientedBox.halfExtents[:], halfExtents)

	coshalf := float32(math.Cos(0.5 * float64(yRadians)))
	sinhalf := float32(math.Sin(-0.5 * float64(yRadians)))
	ob.orientedBox.rotAux[0] = coshalf * sinhalf
	ob.orientedBox.rotAux[1] = coshalf*coshalf - 0.5

	ref := c.ObstacleRefFor(ob)
	c.reqs[c.nreqs] = obstacleRequest{action: requestAdd, ref: ref}
	c.nreqs++
	return ref, navmesh.Success
}

// RemoveObstacle requests an obstacle's removal. Removing an obstacle
// that is still PROCESSING is allowed; its touched set becomes the new
// pending set.
func (c *TileCache) RemoveObstacle(ref ObstacleRef) navmesh.Status {
	if ref == 0 {
		return navmesh.Success
	}
	if c.nreqs >= maxRequests {
		return navmesh.Failure | navmesh.BufferTooSmall
	}
	c.reqs[c.nreqs] = obstacleRequest{action: requestRemove, ref: ref}
	c.nreqs++
	return navmesh.Success
}

// QueryTiles collects the cache tiles whose tight bounds overlap the
// world-space box.
func (c *TileCache) QueryTiles(bmin, bmax []float32, results []CompressedTileRef) (int32, navmesh.Status) {
	var tiles [maxTouchedTiles * 4]CompressedTileRef

	n := int32(0)
	tw := float32(c.params.Width) * c.params.Cs
	th := float32(c.params.Height) * c.params.Cs
	tx0 := int32(math.Floor(float64((bmin[0] - c.params.Orig[0]) / tw)))
	tx1 := int32(math.Floor(float64((bmax[0] - c.params.Orig[0]) / tw)))
	ty0 := int32(math.Floor(float64((bmin[2] - c.params.Orig[2]) / th)))
	ty1 := int32(math.Floor(float64((bmax[2] - c.params.Orig[2]) / th)))

	tbmin := make([]float32, 3)
	tbmax := make([]float32, 3)
	for ty := ty0; ty <= ty1; ty++ {
		for tx := tx0; tx <= tx1; tx++ {
			ntiles := c.TilesAt(tx, ty, tiles[:])
			for i := int32(0); i < ntiles; i++ {
				tile := &c.tiles[c.DecodeTileIDTile(tiles[i])]
				c.CalcTightTileBounds(tile.Header, tbmin, tbmax)
				if common.OverlapBounds(bmin, bmax, tbmin, tbmax) {
					if int(n) < len(results) {
						results[n] = tiles[i]
						n++
					}
				}
			}
		}
	}
	return n, navmesh.Success
}

// CalcTightTileBounds derives a layer's bounds from its usable
// sub-region rather than the full tile box.
func (c *TileCache) CalcTightTileBounds(header *LayerHeader, bmin, bmax []float32) {
	cs := c.params.Cs
	bmin[0] = header.Bmin[0] + float32(header.MinX)*cs
	bmin[1] = header.Bmin[1]
	bmin[2] = header.Bmin[2] + float32(header.MinY)*cs
	bmax[0] = header.Bmin[0] + float32(header.MaxX+1)*cs
	bmax[1] = header.Bmax[1]
	bmax[2] = header.Bmin[2] + float32(header.MaxY+1)*cs
}

// ObstacleBounds returns the conservative world bounds of an obstacle.
// Oriented boxes use radius 1.41 times the larger horizontal extent so
// any rotation stays covered.
func (c *TileCache) ObstacleBounds(ob *Obstacle, bmin, bmax []float32) {
	switch ob.kind {
	case ObstacleCylinder:
		cl := &ob.cylinder
		bmin[0] = cl.pos[0] - cl.radius
		bmin[1] = cl.pos[1]
		bmin[2] = cl.pos[2] - cl.radius
		bmax[0] = cl.pos[0] + cl.radius
		bmax[1] = cl.pos[1] + cl.height
		bmax[2] = cl.pos[2] + cl.radius
	case ObstacleBox:
		copy(bmin, ob.box.bmin[:])
		copy(bmax, ob.box.bmax[:])
	case ObstacleOrientedBox:
		orientedBox := &ob.orientedBox
		maxr := 1.41 * max(orientedBox.halfExtents[0], orientedBox.halfExtents[2])
		bmin[0] = orientedBox.center[0] - maxr
		bmax[0] = orientedBox.center[0] + maxr
		bmin[1] = orientedBox.center[1] - orientedBox.halfExtents[1]
		bmax[1] = orientedBox.center[1] + orientedBox.halfExtents[1]
		bmin[2] = orientedBox.center[2] - maxr
		bmax[2] = orientedBox.center[2] + maxr
	}
}

func containsRef(a []CompressedTileRef, n int32, v CompressedTileRef) bool {
	for i := int32(0); i < n; i++ {
		if a[i] == v {
			return true
		}
	}
	return false
}

// Update drains the request queue when no rebuilds are pending, then
// performs at most one tile rebuild. Call repeatedly until upToDate to
// flush all pending work; the caller caps per-frame cost by bounding the
// number of calls.
func (c *TileCache) Update(dt float32, nav *navmesh.NavMesh) (upToDate bool, status navmesh.Status) {
	_ = dt
	if c.nupdate == 0 {
		// Process requests.
		for i := int32(0); i < c.nreqs; i++ {
			req := &c.reqs[i]

			ob := c.ObstacleByRef(req.ref)
			if ob == nil {
				// Stale request; skip it.
				c.log.Warn("obstacle request dropped", zap.Uint32("ref", uint32(req.ref)))
				continue
			}

			switch req.action {
			case requestAdd:
				// Find touched tiles.
				bmin := make([]float32, 3)
				bmax := make([]float32, 3)
				c.ObstacleBounds(ob, bmin, bmax)

				ntouched, _ := c.QueryTiles(bmin, bmax, ob.touched[:])
				ob.ntouched = ntouched
				// Queue the touched tiles for rebuild.
				ob.npending = 0
				for j := int32(0); j < ob.ntouched; j++ {
					if !containsRef(c.update[:], c.nupdate, ob.touched[j]) {
						if c.nupdate >= maxUpdate {
							continue
						}
						c.update[c.nupdate] = ob.touched[j]
						c.nupdate++
					}
					ob.pending[ob.npending] = ob.touched[j]
					ob.npending++
				}

			case requestRemove:
				// Prepare the obstacle for removal; the touched set is
				// rebuilt without it.
				ob.state = ObstacleRemoving
				ob.npending = 0
				for j := int32(0); j < ob.ntouched; j++ {
					if !containsRef(c.update[:], c.nupdate, ob.touched[j]) {
						if c.nupdate >= maxUpdate {
							continue
						}
						c.update[c.nupdate] = ob.touched[j]
						c.nupdate++
					}
					ob.pending[ob.npending] = ob.touched[j]
					ob.npending++
				}
			}
		}
		c.nreqs = 0
	}

	status = navmesh.Success
	if c.nupdate != 0 {
		// Rebuild one tile.
		ref := c.update[0]
		status = c.buildTile(ref, nav)
		c.nupdate--
		if c.nupdate > 0 {
			copy(c.update[:], c.update[1:1+c.nupdate])
		}

		// Settle obstacle states.
		for i := int32(0); i < c.params.MaxObstacles; i++ {
			ob := &c.obstacles[i]
			if ob.state != ObstacleProcessing && ob.state != ObstacleRemoving {
				continue
			}

			// Drop the handled tile from the pending set.
			for j := int32(0); j < ob.npending; j++ {
				if ob.pending[j] == ref {
					ob.pending[j] = ob.pending[ob.npending-1]
					ob.npending--
					break
				}
			}

			if ob.npending != 0 {
				continue
			}
			if ob.state == ObstacleProcessing {
				ob.state = ObstacleProcessed
			} else {
				ob.state = ObstacleEmpty
				// Bump salt; never zero.
				ob.salt = (ob.salt + 1) & (1<<obstacleSaltBits - 1)
				if ob.salt == 0 {
					ob.salt++
				}
				ob.next = c.nextFreeObstacle
				c.nextFreeObstacle = ob
			}
		}
	}

	return c.nupdate == 0 && c.nreqs == 0, status
}

// BuildTilesAt force-rebuilds every layer of a tile column, for hosts
// that changed flag or area assignment out of band.
func (c *TileCache) BuildTilesAt(tx, ty int32, nav *navmesh.NavMesh) navmesh.Status {
	var tiles [maxTouchedTiles * 4]CompressedTileRef
	ntiles := c.TilesAt(tx, ty, tiles[:])
	for i := int32(0); i < ntiles; i++ {
		if status := c.buildTile(tiles[i], nav); status.Failed() {
			return status
		}
	}
	return navmesh.Success
}

// buildTile rebuilds one cache tile against the current obstacle set and
// swaps it into the live mesh. The live tile is only removed once the
// replacement payload exists, so a failure before that point leaves it
// intact; if the final AddTile fails, the column has no live tile.
func (c *TileCache) buildTile(ref CompressedTileRef, nav *navmesh.NavMesh) navmesh.Status {
	idx := c.DecodeTileIDTile(ref)
	if idx >= uint32(c.params.MaxTiles) {
		return navmesh.Failure | navmesh.InvalidParam
	}
	tile := &c.tiles[idx]
	if tile.salt != c.DecodeTileIDSalt(ref) || tile.Header == nil {
		return navmesh.Failure | navmesh.InvalidParam
	}

	walkableClimbVx := int32(c.params.WalkableClimb / c.params.Ch)

	// The scratch memory only lives for this one rebuild.
	c.alloc.Reset()

	layer, status := decompressLayer(tile, c.comp, c.alloc)
	if status.Failed() {
		return status
	}

	// Rasterise the live obstacles that touch this tile.
	orig := tile.Header.Bmin[:]
	for i := int32(0); i < c.params.MaxObstacles; i++ {
		ob := &c.obstacles[i]
		if ob.state == ObstacleEmpty || ob.state == ObstacleRemoving {
			continue
		}
		if !containsRef(ob.touched[:], ob.ntouched, ref) {
			continue
		}
		switch ob.kind {
		case ObstacleCylinder:
			markCylinderArea(layer, orig, c.params.Cs, c.params.Ch,
				ob.cylinder.pos[:], ob.cylinder.radius, ob.cylinder.height, NullArea)
		case ObstacleBox:
			markBoxArea(layer, orig, c.params.Cs, c.params.Ch,
				ob.box.bmin[:], ob.box.bmax[:], NullArea)
		case ObstacleOrientedBox:
			markOrientedBoxArea(layer, orig, c.params.Cs, c.params.Ch,
				ob.orientedBox.center[:], ob.orientedBox.halfExtents[:], ob.orientedBox.rotAux[:], NullArea)
		}
	}

	// Region, contour and polygon extraction run in the builder.
	lmesh, status := c.builder.Build(layer, walkableClimbVx, c.params.MaxSimplificationError)
	if status.Failed() {
		c.log.Warn("layer mesh build failed",
			zap.Int32("tx", tile.Header.TX), zap.Int32("ty", tile.Header.TY),
			zap.Int32("tlayer", tile.Header.TLayer), zap.Uint32("status", uint32(status)))
		return status
	}

	// An empty mesh just clears the live tile.
	if lmesh == nil || lmesh.NPolys == 0 {
		nav.RemoveTile(nav.TileRefAt(tile.Header.TX, tile.Header.TY, tile.Header.TLayer))
		return navmesh.Success
	}

	params := navmesh.CreateParams{
		Verts:          lmesh.Verts,
		VertCount:      lmesh.NVerts,
		Polys:          lmesh.Polys,
		PolyAreas:      lmesh.Areas,
		PolyFlags:      lmesh.Flags,
		PolyCount:      lmesh.NPolys,
		Nvp:            navmesh.VertsPerPolygon,
		WalkableHeight: c.params.WalkableHeight,
		WalkableRadius: c.params.WalkableRadius,
		WalkableClimb:  c.params.WalkableClimb,
		TileX:          tile.Header.TX,
		TileY:          tile.Header.TY,
		TileLayer:      tile.Header.TLayer,
		Cs:             c.params.Cs,
		Ch:             c.params.Ch,
		// Layer tiles are small; the linear query fallback is fine.
		BuildBvTree: false,
		Bmin:        tile.Header.Bmin,
		Bmax:        tile.Header.Bmax,
	}
	if c.proc != nil {
		c.proc.Process(&params, lmesh.Areas, lmesh.Flags)
	}

	navData, ok := navmesh.CreateTileData(&params)
	if !ok {
		return navmesh.Failure
	}

	// Replace the live tile only now that the new payload exists.
	nav.RemoveTile(nav.TileRefAt(tile.Header.TX, tile.Header.TY, tile.Header.TLayer))
	_, status = nav.AddTile(navData, navmesh.TileFreeData, 0)
	if status.Failed() {
		return status
	}
	return navmesh.Success
}
