package navmesh

import (
	"math"

	"tilenav/common"
)

// allocLink takes a link record off the tile's free chain, returning
// NullLink when the pool is exhausted. Exhaustion is non-fatal: the edge
// simply ends up without that adjacency.
func allocLink(tile *MeshTile) uint32 {
	if tile.linksFreeList == NullLink {
		return NullLink
	}
	link := tile.linksFreeList
	tile.linksFreeList = tile.Links[link].Next
	return link
}

func freeLink(tile *MeshTile, link uint32) {
	tile.Links[link].Next = tile.linksFreeList
	tile.linksFreeList = link
}

// connectIntLinks builds the adjacency links for the internal edges of
// every ground polygon in the tile. Edges are walked from last to first
// so the resulting chains run in ascending edge order.
func (m *NavMesh) connectIntLinks(tile *MeshTile) {
	if tile == nil {
		return
	}
	base := m.PolyRefBase(tile)

	for i := int32(0); i < tile.Header.PolyCount; i++ {
		poly := &tile.Polys[i]
		poly.FirstLink = NullLink

		if poly.Type() == PolyTypeOffMeshConnection {
			continue
		}

		for j := int32(poly.VertCount) - 1; j >= 0; j-- {
			// Skip hard borders and portal edges.
			if poly.Neis[j] == 0 || poly.Neis[j]&ExtLink != 0 {
				continue
			}

			idx := allocLink(tile)
			if idx == NullLink {
				continue
			}
			link := &tile.Links[idx]
			link.Ref = base | PolyRef(poly.Neis[j]-1)
			link.Edge = uint8(j)
			link.Side = 0xff
			link.Bmin = 0
			link.Bmax = 0
			link.Next = poly.FirstLink
			poly.FirstLink = idx
		}
	}
}

// unconnectLinks frees every link in tile that targets a polygon of
// target, splicing the chains around the removed records.
func (m *NavMesh) unconnectLinks(tile, target *MeshTile) {
	if tile == nil || target == nil {
		return
	}
	targetNum := m.DecodePolyIDTile(PolyRef(m.TileRefFor(target)))

	for i := int32(0); i < tile.Header.PolyCount; i++ {
		poly := &tile.Polys[i]
		j := poly.FirstLink
		pj := NullLink
		for j != NullLink {
			if m.DecodePolyIDTile(tile.Links[j].Ref) == targetNum {
				nj := tile.Links[j].Next
				if pj == NullLink {
					poly.FirstLink = nj
				} else {
					tile.Links[pj].Next = nj
				}
				freeLink(tile, j)
				j = nj
			} else {
				pj = j
				j = tile.Links[j].Next
			}
		}
	}
}

// getSlabCoord reduces a portal vertex to its slab coordinate: the value
// that must agree between the two tiles for the edges to meet.
func getSlabCoord(va []float32, side int32) float32 {
	if side == 0 || side == 4 {
		return va[0]
	} else if side == 2 || side == 6 {
		return va[2]
	}
	return 0
}

// calcSlabEndPoints projects a portal edge to a 2-D segment: position
// along the perpendicular axis paired with height, sorted by position.
func calcSlabEndPoints(va, vb []float32, bmin, bmax []float32, side int32) {
	if side == 0 || side == 4 {
		if va[2] < vb[2] {
			bmin[0], bmin[1] = va[2], va[1]
			bmax[0], bmax[1] = vb[2], vb[1]
		} else {
			bmin[0], bmin[1] = vb[2], vb[1]
			bmax[0], bmax[1] = va[2], va[1]
		}
	} else if side == 2 || side == 6 {
		if va[0] < vb[0] {
			bmin[0], bmin[1] = va[0], va[1]
			bmax[0], bmax[1] = vb[0], vb[1]
		} else {
			bmin[0], bmin[1] = vb[0], vb[1]
			bmax[0], bmax[1] = va[0], va[1]
		}
	}
}

// overlapSlabs decides whether two portal segments meet: the horizontal
// intervals must overlap once shrunk by px at both ends, and the height
// segments must cross or come within a climb-scaled threshold py.
func overlapSlabs(amin, amax, bmin, bmax []float32, px, py float32) bool {
	// The segment shrink keeps slabs that only touch at their end points
	// from connecting.
	minx := max(amin[0]+px, bmin[0]+px)
	maxx := min(amax[0]-px, bmax[0]-px)
	if minx > maxx {
		return false
	}

	// Height deltas at the overlap ends.
	ad := (amax[1] - amin[1]) / (amax[0] - amin[0])
	ak := amin[1] - ad*amin[0]
	bd := (bmax[1] - bmin[1]) / (bmax[0] - bmin[0])
	bk := bmin[1] - bd*bmin[0]
	dmin := (bd*minx + bk) - (ad*minx + ak)
	dmax := (bd*maxx + bk) - (ad*maxx + ak)

	// Crossing segments always overlap.
	if dmin*dmax < 0 {
		return true
	}

	thr := common.Sqr(py * 2)
	return dmin*dmin <= thr || dmax*dmax <= thr
}

// findConnectingPolys returns up to maxcon polygons of tile whose border
// edge on side matches the portal segment va-vb, along with the 1-D
// overlap interval of each match.
func (m *NavMesh) findConnectingPolys(va, vb []float32, tile *MeshTile, side int32, con []PolyRef, conarea []float32, maxcon int32) int32 {
	if tile == nil {
		return 0
	}
	amin := make([]float32, 2)
	amax := make([]float32, 2)
	calcSlabEndPoints(va, vb, amin, amax, side)
	apos := getSlabCoord(va, side)

	bmin := make([]float32, 2)
	bmax := make([]float32, 2)
	match := ExtLink | uint16(side)
	base := m.PolyRefBase(tile)

	n := int32(0)
	for i := int32(0); i < tile.Header.PolyCount; i++ {
		poly := &tile.Polys[i]
		nv := int32(poly.VertCount)
		for j := int32(0); j < nv; j++ {
			// Skip edges which do not point to the right side.
			if poly.Neis[j] != match {
				continue
			}

			vc := common.Vert3(tile.Verts, poly.Verts[j])
			vd := common.Vert3(tile.Verts, poly.Verts[(j+1)%nv])
			bpos := getSlabCoord(vc, side)

			// Segments are not close enough.
			if common.Abs(apos-bpos) > 0.01 {
				continue
			}

			calcSlabEndPoints(vc, vd, bmin, bmax, side)
			if !overlapSlabs(amin, amax, bmin, bmax, 0.01, tile.Header.WalkableClimb) {
				continue
			}

			if n < maxcon {
				conarea[n*2+0] = max(amin[0], bmin[0])
				conarea[n*2+1] = min(amax[0], bmax[0])
				con[n] = base | PolyRef(i)
				n++
			}
			break
		}
	}
	return n
}

// connectExtLinks builds the boundary links from tile towards target.
// side restricts the work to one compass direction, or -1 for all.
func (m *NavMesh) connectExtLinks(tile, target *MeshTile, side int32) {
	if tile == nil {
		return
	}

	con := make([]PolyRef, 4)
	conarea := make([]float32, 4*2)

	for i := int32(0); i < tile.Header.PolyCount; i++ {
		poly := &tile.Polys[i]
		nv := int32(poly.VertCount)
		for j := int32(0); j < nv; j++ {
			// Skip non-portal edges.
			if poly.Neis[j]&ExtLink == 0 {
				continue
			}

			dir := int32(poly.Neis[j] & 0xff)
			if side != -1 && dir != side {
				continue
			}

			va := common.Vert3(tile.Verts, poly.Verts[j])
			vb := common.Vert3(tile.Verts, poly.Verts[(j+1)%nv])
			nnei := m.findConnectingPolys(va, vb, target, OppositeTile(dir), con, conarea, 4)
			for k := int32(0); k < nnei; k++ {
				idx := allocLink(tile)
				if idx == NullLink {
					continue
				}
				link := &tile.Links[idx]
				link.Ref = con[k]
				link.Edge = uint8(j)
				link.Side = uint8(dir)
				link.Next = poly.FirstLink
				poly.FirstLink = idx

				// Compress the portal overlap onto the source edge's
				// parametric range as byte limits.
				if dir == 0 || dir == 4 {
					tmin := (conarea[k*2+0] - va[2]) / (vb[2] - va[2])
					tmax := (conarea[k*2+1] - va[2]) / (vb[2] - va[2])
					if tmin > tmax {
						tmin, tmax = tmax, tmin
					}
					link.Bmin = uint8(math.Round(float64(common.Clamp(tmin, 0, 1) * 255)))
					link.Bmax = uint8(math.Round(float64(common.Clamp(tmax, 0, 1) * 255)))
				} else if dir == 2 || dir == 6 {
					tmin := (conarea[k*2+0] - va[0]) / (vb[0] - va[0])
					tmax := (conarea[k*2+1] - va[0]) / (vb[0] - va[0])
					if tmin > tmax {
						tmin, tmax = tmax, tmin
					}
					link.Bmin = uint8(math.Round(float64(common.Clamp(tmin, 0, 1) * 255)))
					link.Bmax = uint8(math.Round(float64(common.Clamp(tmax, 0, 1) * 255)))
				}
			}
		}
	}
}

// baseOffMeshLinks binds the start endpoint of every off-mesh connection
// in the tile to its nearest polygon. Both the forward and the return
// link are only made once the snap succeeds and is within radius.
func (m *NavMesh) baseOffMeshLinks(tile *MeshTile) {
	if tile == nil {
		return
	}
	base := m.PolyRefBase(tile)

	for i := int32(0); i < tile.Header.OffMeshConCount; i++ {
		con := &tile.OffMeshCons[i]
		poly := &tile.Polys[con.Poly]

		halfExtents := []float32{con.Rad, tile.Header.WalkableClimb, con.Rad}

		p := con.Pos[0:3]
		nearestPt := make([]float32, 3)
		ref := m.FindNearestPolyInTile(tile, p, halfExtents, nearestPt)
		if ref == 0 {
			continue
		}
		// The query may return an optimistic result; enforce the radius.
		if common.Sqr(nearestPt[0]-p[0])+common.Sqr(nearestPt[2]-p[2]) > common.Sqr(con.Rad) {
			continue
		}

		// Pin the connection vertex onto the mesh.
		common.Vcopy(con.Pos[0:3], nearestPt)
		common.Vcopy(common.Vert3(tile.Verts, poly.Verts[0]), nearestPt)

		// Off-mesh connection to the land polygon.
		idx := allocLink(tile)
		if idx != NullLink {
			link := &tile.Links[idx]
			link.Ref = ref
			link.Edge = 0
			link.Side = 0xff
			link.Bmin = 0
			link.Bmax = 0
			link.Next = poly.FirstLink
			poly.FirstLink = idx
		}

		// The start endpoint always links back to the connection. The
		// attempt is independent of the forward allocation above.
		tidx := allocLink(tile)
		if tidx != NullLink {
			landPoly := &tile.Polys[m.DecodePolyIDPoly(ref)]
			back := &tile.Links[tidx]
			back.Ref = base | PolyRef(con.Poly)
			back.Edge = 0xff
			back.Side = 0xff
			back.Bmin = 0
			back.Bmax = 0
			back.Next = landPoly.FirstLink
			landPoly.FirstLink = tidx
		}
	}
}

// connectExtOffMeshLinks binds the far endpoint of target's off-mesh
// connections that land in tile. side is the direction from tile towards
// target, or -1 when the tiles share a column.
func (m *NavMesh) connectExtOffMeshLinks(tile, target *MeshTile, side int32) {
	if tile == nil {
		return
	}

	// Only connections landing from target into this tile are of
	// interest here.
	oppositeSide := int32(0xff)
	if side != -1 {
		oppositeSide = OppositeTile(side)
	}

	for i := int32(0); i < target.Header.OffMeshConCount; i++ {
		targetCon := &target.OffMeshCons[i]
		if int32(targetCon.Side) != oppositeSide {
			continue
		}

		targetPoly := &target.Polys[targetCon.Poly]
		// Skip connections whose start could not be bound at all.
		if targetPoly.FirstLink == NullLink {
			continue
		}

		halfExtents := []float32{targetCon.Rad, target.Header.WalkableClimb, targetCon.Rad}

		p := targetCon.Pos[3:6]
		nearestPt := make([]float32, 3)
		ref := m.FindNearestPolyInTile(tile, p, halfExtents, nearestPt)
		if ref == 0 {
			continue
		}
		if common.Sqr(nearestPt[0]-p[0])+common.Sqr(nearestPt[2]-p[2]) > common.Sqr(targetCon.Rad) {
			continue
		}

		// Pin the landing vertex onto this mesh.
		common.Vcopy(targetCon.Pos[3:6], nearestPt)
		common.Vcopy(common.Vert3(target.Verts, targetPoly.Verts[1]), nearestPt)

		// Off-mesh connection to the landing polygon.
		idx := allocLink(target)
		if idx != NullLink {
			link := &target.Links[idx]
			link.Ref = ref
			link.Edge = 1
			link.Side = uint8(oppositeSide)
			link.Bmin = 0
			link.Bmax = 0
			link.Next = targetPoly.FirstLink
			targetPoly.FirstLink = idx
		}

		// Landing polygon back to the connection, when bidirectional.
		if targetCon.Flags&OffMeshConBidir != 0 {
			tidx := allocLink(tile)
			if tidx != NullLink {
				landPoly := &tile.Polys[m.DecodePolyIDPoly(ref)]
				link := &tile.Links[tidx]
				link.Ref = m.PolyRefBase(target) | PolyRef(targetCon.Poly)
				link.Edge = 0xff
				if side == -1 {
					link.Side = 0xff
				} else {
					link.Side = uint8(side)
				}
				link.Bmin = 0
				link.Bmax = 0
				link.Next = landPoly.FirstLink
				landPoly.FirstLink = tidx
			}
		}
	}
}
