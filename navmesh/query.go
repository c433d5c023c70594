package navmesh

import (
	"math"

	"tilenav/common"
)

// distancePtSegSqr2D returns the parametric position of the closest point
// on segment pq to pt and the squared xz-plane distance to it.
func distancePtSegSqr2D(pt, p, q []float32) (t, dist float32) {
	pqx := q[0] - p[0]
	pqz := q[2] - p[2]
	dx := pt[0] - p[0]
	dz := pt[2] - p[2]
	d := pqx*pqx + pqz*pqz
	t = pqx*dx + pqz*dz
	if d > 0 {
		t /= d
	}
	t = common.Clamp(t, 0, 1)
	dx = p[0] + t*pqx - pt[0]
	dz = p[2] + t*pqz - pt[2]
	return t, dx*dx + dz*dz
}

// closestHeightPointTriangle interpolates the height of the triangle abc
// at p, when p projects inside the triangle on the xz-plane.
func closestHeightPointTriangle(p, a, b, c []float32) (float32, bool) {
	const eps = 1e-6
	v0 := make([]float32, 3)
	v1 := make([]float32, 3)
	v2 := make([]float32, 3)
	common.Vsub(v0, c, a)
	common.Vsub(v1, b, a)
	common.Vsub(v2, p, a)

	// Scaled barycentric coordinates.
	denom := v0[0]*v1[2] - v0[2]*v1[0]
	if common.Abs(denom) < eps {
		return 0, false
	}
	u := v1[2]*v2[0] - v1[0]*v2[2]
	v := v0[0]*v2[2] - v0[2]*v2[0]
	if denom < 0 {
		denom, u, v = -denom, -u, -v
	}

	if u >= 0 && v >= 0 && u+v <= denom {
		return a[1] + (v0[1]*u+v1[1]*v)/denom, true
	}
	return 0, false
}

// pointInPolygon tests the point against the polygon footprint on the
// xz-plane; the y-values are ignored.
func pointInPolygon(pt, verts []float32, nverts int32) bool {
	c := false
	j := nverts - 1
	for i := int32(0); i < nverts; j, i = i, i+1 {
		vi := common.Vert3(verts, i)
		vj := common.Vert3(verts, j)
		if (vi[2] > pt[2]) != (vj[2] > pt[2]) &&
			pt[0] < (vj[0]-vi[0])*(pt[2]-vi[2])/(vj[2]-vi[2])+vi[0] {
			c = !c
		}
	}
	return c
}

// overlapQuantBounds reports whether two quantised AABBs overlap.
func overlapQuantBounds(amin, amax []uint16, bmin, bmax [3]uint16) bool {
	if amin[0] > bmax[0] || amax[0] < bmin[0] {
		return false
	}
	if amin[1] > bmax[1] || amax[1] < bmin[1] {
		return false
	}
	if amin[2] > bmax[2] || amax[2] < bmin[2] {
		return false
	}
	return true
}

func (t *MeshTile) polyIndex(poly *Poly) int32 {
	for i := range t.Polys {
		if &t.Polys[i] == poly {
			return int32(i)
		}
	}
	return -1
}

// detailTriVert resolves detail triangle vertex t: indices below the
// polygon's vertex count alias the polygon vertices, the rest index the
// detail vertex array.
func detailTriVert(tile *MeshTile, poly *Poly, pd *PolyDetail, t uint8) []float32 {
	if t < poly.VertCount {
		return common.Vert3(tile.Verts, poly.Verts[t])
	}
	return common.Vert3(tile.DetailVerts, pd.VertBase+uint32(t-poly.VertCount))
}

// PolyHeight returns the detail-mesh height at pos when pos lies over the
// polygon footprint.
func (m *NavMesh) PolyHeight(tile *MeshTile, poly *Poly, pos []float32) (float32, bool) {
	// Off-mesh connections do not have detail polys.
	if poly.Type() == PolyTypeOffMeshConnection {
		return 0, false
	}

	ip := tile.polyIndex(poly)
	pd := &tile.DetailMeshes[ip]

	verts := make([]float32, VertsPerPolygon*3)
	nv := int32(poly.VertCount)
	for i := int32(0); i < nv; i++ {
		common.Vcopy(verts[i*3:i*3+3], common.Vert3(tile.Verts, poly.Verts[i]))
	}
	if !pointInPolygon(pos, verts, nv) {
		return 0, false
	}

	for j := uint8(0); j < pd.TriCount; j++ {
		t := common.Vert4(tile.DetailTris, pd.TriBase+uint32(j))
		v0 := detailTriVert(tile, poly, pd, t[0])
		v1 := detailTriVert(tile, poly, pd, t[1])
		v2 := detailTriVert(tile, poly, pd, t[2])
		if h, ok := closestHeightPointTriangle(pos, v0, v1, v2); ok {
			return h, true
		}
	}

	// All triangle checks can fail on degenerate triangles or large
	// coordinates; the point is then on an edge, so pick the closest.
	closest := make([]float32, 3)
	common.Vcopy(closest, pos)
	m.closestPointOnDetailEdges(false, tile, poly, pos, closest)
	return closest[1], true
}

// closestPointOnDetailEdges projects pos onto the closest detail edge of
// the polygon. With onlyBoundary set only edges on the polygon boundary
// are considered; otherwise every edge is scanned once, inner edges being
// deduplicated by the tris[j] < tris[k] ordering rule.
func (m *NavMesh) closestPointOnDetailEdges(onlyBoundary bool, tile *MeshTile, poly *Poly, pos, closest []float32) {
	const anyBoundaryEdge = DetailEdgeBoundary | DetailEdgeBoundary<<2 | DetailEdgeBoundary<<4

	ip := tile.polyIndex(poly)
	pd := &tile.DetailMeshes[ip]

	dmin := float32(math.MaxFloat32)
	tmin := float32(0)
	var pmin, pmax []float32

	for i := uint8(0); i < pd.TriCount; i++ {
		tris := common.Vert4(tile.DetailTris, pd.TriBase+uint32(i))
		if onlyBoundary && int(tris[3])&anyBoundaryEdge == 0 {
			continue
		}

		var v [3][]float32
		for j := 0; j < 3; j++ {
			v[j] = detailTriVert(tile, poly, pd, tris[j])
		}

		for k, j := int32(0), int32(2); k < 3; j, k = k, k+1 {
			if DetailTriEdgeFlags(tris[3], j)&DetailEdgeBoundary == 0 &&
				(onlyBoundary || tris[j] < tris[k]) {
				// Only looking at boundary edges and this is internal, or
				// an inner edge that is visited from its other triangle.
				continue
			}

			t, d := distancePtSegSqr2D(pos, v[j], v[k])
			if d < dmin {
				dmin = d
				tmin = t
				pmin = v[j]
				pmax = v[k]
			}
		}
	}

	if pmin == nil {
		return
	}
	common.Vlerp(closest, pmin, pmax, tmin)
}

// ClosestPointOnPoly finds the point on the polygon closest to pos.
// posOverPoly reports whether pos projects inside the footprint, in
// which case closest carries the detail-mesh height under pos.
func (m *NavMesh) ClosestPointOnPoly(ref PolyRef, pos, closest []float32) (posOverPoly bool) {
	tile, poly := m.TileAndPolyByRefUnsafe(ref)
	common.Vcopy(closest, pos)
	if h, ok := m.PolyHeight(tile, poly, pos); ok {
		closest[1] = h
		return true
	}

	// Off-mesh connections do not have detail polygons.
	if poly.Type() == PolyTypeOffMeshConnection {
		v0 := common.Vert3(tile.Verts, poly.Verts[0])
		v1 := common.Vert3(tile.Verts, poly.Verts[1])
		t, _ := distancePtSegSqr2D(pos, v0, v1)
		common.Vlerp(closest, v0, v1, t)
		return false
	}

	m.closestPointOnDetailEdges(true, tile, poly, pos, closest)
	return false
}

// QueryPolygonsInTile collects the tile's polygons overlapping the
// query box, via the BV-tree when the tile carries one and a linear
// bounds scan otherwise. At most maxPolys references are returned.
func (m *NavMesh) QueryPolygonsInTile(tile *MeshTile, qmin, qmax []float32, polys []PolyRef, maxPolys int32) int32 {
	base := m.PolyRefBase(tile)
	n := int32(0)

	if tile.BvTree != nil {
		node := int32(0)
		end := tile.Header.BvNodeCount
		tbmin := tile.Header.Bmin
		tbmax := tile.Header.Bmax
		qfac := tile.Header.BvQuantFactor

		// Clamp the query box to the tile and quantise; widening the odd
		// bits keeps the bounds inclusive after truncation.
		minx := common.Clamp(qmin[0], tbmin[0], tbmax[0]) - tbmin[0]
		miny := common.Clamp(qmin[1], tbmin[1], tbmax[1]) - tbmin[1]
		minz := common.Clamp(qmin[2], tbmin[2], tbmax[2]) - tbmin[2]
		maxx := common.Clamp(qmax[0], tbmin[0], tbmax[0]) - tbmin[0]
		maxy := common.Clamp(qmax[1], tbmin[1], tbmax[1]) - tbmin[1]
		maxz := common.Clamp(qmax[2], tbmin[2], tbmax[2]) - tbmin[2]
		bmin := []uint16{
			uint16(qfac*minx) & 0xfffe,
			uint16(qfac*miny) & 0xfffe,
			uint16(qfac*minz) & 0xfffe,
		}
		bmax := []uint16{
			uint16(qfac*maxx+1) | 1,
			uint16(qfac*maxy+1) | 1,
			uint16(qfac*maxz+1) | 1,
		}

		// Front-to-back traversal on the escape-offset encoding.
		for node < end {
			bv := &tile.BvTree[node]
			overlap := overlapQuantBounds(bmin, bmax, bv.Bmin, bv.Bmax)
			isLeafNode := bv.I >= 0

			if isLeafNode && overlap {
				if n < maxPolys {
					polys[n] = base | PolyRef(bv.I)
					n++
				}
			}

			if overlap || isLeafNode {
				node++
			} else {
				node += -bv.I
			}
		}
		return n
	}

	bmin := make([]float32, 3)
	bmax := make([]float32, 3)
	for i := int32(0); i < tile.Header.PolyCount; i++ {
		p := &tile.Polys[i]
		// Do not return off-mesh connection polygons.
		if p.Type() == PolyTypeOffMeshConnection {
			continue
		}

		v := common.Vert3(tile.Verts, p.Verts[0])
		common.Vcopy(bmin, v)
		common.Vcopy(bmax, v)
		for j := int32(1); j < int32(p.VertCount); j++ {
			v = common.Vert3(tile.Verts, p.Verts[j])
			common.Vmin(bmin, v)
			common.Vmax(bmax, v)
		}
		if common.OverlapBounds(qmin, qmax, bmin, bmax) {
			if n < maxPolys {
				polys[n] = base | PolyRef(i)
				n++
			}
		}
	}
	return n
}

// FindNearestPolyInTile returns the polygon of the tile nearest to
// center within the half-extent box, writing the closest surface point
// to nearestPt. Polygons directly underfoot within climb reach win over
// closer-by-distance ones.
func (m *NavMesh) FindNearestPolyInTile(tile *MeshTile, center, halfExtents, nearestPt []float32) PolyRef {
	bmin := make([]float32, 3)
	bmax := make([]float32, 3)
	common.Vsub(bmin, center, halfExtents)
	common.Vadd(bmax, center, halfExtents)

	polys := make([]PolyRef, 128)
	polyCount := m.QueryPolygonsInTile(tile, bmin, bmax, polys, 128)

	var nearest PolyRef
	nearestDistanceSqr := float32(math.MaxFloat32)
	closestPtPoly := make([]float32, 3)
	diff := make([]float32, 3)
	for i := int32(0); i < polyCount; i++ {
		ref := polys[i]
		posOverPoly := m.ClosestPointOnPoly(ref, center, closestPtPoly)

		// A point directly over a polygon within climb height beats the
		// straight-line nearest point.
		common.Vsub(diff, center, closestPtPoly)
		var d float32
		if posOverPoly {
			d = common.Abs(diff[1]) - tile.Header.WalkableClimb
			if d > 0 {
				d = d * d
			} else {
				d = 0
			}
		} else {
			d = common.VlenSqr(diff)
		}

		if d < nearestDistanceSqr {
			common.Vcopy(nearestPt, closestPtPoly)
			nearestDistanceSqr = d
			nearest = ref
		}
	}
	return nearest
}
