package navmesh

import (
	"math"
	"sort"

	"tilenav/common"
)

// MeshNullIdx marks an unused vertex slot in CreateParams.Polys.
const MeshNullIdx uint16 = 0xffff

// CreateParams describes a polygon mesh to assemble into a tile payload.
// Vertices are quantised to the tile grid: x and z in cell units Cs,
// y in height units Ch, relative to Bmin. Per-edge neighbour codes in
// Polys follow the builder convention: plain values are internal
// neighbour indices, 0x8000|dir marks a border (dir 0xf) or a portal
// edge (dir 0..3).
type CreateParams struct {
	// Polygon mesh attributes.
	Verts     []uint16 // [(x, y, z) * VertCount]
	VertCount int32
	Polys     []uint16 // [(verts, neis) * PolyCount], Nvp each
	PolyFlags []uint16
	PolyAreas []uint8
	PolyCount int32
	Nvp       int32

	// Height detail attributes, optional. Without them a fan
	// triangulation of each polygon is generated.
	DetailMeshes     []uint32 // [(vertBase, vertCount, triBase, triCount) * PolyCount]
	DetailVerts      []float32
	DetailVertsCount int32
	DetailTris       []uint8
	DetailTriCount   int32

	// Off-mesh connection attributes, optional. Only connections whose
	// start point lies inside the tile are stored.
	OffMeshConVerts  []float32 // [(ax, ay, az, bx, by, bz) * OffMeshConCount]
	OffMeshConRad    []float32
	OffMeshConFlags  []uint16
	OffMeshConAreas  []uint8
	OffMeshConDir    []uint8 // 0 = one way, 1 = bidirectional
	OffMeshConUserID []uint32
	OffMeshConCount  int32

	// Tile attributes.
	UserID    uint32
	TileX     int32
	TileY     int32
	TileLayer int32
	Bmin      [3]float32
	Bmax      [3]float32

	// Agent attributes.
	WalkableHeight float32
	WalkableRadius float32
	WalkableClimb  float32

	Cs float32
	Ch float32

	// BuildBvTree adds the bounding volume tree section used to speed up
	// spatial queries; layer tiles are small enough to skip it.
	BuildBvTree bool
}

type bvItem struct {
	bmin [3]uint16
	bmax [3]uint16
	i    int32
}

func calcItemExtents(items []bvItem, imin, imax int32, bmin, bmax *[3]uint16) {
	*bmin = items[imin].bmin
	*bmax = items[imin].bmax
	for i := imin + 1; i < imax; i++ {
		it := &items[i]
		for k := 0; k < 3; k++ {
			if it.bmin[k] < bmin[k] {
				bmin[k] = it.bmin[k]
			}
			if it.bmax[k] > bmax[k] {
				bmax[k] = it.bmax[k]
			}
		}
	}
}

func longestAxis(x, y, z uint16) int {
	axis := 0
	maxVal := x
	if y > maxVal {
		axis = 1
		maxVal = y
	}
	if z > maxVal {
		axis = 2
	}
	return axis
}

func subdivide(items []bvItem, imin, imax int32, curNode *int32, nodes []BVNode) {
	inum := imax - imin
	icur := *curNode

	node := &nodes[*curNode]
	*curNode = *curNode + 1

	if inum == 1 {
		// Leaf.
		node.Bmin = items[imin].bmin
		node.Bmax = items[imin].bmax
		node.I = items[imin].i
		return
	}

	calcItemExtents(items, imin, imax, &node.Bmin, &node.Bmax)
	axis := longestAxis(node.Bmax[0]-node.Bmin[0],
		node.Bmax[1]-node.Bmin[1],
		node.Bmax[2]-node.Bmin[2])
	span := items[imin:imax]
	sort.SliceStable(span, func(a, b int) bool {
		return span[a].bmin[axis] < span[b].bmin[axis]
	})

	isplit := imin + inum/2
	subdivide(items, imin, isplit, curNode, nodes)
	subdivide(items, isplit, imax, curNode, nodes)

	// Negative index encodes the escape offset to the next sibling.
	node.I = -(*curNode - icur)
}

func createBVTree(params *CreateParams, nodes []BVNode) int32 {
	quantFactor := 1 / params.Cs
	items := make([]bvItem, params.PolyCount)
	for i := int32(0); i < params.PolyCount; i++ {
		it := &items[i]
		it.i = i
		if len(params.DetailMeshes) > 0 {
			// Use the detail bounds when available.
			vb := params.DetailMeshes[i*4+0]
			ndv := params.DetailMeshes[i*4+1]
			bmin := make([]float32, 3)
			bmax := make([]float32, 3)
			common.Vcopy(bmin, common.Vert3(params.DetailVerts, vb))
			common.Vcopy(bmax, bmin)
			for j := uint32(1); j < ndv; j++ {
				dv := common.Vert3(params.DetailVerts, vb+j)
				common.Vmin(bmin, dv)
				common.Vmax(bmax, dv)
			}
			// The BV-tree uses cs for all dimensions.
			for k := 0; k < 3; k++ {
				it.bmin[k] = uint16(common.Clamp((bmin[k]-params.Bmin[k])*quantFactor, 0, 0xffff))
				it.bmax[k] = uint16(common.Clamp((bmax[k]-params.Bmin[k])*quantFactor, 0, 0xffff))
			}
		} else {
			p := params.Polys[i*params.Nvp*2:]
			v := common.Vert3(params.Verts, p[0])
			it.bmin = [3]uint16{v[0], v[1], v[2]}
			it.bmax = it.bmin
			for j := int32(1); j < params.Nvp; j++ {
				if p[j] == MeshNullIdx {
					break
				}
				v = common.Vert3(params.Verts, p[j])
				for k := 0; k < 3; k++ {
					if v[k] < it.bmin[k] {
						it.bmin[k] = v[k]
					}
					if v[k] > it.bmax[k] {
						it.bmax[k] = v[k]
					}
				}
			}
			// Remap y to cell space.
			it.bmin[1] = uint16(math.Floor(float64(it.bmin[1]) * float64(params.Ch) / float64(params.Cs)))
			it.bmax[1] = uint16(math.Ceil(float64(it.bmax[1]) * float64(params.Ch) / float64(params.Cs)))
		}
	}

	curNode := int32(0)
	subdivide(items, 0, params.PolyCount, &curNode, nodes)
	return curNode
}

// classifyOffMeshPoint decides which side of the tile bounds a point
// leaves through, or 0xff when the point is inside.
func classifyOffMeshPoint(pt, bmin, bmax []float32) uint8 {
	const (
		xp = 1 << 0
		zp = 1 << 1
		xm = 1 << 2
		zm = 1 << 3
	)
	outcode := 0
	if pt[0] >= bmax[0] {
		outcode |= xp
	}
	if pt[2] >= bmax[2] {
		outcode |= zp
	}
	if pt[0] < bmin[0] {
		outcode |= xm
	}
	if pt[2] < bmin[2] {
		outcode |= zm
	}
	switch outcode {
	case xp:
		return 0
	case xp | zp:
		return 1
	case zp:
		return 2
	case xm | zp:
		return 3
	case xm:
		return 4
	case xm | zm:
		return 5
	case zm:
		return 6
	case xp | zm:
		return 7
	}
	return 0xff
}

// CreateTileData assembles a polygon mesh into a tile payload ready for
// NavMesh.AddTile. The off-mesh connections whose start point lies
// outside the tile are dropped; link space is sized at one link per
// polygon edge, two more per portal edge and two per off-mesh endpoint
// that lies inside the tile.
func CreateTileData(params *CreateParams) (*TileData, bool) {
	if params.Nvp > VertsPerPolygon {
		return nil, false
	}
	if params.VertCount == 0 || params.VertCount >= 0xffff || len(params.Verts) == 0 {
		return nil, false
	}
	if params.PolyCount == 0 || len(params.Polys) == 0 {
		return nil, false
	}
	nvp := params.Nvp

	// Classify off-mesh connection points. Only the connections whose
	// start point is inside the tile are stored.
	offMeshConClass := make([]uint8, params.OffMeshConCount*2)
	storedOffMeshConCount := int32(0)
	offMeshConLinkCount := int32(0)

	if params.OffMeshConCount > 0 {
		// Tight height bounds cull off-mesh start locations.
		hmin := float32(math.MaxFloat32)
		hmax := float32(-math.MaxFloat32)
		if len(params.DetailVerts) > 0 && params.DetailVertsCount > 0 {
			for i := int32(0); i < params.DetailVertsCount; i++ {
				h := params.DetailVerts[i*3+1]
				hmin = min(hmin, h)
				hmax = max(hmax, h)
			}
		} else {
			for i := int32(0); i < params.VertCount; i++ {
				h := params.Bmin[1] + float32(params.Verts[i*3+1])*params.Ch
				hmin = min(hmin, h)
				hmax = max(hmax, h)
			}
		}
		hmin -= params.WalkableClimb
		hmax += params.WalkableClimb
		bmin := params.Bmin
		bmax := params.Bmax
		bmin[1] = hmin
		bmax[1] = hmax

		for i := int32(0); i < params.OffMeshConCount; i++ {
			p0 := common.Vert3(params.OffMeshConVerts, i*2+0)
			p1 := common.Vert3(params.OffMeshConVerts, i*2+1)
			offMeshConClass[i*2+0] = classifyOffMeshPoint(p0, bmin[:], bmax[:])
			offMeshConClass[i*2+1] = classifyOffMeshPoint(p1, bmin[:], bmax[:])

			// Cull start positions that cannot even touch the mesh.
			if offMeshConClass[i*2+0] == 0xff {
				if p0[1] < bmin[1] || p0[1] > bmax[1] {
					offMeshConClass[i*2+0] = 0
				}
			}

			if offMeshConClass[i*2+0] == 0xff {
				offMeshConLinkCount++
				storedOffMeshConCount++
			}
			if offMeshConClass[i*2+1] == 0xff {
				offMeshConLinkCount++
			}
		}
	}

	// Off-mesh connections are stored as polygons; adjust totals.
	totPolyCount := params.PolyCount + storedOffMeshConCount
	totVertCount := params.VertCount + storedOffMeshConCount*2

	// Count edges and tile-border portal edges.
	edgeCount := int32(0)
	portalCount := int32(0)
	for i := int32(0); i < params.PolyCount; i++ {
		p := params.Polys[i*2*nvp:]
		for j := int32(0); j < nvp; j++ {
			if p[j] == MeshNullIdx {
				break
			}
			edgeCount++
			if p[nvp+j]&0x8000 != 0 {
				if p[nvp+j]&0xf != 0xf {
					portalCount++
				}
			}
		}
	}
	maxLinkCount := edgeCount + portalCount*2 + offMeshConLinkCount*2

	// Detail mesh totals: with input detail, count the vertices beyond
	// the polygons' own; without it, a fan triangulation per polygon.
	uniqueDetailVertCount := int32(0)
	detailTriCount := int32(0)
	if len(params.DetailMeshes) > 0 {
		detailTriCount = params.DetailTriCount
		for i := int32(0); i < params.PolyCount; i++ {
			p := params.Polys[i*nvp*2:]
			ndv := int32(params.DetailMeshes[i*4+1])
			nv := int32(0)
			for j := int32(0); j < nvp; j++ {
				if p[j] == MeshNullIdx {
					break
				}
				nv++
			}
			uniqueDetailVertCount += ndv - nv
		}
	} else {
		for i := int32(0); i < params.PolyCount; i++ {
			p := params.Polys[i*nvp*2:]
			nv := int32(0)
			for j := int32(0); j < nvp; j++ {
				if p[j] == MeshNullIdx {
					break
				}
				nv++
			}
			detailTriCount += nv - 2
		}
	}

	bvNodeCap := int32(0)
	if params.BuildBvTree {
		bvNodeCap = params.PolyCount * 2
	}

	header := &MeshHeader{
		Magic:           Magic,
		Version:         Version,
		X:               params.TileX,
		Y:               params.TileY,
		Layer:           params.TileLayer,
		UserID:          params.UserID,
		PolyCount:       totPolyCount,
		VertCount:       totVertCount,
		MaxLinkCount:    maxLinkCount,
		DetailMeshCount: params.PolyCount,
		DetailVertCount: uniqueDetailVertCount,
		DetailTriCount:  detailTriCount,
		OffMeshConCount: storedOffMeshConCount,
		OffMeshBase:     params.PolyCount,
		WalkableHeight:  params.WalkableHeight,
		WalkableRadius:  params.WalkableRadius,
		WalkableClimb:   params.WalkableClimb,
		Bmin:            params.Bmin,
		Bmax:            params.Bmax,
		BvQuantFactor:   1 / params.Cs,
	}

	data := &TileData{
		Header:       header,
		Verts:        make([]float32, 3*totVertCount),
		Polys:        make([]Poly, totPolyCount),
		Links:        make([]Link, maxLinkCount),
		DetailMeshes: make([]PolyDetail, params.PolyCount),
		DetailVerts:  make([]float32, 3*uniqueDetailVertCount),
		DetailTris:   make([]uint8, 4*detailTriCount),
		BvTree:       make([]BVNode, bvNodeCap),
		OffMeshCons:  make([]OffMeshConnection, storedOffMeshConCount),
	}

	offMeshVertsBase := params.VertCount
	offMeshPolyBase := params.PolyCount

	// Mesh vertices, dequantised to world space.
	for i := int32(0); i < params.VertCount; i++ {
		iv := common.Vert3(params.Verts, i)
		v := common.Vert3(data.Verts, i)
		v[0] = params.Bmin[0] + float32(iv[0])*params.Cs
		v[1] = params.Bmin[1] + float32(iv[1])*params.Ch
		v[2] = params.Bmin[2] + float32(iv[2])*params.Cs
	}
	// Off-mesh link vertices.
	n := int32(0)
	for i := int32(0); i < params.OffMeshConCount; i++ {
		if offMeshConClass[i*2+0] == 0xff {
			linkv := params.OffMeshConVerts[i*2*3:]
			v := data.Verts[(offMeshVertsBase+n*2)*3:]
			common.Vcopy(v[0:3], linkv[0:3])
			common.Vcopy(v[3:6], linkv[3:6])
			n++
		}
	}

	// Mesh polygons.
	for i := int32(0); i < params.PolyCount; i++ {
		src := params.Polys[i*nvp*2:]
		p := &data.Polys[i]
		p.VertCount = 0
		p.Flags = params.PolyFlags[i]
		p.SetArea(params.PolyAreas[i])
		p.SetType(PolyTypeGround)
		for j := int32(0); j < nvp; j++ {
			if src[j] == MeshNullIdx {
				break
			}
			p.Verts[j] = src[j]
			if src[nvp+j]&0x8000 != 0 {
				// Border or portal edge.
				switch src[nvp+j] & 0xf {
				case 0xf: // Border
					p.Neis[j] = 0
				case 0: // Portal x-
					p.Neis[j] = ExtLink | 4
				case 1: // Portal z+
					p.Neis[j] = ExtLink | 2
				case 2: // Portal x+
					p.Neis[j] = ExtLink | 0
				case 3: // Portal z-
					p.Neis[j] = ExtLink | 6
				}
			} else {
				// Normal connection.
				p.Neis[j] = src[nvp+j] + 1
			}
			p.VertCount++
		}
	}
	// Off-mesh connection polygons.
	n = 0
	for i := int32(0); i < params.OffMeshConCount; i++ {
		if offMeshConClass[i*2+0] == 0xff {
			p := &data.Polys[offMeshPolyBase+n]
			p.VertCount = 2
			p.Verts[0] = uint16(offMeshVertsBase + n*2 + 0)
			p.Verts[1] = uint16(offMeshVertsBase + n*2 + 1)
			p.Flags = params.OffMeshConFlags[i]
			p.SetArea(params.OffMeshConAreas[i])
			p.SetType(PolyTypeOffMeshConnection)
			n++
		}
	}

	// Detail meshes. The polygon vertices double as the first detail
	// vertices of each sub-mesh, so only the extras are stored.
	if len(params.DetailMeshes) > 0 {
		vbase := uint32(0)
		for i := int32(0); i < params.PolyCount; i++ {
			dtl := &data.DetailMeshes[i]
			vb := params.DetailMeshes[i*4+0]
			ndv := params.DetailMeshes[i*4+1]
			nv := uint32(data.Polys[i].VertCount)
			dtl.VertBase = vbase
			dtl.VertCount = uint8(ndv - nv)
			dtl.TriBase = params.DetailMeshes[i*4+2]
			dtl.TriCount = uint8(params.DetailMeshes[i*4+3])
			if ndv-nv > 0 {
				copy(data.DetailVerts[vbase*3:], params.DetailVerts[(vb+nv)*3:(vb+ndv)*3])
				vbase += ndv - nv
			}
		}
		copy(data.DetailTris, params.DetailTris[:4*params.DetailTriCount])
	} else {
		// Dummy detail mesh: triangulate each polygon as a fan.
		tbase := int32(0)
		for i := int32(0); i < params.PolyCount; i++ {
			dtl := &data.DetailMeshes[i]
			nv := int32(data.Polys[i].VertCount)
			dtl.VertBase = 0
			dtl.VertCount = 0
			dtl.TriBase = uint32(tbase)
			dtl.TriCount = uint8(nv - 2)
			for j := int32(2); j < nv; j++ {
				t := data.DetailTris[tbase*4 : tbase*4+4]
				t[0] = 0
				t[1] = uint8(j - 1)
				t[2] = uint8(j)
				// Bit per edge on the polygon boundary.
				t[3] = 1 << 2
				if j == 2 {
					t[3] |= 1 << 0
				}
				if j == nv-1 {
					t[3] |= 1 << 4
				}
				tbase++
			}
		}
	}

	if params.BuildBvTree {
		header.BvNodeCount = createBVTree(params, data.BvTree)
		data.BvTree = data.BvTree[:header.BvNodeCount]
	}

	// Off-mesh connection descriptors.
	n = 0
	for i := int32(0); i < params.OffMeshConCount; i++ {
		if offMeshConClass[i*2+0] == 0xff {
			con := &data.OffMeshCons[n]
			con.Poly = uint16(offMeshPolyBase + n)
			endPts := params.OffMeshConVerts[i*2*3:]
			common.Vcopy(con.Pos[0:3], endPts[0:3])
			common.Vcopy(con.Pos[3:6], endPts[3:6])
			con.Rad = params.OffMeshConRad[i]
			if params.OffMeshConDir[i] != 0 {
				con.Flags = OffMeshConBidir
			} else {
				con.Flags = 0
			}
			con.Side = offMeshConClass[i*2+1]
			if len(params.OffMeshConUserID) > 0 {
				con.UserID = params.OffMeshConUserID[i]
			}
			n++
		}
	}

	return data, true
}
