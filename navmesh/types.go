package navmesh

const (
	// VertsPerPolygon is the maximum number of vertices per navigation polygon.
	VertsPerPolygon = 6

	// NullLink marks the end of a link chain and a failed link allocation.
	NullLink uint32 = 0xffffffff

	// ExtLink flags a polygon edge as a portal that links to another tile.
	// The low byte of the neighbour code holds the compass direction.
	ExtLink uint16 = 0x8000

	// OffMeshConBidir marks an off-mesh connection traversable both ways.
	OffMeshConBidir = 1

	// MaxAreas is the maximum number of user defined area ids.
	MaxAreas = 64
)

// Tile payload and state compatibility markers.
const (
	Magic        = 'T'<<24 | 'N'<<16 | 'A'<<8 | 'V'
	Version      = 1
	StateMagic   = 'T'<<24 | 'N'<<16 | 'S'<<8 | 'T'
	StateVersion = 1
)

// Polygon types.
const (
	PolyTypeGround            = 0 // Convex walkable surface polygon.
	PolyTypeOffMeshConnection = 1 // Two-vertex off-mesh connection.
)

// DetailEdgeBoundary flags a detail triangle edge that lies on the polygon
// boundary; see DetailTriEdgeFlags.
const DetailEdgeBoundary = 0x01

// TileFreeData tells the mesh it owns the tile payload and frees it when
// the tile is removed.
const TileFreeData = 0x01

// PolyRef is an opaque handle to a polygon: salt, tile index and polygon
// index packed into 32 bits with widths fixed at NavMesh init.
type PolyRef uint32

// TileRef is an opaque handle to a tile; it is a PolyRef with a zero
// polygon field.
type TileRef uint32

// Poly defines a polygon within a MeshTile.
type Poly struct {
	// FirstLink indexes the head of the polygon's link chain, or NullLink.
	FirstLink uint32

	// Verts indexes the polygon's vertices in MeshTile.Verts.
	Verts [VertsPerPolygon]uint16

	// Neis carries the per-edge neighbour code: 0 for a hard border, k+1
	// for internal neighbour polygon k, or ExtLink|dir for a portal edge.
	Neis [VertsPerPolygon]uint16

	// Flags are the user defined polygon flags.
	Flags uint16

	// VertCount is the number of vertices in the polygon.
	VertCount uint8

	// areaAndType packs the area id (low 6 bits) with the polygon type.
	areaAndType uint8
}

// SetArea sets the user defined area id. [Limit: < MaxAreas]
func (p *Poly) SetArea(a uint8) { p.areaAndType = (p.areaAndType & 0xc0) | (a & 0x3f) }

// SetType sets the polygon type.
func (p *Poly) SetType(t uint8) { p.areaAndType = (p.areaAndType & 0x3f) | (t << 6) }

// Area returns the user defined area id.
func (p *Poly) Area() uint8 { return p.areaAndType & 0x3f }

// Type returns the polygon type.
func (p *Poly) Type() uint8 { return p.areaAndType >> 6 }

// PolyDetail locates a polygon's detail sub-mesh inside the tile arrays.
type PolyDetail struct {
	VertBase  uint32 // Offset into MeshTile.DetailVerts.
	TriBase   uint32 // Offset into MeshTile.DetailTris.
	VertCount uint8  // Number of detail vertices beyond the polygon's own.
	TriCount  uint8  // Number of detail triangles.
}

// Link is a directed adjacency record from one polygon edge to a
// neighbour polygon. Links live in a per-tile pool threaded by Next,
// serving both the in-use chains and the free list.
type Link struct {
	Ref  PolyRef // Neighbour reference the link points to.
	Next uint32  // Next link in the chain, or next free slot.
	Edge uint8   // Index of the polygon edge that owns the link.
	Side uint8   // Compass direction for boundary links, else 0xff.
	Bmin uint8   // Minimum portal limit along the edge, quantised 0..255.
	Bmax uint8   // Maximum portal limit along the edge, quantised 0..255.
}

// BVNode is a bounding-volume node with quantised bounds. A non-negative
// index is a leaf naming a polygon; a negative index is the escape offset
// to the node's next sibling.
type BVNode struct {
	Bmin [3]uint16
	Bmax [3]uint16
	I    int32
}

// OffMeshConnection is a teleport-like edge stored as a two-vertex
// polygon whose endpoints are bound to real polygons during stitching.
type OffMeshConnection struct {
	// Pos holds the endpoints [(ax, ay, az, bx, by, bz)]. Stitching snaps
	// these to the bound polygons, so re-read after AddTile.
	Pos [6]float32

	// Rad is the endpoint radius. [Limit: >= 0]
	Rad float32

	// Poly is the index of the connection's polygon within its tile.
	Poly uint16

	// Flags are internal link flags (OffMeshConBidir), not user flags.
	Flags uint8

	// Side is the compass direction of the far endpoint, or 0xff when the
	// connection stays within one tile.
	Side uint8

	// UserID identifies the connection to its creator.
	UserID uint32
}

// MeshHeader carries the per-tile counts and bounds of a tile payload.
type MeshHeader struct {
	Magic           int32 // Payload format marker.
	Version         int32 // Payload format version.
	X               int32 // Tile x-position within the grid.
	Y               int32 // Tile y-position within the grid.
	Layer           int32 // Tile layer within the (x, y) column.
	UserID          uint32
	PolyCount       int32
	VertCount       int32
	MaxLinkCount    int32
	DetailMeshCount int32
	DetailVertCount int32
	DetailTriCount  int32
	BvNodeCount     int32 // Zero when the tile has no BV-tree.
	OffMeshConCount int32
	OffMeshBase     int32 // Index of the first off-mesh polygon.
	WalkableHeight  float32
	WalkableRadius  float32
	WalkableClimb   float32
	Bmin            [3]float32
	Bmax            [3]float32
	BvQuantFactor   float32 // World-to-quantised scale for BV bounds.
}

// MeshTile is a live tile slot. A slot with a nil Header is free (or just
// released); Next threads either the position-hash bucket or the free
// list, depending on which state the slot is in.
type MeshTile struct {
	salt  uint32 // Bumped on every release; never zero while live.
	index int32  // Slot position in the tile array, fixed at init.

	linksFreeList uint32 // Head of the free-link chain, or NullLink.

	Header       *MeshHeader
	Polys        []Poly
	Verts        []float32 // [(x, y, z) * VertCount]
	Links        []Link
	DetailMeshes []PolyDetail
	DetailVerts  []float32 // [(x, y, z) * DetailVertCount]
	DetailTris   []uint8   // [(a, b, c, flags) * DetailTriCount]
	BvTree       []BVNode  // Nil when the payload has no BV section.
	OffMeshCons  []OffMeshConnection

	Flags int32
	Next  *MeshTile

	Data *TileData // The payload the views above are carved from.
}

// Salt returns the slot's current generation counter.
func (t *MeshTile) Salt() uint32 { return t.salt }

// NavMeshParams configures a tiled navigation mesh at init time. MaxTiles
// and MaxPolys together decide how the reference bits are partitioned.
type NavMeshParams struct {
	Orig       [3]float32 // World origin of the tile grid. [(x, y, z)]
	TileWidth  float32    // Tile size along the x-axis.
	TileHeight float32    // Tile size along the z-axis.
	MaxTiles   int32
	MaxPolys   int32
}

// DetailTriEdgeFlags extracts the flags of one detail-triangle edge.
// edgeIndex names the edge by its first vertex; 0 selects edge AB.
func DetailTriEdgeFlags(triFlags uint8, edgeIndex int32) int32 {
	return int32(triFlags>>(edgeIndex*2)) & 0x3
}

// OppositeTile returns the compass direction pointing back at side.
func OppositeTile(side int32) int32 { return (side + 4) & 0x7 }
