// Package tilecache keeps a compressed, obstacle-aware mirror of a tiled
// navigation mesh. Obstacles are added and removed through a request
// queue; Update drains the queue and rebuilds the touched tiles one per
// call, replacing them in the live mesh.
//
// Like the mesh, the cache is single-writer: mutating calls must not run
// concurrently with anything else.
package tilecache

import (
	"tilenav/navmesh"
)

// Layer payload compatibility markers.
const (
	LayerMagic   = 'T'<<24 | 'L'<<16 | 'A'<<8 | 'Y'
	LayerVersion = 1
)

const (
	// NullArea is the area id written where an obstacle clears a cell.
	NullArea = 0

	// WalkableArea is the default walkable area id on a fresh layer.
	WalkableArea = 63

	// NullIdx marks an unused index in layer-derived polygon meshes.
	NullIdx uint16 = 0xffff
)

// CompressedTileFreeData tells the cache it owns the tile payload.
const CompressedTileFreeData = 0x01

// CompressedTileRef is an opaque salted handle to a compressed tile slot.
type CompressedTileRef uint32

// ObstacleRef is an opaque salted handle to an obstacle slot.
type ObstacleRef uint32

// LayerHeader describes one compressed heightfield layer tile.
type LayerHeader struct {
	Magic   int32
	Version int32

	TX, TY, TLayer int32
	Bmin, Bmax     [3]float32

	HMin, HMax uint16 // Height range used by the layer.

	Width, Height uint8 // Layer dimension in cells.

	// Usable sub-region; cells outside carry no walkable data.
	MinX, MaxX, MinY, MaxY uint8
}

// Layer is a decompressed tile layer: per-cell height, area and
// connectivity grids, plus the region ids the builder assigns.
type Layer struct {
	Header   *LayerHeader
	RegCount uint8 // Region count, set by the builder.
	Heights  []uint8
	Areas    []uint8
	Cons     []uint8
	Regs     []uint8
}

// CompressedTile is a tile slot of the cache. A slot with a nil Header
// is free; next threads the position-hash bucket or the free list.
type CompressedTile struct {
	salt  uint32
	index int32

	Header     *LayerHeader
	Compressed []byte // View into Data past the header section.
	Data       []byte // The raw payload the views are carved from.

	flags int32
	next  *CompressedTile
}

// Salt returns the slot's current generation counter.
func (t *CompressedTile) Salt() uint32 { return t.salt }

// Obstacle states.
const (
	ObstacleEmpty = iota
	ObstacleProcessing
	ObstacleProcessed
	ObstacleRemoving
)

// Obstacle shapes.
const (
	ObstacleCylinder    = iota
	ObstacleBox         // Axis aligned box.
	ObstacleOrientedBox // Box rotated about the y-axis.
)

type obstacleCylinder struct {
	pos    [3]float32
	radius float32
	height float32
}

type obstacleBox struct {
	bmin [3]float32
	bmax [3]float32
}

type obstacleOrientedBox struct {
	center      [3]float32
	halfExtents [3]float32
	// rotAux = { cos(0.5*a)*sin(-0.5*a), cos(0.5*a)*cos(0.5*a) - 0.5 },
	// the doubled half-angle form the rasteriser consumes.
	rotAux [2]float32
}

// maxTouchedTiles bounds how many tiles one obstacle can overlap.
const maxTouchedTiles = 8

// Obstacle is an obstacle slot. touched holds the tiles the obstacle
// overlaps; pending is the subset still waiting for a rebuild.
type Obstacle struct {
	cylinder    obstacleCylinder
	box         obstacleBox
	orientedBox obstacleOrientedBox

	touched  [maxTouchedTiles]CompressedTileRef
	pending  [maxTouchedTiles]CompressedTileRef
	salt     uint32
	kind     int32
	state    int32
	ntouched int32
	npending int32
	next     *Obstacle
	index    int32
}

// State returns the obstacle's lifecycle state.
func (o *Obstacle) State() int32 { return o.state }

// Kind returns the obstacle's shape.
func (o *Obstacle) Kind() int32 { return o.kind }

// Obstacle request actions.
const (
	requestAdd = iota
	requestRemove
)

const (
	maxRequests = 64
	maxUpdate   = 64
)

type obstacleRequest struct {
	action int32
	ref    ObstacleRef
}

// Params configures a tile cache at init time.
type Params struct {
	Orig                   [3]float32
	Cs, Ch                 float32 // Cell size and height.
	Width, Height          int32   // Tile dimension in cells.
	WalkableHeight         float32
	WalkableRadius         float32
	WalkableClimb          float32
	MaxSimplificationError float32
	MaxTiles               int32
	MaxObstacles           int32
}

// Compressor turns layer grids into the stored payload bytes and back.
// Implementations must be symmetric and byte-granular.
type Compressor interface {
	// MaxCompressedSize bounds the output size for a given input size.
	MaxCompressedSize(bufferSize int) int
	// Compress encodes buffer, writing into dst's storage when its capacity allows.
	Compress(dst, buffer []byte) ([]byte, navmesh.Status)
	// Decompress decodes into dst, which carries the expected length.
	Decompress(dst, compressed []byte) ([]byte, navmesh.Status)
}

// ScratchAllocator hands out short-lived buffers for one tile rebuild.
// Reset reclaims everything at once between rebuilds.
type ScratchAllocator interface {
	Alloc(size int) []byte
	Reset()
}

// MeshProcess lets the host adjust polygon flags and areas after a tile
// rebuild, before the payload is assembled.
type MeshProcess interface {
	Process(params *navmesh.CreateParams, polyAreas []uint8, polyFlags []uint16)
}

// LayerPolyMesh is the polygon mesh a LayerMeshBuilder derives from a
// layer, in the quantised form navmesh.CreateParams consumes.
type LayerPolyMesh struct {
	NVerts int32
	NPolys int32
	Verts  []uint16 // [(x, y, z) * NVerts]
	Polys  []uint16 // [(verts, neis) * NPolys], VertsPerPolygon each.
	Flags  []uint16
	Areas  []uint8
}

// LayerMeshBuilder runs the region, contour and polygon-mesh extraction
// over a rebuilt layer. The pipeline itself lives outside this package;
// the cache only drives it.
type LayerMeshBuilder interface {
	Build(layer *Layer, walkableClimbVx int32, maxError float32) (*LayerPolyMesh, navmesh.Status)
}
