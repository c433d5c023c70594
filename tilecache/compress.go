package tilecache

import (
	"github.com/klauspost/compress/s2"

	"tilenav/navmesh"
)

// S2Compressor is the default Compressor, encoding layer grids with the
// s2 block format. Layer grids are long runs of identical bytes, which
// s2 packs well without any tuning.
type S2Compressor struct{}

func (S2Compressor) MaxCompressedSize(bufferSize int) int {
	return s2.MaxEncodedLen(bufferSize)
}

func (S2Compressor) Compress(dst, buffer []byte) ([]byte, navmesh.Status) {
	return s2.Encode(dst[:cap(dst)], buffer), navmesh.Success
}

func (S2Compressor) Decompress(dst, compressed []byte) ([]byte, navmesh.Status) {
	out, err := s2.Decode(dst, compressed)
	if err != nil {
		return nil, navmesh.Failure | navmesh.InvalidParam
	}
	return out, navmesh.Success
}

// scratchArena is the default ScratchAllocator: a bump allocator over one
// backing buffer, reclaimed wholesale by Reset between rebuilds.
type scratchArena struct {
	buf []byte
	top int
}

// NewScratchArena returns a bump allocator with the given capacity.
// Requests past the capacity fall through to the heap; the arena grows
// to the high-water mark on the next Reset.
func NewScratchArena(capacity int) ScratchAllocator {
	return &scratchArena{buf: make([]byte, capacity)}
}

func (a *scratchArena) Alloc(size int) []byte {
	if a.top+size > len(a.buf) {
		a.top += size
		return make([]byte, size)
	}
	p := a.buf[a.top : a.top+size : a.top+size]
	a.top += size
	return p
}

func (a *scratchArena) Reset() {
	if a.top > len(a.buf) {
		a.buf = make([]byte, a.top)
	}
	a.top = 0
}
