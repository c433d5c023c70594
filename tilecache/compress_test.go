package tilecache

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestS2CompressorRoundTrip(t *testing.T) {
	comp := S2Compressor{}

	buffer := bytes.Repeat([]byte{63}, 8*8)
	buffer = append(buffer, bytes.Repeat([]byte{0}, 8*8)...)

	dst := make([]byte, 0, comp.MaxCompressedSize(len(buffer)))
	compressed, status := comp.Compress(dst, buffer)
	require.True(t, status.Succeed())
	require.NotEmpty(t, compressed)

	out, status := comp.Decompress(make([]byte, len(buffer)), compressed)
	require.True(t, status.Succeed())
	require.Equal(t, buffer, out)
}

func TestS2CompressorRejectsGarbage(t *testing.T) {
	comp := S2Compressor{}
	_, status := comp.Decompress(make([]byte, 64), []byte{0xff, 0xfe, 0xfd})
	require.True(t, status.Failed())
}

func TestScratchArenaReuseAndGrowth(t *testing.T) {
	arena := NewScratchArena(64)

	a := arena.Alloc(32)
	require.Len(t, a, 32)
	b := arena.Alloc(32)
	require.Len(t, b, 32)

	// Past capacity the arena spills to the heap and grows on Reset.
	c := arena.Alloc(128)
	require.Len(t, c, 128)

	arena.Reset()
	d := arena.Alloc(128)
	require.Len(t, d, 128)
}
