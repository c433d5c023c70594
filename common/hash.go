package common

// ComputeTileHash maps a tile grid position to a bucket of the position
// lookup table. mask must be lutSize-1 with lutSize a power of two.
func ComputeTileHash(x, y, mask int32) int32 {
	h1 := uint32(0x8da6b343) // Large multiplicative constants;
	h2 := uint32(0xd8163841) // here arbitrarily chosen primes.
	n := h1*uint32(x) + h2*uint32(y)
	return int32(n & uint32(mask))
}
