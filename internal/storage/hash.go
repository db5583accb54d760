package storage

import "github.com/cespare/xxhash/v2"

// Hasher computes the 32-bit hash coordinates a Disk routes records by. The
// choice of hash function is deliberately pluggable: production code should
// use a function with good avalanche behavior over short keys, but a test
// can substitute a deterministic stub to force records into chosen shards.
type Hasher interface {
	Hash(data []byte) uint32
}

// XXHasher computes hashes with xxHash64, truncated to the low 32 bits.
// xxHash64 is a good stand-in for the CityHash-family functions hyperspace
// partitioning schemes typically use: fast, well-distributed, and free of
// cryptographic overhead this engine has no use for.
type XXHasher struct{}

// Hash implements Hasher.
func (XXHasher) Hash(data []byte) uint32 {
	return uint32(xxhash.Sum64(data))
}

// primaryHash and secondaryHash derive a record's two routing coordinates:
// primaryHash from the key alone, secondaryHash from the value's attribute
// bytes alone, so that records clustered by value (regardless of key) land
// in the same secondary position.
func primaryHash(h Hasher, key []byte) uint32 {
	return h.Hash(key)
}

func secondaryHash(h Hasher, value [][]byte) uint32 {
	buf := make([]byte, 0, 64)
	for _, attr := range value {
		buf = append(buf, attr...)
	}
	return h.Hash(buf)
}
