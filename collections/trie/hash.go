package trie

import (
	"hash/fnv"
)

// Hasher maps a key to the 32-bit hash which selects its path through the trie. Equal keys must hash equally.
type Hasher[K comparable] func(key K) uint32

// Uint64Hasher hashes 64-bit integers, such as heap addresses, by mixing both halves.
func Uint64Hasher(key uint64) uint32 {
	key ^= key >> 33
	key *= 0xff51afd7ed558ccd
	key ^= key >> 33
	key *= 0xc4ceb9fe1a85ec53
	key ^= key >> 33
	return uint32(key)
}

// StringHasher hashes strings with 32-bit FNV-1a.
func StringHasher(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32()
}
