// Package similarity implements the fingerprinting primitives of the
// deduplication pipeline: cryptographic content hashing for the exact
// tier and word-shingle MinHash sketching for the near tier.
//
// All functions are pure and deterministic across processes; the MinHash
// permutation family is seeded from fixed constants so signatures sketched
// on one machine compare correctly against signatures stored by another.
package similarity
