// Package lsh implements the banded locality-sensitive hash index used
// for near-duplicate candidate retrieval. Signatures are split into b
// bands of r rows; each band hashes to a bucket, and a query unions the
// bucket contents across bands. Candidates are NOT verified matches; the
// caller re-checks each against the stored signature.
package lsh

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/custodia-labs/dedup-cli/internal/core/domain"
)

// Params fixes the banding of an index. Bands*Rows must equal the
// signature length supplied to Insert and Query.
type Params struct {
	Bands int
	Rows  int
}

// SignatureLen returns the signature length the banding expects.
func (p Params) SignatureLen() int {
	return p.Bands * p.Rows
}

// Validate checks the banding is usable.
func (p Params) Validate() error {
	if p.Bands <= 0 || p.Rows <= 0 {
		return fmt.Errorf("%w: bands and rows must be positive", domain.ErrInvalidInput)
	}
	return nil
}

// bucketKey identifies one bucket: the band number plus the band hash.
type bucketKey struct {
	band int
	hash uint64
}

// Index is a banded LSH index over MinHash signatures.
//
// A single RWMutex guards all buckets rather than a per-bucket lock:
// an insert touches one bucket per band and must become visible to
// queries all-or-nothing, which striped locks cannot guarantee without
// ordered multi-lock acquisition. Queries take the read lock and run
// concurrently; the write section is a handful of map inserts. The
// benchmark in index_test.go covers throughput under this discipline.
type Index struct {
	params Params

	mu      sync.RWMutex
	buckets map[bucketKey]map[string]struct{}
	members int
}

// New creates an empty LSH index with the given banding.
func New(params Params) (*Index, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Index{
		params:  params,
		buckets: make(map[bucketKey]map[string]struct{}),
	}, nil
}

// Params returns the banding of the index.
func (idx *Index) Params() Params {
	return idx.params
}

// Insert adds a signature to every band bucket atomically with respect
// to concurrent queries. Inserting the same ID twice is a no-op.
func (idx *Index) Insert(id string, sig domain.MinHashSignature) error {
	keys, err := idx.bandKeys(sig)
	if err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	added := false
	for _, key := range keys {
		bucket, ok := idx.buckets[key]
		if !ok {
			bucket = make(map[string]struct{})
			idx.buckets[key] = bucket
		}
		if _, dup := bucket[id]; !dup {
			bucket[id] = struct{}{}
			added = true
		}
	}
	if added {
		idx.members++
	}
	return nil
}

// Remove deletes a signature's entries from every band bucket.
// Used to roll back a cancelled commit.
func (idx *Index) Remove(id string, sig domain.MinHashSignature) error {
	keys, err := idx.bandKeys(sig)
	if err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	removed := false
	for _, key := range keys {
		bucket, ok := idx.buckets[key]
		if !ok {
			continue
		}
		if _, present := bucket[id]; present {
			delete(bucket, id)
			removed = true
		}
		if len(bucket) == 0 {
			delete(idx.buckets, key)
		}
	}
	if removed {
		idx.members--
	}
	return nil
}

// Query returns the union of bucket contents across all bands for the
// query signature: candidate IDs only, to be re-verified by the caller.
func (idx *Index) Query(sig domain.MinHashSignature) ([]string, error) {
	keys, err := idx.bandKeys(sig)
	if err != nil {
		return nil, err
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	seen := make(map[string]struct{})
	var candidates []string
	for _, key := range keys {
		for id := range idx.buckets[key] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			candidates = append(candidates, id)
		}
	}
	return candidates, nil
}

// Len returns the number of signatures held.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.members
}

// BucketCount returns the number of live buckets, for stats output.
func (idx *Index) BucketCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.buckets)
}

// bandKeys hashes each band's sub-vector to its bucket key.
func (idx *Index) bandKeys(sig domain.MinHashSignature) ([]bucketKey, error) {
	if len(sig) != idx.params.SignatureLen() {
		return nil, fmt.Errorf("%w: signature length %d, banding expects %d",
			domain.ErrInvalidInput, len(sig), idx.params.SignatureLen())
	}

	keys := make([]bucketKey, idx.params.Bands)
	var buf [8]byte
	for band := 0; band < idx.params.Bands; band++ {
		h := fnv.New64a()
		start := band * idx.params.Rows
		for _, v := range sig[start : start+idx.params.Rows] {
			binary.BigEndian.PutUint64(buf[:], v)
			h.Write(buf[:])
		}
		keys[band] = bucketKey{band: band, hash: h.Sum64()}
	}
	return keys, nil
}
