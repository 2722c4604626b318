// Package exact maintains the content-hash lookup table for the exact
// duplicate tier. The table is an explicit owned structure handed to the
// engine, never a package-level singleton, so tests get fresh state and
// deployments can shard it.
package exact

import (
	"sync"

	"github.com/custodia-labs/dedup-cli/internal/core/domain"
)

// shardCount spreads lock contention under batch ingestion.
// Must be a power of two.
const shardCount = 32

type shard struct {
	mu      sync.RWMutex
	entries map[domain.Hash256]string
}

// Index maps content hashes to document IDs. Safe for concurrent use;
// each shard takes a single writer at a time while readers proceed.
type Index struct {
	shards [shardCount]*shard
}

// New creates an empty exact-hash index.
func New() *Index {
	idx := &Index{}
	for i := range idx.shards {
		idx.shards[i] = &shard{entries: make(map[domain.Hash256]string)}
	}
	return idx
}

func (idx *Index) shardFor(h domain.Hash256) *shard {
	// The hash is uniformly distributed; the first byte picks the shard.
	return idx.shards[h[0]&(shardCount-1)]
}

// Lookup returns the document ID recorded for the hash, if any.
func (idx *Index) Lookup(h domain.Hash256) (string, bool) {
	s := idx.shardFor(h)
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.entries[h]
	return id, ok
}

// Insert records the hash for the given document ID unless another
// document already owns it, in which case the existing owner is returned.
// The load-or-store contract is what keeps concurrent ingestion of
// identical documents down to exactly one unique classification.
func (idx *Index) Insert(h domain.Hash256, docID string) (existing string, inserted bool) {
	s := idx.shardFor(h)
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.entries[h]; ok {
		return id, false
	}
	s.entries[h] = docID
	return docID, true
}

// Remove deletes the hash entry if it is owned by docID.
// Used to roll back a cancelled commit.
func (idx *Index) Remove(h domain.Hash256, docID string) {
	s := idx.shardFor(h)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries[h] == docID {
		delete(s.entries, h)
	}
}

// Len returns the number of entries across all shards.
func (idx *Index) Len() int {
	n := 0
	for _, s := range idx.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}
