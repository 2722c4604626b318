package exact

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dedup-cli/internal/core/domain"
)

func hashOf(s string) domain.Hash256 {
	return domain.Hash256(sha256.Sum256([]byte(s)))
}

func TestIndex_InsertAndLookup(t *testing.T) {
	idx := New()
	h := hashOf("content")

	_, found := idx.Lookup(h)
	assert.False(t, found)

	owner, inserted := idx.Insert(h, "doc-1")
	assert.True(t, inserted)
	assert.Equal(t, "doc-1", owner)

	id, found := idx.Lookup(h)
	assert.True(t, found)
	assert.Equal(t, "doc-1", id)
	assert.Equal(t, 1, idx.Len())
}

func TestIndex_InsertIsLoadOrStore(t *testing.T) {
	idx := New()
	h := hashOf("content")

	idx.Insert(h, "first")
	owner, inserted := idx.Insert(h, "second")
	assert.False(t, inserted)
	assert.Equal(t, "first", owner)

	// The losing insert must not overwrite the owner.
	id, _ := idx.Lookup(h)
	assert.Equal(t, "first", id)
	assert.Equal(t, 1, idx.Len())
}

func TestIndex_RemoveOnlyByOwner(t *testing.T) {
	idx := New()
	h := hashOf("content")
	idx.Insert(h, "owner")

	// A rollback by a non-owner must not evict the entry.
	idx.Remove(h, "other")
	_, found := idx.Lookup(h)
	assert.True(t, found)

	idx.Remove(h, "owner")
	_, found = idx.Lookup(h)
	assert.False(t, found)
	assert.Zero(t, idx.Len())
}

func TestIndex_LenAcrossShards(t *testing.T) {
	idx := New()
	for i := 0; i < 100; i++ {
		idx.Insert(hashOf(fmt.Sprintf("doc-%d", i)), fmt.Sprintf("doc-%d", i))
	}
	assert.Equal(t, 100, idx.Len())
}

func TestIndex_ConcurrentInsertSameHash(t *testing.T) {
	idx := New()
	h := hashOf("contended")

	const workers = 32
	winners := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, inserted := idx.Insert(h, fmt.Sprintf("doc-%d", i)); inserted {
				winners <- fmt.Sprintf("doc-%d", i)
			}
		}(i)
	}
	wg.Wait()
	close(winners)

	var won []string
	for id := range winners {
		won = append(won, id)
	}
	require.Len(t, won, 1, "exactly one insert may win")

	id, found := idx.Lookup(h)
	assert.True(t, found)
	assert.Equal(t, won[0], id)
	assert.Equal(t, 1, idx.Len())
}

func TestIndex_ConcurrentDistinctHashes(t *testing.T) {
	idx := New()

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("doc-%d", i)
			_, inserted := idx.Insert(hashOf(id), id)
			assert.True(t, inserted)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 200, idx.Len())
}
