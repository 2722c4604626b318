// Package memory provides in-memory implementations of the engine's
// storage ports. Used by tests and by ephemeral (non-persistent) runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/dedup-cli/internal/core/domain"
	"github.com/custodia-labs/dedup-cli/internal/core/ports/driven"
)

// Store is a unified in-memory store backing both the record and chain
// interfaces. A single mutex covers records and chains together so chain
// mutations, which touch member records' latest flags, are atomic with
// respect to readers: no reader ever observes two latest members.
type Store struct {
	mu      sync.RWMutex
	records map[string]domain.DocumentRecord
	chains  map[string]domain.VersionChain
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		records: make(map[string]domain.DocumentRecord),
		chains:  make(map[string]domain.VersionChain),
	}
}

// RecordStore returns a RecordStore interface backed by this store.
func (s *Store) RecordStore() driven.RecordStore {
	return &recordStore{store: s}
}

// ChainStore returns a ChainStore interface backed by this store.
func (s *Store) ChainStore() driven.ChainStore {
	return &chainStore{store: s}
}

// ==================== Record Store ====================

type recordStore struct {
	store *Store
}

var _ driven.RecordStore = (*recordStore)(nil)

// Save stores or updates a record.
func (s *recordStore) Save(_ context.Context, rec *domain.DocumentRecord) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.records[rec.ID] = cloneRecord(rec)
	return nil
}

// Get retrieves a record by ID.
func (s *recordStore) Get(_ context.Context, id string) (*domain.DocumentRecord, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	rec, ok := s.store.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneRecord(&rec)
	return &out, nil
}

// GetByContentHash retrieves the record owning a content hash.
func (s *recordStore) GetByContentHash(_ context.Context, h domain.Hash256) (*domain.DocumentRecord, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	for id := range s.store.records {
		rec := s.store.records[id]
		if rec.ContentHash == h {
			out := cloneRecord(&rec)
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

// List returns all records.
func (s *recordStore) List(_ context.Context) ([]domain.DocumentRecord, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	out := make([]domain.DocumentRecord, 0, len(s.store.records))
	for id := range s.store.records {
		rec := s.store.records[id]
		out = append(out, cloneRecord(&rec))
	}
	return out, nil
}

// Count returns the number of records.
func (s *recordStore) Count(_ context.Context) (int, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	return len(s.store.records), nil
}

// Delete removes a record.
func (s *recordStore) Delete(_ context.Context, id string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	delete(s.store.records, id)
	return nil
}

// ==================== Chain Store ====================

type chainStore struct {
	store *Store
}

var _ driven.ChainStore = (*chainStore)(nil)

// Get retrieves a chain by ID.
func (s *chainStore) Get(_ context.Context, chainID string) (*domain.VersionChain, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	chain, ok := s.store.chains[chainID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneChain(&chain)
	return &out, nil
}

// GetByMember retrieves the chain containing a record.
func (s *chainStore) GetByMember(_ context.Context, docID string) (*domain.VersionChain, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	rec, ok := s.store.records[docID]
	if !ok || rec.ChainID == "" {
		return nil, domain.ErrNotFound
	}
	chain, ok := s.store.chains[rec.ChainID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneChain(&chain)
	return &out, nil
}

// List returns all chains.
func (s *chainStore) List(_ context.Context) ([]domain.VersionChain, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	out := make([]domain.VersionChain, 0, len(s.store.chains))
	for id := range s.store.chains {
		chain := s.store.chains[id]
		out = append(out, cloneChain(&chain))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Create forms a new chain; the last member becomes latest.
func (s *chainStore) Create(_ context.Context, memberIDs []string) (*domain.VersionChain, error) {
	if len(memberIDs) == 0 {
		return nil, domain.ErrInvalidInput
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	now := time.Now().UTC()
	chain := domain.VersionChain{
		ID:        uuid.NewString(),
		MemberIDs: append([]string(nil), memberIDs...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.store.chains[chain.ID] = chain
	s.store.setMembersLocked(chain.ID, chain.MemberIDs)
	out := cloneChain(&chain)
	return &out, nil
}

// Append adds a member and transfers latest status to it.
func (s *chainStore) Append(_ context.Context, chainID, docID string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	chain, ok := s.store.chains[chainID]
	if !ok {
		return domain.ErrNotFound
	}
	if chain.Contains(docID) {
		return domain.ErrAlreadyExists
	}
	chain.MemberIDs = append(chain.MemberIDs, docID)
	chain.UpdatedAt = time.Now().UTC()
	s.store.chains[chainID] = chain
	s.store.setMembersLocked(chainID, chain.MemberIDs)
	return nil
}

// Merge moves every member of src into dst ordered by IndexedAt.
func (s *chainStore) Merge(_ context.Context, dstID, srcID string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	dst, ok := s.store.chains[dstID]
	if !ok {
		return domain.ErrNotFound
	}
	src, ok := s.store.chains[srcID]
	if !ok {
		return domain.ErrNotFound
	}

	merged := append(append([]string(nil), dst.MemberIDs...), src.MemberIDs...)
	sort.SliceStable(merged, func(i, j int) bool {
		return s.store.records[merged[i]].IndexedAt.Before(s.store.records[merged[j]].IndexedAt)
	})

	dst.MemberIDs = merged
	dst.UpdatedAt = time.Now().UTC()
	s.store.chains[dstID] = dst
	delete(s.store.chains, srcID)
	s.store.setMembersLocked(dstID, merged)
	return nil
}

// Split moves fromDocID and all later members into a new chain.
func (s *chainStore) Split(_ context.Context, chainID, fromDocID string) (*domain.VersionChain, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	chain, ok := s.store.chains[chainID]
	if !ok {
		return nil, domain.ErrNotFound
	}

	at := -1
	for i, m := range chain.MemberIDs {
		if m == fromDocID {
			at = i
			break
		}
	}
	if at < 0 {
		return nil, domain.ErrNotFound
	}
	if at == 0 {
		// Splitting at the first member would empty the source chain.
		return nil, domain.ErrInvalidInput
	}

	now := time.Now().UTC()
	moved := append([]string(nil), chain.MemberIDs[at:]...)
	chain.MemberIDs = chain.MemberIDs[:at]
	chain.UpdatedAt = now
	s.store.chains[chainID] = chain

	newChain := domain.VersionChain{
		ID:        uuid.NewString(),
		MemberIDs: moved,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.store.chains[newChain.ID] = newChain

	s.store.setMembersLocked(chainID, chain.MemberIDs)
	s.store.setMembersLocked(newChain.ID, moved)
	out := cloneChain(&newChain)
	return &out, nil
}

// Count returns the number of chains.
func (s *chainStore) Count(_ context.Context) (int, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	return len(s.store.chains), nil
}

// setMembersLocked stamps chain membership and latest flags onto the
// member records. Caller holds the write lock. Records missing from the
// store are skipped; the tracker handles that inconsistency upstream.
func (s *Store) setMembersLocked(chainID string, memberIDs []string) {
	for i, id := range memberIDs {
		rec, ok := s.records[id]
		if !ok {
			continue
		}
		rec.ChainID = chainID
		rec.IsLatest = i == len(memberIDs)-1
		s.records[id] = rec
	}
}

// ==================== Helpers ====================

func cloneRecord(rec *domain.DocumentRecord) domain.DocumentRecord {
	out := *rec
	out.Signature = append(domain.MinHashSignature(nil), rec.Signature...)
	return out
}

func cloneChain(chain *domain.VersionChain) domain.VersionChain {
	out := *chain
	out.MemberIDs = append([]string(nil), chain.MemberIDs...)
	return out
}
