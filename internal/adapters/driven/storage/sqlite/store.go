package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/dedup-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/dedup-cli/internal/core/domain"
	"github.com/custodia-labs/dedup-cli/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to the
// record and chain store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.dedup/data/dedup.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".dedup", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "dedup.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// RecordStore returns a RecordStore interface backed by this store.
func (s *Store) RecordStore() driven.RecordStore {
	return &recordStore{store: s}
}

// ChainStore returns a ChainStore interface backed by this store.
func (s *Store) ChainStore() driven.ChainStore {
	return &chainStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Record Store ====================

// recordStore implements driven.RecordStore.
type recordStore struct {
	store *Store
}

var _ driven.RecordStore = (*recordStore)(nil)

// Save stores or updates a record.
func (s *recordStore) Save(ctx context.Context, rec *domain.DocumentRecord) error {
	if rec.ID == "" {
		return domain.ErrInvalidInput
	}

	signatureBlob := uint64SliceToBytes(rec.Signature)

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO document_records (id, content_hash, signature, embedding_id, indexed_at, chain_id, is_latest)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content_hash = excluded.content_hash,
			signature = excluded.signature,
			embedding_id = excluded.embedding_id,
			indexed_at = excluded.indexed_at,
			chain_id = excluded.chain_id,
			is_latest = excluded.is_latest
	`, rec.ID, rec.ContentHash.String(), signatureBlob, rec.EmbeddingID,
		rec.IndexedAt, rec.ChainID, rec.IsLatest)

	if err != nil {
		return fmt.Errorf("saving record: %w", err)
	}
	return nil
}

// Get retrieves a record by ID.
func (s *recordStore) Get(ctx context.Context, id string) (*domain.DocumentRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, content_hash, signature, embedding_id, indexed_at, chain_id, is_latest
		FROM document_records WHERE id = ?
	`, id)

	return scanRecord(row)
}

// GetByContentHash retrieves the record owning a content hash.
func (s *recordStore) GetByContentHash(ctx context.Context, h domain.Hash256) (*domain.DocumentRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, content_hash, signature, embedding_id, indexed_at, chain_id, is_latest
		FROM document_records WHERE content_hash = ?
		ORDER BY indexed_at LIMIT 1
	`, h.String())

	return scanRecord(row)
}

// List returns all records.
func (s *recordStore) List(ctx context.Context) ([]domain.DocumentRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, content_hash, signature, embedding_id, indexed_at, chain_id, is_latest
		FROM document_records
	`)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []domain.DocumentRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		rec, err := scanRecordRows(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}

	return records, nil
}

// Count returns the number of records.
func (s *recordStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM document_records").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return count, nil
}

// Delete removes a record.
func (s *recordStore) Delete(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM document_records WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	return nil
}

// ==================== Chain Store ====================

// chainStore implements driven.ChainStore.
type chainStore struct {
	store *Store
}

var _ driven.ChainStore = (*chainStore)(nil)

// Get retrieves a chain by ID.
func (s *chainStore) Get(ctx context.Context, chainID string) (*domain.VersionChain, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, created_at, updated_at FROM version_chains WHERE id = ?
	`, chainID)

	var chain domain.VersionChain
	if err := row.Scan(&chain.ID, &chain.CreatedAt, &chain.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chain: %w", err)
	}

	members, err := s.members(ctx, chain.ID)
	if err != nil {
		return nil, err
	}
	chain.MemberIDs = members

	return &chain, nil
}

// GetByMember retrieves the chain containing a record.
func (s *chainStore) GetByMember(ctx context.Context, docID string) (*domain.VersionChain, error) {
	var chainID string
	err := s.store.db.QueryRowContext(ctx, `
		SELECT chain_id FROM chain_members WHERE doc_id = ?
	`, docID).Scan(&chainID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("resolving chain membership: %w", err)
	}

	return s.Get(ctx, chainID)
}

// List returns all chains.
func (s *chainStore) List(ctx context.Context) ([]domain.VersionChain, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, created_at, updated_at FROM version_chains ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chains: %w", err)
	}
	defer rows.Close()

	var chains []domain.VersionChain //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chain domain.VersionChain
		if err := rows.Scan(&chain.ID, &chain.CreatedAt, &chain.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning chain: %w", err)
		}
		chains = append(chains, chain)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chains: %w", err)
	}

	for i := range chains {
		members, err := s.members(ctx, chains[i].ID)
		if err != nil {
			return nil, err
		}
		chains[i].MemberIDs = members
	}

	return chains, nil
}

// Create forms a new chain; the last member becomes latest.
func (s *chainStore) Create(ctx context.Context, memberIDs []string) (*domain.VersionChain, error) {
	if len(memberIDs) == 0 {
		return nil, domain.ErrInvalidInput
	}

	now := time.Now().UTC()
	chain := domain.VersionChain{
		ID:        uuid.NewString(),
		MemberIDs: append([]string(nil), memberIDs...),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO version_chains (id, created_at, updated_at) VALUES (?, ?, ?)
		`, chain.ID, chain.CreatedAt, chain.UpdatedAt); err != nil {
			return fmt.Errorf("inserting chain: %w", err)
		}
		return setMembersTx(ctx, tx, chain.ID, chain.MemberIDs)
	})
	if err != nil {
		return nil, err
	}

	return &chain, nil
}

// Append adds a member to an existing chain and transfers latest status to it.
func (s *chainStore) Append(ctx context.Context, chainID, docID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM version_chains WHERE id = ?)", chainID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking chain: %w", err)
		}
		if !exists {
			return domain.ErrNotFound
		}

		members, err := membersTx(ctx, tx, chainID)
		if err != nil {
			return err
		}
		for _, m := range members {
			if m == docID {
				return domain.ErrAlreadyExists
			}
		}

		members = append(members, docID)
		if err := setMembersTx(ctx, tx, chainID, members); err != nil {
			return err
		}
		return touchChainTx(ctx, tx, chainID)
	})
}

// Merge moves every member of src into dst ordered by IndexedAt and
// deletes src.
func (s *chainStore) Merge(ctx context.Context, dstID, srcID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, id := range []string{dstID, srcID} {
			var exists bool
			err := tx.QueryRowContext(ctx,
				"SELECT EXISTS(SELECT 1 FROM version_chains WHERE id = ?)", id).Scan(&exists)
			if err != nil {
				return fmt.Errorf("checking chain: %w", err)
			}
			if !exists {
				return domain.ErrNotFound
			}
		}

		dstMembers, err := membersTx(ctx, tx, dstID)
		if err != nil {
			return err
		}
		srcMembers, err := membersTx(ctx, tx, srcID)
		if err != nil {
			return err
		}

		merged := append(append([]string(nil), dstMembers...), srcMembers...)
		indexedAt := make(map[string]time.Time, len(merged))
		for _, id := range merged {
			var ts sql.NullTime
			err := tx.QueryRowContext(ctx,
				"SELECT indexed_at FROM document_records WHERE id = ?", id).Scan(&ts)
			if err != nil && err != sql.ErrNoRows {
				return fmt.Errorf("reading member record: %w", err)
			}
			if ts.Valid {
				indexedAt[id] = ts.Time
			}
		}
		sort.SliceStable(merged, func(i, j int) bool {
			return indexedAt[merged[i]].Before(indexedAt[merged[j]])
		})

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM chain_members WHERE chain_id = ?", srcID); err != nil {
			return fmt.Errorf("clearing source members: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM version_chains WHERE id = ?", srcID); err != nil {
			return fmt.Errorf("deleting source chain: %w", err)
		}
		if err := setMembersTx(ctx, tx, dstID, merged); err != nil {
			return err
		}
		return touchChainTx(ctx, tx, dstID)
	})
}

// Split moves fromDocID and all later members of a chain into a new chain.
func (s *chainStore) Split(ctx context.Context, chainID, fromDocID string) (*domain.VersionChain, error) {
	now := time.Now().UTC()
	newChain := domain.VersionChain{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM version_chains WHERE id = ?)", chainID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking chain: %w", err)
		}
		if !exists {
			return domain.ErrNotFound
		}

		members, err := membersTx(ctx, tx, chainID)
		if err != nil {
			return err
		}

		at := -1
		for i, m := range members {
			if m == fromDocID {
				at = i
				break
			}
		}
		if at < 0 {
			return domain.ErrNotFound
		}
		if at == 0 {
			// Splitting at the first member would empty the source chain.
			return domain.ErrInvalidInput
		}

		newChain.MemberIDs = append([]string(nil), members[at:]...)

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO version_chains (id, created_at, updated_at) VALUES (?, ?, ?)
		`, newChain.ID, newChain.CreatedAt, newChain.UpdatedAt); err != nil {
			return fmt.Errorf("inserting chain: %w", err)
		}

		if err := setMembersTx(ctx, tx, chainID, members[:at]); err != nil {
			return err
		}
		if err := setMembersTx(ctx, tx, newChain.ID, newChain.MemberIDs); err != nil {
			return err
		}
		return touchChainTx(ctx, tx, chainID)
	})
	if err != nil {
		return nil, err
	}

	return &newChain, nil
}

// Count returns the number of chains.
func (s *chainStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM version_chains").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting chains: %w", err)
	}
	return count, nil
}

// members loads a chain's member IDs in position order.
func (s *chainStore) members(ctx context.Context, chainID string) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT doc_id FROM chain_members WHERE chain_id = ? ORDER BY position
	`, chainID)
	if err != nil {
		return nil, fmt.Errorf("querying chain members: %w", err)
	}
	defer rows.Close()

	return collectMembers(rows)
}

// inTx runs fn inside a transaction, committing on nil and rolling back
// on error.
func (s *chainStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// membersTx loads a chain's member IDs in position order within a transaction.
func membersTx(ctx context.Context, tx *sql.Tx, chainID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT doc_id FROM chain_members WHERE chain_id = ? ORDER BY position
	`, chainID)
	if err != nil {
		return nil, fmt.Errorf("querying chain members: %w", err)
	}
	defer rows.Close()

	return collectMembers(rows)
}

// setMembersTx rewrites a chain's membership rows and stamps chain ID and
// latest flags onto the member records. Records missing from the store
// are skipped; the tracker handles that inconsistency upstream.
func setMembersTx(ctx context.Context, tx *sql.Tx, chainID string, memberIDs []string) error {
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM chain_members WHERE chain_id = ?", chainID); err != nil {
		return fmt.Errorf("clearing chain members: %w", err)
	}

	for i, id := range memberIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chain_members (chain_id, doc_id, position) VALUES (?, ?, ?)
		`, chainID, id, i); err != nil {
			return fmt.Errorf("inserting chain member: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE document_records SET chain_id = ?, is_latest = ? WHERE id = ?
		`, chainID, i == len(memberIDs)-1, id); err != nil {
			return fmt.Errorf("updating member record: %w", err)
		}
	}

	return nil
}

// touchChainTx bumps a chain's updated_at timestamp.
func touchChainTx(ctx context.Context, tx *sql.Tx, chainID string) error {
	if _, err := tx.ExecContext(ctx,
		"UPDATE version_chains SET updated_at = ? WHERE id = ?",
		time.Now().UTC(), chainID); err != nil {
		return fmt.Errorf("updating chain timestamp: %w", err)
	}
	return nil
}

// collectMembers drains a doc_id result set.
func collectMembers(rows *sql.Rows) ([]string, error) {
	var members []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning chain member: %w", err)
		}
		members = append(members, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chain members: %w", err)
	}

	return members, nil
}

// scanRecord scans a single record row.
func scanRecord(row *sql.Row) (*domain.DocumentRecord, error) {
	var rec domain.DocumentRecord
	var hashHex string
	var signatureBlob []byte

	if err := row.Scan(&rec.ID, &hashHex, &signatureBlob, &rec.EmbeddingID,
		&rec.IndexedAt, &rec.ChainID, &rec.IsLatest); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning record: %w", err)
	}

	h, err := domain.ParseHash256(hashHex)
	if err != nil {
		return nil, fmt.Errorf("parsing content hash: %w", err)
	}
	rec.ContentHash = h
	rec.Signature = bytesToUint64Slice(signatureBlob)

	return &rec, nil
}

// scanRecordRows scans a record from *sql.Rows.
func scanRecordRows(rows *sql.Rows) (*domain.DocumentRecord, error) {
	var rec domain.DocumentRecord
	var hashHex string
	var signatureBlob []byte

	if err := rows.Scan(&rec.ID, &hashHex, &signatureBlob, &rec.EmbeddingID,
		&rec.IndexedAt, &rec.ChainID, &rec.IsLatest); err != nil {
		return nil, fmt.Errorf("scanning record: %w", err)
	}

	h, err := domain.ParseHash256(hashHex)
	if err != nil {
		return nil, fmt.Errorf("parsing content hash: %w", err)
	}
	rec.ContentHash = h
	rec.Signature = bytesToUint64Slice(signatureBlob)

	return &rec, nil
}

// uint64SliceToBytes converts a MinHash signature to a byte slice for storage.
func uint64SliceToBytes(sig domain.MinHashSignature) []byte {
	if len(sig) == 0 {
		return nil
	}
	buf := make([]byte, len(sig)*8)
	for i, v := range sig {
		binary.LittleEndian.PutUint64(buf[i*8:], v)
	}
	return buf
}

// bytesToUint64Slice converts a byte slice back to a MinHash signature.
func bytesToUint64Slice(data []byte) domain.MinHashSignature {
	if len(data) == 0 {
		return nil
	}
	sig := make(domain.MinHashSignature, len(data)/8)
	for i := range sig {
		sig[i] = binary.LittleEndian.Uint64(data[i*8:])
	}
	return sig
}
