package driven

import (
	"context"

	"github.com/custodia-labs/dedup-cli/internal/core/domain"
)

// RecordStore persists document records. Backed by SQLite for durable
// deployments and by an in-memory map for tests.
type RecordStore interface {
	// Save stores or updates a record.
	Save(ctx context.Context, rec *domain.DocumentRecord) error

	// Get retrieves a record by ID.
	Get(ctx context.Context, id string) (*domain.DocumentRecord, error)

	// GetByContentHash retrieves the record owning a content hash.
	GetByContentHash(ctx context.Context, h domain.Hash256) (*domain.DocumentRecord, error)

	// List returns all records. Used to rebuild in-memory indexes at startup.
	List(ctx context.Context) ([]domain.DocumentRecord, error)

	// Count returns the number of records.
	Count(ctx context.Context) (int, error)

	// Delete removes a record. Rollback path only; normal retention
	// deletion is external to this engine.
	Delete(ctx context.Context, id string) error
}
