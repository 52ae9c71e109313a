package storage

import (
	"context"

	"github.com/poiesic/chatvault/core"
)

// Engine provides storage operations for one record kind.
// Implementations must be thread-safe and must never hand out memory that
// aliases their own copy of a record.
type Engine[T any] interface {
	// Put inserts or fully replaces the record with the same ID.
	// Returns a copy of the record as stored.
	Put(ctx context.Context, record *T) (*T, error)

	// Get retrieves a single record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	Get(ctx context.Context, id string) (*T, error)

	// GetBySession retrieves every record of a session, sorted by the
	// record type's comparator.
	GetBySession(ctx context.Context, sessionURL string) ([]*T, error)

	// Delete removes a record by ID and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)

	// Clear removes every record and returns how many there were.
	Clear(ctx context.Context) (int, error)

	// ClearSession removes the records of one session and returns how many
	// were removed. Records of other sessions are untouched.
	ClearSession(ctx context.Context, sessionURL string) (int, error)

	// GetAll retrieves every record, sorted by the record type's comparator.
	GetAll(ctx context.Context) ([]*T, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the engine.
	Close() error
}

// BlockEngine stores Block records.
type BlockEngine = Engine[core.Block]

// MetaSummaryEngine stores MetaSummary records.
type MetaSummaryEngine = Engine[core.MetaSummary]
