// Package store provides the local persistence layer for ledger records:
// a Repository interface and a SQLite-backed implementation over dbx.DBTX.
//
// Every user-originated mutation stamps UpdatedAt and raises the dirty flag;
// remote-originated writes go through Upsert/BulkUpsert, which write the
// record exactly as given so pulled data is never re-pushed.
package store

import (
	"context"
	"time"

	"github.com/yorutsuke/ledgersync/internal/models"
)

// Filter narrows List and Count. The zero value matches all active (not
// deleted) records of the owner.
type Filter struct {
	// From/To bound OccurredOn inclusively; the zero time means unbounded.
	From time.Time
	To   time.Time

	// Status restricts to a single status. When set, it overrides the
	// deleted-row exclusion.
	Status models.Status

	Kind     models.Kind
	Category models.Category

	// Limit/Offset paginate List; Count ignores them.
	Limit  int
	Offset int

	// IncludeDeleted makes tombstones visible. The sync path needs this:
	// a deletion is just another field state to compare.
	IncludeDeleted bool
}

// Repository describes CRUD, dirty-tracking and sync-write operations over
// the local replica.
type Repository interface {
	// List returns the owner's records matching f, newest occurrence first.
	List(ctx context.Context, ownerID string, f Filter) ([]*models.Record, error)

	// Count mirrors List's filters minus pagination.
	Count(ctx context.Context, ownerID string, f Filter) (int, error)

	// GetByID returns a record (deleted or not) or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.Record, error)

	// Insert creates a record and fails with common.ErrorAlreadyExists if
	// the id is taken. First-time local creation only.
	Insert(ctx context.Context, r *models.Record) error

	// Upsert unconditionally overwrites all fields for the id, inserting if
	// absent. Idempotent; this is the primitive sync writes use.
	Upsert(ctx context.Context, r *models.Record) error

	// SoftDelete marks the record deleted, stamps UpdatedAt and sets dirty.
	SoftDelete(ctx context.Context, id string) error

	// Confirm marks the record confirmed, stamps UpdatedAt and sets dirty.
	Confirm(ctx context.Context, id string) error

	// Update applies only the fields present in p, stamps UpdatedAt and
	// sets dirty. An empty patch is a no-op.
	Update(ctx context.Context, id string, p models.Patch) error

	// ListDirty returns the owner's records with unacknowledged changes.
	ListDirty(ctx context.Context, ownerID string) ([]*models.Record, error)

	// ClearDirty lowers the dirty flag for ids; idempotent, no-op on empty
	// input.
	ClearDirty(ctx context.Context, ids []string) error

	// BulkUpsert applies sequential idempotent upserts. Rows are written as
	// given and never marked dirty; used for remote-originated writes.
	BulkUpsert(ctx context.Context, records []*models.Record) error

	// DeleteAll hard-purges the owner's rows and returns the count removed.
	// Test/dev tooling only; sync paths never call it.
	DeleteAll(ctx context.Context, ownerID string) (int64, error)
}
