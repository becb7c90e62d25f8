// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/courtside/courtside/internal/model"
)

// RecordRepository provides versioned access to an owner's synced records.
// Versions form a single monotonic sequence per owner so delta sync can ask
// "everything after N" across all entity types at once.
type RecordRepository interface {
	// Create inserts a new record with a client-generated ID at the owner's next version.
	Create(ctx context.Context, rec *model.Record) (model.RecordVersion, error)

	// Update replaces the payload if expectedVer matches the stored version.
	Update(ctx context.Context, ownerID, recordID uuid.UUID, payload model.Payload, expectedVer int64) (model.RecordVersion, error)

	// SoftDelete sets the tombstone flag (ver++). The row is kept for sync.
	SoftDelete(ctx context.Context, ownerID, recordID uuid.UUID) (model.RecordVersion, error)

	// List returns non-deleted records of one entity type ordered by creation time.
	List(ctx context.Context, ownerID uuid.UUID, entityType model.EntityType) ([]model.Record, error)

	// ChangesSince returns all changes with version greater than sinceVer, tombstones included.
	ChangesSince(ctx context.Context, ownerID uuid.UUID, sinceVer int64) ([]model.Change, error)

	// MaxVersion returns the latest version for an owner.
	MaxVersion(ctx context.Context, ownerID uuid.UUID) (int64, error)

	// Purge physically removes every record of an owner. Only account teardown calls this.
	Purge(ctx context.Context, ownerID uuid.UUID) (int64, error)
}
