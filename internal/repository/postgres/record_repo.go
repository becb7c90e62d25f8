package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/courtside/courtside/internal/errs"
	"github.com/courtside/courtside/internal/model"
)

// RecordRepo implements RecordRepository using PostgreSQL.
type RecordRepo struct{ db *DB }

// NewRecordRepo constructs a record repository.
func NewRecordRepo(db *DB) *RecordRepo { return &RecordRepo{db: db} }

// Version allocation is serialized per owner with a transaction-scoped advisory
// lock so every mutation (create, update, delete) draws from one monotonic
// sequence. Without this, a record created after a device's ChangesSince
// watermark but with a low per-record version would never reach that device.
const ownerVerLock = `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`

const ownerNextVer = `SELECT COALESCE(MAX(ver),0)+1 FROM records WHERE owner_id=$1`

func nextOwnerVer(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) (int64, error) {
	if _, err := tx.Exec(ctx, ownerVerLock, ownerID); err != nil {
		return 0, err
	}
	var v int64
	if err := tx.QueryRow(ctx, ownerNextVer, ownerID).Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

// Create inserts a new record at the owner's next version. The ID is
// client-generated; reuse maps to ErrAlreadyExists.
func (r *RecordRepo) Create(ctx context.Context, rec *model.Record) (rv model.RecordVersion, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return model.RecordVersion{}, err
	}
	defer finishTx(ctx, tx, &err)

	ver, err := nextOwnerVer(ctx, tx, rec.OwnerID)
	if err != nil {
		return model.RecordVersion{}, err
	}

	const ins = `
INSERT INTO records (id, owner_id, entity_type, payload, ver, deleted)
VALUES ($1,$2,$3,$4,$5,false)
RETURNING updated_at`
	var ts time.Time
	if err = tx.QueryRow(ctx, ins, rec.ID, rec.OwnerID, string(rec.EntityType), []byte(rec.Payload), ver).Scan(&ts); err != nil {
		if isUniqueViolation(err) {
			err = errs.ErrAlreadyExists
		}
		return model.RecordVersion{}, err
	}
	return model.RecordVersion{ID: rec.ID, NewVer: ver, UpdatedAt: ts}, nil
}

// Update replaces the payload with optimistic concurrency. The stale check runs
// against the record's stored version; the new version comes from the owner's
// global sequence.
func (r *RecordRepo) Update(
	ctx context.Context, ownerID, recordID uuid.UUID, payload model.Payload, expectedVer int64,
) (rv model.RecordVersion, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return model.RecordVersion{}, err
	}
	defer finishTx(ctx, tx, &err)

	const sel = `SELECT ver, deleted FROM records WHERE id=$1 AND owner_id=$2 FOR UPDATE`
	const upd = `UPDATE records SET payload=$3, ver=$4, updated_at=now() WHERE id=$1 AND owner_id=$2 RETURNING updated_at`

	var (
		curVer  int64
		deleted bool
	)
	if err = tx.QueryRow(ctx, sel, recordID, ownerID).Scan(&curVer, &deleted); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = errs.ErrNotFound
		}
		return model.RecordVersion{}, err
	}
	if deleted {
		err = errs.ErrNotFound
		return model.RecordVersion{}, err
	}
	if curVer != expectedVer {
		err = errs.ErrStaleVersion
		return model.RecordVersion{}, err
	}
	newVer, err := nextOwnerVer(ctx, tx, ownerID)
	if err != nil {
		return model.RecordVersion{}, err
	}
	var ts time.Time
	if err = tx.QueryRow(ctx, upd, recordID, ownerID, []byte(payload), newVer).Scan(&ts); err != nil {
		return model.RecordVersion{}, err
	}
	return model.RecordVersion{ID: recordID, NewVer: newVer, UpdatedAt: ts}, nil
}

// SoftDelete sets the tombstone flag with a version bump. No base version check:
// a delete always wins over a concurrent edit.
func (r *RecordRepo) SoftDelete(
	ctx context.Context, ownerID, recordID uuid.UUID,
) (rv model.RecordVersion, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return model.RecordVersion{}, err
	}
	defer finishTx(ctx, tx, &err)

	const sel = `SELECT ver, deleted FROM records WHERE id=$1 AND owner_id=$2 FOR UPDATE`
	const upd = `UPDATE records SET deleted=true, deleted_at=now(), ver=$3, updated_at=now() WHERE id=$1 AND owner_id=$2 RETURNING updated_at`

	var (
		curVer  int64
		deleted bool
	)
	if err = tx.QueryRow(ctx, sel, recordID, ownerID).Scan(&curVer, &deleted); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = errs.ErrNotFound
		}
		return model.RecordVersion{}, err
	}
	if deleted {
		err = errs.ErrNotFound
		return model.RecordVersion{}, err
	}
	newVer, err := nextOwnerVer(ctx, tx, ownerID)
	if err != nil {
		return model.RecordVersion{}, err
	}
	var ts time.Time
	if err = tx.QueryRow(ctx, upd, recordID, ownerID, newVer).Scan(&ts); err != nil {
		return model.RecordVersion{}, err
	}
	return model.RecordVersion{ID: recordID, NewVer: newVer, UpdatedAt: ts}, nil
}

// List returns non-deleted records of one entity type ordered by creation time ASC.
func (r *RecordRepo) List(ctx context.Context, ownerID uuid.UUID, entityType model.EntityType) ([]model.Record, error) {
	const q = `
SELECT id, owner_id, entity_type, payload, ver, deleted, deleted_at, created_at, updated_at
FROM records
WHERE owner_id=$1 AND entity_type=$2 AND NOT deleted
ORDER BY created_at ASC`
	rows, err := r.db.Pool.Query(ctx, q, ownerID, string(entityType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		var (
			rec     model.Record
			et      string
			payload []byte
		)
		if err = rows.Scan(&rec.ID, &rec.OwnerID, &et, &payload, &rec.Ver, &rec.Deleted, &rec.DeletedAt, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		rec.EntityType = model.EntityType(et)
		rec.Payload = model.Payload(payload)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ChangesSince returns changes strictly after the provided version, tombstones included.
func (r *RecordRepo) ChangesSince(ctx context.Context, ownerID uuid.UUID, sinceVer int64) ([]model.Change, error) {
	const q = `
SELECT id, entity_type, ver, deleted, updated_at, payload
FROM records
WHERE owner_id=$1 AND ver>$2
ORDER BY ver ASC, updated_at ASC`
	rows, err := r.db.Pool.Query(ctx, q, ownerID, sinceVer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Change
	for rows.Next() {
		var (
			ch      model.Change
			et      string
			payload []byte
		)
		if err = rows.Scan(&ch.ID, &et, &ch.Ver, &ch.Deleted, &ch.UpdatedAt, &payload); err != nil {
			return nil, err
		}
		ch.EntityType = model.EntityType(et)
		if !ch.Deleted {
			ch.Payload = model.Payload(payload)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// MaxVersion returns the current maximum version for an owner.
func (r *RecordRepo) MaxVersion(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	const q = `SELECT COALESCE(MAX(ver),0) FROM records WHERE owner_id=$1`
	var v int64
	if err := r.db.Pool.QueryRow(ctx, q, ownerID).Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

// Purge physically removes every record of an owner.
func (r *RecordRepo) Purge(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM records WHERE owner_id=$1`, ownerID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
