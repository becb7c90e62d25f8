package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/courtside/courtside/internal/errs"
	"github.com/courtside/courtside/internal/model"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

// expectNextVer scripts the owner-sequence allocation: advisory lock, then MAX+1.
func expectNextVer(mock pgxmock.PgxPoolIface, ownerID uuid.UUID, next int64) {
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtextextended\(\$1::text, 0\)\)`).
		WithArgs(ownerID).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(ver\),0\)\+1 FROM records WHERE owner_id=\$1`).
		WithArgs(ownerID).
		WillReturnRows(pgxmock.NewRows([]string{"next"}).AddRow(next))
}

func TestRecordRepo_Create_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewRecordRepo(db)

	ctx := context.Background()
	ownerID := uuid.Must(uuid.NewV4())
	recordID := uuid.Must(uuid.NewV4())
	ts := time.Now().UTC()

	mock.ExpectBegin()
	expectNextVer(mock, ownerID, 1)
	mock.ExpectQuery(`INSERT INTO records \(id, owner_id, entity_type, payload, ver, deleted\)`).
		WithArgs(recordID, ownerID, "season", []byte(`{"n":"fall"}`), int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(ts))
	mock.ExpectCommit()

	rv, err := r.Create(ctx, &model.Record{
		ID: recordID, OwnerID: ownerID, EntityType: model.EntitySeason, Payload: model.Payload(`{"n":"fall"}`),
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), rv.NewVer)
	require.Equal(t, recordID, rv.ID)
}

// A record created after other records were mutated must land above the owner's
// current watermark so ChangesSince(watermark) still returns it.
func TestRecordRepo_Create_AfterOwnerHighWatermark(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewRecordRepo(db)

	ctx := context.Background()
	ownerID := uuid.Must(uuid.NewV4())
	recordID := uuid.Must(uuid.NewV4())
	ts := time.Now().UTC()

	mock.ExpectBegin()
	expectNextVer(mock, ownerID, 4)
	mock.ExpectQuery(`INSERT INTO records \(id, owner_id, entity_type, payload, ver, deleted\)`).
		WithArgs(recordID, ownerID, "game", []byte(`{}`), int64(4)).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(ts))
	mock.ExpectCommit()

	rv, err := r.Create(ctx, &model.Record{
		ID: recordID, OwnerID: ownerID, EntityType: model.EntityGame, Payload: model.Payload(`{}`),
	})
	require.NoError(t, err)
	require.Equal(t, int64(4), rv.NewVer)
}

func TestRecordRepo_Create_DuplicateID(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewRecordRepo(db)

	ctx := context.Background()
	ownerID := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	expectNextVer(mock, ownerID, 2)
	mock.ExpectQuery(`INSERT INTO records`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	_, err := r.Create(ctx, &model.Record{
		ID:         uuid.Must(uuid.NewV4()),
		OwnerID:    ownerID,
		EntityType: model.EntityGame,
		Payload:    model.Payload(`{}`),
	})
	require.ErrorIs(t, err, errs.ErrAlreadyExists)
}

func TestRecordRepo_Update_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewRecordRepo(db)

	ctx := context.Background()
	ownerID := uuid.Must(uuid.NewV4())
	recordID := uuid.Must(uuid.NewV4())
	ts := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT ver, deleted FROM records WHERE id=\$1 AND owner_id=\$2 FOR UPDATE`).
		WithArgs(recordID, ownerID).
		WillReturnRows(pgxmock.NewRows([]string{"ver", "deleted"}).AddRow(int64(3), false))
	expectNextVer(mock, ownerID, 9)
	mock.ExpectQuery(`UPDATE records SET payload=\$3, ver=\$4, updated_at=now\(\) WHERE id=\$1 AND owner_id=\$2 RETURNING updated_at`).
		WithArgs(recordID, ownerID, []byte(`{"v":2}`), int64(9)).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(ts))
	mock.ExpectCommit()

	rv, err := r.Update(ctx, ownerID, recordID, model.Payload(`{"v":2}`), 3)
	require.NoError(t, err)
	require.Equal(t, int64(9), rv.NewVer)
}

func TestRecordRepo_Update_StaleVersion(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewRecordRepo(db)

	ctx := context.Background()
	ownerID := uuid.Must(uuid.NewV4())
	recordID := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT ver, deleted FROM records WHERE id=\$1 AND owner_id=\$2 FOR UPDATE`).
		WithArgs(recordID, ownerID).
		WillReturnRows(pgxmock.NewRows([]string{"ver", "deleted"}).AddRow(int64(7), false))
	mock.ExpectRollback()

	_, err := r.Update(ctx, ownerID, recordID, model.Payload(`{}`), 5)
	require.ErrorIs(t, err, errs.ErrStaleVersion)
}

func TestRecordRepo_Update_TombstonedIsNotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewRecordRepo(db)

	ctx := context.Background()
	ownerID := uuid.Must(uuid.NewV4())
	recordID := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT ver, deleted FROM records WHERE id=\$1 AND owner_id=\$2 FOR UPDATE`).
		WithArgs(recordID, ownerID).
		WillReturnRows(pgxmock.NewRows([]string{"ver", "deleted"}).AddRow(int64(2), true))
	mock.ExpectRollback()

	_, err := r.Update(ctx, ownerID, recordID, model.Payload(`{}`), 2)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestRecordRepo_Update_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewRecordRepo(db)

	ctx := context.Background()
	ownerID := uuid.Must(uuid.NewV4())
	recordID := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT ver, deleted FROM records WHERE id=\$1 AND owner_id=\$2 FOR UPDATE`).
		WithArgs(recordID, ownerID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := r.Update(ctx, ownerID, recordID, model.Payload(`{}`), 1)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestRecordRepo_SoftDelete_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewRecordRepo(db)

	ctx := context.Background()
	ownerID := uuid.Must(uuid.NewV4())
	recordID := uuid.Must(uuid.NewV4())
	ts := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT ver, deleted FROM records WHERE id=\$1 AND owner_id=\$2 FOR UPDATE`).
		WithArgs(recordID, ownerID).
		WillReturnRows(pgxmock.NewRows([]string{"ver", "deleted"}).AddRow(int64(5), false))
	expectNextVer(mock, ownerID, 12)
	mock.ExpectQuery(`UPDATE records SET deleted=true, deleted_at=now\(\), ver=\$3, updated_at=now\(\) WHERE id=\$1 AND owner_id=\$2 RETURNING updated_at`).
		WithArgs(recordID, ownerID, int64(12)).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(ts))
	mock.ExpectCommit()

	rv, err := r.SoftDelete(ctx, ownerID, recordID)
	require.NoError(t, err)
	require.Equal(t, int64(12), rv.NewVer)
}

func TestRecordRepo_SoftDelete_AlreadyDeleted(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewRecordRepo(db)

	ctx := context.Background()
	ownerID := uuid.Must(uuid.NewV4())
	recordID := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT ver, deleted FROM records WHERE id=\$1 AND owner_id=\$2 FOR UPDATE`).
		WithArgs(recordID, ownerID).
		WillReturnRows(pgxmock.NewRows([]string{"ver", "deleted"}).AddRow(int64(4), true))
	mock.ExpectRollback()

	_, err := r.SoftDelete(ctx, ownerID, recordID)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestRecordRepo_List_SkipsDeleted(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewRecordRepo(db)

	ctx := context.Background()
	ownerID := uuid.Must(uuid.NewV4())
	id1 := uuid.Must(uuid.NewV4())
	ts := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"id", "owner_id", "entity_type", "payload", "ver", "deleted", "deleted_at", "created_at", "updated_at"}).
		AddRow(id1, ownerID, "athlete", []byte(`{"name":"Sam"}`), int64(2), false, (*time.Time)(nil), ts, ts)
	mock.ExpectQuery(`FROM records\s+WHERE owner_id=\$1 AND entity_type=\$2 AND NOT deleted\s+ORDER BY created_at ASC`).
		WithArgs(ownerID, "athlete").
		WillReturnRows(rows)

	out, err := r.List(ctx, ownerID, model.EntityAthlete)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, id1, out[0].ID)
	require.Equal(t, model.EntityAthlete, out[0].EntityType)
	require.Equal(t, int64(2), out[0].Ver)
}

func TestRecordRepo_ChangesSince_TombstoneHasNoPayload(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewRecordRepo(db)

	ctx := context.Background()
	ownerID := uuid.Must(uuid.NewV4())
	id1 := uuid.Must(uuid.NewV4())
	id2 := uuid.Must(uuid.NewV4())
	ts := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"id", "entity_type", "ver", "deleted", "updated_at", "payload"}).
		AddRow(id1, "game", int64(2), false, ts, []byte(`{"score":3}`)).
		AddRow(id2, "game", int64(3), true, ts, []byte(`{"stale":true}`))
	mock.ExpectQuery(`FROM records\s+WHERE owner_id=\$1 AND ver>\$2\s+ORDER BY ver ASC, updated_at ASC`).
		WithArgs(ownerID, int64(1)).
		WillReturnRows(rows)

	out, err := r.ChangesSince(ctx, ownerID, 1)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, model.Payload(`{"score":3}`), out[0].Payload)
	require.True(t, out[1].Deleted)
	require.Nil(t, out[1].Payload)
}

func TestRecordRepo_MaxVersion(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewRecordRepo(db)

	ctx := context.Background()
	ownerID := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`SELECT COALESCE\(MAX\(ver\),0\) FROM records WHERE owner_id=\$1`).
		WithArgs(ownerID).
		WillReturnRows(pgxmock.NewRows([]string{"max"}).AddRow(int64(17)))

	v, err := r.MaxVersion(ctx, ownerID)
	require.NoError(t, err)
	require.Equal(t, int64(17), v)
}

func TestRecordRepo_Purge(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewRecordRepo(db)

	ctx := context.Background()
	ownerID := uuid.Must(uuid.NewV4())

	mock.ExpectExec(`DELETE FROM records WHERE owner_id=\$1`).
		WithArgs(ownerID).
		WillReturnResult(pgxmock.NewResult("DELETE", 12))

	n, err := r.Purge(ctx, ownerID)
	require.NoError(t, err)
	require.Equal(t, int64(12), n)
}

func TestRecordRepo_Update_CommitErr(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewRecordRepo(db)

	ctx := context.Background()
	ownerID := uuid.Must(uuid.NewV4())
	recordID := uuid.Must(uuid.NewV4())
	ts := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT ver, deleted FROM records WHERE id=\$1 AND owner_id=\$2 FOR UPDATE`).
		WithArgs(recordID, ownerID).
		WillReturnRows(pgxmock.NewRows([]string{"ver", "deleted"}).AddRow(int64(1), false))
	expectNextVer(mock, ownerID, 2)
	mock.ExpectQuery(`UPDATE records SET payload=\$3, ver=\$4, updated_at=now\(\)`).
		WithArgs(recordID, ownerID, []byte(`{}`), int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(ts))
	mock.ExpectCommit().WillReturnError(errors.New("commit-fail"))

	_, err := r.Update(ctx, ownerID, recordID, model.Payload(`{}`), 1)
	require.Error(t, err)
}
