package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/courtside/courtside/internal/errs"
	"github.com/courtside/courtside/internal/model"
)

func TestFolderRepo_Get_WithPermissions(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewFolderRepo(db)

	ctx := context.Background()
	folderID := uuid.Must(uuid.NewV4())
	ownerID := uuid.Must(uuid.NewV4())
	reviewerID := uuid.Must(uuid.NewV4())
	ts := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, owner_id, name, video_count, created_at, updated_at\s+FROM folders WHERE id=\$1`).
		WithArgs(folderID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "owner_id", "name", "video_count", "created_at", "updated_at"}).
			AddRow(folderID, ownerID, "Spring Season", int64(3), ts, ts))
	mock.ExpectQuery(`FROM folder_permissions WHERE folder_id = ANY\(\$1\)`).
		WithArgs([]uuid.UUID{folderID}).
		WillReturnRows(pgxmock.NewRows([]string{"folder_id", "reviewer_id", "can_upload", "can_comment", "can_delete"}).
			AddRow(folderID, reviewerID, false, true, false))

	f, err := r.Get(ctx, folderID)
	require.NoError(t, err)
	require.Equal(t, "Spring Season", f.Name)
	require.Equal(t, int64(3), f.VideoCount)
	require.Equal(t, model.Permission{CanComment: true}, f.Permissions[reviewerID])
	require.Equal(t, []uuid.UUID{reviewerID}, f.ReviewerIDs)
}

func TestFolderRepo_Get_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewFolderRepo(db)

	folderID := uuid.Must(uuid.NewV4())
	mock.ExpectQuery(`FROM folders WHERE id=\$1`).
		WithArgs(folderID).
		WillReturnError(pgx.ErrNoRows)

	_, err := r.Get(context.Background(), folderID)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestFolderRepo_GrantAccess_UpsertAndTouch(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewFolderRepo(db)

	ctx := context.Background()
	folderID := uuid.Must(uuid.NewV4())
	reviewerID := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO folder_permissions \(folder_id, reviewer_id, reviewer_contact, can_upload, can_comment, can_delete\)`).
		WithArgs(folderID, reviewerID, "coach@example.com", true, true, false).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE folders SET updated_at=now\(\) WHERE id=\$1`).
		WithArgs(folderID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := r.GrantAccess(ctx, folderID, reviewerID, model.Permission{CanUpload: true, CanComment: true}, "coach@example.com")
	require.NoError(t, err)
}

func TestFolderRepo_GrantAccess_FolderGone(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewFolderRepo(db)

	ctx := context.Background()
	folderID := uuid.Must(uuid.NewV4())
	reviewerID := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO folder_permissions`).
		WithArgs(folderID, reviewerID, "", false, true, false).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE folders SET updated_at=now\(\) WHERE id=\$1`).
		WithArgs(folderID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := r.GrantAccess(ctx, folderID, reviewerID, model.Permission{CanComment: true}, "")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestFolderRepo_RevokeAccess_ReturnsContact(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewFolderRepo(db)

	ctx := context.Background()
	folderID := uuid.Must(uuid.NewV4())
	reviewerID := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`DELETE FROM folder_permissions WHERE folder_id=\$1 AND reviewer_id=\$2 RETURNING reviewer_contact`).
		WithArgs(folderID, reviewerID).
		WillReturnRows(pgxmock.NewRows([]string{"reviewer_contact"}).AddRow("coach@example.com"))

	contact, err := r.RevokeAccess(ctx, folderID, reviewerID)
	require.NoError(t, err)
	require.Equal(t, "coach@example.com", contact)
}

func TestFolderRepo_RevokeAccess_NoGrant(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewFolderRepo(db)

	mock.ExpectQuery(`DELETE FROM folder_permissions`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	_, err := r.RevokeAccess(context.Background(), uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4()))
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestFolderRepo_Delete_CascadesChildrenFirst(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewFolderRepo(db)

	ctx := context.Background()
	folderID := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM annotations WHERE video_id IN \(SELECT id FROM videos WHERE folder_id=\$1\)`).
		WithArgs(folderID).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))
	mock.ExpectExec(`DELETE FROM videos WHERE folder_id=\$1`).
		WithArgs(folderID).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(`DELETE FROM folder_permissions WHERE folder_id=\$1`).
		WithArgs(folderID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM folders WHERE id=\$1`).
		WithArgs(folderID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	require.NoError(t, r.Delete(ctx, folderID))
}

func TestFolderRepo_Delete_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewFolderRepo(db)

	ctx := context.Background()
	folderID := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM annotations`).
		WithArgs(folderID).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM videos WHERE folder_id=\$1`).
		WithArgs(folderID).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM folder_permissions WHERE folder_id=\$1`).
		WithArgs(folderID).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM folders WHERE id=\$1`).
		WithArgs(folderID).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()

	require.ErrorIs(t, r.Delete(ctx, folderID), errs.ErrNotFound)
}

func TestFolderRepo_RecountVideos(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewFolderRepo(db)

	folderID := uuid.Must(uuid.NewV4())
	mock.ExpectQuery(`SET video_count=\(SELECT COUNT\(\*\) FROM videos WHERE folder_id=\$1\)`).
		WithArgs(folderID).
		WillReturnRows(pgxmock.NewRows([]string{"video_count"}).AddRow(int64(9)))

	n, err := r.RecountVideos(context.Background(), folderID)
	require.NoError(t, err)
	require.Equal(t, int64(9), n)
}

func TestFolderRepo_ListByReviewer(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewFolderRepo(db)

	ctx := context.Background()
	reviewerID := uuid.Must(uuid.NewV4())
	folderID := uuid.Must(uuid.NewV4())
	ownerID := uuid.Must(uuid.NewV4())
	ts := time.Now().UTC()

	mock.ExpectQuery(`JOIN folder_permissions fp ON fp\.folder_id = f\.id\s+WHERE fp\.reviewer_id=\$1`).
		WithArgs(reviewerID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "owner_id", "name", "video_count", "created_at", "updated_at"}).
			AddRow(folderID, ownerID, "Shared", int64(1), ts, ts))
	mock.ExpectQuery(`FROM folder_permissions WHERE folder_id = ANY\(\$1\)`).
		WithArgs([]uuid.UUID{folderID}).
		WillReturnRows(pgxmock.NewRows([]string{"folder_id", "reviewer_id", "can_upload", "can_comment", "can_delete"}).
			AddRow(folderID, reviewerID, false, true, true))

	out, err := r.ListByReviewer(ctx, reviewerID)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.True(t, out[0].Permissions[reviewerID].CanDelete)
}

func TestFolderRepo_GrantAccess_BeginErr(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewFolderRepo(db)

	mock.ExpectBegin().WillReturnError(errors.New("boom"))
	err := r.GrantAccess(context.Background(), uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4()), model.Permission{}, "")
	require.Error(t, err)
}
