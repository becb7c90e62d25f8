package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/courtside/courtside/internal/errs"
	"github.com/courtside/courtside/internal/model"
)

// VideoRepo implements VideoRepository using PostgreSQL.
type VideoRepo struct{ db *DB }

// NewVideoRepo constructs a video repository.
func NewVideoRepo(db *DB) *VideoRepo { return &VideoRepo{db: db} }

const videoColumns = `id, folder_id, file_name, blob_key, thumb_standard_key, thumb_hq_key,
thumb_timestamp, thumb_width, thumb_height, uploaded_by, uploaded_by_name, uploaded_by_type,
video_type, file_size, duration_seconds, orphaned, orphaned_at, created_at`

// Create inserts the metadata row and increments the folder counter in one
// transaction.
func (r *VideoRepo) Create(ctx context.Context, v *model.Video) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer finishTx(ctx, tx, &err)

	const ins = `
INSERT INTO videos (id, folder_id, file_name, blob_key, thumb_standard_key, thumb_hq_key,
  thumb_timestamp, thumb_width, thumb_height, uploaded_by, uploaded_by_name, uploaded_by_type,
  video_type, file_size, duration_seconds, orphaned)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,false)
RETURNING created_at`
	err = tx.QueryRow(ctx, ins,
		v.ID, v.FolderID, v.FileName, v.BlobKey,
		v.Thumbnail.StandardKey, v.Thumbnail.HighQualityKey,
		v.Thumbnail.Timestamp, v.Thumbnail.Width, v.Thumbnail.Height,
		v.UploadedBy, v.UploadedByName, string(v.UploadedByType),
		string(v.VideoType), v.FileSize, v.Duration,
	).Scan(&v.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			err = errs.ErrAlreadyExists
		}
		return err
	}

	const bump = `UPDATE folders SET video_count=video_count+1, updated_at=now() WHERE id=$1`
	tag, execErr := tx.Exec(ctx, bump, v.FolderID)
	if execErr != nil {
		err = execErr
		return err
	}
	if tag.RowsAffected() == 0 {
		err = errs.ErrNotFound
	}
	return err
}

// Get loads one video by ID.
func (r *VideoRepo) Get(ctx context.Context, videoID uuid.UUID) (*model.Video, error) {
	const q = `SELECT ` + videoColumns + ` FROM videos WHERE id=$1`
	v, err := scanVideo(r.db.Pool.QueryRow(ctx, q, videoID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

// ListByFolder returns a folder's videos, newest first.
func (r *VideoRepo) ListByFolder(ctx context.Context, folderID uuid.UUID) ([]model.Video, error) {
	const q = `SELECT ` + videoColumns + ` FROM videos WHERE folder_id=$1 ORDER BY created_at DESC`
	rows, err := r.db.Pool.Query(ctx, q, folderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Video
	for rows.Next() {
		v, scanErr := scanVideo(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// Delete removes annotations, then the video row, then decrements the folder
// counter, all in one transaction.
func (r *VideoRepo) Delete(ctx context.Context, videoID uuid.UUID) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer finishTx(ctx, tx, &err)

	const sel = `SELECT folder_id FROM videos WHERE id=$1 FOR UPDATE`
	var folderID uuid.UUID
	if err = tx.QueryRow(ctx, sel, videoID).Scan(&folderID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = errs.ErrNotFound
		}
		return err
	}

	if _, err = tx.Exec(ctx, `DELETE FROM annotations WHERE video_id=$1`, videoID); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `DELETE FROM videos WHERE id=$1`, videoID); err != nil {
		return err
	}
	const drop = `
UPDATE folders SET video_count=GREATEST(video_count-1,0), updated_at=now() WHERE id=$1`
	if _, err = tx.Exec(ctx, drop, folderID); err != nil {
		return err
	}
	return nil
}

// MarkOrphanedByUploader flags every remaining video of a deleted uploader.
func (r *VideoRepo) MarkOrphanedByUploader(ctx context.Context, uploaderID uuid.UUID) (int64, error) {
	const upd = `
UPDATE videos SET orphaned=true, orphaned_at=now() WHERE uploaded_by=$1 AND NOT orphaned`
	tag, err := r.db.Pool.Exec(ctx, upd, uploaderID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanVideo(row pgx.Row) (*model.Video, error) {
	var (
		v                       model.Video
		uploaderType, videoType string
	)
	err := row.Scan(&v.ID, &v.FolderID, &v.FileName, &v.BlobKey,
		&v.Thumbnail.StandardKey, &v.Thumbnail.HighQualityKey,
		&v.Thumbnail.Timestamp, &v.Thumbnail.Width, &v.Thumbnail.Height,
		&v.UploadedBy, &v.UploadedByName, &uploaderType,
		&videoType, &v.FileSize, &v.Duration, &v.Orphaned, &v.OrphanedAt, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	v.UploadedByType = model.PrincipalType(uploaderType)
	v.VideoType = model.VideoType(videoType)
	return &v, nil
}
