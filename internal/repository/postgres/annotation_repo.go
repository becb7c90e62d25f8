package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/courtside/courtside/internal/errs"
	"github.com/courtside/courtside/internal/model"
)

// AnnotationRepo implements AnnotationRepository using PostgreSQL.
type AnnotationRepo struct{ db *DB }

// NewAnnotationRepo constructs an annotation repository.
func NewAnnotationRepo(db *DB) *AnnotationRepo { return &AnnotationRepo{db: db} }

// Create inserts one annotation.
func (r *AnnotationRepo) Create(ctx context.Context, a *model.Annotation) error {
	const ins = `
INSERT INTO annotations (id, video_id, author_id, author_name, ts_seconds, body, reviewer_note)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING created_at`
	err := r.db.Pool.QueryRow(ctx, ins,
		a.ID, a.VideoID, a.AuthorID, a.AuthorName, a.TimestampSeconds, a.Text, a.IsReviewerNote,
	).Scan(&a.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Get loads one annotation by ID.
func (r *AnnotationRepo) Get(ctx context.Context, id uuid.UUID) (*model.Annotation, error) {
	const q = `
SELECT id, video_id, author_id, author_name, ts_seconds, body, reviewer_note, created_at
FROM annotations WHERE id=$1`
	var a model.Annotation
	err := r.db.Pool.QueryRow(ctx, q, id).Scan(
		&a.ID, &a.VideoID, &a.AuthorID, &a.AuthorName, &a.TimestampSeconds, &a.Text, &a.IsReviewerNote, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// ListByVideo returns annotations ordered by playback timestamp, not creation time.
func (r *AnnotationRepo) ListByVideo(ctx context.Context, videoID uuid.UUID) ([]model.Annotation, error) {
	const q = `
SELECT id, video_id, author_id, author_name, ts_seconds, body, reviewer_note, created_at
FROM annotations
WHERE video_id=$1
ORDER BY ts_seconds ASC, created_at ASC`
	rows, err := r.db.Pool.Query(ctx, q, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Annotation
	for rows.Next() {
		var a model.Annotation
		if err = rows.Scan(&a.ID, &a.VideoID, &a.AuthorID, &a.AuthorName,
			&a.TimestampSeconds, &a.Text, &a.IsReviewerNote, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Delete removes one annotation.
func (r *AnnotationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM annotations WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
