package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/courtside/courtside/internal/model"
)

// VideoRepository stores video metadata and keeps the folder counter in step.
type VideoRepository interface {
	// Create inserts the metadata row and increments the folder's video_count in
	// one transaction. ErrNotFound when the folder is gone.
	Create(ctx context.Context, v *model.Video) error

	// Get loads one video by ID.
	Get(ctx context.Context, videoID uuid.UUID) (*model.Video, error)

	// ListByFolder returns a folder's videos, newest first.
	ListByFolder(ctx context.Context, folderID uuid.UUID) ([]model.Video, error)

	// Delete removes the video's annotations, the video row, and decrements the
	// folder counter, in that order, in one transaction.
	Delete(ctx context.Context, videoID uuid.UUID) error

	// MarkOrphanedByUploader flags every remaining video of a deleted uploader as
	// orphaned and returns the number flagged.
	MarkOrphanedByUploader(ctx context.Context, uploaderID uuid.UUID) (int64, error)
}

// AnnotationRepository stores the per-video comment stream.
type AnnotationRepository interface {
	// Create inserts one annotation.
	Create(ctx context.Context, a *model.Annotation) error

	// Get loads one annotation by ID.
	Get(ctx context.Context, id uuid.UUID) (*model.Annotation, error)

	// ListByVideo returns annotations ordered by timestamp_seconds ascending.
	ListByVideo(ctx context.Context, videoID uuid.UUID) ([]model.Annotation, error)

	// Delete removes one annotation. Authorship is checked by the caller.
	Delete(ctx context.Context, id uuid.UUID) error
}

// NotificationRepository is the denormalized outbox consumed by the external
// notification collaborator.
type NotificationRepository interface {
	// Enqueue inserts one outbox row.
	Enqueue(ctx context.Context, n *model.Notification) error

	// ListUndelivered returns up to limit undelivered rows, oldest first.
	ListUndelivered(ctx context.Context, limit int) ([]model.Notification, error)

	// MarkDelivered flags one row as handed off.
	MarkDelivered(ctx context.Context, id uuid.UUID) error
}
