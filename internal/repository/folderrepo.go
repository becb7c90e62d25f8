package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/courtside/courtside/internal/model"
)

// FolderRepository owns folder lifecycle and per-reviewer permission rows.
type FolderRepository interface {
	// Create inserts a folder with an empty permission map and zero videos.
	Create(ctx context.Context, f *model.Folder) error

	// Get loads a folder with its permission map populated.
	Get(ctx context.Context, folderID uuid.UUID) (*model.Folder, error)

	// Rename updates the display name and bumps updated_at.
	Rename(ctx context.Context, folderID uuid.UUID, name string) error

	// GrantAccess upserts the permission row for a reviewer. The contact address
	// is denormalized alongside so revocation events stay composable later.
	GrantAccess(ctx context.Context, folderID, reviewerID uuid.UUID, perm model.Permission, contact string) error

	// RevokeAccess removes the permission row and returns the denormalized
	// contact address. ErrNotFound when no entry exists.
	RevokeAccess(ctx context.Context, folderID, reviewerID uuid.UUID) (string, error)

	// GetPermission returns the effective permission for one reviewer,
	// ErrNotFound when none was granted.
	GetPermission(ctx context.Context, folderID, reviewerID uuid.UUID) (*model.Permission, error)

	// ListByOwner returns all folders owned by a principal, permission maps included.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Folder, error)

	// ListByReviewer returns folders the principal holds a permission entry for.
	ListByReviewer(ctx context.Context, reviewerID uuid.UUID) ([]model.Folder, error)

	// Delete removes the folder and everything under it, children before parent:
	// annotations, then videos, then permission rows, then the folder itself.
	Delete(ctx context.Context, folderID uuid.UUID) error

	// RecountVideos recomputes video_count from the video rows and stores it.
	// Operational repair for the documented two-step upload tolerance.
	RecountVideos(ctx context.Context, folderID uuid.UUID) (int64, error)
}
