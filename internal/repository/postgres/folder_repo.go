package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/courtside/courtside/internal/errs"
	"github.com/courtside/courtside/internal/model"
)

// FolderRepo implements FolderRepository using PostgreSQL.
//
// The permission map and the reviewer-ID set are two views of the same
// folder_permissions rows, so the reviewerIDs == keys(permissions) invariant
// holds by construction.
type FolderRepo struct{ db *DB }

// NewFolderRepo constructs a folder repository.
func NewFolderRepo(db *DB) *FolderRepo { return &FolderRepo{db: db} }

// Create inserts a folder with an empty permission map.
func (r *FolderRepo) Create(ctx context.Context, f *model.Folder) error {
	const ins = `
INSERT INTO folders (id, owner_id, name, video_count)
VALUES ($1,$2,$3,0)
RETURNING created_at, updated_at`
	err := r.db.Pool.QueryRow(ctx, ins, f.ID, f.OwnerID, f.Name).Scan(&f.CreatedAt, &f.UpdatedAt)
	if err != nil && isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Get loads one folder with its permission map.
func (r *FolderRepo) Get(ctx context.Context, folderID uuid.UUID) (*model.Folder, error) {
	const q = `
SELECT id, owner_id, name, video_count, created_at, updated_at
FROM folders WHERE id=$1`
	var f model.Folder
	err := r.db.Pool.QueryRow(ctx, q, folderID).Scan(&f.ID, &f.OwnerID, &f.Name, &f.VideoCount, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadPermissions(ctx, []*model.Folder{&f}); err != nil {
		return nil, err
	}
	return &f, nil
}

// Rename updates the display name.
func (r *FolderRepo) Rename(ctx context.Context, folderID uuid.UUID, name string) error {
	const upd = `UPDATE folders SET name=$2, updated_at=now() WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, upd, folderID, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// GrantAccess upserts the permission row and touches the folder.
func (r *FolderRepo) GrantAccess(ctx context.Context, folderID, reviewerID uuid.UUID, perm model.Permission, contact string) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer finishTx(ctx, tx, &err)

	const ups = `
INSERT INTO folder_permissions (folder_id, reviewer_id, reviewer_contact, can_upload, can_comment, can_delete)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (folder_id, reviewer_id)
DO UPDATE SET reviewer_contact=$3, can_upload=$4, can_comment=$5, can_delete=$6`
	if _, err = tx.Exec(ctx, ups, folderID, reviewerID, contact, perm.CanUpload, perm.CanComment, perm.CanDelete); err != nil {
		return err
	}
	tag, execErr := tx.Exec(ctx, `UPDATE folders SET updated_at=now() WHERE id=$1`, folderID)
	if execErr != nil {
		err = execErr
		return err
	}
	if tag.RowsAffected() == 0 {
		err = errs.ErrNotFound
	}
	return err
}

// RevokeAccess removes the permission row and returns the denormalized contact.
func (r *FolderRepo) RevokeAccess(ctx context.Context, folderID, reviewerID uuid.UUID) (string, error) {
	const del = `
DELETE FROM folder_permissions WHERE folder_id=$1 AND reviewer_id=$2 RETURNING reviewer_contact`
	var contact string
	err := r.db.Pool.QueryRow(ctx, del, folderID, reviewerID).Scan(&contact)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", errs.ErrNotFound
		}
		return "", err
	}
	return contact, nil
}

// GetPermission returns the effective permission for one reviewer.
func (r *FolderRepo) GetPermission(ctx context.Context, folderID, reviewerID uuid.UUID) (*model.Permission, error) {
	const q = `
SELECT can_upload, can_comment, can_delete
FROM folder_permissions WHERE folder_id=$1 AND reviewer_id=$2`
	var p model.Permission
	err := r.db.Pool.QueryRow(ctx, q, folderID, reviewerID).Scan(&p.CanUpload, &p.CanComment, &p.CanDelete)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListByOwner returns all folders owned by a principal.
func (r *FolderRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Folder, error) {
	const q = `
SELECT id, owner_id, name, video_count, created_at, updated_at
FROM folders WHERE owner_id=$1
ORDER BY created_at ASC`
	return r.queryFolders(ctx, q, ownerID)
}

// ListByReviewer returns folders the principal holds a permission entry for.
func (r *FolderRepo) ListByReviewer(ctx context.Context, reviewerID uuid.UUID) ([]model.Folder, error) {
	const q = `
SELECT f.id, f.owner_id, f.name, f.video_count, f.created_at, f.updated_at
FROM folders f
JOIN folder_permissions fp ON fp.folder_id = f.id
WHERE fp.reviewer_id=$1
ORDER BY f.created_at ASC`
	return r.queryFolders(ctx, q, reviewerID)
}

// Delete cascades children before parent: annotations, videos, permission rows,
// then the folder itself, all in one transaction.
func (r *FolderRepo) Delete(ctx context.Context, folderID uuid.UUID) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer finishTx(ctx, tx, &err)

	const delAnnotations = `
DELETE FROM annotations WHERE video_id IN (SELECT id FROM videos WHERE folder_id=$1)`
	const delVideos = `DELETE FROM videos WHERE folder_id=$1`
	const delPerms = `DELETE FROM folder_permissions WHERE folder_id=$1`
	const delFolder = `DELETE FROM folders WHERE id=$1`

	if _, err = tx.Exec(ctx, delAnnotations, folderID); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, delVideos, folderID); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, delPerms, folderID); err != nil {
		return err
	}
	tag, execErr := tx.Exec(ctx, delFolder, folderID)
	if execErr != nil {
		err = execErr
		return err
	}
	if tag.RowsAffected() == 0 {
		err = errs.ErrNotFound
	}
	return err
}

// RecountVideos recomputes video_count from the video rows and stores it.
func (r *FolderRepo) RecountVideos(ctx context.Context, folderID uuid.UUID) (int64, error) {
	const q = `
UPDATE folders
SET video_count=(SELECT COUNT(*) FROM videos WHERE folder_id=$1), updated_at=now()
WHERE id=$1
RETURNING video_count`
	var n int64
	if err := r.db.Pool.QueryRow(ctx, q, folderID).Scan(&n); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, errs.ErrNotFound
		}
		return 0, err
	}
	return n, nil
}

func (r *FolderRepo) queryFolders(ctx context.Context, q string, arg any) ([]model.Folder, error) {
	rows, err := r.db.Pool.Query(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Folder
	for rows.Next() {
		var f model.Folder
		if err = rows.Scan(&f.ID, &f.OwnerID, &f.Name, &f.VideoCount, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	refs := make([]*model.Folder, len(out))
	for i := range out {
		refs[i] = &out[i]
	}
	if err = r.loadPermissions(ctx, refs); err != nil {
		return nil, err
	}
	return out, nil
}

// loadPermissions fills the permission map and reviewer set for each folder
// from the same rows.
func (r *FolderRepo) loadPermissions(ctx context.Context, folders []*model.Folder) error {
	if len(folders) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(folders))
	byID := make(map[uuid.UUID]*model.Folder, len(folders))
	for _, f := range folders {
		f.Permissions = make(map[uuid.UUID]model.Permission)
		f.ReviewerIDs = nil
		ids = append(ids, f.ID)
		byID[f.ID] = f
	}

	const q = `
SELECT folder_id, reviewer_id, can_upload, can_comment, can_delete
FROM folder_permissions WHERE folder_id = ANY($1)
ORDER BY granted_at ASC`
	rows, err := r.db.Pool.Query(ctx, q, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			folderID, reviewerID uuid.UUID
			p                    model.Permission
		)
		if err = rows.Scan(&folderID, &reviewerID, &p.CanUpload, &p.CanComment, &p.CanDelete); err != nil {
			return err
		}
		if f, ok := byID[folderID]; ok {
			f.Permissions[reviewerID] = p
			f.ReviewerIDs = append(f.ReviewerIDs, reviewerID)
		}
	}
	return rows.Err()
}
