package service

import (
	"context"
	"errors"
	"strings"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/courtside/courtside/internal/blob"
	"github.com/courtside/courtside/internal/errs"
	"github.com/courtside/courtside/internal/model"
	"github.com/courtside/courtside/internal/realtime"
	"github.com/courtside/courtside/internal/repository"
)

// FolderService owns folder lifecycle, the per-reviewer permission map, and the
// revocation outbox. Grant, revoke, rename, delete and recount are owner-only;
// reads are open to the owner and any reviewer holding a permission entry.
type FolderService interface {
	Create(ctx context.Context, ownerID uuid.UUID, name string) (*model.Folder, error)
	Get(ctx context.Context, principalID, folderID uuid.UUID) (*model.Folder, error)
	Rename(ctx context.Context, requestedBy, folderID uuid.UUID, name string) error
	Grant(ctx context.Context, requestedBy, folderID, reviewerID uuid.UUID, perm model.Permission, reviewerContact string) error
	Revoke(ctx context.Context, requestedBy uuid.UUID, requestedByName string, folderID, reviewerID uuid.UUID) error
	EffectivePermission(ctx context.Context, folderID, principalID uuid.UUID) (*model.Permission, error)
	ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Folder, error)
	ListForReviewer(ctx context.Context, reviewerID uuid.UUID) ([]model.Folder, error)
	Delete(ctx context.Context, requestedBy, folderID uuid.UUID) error
	Recount(ctx context.Context, requestedBy, folderID uuid.UUID) (int64, error)
}

type FolderServiceImpl struct {
	folders repository.FolderRepository
	videos  repository.VideoRepository
	outbox  repository.NotificationRepository
	store   blob.Store
	hub     *realtime.Hub
	log     *zap.Logger
}

// NewFolderService constructs FolderService.
func NewFolderService(
	folders repository.FolderRepository,
	videos repository.VideoRepository,
	outbox repository.NotificationRepository,
	store blob.Store,
	hub *realtime.Hub,
	log *zap.Logger,
) *FolderServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &FolderServiceImpl{folders: folders, videos: videos, outbox: outbox, store: store, hub: hub, log: log}
}

// Create inserts an empty folder for the owner.
func (s *FolderServiceImpl) Create(ctx context.Context, ownerID uuid.UUID, name string) (*model.Folder, error) {
	if ownerID == uuid.Nil {
		return nil, errors.New("validation: empty ownerID")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("validation: empty folder name")
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	f := &model.Folder{ID: id, OwnerID: ownerID, Name: name, Permissions: map[uuid.UUID]model.Permission{}}
	if err := s.folders.Create(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// Get returns the folder if the principal owns it or holds a permission entry.
func (s *FolderServiceImpl) Get(ctx context.Context, principalID, folderID uuid.UUID) (*model.Folder, error) {
	f, err := s.folders.Get(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if f.OwnerID != principalID {
		if _, ok := f.Permissions[principalID]; !ok {
			return nil, errs.ErrForbidden
		}
	}
	return f, nil
}

// Rename updates the display name. Owner only.
func (s *FolderServiceImpl) Rename(ctx context.Context, requestedBy, folderID uuid.UUID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("validation: empty folder name")
	}
	if _, err := s.requireOwner(ctx, requestedBy, folderID); err != nil {
		return err
	}
	return s.folders.Rename(ctx, folderID, name)
}

// Grant upserts a reviewer's permission. Owner only.
func (s *FolderServiceImpl) Grant(
	ctx context.Context, requestedBy, folderID, reviewerID uuid.UUID, perm model.Permission, reviewerContact string,
) error {
	if reviewerID == uuid.Nil {
		return errors.New("validation: empty reviewerID")
	}
	f, err := s.requireOwner(ctx, requestedBy, folderID)
	if err != nil {
		return err
	}
	if reviewerID == f.OwnerID {
		return errors.New("validation: owner cannot be its own reviewer")
	}
	return s.folders.GrantAccess(ctx, folderID, reviewerID, perm, reviewerContact)
}

// Revoke removes a reviewer's permission and enqueues a revocation notification.
// The enqueue is fire-and-forget: a failed notification never fails the revoke.
func (s *FolderServiceImpl) Revoke(
	ctx context.Context, requestedBy uuid.UUID, requestedByName string, folderID, reviewerID uuid.UUID,
) error {
	f, err := s.requireOwner(ctx, requestedBy, folderID)
	if err != nil {
		return err
	}
	contact, err := s.folders.RevokeAccess(ctx, folderID, reviewerID)
	if err != nil {
		return err
	}

	id, idErr := uuid.NewV4()
	if idErr != nil {
		s.log.Warn("revocation notification skipped", zap.Error(idErr))
		return nil
	}
	n := &model.Notification{
		ID:              id,
		Kind:            model.NotifyAccessRevoked,
		FolderID:        f.ID,
		FolderName:      f.Name,
		OwnerID:         f.OwnerID,
		OwnerName:       requestedByName,
		ReviewerID:      reviewerID,
		ReviewerContact: contact,
	}
	if enqErr := s.outbox.Enqueue(ctx, n); enqErr != nil {
		s.log.Warn("revocation notification enqueue failed",
			zap.String("folderID", folderID.String()),
			zap.String("reviewerID", reviewerID.String()),
			zap.Error(enqErr),
		)
	}
	return nil
}

// EffectivePermission returns the permission for a principal on a folder. The
// owner holds every capability implicitly; reviewers get their stored entry;
// everyone else gets ErrNotFound.
func (s *FolderServiceImpl) EffectivePermission(ctx context.Context, folderID, principalID uuid.UUID) (*model.Permission, error) {
	f, err := s.folders.Get(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if f.OwnerID == principalID {
		return &model.Permission{CanUpload: true, CanComment: true, CanDelete: true}, nil
	}
	return s.folders.GetPermission(ctx, folderID, principalID)
}

// ListForOwner returns the folders a principal owns.
func (s *FolderServiceImpl) ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Folder, error) {
	if ownerID == uuid.Nil {
		return nil, errors.New("validation: empty ownerID")
	}
	return s.folders.ListByOwner(ctx, ownerID)
}

// ListForReviewer returns the folders shared with a principal.
func (s *FolderServiceImpl) ListForReviewer(ctx context.Context, reviewerID uuid.UUID) ([]model.Folder, error) {
	if reviewerID == uuid.Nil {
		return nil, errors.New("validation: empty reviewerID")
	}
	return s.folders.ListByReviewer(ctx, reviewerID)
}

// Delete cascades the folder graph, children before parent, then closes live
// subscriptions on the folder's videos and removes their blobs best effort.
// Owner only.
func (s *FolderServiceImpl) Delete(ctx context.Context, requestedBy, folderID uuid.UUID) error {
	if _, err := s.requireOwner(ctx, requestedBy, folderID); err != nil {
		return err
	}
	// Listed before the cascade: once the rows are gone nothing else can find
	// the blob keys.
	videos, err := s.videos.ListByFolder(ctx, folderID)
	if err != nil {
		return err
	}
	if err := s.folders.Delete(ctx, folderID); err != nil {
		return err
	}
	for i := range videos {
		s.hub.DropVideo(videos[i].ID)
		deleteVideoBlobs(ctx, s.store, s.log, &videos[i])
	}
	return nil
}

// Recount repairs the incremental video counter. Owner only.
func (s *FolderServiceImpl) Recount(ctx context.Context, requestedBy, folderID uuid.UUID) (int64, error) {
	if _, err := s.requireOwner(ctx, requestedBy, folderID); err != nil {
		return 0, err
	}
	return s.folders.RecountVideos(ctx, folderID)
}

func (s *FolderServiceImpl) requireOwner(ctx context.Context, principalID, folderID uuid.UUID) (*model.Folder, error) {
	f, err := s.folders.Get(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if f.OwnerID != principalID {
		return nil, errs.ErrForbidden
	}
	return f, nil
}
