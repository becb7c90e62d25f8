package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/courtside/courtside/internal/blob"
	"github.com/courtside/courtside/internal/errs"
	"github.com/courtside/courtside/internal/model"
	"github.com/courtside/courtside/internal/realtime"
	"github.com/courtside/courtside/internal/repository"
)

// RecordUploadRequest couples a completed binary upload to its metadata. The
// caller drives the binary transfer and calls RecordUpload only after the blob
// store confirmed it; the pipeline never polls upload status.
type RecordUploadRequest struct {
	FolderID     uuid.UUID
	UploaderID   uuid.UUID
	UploaderName string
	FileName     string
	BlobKey      string
	Thumbnail    model.Thumbnail
	FileSize     int64
	Duration     *float64
	VideoType    model.VideoType
}

// MediaService is the media metadata pipeline plus the binary upload helpers.
type MediaService interface {
	// PutVideoBinary streams a video binary to blob storage under the folder's
	// path convention and returns the blob key. Requires canUpload.
	PutVideoBinary(ctx context.Context, principalID, folderID uuid.UUID, fileName string, body io.Reader, size int64, contentType string) (string, error)
	// PutThumbnail streams a thumbnail variant and returns the blob key.
	PutThumbnail(ctx context.Context, principalID, folderID uuid.UUID, fileName string, highQuality bool, body io.Reader, size int64) (string, error)
	// RecordUpload persists the metadata document and bumps the folder counter.
	RecordUpload(ctx context.Context, req RecordUploadRequest) (*model.Video, error)
	// Get returns one video readable by the principal.
	Get(ctx context.Context, principalID, videoID uuid.UUID) (*model.Video, error)
	// ListFolder returns a folder's videos readable by the principal.
	ListFolder(ctx context.Context, principalID, folderID uuid.UUID) ([]model.Video, error)
	// Delete removes a video, its annotations, and decrements the counter.
	// Owner or canDelete.
	Delete(ctx context.Context, principalID, videoID uuid.UUID) error
}

type MediaServiceImpl struct {
	videos  repository.VideoRepository
	folders repository.FolderRepository
	store   blob.Store
	hub     *realtime.Hub
	log     *zap.Logger
}

// NewMediaService constructs MediaService.
func NewMediaService(
	videos repository.VideoRepository,
	folders repository.FolderRepository,
	store blob.Store,
	hub *realtime.Hub,
	log *zap.Logger,
) *MediaServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &MediaServiceImpl{videos: videos, folders: folders, store: store, hub: hub, log: log}
}

// PutVideoBinary streams the binary under {folderID}/{fileName}.
func (s *MediaServiceImpl) PutVideoBinary(
	ctx context.Context, principalID, folderID uuid.UUID, fileName string, body io.Reader, size int64, contentType string,
) (string, error) {
	if fileName == "" {
		return "", errors.New("validation: empty file name")
	}
	if _, err := s.requireUpload(ctx, principalID, folderID); err != nil {
		return "", err
	}
	key := blob.VideoKey(folderID, fileName)
	if err := s.store.Put(ctx, key, body, size, contentType); err != nil {
		return "", err
	}
	return key, nil
}

// PutThumbnail streams a preview variant under the thumbnails prefix.
func (s *MediaServiceImpl) PutThumbnail(
	ctx context.Context, principalID, folderID uuid.UUID, fileName string, highQuality bool, body io.Reader, size int64,
) (string, error) {
	if fileName == "" {
		return "", errors.New("validation: empty file name")
	}
	if _, err := s.requireUpload(ctx, principalID, folderID); err != nil {
		return "", err
	}
	key := blob.ThumbnailKey(folderID, fileName, highQuality)
	if err := s.store.Put(ctx, key, body, size, "image/jpeg"); err != nil {
		return "", err
	}
	return key, nil
}

// RecordUpload persists the metadata document, then bumps the folder counter.
// The metadata insert and the counter share one transaction in the repository;
// the gap between blob-put and this call is the documented tolerance, repaired
// by RecountVideos if a caller dies in between.
func (s *MediaServiceImpl) RecordUpload(ctx context.Context, req RecordUploadRequest) (*model.Video, error) {
	if req.FileName == "" || req.BlobKey == "" {
		return nil, errors.New("validation: empty file name/blob key")
	}
	if req.FileSize <= 0 {
		return nil, errors.New("validation: non-positive file size")
	}
	if !req.VideoType.Valid() {
		return nil, fmt.Errorf("validation: unknown video type %q", req.VideoType)
	}
	if req.Thumbnail.HighQualityKey != "" && req.VideoType != model.VideoHighlight {
		return nil, errors.New("validation: high-quality thumbnail is highlight-only")
	}
	if req.Thumbnail.StandardKey == "" && req.Thumbnail.HighQualityKey != "" {
		return nil, errors.New("validation: high-quality thumbnail without standard variant")
	}

	f, err := s.requireUpload(ctx, req.UploaderID, req.FolderID)
	if err != nil {
		return nil, err
	}
	uploaderType := model.PrincipalReviewer
	if f.OwnerID == req.UploaderID {
		uploaderType = model.PrincipalOwner
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	v := &model.Video{
		ID:             id,
		FolderID:       req.FolderID,
		FileName:       req.FileName,
		BlobKey:        req.BlobKey,
		Thumbnail:      req.Thumbnail,
		UploadedBy:     req.UploaderID,
		UploadedByName: req.UploaderName,
		UploadedByType: uploaderType,
		VideoType:      req.VideoType,
		FileSize:       req.FileSize,
		Duration:       req.Duration,
	}
	if err := s.videos.Create(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Get returns one video if the principal can read its folder.
func (s *MediaServiceImpl) Get(ctx context.Context, principalID, videoID uuid.UUID) (*model.Video, error) {
	v, err := s.videos.Get(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireRead(ctx, principalID, v.FolderID); err != nil {
		return nil, err
	}
	return v, nil
}

// ListFolder returns the folder's videos, newest first.
func (s *MediaServiceImpl) ListFolder(ctx context.Context, principalID, folderID uuid.UUID) ([]model.Video, error) {
	if _, err := s.requireRead(ctx, principalID, folderID); err != nil {
		return nil, err
	}
	return s.videos.ListByFolder(ctx, folderID)
}

// Delete removes annotations, the video, and decrements the counter, then
// closes live subscriptions and cleans blobs best effort.
func (s *MediaServiceImpl) Delete(ctx context.Context, principalID, videoID uuid.UUID) error {
	v, err := s.videos.Get(ctx, videoID)
	if err != nil {
		return err
	}
	f, err := s.folders.Get(ctx, v.FolderID)
	if err != nil {
		return err
	}
	if f.OwnerID != principalID {
		perm, ok := f.Permissions[principalID]
		if !ok || !perm.CanDelete {
			return errs.ErrForbidden
		}
	}

	if err := s.videos.Delete(ctx, videoID); err != nil {
		return err
	}
	s.hub.DropVideo(videoID)
	deleteVideoBlobs(ctx, s.store, s.log, v)
	return nil
}

// deleteVideoBlobs removes a video's binary and thumbnails best effort; the
// metadata is already gone, so failures only leak storage, never correctness.
// Shared by every path that destroys video metadata.
func deleteVideoBlobs(ctx context.Context, store blob.Store, log *zap.Logger, v *model.Video) {
	keys := []string{v.BlobKey}
	if v.Thumbnail.StandardKey != "" {
		keys = append(keys, v.Thumbnail.StandardKey)
	}
	if v.Thumbnail.HighQualityKey != "" {
		keys = append(keys, v.Thumbnail.HighQualityKey)
	}
	for _, key := range keys {
		if err := store.Delete(ctx, key); err != nil {
			log.Warn("blob cleanup failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// requireUpload loads the folder and checks canUpload (owner implicitly holds it).
func (s *MediaServiceImpl) requireUpload(ctx context.Context, principalID, folderID uuid.UUID) (*model.Folder, error) {
	f, err := s.folders.Get(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if f.OwnerID == principalID {
		return f, nil
	}
	perm, ok := f.Permissions[principalID]
	if !ok || !perm.CanUpload {
		return nil, errs.ErrForbidden
	}
	return f, nil
}

// requireRead allows the owner and any principal with a permission entry.
func (s *MediaServiceImpl) requireRead(ctx context.Context, principalID, folderID uuid.UUID) (*model.Folder, error) {
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
