package service

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"

	"github.com/courtside/courtside/internal/errs"
	"github.com/courtside/courtside/internal/model"
	"github.com/courtside/courtside/internal/realtime"
	"github.com/courtside/courtside/internal/repository"
)

// AnnotationService is the per-video, timestamp-ordered comment stream.
//
// Removal is author-only. Folder-level canDelete applies to videos, not to
// annotations; that asymmetry is intended.
type AnnotationService interface {
	// Add appends an annotation and pushes the new snapshot to subscribers.
	// Requires canComment on the video's folder (the owner always has it).
	Add(ctx context.Context, authorID uuid.UUID, authorName string, videoID uuid.UUID, timestampSeconds float64, text string) (*model.Annotation, error)
	// List returns annotations ordered by playback timestamp ascending.
	List(ctx context.Context, principalID, videoID uuid.UUID) ([]model.Annotation, error)
	// Remove deletes an annotation authored by the caller.
	Remove(ctx context.Context, requestedBy, annotationID uuid.UUID) error
	// Subscribe opens a live snapshot stream for a video. The first snapshot
	// arrives immediately; the caller must invoke cancel when done.
	Subscribe(ctx context.Context, principalID, videoID uuid.UUID) (<-chan []model.Annotation, func(), error)
}

type AnnotationServiceImpl struct {
	annotations repository.AnnotationRepository
	videos      repository.VideoRepository
	folders     repository.FolderRepository
	hub         *realtime.Hub
}

// NewAnnotationService constructs AnnotationService.
func NewAnnotationService(
	annotations repository.AnnotationRepository,
	videos repository.VideoRepository,
	folders repository.FolderRepository,
	hub *realtime.Hub,
) *AnnotationServiceImpl {
	return &AnnotationServiceImpl{annotations: annotations, videos: videos, folders: folders, hub: hub}
}

// Add validates, authorizes against the video's folder, inserts, and republishes.
func (s *AnnotationServiceImpl) Add(
	ctx context.Context, authorID uuid.UUID, authorName string, videoID uuid.UUID, timestampSeconds float64, text string,
) (*model.Annotation, error) {
	if authorID == uuid.Nil || videoID == uuid.Nil {
		return nil, errors.New("validation: empty authorID/videoID")
	}
	if timestampSeconds < 0 {
		return nil, errors.New("validation: negative timestamp")
	}
	if text == "" {
		return nil, errors.New("validation: empty text")
	}

	v, err := s.videos.Get(ctx, videoID)
	if err != nil {
		return nil, err
	}
	f, err := s.folders.Get(ctx, v.FolderID)
	if err != nil {
		return nil, err
	}
	isOwner := f.OwnerID == authorID
	if !isOwner {
		perm, ok := f.Permissions[authorID]
		if !ok || !perm.CanComment {
			return nil, errs.ErrForbidden
		}
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	a := &model.Annotation{
		ID:               id,
		VideoID:          videoID,
		AuthorID:         authorID,
		AuthorName:       authorName,
		TimestampSeconds: timestampSeconds,
		Text:             text,
		IsReviewerNote:   !isOwner,
	}
	if err := s.annotations.Create(ctx, a); err != nil {
		return nil, err
	}
	s.republish(ctx, videoID)
	return a, nil
}

// List returns the ordered stream for a video the principal can read.
func (s *AnnotationServiceImpl) List(ctx context.Context, principalID, videoID uuid.UUID) ([]model.Annotation, error) {
	if err := s.requireRead(ctx, principalID, videoID); err != nil {
		return nil, err
	}
	return s.annotations.ListByVideo(ctx, videoID)
}

// Remove deletes an annotation. Only its author may do so.
func (s *AnnotationServiceImpl) Remove(ctx context.Context, requestedBy, annotationID uuid.UUID) error {
	a, err := s.annotations.Get(ctx, annotationID)
	if err != nil {
		return err
	}
	if a.AuthorID != requestedBy {
		return errs.ErrForbidden
	}
	if err := s.annotations.Delete(ctx, annotationID); err != nil {
		return err
	}
	s.republish(ctx, a.VideoID)
	return nil
}

// Subscribe checks read access, registers the listener, and seeds it with the
// current snapshot so consumers render without waiting for the first change.
func (s *AnnotationServiceImpl) Subscribe(
	ctx context.Context, principalID, videoID uuid.UUID,
) (<-chan []model.Annotation, func(), error) {
	if err := s.requireRead(ctx, principalID, videoID); err != nil {
		return nil, nil, err
	}
	current, err := s.annotations.ListByVideo(ctx, videoID)
	if err != nil {
		return nil, nil, err
	}
	// Seed only the new listener; existing subscribers already hold this state.
	ch, cancel := s.hub.SubscribeSeeded(videoID, current)
	return ch, cancel, nil
}

// republish pushes the fresh ordered snapshot to all open subscriptions.
// Every emission carries the same sort order as List.
func (s *AnnotationServiceImpl) republish(ctx context.Context, videoID uuid.UUID) {
	if s.hub.Listeners(videoID) == 0 {
		return
	}
	snapshot, err := s.annotations.ListByVideo(ctx, videoID)
	if err != nil {
		return
	}
	s.hub.Publish(videoID, snapshot)
}

func (s *AnnotationServiceImpl) requireRead(ctx context.Context, principalID, videoID uuid.UUID) error {
	v, err := s.videos.Get(ctx, videoID)
	if err != nil {
		return err
	}
	f, err := s.folders.Get(ctx, v.FolderID)
	if err != nil {
		return err
	}
	if f.OwnerID != principalID {
		if _, ok := f.Permissions[principalID]; !ok {
			return errs.ErrForbidden
		}
	}
	return nil
}
