package service

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/courtside/courtside/internal/blob"
	"github.com/courtside/courtside/internal/realtime"
	"github.com/courtside/courtside/internal/repository"
)

// TeardownReport summarizes what an account deletion removed or flagged.
type TeardownReport struct {
	FoldersDeleted  int
	VideosDeleted   int
	RecordsPurged   int64
	InvitationsGone int64
	GrantsRevoked   int
	VideosOrphaned  int64
}

// AccountService performs the full teardown of a principal's graph: owned
// folders cascade children-first, private records are physically purged (the
// only physical record removal in the system), reviewer grants are dropped,
// and videos uploaded into other owners' folders are retained but flagged
// orphaned.
type AccountService interface {
	DeleteAccount(ctx context.Context, principalID uuid.UUID) (TeardownReport, error)
}

type AccountServiceImpl struct {
	records     repository.RecordRepository
	folders     repository.FolderRepository
	videos      repository.VideoRepository
	invitations repository.InvitationRepository
	store       blob.Store
	hub         *realtime.Hub
	log         *zap.Logger
}

// NewAccountService constructs AccountService.
func NewAccountService(
	records repository.RecordRepository,
	folders repository.FolderRepository,
	videos repository.VideoRepository,
	invitations repository.InvitationRepository,
	store blob.Store,
	hub *realtime.Hub,
	log *zap.Logger,
) *AccountServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountServiceImpl{
		records:     records,
		folders:     folders,
		videos:      videos,
		invitations: invitations,
		store:       store,
		hub:         hub,
		log:         log,
	}
}

// DeleteAccount walks the graph children-first. Each owned folder cascade is
// transactional on its own; the walk as a whole is restartable, so a crash
// midway leaves a strictly smaller graph for the retry.
func (s *AccountServiceImpl) DeleteAccount(ctx context.Context, principalID uuid.UUID) (TeardownReport, error) {
	if principalID == uuid.Nil {
		return TeardownReport{}, errors.New("validation: empty principalID")
	}
	var report TeardownReport

	// Owned folders, videos and annotations go first.
	owned, err := s.folders.ListByOwner(ctx, principalID)
	if err != nil {
		return report, err
	}
	for i := range owned {
		folder := &owned[i]
		videos, listErr := s.videos.ListByFolder(ctx, folder.ID)
		if listErr != nil {
			return report, listErr
		}
		if delErr := s.folders.Delete(ctx, folder.ID); delErr != nil {
			return report, delErr
		}
		report.FoldersDeleted++
		report.VideosDeleted += len(videos)
		for j := range videos {
			s.hub.DropVideo(videos[j].ID)
			deleteVideoBlobs(ctx, s.store, s.log, &videos[j])
		}
	}

	// Private synced records are physically purged, not tombstoned.
	purged, err := s.records.Purge(ctx, principalID)
	if err != nil {
		return report, err
	}
	report.RecordsPurged = purged

	// Invitations the principal sent.
	gone, err := s.invitations.DeleteByOwner(ctx, principalID)
	if err != nil {
		return report, err
	}
	report.InvitationsGone = gone

	// Grants the principal held as a reviewer on other owners' folders.
	reviewing, err := s.folders.ListByReviewer(ctx, principalID)
	if err != nil {
		return report, err
	}
	for i := range reviewing {
		if _, revErr := s.folders.RevokeAccess(ctx, reviewing[i].ID, principalID); revErr != nil {
			return report, revErr
		}
		report.GrantsRevoked++
	}

	// Videos uploaded into folders that survive are retained but orphaned.
	orphaned, err := s.videos.MarkOrphanedByUploader(ctx, principalID)
	if err != nil {
		return report, err
	}
	report.VideosOrphaned = orphaned

	s.log.Info("account torn down",
		zap.String("principalID", principalID.String()),
		zap.Int("foldersDeleted", report.FoldersDeleted),
		zap.Int64("recordsPurged", report.RecordsPurged),
		zap.Int64("videosOrphaned", report.VideosOrphaned),
	)
	return report, nil
}
