package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/courtside/courtside/internal/errs"
	"github.com/courtside/courtside/internal/model"
	"github.com/courtside/courtside/internal/repository"
)

// InvitationTTL is how long a pending invitation stays acceptable.
const InvitationTTL = 30 * 24 * time.Hour

// DefaultReviewerPermission is granted when the owner specified none: comment
// but neither upload nor delete.
var DefaultReviewerPermission = model.Permission{CanComment: true}

// InvitationService runs the pending/accepted/declined state machine between an
// owner's folder and a reviewer known only by contact address. Duplicate
// pending invitations for the same (folder, contact) are tolerated; callers
// are responsible for not double-inviting.
type InvitationService interface {
	// Create sends an invitation for a folder the caller owns. The permission to
	// grant on acceptance is fixed here; a nil perm falls back to
	// DefaultReviewerPermission.
	Create(ctx context.Context, ownerID uuid.UUID, ownerName string, folderID uuid.UUID, reviewerContact string, perm *model.Permission) (*model.Invitation, error)
	// Accept grants the invitation's stored permission and flips the invitation
	// atomically. The caller proves entitlement by contact address; the granted
	// permission is never taken from the acceptor.
	Accept(ctx context.Context, invitationID, reviewerID uuid.UUID, reviewerContact string) (*model.Invitation, error)
	// Decline flips the invitation. No folder mutation.
	Decline(ctx context.Context, invitationID uuid.UUID) (*model.Invitation, error)
	// ListForContact returns pending, unexpired invitations addressed to a contact.
	ListForContact(ctx context.Context, contact string) ([]model.Invitation, error)
}

type InvitationServiceImpl struct {
	invitations repository.InvitationRepository
	folders     repository.FolderRepository
	outbox      repository.NotificationRepository
	log         *zap.Logger
}

// NewInvitationService constructs InvitationService.
func NewInvitationService(
	invitations repository.InvitationRepository,
	folders repository.FolderRepository,
	outbox repository.NotificationRepository,
	log *zap.Logger,
) *InvitationServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &InvitationServiceImpl{invitations: invitations, folders: folders, outbox: outbox, log: log}
}

// Create snapshots the folder and owner names onto the invitation so it stays
// renderable no matter what happens to either account later.
func (s *InvitationServiceImpl) Create(
	ctx context.Context, ownerID uuid.UUID, ownerName string, folderID uuid.UUID, reviewerContact string, perm *model.Permission,
) (*model.Invitation, error) {
	reviewerContact = strings.TrimSpace(reviewerContact)
	if reviewerContact == "" {
		return nil, errors.New("validation: empty reviewer contact")
	}
	granted := DefaultReviewerPermission
	if perm != nil {
		granted = *perm
	}
	f, err := s.folders.Get(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if f.OwnerID != ownerID {
		return nil, errs.ErrForbidden
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	inv := &model.Invitation{
		ID:              id,
		FolderID:        f.ID,
		FolderName:      f.Name,
		OwnerID:         ownerID,
		OwnerName:       ownerName,
		ReviewerContact: reviewerContact,
		Permission:      granted,
		Status:          model.InvitationPending,
		SentAt:          now,
		ExpiresAt:       now.Add(InvitationTTL),
	}
	if err := s.invitations.Create(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// Accept validates the reviewer and delegates the grant-and-flip transaction.
// The permission granted is the one the owner stored on the invitation.
func (s *InvitationServiceImpl) Accept(
	ctx context.Context, invitationID, reviewerID uuid.UUID, reviewerContact string,
) (*model.Invitation, error) {
	if invitationID == uuid.Nil || reviewerID == uuid.Nil {
		return nil, errors.New("validation: empty invitationID/reviewerID")
	}
	reviewerContact = strings.TrimSpace(reviewerContact)
	if reviewerContact == "" {
		return nil, errors.New("validation: empty reviewer contact")
	}
	inv, err := s.invitations.Accept(ctx, invitationID, reviewerID, reviewerContact)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, model.NotifyInvitationAccepted, inv, reviewerID)
	return inv, nil
}

// Decline flips a pending invitation to its terminal declined state.
func (s *InvitationServiceImpl) Decline(ctx context.Context, invitationID uuid.UUID) (*model.Invitation, error) {
	if invitationID == uuid.Nil {
		return nil, errors.New("validation: empty invitationID")
	}
	inv, err := s.invitations.Decline(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, model.NotifyInvitationDeclined, inv, uuid.Nil)
	return inv, nil
}

// ListForContact returns the reviewer's pending inbox.
func (s *InvitationServiceImpl) ListForContact(ctx context.Context, contact string) ([]model.Invitation, error) {
	contact = strings.TrimSpace(contact)
	if contact == "" {
		return nil, errors.New("validation: empty contact")
	}
	return s.invitations.ListPendingByContact(ctx, contact)
}

// notify enqueues an outcome event for the owner, fire-and-forget.
func (s *InvitationServiceImpl) notify(ctx context.Context, kind model.NotificationKind, inv *model.Invitation, reviewerID uuid.UUID) {
	id, err := uuid.NewV4()
	if err != nil {
		s.log.Warn("invitation notification skipped", zap.Error(err))
		return
	}
	n := &model.Notification{
		ID:              id,
		Kind:            kind,
		FolderID:        inv.FolderID,
		FolderName:      inv.FolderName,
		OwnerID:         inv.OwnerID,
		OwnerName:       inv.OwnerName,
		ReviewerID:      reviewerID,
		ReviewerContact: inv.ReviewerContact,
	}
	if err := s.outbox.Enqueue(ctx, n); err != nil {
		s.log.Warn("invitation notification enqueue failed",
			zap.String("invitationID", inv.ID.String()),
			zap.Error(err),
		)
	}
}
