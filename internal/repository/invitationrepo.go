package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/courtside/courtside/internal/model"
)

// InvitationRepository stores folder-share invitations. Duplicate pending
// invitations per (folder, contact) are tolerated; the store enforces no
// uniqueness there.
type InvitationRepository interface {
	// Create inserts a pending invitation with denormalized folder/owner names
	// and the owner-chosen permission.
	Create(ctx context.Context, inv *model.Invitation) error

	// Get loads one invitation by ID.
	Get(ctx context.Context, id uuid.UUID) (*model.Invitation, error)

	// Accept grants the invitation's stored permission and flips the status in
	// one transaction so a failed grant leaves the invitation pending. The
	// caller's contact must match the invited contact (ErrForbidden otherwise).
	// Terminal status maps to ErrNotFound, a pending invitation past expiry to
	// ErrExpired.
	Accept(ctx context.Context, id, reviewerID uuid.UUID, reviewerContact string) (*model.Invitation, error)

	// Decline flips a pending invitation to declined. No folder mutation.
	Decline(ctx context.Context, id uuid.UUID) (*model.Invitation, error)

	// ListPendingByContact returns pending, unexpired invitations for a contact
	// address, newest first.
	ListPendingByContact(ctx context.Context, contact string) ([]model.Invitation, error)

	// DeleteByOwner removes every invitation an owner ever sent. Account teardown only.
	DeleteByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
}
