package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/courtside/courtside/internal/errs"
	"github.com/courtside/courtside/internal/model"
)

// InvitationRepo implements InvitationRepository using PostgreSQL.
//
// No uniqueness is enforced per (folder, contact): duplicate pending
// invitations are tolerated, matching the permissive share flow.
type InvitationRepo struct{ db *DB }

// NewInvitationRepo constructs an invitation repository.
func NewInvitationRepo(db *DB) *InvitationRepo { return &InvitationRepo{db: db} }

const invitationColumns = `id, folder_id, folder_name, owner_id, owner_name, reviewer_contact, can_upload, can_comment, can_delete, status, sent_at, expires_at, accepted_at`

// Create inserts a pending invitation carrying the owner-chosen permission.
func (r *InvitationRepo) Create(ctx context.Context, inv *model.Invitation) error {
	const ins = `
INSERT INTO invitations (id, folder_id, folder_name, owner_id, owner_name, reviewer_contact, can_upload, can_comment, can_delete, status, sent_at, expires_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := r.db.Pool.Exec(ctx, ins,
		inv.ID, inv.FolderID, inv.FolderName, inv.OwnerID, inv.OwnerName,
		inv.ReviewerContact, inv.Permission.CanUpload, inv.Permission.CanComment, inv.Permission.CanDelete,
		string(inv.Status), inv.SentAt, inv.ExpiresAt)
	if err != nil && isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Get loads one invitation by ID.
func (r *InvitationRepo) Get(ctx context.Context, id uuid.UUID) (*model.Invitation, error) {
	const q = `SELECT ` + invitationColumns + ` FROM invitations WHERE id=$1`
	inv, err := scanInvitation(r.db.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

// Accept grants the invitation's stored permission and flips status to accepted
// in one transaction. If the grant fails the transaction rolls back and the
// invitation stays pending. The acceptor never influences what is granted.
func (r *InvitationRepo) Accept(
	ctx context.Context, id, reviewerID uuid.UUID, reviewerContact string,
) (inv *model.Invitation, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer finishTx(ctx, tx, &err)

	const sel = `SELECT ` + invitationColumns + ` FROM invitations WHERE id=$1 FOR UPDATE`
	inv, err = scanInvitation(tx.QueryRow(ctx, sel, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = errs.ErrNotFound
		}
		return nil, err
	}
	// Terminal invitations accept no further transitions.
	if inv.Status != model.InvitationPending {
		err = errs.ErrNotFound
		return nil, err
	}
	// The invitation is addressed to a contact; only that contact may redeem it.
	if !strings.EqualFold(inv.ReviewerContact, reviewerContact) {
		err = errs.ErrForbidden
		return nil, err
	}
	now := time.Now()
	if !now.Before(inv.ExpiresAt) {
		err = errs.ErrExpired
		return nil, err
	}

	const grant = `
INSERT INTO folder_permissions (folder_id, reviewer_id, reviewer_contact, can_upload, can_comment, can_delete)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (folder_id, reviewer_id)
DO UPDATE SET reviewer_contact=$3, can_upload=$4, can_comment=$5, can_delete=$6`
	if _, err = tx.Exec(ctx, grant, inv.FolderID, reviewerID, inv.ReviewerContact,
		inv.Permission.CanUpload, inv.Permission.CanComment, inv.Permission.CanDelete); err != nil {
		return nil, err
	}
	const flip = `UPDATE invitations SET status=$2, accepted_at=$3 WHERE id=$1`
	if _, err = tx.Exec(ctx, flip, id, string(model.InvitationAccepted), now); err != nil {
		return nil, err
	}
	inv.Status = model.InvitationAccepted
	inv.AcceptedAt = &now
	return inv, nil
}

// Decline flips a pending invitation to declined. No folder mutation.
func (r *InvitationRepo) Decline(ctx context.Context, id uuid.UUID) (inv *model.Invitation, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer finishTx(ctx, tx, &err)

	const sel = `SELECT ` + invitationColumns + ` FROM invitations WHERE id=$1 FOR UPDATE`
	inv, err = scanInvitation(tx.QueryRow(ctx, sel, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = errs.ErrNotFound
		}
		return nil, err
	}
	if inv.Status != model.InvitationPending {
		err = errs.ErrNotFound
		return nil, err
	}
	const flip = `UPDATE invitations SET status=$2 WHERE id=$1`
	if _, err = tx.Exec(ctx, flip, id, string(model.InvitationDeclined)); err != nil {
		return nil, err
	}
	inv.Status = model.InvitationDeclined
	return inv, nil
}

// ListPendingByContact returns pending, unexpired invitations for a contact, newest first.
func (r *InvitationRepo) ListPendingByContact(ctx context.Context, contact string) ([]model.Invitation, error) {
	const q = `
SELECT ` + invitationColumns + `
FROM invitations
WHERE reviewer_contact=$1 AND status=$2 AND expires_at > now()
ORDER BY sent_at DESC`
	rows, err := r.db.Pool.Query(ctx, q, contact, string(model.InvitationPending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Invitation
	for rows.Next() {
		inv, scanErr := scanInvitation(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

// DeleteByOwner removes every invitation an owner ever sent.
func (r *InvitationRepo) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM invitations WHERE owner_id=$1`, ownerID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanInvitation(row pgx.Row) (*model.Invitation, error) {
	var (
		inv    model.Invitation
		status string
	)
	err := row.Scan(&inv.ID, &inv.FolderID, &inv.FolderName, &inv.OwnerID, &inv.OwnerName,
		&inv.ReviewerContact, &inv.Permission.CanUpload, &inv.Permission.CanComment, &inv.Permission.CanDelete,
		&status, &inv.SentAt, &inv.ExpiresAt, &inv.AcceptedAt)
	if err != nil {
		return nil, err
	}
	inv.Status = model.InvitationStatus(status)
	return &inv, nil
}
