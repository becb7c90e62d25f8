package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/courtside/courtside/internal/errs"
	"github.com/courtside/courtside/internal/model"
)

// NotificationRepo implements the denormalized notification outbox on PostgreSQL.
// The external delivery collaborator drains it; rows carry every name they need
// so delivery works even after the accounts involved are gone.
type NotificationRepo struct{ db *DB }

// NewNotificationRepo constructs a notification outbox repository.
func NewNotificationRepo(db *DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Enqueue inserts one outbox row.
func (r *NotificationRepo) Enqueue(ctx context.Context, n *model.Notification) error {
	const ins = `
INSERT INTO notifications (id, kind, folder_id, folder_name, owner_id, owner_name, reviewer_id, reviewer_contact, delivered)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,false)
RETURNING created_at`
	return r.db.Pool.QueryRow(ctx, ins,
		n.ID, string(n.Kind), n.FolderID, n.FolderName,
		n.OwnerID, n.OwnerName, n.ReviewerID, n.ReviewerContact,
	).Scan(&n.CreatedAt)
}

// ListUndelivered returns up to limit undelivered rows, oldest first.
func (r *NotificationRepo) ListUndelivered(ctx context.Context, limit int) ([]model.Notification, error) {
	const q = `
SELECT id, kind, folder_id, folder_name, owner_id, owner_name, reviewer_id, reviewer_contact, created_at
FROM notifications
WHERE NOT delivered
ORDER BY created_at ASC
LIMIT $1`
	rows, err := r.db.Pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var (
			n    model.Notification
			kind string
		)
		if err = rows.Scan(&n.ID, &kind, &n.FolderID, &n.FolderName,
			&n.OwnerID, &n.OwnerName, &n.ReviewerID, &n.ReviewerContact, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Kind = model.NotificationKind(kind)
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkDelivered flags one row as handed off to the delivery collaborator.
func (r *NotificationRepo) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE notifications SET delivered=true WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
