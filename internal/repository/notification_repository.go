package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/uniride/uniride-api/internal/model"
	"github.com/uniride/uniride-api/internal/store"
)

// notificationListLimit caps how many notifications a listing returns.
const notificationListLimit = 100

// NotificationRepo persists notifications.  Only the recipient may mark
// one as read; nothing else about a notification ever changes.
type NotificationRepo struct {
	db *sql.DB
}

var _ store.NotificationStore = (*NotificationRepo)(nil)

// NewNotificationRepo constructs a NotificationRepo with the given DB handle.
func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// CreateNotification inserts n, assigning its id and creation time.
func (r *NotificationRepo) CreateNotification(ctx context.Context, n *model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	var meta any
	if len(n.Metadata) > 0 {
		meta = string(n.Metadata)
	}
	const q = `INSERT INTO notifications (id, recipient_id, type, title, body, metadata, is_read, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, n.ID, n.RecipientID, n.Type, n.Title, n.Body, meta, n.Read, n.CreatedAt)
	return err
}

// MarkNotificationRead flags a notification as read.  Marking an already
// read notification succeeds.  ErrNotFound and ErrForbidden are returned
// for an unknown id and for someone else's notification.
func (r *NotificationRepo) MarkNotificationRead(ctx context.Context, id, recipientID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE id = ? AND recipient_id = ? AND is_read = 0`,
		id, recipientID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var owner string
	err = r.db.QueryRowContext(ctx, `SELECT recipient_id FROM notifications WHERE id = ?`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if owner != recipientID {
		return ErrForbidden
	}
	return nil
}

// ListNotifications returns the recipient's notifications, newest first.
func (r *NotificationRepo) ListNotifications(ctx context.Context, recipientID string, unreadOnly bool) ([]model.Notification, error) {
	q := `SELECT id, recipient_id, type, title, body, metadata, is_read, created_at FROM notifications WHERE recipient_id = ?`
	if unreadOnly {
		q += ` AND is_read = 0`
	}
	q += ` ORDER BY created_at DESC, id LIMIT ?`

	rows, err := r.db.QueryContext(ctx, q, recipientID, notificationListLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Notification, 0)
	for rows.Next() {
		var (
			n    model.Notification
			meta []byte
		)
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Type, &n.Title, &n.Body, &meta, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			n.Metadata = append([]byte(nil), meta...)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// CountUnread counts every unread notification of the recipient, not just
// the ones a listing returns.
func (r *NotificationRepo) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND is_read = 0`, recipientID).Scan(&n)
	return n, err
}
