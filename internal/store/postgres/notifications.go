package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"vaultpay/internal/domain/notification"
	"vaultpay/internal/store/repositories"
)

type notificationRepository struct {
	q Querier
}

func NewNotificationRepository(q Querier) repositories.NotificationRepository {
	return &notificationRepository{q: q}
}

func (r *notificationRepository) Insert(ctx context.Context, n *notification.Notification) error {
	return r.q.QueryRow(ctx, `
		INSERT INTO notifications (user_id, type, title, message, link, related_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		n.UserID, string(n.Type), n.Title, n.Message, n.Link, n.RelatedID, n.CreatedAt,
	).Scan(&n.ID)
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*notification.Notification, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, user_id, type, title, message, link, related_id, created_at, read_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*notification.Notification
	for rows.Next() {
		var n notification.Notification
		var readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message,
			&n.Link, &n.RelatedID, &n.CreatedAt, &readAt); err != nil {
			return nil, err
		}
		if readAt.Valid {
			n.ReadAt = &readAt.Time
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}
