package postgres

import (
	"context"
	"database/sql"
	"time"

	apperrors "welfare-workers/internal/common/errors"
	"welfare-workers/internal/models"
)

type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

func (s *NotificationStore) Insert(ctx context.Context, n *models.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, title, description, target, type, read, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.Title, n.Description, n.Target, string(n.Type), n.Read, n.SentAt,
	)
	if err != nil {
		return apperrors.NewStorageError("insert notification", err)
	}
	return nil
}

func (s *NotificationStore) MarkRead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return apperrors.NewStorageError("mark notification read", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewStorageError("mark notification read", err)
	}
	if n == 0 {
		return apperrors.NewNotFoundError("notification", id)
	}
	return nil
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, userID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET read = TRUE
		WHERE (target = $1 OR target = $2) AND read = FALSE`, userID, models.TargetAll)
	if err != nil {
		return 0, apperrors.NewStorageError("mark notifications read", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.NewStorageError("mark notifications read", err)
	}
	return int(n), nil
}

func (s *NotificationStore) ListForUser(ctx context.Context, userID string) ([]*models.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, target, type, read, sent_at
		FROM notifications
		WHERE target = $1 OR target = $2
		ORDER BY sent_at DESC`, userID, models.TargetAll)
	if err != nil {
		return nil, apperrors.NewStorageError("list notifications", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		var (
			n   models.Notification
			typ string
		)
		if err := rows.Scan(&n.ID, &n.Title, &n.Description, &n.Target, &typ, &n.Read, &n.SentAt); err != nil {
			return nil, apperrors.NewStorageError("scan notification", err)
		}
		n.Type = models.NotificationType(typ)
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("list notifications", err)
	}
	return out, nil
}

func (s *NotificationStore) LastSentTo(ctx context.Context, target, title string) (time.Time, bool, error) {
	var last sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(sent_at) FROM notifications WHERE target = $1 AND title = $2`, target, title).Scan(&last)
	if err != nil {
		return time.Time{}, false, apperrors.NewStorageError("last notification", err)
	}
	return last.Time, last.Valid, nil
}
