package postgres

import (
	"context"
	"database/sql"
	"errors"

	apperrors "welfare-workers/internal/common/errors"
	"welfare-workers/internal/notification"
)

// ContactStore resolves delivery addresses from user_contacts. A user with
// no row has an empty contact.
type ContactStore struct {
	db *sql.DB
}

func NewContactStore(db *sql.DB) *ContactStore {
	return &ContactStore{db: db}
}

func (s *ContactStore) Contact(ctx context.Context, userID string) (notification.Contact, error) {
	var c notification.Contact
	err := s.db.QueryRowContext(ctx,
		`SELECT email, phone FROM user_contacts WHERE user_id = $1`, userID).Scan(&c.Email, &c.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return notification.Contact{}, nil
	}
	if err != nil {
		return notification.Contact{}, apperrors.NewStorageError("load user contact", err)
	}
	return c, nil
}
