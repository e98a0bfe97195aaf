package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "welfare-workers/internal/common/errors"
	"welfare-workers/internal/models"
)

type NotificationStore struct {
	mu    sync.RWMutex
	items []*models.Notification
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{}
}

func (s *NotificationStore) Insert(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *n
	s.items = append(s.items, &cp)
	return nil
}

func (s *NotificationStore) MarkRead(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.items {
		if n.ID == id {
			n.Read = true
			return nil
		}
	}
	return apperrors.NewNotFoundError("notification", id)
}

func (s *NotificationStore) MarkAllRead(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for _, n := range s.items {
		if n.VisibleTo(userID) && !n.Read {
			n.Read = true
			changed++
		}
	}
	return changed, nil
}

// ListForUser returns notifications visible to userID, newest first.
func (s *NotificationStore) ListForUser(_ context.Context, userID string) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Notification
	for i := len(s.items) - 1; i >= 0; i-- {
		if s.items[i].VisibleTo(userID) {
			cp := *s.items[i]
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SentAt.After(out[j].SentAt)
	})
	return out, nil
}

// LastSentTo returns when a notification with title was last sent to target.
func (s *NotificationStore) LastSentTo(_ context.Context, target, title string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last time.Time
	found := false
	for _, n := range s.items {
		if n.Target == target && n.Title == title && (!found || n.SentAt.After(last)) {
			last, found = n.SentAt, true
		}
	}
	return last, found, nil
}
