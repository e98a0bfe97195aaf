// Package notification stores user and broadcast notifications and
// suppresses repeats of the same title to the same user.
package notification

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "welfare-workers/internal/common/errors"
	"welfare-workers/internal/common/logger"
	"welfare-workers/internal/common/metrics"
	"welfare-workers/internal/models"

	"github.com/google/uuid"
)

// DefaultDedupWindow is how long an identical title to the same user is suppressed.
const DefaultDedupWindow = 60 * time.Second

type Store interface {
	Insert(ctx context.Context, n *models.Notification) error
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
	ListForUser(ctx context.Context, userID string) ([]*models.Notification, error)
	LastSentTo(ctx context.Context, target, title string) (time.Time, bool, error)
}

// Request is the generic input to Add.
type Request struct {
	UserID      string
	Title       string
	Message     string
	Description string
	Type        models.NotificationType
	Target      string
}

type Dispatcher struct {
	store     Store
	guard     DedupGuard
	deliverer Deliverer
	log       logger.Logger
	now       func() time.Time

	// serializes dedup check and insert within this process
	mu sync.Mutex
}

type Option func(*Dispatcher)

// WithClock replaces the wall clock used for sentAt and the dedup window.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithGuard replaces the default store-backed dedup guard.
func WithGuard(g DedupGuard) Option {
	return func(d *Dispatcher) { d.guard = g }
}

// WithDeliverer pushes stored user notifications to external channels.
func WithDeliverer(del Deliverer) Option {
	return func(d *Dispatcher) { d.deliverer = del }
}

func NewDispatcher(store Store, log logger.Logger, window time.Duration, opts ...Option) *Dispatcher {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	d := &Dispatcher{
		store: store,
		log:   log.WithFields(map[string]interface{}{"component": "notification"}),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.guard == nil {
		d.guard = NewStoreGuard(store, window, d.clock)
	}
	return d
}

func (d *Dispatcher) clock() time.Time { return d.now() }

// Add stores a notification. A repeat of the same title to the same user
// inside the dedup window returns DUPLICATE_NOTIFICATION; broadcasts are
// never suppressed.
func (d *Dispatcher) Add(ctx context.Context, req Request) (*models.Notification, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperrors.NewValidationError("notification title is required")
	}
	if req.Type == "" {
		req.Type = models.NotificationAnnouncement
	}
	if !ValidType(req.Type) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown notification type %q", req.Type))
	}

	target, err := resolveTarget(req)
	if err != nil {
		return nil, err
	}
	description := req.Description
	if description == "" {
		description = req.Message
	}

	d.mu.Lock()
	n, err := d.insert(ctx, &models.Notification{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: description,
		Target:      target,
		SentAt:      d.now().UTC(),
		Type:        req.Type,
	})
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}

	metrics.NotificationsSent.WithLabelValues(string(n.Type)).Inc()
	d.log.Info("notification stored", map[string]interface{}{
		"notificationId": n.ID,
		"target":         n.Target,
		"type":           n.Type,
	})

	if d.deliverer != nil && n.Target != models.TargetAll {
		d.deliverer.Deliver(ctx, n.Target, n)
	}
	return n, nil
}

// resolveTarget picks the stored target. A user id wins over an empty
// target and must agree with a non-empty one.
func resolveTarget(req Request) (string, error) {
	switch {
	case req.UserID == "" && req.Target == "":
		return models.TargetAll, nil
	case req.UserID == "":
		return req.Target, nil
	case req.UserID == models.TargetAll:
		return "", apperrors.NewValidationError(fmt.Sprintf("userId %q is reserved for broadcasts", models.TargetAll))
	case req.Target != "" && req.Target != req.UserID:
		return "", apperrors.NewValidationError(fmt.Sprintf("target %q does not match userId %q", req.Target, req.UserID))
	}
	return req.UserID, nil
}

// insert dedups on the final target, so only broadcasts skip the guard.
func (d *Dispatcher) insert(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	guarded := n.Target != models.TargetAll
	if guarded {
		ok, err := d.guard.Acquire(ctx, n.Target, n.Title)
		if err != nil {
			return nil, err
		}
		if !ok {
			metrics.NotificationDedupHits.Inc()
			d.log.Debug("duplicate notification suppressed", map[string]interface{}{
				"userId": n.Target,
				"title":  n.Title,
			})
			return nil, apperrors.NewDuplicateNotificationError(n.Target, n.Title)
		}
	}

	if err := d.store.Insert(ctx, n); err != nil {
		if guarded {
			d.guard.Release(ctx, n.Target, n.Title)
		}
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, apperrors.NewStorageError("notification insert", err)
	}
	return n, nil
}

// SendToUser addresses one user; the type defaults to system.
func (d *Dispatcher) SendToUser(ctx context.Context, userID, title, message string, typ models.NotificationType) (*models.Notification, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.NewValidationError("userId is required")
	}
	if typ == "" {
		typ = models.NotificationSystem
	}
	return d.Add(ctx, Request{UserID: userID, Title: title, Message: message, Type: typ})
}

// BroadcastToAll addresses every user; the type defaults to announcement.
func (d *Dispatcher) BroadcastToAll(ctx context.Context, title, message string, typ models.NotificationType) (*models.Notification, error) {
	if typ == "" {
		typ = models.NotificationAnnouncement
	}
	return d.Add(ctx, Request{Title: title, Message: message, Type: typ, Target: models.TargetAll})
}

func (d *Dispatcher) MarkRead(ctx context.Context, id string) error {
	return d.store.MarkRead(ctx, id)
}

// MarkAllRead flips every notification visible to userID. Broadcast records
// carry one shared flag, so this also marks them read for other users.
func (d *Dispatcher) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return d.store.MarkAllRead(ctx, userID)
}

// ForUser lists notifications visible to userID, newest first.
func (d *Dispatcher) ForUser(ctx context.Context, userID string) ([]*models.Notification, error) {
	return d.store.ListForUser(ctx, userID)
}

func (d *Dispatcher) UnreadCount(ctx context.Context, userID string) (int, error) {
	list, err := d.store.ListForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	unread := 0
	for _, n := range list {
		if !n.Read {
			unread++
		}
	}
	return unread, nil
}

func ValidType(t models.NotificationType) bool {
	switch t {
	case models.NotificationApproval, models.NotificationRejection, models.NotificationSystem,
		models.NotificationAnnouncement, models.NotificationScheme:
		return true
	}
	return false
}
