// Package audit appends immutable records of administrative mutations.
package audit

import (
	"context"
	"fmt"
	"time"

	apperrors "welfare-workers/internal/common/errors"
	"welfare-workers/internal/common/logger"
	"welfare-workers/internal/common/metrics"
	"welfare-workers/internal/models"

	"github.com/google/uuid"
)

// Store persists entries. There is deliberately no update or delete.
type Store interface {
	Append(ctx context.Context, entry *models.AuditLogEntry) error
	Query(ctx context.Context, filter models.AuditFilter) ([]*models.AuditLogEntry, error)
	DistinctActionTypes(ctx context.Context) ([]string, error)
}

// Event is one administrative action to record.
type Event struct {
	ActionType ActionType
	ActorID    string
	ActorRole  string
	TargetID   string
	TargetType string
	Metadata   map[string]interface{}
}

const (
	defaultActorID   = models.SystemActor
	defaultActorRole = "SYSTEM"
)

type Logger struct {
	store   Store
	log     logger.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewLogger(store Store, log logger.Logger, timeout time.Duration) *Logger {
	return &Logger{
		store:   store,
		log:     log.WithFields(map[string]interface{}{"component": "audit"}),
		timeout: timeout,
		now:     time.Now,
	}
}

// Log appends an entry. Storage failures are logged and counted, then
// returned so callers can decide whether they matter.
func (l *Logger) Log(ctx context.Context, ev Event) (*models.AuditLogEntry, error) {
	if !ev.ActionType.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown audit action type %q", ev.ActionType))
	}

	entry := &models.AuditLogEntry{
		ID:              uuid.NewString(),
		ActionType:      string(ev.ActionType),
		PerformedBy:     ev.ActorID,
		PerformedByRole: ev.ActorRole,
		TargetID:        ev.TargetID,
		TargetType:      ev.TargetType,
		Timestamp:       l.now().UTC(),
		Metadata:        ev.Metadata,
	}
	if entry.PerformedBy == "" {
		entry.PerformedBy = defaultActorID
	}
	if entry.PerformedByRole == "" {
		entry.PerformedByRole = defaultActorRole
	}
	if entry.Metadata == nil {
		entry.Metadata = map[string]interface{}{}
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	if err := l.store.Append(ctx, entry); err != nil {
		metrics.AuditWriteFailures.Inc()
		l.log.Warn("audit append failed", map[string]interface{}{
			"actionType": entry.ActionType,
			"targetId":   entry.TargetID,
			"error":      err,
		})
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, apperrors.NewStorageError("audit append", err)
	}

	l.log.Debug("audit entry recorded", map[string]interface{}{
		"actionType": entry.ActionType,
		"targetId":   entry.TargetID,
		"actor":      entry.PerformedBy,
	})
	return entry, nil
}

// Query returns matching entries, newest first.
func (l *Logger) Query(ctx context.Context, filter models.AuditFilter) ([]*models.AuditLogEntry, error) {
	return l.store.Query(ctx, filter)
}

// ActionTypes lists the action types present in the log.
func (l *Logger) ActionTypes(ctx context.Context) ([]string, error) {
	return l.store.DistinctActionTypes(ctx)
}
