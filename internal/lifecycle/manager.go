// Package lifecycle owns application status transitions and the side
// effects that follow a committed transition.
package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"welfare-workers/internal/audit"
	apperrors "welfare-workers/internal/common/errors"
	"welfare-workers/internal/common/logger"
	"welfare-workers/internal/common/metrics"
	"welfare-workers/internal/models"
	"welfare-workers/internal/rbac"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Repository persists applications with atomic read-modify-write by id.
type Repository interface {
	Get(ctx context.Context, id string) (*models.Application, error)
	// Put inserts a new application and must reject a second non-rejected
	// application for the same user and scheme atomically.
	Put(ctx context.Context, app *models.Application) error
	// CompareAndSwap stores app only if the stored version equals
	// expectedVersion; false means another writer got there first.
	CompareAndSwap(ctx context.Context, app *models.Application, expectedVersion int64) (bool, error)
	FindActive(ctx context.Context, userID, schemeID string) (*models.Application, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]*models.Application, error)
}

type AuditLogger interface {
	Log(ctx context.Context, ev audit.Event) (*models.AuditLogEntry, error)
}

type Notifier interface {
	SendToUser(ctx context.Context, userID, title, message string, typ models.NotificationType) (*models.Notification, error)
}

// Publisher announces committed status changes to the process engine.
type Publisher interface {
	PublishStatusChange(ctx context.Context, app *models.Application) error
}

type Config struct {
	SideEffectTimeout time.Duration
	MaxCASRetries     int
}

type Manager struct {
	repo      Repository
	audit     AuditLogger
	notifier  Notifier
	publisher Publisher
	log       logger.Logger
	cfg       Config
	locks     *keyedMutex
	now       func() time.Time
}

type Option func(*Manager)

func WithPublisher(p Publisher) Option {
	return func(m *Manager) { m.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(repo Repository, auditLog AuditLogger, notifier Notifier, log logger.Logger, cfg Config, opts ...Option) *Manager {
	if cfg.SideEffectTimeout <= 0 {
		cfg.SideEffectTimeout = 2 * time.Second
	}
	if cfg.MaxCASRetries <= 0 {
		cfg.MaxCASRetries = 3
	}
	m := &Manager{
		repo:     repo,
		audit:    auditLog,
		notifier: notifier,
		log:      log.WithFields(map[string]interface{}{"component": "lifecycle"}),
		cfg:      cfg,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type CreateRequest struct {
	UserID     string
	SchemeID   string
	SchemeName string
	Category   string
	FormData   map[string]interface{}
}

// Create submits a new application in pending status.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*models.Application, error) {
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.SchemeID) == "" {
		return nil, apperrors.NewValidationError("userId and schemeId are required")
	}

	existing, err := m.repo.FindActive(ctx, req.UserID, req.SchemeID)
	if err != nil {
		return nil, storageErr("find active application", err)
	}
	if existing != nil {
		return nil, apperrors.NewDuplicateApplicationError(req.UserID, req.SchemeID)
	}

	now := m.now().UTC()
	app := &models.Application{
		ID:         uuid.NewString(),
		UserID:     req.UserID,
		SchemeID:   req.SchemeID,
		SchemeName: req.SchemeName,
		Category:   req.Category,
		Status:     models.StatusPending,
		FormData:   req.FormData,
		StatusHistory: []models.StatusHistoryEntry{{
			Status:    models.StatusPending,
			UpdatedBy: models.SystemActor,
			Remark:    "Application submitted",
			Date:      now,
		}},
		DateApplied: now,
		LastUpdated: now,
		Version:     1,
	}
	if app.Category == "" {
		app.Category = "general"
	}
	if app.FormData == nil {
		app.FormData = map[string]interface{}{}
	}

	if err := m.repo.Put(ctx, app); err != nil {
		return nil, storageErr("insert application", err)
	}

	m.log.Info("application created", map[string]interface{}{
		"applicationId": app.ID,
		"userId":        app.UserID,
		"schemeId":      app.SchemeID,
	})
	return app, nil
}

// MoveToReview takes a pending application under review.
func (m *Manager) MoveToReview(ctx context.Context, appID string, actor models.Actor) (*models.Application, error) {
	if err := rbac.Require(rbac.Role(actor.Role), rbac.ReviewApplication); err != nil {
		return nil, err
	}

	app, err := m.transition(ctx, appID, models.StatusUnderReview, "Picked up for review", actor)
	if err != nil {
		return nil, err
	}

	m.afterCommit(ctx, app, actor, "")
	return app, nil
}

// UpdateStatus approves or rejects an application under review. A
// rejection must carry a non-blank remark.
func (m *Manager) UpdateStatus(ctx context.Context, appID string, status models.ApplicationStatus, remarks string, actor models.Actor) (*models.Application, error) {
	if !ValidStatus(status) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown application status %q", status))
	}

	action := rbac.ApproveApplication
	if status == models.StatusRejected {
		action = rbac.RejectApplication
	}
	if err := rbac.Require(rbac.Role(actor.Role), action); err != nil {
		return nil, err
	}

	remarks = strings.TrimSpace(remarks)
	if status == models.StatusRejected && remarks == "" {
		return nil, apperrors.NewRemarksRequiredError()
	}

	app, err := m.transition(ctx, appID, status, remarks, actor)
	if err != nil {
		return nil, err
	}

	m.afterCommit(ctx, app, actor, remarks)
	return app, nil
}

// transition validates and commits one status change. The per-id lock
// serializes writers in this process; the version CAS covers other
// processes sharing the repository.
func (m *Manager) transition(ctx context.Context, appID string, to models.ApplicationStatus, remark string, actor models.Actor) (*models.Application, error) {
	unlock := m.locks.Lock(appID)
	defer unlock()

	for attempt := 0; attempt <= m.cfg.MaxCASRetries; attempt++ {
		current, err := m.repo.Get(ctx, appID)
		if err != nil {
			return nil, storageErr("load application", err)
		}
		if !CanTransition(current.Status, to) {
			return nil, apperrors.NewInvalidTransitionError(string(current.Status), string(to), allowedStrings(current.Status))
		}

		from := current.Status
		next := current.Clone()
		now := m.now().UTC()
		next.Status = to
		if remark != "" {
			next.Remarks = remark
		}
		next.LastUpdated = now
		next.StatusHistory = append(next.StatusHistory, models.StatusHistoryEntry{
			Status:    to,
			UpdatedBy: actorID(actor),
			Remark:    remark,
			Date:      now,
		})
		next.Version = current.Version + 1

		ok, err := m.repo.CompareAndSwap(ctx, next, current.Version)
		if err != nil {
			return nil, storageErr("update application", err)
		}
		if ok {
			metrics.LifecycleTransitions.WithLabelValues(string(from), string(to)).Inc()
			m.log.Info("application status changed", map[string]interface{}{
				"applicationId": appID,
				"from":          from,
				"to":            to,
				"updatedBy":     actorID(actor),
			})
			return next, nil
		}

		metrics.LifecycleCASConflicts.Inc()
		m.log.Debug("version conflict, retrying", map[string]interface{}{
			"applicationId": appID,
			"attempt":       attempt + 1,
		})
	}

	return nil, apperrors.NewStorageError("update application",
		fmt.Errorf("version conflict persisted after %d attempts", m.cfg.MaxCASRetries+1))
}

// afterCommit records the audit entry and user notification for a committed
// transition. Both run before returning, bounded by the side-effect timeout,
// and failures are logged only.
func (m *Manager) afterCommit(ctx context.Context, app *models.Application, actor models.Actor, remarks string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.SideEffectTimeout)
	defer cancel()

	action, title, message, typ := describe(app, remarks)
	metadata := map[string]interface{}{"schemeName": app.SchemeName}
	if app.Status != models.StatusUnderReview {
		metadata["remarks"] = remarks
	}

	var g errgroup.Group
	if m.audit != nil {
		g.Go(func() error {
			_, err := m.audit.Log(ctx, audit.Event{
				ActionType: action,
				ActorID:    actor.ID,
				ActorRole:  actor.Role,
				TargetID:   app.ID,
				TargetType: audit.TargetApplication,
				Metadata:   metadata,
			})
			m.sideEffectFailed("audit", app, err)
			return nil
		})
	}
	if m.notifier != nil {
		g.Go(func() error {
			_, err := m.notifier.SendToUser(ctx, app.UserID, title, message, typ)
			if apperrors.IsDuplicate(err) {
				return nil
			}
			m.sideEffectFailed("notification", app, err)
			return nil
		})
	}
	if m.publisher != nil {
		g.Go(func() error {
			m.sideEffectFailed("publish", app, m.publisher.PublishStatusChange(ctx, app))
			return nil
		})
	}
	_ = g.Wait()
}

func (m *Manager) sideEffectFailed(effect string, app *models.Application, err error) {
	if err == nil {
		return
	}
	metrics.SideEffectFailures.WithLabelValues(effect).Inc()
	m.log.Warn("side effect failed after commit", map[string]interface{}{
		"effect":        effect,
		"applicationId": app.ID,
		"status":        app.Status,
		"error":         err,
	})
}

func describe(app *models.Application, remarks string) (audit.ActionType, string, string, models.NotificationType) {
	switch app.Status {
	case models.StatusApproved:
		msg := fmt.Sprintf("Your application for %s has been approved.", app.SchemeName)
		if remarks != "" {
			msg += " Remarks: " + remarks
		}
		return audit.ApplicationApproved, "Application Approved!", msg, models.NotificationApproval
	case models.StatusRejected:
		return audit.ApplicationRejected, "Application Update",
			fmt.Sprintf("Your application for %s was not approved. Reason: %s", app.SchemeName, remarks),
			models.NotificationRejection
	default:
		return audit.ApplicationReviewed, "Application Under Review",
			fmt.Sprintf("Your application for %s is now being reviewed.", app.SchemeName),
			models.NotificationSystem
	}
}

func (m *Manager) Get(ctx context.Context, appID string) (*models.Application, error) {
	app, err := m.repo.Get(ctx, appID)
	if err != nil {
		return nil, storageErr("load application", err)
	}
	return app, nil
}

func (m *Manager) ListByUser(ctx context.Context, userID string) ([]*models.Application, error) {
	return m.List(ctx, models.ApplicationFilter{UserID: userID})
}

func (m *Manager) List(ctx context.Context, filter models.ApplicationFilter) ([]*models.Application, error) {
	apps, err := m.repo.List(ctx, filter)
	if err != nil {
		return nil, storageErr("list applications", err)
	}
	return apps, nil
}

func actorID(a models.Actor) string {
	if a.ID == "" {
		return models.SystemActor
	}
	return a.ID
}

// storageErr passes typed errors through and wraps anything else.
func storageErr(op string, err error) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.NewStorageError(op, err)
}
