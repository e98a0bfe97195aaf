// Package scheme is the administrative scheme catalogue. Mutations are
// permission checked and audited; reads of the active catalogue are cached.
package scheme

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
	"golang.org/x/sync/singleflight"
)

type Store interface {
	Insert(ctx context.Context, s *models.Scheme) error
	Update(ctx context.Context, s *models.Scheme) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.Scheme, error)
	List(ctx context.Context) ([]*models.Scheme, error)
}

// Index is a full-text index over the catalogue. Search returns matching
// scheme ids, best match first.
type Index interface {
	IndexScheme(ctx context.Context, s *models.Scheme) error
	DeleteScheme(ctx context.Context, id string) error
	Search(ctx context.Context, query string) ([]string, error)
}

// Cache holds the active-scheme list between mutations.
type Cache interface {
	GetActive(ctx context.Context) ([]*models.Scheme, bool, error)
	SetActive(ctx context.Context, schemes []*models.Scheme) error
	Invalidate(ctx context.Context) error
}

type AuditLogger interface {
	Log(ctx context.Context, ev audit.Event) (*models.AuditLogEntry, error)
}

type Broadcaster interface {
	BroadcastToAll(ctx context.Context, title, message string, typ models.NotificationType) (*models.Notification, error)
}

type Service struct {
	store       Store
	index       Index
	cache       Cache
	audit       AuditLogger
	broadcaster Broadcaster
	log         logger.Logger
	group       singleflight.Group
	now         func() time.Time
}

type Option func(*Service)

func WithIndex(idx Index) Option {
	return func(s *Service) { s.index = idx }
}

func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithBroadcaster(b Broadcaster) Option {
	return func(s *Service) { s.broadcaster = b }
}

func NewService(store Store, auditLog AuditLogger, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		store: store,
		audit: auditLog,
		log:   log.WithFields(map[string]interface{}{"component": "scheme-catalogue"}),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add creates a scheme and announces it to every user.
func (s *Service) Add(ctx context.Context, actor models.Actor, draft models.Scheme) (*models.Scheme, error) {
	if err := rbac.Require(rbac.Role(actor.Role), rbac.AddScheme); err != nil {
		return nil, err
	}
	if strings.TrimSpace(draft.Name) == "" {
		return nil, apperrors.NewValidationError("scheme name is required")
	}

	now := s.now().UTC()
	scheme := draft
	scheme.ID = uuid.NewString()
	scheme.Name = strings.TrimSpace(draft.Name)
	if scheme.Status == "" {
		scheme.Status = models.SchemeActive
	}
	scheme.CreatedAt = now
	scheme.UpdatedAt = now

	if err := s.store.Insert(ctx, &scheme); err != nil {
		return nil, wrap("insert scheme", err)
	}
	s.changed(ctx, &scheme)

	s.record(ctx, actor, audit.SchemeCreated, scheme.ID, map[string]interface{}{"schemeName": scheme.Name})
	if s.broadcaster != nil {
		_, err := s.broadcaster.BroadcastToAll(ctx,
			"New Scheme: "+scheme.Name,
			fmt.Sprintf("A new scheme %q has been added. Check it out!", scheme.Name),
			models.NotificationScheme)
		if err != nil {
			s.log.Warn("new scheme broadcast failed", map[string]interface{}{"schemeId": scheme.ID, "error": err})
		}
	}
	return &scheme, nil
}

// Update replaces the editable fields of a scheme. Id, status and creation
// time are kept.
func (s *Service) Update(ctx context.Context, actor models.Actor, id string, changes models.Scheme) (*models.Scheme, error) {
	if err := rbac.Require(rbac.Role(actor.Role), rbac.EditScheme); err != nil {
		return nil, err
	}
	if strings.TrimSpace(changes.Name) == "" {
		return nil, apperrors.NewValidationError("scheme name is required")
	}

	current, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, wrap("load scheme", err)
	}

	updated := changes
	updated.ID = current.ID
	updated.Name = strings.TrimSpace(changes.Name)
	updated.Status = current.Status
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = s.now().UTC()

	if err := s.store.Update(ctx, &updated); err != nil {
		return nil, wrap("update scheme", err)
	}
	s.changed(ctx, &updated)
	s.record(ctx, actor, audit.SchemeUpdated, id, map[string]interface{}{"schemeName": updated.Name})
	return &updated, nil
}

func (s *Service) Remove(ctx context.Context, actor models.Actor, id string) error {
	if err := rbac.Require(rbac.Role(actor.Role), rbac.DeleteScheme); err != nil {
		return err
	}
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return wrap("load scheme", err)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return wrap("delete scheme", err)
	}

	s.invalidate(ctx)
	if s.index != nil {
		if err := s.index.DeleteScheme(ctx, id); err != nil {
			s.log.Warn("search index delete failed", map[string]interface{}{"schemeId": id, "error": err})
		}
	}
	s.record(ctx, actor, audit.SchemeDeleted, id, map[string]interface{}{"schemeName": current.Name})
	return nil
}

// Toggle flips a scheme between active and inactive.
func (s *Service) Toggle(ctx context.Context, actor models.Actor, id string) (*models.Scheme, error) {
	if err := rbac.Require(rbac.Role(actor.Role), rbac.EditScheme); err != nil {
		return nil, err
	}
	scheme, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, wrap("load scheme", err)
	}

	if scheme.Status == models.SchemeActive {
		scheme.Status = models.SchemeInactive
	} else {
		scheme.Status = models.SchemeActive
	}
	scheme.UpdatedAt = s.now().UTC()

	if err := s.store.Update(ctx, scheme); err != nil {
		return nil, wrap("update scheme", err)
	}
	s.changed(ctx, scheme)
	s.record(ctx, actor, audit.SchemeToggled, id, map[string]interface{}{
		"schemeName": scheme.Name,
		"newStatus":  scheme.Status,
	})
	return scheme, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Scheme, error) {
	scheme, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, wrap("load scheme", err)
	}
	return scheme, nil
}

func (s *Service) List(ctx context.Context) ([]*models.Scheme, error) {
	schemes, err := s.store.List(ctx)
	if err != nil {
		return nil, wrap("list schemes", err)
	}
	return schemes, nil
}

// ListActive returns the active catalogue. Concurrent misses share one
// store read.
func (s *Service) ListActive(ctx context.Context) ([]*models.Scheme, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.GetActive(ctx)
		if err != nil {
			s.log.Warn("scheme cache read failed", map[string]interface{}{"error": err})
		}
		if ok {
			metrics.SchemeCacheRequests.WithLabelValues("hit").Inc()
			return cached, nil
		}
		metrics.SchemeCacheRequests.WithLabelValues("miss").Inc()
	}

	v, err, _ := s.group.Do("active", func() (interface{}, error) {
		all, err := s.List(ctx)
		if err != nil {
			return nil, err
		}
		active := make([]*models.Scheme, 0, len(all))
		for _, sc := range all {
			if sc.Status == models.SchemeActive {
				active = append(active, sc)
			}
		}
		if s.cache != nil {
			if err := s.cache.SetActive(ctx, active); err != nil {
				s.log.Warn("scheme cache write failed", map[string]interface{}{"error": err})
			}
		}
		return active, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*models.Scheme), nil
}

// Search matches query against the index when one is configured, falling
// back to a case-insensitive substring scan. A blank query returns everything.
func (s *Service) Search(ctx context.Context, query string) ([]*models.Scheme, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.List(ctx)
	}

	if s.index != nil {
		ids, err := s.index.Search(ctx, query)
		if err == nil {
			return s.resolve(ctx, ids)
		}
		s.log.Warn("index search failed, scanning catalogue", map[string]interface{}{"query": query, "error": err})
	}

	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Scheme, 0)
	for _, sc := range all {
		if Matches(sc, query) {
			out = append(out, sc)
		}
	}
	return out, nil
}

// Matches reports whether query occurs, ignoring case, in the scheme's name,
// description, category, target beneficiaries or government level.
func Matches(s *models.Scheme, query string) bool {
	q := strings.ToLower(query)
	for _, field := range []string{s.Name, s.Description, s.Category, s.TargetBeneficiaries, s.GovernmentLevel} {
		if field != "" && strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func (s *Service) Filter(ctx context.Context, filter models.SchemeFilter) ([]*models.Scheme, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Scheme, 0, len(all))
	for _, sc := range all {
		if filter.Matches(sc) {
			out = append(out, sc)
		}
	}
	return out, nil
}

func (s *Service) resolve(ctx context.Context, ids []string) ([]*models.Scheme, error) {
	out := make([]*models.Scheme, 0, len(ids))
	for _, id := range ids {
		sc, err := s.store.Get(ctx, id)
		if apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
			// index lagging behind a delete
			continue
		}
		if err != nil {
			return nil, wrap("load scheme", err)
		}
		out = append(out, sc)
	}
	return out, nil
}

func (s *Service) changed(ctx context.Context, scheme *models.Scheme) {
	s.invalidate(ctx)
	if s.index != nil {
		if err := s.index.IndexScheme(ctx, scheme); err != nil {
			s.log.Warn("search index update failed", map[string]interface{}{"schemeId": scheme.ID, "error": err})
		}
	}
}

func (s *Service) invalidate(ctx context.Context) {
	s.group.Forget("active")
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("scheme cache invalidation failed", map[string]interface{}{"error": err})
	}
}

func (s *Service) record(ctx context.Context, actor models.Actor, action audit.ActionType, id string, metadata map[string]interface{}) {
	if s.audit == nil {
		return
	}
	// failures are already counted and logged by the audit logger
	_, _ = s.audit.Log(ctx, audit.Event{
		ActionType: action,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		TargetID:   id,
		TargetType: audit.TargetScheme,
		Metadata:   metadata,
	})
}

func wrap(op string, err error) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.NewStorageError(op, err)
}
