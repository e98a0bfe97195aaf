// Package memory holds in-process repositories for local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	apperrors "welfare-workers/internal/common/errors"
	"welfare-workers/internal/models"
)

type ApplicationRepository struct {
	mu   sync.RWMutex
	apps map[string]*models.Application
}

func NewApplicationRepository() *ApplicationRepository {
	return &ApplicationRepository{apps: make(map[string]*models.Application)}
}

func (r *ApplicationRepository) Get(_ context.Context, id string) (*models.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	app, ok := r.apps[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("application", id)
	}
	return app.Clone(), nil
}

// Put inserts a new application. The duplicate check and the insert happen
// under one lock.
func (r *ApplicationRepository) Put(_ context.Context, app *models.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.apps[app.ID]; exists {
		return apperrors.NewDuplicateApplicationError(app.UserID, app.SchemeID)
	}
	if r.activeLocked(app.UserID, app.SchemeID) != nil {
		return apperrors.NewDuplicateApplicationError(app.UserID, app.SchemeID)
	}
	r.apps[app.ID] = app.Clone()
	return nil
}

// CompareAndSwap replaces the stored record when its version still equals
// expectedVersion. It reports false on a version mismatch.
func (r *ApplicationRepository) CompareAndSwap(_ context.Context, app *models.Application, expectedVersion int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.apps[app.ID]
	if !ok {
		return false, apperrors.NewNotFoundError("application", app.ID)
	}
	if current.Version != expectedVersion {
		return false, nil
	}
	r.apps[app.ID] = app.Clone()
	return true, nil
}

func (r *ApplicationRepository) FindActive(_ context.Context, userID, schemeID string) (*models.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeLocked(userID, schemeID).Clone(), nil
}

func (r *ApplicationRepository) activeLocked(userID, schemeID string) *models.Application {
	for _, app := range r.apps {
		if app.UserID == userID && app.SchemeID == schemeID && app.Status != models.StatusRejected {
			return app
		}
	}
	return nil
}

// List returns matching applications, most recently applied first.
func (r *ApplicationRepository) List(_ context.Context, filter models.ApplicationFilter) ([]*models.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Application, 0, len(r.apps))
	for _, app := range r.apps {
		if filter.Matches(app) {
			out = append(out, app.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DateApplied.Equal(out[j].DateApplied) {
			return out[i].ID < out[j].ID
		}
		return out[i].DateApplied.After(out[j].DateApplied)
	})
	return out, nil
}
