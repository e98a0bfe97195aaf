package memory

import (
	"context"
	"strings"
	"sync"

	apperrors "welfare-workers/internal/common/errors"
	"welfare-workers/internal/models"
)

type SchemeStore struct {
	mu      sync.RWMutex
	order   []string
	schemes map[string]*models.Scheme
}

func NewSchemeStore() *SchemeStore {
	return &SchemeStore{schemes: make(map[string]*models.Scheme)}
}

func cloneScheme(s *models.Scheme) *models.Scheme {
	cp := *s
	cp.Documents = append([]string(nil), s.Documents...)
	return &cp
}

func (s *SchemeStore) nameTakenLocked(name, exceptID string) bool {
	for id, existing := range s.schemes {
		if id != exceptID && strings.EqualFold(existing.Name, name) {
			return true
		}
	}
	return false
}

func (s *SchemeStore) Insert(_ context.Context, scheme *models.Scheme) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.schemes[scheme.ID]; exists || s.nameTakenLocked(scheme.Name, "") {
		return apperrors.NewDuplicateSchemeError(scheme.Name)
	}
	s.schemes[scheme.ID] = cloneScheme(scheme)
	s.order = append(s.order, scheme.ID)
	return nil
}

func (s *SchemeStore) Update(_ context.Context, scheme *models.Scheme) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.schemes[scheme.ID]; !ok {
		return apperrors.NewNotFoundError("scheme", scheme.ID)
	}
	if s.nameTakenLocked(scheme.Name, scheme.ID) {
		return apperrors.NewDuplicateSchemeError(scheme.Name)
	}
	s.schemes[scheme.ID] = cloneScheme(scheme)
	return nil
}

func (s *SchemeStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.schemes[id]; !ok {
		return apperrors.NewNotFoundError("scheme", id)
	}
	delete(s.schemes, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *SchemeStore) Get(_ context.Context, id string) (*models.Scheme, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scheme, ok := s.schemes[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("scheme", id)
	}
	return cloneScheme(scheme), nil
}

// List returns schemes in insertion order.
func (s *SchemeStore) List(_ context.Context) ([]*models.Scheme, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Scheme, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, cloneScheme(s.schemes[id]))
	}
	return out, nil
}
