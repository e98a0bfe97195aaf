package memory

import (
	"context"
	"sort"
	"sync"

	"welfare-workers/internal/models"
)

type AuditStore struct {
	mu      sync.RWMutex
	entries []*models.AuditLogEntry
}

func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) Append(_ context.Context, entry *models.AuditLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *entry
	s.entries = append(s.entries, &cp)
	return nil
}

// Query returns matching entries newest first.
func (s *AuditStore) Query(_ context.Context, filter models.AuditFilter) ([]*models.AuditLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.AuditLogEntry
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if !filter.Matches(e) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *AuditStore) DistinctActionTypes(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]bool{}
	var out []string
	for _, e := range s.entries {
		if !seen[e.ActionType] {
			seen[e.ActionType] = true
			out = append(out, e.ActionType)
		}
	}
	sort.Strings(out)
	return out, nil
}
