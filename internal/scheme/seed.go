package scheme

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	apperrors "welfare-workers/internal/common/errors"
	"welfare-workers/internal/models"
)

// LoadSeedFile reads a JSON array of schemes.
func LoadSeedFile(path string) ([]models.Scheme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scheme seed file: %w", err)
	}
	var schemes []models.Scheme
	if err := json.Unmarshal(data, &schemes); err != nil {
		return nil, fmt.Errorf("parse scheme seed file: %w", err)
	}
	return schemes, nil
}

// Seed adds every draft whose name is not yet in the catalogue and returns
// how many were added.
func (s *Service) Seed(ctx context.Context, actor models.Actor, drafts []models.Scheme) (int, error) {
	added := 0
	for _, d := range drafts {
		_, err := s.Add(ctx, actor, d)
		if apperrors.IsCode(err, apperrors.ErrCodeDuplicateScheme) {
			continue
		}
		if err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}
