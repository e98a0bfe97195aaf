package scheme

import (
	"context"

	apperrors "welfare-workers/internal/common/errors"
	"welfare-workers/internal/common/metrics"
	"welfare-workers/internal/eligibility"
)

// Recommend ranks every active scheme for profile, best first. workers
// bounds evaluation concurrency; zero means unbounded.
func (s *Service) Recommend(ctx context.Context, profile eligibility.Profile, workers int) (eligibility.Recommendations, error) {
	active, err := s.ListActive(ctx)
	if err != nil {
		return eligibility.Recommendations{}, err
	}

	inputs := make([]eligibility.Scheme, len(active))
	for i, sc := range active {
		inputs[i] = sc.EligibilityInput()
	}

	results, err := eligibility.RankParallel(ctx, profile, inputs, workers)
	if err != nil {
		return eligibility.Recommendations{}, apperrors.NewInternalError(err)
	}
	for _, r := range results {
		metrics.EligibilityEvaluations.WithLabelValues(string(r.Status)).Inc()
	}
	return eligibility.NewRecommendations(results), nil
}

// Evaluate checks profile against a single scheme.
func (s *Service) Evaluate(ctx context.Context, schemeID string, profile eligibility.Profile) (eligibility.Result, error) {
	sc, err := s.Get(ctx, schemeID)
	if err != nil {
		return eligibility.Result{}, err
	}
	r := eligibility.Evaluate(profile, sc.EligibilityInput())
	metrics.EligibilityEvaluations.WithLabelValues(string(r.Status)).Inc()
	return r, nil
}
