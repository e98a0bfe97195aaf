package eligibility

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Recommendations is the response shape of the eligibility entry point.
type Recommendations struct {
	Count           int      `json:"count"`
	Recommendations []Result `json:"recommendations"`
}

// Rank evaluates every scheme and orders the results by descending score.
// Schemes with equal scores keep their input order.
func Rank(profile Profile, schemes []Scheme) []Result {
	results := make([]Result, len(schemes))
	for i, s := range schemes {
		results[i] = Evaluate(profile, s)
	}
	sortByScore(results)
	return results
}

// Recommend wraps Rank in the {count, recommendations} envelope.
func Recommend(profile Profile, schemes []Scheme) Recommendations {
	return NewRecommendations(Rank(profile, schemes))
}

// RankParallel is Rank with evaluations fanned out over at most workers
// goroutines. The output is identical to Rank's.
func RankParallel(ctx context.Context, profile Profile, schemes []Scheme, workers int) ([]Result, error) {
	results := make([]Result, len(schemes))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i := range schemes {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = Evaluate(profile, schemes[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortByScore(results)
	return results, nil
}

// NewRecommendations builds the envelope from already ranked results.
func NewRecommendations(results []Result) Recommendations {
	if results == nil {
		results = []Result{}
	}
	return Recommendations{Count: len(results), Recommendations: results}
}

func sortByScore(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}
