package lifecycle

import (
	"context"
	"math"

	"welfare-workers/internal/models"
)

// Stats summarizes applications for the admin dashboard.
type Stats struct {
	Total        int `json:"total"`
	Pending      int `json:"pending"`
	UnderReview  int `json:"under_review"`
	Approved     int `json:"approved"`
	Rejected     int `json:"rejected"`
	ApprovalRate int `json:"approvalRate"`
}

func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	apps, err := m.List(ctx, models.ApplicationFilter{})
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(apps), nil
}

// ComputeStats counts by status; ApprovalRate is approved/total as a
// rounded percentage, 0 when there are no applications.
func ComputeStats(apps []*models.Application) Stats {
	var s Stats
	for _, a := range apps {
		s.Total++
		switch a.Status {
		case models.StatusPending:
			s.Pending++
		case models.StatusUnderReview:
			s.UnderReview++
		case models.StatusApproved:
			s.Approved++
		case models.StatusRejected:
			s.Rejected++
		}
	}
	if s.Total > 0 {
		s.ApprovalRate = int(math.Round(float64(s.Approved) / float64(s.Total) * 100))
	}
	return s
}
