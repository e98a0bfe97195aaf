package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"welfare-workers/internal/models"
)

func TestTransitionTable(t *testing.T) {
	statuses := []models.ApplicationStatus{
		models.StatusPending, models.StatusUnderReview, models.StatusApproved, models.StatusRejected,
	}
	legal := map[[2]models.ApplicationStatus]bool{
		{models.StatusPending, models.StatusUnderReview}:  true,
		{models.StatusUnderReview, models.StatusApproved}: true,
		{models.StatusUnderReview, models.StatusRejected}: true,
	}
	for _, from := range statuses {
		for _, to := range statuses {
			assert.Equal(t, legal[[2]models.ApplicationStatus{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}

	assert.True(t, IsTerminal(models.StatusApproved))
	assert.True(t, IsTerminal(models.StatusRejected))
	assert.False(t, IsTerminal(models.StatusPending))
	assert.False(t, IsTerminal("archived"))
	assert.False(t, ValidStatus("archived"))
	assert.Empty(t, Allowed(models.StatusApproved))
}
