// internal/workers/eligibility/rank-schemes/handler_test.go
package rankschemes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"welfare-workers/internal/audit"
	apperrors "welfare-workers/internal/common/errors"
	"welfare-workers/internal/common/logger"
	"welfare-workers/internal/eligibility"
	"welfare-workers/internal/models"
	"welfare-workers/internal/scheme"
	"welfare-workers/internal/store/memory"
)

// ==========================
// Test Helper Functions
// ==========================

func newCatalogue(t *testing.T, drafts ...models.Scheme) *scheme.Service {
	t.Helper()
	log := logger.NewTestLogger(t)
	svc := scheme.NewService(memory.NewSchemeStore(), audit.NewLogger(memory.NewAuditStore(), log, time.Second), log)
	admin := models.Actor{ID: "c1", Role: "CONTENT_ADMIN"}
	for _, d := range drafts {
		_, err := svc.Add(context.Background(), admin, d)
		require.NoError(t, err)
	}
	return svc
}

type failingRecommender struct{ err error }

func (f failingRecommender) Recommend(context.Context, eligibility.Profile, int) (eligibility.Recommendations, error) {
	return eligibility.Recommendations{}, f.err
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_RanksActiveSchemes(t *testing.T) {
	catalogue := newCatalogue(t,
		models.Scheme{Name: "Senior Pension", Rules: &eligibility.RuleSet{MinAge: eligibility.Int(60)}},
		models.Scheme{Name: "Kisan Support", Rules: &eligibility.RuleSet{
			OccupationRequired: []string{"Farmer"},
			MaxIncome:          eligibility.Float(250000),
		}},
		models.Scheme{Name: "Retired Scheme", Status: models.SchemeInactive},
	)
	handler := NewHandler(&Config{Timeout: time.Second, Workers: 2}, catalogue, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{Profile: eligibility.Profile{
		Age:        eligibility.Float(40),
		Income:     eligibility.Float(90000),
		Occupation: eligibility.String("Farmer"),
	}})

	require.NoError(t, err)
	require.Equal(t, 2, output.Count)
	assert.Equal(t, "Kisan Support", output.Recommendations[0].SchemeName)
	assert.Equal(t, eligibility.FullyEligible, output.Recommendations[0].Status)
	assert.Equal(t, "Senior Pension", output.Recommendations[1].SchemeName)
	assert.Equal(t, eligibility.NotEligible, output.Recommendations[1].Status)
}

func TestHandler_Execute_EmptyCatalogue(t *testing.T) {
	handler := NewHandler(LoadConfig(), newCatalogue(t), logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{})

	require.NoError(t, err)
	assert.Equal(t, 0, output.Count)
	assert.NotNil(t, output.Recommendations)
}

func TestHandler_Execute_RecommenderError(t *testing.T) {
	storageErr := apperrors.NewStorageError("scheme list", errors.New("timeout"))
	handler := NewHandler(LoadConfig(), failingRecommender{err: storageErr}, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{})

	assert.Nil(t, output)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeStorage))
}
