// internal/workers/application/create-application/handler_test.go
package createapplication

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
	"welfare-workers/internal/lifecycle"
	"welfare-workers/internal/models"
	"welfare-workers/internal/notification"
	"welfare-workers/internal/store/memory"
)

// ==========================
// Test Helper Functions
// ==========================

func newManager(t *testing.T) (*lifecycle.Manager, *memory.ApplicationRepository) {
	t.Helper()
	log := logger.NewTestLogger(t)
	repo := memory.NewApplicationRepository()
	m := lifecycle.NewManager(repo,
		audit.NewLogger(memory.NewAuditStore(), log, time.Second),
		notification.NewDispatcher(memory.NewNotificationStore(), log, time.Minute),
		log, lifecycle.Config{})
	return m, repo
}

func createTestInput() *Input {
	return &Input{
		UserID:     "citizen-001",
		SchemeID:   "scheme-001",
		SchemeName: "PM Kisan",
		Category:   "agriculture",
		FormData: map[string]interface{}{
			"landAcres": 2.5,
			"district":  "Nashik",
		},
	}
}

type failingCreator struct{ err error }

func (f failingCreator) Create(context.Context, lifecycle.CreateRequest) (*models.Application, error) {
	return nil, f.err
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	m, repo := newManager(t)
	handler := NewHandler(LoadConfig(), m, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), createTestInput())

	require.NoError(t, err)
	assert.NotEmpty(t, output.ApplicationID)
	assert.Equal(t, "pending", output.Status)
	_, err = time.Parse(time.RFC3339, output.AppliedDate)
	assert.NoError(t, err)

	stored, err := repo.Get(context.Background(), output.ApplicationID)
	require.NoError(t, err)
	assert.Equal(t, "agriculture", stored.Category)
	assert.Equal(t, "Nashik", stored.FormData["district"])
	require.Len(t, stored.StatusHistory, 1)
	assert.Equal(t, models.SystemActor, stored.StatusHistory[0].UpdatedBy)
}

func TestHandler_Execute_DuplicateApplication(t *testing.T) {
	m, _ := newManager(t)
	handler := NewHandler(LoadConfig(), m, logger.NewTestLogger(t))

	_, err := handler.Execute(context.Background(), createTestInput())
	require.NoError(t, err)

	output, err := handler.Execute(context.Background(), createTestInput())

	assert.Nil(t, output)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDuplicateApplication))
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name     string
		creator  Creator
		input    *Input
		wantCode apperrors.ErrorCode
	}{
		{
			name:     "missing user",
			input:    &Input{SchemeID: "scheme-001"},
			wantCode: apperrors.ErrCodeValidation,
		},
		{
			name:     "missing scheme",
			input:    &Input{UserID: "citizen-001"},
			wantCode: apperrors.ErrCodeValidation,
		},
		{
			name:     "storage failure",
			creator:  failingCreator{err: apperrors.NewStorageError("insert application", errors.New("disk full"))},
			input:    createTestInput(),
			wantCode: apperrors.ErrCodeStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creator := tt.creator
			if creator == nil {
				creator, _ = newManager(t)
			}
			handler := NewHandler(LoadConfig(), creator, logger.NewTestLogger(t))

			output, err := handler.Execute(context.Background(), tt.input)

			assert.Nil(t, output)
			assert.Equal(t, tt.wantCode, apperrors.CodeOf(err))
		})
	}
}
