// internal/workers/application/move-to-review/handler_test.go
package movetoreview

import (
	"context"
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

type env struct {
	manager       *lifecycle.Manager
	auditStore    *memory.AuditStore
	notifications *notification.Dispatcher
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := logger.NewTestLogger(t)
	auditStore := memory.NewAuditStore()
	notes := notification.NewDispatcher(memory.NewNotificationStore(), log, time.Minute)
	m := lifecycle.NewManager(memory.NewApplicationRepository(),
		audit.NewLogger(auditStore, log, time.Second), notes, log, lifecycle.Config{})
	return &env{manager: m, auditStore: auditStore, notifications: notes}
}

func (e *env) submit(t *testing.T) *models.Application {
	t.Helper()
	app, err := e.manager.Create(context.Background(), lifecycle.CreateRequest{
		UserID:     "citizen-001",
		SchemeID:   "scheme-001",
		SchemeName: "PM Kisan",
	})
	require.NoError(t, err)
	return app
}

var reviewAdmin = models.Actor{ID: "admin-7", Role: "REVIEW_ADMIN"}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	e := newEnv(t)
	app := e.submit(t)
	handler := NewHandler(LoadConfig(), e.manager, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{ApplicationID: app.ID, Actor: reviewAdmin})

	require.NoError(t, err)
	assert.Equal(t, app.ID, output.ApplicationID)
	assert.Equal(t, "under_review", output.Status)

	notes, err := e.notifications.ForUser(context.Background(), "citizen-001")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Application Under Review", notes[0].Title)

	entries, err := e.auditStore.Query(context.Background(), models.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "APPLICATION_REVIEWED", entries[0].ActionType)
	assert.Equal(t, "admin-7", entries[0].PerformedBy)
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name     string
		actor    models.Actor
		twice    bool
		appID    string
		wantCode apperrors.ErrorCode
	}{
		{name: "citizen cannot review", actor: models.Actor{ID: "citizen-001", Role: "USER"}, wantCode: apperrors.ErrCodePermissionDenied},
		{name: "content admin cannot review", actor: models.Actor{ID: "c1", Role: "CONTENT_ADMIN"}, wantCode: apperrors.ErrCodePermissionDenied},
		{name: "already under review", actor: reviewAdmin, twice: true, wantCode: apperrors.ErrCodeInvalidTransition},
		{name: "unknown application", actor: reviewAdmin, appID: "missing", wantCode: apperrors.ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			app := e.submit(t)
			handler := NewHandler(LoadConfig(), e.manager, logger.NewTestLogger(t))

			id := app.ID
			if tt.appID != "" {
				id = tt.appID
			}
			if tt.twice {
				_, err := handler.Execute(context.Background(), &Input{ApplicationID: id, Actor: tt.actor})
				require.NoError(t, err)
			}

			output, err := handler.Execute(context.Background(), &Input{ApplicationID: id, Actor: tt.actor})

			assert.Nil(t, output)
			assert.Equal(t, tt.wantCode, apperrors.CodeOf(err))
		})
	}
}
