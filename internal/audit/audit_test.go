package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "welfare-workers/internal/common/errors"
	"welfare-workers/internal/common/logger"
	"welfare-workers/internal/models"
	"welfare-workers/internal/store/memory"
)

type failingStore struct {
	*memory.AuditStore
	err error
}

func (f *failingStore) Append(ctx context.Context, _ *models.AuditLogEntry) error {
	return f.err
}

type slowStore struct {
	*memory.AuditStore
}

func (s *slowStore) Append(ctx context.Context, _ *models.AuditLogEntry) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestLogger_Log(t *testing.T) {
	store := memory.NewAuditStore()
	l := NewLogger(store, logger.NewTestLogger(t), time.Second)
	fixed := time.Date(2026, 5, 1, 9, 30, 0, 0, time.FixedZone("IST", 19800))
	l.now = func() time.Time { return fixed }

	entry, err := l.Log(context.Background(), Event{
		ActionType: ApplicationApproved,
		ActorID:    "admin-7",
		ActorRole:  "REVIEW_ADMIN",
		TargetID:   "app-1",
		TargetType: TargetApplication,
		Metadata:   map[string]interface{}{"remark": "documents verified"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, fixed.UTC(), entry.Timestamp)

	got, err := l.Query(context.Background(), models.AuditFilter{TargetID: "app-1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "APPLICATION_APPROVED", got[0].ActionType)
	assert.Equal(t, "admin-7", got[0].PerformedBy)
	assert.Equal(t, "documents verified", got[0].Metadata["remark"])
}

func TestLogger_DefaultsActorToSystem(t *testing.T) {
	l := NewLogger(memory.NewAuditStore(), logger.NewNoOpLogger(), 0)

	entry, err := l.Log(context.Background(), Event{ActionType: MaintenanceToggled, TargetType: TargetSystem})
	require.NoError(t, err)
	assert.Equal(t, "system", entry.PerformedBy)
	assert.Equal(t, "SYSTEM", entry.PerformedByRole)
	assert.NotNil(t, entry.Metadata)
}

func TestLogger_RejectsUnknownAction(t *testing.T) {
	l := NewLogger(memory.NewAuditStore(), logger.NewNoOpLogger(), 0)

	_, err := l.Log(context.Background(), Event{ActionType: "SCHEME_RENAMED"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
}

func TestLogger_StorageFailure(t *testing.T) {
	l := NewLogger(&failingStore{AuditStore: memory.NewAuditStore(), err: errors.New("disk full")}, logger.NewTestLogger(t), 0)

	_, err := l.Log(context.Background(), Event{ActionType: SchemeDeleted, TargetID: "s1"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeStorage))
	assert.ErrorContains(t, err, "disk full")
}

func TestLogger_Timeout(t *testing.T) {
	l := NewLogger(&slowStore{AuditStore: memory.NewAuditStore()}, logger.NewNoOpLogger(), 20*time.Millisecond)

	start := time.Now()
	_, err := l.Log(context.Background(), Event{ActionType: SchemeToggled})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestLogger_ActionTypes(t *testing.T) {
	l := NewLogger(memory.NewAuditStore(), logger.NewNoOpLogger(), 0)
	ctx := context.Background()

	for _, a := range []ActionType{SchemeCreated, NotificationBroadcast, SchemeCreated} {
		_, err := l.Log(ctx, Event{ActionType: a})
		require.NoError(t, err)
	}

	types, err := l.ActionTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"NOTIFICATION_BROADCAST", "SCHEME_CREATED"}, types)
}

func TestActionTypes_StableStrings(t *testing.T) {
	all := AllActionTypes()
	require.Len(t, all, 13)
	assert.Equal(t, SchemeCreated, all[0])
	assert.Equal(t, MaintenanceToggled, all[12])
	for _, a := range all {
		assert.True(t, a.Valid())
	}
}
