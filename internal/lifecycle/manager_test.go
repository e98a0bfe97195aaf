package lifecycle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"welfare-workers/internal/audit"
	apperrors "welfare-workers/internal/common/errors"
	"welfare-workers/internal/common/logger"
	"welfare-workers/internal/models"
	"welfare-workers/internal/notification"
	"welfare-workers/internal/store/memory"
)

// ==========================
// Fixtures
// ==========================

var (
	reviewer = models.Actor{ID: "admin-1", Role: "REVIEW_ADMIN"}
	citizen  = models.Actor{ID: "u1", Role: "USER"}
)

type harness struct {
	manager       *Manager
	repo          *memory.ApplicationRepository
	auditStore    *memory.AuditStore
	notifications *notification.Dispatcher
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	log := logger.NewTestLogger(t)
	repo := memory.NewApplicationRepository()
	auditStore := memory.NewAuditStore()
	dispatcher := notification.NewDispatcher(memory.NewNotificationStore(), log, time.Minute)
	m := NewManager(repo, audit.NewLogger(auditStore, log, time.Second), dispatcher, log,
		Config{SideEffectTimeout: time.Second, MaxCASRetries: 3}, opts...)
	return &harness{manager: m, repo: repo, auditStore: auditStore, notifications: dispatcher}
}

func createTestRequest() CreateRequest {
	return CreateRequest{
		UserID:     "u1",
		SchemeID:   "s1",
		SchemeName: "PM Kisan",
		FormData:   map[string]interface{}{"landAcres": 2},
	}
}

func (h *harness) underReview(t *testing.T) *models.Application {
	t.Helper()
	ctx := context.Background()
	app, err := h.manager.Create(ctx, createTestRequest())
	require.NoError(t, err)
	app, err = h.manager.MoveToReview(ctx, app.ID, reviewer)
	require.NoError(t, err)
	return app
}

// ==========================
// Create
// ==========================

func TestCreate_Defaults(t *testing.T) {
	h := newHarness(t)
	app, err := h.manager.Create(context.Background(), CreateRequest{UserID: "u1", SchemeID: "s1", SchemeName: "PM Kisan"})
	require.NoError(t, err)

	assert.NotEmpty(t, app.ID)
	assert.Equal(t, models.StatusPending, app.Status)
	assert.Equal(t, "general", app.Category)
	assert.NotNil(t, app.FormData)
	assert.Equal(t, int64(1), app.Version)
	require.Len(t, app.StatusHistory, 1)
	assert.Equal(t, models.StatusPending, app.StatusHistory[0].Status)
	assert.Equal(t, models.SystemActor, app.StatusHistory[0].UpdatedBy)
}

func TestCreate_Validation(t *testing.T) {
	h := newHarness(t)
	_, err := h.manager.Create(context.Background(), CreateRequest{UserID: " ", SchemeID: "s1"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
}

func TestCreate_DuplicateActive(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	first, err := h.manager.Create(ctx, createTestRequest())
	require.NoError(t, err)

	_, err = h.manager.Create(ctx, createTestRequest())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDuplicateApplication))

	// a rejected application frees the slot
	_, err = h.manager.MoveToReview(ctx, first.ID, reviewer)
	require.NoError(t, err)
	_, err = h.manager.UpdateStatus(ctx, first.ID, models.StatusRejected, "income above limit", reviewer)
	require.NoError(t, err)

	_, err = h.manager.Create(ctx, createTestRequest())
	assert.NoError(t, err)
}

// ==========================
// Transitions
// ==========================

func TestMoveToReview(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	app, err := h.manager.Create(ctx, createTestRequest())
	require.NoError(t, err)

	got, err := h.manager.MoveToReview(ctx, app.ID, reviewer)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, got.Status)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, "Picked up for review", got.Remarks)
	require.Len(t, got.StatusHistory, 2)
	assert.Equal(t, "admin-1", got.StatusHistory[1].UpdatedBy)

	notes, err := h.notifications.ForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Application Under Review", notes[0].Title)
	assert.Equal(t, "Your application for PM Kisan is now being reviewed.", notes[0].Description)
	assert.Equal(t, models.NotificationSystem, notes[0].Type)

	entries, err := h.auditStore.Query(ctx, models.AuditFilter{TargetID: app.ID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, string(audit.ApplicationReviewed), entries[0].ActionType)
	assert.Equal(t, "PM Kisan", entries[0].Metadata["schemeName"])
}

func TestUpdateStatus_Approve(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	app := h.underReview(t)

	got, err := h.manager.UpdateStatus(ctx, app.ID, models.StatusApproved, "documents verified", reviewer)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
	assert.Equal(t, "documents verified", got.Remarks)
	require.Len(t, got.StatusHistory, 3)

	notes, _ := h.notifications.ForUser(ctx, "u1")
	require.Len(t, notes, 2)
	assert.Equal(t, "Application Approved!", notes[0].Title)
	assert.Equal(t, "Your application for PM Kisan has been approved. Remarks: documents verified", notes[0].Description)
	assert.Equal(t, models.NotificationApproval, notes[0].Type)
}

func TestUpdateStatus_ApproveWithoutRemarksKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	app := h.underReview(t)

	got, err := h.manager.UpdateStatus(ctx, app.ID, models.StatusApproved, "", reviewer)
	require.NoError(t, err)
	assert.Equal(t, "Picked up for review", got.Remarks)
	assert.Equal(t, "", got.StatusHistory[2].Remark)

	notes, _ := h.notifications.ForUser(ctx, "u1")
	assert.Equal(t, "Your application for PM Kisan has been approved.", notes[0].Description)
}

func TestUpdateStatus_RejectRequiresRemarks(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	app := h.underReview(t)

	for _, remark := range []string{"", "   "} {
		_, err := h.manager.UpdateStatus(ctx, app.ID, models.StatusRejected, remark, reviewer)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeRemarksRequired))
	}

	stored, err := h.manager.Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, stored.Status)
	assert.Len(t, stored.StatusHistory, 2)
}

func TestUpdateStatus_Reject(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	app := h.underReview(t)

	got, err := h.manager.UpdateStatus(ctx, app.ID, models.StatusRejected, "income above limit", reviewer)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.Status)

	notes, _ := h.notifications.ForUser(ctx, "u1")
	assert.Equal(t, "Application Update", notes[0].Title)
	assert.Equal(t, "Your application for PM Kisan was not approved. Reason: income above limit", notes[0].Description)
	assert.Equal(t, models.NotificationRejection, notes[0].Type)
}

func TestUpdateStatus_InvalidTransitions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		prepare func(t *testing.T, h *harness) string
		status  models.ApplicationStatus
		current string
		allowed []string
	}{
		{
			name: "pending cannot be approved",
			prepare: func(t *testing.T, h *harness) string {
				app, err := h.manager.Create(ctx, createTestRequest())
				require.NoError(t, err)
				return app.ID
			},
			status:  models.StatusApproved,
			current: "pending",
			allowed: []string{"under_review"},
		},
		{
			name: "approved is terminal",
			prepare: func(t *testing.T, h *harness) string {
				app := h.underReview(t)
				_, err := h.manager.UpdateStatus(ctx, app.ID, models.StatusApproved, "ok", reviewer)
				require.NoError(t, err)
				return app.ID
			},
			status:  models.StatusRejected,
			current: "approved",
			allowed: []string{},
		},
		{
			name: "under review cannot go back to pending",
			prepare: func(t *testing.T, h *harness) string {
				return h.underReview(t).ID
			},
			status:  models.StatusPending,
			current: "under_review",
			allowed: []string{"approved", "rejected"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			id := tt.prepare(t, h)
			before, err := h.manager.Get(ctx, id)
			require.NoError(t, err)

			_, err = h.manager.UpdateStatus(ctx, id, tt.status, "remark", reviewer)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidTransition))
			current, allowed, ok := apperrors.TransitionDetails(err)
			require.True(t, ok)
			assert.Equal(t, tt.current, current)
			assert.ElementsMatch(t, tt.allowed, allowed)

			after, err := h.manager.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestUpdateStatus_UnknownStatusAndMissing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.manager.UpdateStatus(ctx, "whatever", "archived", "", reviewer)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))

	_, err = h.manager.UpdateStatus(ctx, "missing", models.StatusApproved, "", reviewer)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))

	_, err = h.manager.MoveToReview(ctx, "missing", reviewer)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}

func TestPermissions(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	app, err := h.manager.Create(ctx, createTestRequest())
	require.NoError(t, err)

	_, err = h.manager.MoveToReview(ctx, app.ID, citizen)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodePermissionDenied))

	_, err = h.manager.MoveToReview(ctx, app.ID, models.Actor{ID: "c1", Role: "CONTENT_ADMIN"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodePermissionDenied))

	_, err = h.manager.MoveToReview(ctx, app.ID, models.Actor{ID: "root", Role: "SUPER_ADMIN"})
	require.NoError(t, err)

	_, err = h.manager.UpdateStatus(ctx, app.ID, models.StatusApproved, "", citizen)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodePermissionDenied))
}

func TestHistoryIsSound(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	app := h.underReview(t)
	final, err := h.manager.UpdateStatus(ctx, app.ID, models.StatusApproved, "ok", reviewer)
	require.NoError(t, err)

	hist := final.StatusHistory
	assert.Equal(t, models.StatusPending, hist[0].Status)
	for i := 1; i < len(hist); i++ {
		assert.True(t, CanTransition(hist[i-1].Status, hist[i].Status))
		assert.False(t, hist[i].Date.Before(hist[i-1].Date))
	}
	assert.Equal(t, final.Status, hist[len(hist)-1].Status)
}

// ==========================
// Concurrency
// ==========================

func TestConcurrentDecisions_ExactlyOneWins(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	app := h.underReview(t)

	var (
		wg        sync.WaitGroup
		successes int32
		conflicts int32
	)
	for i := 0; i < 10; i++ {
		status := models.StatusApproved
		if i%2 == 1 {
			status = models.StatusRejected
		}
		wg.Add(1)
		go func(s models.ApplicationStatus) {
			defer wg.Done()
			_, err := h.manager.UpdateStatus(ctx, app.ID, s, "decided", reviewer)
			switch {
			case err == nil:
				atomic.AddInt32(&successes, 1)
			case apperrors.IsCode(err, apperrors.ErrCodeInvalidTransition):
				atomic.AddInt32(&conflicts, 1)
			}
		}(status)
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes)
	assert.Equal(t, int32(9), conflicts)

	stored, err := h.manager.Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Len(t, stored.StatusHistory, 3)
}

// racingRepo lets another writer slip in before the first CAS.
type racingRepo struct {
	*memory.ApplicationRepository
	raced int32
}

func (r *racingRepo) CompareAndSwap(ctx context.Context, app *models.Application, expected int64) (bool, error) {
	if atomic.CompareAndSwapInt32(&r.raced, 0, 1) {
		other, err := r.ApplicationRepository.Get(ctx, app.ID)
		if err != nil {
			return false, err
		}
		other.Version++
		other.FormData["touched"] = true
		if _, err := r.ApplicationRepository.CompareAndSwap(ctx, other, expected); err != nil {
			return false, err
		}
	}
	return r.ApplicationRepository.CompareAndSwap(ctx, app, expected)
}

func TestTransition_RetriesOnVersionConflict(t *testing.T) {
	ctx := context.Background()
	repo := &racingRepo{ApplicationRepository: memory.NewApplicationRepository()}
	log := logger.NewTestLogger(t)
	m := NewManager(repo, nil, nil, log, Config{MaxCASRetries: 2})

	app, err := m.Create(ctx, createTestRequest())
	require.NoError(t, err)

	got, err := m.MoveToReview(ctx, app.ID, reviewer)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Version)
	assert.Equal(t, true, got.FormData["touched"])
}

type alwaysConflict struct {
	*memory.ApplicationRepository
}

func (alwaysConflict) CompareAndSwap(context.Context, *models.Application, int64) (bool, error) {
	return false, nil
}

func TestTransition_GivesUpAfterRetries(t *testing.T) {
	ctx := context.Background()
	repo := alwaysConflict{memory.NewApplicationRepository()}
	m := NewManager(repo, nil, nil, logger.NewTestLogger(t), Config{MaxCASRetries: 1})

	app, err := m.Create(ctx, createTestRequest())
	require.NoError(t, err)

	_, err = m.MoveToReview(ctx, app.ID, reviewer)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeStorage))
}

// ==========================
// Side effects
// ==========================

type failingNotifier struct{ calls int32 }

func (f *failingNotifier) SendToUser(context.Context, string, string, string, models.NotificationType) (*models.Notification, error) {
	atomic.AddInt32(&f.calls, 1)
	return nil, errors.New("smtp down")
}

type failingAudit struct{}

func (failingAudit) Log(context.Context, audit.Event) (*models.AuditLogEntry, error) {
	return nil, apperrors.NewStorageError("append audit entry", errors.New("disk full"))
}

type recordingPublisher struct {
	mu   sync.Mutex
	seen []models.ApplicationStatus
}

func (p *recordingPublisher) PublishStatusChange(_ context.Context, app *models.Application) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, app.Status)
	return nil
}

func TestSideEffectFailuresDoNotFailTransition(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewApplicationRepository()
	notifier := &failingNotifier{}
	pub := &recordingPublisher{}
	m := NewManager(repo, failingAudit{}, notifier, logger.NewTestLogger(t), Config{}, WithPublisher(pub))

	app, err := m.Create(ctx, createTestRequest())
	require.NoError(t, err)
	got, err := m.MoveToReview(ctx, app.ID, reviewer)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, got.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&notifier.calls))
	assert.Equal(t, []models.ApplicationStatus{models.StatusUnderReview}, pub.seen)

	stored, err := repo.Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, stored.Status)
}

// ==========================
// Stats
// ==========================

func TestComputeStats(t *testing.T) {
	assert.Equal(t, Stats{}, ComputeStats(nil))

	apps := []*models.Application{
		{Status: models.StatusApproved},
		{Status: models.StatusApproved},
		{Status: models.StatusRejected},
		{Status: models.StatusPending},
		{Status: models.StatusPending},
		{Status: models.StatusUnderReview},
	}
	assert.Equal(t, Stats{Total: 6, Pending: 2, UnderReview: 1, Approved: 2, Rejected: 1, ApprovalRate: 33}, ComputeStats(apps))
}

func TestManagerStats(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	app := h.underReview(t)
	_, err := h.manager.UpdateStatus(ctx, app.ID, models.StatusApproved, "", reviewer)
	require.NoError(t, err)

	s, err := h.manager.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Total)
	assert.Equal(t, 100, s.ApprovalRate)
}

func TestListByUserAndFilter(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	reviewed := h.underReview(t)

	other := createTestRequest()
	other.SchemeID = "s2"
	_, err := h.manager.Create(ctx, other)
	require.NoError(t, err)

	stranger := createTestRequest()
	stranger.UserID = "u2"
	_, err = h.manager.Create(ctx, stranger)
	require.NoError(t, err)

	mine, err := h.manager.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	inReview, err := h.manager.List(ctx, models.ApplicationFilter{Status: models.StatusUnderReview})
	require.NoError(t, err)
	require.Len(t, inReview, 1)
	assert.Equal(t, reviewed.ID, inReview[0].ID)
}
