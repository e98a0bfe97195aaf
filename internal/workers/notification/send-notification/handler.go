// internal/workers/notification/send-notification/handler.go
package sendnotification

import (
	"context"
	"strings"

	"welfare-workers/internal/audit"
	"welfare-workers/internal/common/camunda"
	apperrors "welfare-workers/internal/common/errors"
	"welfare-workers/internal/common/logger"
	"welfare-workers/internal/common/metrics"
	"welfare-workers/internal/models"
	"welfare-workers/internal/rbac"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "send-notification"
)

type Notifier interface {
	SendToUser(ctx context.Context, userID, title, message string, typ models.NotificationType) (*models.Notification, error)
	BroadcastToAll(ctx context.Context, title, message string, typ models.NotificationType) (*models.Notification, error)
}

type AuditLogger interface {
	Log(ctx context.Context, ev audit.Event) (*models.AuditLogEntry, error)
}

type Handler struct {
	config   *Config
	notifier Notifier
	audit    AuditLogger
	errors   *apperrors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(config *Config, notifier Notifier, auditLog AuditLogger, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		notifier: notifier,
		audit:    auditLog,
		errors:   apperrors.NewErrorHandler(log),
		logger:   log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := camunda.DecodeVariables(TaskType, job.Variables, &input); err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	if err := camunda.CompleteJob(ctx, client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey":    job.Key,
		"target":    output.Target,
		"duplicate": output.Duplicate,
	})
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	typ := models.NotificationType(input.Type)
	if input.Broadcast {
		return h.broadcast(ctx, input, typ)
	}

	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, apperrors.NewValidationError("userId is required unless broadcast is set")
	}

	n, err := h.notifier.SendToUser(ctx, userID, input.Title, input.Message, typ)
	if apperrors.IsCode(err, apperrors.ErrCodeDuplicateNotification) {
		// Zeebe redelivers jobs; a repeat inside the window is a success.
		return &Output{Target: userID, Duplicate: true}, nil
	}
	if err != nil {
		return nil, err
	}
	return &Output{NotificationID: n.ID, Target: n.Target}, nil
}

func (h *Handler) broadcast(ctx context.Context, input *Input, typ models.NotificationType) (*Output, error) {
	if err := rbac.Require(rbac.Role(input.Actor.Role), rbac.SendNotifications); err != nil {
		return nil, err
	}

	n, err := h.notifier.BroadcastToAll(ctx, input.Title, input.Message, typ)
	if err != nil {
		return nil, err
	}

	if h.audit != nil {
		if _, err := h.audit.Log(ctx, audit.Event{
			ActionType: audit.NotificationBroadcast,
			ActorID:    input.Actor.ID,
			ActorRole:  input.Actor.Role,
			TargetID:   n.ID,
			TargetType: audit.TargetNotification,
			Metadata:   map[string]interface{}{"title": n.Title, "type": n.Type},
		}); err != nil {
			h.logger.Warn("broadcast audit failed", map[string]interface{}{
				"notificationId": n.ID,
				"error":          err.Error(),
			})
		}
	}
	return &Output{NotificationID: n.ID, Target: n.Target}, nil
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.CodeOf(err))).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
