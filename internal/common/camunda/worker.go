// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"strconv"
	"time"

	"welfare-workers/internal/common/logger"
	"welfare-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.opentelemetry.io/otel/trace"
)

// JobHandler is implemented by every task-type handler.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// Observer receives a span and an outcome for every job. It is satisfied by
// *observability.Observability.
type Observer interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, trace.Span)
	RecordJobProcessed(ctx context.Context, taskType, status string)
	RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string)
}

// WorkerOptions tunes the job poller for one task type.
type WorkerOptions struct {
	MaxJobsActive int
	Timeout       time.Duration
	Observer      Observer
}

type CamundaWorker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

// NewWorker opens a job worker for taskType and instruments every job with
// the active gauge and duration histogram.
func NewWorker(client zbc.Client, taskType string, opts WorkerOptions, handler JobHandler, log logger.Logger) *CamundaWorker {
	log = log.WithFields(map[string]interface{}{"taskType": taskType})

	step := client.NewJobWorker().
		JobType(taskType).
		Handler(instrument(taskType, opts.Observer, handler)).
		MaxJobsActive(opts.MaxJobsActive).
		Name(taskType)
	if opts.Timeout > 0 {
		step = step.Timeout(opts.Timeout)
	}

	w := &CamundaWorker{worker: step.Open(), logger: log, taskType: taskType}
	log.Info("worker started", map[string]interface{}{"maxJobsActive": opts.MaxJobsActive})
	return w
}

func instrument(taskType string, obs Observer, handler JobHandler) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()

		rec := &outcomeClient{JobClient: client, status: "abandoned"}
		var span trace.Span
		ctx := context.Background()
		if obs != nil {
			ctx, span = obs.StartSpan(ctx, taskType, map[string]string{
				"jobKey":             strconv.FormatInt(job.Key, 10),
				"processInstanceKey": strconv.FormatInt(job.ProcessInstanceKey, 10),
			})
		}
		defer func() {
			elapsed := time.Since(start)
			metrics.WorkerJobsActive.WithLabelValues(taskType).Dec()
			metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
			if obs != nil {
				obs.RecordJobProcessed(ctx, taskType, rec.status)
				obs.RecordJobDuration(ctx, taskType, elapsed, rec.status)
				span.End()
			}
		}()
		handler.Handle(rec, job)
	}
}

// outcomeClient remembers which terminal command the handler issued.
type outcomeClient struct {
	worker.JobClient
	status string
}

func (c *outcomeClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	c.status = "completed"
	return c.JobClient.NewCompleteJobCommand()
}

func (c *outcomeClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	c.status = "failed"
	return c.JobClient.NewFailJobCommand()
}

func (c *outcomeClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	c.status = "bpmn_error"
	return c.JobClient.NewThrowErrorCommand()
}

func (w *CamundaWorker) TaskType() string {
	return w.taskType
}

// Stop closes the poller and waits for in-flight jobs.
func (w *CamundaWorker) Stop() {
	w.logger.Info("stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}
