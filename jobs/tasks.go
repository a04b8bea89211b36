// Package jobs hosts the asynq worker, client and background task handlers.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/ledgerline/ledgerline/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskIdempotencyPurge removes expired idempotency records.
	TaskIdempotencyPurge = "idempotency:purge"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// NewIdempotencyPurgeTask creates the purge task. The task carries no payload.
func NewIdempotencyPurgeTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyPurge, nil, asynq.Queue(QueueDefault))
}

// PurgeStore deletes expired idempotency records.
type PurgeStore interface {
	Purge(ctx context.Context) (int64, error)
}

// IdempotencyPurgeJob runs the purge on a schedule.
type IdempotencyPurgeJob struct {
	Store   PurgeStore
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewIdempotencyPurgeJob constructs the job handler.
func NewIdempotencyPurgeJob(store PurgeStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyPurgeJob {
	return &IdempotencyPurgeJob{Store: store, Logger: logger, Metrics: metrics}
}

// Handle executes the purge.
func (j *IdempotencyPurgeJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("idempotency purge: store not configured")
	}

	tracker := j.metrics().Track(TaskIdempotencyPurge)
	start := time.Now()
	deleted, err := j.Store.Purge(ctx)
	if err != nil {
		j.log().Error("purge idempotency records", slog.Any("error", err))
		return tracker.End(err)
	}
	j.log().Info("purged idempotency records",
		slog.Int64("deleted", deleted), slog.Duration("duration", time.Since(start)))
	return tracker.End(nil)
}

func (j *IdempotencyPurgeJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *IdempotencyPurgeJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskIdempotencyPurge))
	}
	return slog.Default().With(slog.String("job", TaskIdempotencyPurge))
}
