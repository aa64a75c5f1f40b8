package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/meridian-pos/meridian-pos/internal/jobs"
)

// LowStockJob surfaces replenishment alerts. Today that means a structured
// log entry the ops dashboard tails; the payload already carries everything a
// future notifier transport needs.
type LowStockJob struct {
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLowStockJob initialises the low stock handler.
func NewLowStockJob(logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockJob {
	return &LowStockJob{Logger: logger, Metrics: metrics}
}

// Handle processes TaskLowStockAlert tasks.
func (j *LowStockJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("low stock: handler not configured")
	}
	var payload LowStockPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskLowStockAlert)
	j.Logger.Warn("product below stock threshold",
		slog.String("product_id", payload.ProductID),
		slog.String("name", payload.Name),
		slog.Int("stock", payload.Stock),
		slog.Int("min_stock", payload.MinStock),
	)
	j.Metrics.AddLowStockAlert()
	return tracker.End(nil)
}
