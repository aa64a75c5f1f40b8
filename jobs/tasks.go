package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLowStockAlert notifies about a product at or under its threshold.
	TaskLowStockAlert = "stock:low_alert"
	// TaskDailySummary produces the end-of-day sales recap.
	TaskDailySummary = "sales:daily_summary"
	// TaskIdempotencyCleanup prunes processed request keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// LowStockPayload identifies the product that crossed its threshold. Stock is
// the value observed when the triggering sale committed.
type LowStockPayload struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
	MinStock  int    `json:"min_stock"`
}

// NewLowStockTask constructs an Asynq task for a low stock alert.
func NewLowStockTask(payload LowStockPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockAlert, data, asynq.Queue(QueueDefault)), nil
}

// DailySummaryPayload carries the day being summarised.
type DailySummaryPayload struct {
	Day time.Time `json:"day"`
}

// NewDailySummaryTask constructs an Asynq task for the daily recap. A zero
// day means "yesterday at handling time".
func NewDailySummaryTask(day time.Time) (*asynq.Task, error) {
	data, err := json.Marshal(DailySummaryPayload{Day: day})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDailySummary, data, asynq.Queue(QueueDefault)), nil
}

// IdempotencyCleanupPayload carries the retention window.
type IdempotencyCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewIdempotencyCleanupTask constructs an Asynq task for key pruning.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data, asynq.Queue(QueueDefault)), nil
}
