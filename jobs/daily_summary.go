package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	jobmetrics "github.com/meridian-pos/meridian-pos/internal/jobs"
	"github.com/meridian-pos/meridian-pos/internal/reports"
	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// SalesReporter aggregates sales over a range.
type SalesReporter interface {
	SalesReport(ctx context.Context, rng reports.Range) (reports.SalesMetrics, error)
}

// DailySummaryJob produces the end-of-day recap the shift supervisor reads.
type DailySummaryJob struct {
	Reporter SalesReporter
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
	printer  *message.Printer
}

// NewDailySummaryJob initialises the daily summary handler.
func NewDailySummaryJob(reporter SalesReporter, logger *slog.Logger, metrics *jobmetrics.Metrics) *DailySummaryJob {
	return &DailySummaryJob{
		Reporter: reporter,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
		printer: message.NewPrinter(language.Spanish),
	}
}

// Handle executes the daily summary.
func (j *DailySummaryJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("daily summary: handler not configured")
	}
	var payload DailySummaryPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	day := payload.Day
	if day.IsZero() {
		day = j.clock().AddDate(0, 0, -1)
	}
	day = shared.DayOf(day.UTC())

	tracker := j.Metrics.Track(TaskDailySummary)
	metrics, err := j.Reporter.SalesReport(ctx, reports.Range{
		From: day,
		To:   day.Add(24 * time.Hour),
	})
	if err != nil {
		j.Logger.Error("daily summary failed", slog.Any("error", err))
		return tracker.End(err)
	}

	j.Logger.Info("daily sales summary",
		slog.String("day", day.Format("2006-01-02")),
		slog.String("revenue", j.printer.Sprintf("%.2f", metrics.Revenue)),
		slog.Int("sales", metrics.SaleCount),
		slog.Int("cancelled", metrics.Cancelled),
		slog.Int("items_sold", metrics.ItemsSold),
		slog.String("average_sale", j.printer.Sprintf("%.2f", metrics.AverageSale)),
	)
	return tracker.End(nil)
}
