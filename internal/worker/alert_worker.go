package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// warnThreshold is the budget percentage at which the worker starts
// flagging a category before it actually runs over.
const warnThreshold = 80

// AlertWorker listens for entry change events and re-evaluates the
// affected budget. It only reads; alerting is a log concern for now.
// TODO: push alerts to a notification channel once one exists.
type AlertWorker struct {
	storage      *storage.SQLiteRepository
	amqpClient   *amqp.Client
	eventTimeout time.Duration
}

// NewAlertWorker builds a worker whose per-event processing is bounded
// by eventTimeout. A zero timeout means events inherit the run context
// unchanged.
func NewAlertWorker(storage *storage.SQLiteRepository, amqpClient *amqp.Client, eventTimeout time.Duration) *AlertWorker {
	return &AlertWorker{
		storage:      storage,
		amqpClient:   amqpClient,
		eventTimeout: eventTimeout,
	}
}

// Run consumes entry events until the context is cancelled.
func (w *AlertWorker) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "Budget alert worker started")
	return w.amqpClient.ConsumeEntryEvents(ctx, func(msg *amqp.EntryEventMessage) error {
		return w.HandleEvent(ctx, msg)
	})
}

// HandleEvent recomputes the budget position for the (owner, category,
// period) the event touches. No budget for that tuple is the common
// case and not an error.
func (w *AlertWorker) HandleEvent(ctx context.Context, msg *amqp.EntryEventMessage) error {
	if w.eventTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.eventTimeout)
		defer cancel()
	}

	period, err := core.NewPeriod(int(msg.OccurredOn.Month()), msg.OccurredOn.Year())
	if err != nil {
		// Malformed event; requeueing would loop forever.
		slog.WarnContext(ctx, "Dropping event with invalid period",
			"entry_id", msg.EntryID, "occurred_on", msg.OccurredOn, "error", err)
		return nil
	}

	budget, err := w.storage.FindBudgetByPeriod(ctx, msg.OwnerID, msg.CategoryID, period.Month, period.Year)
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find budget: %w", err)
	}

	spent, err := w.storage.SumEntries(ctx, storage.EntryFilter{
		OwnerID:    msg.OwnerID,
		CategoryID: msg.CategoryID,
		Kind:       core.Expense,
		From:       period.Start(),
		To:         period.End(),
	})
	if err != nil {
		return fmt.Errorf("sum spending: %w", err)
	}

	status := core.NewBudgetStatus(budget, spent)
	switch {
	case status.IsOverBudget:
		slog.WarnContext(ctx, "Budget exceeded",
			"owner_id", msg.OwnerID,
			"category_id", msg.CategoryID,
			"month", period.Month,
			"year", period.Year,
			"budget", status.BudgetAmount.String(),
			"spent", status.SpentAmount.String(),
			"percentage", status.Percentage)
	case status.Percentage >= warnThreshold:
		slog.InfoContext(ctx, "Budget nearly exhausted",
			"owner_id", msg.OwnerID,
			"category_id", msg.CategoryID,
			"month", period.Month,
			"year", period.Year,
			"spent", status.SpentAmount.String(),
			"percentage", status.Percentage)
	}
	return nil
}
