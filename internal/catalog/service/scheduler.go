package service

import (
	"context"
	"log/slog"
	"time"

	"complyhub/internal/audit"
	"complyhub/internal/catalog/models"
	id "complyhub/pkg/domain"
	"complyhub/pkg/requestcontext"
)

// TaskRaiser opens a follow-up task asking assignee to test a control.
type TaskRaiser interface {
	RaiseTestTask(ctx context.Context, control *models.Control, assignee id.ActorID) error
}

// LogTaskRaiser records due tests in the log. It stands in until a task system is wired.
type LogTaskRaiser struct {
	Logger *slog.Logger
}

func (r LogTaskRaiser) RaiseTestTask(ctx context.Context, control *models.Control, assignee id.ActorID) error {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "control due for testing",
		"control_id", control.ID,
		"assignee", assignee,
		"next_test_date", control.NextTestDate,
	)
	return nil
}

// TestScheduler periodically finds controls whose next test is due and raises a
// task for each one.
type TestScheduler struct {
	service     *Service
	raiser      TaskRaiser
	systemActor id.ActorID
	now         func() time.Time
}

type SchedulerOption func(*TestScheduler)

// WithSystemActor sets who receives tasks for controls without an owner.
func WithSystemActor(actor id.ActorID) SchedulerOption {
	return func(t *TestScheduler) {
		t.systemActor = actor
	}
}

func WithClock(now func() time.Time) SchedulerOption {
	return func(t *TestScheduler) {
		t.now = now
	}
}

func NewTestScheduler(svc *Service, raiser TaskRaiser, opts ...SchedulerOption) *TestScheduler {
	t := &TestScheduler{
		service: svc,
		raiser:  raiser,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run checks for due controls every interval until ctx is cancelled.
func (t *TestScheduler) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := t.CheckDueControls(ctx); err != nil {
				t.service.logger.ErrorContext(ctx, "due control check failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// CheckDueControls raises one task per due control and returns how many were raised.
// A failing raise is logged and does not stop the pass.
func (t *TestScheduler) CheckDueControls(ctx context.Context) (int, error) {
	now := t.now()
	ctx = requestcontext.WithTime(ctx, now)
	today := now.UTC().Truncate(24 * time.Hour).Add(24*time.Hour - time.Nanosecond)
	due, err := t.service.DueForTesting(ctx, today)
	if err != nil {
		return 0, err
	}
	if t.service.metrics != nil {
		t.service.metrics.SetDueControls(len(due))
	}

	raised := 0
	for _, c := range due {
		assignee := c.OwnerID
		if assignee.IsNil() {
			assignee = t.systemActor
		}
		if err := t.raiser.RaiseTestTask(ctx, c, assignee); err != nil {
			t.service.logger.WarnContext(ctx, "failed to raise test task", "control_id", c.ID, "error", err)
			continue
		}
		raised++
		event := newEvent(ctx, audit.ActionControlTestDue, t.systemActor, "control", c.ID.String())
		event.To = assignee.String()
		if err := t.service.emit(ctx, event); err != nil {
			t.service.logger.WarnContext(ctx, "failed to audit due control", "control_id", c.ID, "error", err)
		}
	}
	t.service.logger.InfoContext(ctx, "due control check complete", "due", len(due), "raised", raised)
	return raised, nil
}
