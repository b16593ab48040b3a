package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ivanoskov/sg_finance_bot/internal/logger"
)

// Reminder is the daily routine triggered by the scheduler.
type Reminder interface {
	RemindAll(ctx context.Context) error
}

// Scheduler fires the reminder once per matching wall-clock time in its
// location. Runs never overlap; a run still going when the next one is due
// makes the next one skip.
type Scheduler struct {
	cron     *cron.Cron
	schedule cron.Schedule
	reminder Reminder

	ctx    context.Context
	cancel context.CancelFunc
}

func New(spec string, loc *time.Location, reminder Reminder) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", spec, err)
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:     c,
		schedule: schedule,
		reminder: reminder,
		ctx:      ctx,
		cancel:   cancel,
	}
	if _, err := c.AddFunc(spec, s.run); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to schedule reminders: %w", err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	logger.Get().Info("Starting reminder scheduler", zap.Time("next_run", s.Next(time.Now())))
	s.cron.Start()
}

// Stop prevents further runs, cancels a run in progress and waits for it.
func (s *Scheduler) Stop() {
	logger.Get().Info("Stopping reminder scheduler")
	done := s.cron.Stop()
	s.cancel()
	<-done.Done()
}

// Next reports the first run after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.cron.Location()))
}

func (s *Scheduler) run() {
	start := time.Now()
	logger.Get().Info("Running daily reminders")
	if err := s.reminder.RemindAll(s.ctx); err != nil {
		logger.Get().Error("daily reminders finished with errors", zap.Error(err))
		return
	}
	logger.Get().Info("daily reminders finished", zap.Duration("took", time.Since(start)))
}
