package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	applog "rateio/internal/log"
)

// Job is a scheduled unit of work. Its context is cancelled when the
// scheduler stops.
type Job func(ctx context.Context) error

// Scheduler runs jobs on cron schedules. Runs of one job never overlap and a
// panicking job does not take the scheduler down.
type Scheduler struct {
	cron    *cron.Cron
	logger  *applog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

func NewScheduler(logger *applog.Logger, timeout time.Duration) *Scheduler {
	if logger == nil {
		logger = applog.Default()
	}
	logger = logger.WithComponent(applog.ComponentScheduler)
	cl := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		timeout: timeout,
	}
}

// Add registers job under name. schedule uses the standard five-field syntax or
// descriptors such as "@every 30m".
func (s *Scheduler) Add(name, schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, schedule, err)
	}
	s.logger.Info("Job scheduled", "job", name, "schedule", schedule)
	return nil
}

func (s *Scheduler) run(name string, job Job) {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	if err := job(ctx); err != nil {
		s.logger.LogError(ctx, "Scheduled job failed", err, name, "job", name)
		return
	}
	s.logger.DebugContext(ctx, "Scheduled job finished", "job", name, applog.FieldDuration, time.Since(start).Milliseconds())
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop cancels running jobs and waits for them or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts the application logger to cron.Logger.
type cronLogger struct {
	logger *applog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, applog.FieldError, err)...)
}
