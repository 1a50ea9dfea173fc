package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the usage report on a cron schedule.
type Scheduler struct {
	cron       *cron.Cron
	ctx        context.Context
	cancel     context.CancelFunc
	spec       string
	logger     *slog.Logger
	reportFunc func(ctx context.Context) error
}

// New creates a scheduler for a standard five-field cron spec evaluated in UTC.
func New(spec string, logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		ctx:    ctx,
		cancel: cancel,
		spec:   spec,
		logger: logger,
	}
}

func (s *Scheduler) SetReportFunction(f func(ctx context.Context) error) {
	s.reportFunc = f
}

func (s *Scheduler) Start() error {
	if s.reportFunc == nil {
		return errors.New("report function not set")
	}
	if _, err := s.cron.AddFunc(s.spec, s.run); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("usage report scheduler started", slog.String("schedule", s.spec))
	return nil
}

func (s *Scheduler) run() {
	s.logger.Info("usage report triggered")
	if err := s.reportFunc(s.ctx); err != nil {
		s.logger.Error("usage report failed", slog.String("error", err.Error()))
	}
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info("usage report scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
