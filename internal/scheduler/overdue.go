package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const defaultScanTimeout = 5 * time.Minute

// OverdueChecker reports approved reservations whose due date has passed
type OverdueChecker interface {
	CheckOverdue(ctx context.Context, now time.Time) (int, error)
}

// OverdueScanner runs the overdue check on a cron schedule
type OverdueScanner struct {
	checker OverdueChecker
	logger  *slog.Logger
	cron    *cron.Cron
	timeout time.Duration
	now     func() time.Time
}

// NewOverdueScanner parses the standard five-field schedule, e.g. "0 0 * * *"
func NewOverdueScanner(checker OverdueChecker, schedule string, logger *slog.Logger) (*OverdueScanner, error) {
	s := &OverdueScanner{
		checker: checker,
		logger:  logger,
		timeout: defaultScanTimeout,
		now:     func() time.Time { return time.Now().UTC() },
	}

	s.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid overdue schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *OverdueScanner) Start() {
	s.logger.Info("Starting overdue scanner", "entries", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop halts scheduling. The returned context is done once a running scan finishes.
func (s *OverdueScanner) Stop() context.Context {
	s.logger.Info("Stopping overdue scanner")
	return s.cron.Stop()
}

// RunOnce performs one scan immediately
func (s *OverdueScanner) RunOnce(ctx context.Context) (int, error) {
	started := time.Now()
	n, err := s.checker.CheckOverdue(ctx, s.now())
	if err != nil {
		s.logger.Error("Overdue scan failed", "error", err)
		return 0, err
	}
	s.logger.Info("Overdue scan completed", "overdue", n, "duration", time.Since(started))
	return n, nil
}

func (s *OverdueScanner) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	_, _ = s.RunOnce(ctx)
}
