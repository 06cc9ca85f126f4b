package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/opencase/benefits-portal-api/internal/dto"
)

const sweepTimeout = 10 * time.Minute

// DailyAt builds a cron spec firing once a day at the given hour. Hours
// outside [0, 23] wrap into range so a bad settings row cannot break
// scheduler startup.
func DailyAt(hour int) string {
	hour = ((hour % 24) + 24) % 24
	return fmt.Sprintf("0 %d * * *", hour)
}

// Sweep is one schedulable batch unit with a (today, dryRun) contract. A
// zero today means the sweep resolves the current civil date itself.
type Sweep func(ctx context.Context, today time.Time, dryRun bool) (*dto.SweepResult, error)

type sweepObserver interface {
	ObserveSweep(sweep string, result *dto.SweepResult, duration time.Duration)
}

type entry struct {
	name string
	spec string
	run  Sweep
}

// Scheduler runs the portal's periodic sweeps on cron schedules. Cron fires
// by wall clock; due-ness itself is decided on civil dates inside each sweep,
// so a delayed or repeated firing never changes which cases are eligible.
type Scheduler struct {
	cron    *cron.Cron
	entries []entry
	metrics sweepObserver
	logger  *zap.Logger
}

// New constructs an empty scheduler. The metrics observer may be nil.
func New(metrics sweepObserver, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{cron: cron.New(), metrics: metrics, logger: logger}
}

// Register adds a sweep under a cron spec. An empty spec disables the sweep.
func (s *Scheduler) Register(name, spec string, sweep Sweep) {
	if spec == "" {
		s.logger.Info("sweep disabled, no schedule", zap.String("sweep", name))
		return
	}
	s.entries = append(s.entries, entry{name: name, spec: spec, run: sweep})
}

// Start schedules all registered sweeps and begins firing them.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, e := range s.entries {
		e := e
		if _, err := s.cron.AddFunc(e.spec, func() { s.execute(ctx, e) }); err != nil {
			return err
		}
		s.logger.Info("sweep scheduled",
			zap.String("sweep", e.name), zap.String("spec", e.spec))
	}
	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits for in-flight sweeps to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) execute(ctx context.Context, e entry) {
	runCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	start := time.Now()
	result, err := e.run(runCtx, time.Time{}, false)
	duration := time.Since(start)
	if err != nil {
		s.logger.Error("sweep failed",
			zap.String("sweep", e.name), zap.Duration("duration", duration), zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveSweep(e.name, result, duration)
	}
	s.logger.Info("sweep completed",
		zap.String("sweep", e.name),
		zap.Duration("duration", duration),
		zap.Int("processed", result.Processed),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))
}
