package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"compraser-api/internal/application/ports"
)

const sweepTimeout = time.Minute

// Scheduler runs the expiry sweep on a cron schedule; a sweep still running skips the next tick.
type Scheduler struct {
	logger  *zap.Logger
	sweeper ports.SweepService
	cron    *cron.Cron
	now     func() time.Time
}

func New(logger *zap.Logger, sweeper ports.SweepService, spec string) (*Scheduler, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	cronLog := cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))

	s := &Scheduler{
		logger:  logger,
		sweeper: sweeper,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		now: time.Now,
	}

	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return nil, fmt.Errorf("sweep schedule %q: %w", spec, err)
	}

	return s, nil
}

// Run blocks until ctx is done, then waits for an in-flight sweep.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("starting sweep scheduler")
	s.cron.Start()

	<-ctx.Done()

	<-s.cron.Stop().Done()
	s.logger.Info("sweep scheduler gracefully stopped")
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	res, err := s.sweeper.Sweep(ctx, s.now())
	if err != nil {
		s.logger.Error("scheduled sweep error", zap.Error(err))
		return
	}
	s.logger.Info("scheduled sweep done", zap.Int64("deleted_count", res.DeletedCount))
}
