// Package schedulersvc runs the periodic jobs of the app.
package schedulersvc

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/asistencia/core"
)

type (
	TokenPurger interface {
		PurgeExpiredTokens(ctx context.Context) (int, error)
	}

	PurgeObserver interface {
		ObserveTokensPurged(n int)
	}

	Scheduler struct {
		cron    *cron.Cron
		logger  core.Logger
		timeout time.Duration
	}
)

func New(logger core.Logger, timeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		logger:  logger,
		timeout: timeout,
	}
}

// AddTokenPurge schedules the purge of the expired recovery tokens. observer may be nil.
func (s *Scheduler) AddTokenPurge(schedule string, purger TokenPurger, observer PurgeObserver) error {
	_, err := s.cron.AddFunc(schedule, func() { s.purgeTokens(purger, observer) })
	return errors.Wrapf(err, "scheduling token purge %q", schedule)
}

func (s *Scheduler) purgeTokens(purger TokenPurger, observer PurgeObserver) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := purger.PurgeExpiredTokens(ctx)
	if err != nil {
		s.logger.Error("purging recovery tokens", err)
		return
	}
	if observer != nil {
		observer.ObserveTokensPurged(n)
	}
	if n > 0 {
		s.logger.Info(fmt.Sprintf("purged %d expired recovery tokens", n))
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for the running jobs, until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "stopping scheduler")
	}
}
