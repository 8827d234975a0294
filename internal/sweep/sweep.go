// Package sweep runs the periodic maintenance passes: expiring timed-out
// conversations and exchanges, and relaunching dormant reliable contacts.
package sweep

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Lifecycle is the part of the orchestrator the sweeper drives.
type Lifecycle interface {
	SweepExpired(now time.Time)
	Relaunch(now time.Time)
}

// Sweeper ticks the expiry and relaunch passes on their own cadences.
type Sweeper struct {
	target           Lifecycle
	logger           *zap.Logger
	sweepInterval    time.Duration
	relaunchInterval time.Duration
	cancel           context.CancelFunc
}

// New creates a sweeper.
func New(target Lifecycle, logger *zap.Logger, sweepInterval, relaunchInterval time.Duration) *Sweeper {
	return &Sweeper{
		target:           target,
		logger:           logger,
		sweepInterval:    sweepInterval,
		relaunchInterval: relaunchInterval,
	}
}

// Start begins the periodic passes. One expiry sweep runs immediately so a
// restart settles overdue work without waiting a full interval.
func (s *Sweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)
}

// Stop stops the sweeper.
func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Sweeper) loop(ctx context.Context) {
	sweepTicker := time.NewTicker(s.sweepInterval)
	defer sweepTicker.Stop()
	relaunchTicker := time.NewTicker(s.relaunchInterval)
	defer relaunchTicker.Stop()

	s.target.SweepExpired(time.Now())

	for {
		select {
		case t := <-sweepTicker.C:
			s.logger.Debug("running expiry sweep")
			s.target.SweepExpired(t)
		case t := <-relaunchTicker.C:
			s.logger.Debug("running relaunch pass")
			s.target.Relaunch(t)
		case <-ctx.Done():
			return
		}
	}
}
