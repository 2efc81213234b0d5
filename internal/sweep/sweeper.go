package sweep

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/seat-reservations/internal/observability"
)

// Expirer runs one expiration pass and reports which holds it expired.
type Expirer interface {
	ExpireDue(ctx context.Context) ([]uuid.UUID, error)
}

// EventPublisher is notified of each expired hold, best-effort.
type EventPublisher interface {
	PublishExpired(ctx context.Context, reservationID uuid.UUID) error
}

// Sweeper is the background loop that expires stale holds. One pass per
// interval; a bad pass is logged and the loop keeps going. Stop
// interrupts the sleep between passes, never a pass itself.
type Sweeper struct {
	expirer  Expirer
	events   EventPublisher
	interval time.Duration
	logger   observability.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewSweeper(expirer Expirer, events EventPublisher, interval time.Duration, logger observability.Logger) *Sweeper {
	return &Sweeper{
		expirer:  expirer,
		events:   events,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (s *Sweeper) Run(ctx context.Context) {
	s.logger.WithField("interval", s.interval.String()).Info("expiration sweep started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.doneCh)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiration sweep stopped: context cancelled")
			return
		case <-s.stopCh:
			s.logger.Info("expiration sweep stopped")
			return
		case <-ticker.C:
			s.pass(ctx)
		}
	}
}

// Stop interrupts the sweep loop and waits for it to exit.
func (s *Sweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

func (s *Sweeper) pass(ctx context.Context) {
	start := time.Now()
	observability.SweepPasses.Inc()

	expired, err := s.expirer.ExpireDue(ctx)
	if err != nil {
		s.logger.WithError(err).Error("expiration pass failed")
	}

	for _, id := range expired {
		if s.events == nil {
			continue
		}
		if err := s.events.PublishExpired(ctx, id); err != nil {
			s.logger.WithField("reservation_id", id).WithError(err).Warn("failed to publish expiration event")
		}
	}

	observability.SweepDuration.Observe(time.Since(start).Seconds())

	if len(expired) > 0 {
		s.logger.WithField("count", len(expired)).Info("expired stale holds")
	} else {
		s.logger.Debug("no expired holds")
	}
}
