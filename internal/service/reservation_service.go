package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/seat-reservations/internal/clock"
	"github.com/robertarktes/seat-reservations/internal/domain"
	"github.com/robertarktes/seat-reservations/internal/observability"
)

// ReservationService drives the hold lifecycle: creation, confirmation,
// cancellation and the expiration pass. It holds no state of its own
// beyond its collaborators, so calls may run concurrently across
// independent reservations. Seat state pushes to the inventory service
// are not transactional with the store; the consistency gap they can
// open is closed by the sweep.
type ReservationService struct {
	store     ReservationStore
	inventory SeatInventory
	audit     AuditSink
	clock     clock.Clock
	holdTTL   time.Duration
	logger    observability.Logger
}

func NewReservationService(store ReservationStore, inventory SeatInventory, audit AuditSink, clk clock.Clock, holdTTL time.Duration, logger observability.Logger) *ReservationService {
	return &ReservationService{
		store:     store,
		inventory: inventory,
		audit:     audit,
		clock:     clk,
		holdTTL:   holdTTL,
		logger:    logger,
	}
}

type CreateHoldInput struct {
	EventID  uuid.UUID
	ZoneID   uuid.UUID
	UserID   uuid.UUID
	Quantity int
}

// HoldResult is one per-seat row of a created hold; every row of one
// call shares the reservation ID and expiry.
type HoldResult struct {
	ReservationID uuid.UUID
	SeatID        uuid.UUID
	ExpiresAt     time.Time
}

// CreateHold reserves Quantity seats in the given zone as one
// reservation. Validation and availability failures happen before any
// side effect. Once the reservation is persisted, a failing seat push
// returns an ErrDependency-marked error without rollback: the hold is
// durable and the diverged seats are reconciled by the sweep.
func (s *ReservationService) CreateHold(ctx context.Context, in CreateHoldInput) ([]HoldResult, error) {
	if in.Quantity <= 0 {
		return nil, errors.Wrap(domain.ErrInvalidInput, "quantity must be positive")
	}

	seats, err := s.inventory.GetAvailableSeats(ctx, in.EventID, in.ZoneID, in.Quantity)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "query available seats"), domain.ErrDependency)
	}
	if len(seats) < in.Quantity {
		return nil, &domain.InsufficientSeatsError{Requested: in.Quantity, Available: len(seats)}
	}

	r, err := domain.NewHold(in.EventID, in.ZoneID, in.UserID, seats, s.holdTTL, s.clock.Now())
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, r); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "persist reservation"), domain.ErrDependency)
	}
	if err := s.audit.Append(ctx, r.ID, "INFO", "reservation.hold", fmt.Sprintf("hold created for user %s, %d seats, total %.2f", r.UserID, len(r.Seats), r.TotalPrice)); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "audit hold creation"), domain.ErrDependency)
	}

	for _, seat := range r.Seats {
		if err := s.inventory.SetSeatState(ctx, r.EventID, r.ZoneID, seat.SeatID, SeatStateHold); err != nil {
			observability.SeatStatePushFailures.Inc()
			return nil, errors.Mark(errors.Wrapf(err, "mark seat %s held", seat.SeatID), domain.ErrDependency)
		}
	}

	observability.HoldsCreated.Inc()

	results := make([]HoldResult, 0, len(r.Seats))
	for _, seat := range r.Seats {
		results = append(results, HoldResult{
			ReservationID: r.ID,
			SeatID:        seat.SeatID,
			ExpiresAt:     *r.ExpiresAt,
		})
	}
	return results, nil
}

// Confirm marks a held reservation as paid and moves its seats to
// occupied upstream. The entity transition is checked before any write;
// a conflict leaves both the store and the inventory untouched.
func (s *ReservationService) Confirm(ctx context.Context, id uuid.UUID) error {
	r, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := r.Confirm(s.clock.Now()); err != nil {
		return err
	}

	for _, seat := range r.Seats {
		if err := s.inventory.SetSeatState(ctx, r.EventID, r.ZoneID, seat.SeatID, SeatStateOccupied); err != nil {
			observability.SeatStatePushFailures.Inc()
			return errors.Mark(errors.Wrapf(err, "mark seat %s occupied", seat.SeatID), domain.ErrDependency)
		}
	}

	if err := s.store.Update(ctx, r); err != nil {
		return errors.Mark(errors.Wrap(err, "persist confirmation"), domain.ErrDependency)
	}
	if err := s.audit.Append(ctx, r.ID, "INFO", "reservation.confirm", "reservation confirmed"); err != nil {
		return errors.Mark(errors.Wrap(err, "audit confirmation"), domain.ErrDependency)
	}

	observability.ReservationsConfirmed.Inc()
	return nil
}

// Cancel releases a held reservation. Seat releases are best-effort:
// one unreachable seat must never leave a reservation stuck
// un-cancellable, so per-seat failures are logged and the Released
// state is persisted regardless.
func (s *ReservationService) Cancel(ctx context.Context, id uuid.UUID) error {
	r, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := r.Cancel(); err != nil {
		return err
	}

	for _, seat := range r.Seats {
		if err := s.inventory.SetSeatState(ctx, r.EventID, r.ZoneID, seat.SeatID, SeatStateAvailable); err != nil {
			observability.SeatStatePushFailures.Inc()
			s.logger.WithField("reservation_id", r.ID).WithField("seat_id", seat.SeatID).WithError(err).Error("failed to release seat on cancellation")
		}
	}

	if err := s.store.Update(ctx, r); err != nil {
		return errors.Mark(errors.Wrap(err, "persist cancellation"), domain.ErrDependency)
	}
	if err := s.audit.Append(ctx, r.ID, "INFO", "reservation.cancel", "reservation released by user"); err != nil {
		return errors.Mark(errors.Wrap(err, "audit cancellation"), domain.ErrDependency)
	}

	observability.ReservationsReleased.Inc()
	return nil
}

// ExpireDue runs one expiration pass: every hold past its window is
// expired, persisted and its seats released. A failure on one
// reservation never stops the pass; only a cancelled context does.
// It returns the IDs of reservations that actually changed state.
func (s *ReservationService) ExpireDue(ctx context.Context) ([]uuid.UUID, error) {
	now := s.clock.Now()

	due, err := s.store.FindExpiredHolds(ctx, now)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "find expired holds"), domain.ErrDependency)
	}

	var expired []uuid.UUID
	for _, r := range due {
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}

		// A concurrent Confirm or Cancel may have won the race since the
		// query; Expire treats that as benign.
		if !r.Expire() {
			continue
		}

		if err := s.store.Update(ctx, r); err != nil {
			s.logger.WithField("reservation_id", r.ID).WithError(err).Error("failed to persist expiration")
			continue
		}
		if err := s.audit.Append(ctx, r.ID, "INFO", "reservation.expire", "hold expired by sweep"); err != nil {
			s.logger.WithField("reservation_id", r.ID).WithError(err).Error("failed to audit expiration")
		}

		for _, seat := range r.Seats {
			if err := s.inventory.SetSeatState(ctx, r.EventID, r.ZoneID, seat.SeatID, SeatStateAvailable); err != nil {
				observability.SeatStatePushFailures.Inc()
				s.logger.WithField("reservation_id", r.ID).WithField("seat_id", seat.SeatID).WithError(err).Error("failed to release seat on expiration")
			}
		}

		observability.ReservationsExpired.Inc()
		expired = append(expired, r.ID)
	}

	return expired, nil
}

func (s *ReservationService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	return s.store.GetByID(ctx, id)
}

func (s *ReservationService) GetByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Reservation, error) {
	return s.store.FindByUser(ctx, userID)
}

func (s *ReservationService) ListAll(ctx context.Context) ([]*domain.Reservation, error) {
	return s.store.FindAll(ctx)
}

func (s *ReservationService) HasActiveHold(ctx context.Context, eventID, zoneID, seatID uuid.UUID) (bool, error) {
	return s.store.ExistsActiveHold(ctx, eventID, zoneID, seatID)
}
