package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/seat-reservations/internal/domain"
)

// ReservationStore persists reservation aggregates. Implementations
// return domain.ErrNotFound for missing reservations.
type ReservationStore interface {
	ExistsActiveHold(ctx context.Context, eventID, zoneID, seatID uuid.UUID) (bool, error)
	Create(ctx context.Context, r *domain.Reservation) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
	Update(ctx context.Context, r *domain.Reservation) error
	FindExpiredHolds(ctx context.Context, cutoff time.Time) ([]*domain.Reservation, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Reservation, error)
	FindAll(ctx context.Context) ([]*domain.Reservation, error)
}

// Seat states understood by the inventory service.
const (
	SeatStateAvailable = "available"
	SeatStateHold      = "hold"
	SeatStateOccupied  = "occupied"
)

// SeatInventory is the external system of record for per-seat
// availability. GetAvailableSeats returns at most count seats, already
// filtered to available and ordered by physical position, so repeated
// calls under the same inventory state pick the same seats.
type SeatInventory interface {
	GetAvailableSeats(ctx context.Context, eventID, zoneID uuid.UUID, count int) ([]domain.AvailableSeat, error)
	SetSeatState(ctx context.Context, eventID, zoneID, seatID uuid.UUID, state string) error
}

// AuditSink records reservation lifecycle entries. Append errors fail
// the enclosing write: a reservation mutation without its audit trail is
// treated as a failed mutation.
type AuditSink interface {
	Append(ctx context.Context, referenceID uuid.UUID, level, category, message string) error
}
