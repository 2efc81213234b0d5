package domain

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// State is persisted as its ordinal value; do not reorder.
type State int

const (
	StateHold State = iota
	StateConfirmed
	StateReleased
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateHold:
		return "Hold"
	case StateConfirmed:
		return "Confirmed"
	case StateReleased:
		return "Released"
	case StateExpired:
		return "Expired"
	default:
		return "Unknown"
	}
}

// Seat is a seat attached to a reservation, priced at creation time.
type Seat struct {
	ID        uuid.UUID
	SeatID    uuid.UUID
	UnitPrice float64
	Label     string
}

// AvailableSeat is what the seat inventory reports for a free seat.
type AvailableSeat struct {
	SeatID    uuid.UUID
	UnitPrice float64
	Label     string
}

// Reservation is the aggregate root for a group of held seats. It is
// created through NewHold, mutated only through Confirm, Cancel and
// Expire, and never deleted; terminal states are kept as history.
type Reservation struct {
	ID      uuid.UUID
	EventID uuid.UUID
	ZoneID  uuid.UUID
	UserID  uuid.UUID

	// PrimarySeatID is the first seat of the reservation, kept for
	// compatibility with consumers of the old single-seat schema.
	PrimarySeatID uuid.UUID

	State      State
	CreatedAt  time.Time
	ExpiresAt  *time.Time
	TotalPrice float64
	Seats      []Seat
}

// NewHold builds a reservation in Hold state covering all given seats.
func NewHold(eventID, zoneID, userID uuid.UUID, seats []AvailableSeat, ttl time.Duration, now time.Time) (*Reservation, error) {
	if len(seats) == 0 {
		return nil, errors.Wrap(ErrInvalidInput, "reservation needs at least one seat")
	}
	if ttl <= 0 {
		return nil, errors.Wrap(ErrInvalidInput, "hold duration must be positive")
	}

	expiresAt := now.Add(ttl)
	r := &Reservation{
		ID:        uuid.New(),
		EventID:   eventID,
		ZoneID:    zoneID,
		UserID:    userID,
		State:     StateHold,
		CreatedAt: now,
		ExpiresAt: &expiresAt,
	}

	r.PrimarySeatID = seats[0].SeatID
	for _, s := range seats {
		seat := Seat{
			ID:        uuid.New(),
			SeatID:    s.SeatID,
			UnitPrice: s.UnitPrice,
			Label:     s.Label,
		}
		r.Seats = append(r.Seats, seat)
		r.TotalPrice += seat.UnitPrice
	}

	return r, nil
}

// Rehydrate reconstructs a reservation from its stored form. The store
// is trusted: creation invariants are not re-checked.
func Rehydrate(id, eventID, zoneID, primarySeatID, userID uuid.UUID, state State, createdAt time.Time, expiresAt *time.Time, totalPrice float64, seats []Seat) *Reservation {
	return &Reservation{
		ID:            id,
		EventID:       eventID,
		ZoneID:        zoneID,
		PrimarySeatID: primarySeatID,
		UserID:        userID,
		State:         state,
		CreatedAt:     createdAt,
		ExpiresAt:     expiresAt,
		TotalPrice:    totalPrice,
		Seats:         seats,
	}
}

// Confirm marks the hold as paid. Expiry is checked live: a hold whose
// window has passed cannot be confirmed even if the sweep has not seen it.
func (r *Reservation) Confirm(now time.Time) error {
	if r.State != StateHold {
		return errors.Wrapf(ErrStateConflict, "confirm reservation %s in state %s", r.ID, r.State)
	}
	if r.IsExpired(now) {
		return errors.Wrapf(ErrStateConflict, "confirm reservation %s past its hold window", r.ID)
	}
	r.State = StateConfirmed
	return nil
}

// Cancel releases the hold at the user's request.
func (r *Reservation) Cancel() error {
	if r.State != StateHold {
		return errors.Wrapf(ErrStateConflict, "cancel reservation %s in state %s", r.ID, r.State)
	}
	r.State = StateReleased
	return nil
}

// Expire marks a stale hold as expired. It reports whether the state
// changed: anything already out of Hold is left alone, so racing with a
// concurrent Confirm or Cancel is harmless.
func (r *Reservation) Expire() bool {
	if r.State != StateHold {
		return false
	}
	r.State = StateExpired
	return true
}

func (r *Reservation) IsExpired(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}
