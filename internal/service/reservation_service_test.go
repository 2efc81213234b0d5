package service

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/seat-reservations/internal/clock"
	"github.com/robertarktes/seat-reservations/internal/domain"
	"github.com/robertarktes/seat-reservations/internal/observability"
)

type nopLogger struct{}

func (nopLogger) Info(args ...interface{})                          {}
func (nopLogger) Error(args ...interface{})                         {}
func (nopLogger) Debug(args ...interface{})                         {}
func (nopLogger) Warn(args ...interface{})                          {}
func (l nopLogger) WithField(string, interface{}) observability.Logger { return l }
func (l nopLogger) WithError(error) observability.Logger               { return l }

type fakeStore struct {
	reservations map[uuid.UUID]domain.Reservation
	createCalls  int
	updateCalls  int
	createErr    error
	updateErr    map[uuid.UUID]error
	findErr      error
}

func newFakeStore(seed ...*domain.Reservation) *fakeStore {
	s := &fakeStore{reservations: map[uuid.UUID]domain.Reservation{}}
	for _, r := range seed {
		s.reservations[r.ID] = *r
	}
	return s
}

func (s *fakeStore) ExistsActiveHold(ctx context.Context, eventID, zoneID, seatID uuid.UUID) (bool, error) {
	for _, r := range s.reservations {
		if r.State != domain.StateHold || r.EventID != eventID || r.ZoneID != zoneID {
			continue
		}
		for _, seat := range r.Seats {
			if seat.SeatID == seatID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *fakeStore) Create(ctx context.Context, r *domain.Reservation) error {
	s.createCalls++
	if s.createErr != nil {
		return s.createErr
	}
	s.reservations[r.ID] = *r
	return nil
}

func (s *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	r, ok := s.reservations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := r
	return &copied, nil
}

func (s *fakeStore) Update(ctx context.Context, r *domain.Reservation) error {
	s.updateCalls++
	if err := s.updateErr[r.ID]; err != nil {
		return err
	}
	if _, ok := s.reservations[r.ID]; !ok {
		return domain.ErrNotFound
	}
	s.reservations[r.ID] = *r
	return nil
}

func (s *fakeStore) FindExpiredHolds(ctx context.Context, cutoff time.Time) ([]*domain.Reservation, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	var result []*domain.Reservation
	for _, r := range s.reservations {
		if r.State == domain.StateHold && r.ExpiresAt != nil && r.ExpiresAt.Before(cutoff) {
			copied := r
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (s *fakeStore) FindByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Reservation, error) {
	var result []*domain.Reservation
	for _, r := range s.reservations {
		if r.UserID == userID {
			copied := r
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (s *fakeStore) FindAll(ctx context.Context) ([]*domain.Reservation, error) {
	var result []*domain.Reservation
	for _, r := range s.reservations {
		copied := r
		result = append(result, &copied)
	}
	return result, nil
}

type seatStateCall struct {
	seatID uuid.UUID
	state  string
}

type fakeInventory struct {
	seats    []domain.AvailableSeat
	getErr   error
	getCalls int
	setErr   map[uuid.UUID]error
	setCalls []seatStateCall
}

func (f *fakeInventory) GetAvailableSeats(ctx context.Context, eventID, zoneID uuid.UUID, count int) ([]domain.AvailableSeat, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	if count > len(f.seats) {
		count = len(f.seats)
	}
	return f.seats[:count], nil
}

func (f *fakeInventory) SetSeatState(ctx context.Context, eventID, zoneID, seatID uuid.UUID, state string) error {
	f.setCalls = append(f.setCalls, seatStateCall{seatID: seatID, state: state})
	return f.setErr[seatID]
}

type fakeAudit struct {
	entries []string
	err     error
}

func (f *fakeAudit) Append(ctx context.Context, referenceID uuid.UUID, level, category, message string) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, category)
	return nil
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newService(store *fakeStore, inv *fakeInventory, audit *fakeAudit) *ReservationService {
	return NewReservationService(store, inv, audit, clock.NewFixed(testNow), 5*time.Minute, nopLogger{})
}

func availableSeats(prices ...float64) []domain.AvailableSeat {
	seats := make([]domain.AvailableSeat, 0, len(prices))
	for _, p := range prices {
		seats = append(seats, domain.AvailableSeat{SeatID: uuid.New(), UnitPrice: p, Label: "A1"})
	}
	return seats
}

func holdFixture(expiresAt time.Time, state domain.State) *domain.Reservation {
	r, _ := domain.NewHold(uuid.New(), uuid.New(), uuid.New(), availableSeats(10, 20), 5*time.Minute, testNow)
	r.State = state
	r.ExpiresAt = &expiresAt
	return r
}

func TestReservationService_CreateHold(t *testing.T) {
	t.Run("rejects non-positive quantity before any side effect", func(t *testing.T) {
		store := newFakeStore()
		inv := &fakeInventory{}
		svc := newService(store, inv, &fakeAudit{})

		for _, qty := range []int{0, -1, -100} {
			_, err := svc.CreateHold(context.Background(), CreateHoldInput{Quantity: qty})
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("quantity %d: expected ErrInvalidInput, got %v", qty, err)
			}
		}
		if inv.getCalls != 0 {
			t.Fatalf("inventory must not be queried, got %d calls", inv.getCalls)
		}
		if store.createCalls != 0 {
			t.Fatalf("store must not be touched, got %d creates", store.createCalls)
		}
	})

	t.Run("fails with insufficient seats and persists nothing", func(t *testing.T) {
		store := newFakeStore()
		inv := &fakeInventory{seats: availableSeats(10)}
		svc := newService(store, inv, &fakeAudit{})

		_, err := svc.CreateHold(context.Background(), CreateHoldInput{EventID: uuid.New(), ZoneID: uuid.New(), UserID: uuid.New(), Quantity: 2})

		var insufficient *domain.InsufficientSeatsError
		if !errors.As(err, &insufficient) {
			t.Fatalf("expected InsufficientSeatsError, got %v", err)
		}
		if insufficient.Requested != 2 || insufficient.Available != 1 {
			t.Fatalf("expected requested=2 available=1, got %+v", insufficient)
		}
		if store.createCalls != 0 {
			t.Fatal("no reservation may be created")
		}
		if len(inv.setCalls) != 0 {
			t.Fatal("no seat state may be pushed")
		}
	})

	t.Run("creates one reservation covering all seats", func(t *testing.T) {
		store := newFakeStore()
		inv := &fakeInventory{seats: availableSeats(10, 20)}
		audit := &fakeAudit{}
		svc := newService(store, inv, audit)

		results, err := svc.CreateHold(context.Background(), CreateHoldInput{EventID: uuid.New(), ZoneID: uuid.New(), UserID: uuid.New(), Quantity: 2})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("expected 2 result rows, got %d", len(results))
		}
		if results[0].ReservationID != results[1].ReservationID {
			t.Fatal("all rows must share one reservation id")
		}
		if !results[0].ExpiresAt.Equal(results[1].ExpiresAt) {
			t.Fatal("all rows must share one expiry")
		}
		if !results[0].ExpiresAt.Equal(testNow.Add(5 * time.Minute)) {
			t.Fatalf("expected expiry %v, got %v", testNow.Add(5*time.Minute), results[0].ExpiresAt)
		}

		stored := store.reservations[results[0].ReservationID]
		if stored.TotalPrice != 30 {
			t.Fatalf("expected total 30, got %v", stored.TotalPrice)
		}
		if len(stored.Seats) != 2 {
			t.Fatalf("expected 2 seats, got %d", len(stored.Seats))
		}
		if stored.State != domain.StateHold {
			t.Fatalf("expected Hold, got %s", stored.State)
		}

		if len(inv.setCalls) != 2 {
			t.Fatalf("expected 2 seat pushes, got %d", len(inv.setCalls))
		}
		for _, call := range inv.setCalls {
			if call.state != SeatStateHold {
				t.Fatalf("expected hold state push, got %q", call.state)
			}
		}
		if len(audit.entries) != 1 || audit.entries[0] != "reservation.hold" {
			t.Fatalf("expected one hold audit entry, got %v", audit.entries)
		}
	})

	t.Run("seat push failure after persist is a dependency error without rollback", func(t *testing.T) {
		seats := availableSeats(10, 20)
		store := newFakeStore()
		inv := &fakeInventory{
			seats:  seats,
			setErr: map[uuid.UUID]error{seats[1].SeatID: errors.New("inventory down")},
		}
		svc := newService(store, inv, &fakeAudit{})

		_, err := svc.CreateHold(context.Background(), CreateHoldInput{EventID: uuid.New(), ZoneID: uuid.New(), UserID: uuid.New(), Quantity: 2})
		if !errors.Is(err, domain.ErrDependency) {
			t.Fatalf("expected ErrDependency, got %v", err)
		}
		if store.createCalls != 1 || len(store.reservations) != 1 {
			t.Fatal("the reservation must stay durably persisted")
		}
		for _, r := range store.reservations {
			if r.State != domain.StateHold {
				t.Fatalf("reservation must remain in Hold, got %s", r.State)
			}
		}
	})

	t.Run("audit failure fails the creation", func(t *testing.T) {
		store := newFakeStore()
		inv := &fakeInventory{seats: availableSeats(10)}
		svc := newService(store, inv, &fakeAudit{err: errors.New("audit db down")})

		_, err := svc.CreateHold(context.Background(), CreateHoldInput{EventID: uuid.New(), ZoneID: uuid.New(), UserID: uuid.New(), Quantity: 1})
		if !errors.Is(err, domain.ErrDependency) {
			t.Fatalf("expected ErrDependency, got %v", err)
		}
	})
}

func TestReservationService_Confirm(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		svc := newService(newFakeStore(), &fakeInventory{}, &fakeAudit{})
		err := svc.Confirm(context.Background(), uuid.New())
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("confirms a live hold and occupies seats", func(t *testing.T) {
		r := holdFixture(testNow.Add(time.Minute), domain.StateHold)
		store := newFakeStore(r)
		inv := &fakeInventory{}
		svc := newService(store, inv, &fakeAudit{})

		if err := svc.Confirm(context.Background(), r.ID); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if store.reservations[r.ID].State != domain.StateConfirmed {
			t.Fatalf("expected Confirmed persisted, got %s", store.reservations[r.ID].State)
		}
		if len(inv.setCalls) != len(r.Seats) {
			t.Fatalf("expected %d seat pushes, got %d", len(r.Seats), len(inv.setCalls))
		}
		for _, call := range inv.setCalls {
			if call.state != SeatStateOccupied {
				t.Fatalf("expected occupied push, got %q", call.state)
			}
		}
	})

	t.Run("expired hold conflicts before any write", func(t *testing.T) {
		r := holdFixture(testNow.Add(-time.Minute), domain.StateHold)
		store := newFakeStore(r)
		inv := &fakeInventory{}
		svc := newService(store, inv, &fakeAudit{})

		err := svc.Confirm(context.Background(), r.ID)
		if !errors.Is(err, domain.ErrStateConflict) {
			t.Fatalf("expected ErrStateConflict, got %v", err)
		}
		if store.updateCalls != 0 {
			t.Fatal("no store write may happen on conflict")
		}
		if len(inv.setCalls) != 0 {
			t.Fatal("no inventory call may happen on conflict")
		}
		if store.reservations[r.ID].State != domain.StateHold {
			t.Fatal("persisted state must still read Hold")
		}
	})

	t.Run("second confirm conflicts", func(t *testing.T) {
		r := holdFixture(testNow.Add(time.Minute), domain.StateHold)
		store := newFakeStore(r)
		svc := newService(store, &fakeInventory{}, &fakeAudit{})

		if err := svc.Confirm(context.Background(), r.ID); err != nil {
			t.Fatal(err)
		}
		err := svc.Confirm(context.Background(), r.ID)
		if !errors.Is(err, domain.ErrStateConflict) {
			t.Fatalf("expected ErrStateConflict, got %v", err)
		}
	})

	t.Run("seat push failure aborts before persisting", func(t *testing.T) {
		r := holdFixture(testNow.Add(time.Minute), domain.StateHold)
		store := newFakeStore(r)
		inv := &fakeInventory{setErr: map[uuid.UUID]error{r.Seats[0].SeatID: errors.New("inventory down")}}
		svc := newService(store, inv, &fakeAudit{})

		err := svc.Confirm(context.Background(), r.ID)
		if !errors.Is(err, domain.ErrDependency) {
			t.Fatalf("expected ErrDependency, got %v", err)
		}
		if store.reservations[r.ID].State != domain.StateHold {
			t.Fatal("confirmation must not be persisted when the seat push fails")
		}
	})
}

func TestReservationService_Cancel(t *testing.T) {
	t.Run("releases a hold", func(t *testing.T) {
		r := holdFixture(testNow.Add(time.Minute), domain.StateHold)
		store := newFakeStore(r)
		inv := &fakeInventory{}
		svc := newService(store, inv, &fakeAudit{})

		if err := svc.Cancel(context.Background(), r.ID); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if store.reservations[r.ID].State != domain.StateReleased {
			t.Fatalf("expected Released persisted, got %s", store.reservations[r.ID].State)
		}
		for _, call := range inv.setCalls {
			if call.state != SeatStateAvailable {
				t.Fatalf("expected available push, got %q", call.state)
			}
		}
	})

	t.Run("per-seat failure does not block persistence", func(t *testing.T) {
		r := holdFixture(testNow.Add(time.Minute), domain.StateHold)
		store := newFakeStore(r)
		inv := &fakeInventory{setErr: map[uuid.UUID]error{r.Seats[0].SeatID: errors.New("seat unreachable")}}
		svc := newService(store, inv, &fakeAudit{})

		if err := svc.Cancel(context.Background(), r.ID); err != nil {
			t.Fatalf("cancellation must succeed despite seat failure, got %v", err)
		}
		if store.reservations[r.ID].State != domain.StateReleased {
			t.Fatal("Released state must be durably recorded")
		}
		if len(inv.setCalls) != len(r.Seats) {
			t.Fatalf("all seats must be attempted, got %d of %d", len(inv.setCalls), len(r.Seats))
		}
	})

	t.Run("conflicts on already released or confirmed", func(t *testing.T) {
		for _, state := range []domain.State{domain.StateReleased, domain.StateConfirmed} {
			r := holdFixture(testNow.Add(time.Minute), state)
			store := newFakeStore(r)
			svc := newService(store, &fakeInventory{}, &fakeAudit{})

			err := svc.Cancel(context.Background(), r.ID)
			if !errors.Is(err, domain.ErrStateConflict) {
				t.Fatalf("cancel from %s: expected ErrStateConflict, got %v", state, err)
			}
		}
	})
}

func TestReservationService_ExpireDue(t *testing.T) {
	t.Run("expires only stale holds", func(t *testing.T) {
		expiredHold := holdFixture(testNow.Add(-time.Minute), domain.StateHold)
		liveHold := holdFixture(testNow.Add(time.Minute), domain.StateHold)
		confirmed := holdFixture(testNow.Add(-time.Minute), domain.StateConfirmed)

		store := newFakeStore(expiredHold, liveHold, confirmed)
		inv := &fakeInventory{}
		svc := newService(store, inv, &fakeAudit{})

		expired, err := svc.ExpireDue(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(expired) != 1 || expired[0] != expiredHold.ID {
			t.Fatalf("expected only the stale hold expired, got %v", expired)
		}
		if store.reservations[expiredHold.ID].State != domain.StateExpired {
			t.Fatal("stale hold must be Expired")
		}
		if store.reservations[liveHold.ID].State != domain.StateHold {
			t.Fatal("live hold must be untouched")
		}
		if store.reservations[confirmed.ID].State != domain.StateConfirmed {
			t.Fatal("confirmed reservation must be untouched")
		}
		if len(inv.setCalls) != len(expiredHold.Seats) {
			t.Fatalf("expected %d seat releases, got %d", len(expiredHold.Seats), len(inv.setCalls))
		}
	})

	t.Run("a failing record does not stop the pass", func(t *testing.T) {
		bad := holdFixture(testNow.Add(-time.Minute), domain.StateHold)
		good := holdFixture(testNow.Add(-time.Minute), domain.StateHold)

		store := newFakeStore(bad, good)
		store.updateErr = map[uuid.UUID]error{bad.ID: errors.New("write failed")}
		svc := newService(store, &fakeInventory{}, &fakeAudit{})

		expired, err := svc.ExpireDue(context.Background())
		if err != nil {
			t.Fatalf("per-record failures must not propagate, got %v", err)
		}
		if len(expired) != 1 || expired[0] != good.ID {
			t.Fatalf("expected only the good record expired, got %v", expired)
		}
	})

	t.Run("store failure on lookup is a dependency error", func(t *testing.T) {
		store := newFakeStore()
		store.findErr = errors.New("mongo down")
		svc := newService(store, &fakeInventory{}, &fakeAudit{})

		_, err := svc.ExpireDue(context.Background())
		if !errors.Is(err, domain.ErrDependency) {
			t.Fatalf("expected ErrDependency, got %v", err)
		}
	})
}

func TestReservationService_Queries(t *testing.T) {
	user := uuid.New()
	mine := holdFixture(testNow.Add(time.Minute), domain.StateHold)
	mine.UserID = user
	other := holdFixture(testNow.Add(time.Minute), domain.StateHold)

	store := newFakeStore(mine, other)
	svc := newService(store, &fakeInventory{}, &fakeAudit{})

	byUser, err := svc.GetByUser(context.Background(), user)
	if err != nil {
		t.Fatal(err)
	}
	if len(byUser) != 1 || byUser[0].ID != mine.ID {
		t.Fatalf("expected only the user's reservation, got %v", byUser)
	}

	all, err := svc.ListAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 reservations, got %d", len(all))
	}

	got, err := svc.GetByID(context.Background(), mine.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != mine.ID {
		t.Fatalf("expected %s, got %s", mine.ID, got.ID)
	}

	active, err := svc.HasActiveHold(context.Background(), mine.EventID, mine.ZoneID, mine.Seats[0].SeatID)
	if err != nil {
		t.Fatal(err)
	}
	if !active {
		t.Fatal("expected an active hold for the held seat")
	}
}
