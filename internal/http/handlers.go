package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/robertarktes/seat-reservations/internal/domain"
	"github.com/robertarktes/seat-reservations/internal/idempotency"
	"github.com/robertarktes/seat-reservations/internal/observability"
	"github.com/robertarktes/seat-reservations/internal/service"
)

// ReservationService is the presented surface consumed by the handlers.
type ReservationService interface {
	CreateHold(ctx context.Context, in service.CreateHoldInput) ([]service.HoldResult, error)
	Confirm(ctx context.Context, id uuid.UUID) error
	Cancel(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
	GetByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Reservation, error)
	ListAll(ctx context.Context) ([]*domain.Reservation, error)
	HasActiveHold(ctx context.Context, eventID, zoneID, seatID uuid.UUID) (bool, error)
}

// Events publishes lifecycle notifications; may be nil.
type Events interface {
	PublishHoldCreated(ctx context.Context, reservationID uuid.UUID, seatCount int) error
	PublishConfirmed(ctx context.Context, reservationID uuid.UUID) error
	PublishReleased(ctx context.Context, reservationID uuid.UUID) error
}

type Handlers struct {
	svc    ReservationService
	events Events
	idemp  *idempotency.Idempotency
	logger observability.Logger
}

func NewHandlers(svc ReservationService, events Events, idemp *idempotency.Idempotency, logger observability.Logger) *Handlers {
	return &Handlers{
		svc:    svc,
		events: events,
		idemp:  idemp,
		logger: logger,
	}
}

type holdResultView struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	SeatID        uuid.UUID `json:"seat_id"`
	ExpiresAt     string    `json:"expires_at"`
}

type seatView struct {
	SeatID    uuid.UUID `json:"seat_id"`
	UnitPrice float64   `json:"unit_price"`
	Label     string    `json:"label"`
}

type reservationView struct {
	ID            uuid.UUID  `json:"id"`
	EventID       uuid.UUID  `json:"event_id"`
	ZoneID        uuid.UUID  `json:"zone_id"`
	UserID        uuid.UUID  `json:"user_id"`
	PrimarySeatID uuid.UUID  `json:"primary_seat_id"`
	State         string     `json:"state"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	TotalPrice    float64    `json:"total_price"`
	Seats         []seatView `json:"seats"`
}

func toReservationView(r *domain.Reservation) reservationView {
	v := reservationView{
		ID:            r.ID,
		EventID:       r.EventID,
		ZoneID:        r.ZoneID,
		UserID:        r.UserID,
		PrimarySeatID: r.PrimarySeatID,
		State:         r.State.String(),
		CreatedAt:     r.CreatedAt,
		ExpiresAt:     r.ExpiresAt,
		TotalPrice:    r.TotalPrice,
		Seats:         make([]seatView, 0, len(r.Seats)),
	}
	for _, s := range r.Seats {
		v.Seats = append(v.Seats, seatView{SeatID: s.SeatID, UnitPrice: s.UnitPrice, Label: s.Label})
	}
	return v
}

func (h *Handlers) CreateHold(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	var req struct {
		EventID  uuid.UUID `json:"event_id"`
		ZoneID   uuid.UUID `json:"zone_id"`
		UserID   uuid.UUID `json:"user_id"`
		Quantity int       `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	results, err := h.svc.CreateHold(r.Context(), service.CreateHoldInput{
		EventID:  req.EventID,
		ZoneID:   req.ZoneID,
		UserID:   req.UserID,
		Quantity: req.Quantity,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if h.events != nil {
		if err := h.events.PublishHoldCreated(r.Context(), results[0].ReservationID, len(results)); err != nil {
			h.logger.WithError(err).Warn("failed to publish hold.created")
		}
	}

	views := make([]holdResultView, 0, len(results))
	for _, res := range results {
		views = append(views, holdResultView{
			ReservationID: res.ReservationID,
			SeatID:        res.SeatID,
			ExpiresAt:     res.ExpiresAt.Format(time.RFC3339),
		})
	}
	data, _ := json.Marshal(views)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write(data)

	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Result: data})
}

func (h *Handlers) Confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Confirm(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}

	if h.events != nil {
		if err := h.events.PublishConfirmed(r.Context(), id); err != nil {
			h.logger.WithError(err).Warn("failed to publish reservation.confirmed")
		}
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Cancel(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}

	if h.events != nil {
		if err := h.events.PublishReleased(r.Context(), id); err != nil {
			h.logger.WithError(err).Warn("failed to publish reservation.released")
		}
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) GetReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	res, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toReservationView(res))
}

func (h *Handlers) ListReservations(w http.ResponseWriter, r *http.Request) {
	all, err := h.svc.ListAll(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	views := make([]reservationView, 0, len(all))
	for _, res := range all {
		views = append(views, toReservationView(res))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handlers) GetUserReservations(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	list, err := h.svc.GetByUser(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	views := make([]reservationView, 0, len(list))
	for _, res := range list {
		views = append(views, toReservationView(res))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handlers) ActiveHold(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	eventID, err1 := uuid.Parse(q.Get("event_id"))
	zoneID, err2 := uuid.Parse(q.Get("zone_id"))
	seatID, err3 := uuid.Parse(q.Get("seat_id"))
	if err1 != nil || err2 != nil || err3 != nil {
		http.Error(w, "event_id, zone_id and seat_id are required", http.StatusBadRequest)
		return
	}

	active, err := h.svc.HasActiveHold(r.Context(), eventID, zoneID, seatID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"active": active})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

func (h *Handlers) writeServiceError(w http.ResponseWriter, err error) {
	var insufficient *domain.InsufficientSeatsError

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "reservation not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrStateConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &insufficient):
		http.Error(w, insufficient.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrDependency):
		// The write may have partially happened; tell the caller not to
		// assume either way.
		http.Error(w, "operation may have partially succeeded: "+err.Error(), http.StatusBadGateway)
	default:
		h.logger.WithError(err).Error("unexpected error")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
