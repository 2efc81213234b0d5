package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/seat-reservations/internal/domain"
	"github.com/robertarktes/seat-reservations/internal/observability"
)

// Client talks to the seat inventory service, the external system of
// record for per-seat availability.
type Client struct {
	http    *http.Client
	baseURL string
	logger  observability.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger observability.Logger) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

type seatDTO struct {
	ID       uuid.UUID `json:"id"`
	Label    string    `json:"label"`
	State    string    `json:"state"`
	RowIndex int       `json:"rowIndex"`
	ColIndex int       `json:"colIndex"`
}

type zoneDTO struct {
	ID       uuid.UUID `json:"id"`
	EventID  uuid.UUID `json:"eventId"`
	Name     string    `json:"name"`
	Price    float64   `json:"price"`
	State    string    `json:"state"`
	Capacity int       `json:"capacity"`
}

type updateSeatRequest struct {
	State string  `json:"state"`
	Label *string `json:"label"`
	Meta  any     `json:"meta"`
}

// GetAvailableSeats returns up to count free seats of the zone, ordered
// by physical row then column so repeated calls under the same
// inventory state pick the same seats. The unit price comes from the
// zone, which prices all of its seats uniformly.
func (c *Client) GetAvailableSeats(ctx context.Context, eventID, zoneID uuid.UUID, count int) ([]domain.AvailableSeat, error) {
	if count <= 0 {
		return nil, errors.Wrap(domain.ErrInvalidInput, "seat count must be positive")
	}

	var seats []seatDTO
	seatsURL := fmt.Sprintf("%s/api/events/%s/zones/%s/seats", c.baseURL, eventID, zoneID)
	if err := c.getJSON(ctx, seatsURL, &seats); err != nil {
		return nil, errors.Wrap(err, "fetch zone seats")
	}

	var zone zoneDTO
	zoneURL := fmt.Sprintf("%s/api/events/%s/zones/%s?includeSeats=true", c.baseURL, eventID, zoneID)
	if err := c.getJSON(ctx, zoneURL, &zone); err != nil {
		return nil, errors.Wrap(err, "fetch zone detail")
	}

	available := make([]seatDTO, 0, len(seats))
	for _, s := range seats {
		if strings.EqualFold(s.State, "available") {
			available = append(available, s)
		}
	}
	sort.Slice(available, func(i, j int) bool {
		if available[i].RowIndex != available[j].RowIndex {
			return available[i].RowIndex < available[j].RowIndex
		}
		return available[i].ColIndex < available[j].ColIndex
	})
	if len(available) > count {
		available = available[:count]
	}

	result := make([]domain.AvailableSeat, 0, len(available))
	for _, s := range available {
		label := s.Label
		if label == "" {
			label = fmt.Sprintf("%d-%d", s.RowIndex, s.ColIndex)
		}
		result = append(result, domain.AvailableSeat{
			SeatID:    s.ID,
			UnitPrice: zone.Price,
			Label:     label,
		})
	}
	return result, nil
}

// SetSeatState pushes a seat's new state to the inventory service.
// Non-2xx responses surface as errors.
func (c *Client) SetSeatState(ctx context.Context, eventID, zoneID, seatID uuid.UUID, state string) error {
	url := fmt.Sprintf("%s/api/events/%s/zones/%s/seats/%s", c.baseURL, eventID, zoneID, seatID)

	body, err := json.Marshal(updateSeatRequest{State: state})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "update seat %s", seatID)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Newf("update seat %s: inventory service returned %d", seatID, resp.StatusCode)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Newf("GET %s: inventory service returned %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
