package mongo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/seat-reservations/internal/domain"
	"github.com/robertarktes/seat-reservations/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ReservationRepository stores reservation aggregates in the
// "reservations" collection. UUIDs are stored as strings and the state
// as its ordinal, matching the legacy document schema; seat_id carries
// the primary seat for consumers of the old single-seat layout.
type ReservationRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewReservationRepository(db *mongo.Database, logger observability.Logger) *ReservationRepository {
	return &ReservationRepository{
		coll:   db.Collection("reservations"),
		logger: logger,
	}
}

type reservationDoc struct {
	ID         string     `bson:"_id"`
	EventID    string     `bson:"event_id"`
	ZoneID     string     `bson:"zone_id"`
	SeatID     string     `bson:"seat_id"`
	UserID     string     `bson:"user_id"`
	State      int        `bson:"state"`
	CreatedAt  time.Time  `bson:"created_at"`
	ExpiresAt  *time.Time `bson:"expires_at,omitempty"`
	TotalPrice float64    `bson:"total_price"`
	Seats      []seatDoc  `bson:"seats"`
}

type seatDoc struct {
	ID        string  `bson:"id"`
	SeatID    string  `bson:"seat_id"`
	UnitPrice float64 `bson:"unit_price"`
	Label     string  `bson:"label"`
}

func (r *ReservationRepository) ExistsActiveHold(ctx context.Context, eventID, zoneID, seatID uuid.UUID) (bool, error) {
	filter := bson.M{
		"event_id":   eventID.String(),
		"zone_id":    zoneID.String(),
		"seat_id":    seatID.String(),
		"state":      int(domain.StateHold),
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}
	count, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *ReservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	_, err := r.coll.InsertOne(ctx, toDoc(res))
	if err != nil {
		r.logger.WithField("reservation_id", res.ID).WithError(err).Error("failed to insert reservation")
		return err
	}
	return nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	var doc reservationDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return toDomain(doc)
}

func (r *ReservationRepository) Update(ctx context.Context, res *domain.Reservation) error {
	result, err := r.coll.ReplaceOne(ctx, bson.M{"_id": res.ID.String()}, toDoc(res))
	if err != nil {
		r.logger.WithField("reservation_id", res.ID).WithError(err).Error("failed to update reservation")
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ReservationRepository) FindExpiredHolds(ctx context.Context, cutoff time.Time) ([]*domain.Reservation, error) {
	filter := bson.M{
		"state":      int(domain.StateHold),
		"expires_at": bson.M{"$lt": cutoff},
	}
	return r.findMany(ctx, filter)
}

func (r *ReservationRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Reservation, error) {
	return r.findMany(ctx, bson.M{"user_id": userID.String()})
}

func (r *ReservationRepository) FindAll(ctx context.Context) ([]*domain.Reservation, error) {
	return r.findMany(ctx, bson.M{})
}

func (r *ReservationRepository) findMany(ctx context.Context, filter bson.M) ([]*domain.Reservation, error) {
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var result []*domain.Reservation
	for cursor.Next(ctx) {
		var doc reservationDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		res, err := toDomain(doc)
		if err != nil {
			return nil, err
		}
		result = append(result, res)
	}
	return result, cursor.Err()
}

func toDoc(res *domain.Reservation) reservationDoc {
	doc := reservationDoc{
		ID:         res.ID.String(),
		EventID:    res.EventID.String(),
		ZoneID:     res.ZoneID.String(),
		SeatID:     res.PrimarySeatID.String(),
		UserID:     res.UserID.String(),
		State:      int(res.State),
		CreatedAt:  res.CreatedAt,
		ExpiresAt:  res.ExpiresAt,
		TotalPrice: res.TotalPrice,
		Seats:      make([]seatDoc, 0, len(res.Seats)),
	}
	for _, s := range res.Seats {
		doc.Seats = append(doc.Seats, seatDoc{
			ID:        s.ID.String(),
			SeatID:    s.SeatID.String(),
			UnitPrice: s.UnitPrice,
			Label:     s.Label,
		})
	}
	return doc
}

func toDomain(doc reservationDoc) (*domain.Reservation, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "reservation %s: bad id", doc.ID)
	}
	eventID, err := uuid.Parse(doc.EventID)
	if err != nil {
		return nil, errors.Wrapf(err, "reservation %s: bad event_id", doc.ID)
	}
	zoneID, err := uuid.Parse(doc.ZoneID)
	if err != nil {
		return nil, errors.Wrapf(err, "reservation %s: bad zone_id", doc.ID)
	}
	seatID, err := uuid.Parse(doc.SeatID)
	if err != nil {
		return nil, errors.Wrapf(err, "reservation %s: bad seat_id", doc.ID)
	}
	userID, err := uuid.Parse(doc.UserID)
	if err != nil {
		return nil, errors.Wrapf(err, "reservation %s: bad user_id", doc.ID)
	}

	seats := make([]domain.Seat, 0, len(doc.Seats))
	for _, s := range doc.Seats {
		sid, err := uuid.Parse(s.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "reservation %s: bad seat entry id", doc.ID)
		}
		ref, err := uuid.Parse(s.SeatID)
		if err != nil {
			return nil, errors.Wrapf(err, "reservation %s: bad seat reference", doc.ID)
		}
		seats = append(seats, domain.Seat{
			ID:        sid,
			SeatID:    ref,
			UnitPrice: s.UnitPrice,
			Label:     s.Label,
		})
	}

	return domain.Rehydrate(id, eventID, zoneID, seatID, userID, domain.State(doc.State), doc.CreatedAt, doc.ExpiresAt, doc.TotalPrice, seats), nil
}
