package rabbit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// LifecycleEvents publishes reservation lifecycle notifications.
// Publishing is best-effort; callers decide whether a failure matters.
type LifecycleEvents struct {
	pub *Publisher
}

func NewLifecycleEvents(pub *Publisher) *LifecycleEvents {
	return &LifecycleEvents{pub: pub}
}

func (e *LifecycleEvents) PublishHoldCreated(ctx context.Context, reservationID uuid.UUID, seatCount int) error {
	return e.publish(ctx, "hold.created", map[string]interface{}{
		"reservation_id": reservationID,
		"seat_count":     seatCount,
	})
}

func (e *LifecycleEvents) PublishConfirmed(ctx context.Context, reservationID uuid.UUID) error {
	return e.publish(ctx, "reservation.confirmed", map[string]interface{}{
		"reservation_id": reservationID,
	})
}

func (e *LifecycleEvents) PublishReleased(ctx context.Context, reservationID uuid.UUID) error {
	return e.publish(ctx, "reservation.released", map[string]interface{}{
		"reservation_id": reservationID,
	})
}

func (e *LifecycleEvents) PublishExpired(ctx context.Context, reservationID uuid.UUID) error {
	return e.publish(ctx, "reservation.expired", map[string]interface{}{
		"reservation_id": reservationID,
	})
}

func (e *LifecycleEvents) publish(ctx context.Context, key string, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		MessageId:   uuid.New().String(),
		ContentType: "application/json",
		Body:        body,
	}
	return e.pub.Publish(ctx, key, msg)
}
