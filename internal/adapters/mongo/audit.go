package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/seat-reservations/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// AuditSink appends reservation audit entries to the
// "reservation_audit" collection. Insert failures are returned to the
// caller: the service treats a reservation write without its audit
// trail as a failed write.
type AuditSink struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditSink(db *mongo.Database, logger observability.Logger) *AuditSink {
	return &AuditSink{
		coll:   db.Collection("reservation_audit"),
		logger: logger,
	}
}

func (a *AuditSink) Append(ctx context.Context, referenceID uuid.UUID, level, category, message string) error {
	doc := bson.M{
		"_id":          uuid.New().String(),
		"reference_id": referenceID.String(),
		"level":        level,
		"category":     category,
		"message":      message,
		"timestamp":    time.Now().UTC(),
	}
	if _, err := a.coll.InsertOne(ctx, doc); err != nil {
		a.logger.WithField("reference_id", referenceID).WithError(err).Error("failed to insert audit entry")
		return err
	}
	return nil
}
