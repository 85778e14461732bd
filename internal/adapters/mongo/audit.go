package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/robertarktes/seat-reservation-engine/internal/domain"
	"github.com/robertarktes/seat-reservation-engine/internal/observability"
)

// AuditLogger records booking lifecycle transitions for after-the-fact
// inspection. Writes are best-effort; a failed audit write never rolls back
// the transition it describes.
type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("booking_audit"),
		logger: logger,
	}
}

type AuditLog struct {
	ID        uuid.UUID `bson:"_id"`
	Action    string    `bson:"action"`
	HolderID  uuid.UUID `bson:"holder_id"`
	Timestamp time.Time `bson:"timestamp"`
	Data      bson.M    `bson:"data"`
}

func (a *AuditLogger) LogEvent(ctx context.Context, action string, holderID uuid.UUID, data map[string]interface{}) error {
	log := AuditLog{
		ID:        uuid.New(),
		Action:    action,
		HolderID:  holderID,
		Timestamp: time.Now(),
		Data:      bson.M(data),
	}
	_, err := a.coll.InsertOne(ctx, log)
	if err != nil {
		a.logger.Error("failed to insert audit log", err)
		return err
	}
	return nil
}

func (a *AuditLogger) LogHold(ctx context.Context, action string, hold domain.Hold) error {
	data := map[string]interface{}{
		"hold_id":    hold.ID,
		"show_id":    hold.ShowID,
		"seats":      hold.Seats,
		"expires_at": hold.ExpiresAt.Format(time.RFC3339),
	}
	return a.LogEvent(ctx, action, hold.HolderID, data)
}

func (a *AuditLogger) LogOrder(ctx context.Context, action string, order domain.Order) error {
	data := map[string]interface{}{
		"order_id": order.ID,
		"show_id":  order.ShowID,
		"seats":    order.Seats,
		"status":   string(order.Status),
		"amount":   order.Amount,
	}
	return a.LogEvent(ctx, action, order.HolderID, data)
}
