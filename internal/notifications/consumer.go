package notifications

import (
	"context"
	"encoding/json"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/dmarroquin/clinicstock-backend/internal/dispatch"
	"github.com/dmarroquin/clinicstock-backend/pkg/db"
	"github.com/dmarroquin/clinicstock-backend/pkg/db/models"
	pkgerrors "github.com/dmarroquin/clinicstock-backend/pkg/errors"
	"github.com/dmarroquin/clinicstock-backend/pkg/logger"
)

const (
	alertConsumerScope = "notify-worker"

	// Processed markers only need to outlive the subscription's redelivery
	// horizon; the dedup_key unique index is the durable guard.
	idempotencyTTL = 24 * time.Hour
)

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// idempotencyStore marks processed dedup keys so redeliveries short-circuit
// before touching the database.
type idempotencyStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Consumer drains the alerts subscription and materializes each fan-out
// message into a notification row.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  idempotencyStore
	logg         *logger.Logger
}

// NewConsumer builds the notify worker's consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, idempotency idempotencyStore, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if subscription == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "alerts subscription required")
	}
	if idempotency == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "idempotency store required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  idempotency,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != dispatch.EventTypeAlertMessage {
		c.logg.Info(logCtx, "skipping non-alert event")
		return processResult{ack: true}
	}

	var message dispatch.AlertMessage
	if err := json.Unmarshal(msg.Data, &message); err != nil {
		c.logg.Error(logCtx, "failed to decode alert message", err)
		return processResult{ack: true}
	}
	if message.DedupKey == "" || message.UserID == uuid.Nil {
		c.logg.Error(logCtx, "alert message missing dedup key or user", nil)
		return processResult{ack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"dedup_key": message.DedupKey,
		"user_id":   message.UserID.String(),
	})

	key := c.idempotency.IdempotencyKey(alertConsumerScope, message.DedupKey)
	first, err := c.idempotency.SetNX(ctx, key, "1", idempotencyTTL)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if !first {
		c.logg.Info(logCtx, "alert message already processed")
		return processResult{ack: true}
	}

	if err := c.createNotification(ctx, message); err != nil {
		if db.IsUniqueViolation(err) {
			c.logg.Info(logCtx, "notification already materialized")
			return processResult{ack: true}
		}
		c.logg.Error(logCtx, "notification insert failed", err)
		_ = c.idempotency.Del(ctx, key)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "notification created")
	return processResult{ack: true}
}

func (c *Consumer) createNotification(ctx context.Context, message dispatch.AlertMessage) error {
	dedupKey := message.DedupKey
	itemID := message.ItemID
	notification := &models.Notification{
		ID:        uuid.New(),
		UserID:    message.UserID,
		Type:      message.Type,
		Title:     message.Title,
		Message:   message.Message,
		ItemID:    &itemID,
		DedupKey:  &dedupKey,
		CreatedAt: message.CreatedAt,
	}
	if itemID == uuid.Nil {
		notification.ItemID = nil
	}
	return c.repo.Create(ctx, notification)
}
