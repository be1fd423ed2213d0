package dispatch

import (
	"context"
	"encoding/json"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/dmarroquin/clinicstock-backend/pkg/enums"
	pkgerrors "github.com/dmarroquin/clinicstock-backend/pkg/errors"
)

// AlertMessage is the store-and-forward payload, one per recipient. The
// notify worker turns each into a notification row; DedupKey keeps redelivery
// idempotent.
type AlertMessage struct {
	DedupKey  string                 `json:"dedupKey"`
	UserID    uuid.UUID              `json:"userId"`
	ItemID    uuid.UUID              `json:"itemId"`
	Type      enums.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Priority  enums.AlertPriority    `json:"priority"`
	CreatedAt time.Time              `json:"createdAt"`
}

// MessagePublisher delivers one store-and-forward message.
type MessagePublisher interface {
	Publish(ctx context.Context, message AlertMessage) error
}

// eventTypeAttribute routes consumer-side filtering without decoding payloads.
const eventTypeAttribute = "event_type"

// EventTypeAlertMessage tags alert fan-out messages on the alerts topic.
const EventTypeAlertMessage = "inventory.alert"

type pubsubPublisher struct {
	publisher *pubsub.Publisher
}

// NewPubSubPublisher wraps a Pub/Sub topic publisher as a MessagePublisher.
func NewPubSubPublisher(publisher *pubsub.Publisher) (MessagePublisher, error) {
	if publisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "pubsub publisher required")
	}
	return &pubsubPublisher{publisher: publisher}, nil
}

func (p *pubsubPublisher) Publish(ctx context.Context, message AlertMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	result := p.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			eventTypeAttribute: EventTypeAlertMessage,
		},
	})
	_, err = result.Get(ctx)
	return err
}
