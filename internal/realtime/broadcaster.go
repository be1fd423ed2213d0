package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/dmarroquin/clinicstock-backend/pkg/errors"
	"github.com/dmarroquin/clinicstock-backend/pkg/logger"
)

// Broadcaster encodes events and pushes them to room members. Sends are
// non-blocking: a full connection buffer drops the frame for that connection
// only.
type Broadcaster struct {
	registry *Registry
	logg     *logger.Logger
}

// NewBroadcaster wires the broadcaster to a registry.
func NewBroadcaster(registry *Registry, logg *logger.Logger) (*Broadcaster, error) {
	if registry == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "registry required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Broadcaster{registry: registry, logg: logg}, nil
}

// PublishToRoom delivers the event to every member of the room. A room with
// no members is a no-op, not an error.
func (b *Broadcaster) PublishToRoom(ctx context.Context, room string, event Event) int {
	frame, err := encodeFrame(event)
	if err != nil {
		b.logg.Error(ctx, fmt.Sprintf("encoding %s event failed", event.EventName()), err)
		return 0
	}

	delivered := 0
	for _, conn := range b.registry.Resolve(room) {
		if conn.push(frame) {
			delivered++
		} else {
			b.logg.Warn(ctx, fmt.Sprintf("connection %s dropped %s frame", conn.ID, frame.Name))
		}
	}
	return delivered
}

// PublishToUser delivers the event to the user's personal room.
func (b *Broadcaster) PublishToUser(ctx context.Context, userID uuid.UUID, event Event) int {
	return b.PublishToRoom(ctx, UserRoom(userID), event)
}

// PublishToItem delivers the event to the per-item feed room.
func (b *Broadcaster) PublishToItem(ctx context.Context, itemID uuid.UUID, event Event) int {
	return b.PublishToRoom(ctx, ItemRoom(itemID), event)
}

// HasLiveConnection reports whether the user has at least one member in
// their personal room.
func (b *Broadcaster) HasLiveConnection(userID uuid.UUID) bool {
	return len(b.registry.Resolve(UserRoom(userID))) > 0
}

func encodeFrame(event Event) (Frame, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Name: event.EventName(), Data: data}, nil
}
