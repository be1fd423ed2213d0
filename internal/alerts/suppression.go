package alerts

import (
	"context"
	"time"

	"github.com/dmarroquin/clinicstock-backend/pkg/enums"
	pkgerrors "github.com/dmarroquin/clinicstock-backend/pkg/errors"
	"github.com/dmarroquin/clinicstock-backend/pkg/logger"
	"github.com/dmarroquin/clinicstock-backend/pkg/redis"
)

// DefaultSuppressionWindow is how long a repeat alert of unchanged severity
// for the same (item, type) pair stays muted.
const DefaultSuppressionWindow = 24 * time.Hour

// Suppressor decides whether an alert may be dispatched again.
type Suppressor interface {
	// ShouldDispatch reports whether the alert passes the suppression window.
	// A higher priority than the last dispatched one always passes.
	ShouldDispatch(ctx context.Context, alert Alert) bool
	// MarkDispatched records the alert's priority for the window duration.
	MarkDispatched(ctx context.Context, alert Alert)
}

type suppressionStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SuppressionKey(itemID, alertType string) string
}

type redisSuppressor struct {
	store  suppressionStore
	window time.Duration
	logg   *logger.Logger
}

// NewRedisSuppressor builds a suppressor backed by the shared redis client.
// Redis being unavailable never drops an alert; a failed lookup dispatches.
func NewRedisSuppressor(store *redis.Client, window time.Duration, logg *logger.Logger) (Suppressor, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "redis client required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if window <= 0 {
		window = DefaultSuppressionWindow
	}
	return &redisSuppressor{store: store, window: window, logg: logg}, nil
}

func (s *redisSuppressor) ShouldDispatch(ctx context.Context, alert Alert) bool {
	key := s.store.SuppressionKey(alert.ItemID.String(), alert.Type.String())
	stored, err := s.store.Get(ctx, key)
	if redis.IsNil(err) {
		return true
	}
	if err != nil {
		// Fail open: a storm of duplicates beats a silently dropped alert.
		s.logg.Error(ctx, "suppression lookup failed, dispatching anyway", err)
		return true
	}

	lastPriority, parseErr := parseStoredPriority(stored)
	if parseErr != nil {
		s.logg.Error(ctx, "invalid suppression state, dispatching anyway", parseErr)
		return true
	}
	return alert.Priority.Rank() > lastPriority.Rank()
}

func (s *redisSuppressor) MarkDispatched(ctx context.Context, alert Alert) {
	key := s.store.SuppressionKey(alert.ItemID.String(), alert.Type.String())
	if err := s.store.Set(ctx, key, alert.Priority.String(), s.window); err != nil {
		s.logg.Error(ctx, "recording suppression state failed", err)
	}
}

func parseStoredPriority(value string) (enums.AlertPriority, error) {
	return enums.ParseAlertPriority(value)
}
