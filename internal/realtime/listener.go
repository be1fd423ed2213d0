package realtime

import (
	"context"
	"fmt"

	"github.com/dmarroquin/clinicstock-backend/internal/ledger"
	"github.com/dmarroquin/clinicstock-backend/pkg/enums"
	pkgerrors "github.com/dmarroquin/clinicstock-backend/pkg/errors"
)

// StockChangeListener mirrors committed ledger changes into the item feed so
// detail views update without polling.
type StockChangeListener struct {
	broadcaster *Broadcaster
}

// NewStockChangeListener wires the listener to a broadcaster.
func NewStockChangeListener(broadcaster *Broadcaster) (*StockChangeListener, error) {
	if broadcaster == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "broadcaster required")
	}
	return &StockChangeListener{broadcaster: broadcaster}, nil
}

// HandleItemChange implements ledger.ChangeListener.
func (l *StockChangeListener) HandleItemChange(ctx context.Context, event ledger.ChangeEvent) {
	item := event.Item
	push := InventoryUpdateEvent{
		Type:    enums.InventoryEventStockChanged,
		ItemID:  &item.ID,
		Item:    &item,
		Message: fmt.Sprintf("%s stock is now %d", item.Name, item.Stock),
		At:      event.Transaction.CreatedAt,
	}
	l.broadcaster.PublishToItem(ctx, item.ID, push)
}
