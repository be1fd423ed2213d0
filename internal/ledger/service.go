package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmarroquin/clinicstock-backend/internal/items"
	"github.com/dmarroquin/clinicstock-backend/internal/stockstatus"
	"github.com/dmarroquin/clinicstock-backend/pkg/db/models"
	"github.com/dmarroquin/clinicstock-backend/pkg/enums"
	pkgerrors "github.com/dmarroquin/clinicstock-backend/pkg/errors"
	"github.com/dmarroquin/clinicstock-backend/pkg/logger"
	"github.com/dmarroquin/clinicstock-backend/pkg/pagination"
)

// DefaultRetries bounds how often Apply re-reads after losing the version race.
const DefaultRetries = 3

var errStaleVersion = errors.New("stale item version")

// Transactor runs a function inside a database transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ChangeEvent describes one committed stock mutation.
type ChangeEvent struct {
	Item           models.InventoryItem
	PreviousStatus enums.ItemStatus
	NewStatus      enums.ItemStatus
	Transaction    models.StockTransaction
}

// ChangeListener receives committed mutations after the transaction closes.
// Listener failures never unwind the mutation.
type ChangeListener interface {
	HandleItemChange(ctx context.Context, event ChangeEvent)
}

// Service is the only writer of stock, status and transaction state.
type Service interface {
	Apply(ctx context.Context, params ApplyParams) (*ApplyResult, error)
	ListTransactions(ctx context.Context, params ListTransactionsParams) (*TransactionsResult, error)
	RegisterListener(listener ChangeListener)
}

type service struct {
	tx        Transactor
	items     items.Repository
	repo      Repository
	logg      *logger.Logger
	retries   int
	now       func() time.Time
	listeners []ChangeListener
}

// ApplyParams carries one stock mutation request.
type ApplyParams struct {
	ItemID    uuid.UUID
	Type      enums.TransactionType
	Quantity  int
	Reason    string
	Reference *string
	Notes     *string
	ActorID   uuid.UUID
}

// ApplyResult returns the committed item state and the ledger entry.
type ApplyResult struct {
	Item        models.InventoryItem    `json:"item"`
	Transaction models.StockTransaction `json:"transaction"`
}

// ListTransactionsParams configures the per-item history listing.
type ListTransactionsParams struct {
	ItemID uuid.UUID
	Limit  int
	Cursor string
}

// TransactionsResult wraps history rows and the cursor for the next page.
type TransactionsResult struct {
	Items  []models.StockTransaction `json:"items"`
	Cursor string                    `json:"cursor"`
}

// NewService wires ledger dependencies.
func NewService(tx Transactor, itemsRepo items.Repository, repo Repository, logg *logger.Logger, retries int) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transactor required")
	}
	if itemsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "items repository required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transactions repository required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if retries <= 0 {
		retries = DefaultRetries
	}
	return &service{
		tx:      tx,
		items:   itemsRepo,
		repo:    repo,
		logg:    logg,
		retries: retries,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// RegisterListener appends a committed-change consumer. Not safe for
// concurrent use; call during wiring before the service handles traffic.
func (s *service) RegisterListener(listener ChangeListener) {
	if listener == nil {
		return
	}
	s.listeners = append(s.listeners, listener)
}

func (s *service) Apply(ctx context.Context, params ApplyParams) (*ApplyResult, error) {
	if err := validateApplyParams(params); err != nil {
		return nil, err
	}

	ctx = s.logg.WithItemID(ctx, params.ItemID.String())

	var lastErr error
	for attempt := 0; attempt < s.retries; attempt++ {
		result, previousStatus, err := s.applyOnce(ctx, params)
		if errors.Is(err, errStaleVersion) {
			lastErr = err
			s.logg.Warn(ctx, fmt.Sprintf("stock mutation lost version race, attempt %d", attempt+1))
			continue
		}
		if err != nil {
			return nil, err
		}
		s.notifyListeners(ctx, result, previousStatus)
		return result, nil
	}

	return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, lastErr, "concurrent modification detected")
}

func (s *service) applyOnce(ctx context.Context, params ApplyParams) (*ApplyResult, enums.ItemStatus, error) {
	item, err := s.items.GetByID(ctx, params.ItemID)
	if errors.Is(err, items.ErrNotFound) {
		return nil, "", pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
	}
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
	}

	newStock, err := computeNewStock(item.Stock, params.Type, params.Quantity)
	if err != nil {
		return nil, "", err
	}

	now := s.now()
	previousStatus := item.Status
	newStatus := stockstatus.Classify(newStock, item.MinStock, item.ExpiryDate, now)

	transaction := models.StockTransaction{
		ID:            uuid.New(),
		ItemID:        item.ID,
		Type:          params.Type,
		Quantity:      params.Quantity,
		PreviousStock: item.Stock,
		NewStock:      newStock,
		Reason:        params.Reason,
		Reference:     params.Reference,
		Notes:         params.Notes,
		ActorID:       params.ActorID,
		CreatedAt:     now,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updated, err := s.items.WithTx(tx).UpdateStockVersioned(ctx, item.ID, item.Version, newStock, newStatus, now)
		if err != nil {
			return err
		}
		if !updated {
			return errStaleVersion
		}
		return s.repo.WithTx(tx).Create(ctx, &transaction)
	})
	if errors.Is(err, errStaleVersion) {
		return nil, "", errStaleVersion
	}
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commit stock mutation")
	}

	item.Stock = newStock
	item.Status = newStatus
	item.Version++
	item.UpdatedAt = now

	return &ApplyResult{Item: *item, Transaction: transaction}, previousStatus, nil
}

func (s *service) notifyListeners(ctx context.Context, result *ApplyResult, previousStatus enums.ItemStatus) {
	if len(s.listeners) == 0 {
		return
	}
	event := ChangeEvent{
		Item:           result.Item,
		PreviousStatus: previousStatus,
		NewStatus:      result.Item.Status,
		Transaction:    result.Transaction,
	}
	for _, listener := range s.listeners {
		listener.HandleItemChange(ctx, event)
	}
}

func (s *service) ListTransactions(ctx context.Context, params ListTransactionsParams) (*TransactionsResult, error) {
	if params.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	query := listTransactionsParams{
		ItemID: params.ItemID,
		Limit:  params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListByItem(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stock transactions")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &TransactionsResult{Items: rows, Cursor: cursor}, nil
}

func validateApplyParams(params ApplyParams) error {
	if params.ItemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if params.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}
	if !params.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction type")
	}
	if params.Reason == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reason required")
	}
	switch params.Type {
	case enums.TransactionTypeAdjustment:
		// Stocktake corrections may set the absolute level to zero.
		if params.Quantity < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be zero or positive")
		}
	default:
		if params.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
	}
	return nil
}

func computeNewStock(currentStock int, txType enums.TransactionType, quantity int) (int, error) {
	switch txType {
	case enums.TransactionTypeIn:
		return currentStock + quantity, nil
	case enums.TransactionTypeOut:
		newStock := currentStock - quantity
		if newStock < 0 {
			return 0, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
				WithDetails(map[string]any{"currentStock": currentStock, "requested": quantity})
		}
		return newStock, nil
	case enums.TransactionTypeAdjustment:
		return quantity, nil
	default:
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction type")
	}
}
