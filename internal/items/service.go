package items

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmarroquin/clinicstock-backend/internal/stockstatus"
	"github.com/dmarroquin/clinicstock-backend/pkg/db"
	"github.com/dmarroquin/clinicstock-backend/pkg/db/models"
	"github.com/dmarroquin/clinicstock-backend/pkg/enums"
	pkgerrors "github.com/dmarroquin/clinicstock-backend/pkg/errors"
	"github.com/dmarroquin/clinicstock-backend/pkg/pagination"
)

// updateRetries bounds how often Update re-reads after losing the version
// race against a concurrent stock mutation.
const updateRetries = 3

// Service defines the catalog surface over inventory items: descriptive
// fields only. Stock and status mutations go through the ledger, never
// through this service; detail edits recompute status from the new bounds so
// the derived-status invariant holds.
type Service interface {
	Get(ctx context.Context, itemID uuid.UUID) (*models.InventoryItem, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Create(ctx context.Context, params CreateParams) (*models.InventoryItem, error)
	Update(ctx context.Context, itemID uuid.UUID, params UpdateParams) (*models.InventoryItem, error)
	Delete(ctx context.Context, itemID uuid.UUID) error
}

type service struct {
	repo Repository
	now  func() time.Time
}

// ListParams configures filtering and pagination for the items listing.
type ListParams struct {
	Status   string
	Category string
	Search   string
	Limit    int
	Cursor   string
}

// ListResult wraps returned items and the cursor for the next page.
type ListResult struct {
	Items  []models.InventoryItem `json:"items"`
	Cursor string                 `json:"cursor"`
}

// CreateParams carries a new catalog entry. Items start at zero stock; the
// opening balance arrives through a ledger ADJUSTMENT.
type CreateParams struct {
	SKU           string
	Name          string
	Category      string
	Unit          string
	MinStock      int
	MaxStock      int
	PurchasePrice decimal.Decimal
	SellingPrice  decimal.Decimal
	ExpiryDate    *time.Time
}

// UpdateParams carries the writable non-stock fields.
type UpdateParams struct {
	Name          string
	Category      string
	Unit          string
	MinStock      int
	MaxStock      int
	PurchasePrice decimal.Decimal
	SellingPrice  decimal.Decimal
	ExpiryDate    *time.Time
}

// NewService wires items dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "items repository required")
	}
	return &service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Get(ctx context.Context, itemID uuid.UUID) (*models.InventoryItem, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	item, err := s.repo.GetByID(ctx, itemID)
	if err == ErrNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
	}
	return item, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := ListItemsParams{
		Search: params.Search,
		Limit:  params.Limit,
	}
	if params.Status != "" {
		status, err := enums.ParseItemStatus(params.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		query.Status = &status
	}
	if params.Category != "" {
		category, err := enums.ParseItemCategory(params.Category)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category filter")
		}
		query.Category = &category
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory items")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) Create(ctx context.Context, params CreateParams) (*models.InventoryItem, error) {
	if params.SKU == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku required")
	}
	details, err := detailsFromInput(params.Name, params.Category, params.Unit, params.MinStock, params.MaxStock, params.PurchasePrice, params.SellingPrice, params.ExpiryDate)
	if err != nil {
		return nil, err
	}

	now := s.now()
	item := &models.InventoryItem{
		ID:            uuid.New(),
		Name:          details.Name,
		SKU:           params.SKU,
		Category:      details.Category,
		Unit:          details.Unit,
		Stock:         0,
		MinStock:      details.MinStock,
		MaxStock:      details.MaxStock,
		Status:        stockstatus.Classify(0, details.MinStock, details.ExpiryDate, now),
		PurchasePrice: details.PurchasePrice,
		SellingPrice:  details.SellingPrice,
		ExpiryDate:    details.ExpiryDate,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, item); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "sku already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inventory item")
	}
	return item, nil
}

func (s *service) Update(ctx context.Context, itemID uuid.UUID, params UpdateParams) (*models.InventoryItem, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	details, err := detailsFromInput(params.Name, params.Category, params.Unit, params.MinStock, params.MaxStock, params.PurchasePrice, params.SellingPrice, params.ExpiryDate)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < updateRetries; attempt++ {
		item, err := s.repo.GetByID(ctx, itemID)
		if err == ErrNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
		}

		// New bounds or expiry can move the derived status even though stock
		// is untouched.
		now := s.now()
		newStatus := stockstatus.Classify(item.Stock, details.MinStock, details.ExpiryDate, now)

		updated, err := s.repo.UpdateDetailsVersioned(ctx, item.ID, item.Version, *details, newStatus, now)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inventory item")
		}
		if !updated {
			continue
		}

		item.Name = details.Name
		item.Category = details.Category
		item.Unit = details.Unit
		item.MinStock = details.MinStock
		item.MaxStock = details.MaxStock
		item.PurchasePrice = details.PurchasePrice
		item.SellingPrice = details.SellingPrice
		item.ExpiryDate = details.ExpiryDate
		item.Status = newStatus
		item.Version++
		item.UpdatedAt = now
		return item, nil
	}

	return nil, pkgerrors.New(pkgerrors.CodeConflict, "concurrent modification detected")
}

func (s *service) Delete(ctx context.Context, itemID uuid.UUID) error {
	if itemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	deleted, err := s.repo.SoftDelete(ctx, itemID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete inventory item")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
	}
	return nil
}

func detailsFromInput(name, category, unit string, minStock, maxStock int, purchasePrice, sellingPrice decimal.Decimal, expiry *time.Time) (*ItemDetails, error) {
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	parsedCategory, err := enums.ParseItemCategory(category)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
	}
	parsedUnit, err := enums.ParseItemUnit(unit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit")
	}
	if minStock < 0 || maxStock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock bounds must be zero or positive")
	}
	if maxStock > 0 && minStock > maxStock {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min stock cannot exceed max stock")
	}
	if purchasePrice.IsNegative() || sellingPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prices must be zero or positive")
	}
	return &ItemDetails{
		Name:          name,
		Category:      parsedCategory,
		Unit:          parsedUnit,
		MinStock:      minStock,
		MaxStock:      maxStock,
		PurchasePrice: purchasePrice,
		SellingPrice:  sellingPrice,
		ExpiryDate:    expiry,
	}, nil
}
