package items

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dmarroquin/clinicstock-backend/pkg/db/models"
	"github.com/dmarroquin/clinicstock-backend/pkg/enums"
	"github.com/dmarroquin/clinicstock-backend/pkg/pagination"
)

// ErrNotFound is returned when the requested item does not exist or is
// soft-deleted.
var ErrNotFound = errors.New("inventory item not found")

// Repository exposes persistence helpers for inventory items. Stock, status
// and version are only written through UpdateStockVersioned; everything else
// treats the row as read-mostly.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.InventoryItem) error
	GetByID(ctx context.Context, itemID uuid.UUID) (*models.InventoryItem, error)
	List(ctx context.Context, params ListItemsParams) ([]models.InventoryItem, *pagination.Cursor, error)
	ListActiveBatch(ctx context.Context, afterID uuid.UUID, limit int) ([]models.InventoryItem, error)
	UpdateStockVersioned(ctx context.Context, itemID uuid.UUID, fromVersion, newStock int, newStatus enums.ItemStatus, now time.Time) (bool, error)
	UpdateDetailsVersioned(ctx context.Context, itemID uuid.UUID, fromVersion int, details ItemDetails, newStatus enums.ItemStatus, now time.Time) (bool, error)
	SoftDelete(ctx context.Context, itemID uuid.UUID) (bool, error)
}

// ItemDetails carries the non-stock fields writable after creation. Stock and
// status never travel through here; status is recomputed by the caller from
// the new bounds and written alongside.
type ItemDetails struct {
	Name          string
	Category      enums.ItemCategory
	Unit          enums.ItemUnit
	MinStock      int
	MaxStock      int
	PurchasePrice decimal.Decimal
	SellingPrice  decimal.Decimal
	ExpiryDate    *time.Time
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an items repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

// ListItemsParams filters and paginates the items listing.
type ListItemsParams struct {
	Status   *enums.ItemStatus
	Category *enums.ItemCategory
	Search   string
	Limit    int
	Cursor   *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repositoryImpl) GetByID(ctx context.Context, itemID uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active", itemID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repositoryImpl) List(ctx context.Context, params ListItemsParams) ([]models.InventoryItem, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.InventoryItem{}).Where("is_active")
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Category != nil {
		query = query.Where("category = ?", *params.Category)
	}
	if params.Search != "" {
		pattern := "%" + params.Search + "%"
		query = query.Where("name LIKE ? OR sku LIKE ?", pattern, pattern)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var items []models.InventoryItem
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&items).Error; err != nil {
		return nil, nil, err
	}

	if len(items) > normalized {
		next := items[normalized]
		items = items[:normalized]
		return items, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return items, nil, nil
}

// ListActiveBatch pages through active items by primary key so the sweep can
// walk the whole table without holding it in memory at once.
func (r *repositoryImpl) ListActiveBatch(ctx context.Context, afterID uuid.UUID, limit int) ([]models.InventoryItem, error) {
	query := r.db.WithContext(ctx).Model(&models.InventoryItem{}).Where("is_active")
	if afterID != uuid.Nil {
		query = query.Where("id > ?", afterID)
	}
	var items []models.InventoryItem
	if err := query.Order("id ASC").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateStockVersioned applies the stock/status write guarded by the version
// column. A false return means another writer won the race and the caller
// must re-read and retry.
func (r *repositoryImpl) UpdateStockVersioned(ctx context.Context, itemID uuid.UUID, fromVersion, newStock int, newStatus enums.ItemStatus, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ? AND version = ? AND is_active", itemID, fromVersion).
		UpdateColumns(map[string]any{
			"stock":      newStock,
			"status":     newStatus,
			"version":    fromVersion + 1,
			"updated_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateDetailsVersioned rewrites the descriptive fields under the same
// version guard the ledger uses, so a detail edit cannot clobber a concurrent
// stock mutation.
func (r *repositoryImpl) UpdateDetailsVersioned(ctx context.Context, itemID uuid.UUID, fromVersion int, details ItemDetails, newStatus enums.ItemStatus, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ? AND version = ? AND is_active", itemID, fromVersion).
		UpdateColumns(map[string]any{
			"name":           details.Name,
			"category":       details.Category,
			"unit":           details.Unit,
			"min_stock":      details.MinStock,
			"max_stock":      details.MaxStock,
			"purchase_price": details.PurchasePrice,
			"selling_price":  details.SellingPrice,
			"expiry_date":    details.ExpiryDate,
			"status":         newStatus,
			"version":        fromVersion + 1,
			"updated_at":     now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) SoftDelete(ctx context.Context, itemID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ? AND is_active", itemID).
		UpdateColumn("is_active", false)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
