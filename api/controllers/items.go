package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmarroquin/clinicstock-backend/api/responses"
	"github.com/dmarroquin/clinicstock-backend/api/validators"
	"github.com/dmarroquin/clinicstock-backend/internal/items"
	"github.com/dmarroquin/clinicstock-backend/internal/realtime"
	"github.com/dmarroquin/clinicstock-backend/pkg/enums"
	pkgerrors "github.com/dmarroquin/clinicstock-backend/pkg/errors"
	"github.com/dmarroquin/clinicstock-backend/pkg/logger"
	"github.com/dmarroquin/clinicstock-backend/pkg/pagination"
)

// ListItems returns the paginated inventory listing with optional filters.
func ListItems(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "items service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := items.ListParams{
			Status:   strings.TrimSpace(r.URL.Query().Get("status")),
			Category: strings.TrimSpace(r.URL.Query().Get("category")),
			Search:   strings.TrimSpace(r.URL.Query().Get("search")),
			Cursor:   strings.TrimSpace(r.URL.Query().Get("cursor")),
			Limit:    limit,
		}

		resp, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// GetItem returns one inventory item by id.
func GetItem(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "items service unavailable"))
			return
		}

		itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id"))
			return
		}

		item, err := svc.Get(r.Context(), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

type createItemRequest struct {
	SKU           string          `json:"sku" validate:"required,min=2,max=64"`
	Name          string          `json:"name" validate:"required,min=2,max=200"`
	Category      string          `json:"category" validate:"required"`
	Unit          string          `json:"unit" validate:"required"`
	MinStock      int             `json:"minStock" validate:"gte=0"`
	MaxStock      int             `json:"maxStock" validate:"gte=0"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	SellingPrice  decimal.Decimal `json:"sellingPrice"`
	ExpiryDate    *time.Time      `json:"expiryDate,omitempty"`
}

type updateItemRequest struct {
	Name          string          `json:"name" validate:"required,min=2,max=200"`
	Category      string          `json:"category" validate:"required"`
	Unit          string          `json:"unit" validate:"required"`
	MinStock      int             `json:"minStock" validate:"gte=0"`
	MaxStock      int             `json:"maxStock" validate:"gte=0"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	SellingPrice  decimal.Decimal `json:"sellingPrice"`
	ExpiryDate    *time.Time      `json:"expiryDate,omitempty"`
}

// CreateItem registers a new catalog entry. Items start at zero stock; the
// opening balance is booked through the ledger afterwards.
func CreateItem(svc items.Service, broadcaster *realtime.Broadcaster, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "items service unavailable"))
			return
		}

		var body createItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Create(r.Context(), items.CreateParams{
			SKU:           strings.TrimSpace(body.SKU),
			Name:          strings.TrimSpace(body.Name),
			Category:      body.Category,
			Unit:          body.Unit,
			MinStock:      body.MinStock,
			MaxStock:      body.MaxStock,
			PurchasePrice: body.PurchasePrice,
			SellingPrice:  body.SellingPrice,
			ExpiryDate:    body.ExpiryDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if broadcaster != nil {
			broadcaster.PublishToItem(r.Context(), item.ID, realtime.InventoryUpdateEvent{
				Type:    enums.InventoryEventItemCreated,
				ItemID:  &item.ID,
				Item:    item,
				Message: fmt.Sprintf("%s added to the catalog", item.Name),
				At:      item.CreatedAt,
			})
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

// UpdateItem rewrites the descriptive fields of an item and mirrors the
// change into the item's realtime feed.
func UpdateItem(svc items.Service, broadcaster *realtime.Broadcaster, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "items service unavailable"))
			return
		}

		itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id"))
			return
		}

		var body updateItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Update(r.Context(), itemID, items.UpdateParams{
			Name:          strings.TrimSpace(body.Name),
			Category:      body.Category,
			Unit:          body.Unit,
			MinStock:      body.MinStock,
			MaxStock:      body.MaxStock,
			PurchasePrice: body.PurchasePrice,
			SellingPrice:  body.SellingPrice,
			ExpiryDate:    body.ExpiryDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if broadcaster != nil {
			broadcaster.PublishToItem(r.Context(), item.ID, realtime.InventoryUpdateEvent{
				Type:    enums.InventoryEventItemUpdated,
				ItemID:  &item.ID,
				Item:    item,
				Message: fmt.Sprintf("%s details updated", item.Name),
				At:      item.UpdatedAt,
			})
		}
		responses.WriteSuccess(w, item)
	}
}

// DeleteItem soft-deletes an item; its ledger history stays intact.
func DeleteItem(svc items.Service, broadcaster *realtime.Broadcaster, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "items service unavailable"))
			return
		}

		itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id"))
			return
		}

		if err := svc.Delete(r.Context(), itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if broadcaster != nil {
			broadcaster.PublishToItem(r.Context(), itemID, realtime.InventoryUpdateEvent{
				Type:    enums.InventoryEventItemDeleted,
				ItemID:  &itemID,
				Message: "item removed from the catalog",
				At:      time.Now().UTC(),
			})
		}
		responses.WriteSuccess(w, map[string]any{"status": "deleted"})
	}
}
