package controllers

import (
	"context"
	"net/http"

	"github.com/dmarroquin/clinicstock-backend/api/responses"
	"github.com/dmarroquin/clinicstock-backend/api/validators"
	"github.com/dmarroquin/clinicstock-backend/internal/alerts"
	"github.com/dmarroquin/clinicstock-backend/pkg/enums"
	pkgerrors "github.com/dmarroquin/clinicstock-backend/pkg/errors"
	"github.com/dmarroquin/clinicstock-backend/pkg/logger"
	"github.com/dmarroquin/clinicstock-backend/pkg/pagination"
)

// AlertScanner produces the current alert set from live inventory state.
type AlertScanner interface {
	Scan(ctx context.Context) ([]alerts.Alert, error)
}

type alertCounts struct {
	LowStock   int `json:"lowStock"`
	OutOfStock int `json:"outOfStock"`
	Expiring   int `json:"expiring"`
	Total      int `json:"total"`
}

type alertFeedResponse struct {
	Alerts map[enums.AlertType][]alerts.Alert `json:"alerts"`
	Counts alertCounts                        `json:"counts"`
	Limit  int                                `json:"limit"`
	Offset int                                `json:"offset"`
}

// ListAlerts evaluates the inventory on demand and returns every item in an
// alertable state, grouped by alert type with aggregate counts. The result
// reflects the database now, not the audit trail. Counts always cover the
// whole scan; limit/offset page the returned alert list.
func ListAlerts(scanner AlertScanner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if scanner == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "alert scanner unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		found, err := scanner.Scan(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		counts := alertCounts{Total: len(found)}
		for _, alert := range found {
			switch alert.Type {
			case enums.AlertTypeLowStock:
				counts.LowStock++
			case enums.AlertTypeOutOfStock:
				counts.OutOfStock++
			case enums.AlertTypeExpiring:
				counts.Expiring++
			}
		}

		page := found
		if offset >= len(page) {
			page = nil
		} else {
			page = page[offset:]
		}
		if len(page) > limit {
			page = page[:limit]
		}

		grouped := map[enums.AlertType][]alerts.Alert{
			enums.AlertTypeLowStock:   {},
			enums.AlertTypeOutOfStock: {},
			enums.AlertTypeExpiring:   {},
		}
		for _, alert := range page {
			grouped[alert.Type] = append(grouped[alert.Type], alert)
		}

		responses.WriteSuccess(w, alertFeedResponse{
			Alerts: grouped,
			Counts: counts,
			Limit:  limit,
			Offset: offset,
		})
	}
}
