package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmarroquin/clinicstock-backend/api/controllers"
	"github.com/dmarroquin/clinicstock-backend/api/middleware"
	"github.com/dmarroquin/clinicstock-backend/internal/items"
	"github.com/dmarroquin/clinicstock-backend/internal/ledger"
	"github.com/dmarroquin/clinicstock-backend/internal/notifications"
	"github.com/dmarroquin/clinicstock-backend/internal/realtime"
	"github.com/dmarroquin/clinicstock-backend/pkg/config"
	"github.com/dmarroquin/clinicstock-backend/pkg/logger"
)

// RouterParams carries every dependency the HTTP surface needs.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	Readiness     map[string]controllers.Pinger
	Items         items.Service
	Ledger        ledger.Service
	Notifications notifications.Service
	AlertScanner  controllers.AlertScanner
	Registry      *realtime.Registry
	Broadcaster   *realtime.Broadcaster
	Metrics       prometheus.Gatherer
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.Readiness))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/items", controllers.ListItems(params.Items, logg))
			r.Get("/items/{itemID}", controllers.GetItem(params.Items, logg))
			r.Get("/items/{itemID}/stock-transactions", controllers.ListStockTransactions(params.Ledger, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireInventoryManager(logg))
				r.Post("/items", controllers.CreateItem(params.Items, params.Broadcaster, logg))
				r.Put("/items/{itemID}", controllers.UpdateItem(params.Items, params.Broadcaster, logg))
				r.Delete("/items/{itemID}", controllers.DeleteItem(params.Items, params.Broadcaster, logg))
				r.Post("/items/{itemID}/stock-transactions", controllers.ApplyStockTransaction(params.Ledger, logg))
			})
			r.Get("/alerts", controllers.ListAlerts(params.AlertScanner, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(params.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(params.Notifications, logg))
			r.Post("/{notificationID}/read", controllers.MarkNotificationRead(params.Notifications, logg))
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/stream", controllers.StreamEvents(params.Registry, logg))
			r.Post("/{connID}/rooms", controllers.JoinRoom(params.Registry, logg))
			r.Delete("/{connID}/rooms", controllers.LeaveRoom(params.Registry, logg))
		})
	})

	return r
}
