package alerts

import (
	"context"
	"fmt"

	"github.com/dmarroquin/clinicstock-backend/internal/ledger"
	pkgerrors "github.com/dmarroquin/clinicstock-backend/pkg/errors"
	"github.com/dmarroquin/clinicstock-backend/pkg/logger"
	"github.com/dmarroquin/clinicstock-backend/pkg/metrics"
)

// Engine drives alert evaluation end to end: scan, suppression check, then
// fan-out through the dispatcher. It also reacts to ledger change events so
// status downgrades surface before the next scheduled sweep.
type Engine struct {
	scanner    *Scanner
	suppressor Suppressor
	dispatcher Dispatcher
	logg       *logger.Logger
	metrics    *metrics.SweepJobMetrics
}

// SweepStats summarizes one sweep pass.
type SweepStats struct {
	Evaluated  int
	Dispatched int
	Suppressed int
}

// NewEngine wires the alert engine.
func NewEngine(scanner *Scanner, suppressor Suppressor, dispatcher Dispatcher, logg *logger.Logger, sweepMetrics *metrics.SweepJobMetrics) (*Engine, error) {
	if scanner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "scanner required")
	}
	if suppressor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "suppressor required")
	}
	if dispatcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "dispatcher required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Engine{
		scanner:    scanner,
		suppressor: suppressor,
		dispatcher: dispatcher,
		logg:       logg,
		metrics:    sweepMetrics,
	}, nil
}

// Sweep runs one full pass over all active items.
func (e *Engine) Sweep(ctx context.Context) (SweepStats, error) {
	alerts, err := e.scanner.Scan(ctx)
	if err != nil {
		return SweepStats{}, err
	}
	stats := e.handleAlerts(ctx, alerts)
	stats.Evaluated = len(alerts)
	e.logg.Info(e.logg.WithFields(ctx, map[string]any{
		"evaluated":  stats.Evaluated,
		"dispatched": stats.Dispatched,
		"suppressed": stats.Suppressed,
	}), "alert sweep completed")
	return stats, nil
}

// HandleItemChange implements ledger.ChangeListener. Only downgrades
// re-evaluate immediately; recoveries wait for the next sweep.
func (e *Engine) HandleItemChange(ctx context.Context, event ledger.ChangeEvent) {
	if !event.NewStatus.IsDowngradeFrom(event.PreviousStatus) {
		return
	}
	ctx = e.logg.WithItemID(ctx, event.Item.ID.String())
	alerts := e.scanner.Evaluate(event.Item, event.Transaction.CreatedAt)
	e.handleAlerts(ctx, alerts)
}

func (e *Engine) handleAlerts(ctx context.Context, alerts []Alert) SweepStats {
	var stats SweepStats
	for _, alert := range alerts {
		if !e.suppressor.ShouldDispatch(ctx, alert) {
			stats.Suppressed++
			e.metrics.IncAlert(alert.Type.String(), "suppressed")
			if err := e.dispatcher.RecordSuppressed(ctx, alert); err != nil {
				e.logg.Error(ctx, fmt.Sprintf("recording suppressed %s alert failed", alert.Type), err)
			}
			continue
		}

		report := e.dispatcher.Dispatch(ctx, alert)
		e.suppressor.MarkDispatched(ctx, alert)
		stats.Dispatched++
		e.metrics.IncAlert(alert.Type.String(), "delivered")
		if !report.AuditLogged {
			e.logg.Warn(ctx, fmt.Sprintf("audit entry missing for %s alert on %s", alert.Type, alert.ItemID))
		}
	}
	return stats
}
