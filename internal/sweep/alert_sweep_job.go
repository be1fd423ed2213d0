package sweep

import (
	"context"
	"fmt"

	"github.com/dmarroquin/clinicstock-backend/internal/alerts"
	"github.com/dmarroquin/clinicstock-backend/pkg/logger"
)

type alertEngine interface {
	Sweep(ctx context.Context) (alerts.SweepStats, error)
}

// AlertSweepJobParams configure the periodic inventory alert sweep.
type AlertSweepJobParams struct {
	Logger *logger.Logger
	Engine alertEngine
}

// NewAlertSweepJob builds the job that walks the active inventory and
// dispatches alerts for every item in an alertable state.
func NewAlertSweepJob(params AlertSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("alert engine required")
	}
	return &alertSweepJob{
		logg:   params.Logger,
		engine: params.Engine,
	}, nil
}

type alertSweepJob struct {
	logg   *logger.Logger
	engine alertEngine
}

func (j *alertSweepJob) Name() string { return "alert-sweep" }

func (j *alertSweepJob) Run(ctx context.Context) error {
	stats, err := j.engine.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("alert sweep: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"alerts_evaluated":  stats.Evaluated,
		"alerts_dispatched": stats.Dispatched,
		"alerts_suppressed": stats.Suppressed,
	})
	j.logg.Info(logCtx, "alert sweep complete")
	return nil
}
