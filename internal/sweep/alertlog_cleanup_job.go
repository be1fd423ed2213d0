package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/dmarroquin/clinicstock-backend/pkg/logger"
)

const alertLogRetentionDays = 90

type alertLogCleanupRepo interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// AlertLogCleanupJobParams configure the audit trail retention job.
type AlertLogCleanupJobParams struct {
	Logger     *logger.Logger
	Repository alertLogCleanupRepo
	Retention  int
}

// NewAlertLogCleanupJob builds the job that trims the alert audit trail.
func NewAlertLogCleanupJob(params AlertLogCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("alert log repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = alertLogRetentionDays
	}
	return &alertLogCleanupJob{
		logg:      params.Logger,
		repo:      params.Repository,
		retention: retention,
		now:       time.Now,
	}, nil
}

type alertLogCleanupJob struct {
	logg      *logger.Logger
	repo      alertLogCleanupRepo
	retention int
	now       func() time.Time
}

func (j *alertLogCleanupJob) Name() string { return "alertlog-cleanup" }

func (j *alertLogCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	deleted, err := j.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("alert log cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "alert log cleanup complete")
	return nil
}
