package dispatch

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dmarroquin/clinicstock-backend/pkg/db/models"
)

// AuditRepository persists the write-once alert audit trail.
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AlertLog) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type auditRepositoryImpl struct {
	db *gorm.DB
}

// NewAuditRepository returns an alert log repository bound to the provided database.
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepositoryImpl{db: db}
}

func (r *auditRepositoryImpl) Create(ctx context.Context, entry *models.AlertLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// DeleteOlderThan trims audit rows past the retention horizon.
func (r *auditRepositoryImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.AlertLog{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
