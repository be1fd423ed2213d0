package users

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmarroquin/clinicstock-backend/pkg/db/models"
	"github.com/dmarroquin/clinicstock-backend/pkg/enums"
)

// Repository resolves users for authorization and alert fan-out.
type Repository interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
	ListActiveByRoles(ctx context.Context, roles []enums.UserRole) ([]models.User, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a users repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListActiveByRoles returns every active user in any of the given roles. The
// dispatcher calls this with the inventory-manager role set on each alert.
func (r *repositoryImpl) ListActiveByRoles(ctx context.Context, roles []enums.UserRole) ([]models.User, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("is_active AND role IN ?", roles).
		Order("created_at ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
