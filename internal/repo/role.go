package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) ListRoles(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var roles []string
	if err := r.DB.WithContext(ctx).Model(&models.UserRole{}).Where("user_id = ?", userID).Pluck("role", &roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *GormRepo) GrantRole(ctx context.Context, role *models.UserRole) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(role).Error
}
