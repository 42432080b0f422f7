package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) CountAddresses(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&models.ShippingAddress{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *GormRepo) CreateAddress(ctx context.Context, addr *models.ShippingAddress) error {
	return r.DB.WithContext(ctx).Create(addr).Error
}

func (r *GormRepo) ListAddresses(ctx context.Context, userID uuid.UUID) ([]models.ShippingAddress, error) {
	var items []models.ShippingAddress
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("updated_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) GetAddress(ctx context.Context, id uuid.UUID) (*models.ShippingAddress, error) {
	var addr models.ShippingAddress
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&addr).Error; err != nil {
		return nil, err
	}
	return &addr, nil
}

// UpdateAddress locks the row, lets fn check and modify it, then saves.
func (r *GormRepo) UpdateAddress(ctx context.Context, id uuid.UUID, fn func(*models.ShippingAddress) error) (*models.ShippingAddress, error) {
	var addr models.ShippingAddress
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&addr).Error; err != nil {
			return err
		}
		if err := fn(&addr); err != nil {
			return err
		}
		return tx.Save(&addr).Error
	})
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

func (r *GormRepo) DeleteAddress(ctx context.Context, id uuid.UUID, check func(*models.ShippingAddress) error) (*models.ShippingAddress, error) {
	var addr models.ShippingAddress
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&addr).Error; err != nil {
			return err
		}
		if err := check(&addr); err != nil {
			return err
		}
		return tx.Delete(&addr).Error
	})
	if err != nil {
		return nil, err
	}
	return &addr, nil
}
