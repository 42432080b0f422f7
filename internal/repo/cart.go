package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) ListCart(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.DB.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// GetCartItems loads the given lines of userID's cart; ids owned by someone
// else are simply absent from the result.
func (r *GormRepo) GetCartItems(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	if len(ids) == 0 {
		return items, nil
	}
	if err := r.DB.WithContext(ctx).
		Preload("Product").
		Where("user_id = ? AND id IN ?", userID, ids).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) CountCart(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&models.CartItem{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// AddToCart increments the (user, product) line by qty, or creates it. The
// resulting quantity never exceeds the product's stock.
func (r *GormRepo) AddToCart(ctx context.Context, userID, productID uuid.UUID, qty int) (*models.CartItem, error) {
	var item models.CartItem
	add := func(tx *gorm.DB) error {
		var prod models.Product
		if err := tx.Clauses(clause.Locking{Strength: "SHARE"}).Where("id = ?", productID).First(&prod).Error; err != nil {
			return err
		}
		if prod.Stock <= 0 {
			return ErrOutOfStock
		}

		res := tx.Model(&models.CartItem{}).
			Where("user_id = ? AND product_id = ?", userID, productID).
			Updates(map[string]any{
				"quantity":   gorm.Expr("CASE WHEN quantity + ? > ? THEN ? ELSE quantity + ? END", qty, prod.Stock, prod.Stock, qty),
				"version":    gorm.Expr("version + 1"),
				"updated_at": tx.NowFunc(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return tx.Preload("Product").Where("user_id = ? AND product_id = ?", userID, productID).First(&item).Error
		}

		item = models.CartItem{UserID: userID, ProductID: productID, Quantity: min(qty, prod.Stock), Version: 1}
		if err := tx.Omit(clause.Associations).Create(&item).Error; err != nil {
			return err
		}
		item.Product = prod
		return nil
	}

	err := r.DB.WithContext(ctx).Transaction(add)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// lost the insert race to a concurrent add; the row exists now
		err = r.DB.WithContext(ctx).Transaction(add)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateCartQuantity sets the line to qty (clamped to stock) under a row
// lock. When expectedVersion is set the write only applies if the line is
// still at that version.
func (r *GormRepo) UpdateCartQuantity(ctx context.Context, id, userID uuid.UUID, qty int, expectedVersion *int) (*models.CartItem, error) {
	var item models.CartItem
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&item).Error; err != nil {
			return err
		}
		if item.UserID != userID {
			return ErrNotOwner
		}
		if expectedVersion != nil && *expectedVersion != item.Version {
			return ErrVersionMismatch
		}

		var prod models.Product
		if err := tx.Where("id = ?", item.ProductID).First(&prod).Error; err != nil {
			return err
		}
		if prod.Stock <= 0 {
			return ErrOutOfStock
		}

		res := tx.Model(&models.CartItem{}).
			Where("id = ? AND version = ?", item.ID, item.Version).
			Updates(map[string]any{
				"quantity":   min(qty, prod.Stock),
				"version":    item.Version + 1,
				"updated_at": tx.NowFunc(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVersionMismatch
		}
		return tx.Preload("Product").Where("id = ?", item.ID).First(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormRepo) RemoveCartItem(ctx context.Context, id, userID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&item).Error; err != nil {
			return err
		}
		if item.UserID != userID {
			return ErrNotOwner
		}
		return tx.Delete(&models.CartItem{}, "id = ?", item.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}
