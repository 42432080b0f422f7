package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) CreateCheckoutSession(ctx context.Context, s *models.CheckoutSession) error {
	return r.DB.WithContext(ctx).Create(s).Error
}

func (r *GormRepo) GetCheckoutSession(ctx context.Context, id uuid.UUID) (*models.CheckoutSession, error) {
	var s models.CheckoutSession
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *GormRepo) GetCheckoutSessionByKey(ctx context.Context, key string) (*models.CheckoutSession, error) {
	var s models.CheckoutSession
	if err := r.DB.WithContext(ctx).Where("idempotency_key = ?", key).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateCheckoutSession writes fields and refreshes s from the stored row.
func (r *GormRepo) UpdateCheckoutSession(ctx context.Context, s *models.CheckoutSession, fields map[string]any) error {
	fields["updated_at"] = r.DB.NowFunc()
	if err := r.DB.WithContext(ctx).Model(&models.CheckoutSession{}).Where("id = ?", s.ID).Updates(fields).Error; err != nil {
		return err
	}
	return r.DB.WithContext(ctx).Where("id = ?", s.ID).First(s).Error
}

func (r *GormRepo) ListCheckoutSessions(ctx context.Context, status models.CheckoutStatus, limit int) ([]models.CheckoutSession, error) {
	var out []models.CheckoutSession
	if err := r.DB.WithContext(ctx).
		Where("status = ?", status).
		Order("updated_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormRepo) CountCheckoutSessions(ctx context.Context, status models.CheckoutStatus) (int64, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&models.CheckoutSession{}).Where("status = ?", status).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// MaterializeOrder turns a captured checkout into an order in one
// transaction: order and items are inserted, stock is decremented, the
// purchased cart lines are removed and the session is marked completed.
// If the session was already completed it returns ErrAlreadyDone.
func (r *GormRepo) MaterializeOrder(ctx context.Context, sessionID uuid.UUID, cartItemIDs []uuid.UUID, order *models.Order) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var s models.CheckoutSession
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", sessionID).First(&s).Error; err != nil {
			return err
		}
		if s.Status == models.CheckoutCompleted {
			return ErrAlreadyDone
		}

		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for _, it := range order.Items {
			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock >= ?", it.ProductID, it.Quantity).
				Update("stock", gorm.Expr("stock - ?", it.Quantity))
			if res.Error != nil {
				return fmt.Errorf("decrement stock: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("product %s: %w", it.ProductID, ErrOutOfStock)
			}
		}

		if err := tx.Where("user_id = ? AND id IN ?", order.UserID, cartItemIDs).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("clear cart lines: %w", err)
		}

		return tx.Model(&models.CheckoutSession{}).Where("id = ?", sessionID).Updates(map[string]any{
			"status":               models.CheckoutCompleted,
			"order_id":             order.ID,
			"processor_capture_id": order.ProcessorCaptureID,
			"failure_reason":       "",
			"updated_at":           tx.NowFunc(),
		}).Error
	})
}
