package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
)

// CreatePaymentRecord inserts rec unless a record for the same processor
// order exists. It returns the stored row and whether it was created now.
func (r *GormRepo) CreatePaymentRecord(ctx context.Context, rec *models.PaymentRecord) (*models.PaymentRecord, bool, error) {
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "processor_order_id"}}, DoNothing: true}).
		Create(rec)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return rec, true, nil
	}

	existing, err := r.GetPaymentRecord(ctx, rec.ProcessorOrderID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *GormRepo) GetPaymentRecord(ctx context.Context, processorOrderID string) (*models.PaymentRecord, error) {
	var rec models.PaymentRecord
	if err := r.DB.WithContext(ctx).Where("processor_order_id = ?", processorOrderID).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// WebhookOutcome is what applying a processor event did.
type WebhookOutcome struct {
	// Duplicate is set when the event was seen before; nothing else happened.
	Duplicate bool
	// Order is the order the event concerns, nil when no order matched.
	Order *models.Order
	// Changed is set when the order moved to the requested status now.
	Changed bool
	// Rejected holds the lifecycle error when the order cannot take the
	// requested status. The event is still recorded.
	Rejected error
}

// ApplyWebhookEvent records ev and, if it is new, moves the order paid by
// captureID to next. A capture with no matching order is recorded and
// otherwise ignored.
func (r *GormRepo) ApplyWebhookEvent(ctx context.Context, ev *models.WebhookEvent, captureID string, next models.OrderStatus) (*WebhookOutcome, error) {
	out := &WebhookOutcome{}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(ev)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			out.Duplicate = true
			return nil
		}
		if captureID == "" {
			return nil
		}

		var o models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("processor_capture_id = ?", captureID).First(&o).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		out.Order = &o
		if o.Status == next {
			return nil
		}
		if err := o.Transition(next); err != nil {
			out.Rejected = err
			return nil
		}
		out.Changed = true
		return tx.Model(&models.Order{}).Where("id = ?", o.ID).
			Updates(map[string]any{"status": o.Status, "updated_at": tx.NowFunc()}).Error
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
