package service

import (
	"context"
	"fmt"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type PaymentService struct {
	Repo      *repo.GormRepo
	Processor payment.Processor
	Events    events.Publisher
}

// Record stores the payer details reported for a captured processor order.
// The processor's capture must be completed for the full order amount and
// match the reported amount. A second report for the same order returns the
// stored record with created false.
func (s *PaymentService) Record(ctx context.Context, req transport.PaymentRequest) (*models.PaymentRecord, bool, error) {
	if err := transport.Validate(&req); err != nil {
		return nil, false, err
	}

	po, err := s.Processor.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, false, apperr.External(processorName, err)
	}
	c := po.Captured()
	if c == nil {
		return nil, false, apperr.Invalid(fmt.Sprintf("payment is %s at the processor and not captured", po.Status))
	}
	if c.Status != payment.StatusCompleted {
		return nil, false, apperr.Invalid(fmt.Sprintf("capture is %s at the processor", c.Status))
	}
	// a capture short of the order amount is not a settled payment, whatever
	// amount the payer reports
	if err := c.Verify(po.Amount, po.Currency); err != nil {
		return nil, false, apperr.Invalid("captured amount does not match the processor order")
	}
	if !c.Amount.Equal(req.Amount.Round(2)) {
		return nil, false, apperr.Invalid(fmt.Sprintf("amount %s does not match the captured payment", req.Amount.StringFixed(2)))
	}

	rec, created, err := s.Repo.CreatePaymentRecord(ctx, &models.PaymentRecord{
		ProcessorOrderID: req.OrderID,
		PayerName:        req.Name,
		PayerEmail:       req.Email,
		Amount:           c.Amount,
		Currency:         c.Currency,
		Status:           c.Status,
	})
	if err != nil {
		return nil, false, translate("payment.record", "payment", err)
	}
	if created {
		events.Emit(ctx, s.Events, events.TopicPayments, events.PaymentRecorded, rec.ID.String(), map[string]any{
			"processor_order_id": rec.ProcessorOrderID,
			"amount":             rec.Amount,
			"currency":           rec.Currency,
		})
	}
	return rec, created, nil
}
