package httpserver

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
)

const maxWebhookBody = 1 << 20

type PaymentHTTP struct {
	Svc      *service.PaymentService
	Webhooks *service.WebhookService
}

// Record stores the payer details the storefront posts once the payer has
// approved the payment. Replays answer 200 with the stored record.
func (h *PaymentHTTP) Record(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.record")

	var req transport.PaymentRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "payment_record_failed", err)
	}
	rec, created, err := h.Svc.Record(ctx, req)
	if err != nil {
		return fail(l, "payment_record_failed", err)
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	l.Info("payment_record_success", "processor_order_id", rec.ProcessorOrderID, "created", created)
	return c.JSON(status, map[string]any{"status": "success", "data": rec})
}

func (h *PaymentHTTP) Webhook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.webhook")

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return badBody(l, "webhook_failed", err)
	}
	if len(body) == 0 {
		return fail(l, "webhook_failed", apperr.Invalid("empty webhook body"))
	}

	res, err := h.Webhooks.Handle(ctx, c.Request().Header, body)
	if err != nil {
		return fail(l, "webhook_failed", err)
	}
	return c.JSON(http.StatusOK, res)
}
