package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type CheckoutHTTP struct {
	Svc *service.CheckoutService
}

func (h *CheckoutHTTP) Readiness(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.readiness")
	p, _ := identity.CurrentUser(c)

	r, err := h.Svc.Readiness(ctx, p.ID)
	if err != nil {
		return fail(l, "checkout_readiness_failed", err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *CheckoutHTTP) Begin(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.begin")
	p, _ := identity.CurrentUser(c)

	var req transport.BeginCheckoutRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "checkout_begin_failed", err)
	}
	sess, replayed, err := h.Svc.Begin(ctx, p, req)
	if err != nil {
		return fail(l, "checkout_begin_failed", err)
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	l.Info("checkout_begin_success", "checkout_id", sess.ID, "processor_order_id", sess.ProcessorOrderID, "replayed", replayed)
	return c.JSON(status, sess)
}

func (h *CheckoutHTTP) Capture(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.capture")
	p, _ := identity.CurrentUser(c)

	id, err := paramID(c, "id")
	if err != nil {
		return fail(l, "checkout_capture_failed", err)
	}
	var req transport.CaptureRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "checkout_capture_failed", err)
	}
	res, err := h.Svc.Capture(ctx, p, id, req)
	if err != nil {
		return fail(l, "checkout_capture_failed", err)
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	l.Info("checkout_capture_success", "checkout_id", id, "order_id", res.Order.ID, "replayed", res.Replayed)
	return c.JSON(status, res.Order)
}
