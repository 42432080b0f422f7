package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list")
	p, _ := identity.CurrentUser(c)

	res, err := h.Svc.List(ctx, p.ID)
	if err != nil {
		return fail(l, "list_orders_failed", err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *OrderHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get")
	p, _ := identity.CurrentUser(c)

	id, err := paramID(c, "id")
	if err != nil {
		return fail(l, "get_order_failed", err)
	}
	o, err := h.Svc.Get(ctx, id, p.ID)
	if err != nil {
		return fail(l, "get_order_failed", err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_status")
	p, _ := identity.CurrentUser(c)

	id, err := paramID(c, "id")
	if err != nil {
		return fail(l, "update_order_status_failed", err)
	}
	var req transport.UpdateOrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "update_order_status_failed", err)
	}
	o, err := h.Svc.UpdateStatus(ctx, id, p.ID, req)
	if err != nil {
		return fail(l, "update_order_status_failed", err)
	}

	l.Info("update_order_status_success", "order_id", o.ID, "status", o.Status)
	return c.JSON(http.StatusOK, o)
}
