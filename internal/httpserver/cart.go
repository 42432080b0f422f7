package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get")
	p, _ := identity.CurrentUser(c)

	view, err := h.Svc.List(ctx, p.ID)
	if err != nil {
		return fail(l, "get_cart_failed", err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")
	p, _ := identity.CurrentUser(c)

	var req transport.AddCartItemRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "add_to_cart_failed", err)
	}
	item, err := h.Svc.Add(ctx, p.ID, req)
	if err != nil {
		return fail(l, "add_to_cart_failed", err)
	}

	l.Info("add_to_cart_success", "cart_item_id", item.ID, "quantity", item.Quantity)
	return c.JSON(http.StatusOK, item)
}

func (h *CartHTTP) UpdateQuantity(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.update_quantity")
	p, _ := identity.CurrentUser(c)

	id, err := paramID(c, "id")
	if err != nil {
		return fail(l, "update_cart_failed", err)
	}
	var req transport.UpdateCartItemRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "update_cart_failed", err)
	}
	item, err := h.Svc.UpdateQuantity(ctx, id, p.ID, req)
	if err != nil {
		return fail(l, "update_cart_failed", err)
	}

	l.Info("update_cart_success", "cart_item_id", item.ID, "quantity", item.Quantity)
	return c.JSON(http.StatusOK, item)
}

func (h *CartHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove")
	p, _ := identity.CurrentUser(c)

	id, err := paramID(c, "id")
	if err != nil {
		return fail(l, "remove_from_cart_failed", err)
	}
	if _, err := h.Svc.Remove(ctx, id, p.ID); err != nil {
		return fail(l, "remove_from_cart_failed", err)
	}

	l.Info("remove_from_cart_success", "cart_item_id", id)
	return c.NoContent(http.StatusNoContent)
}
