package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type AddressHTTP struct {
	Svc *service.AddressService
}

func (h *AddressHTTP) Exists(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "address.exists")
	p, _ := identity.CurrentUser(c)

	has, err := h.Svc.HasAddress(ctx, p.ID)
	if err != nil {
		return fail(l, "address_exists_failed", err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"has_address": has})
}

func (h *AddressHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "address.list")
	p, _ := identity.CurrentUser(c)

	items, err := h.Svc.List(ctx, p.ID)
	if err != nil {
		return fail(l, "address_list_failed", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": items})
}

func (h *AddressHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "address.get")
	p, _ := identity.CurrentUser(c)

	id, err := paramID(c, "id")
	if err != nil {
		return fail(l, "address_get_failed", err)
	}
	addr, err := h.Svc.Get(ctx, id, p.ID)
	if err != nil {
		return fail(l, "address_get_failed", err)
	}
	if addr == nil {
		return c.JSON(http.StatusOK, nil)
	}
	return c.JSON(http.StatusOK, addr)
}

func (h *AddressHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "address.create")
	p, _ := identity.CurrentUser(c)

	var req transport.AddressRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "address_create_failed", err)
	}
	addr, err := h.Svc.Add(ctx, p.ID, req)
	if err != nil {
		return fail(l, "address_create_failed", err)
	}

	l.Info("address_create_success", "address_id", addr.ID)
	return c.JSON(http.StatusCreated, addr)
}

func (h *AddressHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "address.update")
	p, _ := identity.CurrentUser(c)

	id, err := paramID(c, "id")
	if err != nil {
		return fail(l, "address_update_failed", err)
	}
	var req transport.AddressRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "address_update_failed", err)
	}
	addr, err := h.Svc.Update(ctx, id, p.ID, req)
	if err != nil {
		return fail(l, "address_update_failed", err)
	}

	l.Info("address_update_success", "address_id", addr.ID)
	return c.JSON(http.StatusOK, addr)
}

func (h *AddressHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "address.delete")
	p, _ := identity.CurrentUser(c)

	id, err := paramID(c, "id")
	if err != nil {
		return fail(l, "address_delete_failed", err)
	}
	addr, err := h.Svc.Delete(ctx, id, p.ID)
	if err != nil {
		return fail(l, "address_delete_failed", err)
	}

	l.Info("address_delete_success", "address_id", addr.ID)
	return c.JSON(http.StatusOK, addr)
}
