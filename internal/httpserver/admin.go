package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/service"
)

type AdminHTTP struct {
	Access     *service.AccessService
	Reconciler *service.Reconciler
}

func (h *AdminHTTP) Users(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.users")
	p, _ := identity.CurrentUser(c)

	users, err := h.Access.ListUsers(ctx, p.ID)
	if err != nil {
		return fail(l, "list_users_failed", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": users})
}

// Reconcile runs one reconciliation pass on demand. The route is gated on
// the payments:reconcile capability.
func (h *AdminHTTP) Reconcile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.reconcile")

	rep, err := h.Reconciler.Run(ctx)
	if err != nil {
		return fail(l, "reconcile_failed", err)
	}

	l.Info("reconcile_success", "checked", rep.Checked, "resolved", rep.Resolved, "remaining", rep.Remaining)
	return c.JSON(http.StatusOK, rep)
}
