// Package auth gates routes on the caller's capabilities.
package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/service"
)

// RequireCapability lets the request through only when the resolved caller
// holds c. Anonymous callers get AuthenticationMissing.
func RequireCapability(access *service.AccessService, c service.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ec echo.Context) error {
			p, ok := identity.CurrentUser(ec)
			if !ok {
				return apperr.Unauthenticated("sign in to continue")
			}
			if err := access.Require(ec.Request().Context(), p.ID, c); err != nil {
				logging.FromContext(ec.Request().Context()).Warn("capability_denied",
					"user_id", p.ID, "capability", string(c), "error", err)
				return err
			}
			return next(ec)
		}
	}
}
