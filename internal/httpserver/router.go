package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/metrics"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	"github.com/Skotchmaster/storefront/internal/service"
)

const webhookPath = "/api/v1/payments/webhook"

type Deps struct {
	DB       *gorm.DB
	Identity *identity.Middleware
	CSRF     csrf.Config

	Addresses *AddressHTTP
	Catalog   *CatalogHTTP
	Cart      *CartHTTP
	Checkout  *CheckoutHTTP
	Orders    *OrderHTTP
	Payments  *PaymentHTTP
	Admin     *AdminHTTP
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", ready(d.DB))
	e.GET("/metrics", metrics.Handler())

	cfg := d.CSRF
	cfg.SkipPaths = append(cfg.SkipPaths, webhookPath)
	if cfg.Skipper == nil {
		cfg.Skipper = csrf.CookieOnly(identity.AccessCookie)
	}

	v1 := e.Group("/api/v1", d.Identity.Resolve, csrf.Middleware(cfg))
	auth := d.Identity.RequireAuth

	v1.GET("/search", d.Catalog.Search)

	products := v1.Group("/products")
	products.GET("", d.Catalog.GetProducts)
	products.GET("/categories", d.Catalog.Categories)
	products.GET("/mine", d.Catalog.Mine, auth)
	products.GET("/:id", d.Catalog.GetProduct)
	products.POST("", d.Catalog.CreateProduct, auth)
	products.PATCH("/:id", d.Catalog.PatchProduct, auth)
	products.DELETE("/:id", d.Catalog.DeleteProduct, auth)

	addresses := v1.Group("/addresses")
	addresses.GET("", d.Addresses.List)
	addresses.GET("/exists", d.Addresses.Exists)
	addresses.GET("/:id", d.Addresses.Get)
	addresses.POST("", d.Addresses.Create, auth)
	addresses.PUT("/:id", d.Addresses.Update, auth)
	addresses.DELETE("/:id", d.Addresses.Delete, auth)

	cart := v1.Group("/cart")
	cart.GET("", d.Cart.GetCart)
	cart.POST("", d.Cart.AddToCart, auth)
	cart.PATCH("/:id", d.Cart.UpdateQuantity, auth)
	cart.DELETE("/:id", d.Cart.RemoveItem, auth)

	checkout := v1.Group("/checkout", auth)
	checkout.GET("/readiness", d.Checkout.Readiness)
	checkout.POST("", d.Checkout.Begin)
	checkout.POST("/:id/capture", d.Checkout.Capture)

	orders := v1.Group("/orders", auth)
	orders.GET("", d.Orders.List)
	orders.GET("/:id", d.Orders.Get)

	v1.POST("/payment", d.Payments.Record)
	v1.POST("/payments/webhook", d.Payments.Webhook)

	admin := v1.Group("/admin", auth)
	admin.GET("/users", d.Admin.Users)
	admin.POST("/reconcile", d.Admin.Reconcile, authmw.RequireCapability(d.Admin.Access, service.CapReconcilePayments))
	admin.PATCH("/orders/:id/status", d.Orders.UpdateStatus)
}

func ready(gdb *gorm.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx, gdb); err != nil {
			logging.FromContext(ctx).Warn("readiness_failed", "error", err)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}
