package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/util"
)

type CatalogHTTP struct {
	Svc *service.CatalogService
}

type productView struct {
	*models.Product
	Slug string `json:"slug"`
}

func views(items []models.Product) []productView {
	out := make([]productView, len(items))
	for i := range items {
		out[i] = productView{Product: &items[i], Slug: service.Slug(&items[i])}
	}
	return out
}

func (h *CatalogHTTP) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_products")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	res, err := h.Svc.Browse(ctx, repo.ProductFilter{
		Category: c.QueryParam("category"),
		Query:    c.QueryParam("q"),
		Offset:   offset,
		Limit:    limit,
	})
	if err != nil {
		return fail(l, "get_products_failed", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": views(res.Items),
		"meta": util.NewMeta(page, offset, limit, res.Total),
	})
}

func (h *CatalogHTTP) Categories(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.categories")

	cats, err := h.Svc.Categories(ctx)
	if err != nil {
		return fail(l, "get_categories_failed", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": cats})
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_product")

	p, err := h.Svc.Get(ctx, c.Param("id"))
	if err != nil {
		return fail(l, "get_product_failed", err)
	}
	return c.JSON(http.StatusOK, productView{Product: p, Slug: service.Slug(p)})
}

// Mine is the seller listing: the caller's products filtered by ?q=.
func (h *CatalogHTTP) Mine(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.mine")
	p, _ := identity.CurrentUser(c)

	items, err := h.Svc.List(ctx, p.ID, c.QueryParam("q"))
	if err != nil {
		return fail(l, "list_own_products_failed", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": views(items)})
}

func (h *CatalogHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.search")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	res, err := h.Svc.Search(ctx, c.QueryParam("q"), offset, limit)
	if err != nil {
		return fail(l, "search_failed", err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data": views(res.Items),
		"meta": util.NewMeta(page, offset, limit, res.Total),
	})
}

func (h *CatalogHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create")
	p, _ := identity.CurrentUser(c)

	var req transport.CreateProductRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "product_create_failed", err)
	}
	prod, err := h.Svc.Create(ctx, p.ID, req)
	if err != nil {
		return fail(l, "product_create_failed", err)
	}

	l.Info("product_create_success", "product_id", prod.ID)
	return c.JSON(http.StatusCreated, productView{Product: prod, Slug: service.Slug(prod)})
}

func (h *CatalogHTTP) PatchProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.patch")
	p, _ := identity.CurrentUser(c)

	id, err := paramID(c, "id")
	if err != nil {
		return fail(l, "product_patch_failed", err)
	}
	var req transport.PatchProductRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "product_patch_failed", err)
	}
	prod, err := h.Svc.Update(ctx, id, p.ID, req)
	if err != nil {
		return fail(l, "product_patch_failed", err)
	}

	l.Info("product_patch_success", "product_id", prod.ID)
	return c.JSON(http.StatusOK, productView{Product: prod, Slug: service.Slug(prod)})
}

func (h *CatalogHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete")
	p, _ := identity.CurrentUser(c)

	id, err := paramID(c, "id")
	if err != nil {
		return fail(l, "product_delete_failed", err)
	}
	prod, err := h.Svc.Delete(ctx, id, p.ID)
	if err != nil {
		return fail(l, "product_delete_failed", err)
	}

	l.Info("product_delete_success", "product_id", prod.ID)
	return c.NoContent(http.StatusNoContent)
}
