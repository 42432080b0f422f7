package service

import (
	"context"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type CatalogService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
	// Index is optional; without it search runs against the database.
	Index search.Index
}

type ProductPage struct {
	Total int64
	Items []models.Product
}

// Slug is the public product reference: "<id>--<slugified name>".
func Slug(p *models.Product) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(p.Name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return p.ID.String() + "--" + strings.TrimRight(b.String(), "-")
}

// ParseProductRef accepts either a bare id or a slug.
func ParseProductRef(ref string) (uuid.UUID, error) {
	idPart, _, _ := strings.Cut(ref, "--")
	id, err := uuid.Parse(idPart)
	if err != nil {
		return uuid.Nil, apperr.Invalid("product id is not a valid uuid")
	}
	return id, nil
}

func ownsProduct(userID uuid.UUID) func(*models.Product) error {
	return func(p *models.Product) error {
		if p.UserID != userID {
			return apperr.Forbidden("product belongs to another seller")
		}
		return nil
	}
}

// List is the seller view of their own products, optionally filtered by a
// case-insensitive name substring.
func (s *CatalogService) List(ctx context.Context, userID uuid.UUID, term string) ([]models.Product, error) {
	if userID == uuid.Nil {
		return []models.Product{}, nil
	}
	items, err := s.Repo.ListOwnedProducts(ctx, userID, term)
	if err != nil {
		return nil, translate("catalog.list", "product", err)
	}
	return items, nil
}

func (s *CatalogService) Browse(ctx context.Context, f repo.ProductFilter) (*ProductPage, error) {
	total, items, err := s.Repo.ListProducts(ctx, f)
	if err != nil {
		return nil, translate("catalog.browse", "product", err)
	}
	return &ProductPage{Total: total, Items: items}, nil
}

func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	cats, err := s.Repo.Categories(ctx)
	if err != nil {
		return nil, translate("catalog.categories", "product", err)
	}
	return cats, nil
}

func (s *CatalogService) Get(ctx context.Context, ref string) (*models.Product, error) {
	id, err := ParseProductRef(ref)
	if err != nil {
		return nil, err
	}
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, translate("catalog.get", "product", err)
	}
	return p, nil
}

// Search prefers the full-text index and falls back to a name substring
// match when no index is configured or the index is unavailable.
func (s *CatalogService) Search(ctx context.Context, query string, offset, limit int) (*ProductPage, error) {
	if s.Index != nil {
		total, items, err := s.Index.Search(ctx, query, offset, limit)
		if err == nil {
			return &ProductPage{Total: total, Items: items}, nil
		}
		logging.FromContext(ctx).Warn("search_index_unavailable", "error", err)
	}
	return s.Browse(ctx, repo.ProductFilter{Query: query, Offset: offset, Limit: limit})
}

func (s *CatalogService) Create(ctx context.Context, userID uuid.UUID, req transport.CreateProductRequest) (*models.Product, error) {
	if userID == uuid.Nil {
		return nil, apperr.Unauthenticated("sign in to list a product")
	}
	if err := transport.Validate(&req); err != nil {
		return nil, err
	}
	p := &models.Product{
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price.Round(2),
		Stock:       req.Stock,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		DownloadURL: req.DownloadURL,
	}
	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		return nil, translate("catalog.create", "product", err)
	}
	s.synced(ctx, events.ProductCreated, p)
	return p, nil
}

// Update edits a product the caller owns. Ownership never changes here.
func (s *CatalogService) Update(ctx context.Context, id, userID uuid.UUID, req transport.PatchProductRequest) (*models.Product, error) {
	if userID == uuid.Nil {
		return nil, apperr.Unauthenticated("sign in to edit a product")
	}
	if err := transport.Validate(&req); err != nil {
		return nil, err
	}
	check := ownsProduct(userID)
	p, err := s.Repo.UpdateProduct(ctx, id, func(p *models.Product) error {
		if err := check(p); err != nil {
			return err
		}
		if req.Name != nil {
			p.Name = *req.Name
		}
		if req.Description != nil {
			p.Description = *req.Description
		}
		if req.Price != nil {
			p.Price = req.Price.Round(2)
		}
		if req.Stock != nil {
			p.Stock = *req.Stock
		}
		if req.Category != nil {
			p.Category = *req.Category
		}
		if req.ImageURL != nil {
			p.ImageURL = req.ImageURL
		}
		if req.DownloadURL != nil {
			p.DownloadURL = req.DownloadURL
		}
		return nil
	})
	if err != nil {
		return nil, translate("catalog.update", "product", err)
	}
	s.synced(ctx, events.ProductUpdated, p)
	return p, nil
}

func (s *CatalogService) Delete(ctx context.Context, id, userID uuid.UUID) (*models.Product, error) {
	if userID == uuid.Nil {
		return nil, apperr.Unauthenticated("sign in to delete a product")
	}
	p, err := s.Repo.DeleteProduct(ctx, id, ownsProduct(userID))
	if err != nil {
		return nil, translate("catalog.delete", "product", err)
	}
	s.synced(ctx, events.ProductDeleted, p)
	return p, nil
}

// synced publishes the product event and mirrors the change into the
// search index. Both are best effort.
func (s *CatalogService) synced(ctx context.Context, eventType string, p *models.Product) {
	events.Emit(ctx, s.Events, events.TopicProducts, eventType, p.ID.String(), p)
	if s.Index == nil {
		return
	}
	var err error
	if eventType == events.ProductDeleted {
		err = s.Index.DeleteProduct(ctx, p.ID)
	} else {
		err = s.Index.IndexProduct(ctx, p)
	}
	if err != nil {
		logging.FromContext(ctx).Warn("search_index_sync_failed", "product_id", p.ID, "event_type", eventType, "error", err)
	}
}
