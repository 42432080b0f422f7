package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type CartService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

type CartLine struct {
	models.CartItem
	LineTotal decimal.Decimal `json:"line_total"`
}

type CartView struct {
	Items     []CartLine      `json:"items"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type cartEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// Add puts quantity (default 1) of a product into the caller's cart. Adding
// a product already in the cart increases that line.
func (s *CartService) Add(ctx context.Context, userID uuid.UUID, req transport.AddCartItemRequest) (*models.CartItem, error) {
	if userID == uuid.Nil {
		return nil, apperr.Unauthenticated("sign in to add to cart")
	}
	if err := transport.Validate(&req); err != nil {
		return nil, err
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	item, err := s.Repo.AddToCart(ctx, userID, req.ProductID, qty)
	if err != nil {
		return nil, translate("cart.add", "product", err)
	}
	events.Emit(ctx, s.Events, events.TopicCarts, events.CartItemAdded, item.ID.String(),
		cartEvent{UserID: userID, ProductID: item.ProductID, Quantity: item.Quantity})
	return item, nil
}

// UpdateQuantity sets a line's quantity. Quantities below one are rejected,
// quantities above stock are clamped to stock.
func (s *CartService) UpdateQuantity(ctx context.Context, id, userID uuid.UUID, req transport.UpdateCartItemRequest) (*models.CartItem, error) {
	if userID == uuid.Nil {
		return nil, apperr.Unauthenticated("sign in to edit your cart")
	}
	if err := transport.Validate(&req); err != nil {
		return nil, err
	}

	item, err := s.Repo.UpdateCartQuantity(ctx, id, userID, req.Quantity, req.Version)
	if err != nil {
		return nil, translate("cart.update", "cart item", err)
	}
	events.Emit(ctx, s.Events, events.TopicCarts, events.CartItemUpdated, item.ID.String(),
		cartEvent{UserID: userID, ProductID: item.ProductID, Quantity: item.Quantity})
	return item, nil
}

func (s *CartService) Remove(ctx context.Context, id, userID uuid.UUID) (*models.CartItem, error) {
	if userID == uuid.Nil {
		return nil, apperr.Unauthenticated("sign in to edit your cart")
	}
	item, err := s.Repo.RemoveCartItem(ctx, id, userID)
	if err != nil {
		return nil, translate("cart.remove", "cart item", err)
	}
	events.Emit(ctx, s.Events, events.TopicCarts, events.CartItemRemoved, item.ID.String(),
		cartEvent{UserID: userID, ProductID: item.ProductID, Quantity: item.Quantity})
	return item, nil
}

func (s *CartService) List(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	view := &CartView{Items: []CartLine{}, Subtotal: decimal.Zero}
	if userID == uuid.Nil {
		return view, nil
	}
	items, err := s.Repo.ListCart(ctx, userID)
	if err != nil {
		return nil, translate("cart.list", "cart", err)
	}
	for _, it := range items {
		line := CartLine{CartItem: it, LineTotal: it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))}
		view.Items = append(view.Items, line)
		view.ItemCount += it.Quantity
		view.Subtotal = view.Subtotal.Add(line.LineTotal)
	}
	return view, nil
}
