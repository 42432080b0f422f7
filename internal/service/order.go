package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type OrderService struct {
	Repo   *repo.GormRepo
	Access *AccessService
	Events events.Publisher
}

type OrderList struct {
	Orders  []models.Order `json:"orders"`
	IsAdmin bool           `json:"is_admin"`
}

// List returns every order with purchaser email for admins, and the
// caller's own orders otherwise, newest first. A store failure is reported
// as ORDERS_UNAVAILABLE, never as an empty list.
func (s *OrderService) List(ctx context.Context, userID uuid.UUID) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, apperr.Unauthenticated("sign in to see your orders")
	}
	admin, err := s.Access.Can(ctx, userID, CapReadAllOrders)
	if err != nil {
		return nil, apperr.Internal("ORDERS_UNAVAILABLE", err)
	}

	var orders []models.Order
	if admin {
		orders, err = s.Repo.ListAllOrders(ctx)
	} else {
		orders, err = s.Repo.ListUserOrders(ctx, userID)
	}
	if err != nil {
		return nil, apperr.Internal("ORDERS_UNAVAILABLE", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	if !admin {
		for i := range orders {
			orders[i].Email = ""
		}
	}
	return &OrderList{Orders: orders, IsAdmin: admin}, nil
}

func (s *OrderService) Get(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, apperr.Unauthenticated("sign in to see your orders")
	}
	o, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		return nil, translate("order.get", "order", err)
	}
	if o.UserID == userID {
		o.Email = ""
		return o, nil
	}
	if err := s.Access.Require(ctx, userID, CapReadAllOrders); err != nil {
		return nil, apperr.Forbidden("order belongs to another user")
	}
	return o, nil
}

// UpdateStatus applies an operator status change such as fulfilled or refunded.
func (s *OrderService) UpdateStatus(ctx context.Context, id, userID uuid.UUID, req transport.UpdateOrderStatusRequest) (*models.Order, error) {
	if err := s.Access.Require(ctx, userID, CapManageOrders); err != nil {
		return nil, err
	}
	if err := transport.Validate(&req); err != nil {
		return nil, err
	}
	o, err := s.Repo.UpdateOrderStatus(ctx, id, models.OrderStatus(req.Status))
	if err != nil {
		return nil, translate("order.update_status", "order", err)
	}
	events.Emit(ctx, s.Events, events.TopicOrders, events.OrderStatusChanged, o.ID.String(),
		map[string]any{"order_id": o.ID, "status": o.Status})
	return o, nil
}
