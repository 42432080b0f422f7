package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

type Capability string

const (
	CapReadAllOrders     Capability = "orders:read_all"
	CapManageOrders      Capability = "orders:manage"
	CapReadUsers         Capability = "users:read"
	CapReconcilePayments Capability = "payments:reconcile"
)

const RoleAdmin = "admin"

var roleCapabilities = map[string][]Capability{
	RoleAdmin: {CapReadAllOrders, CapManageOrders, CapReadUsers, CapReconcilePayments},
}

type UserDirectory interface {
	ListUsers(ctx context.Context) ([]identity.User, error)
}

type AccessService struct {
	Repo  *repo.GormRepo
	Users UserDirectory
}

func (s *AccessService) Can(ctx context.Context, userID uuid.UUID, c Capability) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	roles, err := s.Repo.ListRoles(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("access.can: %w", err)
	}
	for _, r := range roles {
		if slices.Contains(roleCapabilities[r], c) {
			return true, nil
		}
	}
	return false, nil
}

// Require returns AuthorizationDenied unless userID holds c.
func (s *AccessService) Require(ctx context.Context, userID uuid.UUID, c Capability) error {
	ok, err := s.Can(ctx, userID, c)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden("missing permission " + string(c))
	}
	return nil
}

func (s *AccessService) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	roles, err := s.Repo.ListRoles(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("access.is_admin: %w", err)
	}
	return slices.Contains(roles, RoleAdmin), nil
}

// SeedAdmin grants the admin role to the bootstrap account. Granting twice
// is a no-op.
func (s *AccessService) SeedAdmin(ctx context.Context, userID uuid.UUID, email string) error {
	if err := s.Repo.GrantRole(ctx, &models.UserRole{UserID: userID, Role: RoleAdmin, Email: email}); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	return nil
}

func (s *AccessService) ListUsers(ctx context.Context, caller uuid.UUID) ([]identity.User, error) {
	if err := s.Require(ctx, caller, CapReadUsers); err != nil {
		return nil, err
	}
	if s.Users == nil {
		return nil, apperr.External("identity provider", fmt.Errorf("no identity provider configured"))
	}
	users, err := s.Users.ListUsers(ctx)
	if err != nil {
		return nil, apperr.External("identity provider", err)
	}
	return users, nil
}
