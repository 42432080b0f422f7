package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
)

// AddressService manages shipping addresses. A zero userID stands for an
// anonymous caller: reads return nothing, writes are rejected.
type AddressService struct {
	Repo *repo.GormRepo
}

func ownsAddress(userID uuid.UUID) func(*models.ShippingAddress) error {
	return func(a *models.ShippingAddress) error {
		if a.UserID != userID {
			return apperr.Forbidden("address belongs to another user")
		}
		return nil
	}
}

func (s *AddressService) HasAddress(ctx context.Context, userID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	n, err := s.Repo.CountAddresses(ctx, userID)
	if err != nil {
		return false, translate("address.has", "address", err)
	}
	return n > 0, nil
}

func (s *AddressService) Add(ctx context.Context, userID uuid.UUID, req transport.AddressRequest) (*models.ShippingAddress, error) {
	if userID == uuid.Nil {
		return nil, apperr.Unauthenticated("sign in to add an address")
	}
	if err := transport.Validate(&req); err != nil {
		return nil, err
	}
	addr := &models.ShippingAddress{UserID: userID}
	applyAddress(addr, req)
	if err := s.Repo.CreateAddress(ctx, addr); err != nil {
		return nil, translate("address.add", "address", err)
	}
	return addr, nil
}

// List returns the caller's addresses, most recently updated first.
func (s *AddressService) List(ctx context.Context, userID uuid.UUID) ([]models.ShippingAddress, error) {
	if userID == uuid.Nil {
		return []models.ShippingAddress{}, nil
	}
	items, err := s.Repo.ListAddresses(ctx, userID)
	if err != nil {
		return nil, translate("address.list", "address", err)
	}
	return items, nil
}

func (s *AddressService) Get(ctx context.Context, id, userID uuid.UUID) (*models.ShippingAddress, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	addr, err := s.Repo.GetAddress(ctx, id)
	if err != nil {
		return nil, translate("address.get", "address", err)
	}
	if err := ownsAddress(userID)(addr); err != nil {
		return nil, err
	}
	return addr, nil
}

func (s *AddressService) Update(ctx context.Context, id, userID uuid.UUID, req transport.AddressRequest) (*models.ShippingAddress, error) {
	if userID == uuid.Nil {
		return nil, apperr.Unauthenticated("sign in to edit an address")
	}
	if err := transport.Validate(&req); err != nil {
		return nil, err
	}
	check := ownsAddress(userID)
	addr, err := s.Repo.UpdateAddress(ctx, id, func(a *models.ShippingAddress) error {
		if err := check(a); err != nil {
			return err
		}
		applyAddress(a, req)
		return nil
	})
	if err != nil {
		return nil, translate("address.update", "address", err)
	}
	return addr, nil
}

func (s *AddressService) Delete(ctx context.Context, id, userID uuid.UUID) (*models.ShippingAddress, error) {
	if userID == uuid.Nil {
		return nil, apperr.Unauthenticated("sign in to delete an address")
	}
	addr, err := s.Repo.DeleteAddress(ctx, id, ownsAddress(userID))
	if err != nil {
		return nil, translate("address.delete", "address", err)
	}
	return addr, nil
}

func applyAddress(a *models.ShippingAddress, req transport.AddressRequest) {
	a.FullName = req.FullName
	a.Address1 = req.Address1
	a.Address2 = req.Address2
	a.City = req.City
	a.State = req.State
	a.ZipCode = req.ZipCode
	a.Country = req.Country
	a.Phone = req.Phone
}
