package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

// translate maps store-level failures onto the error taxonomy. Anything it
// does not recognize is wrapped with op and surfaces as an internal error.
func translate(op, resource string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	switch {
	case errors.As(err, &ae):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound(resource)
	case errors.Is(err, repo.ErrNotOwner):
		return apperr.Forbidden(resource + " belongs to another user")
	case errors.Is(err, repo.ErrOutOfStock):
		return apperr.Invalid("product is out of stock")
	case errors.Is(err, repo.ErrVersionMismatch):
		return apperr.Conflict(resource + " was changed by another request, reload and retry")
	case errors.Is(err, models.ErrInvalidTransition):
		return apperr.Conflict(err.Error())
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Conflict(resource + " already exists")
	}
	return fmt.Errorf("%s: %w", op, err)
}
