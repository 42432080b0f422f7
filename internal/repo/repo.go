package repo

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotOwner        = errors.New("row belongs to another user")
	ErrOutOfStock      = errors.New("product out of stock")
	ErrVersionMismatch = errors.New("row version changed")
	ErrAlreadyDone     = errors.New("checkout already completed")
)

type GormRepo struct {
	DB *gorm.DB
}
