package repo

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrDuplicateAccount = errors.New("username or email already taken")
	ErrAccountNotFound  = errors.New("account not found")
	ErrRefreshInvalid   = errors.New("refresh token revoked, expired or unknown")
)

type GormRepo struct {
	DB *gorm.DB
}
