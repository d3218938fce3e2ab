package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/hotelworks/backoffice/internal/models"
)

func (r *GormRepo) FindAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	var account models.Account
	err := r.DB.WithContext(ctx).
		Preload("Role").
		Where("username = ?", username).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *GormRepo) FindAccountByID(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	err := r.DB.WithContext(ctx).
		Preload("Role").
		Where("id = ?", id).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// CreateAccount inserts the account, reporting ErrDuplicateAccount when the
// username or email is already taken. The pre-check gives the friendly
// answer; the unique indexes are the backstop for concurrent signups, so a
// duplicated-key error from the insert maps to the same conflict.
func (r *GormRepo) CreateAccount(ctx context.Context, account *models.Account) error {
	var count int64
	err := r.DB.WithContext(ctx).
		Model(&models.Account{}).
		Where("username = ? OR email = ?", account.Username, account.Email).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateAccount
	}

	if err := r.DB.WithContext(ctx).Create(account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateAccount
		}
		return err
	}
	return nil
}

func (r *GormRepo) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	return r.DB.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		Update("last_login", at).Error
}
