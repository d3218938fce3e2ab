package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/hotelworks/backoffice/internal/models"
)

func (r *GormRepo) SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Create(token).Error
}

// ValidateRefreshToken fails closed: true only when a non-revoked,
// non-expired row exists for exactly this jti and account.
func (r *GormRepo) ValidateRefreshToken(ctx context.Context, jti string, accountID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("jti = ? AND account_id = ? AND revoked = ? AND expires_at > ?",
			jti, accountID, false, time.Now().UTC()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// RevokeRefreshToken marks one token revoked. A single conditional update so
// that validate-then-revoke cannot race; already-revoked or unknown tokens
// are a no-op, not an error.
func (r *GormRepo) RevokeRefreshToken(ctx context.Context, accountID uint, tokenHash string) error {
	return r.DB.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("account_id = ? AND token_hash = ? AND revoked = ?", accountID, tokenHash, false).
		Update("revoked", true).Error
}

// RevokeAllRefreshTokens revokes every active token of the account
// (logout-all semantics).
func (r *GormRepo) RevokeAllRefreshTokens(ctx context.Context, accountID uint) error {
	return r.DB.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("account_id = ? AND revoked = ?", accountID, false).
		Update("revoked", true).Error
}

// RotateRefreshToken revokes the old token and stores its replacement in one
// transaction. The conditional update doubles as the validity check: zero
// rows touched means the old token was revoked, expired or never ours.
func (r *GormRepo) RotateRefreshToken(ctx context.Context, oldJTI string, accountID uint, next *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.RefreshToken{}).
			Where("jti = ? AND account_id = ? AND revoked = ? AND expires_at > ?",
				oldJTI, accountID, false, time.Now().UTC()).
			Update("revoked", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRefreshInvalid
		}
		return tx.Create(next).Error
	})
}

func (r *GormRepo) FindRefreshByJTI(ctx context.Context, jti string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	if err := r.DB.WithContext(ctx).Where("jti = ?", jti).First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}
