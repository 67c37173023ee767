package repository

import (
	"context"

	"gorm.io/gorm"

	"userhub/internal/model"
)

// TokenRepository defines persistence for refresh tokens and single-use
// action tokens.
type TokenRepository interface {
	CreateRefreshToken(ctx context.Context, token *model.RefreshToken) error
	// FindRefreshToken looks up a non-blacklisted refresh token by value.
	FindRefreshToken(ctx context.Context, token string) (*model.RefreshToken, error)
	// DeleteRefreshToken returns gorm.ErrRecordNotFound when the row no
	// longer exists, letting callers detect a concurrently consumed token.
	DeleteRefreshToken(ctx context.Context, id uint) error
	DeleteRefreshTokensForUser(ctx context.Context, userID uint) error
	DeleteExpiredRefreshTokens(ctx context.Context) (int64, error)

	CreateActionToken(ctx context.Context, token *model.ActionToken) error
	FindActionToken(ctx context.Context, token, purpose string) (*model.ActionToken, error)
	DeleteActionToken(ctx context.Context, id uint) error
	DeleteActionTokensForUser(ctx context.Context, userID uint, purpose string) error
}

type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository builds a GORM-backed token repository.
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) CreateRefreshToken(ctx context.Context, token *model.RefreshToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *tokenRepository) FindRefreshToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	var record model.RefreshToken
	if err := r.db.WithContext(ctx).
		Where("token = ? AND blacklisted = ?", token, false).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// DeleteRefreshToken removes the row and reports gorm.ErrRecordNotFound
// when it was already gone, so a rotation that lost the race to consume a
// token sees the loss instead of a silent zero-row delete.
func (r *tokenRepository) DeleteRefreshToken(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&model.RefreshToken{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *tokenRepository) DeleteRefreshTokensForUser(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.RefreshToken{}).Error
}

// DeleteExpiredRefreshTokens sweeps rows past their expiry.
func (r *tokenRepository) DeleteExpiredRefreshTokens(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < NOW()").
		Delete(&model.RefreshToken{})
	return result.RowsAffected, result.Error
}

func (r *tokenRepository) CreateActionToken(ctx context.Context, token *model.ActionToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *tokenRepository) FindActionToken(ctx context.Context, token, purpose string) (*model.ActionToken, error) {
	var record model.ActionToken
	if err := r.db.WithContext(ctx).
		Where("token = ? AND purpose = ?", token, purpose).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// DeleteActionToken removes the row and reports gorm.ErrRecordNotFound when
// another transaction consumed it first.
func (r *tokenRepository) DeleteActionToken(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&model.ActionToken{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *tokenRepository) DeleteActionTokensForUser(ctx context.Context, userID uint, purpose string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND purpose = ?", userID, purpose).
		Delete(&model.ActionToken{}).Error
}
