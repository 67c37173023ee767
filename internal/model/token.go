package model

import "time"

// RefreshToken is a persisted, revocable credential used only to obtain
// new access tokens. The token value is opaque; it carries no claims.
type RefreshToken struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Token       string    `json:"token" gorm:"uniqueIndex;size:255;not null"`
	UserID      uint      `json:"user_id" gorm:"index;not null"`
	ExpiresAt   time.Time `json:"expires_at" gorm:"not null"`
	Blacklisted bool      `json:"blacklisted" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at"`
}

// Expired reports whether the token is past its expiry at the given instant.
func (t *RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Token purposes for single-use action tokens.
const (
	PurposeVerifyEmail   = "verify_email"
	PurposeResetPassword = "reset_password"
)

// ActionToken is a single-use, store-backed token for email verification
// and password reset. Consuming one deletes the row so replay fails.
type ActionToken struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Token     string    `json:"token" gorm:"uniqueIndex;size:255;not null"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	Purpose   string    `json:"purpose" gorm:"index;size:50;not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the token is past its expiry at the given instant.
func (t *ActionToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
