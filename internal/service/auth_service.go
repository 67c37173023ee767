package service

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"userhub/internal/auth"
	"userhub/internal/errors"
	"userhub/internal/mail"
	"userhub/internal/model"
	"userhub/internal/repository"
)

// TokenPair is the credential pair returned by signin and refresh.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// SignupInput carries the fields accepted at signup.
type SignupInput struct {
	FirstName string
	LastName  string
	UserName  string
	Email     string
	Password  string
}

// AuthTTLs bundles the token lifetimes the service needs.
type AuthTTLs struct {
	Refresh       time.Duration
	VerifyEmail   time.Duration
	ResetPassword time.Duration
}

// AuthService implements the authentication workflows.
type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*model.User, error)
	Signin(ctx context.Context, userName, password string) (*TokenPair, *model.User, error)
	// Logout consumes the refresh token and, when an access token is
	// supplied, blacklists its ID for the remainder of its lifetime.
	Logout(ctx context.Context, refreshToken, accessToken string) error
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	SendVerificationEmail(ctx context.Context, userID uint) error
	VerifyEmail(ctx context.Context, token string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type authService struct {
	repos     repository.Manager
	jwt       *auth.JWTService
	hasher    *auth.PasswordHasher
	blacklist auth.BlacklistStore
	mailer    mail.Mailer
	ttls      AuthTTLs
}

// NewAuthService creates the authentication service.
func NewAuthService(
	repos repository.Manager,
	jwt *auth.JWTService,
	hasher *auth.PasswordHasher,
	blacklist auth.BlacklistStore,
	mailer mail.Mailer,
	ttls AuthTTLs,
) AuthService {
	return &authService{
		repos:     repos,
		jwt:       jwt,
		hasher:    hasher,
		blacklist: blacklist,
		mailer:    mailer,
		ttls:      ttls,
	}
}

// Signup creates a user with the default role. No tokens are issued and no
// verification mail is sent; the caller signs in and requests verification
// explicitly.
func (s *authService) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	taken, err := s.repos.Users().UserNameExists(ctx, in.UserName, 0)
	if err != nil {
		return nil, fmt.Errorf("check user name: %w", err)
	}
	if taken {
		return nil, errors.ErrUserNameTaken
	}

	taken, err = s.repos.Users().EmailExists(ctx, in.Email, 0)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, errors.ErrEmailTaken
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		UserName:     in.UserName,
		Email:        in.Email,
		PasswordHash: hash,
	}

	role, err := s.repos.Roles().FindByName(ctx, model.RoleUser)
	switch {
	case err == nil:
		user.Roles = []model.Role{*role}
	case err != gorm.ErrRecordNotFound:
		return nil, fmt.Errorf("resolve default role: %w", err)
	}

	if err := s.repos.Users().Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Signin authenticates by user name and password and issues a token pair.
// Absent user and wrong password fail identically.
func (s *authService) Signin(ctx context.Context, userName, password string) (*TokenPair, *model.User, error) {
	user, err := s.repos.Users().FindByUserName(ctx, userName)
	if err != nil {
		return nil, nil, errors.ErrInvalidCredentials
	}
	if err := s.hasher.Compare(password, user.PasswordHash); err != nil {
		return nil, nil, errors.ErrInvalidCredentials
	}

	pair, err := s.issueTokenPair(ctx, s.repos, user)
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}

// Logout consumes the presented refresh token. An expired-but-present token
// still logs out; only a missing or already-consumed one fails.
func (s *authService) Logout(ctx context.Context, refreshToken, accessToken string) error {
	record, err := s.repos.Tokens().FindRefreshToken(ctx, refreshToken)
	if err != nil {
		return errors.ErrInvalidToken
	}
	if err := s.repos.Tokens().DeleteRefreshToken(ctx, record.ID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.ErrInvalidToken
		}
		return fmt.Errorf("delete refresh token: %w", err)
	}

	if accessToken != "" {
		if claims, err := s.jwt.ValidateAccessToken(accessToken); err == nil {
			ttl := time.Until(claims.ExpiresAt.Time)
			_ = s.blacklist.BlacklistAccessToken(ctx, claims.ID, ttl)
		}
	}
	return nil
}

// Refresh rotates a refresh token: the old record is consumed and a fresh
// pair issued inside one transaction, so the old token stops validating
// before the new one is returned.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var pair *TokenPair
	err := s.repos.RunInTx(ctx, func(ctx context.Context, txm repository.Manager) error {
		record, err := txm.Tokens().FindRefreshToken(ctx, refreshToken)
		if err != nil {
			return errors.ErrInvalidToken
		}
		if record.Expired(time.Now()) {
			_ = txm.Tokens().DeleteRefreshToken(ctx, record.ID)
			return errors.ErrInvalidToken
		}

		user, err := txm.Users().FindByID(ctx, record.UserID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.ErrUnauthorized
			}
			return fmt.Errorf("load user: %w", err)
		}

		// A zero-row delete means a concurrent rotation consumed the token
		// after our snapshot read; the transaction rolls back and the caller
		// gets no pair.
		if err := txm.Tokens().DeleteRefreshToken(ctx, record.ID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.ErrInvalidToken
			}
			return fmt.Errorf("consume refresh token: %w", err)
		}

		pair, err = s.issueTokenPair(ctx, txm, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// SendVerificationEmail issues a single-use verification token and hands it
// to the mail channel.
func (s *authService) SendVerificationEmail(ctx context.Context, userID uint) error {
	user, err := s.repos.Users().FindByID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}

	token := &model.ActionToken{
		Token:     auth.NewOpaqueToken(),
		UserID:    user.ID,
		Purpose:   model.PurposeVerifyEmail,
		ExpiresAt: time.Now().Add(s.ttls.VerifyEmail),
	}
	if err := s.repos.Tokens().CreateActionToken(ctx, token); err != nil {
		return fmt.Errorf("create verification token: %w", err)
	}
	return s.mailer.SendVerificationEmail(ctx, user.Email, token.Token)
}

// VerifyEmail consumes a verification token and marks the user confirmed.
// Every failure collapses into the same generic error so the caller learns
// nothing about why.
func (s *authService) VerifyEmail(ctx context.Context, token string) error {
	err := s.repos.RunInTx(ctx, func(ctx context.Context, txm repository.Manager) error {
		record, err := txm.Tokens().FindActionToken(ctx, token, model.PurposeVerifyEmail)
		if err != nil {
			return err
		}
		if record.Expired(time.Now()) {
			return errors.ErrInvalidToken
		}

		user, err := txm.Users().FindByID(ctx, record.UserID)
		if err != nil {
			return err
		}

		// Consume the presented token first so a concurrent attempt sees a
		// zero-row delete and fails, then drop every other outstanding
		// verification token for the user.
		if err := txm.Tokens().DeleteActionToken(ctx, record.ID); err != nil {
			return err
		}
		if err := txm.Tokens().DeleteActionTokensForUser(ctx, user.ID, model.PurposeVerifyEmail); err != nil {
			return err
		}
		return txm.Users().MarkConfirmed(ctx, user.ID)
	})
	if err != nil {
		return errors.ErrVerificationFailed
	}
	return nil
}

// ForgotPassword issues a single-use reset token for the account with the
// given email and hands it to the mail channel.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repos.Users().FindByEmail(ctx, email)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}

	token := &model.ActionToken{
		Token:     auth.NewOpaqueToken(),
		UserID:    user.ID,
		Purpose:   model.PurposeResetPassword,
		ExpiresAt: time.Now().Add(s.ttls.ResetPassword),
	}
	if err := s.repos.Tokens().CreateActionToken(ctx, token); err != nil {
		return fmt.Errorf("create reset token: %w", err)
	}
	return s.mailer.SendPasswordResetEmail(ctx, user.Email, token.Token)
}

// ResetPassword consumes an unexpired reset token, stores the new password
// hash, and revokes every outstanding refresh token for the user so stolen
// sessions die with the old password.
func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	return s.repos.RunInTx(ctx, func(ctx context.Context, txm repository.Manager) error {
		record, err := txm.Tokens().FindActionToken(ctx, token, model.PurposeResetPassword)
		if err != nil {
			return errors.ErrInvalidToken
		}
		if record.Expired(time.Now()) {
			_ = txm.Tokens().DeleteActionToken(ctx, record.ID)
			return errors.ErrInvalidToken
		}

		user, err := txm.Users().FindByID(ctx, record.UserID)
		if err != nil {
			return errors.ErrInvalidToken
		}

		// Consume the presented token before touching the password so a
		// concurrent reset with the same token loses on the zero-row delete.
		if err := txm.Tokens().DeleteActionToken(ctx, record.ID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.ErrInvalidToken
			}
			return fmt.Errorf("consume reset token: %w", err)
		}

		if err := txm.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		if err := txm.Tokens().DeleteActionTokensForUser(ctx, user.ID, model.PurposeResetPassword); err != nil {
			return fmt.Errorf("consume reset tokens: %w", err)
		}
		if err := txm.Tokens().DeleteRefreshTokensForUser(ctx, user.ID); err != nil {
			return fmt.Errorf("revoke refresh tokens: %w", err)
		}
		return nil
	})
}

// issueTokenPair mints a stateless access token and persists an opaque
// refresh token for the user.
func (s *authService) issueTokenPair(ctx context.Context, repos repository.Manager, user *model.User) (*TokenPair, error) {
	accessToken, accessExp, err := s.jwt.GenerateAccessToken(user.ID, user.UserName)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refresh := &model.RefreshToken{
		Token:     auth.NewOpaqueToken(),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(s.ttls.Refresh),
	}
	if err := repos.Tokens().CreateRefreshToken(ctx, refresh); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh.Token,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}
