package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"userhub/internal/auth"
	"userhub/internal/errors"
	"userhub/internal/model"
)

func newTestAuthService(m *MockManager, mailer *MockMailer) AuthService {
	jwtService := auth.NewJWTService("test-secret", 15*time.Minute)
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	blacklist := auth.NewBlacklistStore(nil)
	return NewAuthService(m, jwtService, hasher, blacklist, mailer, AuthTTLs{
		Refresh:       7 * 24 * time.Hour,
		VerifyEmail:   24 * time.Hour,
		ResetPassword: time.Hour,
	})
}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	assert.NoError(t, err)
	return string(hash)
}

func TestAuthService_Signup(t *testing.T) {
	tests := []struct {
		name          string
		input         SignupInput
		setupMock     func(*MockManager)
		expectedError error
	}{
		{
			name: "successful signup assigns default role",
			input: SignupInput{
				FirstName: "Alice", LastName: "Smith",
				UserName: "alice", Email: "alice@example.com", Password: "password123",
			},
			setupMock: func(m *MockManager) {
				m.users.On("UserNameExists", mock.Anything, "alice", uint(0)).Return(false, nil)
				m.users.On("EmailExists", mock.Anything, "alice@example.com", uint(0)).Return(false, nil)
				m.roles.On("FindByName", mock.Anything, model.RoleUser).Return(&model.Role{ID: 4, Name: model.RoleUser}, nil)
				m.users.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
			},
		},
		{
			name: "user name taken",
			input: SignupInput{
				UserName: "alice", Email: "new@example.com", Password: "password123",
			},
			setupMock: func(m *MockManager) {
				m.users.On("UserNameExists", mock.Anything, "alice", uint(0)).Return(true, nil)
			},
			expectedError: errors.ErrUserNameTaken,
		},
		{
			name: "email taken",
			input: SignupInput{
				UserName: "bob", Email: "alice@example.com", Password: "password123",
			},
			setupMock: func(m *MockManager) {
				m.users.On("UserNameExists", mock.Anything, "bob", uint(0)).Return(false, nil)
				m.users.On("EmailExists", mock.Anything, "alice@example.com", uint(0)).Return(true, nil)
			},
			expectedError: errors.ErrEmailTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockManager()
			tt.setupMock(m)
			svc := newTestAuthService(m, new(MockMailer))

			user, err := svc.Signup(context.Background(), tt.input)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, user)
				// No user row may be written on a conflict.
				m.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, user)
				assert.Equal(t, tt.input.UserName, user.UserName)
				assert.NotEmpty(t, user.PasswordHash)
				assert.NotEqual(t, tt.input.Password, user.PasswordHash)
				assert.True(t, user.HasRole(model.RoleUser))
			}
			m.assertExpectations(t)
		})
	}
}

func TestAuthService_SignupDefaultRole(t *testing.T) {
	input := SignupInput{
		FirstName: "Alice", LastName: "Smith",
		UserName: "alice", Email: "alice@example.com", Password: "password123",
	}

	t.Run("missing default role creates a roleless user", func(t *testing.T) {
		m := newMockManager()
		m.users.On("UserNameExists", mock.Anything, "alice", uint(0)).Return(false, nil)
		m.users.On("EmailExists", mock.Anything, "alice@example.com", uint(0)).Return(false, nil)
		m.roles.On("FindByName", mock.Anything, model.RoleUser).Return(nil, gorm.ErrRecordNotFound)
		m.users.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)

		svc := newTestAuthService(m, new(MockMailer))
		user, err := svc.Signup(context.Background(), input)

		assert.NoError(t, err)
		assert.Empty(t, user.Roles)
		m.assertExpectations(t)
	})

	t.Run("role lookup failure aborts signup", func(t *testing.T) {
		m := newMockManager()
		m.users.On("UserNameExists", mock.Anything, "alice", uint(0)).Return(false, nil)
		m.users.On("EmailExists", mock.Anything, "alice@example.com", uint(0)).Return(false, nil)
		m.roles.On("FindByName", mock.Anything, model.RoleUser).Return(nil, gorm.ErrInvalidDB)

		svc := newTestAuthService(m, new(MockMailer))
		user, err := svc.Signup(context.Background(), input)

		assert.Error(t, err)
		assert.Nil(t, user)
		m.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestAuthService_Signin(t *testing.T) {
	storedHash := hashFor(t, "password123")

	tests := []struct {
		name      string
		userName  string
		password  string
		setupMock func(*MockManager)
		wantErr   bool
	}{
		{
			name:     "successful signin",
			userName: "alice",
			password: "password123",
			setupMock: func(m *MockManager) {
				m.users.On("FindByUserName", mock.Anything, "alice").Return(&model.User{
					ID: 1, UserName: "alice", Email: "alice@example.com", PasswordHash: storedHash,
				}, nil)
				m.tokens.On("CreateRefreshToken", mock.Anything, mock.AnythingOfType("*model.RefreshToken")).Return(nil)
			},
		},
		{
			name:     "wrong password",
			userName: "alice",
			password: "nope",
			setupMock: func(m *MockManager) {
				m.users.On("FindByUserName", mock.Anything, "alice").Return(&model.User{
					ID: 1, UserName: "alice", PasswordHash: storedHash,
				}, nil)
			},
			wantErr: true,
		},
		{
			name:     "unknown user",
			userName: "ghost",
			password: "password123",
			setupMock: func(m *MockManager) {
				m.users.On("FindByUserName", mock.Anything, "ghost").Return(nil, gorm.ErrRecordNotFound)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockManager()
			tt.setupMock(m)
			svc := newTestAuthService(m, new(MockMailer))

			pair, user, err := svc.Signin(context.Background(), tt.userName, tt.password)

			if tt.wantErr {
				// Both failure modes must be indistinguishable.
				assert.ErrorIs(t, err, errors.ErrInvalidCredentials)
				assert.Nil(t, pair)
				assert.Nil(t, user)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, user)
				assert.NotEmpty(t, pair.AccessToken)
				assert.NotEmpty(t, pair.RefreshToken)
				assert.True(t, pair.RefreshExpiresAt.After(time.Now()))
			}
			m.assertExpectations(t)
		})
	}
}

func TestAuthService_Refresh(t *testing.T) {
	t.Run("rotation consumes the old token and issues a pair", func(t *testing.T) {
		m := newMockManager()
		record := &model.RefreshToken{ID: 9, Token: "old-token", UserID: 1, ExpiresAt: time.Now().Add(time.Hour)}
		m.tokens.On("FindRefreshToken", mock.Anything, "old-token").Return(record, nil)
		m.users.On("FindByID", mock.Anything, uint(1)).Return(&model.User{ID: 1, UserName: "alice"}, nil)
		m.tokens.On("DeleteRefreshToken", mock.Anything, uint(9)).Return(nil)
		m.tokens.On("CreateRefreshToken", mock.Anything, mock.AnythingOfType("*model.RefreshToken")).Return(nil)

		svc := newTestAuthService(m, new(MockMailer))
		pair, err := svc.Refresh(context.Background(), "old-token")

		assert.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
		assert.NotEqual(t, "old-token", pair.RefreshToken)
		m.assertExpectations(t)
	})

	t.Run("consumed token is rejected on replay", func(t *testing.T) {
		m := newMockManager()
		m.tokens.On("FindRefreshToken", mock.Anything, "old-token").Return(nil, gorm.ErrRecordNotFound)

		svc := newTestAuthService(m, new(MockMailer))
		pair, err := svc.Refresh(context.Background(), "old-token")

		assert.ErrorIs(t, err, errors.ErrInvalidToken)
		assert.Nil(t, pair)
		m.assertExpectations(t)
	})

	t.Run("expired token is deleted and rejected", func(t *testing.T) {
		m := newMockManager()
		record := &model.RefreshToken{ID: 9, Token: "stale", UserID: 1, ExpiresAt: time.Now().Add(-time.Minute)}
		m.tokens.On("FindRefreshToken", mock.Anything, "stale").Return(record, nil)
		m.tokens.On("DeleteRefreshToken", mock.Anything, uint(9)).Return(nil)

		svc := newTestAuthService(m, new(MockMailer))
		_, err := svc.Refresh(context.Background(), "stale")

		assert.ErrorIs(t, err, errors.ErrInvalidToken)
		m.tokens.AssertNotCalled(t, "CreateRefreshToken", mock.Anything, mock.Anything)
		m.assertExpectations(t)
	})

	t.Run("token consumed by a concurrent rotation is rejected", func(t *testing.T) {
		// Two rotations can read the same row in their snapshots; the one
		// whose delete affects zero rows must not mint a pair.
		m := newMockManager()
		record := &model.RefreshToken{ID: 9, Token: "shared", UserID: 1, ExpiresAt: time.Now().Add(time.Hour)}
		m.tokens.On("FindRefreshToken", mock.Anything, "shared").Return(record, nil)
		m.users.On("FindByID", mock.Anything, uint(1)).Return(&model.User{ID: 1, UserName: "alice"}, nil)
		m.tokens.On("DeleteRefreshToken", mock.Anything, uint(9)).Return(gorm.ErrRecordNotFound)

		svc := newTestAuthService(m, new(MockMailer))
		pair, err := svc.Refresh(context.Background(), "shared")

		assert.ErrorIs(t, err, errors.ErrInvalidToken)
		assert.Nil(t, pair)
		m.tokens.AssertNotCalled(t, "CreateRefreshToken", mock.Anything, mock.Anything)
		m.assertExpectations(t)
	})

	t.Run("deleted user fails unauthorized", func(t *testing.T) {
		m := newMockManager()
		record := &model.RefreshToken{ID: 9, Token: "orphan", UserID: 42, ExpiresAt: time.Now().Add(time.Hour)}
		m.tokens.On("FindRefreshToken", mock.Anything, "orphan").Return(record, nil)
		m.users.On("FindByID", mock.Anything, uint(42)).Return(nil, gorm.ErrRecordNotFound)

		svc := newTestAuthService(m, new(MockMailer))
		_, err := svc.Refresh(context.Background(), "orphan")

		assert.ErrorIs(t, err, errors.ErrUnauthorized)
		m.assertExpectations(t)
	})
}

func TestAuthService_Logout(t *testing.T) {
	t.Run("consumes a valid refresh token", func(t *testing.T) {
		m := newMockManager()
		record := &model.RefreshToken{ID: 3, Token: "rt", UserID: 1, ExpiresAt: time.Now().Add(time.Hour)}
		m.tokens.On("FindRefreshToken", mock.Anything, "rt").Return(record, nil)
		m.tokens.On("DeleteRefreshToken", mock.Anything, uint(3)).Return(nil)

		svc := newTestAuthService(m, new(MockMailer))
		assert.NoError(t, svc.Logout(context.Background(), "rt", ""))
		m.assertExpectations(t)
	})

	t.Run("expired token still logs out", func(t *testing.T) {
		m := newMockManager()
		record := &model.RefreshToken{ID: 3, Token: "rt", UserID: 1, ExpiresAt: time.Now().Add(-time.Hour)}
		m.tokens.On("FindRefreshToken", mock.Anything, "rt").Return(record, nil)
		m.tokens.On("DeleteRefreshToken", mock.Anything, uint(3)).Return(nil)

		svc := newTestAuthService(m, new(MockMailer))
		assert.NoError(t, svc.Logout(context.Background(), "rt", ""))
		m.assertExpectations(t)
	})

	t.Run("unknown or consumed token fails", func(t *testing.T) {
		m := newMockManager()
		m.tokens.On("FindRefreshToken", mock.Anything, "rt").Return(nil, gorm.ErrRecordNotFound)

		svc := newTestAuthService(m, new(MockMailer))
		err := svc.Logout(context.Background(), "rt", "")
		assert.ErrorIs(t, err, errors.ErrInvalidToken)
		m.assertExpectations(t)
	})

	t.Run("token consumed by a concurrent logout fails", func(t *testing.T) {
		m := newMockManager()
		record := &model.RefreshToken{ID: 3, Token: "rt", UserID: 1, ExpiresAt: time.Now().Add(time.Hour)}
		m.tokens.On("FindRefreshToken", mock.Anything, "rt").Return(record, nil)
		m.tokens.On("DeleteRefreshToken", mock.Anything, uint(3)).Return(gorm.ErrRecordNotFound)

		svc := newTestAuthService(m, new(MockMailer))
		err := svc.Logout(context.Background(), "rt", "")
		assert.ErrorIs(t, err, errors.ErrInvalidToken)
		m.assertExpectations(t)
	})
}

func TestAuthService_VerifyEmail(t *testing.T) {
	t.Run("consumes token and confirms user", func(t *testing.T) {
		m := newMockManager()
		record := &model.ActionToken{ID: 5, Token: "vt", UserID: 1, Purpose: model.PurposeVerifyEmail, ExpiresAt: time.Now().Add(time.Hour)}
		m.tokens.On("FindActionToken", mock.Anything, "vt", model.PurposeVerifyEmail).Return(record, nil)
		m.users.On("FindByID", mock.Anything, uint(1)).Return(&model.User{ID: 1}, nil)
		m.tokens.On("DeleteActionToken", mock.Anything, uint(5)).Return(nil)
		m.tokens.On("DeleteActionTokensForUser", mock.Anything, uint(1), model.PurposeVerifyEmail).Return(nil)
		m.users.On("MarkConfirmed", mock.Anything, uint(1)).Return(nil)

		svc := newTestAuthService(m, new(MockMailer))
		assert.NoError(t, svc.VerifyEmail(context.Background(), "vt"))
		m.assertExpectations(t)
	})

	t.Run("token consumed by a concurrent attempt fails", func(t *testing.T) {
		m := newMockManager()
		record := &model.ActionToken{ID: 5, Token: "vt", UserID: 1, Purpose: model.PurposeVerifyEmail, ExpiresAt: time.Now().Add(time.Hour)}
		m.tokens.On("FindActionToken", mock.Anything, "vt", model.PurposeVerifyEmail).Return(record, nil)
		m.users.On("FindByID", mock.Anything, uint(1)).Return(&model.User{ID: 1}, nil)
		m.tokens.On("DeleteActionToken", mock.Anything, uint(5)).Return(gorm.ErrRecordNotFound)

		svc := newTestAuthService(m, new(MockMailer))
		err := svc.VerifyEmail(context.Background(), "vt")

		assert.ErrorIs(t, err, errors.ErrVerificationFailed)
		m.users.AssertNotCalled(t, "MarkConfirmed", mock.Anything, mock.Anything)
	})

	t.Run("missing and expired tokens fail identically", func(t *testing.T) {
		missing := newMockManager()
		missing.tokens.On("FindActionToken", mock.Anything, "gone", model.PurposeVerifyEmail).Return(nil, gorm.ErrRecordNotFound)

		expired := newMockManager()
		expired.tokens.On("FindActionToken", mock.Anything, "stale", model.PurposeVerifyEmail).Return(&model.ActionToken{
			ID: 5, Token: "stale", UserID: 1, Purpose: model.PurposeVerifyEmail, ExpiresAt: time.Now().Add(-time.Minute),
		}, nil)

		errMissing := newTestAuthService(missing, new(MockMailer)).VerifyEmail(context.Background(), "gone")
		errExpired := newTestAuthService(expired, new(MockMailer)).VerifyEmail(context.Background(), "stale")

		assert.ErrorIs(t, errMissing, errors.ErrVerificationFailed)
		assert.ErrorIs(t, errExpired, errors.ErrVerificationFailed)
		assert.Equal(t, errMissing.Error(), errExpired.Error())
	})
}

func TestAuthService_ForgotPassword(t *testing.T) {
	t.Run("issues a reset token and mails it", func(t *testing.T) {
		m := newMockManager()
		mailer := new(MockMailer)
		m.users.On("FindByEmail", mock.Anything, "alice@example.com").Return(&model.User{ID: 1, Email: "alice@example.com"}, nil)
		m.tokens.On("CreateActionToken", mock.Anything, mock.MatchedBy(func(tok *model.ActionToken) bool {
			return tok.Purpose == model.PurposeResetPassword && tok.UserID == 1 && tok.Token != ""
		})).Return(nil)
		mailer.On("SendPasswordResetEmail", mock.Anything, "alice@example.com", mock.AnythingOfType("string")).Return(nil)

		svc := newTestAuthService(m, mailer)
		assert.NoError(t, svc.ForgotPassword(context.Background(), "alice@example.com"))
		m.assertExpectations(t)
		mailer.AssertExpectations(t)
	})

	t.Run("unknown email fails not found", func(t *testing.T) {
		m := newMockManager()
		m.users.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, gorm.ErrRecordNotFound)

		svc := newTestAuthService(m, new(MockMailer))
		err := svc.ForgotPassword(context.Background(), "ghost@example.com")
		assert.ErrorIs(t, err, errors.ErrUserNotFound)
	})
}

func TestAuthService_ResetPassword(t *testing.T) {
	t.Run("updates hash and revokes all refresh tokens", func(t *testing.T) {
		m := newMockManager()
		record := &model.ActionToken{ID: 7, Token: "reset", UserID: 1, Purpose: model.PurposeResetPassword, ExpiresAt: time.Now().Add(time.Hour)}
		m.tokens.On("FindActionToken", mock.Anything, "reset", model.PurposeResetPassword).Return(record, nil)
		m.users.On("FindByID", mock.Anything, uint(1)).Return(&model.User{ID: 1}, nil)
		m.tokens.On("DeleteActionToken", mock.Anything, uint(7)).Return(nil)
		m.users.On("UpdatePasswordHash", mock.Anything, uint(1), mock.AnythingOfType("string")).Return(nil)
		m.tokens.On("DeleteActionTokensForUser", mock.Anything, uint(1), model.PurposeResetPassword).Return(nil)
		m.tokens.On("DeleteRefreshTokensForUser", mock.Anything, uint(1)).Return(nil)

		svc := newTestAuthService(m, new(MockMailer))
		assert.NoError(t, svc.ResetPassword(context.Background(), "reset", "newpassword"))
		m.assertExpectations(t)
	})

	t.Run("token consumed by a concurrent reset fails", func(t *testing.T) {
		m := newMockManager()
		record := &model.ActionToken{ID: 7, Token: "reset", UserID: 1, Purpose: model.PurposeResetPassword, ExpiresAt: time.Now().Add(time.Hour)}
		m.tokens.On("FindActionToken", mock.Anything, "reset", model.PurposeResetPassword).Return(record, nil)
		m.users.On("FindByID", mock.Anything, uint(1)).Return(&model.User{ID: 1}, nil)
		m.tokens.On("DeleteActionToken", mock.Anything, uint(7)).Return(gorm.ErrRecordNotFound)

		svc := newTestAuthService(m, new(MockMailer))
		err := svc.ResetPassword(context.Background(), "reset", "newpassword")

		assert.ErrorIs(t, err, errors.ErrInvalidToken)
		m.users.AssertNotCalled(t, "UpdatePasswordHash", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("consumed token cannot be used twice", func(t *testing.T) {
		m := newMockManager()
		m.tokens.On("FindActionToken", mock.Anything, "reset", model.PurposeResetPassword).Return(nil, gorm.ErrRecordNotFound)

		svc := newTestAuthService(m, new(MockMailer))
		err := svc.ResetPassword(context.Background(), "reset", "newpassword")
		assert.ErrorIs(t, err, errors.ErrInvalidToken)
		m.users.AssertNotCalled(t, "UpdatePasswordHash", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("expired token is deleted and rejected", func(t *testing.T) {
		m := newMockManager()
		record := &model.ActionToken{ID: 7, Token: "stale", UserID: 1, Purpose: model.PurposeResetPassword, ExpiresAt: time.Now().Add(-time.Minute)}
		m.tokens.On("FindActionToken", mock.Anything, "stale", model.PurposeResetPassword).Return(record, nil)
		m.tokens.On("DeleteActionToken", mock.Anything, uint(7)).Return(nil)

		svc := newTestAuthService(m, new(MockMailer))
		err := svc.ResetPassword(context.Background(), "stale", "newpassword")
		assert.ErrorIs(t, err, errors.ErrInvalidToken)
		m.assertExpectations(t)
	})
}
