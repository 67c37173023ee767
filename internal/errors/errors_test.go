package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"user name conflict", ErrUserNameTaken, http.StatusConflict, "USER_NAME_TAKEN"},
		{"email conflict", ErrEmailTaken, http.StatusConflict, "EMAIL_TAKEN"},
		{"last super admin", ErrLastSuperAdmin, http.StatusConflict, "LAST_SUPER_ADMIN"},
		{"invalid credentials", ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"invalid token", ErrInvalidToken, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"verification failed", ErrVerificationFailed, http.StatusUnauthorized, "VERIFICATION_FAILED"},
		{"forbidden", ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"user not found", ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
		{"role not found", ErrRoleNotFound, http.StatusNotFound, "ROLE_NOT_FOUND"},
		{"unknown error is a generic 500", errors.New("db exploded"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.wantStatus, httpErr.StatusCode)
			assert.Equal(t, tt.wantCode, httpErr.Code)
		})
	}
}

func TestMapErrorToHTTP_WrappedErrors(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), ErrInvalidToken)
	httpErr := MapErrorToHTTP(wrapped)
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
}

func TestMapErrorToHTTP_DoesNotLeakInternals(t *testing.T) {
	httpErr := MapErrorToHTTP(errors.New("dial tcp 10.0.0.5:3306: connection refused"))
	assert.Equal(t, "internal server error", httpErr.Message)
}

func TestToErrorResponse(t *testing.T) {
	resp := NewHTTPError(http.StatusConflict, "email already exists", "EMAIL_TAKEN").ToErrorResponse()
	assert.False(t, resp.Success)
	assert.Equal(t, "EMAIL_TAKEN", resp.Error.Code)
	assert.Equal(t, "email already exists", resp.Error.Message)
}
