package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrUserNameTaken is returned when the requested user name already exists.
	ErrUserNameTaken = errors.New("user name already exists")
	// ErrEmailTaken is returned when the requested email already exists.
	ErrEmailTaken = errors.New("email already exists")
	// ErrInvalidCredentials is returned on signin failure. The message is
	// deliberately generic: it must not reveal which factor was wrong.
	ErrInvalidCredentials = errors.New("incorrect user name or password")
	// ErrInvalidToken is returned when a refresh or action token is missing,
	// malformed, expired, or revoked.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrUnauthorized is returned when a request lacks a valid identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when an identity lacks a required permission.
	ErrForbidden = errors.New("forbidden")
	// ErrUserNotFound is returned when a user lookup misses.
	ErrUserNotFound = errors.New("user not found")
	// ErrRoleNotFound is returned when a role lookup misses.
	ErrRoleNotFound = errors.New("role not found")
	// ErrPermissionNotFound is returned when a referenced permission does
	// not exist.
	ErrPermissionNotFound = errors.New("permission not found")
	// ErrLastSuperAdmin is returned when a mutation would leave the system
	// without a Super Administrator.
	ErrLastSuperAdmin = errors.New("cannot remove the last Super Administrator")
	// ErrVerificationFailed is returned for any email verification failure,
	// without distinguishing the cause to the caller.
	ErrVerificationFailed = errors.New("email verification failed")
)

// ErrorBody is the error half of the JSON response envelope.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Message: e.Message,
			Code:    e.Code,
		},
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Token-level detail
// (expired vs revoked vs missing) collapses into a single 401 so the
// boundary leaks no token oracle.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrUserNameTaken):
		return NewHTTPError(http.StatusConflict, err.Error(), "USER_NAME_TAKEN")
	case errors.Is(err, ErrEmailTaken):
		return NewHTTPError(http.StatusConflict, err.Error(), "EMAIL_TAKEN")
	case errors.Is(err, ErrLastSuperAdmin):
		return NewHTTPError(http.StatusConflict, err.Error(), "LAST_SUPER_ADMIN")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrInvalidToken):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "INVALID_TOKEN")
	case errors.Is(err, ErrUnauthorized):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "UNAUTHORIZED")
	case errors.Is(err, ErrVerificationFailed):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "VERIFICATION_FAILED")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, err.Error(), "FORBIDDEN")
	case errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "USER_NOT_FOUND")
	case errors.Is(err, ErrRoleNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "ROLE_NOT_FOUND")
	case errors.Is(err, ErrPermissionNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "PERMISSION_NOT_FOUND")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
