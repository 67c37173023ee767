package handler

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"userhub/internal/errors"
)

// Response is the success half of the JSON envelope.
type Response struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Message    string      `json:"message,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination reports list metadata.
type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

func respond(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, Response{Success: true, Data: data})
}

func respondMessage(c echo.Context, status int, message string) error {
	return c.JSON(status, Response{Success: true, Message: message})
}

func respondList(c echo.Context, data interface{}, total int64, page, limit int) error {
	return c.JSON(http.StatusOK, Response{
		Success:    true,
		Data:       data,
		Pagination: &Pagination{Total: total, Page: page, Limit: limit},
	})
}

// respondError maps a domain error onto the error envelope. Unexpected
// errors are logged and surfaced as a generic 500.
func respondError(c echo.Context, err error) error {
	httpErr := errors.MapErrorToHTTP(err)
	if httpErr.StatusCode == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
	}
	return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
}

func respondValidation(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, errors.ErrorResponse{
		Error: errors.ErrorBody{Message: err.Error(), Code: "VALIDATION_ERROR"},
	})
}
