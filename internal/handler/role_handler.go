package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"userhub/internal/service"
)

// RoleHandler bundles role and permission endpoints.
type RoleHandler struct {
	svc service.RoleService
}

// NewRoleHandler creates a handler layer.
func NewRoleHandler(svc service.RoleService) *RoleHandler {
	return &RoleHandler{svc: svc}
}

// RoleRequest represents a role create or update request.
type RoleRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	Description   string `json:"description" validate:"max=255"`
	PermissionIDs []uint `json:"permission_ids"`
}

// CreateRole godoc
// @Summary Create a role
// @Tags roles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RoleRequest true "Role payload"
// @Success 201 {object} Response
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /roles [post]
func (h *RoleHandler) CreateRole(c echo.Context) error {
	var req RoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return respondValidation(c, err)
	}

	role, err := h.svc.CreateRole(c.Request().Context(), service.RoleInput{
		Name:          req.Name,
		Description:   req.Description,
		PermissionIDs: req.PermissionIDs,
	})
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusCreated, role)
}

// GetRole godoc
// @Summary Get role by id
// @Tags roles
// @Produce json
// @Security BearerAuth
// @Param id path int true "Role ID"
// @Success 200 {object} Response
// @Failure 404 {object} errors.ErrorResponse
// @Router /roles/{id} [get]
func (h *RoleHandler) GetRole(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	role, err := h.svc.GetRole(c.Request().Context(), uint(id))
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, role)
}

// ListRoles godoc
// @Summary List roles
// @Tags roles
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param q query string false "Name filter"
// @Success 200 {object} Response
// @Router /roles [get]
func (h *RoleHandler) ListRoles(c echo.Context) error {
	opts := listOptionsFromQuery(c)
	roles, total, err := h.svc.ListRoles(c.Request().Context(), opts)
	if err != nil {
		return respondError(c, err)
	}
	return respondList(c, roles, total, opts.Page, opts.Limit)
}

// UpdateRole godoc
// @Summary Update a role
// @Tags roles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Role ID"
// @Param request body RoleRequest true "Role payload"
// @Success 200 {object} Response
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /roles/{id} [put]
func (h *RoleHandler) UpdateRole(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req RoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return respondValidation(c, err)
	}

	role, err := h.svc.UpdateRole(c.Request().Context(), uint(id), service.RoleInput{
		Name:          req.Name,
		Description:   req.Description,
		PermissionIDs: req.PermissionIDs,
	})
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, role)
}

// DeleteRole godoc
// @Summary Delete a role
// @Tags roles
// @Produce json
// @Security BearerAuth
// @Param id path int true "Role ID"
// @Success 200 {object} Response
// @Failure 404 {object} errors.ErrorResponse
// @Router /roles/{id} [delete]
func (h *RoleHandler) DeleteRole(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteRole(c.Request().Context(), uint(id)); err != nil {
		return respondError(c, err)
	}
	return respondMessage(c, http.StatusOK, "role deleted")
}

// ListPermissions godoc
// @Summary List all permissions
// @Tags roles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response
// @Router /permissions [get]
func (h *RoleHandler) ListPermissions(c echo.Context) error {
	perms, err := h.svc.ListPermissions(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, perms)
}
