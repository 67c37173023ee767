package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"userhub/docs"
	"userhub/internal/auth"
	"userhub/internal/config"
	"userhub/internal/errors"
	"userhub/internal/handler"
	"userhub/internal/model"
	"userhub/internal/service"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	jwtService *auth.JWTService,
	blacklist auth.BlacklistStore,
	gate *auth.Gate,
	userService service.UserService,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	roleHandler *handler.RoleHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Validator = &CustomValidator{validator: validator.New()}

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api/v1")

	// Public routes
	api.POST("/auth/signup", authHandler.Signup)
	api.POST("/auth/signin", authHandler.Signin)
	api.POST("/auth/logout", authHandler.Logout)
	api.POST("/auth/refresh-tokens", authHandler.Refresh)
	api.POST("/auth/verify-email", authHandler.VerifyEmail)
	api.POST("/auth/forgot-password", authHandler.ForgotPassword)
	api.POST("/auth/reset-password", authHandler.ResetPassword)

	// Authenticated routes
	secured := api.Group("", echojwt.WithConfig(echojwt.Config{
		ParseTokenFunc: parseToken(jwtService, blacklist),
	}))

	secured.GET("/auth/me", authHandler.Me)
	secured.PUT("/auth/me", authHandler.UpdateMe)
	secured.POST("/auth/send-verification-email", authHandler.SendVerificationEmail)

	// Permission-gated management routes
	can := func(resource, action string) echo.MiddlewareFunc {
		return requirePermission(userService, gate, resource, action)
	}

	secured.POST("/users", userHandler.CreateUser, can(model.ResourceUser, model.ActionCreate))
	secured.GET("/users", userHandler.ListUsers, can(model.ResourceUser, model.ActionRead))
	secured.GET("/users/:id", userHandler.GetUser, can(model.ResourceUser, model.ActionRead))
	secured.PUT("/users/:id", userHandler.UpdateUser, can(model.ResourceUser, model.ActionUpdate))
	secured.DELETE("/users/:id", userHandler.DeleteUser, can(model.ResourceUser, model.ActionDelete))

	secured.POST("/roles", roleHandler.CreateRole, can(model.ResourceRole, model.ActionCreate))
	secured.GET("/roles", roleHandler.ListRoles, can(model.ResourceRole, model.ActionRead))
	secured.GET("/roles/:id", roleHandler.GetRole, can(model.ResourceRole, model.ActionRead))
	secured.PUT("/roles/:id", roleHandler.UpdateRole, can(model.ResourceRole, model.ActionUpdate))
	secured.DELETE("/roles/:id", roleHandler.DeleteRole, can(model.ResourceRole, model.ActionDelete))

	secured.GET("/permissions", roleHandler.ListPermissions, can(model.ResourceRole, model.ActionRead))
}

// parseToken validates the bearer token and rejects blacklisted IDs. The
// returned claims end up in c.Get("user").
func parseToken(jwtService *auth.JWTService, blacklist auth.BlacklistStore) func(c echo.Context, tokenString string) (interface{}, error) {
	return func(c echo.Context, tokenString string) (interface{}, error) {
		claims, err := jwtService.ValidateAccessToken(tokenString)
		if err != nil {
			return nil, err
		}
		if revoked, _ := blacklist.IsAccessTokenBlacklisted(c.Request().Context(), claims.ID); revoked {
			return nil, errors.ErrInvalidToken
		}
		return claims, nil
	}
}

// requirePermission runs after the JWT middleware and rejects identities
// whose roles lack (resource, action).
func requirePermission(users service.UserService, gate *auth.Gate, resource, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := handler.CurrentClaims(c)
			if err != nil {
				return unauthorized(c)
			}

			user, err := users.GetUser(c.Request().Context(), claims.UserID)
			if err != nil {
				return unauthorized(c)
			}

			allowed, err := gate.Can(c.Request().Context(), user, resource, action)
			if err != nil {
				httpErr := errors.MapErrorToHTTP(err)
				return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
			}
			if !allowed {
				httpErr := errors.MapErrorToHTTP(errors.ErrForbidden)
				return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
			}
			return next(c)
		}
	}
}

func unauthorized(c echo.Context) error {
	httpErr := errors.MapErrorToHTTP(errors.ErrUnauthorized)
	return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
