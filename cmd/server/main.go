package main

import (
	"context"
	"log"
	"net/http"

	_ "userhub/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"userhub/internal/auth"
	"userhub/internal/bootstrap"
	"userhub/internal/cache"
	"userhub/internal/config"
	"userhub/internal/db"
	"userhub/internal/handler"
	"userhub/internal/mail"
	"userhub/internal/model"
	"userhub/internal/repository"
	"userhub/internal/router"
	"userhub/internal/service"
)

// @title User Management API
// @version 1.0
// @description User management API with signup/signin, JWT access and refresh tokens, email verification, password reset, and role-based permissions.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	e := echo.New()
	e.Use(middleware.RequestID())

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	if err := gormDB.AutoMigrate(
		&model.Permission{},
		&model.Role{},
		&model.User{},
		&model.RefreshToken{},
		&model.ActionToken{},
	); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	repos := repository.NewManager(gormDB)
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)

	if err := bootstrap.Seed(context.Background(), repos, hasher); err != nil {
		log.Fatalf("bootstrap seed: %v", err)
	}

	if n, err := repos.Tokens().DeleteExpiredRefreshTokens(context.Background()); err != nil {
		log.Printf("expired refresh token sweep: %v", err)
	} else if n > 0 {
		log.Printf("removed %d expired refresh tokens", n)
	}

	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL)
	blacklist := auth.NewBlacklistStore(cacheClient)
	gate := auth.NewGate(repos.Roles(), cacheClient)
	mailer := mail.NewLogMailer(cfg.FrontendURL)

	authService := service.NewAuthService(repos, jwtService, hasher, blacklist, mailer, service.AuthTTLs{
		Refresh:       cfg.RefreshTokenTTL,
		VerifyEmail:   cfg.VerifyEmailTTL,
		ResetPassword: cfg.ResetPasswordTTL,
	})
	userService := service.NewUserService(repos, hasher, cacheClient)
	roleService := service.NewRoleService(repos, gate)

	authHandler := handler.NewAuthHandler(authService, userService)
	userHandler := handler.NewUserHandler(userService)
	roleHandler := handler.NewRoleHandler(roleService)

	router.Register(
		e,
		cfg,
		jwtService,
		blacklist,
		gate,
		userService,
		authHandler,
		userHandler,
		roleHandler,
	)

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server start: %v", err)
	}
}
