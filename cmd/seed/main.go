package main

import (
	"context"
	"log"

	"userhub/internal/auth"
	"userhub/internal/bootstrap"
	"userhub/internal/config"
	"userhub/internal/db"
	"userhub/internal/model"
	"userhub/internal/repository"
)

func main() {
	log.Println("Starting seed...")

	cfg := config.Load()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	if err := gormDB.AutoMigrate(
		&model.Permission{},
		&model.Role{},
		&model.User{},
		&model.RefreshToken{},
		&model.ActionToken{},
	); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	repos := repository.NewManager(gormDB)
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)

	if err := bootstrap.Seed(context.Background(), repos, hasher); err != nil {
		log.Fatalf("Failed to seed: %v", err)
	}

	log.Println("Seed completed successfully")
}
