package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go-udhar-pos/internal/config"
	"go-udhar-pos/internal/model"
	"go-udhar-pos/internal/repository"
	"go-udhar-pos/pkg/database"
	"go-udhar-pos/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	username := flag.String("user", "admin", "username to reset")
	password := flag.String("password", "", "new password (required)")
	envFile := flag.String("env", "", "optional .env file")
	flag.Parse()

	if len(*password) < 6 {
		fmt.Fprintln(os.Stderr, "-password must be at least 6 characters")
		os.Exit(2)
	}

	// 1. Load Config
	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.Must(logger.New(cfg.Debug))
	defer func() { _ = log.Sync() }()

	if !cfg.UsesDatabase() {
		log.Fatal("no database configured; set DATABASE_URL or DB_HOST")
	}

	// 2. Setup Database
	db, err := database.ConnectDB(cfg.DSN(), false, logger.Named(log, "gorm"))
	if err != nil {
		log.Fatal("database unavailable", zap.Error(err))
	}
	users := repository.NewUserRepo(db)
	ctx := context.Background()

	// 3. Find User
	user, err := users.FindByUsername(ctx, *username)
	if err != nil {
		log.Fatal("user not found", zap.String("username", *username), zap.Error(err))
	}

	// 4. Hash and store
	var hashed model.User
	if err := hashed.SetPassword(*password); err != nil {
		log.Fatal("failed to hash password", zap.Error(err))
	}
	if err := users.UpdatePassword(ctx, user.ID, hashed.Password); err != nil {
		log.Fatal("failed to update password", zap.Error(err))
	}

	log.Info("password reset", zap.String("username", user.Username))
}
