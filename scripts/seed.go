//go:build ignore

// Seed prepares a local database: runs the startup bootstrap and registers
// one demo candidate, printing the generated password.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/hugh/c4p-portal/internal/auth"
	"github.com/hugh/c4p-portal/internal/bootstrap"
	"github.com/hugh/c4p-portal/internal/database"
	"github.com/hugh/c4p-portal/pkg/config"
	"github.com/hugh/c4p-portal/pkg/crypto"
	"github.com/hugh/c4p-portal/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env, "seed")

	db, err := database.Connect(&cfg.Database, cfg.Server.Env, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	enc, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		log.Fatalf("failed to create encryptor: %v", err)
	}
	if enc.Ephemeral() {
		log.Fatalf("ENCRYPTION_KEY must be set so the server can read the seeded password")
	}

	admins := auth.NewAdmins(cfg.Admin.Accounts)
	authService := auth.NewService(db, enc, admins)

	ctx := context.Background()
	if err := bootstrap.Run(ctx, db, authService, admins, logger); err != nil {
		log.Fatalf("bootstrap failed: %v", err)
	}

	email := os.Getenv("SEED_EMAIL")
	name := os.Getenv("SEED_NAME")
	if email == "" {
		email = "candidata@example.com"
	}
	if name == "" {
		name = "Candidata Demo"
	}

	result, err := authService.Register(ctx, auth.RegisterInput{FullName: name, Email: email})
	if err != nil {
		if errors.Is(err, auth.ErrDuplicateEmail) {
			fmt.Printf("Candidate already exists: %s\n", email)
			return
		}
		log.Fatalf("failed to create candidate: %v", err)
	}

	fmt.Printf("Candidate created successfully!\n")
	fmt.Printf("Email: %s\n", result.User.Email)
	fmt.Printf("Password: %s\n", result.Password)
}
