package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hugh/c4p-portal/internal/auth"
	"github.com/hugh/c4p-portal/internal/database"
	"github.com/hugh/c4p-portal/internal/database/models"
	"github.com/hugh/c4p-portal/pkg/config"
	"github.com/hugh/c4p-portal/pkg/crypto"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	TestSecret   = "test-secret-key-for-testing"
	TestPassword = "Abc123xyz9"
	AdminEmail   = "chair@example.com"
	AdminSecret  = "comite2024"
)

var seq atomic.Int64

// OpenTestDB opens an empty in-memory SQLite database. The pool is held to a
// single connection so every query sees the same memory database.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	return db
}

// SetupTestDB creates an in-memory SQLite database with the full schema.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db := OpenTestDB(t)
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// NewEncryptor returns an encryptor with a throwaway identity.
func NewEncryptor(t *testing.T) *crypto.Encryptor {
	t.Helper()

	enc, err := crypto.NewEncryptor("")
	if err != nil {
		t.Fatalf("failed to create encryptor: %v", err)
	}
	return enc
}

// Admins returns the allow-list holding the single test admin.
func Admins() *auth.Admins {
	return auth.NewAdmins([]config.AdminAccount{{Email: AdminEmail, Password: AdminSecret}})
}

// CreateTestUser inserts a candidate whose password is TestPassword.
func CreateTestUser(t *testing.T, db *gorm.DB, enc *crypto.Encryptor, name string) *models.User {
	t.Helper()

	hash, err := auth.HashPassword(TestPassword)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	sealed, err := enc.Seal(TestPassword)
	if err != nil {
		t.Fatalf("failed to seal password: %v", err)
	}

	user := &models.User{
		FullName:       name,
		Email:          fmt.Sprintf("candidate-%d@example.com", seq.Add(1)),
		PasswordHash:   hash,
		UniquePassword: sealed,
		Role:           models.RoleUser,
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// CreateTestAdmin inserts the test admin account.
func CreateTestAdmin(t *testing.T, db *gorm.DB, enc *crypto.Encryptor) *models.User {
	t.Helper()

	svc := auth.NewService(db, enc, Admins())
	if _, err := svc.EnsureAdmin(context.Background(), config.AdminAccount{Email: AdminEmail, Password: AdminSecret}); err != nil {
		t.Fatalf("failed to create test admin: %v", err)
	}

	var admin models.User
	if err := db.Where("email = ?", AdminEmail).First(&admin).Error; err != nil {
		t.Fatalf("failed to load test admin: %v", err)
	}
	return &admin
}

// CreateTestProfile inserts a complete profile for user.
func CreateTestProfile(t *testing.T, db *gorm.DB, user *models.User) *models.Profile {
	t.Helper()

	profile := &models.Profile{
		UserID:      user.ID,
		Country:     "Colombia",
		CVURL:       "https://media.test/c4p/profiles/cv/cv.pdf",
		PhotoURL:    "https://media.test/c4p/profiles/photos/me.png",
		CompanyName: "Confiabilidad SAS",
		Position:    "Ingeniera de confiabilidad",
	}

	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("failed to create test profile: %v", err)
	}

	user.Profile = profile
	return profile
}

// CreateTestProposal inserts a standalone placement, as rows written before
// submissions existed look.
func CreateTestProposal(t *testing.T, db *gorm.DB, user *models.User, venue models.Venue, status models.ProposalStatus, receivedAt time.Time) *models.Proposal {
	t.Helper()

	proposal := &models.Proposal{
		UserID:                 user.ID,
		Title:                  fmt.Sprintf("Propuesta %d", seq.Add(1)),
		SessionType:            models.PlaceholderSessionType,
		InstructionalObjective: models.PlaceholderNarrative,
		DetailedProcess:        models.PlaceholderNarrative,
		LearningOutcome:        models.PlaceholderNarrative,
		Category:               models.PlaceholderCategory,
		SupportingDocURL:       "https://media.test/c4p/proposals/docs/doc.pdf",
		VideoURL:               "https://media.test/c4p/proposals/docs/doc.pdf",
		Venue:                  venue,
		Status:                 status,
		ReceivedAt:             &receivedAt,
	}

	if err := db.Create(proposal).Error; err != nil {
		t.Fatalf("failed to create test proposal: %v", err)
	}

	return proposal
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}
