// Package bootstrap prepares the database when the portal starts.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hugh/c4p-portal/internal/auth"
	"github.com/hugh/c4p-portal/internal/database"
	"gorm.io/gorm"
)

// Run ensures the schema, applies the additive received_at migration, seals
// stored passwords left in the clear and upserts every committee account.
// Schema, migration and sealing failures are logged and swallowed so an
// older database still serves; a failed admin upsert is returned.
func Run(ctx context.Context, db *gorm.DB, authSvc *auth.Service, admins *auth.Admins, logger *slog.Logger) error {
	added, err := database.EnsureReceivedAt(db.WithContext(ctx), time.Now())
	switch {
	case err != nil:
		logger.Warn("received_at migration failed", "error", err)
	case added:
		logger.Info("added proposals.received_at and backfilled existing rows")
	}

	if err := database.AutoMigrate(db.WithContext(ctx)); err != nil {
		logger.Warn("schema migration failed", "error", err)
	}

	if tables, err := database.TableNames(db); err != nil {
		logger.Warn("listing tables failed", "error", err)
	} else {
		logger.Info("database tables", "tables", tables)
	}

	switch n, err := authSvc.SealLegacyPasswords(ctx); {
	case err != nil:
		logger.Warn("sealing legacy passwords failed", "error", err)
	case n > 0:
		logger.Info("sealed legacy stored passwords", "users", n)
	}

	for _, account := range admins.Accounts() {
		created, err := authSvc.EnsureAdmin(ctx, account)
		if err != nil {
			return fmt.Errorf("seeding admin %s: %w", account.Email, err)
		}
		logger.Info("admin account ready", "email", account.Email, "created", created)
	}

	return nil
}
