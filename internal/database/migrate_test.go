package database_test

import (
	"testing"
	"time"

	"github.com/hugh/c4p-portal/internal/database"
	"github.com/hugh/c4p-portal/internal/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openMemoryDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	return db
}

// legacySchema mirrors the proposals table as it existed before received_at.
const legacySchema = `CREATE TABLE proposals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	title VARCHAR(200) NOT NULL,
	session_type VARCHAR(50) NOT NULL,
	instructional_objective TEXT NOT NULL,
	detailed_process TEXT NOT NULL,
	learning_outcome TEXT NOT NULL,
	category VARCHAR(50) NOT NULL,
	supporting_doc_url VARCHAR(255),
	video_url VARCHAR(255) NOT NULL,
	venue VARCHAR(50) NOT NULL,
	status VARCHAR(50)
)`

func TestEnsureReceivedAt_LegacyTable(t *testing.T) {
	db := openMemoryDB(t)

	require.NoError(t, db.Exec(legacySchema).Error)
	require.NoError(t, db.Exec(`INSERT INTO proposals
		(user_id, title, session_type, instructional_objective, detailed_process, learning_outcome, category, video_url, venue, status)
		VALUES (1, 'Old talk', 'BRUJULA', 'x', 'x', 'x', 'General', 'https://v', 'Chile, Santiago', 'Enviada')`).Error)

	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	applied, err := database.EnsureReceivedAt(db, now)
	require.NoError(t, err)
	assert.True(t, applied)

	assert.True(t, db.Migrator().HasColumn(&models.Proposal{}, "ReceivedAt"))

	var missing int64
	require.NoError(t, db.Table("proposals").Where("received_at IS NULL").Count(&missing).Error)
	assert.Equal(t, int64(0), missing)

	t.Run("second run is a no-op", func(t *testing.T) {
		applied, err := database.EnsureReceivedAt(db, now.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, applied)
	})
}

func TestEnsureReceivedAt_NoTable(t *testing.T) {
	db := openMemoryDB(t)

	applied, err := database.EnsureReceivedAt(db, time.Now())
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestEnsureReceivedAt_FreshSchema(t *testing.T) {
	db := openMemoryDB(t)
	require.NoError(t, database.AutoMigrate(db))

	applied, err := database.EnsureReceivedAt(db, time.Now())
	require.NoError(t, err)
	assert.False(t, applied)

	tables, err := database.TableNames(db)
	require.NoError(t, err)
	assert.Subset(t, tables, []string{"users", "profiles", "submissions", "proposals"})
}
