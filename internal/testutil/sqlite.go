// Package testutil provides database fixtures shared by service tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wms/backend/internal/infrastructure/persistence/models"
)

// AllModels lists every persisted model in dependency order.
func AllModels() []any {
	return []any{
		&models.InventoryItemModel{},
		&models.TransactionModel{},
		&models.TransactionItemModel{},
		&models.RejectItemModel{},
		&models.RejectLogModel{},
		&models.RejectLogItemModel{},
		&models.UserModel{},
	}
}

// NewSQLiteDB opens a migrated in-memory SQLite database that is closed
// when the test ends. Row locks are not emulated.
//
// SQLite LOWER() folds ASCII letters only, while search terms are lowered
// with Unicode rules, so search fixtures must stay ASCII. PostgreSQL folds
// the full range.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(AllModels()...))
	return db
}
