package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm/logger"

	"github.com/wms/backend/internal/infrastructure/config"
)

var testPoolConfig = &config.DatabaseConfig{
	MaxOpenConns:    7,
	MaxIdleConns:    3,
	ConnMaxLifetime: 30,
	ConnMaxIdleTime: 5,
}

// newMockDatabase opens a Database on a sqlmock connection
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	db, err := openDialector(dialector, testPoolConfig, logger.Default.LogMode(logger.Silent))
	require.NoError(t, err)
	return db, mock
}

func TestOpenDialector_AppliesPoolSettings(t *testing.T) {
	db, mock := newMockDatabase(t)

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, 7, stats.MaxOpenConnections)

	mock.ExpectClose()
	require.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Ping(t *testing.T) {
	db, mock := newMockDatabase(t)
	t.Cleanup(func() {
		mock.ExpectClose()
		_ = db.Close()
	})

	assert.NoError(t, db.Ping(context.Background()))
}

func TestOpenDialector_PingFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectPing().WillReturnError(assert.AnError)
	_, err = openDialector(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}),
		testPoolConfig, logger.Default.LogMode(logger.Silent))
	assert.Error(t, err)
}
