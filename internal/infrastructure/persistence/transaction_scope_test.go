package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appstock "github.com/wms/backend/internal/application/stock"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/stock"
)

func TestGormTransactionScope(t *testing.T) {
	db := setupTestDB(t)
	scope := NewGormTransactionScope(db)
	items := NewGormItemRepository(db)
	txs := NewGormTransactionRepository(db)
	ctx := context.Background()

	item := newTestItem(t, "SCP-1", 10, 20, 0)
	require.NoError(t, items.Save(ctx, item))
	date := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("commits every repository", func(t *testing.T) {
		err := scope.Execute(ctx, func(repos appstock.TransactionalRepositories) error {
			if err := repos.Items().SetStock(ctx, item.ID, decimal.NewFromInt(25)); err != nil {
				return err
			}
			return repos.Transactions().Create(ctx,
				newTestTransaction(t, "TRX-IN-1", stock.TransactionTypeInbound, date, line(item.ID, "SCP-1", 5)))
		})
		require.NoError(t, err)

		got, err := items.FindByID(ctx, item.ID)
		require.NoError(t, err)
		assert.True(t, got.Stock.Equal(decimal.NewFromInt(25)))
		_, err = txs.FindByID(ctx, "TRX-IN-1")
		assert.NoError(t, err)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := scope.Execute(ctx, func(repos appstock.TransactionalRepositories) error {
			if err := repos.Items().SetStock(ctx, item.ID, decimal.NewFromInt(99)); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.ErrorIs(t, err, shared.ErrPersistence)

		got, err := items.FindByID(ctx, item.ID)
		require.NoError(t, err)
		assert.True(t, got.Stock.Equal(decimal.NewFromInt(25)))
	})

	t.Run("domain errors pass through", func(t *testing.T) {
		insufficient := shared.NewInsufficientStockError(item.ID.String(), "SCP-1", decimal.NewFromInt(25), decimal.NewFromInt(30))
		err := scope.Execute(ctx, func(appstock.TransactionalRepositories) error {
			return insufficient
		})
		assert.Same(t, insufficient, err)
	})
}
