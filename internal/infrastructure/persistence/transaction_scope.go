package persistence

import (
	"context"

	"gorm.io/gorm"

	appstock "github.com/wms/backend/internal/application/stock"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/stock"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// Every repository handed to the callback shares one database transaction.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction. If fn returns an error
// the transaction is rolled back, otherwise it is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appstock.TransactionalRepositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
	return translateError("stock transaction", err)
}

type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// Items returns the item repository bound to the current transaction.
func (r *gormTransactionalRepositories) Items() inventory.ItemRepository {
	return NewGormItemRepository(r.tx)
}

// Transactions returns the transaction repository bound to the current transaction.
func (r *gormTransactionalRepositories) Transactions() stock.TransactionRepository {
	return NewGormTransactionRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appstock.TransactionScope = (*GormTransactionScope)(nil)
