package stock

import (
	"context"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/stock"
)

// TransactionScope provides transactional access to the repositories a
// stock movement writes. All repository operations inside Execute are
// committed or rolled back together.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to repositories within a transaction.
// All repositories returned share the same underlying database transaction.
//
// Items doubles as the ledger's stock.StockStore: its GetForUpdate holds
// row locks until Execute returns.
type TransactionalRepositories interface {
	// Items returns the item repository scoped to the current transaction
	Items() inventory.ItemRepository
	// Transactions returns the transaction repository scoped to the current transaction
	Transactions() stock.TransactionRepository
}

// NoOpTransactionScope runs the function against plain repositories
// without a database transaction. Used by unit tests.
type NoOpTransactionScope struct {
	items        inventory.ItemRepository
	transactions stock.TransactionRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(items inventory.ItemRepository, transactions stock.TransactionRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{items: items, transactions: transactions}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Items returns the item repository.
func (s *NoOpTransactionScope) Items() inventory.ItemRepository {
	return s.items
}

// Transactions returns the transaction repository.
func (s *NoOpTransactionScope) Transactions() stock.TransactionRepository {
	return s.transactions
}

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*NoOpTransactionScope)(nil)
)
