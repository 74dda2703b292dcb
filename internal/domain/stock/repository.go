package stock

import (
	"context"
	"time"

	"github.com/wms/backend/internal/domain/shared"
)

// TransactionFilter narrows transaction listings.
type TransactionFilter struct {
	shared.Filter
	Type TransactionType
	From *time.Time // inclusive
	To   *time.Time // inclusive
	// Terms must each appear, case-insensitively, in the id, supplier,
	// PO number, notes, or in any line's name or SKU.
	Terms []string
}

// TransactionRepository persists transactions with their lines.
type TransactionRepository interface {
	// Create inserts the header and lines. An existing id yields
	// shared.ErrAlreadyExists.
	Create(ctx context.Context, tx *Transaction) error

	// Update overwrites the header and replaces all lines
	Update(ctx context.Context, tx *Transaction) error

	// FindByID loads a transaction with its lines
	FindByID(ctx context.Context, id string) (*Transaction, error)

	// FindByIDForUpdate loads a transaction and locks its header row
	FindByIDForUpdate(ctx context.Context, id string) (*Transaction, error)

	// Delete removes the header and lines
	Delete(ctx context.Context, id string) error

	// FindAll lists transactions with their lines
	FindAll(ctx context.Context, filter TransactionFilter) ([]Transaction, error)

	// Count counts transactions matching the filter
	Count(ctx context.Context, filter TransactionFilter) (int64, error)
}
