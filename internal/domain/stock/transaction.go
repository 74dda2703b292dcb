// Package stock models inbound and outbound stock transactions and the
// ledger that keeps item stock consistent with them.
package stock

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/shared"
)

// TransactionType is the direction of a stock movement.
type TransactionType string

const (
	// TransactionTypeInbound increases stock
	TransactionTypeInbound TransactionType = "inbound"
	// TransactionTypeOutbound decreases stock
	TransactionTypeOutbound TransactionType = "outbound"
)

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// IsValid returns true if the transaction type is valid
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeInbound, TransactionTypeOutbound:
		return true
	}
	return false
}

// Sign returns +1 for inbound and -1 for outbound.
func (t TransactionType) Sign() decimal.Decimal {
	if t == TransactionTypeOutbound {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// TransactionItem is one line of a transaction. SKU and Name are a snapshot
// taken when the line was recorded; ItemID is a non-owning reference.
type TransactionItem struct {
	ItemID    uuid.UUID
	SKU       string
	Name      string
	Qty       decimal.Decimal // base unit, applied to stock
	InputQty  decimal.Decimal // as typed, in UOM
	UOM       string
	UnitPrice decimal.Decimal // per UOM
	Total     decimal.Decimal
}

// SignedQty returns the stock delta of the line for a transaction type.
func (l TransactionItem) SignedQty(t TransactionType) decimal.Decimal {
	return l.Qty.Mul(t.Sign())
}

// InboundDetails are the header fields only inbound transactions carry.
type InboundDetails struct {
	Supplier     string
	PONumber     string
	DeliveryNote string
	Documents    []string // object storage keys
}

func (d InboundDetails) isEmpty() bool {
	return d.Supplier == "" && d.PONumber == "" && d.DeliveryNote == "" && len(d.Documents) == 0
}

// Transaction is a dated stock movement with one or more lines.
type Transaction struct {
	ID         string
	Type       TransactionType
	Date       time.Time
	Items      []TransactionItem
	TotalValue decimal.Decimal
	UserID     string
	Notes      string
	InboundDetails
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTransaction validates and assembles a transaction. Inbound details
// are dropped for outbound transactions.
func NewTransaction(id string, typ TransactionType, date time.Time, userID, notes string, details InboundDetails, items []TransactionItem) (*Transaction, error) {
	if strings.TrimSpace(id) == "" {
		return nil, shared.NewValidationError("transaction id is required")
	}
	now := time.Now()
	tx := &Transaction{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.assign(typ, date, userID, notes, details, items); err != nil {
		return nil, err
	}
	return tx, nil
}

// Revise replaces the content of the transaction, keeping its id.
func (t *Transaction) Revise(typ TransactionType, date time.Time, userID, notes string, details InboundDetails, items []TransactionItem) error {
	if err := t.assign(typ, date, userID, notes, details, items); err != nil {
		return err
	}
	t.UpdatedAt = time.Now()
	return nil
}

func (t *Transaction) assign(typ TransactionType, date time.Time, userID, notes string, details InboundDetails, items []TransactionItem) error {
	if !typ.IsValid() {
		return shared.NewValidationError("transaction type must be inbound or outbound, got %q", typ)
	}
	if date.IsZero() {
		return shared.NewValidationError("transaction date is required")
	}
	if len(items) == 0 {
		return shared.NewValidationError("transaction %s must have at least one item", t.ID)
	}
	for i, line := range items {
		if line.ItemID == uuid.Nil {
			return shared.NewValidationError("line %d: item id is required", i+1)
		}
		if !line.Qty.IsPositive() {
			return shared.NewDomainError(shared.CodeInvalidQuantity, fmt.Sprintf("line %d: quantity must be greater than zero", i+1))
		}
		if line.UnitPrice.IsNegative() {
			return shared.NewValidationError("line %d: unit price cannot be negative", i+1)
		}
	}
	if typ == TransactionTypeOutbound {
		details = InboundDetails{}
	}

	t.Type = typ
	t.Date = date
	t.UserID = userID
	t.Notes = strings.TrimSpace(notes)
	t.InboundDetails = details
	t.Items = append([]TransactionItem(nil), items...)
	t.recalculate()
	return nil
}

// recalculate keeps TotalValue equal to the sum of line totals.
func (t *Transaction) recalculate() {
	total := decimal.Zero
	for i := range t.Items {
		line := &t.Items[i]
		if line.InputQty.IsZero() {
			line.InputQty = line.Qty
		}
		line.Total = line.InputQty.Mul(line.UnitPrice)
		total = total.Add(line.Total)
	}
	t.TotalValue = total
}

// HasInboundDetails reports whether any inbound-only field is set.
func (t *Transaction) HasInboundDetails() bool {
	return !t.InboundDetails.isEmpty()
}
