package stock

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
)

// StockStore is the item-stock view the ledger writes through. It must be
// bound to the database transaction that also persists the transaction
// record, so the stock change and the record commit or roll back together.
type StockStore interface {
	// GetForUpdate loads an item and holds its row lock until the
	// surrounding transaction ends. Missing items yield shared.ErrNotFound.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*inventory.InventoryItem, error)

	// SetStock overwrites the stock of one item.
	SetStock(ctx context.Context, id uuid.UUID, stock decimal.Decimal) error
}

// Delta is the net signed stock change for one item.
type Delta struct {
	ItemID uuid.UUID
	SKU    string
	Qty    decimal.Decimal
}

// Adjustment records one stock write made by the ledger.
type Adjustment struct {
	ItemID uuid.UUID
	SKU    string
	Before decimal.Decimal
	Delta  decimal.Decimal
	After  decimal.Decimal
}

// Movement is the outcome of a ledger operation.
type Movement struct {
	Adjustments []Adjustment
	// Dangling lists items referenced by a reverted transaction that no
	// longer exist. Their stock cannot be restored.
	Dangling []uuid.UUID
}

func (m *Movement) merge(o Movement) {
	m.Adjustments = append(m.Adjustments, o.Adjustments...)
	m.Dangling = append(m.Dangling, o.Dangling...)
}

// Deltas returns the per-item signed stock change of applying tx, in
// ascending item id order.
func Deltas(tx *Transaction) []Delta {
	acc := newDeltaSet()
	if tx != nil {
		acc.add(tx, decimal.NewFromInt(1))
	}
	return acc.sorted()
}

// NetDeltas returns the per-item change of reverting old and applying
// next. Items whose changes cancel out are omitted.
func NetDeltas(old, next *Transaction) []Delta {
	acc := newDeltaSet()
	if old != nil {
		acc.add(old, decimal.NewFromInt(-1))
	}
	if next != nil {
		acc.add(next, decimal.NewFromInt(1))
	}
	return acc.sorted()
}

type deltaSet map[uuid.UUID]*Delta

func newDeltaSet() deltaSet {
	return make(deltaSet)
}

func (s deltaSet) add(tx *Transaction, sign decimal.Decimal) {
	for _, line := range tx.Items {
		d, ok := s[line.ItemID]
		if !ok {
			d = &Delta{ItemID: line.ItemID, SKU: line.SKU, Qty: decimal.Zero}
			s[line.ItemID] = d
		}
		d.Qty = d.Qty.Add(line.SignedQty(tx.Type).Mul(sign))
	}
}

func (s deltaSet) sorted() []Delta {
	out := make([]Delta, 0, len(s))
	for _, d := range s {
		if d.Qty.IsZero() {
			continue
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ItemID.String() < out[j].ItemID.String()
	})
	return out
}

// Ledger is the only writer of item stock in response to transactions.
// It never clamps and never checks sufficiency; callers pre-check.
type Ledger struct{}

// NewLedger creates a ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Apply adds inbound lines to stock and subtracts outbound lines.
// Every referenced item must exist.
func (l *Ledger) Apply(ctx context.Context, store StockStore, tx *Transaction) (Movement, error) {
	return l.post(ctx, store, Deltas(tx), decimal.NewFromInt(1), false)
}

// Revert undoes Apply. Lines whose item was deleted are reported as
// dangling and skipped.
func (l *Ledger) Revert(ctx context.Context, store StockStore, tx *Transaction) (Movement, error) {
	return l.post(ctx, store, Deltas(tx), decimal.NewFromInt(-1), true)
}

// Reapply reverts old and applies next. Every involved row is locked up
// front in id order, so concurrent edits cannot deadlock on each other.
func (l *Ledger) Reapply(ctx context.Context, store StockStore, old, next *Transaction) (Movement, error) {
	if err := l.lockAll(ctx, store, old, next); err != nil {
		return Movement{}, err
	}
	reverted, err := l.Revert(ctx, store, old)
	if err != nil {
		return Movement{}, err
	}
	applied, err := l.Apply(ctx, store, next)
	if err != nil {
		return Movement{}, err
	}
	reverted.merge(applied)
	return reverted, nil
}

func (l *Ledger) lockAll(ctx context.Context, store StockStore, txs ...*Transaction) error {
	ids := make(map[uuid.UUID]struct{})
	for _, tx := range txs {
		if tx == nil {
			continue
		}
		for _, line := range tx.Items {
			ids[line.ItemID] = struct{}{}
		}
	}
	ordered := make([]uuid.UUID, 0, len(ids))
	for id := range ids {
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].String() < ordered[j].String() })

	for _, id := range ordered {
		if _, err := store.GetForUpdate(ctx, id); err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
	}
	return nil
}

func (l *Ledger) post(ctx context.Context, store StockStore, deltas []Delta, sign decimal.Decimal, allowDangling bool) (Movement, error) {
	var m Movement
	for _, d := range deltas {
		item, err := store.GetForUpdate(ctx, d.ItemID)
		if err != nil {
			if allowDangling && errors.Is(err, shared.ErrNotFound) {
				m.Dangling = append(m.Dangling, d.ItemID)
				continue
			}
			return Movement{}, err
		}
		delta := d.Qty.Mul(sign)
		after := item.Stock.Add(delta)
		if err := store.SetStock(ctx, d.ItemID, after); err != nil {
			return Movement{}, err
		}
		m.Adjustments = append(m.Adjustments, Adjustment{
			ItemID: d.ItemID,
			SKU:    item.SKU,
			Before: item.Stock,
			Delta:  delta,
			After:  after,
		})
	}
	return m, nil
}
