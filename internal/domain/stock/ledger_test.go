package stock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
)

// memStore is an in-memory StockStore that records lock order.
type memStore struct {
	items   map[uuid.UUID]*inventory.InventoryItem
	locked  []uuid.UUID
	failSet error
}

func newMemStore(items ...*inventory.InventoryItem) *memStore {
	s := &memStore{items: make(map[uuid.UUID]*inventory.InventoryItem)}
	for _, it := range items {
		s.items[it.ID] = it
	}
	return s
}

func (s *memStore) GetForUpdate(_ context.Context, id uuid.UUID) (*inventory.InventoryItem, error) {
	it, ok := s.items[id]
	if !ok {
		return nil, shared.NewNotFoundError("inventory item", id.String())
	}
	s.locked = append(s.locked, id)
	cp := *it
	return &cp, nil
}

func (s *memStore) SetStock(_ context.Context, id uuid.UUID, stock decimal.Decimal) error {
	if s.failSet != nil {
		return s.failSet
	}
	s.items[id].Stock = stock
	return nil
}

func (s *memStore) stock(id uuid.UUID) decimal.Decimal {
	return s.items[id].Stock
}

func newItem(t *testing.T, sku string, stock int64) *inventory.InventoryItem {
	t.Helper()
	item, err := inventory.NewInventoryItem(inventory.Attributes{
		SKU:   sku,
		Name:  sku + " name",
		Price: decimal.NewFromInt(1000),
	}, decimal.NewFromInt(stock))
	require.NoError(t, err)
	return item
}

func newTx(t *testing.T, typ TransactionType, lines ...TransactionItem) *Transaction {
	t.Helper()
	tx, err := NewTransaction("TRX-20240101-120000-001", typ, time.Now(), "user-1", "", InboundDetails{}, lines)
	require.NoError(t, err)
	return tx
}

func line(item *inventory.InventoryItem, qty int64) TransactionItem {
	return TransactionItem{
		ItemID:    item.ID,
		SKU:       item.SKU,
		Name:      item.Name,
		Qty:       decimal.NewFromInt(qty),
		UOM:       item.Unit,
		UnitPrice: item.Price,
	}
}

func TestLedger_ApplyInboundAndOutbound(t *testing.T) {
	ctx := context.Background()
	a := newItem(t, "A", 10)
	b := newItem(t, "B", 10)
	store := newMemStore(a, b)
	ledger := NewLedger()

	_, err := ledger.Apply(ctx, store, newTx(t, TransactionTypeInbound, line(a, 5), line(b, 2)))
	require.NoError(t, err)
	_, err = ledger.Apply(ctx, store, newTx(t, TransactionTypeOutbound, line(a, 3)))
	require.NoError(t, err)

	assert.True(t, store.stock(a.ID).Equal(decimal.NewFromInt(12)))
	assert.True(t, store.stock(b.ID).Equal(decimal.NewFromInt(12)))
}

func TestLedger_StockEqualsInitialPlusSignedDeltas(t *testing.T) {
	ctx := context.Background()
	item := newItem(t, "A", 40)
	store := newMemStore(item)
	ledger := NewLedger()

	moves := []struct {
		typ TransactionType
		qty int64
	}{
		{TransactionTypeInbound, 25},
		{TransactionTypeOutbound, 80},
		{TransactionTypeOutbound, 7},
		{TransactionTypeInbound, 3},
	}
	expected := decimal.NewFromInt(40)
	for _, m := range moves {
		tx := newTx(t, m.typ, line(item, m.qty))
		_, err := ledger.Apply(ctx, store, tx)
		require.NoError(t, err)
		expected = expected.Add(decimal.NewFromInt(m.qty).Mul(m.typ.Sign()))
	}

	assert.True(t, store.stock(item.ID).Equal(expected), "got %s want %s", store.stock(item.ID), expected)
	assert.True(t, store.stock(item.ID).IsNegative(), "ledger must not clamp")
}

func TestLedger_ApplyThenRevertIsIdentity(t *testing.T) {
	ctx := context.Background()
	a := newItem(t, "A", 17)
	b := newItem(t, "B", 4)
	store := newMemStore(a, b)
	ledger := NewLedger()

	for _, typ := range []TransactionType{TransactionTypeInbound, TransactionTypeOutbound} {
		tx := newTx(t, typ, line(a, 9), line(b, 6), line(a, 1))
		_, err := ledger.Apply(ctx, store, tx)
		require.NoError(t, err)
		_, err = ledger.Revert(ctx, store, tx)
		require.NoError(t, err)

		assert.True(t, store.stock(a.ID).Equal(decimal.NewFromInt(17)))
		assert.True(t, store.stock(b.ID).Equal(decimal.NewFromInt(4)))
	}
}

func TestLedger_ReapplyEditsWithoutDoubleCounting(t *testing.T) {
	ctx := context.Background()
	item := newItem(t, "A", 100)
	store := newMemStore(item)
	ledger := NewLedger()

	old := newTx(t, TransactionTypeOutbound, line(item, 5))
	_, err := ledger.Apply(ctx, store, old)
	require.NoError(t, err)
	require.True(t, store.stock(item.ID).Equal(decimal.NewFromInt(95)))

	next := newTx(t, TransactionTypeOutbound, line(item, 8))
	m, err := ledger.Reapply(ctx, store, old, next)
	require.NoError(t, err)

	assert.True(t, store.stock(item.ID).Equal(decimal.NewFromInt(92)), "got %s", store.stock(item.ID))
	require.Len(t, m.Adjustments, 2)
	assert.True(t, m.Adjustments[0].Delta.Equal(decimal.NewFromInt(5)))
	assert.True(t, m.Adjustments[1].Delta.Equal(decimal.NewFromInt(-8)))
}

func TestLedger_ReapplyChangingTypeAndItem(t *testing.T) {
	ctx := context.Background()
	a := newItem(t, "A", 50)
	b := newItem(t, "B", 50)
	store := newMemStore(a, b)
	ledger := NewLedger()

	old := newTx(t, TransactionTypeInbound, line(a, 10))
	_, err := ledger.Apply(ctx, store, old)
	require.NoError(t, err)

	next := newTx(t, TransactionTypeOutbound, line(b, 4))
	_, err = ledger.Reapply(ctx, store, old, next)
	require.NoError(t, err)

	assert.True(t, store.stock(a.ID).Equal(decimal.NewFromInt(50)))
	assert.True(t, store.stock(b.ID).Equal(decimal.NewFromInt(46)))
}

func TestLedger_RevertDeletedInbound(t *testing.T) {
	ctx := context.Background()
	item := newItem(t, "A", 50)
	store := newMemStore(item)
	ledger := NewLedger()

	tx := newTx(t, TransactionTypeInbound, line(item, 20))
	_, err := ledger.Apply(ctx, store, tx)
	require.NoError(t, err)
	require.True(t, store.stock(item.ID).Equal(decimal.NewFromInt(70)))

	_, err = ledger.Revert(ctx, store, tx)
	require.NoError(t, err)
	assert.True(t, store.stock(item.ID).Equal(decimal.NewFromInt(50)))
}

func TestLedger_MissingItems(t *testing.T) {
	ctx := context.Background()
	kept := newItem(t, "A", 10)
	gone := newItem(t, "B", 10)
	store := newMemStore(kept)
	ledger := NewLedger()

	tx := newTx(t, TransactionTypeInbound, line(kept, 1), line(gone, 2))

	t.Run("apply fails", func(t *testing.T) {
		_, err := ledger.Apply(ctx, store, tx)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("revert skips dangling references", func(t *testing.T) {
		store.items[kept.ID].Stock = decimal.NewFromInt(11)
		m, err := ledger.Revert(ctx, store, tx)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{gone.ID}, m.Dangling)
		assert.True(t, store.stock(kept.ID).Equal(decimal.NewFromInt(10)))
	})
}

func TestLedger_PropagatesStoreErrors(t *testing.T) {
	item := newItem(t, "A", 10)
	store := newMemStore(item)
	store.failSet = shared.NewPersistenceError("set stock", errors.New("connection reset"))

	_, err := NewLedger().Apply(context.Background(), store, newTx(t, TransactionTypeInbound, line(item, 1)))
	assert.ErrorIs(t, err, shared.ErrPersistence)
}

func TestLedger_LocksInItemOrder(t *testing.T) {
	a := newItem(t, "A", 10)
	b := newItem(t, "B", 10)
	c := newItem(t, "C", 10)
	store := newMemStore(a, b, c)

	tx := newTx(t, TransactionTypeInbound, line(c, 1), line(a, 1), line(b, 1))
	_, err := NewLedger().Apply(context.Background(), store, tx)
	require.NoError(t, err)

	for i := 1; i < len(store.locked); i++ {
		assert.Less(t, store.locked[i-1].String(), store.locked[i].String())
	}
}

func TestNetDeltas(t *testing.T) {
	a := newItem(t, "A", 0)
	b := newItem(t, "B", 0)

	old := newTx(t, TransactionTypeOutbound, line(a, 5), line(b, 2))
	next := newTx(t, TransactionTypeOutbound, line(a, 8), line(b, 2))

	deltas := NetDeltas(old, next)
	require.Len(t, deltas, 1, "unchanged lines cancel out")
	assert.Equal(t, a.ID, deltas[0].ItemID)
	assert.True(t, deltas[0].Qty.Equal(decimal.NewFromInt(-3)))

	assert.Len(t, Deltas(nil), 0)
	assert.Len(t, NetDeltas(nil, next), 2)
}
