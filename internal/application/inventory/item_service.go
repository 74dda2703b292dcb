// Package inventory serves the item master: CRUD, upsert by SKU, bulk
// import, manual stock corrections and dashboard statistics.
package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appstock "github.com/wms/backend/internal/application/stock"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/uom"
)

// StatsRecorder receives every computed stats snapshot.
type StatsRecorder interface {
	RecordStats(ctx context.Context, stats inventory.Stats)
}

// ItemService handles item master operations
type ItemService struct {
	repo     inventory.ItemRepository
	scope    appstock.TransactionScope
	resolver *uom.Resolver
	stats    StatsRecorder
	logger   *zap.Logger
}

// NewItemService creates a new ItemService. The scope serializes manual
// stock corrections with concurrent transactions.
func NewItemService(repo inventory.ItemRepository, scope appstock.TransactionScope, resolver *uom.Resolver, logger *zap.Logger) *ItemService {
	return &ItemService{
		repo:     repo,
		scope:    scope,
		resolver: resolver,
		logger:   logger,
	}
}

// SetStatsRecorder sets the recorder notified by Stats
func (s *ItemService) SetStatsRecorder(r StatsRecorder) {
	s.stats = r
}

// Create adds a new item
func (s *ItemService) Create(ctx context.Context, req ItemRequest) (*ItemResponse, error) {
	item, err := inventory.NewInventoryItem(req.attributes(), req.openingStock())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, item); err != nil {
		return nil, err
	}
	s.logger.Info("Item created", zap.String("item_id", item.ID.String()), zap.String("sku", item.SKU))
	resp := ToItemResponse(item)
	return &resp, nil
}

// GetByID retrieves an item by id
func (s *ItemService) GetByID(ctx context.Context, id uuid.UUID) (*ItemResponse, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToItemResponse(item)
	return &resp, nil
}

// GetBySKU retrieves an item by its SKU
func (s *ItemService) GetBySKU(ctx context.Context, sku string) (*ItemResponse, error) {
	item, err := s.repo.FindBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	resp := ToItemResponse(item)
	return &resp, nil
}

// List retrieves items with filtering and pagination
func (s *ItemService) List(ctx context.Context, filter ItemListFilter) ([]ItemResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "sku"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "asc"
	}

	domainFilter := inventory.ItemFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
			Search:   filter.Search,
		},
		Category: filter.Category,
		Active:   filter.Active,
		LowStock: filter.LowStock,
	}

	items, err := s.repo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]ItemResponse, len(items))
	for i := range items {
		responses[i] = ToItemResponse(&items[i])
	}
	return responses, total, nil
}

// Update replaces the master data of an item. Stock is not changed.
func (s *ItemService) Update(ctx context.Context, id uuid.UUID, req ItemRequest) (*ItemResponse, error) {
	return s.modify(ctx, id, func(item *inventory.InventoryItem) error {
		return item.Update(req.attributes())
	})
}

// modify applies fn to the locked row and saves the master data. The lock
// keeps the returned stock consistent with concurrent ledger movements.
func (s *ItemService) modify(ctx context.Context, id uuid.UUID, fn func(*inventory.InventoryItem) error) (*ItemResponse, error) {
	var item *inventory.InventoryItem
	err := s.scope.Execute(ctx, func(repos appstock.TransactionalRepositories) error {
		locked, err := repos.Items().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(locked); err != nil {
			return err
		}
		if err := repos.Items().Save(ctx, locked); err != nil {
			return err
		}
		item = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := ToItemResponse(item)
	return &resp, nil
}

// Upsert updates the item with the same SKU in place, keeping its id, or
// inserts a new item.
func (s *ItemService) Upsert(ctx context.Context, req ItemRequest) (*ItemResponse, bool, error) {
	var (
		item    *inventory.InventoryItem
		created bool
	)
	err := s.scope.Execute(ctx, func(repos appstock.TransactionalRepositories) error {
		var err error
		item, created, err = upsertItem(ctx, repos.Items(), req.attributes(), req.Stock, nil)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	resp := ToItemResponse(item)
	return &resp, created, nil
}

// upsertItem inserts attrs as a new item or updates the item with the same
// SKU under a row lock. merge, when set, fills attrs from the stored item
// before the update. A given stock is written through SetStock.
func upsertItem(
	ctx context.Context,
	repo inventory.ItemRepository,
	attrs inventory.Attributes,
	stock *decimal.Decimal,
	merge func(current inventory.Attributes) inventory.Attributes,
) (*inventory.InventoryItem, bool, error) {
	existing, err := repo.FindBySKU(ctx, attrs.SKU)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		item, err := inventory.NewInventoryItem(attrs, valueOr(stock, decimal.Zero))
		if err != nil {
			return nil, false, err
		}
		if err := repo.Save(ctx, item); err != nil {
			return nil, false, err
		}
		return item, true, nil
	case err != nil:
		return nil, false, err
	}

	if stock != nil && stock.IsNegative() {
		return nil, false, shared.NewDomainError(shared.CodeInvalidQuantity, "stock cannot be negative").
			WithDetail("sku", attrs.SKU)
	}
	locked, err := repo.GetForUpdate(ctx, existing.ID)
	if err != nil {
		return nil, false, err
	}
	if merge != nil {
		attrs = merge(locked.Attributes())
	}
	if err := locked.Update(attrs); err != nil {
		return nil, false, err
	}
	if err := repo.Save(ctx, locked); err != nil {
		return nil, false, err
	}
	if stock != nil {
		if err := repo.SetStock(ctx, locked.ID, *stock); err != nil {
			return nil, false, err
		}
		locked.SetStock(*stock)
	}
	return locked, false, nil
}

// Delete removes an item. Transactions that reference it keep their
// snapshots.
func (s *ItemService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Item deleted", zap.String("item_id", id.String()))
	return nil
}

// Activate marks an item active
func (s *ItemService) Activate(ctx context.Context, id uuid.UUID) (*ItemResponse, error) {
	return s.setActive(ctx, id, true)
}

// Deactivate marks an item inactive. Inactive items stay usable in
// transactions.
func (s *ItemService) Deactivate(ctx context.Context, id uuid.UUID) (*ItemResponse, error) {
	return s.setActive(ctx, id, false)
}

func (s *ItemService) setActive(ctx context.Context, id uuid.UUID, active bool) (*ItemResponse, error) {
	return s.modify(ctx, id, func(item *inventory.InventoryItem) error {
		if active {
			item.Activate()
		} else {
			item.Deactivate()
		}
		return nil
	})
}

// SetStock overwrites the stock of an item outside of any transaction
// record, for stocktake corrections.
func (s *ItemService) SetStock(ctx context.Context, id uuid.UUID, actor string, req SetStockRequest) (*ItemResponse, error) {
	if req.Stock.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "stock cannot be negative").
			WithDetail("item_id", id.String())
	}

	var (
		item   *inventory.InventoryItem
		before decimal.Decimal
	)
	err := s.scope.Execute(ctx, func(repos appstock.TransactionalRepositories) error {
		locked, err := repos.Items().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		before = locked.Stock
		if err := repos.Items().SetStock(ctx, id, req.Stock); err != nil {
			return err
		}
		locked.SetStock(req.Stock)
		item = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Stock set manually",
		zap.String("item_id", id.String()),
		zap.String("sku", item.SKU),
		zap.String("user_id", actor),
		zap.String("before", before.String()),
		zap.String("after", item.Stock.String()),
		zap.String("reason", req.Reason))
	if item.IsLowStock() {
		s.logger.Warn("Item at or below minimum level",
			zap.String("sku", item.SKU),
			zap.String("stock", item.Stock.String()),
			zap.String("min_level", item.MinLevel.String()))
	}
	resp := ToItemResponse(item)
	return &resp, nil
}

// Stats summarizes every item.
func (s *ItemService) Stats(ctx context.Context) (inventory.Stats, error) {
	items, err := s.repo.FindAll(ctx, inventory.ItemFilter{})
	if err != nil {
		return inventory.Stats{}, err
	}
	stats := inventory.ComputeStats(items)
	if s.stats != nil {
		s.stats.RecordStats(ctx, stats)
	}
	return stats, nil
}

// ResolveConversion converts a quantity typed in any unit of the item
// into its base unit.
func (s *ItemService) ResolveConversion(ctx context.Context, req ResolveConversionRequest) (*ConversionResponse, error) {
	item, err := s.repo.FindByID(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	res, err := s.resolver.Resolve(item.Unit, item.Conversion(), req.Qty, req.Unit)
	if err != nil {
		return nil, err
	}
	return &ConversionResponse{
		Resolution: res,
		Units:      uom.Units(item.Unit, item.Conversion()),
		UnitPrice:  res.UnitPrice(item.Price),
	}, nil
}
