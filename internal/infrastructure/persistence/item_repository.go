package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/persistence/models"
)

const entityInventoryItem = "inventory item"

// GormItemRepository implements inventory.ItemRepository using GORM
type GormItemRepository struct {
	db *gorm.DB
}

// NewGormItemRepository creates a new GormItemRepository
func NewGormItemRepository(db *gorm.DB) *GormItemRepository {
	return &GormItemRepository{db: db}
}

// FindByID finds an item by its ID
func (r *GormItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryItem, error) {
	var model models.InventoryItemModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFoundOr("find item", entityInventoryItem, id.String(), err)
	}
	return model.ToDomain(), nil
}

// FindBySKU finds an item by SKU
func (r *GormItemRepository) FindBySKU(ctx context.Context, sku string) (*inventory.InventoryItem, error) {
	var model models.InventoryItemModel
	if err := r.db.WithContext(ctx).First(&model, "sku = ?", strings.TrimSpace(sku)).Error; err != nil {
		return nil, notFoundOr("find item by sku", entityInventoryItem, sku, err)
	}
	return model.ToDomain(), nil
}

// FindAll lists items matching the filter
func (r *GormItemRepository) FindAll(ctx context.Context, filter inventory.ItemFilter) ([]inventory.InventoryItem, error) {
	var rows []models.InventoryItemModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.InventoryItemModel{}), filter)
	query = applyOrdering(query, filter.Filter, ItemSortFields, "created_at")
	query = applyPagination(query, filter.Filter)
	if err := query.Find(&rows).Error; err != nil {
		return nil, translateError("list items", err)
	}
	items := make([]inventory.InventoryItem, len(rows))
	for i := range rows {
		items[i] = *rows[i].ToDomain()
	}
	return items, nil
}

// Count counts items matching the filter
func (r *GormItemRepository) Count(ctx context.Context, filter inventory.ItemFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.InventoryItemModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, translateError("count items", err)
	}
	return count, nil
}

// Save updates the master columns of an existing item and inserts the
// item when no row has its id. Stock is left out of the update so a ledger
// movement committed since the item was read is never overwritten.
func (r *GormItemRepository) Save(ctx context.Context, item *inventory.InventoryItem) error {
	model := models.InventoryItemModelFromDomain(item)
	db := r.db.WithContext(ctx)
	result := db.Model(model).
		Select("*").
		Omit("id", "stock", "created_at").
		Updates(model)
	if result.Error != nil {
		return translateError("save item "+item.SKU, result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}
	if err := db.Create(model).Error; err != nil {
		return translateError("create item "+item.SKU, err)
	}
	return nil
}

// Delete removes an item. Transaction lines referencing it are kept.
func (r *GormItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.InventoryItemModel{}, "id = ?", id)
	if result.Error != nil {
		return translateError("delete item "+id.String(), result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError(entityInventoryItem, id.String())
	}
	return nil
}

// GetForUpdate loads an item with SELECT ... FOR UPDATE. The lock is held
// until the surrounding database transaction ends.
func (r *GormItemRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*inventory.InventoryItem, error) {
	var model models.InventoryItemModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, notFoundOr("lock item", entityInventoryItem, id.String(), err)
	}
	return model.ToDomain(), nil
}

// SetStock overwrites the stock of one item
func (r *GormItemRepository) SetStock(ctx context.Context, id uuid.UUID, stock decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&models.InventoryItemModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"stock": stock, "updated_at": nowUTC()})
	if result.Error != nil {
		return translateError("set stock of item "+id.String(), result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError(entityInventoryItem, id.String())
	}
	return nil
}

func (r *GormItemRepository) applyFilter(query *gorm.DB, filter inventory.ItemFilter) *gorm.DB {
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Active != nil {
		query = query.Where("active = ?", *filter.Active)
	}
	if filter.LowStock {
		query = query.Where("stock <= min_level")
	}
	for _, term := range searchPatterns(filter.Search) {
		query = query.Where(
			"(LOWER(sku) LIKE ? ESCAPE '\\' OR LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(category) LIKE ? ESCAPE '\\' OR LOWER(location) LIKE ? ESCAPE '\\')",
			term, term, term, term,
		)
	}
	return query
}

var _ inventory.ItemRepository = (*GormItemRepository)(nil)
