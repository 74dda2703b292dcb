package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wms/backend/internal/domain/reject"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/persistence/models"
)

const (
	entityRejectItem = "reject item"
	entityRejectLog  = "reject log"
)

// GormRejectItemRepository implements reject.ItemRepository using GORM
type GormRejectItemRepository struct {
	db *gorm.DB
}

// NewGormRejectItemRepository creates a new GormRejectItemRepository
func NewGormRejectItemRepository(db *gorm.DB) *GormRejectItemRepository {
	return &GormRejectItemRepository{db: db}
}

// FindByID finds a reject item by ID
func (r *GormRejectItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*reject.RejectItem, error) {
	var model models.RejectItemModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFoundOr("find reject item", entityRejectItem, id.String(), err)
	}
	return model.ToDomain(), nil
}

// FindBySKU finds a reject item by SKU
func (r *GormRejectItemRepository) FindBySKU(ctx context.Context, sku string) (*reject.RejectItem, error) {
	var model models.RejectItemModel
	if err := r.db.WithContext(ctx).First(&model, "sku = ?", strings.TrimSpace(sku)).Error; err != nil {
		return nil, notFoundOr("find reject item by sku", entityRejectItem, sku, err)
	}
	return model.ToDomain(), nil
}

// FindAll lists reject items
func (r *GormRejectItemRepository) FindAll(ctx context.Context, filter shared.Filter) ([]reject.RejectItem, error) {
	var rows []models.RejectItemModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.RejectItemModel{}), filter)
	query = applyOrdering(query, filter, RejectItemSortFields, "sku")
	query = applyPagination(query, filter)
	if err := query.Find(&rows).Error; err != nil {
		return nil, translateError("list reject items", err)
	}
	items := make([]reject.RejectItem, len(rows))
	for i := range rows {
		items[i] = *rows[i].ToDomain()
	}
	return items, nil
}

// Count counts reject items matching the filter
func (r *GormRejectItemRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.RejectItemModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, translateError("count reject items", err)
	}
	return count, nil
}

// Save creates or updates a reject item
func (r *GormRejectItemRepository) Save(ctx context.Context, item *reject.RejectItem) error {
	if err := r.db.WithContext(ctx).Save(models.RejectItemModelFromDomain(item)).Error; err != nil {
		return translateError("save reject item "+item.SKU, err)
	}
	return nil
}

// Delete removes a reject item. Logged snapshots are kept.
func (r *GormRejectItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.RejectItemModel{}, "id = ?", id)
	if result.Error != nil {
		return translateError("delete reject item "+id.String(), result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError(entityRejectItem, id.String())
	}
	return nil
}

func (r *GormRejectItemRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for _, p := range searchPatterns(filter.Search) {
		query = query.Where("(LOWER(sku) LIKE ? ESCAPE '\\' OR LOWER(name) LIKE ? ESCAPE '\\')", p, p)
	}
	return query
}

// GormRejectLogRepository implements reject.LogRepository using GORM
type GormRejectLogRepository struct {
	db *gorm.DB
}

// NewGormRejectLogRepository creates a new GormRejectLogRepository
func NewGormRejectLogRepository(db *gorm.DB) *GormRejectLogRepository {
	return &GormRejectLogRepository{db: db}
}

// Create inserts the log and its lines
func (r *GormRejectLogRepository) Create(ctx context.Context, log *reject.RejectLog) error {
	model := models.RejectLogModelFromDomain(log)
	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if err := db.Omit(clause.Associations).Create(model).Error; err != nil {
			return err
		}
		return createLogLines(db, model.Items)
	})
	return translateError("create reject log "+log.ID, err)
}

// Update overwrites the header and replaces every line
func (r *GormRejectLogRepository) Update(ctx context.Context, log *reject.RejectLog) error {
	model := models.RejectLogModelFromDomain(log)
	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		result := db.Model(&models.RejectLogModel{}).
			Where("id = ?", log.ID).
			Omit(clause.Associations).
			Select("date", "user_id", "notes", "updated_at").
			Updates(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewNotFoundError(entityRejectLog, log.ID)
		}
		if err := db.Where("reject_log_id = ?", log.ID).Delete(&models.RejectLogItemModel{}).Error; err != nil {
			return err
		}
		return createLogLines(db, model.Items)
	})
	return translateError("update reject log "+log.ID, err)
}

func createLogLines(db *gorm.DB, lines []models.RejectLogItemModel) error {
	if len(lines) == 0 {
		return nil
	}
	return db.Create(&lines).Error
}

// FindByID loads a log with its lines
func (r *GormRejectLogRepository) FindByID(ctx context.Context, id string) (*reject.RejectLog, error) {
	var model models.RejectLogModel
	if err := r.db.WithContext(ctx).Preload("Items", orderLines).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFoundOr("find reject log", entityRejectLog, id, err)
	}
	return model.ToDomain(), nil
}

// Delete removes a log and its lines
func (r *GormRejectLogRepository) Delete(ctx context.Context, id string) error {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if err := db.Where("reject_log_id = ?", id).Delete(&models.RejectLogItemModel{}).Error; err != nil {
			return err
		}
		result := db.Where("id = ?", id).Delete(&models.RejectLogModel{})
		deleted = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return translateError("delete reject log "+id, err)
	}
	if deleted == 0 {
		return shared.NewNotFoundError(entityRejectLog, id)
	}
	return nil
}

// FindAll lists logs with their lines, newest first by default
func (r *GormRejectLogRepository) FindAll(ctx context.Context, filter reject.LogFilter) ([]reject.RejectLog, error) {
	var rows []models.RejectLogModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.RejectLogModel{}), filter)
	query = applyOrdering(query, filter.Filter, RejectLogSortFields, "date")
	query = applyPagination(query, filter.Filter)
	if err := query.Preload("Items", orderLines).Find(&rows).Error; err != nil {
		return nil, translateError("list reject logs", err)
	}
	logs := make([]reject.RejectLog, len(rows))
	for i := range rows {
		logs[i] = *rows[i].ToDomain()
	}
	return logs, nil
}

// Count counts logs matching the filter
func (r *GormRejectLogRepository) Count(ctx context.Context, filter reject.LogFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.RejectLogModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, translateError("count reject logs", err)
	}
	return count, nil
}

func (r *GormRejectLogRepository) applyFilter(query *gorm.DB, filter reject.LogFilter) *gorm.DB {
	if filter.From != nil {
		query = query.Where("reject_logs.date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("reject_logs.date <= ?", *filter.To)
	}
	terms := filter.Terms
	if len(terms) == 0 && filter.Search != "" {
		terms = searchTermsOf(filter.Search)
	}
	for _, p := range likePatterns(terms) {
		query = query.Where(`(LOWER(reject_logs.id) LIKE ? ESCAPE '\' OR LOWER(reject_logs.notes) LIKE ? ESCAPE '\' `+
			`OR EXISTS (SELECT 1 FROM reject_log_items rli WHERE rli.reject_log_id = reject_logs.id `+
			`AND (LOWER(rli.item_name) LIKE ? ESCAPE '\' OR LOWER(rli.sku) LIKE ? ESCAPE '\' OR LOWER(rli.reason) LIKE ? ESCAPE '\')))`,
			p, p, p, p, p)
	}
	return query
}

var (
	_ reject.ItemRepository = (*GormRejectItemRepository)(nil)
	_ reject.LogRepository  = (*GormRejectLogRepository)(nil)
)
