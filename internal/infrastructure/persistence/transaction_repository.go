package persistence

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/stock"
	"github.com/wms/backend/internal/infrastructure/persistence/models"
)

const entityTransaction = "transaction"

// transactionSearchClause matches one lower-cased pattern against the
// header columns or any line's name or SKU.
const transactionSearchClause = `(LOWER(transactions.id) LIKE ? ESCAPE '\' ` +
	`OR LOWER(transactions.supplier) LIKE ? ESCAPE '\' ` +
	`OR LOWER(transactions.po_number) LIKE ? ESCAPE '\' ` +
	`OR LOWER(transactions.notes) LIKE ? ESCAPE '\' ` +
	`OR EXISTS (SELECT 1 FROM transaction_items ti WHERE ti.transaction_id = transactions.id ` +
	`AND (LOWER(ti.name) LIKE ? ESCAPE '\' OR LOWER(ti.sku) LIKE ? ESCAPE '\')))`

// GormTransactionRepository implements stock.TransactionRepository using GORM
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// Create inserts the header and its lines
func (r *GormTransactionRepository) Create(ctx context.Context, tx *stock.Transaction) error {
	model := models.TransactionModelFromDomain(tx)
	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if err := db.Omit(clause.Associations).Create(model).Error; err != nil {
			return err
		}
		return createLines(db, model.Items)
	})
	return translateError("create transaction "+tx.ID, err)
}

// Update overwrites the header and replaces every line
func (r *GormTransactionRepository) Update(ctx context.Context, tx *stock.Transaction) error {
	model := models.TransactionModelFromDomain(tx)
	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		result := db.Model(&models.TransactionModel{}).
			Where("id = ?", tx.ID).
			Omit(clause.Associations).
			Select("type", "date", "total_value", "user_id", "notes", "supplier",
				"po_number", "delivery_note", "documents", "updated_at").
			Updates(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewNotFoundError(entityTransaction, tx.ID)
		}
		if err := db.Where("transaction_id = ?", tx.ID).Delete(&models.TransactionItemModel{}).Error; err != nil {
			return err
		}
		return createLines(db, model.Items)
	})
	return translateError("update transaction "+tx.ID, err)
}

func createLines(db *gorm.DB, lines []models.TransactionItemModel) error {
	if len(lines) == 0 {
		return nil
	}
	return db.Create(&lines).Error
}

// FindByID loads a transaction with its lines
func (r *GormTransactionRepository) FindByID(ctx context.Context, id string) (*stock.Transaction, error) {
	return r.find(r.db.WithContext(ctx), id, "find transaction")
}

// FindByIDForUpdate loads a transaction and locks its header row
func (r *GormTransactionRepository) FindByIDForUpdate(ctx context.Context, id string) (*stock.Transaction, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id, "lock transaction")
}

func (r *GormTransactionRepository) find(db *gorm.DB, id, op string) (*stock.Transaction, error) {
	var model models.TransactionModel
	if err := db.Preload("Items", orderLines).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(op, entityTransaction, id, err)
	}
	return model.ToDomain(), nil
}

// Delete removes the header and lines. A missing id is not an error.
func (r *GormTransactionRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if err := db.Where("transaction_id = ?", id).Delete(&models.TransactionItemModel{}).Error; err != nil {
			return err
		}
		return db.Where("id = ?", id).Delete(&models.TransactionModel{}).Error
	})
	return translateError("delete transaction "+id, err)
}

// FindAll lists transactions with their lines, newest first by default
func (r *GormTransactionRepository) FindAll(ctx context.Context, filter stock.TransactionFilter) ([]stock.Transaction, error) {
	var rows []models.TransactionModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.TransactionModel{}), filter)
	query = applyOrdering(query, filter.Filter, TransactionSortFields, "date")
	query = applyPagination(query, filter.Filter)
	if err := query.Preload("Items", orderLines).Find(&rows).Error; err != nil {
		return nil, translateError("list transactions", err)
	}
	txs := make([]stock.Transaction, len(rows))
	for i := range rows {
		txs[i] = *rows[i].ToDomain()
	}
	return txs, nil
}

// Count counts transactions matching the filter
func (r *GormTransactionRepository) Count(ctx context.Context, filter stock.TransactionFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.TransactionModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, translateError("count transactions", err)
	}
	return count, nil
}

func (r *GormTransactionRepository) applyFilter(query *gorm.DB, filter stock.TransactionFilter) *gorm.DB {
	if filter.Type != "" {
		query = query.Where("transactions.type = ?", filter.Type.String())
	}
	if filter.From != nil {
		query = query.Where("transactions.date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("transactions.date <= ?", *filter.To)
	}
	terms := filter.Terms
	if len(terms) == 0 && filter.Search != "" {
		terms = stock.SearchTerms(filter.Search)
	}
	for _, p := range likePatterns(terms) {
		query = query.Where(transactionSearchClause, p, p, p, p, p, p)
	}
	return query
}

func orderLines(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC")
}

var _ stock.TransactionRepository = (*GormTransactionRepository)(nil)
