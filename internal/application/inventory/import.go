package inventory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appstock "github.com/wms/backend/internal/application/stock"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	csvimport "github.com/wms/backend/internal/infrastructure/import"
)

// Import limits
const (
	MaxImportRows   = 5000
	MaxImportErrors = 100
)

// ImportRules returns the column rules of the item import file
func ImportRules() []csvimport.FieldRule {
	zero := decimal.Zero
	return []csvimport.FieldRule{
		csvimport.Field("sku").Required().MaxLength(64).Unique().Build(),
		csvimport.Field("name").Present().MaxLength(200).Build(),
		csvimport.Field("category").MaxLength(100).Build(),
		csvimport.Field("location").MaxLength(100).Build(),
		csvimport.Field("unit").MaxLength(20).Build(),
		csvimport.Field("price").Decimal().MinValue(zero).Build(),
		csvimport.Field("stock").Decimal().MinValue(zero).Build(),
		csvimport.Field("min_level").Decimal().MinValue(zero).Build(),
		csvimport.Field("conversion_unit").MaxLength(20).Build(),
		csvimport.Field("conversion_ratio").Decimal().MinValue(zero).Build(),
	}
}

// ImportCSV upserts every valid row by SKU in one database transaction.
// Rows updating an existing SKU lock its row, so stock moved by a
// concurrent transaction is kept unless the row carries a stock value.
// Invalid rows are reported with their line number and skipped.
func (s *ItemService) ImportCSV(ctx context.Context, r io.Reader) (*ImportResult, error) {
	parser, err := csvimport.NewParser(r, csvimport.WithMaxRows(MaxImportRows))
	if err != nil {
		return nil, shared.NewValidationError("%s", err.Error())
	}

	errs := csvimport.NewErrorCollection(MaxImportErrors)
	validator := csvimport.NewFieldValidator(ImportRules(), errs)
	if missing := parser.Missing(validator.RequiredColumns()...); len(missing) > 0 {
		return nil, shared.NewValidationError("CSV file is missing columns: %s", strings.Join(missing, ", ")).
			WithDetail("missing", missing)
	}

	rows, err := parser.All(errs)
	if err != nil {
		if errors.Is(err, csvimport.ErrTooManyRows) {
			return nil, shared.NewValidationError("%s", err.Error())
		}
		return nil, err
	}

	result := &ImportResult{TotalRows: len(rows)}
	err = s.scope.Execute(ctx, func(repos appstock.TransactionalRepositories) error {
		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !validator.ValidateRow(row) {
				continue
			}
			_, created, err := importRow(ctx, repos.Items(), row)
			if err != nil {
				var de *shared.DomainError
				if !errors.As(err, &de) || de.Code == shared.CodePersistence || de.Code == shared.CodeAlreadyExists {
					return err
				}
				errs.AddInvalid(row.Line, "", row.Get("sku"), de.Message)
				continue
			}
			if created {
				result.Created++
			} else {
				result.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.ErrorRows = errs.RowCount()
	result.Errors = errs.Errors()
	result.IsTruncated = errs.IsTruncated()
	result.TotalErrors = errs.TotalCount()

	s.logger.Info("Items imported",
		zap.Int("total_rows", result.TotalRows),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("error_rows", result.ErrorRows))
	return result, nil
}

// importRow upserts one validated row. Columns left empty keep the
// current value of an existing item; a new item still needs a name.
func importRow(ctx context.Context, repo inventory.ItemRepository, row *csvimport.Row) (*inventory.InventoryItem, bool, error) {
	fill := func(a inventory.Attributes) inventory.Attributes {
		setString(&a.Name, row.Get("name"))
		setString(&a.Category, row.Get("category"))
		setString(&a.Location, row.Get("location"))
		setString(&a.Unit, row.Get("unit"))
		setDecimal(&a.Price, row.Get("price"))
		setDecimal(&a.MinLevel, row.Get("min_level"))
		setString(&a.ConversionUnit, row.Get("conversion_unit"))
		setDecimal(&a.ConversionRatio, row.Get("conversion_ratio"))
		return a
	}

	var stock *decimal.Decimal
	if v := row.Get("stock"); v != "" {
		d := decimal.RequireFromString(v)
		stock = &d
	}
	return upsertItem(ctx, repo, fill(inventory.Attributes{SKU: row.Get("sku")}), stock, fill)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// setDecimal assigns a value already checked by the field rules.
func setDecimal(dst *decimal.Decimal, v string) {
	if v != "" {
		*dst = decimal.RequireFromString(v)
	}
}

func valueOr(d *decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
	if d == nil {
		return fallback
	}
	return *d
}

// ImportTemplate returns a header-only CSV for the import file.
func ImportTemplate() string {
	rules := ImportRules()
	cols := make([]string, len(rules))
	for i, r := range rules {
		cols[i] = r.Column
	}
	return fmt.Sprintf("%s\n", strings.Join(cols, ","))
}
