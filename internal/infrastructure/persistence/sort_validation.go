package persistence

import (
	"strings"

	"gorm.io/gorm"

	"github.com/wms/backend/internal/domain/shared"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// ItemSortFields contains allowed sort fields for inventory items
var ItemSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"sku":        true,
	"name":       true,
	"category":   true,
	"location":   true,
	"price":      true,
	"stock":      true,
	"min_level":  true,
}

// TransactionSortFields contains allowed sort fields for stock transactions
var TransactionSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"date":        true,
	"type":        true,
	"total_value": true,
	"supplier":    true,
}

// RejectItemSortFields contains allowed sort fields for reject master data
var RejectItemSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"sku":        true,
	"name":       true,
}

// RejectLogSortFields contains allowed sort fields for reject logs
var RejectLogSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"date":       true,
}

// applyOrdering orders by a whitelisted column. The id column breaks ties
// so pages are stable.
func applyOrdering(query *gorm.DB, filter shared.Filter, allowed map[string]bool, defaultField string) *gorm.DB {
	field := ValidateSortField(filter.OrderBy, allowed, defaultField)
	dir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(field + " " + dir)
	if field != "id" {
		query = query.Order("id " + dir)
	}
	return query
}

// applyPagination limits the query to one page. A zero page size returns
// every row.
func applyPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.PageSize <= 0 {
		return query
	}
	return query.Offset(filter.Offset()).Limit(filter.PageSize)
}
