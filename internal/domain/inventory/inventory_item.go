package inventory

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/uom"
)

// DefaultUnit is the base unit assigned when none is given.
const DefaultUnit = "Pcs"

// InventoryItem is an item master record. Stock is always held in Unit,
// the item's base unit.
type InventoryItem struct {
	shared.BaseEntity
	SKU             string
	Name            string
	Category        string
	Location        string
	Unit            string
	Price           decimal.Decimal // per base unit
	Stock           decimal.Decimal
	MinLevel        decimal.Decimal
	Active          bool
	ConversionUnit  string
	ConversionRatio decimal.Decimal // base units per ConversionUnit
}

// Attributes are the editable master-data fields of an item.
type Attributes struct {
	SKU             string
	Name            string
	Category        string
	Location        string
	Unit            string
	Price           decimal.Decimal
	MinLevel        decimal.Decimal
	ConversionUnit  string
	ConversionRatio decimal.Decimal
}

func (a *Attributes) normalize() {
	a.SKU = strings.TrimSpace(a.SKU)
	a.Name = strings.TrimSpace(a.Name)
	a.Category = strings.TrimSpace(a.Category)
	a.Location = strings.TrimSpace(a.Location)
	a.Unit = strings.TrimSpace(a.Unit)
	a.ConversionUnit = strings.TrimSpace(a.ConversionUnit)
	if a.Unit == "" {
		a.Unit = DefaultUnit
	}
	if a.ConversionUnit == "" {
		a.ConversionRatio = decimal.Zero
	}
}

func (a Attributes) validate() error {
	if a.SKU == "" {
		return shared.NewValidationError("sku is required")
	}
	if len(a.SKU) > 64 {
		return shared.NewValidationError("sku cannot exceed 64 characters")
	}
	if a.Name == "" {
		return shared.NewValidationError("name is required for item %s", a.SKU)
	}
	if a.Price.IsNegative() {
		return shared.NewValidationError("price cannot be negative for item %s", a.SKU)
	}
	if a.MinLevel.IsNegative() {
		return shared.NewValidationError("min level cannot be negative for item %s", a.SKU)
	}
	if strings.EqualFold(a.ConversionUnit, a.Unit) {
		return shared.NewValidationError("conversion unit must differ from base unit %s", a.Unit)
	}
	return uom.Validate(uom.FromOptional(a.ConversionUnit, a.ConversionRatio, uom.Multiply))
}

// NewInventoryItem creates an active item with an opening stock.
func NewInventoryItem(attrs Attributes, openingStock decimal.Decimal) (*InventoryItem, error) {
	attrs.normalize()
	if err := attrs.validate(); err != nil {
		return nil, err
	}
	if openingStock.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "opening stock cannot be negative")
	}

	item := &InventoryItem{
		BaseEntity: shared.NewBaseEntity(),
		Stock:      openingStock,
		Active:     true,
	}
	item.assign(attrs)
	return item, nil
}

// Update replaces the master data. Stock is left untouched.
func (i *InventoryItem) Update(attrs Attributes) error {
	attrs.normalize()
	if err := attrs.validate(); err != nil {
		return err
	}
	i.assign(attrs)
	i.Touch()
	return nil
}

func (i *InventoryItem) assign(a Attributes) {
	i.SKU = a.SKU
	i.Name = a.Name
	i.Category = a.Category
	i.Location = a.Location
	i.Unit = a.Unit
	i.Price = a.Price
	i.MinLevel = a.MinLevel
	i.ConversionUnit = a.ConversionUnit
	i.ConversionRatio = a.ConversionRatio
}

// Attributes returns the editable fields of the item.
func (i *InventoryItem) Attributes() Attributes {
	return Attributes{
		SKU:             i.SKU,
		Name:            i.Name,
		Category:        i.Category,
		Location:        i.Location,
		Unit:            i.Unit,
		Price:           i.Price,
		MinLevel:        i.MinLevel,
		ConversionUnit:  i.ConversionUnit,
		ConversionRatio: i.ConversionRatio,
	}
}

// Conversion returns the secondary-unit definition of the item.
// Item conversions always multiply.
func (i *InventoryItem) Conversion() uom.Conversion {
	return uom.FromOptional(i.ConversionUnit, i.ConversionRatio, uom.Multiply)
}

// SetStock overwrites the stock level. Values are never clamped.
func (i *InventoryItem) SetStock(stock decimal.Decimal) {
	i.Stock = stock
	i.UpdatedAt = time.Now()
}

// Activate marks the item as in use.
func (i *InventoryItem) Activate() {
	i.Active = true
	i.Touch()
}

// Deactivate hides the item from pickers without deleting history.
func (i *InventoryItem) Deactivate() {
	i.Active = false
	i.Touch()
}

// IsLowStock reports whether stock is at or below the reorder threshold.
func (i *InventoryItem) IsLowStock() bool {
	return i.Stock.LessThanOrEqual(i.MinLevel)
}

// TotalValue returns price × stock.
func (i *InventoryItem) TotalValue() decimal.Decimal {
	return i.Price.Mul(i.Stock)
}
