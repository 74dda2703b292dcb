package models

import (
	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/inventory"
)

// InventoryItemModel is the persistence model for the InventoryItem entity.
type InventoryItemModel struct {
	BaseModel
	SKU             string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_inventory_items_sku"`
	Name            string          `gorm:"type:varchar(200);not null"`
	Category        string          `gorm:"type:varchar(100);index"`
	Location        string          `gorm:"type:varchar(100)"`
	Unit            string          `gorm:"type:varchar(20);not null;default:'Pcs'"`
	Price           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Stock           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	MinLevel        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Active          bool            `gorm:"not null"`
	ConversionUnit  string          `gorm:"type:varchar(20)"`
	ConversionRatio decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
}

// TableName returns the table name for GORM
func (InventoryItemModel) TableName() string {
	return "inventory_items"
}

// ToDomain converts the persistence model to a domain InventoryItem entity.
func (m *InventoryItemModel) ToDomain() *inventory.InventoryItem {
	return &inventory.InventoryItem{
		BaseEntity:      m.BaseModel.ToDomain(),
		SKU:             m.SKU,
		Name:            m.Name,
		Category:        m.Category,
		Location:        m.Location,
		Unit:            m.Unit,
		Price:           m.Price,
		Stock:           m.Stock,
		MinLevel:        m.MinLevel,
		Active:          m.Active,
		ConversionUnit:  m.ConversionUnit,
		ConversionRatio: m.ConversionRatio,
	}
}

// FromDomain populates the persistence model from a domain InventoryItem entity.
func (m *InventoryItemModel) FromDomain(i *inventory.InventoryItem) {
	m.FromDomainBaseEntity(i.BaseEntity)
	m.SKU = i.SKU
	m.Name = i.Name
	m.Category = i.Category
	m.Location = i.Location
	m.Unit = i.Unit
	m.Price = i.Price
	m.Stock = i.Stock
	m.MinLevel = i.MinLevel
	m.Active = i.Active
	m.ConversionUnit = i.ConversionUnit
	m.ConversionRatio = i.ConversionRatio
}

// InventoryItemModelFromDomain creates a new persistence model from a domain InventoryItem entity.
func InventoryItemModelFromDomain(i *inventory.InventoryItem) *InventoryItemModel {
	m := &InventoryItemModel{}
	m.FromDomain(i)
	return m
}
