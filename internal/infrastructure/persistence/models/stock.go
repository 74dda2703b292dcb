package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/stock"
)

// TransactionModel is the persistence model for the Transaction header.
type TransactionModel struct {
	ID            string                 `gorm:"type:varchar(32);primary_key"`
	Type          string                 `gorm:"type:varchar(10);not null;index"`
	Date          time.Time              `gorm:"not null;index"`
	TotalValue    decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	UserID        string                 `gorm:"type:varchar(64);index"`
	Notes         string                 `gorm:"type:text"`
	Supplier      string                 `gorm:"type:varchar(200)"`
	PONumber      string                 `gorm:"column:po_number;type:varchar(100)"`
	DeliveryNote  string                 `gorm:"type:varchar(100)"`
	DocumentsJSON string                 `gorm:"column:documents;type:jsonb"`
	CreatedAt     time.Time              `gorm:"not null"`
	UpdatedAt     time.Time              `gorm:"not null"`
	Items         []TransactionItemModel `gorm:"foreignKey:TransactionID;references:ID"`
}

// TableName returns the table name for GORM
func (TransactionModel) TableName() string {
	return "transactions"
}

// TransactionItemModel is one persisted transaction line.
type TransactionItemModel struct {
	TransactionID string          `gorm:"type:varchar(32);primary_key"`
	LineNo        int             `gorm:"primary_key;autoIncrement:false"`
	ItemID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	SKU           string          `gorm:"type:varchar(64);not null"`
	Name          string          `gorm:"type:varchar(200);not null"`
	Qty           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	InputQty      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UOM           string          `gorm:"column:uom;type:varchar(20)"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Total         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (TransactionItemModel) TableName() string {
	return "transaction_items"
}

// ToDomain converts the persistence model to a domain Transaction.
func (m *TransactionModel) ToDomain() *stock.Transaction {
	tx := &stock.Transaction{
		ID:         m.ID,
		Type:       stock.TransactionType(m.Type),
		Date:       m.Date,
		TotalValue: m.TotalValue,
		UserID:     m.UserID,
		Notes:      m.Notes,
		InboundDetails: stock.InboundDetails{
			Supplier:     m.Supplier,
			PONumber:     m.PONumber,
			DeliveryNote: m.DeliveryNote,
		},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		Items:     make([]stock.TransactionItem, len(m.Items)),
	}
	if m.DocumentsJSON != "" {
		_ = json.Unmarshal([]byte(m.DocumentsJSON), &tx.Documents)
	}
	for i, line := range m.Items {
		tx.Items[i] = stock.TransactionItem{
			ItemID:    line.ItemID,
			SKU:       line.SKU,
			Name:      line.Name,
			Qty:       line.Qty,
			InputQty:  line.InputQty,
			UOM:       line.UOM,
			UnitPrice: line.UnitPrice,
			Total:     line.Total,
		}
	}
	return tx
}

// FromDomain populates the persistence model from a domain Transaction.
func (m *TransactionModel) FromDomain(tx *stock.Transaction) {
	m.ID = tx.ID
	m.Type = tx.Type.String()
	m.Date = tx.Date
	m.TotalValue = tx.TotalValue
	m.UserID = tx.UserID
	m.Notes = tx.Notes
	m.Supplier = tx.Supplier
	m.PONumber = tx.PONumber
	m.DeliveryNote = tx.DeliveryNote
	m.DocumentsJSON = "[]"
	if len(tx.Documents) > 0 {
		if b, err := json.Marshal(tx.Documents); err == nil {
			m.DocumentsJSON = string(b)
		}
	}
	m.CreatedAt = tx.CreatedAt
	m.UpdatedAt = tx.UpdatedAt
	m.Items = make([]TransactionItemModel, len(tx.Items))
	for i, line := range tx.Items {
		m.Items[i] = TransactionItemModel{
			TransactionID: tx.ID,
			LineNo:        i + 1,
			ItemID:        line.ItemID,
			SKU:           line.SKU,
			Name:          line.Name,
			Qty:           line.Qty,
			InputQty:      line.InputQty,
			UOM:           line.UOM,
			UnitPrice:     line.UnitPrice,
			Total:         line.Total,
		}
	}
}

// TransactionModelFromDomain creates a new persistence model from a domain Transaction.
func TransactionModelFromDomain(tx *stock.Transaction) *TransactionModel {
	m := &TransactionModel{}
	m.FromDomain(tx)
	return m
}
