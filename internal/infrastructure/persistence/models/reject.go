package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/reject"
	"github.com/wms/backend/internal/domain/uom"
)

// RejectItemModel is the persistence model for reject master data.
type RejectItemModel struct {
	BaseModel
	SKU      string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_reject_items_sku"`
	Name     string          `gorm:"type:varchar(200);not null"`
	BaseUnit string          `gorm:"type:varchar(20);not null"`
	Unit2    string          `gorm:"column:unit2;type:varchar(20)"`
	Ratio2   decimal.Decimal `gorm:"column:ratio2;type:decimal(18,6);not null;default:0"`
	Op2      string          `gorm:"column:op2;type:varchar(10)"`
	Unit3    string          `gorm:"column:unit3;type:varchar(20)"`
	Ratio3   decimal.Decimal `gorm:"column:ratio3;type:decimal(18,6);not null;default:0"`
	Op3      string          `gorm:"column:op3;type:varchar(10)"`
}

// TableName returns the table name for GORM
func (RejectItemModel) TableName() string {
	return "reject_items"
}

// ToDomain converts the persistence model to a domain RejectItem.
func (m *RejectItemModel) ToDomain() *reject.RejectItem {
	return &reject.RejectItem{
		BaseEntity: m.BaseModel.ToDomain(),
		SKU:        m.SKU,
		Name:       m.Name,
		BaseUnit:   m.BaseUnit,
		Unit2:      m.Unit2,
		Ratio2:     m.Ratio2,
		Op2:        uom.Operator(m.Op2),
		Unit3:      m.Unit3,
		Ratio3:     m.Ratio3,
		Op3:        uom.Operator(m.Op3),
	}
}

// FromDomain populates the persistence model from a domain RejectItem.
func (m *RejectItemModel) FromDomain(r *reject.RejectItem) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.SKU = r.SKU
	m.Name = r.Name
	m.BaseUnit = r.BaseUnit
	m.Unit2 = r.Unit2
	m.Ratio2 = r.Ratio2
	m.Op2 = string(r.Op2)
	m.Unit3 = r.Unit3
	m.Ratio3 = r.Ratio3
	m.Op3 = string(r.Op3)
}

// RejectItemModelFromDomain creates a new persistence model from a domain RejectItem.
func RejectItemModelFromDomain(r *reject.RejectItem) *RejectItemModel {
	m := &RejectItemModel{}
	m.FromDomain(r)
	return m
}

// RejectLogModel is the persistence model for a reject log header.
type RejectLogModel struct {
	ID        string               `gorm:"type:varchar(32);primary_key"`
	Date      time.Time            `gorm:"not null;index"`
	UserID    string               `gorm:"type:varchar(64);index"`
	Notes     string               `gorm:"type:text"`
	CreatedAt time.Time            `gorm:"not null"`
	UpdatedAt time.Time            `gorm:"not null"`
	Items     []RejectLogItemModel `gorm:"foreignKey:RejectLogID;references:ID"`
}

// TableName returns the table name for GORM
func (RejectLogModel) TableName() string {
	return "reject_logs"
}

// RejectLogItemModel is one snapshot line of a reject log.
type RejectLogItemModel struct {
	RejectLogID       string          `gorm:"type:varchar(32);primary_key"`
	LineNo            int             `gorm:"primary_key;autoIncrement:false"`
	RejectItemID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ItemName          string          `gorm:"type:varchar(200);not null"`
	SKU               string          `gorm:"type:varchar(64);not null"`
	BaseUnit          string          `gorm:"type:varchar(20);not null"`
	Unit              string          `gorm:"type:varchar(20);not null"`
	Quantity          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Ratio             decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	Op                string          `gorm:"type:varchar(10);not null"`
	TotalBaseQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Reason            string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (RejectLogItemModel) TableName() string {
	return "reject_log_items"
}

// ToDomain converts the persistence model to a domain RejectLog.
func (m *RejectLogModel) ToDomain() *reject.RejectLog {
	log := &reject.RejectLog{
		ID:        m.ID,
		Date:      m.Date,
		UserID:    m.UserID,
		Notes:     m.Notes,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		Items:     make([]reject.LogItem, len(m.Items)),
	}
	for i, line := range m.Items {
		log.Items[i] = reject.LogItem{
			RejectItemID:      line.RejectItemID,
			ItemName:          line.ItemName,
			SKU:               line.SKU,
			BaseUnit:          line.BaseUnit,
			Unit:              line.Unit,
			Quantity:          line.Quantity,
			Ratio:             line.Ratio,
			Op:                uom.Operator(line.Op),
			TotalBaseQuantity: line.TotalBaseQuantity,
			Reason:            line.Reason,
		}
	}
	return log
}

// FromDomain populates the persistence model from a domain RejectLog.
func (m *RejectLogModel) FromDomain(l *reject.RejectLog) {
	m.ID = l.ID
	m.Date = l.Date
	m.UserID = l.UserID
	m.Notes = l.Notes
	m.CreatedAt = l.CreatedAt
	m.UpdatedAt = l.UpdatedAt
	m.Items = make([]RejectLogItemModel, len(l.Items))
	for i, line := range l.Items {
		m.Items[i] = RejectLogItemModel{
			RejectLogID:       l.ID,
			LineNo:            i + 1,
			RejectItemID:      line.RejectItemID,
			ItemName:          line.ItemName,
			SKU:               line.SKU,
			BaseUnit:          line.BaseUnit,
			Unit:              line.Unit,
			Quantity:          line.Quantity,
			Ratio:             line.Ratio,
			Op:                string(line.Op),
			TotalBaseQuantity: line.TotalBaseQuantity,
			Reason:            line.Reason,
		}
	}
}

// RejectLogModelFromDomain creates a new persistence model from a domain RejectLog.
func RejectLogModelFromDomain(l *reject.RejectLog) *RejectLogModel {
	m := &RejectLogModel{}
	m.FromDomain(l)
	return m
}
