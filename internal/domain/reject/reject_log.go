package reject

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/uom"
)

// LogItem is a write-once snapshot of one rejected line.
type LogItem struct {
	RejectItemID      uuid.UUID
	ItemName          string
	SKU               string
	BaseUnit          string
	Unit              string
	Quantity          decimal.Decimal // in Unit
	Ratio             decimal.Decimal
	Op                uom.Operator
	TotalBaseQuantity decimal.Decimal
	Reason            string
}

// NewLogItem snapshots a reject item together with a resolved quantity.
func NewLogItem(item *RejectItem, res uom.Resolution, reason string) LogItem {
	return LogItem{
		RejectItemID:      item.ID,
		ItemName:          item.Name,
		SKU:               item.SKU,
		BaseUnit:          item.BaseUnit,
		Unit:              res.Unit,
		Quantity:          res.Quantity,
		Ratio:             res.Ratio,
		Op:                res.Op,
		TotalBaseQuantity: res.BaseQuantity,
		Reason:            strings.TrimSpace(reason),
	}
}

// RejectLog is a dated record of rejected goods.
type RejectLog struct {
	ID        string
	Date      time.Time
	UserID    string
	Notes     string
	Items     []LogItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRejectLog validates and assembles a reject log.
func NewRejectLog(id string, date time.Time, userID, notes string, items []LogItem) (*RejectLog, error) {
	if strings.TrimSpace(id) == "" {
		return nil, shared.NewValidationError("reject log id is required")
	}
	now := time.Now()
	log := &RejectLog{ID: id, CreatedAt: now, UpdatedAt: now}
	if err := log.assign(date, userID, notes, items); err != nil {
		return nil, err
	}
	return log, nil
}

// Revise replaces the content of the log, keeping its id.
func (l *RejectLog) Revise(date time.Time, userID, notes string, items []LogItem) error {
	if err := l.assign(date, userID, notes, items); err != nil {
		return err
	}
	l.UpdatedAt = time.Now()
	return nil
}

func (l *RejectLog) assign(date time.Time, userID, notes string, items []LogItem) error {
	if date.IsZero() {
		return shared.NewValidationError("reject date is required")
	}
	if len(items) == 0 {
		return shared.NewValidationError("reject log %s must have at least one item", l.ID)
	}
	for _, it := range items {
		if !it.TotalBaseQuantity.IsPositive() {
			return shared.NewDomainError(shared.CodeInvalidQuantity,
				"line "+it.SKU+": base quantity must be greater than zero after rounding")
		}
	}
	l.Date = date
	l.UserID = userID
	l.Notes = strings.TrimSpace(notes)
	l.Items = append([]LogItem(nil), items...)
	return nil
}

// TotalsByUnit sums base quantities per base unit.
func (l *RejectLog) TotalsByUnit() map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, it := range l.Items {
		totals[it.BaseUnit] = totals[it.BaseUnit].Add(it.TotalBaseQuantity)
	}
	return totals
}
