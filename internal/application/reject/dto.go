package reject

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/reject"
	"github.com/wms/backend/internal/domain/uom"
)

// RejectItemRequest is the body of reject item create and update requests.
type RejectItemRequest struct {
	SKU      string          `json:"sku" binding:"required,max=64"`
	Name     string          `json:"name" binding:"required,max=200"`
	BaseUnit string          `json:"base_unit" binding:"max=20"`
	Unit2    string          `json:"unit2" binding:"max=20"`
	Ratio2   decimal.Decimal `json:"ratio2"`
	Op2      string          `json:"op2" binding:"omitempty,oneof=multiply divide"`
	Unit3    string          `json:"unit3" binding:"max=20"`
	Ratio3   decimal.Decimal `json:"ratio3"`
	Op3      string          `json:"op3" binding:"omitempty,oneof=multiply divide"`
}

func (r RejectItemRequest) attributes() reject.ItemAttributes {
	return reject.ItemAttributes{
		SKU:      r.SKU,
		Name:     r.Name,
		BaseUnit: r.BaseUnit,
		Unit2:    r.Unit2,
		Ratio2:   r.Ratio2,
		Op2:      uom.Operator(r.Op2),
		Unit3:    r.Unit3,
		Ratio3:   r.Ratio3,
		Op3:      uom.Operator(r.Op3),
	}
}

// RejectItemResponse represents reject master data in API responses
type RejectItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	BaseUnit  string          `json:"base_unit"`
	Unit2     string          `json:"unit2,omitempty"`
	Ratio2    decimal.Decimal `json:"ratio2"`
	Op2       string          `json:"op2,omitempty"`
	Unit3     string          `json:"unit3,omitempty"`
	Ratio3    decimal.Decimal `json:"ratio3"`
	Op3       string          `json:"op3,omitempty"`
	Units     []string        `json:"units"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ToRejectItemResponse converts a domain reject item to its response
func ToRejectItemResponse(item *reject.RejectItem) RejectItemResponse {
	return RejectItemResponse{
		ID:        item.ID,
		SKU:       item.SKU,
		Name:      item.Name,
		BaseUnit:  item.BaseUnit,
		Unit2:     item.Unit2,
		Ratio2:    item.Ratio2,
		Op2:       string(item.Op2),
		Unit3:     item.Unit3,
		Ratio3:    item.Ratio3,
		Op3:       string(item.Op3),
		Units:     item.Units(),
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}

// RejectLineInput is one rejected line as typed by the operator.
type RejectLineInput struct {
	RejectItemID uuid.UUID       `json:"reject_item_id" binding:"required"`
	Qty          decimal.Decimal `json:"qty"`
	Unit         string          `json:"unit"`
	Reason       string          `json:"reason" binding:"max=500"`
}

// RejectLogInput is the body of reject log create and update requests.
type RejectLogInput struct {
	Date  *time.Time        `json:"date"`
	Notes string            `json:"notes" binding:"max=2000"`
	Items []RejectLineInput `json:"items" binding:"required,min=1,dive"`
}

func (in RejectLogInput) date(fallback time.Time) time.Time {
	if in.Date == nil || in.Date.IsZero() {
		return fallback.UTC()
	}
	return in.Date.UTC()
}

// RejectLogLineResponse is one snapshot line of a reject log.
type RejectLogLineResponse struct {
	RejectItemID      uuid.UUID       `json:"reject_item_id"`
	ItemName          string          `json:"item_name"`
	SKU               string          `json:"sku"`
	BaseUnit          string          `json:"base_unit"`
	Unit              string          `json:"unit"`
	Quantity          decimal.Decimal `json:"quantity"`
	Ratio             decimal.Decimal `json:"ratio"`
	Op                string          `json:"op"`
	TotalBaseQuantity decimal.Decimal `json:"total_base_quantity"`
	Reason            string          `json:"reason,omitempty"`
}

// RejectLogResponse represents a reject log in API responses
type RejectLogResponse struct {
	ID          string                     `json:"id"`
	Date        time.Time                  `json:"date"`
	UserID      string                     `json:"user_id"`
	Notes       string                     `json:"notes,omitempty"`
	Items       []RejectLogLineResponse    `json:"items"`
	TotalByUnit map[string]decimal.Decimal `json:"total_by_unit"`
	CreatedAt   time.Time                  `json:"created_at"`
	UpdatedAt   time.Time                  `json:"updated_at"`
}

// ToRejectLogResponse converts a domain reject log to its response
func ToRejectLogResponse(log *reject.RejectLog) RejectLogResponse {
	lines := make([]RejectLogLineResponse, len(log.Items))
	for i, it := range log.Items {
		lines[i] = RejectLogLineResponse{
			RejectItemID:      it.RejectItemID,
			ItemName:          it.ItemName,
			SKU:               it.SKU,
			BaseUnit:          it.BaseUnit,
			Unit:              it.Unit,
			Quantity:          it.Quantity,
			Ratio:             it.Ratio,
			Op:                string(it.Op),
			TotalBaseQuantity: it.TotalBaseQuantity,
			Reason:            it.Reason,
		}
	}
	return RejectLogResponse{
		ID:          log.ID,
		Date:        log.Date,
		UserID:      log.UserID,
		Notes:       log.Notes,
		Items:       lines,
		TotalByUnit: log.TotalsByUnit(),
		CreatedAt:   log.CreatedAt,
		UpdatedAt:   log.UpdatedAt,
	}
}

// ListFilter represents filter options for reject item and log lists
type ListFilter struct {
	Search   string     `form:"search"`
	From     *time.Time `form:"from" time_format:"2006-01-02"`
	To       *time.Time `form:"to" time_format:"2006-01-02"`
	Page     int        `form:"page" binding:"omitempty,min=1"`
	PageSize int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string     `form:"order_by"`
	OrderDir string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}
