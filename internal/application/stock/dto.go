package stock

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/stock"
)

// TransactionLineInput is one line as typed by the operator.
type TransactionLineInput struct {
	ItemID uuid.UUID       `json:"item_id" binding:"required"`
	Qty    decimal.Decimal `json:"qty" binding:"required"`
	// UOM is the unit Qty was entered in. Empty means the item's base unit.
	UOM string `json:"uom"`
	// UnitPrice is the price per UOM. When nil the item price is converted.
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

// TransactionInput is the body of create and update requests.
type TransactionInput struct {
	Type         string                 `json:"type" binding:"required,oneof=inbound outbound"`
	Date         *time.Time             `json:"date"`
	Notes        string                 `json:"notes" binding:"max=2000"`
	Supplier     string                 `json:"supplier" binding:"max=200"`
	PONumber     string                 `json:"po_number" binding:"max=100"`
	DeliveryNote string                 `json:"delivery_note" binding:"max=100"`
	Documents    []string               `json:"documents" binding:"max=20"`
	Items        []TransactionLineInput `json:"items" binding:"required,min=1,dive"`
}

func (in TransactionInput) details() stock.InboundDetails {
	return stock.InboundDetails{
		Supplier:     in.Supplier,
		PONumber:     in.PONumber,
		DeliveryNote: in.DeliveryNote,
		Documents:    in.Documents,
	}
}

func (in TransactionInput) date(now time.Time) time.Time {
	if in.Date == nil || in.Date.IsZero() {
		return now.UTC()
	}
	return in.Date.UTC()
}

// TransactionLineResponse is one line of a transaction in API responses.
type TransactionLineResponse struct {
	ItemID    uuid.UUID       `json:"item_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Qty       decimal.Decimal `json:"qty"`
	InputQty  decimal.Decimal `json:"input_qty"`
	UOM       string          `json:"uom"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	ID           string                    `json:"id"`
	Type         string                    `json:"type"`
	Date         time.Time                 `json:"date"`
	Items        []TransactionLineResponse `json:"items"`
	TotalValue   decimal.Decimal           `json:"total_value"`
	UserID       string                    `json:"user_id"`
	Notes        string                    `json:"notes,omitempty"`
	Supplier     string                    `json:"supplier,omitempty"`
	PONumber     string                    `json:"po_number,omitempty"`
	DeliveryNote string                    `json:"delivery_note,omitempty"`
	Documents    []string                  `json:"documents,omitempty"`
	CreatedAt    time.Time                 `json:"created_at"`
	UpdatedAt    time.Time                 `json:"updated_at"`
}

// ToTransactionResponse converts a domain transaction to its response.
func ToTransactionResponse(tx *stock.Transaction) TransactionResponse {
	lines := make([]TransactionLineResponse, len(tx.Items))
	for i, l := range tx.Items {
		lines[i] = TransactionLineResponse{
			ItemID:    l.ItemID,
			SKU:       l.SKU,
			Name:      l.Name,
			Qty:       l.Qty,
			InputQty:  l.InputQty,
			UOM:       l.UOM,
			UnitPrice: l.UnitPrice,
			Total:     l.Total,
		}
	}
	return TransactionResponse{
		ID:           tx.ID,
		Type:         tx.Type.String(),
		Date:         tx.Date,
		Items:        lines,
		TotalValue:   tx.TotalValue,
		UserID:       tx.UserID,
		Notes:        tx.Notes,
		Supplier:     tx.Supplier,
		PONumber:     tx.PONumber,
		DeliveryNote: tx.DeliveryNote,
		Documents:    tx.Documents,
		CreatedAt:    tx.CreatedAt,
		UpdatedAt:    tx.UpdatedAt,
	}
}

// TransactionListFilter represents filter options for transaction lists.
type TransactionListFilter struct {
	Search   string     `form:"search"`
	Type     string     `form:"type" binding:"omitempty,oneof=inbound outbound"`
	From     *time.Time `form:"from" time_format:"2006-01-02"`
	To       *time.Time `form:"to" time_format:"2006-01-02"`
	Page     int        `form:"page" binding:"omitempty,min=1"`
	PageSize int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string     `form:"order_by"`
	OrderDir string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// DocumentUploadRequest asks for a presigned upload URL for a delivery
// document image.
type DocumentUploadRequest struct {
	FileName    string `json:"file_name" binding:"required,max=200"`
	ContentType string `json:"content_type" binding:"required,oneof=image/jpeg image/png image/webp application/pdf"`
}

// DocumentUploadResponse carries the presigned URL and the object key to
// store on the transaction.
type DocumentUploadResponse struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"upload_url"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expires_at"`
}
