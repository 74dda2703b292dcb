package reject

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wms/backend/internal/domain/shared"
)

// ItemRepository persists reject master data.
type ItemRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*RejectItem, error)
	FindBySKU(ctx context.Context, sku string) (*RejectItem, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]RejectItem, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Save(ctx context.Context, item *RejectItem) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// LogFilter narrows reject log listings.
type LogFilter struct {
	shared.Filter
	From  *time.Time
	To    *time.Time
	Terms []string
}

// LogRepository persists reject logs with their snapshot lines.
type LogRepository interface {
	// Create inserts a log. An existing id yields shared.ErrAlreadyExists.
	Create(ctx context.Context, log *RejectLog) error
	// Update overwrites the header and replaces all lines
	Update(ctx context.Context, log *RejectLog) error
	FindByID(ctx context.Context, id string) (*RejectLog, error)
	Delete(ctx context.Context, id string) error
	FindAll(ctx context.Context, filter LogFilter) ([]RejectLog, error)
	Count(ctx context.Context, filter LogFilter) (int64, error)
}
