// Package reject records rejected goods. It has no access to inventory
// stock: reject logs are an audit trail only.
package reject

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/reject"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/uom"
)

// RejectService handles reject master data and reject logs
type RejectService struct {
	items         reject.ItemRepository
	logs          reject.LogRepository
	resolver      *uom.Resolver
	ids           *shared.DocumentIDGenerator
	retryAttempts int
	logger        *zap.Logger
	now           func() time.Time
}

// NewRejectService creates a new RejectService. Quantities are rounded
// with the resolver's precision.
func NewRejectService(items reject.ItemRepository, logs reject.LogRepository, resolver *uom.Resolver, retryAttempts int, logger *zap.Logger) *RejectService {
	if retryAttempts < 1 {
		retryAttempts = 1
	}
	return &RejectService{
		items:         items,
		logs:          logs,
		resolver:      resolver,
		ids:           shared.NewDocumentIDGenerator(shared.PrefixRejectLog),
		retryAttempts: retryAttempts,
		logger:        logger,
		now:           time.Now,
	}
}

// SetIDGenerator replaces the reject log id generator
func (s *RejectService) SetIDGenerator(g *shared.DocumentIDGenerator) {
	s.ids = g
}

// CreateItem adds reject master data
func (s *RejectService) CreateItem(ctx context.Context, req RejectItemRequest) (*RejectItemResponse, error) {
	item, err := reject.NewRejectItem(req.attributes())
	if err != nil {
		return nil, err
	}
	if err := s.items.Save(ctx, item); err != nil {
		return nil, err
	}
	resp := ToRejectItemResponse(item)
	return &resp, nil
}

// GetItem retrieves a reject item by id
func (s *RejectService) GetItem(ctx context.Context, id uuid.UUID) (*RejectItemResponse, error) {
	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToRejectItemResponse(item)
	return &resp, nil
}

// UpdateItem replaces reject master data. Existing logs keep their snapshots.
func (s *RejectService) UpdateItem(ctx context.Context, id uuid.UUID, req RejectItemRequest) (*RejectItemResponse, error) {
	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := item.Update(req.attributes()); err != nil {
		return nil, err
	}
	if err := s.items.Save(ctx, item); err != nil {
		return nil, err
	}
	resp := ToRejectItemResponse(item)
	return &resp, nil
}

// DeleteItem removes reject master data
func (s *RejectService) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return s.items.Delete(ctx, id)
}

// ListItems retrieves reject items with search and pagination
func (s *RejectService) ListItems(ctx context.Context, filter ListFilter) ([]RejectItemResponse, int64, error) {
	f := pageFilter(filter, "sku", "asc")
	items, err := s.items.FindAll(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.items.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	out := make([]RejectItemResponse, len(items))
	for i := range items {
		out[i] = ToRejectItemResponse(&items[i])
	}
	return out, total, nil
}

// CreateLog records rejected goods
func (s *RejectService) CreateLog(ctx context.Context, actor string, input RejectLogInput) (*RejectLogResponse, error) {
	lines, err := s.resolveLines(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		log, err := reject.NewRejectLog(s.ids.Next(), input.date(s.now()), actor, input.Notes, lines)
		if err != nil {
			return nil, err
		}
		err = s.logs.Create(ctx, log)
		if err == nil {
			s.logger.Info("Reject log created",
				zap.String("reject_log_id", log.ID),
				zap.Int("lines", len(log.Items)),
				zap.String("user_id", actor))
			resp := ToRejectLogResponse(log)
			return &resp, nil
		}
		if errors.Is(err, shared.ErrAlreadyExists) && attempt < s.retryAttempts {
			s.logger.Warn("Reject log id collision, retrying", zap.String("id", log.ID), zap.Int("attempt", attempt))
			continue
		}
		return nil, err
	}
}

// GetLog retrieves a reject log by id
func (s *RejectService) GetLog(ctx context.Context, id string) (*RejectLogResponse, error) {
	log, err := s.logs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToRejectLogResponse(log)
	return &resp, nil
}

// UpdateLog replaces the content of a reject log
func (s *RejectService) UpdateLog(ctx context.Context, id, actor string, input RejectLogInput) (*RejectLogResponse, error) {
	log, err := s.logs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	lines, err := s.resolveLines(ctx, input.Items)
	if err != nil {
		return nil, err
	}
	if err := log.Revise(input.date(log.Date), actor, input.Notes, lines); err != nil {
		return nil, err
	}
	if err := s.logs.Update(ctx, log); err != nil {
		return nil, err
	}
	resp := ToRejectLogResponse(log)
	return &resp, nil
}

// DeleteLog removes a reject log. Unknown ids yield NotFound.
func (s *RejectService) DeleteLog(ctx context.Context, id string) error {
	if err := s.logs.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Reject log deleted", zap.String("reject_log_id", id))
	return nil
}

// ListLogs retrieves reject logs, newest first by default
func (s *RejectService) ListLogs(ctx context.Context, filter ListFilter) ([]RejectLogResponse, int64, error) {
	f := reject.LogFilter{
		Filter: pageFilter(filter, "date", "desc"),
		From:   filter.From,
		To:     endOfDay(filter.To),
	}
	logs, err := s.logs.FindAll(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.logs.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	out := make([]RejectLogResponse, len(logs))
	for i := range logs {
		out[i] = ToRejectLogResponse(&logs[i])
	}
	return out, total, nil
}

func (s *RejectService) resolveLines(ctx context.Context, inputs []RejectLineInput) ([]reject.LogItem, error) {
	if len(inputs) == 0 {
		return nil, shared.NewValidationError("reject log must have at least one item")
	}
	lines := make([]reject.LogItem, 0, len(inputs))
	for i, in := range inputs {
		item, err := s.items.FindByID(ctx, in.RejectItemID)
		if err != nil {
			return nil, err
		}
		res, err := s.resolver.Resolve(item.BaseUnit, item.Conversion(), in.Qty, in.Unit)
		if err != nil {
			var de *shared.DomainError
			if errors.As(err, &de) {
				return nil, shared.NewDomainError(de.Code, de.Message).WithDetail("line", i+1).WithDetail("sku", item.SKU)
			}
			return nil, err
		}
		lines = append(lines, reject.NewLogItem(item, res, in.Reason))
	}
	return lines, nil
}

func pageFilter(filter ListFilter, orderBy, orderDir string) shared.Filter {
	f := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	if f.OrderBy == "" {
		f.OrderBy = orderBy
	}
	if f.OrderDir == "" {
		f.OrderDir = orderDir
	}
	return f
}

// endOfDay extends a date-only upper bound to the last instant of that day.
func endOfDay(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		end := t.Add(24*time.Hour - time.Nanosecond)
		return &end
	}
	return t
}
