// Package stock coordinates stock transactions: it resolves typed
// quantities into base units, runs the ledger inside one database
// transaction, and persists the transaction record.
package stock

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/stock"
	"github.com/wms/backend/internal/domain/uom"
	"github.com/wms/backend/internal/infrastructure/logger"
)

// Config holds the stock behaviour switches.
type Config struct {
	// AllowNegative skips the sufficiency pre-check.
	AllowNegative bool
	// IDRetryAttempts bounds retries after a transaction id collision.
	IDRetryAttempts int
}

// DefaultConfig returns the default stock configuration
func DefaultConfig() Config {
	return Config{AllowNegative: false, IDRetryAttempts: 5}
}

// MovementRecorder receives every committed ledger movement.
type MovementRecorder interface {
	RecordMovement(ctx context.Context, operation string, txType stock.TransactionType, m stock.Movement)
}

// DocumentStore issues upload URLs for delivery documents and removes them.
type DocumentStore interface {
	PresignUpload(ctx context.Context, fileName, contentType string) (*DocumentUploadResponse, error)
	Delete(ctx context.Context, keys []string) error
}

type noopRecorder struct{}

func (noopRecorder) RecordMovement(context.Context, string, stock.TransactionType, stock.Movement) {}

// TransactionService handles stock transaction operations
type TransactionService struct {
	scope     TransactionScope
	txRepo    stock.TransactionRepository
	ledger    *stock.Ledger
	resolver  *uom.Resolver
	ids       *shared.DocumentIDGenerator
	config    Config
	recorder  MovementRecorder
	documents DocumentStore
	logger    *zap.Logger
	now       func() time.Time
}

// NewTransactionService creates a new TransactionService
func NewTransactionService(
	scope TransactionScope,
	txRepo stock.TransactionRepository,
	resolver *uom.Resolver,
	config Config,
	logger *zap.Logger,
) *TransactionService {
	if config.IDRetryAttempts < 1 {
		config.IDRetryAttempts = 1
	}
	return &TransactionService{
		scope:    scope,
		txRepo:   txRepo,
		ledger:   stock.NewLedger(),
		resolver: resolver,
		ids:      shared.NewDocumentIDGenerator(shared.PrefixTransaction),
		config:   config,
		recorder: noopRecorder{},
		logger:   logger,
		now:      time.Now,
	}
}

// SetMovementRecorder sets the recorder notified after each committed movement
func (s *TransactionService) SetMovementRecorder(r MovementRecorder) {
	if r != nil {
		s.recorder = r
	}
}

// SetDocumentStore enables document upload URLs and cleanup on delete
func (s *TransactionService) SetDocumentStore(d DocumentStore) {
	s.documents = d
}

// SetIDGenerator replaces the transaction id generator
func (s *TransactionService) SetIDGenerator(g *shared.DocumentIDGenerator) {
	s.ids = g
}

// Create records a new transaction and applies it to stock.
func (s *TransactionService) Create(ctx context.Context, actor string, input TransactionInput) (*TransactionResponse, error) {
	typ, err := parseType(input.Type)
	if err != nil {
		return nil, err
	}
	if err := validateLines(input.Items); err != nil {
		return nil, err
	}

	var (
		created  *stock.Transaction
		movement stock.Movement
	)
	for attempt := 1; ; attempt++ {
		id := s.ids.Next()
		err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			items, err := lockItems(ctx, repos.Items(), lineItemIDs(input.Items))
			if err != nil {
				return err
			}
			lines, err := s.resolveLines(items, input.Items)
			if err != nil {
				return err
			}
			tx, err := stock.NewTransaction(id, typ, input.date(s.now()), actor, input.Notes, input.details(), lines)
			if err != nil {
				return err
			}
			if err := s.precheck(items, stock.Deltas(tx)); err != nil {
				return err
			}
			if err := repos.Transactions().Create(ctx, tx); err != nil {
				return err
			}
			m, err := s.ledger.Apply(ctx, repos.Items(), tx)
			if err != nil {
				return err
			}
			created, movement = tx, m
			return nil
		})
		if err == nil {
			break
		}
		if errors.Is(err, shared.ErrAlreadyExists) && attempt < s.config.IDRetryAttempts {
			s.logger.Warn("Transaction id collision, retrying", zap.String("id", id), zap.Int("attempt", attempt))
			continue
		}
		return nil, err
	}

	s.committed(ctx, "create", created, movement)
	resp := ToTransactionResponse(created)
	return &resp, nil
}

// Update replaces a transaction. The old stock effect is reverted and the
// new one applied in the same database transaction.
func (s *TransactionService) Update(ctx context.Context, id, actor string, input TransactionInput) (*TransactionResponse, error) {
	typ, err := parseType(input.Type)
	if err != nil {
		return nil, err
	}
	if err := validateLines(input.Items); err != nil {
		return nil, err
	}

	var (
		updated  *stock.Transaction
		movement stock.Movement
		removed  []string
	)
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		old, err := repos.Transactions().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		ids := lineItemIDs(input.Items)
		for _, l := range old.Items {
			ids = append(ids, l.ItemID)
		}
		items, err := lockItems(ctx, repos.Items(), ids)
		if err != nil {
			return err
		}
		lines, err := s.resolveLines(items, input.Items)
		if err != nil {
			return err
		}

		next := *old
		if err := next.Revise(typ, input.date(old.Date), actor, input.Notes, input.details(), lines); err != nil {
			return err
		}
		if err := s.precheck(items, stock.NetDeltas(old, &next)); err != nil {
			return err
		}
		m, err := s.ledger.Reapply(ctx, repos.Items(), old, &next)
		if err != nil {
			return err
		}
		if err := repos.Transactions().Update(ctx, &next); err != nil {
			return err
		}
		updated, movement = &next, m
		removed = missingKeys(old.Documents, next.Documents)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, "update", updated, movement)
	s.deleteDocuments(ctx, updated.ID, removed)
	resp := ToTransactionResponse(updated)
	return &resp, nil
}

// Delete removes a transaction and reverts its stock effect. Deleting an
// unknown id succeeds without doing anything.
func (s *TransactionService) Delete(ctx context.Context, id string) error {
	var (
		deleted  *stock.Transaction
		movement stock.Movement
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		old, err := repos.Transactions().FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil
			}
			return err
		}
		items, err := lockItems(ctx, repos.Items(), lineIDs(old))
		if err != nil {
			return err
		}
		// Reverting a consumed inbound is checked like an outbound.
		if err := s.precheck(items, stock.NetDeltas(old, nil)); err != nil {
			return err
		}
		m, err := s.ledger.Revert(ctx, repos.Items(), old)
		if err != nil {
			return err
		}
		if err := repos.Transactions().Delete(ctx, id); err != nil {
			return err
		}
		deleted, movement = old, m
		return nil
	})
	if err != nil {
		return err
	}
	if deleted == nil {
		s.logger.Debug("Delete of unknown transaction ignored", zap.String("id", id))
		return nil
	}

	s.committed(ctx, "delete", deleted, movement)
	s.deleteDocuments(ctx, deleted.ID, deleted.Documents)
	return nil
}

// GetByID retrieves a transaction by id
func (s *TransactionService) GetByID(ctx context.Context, id string) (*TransactionResponse, error) {
	tx, err := s.txRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToTransactionResponse(tx)
	return &resp, nil
}

// List retrieves transactions with filtering and pagination
func (s *TransactionService) List(ctx context.Context, filter TransactionListFilter) ([]TransactionResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "date"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := stock.TransactionFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
		},
		Type:  stock.TransactionType(filter.Type),
		From:  filter.From,
		To:    endOfDay(filter.To),
		Terms: stock.SearchTerms(filter.Search),
	}

	txs, err := s.txRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.txRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]TransactionResponse, len(txs))
	for i := range txs {
		responses[i] = ToTransactionResponse(&txs[i])
	}
	return responses, total, nil
}

// CreateDocumentUploadURL returns a presigned URL for uploading a delivery
// document. The returned key goes into the documents of an inbound transaction.
func (s *TransactionService) CreateDocumentUploadURL(ctx context.Context, req DocumentUploadRequest) (*DocumentUploadResponse, error) {
	if s.documents == nil {
		return nil, shared.NewDomainError("STORAGE_DISABLED", "Document storage is not configured")
	}
	return s.documents.PresignUpload(ctx, req.FileName, req.ContentType)
}

// resolveLines converts typed lines into base-unit lines, snapshotting SKU
// and name from the locked items.
func (s *TransactionService) resolveLines(items map[uuid.UUID]*inventory.InventoryItem, inputs []TransactionLineInput) ([]stock.TransactionItem, error) {
	lines := make([]stock.TransactionItem, 0, len(inputs))
	for i, in := range inputs {
		item, ok := items[in.ItemID]
		if !ok {
			return nil, shared.NewNotFoundError("inventory item", in.ItemID.String())
		}
		res, err := s.resolver.Resolve(item.Unit, item.Conversion(), in.Qty, in.UOM)
		if err != nil {
			return nil, lineError(i, item.SKU, err)
		}
		unitPrice := res.UnitPrice(item.Price)
		if in.UnitPrice != nil {
			unitPrice = *in.UnitPrice
		}
		lines = append(lines, stock.TransactionItem{
			ItemID:    item.ID,
			SKU:       item.SKU,
			Name:      item.Name,
			Qty:       res.BaseQuantity,
			InputQty:  res.Quantity,
			UOM:       res.Unit,
			UnitPrice: unitPrice,
		})
	}
	return lines, nil
}

// precheck rejects deltas that would take stock below zero. Items missing
// from the locked set are dangling references and are not checked.
func (s *TransactionService) precheck(items map[uuid.UUID]*inventory.InventoryItem, deltas []stock.Delta) error {
	if s.config.AllowNegative {
		return nil
	}
	for _, d := range deltas {
		if !d.Qty.IsNegative() {
			continue
		}
		item, ok := items[d.ItemID]
		if !ok {
			continue
		}
		if item.Stock.Add(d.Qty).IsNegative() {
			return shared.NewInsufficientStockError(item.ID.String(), item.SKU, item.Stock, d.Qty.Neg())
		}
	}
	return nil
}

func (s *TransactionService) committed(ctx context.Context, op string, tx *stock.Transaction, m stock.Movement) {
	log := logger.Enrich(ctx, s.logger)
	for _, a := range m.Adjustments {
		log.Info("Stock moved",
			zap.String("operation", op),
			zap.String("transaction_id", tx.ID),
			zap.String("type", tx.Type.String()),
			zap.String("item_id", a.ItemID.String()),
			zap.String("sku", a.SKU),
			zap.String("before", a.Before.String()),
			zap.String("delta", a.Delta.String()),
			zap.String("after", a.After.String()))
	}
	for _, id := range m.Dangling {
		log.Warn("Skipped stock reversal for deleted item",
			zap.String("operation", op),
			zap.String("transaction_id", tx.ID),
			zap.String("item_id", id.String()))
	}
	s.recorder.RecordMovement(ctx, op, tx.Type, m)
}

func (s *TransactionService) deleteDocuments(ctx context.Context, txID string, keys []string) {
	if s.documents == nil || len(keys) == 0 {
		return
	}
	if err := s.documents.Delete(ctx, keys); err != nil {
		s.logger.Warn("Failed to delete transaction documents",
			zap.String("transaction_id", txID),
			zap.Strings("keys", keys),
			zap.Error(err))
	}
}

// lockItems locks every distinct item in ascending id order. Missing items
// are left out of the result.
func lockItems(ctx context.Context, repo inventory.ItemRepository, ids []uuid.UUID) (map[uuid.UUID]*inventory.InventoryItem, error) {
	unique := make(map[uuid.UUID]struct{}, len(ids))
	ordered := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := unique[id]; ok {
			continue
		}
		unique[id] = struct{}{}
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].String() < ordered[j].String() })

	items := make(map[uuid.UUID]*inventory.InventoryItem, len(ordered))
	for _, id := range ordered {
		item, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			return nil, err
		}
		items[id] = item
	}
	return items, nil
}

func parseType(s string) (stock.TransactionType, error) {
	typ := stock.TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !typ.IsValid() {
		return "", shared.NewValidationError("transaction type must be inbound or outbound, got %q", s)
	}
	return typ, nil
}

func validateLines(lines []TransactionLineInput) error {
	if len(lines) == 0 {
		return shared.NewValidationError("transaction must have at least one item")
	}
	for i, l := range lines {
		if l.ItemID == uuid.Nil {
			return shared.NewValidationError("line %d: item id is required", i+1)
		}
		if !l.Qty.IsPositive() {
			return shared.NewDomainError(shared.CodeInvalidQuantity, "line quantity must be greater than zero").
				WithDetail("line", i+1)
		}
		if l.UnitPrice != nil && l.UnitPrice.IsNegative() {
			return shared.NewValidationError("line %d: unit price cannot be negative", i+1)
		}
	}
	return nil
}

func lineError(i int, sku string, err error) error {
	var de *shared.DomainError
	if errors.As(err, &de) {
		out := shared.NewDomainError(de.Code, de.Message).WithDetail("line", i+1).WithDetail("sku", sku)
		return out
	}
	return err
}

func lineItemIDs(lines []TransactionLineInput) []uuid.UUID {
	ids := make([]uuid.UUID, len(lines))
	for i, l := range lines {
		ids[i] = l.ItemID
	}
	return ids
}

func lineIDs(tx *stock.Transaction) []uuid.UUID {
	ids := make([]uuid.UUID, len(tx.Items))
	for i, l := range tx.Items {
		ids[i] = l.ItemID
	}
	return ids
}

// missingKeys returns the keys of before that are absent from after.
func missingKeys(before, after []string) []string {
	keep := make(map[string]struct{}, len(after))
	for _, k := range after {
		keep[k] = struct{}{}
	}
	var out []string
	for _, k := range before {
		if _, ok := keep[k]; !ok {
			out = append(out, k)
		}
	}
	return out
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
