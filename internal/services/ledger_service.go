package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

const defaultRecentLimit = 5

// LedgerService orchestrates entry operations across SQLite and AMQP.
type LedgerService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewLedgerService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *LedgerService {
	return &LedgerService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// EntryListRequest selects and paginates an owner's entries. Zero filter
// fields are not applied.
type EntryListRequest struct {
	CategoryID string
	Kind       core.Kind
	From       time.Time
	To         time.Time
	Page       int
	Limit      int
}

// EntryPage is one page of entries with pagination metadata.
type EntryPage struct {
	Entries    []core.Entry
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// CreateEntryRequest carries the caller-supplied fields for a new entry.
// Currency, description and date are optional.
type CreateEntryRequest struct {
	CategoryID  string
	Kind        core.Kind
	Amount      decimal.Decimal
	Currency    string
	Description string
	OccurredOn  time.Time
}

// UpdateEntryRequest carries a partial update; nil fields keep the
// stored value.
type UpdateEntryRequest struct {
	CategoryID  *string
	Kind        *core.Kind
	Amount      *decimal.Decimal
	Currency    *string
	Description *string
	OccurredOn  *time.Time
}

// List returns a page of the owner's entries, newest first.
func (s *LedgerService) List(ctx context.Context, ownerID string, req EntryListRequest) (EntryPage, error) {
	if req.Page < 1 {
		return EntryPage{}, core.ErrInvalidPage
	}
	if req.Limit < 1 {
		return EntryPage{}, core.ErrInvalidLimit
	}
	if req.Kind != "" {
		if err := req.Kind.Validate(); err != nil {
			return EntryPage{}, err
		}
	}

	filter := storage.EntryFilter{
		OwnerID:    ownerID,
		CategoryID: req.CategoryID,
		Kind:       req.Kind,
		From:       req.From,
		To:         req.To,
	}

	var (
		entries []core.Entry
		total   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = s.storage.ListEntries(gctx, filter, req.Limit, (req.Page-1)*req.Limit)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.storage.CountEntries(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return EntryPage{}, fmt.Errorf("list entries: %w", err)
	}

	if entries == nil {
		entries = []core.Entry{}
	}
	return EntryPage{
		Entries:    entries,
		Total:      total,
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: (total + req.Limit - 1) / req.Limit,
	}, nil
}

// Get returns one entry. A missing id is NotFound; an entry owned by
// someone else is Forbidden. Existence is not hidden from other owners.
func (s *LedgerService) Get(ctx context.Context, ownerID, id string) (core.Entry, error) {
	entry, err := s.storage.GetEntry(ctx, id)
	if err != nil {
		return core.Entry{}, err
	}
	if entry.OwnerID != ownerID {
		return core.Entry{}, fmt.Errorf("entry %s: %w", id, core.ErrForbidden)
	}
	return entry, nil
}

// Create validates and stores a new entry, then publishes a change event.
// The event is best effort; a publish failure does not fail the request.
func (s *LedgerService) Create(ctx context.Context, ownerID string, req CreateEntryRequest) (core.Entry, error) {
	now := time.Now().UTC()

	entry := core.Entry{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		CategoryID:  req.CategoryID,
		Kind:        req.Kind,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		OccurredOn:  req.OccurredOn,
		CreatedAt:   now,
	}
	if entry.Currency == "" {
		entry.Currency = core.DefaultCurrency
	}
	if entry.OccurredOn.IsZero() {
		entry.OccurredOn = now
	}
	if err := entry.Validate(); err != nil {
		return core.Entry{}, err
	}

	created, err := s.storage.CreateEntry(ctx, entry)
	if err != nil {
		return core.Entry{}, fmt.Errorf("save entry: %w", err)
	}

	s.publishEvent(ctx, created, amqp.OpCreated)
	return created, nil
}

// Update applies a partial update after re-running the ownership check.
func (s *LedgerService) Update(ctx context.Context, ownerID, id string, req UpdateEntryRequest) (core.Entry, error) {
	entry, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return core.Entry{}, err
	}

	if req.CategoryID != nil {
		entry.CategoryID = *req.CategoryID
	}
	if req.Kind != nil {
		entry.Kind = *req.Kind
	}
	if req.Amount != nil {
		entry.Amount = *req.Amount
	}
	if req.Currency != nil {
		entry.Currency = *req.Currency
	}
	if req.Description != nil {
		entry.Description = *req.Description
	}
	if req.OccurredOn != nil && !req.OccurredOn.IsZero() {
		entry.OccurredOn = *req.OccurredOn
	}
	if err := entry.Validate(); err != nil {
		return core.Entry{}, err
	}

	updated, err := s.storage.UpdateEntry(ctx, entry)
	if err != nil {
		return core.Entry{}, fmt.Errorf("update entry: %w", err)
	}

	s.publishEvent(ctx, updated, amqp.OpUpdated)
	return updated, nil
}

// Delete removes an entry after the ownership check.
func (s *LedgerService) Delete(ctx context.Context, ownerID, id string) error {
	entry, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.storage.DeleteEntry(ctx, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}

	s.publishEvent(ctx, entry, amqp.OpDeleted)
	return nil
}

// GetBalance sums the owner's whole ledger, both kinds independently and
// concurrently. An empty ledger yields all zeros.
func (s *LedgerService) GetBalance(ctx context.Context, ownerID string) (core.Balance, error) {
	var income, expense decimal.Decimal

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		income, err = s.storage.SumEntries(gctx, storage.EntryFilter{OwnerID: ownerID, Kind: core.Income})
		return err
	})
	g.Go(func() error {
		var err error
		expense, err = s.storage.SumEntries(gctx, storage.EntryFilter{OwnerID: ownerID, Kind: core.Expense})
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Balance{}, fmt.Errorf("compute balance: %w", err)
	}

	return core.NewBalance(income, expense), nil
}

// GetRecent returns the owner's most recent entries by occurred-on date.
func (s *LedgerService) GetRecent(ctx context.Context, ownerID string, limit int) ([]core.Entry, error) {
	if limit < 1 {
		limit = defaultRecentLimit
	}
	entries, err := s.storage.ListEntries(ctx, storage.EntryFilter{OwnerID: ownerID}, limit, 0)
	if err != nil {
		return nil, fmt.Errorf("recent entries: %w", err)
	}
	if entries == nil {
		entries = []core.Entry{}
	}
	return entries, nil
}

func (s *LedgerService) publishEvent(ctx context.Context, e core.Entry, op string) {
	if s.amqpClient == nil {
		return
	}
	msg := amqp.NewEntryEventMessage(e.ID, e.OwnerID, e.CategoryID, op, e.OccurredOn)
	if err := s.amqpClient.PublishEntryEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish entry event",
			"entry_id", e.ID, "op", op, "error", err)
		// Don't fail the request, the write already succeeded
	}
}
