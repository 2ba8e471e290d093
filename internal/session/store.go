// Package session holds the client-side data store: the single source of
// truth behind the UI. It caches the fetched expense list and budget,
// derives filtered and aggregated views on demand, and synchronizes
// mutations with the API. It is not persisted; a Store is created on
// session start and discarded on session end.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"chitieu/internal/core"
	"chitieu/internal/draft"
)

// Backend is the API surface the store synchronizes against.
type Backend interface {
	ListExpenses(ctx context.Context, month string) ([]core.Expense, error)
	CreateExpense(ctx context.Context, f core.ExpenseFields) (int64, error)
	UpdateExpense(ctx context.Context, id int64, f core.ExpenseFields) error
	DeleteExpense(ctx context.Context, id int64) error
	GetBudget(ctx context.Context) (float64, error)
	SetBudget(ctx context.Context, value float64) error
}

// ErrNoParser is returned by the draft flow when no parser is configured.
var ErrNoParser = errors.New("session: draft parser not configured")

// Store is an explicitly constructed state container. Every mutation
// returns an error; on failure the cached state is left untouched and the
// caller decides what to show.
type Store struct {
	backend Backend
	parser  draft.Parser

	mu       sync.RWMutex
	month    string
	expenses []core.Expense
	budget   float64
	search   string
	category string

	// Coalesces concurrent refreshes of the same month; a double-submit
	// triggers one fetch, not two.
	refresh singleflight.Group
}

// New creates a store for the current month. parser may be nil when the
// AI draft flow is not configured.
func New(backend Backend, parser draft.Parser) *Store {
	return &Store{
		backend: backend,
		parser:  parser,
		month:   core.MonthPrefix(time.Now()),
	}
}

// Load fetches the expense list and budget concurrently. Called once on
// session start.
func (s *Store) Load(ctx context.Context) error {
	var (
		expenses []core.Expense
		budget   float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := s.backend.ListExpenses(gctx, s.Month())
		if err != nil {
			return fmt.Errorf("fetch expenses: %w", err)
		}
		expenses = list
		return nil
	})
	g.Go(func() error {
		v, err := s.backend.GetBudget(gctx)
		if err != nil {
			return fmt.Errorf("fetch budget: %w", err)
		}
		budget = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	s.mu.Lock()
	s.expenses = expenses
	s.budget = budget
	s.mu.Unlock()
	return nil
}

// Refresh refetches the canonical expense list for the current month.
func (s *Store) Refresh(ctx context.Context) error {
	month := s.Month()
	_, err, _ := s.refresh.Do(month, func() (any, error) {
		list, err := s.backend.ListExpenses(ctx, month)
		if err != nil {
			return nil, fmt.Errorf("refresh expenses: %w", err)
		}
		s.mu.Lock()
		if s.month == month {
			s.expenses = list
		}
		s.mu.Unlock()
		return nil, nil
	})
	return err
}

// Save creates a new expense, then refetches the full list. The cached
// list is never patched locally: correctness over latency.
func (s *Store) Save(ctx context.Context, f core.ExpenseFields) error {
	if err := f.Validate(); err != nil {
		return err
	}
	id, err := s.backend.CreateExpense(ctx, f)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to save expense", "error", err, "item", f.Item, "amount", f.Amount)
		return err
	}
	slog.InfoContext(ctx, "Expense saved", "expense_id", id, "item", f.Item, "amount", f.Amount)
	return s.Refresh(ctx)
}

// Update replaces an expense's fields, then refetches the full list.
func (s *Store) Update(ctx context.Context, id int64, f core.ExpenseFields) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if err := s.backend.UpdateExpense(ctx, id, f); err != nil {
		slog.ErrorContext(ctx, "Failed to update expense", "error", err, "expense_id", id)
		return err
	}
	return s.Refresh(ctx)
}

// Delete removes an expense, then refetches the full list.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := s.backend.DeleteExpense(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to delete expense", "error", err, "expense_id", id)
		return err
	}
	return s.Refresh(ctx)
}

// SetBudget overwrites the budget. Unlike expense mutations it patches
// the cached value locally instead of refetching, trusting the write.
// This asymmetry is intentional.
func (s *Store) SetBudget(ctx context.Context, value float64) error {
	if value < 0 {
		return core.ErrInvalidAmount
	}
	if err := s.backend.SetBudget(ctx, value); err != nil {
		slog.ErrorContext(ctx, "Failed to update budget", "error", err, "total_money", value)
		return err
	}
	s.mu.Lock()
	s.budget = value
	s.mu.Unlock()
	return nil
}

// DraftFromText asks the parser to turn a free-text description into an
// expense draft. A draft.ErrUnparseable result means "ask the user to
// clarify", never "save an empty draft".
func (s *Store) DraftFromText(ctx context.Context, text string) (core.Draft, error) {
	if s.parser == nil {
		return core.Draft{}, ErrNoParser
	}
	return s.parser.ParseText(ctx, text)
}

// DraftFromImage asks the parser to extract a draft from a receipt image.
func (s *Store) DraftFromImage(ctx context.Context, data []byte, mimeType string) (core.Draft, error) {
	if s.parser == nil {
		return core.Draft{}, ErrNoParser
	}
	return s.parser.ParseImage(ctx, data, mimeType)
}

// SetMonth switches the viewed month and refetches its list.
func (s *Store) SetMonth(ctx context.Context, month string) error {
	if err := core.ValidateMonth(month); err != nil {
		return err
	}
	s.mu.Lock()
	s.month = month
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// SetSearch sets the free-text search query. Local state only.
func (s *Store) SetSearch(query string) {
	s.mu.Lock()
	s.search = query
	s.mu.Unlock()
}

// SetCategoryFilter sets the selected category filter. Local state only.
func (s *Store) SetCategoryFilter(category string) {
	s.mu.Lock()
	s.category = category
	s.mu.Unlock()
}

func (s *Store) Month() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.month
}

func (s *Store) Search() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.search
}

func (s *Store) CategoryFilter() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.category
}

// Expenses returns a copy of the raw cached list.
func (s *Store) Expenses() []core.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Expense, len(s.expenses))
	copy(out, s.expenses)
	return out
}

func (s *Store) Budget() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.budget
}

// FilteredExpenses applies the search query and category filter.
func (s *Store) FilteredExpenses() []core.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Filter(s.expenses, s.search, s.category)
}

// CategoryTotals aggregates the filtered list by category.
func (s *Store) CategoryTotals() []core.CategoryAmount {
	return CategoryTotals(s.FilteredExpenses())
}

// Categories lists the distinct non-empty categories of the unfiltered
// list, for filter and autocomplete options.
func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return DistinctCategories(s.expenses)
}

// TotalSpent sums the full unfiltered list.
func (s *Store) TotalSpent() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SumAmounts(s.expenses)
}

// Remaining is budget minus total spent. May be negative.
func (s *Store) Remaining() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.budget - SumAmounts(s.expenses)
}

// FilteredTotal sums the filtered list only.
func (s *Store) FilteredTotal() float64 {
	return SumAmounts(s.FilteredExpenses())
}

// HasActiveFilter reports whether either filter predicate is set.
func (s *Store) HasActiveFilter() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return strings.TrimSpace(s.search) != "" || s.category != ""
}
