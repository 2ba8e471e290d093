package session

import (
	"context"
	"errors"
	"testing"

	"chitieu/internal/core"
)

// fakeBackend records calls and serves a mutable in-memory list.
type fakeBackend struct {
	expenses []core.Expense
	budget   float64
	nextID   int64

	listCalls   int
	budgetCalls int

	failList   error
	failCreate error
	failUpdate error
	failDelete error
	failBudget error
}

func (f *fakeBackend) ListExpenses(ctx context.Context, month string) ([]core.Expense, error) {
	f.listCalls++
	if f.failList != nil {
		return nil, f.failList
	}
	out := make([]core.Expense, 0, len(f.expenses))
	for _, e := range f.expenses {
		if len(e.Date) >= len(month) && e.Date[:len(month)] == month {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeBackend) CreateExpense(ctx context.Context, fields core.ExpenseFields) (int64, error) {
	if f.failCreate != nil {
		return 0, f.failCreate
	}
	f.nextID++
	f.expenses = append(f.expenses, core.Expense{
		ID:       f.nextID,
		Date:     fields.Date,
		Item:     fields.Item,
		Amount:   fields.Amount,
		Category: fields.Category,
		Purpose:  fields.Purpose,
	})
	return f.nextID, nil
}

func (f *fakeBackend) UpdateExpense(ctx context.Context, id int64, fields core.ExpenseFields) error {
	if f.failUpdate != nil {
		return f.failUpdate
	}
	for i, e := range f.expenses {
		if e.ID == id {
			f.expenses[i] = core.Expense{ID: id, Date: fields.Date, Item: fields.Item, Amount: fields.Amount, Category: fields.Category, Purpose: fields.Purpose}
		}
	}
	return nil
}

func (f *fakeBackend) DeleteExpense(ctx context.Context, id int64) error {
	if f.failDelete != nil {
		return f.failDelete
	}
	out := f.expenses[:0]
	for _, e := range f.expenses {
		if e.ID != id {
			out = append(out, e)
		}
	}
	f.expenses = out
	return nil
}

func (f *fakeBackend) GetBudget(ctx context.Context) (float64, error) {
	f.budgetCalls++
	if f.failBudget != nil {
		return 0, f.failBudget
	}
	return f.budget, nil
}

func (f *fakeBackend) SetBudget(ctx context.Context, value float64) error {
	if f.failBudget != nil {
		return f.failBudget
	}
	f.budget = value
	return nil
}

func newTestStore(t *testing.T, backend *fakeBackend, month string) *Store {
	t.Helper()
	s := New(backend, nil)
	if err := s.SetMonth(context.Background(), month); err != nil {
		t.Fatalf("set month: %v", err)
	}
	return s
}

func TestLoadFetchesExpensesAndBudget(t *testing.T) {
	backend := &fakeBackend{
		expenses: []core.Expense{{ID: 1, Date: "2025-03-05", Item: "Cà phê", Amount: 35000}},
		budget:   200000,
	}
	s := newTestStore(t, backend, "2025-03")

	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := s.Expenses(); len(got) != 1 || got[0].Item != "Cà phê" {
		t.Fatalf("unexpected expenses: %+v", got)
	}
	if s.Budget() != 200000 {
		t.Fatalf("budget = %v, want 200000", s.Budget())
	}
	if backend.budgetCalls != 1 {
		t.Fatalf("budget fetched %d times", backend.budgetCalls)
	}
}

func TestLoadFailureLeavesStateUnchanged(t *testing.T) {
	backend := &fakeBackend{budget: 100000}
	s := newTestStore(t, backend, "2025-03")
	backend.failList = errors.New("boom")

	if err := s.Load(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if s.Budget() != 0 {
		t.Fatalf("budget patched despite failed load: %v", s.Budget())
	}
}

func TestSaveRefetchesList(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestStore(t, backend, "2025-03")
	calls := backend.listCalls

	err := s.Save(context.Background(), core.ExpenseFields{Item: "Cơm trưa", Amount: 55000, Date: "2025-03-10"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if backend.listCalls != calls+1 {
		t.Fatalf("expected one refetch, got %d", backend.listCalls-calls)
	}
	if got := s.Expenses(); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("cached list not refreshed: %+v", got)
	}
}

func TestSaveFailureDoesNotRefetch(t *testing.T) {
	backend := &fakeBackend{
		expenses: []core.Expense{{ID: 1, Date: "2025-03-01", Item: "a", Amount: 1000}},
	}
	s := newTestStore(t, backend, "2025-03")
	before := s.Expenses()
	calls := backend.listCalls
	backend.failCreate = errors.New("write failed")

	err := s.Save(context.Background(), core.ExpenseFields{Item: "b", Amount: 2000})
	if err == nil {
		t.Fatal("expected error")
	}
	if backend.listCalls != calls {
		t.Fatal("refetched after failed write")
	}
	if got := s.Expenses(); len(got) != len(before) {
		t.Fatalf("cached list changed: %+v", got)
	}
}

func TestSaveRejectsInvalidFieldsWithoutBackendCall(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestStore(t, backend, "2025-03")

	err := s.Save(context.Background(), core.ExpenseFields{Item: "x", Amount: -5})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if backend.nextID != 0 {
		t.Fatal("backend write attempted for invalid fields")
	}
}

func TestUpdateAndDeleteRefetch(t *testing.T) {
	backend := &fakeBackend{
		expenses: []core.Expense{{ID: 1, Date: "2025-03-01", Item: "a", Amount: 1000}},
		nextID:   1,
	}
	s := newTestStore(t, backend, "2025-03")

	err := s.Update(context.Background(), 1, core.ExpenseFields{Item: "a2", Amount: 1500, Date: "2025-03-01"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := s.Expenses(); got[0].Item != "a2" || got[0].Amount != 1500 {
		t.Fatalf("update not reflected: %+v", got)
	}

	if err := s.Delete(context.Background(), 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := s.Expenses(); len(got) != 0 {
		t.Fatalf("delete not reflected: %+v", got)
	}
}

func TestSetBudgetPatchesLocallyWithoutRefetch(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestStore(t, backend, "2025-03")
	calls := backend.listCalls

	if err := s.SetBudget(context.Background(), 500000); err != nil {
		t.Fatalf("set budget: %v", err)
	}
	if s.Budget() != 500000 {
		t.Fatalf("budget = %v", s.Budget())
	}
	if backend.listCalls != calls {
		t.Fatal("budget write must not refetch the expense list")
	}
	if backend.budget != 500000 {
		t.Fatalf("backend budget = %v", backend.budget)
	}
}

func TestSetBudgetFailureLeavesCacheUnchanged(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestStore(t, backend, "2025-03")
	backend.failBudget = errors.New("boom")

	if err := s.SetBudget(context.Background(), 500000); err == nil {
		t.Fatal("expected error")
	}
	if s.Budget() != 0 {
		t.Fatalf("budget patched despite failure: %v", s.Budget())
	}
}

func TestSetBudgetRejectsNegative(t *testing.T) {
	s := newTestStore(t, &fakeBackend{}, "2025-03")
	if err := s.SetBudget(context.Background(), -1); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestRemainingCanGoNegative(t *testing.T) {
	backend := &fakeBackend{budget: 200000}
	s := newTestStore(t, backend, "2025-03")
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := s.Save(context.Background(), core.ExpenseFields{Item: "a", Amount: 150000, Date: "2025-03-01"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := s.Remaining(); got != 50000 {
		t.Fatalf("remaining = %v, want 50000", got)
	}

	if err := s.Save(context.Background(), core.ExpenseFields{Item: "b", Amount: 100000, Date: "2025-03-02"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := s.Remaining(); got != -50000 {
		t.Fatalf("remaining = %v, want -50000", got)
	}
}

func TestSetMonthSwitchesList(t *testing.T) {
	backend := &fakeBackend{
		expenses: []core.Expense{
			{ID: 1, Date: "2025-03-05", Item: "march", Amount: 1000},
			{ID: 2, Date: "2025-04-01", Item: "april", Amount: 2000},
		},
	}
	s := newTestStore(t, backend, "2025-03")
	if got := s.Expenses(); len(got) != 1 || got[0].Item != "march" {
		t.Fatalf("march view wrong: %+v", got)
	}

	if err := s.SetMonth(context.Background(), "2025-04"); err != nil {
		t.Fatalf("set month: %v", err)
	}
	if got := s.Expenses(); len(got) != 1 || got[0].Item != "april" {
		t.Fatalf("april view wrong: %+v", got)
	}
}

func TestSetMonthRejectsMalformed(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestStore(t, backend, "2025-03")
	calls := backend.listCalls

	if err := s.SetMonth(context.Background(), "2025-13"); !errors.Is(err, core.ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
	if s.Month() != "2025-03" {
		t.Fatalf("month changed to %q", s.Month())
	}
	if backend.listCalls != calls {
		t.Fatal("refetched for rejected month")
	}
}

func TestFilteredViewsFollowLocalFilters(t *testing.T) {
	backend := &fakeBackend{
		expenses: []core.Expense{
			{ID: 1, Date: "2025-03-05", Item: "Cà phê", Amount: 35000, Category: "Ăn uống"},
			{ID: 2, Date: "2025-03-04", Item: "Xăng", Amount: 80000, Category: "Di chuyển"},
			{ID: 3, Date: "2025-03-03", Item: "Trà sữa", Amount: 40000, Category: "Ăn uống"},
		},
	}
	s := newTestStore(t, backend, "2025-03")
	calls := backend.listCalls

	s.SetCategoryFilter("Ăn uống")
	if backend.listCalls != calls {
		t.Fatal("filter change must not hit the backend")
	}
	if got := s.FilteredExpenses(); len(got) != 2 {
		t.Fatalf("filtered = %+v", got)
	}
	if got := s.FilteredTotal(); got != 75000 {
		t.Fatalf("filtered total = %v", got)
	}
	// Category options come from the unfiltered list.
	if got := s.Categories(); len(got) != 2 {
		t.Fatalf("categories shrank under filter: %v", got)
	}
	// Totals are over the filtered list and sum to the filtered total.
	totals := s.CategoryTotals()
	if len(totals) != 1 || totals[0].Name != "Ăn uống" || totals[0].Amount != 75000 {
		t.Fatalf("category totals = %+v", totals)
	}
	if !s.HasActiveFilter() {
		t.Fatal("filter should be active")
	}

	s.SetCategoryFilter("")
	s.SetSearch("   ")
	if s.HasActiveFilter() {
		t.Fatal("blank search is not an active filter")
	}
	if got := s.TotalSpent(); got != 155000 {
		t.Fatalf("total spent = %v", got)
	}
}

func TestDraftWithoutParser(t *testing.T) {
	s := newTestStore(t, &fakeBackend{}, "2025-03")
	if _, err := s.DraftFromText(context.Background(), "cà phê 35k"); !errors.Is(err, ErrNoParser) {
		t.Fatalf("expected ErrNoParser, got %v", err)
	}
	if _, err := s.DraftFromImage(context.Background(), []byte("x"), "image/png"); !errors.Is(err, ErrNoParser) {
		t.Fatalf("expected ErrNoParser, got %v", err)
	}
}
