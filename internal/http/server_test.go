package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chitieu/internal/core"
)

type fakeExpenses struct {
	list    []core.Expense
	listErr error
	nextID  int64

	created []core.ExpenseFields
	updated map[int64]core.ExpenseFields
	deleted []int64
	failing bool
}

func newFakeExpenses() *fakeExpenses {
	return &fakeExpenses{nextID: 1, updated: make(map[int64]core.ExpenseFields)}
}

func (f *fakeExpenses) ListExpenses(ctx context.Context, month string) ([]core.Expense, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []core.Expense
	for _, e := range f.list {
		if strings.HasPrefix(e.Date, month) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeExpenses) CreateExpense(ctx context.Context, fields core.ExpenseFields) (int64, error) {
	if f.failing {
		return 0, errors.New("storage fault")
	}
	f.created = append(f.created, fields)
	id := f.nextID
	f.nextID++
	return id, nil
}

func (f *fakeExpenses) UpdateExpense(ctx context.Context, id int64, fields core.ExpenseFields) error {
	if f.failing {
		return errors.New("storage fault")
	}
	f.updated[id] = fields
	return nil
}

func (f *fakeExpenses) DeleteExpense(ctx context.Context, id int64) error {
	if f.failing {
		return errors.New("storage fault")
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeBudget struct {
	value   float64
	failing bool
}

func (f *fakeBudget) GetBudget(ctx context.Context) (float64, error) {
	if f.failing {
		return 0, errors.New("storage fault")
	}
	return f.value, nil
}

func (f *fakeBudget) SetBudget(ctx context.Context, v float64) error {
	if f.failing {
		return errors.New("storage fault")
	}
	f.value = v
	return nil
}

func serve(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	srv := NewServer(":0", newFakeExpenses(), &fakeBudget{})
	defer srv.Shutdown(context.Background())

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := serve(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestListExpenses(t *testing.T) {
	exp := newFakeExpenses()
	exp.list = []core.Expense{
		{ID: 1, Date: "2024-05-10", Item: "Coffee", Amount: 50000, Category: "Food"},
		{ID: 2, Date: "2024-04-02", Item: "Bus", Amount: 7000},
	}
	srv := NewServer(":0", exp, &fakeBudget{})
	defer srv.Shutdown(context.Background())

	rr := serve(t, srv, http.MethodGet, "/expenses?month=2024-05", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var got []core.Expense
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Item != "Coffee" {
		t.Fatalf("unexpected list: %+v", got)
	}
}

func TestListExpensesEmptyMonthIsJSONArray(t *testing.T) {
	srv := NewServer(":0", newFakeExpenses(), &fakeBudget{})
	defer srv.Shutdown(context.Background())

	rr := serve(t, srv, http.MethodGet, "/expenses?month=2030-01", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if body := strings.TrimSpace(rr.Body.String()); body != "[]" {
		t.Fatalf("expected empty JSON array, got %s", body)
	}
}

func TestListExpensesDefaultsToCurrentMonth(t *testing.T) {
	exp := newFakeExpenses()
	exp.list = []core.Expense{
		{ID: 1, Date: core.MonthPrefix(time.Now()) + "-01", Item: "Now", Amount: 1},
		{ID: 2, Date: "1999-01-01", Item: "Old", Amount: 2},
	}
	srv := NewServer(":0", exp, &fakeBudget{})
	defer srv.Shutdown(context.Background())

	rr := serve(t, srv, http.MethodGet, "/expenses", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var got []core.Expense
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Item != "Now" {
		t.Fatalf("expected only current-month record, got %+v", got)
	}
}

func TestListExpensesRejectsMalformedMonth(t *testing.T) {
	srv := NewServer(":0", newFakeExpenses(), &fakeBudget{})
	defer srv.Shutdown(context.Background())

	rr := serve(t, srv, http.MethodGet, "/expenses?month=05-2024", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestCreateExpense(t *testing.T) {
	exp := newFakeExpenses()
	srv := NewServer(":0", exp, &fakeBudget{})
	defer srv.Shutdown(context.Background())

	rr := serve(t, srv, http.MethodPost, "/expenses",
		`{"item":"Coffee","amount":50000,"category":"Food","purpose":"breakfast","date":"2024-05-01"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var got map[string]int64
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["id"] != 1 {
		t.Fatalf("expected id 1, got %v", got)
	}
	if len(exp.created) != 1 || exp.created[0].Amount != 50000 {
		t.Fatalf("unexpected create: %+v", exp.created)
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	exp := newFakeExpenses()
	srv := NewServer(":0", exp, &fakeBudget{})
	defer srv.Shutdown(context.Background())

	cases := []string{
		`{not json`,
		`{"item":"x","amount":"abc"}`,
		`{"item":"x"}`,
		`{"item":"x","amount":-5}`,
		`{"item":"x","amount":5,"date":"01/05/2024"}`,
	}
	for i, body := range cases {
		rr := serve(t, srv, http.MethodPost, "/expenses", body)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("case %d: expected 400, got %d (%s)", i, rr.Code, rr.Body.String())
		}
	}
	if len(exp.created) != 0 {
		t.Fatalf("no writes should happen on validation failure, got %+v", exp.created)
	}
}

func TestCreateExpenseStorageFault(t *testing.T) {
	exp := newFakeExpenses()
	exp.failing = true
	srv := NewServer(":0", exp, &fakeBudget{})
	defer srv.Shutdown(context.Background())

	rr := serve(t, srv, http.MethodPost, "/expenses", `{"item":"x","amount":1}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

func TestUpdateExpense(t *testing.T) {
	exp := newFakeExpenses()
	srv := NewServer(":0", exp, &fakeBudget{})
	defer srv.Shutdown(context.Background())

	rr := serve(t, srv, http.MethodPut, "/expenses/5",
		`{"item":"Grab","amount":90000,"category":"Di chuyển","purpose":"","date":""}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"success":true`) {
		t.Fatalf("expected success body, got %s", rr.Body.String())
	}
	if got, ok := exp.updated[5]; !ok || got.Item != "Grab" || got.Date != "" {
		t.Fatalf("unexpected update: %+v", exp.updated)
	}
}

func TestUpdateExpenseInvalidID(t *testing.T) {
	srv := NewServer(":0", newFakeExpenses(), &fakeBudget{})
	defer srv.Shutdown(context.Background())

	rr := serve(t, srv, http.MethodPut, "/expenses/abc", `{"item":"x","amount":1}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestDeleteExpense(t *testing.T) {
	exp := newFakeExpenses()
	srv := NewServer(":0", exp, &fakeBudget{})
	defer srv.Shutdown(context.Background())

	rr := serve(t, srv, http.MethodDelete, "/expenses/3", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if len(exp.deleted) != 1 || exp.deleted[0] != 3 {
		t.Fatalf("unexpected deletes: %+v", exp.deleted)
	}
}

func TestBudgetRoundTrip(t *testing.T) {
	budget := &fakeBudget{value: 150000}
	srv := NewServer(":0", newFakeExpenses(), budget)
	defer srv.Shutdown(context.Background())

	rr := serve(t, srv, http.MethodGet, "/budget", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var got map[string]float64
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["total_money"] != 150000 {
		t.Fatalf("expected 150000, got %v", got)
	}

	rr = serve(t, srv, http.MethodPost, "/budget", `{"total_money":200000}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if budget.value != 200000 {
		t.Fatalf("budget not written: %v", budget.value)
	}
}

func TestSetBudgetValidation(t *testing.T) {
	budget := &fakeBudget{value: 7}
	srv := NewServer(":0", newFakeExpenses(), budget)
	defer srv.Shutdown(context.Background())

	for i, body := range []string{`{}`, `{"total_money":-1}`, `{oops`} {
		rr := serve(t, srv, http.MethodPost, "/budget", body)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("case %d: expected 400, got %d", i, rr.Code)
		}
	}
	if budget.value != 7 {
		t.Fatalf("budget changed by rejected writes: %v", budget.value)
	}
}
