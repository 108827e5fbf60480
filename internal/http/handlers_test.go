package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/storage"
)

// fakeRepo backs both the engine and the backup surface, mimicking the
// SQLite store's single-document semantics.
type fakeRepo struct {
	mu    sync.Mutex
	state core.AppState
}

func (r *fakeRepo) Load(ctx context.Context) (core.AppState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone(), nil
}

func (r *fakeRepo) Save(ctx context.Context, state core.AppState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state.Clone()
	return nil
}

func (r *fakeRepo) Export(ctx context.Context) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return json.Marshal(r.state)
}

func (r *fakeRepo) Import(ctx context.Context, raw []byte) error {
	var state core.AppState
	if err := json.Unmarshal(raw, &state); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrMalformedDocument, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
	return nil
}

func (r *fakeRepo) Erase(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = core.SeedState(time.Now())
	return nil
}

func newTestServer(t *testing.T, initial core.AppState) (*Server, *fakeRepo) {
	t.Helper()
	repo := &fakeRepo{state: initial}
	seq := 0
	l := ledger.New(repo, nil,
		ledger.WithIDGenerator(func() string { seq++; return fmt.Sprintf("id-%d", seq) }),
	)
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return NewServer(":0", l, repo, nil), repo
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func testState() core.AppState {
	return core.AppState{
		Accounts: []core.Account{{
			ID:      "acc-main",
			Name:    "Cuenta Principal",
			Balance: decimal.RequireFromString("5000"),
		}},
	}
}

func TestGetState(t *testing.T) {
	s, _ := newTestServer(t, testState())

	rec := doRequest(t, s, http.MethodGet, "/api/state", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var state core.AppState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(state.Accounts) != 1 || state.Accounts[0].ID != "acc-main" {
		t.Fatalf("unexpected accounts: %+v", state.Accounts)
	}
}

func TestCreateTransactionAdjustsBalance(t *testing.T) {
	s, _ := newTestServer(t, testState())

	rec := doRequest(t, s, http.MethodPost, "/api/transactions",
		`{"type":"expense","amount":50,"description":"Supermercado","category":"Comida","accountId":"acc-main","date":"2025-07-02"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body)
	}

	var created core.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == "" || created.Type != core.Expense {
		t.Fatalf("unexpected transaction: %+v", created)
	}

	state := stateOf(t, s)
	if !state.Accounts[0].Balance.Equal(decimal.RequireFromString("4950")) {
		t.Fatalf("balance = %s, want 4950", state.Accounts[0].Balance)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	s, _ := newTestServer(t, testState())

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing description", `{"type":"expense","amount":10,"accountId":"acc-main","date":"2025-07-02"}`, http.StatusUnprocessableEntity},
		{"bad type", `{"type":"transfer","amount":10,"description":"x","accountId":"acc-main","date":"2025-07-02"}`, http.StatusUnprocessableEntity},
		{"bad date", `{"type":"expense","amount":10,"description":"x","accountId":"acc-main","date":"02/07/2025"}`, http.StatusUnprocessableEntity},
		{"negative amount", `{"type":"expense","amount":-5,"description":"x","accountId":"acc-main","date":"2025-07-02"}`, http.StatusUnprocessableEntity},
		{"not json", `not json`, http.StatusBadRequest},
		{"unknown field", `{"type":"expense","amount":10,"description":"x","accountId":"acc-main","date":"2025-07-02","color":"red"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/api/transactions", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d, body %s", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestDeleteTransactionRestoresBalance(t *testing.T) {
	s, _ := newTestServer(t, testState())

	rec := doRequest(t, s, http.MethodPost, "/api/transactions",
		`{"type":"expense","amount":300,"description":"Cena","category":"Comida","accountId":"acc-main","date":"2025-07-05"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created core.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = doRequest(t, s, http.MethodDelete, "/api/transactions/"+created.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}

	state := stateOf(t, s)
	if !state.Accounts[0].Balance.Equal(decimal.RequireFromString("5000")) {
		t.Fatalf("balance = %s, want 5000", state.Accounts[0].Balance)
	}
	if len(state.Transactions) != 0 {
		t.Fatalf("transactions = %d, want 0", len(state.Transactions))
	}
}

func TestAccountCRUD(t *testing.T) {
	s, _ := newTestServer(t, core.AppState{})

	rec := doRequest(t, s, http.MethodPost, "/api/accounts",
		`{"name":"Efectivo","typeId":"t1","balance":250}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body)
	}
	var acc core.Account
	if err := json.Unmarshal(rec.Body.Bytes(), &acc); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = doRequest(t, s, http.MethodPut, "/api/accounts/"+acc.ID, `{"name":"Cartera"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("update status = %d", rec.Code)
	}

	state := stateOf(t, s)
	if state.Accounts[0].Name != "Cartera" {
		t.Fatalf("name = %q, want Cartera", state.Accounts[0].Name)
	}
	if !state.Accounts[0].Balance.Equal(decimal.RequireFromString("250")) {
		t.Fatalf("balance rewritten to %s", state.Accounts[0].Balance)
	}

	rec = doRequest(t, s, http.MethodDelete, "/api/accounts/"+acc.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if got := len(stateOf(t, s).Accounts); got != 0 {
		t.Fatalf("accounts = %d, want 0", got)
	}
}

func TestDashboard(t *testing.T) {
	s, _ := newTestServer(t, testState())

	for _, body := range []string{
		`{"type":"income","amount":5000,"description":"Salario","category":"Trabajo","accountId":"acc-main","date":"2025-07-01"}`,
		`{"type":"expense","amount":50,"description":"Supermercado","category":"Comida","accountId":"acc-main","date":"2025-07-02"}`,
		`{"type":"expense","amount":1200,"description":"Portátil","category":"Tecnología","accountId":"acc-main","date":"2025-07-10","isDeferred":true,"deferredMonth":"2025-09"}`,
	} {
		if rec := doRequest(t, s, http.MethodPost, "/api/transactions", body); rec.Code != http.StatusCreated {
			t.Fatalf("seed transaction failed: %d %s", rec.Code, rec.Body)
		}
	}

	rec := doRequest(t, s, http.MethodGet, "/api/dashboard?month=2025-07", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var dash struct {
		Month   string `json:"month"`
		Summary struct {
			Income   decimal.Decimal `json:"income"`
			Expenses decimal.Decimal `json:"expenses"`
		} `json:"summary"`
		TotalBalance decimal.Decimal `json:"totalBalance"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &dash); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dash.Month != "2025-07" {
		t.Fatalf("month = %q", dash.Month)
	}
	if !dash.Summary.Income.Equal(decimal.RequireFromString("5000")) {
		t.Fatalf("income = %s, want 5000", dash.Summary.Income)
	}
	// The deferred laptop stays out of July's aggregate.
	if !dash.Summary.Expenses.Equal(decimal.RequireFromString("50")) {
		t.Fatalf("expenses = %s, want 50", dash.Summary.Expenses)
	}
	if !dash.TotalBalance.Equal(decimal.RequireFromString("8750")) {
		t.Fatalf("totalBalance = %s, want 8750", dash.TotalBalance)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/dashboard?month=julio", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad month status = %d, want 400", rec.Code)
	}
}

func TestToggleHideAmounts(t *testing.T) {
	s, _ := newTestServer(t, core.AppState{})

	rec := doRequest(t, s, http.MethodPost, "/api/settings/hide-amounts", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp["hideAmounts"] {
		t.Fatal("hideAmounts = false after first toggle")
	}
}

func TestExportImportClear(t *testing.T) {
	s, _ := newTestServer(t, testState())

	rec := doRequest(t, s, http.MethodGet, "/api/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "finance-backup-") {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	exported := rec.Body.Bytes()

	rec = doRequest(t, s, http.MethodPost, "/api/clear", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("clear status = %d", rec.Code)
	}
	if got := stateOf(t, s); len(got.AccountTypes) == 0 {
		t.Fatal("clear should reseed the default state")
	}

	rec = doRequest(t, s, http.MethodPost, "/api/import", string(exported))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("import status = %d, body %s", rec.Code, rec.Body)
	}
	state := stateOf(t, s)
	if len(state.Accounts) != 1 || state.Accounts[0].ID != "acc-main" {
		t.Fatalf("state after import: %+v", state.Accounts)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/import", `{"accounts": "nope"`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("malformed import status = %d, want 422", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t, core.AppState{})

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doRequest(t, s, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
	}
}

func stateOf(t *testing.T, s *Server) core.AppState {
	t.Helper()
	rec := doRequest(t, s, http.MethodGet, "/api/state", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("state status = %d", rec.Code)
	}
	var state core.AppState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return state
}
