package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"

	"github.com/shopspring/decimal"
)

// Request bodies are capped well above any realistic ledger document.
const maxBodyBytes = 4 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

// statusForValidation maps domain validation errors to 422, everything else
// to 500.
func statusForValidation(err error) int {
	switch {
	case errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidTargetDate),
		errors.Is(err, core.ErrInvalidCreditLimit):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Snapshot())
}

// dashboardResponse aggregates the derived views the frontend renders.
type dashboardResponse struct {
	Month        string               `json:"month"`
	Summary      core.MonthSummary    `json:"summary"`
	History      []core.MonthSummary  `json:"history"`
	Categories   []core.CategoryShare `json:"categories"`
	Recent       []core.Transaction   `json:"recent"`
	Goals        []goalWithStatus     `json:"goals"`
	TotalBalance decimal.Decimal      `json:"totalBalance"`
	HideAmounts  bool                 `json:"hideAmounts"`
	Accounts     []core.Account       `json:"accounts"`
}

type goalWithStatus struct {
	core.SavingsGoal
	Status core.GoalStatus `json:"status"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	month := strings.TrimSpace(r.URL.Query().Get("month"))
	if month == "" {
		month = now.Format(core.MonthLayout)
	} else if _, err := time.Parse(core.MonthLayout, month); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid month %q: want YYYY-MM", month))
		return
	}

	state := s.ledger.Snapshot()

	goals := make([]goalWithStatus, 0, len(state.SavingsGoals))
	for _, g := range state.SavingsGoals {
		goals = append(goals, goalWithStatus{SavingsGoal: g, Status: core.StatusOf(g, now)})
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		Month:        month,
		Summary:      core.MonthlySummary(state.Transactions, month),
		History:      core.MonthlyHistory(state.Transactions, 6, now),
		Categories:   core.CategoryBreakdown(state.Transactions, 5),
		Recent:       core.RecentTransactions(state.Transactions, 10),
		Goals:        goals,
		TotalBalance: s.ledger.TotalBalance(),
		HideAmounts:  state.HideAmounts,
		Accounts:     state.Accounts,
	})
}

// --- Account types ---

func (s *Server) handleCreateAccountType(w http.ResponseWriter, r *http.Request) {
	var in core.AccountTypeInput
	if !decodeBody(w, r, &in) {
		return
	}
	created, err := s.ledger.AddAccountType(r.Context(), in)
	if err != nil {
		writeError(w, statusForValidation(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateAccountType(w http.ResponseWriter, r *http.Request) {
	var patch core.AccountTypePatch
	if !decodeBody(w, r, &patch) {
		return
	}
	if err := s.ledger.UpdateAccountType(r.Context(), r.PathValue("id"), patch); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteAccountType(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteAccountType(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Accounts ---

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var in core.AccountInput
	if !decodeBody(w, r, &in) {
		return
	}
	created, err := s.ledger.AddAccount(r.Context(), in)
	if err != nil {
		writeError(w, statusForValidation(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var patch core.AccountPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	if err := s.ledger.UpdateAccount(r.Context(), r.PathValue("id"), patch); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteAccount(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Savings goals ---

func (s *Server) handleCreateSavingsGoal(w http.ResponseWriter, r *http.Request) {
	var in core.SavingsGoalInput
	if !decodeBody(w, r, &in) {
		return
	}
	created, err := s.ledger.AddSavingsGoal(r.Context(), in)
	if err != nil {
		writeError(w, statusForValidation(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateSavingsGoal(w http.ResponseWriter, r *http.Request) {
	var patch core.SavingsGoalPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	if err := s.ledger.UpdateSavingsGoal(r.Context(), r.PathValue("id"), patch); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteSavingsGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteSavingsGoal(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Transactions ---

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in core.TransactionInput
	if !decodeBody(w, r, &in) {
		return
	}
	created, err := s.ledger.AddTransaction(r.Context(), in)
	if err != nil {
		writeError(w, statusForValidation(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var patch core.TransactionPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	if err := s.ledger.UpdateTransaction(r.Context(), r.PathValue("id"), patch); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Settings ---

func (s *Server) handleToggleHideAmounts(w http.ResponseWriter, r *http.Request) {
	hide, err := s.ledger.ToggleHideAmounts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"hideAmounts": hide})
}

// --- Backup ---

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	raw, err := s.backup.Export(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", storage.ExportFilename(time.Now())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// handleImport replaces the stored document and reloads the engine from it.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read request body: %w", err))
		return
	}
	if err := s.backup.Import(r.Context(), raw); err != nil {
		if errors.Is(err, storage.ErrMalformedDocument) {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := s.ledger.Load(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Imported ledger document",
		log.FieldOperation, log.OpImport)
	w.WriteHeader(http.StatusNoContent)
}

// handleClear erases the stored document; the subsequent reload seeds the
// default state.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.backup.Erase(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := s.ledger.Load(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
