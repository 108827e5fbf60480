// Package ledger owns the canonical application state and the balance
// invariant between transactions and accounts. All mutations are serialized,
// persist the full state before committing it in memory, and then hand the
// touched collections to the mirror notifier on a best-effort basis.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/mirror"
)

// Store is the durable store the engine writes through.
type Store interface {
	Load(ctx context.Context) (core.AppState, error)
	Save(ctx context.Context, state core.AppState) error
}

type Ledger struct {
	mu       sync.Mutex
	state    core.AppState
	store    Store
	notifier mirror.Notifier

	now   func() time.Time
	newID func() string
}

// Option customizes engine construction; used by tests to pin clocks and ids.
type Option func(*Ledger)

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(l *Ledger) { l.newID = newID }
}

// New builds an engine over the given store and mirror notifier. A nil
// notifier disables mirroring.
func New(store Store, notifier mirror.Notifier, opts ...Option) *Ledger {
	if notifier == nil {
		notifier = mirror.Discard{}
	}
	l := &Ledger{
		store:    store,
		notifier: notifier,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load initializes the in-memory snapshot from the durable store. The store
// already falls back to the seed state for missing or unreadable documents.
func (l *Ledger) Load(ctx context.Context) error {
	state, err := l.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load ledger state: %w", err)
	}
	l.mu.Lock()
	l.state = state
	l.mu.Unlock()

	slog.InfoContext(ctx, "Ledger state loaded",
		"account_types", len(state.AccountTypes),
		"accounts", len(state.Accounts),
		"savings_goals", len(state.SavingsGoals),
		"transactions", len(state.Transactions))
	return nil
}

// Snapshot returns a copy of the current state for read-only consumption.
func (l *Ledger) Snapshot() core.AppState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Clone()
}

// persist writes the candidate state and commits it in memory only when the
// write succeeds, so a failed save leaves both copies at the previous good
// value. Mirror notifications go out after the commit.
func (l *Ledger) persist(ctx context.Context, next core.AppState, collections ...string) error {
	if err := l.store.Save(ctx, next); err != nil {
		return err
	}
	l.state = next
	for _, c := range collections {
		l.notifier.Sync(ctx, c, l.collectionSnapshot(c))
	}
	return nil
}

func (l *Ledger) collectionSnapshot(collection string) any {
	switch collection {
	case mirror.CollectionAccountTypes:
		return append([]core.AccountType(nil), l.state.AccountTypes...)
	case mirror.CollectionAccounts:
		return append([]core.Account(nil), l.state.Accounts...)
	case mirror.CollectionSavingsGoals:
		return append([]core.SavingsGoal(nil), l.state.SavingsGoals...)
	case mirror.CollectionTransactions:
		return append([]core.Transaction(nil), l.state.Transactions...)
	default:
		return nil
	}
}

// --- Account types ---

func (l *Ledger) AddAccountType(ctx context.Context, in core.AccountTypeInput) (core.AccountType, error) {
	if err := in.Validate(); err != nil {
		return core.AccountType{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	entity := core.AccountType{
		ID:        l.newID(),
		Name:      in.Name,
		Icon:      in.Icon,
		CreatedAt: l.now(),
	}
	next := l.state
	next.AccountTypes = append(append([]core.AccountType(nil), l.state.AccountTypes...), entity)
	if err := l.persist(ctx, next, mirror.CollectionAccountTypes); err != nil {
		return core.AccountType{}, err
	}
	return entity, nil
}

func (l *Ledger) UpdateAccountType(ctx context.Context, id string, patch core.AccountTypePatch) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.state
	next.AccountTypes = append([]core.AccountType(nil), l.state.AccountTypes...)
	found := false
	for i := range next.AccountTypes {
		if next.AccountTypes[i].ID == id {
			patch.Apply(&next.AccountTypes[i])
			found = true
			break
		}
	}
	if !found {
		slog.DebugContext(ctx, "Update for unknown account type ignored", "id", id)
		return nil
	}
	return l.persist(ctx, next, mirror.CollectionAccountTypes)
}

// DeleteAccountType removes the type. Accounts referencing it keep their
// TypeID; the reference simply dangles.
func (l *Ledger) DeleteAccountType(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.state
	next.AccountTypes = removeByID(l.state.AccountTypes, id, func(t core.AccountType) string { return t.ID })
	if len(next.AccountTypes) == len(l.state.AccountTypes) {
		slog.DebugContext(ctx, "Delete for unknown account type ignored", "id", id)
		return nil
	}
	return l.persist(ctx, next, mirror.CollectionAccountTypes)
}

// --- Accounts ---

func (l *Ledger) AddAccount(ctx context.Context, in core.AccountInput) (core.Account, error) {
	if err := in.Validate(); err != nil {
		return core.Account{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	entity := core.Account{
		ID:        l.newID(),
		Name:      in.Name,
		TypeID:    in.TypeID,
		Balance:   in.Balance,
		IsCredit:  in.IsCredit,
		CreatedAt: l.now(),
	}
	if in.CreditLimit != nil {
		limit := *in.CreditLimit
		entity.CreditLimit = &limit
	}
	next := l.state
	next.Accounts = append(append([]core.Account(nil), l.state.Accounts...), entity)
	if err := l.persist(ctx, next, mirror.CollectionAccounts); err != nil {
		return core.Account{}, err
	}
	return entity, nil
}

func (l *Ledger) UpdateAccount(ctx context.Context, id string, patch core.AccountPatch) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.state
	next.Accounts = append([]core.Account(nil), l.state.Accounts...)
	found := false
	for i := range next.Accounts {
		if next.Accounts[i].ID == id {
			patch.Apply(&next.Accounts[i])
			found = true
			break
		}
	}
	if !found {
		slog.DebugContext(ctx, "Update for unknown account ignored", "id", id)
		return nil
	}
	return l.persist(ctx, next, mirror.CollectionAccounts)
}

// DeleteAccount removes the account. Transactions and goals referencing it
// are left in place with dangling ids.
func (l *Ledger) DeleteAccount(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.state
	next.Accounts = removeByID(l.state.Accounts, id, func(a core.Account) string { return a.ID })
	if len(next.Accounts) == len(l.state.Accounts) {
		slog.DebugContext(ctx, "Delete for unknown account ignored", "id", id)
		return nil
	}
	return l.persist(ctx, next, mirror.CollectionAccounts)
}

// --- Savings goals ---

func (l *Ledger) AddSavingsGoal(ctx context.Context, in core.SavingsGoalInput) (core.SavingsGoal, error) {
	if err := in.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	entity := core.SavingsGoal{
		ID:            l.newID(),
		Name:          in.Name,
		TargetAmount:  in.TargetAmount,
		CurrentAmount: in.CurrentAmount,
		AccountID:     in.AccountID,
		TargetDate:    in.TargetDate,
		CreatedAt:     l.now(),
	}
	next := l.state
	next.SavingsGoals = append(append([]core.SavingsGoal(nil), l.state.SavingsGoals...), entity)
	if err := l.persist(ctx, next, mirror.CollectionSavingsGoals); err != nil {
		return core.SavingsGoal{}, err
	}
	return entity, nil
}

func (l *Ledger) UpdateSavingsGoal(ctx context.Context, id string, patch core.SavingsGoalPatch) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.state
	next.SavingsGoals = append([]core.SavingsGoal(nil), l.state.SavingsGoals...)
	found := false
	for i := range next.SavingsGoals {
		if next.SavingsGoals[i].ID == id {
			patch.Apply(&next.SavingsGoals[i])
			found = true
			break
		}
	}
	if !found {
		slog.DebugContext(ctx, "Update for unknown savings goal ignored", "id", id)
		return nil
	}
	return l.persist(ctx, next, mirror.CollectionSavingsGoals)
}

func (l *Ledger) DeleteSavingsGoal(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.state
	next.SavingsGoals = removeByID(l.state.SavingsGoals, id, func(g core.SavingsGoal) string { return g.ID })
	if len(next.SavingsGoals) == len(l.state.SavingsGoals) {
		slog.DebugContext(ctx, "Delete for unknown savings goal ignored", "id", id)
		return nil
	}
	return l.persist(ctx, next, mirror.CollectionSavingsGoals)
}

// --- Transactions ---

// AddTransaction records the transaction and applies its signed amount to
// the referenced account: income adds, expense subtracts. Deferral never
// delays the balance movement. An unresolved account id skips the balance
// step but still records the transaction.
func (l *Ledger) AddTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	entity := core.Transaction{
		ID:            l.newID(),
		Type:          in.Type,
		Amount:        in.Amount,
		Description:   in.Description,
		Category:      in.Category,
		AccountID:     in.AccountID,
		Date:          in.Date,
		IsDeferred:    in.IsDeferred,
		DeferredMonth: in.DeferredMonth,
		CreatedAt:     l.now(),
	}

	next := l.state
	next.Transactions = append(append([]core.Transaction(nil), l.state.Transactions...), entity)
	next.Accounts = applyBalanceDelta(ctx, l.state.Accounts, in.AccountID, signedAmount(in.Type, in.Amount))

	if err := l.persist(ctx, next, mirror.CollectionTransactions, mirror.CollectionAccounts); err != nil {
		return core.Transaction{}, err
	}
	return entity, nil
}

// UpdateTransaction merges fields without touching any account balance, even
// when amount, type or accountId change. Only add and delete move balances.
func (l *Ledger) UpdateTransaction(ctx context.Context, id string, patch core.TransactionPatch) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.state
	next.Transactions = append([]core.Transaction(nil), l.state.Transactions...)
	found := false
	for i := range next.Transactions {
		if next.Transactions[i].ID == id {
			patch.Apply(&next.Transactions[i])
			found = true
			break
		}
	}
	if !found {
		slog.DebugContext(ctx, "Update for unknown transaction ignored", "id", id)
		return nil
	}
	return l.persist(ctx, next, mirror.CollectionTransactions)
}

// DeleteTransaction reverses the transaction's balance effect on the
// referenced account and removes it. The reversal is skipped when the
// account no longer exists.
func (l *Ledger) DeleteTransaction(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var deleted *core.Transaction
	for i := range l.state.Transactions {
		if l.state.Transactions[i].ID == id {
			tx := l.state.Transactions[i]
			deleted = &tx
			break
		}
	}
	if deleted == nil {
		slog.DebugContext(ctx, "Delete for unknown transaction ignored", "id", id)
		return nil
	}

	next := l.state
	next.Transactions = removeByID(l.state.Transactions, id, func(t core.Transaction) string { return t.ID })
	next.Accounts = applyBalanceDelta(ctx, l.state.Accounts, deleted.AccountID,
		signedAmount(deleted.Type, deleted.Amount).Neg())

	return l.persist(ctx, next, mirror.CollectionTransactions, mirror.CollectionAccounts)
}

// --- Derived reads ---

// TotalBalance sums balances over non-credit accounts. Credit balances
// represent amount owed and never count toward available funds.
func (l *Ledger) TotalBalance() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := decimal.Zero
	for _, a := range l.state.Accounts {
		if !a.IsCredit {
			total = total.Add(a.Balance)
		}
	}
	return total
}

// AccountBalance returns the stored balance, or zero when the id does not
// resolve.
func (l *Ledger) AccountBalance(id string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	if a, ok := l.state.Account(id); ok {
		return a.Balance
	}
	return decimal.Zero
}

// HideAmounts reports the privacy flag.
func (l *Ledger) HideAmounts() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.HideAmounts
}

// ToggleHideAmounts flips and persists the privacy flag, returning the new
// value. The flag only affects rendering, never stored values.
func (l *Ledger) ToggleHideAmounts(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.state
	next.HideAmounts = !l.state.HideAmounts
	if err := l.persist(ctx, next); err != nil {
		return l.state.HideAmounts, err
	}
	return next.HideAmounts, nil
}

// --- helpers ---

func signedAmount(typ core.TransactionType, amount decimal.Decimal) decimal.Decimal {
	if typ == core.Income {
		return amount
	}
	return amount.Neg()
}

// applyBalanceDelta returns a new accounts slice with delta applied to the
// matching account. A dangling id leaves every account untouched.
func applyBalanceDelta(ctx context.Context, accounts []core.Account, accountID string, delta decimal.Decimal) []core.Account {
	out := append([]core.Account(nil), accounts...)
	for i := range out {
		if out[i].ID == accountID {
			out[i].Balance = out[i].Balance.Add(delta)
			return out
		}
	}
	slog.DebugContext(ctx, "Balance adjustment skipped, account not found",
		"account_id", accountID)
	return out
}

func removeByID[T any](items []T, id string, idOf func(T) string) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if idOf(item) == id {
			continue
		}
		out = append(out, item)
	}
	return out
}
