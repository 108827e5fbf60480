package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// Date layouts used across the state document. Transaction dates and goal
// target dates are day-precision strings, deferred attribution is
// month-precision.
const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

func init() {
	// The persisted state document carries amounts as bare JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

type (
	TransactionType string

	// AccountType is a user-defined classification for accounts. Deleting a
	// type leaves referencing accounts with a dangling TypeID.
	AccountType struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Icon      string    `json:"icon"`
		CreatedAt time.Time `json:"createdAt"`
	}

	// Account holds a stored, incrementally maintained balance. For credit
	// accounts the balance represents amount owed, not available funds.
	Account struct {
		ID          string           `json:"id"`
		Name        string           `json:"name"`
		TypeID      string           `json:"typeId"`
		Balance     decimal.Decimal  `json:"balance"`
		CreditLimit *decimal.Decimal `json:"creditLimit,omitempty"`
		IsCredit    bool             `json:"isCredit"`
		CreatedAt   time.Time        `json:"createdAt"`
	}

	// SavingsGoal tracks manual progress toward a target. CurrentAmount is
	// maintained by the user, never derived from transactions.
	SavingsGoal struct {
		ID            string          `json:"id"`
		Name          string          `json:"name"`
		TargetAmount  decimal.Decimal `json:"targetAmount"`
		CurrentAmount decimal.Decimal `json:"currentAmount"`
		AccountID     string          `json:"accountId"`
		TargetDate    string          `json:"targetDate"`
		CreatedAt     time.Time       `json:"createdAt"`
	}

	// Transaction is a single income or expense against an account. A
	// deferred expense debits the balance immediately; DeferredMonth only
	// moves the reporting month.
	Transaction struct {
		ID            string          `json:"id"`
		Type          TransactionType `json:"type"`
		Amount        decimal.Decimal `json:"amount"`
		Description   string          `json:"description"`
		Category      string          `json:"category"`
		AccountID     string          `json:"accountId"`
		Date          string          `json:"date"`
		IsDeferred    bool            `json:"isDeferred,omitempty"`
		DeferredMonth string          `json:"deferredMonth,omitempty"`
		CreatedAt     time.Time       `json:"createdAt"`
	}

	// AppState is the aggregate root. It exclusively owns all entity
	// collections; cross-entity references are id lookups only.
	AppState struct {
		AccountTypes []AccountType `json:"accountTypes"`
		Accounts     []Account     `json:"accounts"`
		SavingsGoals []SavingsGoal `json:"savingsGoals"`
		Transactions []Transaction `json:"transactions"`
		HideAmounts  bool          `json:"hideAmounts"`
	}
)

var (
	ErrEmptyName          = errors.New("empty name")
	ErrEmptyDescription   = errors.New("empty description")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidTargetDate  = errors.New("invalid target date")
	ErrInvalidCreditLimit = errors.New("invalid credit limit")
)

func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

// AccountTypeInput carries the user-settable fields of an AccountType.
type AccountTypeInput struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

func (in AccountTypeInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// AccountInput carries the user-settable fields of an Account. Balance is the
// opening balance and may be negative.
type AccountInput struct {
	Name        string           `json:"name"`
	TypeID      string           `json:"typeId"`
	Balance     decimal.Decimal  `json:"balance"`
	CreditLimit *decimal.Decimal `json:"creditLimit,omitempty"`
	IsCredit    bool             `json:"isCredit"`
}

func (in AccountInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrEmptyName
	}
	if in.CreditLimit != nil && in.CreditLimit.IsNegative() {
		return ErrInvalidCreditLimit
	}
	return nil
}

// SavingsGoalInput carries the user-settable fields of a SavingsGoal.
type SavingsGoalInput struct {
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"targetAmount"`
	CurrentAmount decimal.Decimal `json:"currentAmount"`
	AccountID     string          `json:"accountId"`
	TargetDate    string          `json:"targetDate"`
}

func (in SavingsGoalInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrEmptyName
	}
	if !in.TargetAmount.IsPositive() {
		return ErrInvalidAmount
	}
	if in.CurrentAmount.IsNegative() {
		return ErrInvalidAmount
	}
	if _, err := time.Parse(DateLayout, in.TargetDate); err != nil {
		return ErrInvalidTargetDate
	}
	return nil
}

// TransactionInput carries the user-settable fields of a Transaction.
type TransactionInput struct {
	Type          TransactionType `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	AccountID     string          `json:"accountId"`
	Date          string          `json:"date"`
	IsDeferred    bool            `json:"isDeferred,omitempty"`
	DeferredMonth string          `json:"deferredMonth,omitempty"`
}

func (in TransactionInput) Validate() error {
	if !in.Type.IsValid() {
		return ErrInvalidType
	}
	if in.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(in.Description) == "" {
		return ErrEmptyDescription
	}
	if _, err := time.Parse(DateLayout, in.Date); err != nil {
		return ErrInvalidDate
	}
	if in.DeferredMonth != "" {
		if _, err := time.Parse(MonthLayout, in.DeferredMonth); err != nil {
			return ErrInvalidDate
		}
	}
	return nil
}

// Patch types merge into existing entities field by field; nil means leave
// unchanged.
type (
	AccountTypePatch struct {
		Name *string `json:"name,omitempty"`
		Icon *string `json:"icon,omitempty"`
	}

	AccountPatch struct {
		Name        *string          `json:"name,omitempty"`
		TypeID      *string          `json:"typeId,omitempty"`
		Balance     *decimal.Decimal `json:"balance,omitempty"`
		CreditLimit *decimal.Decimal `json:"creditLimit,omitempty"`
		IsCredit    *bool            `json:"isCredit,omitempty"`
	}

	SavingsGoalPatch struct {
		Name          *string          `json:"name,omitempty"`
		TargetAmount  *decimal.Decimal `json:"targetAmount,omitempty"`
		CurrentAmount *decimal.Decimal `json:"currentAmount,omitempty"`
		AccountID     *string          `json:"accountId,omitempty"`
		TargetDate    *string          `json:"targetDate,omitempty"`
	}

	TransactionPatch struct {
		Type          *TransactionType `json:"type,omitempty"`
		Amount        *decimal.Decimal `json:"amount,omitempty"`
		Description   *string          `json:"description,omitempty"`
		Category      *string          `json:"category,omitempty"`
		AccountID     *string          `json:"accountId,omitempty"`
		Date          *string          `json:"date,omitempty"`
		IsDeferred    *bool            `json:"isDeferred,omitempty"`
		DeferredMonth *string          `json:"deferredMonth,omitempty"`
	}
)

func (p AccountTypePatch) Apply(t *AccountType) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Icon != nil {
		t.Icon = *p.Icon
	}
}

func (p AccountPatch) Apply(a *Account) {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.TypeID != nil {
		a.TypeID = *p.TypeID
	}
	if p.Balance != nil {
		a.Balance = *p.Balance
	}
	if p.CreditLimit != nil {
		limit := *p.CreditLimit
		a.CreditLimit = &limit
	}
	if p.IsCredit != nil {
		a.IsCredit = *p.IsCredit
	}
}

func (p SavingsGoalPatch) Apply(g *SavingsGoal) {
	if p.Name != nil {
		g.Name = *p.Name
	}
	if p.TargetAmount != nil {
		g.TargetAmount = *p.TargetAmount
	}
	if p.CurrentAmount != nil {
		g.CurrentAmount = *p.CurrentAmount
	}
	if p.AccountID != nil {
		g.AccountID = *p.AccountID
	}
	if p.TargetDate != nil {
		g.TargetDate = *p.TargetDate
	}
}

func (p TransactionPatch) Apply(tx *Transaction) {
	if p.Type != nil {
		tx.Type = *p.Type
	}
	if p.Amount != nil {
		tx.Amount = *p.Amount
	}
	if p.Description != nil {
		tx.Description = *p.Description
	}
	if p.Category != nil {
		tx.Category = *p.Category
	}
	if p.AccountID != nil {
		tx.AccountID = *p.AccountID
	}
	if p.Date != nil {
		tx.Date = *p.Date
	}
	if p.IsDeferred != nil {
		tx.IsDeferred = *p.IsDeferred
	}
	if p.DeferredMonth != nil {
		tx.DeferredMonth = *p.DeferredMonth
	}
}

// Account looks up an account by id. The second return reports whether the
// reference resolved; callers must tolerate dangling ids.
func (s AppState) Account(id string) (Account, bool) {
	for _, a := range s.Accounts {
		if a.ID == id {
			return a, true
		}
	}
	return Account{}, false
}

// AccountTypeByID looks up an account type by id.
func (s AppState) AccountTypeByID(id string) (AccountType, bool) {
	for _, t := range s.AccountTypes {
		if t.ID == id {
			return t, true
		}
	}
	return AccountType{}, false
}

// Clone returns a deep copy of the state. Entities are value types, so
// copying the slices is enough apart from credit limit pointers.
func (s AppState) Clone() AppState {
	out := s
	out.AccountTypes = append([]AccountType(nil), s.AccountTypes...)
	out.Accounts = append([]Account(nil), s.Accounts...)
	for i := range out.Accounts {
		if s.Accounts[i].CreditLimit != nil {
			limit := *s.Accounts[i].CreditLimit
			out.Accounts[i].CreditLimit = &limit
		}
	}
	out.SavingsGoals = append([]SavingsGoal(nil), s.SavingsGoals...)
	out.Transactions = append([]Transaction(nil), s.Transactions...)
	return out
}
