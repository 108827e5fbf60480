package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestTransactionInputValidate(t *testing.T) {
	good := TransactionInput{
		Type:        Expense,
		Amount:      decimal.NewFromInt(50),
		Description: "Supermercado",
		Category:    "Alimentación",
		AccountID:   "a1",
		Date:        "2025-01-02",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []TransactionInput{
		{Type: "transfer", Amount: decimal.NewFromInt(1), Description: "x", Date: "2025-01-02"},
		{Type: Income, Amount: decimal.NewFromInt(-1), Description: "x", Date: "2025-01-02"},
		{Type: Income, Amount: decimal.NewFromInt(1), Description: "  ", Date: "2025-01-02"},
		{Type: Income, Amount: decimal.NewFromInt(1), Description: "x", Date: "02/01/2025"},
		{Type: Expense, Amount: decimal.NewFromInt(1), Description: "x", Date: "2025-01-02", DeferredMonth: "July"},
	}
	for i, in := range bads {
		if err := in.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestTransactionInputAllowsZeroAmount(t *testing.T) {
	in := TransactionInput{Type: Income, Amount: decimal.Zero, Description: "ajuste", Date: "2025-01-02"}
	if err := in.Validate(); err != nil {
		t.Fatalf("zero amount should validate, got %v", err)
	}
}

func TestSavingsGoalInputValidate(t *testing.T) {
	good := SavingsGoalInput{
		Name:          "Vacaciones",
		TargetAmount:  decimal.NewFromInt(3000),
		CurrentAmount: decimal.NewFromInt(1200),
		AccountID:     "a1",
		TargetDate:    "2025-06-01",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []SavingsGoalInput{
		{Name: "", TargetAmount: decimal.NewFromInt(1), TargetDate: "2025-06-01"},
		{Name: "x", TargetAmount: decimal.Zero, TargetDate: "2025-06-01"},
		{Name: "x", TargetAmount: decimal.NewFromInt(1), CurrentAmount: decimal.NewFromInt(-1), TargetDate: "2025-06-01"},
		{Name: "x", TargetAmount: decimal.NewFromInt(1), TargetDate: "soon"},
	}
	for i, in := range bads {
		if err := in.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestAccountInputValidate(t *testing.T) {
	negativeLimit := decimal.NewFromInt(-1)
	if err := (AccountInput{Name: "Cuenta", Balance: decimal.NewFromInt(-200)}).Validate(); err != nil {
		t.Fatalf("negative opening balance should validate, got %v", err)
	}
	if err := (AccountInput{Name: "", Balance: decimal.Zero}).Validate(); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if err := (AccountInput{Name: "Tarjeta", IsCredit: true, CreditLimit: &negativeLimit}).Validate(); err == nil {
		t.Fatalf("expected error for negative credit limit")
	}
}

func TestPatchApplyMergesOnlySetFields(t *testing.T) {
	acc := Account{ID: "a1", Name: "Cuenta", TypeID: "t1", Balance: decimal.NewFromInt(100)}
	name := "Cuenta Principal"
	(AccountPatch{Name: &name}).Apply(&acc)
	if acc.Name != "Cuenta Principal" {
		t.Fatalf("name not merged: %q", acc.Name)
	}
	if acc.TypeID != "t1" || !acc.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unset fields must stay untouched: %+v", acc)
	}
}

func TestSeedStateReferencesResolve(t *testing.T) {
	now := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	s := SeedState(now)

	if len(s.AccountTypes) != 3 || len(s.Accounts) != 2 || len(s.SavingsGoals) != 1 || len(s.Transactions) != 2 {
		t.Fatalf("unexpected seed shape: %+v", s)
	}
	for _, a := range s.Accounts {
		if _, ok := s.AccountTypeByID(a.TypeID); !ok {
			t.Fatalf("account %q references unknown type %q", a.Name, a.TypeID)
		}
	}
	for _, tx := range s.Transactions {
		if _, ok := s.Account(tx.AccountID); !ok {
			t.Fatalf("transaction %q references unknown account %q", tx.Description, tx.AccountID)
		}
	}
	if _, ok := s.Account(s.SavingsGoals[0].AccountID); !ok {
		t.Fatalf("goal references unknown account")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	now := time.Now()
	s := SeedState(now)
	c := s.Clone()
	c.Accounts[0].Balance = decimal.NewFromInt(999)
	c.Accounts[1].CreditLimit = nil
	if s.Accounts[0].Balance.Equal(decimal.NewFromInt(999)) {
		t.Fatalf("clone shares account storage with original")
	}
	if s.Accounts[1].CreditLimit == nil {
		t.Fatalf("clone shares credit limit pointer with original")
	}
}
