package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SeedState returns the state used on first run or when the stored document
// cannot be read: a small starter setup with a main account, a credit card,
// one savings goal and two example transactions.
func SeedState(now time.Time) AppState {
	bankType := AccountType{ID: uuid.NewString(), Name: "Banco", Icon: "Building2", CreatedAt: now}
	cashType := AccountType{ID: uuid.NewString(), Name: "Efectivo", Icon: "Wallet", CreatedAt: now}
	investType := AccountType{ID: uuid.NewString(), Name: "Inversión", Icon: "TrendingUp", CreatedAt: now}

	creditLimit := decimal.NewFromInt(10000)
	main := Account{
		ID:        uuid.NewString(),
		Name:      "Cuenta Principal",
		TypeID:    bankType.ID,
		Balance:   decimal.NewFromInt(5000),
		CreatedAt: now,
	}
	card := Account{
		ID:          uuid.NewString(),
		Name:        "Tarjeta de Crédito",
		TypeID:      bankType.ID,
		Balance:     decimal.Zero,
		CreditLimit: &creditLimit,
		IsCredit:    true,
		CreatedAt:   now,
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return AppState{
		AccountTypes: []AccountType{bankType, cashType, investType},
		Accounts:     []Account{main, card},
		SavingsGoals: []SavingsGoal{{
			ID:            uuid.NewString(),
			Name:          "Vacaciones",
			TargetAmount:  decimal.NewFromInt(3000),
			CurrentAmount: decimal.NewFromInt(1200),
			AccountID:     main.ID,
			TargetDate:    monthStart.AddDate(0, 5, 0).Format(DateLayout),
			CreatedAt:     now,
		}},
		Transactions: []Transaction{
			{
				ID:          uuid.NewString(),
				Type:        Income,
				Amount:      decimal.NewFromInt(5000),
				Description: "Salario",
				Category:    "Trabajo",
				AccountID:   main.ID,
				Date:        monthStart.Format(DateLayout),
				CreatedAt:   now,
			},
			{
				ID:          uuid.NewString(),
				Type:        Expense,
				Amount:      decimal.NewFromInt(50),
				Description: "Supermercado",
				Category:    "Alimentación",
				AccountID:   main.ID,
				Date:        monthStart.AddDate(0, 0, 1).Format(DateLayout),
				CreatedAt:   now,
			},
		},
	}
}
