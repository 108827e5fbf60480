package core

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MonthSummary holds income and expense totals for one reporting month.
type MonthSummary struct {
	Month    string          `json:"month"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
}

// CategoryShare is one row of the expense breakdown, with its share of the
// total expense volume.
type CategoryShare struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Percent  float64         `json:"percent"`
}

// GoalStatus is the derived reporting state of a savings goal.
type GoalStatus struct {
	Progress      float64 `json:"progress"`
	DaysRemaining int     `json:"daysRemaining"`
	IsOverdue     bool    `json:"isOverdue"`
	IsCompleted   bool    `json:"isCompleted"`
}

// MonthlySummary totals transaction amounts for the given month (MonthLayout
// format). Deferred expenses are excluded from period reporting even though
// they have already debited the account balance.
func MonthlySummary(txs []Transaction, month string) MonthSummary {
	out := MonthSummary{Month: month, Income: decimal.Zero, Expenses: decimal.Zero}
	for _, t := range txs {
		if t.IsDeferred || !strings.HasPrefix(t.Date, month) {
			continue
		}
		switch t.Type {
		case Income:
			out.Income = out.Income.Add(t.Amount)
		case Expense:
			out.Expenses = out.Expenses.Add(t.Amount)
		}
	}
	return out
}

// MonthlyHistory returns summaries for the last n months ending at now,
// oldest first.
func MonthlyHistory(txs []Transaction, n int, now time.Time) []MonthSummary {
	out := make([]MonthSummary, 0, n)
	for i := n - 1; i >= 0; i-- {
		month := now.AddDate(0, -i, 0).Format(MonthLayout)
		out = append(out, MonthlySummary(txs, month))
	}
	return out
}

// CategoryBreakdown sums expense amounts by category, ranked descending.
// limit <= 0 means no limit. Percentages are relative to total expenses.
func CategoryBreakdown(txs []Transaction, limit int) []CategoryShare {
	byCategory := map[string]decimal.Decimal{}
	total := decimal.Zero
	for _, t := range txs {
		if t.Type != Expense {
			continue
		}
		sum, ok := byCategory[t.Category]
		if !ok {
			sum = decimal.Zero
		}
		byCategory[t.Category] = sum.Add(t.Amount)
		total = total.Add(t.Amount)
	}

	out := make([]CategoryShare, 0, len(byCategory))
	for category, amount := range byCategory {
		share := CategoryShare{Category: category, Amount: amount}
		if total.IsPositive() {
			share.Percent, _ = amount.Div(total).Mul(decimal.NewFromInt(100)).Float64()
		}
		out = append(out, share)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Equal(out[j].Amount) {
			return out[i].Category < out[j].Category
		}
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// StatusOf derives the reporting status of a goal at the given time.
// Completion takes precedence over overdue. Progress is clamped to 100 for
// display.
func StatusOf(g SavingsGoal, now time.Time) GoalStatus {
	st := GoalStatus{
		IsCompleted: g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount),
	}
	if g.TargetAmount.IsPositive() {
		st.Progress, _ = g.CurrentAmount.Div(g.TargetAmount).Mul(decimal.NewFromInt(100)).Float64()
		if st.Progress > 100 {
			st.Progress = 100
		}
	}
	if target, err := time.Parse(DateLayout, g.TargetDate); err == nil {
		st.DaysRemaining = int(math.Ceil(target.Sub(now).Hours() / 24))
		st.IsOverdue = st.DaysRemaining < 0 && !st.IsCompleted
	}
	return st
}

// RecentTransactions returns up to n transactions ordered newest first by
// date, then creation time.
func RecentTransactions(txs []Transaction, n int) []Transaction {
	out := append([]Transaction(nil), txs...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
