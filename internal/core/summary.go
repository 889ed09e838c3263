package core

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Totals sums the three financial fields of a set of transactions.
type Totals struct {
	Sales   decimal.Decimal `json:"sales"`
	Profit  decimal.Decimal `json:"profit"`
	Expense decimal.Decimal `json:"expense"`
}

// Summary is the totals for one period (a date or a year-month).
type Summary struct {
	Period string `json:"period"`
	Count  int    `json:"count"`
	Totals
}

// FilterByDate returns the transactions whose date equals date.
func FilterByDate(txs []Transaction, date string) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if t.Date == date {
			out = append(out, t)
		}
	}
	return out
}

// FilterByMonth returns the transactions whose date starts with yearMonth
// (YYYY-MM).
func FilterByMonth(txs []Transaction, yearMonth string) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if strings.HasPrefix(t.Date, yearMonth) {
			out = append(out, t)
		}
	}
	return out
}

// ComputeTotals sums sales, profit and expense independently. Zero-valued
// decimals (including ones coerced from unreadable input) count as zero.
func ComputeTotals(txs []Transaction) Totals {
	tot := Totals{Sales: decimal.Zero, Profit: decimal.Zero, Expense: decimal.Zero}
	for _, t := range txs {
		tot.Sales = tot.Sales.Add(t.Sales)
		tot.Profit = tot.Profit.Add(t.Profit13)
		tot.Expense = tot.Expense.Add(t.Expense)
	}
	return tot
}

// Summarize builds the Summary of txs for the given period label.
func Summarize(period string, txs []Transaction) Summary {
	return Summary{Period: period, Count: len(txs), Totals: ComputeTotals(txs)}
}

// SortForDisplay returns a copy ordered by date descending, then game time
// descending. A missing game time compares as "". The sort is stable: equal
// keys keep their input order.
func SortForDisplay(txs []Transaction) []Transaction {
	out := append([]Transaction(nil), txs...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].GameTime > out[j].GameTime
	})
	return out
}
