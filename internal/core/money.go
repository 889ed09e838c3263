// Package core holds the ledger's domain types and the pure functions that
// derive profit splits, summaries and the game catalog from them.
//
// This file contains the money rules: how operator input becomes a sales
// amount and how a sales amount is split into profit and expense.
package core

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// thousandsGrouped matches integers grouped with commas, as in 1,000 or
// 12,345,678.
var thousandsGrouped = regexp.MustCompile(`^[1-9]\d{0,2}(,\d{3})+$`)

// ProfitRate is the share of every sale booked as profit.
var ProfitRate = decimal.RequireFromString("0.13")

// ProfitSplit divides a sales amount into the 13% profit and the remaining
// expense.
//
// Profit is rounded to two places (half away from zero). Expense is computed
// by subtraction, never as sales*0.87, so profit+expense always equals sales.
//
// Examples:
//
//	ProfitSplit(1000)   -> 130.00, 870.00
//	ProfitSplit(10.05)  -> 1.31, 8.74
func ProfitSplit(sales decimal.Decimal) (profit, expense decimal.Decimal) {
	profit = sales.Mul(ProfitRate).Round(2)
	expense = sales.Sub(profit)
	return profit, expense
}

// ParseSales converts operator input into a sales amount.
//
// Both dot (12.50) and comma (12,50) decimal separators are accepted. A
// comma followed by groups of exactly three digits (1,000 or 1,234,567)
// groups thousands.
// Empty, malformed or negative input yields zero rather than an error: the
// ledger always keeps a usable value.
func ParseSales(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	switch {
	case thousandsGrouped.MatchString(s):
		s = strings.ReplaceAll(s, ",", "")
	case !strings.Contains(s, "."):
		// Decimal comma
		s = strings.ReplaceAll(s, ",", ".")
	default:
		// 1,234.50 style grouping
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}
