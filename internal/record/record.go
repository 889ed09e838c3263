// Package record defines the stored shape of a transaction and the codecs
// used to write it. Field names match the payload written by the original
// browser app, so an exported collection can be imported as-is.
//
// Decoding is lenient: numeric fields may arrive as numbers, strings or
// null, and anything unreadable becomes zero instead of failing the load.
package record

import (
	"encoding/json"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"lottoledger/internal/core"
)

// Record is one stored transaction.
type Record struct {
	ID        string `json:"id" msgpack:"id"`
	Date      string `json:"date" msgpack:"date"`
	GameID    any    `json:"gameId" msgpack:"gameId"`
	GameName  string `json:"gameName" msgpack:"gameName"`
	GameTime  string `json:"gameTime" msgpack:"gameTime"`
	Sales     any    `json:"sales" msgpack:"sales"`
	Profit13  any    `json:"profit13" msgpack:"profit13"`
	Expense   any    `json:"expense" msgpack:"expense"`
	Notes     string `json:"notes" msgpack:"notes"`
	CreatedAt string `json:"createdAt,omitempty" msgpack:"createdAt,omitempty"`
}

// FromTransaction converts a transaction for storage. Amounts are written as
// JSON numbers without losing precision.
func FromTransaction(t core.Transaction) Record {
	r := Record{
		ID:       t.ID,
		Date:     t.Date,
		GameName: t.GameName,
		GameTime: t.GameTime,
		Sales:    json.Number(t.Sales.String()),
		Profit13: json.Number(t.Profit13.String()),
		Expense:  json.Number(t.Expense.String()),
		Notes:    t.Notes,
	}
	if t.GameID != 0 {
		r.GameID = t.GameID
	}
	if !t.CreatedAt.IsZero() {
		r.CreatedAt = t.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	return r
}

// Transaction converts a stored record back, coercing unreadable values.
func (r Record) Transaction() core.Transaction {
	t := core.Transaction{
		ID:       r.ID,
		Date:     r.Date,
		GameID:   toInt(r.GameID),
		GameName: r.GameName,
		GameTime: r.GameTime,
		Sales:    toDecimal(r.Sales),
		Profit13: toDecimal(r.Profit13),
		Expense:  toDecimal(r.Expense),
		Notes:    r.Notes,
	}
	if t.GameID == 0 {
		t.ClearGame()
	}
	if r.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339Nano, r.CreatedAt); err == nil {
			t.CreatedAt = ts
		}
	}
	return t
}

// FromTransactions converts a whole collection.
func FromTransactions(txs []core.Transaction) []Record {
	out := make([]Record, len(txs))
	for i, t := range txs {
		out[i] = FromTransaction(t)
	}
	return out
}

// Transactions converts a whole collection, dropping records without an id.
func Transactions(recs []Record) []core.Transaction {
	out := make([]core.Transaction, 0, len(recs))
	for _, r := range recs {
		if strings.TrimSpace(r.ID) == "" {
			continue
		}
		out = append(out, r.Transaction())
	}
	return out
}

func toDecimal(v any) decimal.Decimal {
	switch n := v.(type) {
	case nil:
		return decimal.Zero
	case json.Number:
		return parseDecimal(n.String())
	case string:
		return parseDecimal(n)
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(n)
	case float32:
		return toDecimal(float64(n))
	case int:
		return decimal.NewFromInt(int64(n))
	case int8:
		return decimal.NewFromInt(int64(n))
	case int16:
		return decimal.NewFromInt(int64(n))
	case int32:
		return decimal.NewFromInt(int64(n))
	case int64:
		return decimal.NewFromInt(n)
	case uint8:
		return decimal.NewFromInt(int64(n))
	case uint16:
		return decimal.NewFromInt(int64(n))
	case uint32:
		return decimal.NewFromInt(int64(n))
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(n), 0)
	default:
		return decimal.Zero
	}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func toInt(v any) int {
	d := toDecimal(v)
	if !d.IsInteger() || d.IsNegative() {
		return 0
	}
	return int(d.IntPart())
}
