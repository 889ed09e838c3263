package sheets

import (
	"fmt"
	"strings"
	"time"

	gsheet "google.golang.org/api/sheets/v4"

	"lottoledger/internal/core"
	"lottoledger/internal/record"
)

// DefaultSheetName is used when no tab name is configured.
const DefaultSheetName = "Transactions"

// Header is written to row 1. Columns follow the stored record layout.
var Header = []any{"id", "date", "gameId", "gameName", "gameTime", "sales", "profit13", "expense", "notes", "createdAt"}

const lastColumn = "J"

// transactionRow renders a transaction as one sheet row. Amounts are written
// as decimal strings so no precision is lost in the sheet.
func transactionRow(t core.Transaction) []any {
	var gameID any = ""
	if t.HasGame() {
		gameID = t.GameID
	}
	created := ""
	if !t.CreatedAt.IsZero() {
		created = t.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	return []any{
		t.ID,
		t.Date,
		gameID,
		t.GameName,
		t.GameTime,
		t.Sales.String(),
		t.Profit13.String(),
		t.Expense.String(),
		t.Notes,
		created,
	}
}

// rowTransaction parses a data row. Rows without an id are skipped; cells
// that do not parse become zero, as in the local record codec.
func rowTransaction(row []any) (core.Transaction, bool) {
	id := cellString(row, 0)
	if id == "" {
		return core.Transaction{}, false
	}
	rec := record.Record{
		ID:        id,
		Date:      cellString(row, 1),
		GameID:    cellNumber(row, 2),
		GameName:  cellString(row, 3),
		GameTime:  cellString(row, 4),
		Sales:     cellNumber(row, 5),
		Profit13:  cellNumber(row, 6),
		Expense:   cellNumber(row, 7),
		Notes:     cellString(row, 8),
		CreatedAt: cellString(row, 9),
	}
	return rec.Transaction(), true
}

// indexRows maps each id found in column A to its 1-based row number. The
// header row is ignored.
func indexRows(colA [][]any) map[string]int {
	idx := make(map[string]int, len(colA))
	for i, row := range colA {
		id := cellString(row, 0)
		if i == 0 && id == Header[0] {
			continue
		}
		if id != "" {
			idx[id] = i + 1
		}
	}
	return idx
}

// planWrites builds the value ranges for one batch update: the header when
// the sheet is empty, in-place updates for known ids and appended rows for
// the rest.
func planWrites(sheet string, colA [][]any, txs []core.Transaction) []*gsheet.ValueRange {
	rows := indexRows(colA)
	next := len(colA) + 1

	var data []*gsheet.ValueRange
	if len(colA) == 0 {
		data = append(data, &gsheet.ValueRange{
			Range:  rowRange(sheet, 1),
			Values: [][]any{Header},
		})
		next = 2
	}

	for _, t := range txs {
		n, ok := rows[t.ID]
		if !ok {
			n = next
			next++
			rows[t.ID] = n
		}
		data = append(data, &gsheet.ValueRange{
			Range:  rowRange(sheet, n),
			Values: [][]any{transactionRow(t)},
		})
	}
	if len(data) == 1 && len(txs) == 0 {
		return nil
	}
	return data
}

func rowRange(sheet string, n int) string {
	return fmt.Sprintf("%s!A%d:%s%d", sheet, n, lastColumn, n)
}

func cellString(row []any, i int) string {
	if i < 0 || i >= len(row) || row[i] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[i]))
}

// cellNumber keeps numeric cells as numbers and passes text through for the
// record codec to parse. Empty cells become nil.
func cellNumber(row []any, i int) any {
	if i < 0 || i >= len(row) || row[i] == nil {
		return nil
	}
	if s, ok := row[i].(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		return s
	}
	return row[i]
}
