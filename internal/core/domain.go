package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO calendar date used for Transaction.Date.
const DateLayout = "2006-01-02"

// MonthLayout is the year-month form used by monthly filters.
const MonthLayout = "2006-01"

// Editable fields accepted by Update.
const (
	FieldDate   Field = "date"
	FieldGameID Field = "gameId"
	FieldSales  Field = "sales"
	FieldNotes  Field = "notes"

	// Derived fields. Callers never set them directly.
	FieldGameName Field = "gameName"
	FieldGameTime Field = "gameTime"
	FieldProfit13 Field = "profit13"
	FieldExpense  Field = "expense"
)

type (
	// Field names a Transaction attribute addressed by Update.
	Field string

	// Transaction is one recorded lottery-game sale.
	Transaction struct {
		ID        string
		Date      string // YYYY-MM-DD
		GameID    int    // 0 when no game is selected
		GameName  string
		GameTime  string // HH:MM, empty when no game is selected
		Sales     decimal.Decimal
		Profit13  decimal.Decimal
		Expense   decimal.Decimal
		Notes     string
		CreatedAt time.Time
	}

	// Game is one catalog entry for a weekday.
	Game struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
		Time string `json:"time"`
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrUnknownField  = errors.New("unknown field")
	ErrDerivedField  = errors.New("derived field cannot be set directly")
	ErrUnknownGame   = errors.New("game not scheduled on this date")
	ErrInvalidGameID = errors.New("invalid game id")
)

// ParseField maps a field name to a Field, accepting the names used by the
// stored records.
func ParseField(s string) (Field, error) {
	f := Field(strings.TrimSpace(s))
	switch f {
	case FieldDate, FieldGameID, FieldSales, FieldNotes:
		return f, nil
	case FieldGameName, FieldGameTime, FieldProfit13, FieldExpense:
		return f, ErrDerivedField
	default:
		return f, ErrUnknownField
	}
}

// HasGame reports whether a catalog game is selected.
func (t Transaction) HasGame() bool {
	return t.GameID != 0
}

// ClearGame unsets the three game fields.
func (t *Transaction) ClearGame() {
	t.GameID = 0
	t.GameName = ""
	t.GameTime = ""
}

// SetGame copies a catalog entry onto the transaction.
func (t *Transaction) SetGame(g Game) {
	t.GameID = g.ID
	t.GameName = g.Name
	t.GameTime = g.Time
}

// SetSales stores the amount together with its profit split.
func (t *Transaction) SetSales(sales decimal.Decimal) {
	t.Sales = sales
	t.Profit13, t.Expense = ProfitSplit(sales)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// ValidDate reports whether s is a calendar date in YYYY-MM-DD form.
func ValidDate(s string) bool {
	_, err := ParseDate(s)
	return err == nil
}

// ValidYearMonth reports whether s is a YYYY-MM value.
func ValidYearMonth(s string) bool {
	_, err := time.Parse(MonthLayout, strings.TrimSpace(s))
	return err == nil
}

// Today returns the current date in loc as YYYY-MM-DD.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return now.In(loc).Format(DateLayout)
}

// CurrentMonth returns the current month in loc as YYYY-MM.
func CurrentMonth(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return now.In(loc).Format(MonthLayout)
}
