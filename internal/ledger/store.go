// Package ledger holds the session's transaction list. The Store is the only
// place transactions are created, edited or removed; it performs no I/O and
// no locking, so callers that share one across goroutines must serialize
// access themselves.
package ledger

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"lottoledger/internal/core"
)

// Store is an ordered, newest-first collection of transactions.
type Store struct {
	items    []core.Transaction
	now      func() time.Time
	location *time.Location
	newID    func() string
}

// Option customizes a Store.
type Option func(*Store)

// WithClock sets the time source used for creation dates.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLocation sets the location that defines "today".
func WithLocation(loc *time.Location) Option {
	return func(s *Store) { s.location = loc }
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		now:      time.Now,
		location: time.Local,
		newID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create inserts a blank transaction dated today at the front of the list.
func (s *Store) Create() core.Transaction {
	now := s.now()
	tx := core.Transaction{
		ID:        s.newID(),
		Date:      core.Today(now, s.location),
		Sales:     decimal.Zero,
		Profit13:  decimal.Zero,
		Expense:   decimal.Zero,
		CreatedAt: now.UTC(),
	}
	s.items = append([]core.Transaction{tx}, s.items...)
	return tx
}

// Update sets one field of the transaction with the given id.
//
// An unknown id is ignored before the field is checked. Setting sales recomputes profit and expense;
// setting the date clears the selected game; setting gameId fills the game
// name and time from the catalog for the transaction's date. Errors report
// an unusable field or value and leave the transaction unchanged.
func (s *Store) Update(id string, field core.Field, value string) error {
	i := s.index(id)
	if i < 0 {
		return nil
	}
	if _, err := core.ParseField(string(field)); err != nil {
		return err
	}
	tx := s.items[i]

	switch field {
	case core.FieldSales:
		tx.SetSales(core.ParseSales(value))
	case core.FieldDate:
		d, err := core.ParseDate(value)
		if err != nil {
			return err
		}
		tx.Date = d.Format(core.DateLayout)
		tx.ClearGame()
	case core.FieldGameID:
		value = strings.TrimSpace(value)
		if value == "" {
			tx.ClearGame()
			break
		}
		gameID, err := strconv.Atoi(value)
		if err != nil {
			return core.ErrInvalidGameID
		}
		g, ok := core.FindGame(tx.Date, gameID)
		if !ok {
			return core.ErrUnknownGame
		}
		tx.SetGame(g)
	case core.FieldNotes:
		tx.Notes = value
	}

	s.items[i] = tx
	return nil
}

// Remove deletes the transaction with the given id, if present.
func (s *Store) Remove(id string) {
	i := s.index(id)
	if i < 0 {
		return
	}
	s.items = append(s.items[:i:i], s.items[i+1:]...)
}

// All returns a copy of the collection in insertion order (newest first).
func (s *Store) All() []core.Transaction {
	return append([]core.Transaction{}, s.items...)
}

// Get returns the transaction with the given id.
func (s *Store) Get(id string) (core.Transaction, bool) {
	i := s.index(id)
	if i < 0 {
		return core.Transaction{}, false
	}
	return s.items[i], true
}

// Len returns the number of transactions.
func (s *Store) Len() int {
	return len(s.items)
}

// Replace swaps the whole collection, keeping the given order.
func (s *Store) Replace(txs []core.Transaction) {
	s.items = append([]core.Transaction{}, txs...)
}

func (s *Store) index(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}
