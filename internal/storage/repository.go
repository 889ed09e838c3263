// Package storage persists the ledger locally as one value in a key-value
// table: the whole collection is rewritten after every mutation.
package storage

import (
	"context"
	"errors"
	"fmt"

	"lottoledger/internal/core"
)

// DefaultKey is the key the collection is stored under.
const DefaultKey = "transactions"

// ErrCorruptPayload is returned by Load when the stored value cannot be decoded.
var ErrCorruptPayload = errors.New("corrupt ledger payload")

// Repository loads and saves the full transaction collection.
type Repository interface {
	// Load returns the stored collection. A missing key yields an empty
	// collection and no error.
	Load(ctx context.Context) ([]core.Transaction, error)
	// Save replaces the stored collection.
	Save(ctx context.Context, txs []core.Transaction) error
	Close() error
}

func corrupt(key string, err error) error {
	return fmt.Errorf("%w: key %q: %v", ErrCorruptPayload, key, err)
}
