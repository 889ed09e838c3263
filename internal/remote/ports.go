// Package remote defines the port for mirroring the ledger to a remote
// document store. Each transaction is one document keyed by its id.
package remote

import (
	"context"
	"errors"
	"sort"

	"lottoledger/internal/core"
)

// ErrNotConfigured is reported when no remote backend is available.
var ErrNotConfigured = errors.New("remote sync not configured")

type (
	// Saver upserts every transaction as one document.
	Saver interface {
		SaveAll(ctx context.Context, txs []core.Transaction) error
	}

	// Loader returns every stored document, newest-created first.
	Loader interface {
		LoadAll(ctx context.Context) ([]core.Transaction, error)
	}

	// Syncer is a remote document store.
	Syncer interface {
		Saver
		Loader
		// Name identifies the backend in logs and notices.
		Name() string
	}
)

// NewestFirst orders documents fetched from a store with no natural order:
// newest-created first, ties broken by id so the result is deterministic.
func NewestFirst(txs []core.Transaction) []core.Transaction {
	out := append([]core.Transaction(nil), txs...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
