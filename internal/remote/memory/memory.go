// Package memory is an in-process remote store for development and tests.
package memory

import (
	"context"
	"sync"

	"lottoledger/internal/core"
	"lottoledger/internal/remote"
)

type Store struct {
	mu   sync.Mutex
	docs map[string]core.Transaction
	err  error
}

var _ remote.Syncer = (*Store)(nil)

func New() *Store {
	return &Store{docs: map[string]core.Transaction{}}
}

func (s *Store) Name() string { return "memory" }

// SaveAll upserts every transaction by id.
func (s *Store) SaveAll(_ context.Context, txs []core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for _, t := range txs {
		s.docs[t.ID] = t
	}
	return nil
}

// LoadAll returns every document, newest-created first.
func (s *Store) LoadAll(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]core.Transaction, 0, len(s.docs))
	for _, t := range s.docs {
		out = append(out, t)
	}
	return remote.NewestFirst(out), nil
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// Fail makes every following call return err. Fail(nil) restores the store.
func (s *Store) Fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}
