package storage

import (
	"context"
	"sync"

	"lottoledger/internal/core"
	"lottoledger/internal/record"
)

// MemoryRepository keeps the encoded collection in process memory. It goes
// through the codec so it behaves like the SQLite repository.
type MemoryRepository struct {
	mu    sync.Mutex
	value []byte
	codec record.Codec
	saves int
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository(codec record.Codec) *MemoryRepository {
	if codec == nil {
		codec = record.JSON{}
	}
	return &MemoryRepository{codec: codec}
}

func (m *MemoryRepository) Load(_ context.Context) ([]core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.value) == 0 {
		return []core.Transaction{}, nil
	}
	txs, err := m.codec.DecodeAll(m.value)
	if err != nil {
		return nil, corrupt(DefaultKey, err)
	}
	return txs, nil
}

func (m *MemoryRepository) Save(_ context.Context, txs []core.Transaction) error {
	value, err := m.codec.EncodeAll(txs)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.value = value
	m.saves++
	m.mu.Unlock()
	return nil
}

// Saves returns how many times Save succeeded.
func (m *MemoryRepository) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *MemoryRepository) Close() error { return nil }
