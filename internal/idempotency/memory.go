package idempotency

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is a process-local Ledger for local runs. Receipts are never
// expired.
type MemoryStore struct {
	mu       sync.Mutex
	receipts map[string]Receipt
	nowFunc  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{receipts: map[string]Receipt{}, nowFunc: time.Now}
}

func (m *MemoryStore) CreateIfNotExists(ctx context.Context, key, orderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.receipts[key]; ok {
		return false, nil
	}
	now := m.nowFunc().UTC()
	m.receipts[key] = Receipt{
		IdempotencyKey: key,
		Status:         StatusInProgress,
		OrderID:        orderID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return true, nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) (*Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.receipts[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *MemoryStore) MarkDone(ctx context.Context, key, outcome string) error {
	return m.update(key, func(r *Receipt) {
		r.Status = StatusDone
		r.Outcome = outcome
	})
}

func (m *MemoryStore) MarkFailed(ctx context.Context, key, note string) error {
	return m.update(key, func(r *Receipt) {
		r.Status = StatusFailed
		r.Note = note
	})
}

func (m *MemoryStore) update(key string, fn func(*Receipt)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.receipts[key]
	if !ok {
		return fmt.Errorf("mark %s: %w", key, ErrNotFound)
	}
	fn(&rec)
	rec.UpdatedAt = m.nowFunc().UTC()
	m.receipts[key] = rec
	return nil
}
