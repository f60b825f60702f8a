package store

import (
	"context"
	"fmt"
	"sync"
)

// MemoryGateway keeps sheets in process memory. It backs local development
// and tests.
type MemoryGateway struct {
	mu     sync.RWMutex
	sheets map[string][]Row
}

// NewMemoryGateway creates an empty in-memory store.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{sheets: make(map[string][]Row)}
}

// Seed appends rows to sheet.
func (m *MemoryGateway) Seed(sheet string, rows ...Row) *MemoryGateway {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		m.sheets[sheet] = append(m.sheets[sheet], r.Clone())
	}
	return m
}

// Rows returns a copy of sheet's rows.
func (m *MemoryGateway) Rows(sheet string) []Row {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Row, len(m.sheets[sheet]))
	for i, r := range m.sheets[sheet] {
		out[i] = r.Clone()
	}
	return out
}

// Fetch implements Gateway.
func (m *MemoryGateway) Fetch(ctx context.Context, sheet string) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.Rows(sheet), nil
}

// Append implements Gateway.
func (m *MemoryGateway) Append(ctx context.Context, sheet string, row Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sheets[sheet] = append(m.sheets[sheet], row.Clone())
	return nil
}

// UpdateByKey implements Gateway.
func (m *MemoryGateway) UpdateByKey(ctx context.Context, sheet, keyColumn, keyValue string, fields Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.sheets[sheet] {
		if !sameKey(r.Get(keyColumn), keyValue) {
			continue
		}
		for k, v := range fields {
			r[k] = v
		}
		return nil
	}
	return fmt.Errorf("%s %s=%s: %w", sheet, keyColumn, keyValue, ErrNotFound)
}
