package settle

import (
	"context"
	"sync"
)

// Memory é o Store em processo (testes e PAYOUT_QUEUE_BACKEND=memory).
type Memory struct {
	mu    sync.Mutex
	marks map[string]string
}

func NewMemory() *Memory {
	return &Memory{marks: make(map[string]string)}
}

func (m *Memory) Reserve(_ context.Context, gameID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.marks[gameID]; ok {
		return false, nil
	}
	m.marks[gameID] = MarkPaying
	return true, nil
}

func (m *Memory) Finalize(_ context.Context, gameID, mark string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marks[gameID] = mark
	return nil
}

func (m *Memory) Release(_ context.Context, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.marks[gameID] == MarkPaying {
		delete(m.marks, gameID)
	}
	return nil
}

func (m *Memory) Lookup(_ context.Context, gameID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mark, ok := m.marks[gameID]
	return mark, ok, nil
}
