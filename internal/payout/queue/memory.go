package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/radieske/coinflip-payout-engine/internal/payout/model"
)

// Memory é a fila em processo, usada em testes e com PAYOUT_QUEUE_BACKEND=memory.
type Memory struct {
	mu    sync.Mutex
	order []string
	items map[string]model.PayoutRequest
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]model.PayoutRequest)}
}

func (m *Memory) Append(_ context.Context, req model.PayoutRequest) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[req.RequestID]; ok {
		return false, nil
	}
	m.items[req.RequestID] = req
	m.order = append(m.order, req.RequestID)
	return true, nil
}

func (m *Memory) Get(_ context.Context, requestID string) (model.PayoutRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.items[requestID]
	if !ok {
		return model.PayoutRequest{}, ErrNotQueued
	}
	return req, nil
}

func (m *Memory) Remove(_ context.Context, requestID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[requestID]; !ok {
		return false, nil
	}
	idx, hits := -1, 0
	for i, id := range m.order {
		if id == requestID {
			idx = i
			hits++
		}
	}
	if hits != 1 {
		return false, fmt.Errorf("%w: %s appears %d times in order", model.ErrQueueCorruption, requestID, hits)
	}
	delete(m.items, requestID)
	m.order = append(m.order[:idx], m.order[idx+1:]...)
	return true, nil
}

func (m *Memory) List(_ context.Context) ([]model.PayoutRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.PayoutRequest, 0, len(m.order))
	for _, id := range m.order {
		req, ok := m.items[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s ordered but not stored", model.ErrQueueCorruption, id)
		}
		out = append(out, req)
	}
	return out, nil
}

func (m *Memory) Len(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order), nil
}
