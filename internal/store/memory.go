package store

import (
	"context"
	"sync"

	"github.com/tkingovr/companybook/api"
	"github.com/tkingovr/companybook/internal/company"
)

// Memory is a non-durable Store used for tests and throwaway sessions.
type Memory struct {
	mu     sync.Mutex
	next   int64
	closed bool
	view   *liveView
}

// NewMemory creates an empty in-process store.
func NewMemory() *Memory {
	return &Memory{view: newLiveView(nil)}
}

func (m *Memory) Insert(ctx context.Context, name string) (api.Company, error) {
	c, err := company.New(0, name)
	if err != nil {
		return api.Company{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return api.Company{}, company.Persistence("insert company", ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		return api.Company{}, company.Persistence("insert company", err)
	}

	m.next++
	c.ID = m.next
	m.view.commit(c)
	return c, nil
}

func (m *Memory) All(_ context.Context) (api.Snapshot, error) {
	return m.view.snapshot(), nil
}

func (m *Memory) Subscribe(ctx context.Context) (<-chan api.Snapshot, func()) {
	return m.view.subscribe(ctx)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.view.close()
	return nil
}
