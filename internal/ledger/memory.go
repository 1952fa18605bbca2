package ledger

import (
	"context"
	"sync"
)

// MemoryState keeps entries in process. SetOffline makes every call fail with
// ErrUnavailable, which stands in for a dropped RPC connection.
type MemoryState struct {
	mu      sync.Mutex
	entries map[string]Entry
	order   []string
	offline bool
}

var _ State = (*MemoryState)(nil)

func NewMemoryState() *MemoryState {
	return &MemoryState{entries: make(map[string]Entry)}
}

func (m *MemoryState) SetOffline(offline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offline = offline
}

func (m *MemoryState) IDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return nil, ErrUnavailable
	}
	return append([]string{}, m.order...), nil
}

func (m *MemoryState) Get(_ context.Context, id string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return Entry{}, ErrUnavailable
	}
	e, ok := m.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	e.Handle = append([]byte{}, e.Handle...)
	return e, nil
}

func (m *MemoryState) Insert(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return ErrUnavailable
	}
	if _, ok := m.entries[e.ID]; ok {
		return ErrDuplicate
	}
	e.Handle = append([]byte{}, e.Handle...)
	m.entries[e.ID] = e
	m.order = append(m.order, e.ID)
	return nil
}

func (m *MemoryState) MarkVerified(_ context.Context, id string, value uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return ErrUnavailable
	}
	e, ok := m.entries[id]
	if !ok {
		return ErrNotFound
	}
	if e.Verified {
		return ErrAlreadyVerified
	}
	e.Verified = true
	e.Revealed = value
	m.entries[id] = e
	return nil
}

func (m *MemoryState) Ping(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return ErrUnavailable
	}
	return nil
}
