package revocation

import (
	"context"
	"sync"
)

// MemoryList is an in-process List.
type MemoryList struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryList returns an empty MemoryList.
func NewMemoryList() *MemoryList {
	return &MemoryList{entries: make(map[string]Entry)}
}

func (m *MemoryList) Add(_ context.Context, e Entry) (bool, error) {
	e.Serial = NormalizeSerial(e.Serial)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[e.Serial]; ok {
		return false, nil
	}
	m.entries[e.Serial] = e
	return true, nil
}

func (m *MemoryList) Lookup(_ context.Context, serial string) (*Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[NormalizeSerial(serial)]
	if !ok {
		return nil, false, nil
	}
	return &e, true, nil
}

func (m *MemoryList) Entries(_ context.Context) ([]Entry, error) {
	m.mu.RLock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	m.mu.RUnlock()

	sortEntries(out)
	return out, nil
}
