package document

import (
	"context"
	"sync"
)

// Memory is a Document that lives only in this process. It's used when the
// host keeps the document open itself and in tests.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
	order   []string
}

func NewMemory() *Memory {
	return &Memory{records: map[string]Record{}}
}

func (m *Memory) Load(_ context.Context, name string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.records[name]
	if !ok {
		return Record{}, notFound(name)
	}
	return copyRecord(record), nil
}

func (m *Memory) Save(_ context.Context, record Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[record.Name]; !ok {
		m.order = append(m.order, record.Name)
	}
	m.records[record.Name] = copyRecord(record)
	return nil
}

func (m *Memory) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[name]; !ok {
		return notFound(name)
	}
	delete(m.records, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) Names(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...), nil
}

func (m *Memory) Close() error {
	return nil
}

// copyRecord keeps callers from mutating stored source through a shared
// slice.
func copyRecord(record Record) Record {
	record.Source = append([]byte(nil), record.Source...)
	return record
}
