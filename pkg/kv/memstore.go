package kv

import (
	"sync"
)

// MemStore is the in-memory collection engine. It is safe for concurrent
// use and optionally mirrors every write to a Persistence handler in the
// background.
type MemStore struct {
	mu        sync.RWMutex
	data      map[string][]byte
	persister *Persistence
	wg        sync.WaitGroup
}

// NewMemStore initializes a store. It accepts existing data (from LoadAll)
// and a persister; both may be nil.
func NewMemStore(initialData map[string][]byte, p *Persistence) *MemStore {
	if initialData == nil {
		initialData = make(map[string][]byte)
	}
	return &MemStore{
		data:      initialData,
		persister: p,
	}
}

// Wait waits for all background persistence tasks to complete.
func (m *MemStore) Wait() {
	m.wg.Wait()
}

// Close drains pending background persistence. Writes are handed to
// goroutines, so a process exiting without Close can lose them.
func (m *MemStore) Close() error {
	m.wg.Wait()
	return nil
}

func (m *MemStore) GetCollection(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.data[name]
	if !ok {
		return nil, ErrCollectionNotFound
	}

	// Copy to prevent external mutation of the stored document.
	out := make([]byte, len(doc))
	copy(out, doc)
	return out, nil
}

func (m *MemStore) PutCollection(name string, doc []byte) error {
	stored := make([]byte, len(doc))
	copy(stored, doc)

	m.mu.Lock()
	m.data[name] = stored
	m.mu.Unlock()

	if m.persister != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.persister.SaveCollection(name, stored)
		}()
	}
	return nil
}

func (m *MemStore) DeleteCollection(name string) error {
	m.mu.Lock()
	delete(m.data, name)
	m.mu.Unlock()

	if m.persister != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.persister.RemoveCollection(name)
		}()
	}
	return nil
}

func (m *MemStore) Collections() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var list []string
	for name := range m.data {
		list = append(list, name)
	}
	return list, nil
}
