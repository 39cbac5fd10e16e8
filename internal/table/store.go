// internal/table/store.go
package table

import (
	"sync"

	"github.com/google/uuid"
)

// Store manages the active tables in memory. It is injected into the
// transport layer rather than accessed as package-global state, so tests
// and multiple servers get independent registries.
type Store struct {
	mu     sync.Mutex
	tables map[uuid.UUID]*Table
}

// NewStore initializes an empty table registry.
func NewStore() *Store {
	return &Store{tables: make(map[uuid.UUID]*Table)}
}

// Add registers a table.
func (s *Store) Add(t *Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[t.ID] = t
}

// Get retrieves a table by ID.
func (s *Store) Get(id uuid.UUID) (*Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	return t, ok
}

// Delete removes a table from the registry.
func (s *Store) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables, id)
}

// List returns a snapshot of all registered tables. The copy keeps callers
// from iterating the live map while another goroutine mutates the store.
func (s *Store) List() []*Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Table, 0, len(s.tables))
	for _, t := range s.tables {
		out = append(out, t)
	}
	return out
}
