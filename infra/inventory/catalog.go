package inventory

import (
	"fmt"
	"sync"

	"github.com/voltgrid/sessiond/core/session"
	"github.com/voltgrid/sessiond/core/tariff"
)

// MemoryCatalog is a thread-safe in-memory tariff catalog. Stored tariffs
// are treated as immutable; Put validates before accepting.
type MemoryCatalog struct {
	mu   sync.RWMutex
	data map[string]*tariff.Tariff
}

// NewMemoryCatalog creates an empty catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{data: map[string]*tariff.Tariff{}}
}

// Put validates and stores a tariff definition.
func (c *MemoryCatalog) Put(t *tariff.Tariff) error {
	if err := t.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.data[t.Id] = t
	c.mu.Unlock()
	return nil
}

// Get returns the tariff or session.ErrNotFound.
func (c *MemoryCatalog) Get(id string) (*tariff.Tariff, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.data[id]
	if !ok {
		return nil, fmt.Errorf("tariff %s: %w", id, session.ErrNotFound)
	}
	return t, nil
}
