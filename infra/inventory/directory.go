// Package inventory provides in-memory implementations of the connector
// directory and tariff catalog ports. Deployments with a real inventory
// service substitute their own implementations behind the same interfaces.
package inventory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/voltgrid/sessiond/core/model"
	"github.com/voltgrid/sessiond/core/session"
)

type connectorKey struct {
	evse string
	id   int
}

// MemoryDirectory is a thread-safe in-memory connector directory.
type MemoryDirectory struct {
	mu   sync.RWMutex
	data map[connectorKey]model.Connector
}

// NewMemoryDirectory creates an empty directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{data: map[connectorKey]model.Connector{}}
}

// Add registers or replaces a connector record.
func (d *MemoryDirectory) Add(c model.Connector) {
	d.mu.Lock()
	d.data[connectorKey{c.EvseId, c.Id}] = c
	d.mu.Unlock()
}

// Lookup returns a copy of the connector record or session.ErrNotFound.
func (d *MemoryDirectory) Lookup(evseId string, connectorId int) (*model.Connector, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.data[connectorKey{evseId, connectorId}]
	if !ok {
		return nil, fmt.Errorf("connector %s:%d: %w", evseId, connectorId, session.ErrNotFound)
	}
	out := c
	return &out, nil
}

// SetStatus updates the connector status and reservation holder.
func (d *MemoryDirectory) SetStatus(evseId string, connectorId int, status model.ConnectorStatus, reservedFor string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	k := connectorKey{evseId, connectorId}
	c, ok := d.data[k]
	if !ok {
		return fmt.Errorf("connector %s:%d: %w", evseId, connectorId, session.ErrNotFound)
	}
	c.Status = status
	c.ReservedFor = reservedFor
	d.data[k] = c
	return nil
}

// List returns all connectors ordered by evse id and connector id.
func (d *MemoryDirectory) List() []model.Connector {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]model.Connector, 0, len(d.data))
	for _, c := range d.data {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EvseId != out[j].EvseId {
			return out[i].EvseId < out[j].EvseId
		}
		return out[i].Id < out[j].Id
	})
	return out
}
