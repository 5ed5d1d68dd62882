package session

import (
	"github.com/voltgrid/sessiond/core/model"
	"github.com/voltgrid/sessiond/core/tariff"
)

// ConnectorDirectory is the inventory collaborator. The registry reads
// connector status and tariff assignment from it and marks connectors
// reserved, occupied or released as sessions progress.
type ConnectorDirectory interface {
	// Lookup returns the connector record or ErrNotFound.
	Lookup(evseId string, connectorId int) (*model.Connector, error)
	// SetStatus updates the connector status; reservedFor is only meaningful
	// for the Reserved status.
	SetStatus(evseId string, connectorId int, status model.ConnectorStatus, reservedFor string) error
}

// TariffCatalog resolves tariff definitions. Tariffs are read once at
// session start and treated as immutable for the session's lifetime.
type TariffCatalog interface {
	Get(id string) (*tariff.Tariff, error)
}

// Ledger is the settlement collaborator. A session debits it exactly once,
// atomically, at finalization; Balance is only consulted for advisory limit
// checks during the session.
type Ledger interface {
	Balance(account string) (*tariff.Amount, error)
	// Debit withdraws the amount or fails with ErrInsufficientFunds without
	// partial effect.
	Debit(account string, amount *tariff.Amount) error
}

// PermissionChecker answers whether a caller may operate on an object at
// the given access level.
type PermissionChecker interface {
	Allowed(caller, object string, level AccessLevel) bool
}

// AccessLevel grades permission checks on the Sessions object.
type AccessLevel int

const (
	AccessRead AccessLevel = iota
	AccessUse
	AccessOperate
)

// PermissionObject is the object name used for all registry permission
// checks.
const PermissionObject = "Sessions"

// AllowAll is a PermissionChecker that grants everything. Used by tests and
// deployments that enforce permissions upstream.
type AllowAll struct{}

func (AllowAll) Allowed(string, string, AccessLevel) bool { return true }
