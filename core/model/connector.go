package model

// ConnectorStatus mirrors the inventory's view of a connector socket.
type ConnectorStatus string

const (
	ConnectorAvailable   ConnectorStatus = "Available"
	ConnectorReserved    ConnectorStatus = "Reserved"
	ConnectorOccupied    ConnectorStatus = "Occupied"
	ConnectorUnavailable ConnectorStatus = "Unavailable"
)

// Connector is the inventory record consumed by the session registry.
// Inventory itself is an external collaborator; only status and tariff
// assignment matter here.
type Connector struct {
	EvseId      string          `json:"evse_id"`
	Id          int             `json:"connector_id"`
	Status      ConnectorStatus `json:"status"`
	TariffId    string          `json:"tariff_id"`
	ReservedFor string          `json:"reserved_for,omitempty"`
}

// Free reports whether the connector can accept a new reservation or
// session without an existing hold.
func (c *Connector) Free() bool {
	return c.Status == ConnectorAvailable
}

// ReservedBy reports whether the connector is held for the given account.
func (c *Connector) ReservedBy(account string) bool {
	return c.Status == ConnectorReserved && c.ReservedFor == account
}
