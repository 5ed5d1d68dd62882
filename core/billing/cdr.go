// Package billing accumulates matched meter deltas into priced line items
// and produces the final Charge Detail Record for a session.
package billing

import (
	"time"

	"github.com/voltgrid/sessiond/core/tariff"
)

// CDRComponent is one priced line item of the invoice. Quantity is a 1e18
// fixed-point value in the component's natural unit: kWh for ENERGY,
// seconds for TIME and PARKING_TIME, 1 for FLAT. Price always reflects the
// raw consumption-derived cost; total clamping never rewrites it.
type CDRComponent struct {
	Type     tariff.DimensionType `json:"type"`
	Quantity *tariff.Amount       `json:"quantity"`
	Price    tariff.Price         `json:"price"`
}

// CDRElement mirrors one tariff element actually hit during the session.
type CDRElement struct {
	Components []*CDRComponent `json:"components"`
}

// CDR is the finalized itemized invoice for one session. TotalCost is
// clamped to the tariff's min/max price when those are set; the element
// breakdown is not.
type CDR struct {
	SessionId     uint64        `json:"session_id"`
	Currency      string        `json:"currency,omitempty"`
	TotalEnergyWh int64         `json:"total_energy"`
	StartDateTime time.Time     `json:"start_date_time"`
	EndDateTime   time.Time     `json:"end_date_time"`
	Elements      []*CDRElement `json:"elements"`
	TotalCost     tariff.Price  `json:"total_cost"`
}
