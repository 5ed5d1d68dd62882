// Package tariff defines the pricing catalog model: tariffs made of ordered
// restriction-gated elements, each carrying priced components, together with
// the fixed-point arithmetic used to evaluate them.
package tariff

import "fmt"

// DimensionType identifies what a price component charges for.
type DimensionType string

const (
	Energy      DimensionType = "ENERGY"
	Flat        DimensionType = "FLAT"
	Time        DimensionType = "TIME"
	ParkingTime DimensionType = "PARKING_TIME"
)

// PriceComponent is one charged dimension of a tariff element. Price is a
// 1e18 fixed-point unit price (per kWh for ENERGY, per minute for TIME and
// PARKING_TIME, absolute for FLAT). Vat is an integer percentage.
type PriceComponent struct {
	Type     DimensionType `json:"type"`
	Price    *Amount       `json:"price"`
	Vat      int           `json:"vat"`
	StepSize int           `json:"step_size"`
}

// IsEnergy reports whether the component charges per kWh.
func (p *PriceComponent) IsEnergy() bool { return p.Type == Energy }

// Element couples a restriction set with the components charged while the
// restrictions accept a reading. Element order within a tariff is
// significant: the first accepting element wins.
type Element struct {
	PriceComponents []*PriceComponent `json:"price_components"`
	Restrictions    *Restrictions     `json:"restrictions,omitempty"`
}

// Tariff is the complete pricing definition applied to a session. MinPrice
// and MaxPrice clamp the final session total when their ExclVat is non-zero;
// they never alter per-component reporting.
type Tariff struct {
	Id            string     `json:"id"`
	Currency      string     `json:"currency"`
	Elements      []*Element `json:"elements"`
	MinPrice      *Price     `json:"min_price,omitempty"`
	MaxPrice      *Price     `json:"max_price,omitempty"`
	StartDateTime int64      `json:"start_date_time,omitempty"`
	EndDateTime   int64      `json:"end_date_time,omitempty"`
	LastUpdated   string     `json:"last_updated,omitempty"`
}

// Validate checks structural soundness of the tariff definition.
func (t *Tariff) Validate() error {
	if t.Id == "" {
		return fmt.Errorf("tariff id is required")
	}
	if len(t.Elements) == 0 {
		return fmt.Errorf("tariff %s has no elements", t.Id)
	}
	for i, el := range t.Elements {
		if len(el.PriceComponents) == 0 {
			return fmt.Errorf("tariff %s element %d has no price components", t.Id, i)
		}
		for _, pc := range el.PriceComponents {
			switch pc.Type {
			case Energy, Flat, Time, ParkingTime:
			default:
				return fmt.Errorf("tariff %s: unknown dimension type %q", t.Id, pc.Type)
			}
			if pc.Price == nil {
				return fmt.Errorf("tariff %s: component %s has no price", t.Id, pc.Type)
			}
			if pc.Vat < 0 || pc.Vat > 100 {
				return fmt.Errorf("tariff %s: vat %d out of range", t.Id, pc.Vat)
			}
		}
		if el.Restrictions != nil {
			if err := el.Restrictions.Validate(); err != nil {
				return fmt.Errorf("tariff %s element %d: %w", t.Id, i, err)
			}
		}
	}
	return nil
}

// SelectElement scans the elements in definition order and returns the index
// of the first one whose restrictions accept the interval, or -1 when none
// match. An unmatched interval contributes no cost but its energy still
// counts toward the session total.
func (t *Tariff) SelectElement(iv Interval) int {
	for i, el := range t.Elements {
		if el.Restrictions == nil || el.Restrictions.Accepts(iv) {
			return i
		}
	}
	return -1
}

// Empty returns a tariff with a single unrestricted zero-priced energy
// element.
func Empty() *Tariff {
	return &Tariff{
		Elements: []*Element{{PriceComponents: []*PriceComponent{{Type: Energy, Price: NewAmount(0)}}}},
	}
}
