package billing

import (
	"sort"
	"time"

	"github.com/voltgrid/sessiond/core/tariff"
)

// componentKey addresses one accumulator by its position in the tariff.
type componentKey struct {
	elem, comp int
}

type accumulator struct {
	energy  *tariff.Amount // 1e18-scaled kWh, ENERGY components
	seconds int64          // TIME components
	flat    bool           // FLAT components, charged at most once
}

// Engine accumulates matched deltas against one tariff and builds the CDR
// at finalization. It is driven sequentially by the session's meter-log
// processor and holds no locks of its own.
type Engine struct {
	tariff  *tariff.Tariff
	acc     map[componentKey]*accumulator
	totalWh int64
	// lastElem is the element matched by the most recent delta. The post
	// stop idle tail is priced through it, so PARKING_TIME is billed on
	// one element only.
	lastElem int
}

// NewEngine creates an engine bound to the tariff in force for the session.
// The tariff must not change for the engine's lifetime.
func NewEngine(t *tariff.Tariff) *Engine {
	return &Engine{
		tariff:   t,
		acc:      map[componentKey]*accumulator{},
		lastElem: -1,
	}
}

// AddEnergy records delivered watt-hours toward the session total. Called
// for every accepted delta, matched or not, so unmatched intervals still
// count as delivered energy.
func (e *Engine) AddEnergy(wh int64) {
	e.totalWh += wh
}

// Accumulate applies one matched delta to the components of the chosen
// element. PARKING_TIME components collect no quantity here; parking is
// known only at finalization and charged on the last matched element.
func (e *Engine) Accumulate(elemIdx int, iv tariff.Interval) {
	e.lastElem = elemIdx
	el := e.tariff.Elements[elemIdx]
	for ci, pc := range el.PriceComponents {
		a := e.accFor(componentKey{elemIdx, ci})
		switch pc.Type {
		case tariff.Energy:
			a.energy = a.energy.Add(iv.Energy)
		case tariff.Time:
			a.seconds += iv.Duration
		case tariff.Flat, tariff.ParkingTime:
			a.flat = true
		}
	}
}

func (e *Engine) accFor(k componentKey) *accumulator {
	a, ok := e.acc[k]
	if !ok {
		a = &accumulator{energy: tariff.NewAmount(0)}
		e.acc[k] = a
	}
	return a
}

// RunningCost returns the pre-tax cost accumulated so far, without parking
// or clamping. Used for limit checks during the session.
func (e *Engine) RunningCost() *tariff.Amount {
	total := tariff.NewAmount(0)
	for k, a := range e.acc {
		pc := e.tariff.Elements[k.elem].PriceComponents[k.comp]
		total = total.Add(componentCost(pc, a, 0))
	}
	return total
}

// Finalize prices every touched component, applies VAT per component, sums
// the totals and clamps them to the tariff's min/max price. The per-element
// breakdown always reports unclamped consumption-derived values; the total
// and the breakdown are produced in the same pass as independent fields.
func (e *Engine) Finalize(sessionId uint64, start, end time.Time, parkingSeconds int64) *CDR {
	cdr := &CDR{
		SessionId:     sessionId,
		Currency:      e.tariff.Currency,
		TotalEnergyWh: e.totalWh,
		StartDateTime: start,
		EndDateTime:   end,
	}

	keys := make([]componentKey, 0, len(e.acc))
	for k := range e.acc {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].elem != keys[j].elem {
			return keys[i].elem < keys[j].elem
		}
		return keys[i].comp < keys[j].comp
	})

	totalExcl := tariff.NewAmount(0)
	totalIncl := tariff.NewAmount(0)
	elements := map[int]*CDRElement{}
	var order []int
	for _, k := range keys {
		a := e.acc[k]
		pc := e.tariff.Elements[k.elem].PriceComponents[k.comp]
		parking := int64(0)
		if k.elem == e.lastElem {
			parking = parkingSeconds
		}
		excl := componentCost(pc, a, parking)
		incl := excl.AddVAT(pc.Vat)
		totalExcl = totalExcl.Add(excl)
		totalIncl = totalIncl.Add(incl)

		el, ok := elements[k.elem]
		if !ok {
			el = &CDRElement{}
			elements[k.elem] = el
			order = append(order, k.elem)
		}
		el.Components = append(el.Components, &CDRComponent{
			Type:     pc.Type,
			Quantity: componentQuantity(pc, a, parking),
			Price:    tariff.Price{ExclVat: excl, InclVat: incl},
		})
	}
	for _, idx := range order {
		cdr.Elements = append(cdr.Elements, elements[idx])
	}

	cdr.TotalCost = clampTotal(e.tariff, tariff.Price{ExclVat: totalExcl, InclVat: totalIncl})
	return cdr
}

// componentCost prices one accumulator. TIME and PARKING_TIME floor the
// minute count once over the accumulated total, not per delta.
func componentCost(pc *tariff.PriceComponent, a *accumulator, parkingSeconds int64) *tariff.Amount {
	switch pc.Type {
	case tariff.Energy:
		return a.energy.MulScaled(pc.Price)
	case tariff.Time:
		return pc.Price.MulInt(a.seconds / 60)
	case tariff.Flat:
		if a.flat {
			return pc.Price
		}
	case tariff.ParkingTime:
		if a.flat {
			return pc.Price.MulInt(parkingSeconds / 60)
		}
	}
	return tariff.NewAmount(0)
}

func componentQuantity(pc *tariff.PriceComponent, a *accumulator, parkingSeconds int64) *tariff.Amount {
	switch pc.Type {
	case tariff.Energy:
		return a.energy
	case tariff.Time:
		return tariff.NewAmount(a.seconds)
	case tariff.ParkingTime:
		return tariff.NewAmount(parkingSeconds)
	default:
		return tariff.NewAmount(1)
	}
}

// clampTotal replaces the total wholesale with the configured floor or
// ceiling when the pre-tax total falls outside them. A zero or unset bound
// means no clamp on that side.
func clampTotal(t *tariff.Tariff, total tariff.Price) tariff.Price {
	if t.MinPrice != nil && !t.MinPrice.ExclVat.IsZero() && total.ExclVat.Cmp(t.MinPrice.ExclVat) < 0 {
		return *t.MinPrice
	}
	if t.MaxPrice != nil && !t.MaxPrice.ExclVat.IsZero() && total.ExclVat.Cmp(t.MaxPrice.ExclVat) > 0 {
		return *t.MaxPrice
	}
	return total
}
