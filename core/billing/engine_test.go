package billing

import (
	"testing"
	"time"

	"github.com/voltgrid/sessiond/core/tariff"
)

var sessionStart = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

// feed pushes a sequence of equal meter deltas through the engine the way
// the session pipeline does: energy counted first, then matched.
func feed(e *Engine, t *tariff.Tariff, deltas int, deltaWh int64, interval time.Duration) {
	var totalWh int64
	for i := 1; i <= deltas; i++ {
		totalWh += deltaWh
		ts := sessionStart.Add(time.Duration(i) * interval)
		iv := tariff.Interval{
			Timestamp:  ts,
			Energy:     tariff.EnergyFromWh(deltaWh),
			Duration:   int64(interval.Seconds()),
			Elapsed:    int64(ts.Sub(sessionStart).Seconds()),
			Cumulative: tariff.EnergyFromWh(totalWh),
		}
		e.AddEnergy(deltaWh)
		if idx := t.SelectElement(iv); idx >= 0 {
			e.Accumulate(idx, iv)
		}
	}
}

func TestFlatFeeSession(t *testing.T) {
	tr := &tariff.Tariff{
		Id:       "flat",
		Currency: "EUR",
		Elements: []*tariff.Element{
			{PriceComponents: []*tariff.PriceComponent{{Type: tariff.Flat, Price: tariff.NewAmount(500), Vat: 20}}},
		},
	}
	e := NewEngine(tr)
	feed(e, tr, 4, 250, time.Minute)
	cdr := e.Finalize(1, sessionStart, sessionStart.Add(4*time.Minute), 0)

	if cdr.TotalEnergyWh != 1000 {
		t.Fatalf("total energy: got %d", cdr.TotalEnergyWh)
	}
	if cdr.TotalCost.ExclVat.Cmp(tariff.NewAmount(500)) != 0 {
		t.Fatalf("excl vat: got %s", cdr.TotalCost.ExclVat)
	}
	if cdr.TotalCost.InclVat.Cmp(tariff.NewAmount(600)) != 0 {
		t.Fatalf("incl vat: got %s", cdr.TotalCost.InclVat)
	}
	// flat fee charged once no matter how many deltas matched
	if len(cdr.Elements) != 1 || len(cdr.Elements[0].Components) != 1 {
		t.Fatalf("unexpected breakdown %+v", cdr.Elements)
	}
	if cdr.Elements[0].Components[0].Quantity.Cmp(tariff.NewAmount(1)) != 0 {
		t.Fatalf("flat quantity: got %s", cdr.Elements[0].Components[0].Quantity)
	}
}

func TestTieredEnergySession(t *testing.T) {
	tr := &tariff.Tariff{
		Id:       "tiered",
		Currency: "EUR",
		Elements: []*tariff.Element{
			{
				PriceComponents: []*tariff.PriceComponent{{Type: tariff.Energy, Price: tariff.MustAmount("0.25"), Vat: 20}},
				Restrictions:    &tariff.Restrictions{MaxKwh: tariff.MustAmount("3")},
			},
			{
				PriceComponents: []*tariff.PriceComponent{{Type: tariff.Energy, Price: tariff.MustAmount("0.20"), Vat: 20}},
			},
		},
	}
	e := NewEngine(tr)
	// 76 deltas of 0.2 kWh: the first 15 land at or below the 3 kWh
	// boundary, the remaining 61 fall through to the second element.
	feed(e, tr, 76, 200, time.Minute)
	cdr := e.Finalize(1, sessionStart, sessionStart.Add(76*time.Minute), 0)

	if cdr.TotalEnergyWh != 15200 {
		t.Fatalf("total energy: got %d", cdr.TotalEnergyWh)
	}
	if len(cdr.Elements) != 2 {
		t.Fatalf("expected two priced elements, got %d", len(cdr.Elements))
	}
	first := cdr.Elements[0].Components[0]
	second := cdr.Elements[1].Components[0]
	if first.Quantity.Cmp(tariff.MustAmount("3")) != 0 {
		t.Fatalf("tier one quantity: got %s", first.Quantity)
	}
	if second.Quantity.Cmp(tariff.MustAmount("12.2")) != 0 {
		t.Fatalf("tier two quantity: got %s", second.Quantity)
	}
	// 3 * 0.25 + 12.2 * 0.20 = 0.75 + 2.44 = 3.19
	if first.Price.ExclVat.Cmp(tariff.MustAmount("0.75")) != 0 {
		t.Fatalf("tier one cost: got %s", first.Price.ExclVat)
	}
	if second.Price.ExclVat.Cmp(tariff.MustAmount("2.44")) != 0 {
		t.Fatalf("tier two cost: got %s", second.Price.ExclVat)
	}
	if cdr.TotalCost.ExclVat.Cmp(tariff.MustAmount("3.19")) != 0 {
		t.Fatalf("total excl: got %s", cdr.TotalCost.ExclVat)
	}
	if cdr.TotalCost.InclVat.Cmp(tariff.MustAmount("3.828")) != 0 {
		t.Fatalf("total incl: got %s", cdr.TotalCost.InclVat)
	}
}

func TestTimeWindowSession(t *testing.T) {
	tr := &tariff.Tariff{
		Id:       "nights",
		Currency: "EUR",
		Elements: []*tariff.Element{
			{
				PriceComponents: []*tariff.PriceComponent{{Type: tariff.Energy, Price: tariff.MustAmount("0.10"), Vat: 20}},
				Restrictions:    &tariff.Restrictions{StartTime: "19:00", EndTime: "23:30"},
			},
		},
	}
	e := NewEngine(tr)
	// session runs 18:00 to 24:00; only readings inside the window cost
	start := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	var totalWh, matchedWh int64
	for i := 1; i <= 24; i++ {
		ts := start.Add(time.Duration(i) * 15 * time.Minute)
		totalWh += 500
		iv := tariff.Interval{
			Timestamp:  ts,
			Energy:     tariff.EnergyFromWh(500),
			Duration:   900,
			Elapsed:    int64(ts.Sub(start).Seconds()),
			Cumulative: tariff.EnergyFromWh(totalWh),
		}
		e.AddEnergy(500)
		if idx := tr.SelectElement(iv); idx >= 0 {
			e.Accumulate(idx, iv)
			matchedWh += 500
		}
	}
	cdr := e.Finalize(1, start, start.Add(6*time.Hour), 0)

	// 19:00 through 23:30 inclusive is 19 quarter-hour readings
	if matchedWh != 19*500 {
		t.Fatalf("matched energy: got %d", matchedWh)
	}
	// unmatched deltas still count toward the session total
	if cdr.TotalEnergyWh != 12000 {
		t.Fatalf("total energy: got %d", cdr.TotalEnergyWh)
	}
	want := tariff.EnergyFromWh(matchedWh).MulScaled(tariff.MustAmount("0.10"))
	if cdr.TotalCost.ExclVat.Cmp(want) != 0 {
		t.Fatalf("excl vat: got %s want %s", cdr.TotalCost.ExclVat, want)
	}
}

func TestTimeComponentFloorsOnce(t *testing.T) {
	tr := &tariff.Tariff{
		Id:       "per-minute",
		Currency: "EUR",
		Elements: []*tariff.Element{
			{PriceComponents: []*tariff.PriceComponent{{Type: tariff.Time, Price: tariff.MustAmount("0.5"), Vat: 0}}},
		},
	}
	e := NewEngine(tr)
	// 5 deltas of 90 seconds: 450 seconds total is 7 whole minutes. Per
	// delta flooring would yield 5 minutes instead.
	for i := 1; i <= 5; i++ {
		iv := tariff.Interval{
			Timestamp: sessionStart.Add(time.Duration(i) * 90 * time.Second),
			Energy:    tariff.EnergyFromWh(0),
			Duration:  90,
			Elapsed:   int64(i) * 90,
		}
		e.AddEnergy(0)
		e.Accumulate(0, iv)
	}
	cdr := e.Finalize(1, sessionStart, sessionStart.Add(450*time.Second), 0)
	if cdr.TotalCost.ExclVat.Cmp(tariff.MustAmount("3.5")) != 0 {
		t.Fatalf("time cost: got %s want 3.5", cdr.TotalCost.ExclVat)
	}
	if cdr.Elements[0].Components[0].Quantity.Cmp(tariff.NewAmount(450)) != 0 {
		t.Fatalf("time quantity: got %s", cdr.Elements[0].Components[0].Quantity)
	}
}

func TestParkingTime(t *testing.T) {
	tr := &tariff.Tariff{
		Id:       "parking",
		Currency: "EUR",
		Elements: []*tariff.Element{
			{PriceComponents: []*tariff.PriceComponent{
				{Type: tariff.Energy, Price: tariff.MustAmount("0.25"), Vat: 20},
				{Type: tariff.ParkingTime, Price: tariff.MustAmount("0.1"), Vat: 20},
			}},
		},
	}
	e := NewEngine(tr)
	feed(e, tr, 4, 250, time.Minute)
	// 10 minutes and 30 seconds between stop and end: 10 billable minutes
	cdr := e.Finalize(1, sessionStart, sessionStart.Add(15*time.Minute), 630)

	var parking *CDRComponent
	for _, c := range cdr.Elements[0].Components {
		if c.Type == tariff.ParkingTime {
			parking = c
		}
	}
	if parking == nil {
		t.Fatalf("no parking component in breakdown")
	}
	if parking.Price.ExclVat.Cmp(tariff.MustAmount("1")) != 0 {
		t.Fatalf("parking cost: got %s want 1", parking.Price.ExclVat)
	}
	if parking.Quantity.Cmp(tariff.NewAmount(630)) != 0 {
		t.Fatalf("parking quantity: got %s", parking.Quantity)
	}
}

func TestParkingBilledOnStopElementOnly(t *testing.T) {
	tr := &tariff.Tariff{
		Id:       "tiered-parking",
		Currency: "EUR",
		Elements: []*tariff.Element{
			{
				PriceComponents: []*tariff.PriceComponent{
					{Type: tariff.Energy, Price: tariff.MustAmount("0.25")},
					{Type: tariff.ParkingTime, Price: tariff.MustAmount("0.1")},
				},
				Restrictions: &tariff.Restrictions{MaxKwh: tariff.MustAmount("1")},
			},
			{
				PriceComponents: []*tariff.PriceComponent{
					{Type: tariff.Energy, Price: tariff.MustAmount("0.25")},
					{Type: tariff.ParkingTime, Price: tariff.MustAmount("0.2")},
				},
				Restrictions: &tariff.Restrictions{MinKwh: tariff.MustAmount("1")},
			},
		},
	}
	e := NewEngine(tr)
	// four 500 Wh deltas: the first two land in the low tier, the last two
	// in the high tier, so the session stops on element 1
	feed(e, tr, 4, 500, time.Minute)
	cdr := e.Finalize(1, sessionStart, sessionStart.Add(15*time.Minute), 630)

	if len(cdr.Elements) != 2 {
		t.Fatalf("expected both elements in breakdown, got %d", len(cdr.Elements))
	}
	parkingOf := func(el *CDRElement) *CDRComponent {
		for _, c := range el.Components {
			if c.Type == tariff.ParkingTime {
				return c
			}
		}
		t.Fatalf("no parking component in %+v", el)
		return nil
	}
	first := parkingOf(cdr.Elements[0])
	if !first.Price.ExclVat.IsZero() || !first.Quantity.IsZero() {
		t.Fatalf("first element billed parking: cost %s quantity %s", first.Price.ExclVat, first.Quantity)
	}
	last := parkingOf(cdr.Elements[1])
	if last.Price.ExclVat.Cmp(tariff.NewAmount(2)) != 0 {
		t.Fatalf("parking cost: got %s want 2", last.Price.ExclVat)
	}
	if last.Quantity.Cmp(tariff.NewAmount(630)) != 0 {
		t.Fatalf("parking quantity: got %s", last.Quantity)
	}
	// 2 kWh at 0.25 plus 10 parking minutes at 0.2
	if cdr.TotalCost.ExclVat.Cmp(tariff.MustAmount("2.5")) != 0 {
		t.Fatalf("total: got %s want 2.5", cdr.TotalCost.ExclVat)
	}
}

func TestMinPriceClamp(t *testing.T) {
	tr := &tariff.Tariff{
		Id:       "min",
		Currency: "EUR",
		MinPrice: &tariff.Price{ExclVat: tariff.NewAmount(5), InclVat: tariff.NewAmount(6)},
		Elements: []*tariff.Element{
			{PriceComponents: []*tariff.PriceComponent{{Type: tariff.Energy, Price: tariff.MustAmount("0.25"), Vat: 20}}},
		},
	}
	e := NewEngine(tr)
	feed(e, tr, 2, 100, time.Minute)
	cdr := e.Finalize(1, sessionStart, sessionStart.Add(2*time.Minute), 0)

	// raw cost 0.2 kWh * 0.25 = 0.05, replaced wholesale by the floor
	if cdr.TotalCost.ExclVat.Cmp(tariff.NewAmount(5)) != 0 {
		t.Fatalf("excl vat: got %s", cdr.TotalCost.ExclVat)
	}
	if cdr.TotalCost.InclVat.Cmp(tariff.NewAmount(6)) != 0 {
		t.Fatalf("incl vat: got %s", cdr.TotalCost.InclVat)
	}
	// the breakdown keeps the consumption-derived value
	if cdr.Elements[0].Components[0].Price.ExclVat.Cmp(tariff.MustAmount("0.05")) != 0 {
		t.Fatalf("line item rewritten: %s", cdr.Elements[0].Components[0].Price.ExclVat)
	}
}

func TestMaxPriceClamp(t *testing.T) {
	tr := &tariff.Tariff{
		Id:       "max",
		Currency: "EUR",
		MaxPrice: &tariff.Price{ExclVat: tariff.NewAmount(10), InclVat: tariff.NewAmount(12)},
		Elements: []*tariff.Element{
			{PriceComponents: []*tariff.PriceComponent{{Type: tariff.Energy, Price: tariff.NewAmount(1), Vat: 20}}},
		},
	}
	e := NewEngine(tr)
	feed(e, tr, 20, 1000, time.Minute)
	cdr := e.Finalize(1, sessionStart, sessionStart.Add(20*time.Minute), 0)

	// raw cost 20 kWh * 1 = 20, above the ceiling
	if cdr.TotalCost.ExclVat.Cmp(tariff.NewAmount(10)) != 0 {
		t.Fatalf("excl vat: got %s", cdr.TotalCost.ExclVat)
	}
	if cdr.TotalCost.InclVat.Cmp(tariff.NewAmount(12)) != 0 {
		t.Fatalf("incl vat: got %s", cdr.TotalCost.InclVat)
	}
}

func TestVATPerComponent(t *testing.T) {
	tr := &tariff.Tariff{
		Id:       "mixed-vat",
		Currency: "EUR",
		Elements: []*tariff.Element{
			{PriceComponents: []*tariff.PriceComponent{
				{Type: tariff.Flat, Price: tariff.NewAmount(100), Vat: 10},
				{Type: tariff.Energy, Price: tariff.NewAmount(1), Vat: 20},
			}},
		},
	}
	e := NewEngine(tr)
	feed(e, tr, 1, 1000, time.Minute)
	cdr := e.Finalize(1, sessionStart, sessionStart.Add(time.Minute), 0)

	// flat 100 + 10% = 110; energy 1 + 20% = 1.2; totals sum per component
	if cdr.TotalCost.ExclVat.Cmp(tariff.NewAmount(101)) != 0 {
		t.Fatalf("excl vat: got %s", cdr.TotalCost.ExclVat)
	}
	if cdr.TotalCost.InclVat.Cmp(tariff.MustAmount("111.2")) != 0 {
		t.Fatalf("incl vat: got %s", cdr.TotalCost.InclVat)
	}
}

func TestRunningCost(t *testing.T) {
	tr := &tariff.Tariff{
		Id:       "basic",
		Currency: "EUR",
		Elements: []*tariff.Element{
			{PriceComponents: []*tariff.PriceComponent{{Type: tariff.Energy, Price: tariff.MustAmount("0.25"), Vat: 20}}},
		},
	}
	e := NewEngine(tr)
	if e.RunningCost().Sign() != 0 {
		t.Fatalf("fresh engine should cost nothing")
	}
	feed(e, tr, 4, 1000, time.Minute)
	if e.RunningCost().Cmp(tariff.NewAmount(1)) != 0 {
		t.Fatalf("running cost: got %s want 1", e.RunningCost())
	}
}

func TestNoMatchZeroCost(t *testing.T) {
	tr := &tariff.Tariff{
		Id:       "weekend",
		Currency: "EUR",
		Elements: []*tariff.Element{
			{
				PriceComponents: []*tariff.PriceComponent{{Type: tariff.Energy, Price: tariff.NewAmount(1), Vat: 20}},
				Restrictions:    &tariff.Restrictions{DayOfWeek: []string{"SATURDAY"}},
			},
		},
	}
	e := NewEngine(tr)
	// sessionStart is a Monday: nothing matches, yet energy accrues
	feed(e, tr, 4, 500, time.Minute)
	cdr := e.Finalize(1, sessionStart, sessionStart.Add(4*time.Minute), 0)
	if cdr.TotalEnergyWh != 2000 {
		t.Fatalf("total energy: got %d", cdr.TotalEnergyWh)
	}
	if cdr.TotalCost.ExclVat.Sign() != 0 || cdr.TotalCost.InclVat.Sign() != 0 {
		t.Fatalf("unmatched session should cost zero, got %s", cdr.TotalCost.ExclVat)
	}
	if len(cdr.Elements) != 0 {
		t.Fatalf("unexpected elements %+v", cdr.Elements)
	}
}
