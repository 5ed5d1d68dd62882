package scenarios

import (
	"testing"
	"time"

	"github.com/voltgrid/sessiond/core/billing"
	"github.com/voltgrid/sessiond/core/tariff"
)

// RunScenario replays the scenario's meter trace through the pricing engine
// and compares the resulting invoice against the expected totals.
func RunScenario(t *testing.T, sc *Scenario) {
	trf, err := sc.Tariff()
	if err != nil {
		t.Fatalf("tariff: %v", err)
	}

	engine := billing.NewEngine(trf)
	prevValue := sc.MeterStart
	prevTime := sc.TimeStart
	apply := func(value int64, ts time.Time, powerW, currentA int64) {
		if value < prevValue || ts.Before(prevTime) {
			t.Fatalf("scenario %s: non monotonic reading %d at %s", sc.Name, value, ts)
		}
		iv := tariff.Interval{
			Timestamp:  ts,
			Energy:     tariff.EnergyFromWh(value - prevValue),
			Duration:   int64(ts.Sub(prevTime).Seconds()),
			Elapsed:    int64(ts.Sub(sc.TimeStart).Seconds()),
			Cumulative: tariff.EnergyFromWh(value - sc.MeterStart),
			PowerW:     powerW,
			CurrentA:   currentA,
		}
		engine.AddEnergy(value - prevValue)
		if idx := trf.SelectElement(iv); idx >= 0 {
			engine.Accumulate(idx, iv)
		}
		prevValue, prevTime = value, ts
	}

	for _, l := range sc.Logs {
		apply(l.Value, sc.TimeStart.Add(time.Duration(l.OffsetSeconds)*time.Second), l.PowerW, l.CurrentA)
	}
	stop := sc.TimeStart.Add(time.Duration(sc.StopOffset) * time.Second)
	apply(sc.MeterStop, stop, 0, 0)

	end := stop.Add(time.Duration(sc.ParkingSeconds) * time.Second)
	cdr := engine.Finalize(0, sc.TimeStart, end, sc.ParkingSeconds)

	if cdr.TotalEnergyWh != sc.Expected.TotalEnergyWh {
		t.Errorf("scenario %s: total energy %d Wh, want %d", sc.Name, cdr.TotalEnergyWh, sc.Expected.TotalEnergyWh)
	}
	if sc.Expected.TotalExclVat != "" {
		want := tariff.MustAmount(sc.Expected.TotalExclVat)
		if cdr.TotalCost.ExclVat.Cmp(want) != 0 {
			t.Errorf("scenario %s: total excl vat %s, want %s", sc.Name, cdr.TotalCost.ExclVat, want)
		}
	}
	if sc.Expected.TotalInclVat != "" {
		want := tariff.MustAmount(sc.Expected.TotalInclVat)
		if cdr.TotalCost.InclVat.Cmp(want) != 0 {
			t.Errorf("scenario %s: total incl vat %s, want %s", sc.Name, cdr.TotalCost.InclVat, want)
		}
	}
	if sc.Expected.Elements != 0 && len(cdr.Elements) != sc.Expected.Elements {
		t.Errorf("scenario %s: %d invoice elements, want %d", sc.Name, len(cdr.Elements), sc.Expected.Elements)
	}
}
