package session

import (
	"fmt"

	"github.com/voltgrid/sessiond/core/billing"
	"github.com/voltgrid/sessiond/core/model"
	"github.com/voltgrid/sessiond/core/tariff"
)

// record bundles everything the registry tracks per session: the domain
// entity, the tariff frozen at start, the billing accumulator, the cost
// projection window and, once finalized, the CDR.
type record struct {
	session *model.Session
	tariff  *tariff.Tariff
	engine  *billing.Engine
	cdr     *billing.CDR
	proj    *projection
}

// validateReading checks one incoming meter reading against the previous
// accepted one, or against meter start and session start for the first.
// It returns the priced interval without mutating anything, so a rejected
// update has no side effect.
func (rec *record) validateReading(log model.MeterLog) (tariff.Interval, int64, error) {
	prevValue := rec.session.MeterStart
	prevTime := rec.session.TimeStart
	if last := rec.session.LastLog(); last != nil {
		prevValue = last.MeterValue
		prevTime = last.Timestamp
	}
	if log.MeterValue < prevValue {
		return tariff.Interval{}, 0, fmt.Errorf("%w: meter value %d below %d", ErrOutOfOrderLog, log.MeterValue, prevValue)
	}
	if log.Timestamp.Before(prevTime) {
		return tariff.Interval{}, 0, fmt.Errorf("%w: timestamp %s before %s", ErrOutOfOrderLog, log.Timestamp, prevTime)
	}
	deltaWh := log.MeterValue - prevValue
	iv := tariff.Interval{
		Timestamp:  log.Timestamp,
		Energy:     tariff.EnergyFromWh(deltaWh),
		Duration:   int64(log.Timestamp.Sub(prevTime).Seconds()),
		Elapsed:    int64(log.Timestamp.Sub(rec.session.TimeStart).Seconds()),
		Cumulative: tariff.EnergyFromWh(log.MeterValue - rec.session.MeterStart),
		PowerW:     log.PowerW,
		CurrentA:   log.CurrentA,
	}
	return iv, deltaWh, nil
}

// applyReading matches the interval against the tariff and feeds the billing
// engine. Unmatched intervals contribute zero cost but still count toward
// the delivered total.
func (rec *record) applyReading(log model.MeterLog, iv tariff.Interval, deltaWh int64) {
	rec.engine.AddEnergy(deltaWh)
	if idx := rec.tariff.SelectElement(iv); idx >= 0 {
		rec.engine.Accumulate(idx, iv)
	}
	rec.session.Logs = append(rec.session.Logs, log)
}
