package tariff

import (
	"fmt"
	"time"
)

// Restrictions gate a tariff element. Every set dimension must accept a
// reading for the element to apply; unset dimensions accept everything.
// All bounds are inclusive. A zero min and max on a numeric tier means the
// tier is unbounded.
type Restrictions struct {
	// StartTime and EndTime bound the wall-clock time of day, "15:04" format.
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	// StartDate and EndDate bound the calendar date as unix seconds, 0 meaning
	// unbounded on that side.
	StartDate int64 `json:"start_date,omitempty"`
	EndDate   int64 `json:"end_date,omitempty"`
	// DayOfWeek lists accepted days by OCPI name; empty accepts all days.
	DayOfWeek []string `json:"day_of_week,omitempty"`
	// MinKwh and MaxKwh bound the cumulative session energy after the reading
	// is applied, so a single delta never straddles a tier boundary.
	MinKwh *Amount `json:"min_kwh,omitempty"`
	MaxKwh *Amount `json:"max_kwh,omitempty"`
	// MinCurrent and MaxCurrent bound the instantaneous current in amperes.
	MinCurrent int64 `json:"min_current,omitempty"`
	MaxCurrent int64 `json:"max_current,omitempty"`
	// MinPower and MaxPower bound the instantaneous power in watts.
	MinPower int64 `json:"min_power,omitempty"`
	MaxPower int64 `json:"max_power,omitempty"`
	// MinDuration and MaxDuration bound the elapsed session duration in seconds.
	MinDuration int64 `json:"min_duration,omitempty"`
	MaxDuration int64 `json:"max_duration,omitempty"`
}

var dayNames = map[string]time.Weekday{
	"MONDAY":    time.Monday,
	"TUESDAY":   time.Tuesday,
	"WEDNESDAY": time.Wednesday,
	"THURSDAY":  time.Thursday,
	"FRIDAY":    time.Friday,
	"SATURDAY":  time.Saturday,
	"SUNDAY":    time.Sunday,
}

// Interval is one meter-reading delta presented to the matcher.
type Interval struct {
	// Timestamp is the wall-clock time of the reading.
	Timestamp time.Time
	// Energy is the 1e18-scaled kWh delivered since the previous reading.
	Energy *Amount
	// Duration is the seconds elapsed since the previous reading.
	Duration int64
	// Elapsed is the seconds elapsed since session start, post delta.
	Elapsed int64
	// Cumulative is the 1e18-scaled kWh delivered since session start,
	// including this delta.
	Cumulative *Amount
	// PowerW and CurrentA are the instantaneous readings.
	PowerW   int64
	CurrentA int64
}

// Validate checks the restriction definition itself.
func (r *Restrictions) Validate() error {
	if _, err := parseClock(r.StartTime); r.StartTime != "" && err != nil {
		return fmt.Errorf("start_time: %w", err)
	}
	if _, err := parseClock(r.EndTime); r.EndTime != "" && err != nil {
		return fmt.Errorf("end_time: %w", err)
	}
	for _, d := range r.DayOfWeek {
		if _, ok := dayNames[d]; !ok {
			return fmt.Errorf("unknown day_of_week %q", d)
		}
	}
	return nil
}

// Accepts reports whether every set dimension accepts the interval.
func (r *Restrictions) Accepts(iv Interval) bool {
	if !r.acceptsClock(iv.Timestamp) {
		return false
	}
	if !r.acceptsDate(iv.Timestamp) {
		return false
	}
	if !r.acceptsDay(iv.Timestamp) {
		return false
	}
	if !acceptsAmountTier(r.MinKwh, r.MaxKwh, iv.Cumulative) {
		return false
	}
	if !acceptsIntTier(r.MinCurrent, r.MaxCurrent, iv.CurrentA) {
		return false
	}
	if !acceptsIntTier(r.MinPower, r.MaxPower, iv.PowerW) {
		return false
	}
	return acceptsIntTier(r.MinDuration, r.MaxDuration, iv.Elapsed)
}

func (r *Restrictions) acceptsClock(ts time.Time) bool {
	if r.StartTime == "" && r.EndTime == "" {
		return true
	}
	minute := ts.Hour()*60 + ts.Minute()
	start := 0
	end := 24*60 - 1
	if r.StartTime != "" {
		start, _ = parseClock(r.StartTime)
	}
	if r.EndTime != "" {
		end, _ = parseClock(r.EndTime)
	}
	if start <= end {
		return minute >= start && minute <= end
	}
	// window wraps midnight
	return minute >= start || minute <= end
}

func (r *Restrictions) acceptsDate(ts time.Time) bool {
	unix := ts.Unix()
	if r.StartDate != 0 && unix < r.StartDate {
		return false
	}
	if r.EndDate != 0 && unix > r.EndDate {
		return false
	}
	return true
}

func (r *Restrictions) acceptsDay(ts time.Time) bool {
	if len(r.DayOfWeek) == 0 {
		return true
	}
	for _, d := range r.DayOfWeek {
		if wd, ok := dayNames[d]; ok && wd == ts.Weekday() {
			return true
		}
	}
	return false
}

func acceptsIntTier(min, max, v int64) bool {
	if min != 0 && v < min {
		return false
	}
	if max != 0 && v > max {
		return false
	}
	return true
}

func acceptsAmountTier(min, max, v *Amount) bool {
	if !min.IsZero() && v.Cmp(min) < 0 {
		return false
	}
	if !max.IsZero() && v.Cmp(max) > 0 {
		return false
	}
	return true
}

// parseClock converts "15:04" into minutes from midnight.
func parseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock value %q out of range", s)
	}
	return h*60 + m, nil
}
