package tariff

import (
	"testing"
	"time"
)

func at(hour, minute int) Interval {
	// 2026-03-02 is a Monday
	return Interval{Timestamp: time.Date(2026, 3, 2, hour, minute, 0, 0, time.UTC)}
}

func TestAcceptsClockWindow(t *testing.T) {
	r := &Restrictions{StartTime: "19:00", EndTime: "23:30"}
	cases := []struct {
		h, m int
		want bool
	}{
		{18, 59, false},
		{19, 0, true},
		{21, 15, true},
		{23, 30, true},
		{23, 31, false},
		{2, 0, false},
	}
	for _, c := range cases {
		if got := r.Accepts(at(c.h, c.m)); got != c.want {
			t.Errorf("%02d:%02d: got %v want %v", c.h, c.m, got, c.want)
		}
	}
}

func TestAcceptsClockWrapsMidnight(t *testing.T) {
	r := &Restrictions{StartTime: "22:00", EndTime: "06:00"}
	if !r.Accepts(at(23, 0)) {
		t.Fatalf("23:00 should be inside a 22:00-06:00 window")
	}
	if !r.Accepts(at(3, 0)) {
		t.Fatalf("03:00 should be inside a 22:00-06:00 window")
	}
	if r.Accepts(at(12, 0)) {
		t.Fatalf("12:00 should be outside a 22:00-06:00 window")
	}
}

func TestAcceptsDayOfWeek(t *testing.T) {
	r := &Restrictions{DayOfWeek: []string{"SATURDAY", "SUNDAY"}}
	if r.Accepts(at(12, 0)) {
		t.Fatalf("monday accepted by weekend restriction")
	}
	sat := Interval{Timestamp: time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)}
	if !r.Accepts(sat) {
		t.Fatalf("saturday rejected by weekend restriction")
	}
}

func TestAcceptsDateRange(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	r := &Restrictions{StartDate: start.Unix(), EndDate: end.Unix()}
	if !r.Accepts(at(12, 0)) {
		t.Fatalf("date inside range rejected")
	}
	old := Interval{Timestamp: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	if r.Accepts(old) {
		t.Fatalf("date before range accepted")
	}
}

func TestAcceptsEnergyTier(t *testing.T) {
	low := &Restrictions{MaxKwh: MustAmount("3")}
	high := &Restrictions{MinKwh: MustAmount("3")}

	iv := at(12, 0)
	iv.Cumulative = MustAmount("2.8")
	if !low.Accepts(iv) || high.Accepts(iv) {
		t.Fatalf("2.8 kWh should sit in the low tier only")
	}
	// bounds are inclusive on both sides
	iv.Cumulative = MustAmount("3")
	if !low.Accepts(iv) || !high.Accepts(iv) {
		t.Fatalf("3 kWh should satisfy both tiers")
	}
	iv.Cumulative = MustAmount("3.2")
	if low.Accepts(iv) || !high.Accepts(iv) {
		t.Fatalf("3.2 kWh should sit in the high tier only")
	}
}

func TestAcceptsPowerAndDuration(t *testing.T) {
	r := &Restrictions{MinPower: 1000, MaxDuration: 3600}
	iv := at(12, 0)
	iv.PowerW = 2000
	iv.Elapsed = 100
	if !r.Accepts(iv) {
		t.Fatalf("interval within power and duration bounds rejected")
	}
	iv.PowerW = 500
	if r.Accepts(iv) {
		t.Fatalf("under minimum power accepted")
	}
	iv.PowerW = 2000
	iv.Elapsed = 7200
	if r.Accepts(iv) {
		t.Fatalf("over maximum duration accepted")
	}
}

func TestUnsetDimensionsAcceptEverything(t *testing.T) {
	r := &Restrictions{}
	iv := at(4, 30)
	iv.Cumulative = MustAmount("999")
	iv.PowerW = 1
	iv.Elapsed = 1 << 40
	if !r.Accepts(iv) {
		t.Fatalf("empty restrictions must accept any interval")
	}
}

func TestSelectElementFirstMatchWins(t *testing.T) {
	tr := &Tariff{
		Id:       "tiered",
		Currency: "EUR",
		Elements: []*Element{
			{
				PriceComponents: []*PriceComponent{{Type: Energy, Price: MustAmount("0.25"), Vat: 20}},
				Restrictions:    &Restrictions{MaxKwh: MustAmount("3")},
			},
			{
				PriceComponents: []*PriceComponent{{Type: Energy, Price: MustAmount("0.20"), Vat: 20}},
			},
		},
	}
	iv := at(12, 0)
	iv.Cumulative = MustAmount("3")
	if idx := tr.SelectElement(iv); idx != 0 {
		t.Fatalf("boundary interval should match the first element, got %d", idx)
	}
	iv.Cumulative = MustAmount("3.2")
	if idx := tr.SelectElement(iv); idx != 1 {
		t.Fatalf("post boundary interval should fall through, got %d", idx)
	}
}

func TestSelectElementNoMatch(t *testing.T) {
	tr := &Tariff{
		Id:       "nights",
		Currency: "EUR",
		Elements: []*Element{
			{
				PriceComponents: []*PriceComponent{{Type: Energy, Price: MustAmount("0.10"), Vat: 20}},
				Restrictions:    &Restrictions{StartTime: "19:00", EndTime: "23:30"},
			},
		},
	}
	if idx := tr.SelectElement(at(12, 0)); idx != -1 {
		t.Fatalf("daytime interval should match nothing, got %d", idx)
	}
}

func TestParseClock(t *testing.T) {
	m, err := parseClock("19:05")
	if err != nil || m != 19*60+5 {
		t.Fatalf("parse 19:05: %d %v", m, err)
	}
	for _, s := range []string{"25:00", "12:75", "noon"} {
		if _, err := parseClock(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}

func TestRestrictionsValidate(t *testing.T) {
	bad := &Restrictions{StartTime: "24:99"}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for bad start_time")
	}
	bad = &Restrictions{DayOfWeek: []string{"FUNDAY"}}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for bad day_of_week")
	}
	good := &Restrictions{StartTime: "19:00", EndTime: "23:30", DayOfWeek: []string{"MONDAY"}}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid restrictions rejected: %v", err)
	}
}
