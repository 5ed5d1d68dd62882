package scenarios

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/voltgrid/sessiond/core/tariff"
)

type ComponentDef struct {
	Type     string `yaml:"type"`
	Price    string `yaml:"price"`
	Vat      int    `yaml:"vat"`
	StepSize int    `yaml:"step_size"`
}

func (c ComponentDef) ToModel() (*tariff.PriceComponent, error) {
	price, err := tariff.ParseAmount(c.Price)
	if err != nil {
		return nil, fmt.Errorf("component %s price: %w", c.Type, err)
	}
	return &tariff.PriceComponent{
		Type:     tariff.DimensionType(c.Type),
		Price:    price,
		Vat:      c.Vat,
		StepSize: c.StepSize,
	}, nil
}

type RestrictionsDef struct {
	StartTime string   `yaml:"start_time"`
	EndTime   string   `yaml:"end_time"`
	DayOfWeek []string `yaml:"day_of_week"`
	MinKwh    string   `yaml:"min_kwh"`
	MaxKwh    string   `yaml:"max_kwh"`
	MinPower  int64    `yaml:"min_power"`
	MaxPower  int64    `yaml:"max_power"`
}

func (r *RestrictionsDef) ToModel() (*tariff.Restrictions, error) {
	if r == nil {
		return nil, nil
	}
	out := &tariff.Restrictions{
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		DayOfWeek: r.DayOfWeek,
		MinPower:  r.MinPower,
		MaxPower:  r.MaxPower,
	}
	var err error
	if r.MinKwh != "" {
		if out.MinKwh, err = tariff.ParseAmount(r.MinKwh); err != nil {
			return nil, fmt.Errorf("min_kwh: %w", err)
		}
	}
	if r.MaxKwh != "" {
		if out.MaxKwh, err = tariff.ParseAmount(r.MaxKwh); err != nil {
			return nil, fmt.Errorf("max_kwh: %w", err)
		}
	}
	return out, nil
}

type ElementDef struct {
	Components   []ComponentDef   `yaml:"components"`
	Restrictions *RestrictionsDef `yaml:"restrictions"`
}

func (e ElementDef) ToModel() (*tariff.Element, error) {
	el := &tariff.Element{}
	for _, c := range e.Components {
		pc, err := c.ToModel()
		if err != nil {
			return nil, err
		}
		el.PriceComponents = append(el.PriceComponents, pc)
	}
	var err error
	if el.Restrictions, err = e.Restrictions.ToModel(); err != nil {
		return nil, err
	}
	return el, nil
}

// LogDef is one meter reading, expressed as an offset from session start.
type LogDef struct {
	OffsetSeconds int64 `yaml:"offset_seconds"`
	Value         int64 `yaml:"value"`
	PowerW        int64 `yaml:"power_w"`
	CurrentA      int64 `yaml:"current_a"`
}

type Expected struct {
	TotalEnergyWh int64  `yaml:"total_energy_wh"`
	TotalExclVat  string `yaml:"total_excl_vat"`
	TotalInclVat  string `yaml:"total_incl_vat"`
	Elements      int    `yaml:"elements"`
}

// Scenario is a self-contained pricing case: a tariff, a meter trace and
// the invoice totals it must produce.
type Scenario struct {
	Name           string       `yaml:"name"`
	Currency       string       `yaml:"currency"`
	TimeStart      time.Time    `yaml:"time_start"`
	MeterStart     int64        `yaml:"meter_start"`
	MeterStop      int64        `yaml:"meter_stop"`
	StopOffset     int64        `yaml:"stop_offset_seconds"`
	ParkingSeconds int64        `yaml:"parking_seconds"`
	MinPrice       string       `yaml:"min_price"`
	MaxPrice       string       `yaml:"max_price"`
	Elements       []ElementDef `yaml:"elements"`
	Logs           []LogDef     `yaml:"logs"`
	Expected       Expected     `yaml:"expected"`
}

// Tariff assembles the scenario's pricing definition and validates it.
func (sc *Scenario) Tariff() (*tariff.Tariff, error) {
	t := &tariff.Tariff{Id: sc.Name, Currency: sc.Currency}
	for i, e := range sc.Elements {
		el, err := e.ToModel()
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		t.Elements = append(t.Elements, el)
	}
	if sc.MinPrice != "" {
		excl, err := tariff.ParseAmount(sc.MinPrice)
		if err != nil {
			return nil, fmt.Errorf("min_price: %w", err)
		}
		t.MinPrice = &tariff.Price{ExclVat: excl, InclVat: excl}
	}
	if sc.MaxPrice != "" {
		excl, err := tariff.ParseAmount(sc.MaxPrice)
		if err != nil {
			return nil, fmt.Errorf("max_price: %w", err)
		}
		t.MaxPrice = &tariff.Price{ExclVat: excl, InclVat: excl}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}
