package inventory

import (
	"errors"
	"testing"

	"github.com/voltgrid/sessiond/core/model"
	"github.com/voltgrid/sessiond/core/session"
	"github.com/voltgrid/sessiond/core/tariff"
)

func TestDirectoryLookup(t *testing.T) {
	d := NewMemoryDirectory()
	d.Add(model.Connector{EvseId: "EVSE-1", Id: 1, Status: model.ConnectorAvailable, TariffId: "basic"})

	c, err := d.Lookup("EVSE-1", 1)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if c.TariffId != "basic" {
		t.Fatalf("unexpected connector %+v", c)
	}
	// the returned record is a copy
	c.Status = model.ConnectorOccupied
	c2, _ := d.Lookup("EVSE-1", 1)
	if c2.Status != model.ConnectorAvailable {
		t.Fatalf("lookup leaked internal state")
	}

	if _, err := d.Lookup("EVSE-9", 1); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("missing connector: %v", err)
	}
}

func TestDirectorySetStatus(t *testing.T) {
	d := NewMemoryDirectory()
	d.Add(model.Connector{EvseId: "EVSE-1", Id: 1, Status: model.ConnectorAvailable})

	if err := d.SetStatus("EVSE-1", 1, model.ConnectorReserved, "alice"); err != nil {
		t.Fatalf("set status: %v", err)
	}
	c, _ := d.Lookup("EVSE-1", 1)
	if c.Status != model.ConnectorReserved || c.ReservedFor != "alice" {
		t.Fatalf("status not applied: %+v", c)
	}
	if err := d.SetStatus("EVSE-9", 1, model.ConnectorReserved, ""); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("missing connector: %v", err)
	}
}

func TestDirectoryListOrdered(t *testing.T) {
	d := NewMemoryDirectory()
	d.Add(model.Connector{EvseId: "EVSE-2", Id: 1})
	d.Add(model.Connector{EvseId: "EVSE-1", Id: 2})
	d.Add(model.Connector{EvseId: "EVSE-1", Id: 1})

	list := d.List()
	if len(list) != 3 {
		t.Fatalf("list length %d", len(list))
	}
	if list[0].EvseId != "EVSE-1" || list[0].Id != 1 || list[2].EvseId != "EVSE-2" {
		t.Fatalf("list out of order: %+v", list)
	}
}

func TestCatalogPutValidates(t *testing.T) {
	c := NewMemoryCatalog()
	bad := &tariff.Tariff{Id: "bad"}
	if err := c.Put(bad); err == nil {
		t.Fatalf("invalid tariff accepted")
	}
	good := &tariff.Tariff{
		Id:       "basic",
		Currency: "EUR",
		Elements: []*tariff.Element{
			{PriceComponents: []*tariff.PriceComponent{{Type: tariff.Energy, Price: tariff.MustAmount("0.25"), Vat: 20}}},
		},
	}
	if err := c.Put(good); err != nil {
		t.Fatalf("valid tariff rejected: %v", err)
	}
	got, err := c.Get("basic")
	if err != nil || got.Id != "basic" {
		t.Fatalf("get: %v", err)
	}
	if _, err := c.Get("missing"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("missing tariff: %v", err)
	}
}
