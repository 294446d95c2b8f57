package world

import (
	"testing"

	"buildsim.ai/internal/sim/catalogs"
	"buildsim.ai/internal/sim/host"
	"buildsim.ai/internal/sim/tuning"
	"buildsim.ai/internal/sim/world/feature/construction"
)

const (
	bRoad    = 0 // infinite, walkable
	bCottage = 1 // infinite, 100/h
	bStall   = 2 // finite, linked event 3
	bCastle  = 3 // infinite, shop tier 3
)

type testRig struct {
	w     *World
	clock *host.ManualClock
	purse *host.Purse
	vars  *host.VariableTable
	audit *memAudit
}

type memAudit struct{ entries []AuditEntry }

func (m *memAudit) WriteAudit(e AuditEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *memAudit) actions() []string {
	var out []string
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

func testCatalog() *catalogs.Catalog {
	ev := 3
	return catalogs.New([]catalogs.BuildingDef{
		{Name: "Road", Image: "road", Walkable: true, ConstructionCost: 10, ShopCost: 50},
		{Name: "Cottage", Image: "cottage", ConstructionCost: 100, HourlyProfit: 100, ShopCost: 300},
		{Name: "Stall", Image: "stall", ConstructionCost: 50, HourlyProfit: 40, ShopCost: 20, FiniteStock: true, LinkedEventID: &ev},
		{Name: "Castle", Image: "castle", ConstructionCost: 1, ShopCost: 1, MinShopTier: 3},
	})
}

func newRig(t *testing.T, gold int) *testRig {
	t.Helper()
	r := &testRig{
		clock: host.NewManualClock(0),
		purse: host.NewPurse(gold),
		vars:  host.NewVariableTable(),
		audit: &memAudit{},
	}
	cfg := tuning.Defaults()
	cfg.EmptyAreaSprite = "site"
	cfg.AutosaveEveryMs = 0
	w, err := New(cfg, testCatalog(), Host{Clock: r.clock, Wallet: r.purse, Vars: r.vars})
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	w.SetAuditLogger(r.audit)
	r.w = w
	return r
}

func loc(m, e int) construction.Location { return construction.Location{MapID: m, EventID: e} }

func mustNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
