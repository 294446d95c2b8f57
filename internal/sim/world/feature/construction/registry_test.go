package construction

import (
	"errors"
	"testing"
	"time"

	"buildsim.ai/internal/sim/catalogs"
	"buildsim.ai/internal/sim/host"
	"buildsim.ai/internal/sim/world/logic/accrual"
)

const (
	road    = 0
	cottage = 1
	farm    = 2
)

const h = accrual.HourMs

func testCatalog() *catalogs.Catalog {
	return catalogs.New([]catalogs.BuildingDef{
		{Name: "Road", Image: "road", Walkable: true, ConstructionCost: 10, ShopCost: 50},
		{Name: "Cottage", Image: "cottage", HourlyProfit: 100, ConstructionCost: 100, ShopCost: 300},
		{Name: "Farm", Image: "farm", HourlyProfit: 50, ConstructionCost: 250, ShopCost: 1000},
	})
}

func newRegistry(clock host.Clock) *Registry {
	return NewRegistry(testCatalog(), clock, Options{EmptySprite: "site", AccrualUnitMs: h})
}

func TestRegisterAreaIdempotent(t *testing.T) {
	clock := host.NewManualClock(1000)
	r := newRegistry(clock)
	loc := Location{MapID: 1, EventID: 4}

	a := r.RegisterArea(loc, 2)
	if a.MinTier != 2 || a.LastAccrualMs != 1000 || a.Occupied() {
		t.Fatalf("unexpected new area %+v", a)
	}
	clock.Advance(time.Hour)
	b := r.RegisterArea(loc, 5)
	if b.MinTier != 2 || b.LastAccrualMs != 1000 {
		t.Fatalf("re-registration must not change the area, got %+v", b)
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 area, got %d", r.Len())
	}

	c := r.RegisterArea(Location{MapID: 1, EventID: 5}, 0)
	if c.MinTier != 1 {
		t.Fatalf("expected min tier normalised to 1, got %d", c.MinTier)
	}
}

func TestRenderRespectsTierAndOccupant(t *testing.T) {
	r := newRegistry(host.NewManualClock(0))
	loc := Location{MapID: 1, EventID: 1}
	r.RegisterArea(loc, 3)

	if _, ok := r.Render(loc, 2); ok {
		t.Fatalf("expected nothing rendered below min tier")
	}
	d, ok := r.Render(loc, 3)
	if !ok || d.SpriteRef != "site" || !d.Walkable {
		t.Fatalf("expected walkable construction site, got %+v ok=%v", d, ok)
	}
	if err := r.Construct(loc, cottage); err != nil {
		t.Fatalf("construct: %v", err)
	}
	d, _ = r.Render(loc, 5)
	if d.SpriteRef != "cottage" || d.Walkable {
		t.Fatalf("expected cottage sprite, not walkable, got %+v", d)
	}
	if _, ok := r.Render(Location{MapID: 9, EventID: 9}, 5); ok {
		t.Fatalf("expected unknown location not rendered")
	}
}

func TestRenderAllSortedAndFiltered(t *testing.T) {
	r := newRegistry(host.NewManualClock(0))
	r.RegisterArea(Location{MapID: 2, EventID: 1}, 1)
	r.RegisterArea(Location{MapID: 1, EventID: 7}, 4)
	r.RegisterArea(Location{MapID: 1, EventID: 3}, 1)

	got := r.RenderAll(1)
	if len(got) != 2 {
		t.Fatalf("expected 2 placed at tier 1, got %d", len(got))
	}
	if got[0].Location.String() != "1:3" || got[1].Location.String() != "2:1" {
		t.Fatalf("unexpected order %v", got)
	}
	if n := len(r.RenderAll(4)); n != 3 {
		t.Fatalf("expected 3 placed at tier 4, got %d", n)
	}
}

func TestConstructErrors(t *testing.T) {
	r := newRegistry(host.NewManualClock(0))
	loc := Location{MapID: 1, EventID: 1}
	if err := r.Construct(loc, road); !errors.Is(err, ErrAreaNotFound) {
		t.Fatalf("expected ErrAreaNotFound, got %v", err)
	}
	r.RegisterArea(loc, 1)
	if err := r.Construct(loc, 42); !errors.Is(err, ErrUnknownBuilding) {
		t.Fatalf("expected ErrUnknownBuilding, got %v", err)
	}
	if err := r.Construct(loc, road); err != nil {
		t.Fatalf("construct: %v", err)
	}
	if err := r.Construct(loc, cottage); !errors.Is(err, ErrOccupied) {
		t.Fatalf("expected ErrOccupied, got %v", err)
	}
	a, _ := r.Get(loc)
	if *a.Occupant != road {
		t.Fatalf("occupant changed after failed construct: %d", *a.Occupant)
	}
}

func TestRemoveAfterOneHour(t *testing.T) {
	clock := host.NewManualClock(0)
	r := newRegistry(clock)
	loc := Location{MapID: 1, EventID: 1}
	r.RegisterArea(loc, 1)
	if err := r.Construct(loc, cottage); err != nil {
		t.Fatalf("construct: %v", err)
	}
	clock.Advance(time.Hour)

	if q, err := r.Pending(loc); err != nil || q != 100 {
		t.Fatalf("expected quote 100, got %d err=%v", q, err)
	}
	profit, err := r.Remove(loc)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if profit != 100 {
		t.Fatalf("expected 100, got %d", profit)
	}
	a, _ := r.Get(loc)
	if a.Occupied() || a.LastAccrualMs != h {
		t.Fatalf("expected empty area stamped at 1h, got %+v", a)
	}
	if _, err := r.Remove(loc); !errors.Is(err, ErrEmptyArea) {
		t.Fatalf("expected ErrEmptyArea, got %v", err)
	}
	if _, err := r.Pending(loc); !errors.Is(err, ErrEmptyArea) {
		t.Fatalf("expected ErrEmptyArea from Pending, got %v", err)
	}
}

func TestCollectAllResamplesClock(t *testing.T) {
	// Every clock read advances one hour.
	clock := host.NewSteppingClock(0, h)
	r := newRegistry(clock)
	a := Location{MapID: 1, EventID: 1}
	b := Location{MapID: 1, EventID: 2}
	empty := Location{MapID: 1, EventID: 3}
	r.RegisterArea(a, 1)     // t=0
	r.RegisterArea(b, 1)     // t=1h
	r.Construct(a, cottage)  // t=2h
	r.Construct(b, farm)     // t=3h
	r.RegisterArea(empty, 1) // t=4h

	// Sum at t1=5h: a 3h*100, b 2h*50. Reset at t2=6h.
	if got := r.CollectAll(); got != 400 {
		t.Fatalf("expected 400, got %d", got)
	}
	for _, loc := range []Location{a, b} {
		ar, _ := r.Get(loc)
		if ar.LastAccrualMs != 6*h {
			t.Fatalf("%s: expected reset at 6h, got %d", loc, ar.LastAccrualMs)
		}
	}
	if e, _ := r.Get(empty); e.LastAccrualMs != 4*h {
		t.Fatalf("empty area must not be re-stamped, got %d", e.LastAccrualMs)
	}
	// PendingAll samples t=7h.
	if got := r.PendingAll(); got != 150 {
		t.Fatalf("expected 150, got %d", got)
	}
}

func TestTimestampNeverMovesBackward(t *testing.T) {
	clock := host.NewManualClock(10 * h)
	r := newRegistry(clock)
	loc := Location{MapID: 1, EventID: 1}
	r.RegisterArea(loc, 1)
	r.Construct(loc, cottage)

	clock.Set(2 * h)
	profit, err := r.Remove(loc)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if profit != 0 {
		t.Fatalf("expected 0 for backward clock, got %d", profit)
	}
	a, _ := r.Get(loc)
	if a.LastAccrualMs != 10*h {
		t.Fatalf("timestamp moved backward to %d", a.LastAccrualMs)
	}
	r.Construct(loc, cottage)
	if got := r.CollectAll(); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	a, _ = r.Get(loc)
	if a.LastAccrualMs != 10*h {
		t.Fatalf("timestamp moved backward to %d", a.LastAccrualMs)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	r := newRegistry(host.NewManualClock(0))
	loc := Location{MapID: 3, EventID: 3}
	r.RegisterArea(loc, 1)
	r.Construct(loc, road)
	a, _ := r.Get(loc)
	*a.Occupant = farm
	b, _ := r.Get(loc)
	if *b.Occupant != road {
		t.Fatalf("registry mutated through returned area")
	}
}

func TestExportImport(t *testing.T) {
	clock := host.NewManualClock(5 * h)
	r := newRegistry(clock)
	r.RegisterArea(Location{MapID: 1, EventID: 2}, 2)
	r.RegisterArea(Location{MapID: 1, EventID: 1}, 1)
	r.Construct(Location{MapID: 1, EventID: 2}, farm)

	saved := r.Export()
	if len(saved) != 2 || saved[0].EventID != 1 || saved[1].Occupant == nil || *saved[1].Occupant != farm {
		t.Fatalf("unexpected export %+v", saved)
	}

	other := newRegistry(host.NewManualClock(0))
	if err := other.Import(saved); err != nil {
		t.Fatalf("import: %v", err)
	}
	a, ok := other.Get(Location{MapID: 1, EventID: 2})
	if !ok || a.MinTier != 2 || a.LastAccrualMs != 5*h || *a.Occupant != farm {
		t.Fatalf("unexpected imported area %+v", a)
	}

	bad := append(saved, AreaSave{MapID: 1, EventID: 1})
	if err := other.Import(bad); err == nil {
		t.Fatalf("expected duplicate location error")
	}
	unknown := 99
	if err := other.Import([]AreaSave{{MapID: 4, EventID: 4, Occupant: &unknown}}); !errors.Is(err, ErrUnknownBuilding) {
		t.Fatalf("expected ErrUnknownBuilding, got %v", err)
	}
	if other.Len() != 2 {
		t.Fatalf("failed import must not modify registry, len=%d", other.Len())
	}
}
