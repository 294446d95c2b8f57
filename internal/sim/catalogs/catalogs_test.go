package catalogs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRepoCatalog(t *testing.T) {
	cat, err := Load(filepath.Join("..", "..", "..", "configs"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cat.Len() == 0 {
		t.Fatalf("expected buildings")
	}
	for i, b := range cat.Buildings {
		if b.ID != i {
			t.Fatalf("expected dense id %d got %d", i, b.ID)
		}
		if b.MinShopTier < 1 {
			t.Fatalf("%s: min_shop_tier must be >= 1", b.Name)
		}
	}
	if len(cat.Digest) != 64 {
		t.Fatalf("expected sha256 hex digest, got %q", cat.Digest)
	}
}

func TestParseAssignsIDsAndDefaults(t *testing.T) {
	raw := []byte(`[
	  {"name":"Road","construction_cost":1,"hourly_profit":0,"shop_cost":2,"walkable":true},
	  {"name":"Stall","construction_cost":5,"hourly_profit":3,"shop_cost":7,"finite_stock":true,"min_shop_tier":3,"linked_event_id":4}
	]`)
	cat, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	road, ok := cat.Get(0)
	if !ok || road.Name != "Road" || road.MinShopTier != 1 || !road.Walkable {
		t.Fatalf("unexpected road: %+v", road)
	}
	stall, ok := cat.Get(1)
	if !ok || stall.ID != 1 || !stall.FiniteStock || stall.MinShopTier != 3 {
		t.Fatalf("unexpected stall: %+v", stall)
	}
	if stall.LinkedEventID == nil || *stall.LinkedEventID != 4 {
		t.Fatalf("expected linked event 4, got %v", stall.LinkedEventID)
	}
	if _, ok := cat.Get(2); ok {
		t.Fatalf("expected out of range id to miss")
	}
	if _, ok := cat.Get(-1); ok {
		t.Fatalf("expected negative id to miss")
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":          `[{`,
		"not array":         `{"name":"x"}`,
		"missing name":      `[{"construction_cost":1,"hourly_profit":1,"shop_cost":1}]`,
		"negative cost":     `[{"name":"x","construction_cost":-1,"hourly_profit":1,"shop_cost":1}]`,
		"fractional profit": `[{"name":"x","construction_cost":1,"hourly_profit":1.5,"shop_cost":1}]`,
		"zero tier":         `[{"name":"x","construction_cost":1,"hourly_profit":1,"shop_cost":1,"min_shop_tier":0}]`,
		"unknown field":     `[{"name":"x","construction_cost":1,"hourly_profit":1,"shop_cost":1,"color":"red"}]`,
	}
	for name, raw := range cases {
		if _, err := Parse([]byte(raw)); !errors.Is(err, ErrMalformed) {
			t.Fatalf("%s: expected ErrMalformed, got %v", name, err)
		}
	}
}

func TestLoadMissingFileIsNotMalformed(t *testing.T) {
	_, err := Load(t.TempDir())
	if err == nil {
		t.Fatalf("expected error")
	}
	if errors.Is(err, ErrMalformed) {
		t.Fatalf("missing file should not be reported as malformed")
	}
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestNewReassignsIDs(t *testing.T) {
	cat := New([]BuildingDef{{ID: 9, Name: "A"}, {ID: 9, Name: "B", MinShopTier: 2}})
	if cat.Buildings[0].ID != 0 || cat.Buildings[1].ID != 1 {
		t.Fatalf("expected dense ids, got %+v", cat.Buildings)
	}
	if cat.Buildings[0].MinShopTier != 1 {
		t.Fatalf("expected default tier 1")
	}
	if cat.Digest == "" {
		t.Fatalf("expected digest")
	}
}
