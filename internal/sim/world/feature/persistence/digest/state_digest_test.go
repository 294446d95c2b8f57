package digest

import (
	"testing"

	"buildsim.ai/internal/sim/world/feature/construction"
	"buildsim.ai/internal/sim/world/feature/economy/unlocks"
)

func TestStateDigestIgnoresOrder(t *testing.T) {
	occ := 2
	a := StateInput{
		Areas: []construction.AreaSave{
			{MapID: 1, EventID: 2, MinTier: 1, Occupant: &occ, LastAccrualMs: 10},
			{MapID: 1, EventID: 1, MinTier: 3},
		},
		Unlocked:    []int{2, 0},
		FiniteStock: []unlocks.StockEntry{{BuildingID: 2, Amount: 4}},
		Gold:        90,
		Tier:        2,
	}
	b := a
	b.Areas = []construction.AreaSave{a.Areas[1], a.Areas[0]}
	b.Unlocked = []int{0, 2}
	if StateDigest(a) != StateDigest(b) {
		t.Fatalf("digest depends on input order")
	}
	if a.Areas[0].EventID != 2 {
		t.Fatalf("input slice was reordered")
	}
}

func TestStateDigestSensitivity(t *testing.T) {
	occ := 0
	base := StateInput{
		Areas: []construction.AreaSave{{MapID: 1, EventID: 1, MinTier: 1}},
		Gold:  10,
		Tier:  1,
	}
	d := StateDigest(base)

	changed := []func(in *StateInput){
		func(in *StateInput) { in.Gold = 11 },
		func(in *StateInput) { in.Tier = 2 },
		func(in *StateInput) { in.Areas = []construction.AreaSave{{MapID: 1, EventID: 1, MinTier: 1, Occupant: &occ}} },
		func(in *StateInput) { in.Unlocked = []int{0} },
		func(in *StateInput) { in.FiniteStock = []unlocks.StockEntry{{BuildingID: 1, Amount: 1}} },
	}
	for i, mut := range changed {
		in := base
		mut(&in)
		if StateDigest(in) == d {
			t.Fatalf("mutation %d did not change digest", i)
		}
	}
}
