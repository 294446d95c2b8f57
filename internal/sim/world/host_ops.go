package world

import (
	"fmt"

	"buildsim.ai/internal/sim/world/feature/construction"
	"buildsim.ai/internal/sim/world/feature/economy/unlocks"
)

// Unlock grants a building type without charging gold, as a host event would.
func (w *World) Unlock(buildingID int) error {
	if _, ok := w.cat.Get(buildingID); !ok {
		return fmt.Errorf("%w: %d", construction.ErrUnknownBuilding, buildingID)
	}
	w.ledger.Unlock(buildingID)
	id := buildingID
	w.audit("UNLOCK", nil, &id, 0, 0, nil)
	return nil
}

// AddStock grants free stock. It is a no-op for locked, infinite or
// non-positive requests; the return value is the resulting stock.
func (w *World) AddStock(buildingID, amount int) (int, error) {
	if _, ok := w.cat.Get(buildingID); !ok {
		return 0, fmt.Errorf("%w: %d", construction.ErrUnknownBuilding, buildingID)
	}
	before, _ := w.ledger.Stock(buildingID)
	w.ledger.AddStock(buildingID, amount)
	after, _ := w.ledger.Stock(buildingID)
	if after != before {
		id := buildingID
		w.audit("ADD_STOCK", nil, &id, after-before, 0, nil)
	}
	return after, nil
}

func (w *World) SetTier(raw int) int {
	eff := w.tier.SetTier(raw)
	w.audit("SET_TIER", nil, nil, 0, 0, map[string]any{"requested": raw, "tier": eff})
	return eff
}

// SetVariable writes a host variable directly. Writes to the tier slot are
// re-validated on the next tier read.
func (w *World) SetVariable(id, v int) int {
	w.host.Vars.SetVariable(id, v)
	return w.tier.Current()
}

// Render returns draw directives for every area unlocked at the current tier.
func (w *World) Render() []construction.Placed {
	return w.reg.RenderAll(w.tier.Current())
}

type StateView struct {
	NowMs         int64                   `json:"now_ms"`
	Tier          int                     `json:"tier"`
	MaxTier       int                     `json:"max_tier"`
	Gold          int                     `json:"gold"`
	BuildingMode  bool                    `json:"building_mode"`
	Pending       string                  `json:"pending,omitempty"`
	PendingProfit int                     `json:"pending_profit"`
	Areas         []construction.AreaSave `json:"areas"`
	Unlocked      []int                   `json:"unlocked"`
	FiniteStock   []unlocks.StockEntry    `json:"finite_stock"`
	StateDigest   string                  `json:"state_digest"`
}

func (w *World) State() StateView {
	return StateView{
		NowMs:         w.host.Clock.NowMillis(),
		Tier:          w.tier.Current(),
		MaxTier:       w.tier.MaxTier(),
		Gold:          w.host.Wallet.Gold(),
		BuildingMode:  w.buildingMode,
		Pending:       w.Pending(),
		PendingProfit: w.reg.PendingAll(),
		Areas:         w.reg.Export(),
		Unlocked:      w.ledger.UnlockedIDs(),
		FiniteStock:   w.ledger.FiniteStock(),
		StateDigest:   w.StateDigest(),
	}
}
