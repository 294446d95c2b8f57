package world

import (
	"fmt"
	"sort"

	"buildsim.ai/internal/persistence/snapshot"
	"buildsim.ai/internal/sim/world/feature/construction"
	"buildsim.ai/internal/sim/world/feature/economy/unlocks"
	"buildsim.ai/internal/sim/world/feature/persistence/digest"
)

// SaveSnapshot is the core simulation state written into a host save. The
// tier is not part of it: it lives in the host variable table.
type SaveSnapshot struct {
	Areas               []construction.AreaSave `json:"areas"`
	UnlockedBuildingIDs []int                   `json:"unlocked_building_ids"`
	FiniteStock         []unlocks.StockEntry    `json:"finite_stock"`
}

func (w *World) ExportSave() SaveSnapshot {
	return SaveSnapshot{
		Areas:               w.reg.Export(),
		UnlockedBuildingIDs: w.ledger.UnlockedIDs(),
		FiniteStock:         w.ledger.FiniteStock(),
	}
}

// ImportSave replaces registry and ledger contents and drops any pending
// transaction. On error nothing is changed.
func (w *World) ImportSave(s SaveSnapshot) error {
	if err := w.reg.Import(s.Areas); err != nil {
		return fmt.Errorf("import save: %w", err)
	}
	w.ledger.Restore(s.UnlockedBuildingIDs, s.FiniteStock)
	w.clearPending()
	w.buildingMode = false
	return nil
}

// ExportSnapshot wraps the core save together with the host section.
func (w *World) ExportSnapshot(savedAtMs int64) snapshot.SnapshotV1 {
	core := w.ExportSave()
	areas := make([]snapshot.AreaV1, 0, len(core.Areas))
	for _, a := range core.Areas {
		areas = append(areas, snapshot.AreaV1{
			MapID:         a.MapID,
			EventID:       a.EventID,
			MinTier:       a.MinTier,
			Occupant:      a.Occupant,
			LastAccrualMs: a.LastAccrualMs,
		})
	}
	stock := make([]snapshot.StockV1, 0, len(core.FiniteStock))
	for _, e := range core.FiniteStock {
		stock = append(stock, snapshot.StockV1{BuildingID: e.BuildingID, Amount: e.Amount})
	}
	return snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version:   snapshot.Version,
			SaveID:    fmt.Sprintf("save_%d", savedAtMs),
			SavedAtMs: savedAtMs,
		},
		CatalogDigest: w.cat.Digest,
		StateDigest:   w.stateDigest(core),
		Core: snapshot.CoreV1{
			Areas:               areas,
			UnlockedBuildingIDs: core.UnlockedBuildingIDs,
			FiniteStock:         stock,
		},
		Host: snapshot.HostV1{
			Gold:      w.host.Wallet.Gold(),
			Variables: w.exportVariables(),
		},
	}
}

// ImportSnapshot loads the core state, then the host section. The tier is
// re-read from the restored variable table.
func (w *World) ImportSnapshot(snap snapshot.SnapshotV1) error {
	if snap.CatalogDigest != "" && snap.CatalogDigest != w.cat.Digest {
		w.logf("save %s was written against catalog %s, running %s", snap.Header.SaveID, snap.CatalogDigest, w.cat.Digest)
	}
	core := SaveSnapshot{
		Areas:               make([]construction.AreaSave, 0, len(snap.Core.Areas)),
		UnlockedBuildingIDs: snap.Core.UnlockedBuildingIDs,
		FiniteStock:         make([]unlocks.StockEntry, 0, len(snap.Core.FiniteStock)),
	}
	for _, a := range snap.Core.Areas {
		core.Areas = append(core.Areas, construction.AreaSave{
			MapID:         a.MapID,
			EventID:       a.EventID,
			MinTier:       a.MinTier,
			Occupant:      a.Occupant,
			LastAccrualMs: a.LastAccrualMs,
		})
	}
	for _, e := range snap.Core.FiniteStock {
		core.FiniteStock = append(core.FiniteStock, unlocks.StockEntry{BuildingID: e.BuildingID, Amount: e.Amount})
	}

	if err := w.ImportSave(core); err != nil {
		return err
	}

	ids := make([]int, 0, len(snap.Host.Variables))
	for id := range snap.Host.Variables {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		w.host.Vars.SetVariable(id, snap.Host.Variables[id])
	}
	w.setGold(snap.Host.Gold)
	w.tier.Current()

	// Restore sanitizes entries the running catalog cannot hold.
	if snap.StateDigest != "" {
		if got := w.StateDigest(); got != snap.StateDigest {
			w.logf("save %s restored with adjustments: digest %s, saved %s", snap.Header.SaveID, got, snap.StateDigest)
		}
	}

	w.audit("IMPORT_SAVE", nil, nil, 0, 0, map[string]any{"save_id": snap.Header.SaveID})
	return nil
}

// StateDigest fingerprints everything a save restores.
func (w *World) StateDigest() string { return w.stateDigest(w.ExportSave()) }

func (w *World) stateDigest(core SaveSnapshot) string {
	return digest.StateDigest(digest.StateInput{
		Areas:       core.Areas,
		Unlocked:    core.UnlockedBuildingIDs,
		FiniteStock: core.FiniteStock,
		Gold:        w.host.Wallet.Gold(),
		Tier:        w.tier.Current(),
	})
}

func (w *World) setGold(target int) {
	cur := w.host.Wallet.Gold()
	switch {
	case target > cur:
		w.host.Wallet.GainGold(target - cur)
	case target < cur:
		w.host.Wallet.LoseGold(cur - target)
	}
}

// exportVariables needs a host table that can enumerate itself; otherwise
// only the tier slot is saved.
func (w *World) exportVariables() map[int]int {
	if e, ok := w.host.Vars.(interface{ Export() map[int]int }); ok {
		return e.Export()
	}
	slot := w.tier.Variable()
	return map[int]int{slot: w.host.Vars.Variable(slot)}
}
