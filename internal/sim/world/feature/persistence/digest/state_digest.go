package digest

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"

	"buildsim.ai/internal/sim/world/feature/construction"
	"buildsim.ai/internal/sim/world/feature/economy/unlocks"
)

// StateInput is everything a save restores. Slices may be in any order.
type StateInput struct {
	Areas       []construction.AreaSave
	Unlocked    []int
	FiniteStock []unlocks.StockEntry
	Gold        int
	Tier        int
}

// StateDigest hashes in with a fixed field order, so two worlds with equal
// restorable state produce the same digest.
func StateDigest(in StateInput) string {
	h := sha256.New()
	var tmp [8]byte

	writeI64(h, &tmp, int64(in.Gold))
	writeI64(h, &tmp, int64(in.Tier))

	areas := append([]construction.AreaSave(nil), in.Areas...)
	sort.Slice(areas, func(i, j int) bool {
		if areas[i].MapID != areas[j].MapID {
			return areas[i].MapID < areas[j].MapID
		}
		return areas[i].EventID < areas[j].EventID
	})
	writeI64(h, &tmp, int64(len(areas)))
	for _, a := range areas {
		writeI64(h, &tmp, int64(a.MapID))
		writeI64(h, &tmp, int64(a.EventID))
		writeI64(h, &tmp, int64(a.MinTier))
		if a.Occupant != nil {
			h.Write([]byte{1})
			writeI64(h, &tmp, int64(*a.Occupant))
		} else {
			h.Write([]byte{0})
		}
		writeI64(h, &tmp, a.LastAccrualMs)
	}

	ids := append([]int(nil), in.Unlocked...)
	sort.Ints(ids)
	writeI64(h, &tmp, int64(len(ids)))
	for _, id := range ids {
		writeI64(h, &tmp, int64(id))
	}

	stock := append([]unlocks.StockEntry(nil), in.FiniteStock...)
	sort.Slice(stock, func(i, j int) bool { return stock[i].BuildingID < stock[j].BuildingID })
	writeI64(h, &tmp, int64(len(stock)))
	for _, e := range stock {
		writeI64(h, &tmp, int64(e.BuildingID))
		writeI64(h, &tmp, int64(e.Amount))
	}

	return hex.EncodeToString(h.Sum(nil))
}

type hashWriter interface {
	Write(p []byte) (n int, err error)
}

func writeI64(h hashWriter, tmp *[8]byte, v int64) {
	binary.LittleEndian.PutUint64(tmp[:], uint64(v))
	h.Write(tmp[:])
}
