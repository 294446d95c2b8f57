package unlocks

import (
	"math"
	"sort"

	"buildsim.ai/internal/sim/catalogs"
)

// Ledger records which building types are unlocked and the remaining stock of
// finite ones. A stock entry exists iff the id is unlocked and finite.
type Ledger struct {
	cat      *catalogs.Catalog
	unlocked map[int]struct{}
	stock    map[int]int
}

type StockEntry struct {
	BuildingID int
	Amount     int
}

func New(cat *catalogs.Catalog) *Ledger {
	return &Ledger{
		cat:      cat,
		unlocked: map[int]struct{}{},
		stock:    map[int]int{},
	}
}

func (l *Ledger) finite(id int) (finite bool, known bool) {
	def, ok := l.cat.Get(id)
	if !ok {
		return false, false
	}
	return def.FiniteStock, true
}

// Unlock is idempotent. A newly unlocked finite building starts with zero stock.
func (l *Ledger) Unlock(id int) {
	finite, ok := l.finite(id)
	if !ok {
		return
	}
	if _, dup := l.unlocked[id]; dup {
		return
	}
	l.unlocked[id] = struct{}{}
	if finite {
		l.stock[id] = 0
	}
}

func (l *Ledger) IsUnlocked(id int) bool {
	_, ok := l.unlocked[id]
	return ok
}

// AddStock is a no-op unless id is unlocked, finite and amount is positive.
func (l *Ledger) AddStock(id, amount int) {
	if amount <= 0 {
		return
	}
	l.adjust(id, amount)
}

// ConsumeStock lowers stock by amount, never below zero.
func (l *Ledger) ConsumeStock(id, amount int) {
	if amount <= 0 {
		return
	}
	l.adjust(id, -amount)
}

func (l *Ledger) adjust(id, delta int) {
	if !l.IsUnlocked(id) {
		return
	}
	if finite, _ := l.finite(id); !finite {
		return
	}
	n := l.stock[id]
	switch {
	case delta > 0 && n > math.MaxInt-delta:
		n = math.MaxInt
	case n+delta < 0:
		n = 0
	default:
		n += delta
	}
	l.stock[id] = n
}

// Stock returns the remaining quantity and whether the id tracks stock at all.
func (l *Ledger) Stock(id int) (int, bool) {
	n, ok := l.stock[id]
	return n, ok
}

// IsPurchasable reports whether one more unit can be taken: infinite buildings
// always, finite ones only with stock left.
func (l *Ledger) IsPurchasable(id int) bool {
	finite, ok := l.finite(id)
	if !ok {
		return false
	}
	if !finite {
		return true
	}
	return l.stock[id] > 0
}

func (l *Ledger) UnlockedIDs() []int {
	ids := make([]int, 0, len(l.unlocked))
	for id := range l.unlocked {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (l *Ledger) FiniteStock() []StockEntry {
	out := make([]StockEntry, 0, len(l.stock))
	for id, n := range l.stock {
		out = append(out, StockEntry{BuildingID: id, Amount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BuildingID < out[j].BuildingID })
	return out
}

// Restore replaces the ledger contents. Entries that would break the
// unlocked-and-finite invariant are dropped; negative amounts load as zero.
func (l *Ledger) Restore(unlocked []int, stock []StockEntry) {
	l.unlocked = map[int]struct{}{}
	l.stock = map[int]int{}
	for _, id := range unlocked {
		l.Unlock(id)
	}
	for _, e := range stock {
		if _, ok := l.stock[e.BuildingID]; !ok {
			continue
		}
		n := e.Amount
		if n < 0 {
			n = 0
		}
		l.stock[e.BuildingID] = n
	}
}
