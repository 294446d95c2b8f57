package shop

import (
	"fmt"

	"buildsim.ai/internal/sim/catalogs"
)

type Entry struct {
	BuildingID int    `json:"building_id"`
	Name       string `json:"name"`
	UnitCost   int    `json:"unit_cost"`
	Finite     bool   `json:"finite"`
	Stock      int    `json:"stock"`
	Affordable bool   `json:"affordable"`
}

type Selection struct {
	BuildingID  int `json:"building_id"`
	UnitCost    int `json:"unit_cost"`
	Quantity    int `json:"quantity"`
	MaxQuantity int `json:"max_quantity"`
}

type Receipt struct {
	BuildingID int `json:"building_id"`
	Quantity   int `json:"quantity"`
	UnitCost   int `json:"unit_cost"`
	Total      int `json:"total"`
	// Stock after the purchase; 0 for infinite buildings.
	Stock int `json:"stock"`
}

// Session is one visit to the shop. It is single use: once confirmed or
// cancelled every further call returns ErrClosed.
type Session struct {
	cat      *catalogs.Catalog
	tier     int
	stockCap int

	state State
	sel   Selection
	// An infinite building is picked without leaving Browsing; its quantity
	// is fixed at 1.
	picked bool
}

func Open(cat *catalogs.Catalog, tier, stockCap int) *Session {
	return &Session{cat: cat, tier: tier, stockCap: stockCap, state: Browsing}
}

func (s *Session) State() State { return s.state }

func (s *Session) Tier() int { return s.tier }

// Selection is valid in QuantitySelection, or in Browsing after an
// infinite building was picked.
func (s *Session) Selection() (Selection, bool) {
	if s.state != QuantitySelection && !s.picked {
		return Selection{}, false
	}
	return s.sel, true
}

func (s *Session) listed(env Env, def catalogs.BuildingDef) bool {
	if def.MinShopTier > s.tier {
		return false
	}
	return def.FiniteStock || !env.Ledger.IsUnlocked(def.ID)
}

// Listing returns the offered buildings in catalog order.
func (s *Session) Listing(env Env) []Entry {
	gold := env.Wallet.Gold()
	var out []Entry
	for _, def := range s.cat.Buildings {
		if !s.listed(env, def) {
			continue
		}
		out = append(out, Entry{
			BuildingID: def.ID,
			Name:       def.Name,
			UnitCost:   def.ShopCost,
			Finite:     def.FiniteStock,
			Stock:      stockOf(env.Ledger, def.ID),
			Affordable: gold >= def.ShopCost,
		})
	}
	return out
}

func (s *Session) Select(env Env, id int) (Selection, error) {
	if s.state.Terminal() {
		return Selection{}, ErrClosed
	}
	if s.state != Browsing {
		return Selection{}, fmt.Errorf("%w: select in %s", ErrBadState, s.state)
	}
	def, ok := s.cat.Get(id)
	if !ok || !s.listed(env, def) {
		return Selection{}, fmt.Errorf("%w: %d", ErrNotListed, id)
	}
	gold := env.Wallet.Gold()

	if !def.FiniteStock {
		if gold < def.ShopCost {
			return Selection{}, fmt.Errorf("%w: need %d, have %d", ErrInsufficientFunds, def.ShopCost, gold)
		}
		s.sel = Selection{BuildingID: id, UnitCost: def.ShopCost, Quantity: 1, MaxQuantity: 1}
		s.picked = true
		return s.sel, nil
	}

	room := s.stockCap - stockOf(env.Ledger, id)
	max := room
	if def.ShopCost > 0 && gold/def.ShopCost < max {
		max = gold / def.ShopCost
	}
	if max <= 0 {
		if room <= 0 {
			return Selection{}, fmt.Errorf("%w: cap %d", ErrStockFull, s.stockCap)
		}
		return Selection{}, fmt.Errorf("%w: need %d, have %d", ErrInsufficientFunds, def.ShopCost, gold)
	}
	s.sel = Selection{BuildingID: id, UnitCost: def.ShopCost, Quantity: 1, MaxQuantity: max}
	s.picked = false
	s.state = QuantitySelection
	return s.sel, nil
}

func (s *Session) SetQuantity(n int) error {
	if s.state.Terminal() {
		return ErrClosed
	}
	if s.state != QuantitySelection {
		return fmt.Errorf("%w: quantity in %s", ErrBadState, s.state)
	}
	if n < 1 || n > s.sel.MaxQuantity {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrQuantityOutOfRange, n, s.sel.MaxQuantity)
	}
	s.sel.Quantity = n
	return nil
}

// Back returns from quantity selection to browsing.
func (s *Session) Back() error {
	if s.state.Terminal() {
		return ErrClosed
	}
	s.sel = Selection{}
	s.picked = false
	s.state = Browsing
	return nil
}

// Confirm charges the wallet and applies the purchase. Funds and stock room
// are checked again against env as it is now; on error nothing changes and
// the session stays open.
func (s *Session) Confirm(env Env) (Receipt, error) {
	if s.state.Terminal() {
		return Receipt{}, ErrClosed
	}
	if s.state != QuantitySelection && !s.picked {
		return Receipt{}, fmt.Errorf("%w: confirm in %s", ErrBadState, s.state)
	}
	sel := s.sel
	def, ok := s.cat.Get(sel.BuildingID)
	if !ok || !s.listed(env, def) {
		return Receipt{}, fmt.Errorf("%w: %d", ErrNotListed, sel.BuildingID)
	}
	total := sel.Quantity * sel.UnitCost
	if gold := env.Wallet.Gold(); gold < total {
		return Receipt{}, fmt.Errorf("%w: need %d, have %d", ErrInsufficientFunds, total, gold)
	}
	if def.FiniteStock && sel.Quantity > s.stockCap-stockOf(env.Ledger, def.ID) {
		return Receipt{}, fmt.Errorf("%w: cap %d", ErrStockFull, s.stockCap)
	}

	env.Wallet.LoseGold(total)
	env.Ledger.Unlock(def.ID)
	if def.FiniteStock {
		env.Ledger.AddStock(def.ID, sel.Quantity)
	}
	s.picked = false
	s.state = Confirmed
	return Receipt{
		BuildingID: def.ID,
		Quantity:   sel.Quantity,
		UnitCost:   sel.UnitCost,
		Total:      total,
		Stock:      stockOf(env.Ledger, def.ID),
	}, nil
}

func (s *Session) Cancel() error {
	if s.state.Terminal() {
		return ErrClosed
	}
	s.state = Cancelled
	return nil
}
