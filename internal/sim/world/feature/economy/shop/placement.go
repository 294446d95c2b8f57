package shop

import (
	"fmt"

	"buildsim.ai/internal/sim/catalogs"
	"buildsim.ai/internal/sim/world/feature/construction"
)

type Option struct {
	BuildingID       int    `json:"building_id"`
	Name             string `json:"name"`
	ConstructionCost int    `json:"construction_cost"`
	Finite           bool   `json:"finite"`
	Stock            int    `json:"stock"`
	Enabled          bool   `json:"enabled"`
	Affordable       bool   `json:"affordable"`
}

type PlacementReceipt struct {
	Location   construction.Location `json:"loc"`
	BuildingID int                   `json:"building_id"`
	Cost       int                   `json:"cost"`
}

// Placement builds one unlocked building on an empty area. The state moves
// Browsing -> BuildingChosen -> Confirmed | Cancelled.
type Placement struct {
	cat   *catalogs.Catalog
	loc   construction.Location
	state State
	id    int
}

func NewPlacement(cat *catalogs.Catalog, loc construction.Location) *Placement {
	return &Placement{cat: cat, loc: loc, state: Browsing}
}

func (p *Placement) Location() construction.Location { return p.loc }
func (p *Placement) State() State                    { return p.state }

// Chosen is valid once a building has been selected.
func (p *Placement) Chosen() (int, bool) {
	if p.state != BuildingChosen {
		return 0, false
	}
	return p.id, true
}

func (p *Placement) Options(env Env) []Option {
	gold := env.Wallet.Gold()
	var out []Option
	for _, id := range env.Ledger.UnlockedIDs() {
		def, ok := p.cat.Get(id)
		if !ok {
			continue
		}
		out = append(out, Option{
			BuildingID:       id,
			Name:             def.Name,
			ConstructionCost: def.ConstructionCost,
			Finite:           def.FiniteStock,
			Stock:            stockOf(env.Ledger, id),
			Enabled:          env.Ledger.IsPurchasable(id),
			Affordable:       gold >= def.ConstructionCost,
		})
	}
	return out
}

func (p *Placement) Select(env Env, id int) error {
	if p.state.Terminal() {
		return ErrClosed
	}
	if !env.Ledger.IsUnlocked(id) {
		return fmt.Errorf("%w: %d", ErrNotListed, id)
	}
	if !env.Ledger.IsPurchasable(id) {
		return fmt.Errorf("%w: %d", ErrStockExhausted, id)
	}
	p.id = id
	p.state = BuildingChosen
	return nil
}

// Confirm pays the construction cost, takes one unit of finite stock and
// constructs. The area is checked before any gold moves.
func (p *Placement) Confirm(env Env) (PlacementReceipt, error) {
	if p.state.Terminal() {
		return PlacementReceipt{}, ErrClosed
	}
	if p.state != BuildingChosen {
		return PlacementReceipt{}, fmt.Errorf("%w: confirm in %s", ErrBadState, p.state)
	}
	def, ok := p.cat.Get(p.id)
	if !ok || !env.Ledger.IsUnlocked(p.id) {
		return PlacementReceipt{}, fmt.Errorf("%w: %d", ErrNotListed, p.id)
	}
	if !env.Ledger.IsPurchasable(p.id) {
		return PlacementReceipt{}, fmt.Errorf("%w: %d", ErrStockExhausted, p.id)
	}
	if gold := env.Wallet.Gold(); gold < def.ConstructionCost {
		return PlacementReceipt{}, fmt.Errorf("%w: need %d, have %d", ErrInsufficientFunds, def.ConstructionCost, gold)
	}
	area, ok := env.Registry.Get(p.loc)
	if !ok {
		return PlacementReceipt{}, fmt.Errorf("%w: %s", construction.ErrAreaNotFound, p.loc)
	}
	if area.Occupied() {
		return PlacementReceipt{}, fmt.Errorf("%w: %s", construction.ErrOccupied, p.loc)
	}

	env.Wallet.LoseGold(def.ConstructionCost)
	if def.FiniteStock {
		env.Ledger.ConsumeStock(p.id, 1)
	}
	if err := env.Registry.Construct(p.loc, p.id); err != nil {
		return PlacementReceipt{}, err
	}
	p.state = Confirmed
	return PlacementReceipt{Location: p.loc, BuildingID: p.id, Cost: def.ConstructionCost}, nil
}

func (p *Placement) Cancel() error {
	if p.state.Terminal() {
		return ErrClosed
	}
	p.state = Cancelled
	return nil
}
