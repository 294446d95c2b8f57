package world

import (
	"errors"
	"fmt"

	"buildsim.ai/internal/sim/world/feature/construction"
	"buildsim.ai/internal/sim/world/feature/economy/shop"
)

type InteractKind string

const (
	InteractNone         InteractKind = "NONE"
	InteractTriggerEvent InteractKind = "TRIGGER_EVENT"
	InteractPlacement    InteractKind = "PLACEMENT"
	InteractRemoval      InteractKind = "REMOVAL"
)

type InteractResult struct {
	Kind       InteractKind          `json:"kind"`
	Loc        construction.Location `json:"loc"`
	EventID    int                   `json:"event_id,omitempty"`
	BuildingID *int                  `json:"building_id,omitempty"`
	Options    []shop.Option         `json:"options,omitempty"`
	Quote      int                   `json:"quote,omitempty"`
}

// Outcome describes a confirmed transaction.
type Outcome struct {
	Kind      string                 `json:"kind"`
	Purchase  *shop.Receipt          `json:"purchase,omitempty"`
	Placement *shop.PlacementReceipt `json:"placement,omitempty"`
	Loc       *construction.Location `json:"loc,omitempty"`
	Credited  int                    `json:"credited,omitempty"`
	GoldAfter int                    `json:"gold_after"`
}

// Registration is the area as stored plus how to draw it now. Directive is
// nil while the area is above the current tier.
type Registration struct {
	Area      construction.Area       `json:"area"`
	Directive *construction.Directive `json:"directive,omitempty"`
}

// RegisterArea creates the area on first call; later calls keep the stored
// area and only re-render it.
func (w *World) RegisterArea(loc construction.Location, minTier int) Registration {
	out := Registration{Area: w.reg.RegisterArea(loc, minTier)}
	if d, ok := w.reg.Render(loc, w.tier.Current()); ok {
		out.Directive = &d
	}
	return out
}

func (w *World) EnterBuildingMode() error {
	if err := w.requireIdle(); err != nil {
		return err
	}
	w.buildingMode = true
	return nil
}

func (w *World) ExitBuildingMode() error {
	if err := w.requireIdle(); err != nil {
		return err
	}
	w.buildingMode = false
	return nil
}

// OpenShop starts a shop session at the current tier and returns its listing.
func (w *World) OpenShop() ([]shop.Entry, error) {
	if err := w.requireIdle(); err != nil {
		return nil, err
	}
	s := shop.Open(w.cat, w.tier.Current(), w.cfg.ShopStockCap)
	w.pending = pending{kind: pendingShop, shop: s}
	return s.Listing(w.env()), nil
}

func (w *World) ShopListing() ([]shop.Entry, error) {
	if w.pending.kind != pendingShop {
		return nil, fmt.Errorf("%w: shop", ErrNoPending)
	}
	return w.pending.shop.Listing(w.env()), nil
}

func (w *World) ShopSelect(buildingID int) (shop.Selection, error) {
	if w.pending.kind != pendingShop {
		return shop.Selection{}, fmt.Errorf("%w: shop", ErrNoPending)
	}
	return w.pending.shop.Select(w.env(), buildingID)
}

func (w *World) ShopQuantity(n int) (shop.Selection, error) {
	if w.pending.kind != pendingShop {
		return shop.Selection{}, fmt.Errorf("%w: shop", ErrNoPending)
	}
	if err := w.pending.shop.SetQuantity(n); err != nil {
		return shop.Selection{}, err
	}
	sel, _ := w.pending.shop.Selection()
	return sel, nil
}

func (w *World) ShopBack() ([]shop.Entry, error) {
	if w.pending.kind != pendingShop {
		return nil, fmt.Errorf("%w: shop", ErrNoPending)
	}
	if err := w.pending.shop.Back(); err != nil {
		return nil, err
	}
	return w.pending.shop.Listing(w.env()), nil
}

// Interact is the player stepping onto or activating the area at loc.
func (w *World) Interact(loc construction.Location) (InteractResult, error) {
	if err := w.requireIdle(); err != nil {
		return InteractResult{}, err
	}
	area, err := w.unlockedArea(loc)
	if err != nil {
		return InteractResult{}, err
	}

	res := InteractResult{Kind: InteractNone, Loc: loc, BuildingID: area.Occupant}
	if !w.buildingMode {
		if !area.Occupied() {
			return res, nil
		}
		if def, ok := w.cat.Get(*area.Occupant); ok && def.LinkedEventID != nil {
			res.Kind = InteractTriggerEvent
			res.EventID = *def.LinkedEventID
		}
		return res, nil
	}

	if !area.Occupied() {
		p := shop.NewPlacement(w.cat, loc)
		w.pending = pending{kind: pendingPlacement, place: p, loc: loc}
		res.Kind = InteractPlacement
		res.Options = p.Options(w.env())
		return res, nil
	}

	quote, err := w.reg.Pending(loc)
	if err != nil {
		return InteractResult{}, err
	}
	w.pending = pending{kind: pendingRemoval, loc: loc, quote: quote}
	res.Kind = InteractRemoval
	res.Quote = quote
	return res, nil
}

// unlockedArea returns the area at loc if the current tier reaches it. The
// tier can change while a transaction is pending, so confirms check again.
func (w *World) unlockedArea(loc construction.Location) (construction.Area, error) {
	area, ok := w.reg.Get(loc)
	if !ok {
		return construction.Area{}, fmt.Errorf("%w: %s", construction.ErrAreaNotFound, loc)
	}
	if cur := w.tier.Current(); cur < area.MinTier {
		return construction.Area{}, fmt.Errorf("%w: %s needs tier %d, at %d", ErrAreaLocked, loc, area.MinTier, cur)
	}
	return area, nil
}

func (w *World) PlaceSelect(buildingID int) error {
	if w.pending.kind != pendingPlacement {
		return fmt.Errorf("%w: placement", ErrNoPending)
	}
	return w.pending.place.Select(w.env(), buildingID)
}

// PrepareCollect quotes the profit of every occupied area. Confirm pays the
// amount accrued at confirm time, not this quote.
func (w *World) PrepareCollect() (int, error) {
	if err := w.requireIdle(); err != nil {
		return 0, err
	}
	quote := w.reg.PendingAll()
	w.pending = pending{kind: pendingCollect, quote: quote}
	return quote, nil
}

func (w *World) Confirm() (Outcome, error) {
	p := w.pending
	switch p.kind {
	case pendingShop:
		r, err := p.shop.Confirm(w.env())
		if err != nil {
			if !keepShopOpen(err) {
				w.clearPending()
			}
			return Outcome{}, err
		}
		w.clearPending()
		id := r.BuildingID
		w.audit("PURCHASE", nil, &id, r.Quantity, -r.Total, map[string]any{"unit_cost": r.UnitCost, "stock": r.Stock})
		return Outcome{Kind: "PURCHASE", Purchase: &r, GoldAfter: w.Gold()}, nil

	case pendingPlacement:
		if _, err := w.unlockedArea(p.loc); err != nil {
			w.clearPending()
			return Outcome{}, err
		}
		r, err := p.place.Confirm(w.env())
		if err != nil {
			if !keepPlacementOpen(err) {
				w.clearPending()
			}
			return Outcome{}, err
		}
		w.clearPending()
		loc, id := r.Location, r.BuildingID
		w.audit("CONSTRUCT", &loc, &id, 1, -r.Cost, nil)
		return Outcome{Kind: "CONSTRUCT", Placement: &r, Loc: &loc, GoldAfter: w.Gold()}, nil

	case pendingRemoval:
		w.clearPending()
		area, err := w.unlockedArea(p.loc)
		if err != nil {
			return Outcome{}, err
		}
		profit, err := w.reg.Remove(p.loc)
		if err != nil {
			return Outcome{}, err
		}
		w.host.Wallet.GainGold(profit)
		loc := p.loc
		w.audit("REMOVE", &loc, area.Occupant, 0, profit, map[string]any{"quote": p.quote})
		return Outcome{Kind: "REMOVE", Loc: &loc, Credited: profit, GoldAfter: w.Gold()}, nil

	case pendingCollect:
		w.clearPending()
		total := w.reg.CollectAll()
		w.host.Wallet.GainGold(total)
		w.audit("COLLECT", nil, nil, 0, total, map[string]any{"quote": p.quote})
		return Outcome{Kind: "COLLECT", Credited: total, GoldAfter: w.Gold()}, nil
	}
	return Outcome{}, ErrNoPending
}

// Cancel abandons the pending transaction without touching any state.
func (w *World) Cancel() error {
	p := w.pending
	switch p.kind {
	case pendingNone:
		return ErrNoPending
	case pendingShop:
		_ = p.shop.Cancel()
	case pendingPlacement:
		_ = p.place.Cancel()
	}
	w.clearPending()
	return nil
}

// A shop session survives errors the player can fix from the same screen.
func keepShopOpen(err error) bool {
	return errors.Is(err, shop.ErrInsufficientFunds) ||
		errors.Is(err, shop.ErrStockFull) ||
		errors.Is(err, shop.ErrBadState)
}

func keepPlacementOpen(err error) bool {
	return errors.Is(err, shop.ErrInsufficientFunds) || errors.Is(err, shop.ErrBadState)
}
