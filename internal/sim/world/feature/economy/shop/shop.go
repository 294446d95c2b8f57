// Package shop implements the two-phase purchase flows: buying building
// unlocks and stock from the shop, and placing an unlocked building on an
// empty construction area. Nothing is mutated until Confirm.
package shop

import (
	"errors"

	"buildsim.ai/internal/sim/host"
	"buildsim.ai/internal/sim/world/feature/construction"
	"buildsim.ai/internal/sim/world/feature/economy/unlocks"
)

var (
	ErrNotListed          = errors.New("building not offered")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrStockFull          = errors.New("stock at capacity")
	ErrStockExhausted     = errors.New("no stock left")
	ErrQuantityOutOfRange = errors.New("quantity out of range")
	ErrBadState           = errors.New("invalid step for current state")
	ErrClosed             = errors.New("transaction closed")
)

type State int

const (
	Browsing State = iota
	QuantitySelection
	Confirmed
	Cancelled
	// BuildingChosen is the placement step after a building is picked.
	BuildingChosen
)

func (s State) String() string {
	switch s {
	case Browsing:
		return "BROWSING"
	case QuantitySelection:
		return "QUANTITY_SELECTION"
	case Confirmed:
		return "CONFIRMED"
	case Cancelled:
		return "CANCELLED"
	case BuildingChosen:
		return "BUILDING_CHOSEN"
	default:
		return "UNKNOWN"
	}
}

func (s State) Terminal() bool { return s == Confirmed || s == Cancelled }

// Env is the state a confirmed transaction mutates.
type Env struct {
	Wallet   host.Wallet
	Ledger   *unlocks.Ledger
	Registry *construction.Registry
}

func stockOf(l *unlocks.Ledger, id int) int {
	n, _ := l.Stock(id)
	return n
}
