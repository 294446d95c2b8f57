package world

import (
	"errors"
	"fmt"

	"buildsim.ai/internal/protocol"
	"buildsim.ai/internal/sim/world/feature/construction"
	"buildsim.ai/internal/sim/world/feature/economy/shop"
)

// Dispatch applies one command and returns its RESULT. It must run on the
// world loop goroutine (or with Run not started, as in tests).
func (w *World) Dispatch(cmd protocol.CmdMsg) protocol.ResultMsg {
	data, err := w.apply(cmd)
	if err != nil {
		return protocol.ErrResult(cmd, errorCode(err), err.Error())
	}
	return protocol.OKResult(cmd, data)
}

func (w *World) apply(cmd protocol.CmdMsg) (any, error) {
	loc := func() (construction.Location, error) {
		if cmd.Loc == nil {
			return construction.Location{}, fmt.Errorf("%w: %s requires loc", ErrBadRequest, cmd.Op)
		}
		return construction.Location{MapID: cmd.Loc.MapID, EventID: cmd.Loc.EventID}, nil
	}

	switch cmd.Op {
	case protocol.OpRegisterArea:
		l, err := loc()
		if err != nil {
			return nil, err
		}
		return w.RegisterArea(l, cmd.MinTier), nil
	case protocol.OpEnterBuildingMode:
		if err := w.EnterBuildingMode(); err != nil {
			return nil, err
		}
		return w.State(), nil
	case protocol.OpExitBuildingMode:
		if err := w.ExitBuildingMode(); err != nil {
			return nil, err
		}
		return w.State(), nil
	case protocol.OpOpenShop:
		return w.OpenShop()
	case protocol.OpShopSelect:
		return w.ShopSelect(cmd.BuildingID)
	case protocol.OpShopQuantity:
		return w.ShopQuantity(cmd.Quantity)
	case protocol.OpShopBack:
		return w.ShopBack()
	case protocol.OpInteract:
		l, err := loc()
		if err != nil {
			return nil, err
		}
		return w.Interact(l)
	case protocol.OpPlaceSelect:
		return nil, w.PlaceSelect(cmd.BuildingID)
	case protocol.OpPrepareCollect:
		q, err := w.PrepareCollect()
		return map[string]int{"quote": q}, err
	case protocol.OpConfirm:
		return w.Confirm()
	case protocol.OpCancel:
		return nil, w.Cancel()
	case protocol.OpUnlock:
		return nil, w.Unlock(cmd.BuildingID)
	case protocol.OpAddStock:
		n, err := w.AddStock(cmd.BuildingID, cmd.Amount)
		return map[string]int{"stock": n}, err
	case protocol.OpSetTier:
		return map[string]int{"tier": w.SetTier(cmd.Tier)}, nil
	case protocol.OpSetVariable:
		return map[string]int{"tier": w.SetVariable(cmd.Variable, cmd.Value)}, nil
	case protocol.OpRender:
		return w.Render(), nil
	case protocol.OpState:
		return w.State(), nil
	default:
		return nil, fmt.Errorf("%w: unknown op %q", ErrBadRequest, cmd.Op)
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, construction.ErrAreaNotFound):
		return protocol.ErrAreaNotFound
	case errors.Is(err, construction.ErrOccupied):
		return protocol.ErrOccupied
	case errors.Is(err, construction.ErrEmptyArea):
		return protocol.ErrEmptyArea
	case errors.Is(err, ErrAreaLocked):
		return protocol.ErrAreaLocked
	case errors.Is(err, shop.ErrInsufficientFunds):
		return protocol.ErrInsufficientFunds
	case errors.Is(err, shop.ErrStockExhausted):
		return protocol.ErrStockExhausted
	case errors.Is(err, shop.ErrStockFull):
		return protocol.ErrStockFull
	case errors.Is(err, shop.ErrNotListed):
		return protocol.ErrNotListed
	case errors.Is(err, ErrPendingTransaction):
		return protocol.ErrPending
	case errors.Is(err, ErrNoPending):
		return protocol.ErrNoPending
	case errors.Is(err, shop.ErrBadState), errors.Is(err, shop.ErrClosed):
		return protocol.ErrBadState
	case errors.Is(err, ErrBadRequest), errors.Is(err, shop.ErrQuantityOutOfRange), errors.Is(err, construction.ErrUnknownBuilding):
		return protocol.ErrBadRequest
	default:
		return protocol.ErrInternal
	}
}
