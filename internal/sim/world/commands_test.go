package world

import (
	"context"
	"testing"
	"time"

	"buildsim.ai/internal/persistence/snapshot"
	"buildsim.ai/internal/protocol"
	"buildsim.ai/internal/sim/tuning"
)

func cmd(op string) protocol.CmdMsg {
	return protocol.CmdMsg{Type: protocol.TypeCmd, ProtocolVersion: protocol.Version, ID: op, Op: op}
}

func TestDispatchErrorCodes(t *testing.T) {
	r := newRig(t, 10)
	w := r.w

	reg := cmd(protocol.OpRegisterArea)
	reg.Loc = &protocol.Loc{MapID: 1, EventID: 1}
	reg.MinTier = 2
	if res := w.Dispatch(reg); !res.OK {
		t.Fatalf("register: %+v", res)
	} else if got, ok := res.Data.(Registration); !ok || got.Area.MinTier != 2 || got.Directive != nil {
		t.Fatalf("expected locked registration without directive, got %+v", res.Data)
	}

	cases := []struct {
		name string
		cmd  protocol.CmdMsg
		code string
	}{
		{"confirm idle", cmd(protocol.OpConfirm), protocol.ErrNoPending},
		{"interact missing loc", cmd(protocol.OpInteract), protocol.ErrBadRequest},
		{"unknown op", cmd("FLY"), protocol.ErrBadRequest},
		{"unlock unknown", func() protocol.CmdMsg { c := cmd(protocol.OpUnlock); c.BuildingID = 42; return c }(), protocol.ErrBadRequest},
		{"interact locked", func() protocol.CmdMsg {
			c := cmd(protocol.OpInteract)
			c.Loc = &protocol.Loc{MapID: 1, EventID: 1}
			return c
		}(), protocol.ErrAreaLocked},
		{"interact missing area", func() protocol.CmdMsg {
			c := cmd(protocol.OpInteract)
			c.Loc = &protocol.Loc{MapID: 5, EventID: 5}
			return c
		}(), protocol.ErrAreaNotFound},
	}
	for _, c := range cases {
		res := w.Dispatch(c.cmd)
		if res.OK || res.Code != c.code {
			t.Fatalf("%s: expected %s, got %+v", c.name, c.code, res)
		}
		if res.ID != c.cmd.ID || res.Type != protocol.TypeResult {
			t.Fatalf("%s: result not correlated: %+v", c.name, res)
		}
	}

	if res := w.Dispatch(cmd(protocol.OpOpenShop)); !res.OK {
		t.Fatalf("open shop: %+v", res)
	}
	if res := w.Dispatch(cmd(protocol.OpPrepareCollect)); res.Code != protocol.ErrPending {
		t.Fatalf("expected E_PENDING, got %+v", res)
	}
	sel := cmd(protocol.OpShopSelect)
	sel.BuildingID = bCottage
	if res := w.Dispatch(sel); res.Code != protocol.ErrInsufficientFunds {
		t.Fatalf("expected E_INSUFFICIENT_FUNDS, got %+v", res)
	}
	sel.BuildingID = bCastle
	if res := w.Dispatch(sel); res.Code != protocol.ErrNotListed {
		t.Fatalf("expected E_NOT_LISTED, got %+v", res)
	}
	if res := w.Dispatch(cmd(protocol.OpCancel)); !res.OK {
		t.Fatalf("cancel: %+v", res)
	}
	if res := w.Dispatch(cmd(protocol.OpState)); !res.OK {
		t.Fatalf("state: %+v", res)
	} else if st, ok := res.Data.(StateView); !ok || st.Gold != 10 || st.Pending != "" {
		t.Fatalf("unexpected state %+v", res.Data)
	}
}

func TestRunServesSubmitAndSave(t *testing.T) {
	r := newRig(t, 300)
	w := r.w
	sink := make(chan snapshot.SnapshotV1, 1)
	w.SetSnapshotSink(sink)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	reg := cmd(protocol.OpRegisterArea)
	reg.Loc = &protocol.Loc{MapID: 1, EventID: 1}
	res, err := w.Submit(ctx, "S1", reg)
	if err != nil || !res.OK {
		t.Fatalf("submit: %+v %v", res, err)
	}
	unlock := cmd(protocol.OpUnlock)
	unlock.BuildingID = bCottage
	if res, err := w.Submit(ctx, "S1", unlock); err != nil || !res.OK {
		t.Fatalf("unlock: %+v %v", res, err)
	}
	if len(r.audit.entries) != 1 || r.audit.entries[0].Actor != "S1" {
		t.Fatalf("expected audit attributed to S1, got %+v", r.audit.entries)
	}

	r.clock.Set(4242)
	savedAt, err := w.RequestSave(ctx)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if savedAt != 4242 {
		t.Fatalf("expected save at 4242, got %d", savedAt)
	}
	snap := <-sink
	if len(snap.Core.Areas) != 1 || len(snap.Core.UnlockedBuildingIDs) != 1 || snap.Host.Gold != 300 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	// Sink full: the second save reports backpressure instead of blocking.
	w.SetSnapshotSink(make(chan snapshot.SnapshotV1))
	if _, err := w.RequestSave(ctx); err == nil {
		t.Fatalf("expected backpressure error")
	}
	if m := w.Metrics(); m.Commands != 2 || m.Rejected != 0 || m.Saves != 1 || m.InboxCapacity != tuning.Defaults().InboxSize {
		t.Fatalf("unexpected metrics %+v", m)
	}

	w.Stop()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}
