package world

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"buildsim.ai/internal/protocol"
)

// Envelope carries one command into the world loop. Resp, if set, receives
// exactly one result and should be buffered.
type Envelope struct {
	Actor string
	Cmd   protocol.CmdMsg
	Resp  chan protocol.ResultMsg
}

type adminSaveReq struct {
	Resp chan adminSaveResp
}

type adminSaveResp struct {
	SavedAtMs int64
	Err       string
}

func (w *World) Run(ctx context.Context) error {
	var autosave <-chan time.Time
	if w.cfg.AutosaveEveryMs > 0 {
		t := time.NewTicker(time.Duration(w.cfg.AutosaveEveryMs) * time.Millisecond)
		defer t.Stop()
		autosave = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case env := <-w.inbox:
			w.handleEnvelope(env)
		case req := <-w.admin:
			savedAt, err := w.emitSnapshot()
			resp := adminSaveResp{SavedAtMs: savedAt}
			if err != nil {
				resp.Err = err.Error()
			}
			select {
			case req.Resp <- resp:
			default:
				// Caller gave up; don't block the loop.
			}
		case <-autosave:
			if _, err := w.emitSnapshot(); err != nil {
				w.logf("autosave: %v", err)
			}
		}
	}
}

func (w *World) Stop() { close(w.stop) }

func (w *World) handleEnvelope(env Envelope) {
	w.actor = env.Actor
	res := w.Dispatch(env.Cmd)
	w.actor = ""
	w.metrics.commands.Add(1)
	if !res.OK {
		w.metrics.rejected.Add(1)
	}
	if env.Resp == nil {
		return
	}
	select {
	case env.Resp <- res:
	default:
	}
}

// Submit queues cmd for the world loop and waits for its result.
// It is safe to call from other goroutines (e.g. websocket readers).
func (w *World) Submit(ctx context.Context, actor string, cmd protocol.CmdMsg) (protocol.ResultMsg, error) {
	resp := make(chan protocol.ResultMsg, 1)
	select {
	case w.inbox <- Envelope{Actor: actor, Cmd: cmd, Resp: resp}:
	case <-ctx.Done():
		return protocol.ResultMsg{}, ctx.Err()
	}
	select {
	case r := <-resp:
		return r, nil
	case <-ctx.Done():
		return protocol.ResultMsg{}, ctx.Err()
	}
}

// RequestSave asks the world loop to push a snapshot to the sink.
func (w *World) RequestSave(ctx context.Context) (int64, error) {
	resp := make(chan adminSaveResp, 1)
	select {
	case w.admin <- adminSaveReq{Resp: resp}:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case r := <-resp:
		if r.Err != "" {
			return r.SavedAtMs, errors.New(r.Err)
		}
		return r.SavedAtMs, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (w *World) emitSnapshot() (int64, error) {
	if w.snapshotSink == nil {
		return 0, errors.New("snapshot sink not configured")
	}
	now := w.host.Clock.NowMillis()
	select {
	case w.snapshotSink <- w.ExportSnapshot(now):
		w.metrics.saves.Add(1)
		return now, nil
	default:
		return now, errors.New("snapshot sink backpressure")
	}
}

type loopCounters struct {
	commands atomic.Uint64
	rejected atomic.Uint64
	saves    atomic.Uint64
}

// WorldMetrics is safe to read from any goroutine.
type WorldMetrics struct {
	InboxDepth    int    `json:"inbox_depth"`
	InboxCapacity int    `json:"inbox_capacity"`
	Commands      uint64 `json:"commands"`
	Rejected      uint64 `json:"rejected"`
	Saves         uint64 `json:"saves"`
}

func (w *World) Metrics() WorldMetrics {
	return WorldMetrics{
		InboxDepth:    len(w.inbox),
		InboxCapacity: cap(w.inbox),
		Commands:      w.metrics.commands.Load(),
		Rejected:      w.metrics.rejected.Load(),
		Saves:         w.metrics.saves.Load(),
	}
}
