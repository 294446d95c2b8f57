package world

import "buildsim.ai/internal/sim/world/feature/construction"

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

type AuditEntry struct {
	Seq        uint64         `json:"seq"`
	AtMs       int64          `json:"at_ms"`
	Actor      string         `json:"actor"`
	Action     string         `json:"action"` // e.g. "PURCHASE"
	Loc        string         `json:"loc,omitempty"`
	BuildingID *int           `json:"building_id,omitempty"`
	Quantity   int            `json:"quantity,omitempty"`
	GoldDelta  int            `json:"gold_delta"`
	GoldAfter  int            `json:"gold_after"`
	Details    map[string]any `json:"details,omitempty"`
}

const hostActor = "host"

func (w *World) audit(action string, loc *construction.Location, buildingID *int, qty, goldDelta int, details map[string]any) {
	w.seq++
	if w.auditLogger == nil {
		return
	}
	actor := w.actor
	if actor == "" {
		actor = hostActor
	}
	entry := AuditEntry{
		Seq:        w.seq,
		AtMs:       w.host.Clock.NowMillis(),
		Actor:      actor,
		Action:     action,
		BuildingID: buildingID,
		Quantity:   qty,
		GoldDelta:  goldDelta,
		GoldAfter:  w.host.Wallet.Gold(),
		Details:    details,
	}
	if loc != nil {
		entry.Loc = loc.String()
	}
	if err := w.auditLogger.WriteAudit(entry); err != nil {
		w.logf("audit %s: %v", action, err)
	}
}
