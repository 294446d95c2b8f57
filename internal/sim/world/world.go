package world

import (
	"errors"
	"fmt"
	"log"

	"buildsim.ai/internal/persistence/snapshot"
	"buildsim.ai/internal/sim/catalogs"
	"buildsim.ai/internal/sim/host"
	"buildsim.ai/internal/sim/tuning"
	"buildsim.ai/internal/sim/world/feature/construction"
	"buildsim.ai/internal/sim/world/feature/economy/shop"
	"buildsim.ai/internal/sim/world/feature/economy/unlocks"
	"buildsim.ai/internal/sim/world/feature/progression/tier"
)

var (
	ErrPendingTransaction = errors.New("another transaction is pending")
	ErrNoPending          = errors.New("no matching transaction pending")
	ErrAreaLocked         = errors.New("construction area locked for current tier")
	ErrBadRequest         = errors.New("bad request")
)

// Host bundles the collaborators borrowed from the host game.
type Host struct {
	Clock  host.Clock
	Wallet host.Wallet
	Vars   host.Variables
}

type pendingKind int

const (
	pendingNone pendingKind = iota
	pendingShop
	pendingPlacement
	pendingRemoval
	pendingCollect
)

func (k pendingKind) String() string {
	switch k {
	case pendingShop:
		return "SHOP"
	case pendingPlacement:
		return "PLACEMENT"
	case pendingRemoval:
		return "REMOVAL"
	case pendingCollect:
		return "COLLECT"
	default:
		return ""
	}
}

type pending struct {
	kind  pendingKind
	shop  *shop.Session
	place *shop.Placement
	loc   construction.Location
	quote int
}

// World is the authoritative simulation root for one play session.
// When Run is active, all state must be accessed only from the loop goroutine.
type World struct {
	cfg  tuning.Tuning
	cat  *catalogs.Catalog
	host Host

	reg    *construction.Registry
	ledger *unlocks.Ledger
	tier   *tier.Controller

	buildingMode bool
	pending      pending

	inbox chan Envelope
	admin chan adminSaveReq
	stop  chan struct{}

	seq     uint64
	actor   string
	metrics loopCounters

	// Optional (may be nil).
	logger       *log.Logger
	auditLogger  AuditLogger
	snapshotSink chan<- snapshot.SnapshotV1
}

func New(cfg tuning.Tuning, cat *catalogs.Catalog, h Host) (*World, error) {
	if cat == nil {
		return nil, fmt.Errorf("nil catalog")
	}
	if h.Clock == nil || h.Wallet == nil || h.Vars == nil {
		return nil, fmt.Errorf("incomplete host: clock, wallet and variables are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tc, err := tier.New(cfg.MaxTier, cfg.TierVariable, h.Vars)
	if err != nil {
		return nil, err
	}
	inbox := cfg.InboxSize
	if inbox <= 0 {
		inbox = tuning.Defaults().InboxSize
	}
	w := &World{
		cfg:  cfg,
		cat:  cat,
		host: h,
		reg: construction.NewRegistry(cat, h.Clock, construction.Options{
			EmptySprite:   cfg.EmptyAreaSprite,
			AccrualUnitMs: cfg.AccrualUnitMs,
		}),
		ledger: unlocks.New(cat),
		tier:   tc,
		inbox:  make(chan Envelope, inbox),
		admin:  make(chan adminSaveReq, 8),
		stop:   make(chan struct{}),
	}
	return w, nil
}

func (w *World) SetLogger(l *log.Logger) { w.logger = l }

func (w *World) SetAuditLogger(l AuditLogger) { w.auditLogger = l }

// SetSnapshotSink receives autosaves and admin saves. Sends never block the loop.
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) Catalog() *catalogs.Catalog { return w.cat }

func (w *World) Config() tuning.Tuning { return w.cfg }

func (w *World) logf(format string, args ...any) {
	if w.logger != nil {
		w.logger.Printf(format, args...)
	}
}

func (w *World) env() shop.Env {
	return shop.Env{Wallet: w.host.Wallet, Ledger: w.ledger, Registry: w.reg}
}

func (w *World) Tier() int          { return w.tier.Current() }
func (w *World) MaxTier() int       { return w.tier.MaxTier() }
func (w *World) Gold() int          { return w.host.Wallet.Gold() }
func (w *World) BuildingMode() bool { return w.buildingMode }

// Pending names the open transaction kind, or "" when idle.
func (w *World) Pending() string { return w.pending.kind.String() }

func (w *World) clearPending() { w.pending = pending{} }

func (w *World) requireIdle() error {
	if w.pending.kind != pendingNone {
		return fmt.Errorf("%w: %s", ErrPendingTransaction, w.pending.kind)
	}
	return nil
}
