package construction

import (
	"errors"
	"fmt"
	"sort"

	"buildsim.ai/internal/sim/catalogs"
	"buildsim.ai/internal/sim/host"
	"buildsim.ai/internal/sim/world/logic/accrual"
)

var (
	ErrAreaNotFound    = errors.New("construction area not found")
	ErrOccupied        = errors.New("construction area occupied")
	ErrEmptyArea       = errors.New("construction area empty")
	ErrUnknownBuilding = errors.New("unknown building")
)

// Location identifies an area by the host map and the map event standing on it.
type Location struct {
	MapID   int `json:"map_id"`
	EventID int `json:"event_id"`
}

func (l Location) String() string { return fmt.Sprintf("%d:%d", l.MapID, l.EventID) }

func (l Location) less(o Location) bool {
	if l.MapID != o.MapID {
		return l.MapID < o.MapID
	}
	return l.EventID < o.EventID
}

type Area struct {
	Location      Location
	MinTier       int
	Occupant      *int
	LastAccrualMs int64
}

func (a Area) Occupied() bool { return a.Occupant != nil }

// Directive tells the host how to draw an area and whether the player may walk onto it.
type Directive struct {
	SpriteRef string `json:"sprite"`
	Walkable  bool   `json:"walkable"`
}

type Placed struct {
	Location  Location  `json:"loc"`
	Directive Directive `json:"directive"`
}

type Options struct {
	EmptySprite   string
	AccrualUnitMs int64
}

// Registry owns every construction area. Areas are created on first
// registration and never deleted.
type Registry struct {
	cat   *catalogs.Catalog
	clock host.Clock
	opts  Options

	areas map[Location]*Area
}

func NewRegistry(cat *catalogs.Catalog, clock host.Clock, opts Options) *Registry {
	if opts.AccrualUnitMs <= 0 {
		opts.AccrualUnitMs = accrual.HourMs
	}
	return &Registry{
		cat:   cat,
		clock: clock,
		opts:  opts,
		areas: map[Location]*Area{},
	}
}

// RegisterArea returns the existing area at loc or creates an empty one.
func (r *Registry) RegisterArea(loc Location, minTier int) Area {
	if a, ok := r.areas[loc]; ok {
		return cloneArea(a)
	}
	if minTier < 1 {
		minTier = 1
	}
	a := &Area{Location: loc, MinTier: minTier, LastAccrualMs: r.clock.NowMillis()}
	r.areas[loc] = a
	return cloneArea(a)
}

func (r *Registry) Get(loc Location) (Area, bool) {
	a, ok := r.areas[loc]
	if !ok {
		return Area{}, false
	}
	return cloneArea(a), true
}

func (r *Registry) Len() int { return len(r.areas) }

func (r *Registry) Areas() []Area {
	out := make([]Area, 0, len(r.areas))
	for _, a := range r.areas {
		out = append(out, cloneArea(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location.less(out[j].Location) })
	return out
}

func (r *Registry) Render(loc Location, tier int) (Directive, bool) {
	a, ok := r.areas[loc]
	if !ok || tier < a.MinTier {
		return Directive{}, false
	}
	return r.directive(a), true
}

func (r *Registry) RenderAll(tier int) []Placed {
	var out []Placed
	for _, a := range r.Areas() {
		if tier < a.MinTier {
			continue
		}
		out = append(out, Placed{Location: a.Location, Directive: r.directive(&a)})
	}
	return out
}

func (r *Registry) directive(a *Area) Directive {
	if a.Occupant == nil {
		return Directive{SpriteRef: r.opts.EmptySprite, Walkable: true}
	}
	def, ok := r.cat.Get(*a.Occupant)
	if !ok {
		return Directive{SpriteRef: r.opts.EmptySprite, Walkable: true}
	}
	return Directive{SpriteRef: def.Image, Walkable: def.Walkable}
}

func (r *Registry) Construct(loc Location, buildingID int) error {
	a, ok := r.areas[loc]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAreaNotFound, loc)
	}
	if a.Occupant != nil {
		return fmt.Errorf("%w: %s", ErrOccupied, loc)
	}
	if _, ok := r.cat.Get(buildingID); !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBuilding, buildingID)
	}
	id := buildingID
	a.Occupant = &id
	r.stamp(a, r.clock.NowMillis())
	return nil
}

// Remove clears the area and returns the profit accrued since its last reset.
func (r *Registry) Remove(loc Location) (int, error) {
	a, ok := r.areas[loc]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrAreaNotFound, loc)
	}
	if a.Occupant == nil {
		return 0, fmt.Errorf("%w: %s", ErrEmptyArea, loc)
	}
	now := r.clock.NowMillis()
	profit := r.accrued(a, now)
	a.Occupant = nil
	r.stamp(a, now)
	return profit, nil
}

// Pending quotes the profit Remove would pay right now without mutating anything.
func (r *Registry) Pending(loc Location) (int, error) {
	a, ok := r.areas[loc]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrAreaNotFound, loc)
	}
	if a.Occupant == nil {
		return 0, fmt.Errorf("%w: %s", ErrEmptyArea, loc)
	}
	return r.accrued(a, r.clock.NowMillis()), nil
}

func (r *Registry) PendingAll() int {
	now := r.clock.NowMillis()
	total := 0
	for _, a := range r.areas {
		total = addSat(total, r.accrued(a, now))
	}
	return total
}

// CollectAll sums every occupied area's profit at one clock sample, then
// resets those areas at a second sample. Time between the two samples is
// forfeited.
func (r *Registry) CollectAll() int {
	t1 := r.clock.NowMillis()
	total := 0
	for _, a := range r.areas {
		total = addSat(total, r.accrued(a, t1))
	}
	t2 := r.clock.NowMillis()
	if t2 < t1 {
		t2 = t1
	}
	for _, a := range r.areas {
		if a.Occupant != nil {
			r.stamp(a, t2)
		}
	}
	return total
}

func (r *Registry) accrued(a *Area, now int64) int {
	if a.Occupant == nil {
		return 0
	}
	def, ok := r.cat.Get(*a.Occupant)
	if !ok {
		return 0
	}
	return accrual.Accrue(a.LastAccrualMs, now, def.HourlyProfit, r.opts.AccrualUnitMs)
}

// stamp never moves an accrual timestamp backwards.
func (r *Registry) stamp(a *Area, now int64) {
	if now > a.LastAccrualMs {
		a.LastAccrualMs = now
	}
}

func cloneArea(a *Area) Area {
	c := *a
	if a.Occupant != nil {
		id := *a.Occupant
		c.Occupant = &id
	}
	return c
}

func addSat(a, b int) int {
	if s := a + b; s >= a {
		return s
	}
	return int(^uint(0) >> 1)
}
