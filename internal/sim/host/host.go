// Package host holds the collaborators the simulation borrows from the host game engine:
// wall clock, player purse and the numbered variable table.
package host

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Clock supplies wall-clock timestamps in milliseconds.
type Clock interface {
	NowMillis() int64
}

// Wallet is the player's currency ledger. LoseGold must not be called with n > Gold().
type Wallet interface {
	Gold() int
	GainGold(n int)
	LoseGold(n int)
}

// Variables is the host's integer variable table.
type Variables interface {
	Variable(id int) int
	SetVariable(id, v int)
}

type SystemClock struct{}

func (SystemClock) NowMillis() int64 { return time.Now().UnixMilli() }

// ManualClock only moves when told to. Safe for concurrent use.
type ManualClock struct {
	mu  sync.Mutex
	now int64
}

func NewManualClock(startMs int64) *ManualClock {
	return &ManualClock{now: startMs}
}

func (c *ManualClock) NowMillis() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Set(ms int64) {
	c.mu.Lock()
	c.now = ms
	c.mu.Unlock()
}

func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d.Milliseconds()
	c.mu.Unlock()
}

// SteppingClock advances by Step after every read. Useful for observing
// code paths that sample the clock more than once.
type SteppingClock struct {
	mu   sync.Mutex
	now  int64
	Step int64
}

func NewSteppingClock(startMs, stepMs int64) *SteppingClock {
	return &SteppingClock{now: startMs, Step: stepMs}
}

func (c *SteppingClock) NowMillis() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.now
	c.now += c.Step
	return v
}

// Purse is an in-memory Wallet.
type Purse struct {
	mu   sync.Mutex
	gold int
}

func NewPurse(gold int) *Purse {
	if gold < 0 {
		gold = 0
	}
	return &Purse{gold: gold}
}

func (p *Purse) Gold() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gold
}

func (p *Purse) GainGold(n int) {
	if n <= 0 {
		return
	}
	p.mu.Lock()
	if p.gold > math.MaxInt-n {
		p.gold = math.MaxInt
	} else {
		p.gold += n
	}
	p.mu.Unlock()
}

func (p *Purse) LoseGold(n int) {
	if n <= 0 {
		return
	}
	p.mu.Lock()
	p.gold -= n
	if p.gold < 0 {
		p.gold = 0
	}
	p.mu.Unlock()
}

// VariableTable is an in-memory Variables. Unset slots read as 0.
type VariableTable struct {
	mu   sync.Mutex
	vars map[int]int
}

func NewVariableTable() *VariableTable {
	return &VariableTable{vars: map[int]int{}}
}

func (t *VariableTable) Variable(id int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.vars[id]
}

func (t *VariableTable) SetVariable(id, v int) {
	t.mu.Lock()
	t.vars[id] = v
	t.mu.Unlock()
}

// Export returns a copy of all set slots.
func (t *VariableTable) Export() map[int]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[int]int, len(t.vars))
	for k, v := range t.vars {
		out[k] = v
	}
	return out
}

func (t *VariableTable) Import(vars map[int]int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.vars = make(map[int]int, len(vars))
	for k, v := range vars {
		t.vars[k] = v
	}
}

// IDs returns the set slot ids in ascending order.
func (t *VariableTable) IDs() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]int, 0, len(t.vars))
	for id := range t.vars {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
