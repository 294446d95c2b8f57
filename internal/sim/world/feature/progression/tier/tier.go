package tier

import (
	"fmt"

	"buildsim.ai/internal/sim/host"
)

// Controller keeps the player's tier in [1, max]. The host variable slot is the
// source of truth; anything written there directly is clamped on next read.
type Controller struct {
	max   int
	slot  int
	store host.Variables
}

func New(maxTier, slot int, store host.Variables) (*Controller, error) {
	if maxTier < 1 {
		return nil, fmt.Errorf("max tier must be >= 1, got %d", maxTier)
	}
	if store == nil {
		return nil, fmt.Errorf("nil variable store")
	}
	return &Controller{max: maxTier, slot: slot, store: store}, nil
}

func (c *Controller) MaxTier() int  { return c.max }
func (c *Controller) Variable() int { return c.slot }

// SetTier clamps raw and mirrors the effective tier into the variable slot.
func (c *Controller) SetTier(raw int) int {
	eff := Clamp(raw, c.max)
	c.store.SetVariable(c.slot, eff)
	return eff
}

func (c *Controller) Current() int {
	raw := c.store.Variable(c.slot)
	eff := Clamp(raw, c.max)
	if eff != raw {
		c.store.SetVariable(c.slot, eff)
	}
	return eff
}

func Clamp(raw, max int) int {
	if raw < 1 {
		return 1
	}
	if raw > max {
		return max
	}
	return raw
}
