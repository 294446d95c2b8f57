package tuning

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const HourMs = 3_600_000

type Tuning struct {
	MaxTier      int `yaml:"max_tier"`
	TierVariable int `yaml:"tier_variable"`

	// AccrualUnitMs is the time unit HourlyProfit is earned over.
	AccrualUnitMs int64 `yaml:"accrual_unit_ms"`

	ShopStockCap    int    `yaml:"shop_stock_cap"`
	StartingGold    int    `yaml:"starting_gold"`
	EmptyAreaSprite string `yaml:"empty_area_sprite"`

	AutosaveEveryMs int64 `yaml:"autosave_every_ms"`
	InboxSize       int   `yaml:"inbox_size"`
}

func Defaults() Tuning {
	return Tuning{
		MaxTier:         5,
		TierVariable:    20,
		AccrualUnitMs:   HourMs,
		ShopStockCap:    99,
		StartingGold:    0,
		EmptyAreaSprite: "construction_site",
		AutosaveEveryMs: 60_000,
		InboxSize:       256,
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	if strings.TrimSpace(path) == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Normalize fills zero values left by a partial file.
func (t *Tuning) Normalize() {
	d := Defaults()
	if t.AccrualUnitMs == 0 {
		t.AccrualUnitMs = d.AccrualUnitMs
	}
	if t.ShopStockCap == 0 {
		t.ShopStockCap = d.ShopStockCap
	}
	if t.InboxSize <= 0 {
		t.InboxSize = d.InboxSize
	}
	t.EmptyAreaSprite = strings.TrimSpace(t.EmptyAreaSprite)
	if t.EmptyAreaSprite == "" {
		t.EmptyAreaSprite = d.EmptyAreaSprite
	}
}

func (t Tuning) Validate() error {
	if t.MaxTier < 1 {
		return fmt.Errorf("max_tier must be >= 1, got %d", t.MaxTier)
	}
	if t.TierVariable < 1 {
		return fmt.Errorf("tier_variable must be >= 1, got %d", t.TierVariable)
	}
	if t.AccrualUnitMs <= 0 {
		return fmt.Errorf("accrual_unit_ms must be > 0, got %d", t.AccrualUnitMs)
	}
	if t.ShopStockCap < 1 {
		return fmt.Errorf("shop_stock_cap must be >= 1, got %d", t.ShopStockCap)
	}
	if t.StartingGold < 0 {
		return fmt.Errorf("starting_gold must be >= 0, got %d", t.StartingGold)
	}
	if t.AutosaveEveryMs < 0 {
		return fmt.Errorf("autosave_every_ms must be >= 0, got %d", t.AutosaveEveryMs)
	}
	return nil
}
