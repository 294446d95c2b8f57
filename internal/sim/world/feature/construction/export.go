package construction

import "fmt"

type AreaSave struct {
	MapID         int   `json:"map_id"`
	EventID       int   `json:"event_id"`
	MinTier       int   `json:"min_tier"`
	Occupant      *int  `json:"occupant,omitempty"`
	LastAccrualMs int64 `json:"last_accrual_ms"`
}

func (r *Registry) Export() []AreaSave {
	areas := r.Areas()
	out := make([]AreaSave, 0, len(areas))
	for _, a := range areas {
		out = append(out, AreaSave{
			MapID:         a.Location.MapID,
			EventID:       a.Location.EventID,
			MinTier:       a.MinTier,
			Occupant:      a.Occupant,
			LastAccrualMs: a.LastAccrualMs,
		})
	}
	return out
}

// Import replaces all areas. It fails without touching the registry when the
// save names an unknown building or repeats a location.
func (r *Registry) Import(saved []AreaSave) error {
	next := make(map[Location]*Area, len(saved))
	for _, s := range saved {
		loc := Location{MapID: s.MapID, EventID: s.EventID}
		if _, dup := next[loc]; dup {
			return fmt.Errorf("duplicate area %s", loc)
		}
		a := &Area{Location: loc, MinTier: s.MinTier, LastAccrualMs: s.LastAccrualMs}
		if a.MinTier < 1 {
			a.MinTier = 1
		}
		if s.Occupant != nil {
			if _, ok := r.cat.Get(*s.Occupant); !ok {
				return fmt.Errorf("area %s: %w: %d", loc, ErrUnknownBuilding, *s.Occupant)
			}
			id := *s.Occupant
			a.Occupant = &id
		}
		next[loc] = a
	}
	r.areas = next
	return nil
}
