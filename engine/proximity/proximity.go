// Package proximity finds the NPC the player can currently talk to.
package proximity

import (
	"github.com/nathoo/tinytalkers/engine/geom"
	"github.com/nathoo/tinytalkers/engine/scene"
	"github.com/nathoo/tinytalkers/types"
)

// Detect returns the first NPC on the floor whose trigger zone overlaps the
// feet box, in the floor's declaration order. It never opens a dialogue.
func Detect(m *scene.Map, floor types.FloorID, feet types.Rect) (string, bool, error) {
	slots, err := m.NPCSlotsFor(floor)
	if err != nil {
		return "", false, err
	}
	for _, s := range slots {
		if geom.Intersects(feet, s.Trigger) {
			return s.NPC, true, nil
		}
	}
	return "", false, nil
}

// Tracker remembers the last detection so callers can react to changes.
type Tracker struct {
	current string
}

// Update records the latest detection and reports whether it changed.
func (t *Tracker) Update(npc string, ok bool) (changed bool) {
	if !ok {
		npc = ""
	}
	changed = npc != t.current
	t.current = npc
	return changed
}

// Current returns the NPC in range, if any.
func (t *Tracker) Current() (string, bool) {
	return t.current, t.current != ""
}
