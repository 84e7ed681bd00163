package loader

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/nathoo/tinytalkers/engine/geom"
	"github.com/nathoo/tinytalkers/engine/scene"
	"github.com/nathoo/tinytalkers/engine/state"
	"github.com/nathoo/tinytalkers/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

// validate checks the compiled defs for referential integrity and
// consistency. Warnings are logged and do not fail the load.
func validate(defs *state.Defs, log *zap.Logger) error {
	ve := check(defs)

	for _, w := range ve.Warnings {
		log.Warn("content warning", zap.String("problem", w))
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// maxTickRate bounds Game.tick_rate so the engine step stays above zero.
const maxTickRate = 1000

func check(defs *state.Defs) *ValidationError {
	ve := &ValidationError{}
	g := defs.Game

	if g.Title == "" {
		ve.Errors = append(ve.Errors, "Game.title is required")
	}
	if g.SpriteSize < 0 || g.Speed < 0 || g.TickRate < 0 || g.Lives < 0 {
		ve.Errors = append(ve.Errors, "Game tuning values must not be negative")
	}
	if g.TickRate > maxTickRate {
		ve.Errors = append(ve.Errors, fmt.Sprintf("Game.tick_rate %d exceeds %d", g.TickRate, maxTickRate))
	}
	if g.FeetSize.W < 0 || g.FeetSize.H < 0 {
		ve.Errors = append(ve.Errors, "Game.feet must not be negative")
	}

	if len(defs.Floors) == 0 {
		ve.Errors = append(ve.Errors, "at least one Floor is required")
	}
	sprite := g.SpriteSize
	if sprite == 0 {
		sprite = 150
	}
	start, ok := defs.Floors[g.StartFloor]
	if !ok {
		ve.Errors = append(ve.Errors, fmt.Sprintf("start floor %q not found in defined floors", g.StartFloor))
	} else if !fits(g.StartPos, start.Boundary, sprite) {
		ve.Errors = append(ve.Errors, fmt.Sprintf("start position (%g, %g) is outside floor %q", g.StartPos.X, g.StartPos.Y, g.StartFloor))
	}

	ve.Errors = append(ve.Errors, scene.New(defs.Floors).Validate()...)

	// Stairs teleport without clamping, so a landing must leave room for
	// the whole sprite. Landings off the floor entirely are reported above.
	for _, id := range sortedFloorIDs(defs) {
		st := defs.Floors[id].Stair
		if st == nil {
			continue
		}
		target, ok := defs.Floors[st.Target]
		if !ok || !fits(st.Landing, target.Boundary, 0) || fits(st.Landing, target.Boundary, sprite) {
			continue
		}
		ve.Errors = append(ve.Errors, fmt.Sprintf(
			"floor %q stair landing (%g, %g) leaves no room for the sprite on floor %q",
			id, st.Landing.X, st.Landing.Y, st.Target))
	}

	placed := map[string]bool{}
	for _, id := range sortedFloorIDs(defs) {
		f := defs.Floors[id]
		for i, slot := range f.NPCs {
			if _, ok := defs.NPCs[slot.NPC]; !ok {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"floor %q npc slot %d references undefined npc %q", id, i, slot.NPC))
			}
			if placed[slot.NPC] {
				ve.Errors = append(ve.Errors, fmt.Sprintf("npc %q is placed more than once", slot.NPC))
			}
			placed[slot.NPC] = true
			if slot.Trigger.W <= 0 || slot.Trigger.H <= 0 {
				ve.Errors = append(ve.Errors, fmt.Sprintf("floor %q npc %q has an empty trigger area", id, slot.NPC))
			}
			for j, ob := range f.Obstacles {
				if geom.Contains(ob, slot.Trigger) {
					ve.Warnings = append(ve.Warnings, fmt.Sprintf(
						"floor %q npc %q trigger lies inside obstacle %d and cannot be reached", id, slot.NPC, j))
				}
			}
		}
	}

	for _, id := range state.NPCIDs(defs) {
		npc := defs.NPCs[id]
		if len(npc.Questions) == 0 {
			ve.Errors = append(ve.Errors, fmt.Sprintf("npc %q has no questions", id))
		}
		for i, q := range npc.Questions {
			if strings.TrimSpace(q.Prompt) == "" || strings.TrimSpace(q.Answer) == "" {
				ve.Errors = append(ve.Errors, fmt.Sprintf("npc %q question %d needs text and an answer", id, i+1))
			}
		}
		if !placed[id] {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf("npc %q is not placed on any floor", id))
		}
		if npc.Voice == "" {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf("npc %q has no voice and will use the default", id))
		}
	}

	return ve
}

// fits reports whether a sprite of the given size at pos stays inside b.
func fits(pos types.Vec, b types.Size, sprite float64) bool {
	return pos.X >= 0 && pos.Y >= 0 && pos.X <= b.W-sprite && pos.Y <= b.H-sprite
}

func sortedFloorIDs(defs *state.Defs) []types.FloorID {
	ids := make([]types.FloorID, 0, len(defs.Floors))
	for id := range defs.Floors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
