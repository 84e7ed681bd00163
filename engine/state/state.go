// Package state holds the immutable content definitions and the
// session-scoped mutable state, including per-NPC quiz progress.
package state

import (
	"sort"

	"github.com/nathoo/tinytalkers/types"
)

// Defs holds the immutable game definitions loaded from content.
type Defs struct {
	Game    types.GameDef
	Floors  map[types.FloorID]types.FloorDef
	NPCs    map[string]types.NPCDef
	Phrases types.Phrases
}

// NewState creates a fresh session state from definitions. Every NPC starts
// at its first question.
func NewState(defs *Defs) *types.State {
	s := &types.State{
		Player: types.Player{
			Pos:   defs.Game.StartPos,
			Dir:   types.DirFront,
			Floor: defs.Game.StartFloor,
		},
		Progress: map[string]*types.Progress{},
	}
	for id := range defs.NPCs {
		s.Progress[id] = &types.Progress{}
	}
	return s
}

// Reset returns s to the start of a new session in place.
func Reset(s *types.State, defs *Defs) {
	fresh := NewState(defs)
	s.Player = fresh.Player
	s.TickCount = 0
	// Keep the map identity: open dialogues hold pointers into it.
	for id, p := range s.Progress {
		if _, ok := defs.NPCs[id]; !ok {
			delete(s.Progress, id)
			continue
		}
		*p = types.Progress{}
	}
	for id, p := range fresh.Progress {
		if _, ok := s.Progress[id]; !ok {
			s.Progress[id] = p
		}
	}
}

// ProgressRef returns the live progress record for an NPC, creating it if
// the NPC has none yet.
func ProgressRef(s *types.State, npcID string) *types.Progress {
	if s.Progress == nil {
		s.Progress = map[string]*types.Progress{}
	}
	p, ok := s.Progress[npcID]
	if !ok {
		p = &types.Progress{}
		s.Progress[npcID] = p
	}
	return p
}

// ProgressFor returns a copy of an NPC's progress. Unknown NPCs report zero.
func ProgressFor(s *types.State, npcID string) types.Progress {
	if p, ok := s.Progress[npcID]; ok && p != nil {
		return *p
	}
	return types.Progress{}
}

// IsCompleted reports whether the NPC's quiz is finished.
func IsCompleted(s *types.State, npcID string) bool {
	return ProgressFor(s, npcID).Completed
}

// CompletedCount returns how many defined NPCs are completed.
func CompletedCount(s *types.State, defs *Defs) int {
	n := 0
	for id := range defs.NPCs {
		if IsCompleted(s, id) {
			n++
		}
	}
	return n
}

// NPCIDs returns the defined NPC IDs in sorted order.
func NPCIDs(defs *Defs) []string {
	ids := make([]string, 0, len(defs.NPCs))
	for id := range defs.NPCs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NPCName returns the display name of an NPC, falling back to its ID.
func NPCName(defs *Defs, npcID string) string {
	if npc, ok := defs.NPCs[npcID]; ok && npc.Name != "" {
		return npc.Name
	}
	return npcID
}

// FloorName returns the display name of a floor, falling back to its ID.
func FloorName(defs *Defs, id types.FloorID) string {
	if f, ok := defs.Floors[id]; ok && f.Name != "" {
		return f.Name
	}
	return string(id)
}
