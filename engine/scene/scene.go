// Package scene holds the static per-floor maps: boundaries, obstacles,
// stairways and NPC trigger zones. Maps are built once from content and
// never mutated.
package scene

import (
	"fmt"
	"sort"

	"github.com/nathoo/tinytalkers/engine/geom"
	"github.com/nathoo/tinytalkers/types"
)

// ConfigError reports a lookup for a floor that has no registered map.
// Valid content never produces one.
type ConfigError struct {
	Floor types.FloorID
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("scene: no map registered for floor %q", e.Floor)
}

// Map is the read-only set of floor maps.
type Map struct {
	floors map[types.FloorID]*types.FloorDef
}

// New builds a Map. The definitions are copied.
func New(floors map[types.FloorID]types.FloorDef) *Map {
	m := &Map{floors: make(map[types.FloorID]*types.FloorDef, len(floors))}
	for id, f := range floors {
		f := f
		f.ID = id
		m.floors[id] = &f
	}
	return m
}

// Floor returns the map for a floor.
func (m *Map) Floor(id types.FloorID) (*types.FloorDef, error) {
	f, ok := m.floors[id]
	if !ok {
		return nil, &ConfigError{Floor: id}
	}
	return f, nil
}

// MustFloor is Floor for callers that treat a missing map as a programming error.
func (m *Map) MustFloor(id types.FloorID) *types.FloorDef {
	f, err := m.Floor(id)
	if err != nil {
		panic(err)
	}
	return f
}

// Has reports whether a floor is registered.
func (m *Map) Has(id types.FloorID) bool {
	_, ok := m.floors[id]
	return ok
}

// Floors returns the registered floor IDs in sorted order.
func (m *Map) Floors() []types.FloorID {
	ids := make([]types.FloorID, 0, len(m.floors))
	for id := range m.floors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ObstaclesFor returns the impassable regions of a floor.
func (m *Map) ObstaclesFor(id types.FloorID) ([]types.Rect, error) {
	f, err := m.Floor(id)
	if err != nil {
		return nil, err
	}
	return f.Obstacles, nil
}

// StairFor returns the stairway of a floor, or nil if it has none.
func (m *Map) StairFor(id types.FloorID) (*types.Stair, error) {
	f, err := m.Floor(id)
	if err != nil {
		return nil, err
	}
	return f.Stair, nil
}

// NPCSlotsFor returns the NPC slots of a floor in declaration order.
func (m *Map) NPCSlotsFor(id types.FloorID) ([]types.NPCSlot, error) {
	f, err := m.Floor(id)
	if err != nil {
		return nil, err
	}
	return f.NPCs, nil
}

// Boundary returns the movement region of a floor.
func (m *Map) Boundary(id types.FloorID) (types.Size, error) {
	f, err := m.Floor(id)
	if err != nil {
		return types.Size{}, err
	}
	return f.Boundary, nil
}

// WouldCollide reports whether box overlaps any obstacle on the floor.
func (m *Map) WouldCollide(id types.FloorID, box types.Rect) (bool, error) {
	obstacles, err := m.ObstaclesFor(id)
	if err != nil {
		return false, err
	}
	for _, o := range obstacles {
		if geom.Intersects(box, o) {
			return true, nil
		}
	}
	return false, nil
}

// Validate checks the structural invariants of every floor and returns a
// description of each problem found.
func (m *Map) Validate() []string {
	var problems []string
	for _, id := range m.Floors() {
		f := m.floors[id]
		if f.Boundary.W <= 0 || f.Boundary.H <= 0 {
			problems = append(problems, fmt.Sprintf("floor %q has no boundary", id))
		}
		if f.Stair == nil {
			continue
		}
		st := f.Stair
		for i, o := range f.Obstacles {
			if geom.Intersects(o, st.Zone) {
				problems = append(problems, fmt.Sprintf(
					"floor %q obstacle %d overlaps the stair zone", id, i+1))
			}
		}
		if st.Direction != "up" && st.Direction != "down" {
			problems = append(problems, fmt.Sprintf(
				"floor %q stair direction %q must be \"up\" or \"down\"", id, st.Direction))
		}
		target, ok := m.floors[st.Target]
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf(
				"floor %q stair targets undefined floor %q", id, st.Target))
		case st.Target == id:
			problems = append(problems, fmt.Sprintf("floor %q stair targets itself", id))
		default:
			b := target.Boundary
			if st.Landing.X < 0 || st.Landing.Y < 0 || st.Landing.X > b.W || st.Landing.Y > b.H {
				problems = append(problems, fmt.Sprintf(
					"floor %q stair landing (%g,%g) lies outside floor %q", id, st.Landing.X, st.Landing.Y, st.Target))
			}
		}
	}
	return problems
}
