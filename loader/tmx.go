package loader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lafriks/go-tiled"
	"github.com/nathoo/tinytalkers/types"
)

// Object group names read from Tiled maps.
const (
	groupObstacles = "obstacles"
	groupStairs    = "stairs"
	groupNPCs      = "npcs"
)

// loadTMX reads a floor layout from a Tiled map. The map's pixel size is
// the boundary; rectangle objects in the named groups become obstacles,
// the stair zone and NPC trigger areas.
func loadTMX(path string) (types.FloorDef, error) {
	var f types.FloorDef
	m, err := tiled.LoadFile(path)
	if err != nil {
		return f, fmt.Errorf("loading tmx %s: %w", path, err)
	}
	f.Boundary = types.Size{
		W: float64(m.Width * m.TileWidth),
		H: float64(m.Height * m.TileHeight),
	}

	for _, g := range m.ObjectGroups {
		switch strings.ToLower(g.Name) {
		case groupObstacles:
			for _, o := range g.Objects {
				f.Obstacles = append(f.Obstacles, objectRect(o))
			}
		case groupStairs:
			if len(g.Objects) == 0 {
				continue
			}
			if len(g.Objects) > 1 {
				return f, fmt.Errorf("tmx %s: a floor has at most one stair, found %d", path, len(g.Objects))
			}
			st, err := objectStair(g.Objects[0])
			if err != nil {
				return f, fmt.Errorf("tmx %s: %w", path, err)
			}
			f.Stair = st
		case groupNPCs:
			for _, o := range g.Objects {
				slot, err := objectSlot(o)
				if err != nil {
					return f, fmt.Errorf("tmx %s: %w", path, err)
				}
				f.NPCs = append(f.NPCs, slot)
			}
		}
	}
	return f, nil
}

func objectRect(o *tiled.Object) types.Rect {
	return types.Rect{X: o.X, Y: o.Y, W: o.Width, H: o.Height}
}

func objectStair(o *tiled.Object) (*types.Stair, error) {
	lx, err := floatProp(o, "landing_x")
	if err != nil {
		return nil, err
	}
	ly, err := floatProp(o, "landing_y")
	if err != nil {
		return nil, err
	}
	return &types.Stair{
		Zone:      objectRect(o),
		Direction: strings.ToLower(stringProp(o, "direction")),
		Target:    floorID(stringProp(o, "target")),
		Landing:   types.Vec{X: lx, Y: ly},
	}, nil
}

// objectSlot reads an NPC area. The object name is the NPC id; the sprite
// anchor defaults to 15px left of the trigger.
func objectSlot(o *tiled.Object) (types.NPCSlot, error) {
	if o.Name == "" {
		return types.NPCSlot{}, fmt.Errorf("npc object %d has no name", o.ID)
	}
	slot := types.NPCSlot{
		NPC:     o.Name,
		Trigger: objectRect(o),
		Anchor:  types.Vec{X: o.X - 15, Y: o.Y},
	}
	if stringProp(o, "anchor_x") != "" {
		x, err := floatProp(o, "anchor_x")
		if err != nil {
			return slot, err
		}
		slot.Anchor.X = x
	}
	if stringProp(o, "anchor_y") != "" {
		y, err := floatProp(o, "anchor_y")
		if err != nil {
			return slot, err
		}
		slot.Anchor.Y = y
	}
	return slot, nil
}

func stringProp(o *tiled.Object, name string) string {
	if o.Properties == nil {
		return ""
	}
	return o.Properties.GetString(name)
}

func floatProp(o *tiled.Object, name string) (float64, error) {
	s := stringProp(o, name)
	if s == "" {
		return 0, fmt.Errorf("object %q is missing property %q", o.Name, name)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("object %q property %q: %w", o.Name, name, err)
	}
	return v, nil
}
