// Package loader loads Lua game content into Go structs at compile time.
// The Lua VM is discarded after loading: zero Lua at runtime.
package loader

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nathoo/tinytalkers/engine/state"
	"github.com/nathoo/tinytalkers/types"
	lua "github.com/yuin/gopher-lua"
)

// rawFloor holds a floor table before compilation.
type rawFloor struct {
	id    string
	table *lua.LTable
}

// rawNPC holds an NPC table before compilation.
type rawNPC struct {
	id    string
	table *lua.LTable
}

// floorAliases maps the names content may use for the two floors.
var floorAliases = map[string]types.FloorID{
	"ground":     types.FloorGround,
	"down":       types.FloorGround,
	"downstairs": types.FloorGround,
	"upper":      types.FloorUpper,
	"up":         types.FloorUpper,
	"upstairs":   types.FloorUpper,
}

// floorID normalizes a floor name. Unknown names pass through unchanged so
// validation can report them.
func floorID(name string) types.FloorID {
	if id, ok := floorAliases[strings.ToLower(name)]; ok {
		return id
	}
	return types.FloorID(name)
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getNumber returns a numeric field from a Lua table, or 0 if missing.
func getNumber(tbl *lua.LTable, key string) float64 {
	v := tbl.RawGetString(key)
	if n, ok := v.(lua.LNumber); ok {
		return float64(n)
	}
	return 0
}

// getInt returns an int field from a Lua table, or 0 if missing.
func getInt(tbl *lua.LTable, key string) int {
	return int(getNumber(tbl, key))
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	v := tbl.RawGetString(key)
	if t, ok := v.(*lua.LTable); ok {
		return t
	}
	return nil
}

// getStrings returns a string list field. A bare string counts as a
// one-element list.
func getStrings(tbl *lua.LTable, key string) []string {
	switch v := tbl.RawGetString(key).(type) {
	case lua.LString:
		return []string{string(v)}
	case *lua.LTable:
		var out []string
		for i := 1; i <= v.MaxN(); i++ {
			if s, ok := v.RawGetInt(i).(lua.LString); ok {
				out = append(out, string(s))
			}
		}
		return out
	}
	return nil
}

func toVec(tbl *lua.LTable) types.Vec {
	if tbl == nil {
		return types.Vec{}
	}
	return types.Vec{X: getNumber(tbl, "x"), Y: getNumber(tbl, "y")}
}

func toSize(tbl *lua.LTable) types.Size {
	if tbl == nil {
		return types.Size{}
	}
	return types.Size{W: getNumber(tbl, "w"), H: getNumber(tbl, "h")}
}

func toRect(tbl *lua.LTable) types.Rect {
	if tbl == nil {
		return types.Rect{}
	}
	return types.Rect{X: getNumber(tbl, "x"), Y: getNumber(tbl, "y"), W: getNumber(tbl, "w"), H: getNumber(tbl, "h")}
}

// compile converts all collected Lua data into a Defs struct.
func compile(coll *collector, dir string) (*state.Defs, error) {
	defs := &state.Defs{
		Floors: map[types.FloorID]types.FloorDef{},
		NPCs:   map[string]types.NPCDef{},
	}

	if coll.game == nil {
		return nil, fmt.Errorf("no Game{} definition found")
	}
	defs.Game = compileGame(coll.game)

	for _, raw := range coll.floors {
		floor, err := compileFloor(raw, dir)
		if err != nil {
			return nil, fmt.Errorf("compiling floor %s: %w", raw.id, err)
		}
		if _, dup := defs.Floors[floor.ID]; dup {
			return nil, fmt.Errorf("floor %q defined twice", floor.ID)
		}
		defs.Floors[floor.ID] = floor
	}

	for _, raw := range coll.npcs {
		if _, dup := defs.NPCs[raw.id]; dup {
			return nil, fmt.Errorf("npc %q defined twice", raw.id)
		}
		defs.NPCs[raw.id] = compileNPC(raw)
	}

	if coll.phrases != nil {
		defs.Phrases = compilePhrases(coll.phrases)
	}

	return defs, nil
}

func compileGame(tbl *lua.LTable) types.GameDef {
	g := types.GameDef{
		Title:      getString(tbl, "title"),
		Author:     getString(tbl, "author"),
		Version:    getString(tbl, "version"),
		Intro:      getString(tbl, "intro"),
		StartFloor: floorID(getString(tbl, "start_floor")),
		StartPos:   toVec(getTable(tbl, "start")),
		SpriteSize: getNumber(tbl, "sprite_size"),
		FeetSize:   toSize(getTable(tbl, "feet")),
		Speed:      getNumber(tbl, "speed"),
		TickRate:   getInt(tbl, "tick_rate"),
		Lives:      getInt(tbl, "lives"),
	}
	if g.StartFloor == "" {
		g.StartFloor = types.FloorGround
	}
	return g
}

func compileFloor(raw rawFloor, dir string) (types.FloorDef, error) {
	tbl := raw.table
	var f types.FloorDef

	if tmx := getString(tbl, "tmx"); tmx != "" {
		var err error
		f, err = loadTMX(filepath.Join(dir, tmx))
		if err != nil {
			return f, err
		}
	}

	f.ID = floorID(raw.id)
	if name := getString(tbl, "name"); name != "" {
		f.Name = name
	}
	if bg := getString(tbl, "background"); bg != "" {
		f.Background = bg
	}
	if b := getTable(tbl, "boundary"); b != nil {
		f.Boundary = toSize(b)
	}

	if obs := getTable(tbl, "obstacles"); obs != nil {
		for i := 1; i <= obs.MaxN(); i++ {
			if r, ok := obs.RawGetInt(i).(*lua.LTable); ok {
				f.Obstacles = append(f.Obstacles, toRect(r))
			}
		}
	}

	if st := getTable(tbl, "stair"); st != nil {
		f.Stair = &types.Stair{
			Zone:      toRect(getTable(st, "zone")),
			Direction: strings.ToLower(getString(st, "direction")),
			Target:    floorID(getString(st, "target")),
			Landing:   toVec(getTable(st, "landing")),
		}
	}

	if npcs := getTable(tbl, "npcs"); npcs != nil {
		for i := 1; i <= npcs.MaxN(); i++ {
			s, ok := npcs.RawGetInt(i).(*lua.LTable)
			if !ok {
				continue
			}
			f.NPCs = append(f.NPCs, types.NPCSlot{
				NPC:     getString(s, "npc"),
				Anchor:  toVec(getTable(s, "anchor")),
				Trigger: toRect(getTable(s, "trigger")),
			})
		}
	}

	return f, nil
}

func compileNPC(raw rawNPC) types.NPCDef {
	tbl := raw.table
	npc := types.NPCDef{
		ID:       raw.id,
		Name:     getString(tbl, "name"),
		Voice:    getString(tbl, "voice"),
		Sprite:   getString(tbl, "sprite"),
		Greeting: getString(tbl, "greeting"),
	}
	if npc.Name == "" {
		npc.Name = raw.id
	}
	if qs := getTable(tbl, "questions"); qs != nil {
		for i := 1; i <= qs.MaxN(); i++ {
			q, ok := qs.RawGetInt(i).(*lua.LTable)
			if !ok {
				continue
			}
			npc.Questions = append(npc.Questions, types.Question{
				Prompt: getString(q, "text"),
				Answer: getString(q, "answer"),
			})
		}
	}
	return npc
}

func compilePhrases(tbl *lua.LTable) types.Phrases {
	return types.Phrases{
		Correct:     getStrings(tbl, "correct"),
		Incorrect:   getStrings(tbl, "incorrect"),
		Complete:    getStrings(tbl, "complete"),
		AlreadyDone: getStrings(tbl, "already_done"),
		Assist:      getStrings(tbl, "assist"),
	}
}

// sortedLuaFiles returns .lua files in a directory, with game.lua first
// and the rest sorted alphabetically.
func sortedLuaFiles(files []string) []string {
	var gameFile string
	var others []string
	for _, f := range files {
		if f == "game.lua" {
			gameFile = f
		} else {
			others = append(others, f)
		}
	}
	sort.Strings(others)
	if gameFile != "" {
		return append([]string{gameFile}, others...)
	}
	return others
}
