package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerShapeHelpers(L)
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Game { title = "...", ... }
	L.SetGlobal("Game", L.NewFunction(func(L *lua.LState) int {
		coll.game = L.CheckTable(1)
		return 0
	}))

	// Phrases { correct = {...}, ... }
	L.SetGlobal("Phrases", L.NewFunction(func(L *lua.LState) int {
		coll.phrases = L.CheckTable(1)
		return 0
	}))

	// Floor "id" { ... } is curried: Floor("id") returns a function that takes a table.
	L.SetGlobal("Floor", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.floors = append(coll.floors, rawFloor{id: id, table: tbl})
			return 0
		}))
		return 1
	}))

	// NPC "id" { ... }, curried the same way.
	L.SetGlobal("NPC", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.npcs = append(coll.npcs, rawNPC{id: id, table: tbl})
			return 0
		}))
		return 1
	}))
}

func registerShapeHelpers(L *lua.LState) {
	// Rect(x, y, w, h)
	L.SetGlobal("Rect", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("x", L.CheckNumber(1))
		tbl.RawSetString("y", L.CheckNumber(2))
		tbl.RawSetString("w", L.CheckNumber(3))
		tbl.RawSetString("h", L.CheckNumber(4))
		L.Push(tbl)
		return 1
	}))

	// Point(x, y)
	L.SetGlobal("Point", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("x", L.CheckNumber(1))
		tbl.RawSetString("y", L.CheckNumber(2))
		L.Push(tbl)
		return 1
	}))

	// Size(w, h)
	L.SetGlobal("Size", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("w", L.CheckNumber(1))
		tbl.RawSetString("h", L.CheckNumber(2))
		L.Push(tbl)
		return 1
	}))

	// Q("prompt", "answer")
	L.SetGlobal("Q", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("text", lua.LString(L.CheckString(1)))
		tbl.RawSetString("answer", lua.LString(L.CheckString(2)))
		L.Push(tbl)
		return 1
	}))

	// Stair { zone = Rect(...), direction = "up", target = "upper", landing = Point(...) }
	// is a pass-through so content reads like the other constructors.
	L.SetGlobal("Stair", L.NewFunction(func(L *lua.LState) int {
		L.Push(L.CheckTable(1))
		return 1
	}))

	// Slot("npc", anchor, trigger)
	L.SetGlobal("Slot", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("npc", lua.LString(L.CheckString(1)))
		tbl.RawSetString("anchor", L.CheckTable(2))
		tbl.RawSetString("trigger", L.CheckTable(3))
		L.Push(tbl)
		return 1
	}))
}
