package loader

import (
	"strings"
	"testing"

	"github.com/nathoo/tinytalkers/types"
	lua "github.com/yuin/gopher-lua"
)

// newTestVM creates a sandboxed Lua VM with the API registered and a fresh collector.
func newTestVM() (*lua.LState, *collector) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibs(L)
	sandbox(L)
	coll := &collector{}
	registerAPI(L, coll)
	return L, coll
}

func TestCompileGame(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	if err := L.DoString(`
		return {
			title = "Test Game",
			author = "Author",
			version = "1.0",
			intro = "Welcome!",
			start_floor = "upstairs",
			start = Point(10, 20),
			speed = 7.5,
			lives = 5,
		}
	`); err != nil {
		t.Fatal(err)
	}

	game := compileGame(L.CheckTable(-1))

	if game.Title != "Test Game" {
		t.Errorf("Title = %q, want %q", game.Title, "Test Game")
	}
	if game.Author != "Author" || game.Version != "1.0" || game.Intro != "Welcome!" {
		t.Errorf("metadata = %+v", game)
	}
	if game.StartFloor != types.FloorUpper {
		t.Errorf("StartFloor = %q, want upper", game.StartFloor)
	}
	if game.StartPos != (types.Vec{X: 10, Y: 20}) {
		t.Errorf("StartPos = %+v", game.StartPos)
	}
	if game.Speed != 7.5 || game.Lives != 5 {
		t.Errorf("tuning = %+v", game)
	}
	// Unset tuning stays zero; the engine fills defaults.
	if game.SpriteSize != 0 || game.TickRate != 0 {
		t.Errorf("unset tuning = %+v", game)
	}
}

func TestCompileGame_DefaultStartFloor(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	if err := L.DoString(`return { title = "x" }`); err != nil {
		t.Fatal(err)
	}
	if g := compileGame(L.CheckTable(-1)); g.StartFloor != types.FloorGround {
		t.Errorf("StartFloor = %q, want ground", g.StartFloor)
	}
}

func TestShapeHelpers(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	if err := L.DoString(`return Rect(1, 2, 3, 4), Point(5, 6), Size(7, 8), Q("Hi?", "hello")`); err != nil {
		t.Fatal(err)
	}
	r := toRect(L.CheckTable(-4))
	p := toVec(L.CheckTable(-3))
	s := toSize(L.CheckTable(-2))
	q := L.CheckTable(-1)

	if r != (types.Rect{X: 1, Y: 2, W: 3, H: 4}) {
		t.Errorf("Rect = %+v", r)
	}
	if p != (types.Vec{X: 5, Y: 6}) {
		t.Errorf("Point = %+v", p)
	}
	if s != (types.Size{W: 7, H: 8}) {
		t.Errorf("Size = %+v", s)
	}
	if getString(q, "text") != "Hi?" || getString(q, "answer") != "hello" {
		t.Errorf("Q = text %q answer %q", getString(q, "text"), getString(q, "answer"))
	}
}

func TestShapeHelpers_RejectBadArgs(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	for _, code := range []string{`Rect(1, 2, 3)`, `Point("a", 1)`, `Q("only prompt")`, `Slot("npc", Point(0, 0))`} {
		if err := L.DoString(code); err == nil {
			t.Errorf("%s should fail", code)
		}
	}
}

func TestCompileFloor(t *testing.T) {
	L, coll := newTestVM()
	defer L.Close()

	if err := L.DoString(`
		Floor "upstairs" {
			name = "Bedroom",
			boundary = Size(800, 800),
			obstacles = { Rect(0, 0, 800, 350), "not a rect", Rect(50, 500, 100, 300) },
			stair = Stair {
				zone = Rect(290, 700, 200, 50),
				direction = "DOWN",
				target = "downstairs",
				landing = Point(290, 190),
			},
			npcs = {
				Slot("father", Point(150, 500), Rect(165, 500, 120, 150)),
				{ npc = "brother", anchor = Point(600, 500), trigger = Rect(615, 500, 120, 150) },
			},
		}
	`); err != nil {
		t.Fatal(err)
	}
	if len(coll.floors) != 1 {
		t.Fatalf("collected %d floors", len(coll.floors))
	}

	f, err := compileFloor(coll.floors[0], "")
	if err != nil {
		t.Fatal(err)
	}
	if f.ID != types.FloorUpper || f.Name != "Bedroom" {
		t.Errorf("floor = %+v", f)
	}
	if len(f.Obstacles) != 2 {
		t.Errorf("obstacles = %+v, non-tables should be skipped", f.Obstacles)
	}
	if f.Stair == nil || f.Stair.Direction != "down" || f.Stair.Target != types.FloorGround {
		t.Errorf("stair = %+v", f.Stair)
	}
	if len(f.NPCs) != 2 || f.NPCs[1].NPC != "brother" || f.NPCs[1].Anchor != (types.Vec{X: 600, Y: 500}) {
		t.Errorf("npcs = %+v", f.NPCs)
	}
}

func TestCompileFloor_MissingTMX(t *testing.T) {
	L, coll := newTestVM()
	defer L.Close()

	if err := L.DoString(`Floor "ground" { tmx = "nope.tmx" }`); err != nil {
		t.Fatal(err)
	}
	if _, err := compileFloor(coll.floors[0], "testdata"); err == nil {
		t.Fatal("expected an error for a missing map")
	}
}

func TestCompileNPC(t *testing.T) {
	L, coll := newTestVM()
	defer L.Close()

	if err := L.DoString(`
		NPC "brother" {
			voice = "ThT5KcBeYPX3keUQqHPh",
			greeting = "Hi!",
			questions = {
				Q("What is the opposite of hot?", "cold"),
				{ text = "What do bees make?", answer = "honey" },
			},
		}
	`); err != nil {
		t.Fatal(err)
	}
	npc := compileNPC(coll.npcs[0])
	if npc.ID != "brother" || npc.Name != "brother" {
		t.Errorf("id/name = %q/%q, name should default to the id", npc.ID, npc.Name)
	}
	if npc.Voice != "ThT5KcBeYPX3keUQqHPh" || npc.Greeting != "Hi!" {
		t.Errorf("npc = %+v", npc)
	}
	if len(npc.Questions) != 2 || npc.Questions[1].Answer != "honey" {
		t.Errorf("questions = %+v", npc.Questions)
	}
}

func TestCompile_DuplicateDefinitions(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"floor via alias", `Game { title = "x" } Floor "ground" {} Floor "down" {}`, "defined twice"},
		{"npc", `Game { title = "x" } NPC "a" {} NPC "a" {}`, "defined twice"},
		{"no game", `Floor "ground" {}`, "no Game{} definition"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			L, coll := newTestVM()
			defer L.Close()
			if err := L.DoString(tt.code); err != nil {
				t.Fatal(err)
			}
			_, err := compile(coll, "")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestFloorAliases(t *testing.T) {
	tests := map[string]types.FloorID{
		"ground": types.FloorGround,
		"Down":   types.FloorGround,
		"upper":  types.FloorUpper,
		"UP":     types.FloorUpper,
		"attic":  "attic",
	}
	for in, want := range tests {
		if got := floorID(in); got != want {
			t.Errorf("floorID(%q) = %q, want %q", in, got, want)
		}
	}
}
